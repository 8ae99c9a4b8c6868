package services

import (
	"context"
	"time"

	"github.com/carpal-dk/backoffice/src/logger"
	"github.com/carpal-dk/backoffice/src/models"
	"github.com/patrickmn/go-cache"
)

const sweepCacheKey = "bilinfo-sweep-latest"

// ConsistencyService runs the full Bilinfo-vs-Zoho sweep and keeps the latest
// result for the dashboard. Scheduled nightly; also triggerable on demand.
type ConsistencyService struct {
	listings ListingClient
	results  *cache.Cache
}

func NewConsistencyService(listings ListingClient) *ConsistencyService {
	return &ConsistencyService{
		listings: listings,
		results:  cache.New(48*time.Hour, time.Hour),
	}
}

// Latest returns the most recent sweep result, if one is cached.
func (c *ConsistencyService) Latest() (models.ConsistencySweepResult, bool) {
	value, found := c.results.Get(sweepCacheKey)
	if !found {
		return models.ConsistencySweepResult{}, false
	}
	result, ok := value.(models.ConsistencySweepResult)
	return result, ok
}

// RunSweep checks every listed VIN against Zoho and caches the summary.
// Individual check failures count as failed rows; only a listing-feed error
// aborts the sweep.
func (c *ConsistencyService) RunSweep(ctx context.Context) (models.ConsistencySweepResult, error) {
	started := time.Now().UTC()
	logger.L.Info("Starting bilinfo consistency sweep")

	rows, err := c.listings.List(ctx)
	if err != nil {
		logger.L.Error("Consistency sweep aborted: listing fetch failed", "error", err)
		return models.ConsistencySweepResult{}, err
	}

	result := models.ConsistencySweepResult{
		StartedAt: started.Format(time.RFC3339),
		Results:   make(map[string]models.BilinfoCheckResult, len(rows)),
	}

	for _, row := range rows {
		if row.Vin == "" {
			continue
		}
		result.Total++

		check, err := c.listings.Check(ctx, row.Vin)
		if err != nil {
			result.Failed++
			result.Results[row.Vin] = models.BilinfoCheckResult{Message: err.Error()}
			continue
		}
		result.Results[row.Vin] = check

		switch {
		case !check.Found:
			result.NotFound++
		case checkPassed(check.Checks):
			result.Passed++
		default:
			result.Failed++
		}
	}

	result.FinishedAt = time.Now().UTC().Format(time.RFC3339)
	c.results.SetDefault(sweepCacheKey, result)

	logger.L.Info("Bilinfo consistency sweep finished",
		"total", result.Total, "passed", result.Passed, "failed", result.Failed, "notFound", result.NotFound,
		"duration", time.Since(started).String())
	return result, nil
}

func checkPassed(checks *models.BilinfoCheckChecks) bool {
	if checks == nil {
		return false
	}
	return checks.StageNotSoldOk && checks.InternalOk && checks.BilinfoStatusOk &&
		checks.PriceOk && checks.MileageOk && checks.VariantOk && checks.EquipmentOk
}
