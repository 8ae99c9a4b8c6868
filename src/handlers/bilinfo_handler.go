package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/carpal-dk/backoffice/src/config"
	"github.com/carpal-dk/backoffice/src/logger"
	"github.com/carpal-dk/backoffice/src/models"
	"github.com/carpal-dk/backoffice/src/services"
	"github.com/carpal-dk/backoffice/src/utils"
	"github.com/patrickmn/go-cache"
)

const listingCacheKey = "bilinfo-listings"

// BilinfoHandler serves the listing dashboard. The legacy inspector protocol
// is action-dispatched on a single endpoint and guarded by a shared secret
// rather than the dashboard token, so automation scripts can hit it too.
type BilinfoHandler struct {
	listings    services.ListingClient
	consistency *services.ConsistencyService
	listCache   *cache.Cache
}

func NewBilinfoHandler(listings services.ListingClient, consistency *services.ConsistencyService) *BilinfoHandler {
	return &BilinfoHandler{
		listings:    listings,
		consistency: consistency,
		listCache:   cache.New(15*time.Minute, 30*time.Minute),
	}
}

func (h *BilinfoHandler) authorized(r *http.Request) bool {
	secret := config.Cfg.BilinfoSecret
	if secret == "" {
		return false
	}
	given := r.URL.Query().Get("secret")
	return subtle.ConstantTimeCompare([]byte(given), []byte(secret)) == 1
}

// DashboardHandler dispatches on the action query parameter:
// list, check, sync_one, sync_all, sweep.
func (h *BilinfoHandler) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		logger.L.Warn("Bilinfo dashboard request rejected", "remoteAddr", r.RemoteAddr)
		utils.SendJSONError(w, "Invalid or missing secret", http.StatusUnauthorized)
		return
	}

	action := r.URL.Query().Get("action")
	vin := r.URL.Query().Get("vin")

	switch action {
	case "list":
		var rows []models.BilinfoListingRow
		hit := false
		if r.URL.Query().Get("refresh") != "true" {
			if cached, found := h.listCache.Get(listingCacheKey); found {
				rows = cached.([]models.BilinfoListingRow)
				hit = true
			}
		}
		if !hit {
			fetched, err := h.listings.List(r.Context())
			if err != nil {
				utils.SendJSONError(w, "Failed to fetch listings", http.StatusBadGateway)
				return
			}
			h.listCache.SetDefault(listingCacheKey, fetched)
			rows = fetched
		}
		if etag, err := utils.GenerateETag(rows); err == nil {
			quoted := `"` + etag + `"`
			w.Header().Set("ETag", quoted)
			if r.Header.Get("If-None-Match") == quoted {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
		utils.SendJSON(w, http.StatusOK, rows)

	case "check":
		if vin == "" {
			utils.SendJSONError(w, "vin parameter is required for check", http.StatusBadRequest)
			return
		}
		result, err := h.listings.Check(r.Context(), vin)
		if err != nil {
			utils.SendJSONError(w, "Consistency check failed", http.StatusBadGateway)
			return
		}
		utils.SendJSON(w, http.StatusOK, result)

	case "sync_one":
		if vin == "" {
			utils.SendJSONError(w, "vin parameter is required for sync_one", http.StatusBadRequest)
			return
		}
		result, err := h.listings.SyncOne(r.Context(), vin)
		if err != nil {
			utils.SendJSONError(w, "Sync failed", http.StatusBadGateway)
			return
		}
		utils.SendJSON(w, http.StatusOK, result)

	case "sync_all":
		result, err := h.listings.SyncAll(r.Context())
		if err != nil {
			utils.SendJSONError(w, "Sync failed", http.StatusBadGateway)
			return
		}
		utils.SendJSON(w, http.StatusOK, result)

	case "sweep":
		if r.URL.Query().Get("run") == "true" {
			result, err := h.consistency.RunSweep(r.Context())
			if err != nil {
				utils.SendJSONError(w, "Sweep failed", http.StatusBadGateway)
				return
			}
			utils.SendJSON(w, http.StatusOK, result)
			return
		}
		result, found := h.consistency.Latest()
		if !found {
			utils.SendJSONError(w, "No sweep result available yet", http.StatusNotFound)
			return
		}
		utils.SendJSON(w, http.StatusOK, result)

	default:
		utils.SendJSONError(w, "Unknown action", http.StatusBadRequest)
	}
}
