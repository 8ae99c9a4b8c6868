package database

import (
	"errors"
	"testing"

	"github.com/carpal-dk/backoffice/src/logger"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	logger.InitLogger("error")
	if err := InitDB(":memory:"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		DB.Close()
		DB = nil
	})
}

func TestJobLifecycle(t *testing.T) {
	setupTestDB(t)

	if err := InsertJob("job1", "contract-send", `{"record_id":"deal1"}`); err != nil {
		t.Fatal(err)
	}

	row, err := JobStatus("job1")
	if err != nil {
		t.Fatal(err)
	}
	if row.Status != "queued" || row.Kind != "contract-send" || row.Error != "" {
		t.Errorf("fresh job = %+v", row)
	}

	if err := UpdateJobStatus("job1", "failed", "worker timed out"); err != nil {
		t.Fatal(err)
	}
	row, err = JobStatus("job1")
	if err != nil {
		t.Fatal(err)
	}
	if row.Status != "failed" || row.Error != "worker timed out" {
		t.Errorf("updated job = %+v", row)
	}
}

func TestJobStatusUnknownID(t *testing.T) {
	setupTestDB(t)

	if _, err := JobStatus("no-such-job"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}
}

func TestContractSendAudit(t *testing.T) {
	setupTestDB(t)

	if err := InsertJob("job1", "contract-send", "{}"); err != nil {
		t.Fatal(err)
	}
	if err := InsertContractSend("job1", "deal1", "Purchase agreement", 2, 1); err != nil {
		t.Fatal(err)
	}

	var count int
	if err := DB.QueryRow("SELECT COUNT(*) FROM contract_sends WHERE job_id = ?", "job1").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("audit rows = %d, want 1", count)
	}
}
