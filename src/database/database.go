package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carpal-dk/backoffice/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

var ErrJobNotFound = errors.New("job not found")

// InitDB opens the sqlite database and runs migrations.
func InitDB(dataSourceName string) error {
	var err error
	DB, err = sql.Open("sqlite", dataSourceName)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}

	if err = DB.Ping(); err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}

	if _, err = DB.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return fmt.Errorf("error enabling foreign keys: %w", err)
	}

	if err = createTables(); err != nil {
		return fmt.Errorf("error creating tables: %w", err)
	}

	logger.L.Info("Database initialized successfully", "path", dataSourceName)
	return nil
}

func createTables() error {
	jobsTable := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'queued',
		error TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`

	sendsTable := `
	CREATE TABLE IF NOT EXISTS contract_sends (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL,
		record_id TEXT NOT NULL,
		contract_type TEXT NOT NULL,
		attachment_count INTEGER NOT NULL DEFAULT 0,
		extras_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (job_id) REFERENCES jobs(id)
	);`

	for _, stmt := range []string{jobsTable, sendsTable} {
		if _, err := DB.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertJob queues a new job row.
func InsertJob(id, kind, payload string) error {
	_, err := DB.Exec(
		"INSERT INTO jobs (id, kind, payload, status) VALUES (?, ?, ?, 'queued')",
		id, kind, payload,
	)
	if err != nil {
		return fmt.Errorf("error inserting job %s: %w", id, err)
	}
	return nil
}

// UpdateJobStatus moves a job to a new status, recording the error text for
// failed jobs.
func UpdateJobStatus(id, status, errText string) error {
	_, err := DB.Exec(
		"UPDATE jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?",
		status, errText, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("error updating job %s: %w", id, err)
	}
	return nil
}

// InsertContractSend records the audit row for a queued submission.
func InsertContractSend(jobID, recordID, contractType string, attachmentCount, extrasCount int) error {
	_, err := DB.Exec(
		"INSERT INTO contract_sends (job_id, record_id, contract_type, attachment_count, extras_count) VALUES (?, ?, ?, ?, ?)",
		jobID, recordID, contractType, attachmentCount, extrasCount,
	)
	if err != nil {
		return fmt.Errorf("error inserting contract send audit for job %s: %w", jobID, err)
	}
	return nil
}

// JobRow is the queue state exposed for one job.
type JobRow struct {
	ID     string `json:"job_id"`
	Kind   string `json:"kind"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// JobStatus reads one job's current queue state.
func JobStatus(id string) (JobRow, error) {
	row := JobRow{ID: id}
	err := DB.QueryRow(
		"SELECT kind, status, COALESCE(error, '') FROM jobs WHERE id = ?", id,
	).Scan(&row.Kind, &row.Status, &row.Error)
	if err == sql.ErrNoRows {
		return JobRow{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err != nil {
		return JobRow{}, fmt.Errorf("error reading job %s: %w", id, err)
	}
	return row, nil
}
