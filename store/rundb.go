package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/mkowalik/gradnet/clock"
)

// RunDB records training runs and their per-epoch results in Postgres.
//
// Schema:
//
//	CREATE TABLE runs (id UUID PRIMARY KEY, name TEXT, started_at TIMESTAMPTZ);
//	CREATE TABLE epochs (run_id UUID REFERENCES runs(id), epoch INT,
//	    train_loss DOUBLE PRECISION, test_loss DOUBLE PRECISION,
//	    accuracy DOUBLE PRECISION, recorded_at TIMESTAMPTZ);
type RunDB struct {
	db    *sql.DB
	clock clock.Clock
}

func NewRunDB(connectionString string, clk clock.Clock) (*RunDB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}
	return &RunDB{db: db, clock: clk}, nil
}

// CreateRun registers a new training run and returns its id.
func (d *RunDB) CreateRun(name string) (string, error) {
	id := uuid.NewString()
	_, err := d.db.Exec(
		"INSERT INTO runs (id, name, started_at) VALUES ($1, $2, $3);",
		id, name, d.clock.Now())
	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// RecordEpoch appends one epoch's results to a run.
func (d *RunDB) RecordEpoch(runID string, epoch int, trainLoss, testLoss, accuracy float64) error {
	_, err := d.db.Exec(
		"INSERT INTO epochs (run_id, epoch, train_loss, test_loss, accuracy, recorded_at) VALUES ($1, $2, $3, $4, $5, $6);",
		runID, epoch, trainLoss, testLoss, accuracy, d.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to record epoch %d: %w", epoch, err)
	}
	return nil
}

// LastAccuracy returns the most recently recorded accuracy for a run, or
// false when the run has no epochs yet.
func (d *RunDB) LastAccuracy(runID string) (float64, bool, error) {
	var acc float64
	err := d.db.QueryRow(
		"SELECT accuracy FROM epochs WHERE run_id = $1 ORDER BY epoch DESC LIMIT 1;",
		runID).Scan(&acc)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return acc, true, nil
}

func (d *RunDB) Close() {
	d.db.Close()
}
