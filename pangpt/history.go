package pangpt

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// EpochRecord is one row of the metrics history: the reduced global
// metrics of a single phase of a single epoch.
type EpochRecord struct {
	Epoch      int
	Phase      string
	Loss       float64
	Perplexity float64
	Accuracy   float64
	Precision  float64
	Recall     float64
	F1         float64
	Kappa      float64
	LR         float64
}

// History persists per-epoch metrics to a SQLite file. Only the
// coordinating worker writes history; everyone else carries a nil
// *History, on which Record and Close are no-ops.
type History struct {
	db *sql.DB
}

// OpenHistory opens (or creates) the metrics history database at path
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database %q: %w", path, err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS epoch_metrics(
			ts         TEXT NOT NULL,
			epoch      INTEGER NOT NULL,
			phase      TEXT NOT NULL,
			loss       REAL,
			perplexity REAL,
			accuracy   REAL,
			precision  REAL,
			recall     REAL,
			f1         REAL,
			kappa      REAL,
			lr         REAL
		)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return &History{db: db}, nil
}

// Record appends one epoch record
func (h *History) Record(rec EpochRecord) error {
	if h == nil {
		return nil
	}
	_, err := h.db.Exec(
		`INSERT INTO epoch_metrics(ts, epoch, phase, loss, perplexity, accuracy, precision, recall, f1, kappa, lr)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		time.Now().UTC().Format(time.RFC3339),
		rec.Epoch, rec.Phase, rec.Loss, rec.Perplexity, rec.Accuracy,
		rec.Precision, rec.Recall, rec.F1, rec.Kappa, rec.LR,
	)
	if err != nil {
		return fmt.Errorf("failed to record epoch metrics: %w", err)
	}
	return nil
}

// Close releases the underlying database handle
func (h *History) Close() error {
	if h == nil {
		return nil
	}
	return h.db.Close()
}
