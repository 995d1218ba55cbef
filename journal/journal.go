// Package journal keeps a sqlite record of every job of every batch run.
package journal

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	gridder "github.com/flywave/go-gridder"
)

// schema.sql creates the grid_jobs table, one row per (run, job).
//
//go:embed schema.sql
var schemaSQL string

var pragmas = []string{
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
}

type Journal struct {
	*sql.DB
	Logger logrus.FieldLogger
}

// Entry is the latest recorded state of one job.
type Entry struct {
	RunID     string
	JobID     int
	Input     string
	Method    string
	CellSize  float64
	Status    string
	Output    string
	Error     string
	Samples   int
	Undefined int
	Elapsed   time.Duration
	UpdatedAt time.Time
}

func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" journals on one database.
	db.SetMaxOpenConns(1)

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %v", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal schema: %v", err)
	}
	return &Journal{DB: db}, nil
}

// Record stores the current state of job under runID, replacing any
// earlier state of the same job.
func (j *Journal) Record(runID string, job *gridder.Job) error {
	query := `
		INSERT INTO grid_jobs (run_id, job_id, input, method, cell_size, status,
			output, error, samples, undefined_nodes, elapsed_ms, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, job_id) DO UPDATE SET
			status = excluded.status,
			output = excluded.output,
			error = excluded.error,
			samples = excluded.samples,
			undefined_nodes = excluded.undefined_nodes,
			elapsed_ms = excluded.elapsed_ms,
			updated_at = excluded.updated_at
	`

	var output, msg string
	var samples, undefined int
	var elapsed time.Duration
	if job.Result != nil {
		output = job.Result.Output
		samples = job.Result.Samples
		undefined = job.Result.Undefined
		elapsed = job.Result.Elapsed
	}
	if job.Err != nil {
		msg = job.Err.Error()
	}

	_, err := j.Exec(query, runID, job.ID, job.Input, string(job.Config.Method), job.Config.CellSize,
		job.Status.String(), output, msg, samples, undefined, elapsed.Milliseconds(), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to record job %d: %v", job.ID, err)
	}
	return nil
}

// JobChanged lets the journal observe a gridder.Batch.
func (j *Journal) JobChanged(runID string, job *gridder.Job) {
	if err := j.Record(runID, job); err != nil {
		log := j.Logger
		if log == nil {
			log = logrus.StandardLogger()
		}
		log.WithError(err).WithField("run", runID).Warn("journal write failed")
	}
}

// Jobs returns the recorded jobs of a run ordered by job id.
func (j *Journal) Jobs(runID string) ([]Entry, error) {
	rows, err := j.Query(`
		SELECT run_id, job_id, input, method, cell_size, status, output, error,
			samples, undefined_nodes, elapsed_ms, updated_at
		FROM grid_jobs WHERE run_id = ? ORDER BY job_id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ret []Entry
	for rows.Next() {
		var e Entry
		var elapsed, updated int64
		if err := rows.Scan(&e.RunID, &e.JobID, &e.Input, &e.Method, &e.CellSize, &e.Status,
			&e.Output, &e.Error, &e.Samples, &e.Undefined, &elapsed, &updated); err != nil {
			return nil, err
		}
		e.Elapsed = time.Duration(elapsed) * time.Millisecond
		e.UpdatedAt = time.Unix(0, updated)
		ret = append(ret, e)
	}
	return ret, rows.Err()
}

// Runs lists run ids, most recently updated first.
func (j *Journal) Runs() ([]string, error) {
	rows, err := j.Query(`
		SELECT run_id FROM grid_jobs GROUP BY run_id ORDER BY MAX(updated_at) DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ret []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ret = append(ret, id)
	}
	return ret, rows.Err()
}
