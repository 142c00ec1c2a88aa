// Package journal keeps a local SQLite record of import runs. The import
// engine itself is stateless; the journal is the external progress tracking
// an operator needs to see what a partially failed or interrupted run already
// applied remotely. It is optional and only written from the CLI layer.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/regimport/internal/importer"
)

//go:embed schema.sql
var schemaSQL string

// Journal is an open run journal.
type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal database at the given path. The schema
// is applied idempotently; WAL mode keeps the file readable while a run is
// writing to it.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to journal: %w", err)
	}

	// Single writer; the importer is strictly sequential anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying journal schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the journal database.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// BeginRun records the start of a run.
func (j *Journal) BeginRun(ctx context.Context, runID string, contestID int64, startedAt time.Time) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, contest_id, started_at) VALUES (?, ?, ?)`,
		runID, contestID, startedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording run start: %w", err)
	}
	return nil
}

// FinishRun records the terminal result of a run: summary counters on the
// run row plus one row per team and per contestant outcome.
func (j *Journal) FinishRun(ctx context.Context, runID string, result *importer.Result, finishedAt time.Time) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("recording run result: %w", err)
	}
	defer tx.Rollback()

	cancelled := 0
	if result.Cancelled {
		cancelled = 1
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE runs
		 SET finished_at = ?, cancelled = ?,
		     teams_created = ?, teams_skipped = ?,
		     members_added = ?, members_skipped = ?
		 WHERE id = ?`,
		finishedAt.UTC().Format(time.RFC3339), cancelled,
		result.TeamsCreated, result.TeamsSkipped,
		result.MembersAdded, result.MembersSkipped,
		runID)
	if err != nil {
		return fmt.Errorf("recording run result: %w", err)
	}

	for _, team := range result.Teams {
		retried := 0
		if team.Retried {
			retried = 1
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO team_outcomes (run_id, name, remote_id, status, retried)
			 VALUES (?, ?, ?, ?, ?)`,
			runID, team.Name, team.RemoteID, string(team.Status), retried)
		if err != nil {
			return fmt.Errorf("recording team %q: %w", team.Name, err)
		}
		for _, member := range team.Members {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO member_outcomes (run_id, team_name, first_name, last_name, email, status)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				runID, team.Name, member.First, member.Last, member.Email, string(member.Status))
			if err != nil {
				return fmt.Errorf("recording member %q: %w", member.Email, err)
			}
		}
	}

	return tx.Commit()
}

// RunSummary is one journalled run.
type RunSummary struct {
	ID             string
	ContestID      int64
	Cancelled      bool
	TeamsCreated   int
	TeamsSkipped   int
	MembersAdded   int
	MembersSkipped int
}

// Runs lists journalled runs, most recent first.
func (j *Journal) Runs(ctx context.Context) ([]RunSummary, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, contest_id, cancelled,
		        teams_created, teams_skipped, members_added, members_skipped
		 FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var cancelled int
		if err := rows.Scan(&r.ID, &r.ContestID, &cancelled,
			&r.TeamsCreated, &r.TeamsSkipped, &r.MembersAdded, &r.MembersSkipped); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Cancelled = cancelled != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// TeamOutcomes lists the journalled team outcomes of one run, in import order.
func (j *Journal) TeamOutcomes(ctx context.Context, runID string) ([]importer.TeamOutcome, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT name, remote_id, status, retried FROM team_outcomes
		 WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing team outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []importer.TeamOutcome
	for rows.Next() {
		var o importer.TeamOutcome
		var status string
		var retried int
		if err := rows.Scan(&o.Name, &o.RemoteID, &status, &retried); err != nil {
			return nil, fmt.Errorf("scanning team outcome: %w", err)
		}
		o.Status = importer.TeamStatus(status)
		o.Retried = retried != 0
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}
