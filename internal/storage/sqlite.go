package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"pairing_parser/internal/roster"
)

// Run is one archived parse of a roster file.
type Run struct {
	ID             int64
	SourceFile     string
	ParsedAt       time.Time
	LineCount      int
	BidPeriods     int
	Pairings       int
	Errors         int
	Warnings       int
	AmbiguousLegs  int
	ProcessingSecs float64
	DocumentJSON   string
}

// Archive wraps a SQLite database holding past parse runs. Every parse
// gets recorded with its full document JSON so a run can be replayed or
// diffed without the original source file.
type Archive struct {
	db *sql.DB
}

// OpenArchive opens or creates the run archive at the given path.
func OpenArchive(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	// WAL so a reader can browse runs while a parse writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := createArchiveSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Archive{db: db}, nil
}

// Close closes the archive.
func (a *Archive) Close() error {
	return a.db.Close()
}

func createArchiveSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS parse_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_file TEXT NOT NULL,
		parsed_at TEXT NOT NULL,
		line_count INTEGER NOT NULL,
		bid_periods INTEGER NOT NULL,
		pairings INTEGER NOT NULL,
		errors INTEGER NOT NULL DEFAULT 0,
		warnings INTEGER NOT NULL DEFAULT 0,
		ambiguous_legs INTEGER NOT NULL DEFAULT 0,
		processing_secs REAL NOT NULL DEFAULT 0,
		document_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_parse_runs_source ON parse_runs(source_file);
	CREATE INDEX IF NOT EXISTS idx_parse_runs_parsed_at ON parse_runs(parsed_at);

	CREATE TABLE IF NOT EXISTS run_pairings (
		run_id INTEGER NOT NULL REFERENCES parse_runs(id) ON DELETE CASCADE,
		bid_month_year TEXT NOT NULL,
		fleet TEXT NOT NULL,
		base TEXT NOT NULL,
		pairing_id TEXT NOT NULL,
		pairing_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_run_pairings_id ON run_pairings(pairing_id);
	CREATE INDEX IF NOT EXISTS idx_run_pairings_period ON run_pairings(bid_month_year, fleet, base);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordRun archives a completed parse and returns the run ID.
func (a *Archive) RecordRun(doc *roster.Document, stats roster.Stats) (int64, error) {
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("marshal document: %w", err)
	}

	tx, err := a.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin run: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.Exec(`
		INSERT INTO parse_runs (source_file, parsed_at, line_count, bid_periods, pairings, errors, warnings, ambiguous_legs, processing_secs, document_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.Metadata.SourceFile, time.Now().UTC().Format(time.RFC3339),
		doc.Metadata.LineCount, doc.Metadata.TotalBidPeriods, doc.Metadata.TotalPairings,
		stats.Errors, stats.Warnings, stats.AmbiguousLegs,
		doc.Metadata.ProcessingTimeSeconds, string(docJSON))
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	// One row per pairing so the archive is searchable without decoding
	// whole documents.
	for i := range doc.Data {
		bp := &doc.Data[i]
		for j := range bp.Pairings {
			p := &bp.Pairings[j]
			pJSON, err := json.Marshal(p)
			if err != nil {
				return 0, fmt.Errorf("marshal pairing %s: %w", p.ID, err)
			}
			if _, err := tx.Exec(`
				INSERT INTO run_pairings (run_id, bid_month_year, fleet, base, pairing_id, pairing_json)
				VALUES (?, ?, ?, ?, ?, ?)
			`, runID, bp.BidMonthYear, bp.Fleet, bp.Base, p.ID, string(pJSON)); err != nil {
				return 0, fmt.Errorf("insert pairing %s: %w", p.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit run: %w", err)
	}
	return runID, nil
}

// FindPairings returns archived pairings matching the given pairing ID,
// newest runs first.
func (a *Archive) FindPairings(pairingID string, limit int) ([]roster.Pairing, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := a.db.Query(`
		SELECT pairing_json FROM run_pairings
		WHERE pairing_id = ? ORDER BY run_id DESC LIMIT ?
	`, pairingID, limit)
	if err != nil {
		return nil, fmt.Errorf("find pairings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pairings []roster.Pairing
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan pairing: %w", err)
		}
		var p roster.Pairing
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode pairing: %w", err)
		}
		pairings = append(pairings, p)
	}
	return pairings, rows.Err()
}

// ListRuns returns the most recent runs, newest first.
func (a *Archive) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := a.db.Query(`
		SELECT id, source_file, parsed_at, line_count, bid_periods, pairings, errors, warnings, ambiguous_legs, processing_secs
		FROM parse_runs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var r Run
		var ts string
		if err := rows.Scan(&r.ID, &r.SourceFile, &ts, &r.LineCount, &r.BidPeriods, &r.Pairings,
			&r.Errors, &r.Warnings, &r.AmbiguousLegs, &r.ProcessingSecs); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.ParsedAt, _ = time.Parse(time.RFC3339, ts)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun retrieves one run with its archived document JSON, or nil if
// the ID is unknown.
func (a *Archive) GetRun(id int64) (*Run, error) {
	var r Run
	var ts string
	err := a.db.QueryRow(`
		SELECT id, source_file, parsed_at, line_count, bid_periods, pairings, errors, warnings, ambiguous_legs, processing_secs, document_json
		FROM parse_runs WHERE id = ?
	`, id).Scan(&r.ID, &r.SourceFile, &ts, &r.LineCount, &r.BidPeriods, &r.Pairings,
		&r.Errors, &r.Warnings, &r.AmbiguousLegs, &r.ProcessingSecs, &r.DocumentJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	r.ParsedAt, _ = time.Parse(time.RFC3339, ts)
	return &r, nil
}

// Document decodes a run's archived document.
func (r *Run) Document() (*roster.Document, error) {
	var doc roster.Document
	if err := json.Unmarshal([]byte(r.DocumentJSON), &doc); err != nil {
		return nil, fmt.Errorf("decode archived document: %w", err)
	}
	return &doc, nil
}
