package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pairing_parser/internal/roster"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// PostgresDB wraps a PostgreSQL connection pool holding the relational
// roster tables.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresDB, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Close closes the PostgreSQL connection pool.
func (d *PostgresDB) Close() {
	d.pool.Close()
}

// CreateSchema creates the roster tables.
func (d *PostgresDB) CreateSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS bid_periods (
		id              SERIAL PRIMARY KEY,
		bid_month_year  TEXT NOT NULL,
		fleet           TEXT NOT NULL,
		base            TEXT NOT NULL,
		effective_date  DATE,
		through_date    DATE,
		ftm_minutes     INTEGER NOT NULL DEFAULT 0,
		ttl_minutes     INTEGER NOT NULL DEFAULT 0,
		loaded_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE(bid_month_year, fleet, base)
	);

	CREATE TABLE IF NOT EXISTS pairings (
		id                  SERIAL PRIMARY KEY,
		bid_period_id       INTEGER NOT NULL REFERENCES bid_periods(id) ON DELETE CASCADE,
		pairing_id          TEXT NOT NULL,
		pairing_category    TEXT,
		is_first_officer    BOOLEAN NOT NULL DEFAULT FALSE,
		effective_date      DATE,
		through_date        DATE,
		date_instances      TEXT,
		days                INTEGER NOT NULL DEFAULT 0,
		credit_minutes      INTEGER NOT NULL DEFAULT 0,
		flight_time_minutes INTEGER NOT NULL DEFAULT 0,
		tafb_minutes        INTEGER NOT NULL DEFAULT 0,
		intl_minutes        INTEGER NOT NULL DEFAULT 0,
		meal_money          TEXT,
		UNIQUE(bid_period_id, pairing_id)
	);

	CREATE INDEX IF NOT EXISTS idx_pairings_pairing_id ON pairings(pairing_id);

	CREATE TABLE IF NOT EXISTS duty_periods (
		id              SERIAL PRIMARY KEY,
		pairing_row_id  INTEGER NOT NULL REFERENCES pairings(id) ON DELETE CASCADE,
		sequence        INTEGER NOT NULL,
		report_minutes  INTEGER,
		release_minutes INTEGER,
		origin_station  TEXT,
		layover_station TEXT,
		hotel           TEXT,
		hotel_phone     TEXT,
		ground_transport TEXT,
		UNIQUE(pairing_row_id, sequence)
	);

	CREATE INDEX IF NOT EXISTS idx_duty_periods_layover ON duty_periods(layover_station);

	CREATE TABLE IF NOT EXISTS legs (
		id                 SERIAL PRIMARY KEY,
		duty_period_id     INTEGER NOT NULL REFERENCES duty_periods(id) ON DELETE CASCADE,
		sequence           INTEGER NOT NULL,
		equipment          TEXT,
		deadhead           BOOLEAN NOT NULL DEFAULT FALSE,
		flight_number      TEXT NOT NULL,
		departure_station  TEXT NOT NULL,
		arrival_station    TEXT NOT NULL,
		departure_minutes  INTEGER,
		arrival_minutes    INTEGER,
		ground_minutes     INTEGER NOT NULL DEFAULT 0,
		meal_code          TEXT,
		flight_minutes     INTEGER NOT NULL DEFAULT 0,
		duty_minutes       INTEGER NOT NULL DEFAULT 0,
		dh_credit_minutes  INTEGER NOT NULL DEFAULT 0,
		UNIQUE(duty_period_id, sequence)
	);

	CREATE INDEX IF NOT EXISTS idx_legs_route ON legs(departure_station, arrival_station);
	CREATE INDEX IF NOT EXISTS idx_legs_flight ON legs(flight_number);
	`

	if _, err := d.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// ImportCounts reports what an import wrote.
type ImportCounts struct {
	BidPeriods  int
	Pairings    int
	DutyPeriods int
	Legs        int
}

// ImportDocument loads a parsed document into the roster tables inside a
// single transaction. A bid period that already exists (same month,
// fleet, and base) is replaced wholesale: its pairing tree is deleted
// and reinserted, so re-running a load is idempotent.
func (d *PostgresDB) ImportDocument(ctx context.Context, doc *roster.Document) (ImportCounts, error) {
	var counts ImportCounts

	tx, err := d.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return counts, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i := range doc.Data {
		if err := d.importBidPeriod(ctx, tx, &doc.Data[i], &counts); err != nil {
			return counts, fmt.Errorf("bid period %q: %w", doc.Data[i].BidMonthYear, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return counts, fmt.Errorf("commit: %w", err)
	}
	return counts, nil
}

func (d *PostgresDB) importBidPeriod(ctx context.Context, tx pgx.Tx, bp *roster.BidPeriod, counts *ImportCounts) error {
	var bpID int
	err := tx.QueryRow(ctx, `
		INSERT INTO bid_periods (bid_month_year, fleet, base, effective_date, through_date, ftm_minutes, ttl_minutes, loaded_at)
		VALUES ($1, $2, $3, NULLIF($4, '')::date, NULLIF($5, '')::date, $6, $7, NOW())
		ON CONFLICT (bid_month_year, fleet, base) DO UPDATE SET
			effective_date = EXCLUDED.effective_date,
			through_date = EXCLUDED.through_date,
			ftm_minutes = EXCLUDED.ftm_minutes,
			ttl_minutes = EXCLUDED.ttl_minutes,
			loaded_at = NOW()
		RETURNING id
	`, bp.BidMonthYear, bp.Fleet, bp.Base, bp.EffectiveDateISO, bp.ThroughDateISO,
		bp.FTMMinutes, bp.TTLMinutes).Scan(&bpID)
	if err != nil {
		return fmt.Errorf("upsert bid period: %w", err)
	}
	counts.BidPeriods++

	// Replace, don't merge: stale pairings from a previous load of the
	// same period must not survive.
	if _, err := tx.Exec(ctx, `DELETE FROM pairings WHERE bid_period_id = $1`, bpID); err != nil {
		return fmt.Errorf("clear pairings: %w", err)
	}

	for pi := range bp.Pairings {
		if err := d.importPairing(ctx, tx, bpID, &bp.Pairings[pi], counts); err != nil {
			return fmt.Errorf("pairing %q: %w", bp.Pairings[pi].ID, err)
		}
	}
	return nil
}

func (d *PostgresDB) importPairing(ctx context.Context, tx pgx.Tx, bpID int, p *roster.Pairing, counts *ImportCounts) error {
	var rowID int
	err := tx.QueryRow(ctx, `
		INSERT INTO pairings (bid_period_id, pairing_id, pairing_category, is_first_officer, effective_date, through_date, date_instances, days, credit_minutes, flight_time_minutes, tafb_minutes, intl_minutes, meal_money)
		VALUES ($1, $2, $3, $4, NULLIF($5, '')::date, NULLIF($6, '')::date, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`, bpID, p.ID, p.PairingCategory, p.IsFirstOfficer, p.EffectiveDateISO, p.ThroughDateISO,
		strings.Join(p.DateInstances, ","), p.DaysCount, p.CreditMinutes, p.FlightTimeMinutes,
		p.TimeAwayFromBaseMinutes, p.InternationalFlightTimeMinutes, p.MealMoney).Scan(&rowID)
	if err != nil {
		return fmt.Errorf("insert pairing: %w", err)
	}
	counts.Pairings++

	for di := range p.DutyPeriods {
		dp := &p.DutyPeriods[di]
		var dpID int
		err := tx.QueryRow(ctx, `
			INSERT INTO duty_periods (pairing_row_id, sequence, report_minutes, release_minutes, origin_station, layover_station, hotel, hotel_phone, ground_transport)
			VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''))
			RETURNING id
		`, rowID, di+1, dp.ReportTimeMinutes, dp.ReleaseTimeMinutes, dp.OriginStation,
			dp.LayoverStation, dp.Hotel, dp.HotelPhone, dp.GroundTransport).Scan(&dpID)
		if err != nil {
			return fmt.Errorf("insert duty period %d: %w", di+1, err)
		}
		counts.DutyPeriods++

		for li := range dp.Legs {
			leg := &dp.Legs[li]
			_, err := tx.Exec(ctx, `
				INSERT INTO legs (duty_period_id, sequence, equipment, deadhead, flight_number, departure_station, arrival_station, departure_minutes, arrival_minutes, ground_minutes, meal_code, flight_minutes, duty_minutes, dh_credit_minutes)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12, $13, $14)
			`, dpID, li+1, leg.Equipment, leg.Deadhead, leg.FlightNumber,
				leg.DepartureStation, leg.ArrivalStation, leg.DepartureTimeMinutes, leg.ArrivalTimeMinutes,
				leg.GroundTimeMinutes, leg.MealCode, leg.FlightTimeMinutes, leg.DutyTimeMinutes,
				leg.DeadheadCreditMinutes)
			if err != nil {
				return fmt.Errorf("insert leg %d: %w", li+1, err)
			}
			counts.Legs++
		}
	}
	return nil
}

// BidPeriodRow is a stored bid period summary.
type BidPeriodRow struct {
	ID           int
	BidMonthYear string
	Fleet        string
	Base         string
	FTMMinutes   int
	TTLMinutes   int
	PairingCount int
	LoadedAt     time.Time
}

// ListBidPeriods returns all stored bid periods with their pairing counts.
func (d *PostgresDB) ListBidPeriods(ctx context.Context) ([]BidPeriodRow, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT bp.id, bp.bid_month_year, bp.fleet, bp.base, bp.ftm_minutes, bp.ttl_minutes, COUNT(p.id), bp.loaded_at
		FROM bid_periods bp
		LEFT JOIN pairings p ON p.bid_period_id = bp.id
		GROUP BY bp.id
		ORDER BY bp.loaded_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BidPeriodRow
	for rows.Next() {
		var r BidPeriodRow
		if err := rows.Scan(&r.ID, &r.BidMonthYear, &r.Fleet, &r.Base, &r.FTMMinutes, &r.TTLMinutes, &r.PairingCount, &r.LoadedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PairingFlightMinutes sums flight time across all pairings of a bid
// period, for reconciliation against the stored fleet total.
func (d *PostgresDB) PairingFlightMinutes(ctx context.Context, bidPeriodID int) (int, error) {
	var total int
	err := d.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(flight_time_minutes), 0) FROM pairings WHERE bid_period_id = $1
	`, bidPeriodID).Scan(&total)
	return total, err
}

// Pool returns the underlying connection pool for advanced operations.
func (d *PostgresDB) Pool() *pgxpool.Pool {
	return d.pool
}
