package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"pairing_parser/internal/roster"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// ClickHouseDB wraps a ClickHouse connection holding the flattened leg
// rows used for route and utilization analytics.
type ClickHouseDB struct {
	conn driver.Conn
}

// Conn returns the underlying ClickHouse connection for direct queries.
func (d *ClickHouseDB) Conn() driver.Conn {
	return d.conn
}

// OpenClickHouse opens a connection to ClickHouse.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Close closes the ClickHouse connection.
func (d *ClickHouseDB) Close() error {
	return d.conn.Close()
}

// CreateSchema creates the leg analytics table.
func (d *ClickHouseDB) CreateSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS pairing_legs (
		bid_month_year      LowCardinality(String),
		fleet               LowCardinality(String),
		base                LowCardinality(String),
		pairing_id          String,
		pairing_category    LowCardinality(String),
		duty_sequence       UInt16,
		leg_sequence        UInt16,
		equipment           LowCardinality(String),
		deadhead            UInt8,
		flight_number       String,
		departure_station   LowCardinality(String),
		arrival_station     LowCardinality(String),
		departure_minutes   Int32,
		arrival_minutes     Int32,
		ground_minutes      Int32,
		flight_minutes      Int32,
		duty_minutes        Int32,
		dh_credit_minutes   Int32,
		layover_station     LowCardinality(String),
		loaded_at           DateTime64(3) DEFAULT now64(3)
	)
	ENGINE = MergeTree()
	PARTITION BY bid_month_year
	ORDER BY (fleet, base, pairing_id, duty_sequence, leg_sequence)
	SETTINGS index_granularity = 8192`

	if err := d.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// InsertLegs flattens a parsed document into leg rows and batch-inserts
// them. Missing clock values become -1 rather than NULL so the order key
// stays non-nullable.
func (d *ClickHouseDB) InsertLegs(ctx context.Context, doc *roster.Document) (int, error) {
	batch, err := d.conn.PrepareBatch(ctx, `
		INSERT INTO pairing_legs (bid_month_year, fleet, base, pairing_id, pairing_category, duty_sequence, leg_sequence, equipment, deadhead, flight_number, departure_station, arrival_station, departure_minutes, arrival_minutes, ground_minutes, flight_minutes, duty_minutes, dh_credit_minutes, layover_station)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare batch: %w", err)
	}

	n := 0
	for bi := range doc.Data {
		bp := &doc.Data[bi]
		for pi := range bp.Pairings {
			p := &bp.Pairings[pi]
			for di := range p.DutyPeriods {
				dp := &p.DutyPeriods[di]
				for li := range dp.Legs {
					leg := &dp.Legs[li]
					var deadhead uint8
					if leg.Deadhead {
						deadhead = 1
					}
					err := batch.Append(
						bp.BidMonthYear, bp.Fleet, bp.Base,
						p.ID, p.PairingCategory,
						uint16(di+1), uint16(li+1),
						strOrEmpty(leg.Equipment), deadhead,
						leg.FlightNumber, leg.DepartureStation, leg.ArrivalStation,
						clockOrNeg(leg.DepartureTimeMinutes), clockOrNeg(leg.ArrivalTimeMinutes),
						int32(leg.GroundTimeMinutes), int32(leg.FlightTimeMinutes),
						int32(leg.DutyTimeMinutes), int32(leg.DeadheadCreditMinutes),
						strOrEmpty(dp.LayoverStation),
					)
					if err != nil {
						return n, fmt.Errorf("append leg: %w", err)
					}
					n++
				}
			}
		}
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("send batch: %w", err)
	}
	return n, nil
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func clockOrNeg(m *int) int32 {
	if m == nil {
		return -1
	}
	return int32(*m)
}

// RouteCount is leg volume for one station pair.
type RouteCount struct {
	DepartureStation string
	ArrivalStation   string
	Legs             uint64
	FlightMinutes    uint64
}

// TopRoutes returns the busiest station pairs by leg count.
func (d *ClickHouseDB) TopRoutes(ctx context.Context, limit int) ([]RouteCount, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.conn.Query(ctx, `
		SELECT departure_station, arrival_station, count(), sum(flight_minutes)
		FROM pairing_legs
		WHERE deadhead = 0
		GROUP BY departure_station, arrival_station
		ORDER BY count() DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query routes: %w", err)
	}
	defer rows.Close()

	var out []RouteCount
	for rows.Next() {
		var r RouteCount
		if err := rows.Scan(&r.DepartureStation, &r.ArrivalStation, &r.Legs, &r.FlightMinutes); err != nil {
			return nil, fmt.Errorf("scan route: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate routes: %w", err)
	}
	return out, nil
}

// CountLegs returns the number of stored leg rows, optionally filtered
// by fleet.
func (d *ClickHouseDB) CountLegs(ctx context.Context, fleet string) (uint64, error) {
	var count uint64
	var err error
	if fleet != "" {
		row := d.conn.QueryRow(ctx, "SELECT count() FROM pairing_legs WHERE fleet = ?", fleet)
		err = row.Scan(&count)
	} else {
		row := d.conn.QueryRow(ctx, "SELECT count() FROM pairing_legs")
		err = row.Scan(&count)
	}
	return count, err
}
