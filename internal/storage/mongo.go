package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pairing_parser/internal/roster"
)

// MongoConfig holds MongoDB export settings.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// MongoExporter writes parsed documents to MongoDB for downstream
// consumers that want the full nested tree rather than relational rows.
type MongoExporter struct {
	client *mongo.Client
	db     *mongo.Database
}

// OpenMongo connects and pings the server.
func OpenMongo(ctx context.Context, cfg MongoConfig) (*MongoExporter, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &MongoExporter{client: client, db: client.Database(cfg.Database)}, nil
}

// Close disconnects from the server.
func (m *MongoExporter) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// EnsureIndexes creates the export collections' indexes. Safe to call on
// every export.
func (m *MongoExporter) EnsureIndexes(ctx context.Context) error {
	_, err := m.db.Collection("bid_periods").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "bid_month_year", Value: 1}, {Key: "fleet", Value: 1}, {Key: "base", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("bid_periods index: %w", err)
	}

	_, err = m.db.Collection("pairings").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "bid_month_year", Value: 1}, {Key: "fleet", Value: 1}, {Key: "base", Value: 1}, {Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "pairing_category", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("pairings indexes: %w", err)
	}
	return nil
}

// ExportCounts reports what an export wrote.
type ExportCounts struct {
	BidPeriods int
	Pairings   int
}

// ExportDocument upserts each bid period (with its pairings stripped to
// a summary) into bid_periods, and each pairing with its full duty tree
// into pairings, keyed by period plus pairing ID. Re-export of the same
// period overwrites cleanly.
func (m *MongoExporter) ExportDocument(ctx context.Context, doc *roster.Document) (ExportCounts, error) {
	var counts ExportCounts

	if err := m.EnsureIndexes(ctx); err != nil {
		return counts, err
	}

	bidPeriods := m.db.Collection("bid_periods")
	pairings := m.db.Collection("pairings")
	replace := options.Replace().SetUpsert(true)

	for bi := range doc.Data {
		bp := &doc.Data[bi]
		periodKey := bson.M{
			"bid_month_year": bp.BidMonthYear,
			"fleet":          bp.Fleet,
			"base":           bp.Base,
		}

		summary := bson.M{
			"bid_month_year":     bp.BidMonthYear,
			"fleet":              bp.Fleet,
			"base":               bp.Base,
			"effective_date_iso": bp.EffectiveDateISO,
			"through_date_iso":   bp.ThroughDateISO,
			"ftm_minutes":        bp.FTMMinutes,
			"ttl_minutes":        bp.TTLMinutes,
			"pairing_count":      len(bp.Pairings),
			"exported_at":        time.Now().UTC(),
		}
		if _, err := bidPeriods.ReplaceOne(ctx, periodKey, summary, replace); err != nil {
			return counts, fmt.Errorf("export bid period %q: %w", bp.BidMonthYear, err)
		}
		counts.BidPeriods++

		// Drop stale pairings of this period before inserting the new
		// set, so deleted pairings don't linger across exports.
		if _, err := pairings.DeleteMany(ctx, periodKey); err != nil {
			return counts, fmt.Errorf("clear pairings of %q: %w", bp.BidMonthYear, err)
		}

		for pi := range bp.Pairings {
			p := &bp.Pairings[pi]
			pairingDoc := bson.M{
				"bid_month_year": bp.BidMonthYear,
				"fleet":          bp.Fleet,
				"base":           bp.Base,
				"pairing":        p,
				"id":             p.ID,
			}
			if _, err := pairings.InsertOne(ctx, pairingDoc); err != nil {
				return counts, fmt.Errorf("export pairing %q: %w", p.ID, err)
			}
			counts.Pairings++
		}
	}
	return counts, nil
}
