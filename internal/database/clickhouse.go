// Package database stores the node's telemetry history in ClickHouse
package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"iot-monitor/internal/models"
)

// ErrUnknownTag is returned for telemetry tags without a table
var ErrUnknownTag = errors.New("no table for telemetry tag")

// Execer runs a statement; clickhouse driver.Conn satisfies it
type Execer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

// Config holds ClickHouse connection settings
type Config struct {
	Addr     string
	Database string
	Username string
	Password string
}

// ClickHouseDB is the history sink
type ClickHouseDB struct {
	conn     Execer
	deviceID string
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(ctx context.Context, cfg Config, deviceID string) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	log.Printf("ClickHouse: Connected at %s", cfg.Addr)

	db := NewWithConn(conn, deviceID)
	if err := db.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

// NewWithConn wraps an existing connection
func NewWithConn(conn Execer, deviceID string) *ClickHouseDB {
	return &ClickHouseDB{conn: conn, deviceID: deviceID}
}

// InitSchema creates the necessary tables if they don't exist
func (db *ClickHouseDB) InitSchema(ctx context.Context) error {
	for _, tableSQL := range AllTables() {
		if err := db.conn.Exec(ctx, tableSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	log.Println("ClickHouse: Schema initialized")
	return nil
}

// Close closes the underlying connection
func (db *ClickHouseDB) Close() error {
	if c, ok := db.conn.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// Name implements telemetry.Sink
func (db *ClickHouseDB) Name() string {
	return "clickhouse"
}

// Send implements telemetry.Sink by inserting one row
func (db *ClickHouseDB) Send(ctx context.Context, msg models.TelemetryMessage) error {
	query, args, err := db.row(msg)
	if err != nil {
		return err
	}
	if err := db.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert %s row: %w", msg.Tag, err)
	}
	return nil
}

func (db *ClickHouseDB) row(msg models.TelemetryMessage) (string, []any, error) {
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	switch msg.Tag {
	case models.TagSensor:
		return insertSensorReadingSQL, []any{
			ts,
			db.deviceID,
			float32Field(msg.Fields, "temp"),
			float32Field(msg.Fields, "humi"),
		}, nil
	case models.TagTinyML:
		return insertTinyMLResultSQL, []any{
			ts,
			db.deviceID,
			float32Field(msg.Fields, "score"),
			msg.Fields["pred"] == models.AnomalyLabel(true),
			msg.Fields["gt"] == models.AnomalyLabel(true),
			float32Field(msg.Fields, "acc"),
		}, nil
	default:
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownTag, msg.Tag)
	}
}

func float32Field(fields map[string]any, key string) float32 {
	switch v := fields[key].(type) {
	case float32:
		return v
	case float64:
		return float32(v)
	case int:
		return float32(v)
	default:
		return 0
	}
}
