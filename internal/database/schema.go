package database

// SQL schemas for all ClickHouse tables

const (
	// SensorReadingsTableSQL creates the sensor_readings table
	SensorReadingsTableSQL = `
		CREATE TABLE IF NOT EXISTS sensor_readings (
			timestamp DateTime64(3),
			device_id String,
			temperature Float32,
			humidity Float32
		) ENGINE = MergeTree()
		ORDER BY (device_id, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`

	// TinyMLResultsTableSQL creates the tinyml_results table
	TinyMLResultsTableSQL = `
		CREATE TABLE IF NOT EXISTS tinyml_results (
			timestamp DateTime64(3),
			device_id String,
			score Float32,
			predicted Bool,
			ground_truth Bool,
			accuracy Float32
		) ENGINE = MergeTree()
		ORDER BY (device_id, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`
)

// AllTables returns all table creation SQL statements
func AllTables() []string {
	return []string{
		SensorReadingsTableSQL,
		TinyMLResultsTableSQL,
	}
}

const (
	insertSensorReadingSQL = `
		INSERT INTO sensor_readings (timestamp, device_id, temperature, humidity)
		VALUES (?, ?, ?, ?)
	`

	insertTinyMLResultSQL = `
		INSERT INTO tinyml_results (timestamp, device_id, score, predicted, ground_truth, accuracy)
		VALUES (?, ?, ?, ?, ?, ?)
	`
)
