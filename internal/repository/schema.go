package repository

import (
	"database/sql"
	"fmt"
)

// 建表语句
// 与 CRUD 层共用同一套表；启动时幂等执行
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS devices (
		id SERIAL PRIMARY KEY,
		device_id TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL,
		type TEXT,
		location TEXT,
		status TEXT DEFAULT 'offline',
		last_seen TIMESTAMPTZ,
		created_at TIMESTAMPTZ DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS sensor_data (
		id SERIAL PRIMARY KEY,
		device_id TEXT NOT NULL,
		sensor_type TEXT NOT NULL,
		value DOUBLE PRECISION NOT NULL,
		unit TEXT,
		timestamp TIMESTAMPTZ DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sensor_data_device_type_ts
		ON sensor_data (device_id, sensor_type, timestamp DESC)`,
	`CREATE TABLE IF NOT EXISTS automations (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		device_id TEXT,
		sensor_type TEXT,
		condition TEXT,
		threshold DOUBLE PRECISION,
		action TEXT,
		active BOOLEAN DEFAULT TRUE,
		created_at TIMESTAMPTZ DEFAULT NOW()
	)`,
}

// InitSchema 初始化数据库表结构
func InitSchema(db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}
