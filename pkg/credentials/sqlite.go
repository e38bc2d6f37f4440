package credentials

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// LoadSQLite reads every row of the devices table at dbPath and returns an
// immutable in-memory store. The table schema is:
//
//	devices(device_id TEXT PRIMARY KEY, shared_secret TEXT NOT NULL,
//	        created_at INTEGER NOT NULL)
//
// The database is only read; seeding and provisioning happen elsewhere.
func LoadSQLite(dbPath string) (*MemoryStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open credentials database: %w", err)
	}
	defer db.Close()

	rows, err := db.Query("SELECT device_id, shared_secret, created_at FROM devices")
	if err != nil {
		return nil, fmt.Errorf("failed to read devices table: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var secret string
		if err := rows.Scan(&rec.DeviceID, &secret, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan device row: %w", err)
		}
		rec.SharedSecret = []byte(secret)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate devices table: %w", err)
	}

	store, err := NewMemoryStore(records)
	if err != nil {
		return nil, err
	}
	return store, nil
}
