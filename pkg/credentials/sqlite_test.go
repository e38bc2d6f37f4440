package credentials

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func createTestDB(t *testing.T, rows []Record) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "devices.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE devices (
		device_id TEXT PRIMARY KEY,
		shared_secret TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}

	for _, rec := range rows {
		_, err = db.Exec("INSERT INTO devices (device_id, shared_secret, created_at) VALUES (?, ?, ?)",
			rec.DeviceID, string(rec.SharedSecret), rec.CreatedAt)
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	return path
}

func TestLoadSQLite(t *testing.T) {
	path := createTestDB(t, []Record{
		{DeviceID: "sensor_001", SharedSecret: []byte("supersecretkey123"), CreatedAt: 1727700000},
		{DeviceID: "sensor_002", SharedSecret: []byte("anothersecretkey456"), CreatedAt: 1727700001},
	})

	store, err := LoadSQLite(path)
	if err != nil {
		t.Fatalf("LoadSQLite() error = %v", err)
	}
	if store.Len() != 2 {
		t.Errorf("Len() = %d, want 2", store.Len())
	}

	secret, ok := store.Lookup("sensor_002")
	if !ok || string(secret) != "anothersecretkey456" {
		t.Errorf("Lookup(sensor_002) = %q, %v", secret, ok)
	}
}

func TestLoadSQLiteShortSecret(t *testing.T) {
	path := createTestDB(t, []Record{
		{DeviceID: "sensor_001", SharedSecret: []byte("short"), CreatedAt: 1727700000},
	})

	if _, err := LoadSQLite(path); !errors.Is(err, ErrSecretTooShort) {
		t.Errorf("error = %v, want ErrSecretTooShort", err)
	}
}

func TestLoadSQLiteMissingTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	// Touch the file so it exists as a valid empty database
	if err := db.Ping(); err != nil {
		t.Fatal(err)
	}
	db.Close()

	if _, err := LoadSQLite(path); err == nil {
		t.Error("LoadSQLite() succeeded on a database without a devices table")
	}
}

func TestLoadSQLiteEmptyTable(t *testing.T) {
	path := createTestDB(t, nil)

	store, err := LoadSQLite(path)
	if err != nil {
		t.Fatalf("LoadSQLite() error = %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0", store.Len())
	}
}
