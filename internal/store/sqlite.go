// Package store provides storage backends for IntakePipe.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/BTreeMap/IntakePipe/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables exist
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveSession(session *models.IntakeSession) error {
	payload, err := marshalPayload(session)
	if err != nil {
		slog.Error("SQLiteStore SaveSession marshal failed", "error", err, "patientID", session.PatientID)
		return err
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO sessions (patient_id, payload, expires_at, updated_at) VALUES (?, ?, ?, ?)`,
		session.PatientID, payload, session.ExpiresAt, session.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveSession failed", "error", err, "patientID", session.PatientID)
		return fmt.Errorf("failed to save session for %s: %w", session.PatientID, err)
	}
	slog.Debug("SQLiteStore SaveSession succeeded", "patientID", session.PatientID, "phase", session.Phase)
	return nil
}

func (s *SQLiteStore) GetSession(patientID string) (*models.IntakeSession, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM sessions WHERE patient_id = ?`, patientID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore GetSession failed", "error", err, "patientID", patientID)
		return nil, fmt.Errorf("failed to query session for %s: %w", patientID, err)
	}
	var session models.IntakeSession
	if err := unmarshalPayload(payload, &session); err != nil {
		slog.Error("SQLiteStore GetSession unmarshal failed", "error", err, "patientID", patientID)
		return nil, err
	}
	return &session, nil
}

func (s *SQLiteStore) DeleteSession(patientID string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE patient_id = ?`, patientID)
	if err != nil {
		slog.Error("SQLiteStore DeleteSession failed", "error", err, "patientID", patientID)
		return fmt.Errorf("failed to delete session for %s: %w", patientID, err)
	}
	slog.Debug("SQLiteStore DeleteSession succeeded", "patientID", patientID)
	return nil
}

// DeleteExpiredSessions removes sessions past their expiry and reports how
// many were swept.
func (s *SQLiteStore) DeleteExpiredSessions() (int, error) {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		slog.Error("SQLiteStore DeleteExpiredSessions failed", "error", err)
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	slog.Debug("SQLiteStore DeleteExpiredSessions succeeded", "count", n)
	return int(n), nil
}

func (s *SQLiteStore) SaveEncounter(enc *models.Encounter) error {
	payload, err := marshalPayload(enc)
	if err != nil {
		slog.Error("SQLiteStore SaveEncounter marshal failed", "error", err, "encounterID", enc.ID)
		return err
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO encounters (id, patient_id, status, payload, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		enc.ID, enc.PatientID, string(enc.Status), payload, enc.CreatedAt, enc.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveEncounter failed", "error", err, "encounterID", enc.ID)
		return fmt.Errorf("failed to save encounter %s: %w", enc.ID, err)
	}
	slog.Debug("SQLiteStore SaveEncounter succeeded", "encounterID", enc.ID, "status", enc.Status)
	return nil
}

func (s *SQLiteStore) GetEncounter(id string) (*models.Encounter, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM encounters WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, models.ErrEncounterNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore GetEncounter failed", "error", err, "encounterID", id)
		return nil, fmt.Errorf("failed to query encounter %s: %w", id, err)
	}
	var enc models.Encounter
	if err := unmarshalPayload(payload, &enc); err != nil {
		slog.Error("SQLiteStore GetEncounter unmarshal failed", "error", err, "encounterID", id)
		return nil, err
	}
	return &enc, nil
}

func (s *SQLiteStore) ListEncounters(patientID string) ([]*models.Encounter, error) {
	rows, err := s.db.Query(`SELECT payload FROM encounters WHERE patient_id = ? ORDER BY created_at`, patientID)
	if err != nil {
		slog.Error("SQLiteStore ListEncounters query failed", "error", err, "patientID", patientID)
		return nil, fmt.Errorf("failed to query encounters for %s: %w", patientID, err)
	}
	defer rows.Close()
	return collectEncounters(rows)
}

func (s *SQLiteStore) SaveAccount(account *models.PatientAccount) error {
	payload, err := marshalPayload(account)
	if err != nil {
		slog.Error("SQLiteStore SaveAccount marshal failed", "error", err, "patientID", account.PatientID)
		return err
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO accounts (patient_id, payload, updated_at) VALUES (?, ?, ?)`,
		account.PatientID, payload, account.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveAccount failed", "error", err, "patientID", account.PatientID)
		return fmt.Errorf("failed to save account for %s: %w", account.PatientID, err)
	}
	slog.Debug("SQLiteStore SaveAccount succeeded", "patientID", account.PatientID)
	return nil
}

func (s *SQLiteStore) GetAccount(patientID string) (*models.PatientAccount, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM accounts WHERE patient_id = ?`, patientID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, models.ErrAccountNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore GetAccount failed", "error", err, "patientID", patientID)
		return nil, fmt.Errorf("failed to query account for %s: %w", patientID, err)
	}
	var account models.PatientAccount
	if err := unmarshalPayload(payload, &account); err != nil {
		slog.Error("SQLiteStore GetAccount unmarshal failed", "error", err, "patientID", patientID)
		return nil, err
	}
	return &account, nil
}

func (s *SQLiteStore) SaveSnapshot(snap *models.StateSnapshot) error {
	payload, err := marshalPayload(snap)
	if err != nil {
		slog.Error("SQLiteStore SaveSnapshot marshal failed", "error", err, "patientID", snap.PatientID)
		return err
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO snapshots (patient_id, payload, created_at) VALUES (?, ?, ?)`,
		snap.PatientID, payload, snap.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveSnapshot failed", "error", err, "patientID", snap.PatientID)
		return fmt.Errorf("failed to save snapshot for %s: %w", snap.PatientID, err)
	}
	slog.Debug("SQLiteStore SaveSnapshot succeeded", "patientID", snap.PatientID)
	return nil
}

func (s *SQLiteStore) GetSnapshot(patientID string) (*models.StateSnapshot, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM snapshots WHERE patient_id = ?`, patientID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, models.ErrSnapshotNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore GetSnapshot failed", "error", err, "patientID", patientID)
		return nil, fmt.Errorf("failed to query snapshot for %s: %w", patientID, err)
	}
	var snap models.StateSnapshot
	if err := unmarshalPayload(payload, &snap); err != nil {
		slog.Error("SQLiteStore GetSnapshot unmarshal failed", "error", err, "patientID", patientID)
		return nil, err
	}
	return &snap, nil
}

func (s *SQLiteStore) DeleteSnapshot(patientID string) error {
	_, err := s.db.Exec(`DELETE FROM snapshots WHERE patient_id = ?`, patientID)
	if err != nil {
		slog.Error("SQLiteStore DeleteSnapshot failed", "error", err, "patientID", patientID)
		return fmt.Errorf("failed to delete snapshot for %s: %w", patientID, err)
	}
	return nil
}

// DeleteExpiredSnapshots removes snapshots older than the recovery window.
func (s *SQLiteStore) DeleteExpiredSnapshots() (int, error) {
	cutoff := time.Now().UTC().Add(-models.SnapshotTTL)
	res, err := s.db.Exec(`DELETE FROM snapshots WHERE created_at < ?`, cutoff)
	if err != nil {
		slog.Error("SQLiteStore DeleteExpiredSnapshots failed", "error", err)
		return 0, fmt.Errorf("failed to delete expired snapshots: %w", err)
	}
	n, _ := res.RowsAffected()
	slog.Debug("SQLiteStore DeleteExpiredSnapshots succeeded", "count", n)
	return int(n), nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
