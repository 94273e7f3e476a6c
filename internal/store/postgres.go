// Package store provides storage backends for IntakePipe.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/BTreeMap/IntakePipe/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) SaveSession(session *models.IntakeSession) error {
	payload, err := marshalPayload(session)
	if err != nil {
		slog.Error("PostgresStore SaveSession marshal failed", "error", err, "patientID", session.PatientID)
		return err
	}
	_, err = s.db.Exec(`INSERT INTO sessions (patient_id, payload, expires_at, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (patient_id) DO UPDATE SET payload = EXCLUDED.payload, expires_at = EXCLUDED.expires_at, updated_at = EXCLUDED.updated_at`,
		session.PatientID, payload, session.ExpiresAt, session.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveSession failed", "error", err, "patientID", session.PatientID)
		return fmt.Errorf("failed to save session for %s: %w", session.PatientID, err)
	}
	slog.Debug("PostgresStore SaveSession succeeded", "patientID", session.PatientID, "phase", session.Phase)
	return nil
}

func (s *PostgresStore) GetSession(patientID string) (*models.IntakeSession, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM sessions WHERE patient_id = $1`, patientID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		slog.Error("PostgresStore GetSession failed", "error", err, "patientID", patientID)
		return nil, fmt.Errorf("failed to query session for %s: %w", patientID, err)
	}
	var session models.IntakeSession
	if err := unmarshalPayload(payload, &session); err != nil {
		slog.Error("PostgresStore GetSession unmarshal failed", "error", err, "patientID", patientID)
		return nil, err
	}
	return &session, nil
}

func (s *PostgresStore) DeleteSession(patientID string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE patient_id = $1`, patientID)
	if err != nil {
		slog.Error("PostgresStore DeleteSession failed", "error", err, "patientID", patientID)
		return fmt.Errorf("failed to delete session for %s: %w", patientID, err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions past their expiry and reports how
// many were swept.
func (s *PostgresStore) DeleteExpiredSessions() (int, error) {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE expires_at < $1`, time.Now().UTC())
	if err != nil {
		slog.Error("PostgresStore DeleteExpiredSessions failed", "error", err)
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	slog.Debug("PostgresStore DeleteExpiredSessions succeeded", "count", n)
	return int(n), nil
}

func (s *PostgresStore) SaveEncounter(enc *models.Encounter) error {
	payload, err := marshalPayload(enc)
	if err != nil {
		slog.Error("PostgresStore SaveEncounter marshal failed", "error", err, "encounterID", enc.ID)
		return err
	}
	_, err = s.db.Exec(`INSERT INTO encounters (id, patient_id, status, payload, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		enc.ID, enc.PatientID, string(enc.Status), payload, enc.CreatedAt, enc.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveEncounter failed", "error", err, "encounterID", enc.ID)
		return fmt.Errorf("failed to save encounter %s: %w", enc.ID, err)
	}
	slog.Debug("PostgresStore SaveEncounter succeeded", "encounterID", enc.ID, "status", enc.Status)
	return nil
}

func (s *PostgresStore) GetEncounter(id string) (*models.Encounter, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM encounters WHERE id = $1`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, models.ErrEncounterNotFound
	}
	if err != nil {
		slog.Error("PostgresStore GetEncounter failed", "error", err, "encounterID", id)
		return nil, fmt.Errorf("failed to query encounter %s: %w", id, err)
	}
	var enc models.Encounter
	if err := unmarshalPayload(payload, &enc); err != nil {
		slog.Error("PostgresStore GetEncounter unmarshal failed", "error", err, "encounterID", id)
		return nil, err
	}
	return &enc, nil
}

func (s *PostgresStore) ListEncounters(patientID string) ([]*models.Encounter, error) {
	rows, err := s.db.Query(`SELECT payload FROM encounters WHERE patient_id = $1 ORDER BY created_at`, patientID)
	if err != nil {
		slog.Error("PostgresStore ListEncounters query failed", "error", err, "patientID", patientID)
		return nil, fmt.Errorf("failed to query encounters for %s: %w", patientID, err)
	}
	defer rows.Close()
	return collectEncounters(rows)
}

func (s *PostgresStore) SaveAccount(account *models.PatientAccount) error {
	payload, err := marshalPayload(account)
	if err != nil {
		slog.Error("PostgresStore SaveAccount marshal failed", "error", err, "patientID", account.PatientID)
		return err
	}
	_, err = s.db.Exec(`INSERT INTO accounts (patient_id, payload, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (patient_id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		account.PatientID, payload, account.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveAccount failed", "error", err, "patientID", account.PatientID)
		return fmt.Errorf("failed to save account for %s: %w", account.PatientID, err)
	}
	return nil
}

func (s *PostgresStore) GetAccount(patientID string) (*models.PatientAccount, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM accounts WHERE patient_id = $1`, patientID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, models.ErrAccountNotFound
	}
	if err != nil {
		slog.Error("PostgresStore GetAccount failed", "error", err, "patientID", patientID)
		return nil, fmt.Errorf("failed to query account for %s: %w", patientID, err)
	}
	var account models.PatientAccount
	if err := unmarshalPayload(payload, &account); err != nil {
		slog.Error("PostgresStore GetAccount unmarshal failed", "error", err, "patientID", patientID)
		return nil, err
	}
	return &account, nil
}

func (s *PostgresStore) SaveSnapshot(snap *models.StateSnapshot) error {
	payload, err := marshalPayload(snap)
	if err != nil {
		slog.Error("PostgresStore SaveSnapshot marshal failed", "error", err, "patientID", snap.PatientID)
		return err
	}
	_, err = s.db.Exec(`INSERT INTO snapshots (patient_id, payload, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (patient_id) DO UPDATE SET payload = EXCLUDED.payload, created_at = EXCLUDED.created_at`,
		snap.PatientID, payload, snap.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveSnapshot failed", "error", err, "patientID", snap.PatientID)
		return fmt.Errorf("failed to save snapshot for %s: %w", snap.PatientID, err)
	}
	return nil
}

func (s *PostgresStore) GetSnapshot(patientID string) (*models.StateSnapshot, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM snapshots WHERE patient_id = $1`, patientID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, models.ErrSnapshotNotFound
	}
	if err != nil {
		slog.Error("PostgresStore GetSnapshot failed", "error", err, "patientID", patientID)
		return nil, fmt.Errorf("failed to query snapshot for %s: %w", patientID, err)
	}
	var snap models.StateSnapshot
	if err := unmarshalPayload(payload, &snap); err != nil {
		slog.Error("PostgresStore GetSnapshot unmarshal failed", "error", err, "patientID", patientID)
		return nil, err
	}
	return &snap, nil
}

func (s *PostgresStore) DeleteSnapshot(patientID string) error {
	_, err := s.db.Exec(`DELETE FROM snapshots WHERE patient_id = $1`, patientID)
	if err != nil {
		slog.Error("PostgresStore DeleteSnapshot failed", "error", err, "patientID", patientID)
		return fmt.Errorf("failed to delete snapshot for %s: %w", patientID, err)
	}
	return nil
}

// DeleteExpiredSnapshots removes snapshots older than the recovery window.
func (s *PostgresStore) DeleteExpiredSnapshots() (int, error) {
	cutoff := time.Now().UTC().Add(-models.SnapshotTTL)
	res, err := s.db.Exec(`DELETE FROM snapshots WHERE created_at < $1`, cutoff)
	if err != nil {
		slog.Error("PostgresStore DeleteExpiredSnapshots failed", "error", err)
		return 0, fmt.Errorf("failed to delete expired snapshots: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}
