// Package store provides storage backends for IntakePipe.
//
// It includes SQLite and PostgreSQL stores for durable records (sessions,
// encounters, patient accounts, recovery snapshots) and an in-memory store
// for tests. Lock leases are not stored here; they live in Redis via the
// session package.
package store

import (
	"strings"

	"github.com/BTreeMap/IntakePipe/internal/models"
)

// Store is the durable record interface the orchestrator and API depend on.
// Lookups return the package sentinel errors from models (ErrSessionNotFound,
// ErrEncounterNotFound, ErrAccountNotFound, ErrSnapshotNotFound) when no row
// matches, so callers can branch with errors.Is.
type Store interface {
	SaveSession(session *models.IntakeSession) error
	GetSession(patientID string) (*models.IntakeSession, error)
	DeleteSession(patientID string) error
	DeleteExpiredSessions() (int, error)

	SaveEncounter(enc *models.Encounter) error
	GetEncounter(id string) (*models.Encounter, error)
	ListEncounters(patientID string) ([]*models.Encounter, error)

	SaveAccount(account *models.PatientAccount) error
	GetAccount(patientID string) (*models.PatientAccount, error)

	SaveSnapshot(snap *models.StateSnapshot) error
	GetSnapshot(patientID string) (*models.StateSnapshot, error)
	DeleteSnapshot(patientID string) error
	DeleteExpiredSnapshots() (int, error)

	Close() error
}

// Opts holds configuration for store constructors.
type Opts struct {
	DSN string
}

// Option configures a store constructor.
type Option func(*Opts)

// WithDSN sets the database connection string. For SQLite this is the
// database file path; for Postgres a connection URL or keyword string.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType classifies a DSN as "postgres" (connection URL or keyword
// string) or "sqlite" (a file path).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}
