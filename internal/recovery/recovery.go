// Package recovery classifies runtime failures and preserves intake state for
// resumption. Classification is a fixed precedence of tests over the error;
// anything short of a critical failure gets the current session snapshotted so
// the patient can pick up where they left off.
package recovery

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/BTreeMap/IntakePipe/internal/models"
	"github.com/BTreeMap/IntakePipe/internal/store"
)

// Category is the closed set of failure classes.
type Category string

const (
	CategoryNetworkTimeout Category = "NETWORK_TIMEOUT"
	CategoryNetworkError   Category = "NETWORK_ERROR"
	CategoryValidation     Category = "VALIDATION_ERROR"
	CategoryAIService      Category = "AI_SERVICE_ERROR"
	CategoryStorage        Category = "STORAGE_ERROR"
	CategorySessionExpired Category = "SESSION_EXPIRED"
	CategorySystem         Category = "SYSTEM_ERROR"
)

// Severity orders failure classes by how much of the flow survives them.
type Severity string

const (
	SeverityRecoverable Severity = "RECOVERABLE"
	SeverityDegraded    Severity = "DEGRADED"
	SeverityCritical    Severity = "CRITICAL"
)

// Action is the suggested user-facing response to a classified failure.
type Action string

const (
	ActionRetry          Action = "retry"
	ActionContinue       Action = "continue"
	ActionContactSupport Action = "contact_support"
	ActionRestart        Action = "restart"
)

// Classification is the full verdict for one failure.
type Classification struct {
	Category    Category `json:"category"`
	Severity    Severity `json:"severity"`
	Action      Action   `json:"action"`
	Message     string   `json:"message"`
	MessageUrdu string   `json:"message_urdu"`
	Retryable   bool     `json:"retryable"`
}

// Snapshottable reports whether this failure class preserves intake state.
// Critical failures do not: their state is not trusted for resumption.
func (c Classification) Snapshottable() bool {
	return c.Severity != SeverityCritical
}

// verdicts is the exhaustive per-category mapping. Every Category constant
// has an entry; Classify never emits a category outside this table.
var verdicts = map[Category]Classification{
	CategoryNetworkTimeout: {
		Category:    CategoryNetworkTimeout,
		Severity:    SeverityRecoverable,
		Action:      ActionRetry,
		Message:     "The connection timed out. Your answers are saved; please try again.",
		MessageUrdu: "کنکشن کا وقت ختم ہو گیا۔ آپ کے جوابات محفوظ ہیں، براہ کرم دوبارہ کوشش کریں۔",
		Retryable:   true,
	},
	CategoryNetworkError: {
		Category:    CategoryNetworkError,
		Severity:    SeverityRecoverable,
		Action:      ActionRetry,
		Message:     "A network problem interrupted the interview. Please check your connection and retry.",
		MessageUrdu: "نیٹ ورک کی خرابی نے انٹرویو میں خلل ڈالا۔ براہ کرم اپنا کنکشن چیک کریں اور دوبارہ کوشش کریں۔",
		Retryable:   true,
	},
	CategoryValidation: {
		Category:    CategoryValidation,
		Severity:    SeverityRecoverable,
		Action:      ActionRetry,
		Message:     "That answer could not be accepted. Please correct it and continue.",
		MessageUrdu: "یہ جواب قبول نہیں ہو سکا۔ براہ کرم اسے درست کریں اور جاری رکھیں۔",
		Retryable:   true,
	},
	CategoryAIService: {
		Category:    CategoryAIService,
		Severity:    SeverityDegraded,
		Action:      ActionContinue,
		Message:     "The assistant service is unavailable. The interview continues without it.",
		MessageUrdu: "معاون سروس دستیاب نہیں ہے۔ انٹرویو اس کے بغیر جاری رہے گا۔",
		Retryable:   false,
	},
	CategoryStorage: {
		Category:    CategoryStorage,
		Severity:    SeverityDegraded,
		Action:      ActionContinue,
		Message:     "Saving is temporarily unavailable. You may continue; recent answers will be kept in memory.",
		MessageUrdu: "محفوظ کرنا عارضی طور پر دستیاب نہیں۔ آپ جاری رکھ سکتے ہیں، حالیہ جوابات یادداشت میں رکھے جائیں گے۔",
		Retryable:   false,
	},
	CategorySessionExpired: {
		Category:    CategorySessionExpired,
		Severity:    SeverityRecoverable,
		Action:      ActionRestart,
		Message:     "Your session expired. We saved your progress so you can resume.",
		MessageUrdu: "آپ کا سیشن ختم ہو گیا۔ ہم نے آپ کی پیش رفت محفوظ کر لی ہے تاکہ آپ دوبارہ شروع کر سکیں۔",
		Retryable:   false,
	},
	CategorySystem: {
		Category:    CategorySystem,
		Severity:    SeverityCritical,
		Action:      ActionContactSupport,
		Message:     "Something went wrong on our side. Please contact support if this keeps happening.",
		MessageUrdu: "ہماری طرف سے کچھ غلط ہو گیا۔ اگر یہ مسئلہ برقرار رہے تو براہ کرم سپورٹ سے رابطہ کریں۔",
		Retryable:   false,
	},
}

// substringRules is the ordered precedence of message tests. First match wins;
// the order matters because later patterns are broader than earlier ones
// ("timeout" must be tried before "network", "connection" before "storage").
var substringRules = []struct {
	category Category
	patterns []string
}{
	{CategoryNetworkTimeout, []string{"timeout", "timed out", "deadline exceeded"}},
	{CategoryNetworkError, []string{"network", "connection refused", "connection reset", "no such host", "broken pipe"}},
	{CategoryValidation, []string{"validation", "invalid", "must be", "cannot be empty", "exceeds maximum"}},
	{CategoryAIService, []string{"openai", "model", "completion", "rate limit", "quota"}},
	{CategoryStorage, []string{"database", "sql", "sqlite", "postgres", "redis", "storage", "no rows"}},
	{CategorySessionExpired, []string{"session expired", "expired"}},
}

// Classify maps an error to its Classification. Typed errors take precedence
// over message inspection so wrapped sentinels classify correctly regardless
// of the surrounding text.
func Classify(err error) Classification {
	if err == nil {
		return verdicts[CategorySystem]
	}

	switch {
	case errors.Is(err, models.ErrSessionExpired):
		return verdicts[CategorySessionExpired]
	case errors.Is(err, context.DeadlineExceeded):
		return verdicts[CategoryNetworkTimeout]
	case errors.Is(err, models.ErrInvalidPainIntensity),
		errors.Is(err, models.ErrEmptyZoneID),
		errors.Is(err, models.ErrComplaintTextTooLong),
		errors.Is(err, models.ErrEmptyPatientID),
		errors.Is(err, models.ErrEmptyTabID):
		return verdicts[CategoryValidation]
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return verdicts[CategoryNetworkTimeout]
		}
		return verdicts[CategoryNetworkError]
	}

	msg := strings.ToLower(err.Error())
	for _, rule := range substringRules {
		for _, p := range rule.patterns {
			if strings.Contains(msg, p) {
				return verdicts[rule.category]
			}
		}
	}
	return verdicts[CategorySystem]
}

// Service handles failures for a running intake: it classifies, logs, and
// snapshots recoverable state.
type Service struct {
	store store.Store
	now   func() time.Time
}

// NewService returns a recovery service over the given store.
func NewService(st store.Store) *Service {
	return &Service{store: st, now: time.Now}
}

// Handle classifies err and, when the verdict allows it, snapshots the
// session so the patient can resume. sess may be nil when no intake is in
// flight. The classification is always returned; snapshot failures are logged
// and do not change the verdict.
func (s *Service) Handle(err error, sess *models.IntakeSession) Classification {
	c := Classify(err)
	slog.Error("Recovery.Handle: failure classified",
		"category", c.Category, "severity", c.Severity, "action", c.Action, "error", err)

	if c.Snapshottable() && sess != nil {
		if serr := s.Snapshot(sess, string(c.Category)); serr != nil {
			slog.Error("Recovery.Handle: failed to snapshot session",
				"patientID", sess.PatientID, "error", serr)
		}
	}
	return c
}

// Snapshot stores a timestamped copy of the session keyed by patient. The
// previous snapshot for the patient, if any, is replaced.
func (s *Service) Snapshot(sess *models.IntakeSession, reason string) error {
	snap := &models.StateSnapshot{
		PatientID: sess.PatientID,
		Session:   sess.Clone(),
		Reason:    reason,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.SaveSnapshot(snap); err != nil {
		return err
	}
	slog.Info("Recovery.Snapshot: state preserved",
		"patientID", sess.PatientID, "phase", sess.Phase, "reason", reason)
	return nil
}

// Restore returns the saved session for the patient. A snapshot older than
// the recovery window is deleted and reported as not found rather than
// restored.
func (s *Service) Restore(patientID string) (*models.IntakeSession, error) {
	snap, err := s.store.GetSnapshot(patientID)
	if err != nil {
		return nil, err
	}
	if snap.Expired(s.now()) {
		if derr := s.store.DeleteSnapshot(patientID); derr != nil {
			slog.Error("Recovery.Restore: failed to delete expired snapshot",
				"patientID", patientID, "error", derr)
		}
		return nil, models.ErrSnapshotNotFound
	}
	slog.Info("Recovery.Restore: snapshot restored",
		"patientID", patientID, "phase", snap.Session.Phase, "age", s.now().Sub(snap.CreatedAt))
	return snap.Session.Clone(), nil
}

// Discard removes the patient's snapshot, if any. Used once a restored
// session has been re-established.
func (s *Service) Discard(patientID string) error {
	err := s.store.DeleteSnapshot(patientID)
	if errors.Is(err, models.ErrSnapshotNotFound) {
		return nil
	}
	return err
}
