// Package triage implements the rule-based clinical decision engine.
//
// Analyze is a pure function over a completed encounter: it never mutates its
// input, never errors on well-formed input, and produces the same result for
// the same input. Rules are a fixed, hand-authored table, not a programmable
// rules engine, and the output is review material for a clinician, never a
// confirmed diagnosis.
package triage

import (
	"log/slog"
	"strings"
	"time"

	"github.com/BTreeMap/IntakePipe/internal/bodymap"
	"github.com/BTreeMap/IntakePipe/internal/models"
)

// Engine evaluates encounters. It is stateless; the struct exists so callers
// inject it explicitly instead of reaching for a package-level singleton.
type Engine struct{}

// NewEngine creates a decision engine.
func NewEngine() *Engine {
	return &Engine{}
}

// features is the normalized view of an encounter the rule tables consume.
type features struct {
	region      string // top-level body region, "" when none recorded
	intensity   int    // primary pain intensity, 0 when no pain point
	suddenOnset bool
	radiation   []string
	quality     []string
	answers     map[string]string
	age         int // -1 when unknown
	account     *models.PatientAccount
	emergency   bool // positive screening or stop-intake red flag
}

// Analyze computes the full triage result for a completed encounter. The
// account may be nil when no baseline exists; history-interaction rules then
// simply do not fire.
func (e *Engine) Analyze(enc *models.Encounter, account *models.PatientAccount) *models.TriageResult {
	f := extractFeatures(enc, account)

	urgency, score, factors := scoreUrgency(f)
	band := bandFor(urgency)

	result := &models.TriageResult{
		Urgency:       urgency,
		Score:         score,
		Message:       band.message,
		MessageUrdu:   band.messageUrdu,
		Timeframe:     band.timeframe,
		Factors:       factors,
		Differentials: rankDifferentials(buildDifferentials(f)),
		RedFlags:      buildRedFlags(f, enc),
		ComputedAt:    time.Now().UTC(),
	}
	result.Recommendations = buildRecommendations(f, result)
	result.NextSteps = buildNextSteps(result)

	slog.Info("Engine.Analyze: encounter triaged",
		"encounter", enc.ID, "urgency", result.Urgency, "score", result.Score,
		"differentials", len(result.Differentials), "red_flags", len(result.RedFlags))
	return result
}

// extractFeatures flattens the encounter into the rule inputs.
func extractFeatures(enc *models.Encounter, account *models.PatientAccount) features {
	f := features{
		answers: enc.Answers,
		age:     -1,
		account: account,
	}
	if f.answers == nil {
		f.answers = map[string]string{}
	}
	if account != nil {
		f.age = account.Age(time.Now())
	}

	if pp := enc.PrimaryPainPoint(); pp != nil {
		f.region = bodymap.Region(pp.ZoneID)
		f.intensity = pp.Intensity
		f.suddenOnset = pp.Onset == "sudden"
		f.radiation = pp.Radiation
		f.quality = pp.Quality
	} else if enc.BodyLocation != "" {
		f.region = bodymap.Region(enc.BodyLocation)
	}
	// Tree answers can carry onset when the pain point did not.
	if !f.suddenOnset {
		f.suddenOnset = f.answers["chest.onset"] == "sudden" || answerYes(f.answers, "head.onset")
	}

	if enc.Screening != nil && enc.Screening.AnyPositive {
		f.emergency = true
	}
	for _, flag := range enc.RedFlags {
		if stopIntakeFlags[flag] {
			f.emergency = true
		}
	}
	return f
}

// stopIntakeFlags are tree red flags whose action halted the intake; they
// carry the same weight as a positive screening checkpoint.
var stopIntakeFlags = map[string]bool{
	"dyspnea-at-rest":                 true,
	"possible-aortic-dissection":      true,
	"thunderclap-onset":               true,
	"meningism":                       true,
	"peritoneal-signs":                true,
	"altered-mental-state-with-fever": true,
}

func answerYes(answers map[string]string, id string) bool {
	v := answers[id]
	return v == string(models.AnswerYes) || v == "yes"
}

func containsAny(values []string, wanted ...string) bool {
	for _, v := range values {
		lv := strings.ToLower(v)
		for _, w := range wanted {
			if lv == w {
				return true
			}
		}
	}
	return false
}
