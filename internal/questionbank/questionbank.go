// Package questionbank holds the static complaint tree catalog and answer
// validation rules.
//
// Trees are immutable configuration data built at construction; the registry
// is a pure lookup keyed by the closed models.TreeKey set. Localized labels
// for prompts and options live with the external label catalog; this package
// only deals in question ids and raw values, plus the bilingual validation
// messages the core owns.
package questionbank

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/BTreeMap/IntakePipe/internal/models"
)

// RedFlagAction is what a fired red-flag check forces on the orchestrator.
type RedFlagAction string

const (
	// ActionStopIntake halts the intake like a positive emergency checkpoint.
	ActionStopIntake RedFlagAction = "stop_intake"
	// ActionEscalate records the flag and raises the eventual urgency floor.
	ActionEscalate RedFlagAction = "escalate"
)

// RedFlagCheck attaches an escalation rule to a yes/no question.
type RedFlagCheck struct {
	Flag     string
	Severity string // "critical" or "warning"
	Action   RedFlagAction
}

// Question is one catalog entry. Prompt text is the canonical English
// wording; display localization is external.
type Question struct {
	ID        string
	Prompt    string
	Response  models.ResponseType
	Options   []string // raw option values for choice questions
	Mandatory bool
	// Condition gates a conditional question on prior answers. Nil means
	// always asked.
	Condition func(answers map[string]string) bool
	// Validation, applied in priority order: numeric range, pattern, custom.
	Min       int
	Max       int
	Pattern   string
	Custom    func(value string) *ValidationError
	RedFlag   *RedFlagCheck
}

// ComplaintTree is the static question set for one presenting complaint.
type ComplaintTree struct {
	Key             models.TreeKey
	Questions       []Question
	MinimumComplete int // minimum answered-mandatory count before summary
}

// MandatoryQuestions returns the always-asked questions in order.
func (t *ComplaintTree) MandatoryQuestions() []Question {
	var out []Question
	for _, q := range t.Questions {
		if q.Mandatory && q.Condition == nil {
			out = append(out, q)
		}
	}
	return out
}

// ApplicableQuestions returns, in catalog order, the questions that should be
// asked given the answers so far: every unconditional question plus the
// conditionals whose predicate holds.
func (t *ComplaintTree) ApplicableQuestions(answers map[string]string) []Question {
	var out []Question
	for _, q := range t.Questions {
		if q.Condition == nil || q.Condition(answers) {
			out = append(out, q)
		}
	}
	return out
}

// FiredRedFlags evaluates the tree's red-flag checks against the answers. A
// check fires when its yes/no question was answered affirmatively.
func (t *ComplaintTree) FiredRedFlags(answers map[string]string) []RedFlagCheck {
	var out []RedFlagCheck
	for _, q := range t.Questions {
		if q.RedFlag == nil {
			continue
		}
		if answers[q.ID] == string(models.AnswerYes) || answers[q.ID] == "yes" {
			out = append(out, *q.RedFlag)
		}
	}
	return out
}

// Complete reports whether every mandatory question has an answer and the
// minimum completion count is met.
func (t *ComplaintTree) Complete(answers map[string]string) bool {
	answered := 0
	for _, q := range t.Questions {
		if !q.Mandatory || (q.Condition != nil && !q.Condition(answers)) {
			continue
		}
		if _, ok := answers[q.ID]; !ok {
			return false
		}
		answered++
	}
	return answered >= t.MinimumComplete
}

// Progress computes answered-mandatory over total-mandatory as an integer
// percentage, rounded.
func (t *ComplaintTree) Progress(answers map[string]string) int {
	total, answered := 0, 0
	for _, q := range t.Questions {
		if !q.Mandatory || (q.Condition != nil && !q.Condition(answers)) {
			continue
		}
		total++
		if _, ok := answers[q.ID]; ok {
			answered++
		}
	}
	if total == 0 {
		return 100
	}
	return int(float64(answered)/float64(total)*100 + 0.5)
}

// Registry maps complaint tree keys to their trees. Built once at
// construction; no global state.
type Registry struct {
	trees map[models.TreeKey]*ComplaintTree
}

// NewRegistry builds the registry over the static catalog. It panics when
// the catalog references an unknown tree key, so a malformed table is a
// construction-time error.
func NewRegistry() *Registry {
	r := &Registry{trees: make(map[models.TreeKey]*ComplaintTree)}
	for _, t := range buildTrees() {
		if !models.IsValidTreeKey(t.Key) {
			panic(fmt.Sprintf("questionbank: tree with invalid key %q", t.Key))
		}
		if _, dup := r.trees[t.Key]; dup {
			panic(fmt.Sprintf("questionbank: duplicate tree key %q", t.Key))
		}
		r.trees[t.Key] = t
	}
	slog.Debug("Registry built", "trees", len(r.trees))
	return r
}

// Tree returns the complaint tree for a key.
func (r *Registry) Tree(key models.TreeKey) (*ComplaintTree, bool) {
	t, ok := r.trees[key]
	return t, ok
}

// HasTree reports whether a tree exists for the key.
func (r *Registry) HasTree(key models.TreeKey) bool {
	_, ok := r.trees[key]
	return ok
}

// DisplayQuestion is the stripped representation handed to the presentation
// layer: response type and raw option values only.
type DisplayQuestion struct {
	ID       string              `json:"id"`
	Response models.ResponseType `json:"response"`
	Options  []string            `json:"options,omitempty"`
}

// FormatQuestion strips a question down for display.
func FormatQuestion(q Question) DisplayQuestion {
	return DisplayQuestion{ID: q.ID, Response: q.Response, Options: q.Options}
}

// ValidationError is a user-facing, bilingual answer rejection.
type ValidationError struct {
	Message     string `json:"message"`
	MessageUrdu string `json:"message_ur"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateAnswer applies the question's rules in priority order: numeric
// range, then pattern, then custom predicate. The first failing rule wins
// and returns its single message.
func ValidateAnswer(q Question, value string) *ValidationError {
	if q.Response == models.ResponseNumeric || q.Response == models.ResponseScale {
		n, err := strconv.Atoi(value)
		if err != nil {
			return &ValidationError{
				Message:     "Please enter a number.",
				MessageUrdu: "Barah-e-karam number likhein.",
			}
		}
		if q.Max > q.Min && (n < q.Min || n > q.Max) {
			return &ValidationError{
				Message:     fmt.Sprintf("Please enter a number between %d and %d.", q.Min, q.Max),
				MessageUrdu: fmt.Sprintf("Barah-e-karam %d aur %d ke darmiyan number likhein.", q.Min, q.Max),
			}
		}
	}
	if q.Pattern != "" {
		// Patterns in the catalog are fixed literals; compile failure would
		// already have surfaced in tests.
		if ok, _ := regexp.MatchString(q.Pattern, value); !ok {
			return &ValidationError{
				Message:     "That answer is not in the expected format.",
				MessageUrdu: "Yeh jawab durust format mein nahi hai.",
			}
		}
	}
	if q.Custom != nil {
		if verr := q.Custom(value); verr != nil {
			return verr
		}
	}
	return nil
}
