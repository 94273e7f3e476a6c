// Package screening implements the emergency screening state machine.
//
// It asks a fixed, ordered sequence of binary critical-safety checkpoints
// before any other intake phase. The first affirmative answer halts the
// entire intake and selects an emergency protocol; later checkpoints are
// never asked once one fires.
package screening

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BTreeMap/IntakePipe/internal/models"
)

// Error variables for screening input handling.
var (
	ErrInvalidBinaryAnswer = errors.New("answer must be yes or no")
	ErrScreeningFinished   = errors.New("screening already finished")
	ErrUnknownCheckpoint   = errors.New("unknown checkpoint")
)

// EmergencyContact is the canonical emergency-service action for a positive
// checkpoint (Rescue 1122).
const EmergencyContact = "call_1122"

// Checkpoint is one critical yes/no safety question.
type Checkpoint struct {
	ID         string
	Prompt     string
	PromptUrdu string
	Protocol   models.EmergencyProtocol
}

// defaultCheckpoints is the fixed ordered checkpoint sequence. Order is
// clinically deliberate and must not be re-sorted.
var defaultCheckpoints = []Checkpoint{
	{
		ID:         "chest_pain_now",
		Prompt:     "Are you having chest pain right now?",
		PromptUrdu: "Kya aap ko abhi seenay mein dard ho raha hai?",
		Protocol: models.EmergencyProtocol{
			Message:          "Chest pain can signal a heart attack. Call Rescue 1122 now and do not drive yourself.",
			MessageUrdu:      "Seenay ka dard dil ke dauray ki nishani ho sakta hai. Foran Rescue 1122 call karein.",
			EmergencyContact: EmergencyContact,
		},
	},
	{
		ID:         "breathing_difficulty",
		Prompt:     "Are you struggling to breathe?",
		PromptUrdu: "Kya aap ko saans lene mein shadeed mushkil ho rahi hai?",
		Protocol: models.EmergencyProtocol{
			Message:          "Severe breathing difficulty is an emergency. Call Rescue 1122 immediately.",
			MessageUrdu:      "Saans mein shadeed rukawat emergency hai. Foran Rescue 1122 call karein.",
			EmergencyContact: EmergencyContact,
		},
	},
	{
		ID:         "loss_of_consciousness",
		Prompt:     "Have you fainted or lost consciousness today?",
		PromptUrdu: "Kya aap aaj behosh huay hain?",
		Protocol: models.EmergencyProtocol{
			Message:          "Loss of consciousness requires immediate evaluation. Call Rescue 1122.",
			MessageUrdu:      "Behoshi ki surat mein foran Rescue 1122 call karein.",
			EmergencyContact: EmergencyContact,
		},
	},
	{
		ID:         "one_sided_weakness",
		Prompt:     "Do you have sudden weakness or numbness on one side of your body?",
		PromptUrdu: "Kya jisam ke aik taraf achanak kamzori ya sun hona mehsoos ho raha hai?",
		Protocol: models.EmergencyProtocol{
			Message:          "One-sided weakness can signal a stroke. Call Rescue 1122 now; minutes matter.",
			MessageUrdu:      "Aik taraf ki kamzori falij ki nishani ho sakti hai. Foran Rescue 1122 call karein.",
			EmergencyContact: EmergencyContact,
		},
	},
	{
		ID:         "uncontrolled_bleeding",
		Prompt:     "Do you have bleeding that will not stop?",
		PromptUrdu: "Kya khoon beh raha hai jo ruk nahi raha?",
		Protocol: models.EmergencyProtocol{
			Message:          "Apply firm pressure to the wound and call Rescue 1122 immediately.",
			MessageUrdu:      "Zakham par dabao rakhein aur foran Rescue 1122 call karein.",
			EmergencyContact: EmergencyContact,
		},
	},
	{
		ID:         "self_harm_ideation",
		Prompt:     "Are you having thoughts of harming yourself?",
		PromptUrdu: "Kya aap ke zehan mein khud ko nuqsan pohanchane ke khayalat aa rahe hain?",
		Protocol: models.EmergencyProtocol{
			Message:          "You are not alone. Please call Rescue 1122 or the Umang helpline 0311-7786264 right now.",
			MessageUrdu:      "Aap akele nahi hain. Barah-e-karam foran Rescue 1122 ya Umang helpline 0311-7786264 par call karein.",
			EmergencyContact: EmergencyContact,
		},
	},
}

// Screener runs the checkpoint sequence. It holds only immutable
// configuration; per-patient progress lives in State.
type Screener struct {
	checkpoints []Checkpoint
}

// NewScreener creates a Screener over the fixed checkpoint sequence.
func NewScreener() *Screener {
	return &Screener{checkpoints: defaultCheckpoints}
}

// Checkpoints returns the ordered checkpoint sequence.
func (s *Screener) Checkpoints() []Checkpoint {
	return s.checkpoints
}

// State is the progress of one screening run. Answer returns updated
// snapshots; callers must not mutate a State in place.
type State struct {
	Index  int                    `json:"index"` // next checkpoint to ask
	Result models.ScreeningResult `json:"result"`
}

// Start returns a fresh screening state positioned at the first checkpoint.
func (s *Screener) Start() State {
	return State{}
}

// Done reports whether screening has finished, positively or negatively.
func (s *Screener) Done(st State) bool {
	return st.Result.ScreeningCompleted
}

// Current returns the checkpoint awaiting an answer, or false when screening
// is finished.
func (s *Screener) Current(st State) (Checkpoint, bool) {
	if st.Result.ScreeningCompleted || st.Index >= len(s.checkpoints) {
		return Checkpoint{}, false
	}
	return s.checkpoints[st.Index], true
}

// NormalizeBinary converts free text to a strict YES/NO answer. Anything not
// recognizably affirmative or negative is rejected; there is no default.
func NormalizeBinary(raw string) (models.BinaryAnswer, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "y", "haan", "han", "ji", "ji haan", "true", "1":
		return models.AnswerYes, nil
	case "no", "n", "nahi", "nahin", "false", "0":
		return models.AnswerNo, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidBinaryAnswer, raw)
	}
}

// Answer applies a raw response to the current checkpoint and returns the
// next state. A YES short-circuits the run: the result is tagged positive,
// the fired checkpoint and its protocol are recorded, and all remaining
// checkpoints are skipped. A final NO completes the run negatively.
func (s *Screener) Answer(st State, raw string) (State, error) {
	cp, ok := s.Current(st)
	if !ok {
		slog.Warn("Screener.Answer: answer received after screening finished", "index", st.Index)
		return st, ErrScreeningFinished
	}

	ans, err := NormalizeBinary(raw)
	if err != nil {
		slog.Debug("Screener.Answer: rejected non-binary input", "checkpoint", cp.ID, "raw", raw)
		return st, err
	}

	next := st
	next.Result.Recorded = append(append([]models.CheckpointAnswer(nil), st.Result.Recorded...), models.CheckpointAnswer{
		CheckpointID: cp.ID,
		Answer:       ans,
		AnsweredAt:   time.Now().UTC(),
	})

	if ans == models.AnswerYes {
		protocol := cp.Protocol
		next.Result.AnyPositive = true
		next.Result.FiredCheckpoint = cp.ID
		next.Result.RecommendedAction = protocol.EmergencyContact
		next.Result.Protocol = &protocol
		next.Result.ScreeningCompleted = true
		next.Index = len(s.checkpoints)
		slog.Info("Screener.Answer: positive checkpoint, halting intake", "checkpoint", cp.ID)
		return next, nil
	}

	next.Index = st.Index + 1
	if next.Index >= len(s.checkpoints) {
		next.Result.ScreeningCompleted = true
		slog.Info("Screener.Answer: screening completed negative", "checkpoints", len(s.checkpoints))
	}
	return next, nil
}

// AnswerAll runs a full sequence of raw answers from the start, stopping at
// the first positive. Convenience for non-interactive callers.
func (s *Screener) AnswerAll(raws []string) (State, error) {
	st := s.Start()
	for _, raw := range raws {
		if s.Done(st) {
			break
		}
		var err error
		st, err = s.Answer(st, raw)
		if err != nil {
			return st, err
		}
	}
	return st, nil
}
