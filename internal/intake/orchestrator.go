// Package intake implements the phase state machine that drives a patient
// through emergency screening, complaint selection, body mapping, baseline
// history, the complaint question tree, and summary.
//
// The orchestrator never mutates a caller's session: every operation works on
// a deep copy and returns the new snapshot, so a rejected transition leaves
// the caller's state exactly as it was.
package intake

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/IntakePipe/internal/bodymap"
	"github.com/BTreeMap/IntakePipe/internal/models"
	"github.com/BTreeMap/IntakePipe/internal/questionbank"
	"github.com/BTreeMap/IntakePipe/internal/screening"
	"github.com/BTreeMap/IntakePipe/internal/session"
	"github.com/BTreeMap/IntakePipe/internal/store"
)

// TransitionError is a rejected phase transition with a patient-facing
// bilingual message. The session it was raised against is unchanged.
type TransitionError struct {
	Message     string `json:"message"`
	MessageUrdu string `json:"message_urdu"`
}

func (e *TransitionError) Error() string {
	return e.Message
}

// EmergencyExitFunc receives control when intake halts on a positive
// screening checkpoint or a stop-intake red flag. It is the hand-off point
// to emergency guidance; the orchestrator has already cleared the session.
type EmergencyExitFunc func(enc *models.Encounter, result *models.ScreeningResult)

// Orchestrator is the top-level intake controller.
type Orchestrator struct {
	sessions *session.Manager
	store    store.Store
	screener *screening.Screener
	resolver *bodymap.Resolver
	registry *questionbank.Registry

	emergencyExit EmergencyExitFunc
}

// NewOrchestrator wires the orchestrator over the given store. exit may be
// nil when no emergency-guidance collaborator is attached.
func NewOrchestrator(st store.Store, exit EmergencyExitFunc) *Orchestrator {
	if exit == nil {
		exit = func(*models.Encounter, *models.ScreeningResult) {}
	}
	return &Orchestrator{
		sessions:      session.NewManager(st),
		store:         st,
		screener:      screening.NewScreener(),
		resolver:      bodymap.NewResolver(),
		registry:      questionbank.NewRegistry(),
		emergencyExit: exit,
	}
}

// Sessions exposes the session manager for callers that only persist.
func (o *Orchestrator) Sessions() *session.Manager {
	return o.sessions
}

// Start resumes the patient's saved session or begins a fresh one at the
// emergency screening phase. First-time status comes from the account store.
func (o *Orchestrator) Start(patientID string) (*models.IntakeSession, bool, error) {
	if patientID == "" {
		return nil, false, models.ErrEmptyPatientID
	}
	isFirstTime := false
	if _, err := o.store.GetAccount(patientID); err != nil {
		// No account on file means no baseline exists yet.
		isFirstTime = true
	}

	sess, resumed, err := o.sessions.LoadOrNew(patientID, isFirstTime)
	if err != nil {
		return nil, false, err
	}
	if !resumed {
		if err := o.sessions.Save(sess); err != nil {
			return nil, false, err
		}
	}
	slog.Info("Orchestrator.Start", "patientID", patientID, "resumed", resumed, "phase", sess.Phase)
	return sess, resumed, nil
}

// ScreeningCheckpoints returns the fixed checkpoint sequence for display.
func (o *Orchestrator) ScreeningCheckpoints() []screening.Checkpoint {
	return o.screener.Checkpoints()
}

// AnswerScreening applies one raw screening answer. A positive checkpoint
// triggers the terminal emergency exit: the encounter is marked, the session
// is cleared, and the emergency-guidance collaborator takes over.
func (o *Orchestrator) AnswerScreening(sess *models.IntakeSession, raw string) (*models.IntakeSession, error) {
	next := sess.Clone()
	if next.Phase != models.PhaseEmergency {
		return nil, &TransitionError{
			Message:     "Emergency screening is already finished.",
			MessageUrdu: "ہنگامی جانچ پہلے ہی مکمل ہو چکی ہے۔",
		}
	}

	st := screening.State{}
	if next.Encounter.Screening != nil {
		st = screening.State{
			Index:  len(next.Encounter.Screening.Recorded),
			Result: *next.Encounter.Screening,
		}
	}
	st, err := o.screener.Answer(st, raw)
	if err != nil {
		return nil, err
	}
	result := st.Result
	next.Encounter.Screening = &result

	if result.AnyPositive {
		return next, o.exitToEmergency(next)
	}
	if err := o.sessions.Save(next); err != nil {
		return nil, err
	}
	return next, nil
}

// exitToEmergency is the terminal positive-screening transition: it bypasses
// every remaining phase rather than moving to one.
func (o *Orchestrator) exitToEmergency(sess *models.IntakeSession) error {
	enc := sess.Encounter
	now := time.Now().UTC()
	enc.Status = models.EncounterStatusEmergencyExit
	enc.UpdatedAt = now
	enc.CompletedAt = &now
	if err := o.store.SaveEncounter(enc); err != nil {
		return err
	}
	if err := o.sessions.Clear(sess.PatientID); err != nil {
		return err
	}
	slog.Warn("Orchestrator.exitToEmergency: intake halted",
		"patientID", sess.PatientID, "encounter", enc.ID)
	o.emergencyExit(enc, enc.Screening)
	return nil
}

// RecordComplaint captures the presenting complaint during COMPLAINT_SELECTION.
func (o *Orchestrator) RecordComplaint(sess *models.IntakeSession, complaint models.ComplaintType, text string) (*models.IntakeSession, error) {
	next := sess.Clone()
	if next.Phase != models.PhaseComplaintSelection {
		return nil, phaseMismatch(next.Phase, models.PhaseComplaintSelection)
	}
	if !models.IsValidComplaintType(complaint) {
		return nil, &TransitionError{
			Message:     "Please choose one of the listed complaint types.",
			MessageUrdu: "براہ کرم دی گئی شکایت کی اقسام میں سے ایک منتخب کریں۔",
		}
	}
	if len(text) > models.MaxComplaintTextLength {
		return nil, fmt.Errorf("%w: %d characters", models.ErrComplaintTextTooLong, len(text))
	}
	next.Encounter.ComplaintType = complaint
	next.Encounter.ComplaintText = text
	next.Encounter.UpdatedAt = time.Now().UTC()
	if err := o.sessions.Save(next); err != nil {
		return nil, err
	}
	return next, nil
}

// ResolveZone proxies the zone resolver so the surface layer never touches
// taxonomy internals.
func (o *Orchestrator) ResolveZone(zoneID string) (bodymap.Resolution, error) {
	return o.resolver.Resolve(zoneID)
}

// RecordPainPoint validates and appends a pain point during BODY_MAP. The
// zone must be terminal; a broad zone is sent back for refinement.
func (o *Orchestrator) RecordPainPoint(sess *models.IntakeSession, pp models.PainPoint) (*models.IntakeSession, error) {
	next := sess.Clone()
	if next.Phase != models.PhaseBodyMap {
		return nil, phaseMismatch(next.Phase, models.PhaseBodyMap)
	}
	if err := pp.Validate(); err != nil {
		return nil, err
	}
	res, err := o.resolver.Resolve(pp.ZoneID)
	if err != nil {
		return nil, err
	}
	if res.NeedsRefinement {
		return nil, &TransitionError{
			Message:     res.Refinement.Message,
			MessageUrdu: res.Refinement.MessageUrdu,
		}
	}

	if len(next.Encounter.PainPoints) == 0 {
		pp.Primary = true
	}
	next.Encounter.PainPoints = append(next.Encounter.PainPoints, pp)
	if pp.Primary || next.Encounter.BodyLocation == "" {
		next.Encounter.BodyLocation = pp.ZoneID
	}
	next.Encounter.UpdatedAt = time.Now().UTC()
	if err := o.sessions.Save(next); err != nil {
		return nil, err
	}
	return next, nil
}

// Answer records one question answer during BASELINE or COMPLAINT_TREE.
// Validation failures come back as *questionbank.ValidationError with the
// session untouched. A fired stop-intake red flag halts the flow the same
// way a positive screening checkpoint does.
func (o *Orchestrator) Answer(sess *models.IntakeSession, questionID, value string) (*models.IntakeSession, error) {
	next := sess.Clone()

	var question *questionbank.Question
	switch next.Phase {
	case models.PhaseBaseline:
		for _, q := range questionbank.BaselineQuestions(next.IsFirstTime) {
			if q.ID == questionID {
				question = &q
				break
			}
		}
	case models.PhaseComplaintTree:
		tree, err := o.currentTree(next)
		if err != nil {
			return nil, err
		}
		for _, q := range tree.Questions {
			if q.ID == questionID {
				question = &q
				break
			}
		}
	default:
		return nil, phaseMismatch(next.Phase, models.PhaseComplaintTree)
	}
	if question == nil {
		return nil, fmt.Errorf("unknown question id %q for phase %s", questionID, next.Phase)
	}

	if verr := questionbank.ValidateAnswer(*question, value); verr != nil {
		return nil, verr
	}

	if next.Encounter.Answers == nil {
		next.Encounter.Answers = make(map[string]string)
	}
	next.Encounter.Answers[questionID] = value
	next.Encounter.UpdatedAt = time.Now().UTC()

	if next.Phase == models.PhaseComplaintTree {
		tree, err := o.currentTree(next)
		if err != nil {
			return nil, err
		}
		stop := o.mergeRedFlags(next.Encounter, tree)
		if stop {
			return next, o.exitToEmergency(next)
		}
	}

	if err := o.sessions.Save(next); err != nil {
		return nil, err
	}
	return next, nil
}

// mergeRedFlags folds newly fired tree red flags into the encounter and
// reports whether any of them demands halting the intake.
func (o *Orchestrator) mergeRedFlags(enc *models.Encounter, tree *questionbank.ComplaintTree) bool {
	seen := make(map[string]bool, len(enc.RedFlags))
	for _, f := range enc.RedFlags {
		seen[f] = true
	}
	stop := false
	for _, check := range tree.FiredRedFlags(enc.Answers) {
		if !seen[check.Flag] {
			enc.RedFlags = append(enc.RedFlags, check.Flag)
			seen[check.Flag] = true
			slog.Warn("Orchestrator.mergeRedFlags: red flag fired",
				"encounter", enc.ID, "flag", check.Flag, "action", check.Action)
		}
		if check.Action == questionbank.ActionStopIntake {
			stop = true
		}
	}
	return stop
}

// currentTree resolves the complaint tree for the encounter's recorded
// location and complaint.
func (o *Orchestrator) currentTree(sess *models.IntakeSession) (*questionbank.ComplaintTree, error) {
	key := bodymap.TreeKeyFor(sess.Encounter.BodyLocation, sess.Encounter.ComplaintType)
	tree, ok := o.registry.Tree(key)
	if !ok {
		return nil, fmt.Errorf("no question tree registered for key %q", key)
	}
	return tree, nil
}

// Questions returns the applicable questions for the session's current phase.
func (o *Orchestrator) Questions(sess *models.IntakeSession) ([]questionbank.DisplayQuestion, error) {
	var qs []questionbank.Question
	switch sess.Phase {
	case models.PhaseBaseline:
		qs = questionbank.BaselineQuestions(sess.IsFirstTime)
	case models.PhaseComplaintTree:
		tree, err := o.currentTree(sess)
		if err != nil {
			return nil, err
		}
		qs = tree.ApplicableQuestions(sess.Encounter.Answers)
	default:
		return nil, phaseMismatch(sess.Phase, models.PhaseComplaintTree)
	}
	out := make([]questionbank.DisplayQuestion, 0, len(qs))
	for _, q := range qs {
		out = append(out, questionbank.FormatQuestion(q))
	}
	return out, nil
}

// Progress returns the fixed display percentage for the session's phase.
func (o *Orchestrator) Progress(sess *models.IntakeSession) int {
	return models.ProgressPercent(sess.Phase)
}
