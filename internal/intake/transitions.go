package intake

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/IntakePipe/internal/models"
	"github.com/BTreeMap/IntakePipe/internal/questionbank"
)

func phaseMismatch(got, want models.Phase) *TransitionError {
	return &TransitionError{
		Message:     fmt.Sprintf("This step belongs to the %s stage, but the intake is at %s.", want, got),
		MessageUrdu: "یہ مرحلہ اس وقت دستیاب نہیں ہے۔ براہ کرم موجودہ مرحلہ مکمل کریں۔",
	}
}

// nextPhase returns the single legal successor of the session's phase.
// BODY_MAP branches on the first-time flag; COMPLETE has no successor.
func nextPhase(sess *models.IntakeSession) (models.Phase, bool) {
	switch sess.Phase {
	case models.PhaseEmergency:
		return models.PhaseComplaintSelection, true
	case models.PhaseComplaintSelection:
		return models.PhaseBodyMap, true
	case models.PhaseBodyMap:
		if sess.IsFirstTime {
			return models.PhaseBaseline, true
		}
		return models.PhaseComplaintTree, true
	case models.PhaseBaseline:
		return models.PhaseComplaintTree, true
	case models.PhaseComplaintTree:
		return models.PhaseSummary, true
	case models.PhaseSummary:
		return models.PhaseComplete, true
	}
	return "", false
}

// stepTypeForPhase names the step record pushed when a phase is completed.
var stepTypeForPhase = map[models.Phase]models.StepType{
	models.PhaseEmergency:          models.StepEmergency,
	models.PhaseComplaintSelection: models.StepComplaint,
	models.PhaseBodyMap:            models.StepBodyMap,
	models.PhaseBaseline:           models.StepBaseline,
	models.PhaseComplaintTree:      models.StepTree,
	models.PhaseSummary:            models.StepSummary,
}

// Advance moves the session to target, which must be the legal successor of
// the current phase. A rejection returns a TransitionError and the caller's
// session is untouched. Reaching COMPLETE enforces the completion invariant,
// finalizes the encounter, and clears the saved session.
func (o *Orchestrator) Advance(sess *models.IntakeSession, target models.Phase) (*models.IntakeSession, error) {
	next := sess.Clone()

	expected, ok := nextPhase(next)
	if !ok || expected != target {
		return nil, &TransitionError{
			Message:     fmt.Sprintf("Cannot move from %s to %s; the next step is %s.", next.Phase, target, expected),
			MessageUrdu: "مراحل ترتیب سے مکمل کرنا ضروری ہیں۔ براہ کرم اگلا مرحلہ مکمل کریں۔",
		}
	}
	if err := o.checkLeaving(next); err != nil {
		return nil, err
	}
	if target == models.PhaseComplete {
		if err := o.checkCompletionInvariant(next); err != nil {
			return nil, err
		}
	}

	next.Stack = append(next.Stack, models.NavigationStep{
		StepID:   string(next.Phase),
		StepType: stepTypeForPhase[next.Phase],
		Data:     stepData(next),
	})
	next.Phase = target
	slog.Info("Orchestrator.Advance", "patientID", next.PatientID, "phase", target,
		"progress", models.ProgressPercent(target), "stackDepth", len(next.Stack))

	if target == models.PhaseComplete {
		return next, o.finalize(next)
	}
	if err := o.sessions.Save(next); err != nil {
		return nil, err
	}
	return next, nil
}

// checkLeaving enforces the exit condition of the phase being left.
func (o *Orchestrator) checkLeaving(sess *models.IntakeSession) error {
	enc := sess.Encounter
	switch sess.Phase {
	case models.PhaseEmergency:
		if enc.Screening == nil || !enc.Screening.ScreeningCompleted {
			return &TransitionError{
				Message:     "Please answer all safety questions before continuing.",
				MessageUrdu: "براہ کرم آگے بڑھنے سے پہلے حفاظتی سوالات مکمل کریں۔",
			}
		}
		if enc.Screening.AnyPositive {
			return &TransitionError{
				Message:     "This intake was stopped because of an emergency answer. Please seek urgent care.",
				MessageUrdu: "ہنگامی جواب کی وجہ سے یہ انٹیک روک دیا گیا ہے۔ براہ کرم فوری طبی امداد حاصل کریں۔",
			}
		}
	case models.PhaseComplaintSelection:
		if enc.ComplaintType == "" {
			return &TransitionError{
				Message:     "Please tell us what is bothering you before continuing.",
				MessageUrdu: "براہ کرم آگے بڑھنے سے پہلے اپنی شکایت منتخب کریں۔",
			}
		}
	case models.PhaseBodyMap:
		if !enc.HasLocation() {
			return &TransitionError{
				Message:     "Please mark where it hurts on the body map before continuing.",
				MessageUrdu: "براہ کرم آگے بڑھنے سے پہلے جسم کے نقشے پر درد کی جگہ نشان زد کریں۔",
			}
		}
	case models.PhaseBaseline:
		if !questionbank.BaselineComplete(sess.IsFirstTime, enc.Answers) {
			return &TransitionError{
				Message:     "Please finish the health background questions before continuing.",
				MessageUrdu: "براہ کرم آگے بڑھنے سے پہلے صحت کے پس منظر کے سوالات مکمل کریں۔",
			}
		}
	case models.PhaseComplaintTree:
		tree, err := o.currentTree(sess)
		if err != nil {
			return err
		}
		if !tree.Complete(enc.Answers) {
			return &TransitionError{
				Message:     "Please answer the remaining required questions before continuing.",
				MessageUrdu: "براہ کرم آگے بڑھنے سے پہلے باقی لازمی سوالات کے جواب دیں۔",
			}
		}
	}
	return nil
}

// checkCompletionInvariant re-verifies the whole record before COMPLETE:
// negative finished screening, a recorded location, and every mandatory tree
// answer present. Phase-by-phase checks should have guaranteed all of this;
// the invariant catches resumed or hand-edited sessions that skipped one.
func (o *Orchestrator) checkCompletionInvariant(sess *models.IntakeSession) error {
	enc := sess.Encounter
	if enc.Screening == nil || !enc.Screening.ScreeningCompleted || enc.Screening.AnyPositive {
		return &TransitionError{
			Message:     "The intake cannot be completed without finished safety screening.",
			MessageUrdu: "حفاظتی جانچ مکمل کیے بغیر انٹیک مکمل نہیں ہو سکتا۔",
		}
	}
	if !enc.HasLocation() {
		return &TransitionError{
			Message:     "The intake cannot be completed without a recorded body location.",
			MessageUrdu: "جسم پر جگہ درج کیے بغیر انٹیک مکمل نہیں ہو سکتا۔",
		}
	}
	tree, err := o.currentTree(sess)
	if err != nil {
		return err
	}
	if !tree.Complete(enc.Answers) {
		return &TransitionError{
			Message:     "The intake cannot be completed while required questions are unanswered.",
			MessageUrdu: "لازمی سوالات کے جواب دیے بغیر انٹیک مکمل نہیں ہو سکتا۔",
		}
	}
	return nil
}

// finalize marks the encounter complete, persists it, and discards the
// session record.
func (o *Orchestrator) finalize(sess *models.IntakeSession) error {
	enc := sess.Encounter
	now := time.Now().UTC()
	enc.Status = models.EncounterStatusComplete
	enc.UpdatedAt = now
	enc.CompletedAt = &now
	if err := o.store.SaveEncounter(enc); err != nil {
		return err
	}
	if err := o.sessions.Clear(sess.PatientID); err != nil {
		return err
	}
	slog.Info("Orchestrator.finalize: encounter complete",
		"patientID", sess.PatientID, "encounter", enc.ID)
	return nil
}

// stepData captures a small display summary of the phase being completed.
func stepData(sess *models.IntakeSession) map[string]string {
	enc := sess.Encounter
	switch sess.Phase {
	case models.PhaseComplaintSelection:
		return map[string]string{"complaint": string(enc.ComplaintType)}
	case models.PhaseBodyMap:
		return map[string]string{"zone": enc.BodyLocation}
	case models.PhaseComplaintTree:
		return map[string]string{"answers": fmt.Sprintf("%d", len(enc.Answers))}
	}
	return nil
}

// backPhase is the fixed reverse-mapping table: the phase to return to when
// the given step type becomes the new stack top after a pop.
func backPhase(top models.StepType, isFirstTime bool) models.Phase {
	switch top {
	case models.StepEmergency:
		return models.PhaseComplaintSelection
	case models.StepComplaint:
		return models.PhaseBodyMap
	case models.StepBodyMap:
		if isFirstTime {
			return models.PhaseBaseline
		}
		return models.PhaseComplaintTree
	case models.StepBaseline:
		return models.PhaseComplaintTree
	case models.StepTree:
		return models.PhaseSummary
	}
	return models.PhaseEmergency
}

// Back pops the navigation stack and recomputes the phase from the new stack
// top. It is only legal while history exists.
func (o *Orchestrator) Back(sess *models.IntakeSession) (*models.IntakeSession, error) {
	if len(sess.Stack) == 0 {
		return nil, &TransitionError{
			Message:     "There is no earlier step to go back to.",
			MessageUrdu: "واپس جانے کے لیے کوئی پچھلا مرحلہ موجود نہیں ہے۔",
		}
	}
	next := sess.Clone()
	next.Stack = next.Stack[:len(next.Stack)-1]

	if len(next.Stack) == 0 {
		next.Phase = models.PhaseEmergency
	} else {
		top := next.Stack[len(next.Stack)-1]
		next.Phase = backPhase(top.StepType, next.IsFirstTime)
	}
	slog.Debug("Orchestrator.Back", "patientID", next.PatientID,
		"phase", next.Phase, "stackDepth", len(next.Stack))

	if err := o.sessions.Save(next); err != nil {
		return nil, err
	}
	return next, nil
}
