// Package models defines phase and step types to avoid circular imports.
package models

// Phase represents a stage of the mandatory intake sequence.
type Phase string

// Intake phases in mandatory order. BASELINE is entered only for first-time
// patients; every other phase is unskippable.
const (
	PhaseEmergency          Phase = "EMERGENCY"
	PhaseComplaintSelection Phase = "COMPLAINT_SELECTION"
	PhaseBodyMap            Phase = "BODY_MAP"
	PhaseBaseline           Phase = "BASELINE"
	PhaseComplaintTree      Phase = "COMPLAINT_TREE"
	PhaseSummary            Phase = "SUMMARY"
	PhaseComplete           Phase = "COMPLETE"
)

// IsValidPhase checks if the given phase is part of the intake sequence.
func IsValidPhase(p Phase) bool {
	switch p {
	case PhaseEmergency, PhaseComplaintSelection, PhaseBodyMap, PhaseBaseline,
		PhaseComplaintTree, PhaseSummary, PhaseComplete:
		return true
	default:
		return false
	}
}

// StepType tags entries on the session navigation stack.
type StepType string

const (
	StepEmergency StepType = "emergency"
	StepComplaint StepType = "complaint"
	StepBodyMap   StepType = "bodyMap"
	StepBaseline  StepType = "baseline"
	StepTree      StepType = "tree"
	StepSummary   StepType = "summary"
)

// phaseProgress is the fixed per-phase display percentage. It has no effect
// on transition legality.
var phaseProgress = map[Phase]int{
	PhaseEmergency:          5,
	PhaseComplaintSelection: 20,
	PhaseBodyMap:            35,
	PhaseBaseline:           50,
	PhaseComplaintTree:      70,
	PhaseSummary:            90,
	PhaseComplete:           100,
}

// ProgressPercent returns the display progress for a phase. Unknown phases
// report zero.
func ProgressPercent(p Phase) int {
	return phaseProgress[p]
}

// ResponseType describes how a question expects to be answered.
type ResponseType string

const (
	ResponseYesNo      ResponseType = "yes_no"
	ResponseNumeric    ResponseType = "numeric"
	ResponseSingle     ResponseType = "single_choice"
	ResponseMulti      ResponseType = "multi_choice"
	ResponseText       ResponseType = "text"
	ResponseScale      ResponseType = "scale" // 1-10
)
