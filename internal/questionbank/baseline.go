package questionbank

import "github.com/BTreeMap/IntakePipe/internal/models"

// Baseline supplies the history questionnaire for the BASELINE phase. Pure
// data; the branch between the full first-visit set and the abbreviated
// reconfirmation set is selected by the session's first-time flag.

// fullBaseline is the complete first-visit history questionnaire.
var fullBaseline = []Question{
	{
		ID: "base.year_of_birth", Prompt: "What year were you born?",
		Response: models.ResponseNumeric, Mandatory: true,
		Min: 1900, Max: 2030,
	},
	{
		ID: "base.sex", Prompt: "What is your sex?",
		Response: models.ResponseSingle, Mandatory: true,
		Options: []string{"female", "male", "other"},
	},
	{
		ID: "base.chronic", Prompt: "Do you have any of these long-term conditions?",
		Response: models.ResponseMulti, Mandatory: true,
		Options: []string{"diabetes", "hypertension", "cardiac", "asthma", "kidney_disease", "immunocompromised", "none"},
	},
	{
		ID: "base.medications", Prompt: "Which medicines do you take regularly?",
		Response: models.ResponseMulti, Mandatory: true,
		Options: []string{"blood_pressure", "diabetes", "anticoagulant", "inhaler", "other", "none"},
	},
	{
		ID: "base.allergies", Prompt: "Do you have any drug allergies?",
		Response: models.ResponseYesNo, Mandatory: true,
	},
	{
		ID: "base.allergy_list", Prompt: "Which drugs are you allergic to?",
		Response: models.ResponseText, Mandatory: false,
		Condition: func(a map[string]string) bool { return answeredYes(a, "base.allergies") },
	},
	{
		ID: "base.family", Prompt: "Any of these run in your close family?",
		Response: models.ResponseMulti, Mandatory: true,
		Options: []string{"heart_disease", "diabetes", "stroke", "cancer", "none"},
	},
	{
		ID: "base.smoking", Prompt: "Do you smoke?",
		Response: models.ResponseYesNo, Mandatory: true,
	},
}

// abbreviatedBaseline is the returning-patient reconfirmation set.
var abbreviatedBaseline = []Question{
	{
		ID: "base.confirm_conditions", Prompt: "Are your long-term conditions unchanged since last visit?",
		Response: models.ResponseYesNo, Mandatory: true,
	},
	{
		ID: "base.confirm_medications", Prompt: "Are your regular medicines unchanged?",
		Response: models.ResponseYesNo, Mandatory: true,
	},
	{
		ID: "base.new_allergies", Prompt: "Any new drug reactions since last visit?",
		Response: models.ResponseYesNo, Mandatory: true,
	},
}

// BaselineQuestions returns the questionnaire for the session: the full
// first-visit set, or the abbreviated reconfirmation set for returning
// patients.
func BaselineQuestions(isFirstTime bool) []Question {
	if isFirstTime {
		return fullBaseline
	}
	return abbreviatedBaseline
}

// BaselineComplete reports whether every applicable mandatory baseline
// question has an answer.
func BaselineComplete(isFirstTime bool, answers map[string]string) bool {
	for _, q := range BaselineQuestions(isFirstTime) {
		if !q.Mandatory {
			continue
		}
		if q.Condition != nil && !q.Condition(answers) {
			continue
		}
		if _, ok := answers[q.ID]; !ok {
			return false
		}
	}
	return true
}
