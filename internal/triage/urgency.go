package triage

import "github.com/BTreeMap/IntakePipe/internal/models"

// Scoring constants. EmergencyScore is reserved for the screening
// short-circuit; accumulated scores cap just below it so a flagged emergency
// is always distinguishable from a computed one.
const (
	EmergencyScore = 100
	MaxAccumulated = 95

	emergencyBand  = 90
	urgentBand     = 70
	semiUrgentBand = 40
)

// associatedSymptomWeights is the fixed table of symptom contributions. The
// keys are symptom names derived from answer ids by symptomAnswers.
var associatedSymptomWeights = []struct {
	symptom string
	weight  int
	factor  string
}{
	{"loss_of_consciousness", 35, "loss-of-consciousness"},
	{"seizure", 30, "seizure"},
	{"confusion", 25, "confusion"},
	{"breathless_at_rest", 25, "breathless-at-rest"},
	{"coughing_blood", 20, "hemoptysis"},
	{"persistent_vomiting", 10, "persistent-vomiting"},
	{"rigors", 10, "rigors"},
}

// symptomAnswers maps affirmative answer ids to associated symptoms.
var symptomAnswers = map[string]string{
	"head.trauma_loc": "loss_of_consciousness",
	"fever.confusion": "confusion",
	"resp.at_rest":    "breathless_at_rest",
	"chest.breathless": "breathless_at_rest",
	"resp.cough_blood": "coughing_blood",
	"abd.vomiting":     "persistent_vomiting",
	"fever.rigors":     "rigors",
}

// scoreUrgency runs the weighted accumulation. Every rule that
// fires appends a named factor for auditability.
func scoreUrgency(f features) (models.UrgencyLevel, int, []string) {
	if f.emergency {
		return models.UrgencyEmergency, EmergencyScore, []string{"emergency-screening-positive"}
	}

	score := 0
	var factors []string
	add := func(points int, factor string) {
		score += points
		factors = append(factors, factor)
	}

	// Pain intensity bands.
	switch {
	case f.intensity >= 8:
		add(30, "severe-pain")
	case f.intensity >= 6:
		add(15, "moderate-pain")
	}

	// Location-specific patterns.
	switch f.region {
	case "chest":
		add(25, "chest-pain")
		if containsAny(f.radiation, "left-arm", "right-arm", "jaw") {
			add(20, "cardiac-pattern-radiation")
		}
		if containsAny(f.quality, "crushing", "pressure") {
			add(15, "crushing-chest-pain")
		}
	case "head":
		if f.suddenOnset && f.intensity >= 8 {
			add(40, "thunderclap-headache")
		}
	case "abdomen":
		if f.intensity >= 7 {
			add(20, "significant-abdominal-pain")
		}
		if answerYes(f.answers, "abd.blood") {
			add(30, "gi-bleeding-signals")
		}
	}

	// Sudden onset generally.
	if f.suddenOnset {
		add(10, "sudden-onset")
	}

	// Associated symptoms.
	present := map[string]bool{}
	for answerID, symptom := range symptomAnswers {
		if answerYes(f.answers, answerID) {
			present[symptom] = true
		}
	}
	for _, row := range associatedSymptomWeights {
		if present[row.symptom] {
			add(row.weight, row.factor)
		}
	}

	// History-interaction rules.
	if acct := f.account; acct != nil {
		if acct.HasCondition("cardiac") && f.region == "chest" {
			add(20, "cardiac-history-chest-pain")
		}
		if acct.HasCondition("diabetes") && present["confusion"] {
			add(15, "diabetic-confusion")
		}
		if acct.HasCondition("immunocompromised") && feverPresent(f) {
			add(15, "immunocompromised-fever")
		}
		if hasMedication(acct, "anticoagulant") && answerYes(f.answers, "abd.blood") {
			add(20, "anticoagulated-bleeding")
		}
	}

	// Age-band adjustments.
	switch {
	case f.age > 65:
		add(10, "age-over-65")
	case f.age >= 0 && f.age < 2:
		add(15, "age-under-2")
	case f.age >= 0 && f.age < 12:
		add(5, "age-under-12")
	}

	if score > MaxAccumulated {
		score = MaxAccumulated
	}
	return levelFor(score), score, factors
}

func feverPresent(f features) bool {
	if _, ok := f.answers["fever.temp"]; ok {
		return true
	}
	return answerYes(f.answers, "resp.fever")
}

func hasMedication(acct *models.PatientAccount, name string) bool {
	for _, m := range acct.Medications {
		if m == name {
			return true
		}
	}
	return false
}

// levelFor bands an accumulated score into an urgency level.
func levelFor(score int) models.UrgencyLevel {
	switch {
	case score >= emergencyBand:
		return models.UrgencyEmergency
	case score >= urgentBand:
		return models.UrgencyUrgent
	case score >= semiUrgentBand:
		return models.UrgencySemiUrgent
	default:
		return models.UrgencyRoutine
	}
}

// urgencyBand carries the fixed display message and recommended timeframe
// for one urgency level.
type urgencyBand struct {
	message     string
	messageUrdu string
	timeframe   string
}

var urgencyBands = map[models.UrgencyLevel]urgencyBand{
	models.UrgencyEmergency: {
		message:     "This needs emergency care. Call Rescue 1122 or go to the nearest emergency department immediately.",
		messageUrdu: "Yeh emergency hai. Foran Rescue 1122 call karein ya qareebi emergency mein jayein.",
		timeframe:   "immediately",
	},
	models.UrgencyUrgent: {
		message:     "You should be seen in an emergency department today.",
		messageUrdu: "Aap ko aaj hi emergency department mein dekha jana chahiye.",
		timeframe:   "within 4 hours",
	},
	models.UrgencySemiUrgent: {
		message:     "You should see a doctor soon.",
		messageUrdu: "Aap ko jald doctor se milna chahiye.",
		timeframe:   "within 24-48 hours",
	},
	models.UrgencyRoutine: {
		message:     "This can be handled at a routine appointment.",
		messageUrdu: "Yeh aam appointment par dekha ja sakta hai.",
		timeframe:   "within 1-2 weeks",
	},
}

func bandFor(u models.UrgencyLevel) urgencyBand {
	return urgencyBands[u]
}
