package triage

import (
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/IntakePipe/internal/models"
)

func chestEncounter(intensity int, onset string, quality, radiation []string) *models.Encounter {
	return &models.Encounter{
		ID:            "enc_test",
		PatientID:     "p1",
		ComplaintType: models.ComplaintPain,
		PainPoints: []models.PainPoint{{
			ZoneID:    "chest.center",
			Intensity: intensity,
			Onset:     onset,
			Quality:   quality,
			Radiation: radiation,
			Primary:   true,
		}},
		Screening: &models.ScreeningResult{ScreeningCompleted: true},
	}
}

func accountWithAge(age int) *models.PatientAccount {
	return &models.PatientAccount{
		PatientID:   "p1",
		YearOfBirth: time.Now().Year() - age,
	}
}

func TestClassicCardiacScenario(t *testing.T) {
	// Age 55, chest pain intensity 8, sudden onset, crushing+pressure,
	// radiation to left arm and jaw.
	enc := chestEncounter(8, "sudden", []string{"crushing", "pressure"}, []string{"left-arm", "jaw"})
	result := NewEngine().Analyze(enc, accountWithAge(55))

	if result.Urgency != models.UrgencyEmergency {
		t.Errorf("expected urgency emergency, got %q", result.Urgency)
	}
	if result.Score != 95 {
		t.Errorf("expected score 95, got %d", result.Score)
	}
	wantFactors := []string{"cardiac-pattern-radiation", "crushing-chest-pain"}
	for _, want := range wantFactors {
		if !containsFactor(result.Factors, want) {
			t.Errorf("expected factor %q in %v", want, result.Factors)
		}
	}
	if len(result.Differentials) == 0 {
		t.Fatal("expected differentials")
	}
	top := result.Differentials[0]
	if top.Condition != "Acute coronary syndrome (URGENT)" {
		t.Errorf("expected ACS on top, got %q", top.Condition)
	}
	if top.Urgency != models.UrgencyEmergency {
		t.Errorf("expected top differential urgency emergency, got %q", top.Urgency)
	}
}

func TestEmergencyFlagShortCircuits(t *testing.T) {
	enc := chestEncounter(2, "gradual", nil, nil)
	enc.Screening = &models.ScreeningResult{
		AnyPositive:        true,
		FiredCheckpoint:    "chest_pain_now",
		RecommendedAction:  "call_1122",
		ScreeningCompleted: true,
	}
	result := NewEngine().Analyze(enc, nil)

	if result.Urgency != models.UrgencyEmergency {
		t.Errorf("expected urgency emergency, got %q", result.Urgency)
	}
	if result.Score != EmergencyScore {
		t.Errorf("expected score %d, got %d", EmergencyScore, result.Score)
	}
	if len(result.Factors) != 1 || result.Factors[0] != "emergency-screening-positive" {
		t.Errorf("short-circuit must not accumulate other factors, got %v", result.Factors)
	}
}

func TestSevereChestWithRadiationAtLeastUrgent(t *testing.T) {
	// Property: intensity >=8, chest, radiation to arm/jaw -> score >=55
	// and at least urgent, with no other contributions required.
	for _, radiation := range [][]string{{"left-arm"}, {"jaw"}, {"right-arm"}} {
		enc := chestEncounter(8, "gradual", nil, radiation)
		result := NewEngine().Analyze(enc, nil)
		if result.Score < 55 {
			t.Errorf("radiation %v: expected score >=55, got %d", radiation, result.Score)
		}
		if models.UrgencyRank(result.Urgency) < models.UrgencyRank(models.UrgencyUrgent) {
			t.Errorf("radiation %v: expected at least urgent, got %q", radiation, result.Urgency)
		}
	}
}

func TestDifferentialOrdering(t *testing.T) {
	enc := chestEncounter(8, "sudden", []string{"crushing"}, []string{"left-arm"})
	enc.Answers = map[string]string{"chest.breathless": "yes"}
	result := NewEngine().Analyze(enc, nil)

	for i := 1; i < len(result.Differentials); i++ {
		prev, cur := result.Differentials[i-1], result.Differentials[i]
		pu, cu := models.UrgencyRank(prev.Urgency), models.UrgencyRank(cur.Urgency)
		if pu < cu {
			t.Errorf("entry %d (%s) outranks predecessor (%s) on urgency", i, cur.Condition, prev.Condition)
		}
		if pu == cu && models.ProbabilityRank(prev.Probability) < models.ProbabilityRank(cur.Probability) {
			t.Errorf("entry %d (%s) outranks predecessor (%s) on probability", i, cur.Condition, prev.Condition)
		}
	}
}

func TestStableSortPreservesInsertionOrder(t *testing.T) {
	list := []models.Differential{
		{Condition: "first", Probability: models.ProbabilityModerate},
		{Condition: "second", Probability: models.ProbabilityModerate},
		{Condition: "third", Probability: models.ProbabilityModerate},
	}
	ranked := rankDifferentials(list)
	if ranked[0].Condition != "first" || ranked[1].Condition != "second" || ranked[2].Condition != "third" {
		t.Errorf("equal-rank entries must keep insertion order, got %v", ranked)
	}
}

func TestHistoryInteractionRules(t *testing.T) {
	enc := chestEncounter(4, "gradual", nil, nil)
	acct := accountWithAge(60)
	acct.ChronicConditions = []string{"cardiac"}
	result := NewEngine().Analyze(enc, acct)

	if !containsFactor(result.Factors, "cardiac-history-chest-pain") {
		t.Errorf("expected cardiac-history-chest-pain factor, got %v", result.Factors)
	}

	// Anticoagulated GI bleeding.
	abd := &models.Encounter{
		PatientID: "p1",
		PainPoints: []models.PainPoint{{
			ZoneID: "abdomen.epigastric", Intensity: 5, Primary: true,
		}},
		Answers:   map[string]string{"abd.blood": "yes"},
		Screening: &models.ScreeningResult{ScreeningCompleted: true},
	}
	acct2 := accountWithAge(70)
	acct2.Medications = []string{"anticoagulant"}
	result2 := NewEngine().Analyze(abd, acct2)
	if !containsFactor(result2.Factors, "anticoagulated-bleeding") {
		t.Errorf("expected anticoagulated-bleeding factor, got %v", result2.Factors)
	}
	if !containsFactor(result2.Factors, "age-over-65") {
		t.Errorf("expected age-over-65 factor, got %v", result2.Factors)
	}
}

func TestAgeBands(t *testing.T) {
	cases := []struct {
		age    int
		factor string
	}{
		{80, "age-over-65"},
		{1, "age-under-2"},
		{8, "age-under-12"},
	}
	for _, c := range cases {
		enc := chestEncounter(3, "gradual", nil, nil)
		result := NewEngine().Analyze(enc, accountWithAge(c.age))
		if !containsFactor(result.Factors, c.factor) {
			t.Errorf("age %d: expected factor %q, got %v", c.age, c.factor, result.Factors)
		}
	}
}

func TestRecommendationShape(t *testing.T) {
	enc := chestEncounter(4, "gradual", nil, nil)
	result := NewEngine().Analyze(enc, nil)

	if len(result.Recommendations) < 3 {
		t.Fatalf("expected at least 3 recommendations, got %d", len(result.Recommendations))
	}
	if result.Recommendations[0].Priority != 1 {
		t.Error("first recommendation must be the priority-1 primary action")
	}
	last := result.Recommendations[len(result.Recommendations)-1]
	if last.Priority != 4 {
		t.Errorf("safety-net recommendation must be last, got priority %d", last.Priority)
	}
	// OTC guidance only for intensity <= 5.
	severe := chestEncounter(9, "gradual", nil, nil)
	severeResult := NewEngine().Analyze(severe, nil)
	for _, rec := range severeResult.Recommendations {
		if rec.Priority == 3 && strings.Contains(rec.Text, "Over-the-counter") {
			t.Error("OTC guidance must not appear for intensity > 5")
		}
	}
}

func TestNextStepsKeywordGating(t *testing.T) {
	enc := chestEncounter(8, "sudden", []string{"crushing"}, []string{"jaw"})
	result := NewEngine().Analyze(enc, nil)

	if result.NextSteps[0].Step != "emergency_services" {
		t.Errorf("expected emergency_services first step, got %q", result.NextSteps[0].Step)
	}
	if !hasStep(result.NextSteps, "cardiac_workup") {
		t.Errorf("expected cardiac_workup step, got %v", result.NextSteps)
	}

	head := &models.Encounter{
		PatientID: "p1",
		PainPoints: []models.PainPoint{{
			ZoneID: "head.front", Intensity: 9, Onset: "sudden", Primary: true,
		}},
		Screening: &models.ScreeningResult{ScreeningCompleted: true},
	}
	headResult := NewEngine().Analyze(head, nil)
	if !hasStep(headResult.NextSteps, "neuroimaging") {
		t.Errorf("expected neuroimaging step for hemorrhage differential, got %v", headResult.NextSteps)
	}

	abd := &models.Encounter{
		PatientID: "p1",
		PainPoints: []models.PainPoint{{
			ZoneID: "abdomen.center", Intensity: 5, Primary: true,
		}},
		Answers:   map[string]string{"abd.rigid": "yes"},
		Screening: &models.ScreeningResult{ScreeningCompleted: true},
	}
	abdResult := NewEngine().Analyze(abd, nil)
	if !hasStep(abdResult.NextSteps, "surgical_consult") {
		t.Errorf("expected surgical_consult for top-ranked surgical differential, got %v", abdResult.NextSteps)
	}
}

func TestAnalyzeDoesNotMutateEncounter(t *testing.T) {
	enc := chestEncounter(8, "sudden", []string{"crushing"}, []string{"jaw"})
	before := len(enc.PainPoints)
	_ = NewEngine().Analyze(enc, nil)
	if enc.Triage != nil {
		t.Error("Analyze must not attach results to its input")
	}
	if len(enc.PainPoints) != before {
		t.Error("Analyze must not mutate pain points")
	}
}

func containsFactor(factors []string, want string) bool {
	for _, f := range factors {
		if f == want {
			return true
		}
	}
	return false
}

func hasStep(steps []models.NextStep, name string) bool {
	for _, s := range steps {
		if s.Step == name {
			return true
		}
	}
	return false
}
