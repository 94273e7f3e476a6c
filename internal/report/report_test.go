package report

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/BTreeMap/IntakePipe/internal/models"
)

func hasSystemFont() bool {
	for _, p := range defaultFontPaths {
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	return false
}

func sampleEncounter() *models.Encounter {
	now := time.Now().UTC()
	return &models.Encounter{
		ID:            "enc_report_test",
		PatientID:     "p1",
		Status:        models.EncounterStatusComplete,
		ComplaintType: models.ComplaintPain,
		ComplaintText: "crushing chest pain for the last hour",
		BodyLocation:  "chest.center",
		PainPoints: []models.PainPoint{
			{ZoneID: "chest.center", Intensity: 8, Onset: "sudden", Primary: true},
		},
		Answers: map[string]string{
			"chest.quality":   "crushing",
			"chest.radiation": "left_arm",
		},
		Screening: &models.ScreeningResult{ScreeningCompleted: true},
		Triage: &models.TriageResult{
			Urgency:   models.UrgencyEmergency,
			Score:     95,
			Timeframe: "immediately",
			Factors:   []string{"crushing-chest-pain", "cardiac-pattern-radiation"},
			Differentials: []models.Differential{
				{Condition: "Acute coronary syndrome (URGENT)", Probability: models.ProbabilityHigh, Urgency: models.UrgencyEmergency},
			},
			RedFlags: []models.RedFlag{
				{Flag: "crushing chest pain", Significance: "possible myocardial infarction", Action: "call emergency services"},
			},
			Recommendations: []models.Recommendation{
				{Priority: 1, Text: "Call emergency services now."},
				{Priority: 4, Text: "Return immediately if symptoms worsen."},
			},
			NextSteps: []models.NextStep{
				{Step: "emergency_services", Reason: "urgency level emergency"},
				{Step: "cardiac_workup", Reason: "cardiac condition in differential"},
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestRenderProducesPDF(t *testing.T) {
	if !hasSystemFont() {
		t.Skip("no DejaVu font installed")
	}
	g := NewGenerator()
	account := &models.PatientAccount{
		PatientID:         "p1",
		YearOfBirth:       1971,
		Sex:               "male",
		ChronicConditions: []string{"hypertension"},
		Medications:       []string{"amlodipine"},
	}

	data, err := g.Render(sampleEncounter(), account, "Patient presented with acute chest pain.")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("output does not look like a PDF: % x", data[:8])
	}
	if len(data) < 1000 {
		t.Errorf("suspiciously small PDF: %d bytes", len(data))
	}
}

func TestRenderWithoutAccountOrNote(t *testing.T) {
	if !hasSystemFont() {
		t.Skip("no DejaVu font installed")
	}
	g := NewGenerator()
	data, err := g.Render(sampleEncounter(), nil, "")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected PDF bytes")
	}
}

func TestRenderFailsWithoutFont(t *testing.T) {
	g := NewGenerator()
	g.fontPaths = []string{"/nonexistent/font.ttf"}
	if _, err := g.Render(sampleEncounter(), nil, ""); err == nil {
		t.Error("expected font loading error")
	}
}

func TestWithFontPathTakesPrecedence(t *testing.T) {
	g := NewGenerator(WithFontPath("/custom/font.ttf"))
	if g.fontPaths[0] != "/custom/font.ttf" {
		t.Errorf("custom font path not first: %v", g.fontPaths)
	}
	if len(g.fontPaths) != len(defaultFontPaths)+1 {
		t.Errorf("default paths must remain as fallback: %v", g.fontPaths)
	}
}
