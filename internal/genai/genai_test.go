package genai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"

	"github.com/BTreeMap/IntakePipe/internal/models"
)

// mockChatService implements chatService for testing.
type mockChatService struct {
	resp   openai.ChatCompletion
	err    error
	params openai.ChatCompletionNewParams
}

func (m *mockChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	m.params = params
	return m.resp, m.err
}

func sampleEncounter() *models.Encounter {
	return &models.Encounter{
		ID:            "enc_1",
		PatientID:     "p1",
		Status:        models.EncounterStatusComplete,
		ComplaintType: models.ComplaintPain,
		ComplaintText: "chest tightness since breakfast",
		BodyLocation:  "chest.center",
		PainPoints: []models.PainPoint{
			{ZoneID: "chest.center", Intensity: 8, Onset: "sudden", Primary: true},
		},
		Answers: map[string]string{
			"chest.quality":  "crushing",
			"chest.duration": "under_1_hour",
		},
		RedFlags: []string{"diaphoresis"},
	}
}

func TestClinicalNote_Success(t *testing.T) {
	mock := &mockChatService{
		resp: openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "Patient presents with chest pain."}},
			},
		},
	}
	client := &Client{chat: mock, model: openai.ChatModelGPT4oMini}
	note, err := client.ClinicalNote(context.Background(), sampleEncounter())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if note != "Patient presents with chest pain." {
		t.Errorf("unexpected note: %q", note)
	}
	if mock.params.Model != openai.ChatModelGPT4oMini {
		t.Errorf("unexpected model: %v", mock.params.Model)
	}
}

func TestClinicalNote_ServiceError(t *testing.T) {
	client := &Client{chat: &mockChatService{err: errors.New("service failure")}}
	_, err := client.ClinicalNote(context.Background(), sampleEncounter())
	if err == nil || !strings.Contains(err.Error(), "service failure") {
		t.Errorf("expected service failure error, got %v", err)
	}
}

func TestClinicalNote_NoChoices(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: openai.ChatCompletion{}}}
	_, err := client.ClinicalNote(context.Background(), sampleEncounter())
	if !errors.Is(err, ErrNoChoicesReturned) {
		t.Errorf("expected no choices returned error, got %v", err)
	}
}

func TestNewClient_NoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewClient(); err == nil {
		t.Error("expected error when API key not provided, got nil")
	}
}

func TestNewClient_WithKey(t *testing.T) {
	cli, err := NewClient(WithAPIKey("test-key"), WithModel("gpt-4o"))
	if err != nil {
		t.Fatalf("expected no error with API key, got %v", err)
	}
	if cli == nil || cli.model != "gpt-4o" {
		t.Errorf("expected configured client, got %+v", cli)
	}
}

func TestEncounterSummaryIsDeterministic(t *testing.T) {
	enc := sampleEncounter()
	first := encounterSummary(enc)
	for i := 0; i < 10; i++ {
		if got := encounterSummary(enc); got != first {
			t.Fatal("summary ordering must be deterministic")
		}
	}
	for _, want := range []string{
		"chest.center", "crushing", "diaphoresis", "chest tightness since breakfast", "8/10",
	} {
		if !strings.Contains(first, want) {
			t.Errorf("summary missing %q:\n%s", want, first)
		}
	}
}

func TestEncounterSummaryIncludesTriage(t *testing.T) {
	enc := sampleEncounter()
	enc.Triage = &models.TriageResult{
		Urgency:   models.UrgencyEmergency,
		Score:     95,
		Timeframe: "immediately",
		Differentials: []models.Differential{
			{Condition: "Acute coronary syndrome (URGENT)", Probability: models.ProbabilityHigh},
		},
	}
	sum := encounterSummary(enc)
	if !strings.Contains(sum, "urgency=emergency") || !strings.Contains(sum, "score=95") {
		t.Errorf("summary missing triage line:\n%s", sum)
	}
	if !strings.Contains(sum, "Acute coronary syndrome") {
		t.Errorf("summary missing differential:\n%s", sum)
	}
}
