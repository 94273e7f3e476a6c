// Package genai generates clinical narrative notes from completed encounters
// using the OpenAI API. The note is an enrichment: callers must treat any
// failure here as degraded service and fall back to the rule-based output.
package genai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/BTreeMap/IntakePipe/internal/models"
)

// ErrNoChoicesReturned indicates the completion came back empty.
var ErrNoChoicesReturned = errors.New("no choices returned")

// chatService defines the minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// completionService adapts the OpenAI client to chatService.
type completionService struct {
	client openai.Client
}

func (s completionService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Opts holds configuration for the note generator.
type Opts struct {
	APIKey string
	Model  string
}

// Option configures Opts.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key explicitly instead of reading the
// environment.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the completion model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// Client generates clinical notes for completed encounters.
type Client struct {
	chat  chatService
	model string
}

// NewClient builds a note generator. The API key comes from the options or
// the OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	o := Opts{
		APIKey: os.Getenv("OPENAI_API_KEY"),
		Model:  openai.ChatModelGPT4oMini,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	cli := openai.NewClient(option.WithAPIKey(o.APIKey))
	return &Client{chat: completionService{client: cli}, model: o.Model}, nil
}

const noteSystemPrompt = `You are a clinical documentation assistant. From the
structured intake data below, write a concise clinical note in standard
narrative form: presenting complaint, history of present illness, relevant
history, and the triage assessment. Do not invent findings that are not in
the data. Do not give treatment advice.`

// ClinicalNote produces a narrative note for the encounter. The encounter
// should be complete; in-progress encounters produce a partial note.
func (c *Client) ClinicalNote(ctx context.Context, enc *models.Encounter) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(noteSystemPrompt),
			openai.UserMessage(encounterSummary(enc)),
		},
	}
	resp, err := c.chat.Create(ctx, params)
	if err != nil {
		return "", fmt.Errorf("generating clinical note: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoicesReturned
	}
	return resp.Choices[0].Message.Content, nil
}

// encounterSummary renders the encounter as deterministic plain text for the
// prompt. Answer keys are sorted so identical encounters produce identical
// prompts.
func encounterSummary(enc *models.Encounter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Encounter %s (status %s)\n", enc.ID, enc.Status)
	fmt.Fprintf(&b, "Presenting complaint: %s\n", enc.ComplaintType)
	if enc.ComplaintText != "" {
		fmt.Fprintf(&b, "In the patient's words: %s\n", enc.ComplaintText)
	}
	if enc.BodyLocation != "" {
		fmt.Fprintf(&b, "Primary location: %s\n", enc.BodyLocation)
	}
	for _, pp := range enc.PainPoints {
		fmt.Fprintf(&b, "Pain point: zone=%s intensity=%d/10", pp.ZoneID, pp.Intensity)
		if pp.Onset != "" {
			fmt.Fprintf(&b, " onset=%s", pp.Onset)
		}
		if pp.Primary {
			b.WriteString(" (primary)")
		}
		b.WriteString("\n")
	}

	if len(enc.Answers) > 0 {
		b.WriteString("Questionnaire answers:\n")
		keys := make([]string, 0, len(enc.Answers))
		for k := range enc.Answers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s: %s\n", k, enc.Answers[k])
		}
	}

	if len(enc.RedFlags) > 0 {
		fmt.Fprintf(&b, "Red flags: %s\n", strings.Join(enc.RedFlags, ", "))
	}

	if enc.Screening != nil && enc.Screening.AnyPositive {
		fmt.Fprintf(&b, "Emergency screening positive at checkpoint %s; intake was halted.\n",
			enc.Screening.FiredCheckpoint)
	}
	if t := enc.Triage; t != nil {
		fmt.Fprintf(&b, "Triage: urgency=%s score=%d timeframe=%s\n",
			t.Urgency, t.Score, t.Timeframe)
		for i, d := range t.Differentials {
			if i >= 3 {
				break
			}
			fmt.Fprintf(&b, "  Differential %d: %s (probability %s)\n", i+1, d.Condition, d.Probability)
		}
	}
	return b.String()
}
