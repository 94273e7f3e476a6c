// Package report renders the clinician-facing PDF summary for a completed
// encounter: demographics, screening outcome, pain map, triage assessment,
// differential, red flags, and recommendations.
package report

import (
	"bytes"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/signintech/gopdf"

	"github.com/BTreeMap/IntakePipe/internal/models"
)

const (
	pageTextWidth = 500
	lineHeight    = 12
)

// defaultFontPaths covers the common Linux locations for DejaVu Sans.
var defaultFontPaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
}

// Opts holds configuration for the report generator.
type Opts struct {
	FontPaths []string
}

// Option configures Opts.
type Option func(*Opts)

// WithFontPath prepends an explicit TTF font path to the candidate list.
func WithFontPath(path string) Option {
	return func(o *Opts) { o.FontPaths = append([]string{path}, o.FontPaths...) }
}

// Generator renders encounter reports.
type Generator struct {
	fontPaths []string
	now       func() time.Time
}

// NewGenerator returns a report generator.
func NewGenerator(opts ...Option) *Generator {
	o := Opts{FontPaths: defaultFontPaths}
	for _, opt := range opts {
		opt(&o)
	}
	return &Generator{fontPaths: o.FontPaths, now: time.Now}
}

// Render produces the PDF for one encounter. account may be nil when the
// patient has no stored baseline. note is the optional generated clinical
// narrative; pass "" to omit the section.
func (g *Generator) Render(enc *models.Encounter, account *models.PatientAccount, note string) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := g.loadFont(&pdf); err != nil {
		return nil, err
	}

	w := &writer{pdf: &pdf}
	w.heading(18, "Intake Summary")
	w.line(10, fmt.Sprintf("Generated %s", g.now().UTC().Format("2006-01-02 15:04 UTC")))
	w.gap(10)

	g.patientSection(w, enc, account)
	g.screeningSection(w, enc)
	g.complaintSection(w, enc)
	g.triageSection(w, enc)
	if note != "" {
		w.heading(14, "Clinical note")
		w.paragraph(11, note)
	}
	if w.err != nil {
		return nil, w.err
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("writing PDF: %w", err)
	}
	slog.Info("Generator.Render: report rendered", "encounter", enc.ID, "bytes", buf.Len())
	return buf.Bytes(), nil
}

func (g *Generator) loadFont(pdf *gopdf.GoPdf) error {
	var lastErr error
	for _, path := range g.fontPaths {
		if err := pdf.AddTTFFont("body", path); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return fmt.Errorf("no usable TTF font found: %w", lastErr)
}

func (g *Generator) patientSection(w *writer, enc *models.Encounter, account *models.PatientAccount) {
	w.heading(14, "Patient")
	w.line(11, fmt.Sprintf("Patient ID: %s", enc.PatientID))
	w.line(11, fmt.Sprintf("Encounter: %s (%s)", enc.ID, enc.Status))
	if account != nil {
		if age := account.Age(g.now()); age > 0 {
			w.line(11, fmt.Sprintf("Age: %d", age))
		}
		if account.Sex != "" {
			w.line(11, fmt.Sprintf("Sex: %s", account.Sex))
		}
		if len(account.ChronicConditions) > 0 {
			w.line(11, fmt.Sprintf("Chronic conditions: %s", strings.Join(account.ChronicConditions, ", ")))
		}
		if len(account.Medications) > 0 {
			w.line(11, fmt.Sprintf("Medications: %s", strings.Join(account.Medications, ", ")))
		}
	}
	w.gap(8)
}

func (g *Generator) screeningSection(w *writer, enc *models.Encounter) {
	w.heading(14, "Emergency screening")
	switch {
	case enc.Screening == nil:
		w.line(11, "Not performed.")
	case enc.Screening.AnyPositive:
		w.line(11, fmt.Sprintf("POSITIVE at checkpoint %q. Intake halted; patient directed to emergency services.",
			enc.Screening.FiredCheckpoint))
	case enc.Screening.ScreeningCompleted:
		w.line(11, "All checkpoints negative.")
	default:
		w.line(11, "Incomplete.")
	}
	w.gap(8)
}

func (g *Generator) complaintSection(w *writer, enc *models.Encounter) {
	w.heading(14, "Presenting complaint")
	w.line(11, fmt.Sprintf("Type: %s", enc.ComplaintType))
	if enc.ComplaintText != "" {
		w.paragraph(11, fmt.Sprintf("Patient's description: %s", enc.ComplaintText))
	}
	for _, pp := range enc.PainPoints {
		label := fmt.Sprintf("Pain: %s, intensity %d/10", pp.ZoneID, pp.Intensity)
		if pp.Onset != "" {
			label += ", onset " + pp.Onset
		}
		if pp.Primary {
			label += " (primary)"
		}
		w.line(11, label)
	}

	if len(enc.Answers) > 0 {
		w.gap(4)
		w.line(11, "Questionnaire:")
		keys := make([]string, 0, len(enc.Answers))
		for k := range enc.Answers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			w.line(10, fmt.Sprintf("  %s: %s", k, enc.Answers[k]))
		}
	}
	w.gap(8)
}

func (g *Generator) triageSection(w *writer, enc *models.Encounter) {
	t := enc.Triage
	if t == nil {
		return
	}
	w.heading(14, "Triage assessment")
	w.line(11, fmt.Sprintf("Urgency: %s (score %d) - %s", t.Urgency, t.Score, t.Timeframe))
	if len(t.Factors) > 0 {
		w.paragraph(10, "Factors: "+strings.Join(t.Factors, ", "))
	}

	if len(t.Differentials) > 0 {
		w.gap(4)
		w.line(11, "Differential:")
		for i, d := range t.Differentials {
			entry := fmt.Sprintf("  %d. %s (probability %s", i+1, d.Condition, d.Probability)
			if d.Urgency != "" {
				entry += ", urgency " + string(d.Urgency)
			}
			entry += ")"
			w.line(10, entry)
		}
	}

	if len(t.RedFlags) > 0 {
		w.gap(4)
		w.line(11, "Red flags:")
		for _, rf := range t.RedFlags {
			w.line(10, fmt.Sprintf("  %s - %s (%s)", rf.Flag, rf.Significance, rf.Action))
		}
	}

	if len(t.Recommendations) > 0 {
		w.gap(4)
		w.line(11, "Recommendations:")
		for _, rec := range t.Recommendations {
			w.paragraph(10, fmt.Sprintf("  %d. %s", rec.Priority, rec.Text))
		}
	}

	if len(t.NextSteps) > 0 {
		w.gap(4)
		w.line(11, "Next steps:")
		for _, step := range t.NextSteps {
			entry := "  - " + step.Step
			if step.Reason != "" {
				entry += ": " + step.Reason
			}
			w.line(10, entry)
		}
	}
	w.gap(8)
}

// writer wraps gopdf with sticky error handling so sections read linearly.
type writer struct {
	pdf *gopdf.GoPdf
	err error
}

func (w *writer) setFont(size int) {
	if w.err != nil {
		return
	}
	w.err = w.pdf.SetFont("body", "", size)
}

func (w *writer) heading(size int, text string) {
	w.setFont(size)
	if w.err != nil {
		return
	}
	w.pdf.Cell(nil, text)
	w.pdf.Br(float64(size) + 6)
}

func (w *writer) line(size int, text string) {
	w.setFont(size)
	if w.err != nil {
		return
	}
	w.pdf.Cell(nil, text)
	w.pdf.Br(lineHeight + 3)
}

// paragraph wraps long text to the page width.
func (w *writer) paragraph(size int, text string) {
	w.setFont(size)
	if w.err != nil {
		return
	}
	lines, err := w.pdf.SplitText(text, pageTextWidth)
	if err != nil {
		// Unsplittable text still renders as a single overflowing line.
		lines = []string{text}
	}
	for _, l := range lines {
		w.pdf.Cell(nil, l)
		w.pdf.Br(lineHeight)
	}
	w.pdf.Br(3)
}

func (w *writer) gap(h float64) {
	if w.err != nil {
		return
	}
	w.pdf.Br(h)
}
