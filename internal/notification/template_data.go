package notification

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/tphakala/trapwatch/internal/detection"
	"github.com/tphakala/trapwatch/internal/errors"
)

// Default templates, used when the settings leave them empty.
const (
	DefaultTitleTemplate   = "{{.Species}} on camera {{.CameraID}}"
	DefaultMessageTemplate = "{{.Species}} detected with {{.ConfidencePercent}}% confidence ({{.Quality}} quality) at {{.Time}}"
)

// PercentMultiplier converts confidence from 0-1 to a percentage.
const PercentMultiplier = 100

// TemplateData is the data available to title and message templates.
type TemplateData struct {
	Species           string
	CameraID          string
	Confidence        float64
	ConfidencePercent string
	Quality           string
	Time              string // capture time, local to the camera
	Date              string
	Reasons           string
}

// NewTemplateData builds template data for a decision.
func NewTemplateData(cameraID string, ts time.Time, d *detection.Decision) *TemplateData {
	return &TemplateData{
		Species:           d.Species,
		CameraID:          cameraID,
		Confidence:        d.Confidence,
		ConfidencePercent: fmt.Sprintf("%.0f", d.Confidence*PercentMultiplier),
		Quality:           string(d.Quality),
		Time:              ts.Format(time.TimeOnly),
		Date:              ts.Format(time.DateOnly),
		Reasons:           strings.Join(d.Reasons, ", "),
	}
}

// Renderer renders notification titles and messages.
type Renderer struct {
	title   *template.Template
	message *template.Template
}

// NewRenderer parses the templates. Empty strings select the defaults.
func NewRenderer(title, message string) (*Renderer, error) {
	if title == "" {
		title = DefaultTitleTemplate
	}
	if message == "" {
		message = DefaultMessageTemplate
	}
	t, err := parse("title", title)
	if err != nil {
		return nil, err
	}
	m, err := parse("message", message)
	if err != nil {
		return nil, err
	}
	return &Renderer{title: t, message: m}, nil
}

func parse(name, text string) (*template.Template, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, errors.New(err).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Context("template", name).
			Build()
	}
	return t, nil
}

// Render executes both templates.
func (r *Renderer) Render(data *TemplateData) (title, message string, err error) {
	var b strings.Builder
	if err := r.title.Execute(&b, data); err != nil {
		return "", "", errors.New(err).Component("notification").Category(errors.CategoryNotification).Build()
	}
	title = b.String()

	b.Reset()
	if err := r.message.Execute(&b, data); err != nil {
		return "", "", errors.New(err).Component("notification").Category(errors.CategoryNotification).Build()
	}
	return title, b.String(), nil
}
