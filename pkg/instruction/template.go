// Package instruction implements the Prompt Template service (spec §4.7):
// named, versioned templates with `{{var}}` placeholder substitution,
// adapted from the teacher's pkg/instruction placeholder-resolution style.
package instruction

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/agentmesh/orchestrator/pkg/apperrors"
)

// placeholderRegex matches {{variable}} placeholders.
var placeholderRegex = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

// Version is one immutable revision of a template's text and variable
// defaults.
type Version struct {
	Text     string
	Defaults map[string]string
}

// PerformanceRecord is one metrics row recorded against a render's usage id.
type PerformanceRecord struct {
	UsageID string
	Metrics map[string]any
}

// template holds every version ever created for a template id, plus which
// one is currently active.
type template struct {
	versions []Version
	active   int // index into versions
}

// Service is the Prompt Template registry (spec §4.7).
type Service struct {
	templates   map[string]*template
	performance map[string][]PerformanceRecord
}

func NewService() *Service {
	return &Service{
		templates:   make(map[string]*template),
		performance: make(map[string][]PerformanceRecord),
	}
}

// CreateVersion adds a new version of templateID, retaining prior versions.
// When setActive is true the new version becomes the one Render uses.
func (s *Service) CreateVersion(templateID, text string, defaults map[string]string, setActive bool) int {
	t, ok := s.templates[templateID]
	if !ok {
		t = &template{}
		s.templates[templateID] = t
	}
	t.versions = append(t.versions, Version{Text: text, Defaults: defaults})
	versionIndex := len(t.versions) - 1
	if setActive || len(t.versions) == 1 {
		t.active = versionIndex
	}
	return versionIndex
}

// Render substitutes variables into templateID's active version. A variable
// absent from both variables and the version's defaults yields
// KindMissingVariable.
func (s *Service) Render(templateID string, variables map[string]string) (rendered string, usageID string, err error) {
	t, ok := s.templates[templateID]
	if !ok {
		return "", "", apperrors.New(apperrors.KindTemplateNotFound, "PromptTemplateService", "Render",
			"template "+templateID+" is not registered")
	}
	version := t.versions[t.active]

	var missing string
	result := placeholderRegex.ReplaceAllStringFunc(version.Text, func(match string) string {
		name := placeholderRegex.FindStringSubmatch(match)[1]
		if v, ok := variables[name]; ok {
			return v
		}
		if d, ok := version.Defaults[name]; ok {
			return d
		}
		missing = name
		return match
	})
	if missing != "" {
		return "", "", apperrors.New(apperrors.KindMissingVariable, "PromptTemplateService", "Render",
			"missing variable "+missing+" for template "+templateID)
	}

	return result, uuid.New().String(), nil
}

// RecordPerformance appends a metrics row keyed by usageID.
func (s *Service) RecordPerformance(usageID string, metrics map[string]any) {
	s.performance[usageID] = append(s.performance[usageID], PerformanceRecord{UsageID: usageID, Metrics: metrics})
}

// PerformanceFor returns every recorded metrics row for usageID.
func (s *Service) PerformanceFor(usageID string) []PerformanceRecord {
	return s.performance[usageID]
}

// HasPlaceholders reports whether text contains any {{var}} placeholder.
func HasPlaceholders(text string) bool {
	return placeholderRegex.MatchString(text)
}

// ListPlaceholders returns the distinct variable names referenced in text,
// in first-occurrence order.
func ListPlaceholders(text string) []string {
	matches := placeholderRegex.FindAllStringSubmatch(text, -1)
	seen := make(map[string]bool, len(matches))
	var names []string
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}
