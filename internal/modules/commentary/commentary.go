// Package commentary turns a diagnosis into readable analysis, either
// generated by a Gemini model or assembled from local rule bands.
package commentary

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/modules/diagnosis"
)

// Source values of a Commentary.
const (
	SourceAI    = "ai"
	SourceLocal = "local"
)

// Commentary is the rendered analysis of one instrument.
type Commentary struct {
	InstrumentID string              `json:"instrument_id"`
	Name         string              `json:"name"`
	Source       string              `json:"source"`
	Markdown     string              `json:"markdown"`
	Diagnosis    diagnosis.Diagnosis `json:"diagnosis"`
}

// Generator writes commentary for a diagnosis.
type Generator interface {
	Generate(ctx context.Context, name string, d diagnosis.Diagnosis) (string, error)
}

// Local renders the rule-based report.
type Local struct{}

// Generate implements Generator.
func (Local) Generate(_ context.Context, name string, d diagnosis.Diagnosis) (string, error) {
	return diagnosis.LocalReport(d).Markdown(name), nil
}

// Diagnoser scores an instrument.
type Diagnoser interface {
	Diagnose(ctx context.Context, code string) (diagnosis.Diagnosis, error)
}

// NameLookup resolves a display name for a code.
type NameLookup interface {
	Name(ctx context.Context, code string) string
}

// Service produces commentary. With an AI generator configured it is tried
// first and the local report is used when it fails.
type Service struct {
	diagnoser Diagnoser
	names     NameLookup
	ai        Generator
	local     Generator
	log       zerolog.Logger
}

// NewService creates the commentary service. ai may be nil.
func NewService(diagnoser Diagnoser, names NameLookup, ai Generator, log zerolog.Logger) *Service {
	return &Service{
		diagnoser: diagnoser,
		names:     names,
		ai:        ai,
		local:     Local{},
		log:       log.With().Str("service", "commentary").Logger(),
	}
}

// AIEnabled reports whether an AI generator is configured.
func (s *Service) AIEnabled() bool {
	return s.ai != nil
}

// Comment diagnoses code and renders commentary. Insufficient history is
// returned as an error for the caller to report.
func (s *Service) Comment(ctx context.Context, code string) (Commentary, error) {
	d, err := s.diagnoser.Diagnose(ctx, code)
	if err != nil {
		return Commentary{}, err
	}

	name := code
	if s.names != nil {
		if n := s.names.Name(ctx, code); n != "" {
			name = n
		}
	}

	out := Commentary{InstrumentID: code, Name: name, Diagnosis: d}
	if s.ai != nil {
		text, err := s.ai.Generate(ctx, name, d)
		if err == nil && text != "" {
			out.Source = SourceAI
			out.Markdown = text
			return out, nil
		}
		s.log.Warn().Err(err).Str("code", code).Msg("AI commentary failed, using local report")
	}

	text, err := s.local.Generate(ctx, name, d)
	if err != nil {
		return Commentary{}, fmt.Errorf("failed to render local report: %w", err)
	}
	out.Source = SourceLocal
	out.Markdown = text
	return out, nil
}
