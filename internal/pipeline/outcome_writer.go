package pipeline

import "pivottriage/pkg/models"

// OutcomeWriter delivers a run outcome.
type OutcomeWriter interface {
	WriteOutcome(outcome *models.Outcome) error
	Close() error
}

// NopWriter discards outcomes.
type NopWriter struct{}

func (NopWriter) WriteOutcome(*models.Outcome) error { return nil }

func (NopWriter) Close() error { return nil }
