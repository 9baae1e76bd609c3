// Package gdpr implements explicit personal-data processing records. The
// original system recorded these via a decorator wrapped around handler
// functions; per spec.md §REDESIGN FLAGS that is replaced here with an
// explicit call at each entry point that touches personal data — silent
// decoration is easy to forget to apply to a new handler, an explicit call
// is not.
package gdpr

import (
	"context"
	"time"

	"github.com/careerhub/hub/internal/events"
)

// DataCategory classifies the kind of personal data processed.
type DataCategory string

const (
	CategoryEnergyData       DataCategory = "energy_data"
	CategoryGeneratedContent DataCategory = "generated_content"
	CategoryBehavioral       DataCategory = "behavioral"
	CategoryCommunication    DataCategory = "communication"
	CategoryTechnical        DataCategory = "technical"
)

// ProcessingPurpose states why the data is processed.
type ProcessingPurpose string

const (
	PurposeServiceProvision ProcessingPurpose = "service_provision"
	PurposeAnalytics        ProcessingPurpose = "analytics"
	PurposeSecurity         ProcessingPurpose = "security"
)

// Record is one logged instance of personal-data processing.
type Record struct {
	UserID            string
	Category          DataCategory
	Purpose           ProcessingPurpose
	Fields            []string
	LegalBasis        string
	RetentionDays     int
	ConsentRequired   bool
	AutomatedDecision bool
	ThirdPartySharing bool
	RecordedAt        time.Time
}

// Recorder writes processing records into the event log, making them
// subject to the same retention and export tooling as any other event.
type Recorder struct {
	sink events.Sink
}

// New constructs a Recorder.
func New(sink events.Sink) *Recorder {
	return &Recorder{sink: sink}
}

// RecordProcessing logs a single personal-data processing instance. Callers
// invoke this directly at the point they touch personal data; it is not a
// decorator and nothing calls it implicitly.
func (r *Recorder) RecordProcessing(ctx context.Context, userID string, category DataCategory, purpose ProcessingPurpose, fields []string, opts ...Option) error {
	rec := Record{
		UserID:        userID,
		Category:      category,
		Purpose:       purpose,
		Fields:        fields,
		LegalBasis:    "legitimate_interest",
		RetentionDays: 365,
		RecordedAt:    time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&rec)
	}

	if r.sink == nil {
		return nil
	}
	_, err := r.sink.Record(ctx, events.TypeDataProcessingRecorded, userID, map[string]interface{}{
		"category":           string(rec.Category),
		"purpose":            string(rec.Purpose),
		"fields":             rec.Fields,
		"legal_basis":        rec.LegalBasis,
		"retention_days":     rec.RetentionDays,
		"consent_required":   rec.ConsentRequired,
		"automated_decision": rec.AutomatedDecision,
		"third_party_share":  rec.ThirdPartySharing,
	}, nil)
	return err
}

// Option customizes a processing Record away from its defaults.
type Option func(*Record)

// WithLegalBasis overrides the default "legitimate_interest" basis.
func WithLegalBasis(basis string) Option {
	return func(r *Record) { r.LegalBasis = basis }
}

// WithRetentionDays overrides the default 365-day retention period.
func WithRetentionDays(days int) Option {
	return func(r *Record) { r.RetentionDays = days }
}

// WithConsentRequired marks the processing as requiring consent.
func WithConsentRequired() Option {
	return func(r *Record) { r.ConsentRequired = true }
}

// WithAutomatedDecision marks the processing as an automated decision (e.g.
// AI-generated content), relevant for GDPR Art. 22 disclosures.
func WithAutomatedDecision() Option {
	return func(r *Record) { r.AutomatedDecision = true }
}

// WithThirdPartySharing marks the processing as sharing data with a third
// party (e.g. the AI or payment provider).
func WithThirdPartySharing() Option {
	return func(r *Record) { r.ThirdPartySharing = true }
}
