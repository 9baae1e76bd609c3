// Package keymanager tracks the age and rotation state of third-party
// provider credentials (spec §4.D). It never persists a secret itself —
// only a short SHA256 prefix, used to detect when the environment-backed
// value has changed.
package keymanager

import "time"

// Health is the status a provider's credential is reported under.
type Health string

const (
	HealthHealthy  Health = "healthy"
	HealthWarn     Health = "warn"
	HealthCritical Health = "critical"
	HealthMissing  Health = "missing"
)

// Thresholds configures how long a provider's credential may go
// unrotated before it's reported warn/critical.
type Thresholds struct {
	WarnDays   int
	RotateDays int
}

// Info is the metadata tracked for one provider's credential. The secret
// itself is never a field here.
type Info struct {
	Provider      string
	KeyID         string
	HashPrefix    string
	FirstSeenAt   time.Time
	LastUsedAt    time.Time
	RotationCount int
	Active        bool
}

// Status summarizes one provider's rotation health for the admin surface.
type Status struct {
	Provider       string
	Health         Health
	AgeDays        int
	DaysToRotation int
	RotationCount  int
	LastUsedAt     time.Time
	ActionRequired string
}

// Well-known providers (spec §4.D; rotation windows grounded on the
// original implementation's per-provider config).
const (
	ProviderDatabase = "database"
	ProviderAI       = "ai_provider"
	ProviderBilling  = "payment_provider"
	ProviderStorage  = "object_storage"
)

// DefaultThresholds returns the Hub's baseline rotation windows per
// provider.
func DefaultThresholds() map[string]Thresholds {
	return map[string]Thresholds{
		ProviderDatabase: {RotateDays: 90, WarnDays: 7},
		ProviderAI:       {RotateDays: 30, WarnDays: 3},
		ProviderBilling:  {RotateDays: 180, WarnDays: 14},
		ProviderStorage:  {RotateDays: 365, WarnDays: 30},
	}
}
