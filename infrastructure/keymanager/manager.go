package keymanager

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/careerhub/hub/infrastructure/errors"
	"github.com/careerhub/hub/infrastructure/logging"
)

// EnvSource maps a provider name to the environment variable its secret is
// read from.
type EnvSource map[string]string

// DefaultEnvSource is the Hub's provider-to-env-var mapping.
func DefaultEnvSource() EnvSource {
	return EnvSource{
		ProviderDatabase: "DATABASE_URL",
		ProviderAI:       "AI_PROVIDER_API_KEY",
		ProviderBilling:  "PAYMENT_PROVIDER_API_KEY",
		ProviderStorage:  "OBJECT_STORAGE_ACCESS_KEY",
	}
}

// Manager is the Key Manager (spec §4.D). Concurrency-safe; callers
// typically share one Manager process-wide.
type Manager struct {
	mu         sync.Mutex
	env        EnvSource
	thresholds map[string]Thresholds
	clock      func() time.Time
	logger     *logging.Logger
	keys       map[string]*Info
}

// Config configures a Manager.
type Config struct {
	Env        EnvSource
	Thresholds map[string]Thresholds
	Logger     *logging.Logger
}

// New constructs a Manager. A nil Env/Thresholds falls back to the Hub's
// defaults.
func New(cfg Config) *Manager {
	env := cfg.Env
	if env == nil {
		env = DefaultEnvSource()
	}
	thresholds := cfg.Thresholds
	if thresholds == nil {
		thresholds = DefaultThresholds()
	}
	return &Manager{
		env:        env,
		thresholds: thresholds,
		clock:      time.Now,
		logger:     cfg.Logger,
		keys:       make(map[string]*Info),
	}
}

func hashPrefix(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])[:16]
}

// Get reads provider's secret from the environment, registers or updates
// its rotation metadata, and returns both. The secret is never logged or
// stored; only its hash prefix is kept in Info.
func (m *Manager) Get(ctx context.Context, provider string) (string, Info, error) {
	envVar, ok := m.env[provider]
	if !ok {
		return "", Info{}, errors.New(errors.KindNotFound, fmt.Sprintf("unknown provider: %s", provider))
	}

	secret := os.Getenv(envVar)
	now := m.clock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if secret == "" {
		m.keys[provider] = &Info{Provider: provider, KeyID: "missing", Active: false, FirstSeenAt: now}
		if m.logger != nil {
			m.logger.WithContext(ctx).WithFields(map[string]interface{}{"provider": provider}).Warn("api key not found in environment")
		}
		return "", *m.keys[provider], errors.New(errors.KindNotFound, fmt.Sprintf("no credential configured for provider %s", provider))
	}

	hash := hashPrefix(secret)
	info, exists := m.keys[provider]
	switch {
	case !exists:
		info = &Info{
			Provider:    provider,
			KeyID:       fmt.Sprintf("%s_%s", provider, now.UTC().Format("20060102")),
			HashPrefix:  hash,
			FirstSeenAt: now,
			Active:      true,
		}
		m.keys[provider] = info
		if m.logger != nil {
			m.logger.WithContext(ctx).WithFields(map[string]interface{}{
				"provider": provider, "key_id": info.KeyID,
			}).Info("api key registered")
		}
	case info.HashPrefix != hash:
		info.RotationCount++
		info.HashPrefix = hash
		info.FirstSeenAt = now
		info.Active = true
		if m.logger != nil {
			m.logger.WithContext(ctx).WithFields(map[string]interface{}{
				"provider": provider, "rotation_count": info.RotationCount,
			}).Info("api key rotation detected")
		}
	}

	info.LastUsedAt = now
	m.logRotationWarning(ctx, *info)

	return secret, *info, nil
}

func (m *Manager) logRotationWarning(ctx context.Context, info Info) {
	if m.logger == nil {
		return
	}
	th, ok := m.thresholds[info.Provider]
	if !ok {
		return
	}
	age := m.clock().Sub(info.FirstSeenAt)
	rotateAt := time.Duration(th.RotateDays) * 24 * time.Hour
	warnAt := time.Duration(th.RotateDays-th.WarnDays) * 24 * time.Hour

	switch {
	case age >= rotateAt:
		m.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"provider": info.Provider, "age_days": int(age.Hours() / 24),
		}).Error("api key rotation required")
	case age >= warnAt:
		m.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"provider": info.Provider, "age_days": int(age.Hours() / 24),
		}).Warn("api key rotation approaching")
	}
}

// Revoke marks provider's credential inactive. It does not touch the
// environment — callers are expected to also remove or rotate the
// underlying secret out of band.
func (m *Manager) Revoke(ctx context.Context, provider, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, ok := m.keys[provider]
	if !ok {
		return errors.New(errors.KindNotFound, fmt.Sprintf("cannot revoke unknown provider: %s", provider))
	}
	info.Active = false
	if m.logger != nil {
		m.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"provider": provider, "key_id": info.KeyID, "reason": reason,
		}).Error("api key revoked")
	}
	return nil
}

// Status reports rotation health for every configured provider.
func (m *Manager) Status() map[string]Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	out := make(map[string]Status, len(m.env))
	for provider := range m.env {
		th := m.thresholds[provider]
		info, ok := m.keys[provider]
		if !ok {
			out[provider] = Status{Provider: provider, Health: HealthMissing, ActionRequired: "configure_key"}
			continue
		}

		ageDays := int(now.Sub(info.FirstSeenAt).Hours() / 24)
		rotateDays := th.RotateDays
		if rotateDays == 0 {
			rotateDays = 90
		}
		warnDays := th.WarnDays
		warnThreshold := rotateDays - warnDays

		var health Health
		var action string
		switch {
		case !info.Active:
			health, action = HealthCritical, "rotate_immediately"
		case ageDays >= rotateDays:
			health, action = HealthCritical, "rotate_immediately"
		case ageDays >= warnThreshold:
			health, action = HealthWarn, "prepare_rotation"
		default:
			health, action = HealthHealthy, "none"
		}

		daysLeft := rotateDays - ageDays
		if daysLeft < 0 {
			daysLeft = 0
		}

		out[provider] = Status{
			Provider:       provider,
			Health:         health,
			AgeDays:        ageDays,
			DaysToRotation: daysLeft,
			RotationCount:  info.RotationCount,
			LastUsedAt:     info.LastUsedAt,
			ActionRequired: action,
		}
	}
	return out
}
