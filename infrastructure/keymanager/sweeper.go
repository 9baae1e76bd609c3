package keymanager

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/careerhub/hub/infrastructure/logging"
)

// Sweeper periodically re-evaluates every provider's rotation status and
// logs anything that crossed into warn/critical, independent of whether
// Get has been called recently for that provider.
type Sweeper struct {
	manager *Manager
	logger  *logging.Logger
	cron    *cron.Cron
}

// NewSweeper wires manager's Status check to a cron schedule (e.g.
// "0 */6 * * *" for every six hours).
func NewSweeper(manager *Manager, logger *logging.Logger) *Sweeper {
	return &Sweeper{manager: manager, logger: logger, cron: cron.New()}
}

// Start schedules the sweep and returns an error if schedule doesn't
// parse as a standard 5-field cron expression.
func (s *Sweeper) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, s.sweep)
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the schedule and waits for any in-flight sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Sweeper) sweep() {
	ctx := context.Background()
	for provider, status := range s.manager.Status() {
		if status.Health == HealthHealthy {
			continue
		}
		if s.logger != nil {
			s.logger.WithContext(ctx).WithFields(map[string]interface{}{
				"provider":        provider,
				"health":          string(status.Health),
				"age_days":        status.AgeDays,
				"action_required": status.ActionRequired,
			}).Warn("key rotation sweep found a non-healthy credential")
		}
	}
}
