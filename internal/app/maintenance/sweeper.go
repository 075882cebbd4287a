package maintenance

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/codemate/codemate/internal/collab"
	"github.com/codemate/codemate/pkg/logger"
	"github.com/codemate/codemate/pkg/metrics"
)

const defaultSweepSpec = "@every 5m"

// Sweeper periodically audits the room state cache: it reports occupancy,
// flags cached workspaces that violate the active-file invariant, and, when
// expiry is enabled, drops cached state for rooms whose last member has left.
// Expiry is off by default: a room keeps its workspace indefinitely so a later
// joiner to the same room id resumes from the last-seen state.
type Sweeper struct {
	registry *collab.Registry
	cache    *collab.Cache
	cron     *cron.Cron
	log      *zap.Logger

	schedule    string
	expireEmpty bool
}

// Option customises the Sweeper.
type Option func(*Sweeper)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(sweeper *Sweeper) {
		if c != nil {
			sweeper.cron = c
		}
	}
}

// WithSchedule overrides the cron specification for the sweep job.
func WithSchedule(spec string) Option {
	return func(sweeper *Sweeper) {
		if spec != "" {
			sweeper.schedule = spec
		}
	}
}

// WithExpireEmpty enables dropping cached workspaces for member-less rooms.
func WithExpireEmpty(expire bool) Option {
	return func(sweeper *Sweeper) {
		sweeper.expireEmpty = expire
	}
}

// NewSweeper constructs a Sweeper over the protocol's registry and cache.
func NewSweeper(registry *collab.Registry, cache *collab.Cache, opts ...Option) *Sweeper {
	sweeper := &Sweeper{
		registry: registry,
		cache:    cache,
		schedule: defaultSweepSpec,
		log:      logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(sweeper)
	}

	if sweeper.cron == nil {
		sweeper.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return sweeper
}

// Start registers the sweep job with the cron scheduler and launches it.
func (s *Sweeper) Start() error {
	if s.registry == nil || s.cache == nil {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		if err := s.RunOnce(); err != nil {
			s.log.Warn("cache sweep reported problems", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running job to complete.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// RunOnce executes one sweep synchronously. Also used in tests and during
// graceful shutdown.
func (s *Sweeper) RunOnce() error {
	if s.registry == nil || s.cache == nil {
		return nil
	}

	var errs error
	expired := 0

	for _, roomID := range s.cache.Rooms() {
		state, ok := s.cache.Get(roomID)
		if !ok {
			continue
		}

		if err := state.Validate(); err != nil {
			errs = multierr.Append(errs, err)
		}

		if s.expireEmpty && len(s.registry.MembersOf(roomID)) == 0 {
			s.cache.Delete(roomID)
			expired++
		}
	}

	metrics.CachedWorkspaces.Set(float64(s.cache.Len()))
	s.log.Info("cache sweep finished",
		zap.Int("rooms", s.registry.RoomCount()),
		zap.Int("cached_workspaces", s.cache.Len()),
		zap.Int("expired", expired),
	)

	return errs
}
