package poller

import (
	"context"
	"sync"
	"time"

	"github.com/roylee0704/gron"

	"gmd/internal/poller/interfaces"
	"gmd/internal/providers"
	"gmd/internal/services"
	"gmd/internal/structures"
)

// Scheduler drives the poll and persistence cycles. One poll runs at a time;
// the coordinator coalesces any overlap, and polling is skipped entirely
// while the admin key is known to be rejected.
type Scheduler struct {
	config      *structures.Config
	logger      providers.Logger
	coordinator services.CoordinatorServiceInterface
	fileManager *FileManager
	metrics     providers.MetricsProviderInterface
	cron        *gron.Cron
	opsMu       sync.Mutex
}

func (s *Scheduler) Init() {
	s.cron = gron.New()

	s.cron.AddFunc(gron.Every(s.config.Poll.Interval), func() {
		s.RunPoll(context.Background())
	})

	s.cron.AddFunc(gron.Every(s.config.Persistence.SaveInterval), func() {
		s.opsMu.Lock()
		defer s.opsMu.Unlock()

		err := s.fileManager.SaveToFile(s.config.Persistence.FilePath)
		if err != nil {
			s.logger.Errorf(providers.TypeApp, "Error while persisting snapshot: %s", err)
			return
		}
		s.logger.Debugf(providers.TypeApp, "Persisted snapshot to file %s", s.config.Persistence.FilePath)
	})

	s.cron.Start()
}

// RunPoll executes one poll cycle. Exposed so startup can do a first fetch
// without waiting for the interval.
func (s *Scheduler) RunPoll(ctx context.Context) {
	if s.coordinator.ReauthRequired() {
		s.logger.Debugf(providers.TypePoll, "Reauth required, skipping scheduled poll")
		return
	}

	timeout := s.config.Poll.RequestTimeout
	if timeout <= 0 {
		timeout = s.config.Poll.Interval
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	err := s.coordinator.Refresh(ctx)
	s.metrics.ObservePollDuration(time.Since(started))
	if err != nil {
		s.metrics.IncPollsTotal("failure")
		return
	}
	s.metrics.IncPollsTotal("success")
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Scheduler) Restore() error {
	return s.fileManager.LoadFromFile(s.config.Persistence.FilePath)
}

func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	s.logger.Infof(providers.TypeApp, "Persisting snapshot to file...")
	err := s.fileManager.SaveToFile(s.config.Persistence.FilePath)
	if err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while persisting snapshot: %s", err)
		return err
	}
	return nil
}

func NewScheduler(config *structures.Config, logger providers.Logger, coordinator services.CoordinatorServiceInterface, fileManager *FileManager, metrics providers.MetricsProviderInterface) interfaces.SchedulerInterface {
	return &Scheduler{
		config:      config,
		logger:      logger,
		coordinator: coordinator,
		fileManager: fileManager,
		metrics:     metrics,
	}
}
