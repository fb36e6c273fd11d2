// Package scheduler runs the periodic housekeeping jobs of a server process.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jason-s-yu/automatch/internal/models"
	"github.com/jason-s-yu/automatch/internal/store"
	"github.com/sirupsen/logrus"
)

// jobTimeout bounds a single run of any job.
const jobTimeout = 30 * time.Second

type Scheduler struct {
	sched  gocron.Scheduler
	store  *store.Store
	logger *logrus.Logger
}

func New(s *store.Store, logger *logrus.Logger) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{sched: sched, store: s, logger: logger}, nil
}

// ScheduleJanitor prunes expired match ids from the pending pools every interval.
func (s *Scheduler) ScheduleJanitor(interval time.Duration) error {
	_, err := s.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			removed, err := PrunePools(ctx, s.store)
			if err != nil {
				s.logger.Warnf("scheduler: pool janitor: %v", err)
				return
			}
			if removed > 0 {
				s.logger.WithField("removed", removed).Info("scheduler: pruned pending pools")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	return err
}

// ScheduleMetadata reads the cluster-wide socket count every interval and hands it to update.
func (s *Scheduler) ScheduleMetadata(interval time.Duration, update func(online int64)) error {
	_, err := s.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			online, err := UsersOnline(ctx, s.store)
			if err != nil {
				s.logger.Warnf("scheduler: metadata refresh: %v", err)
				return
			}
			update(online)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	return err
}

func (s *Scheduler) Start() {
	s.sched.Start()
	s.logger.Info("scheduler: started")
}

func (s *Scheduler) Stop() error {
	if err := s.sched.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	s.logger.Info("scheduler: stopped")
	return nil
}

// PrunePools removes ids of matches that no longer exist from every pending pool and
// returns how many were removed. Matchmaking prunes lazily as well; this keeps pools that
// nobody samples from growing.
func PrunePools(ctx context.Context, s *store.Store) (int, error) {
	removed := 0
	for _, pattern := range store.PoolPatterns {
		pools, err := s.ScanKeys(ctx, pattern)
		if err != nil {
			return removed, err
		}
		for _, pool := range pools {
			ids, err := s.SMembers(ctx, pool)
			if err != nil {
				return removed, err
			}
			for _, id := range ids {
				_, ok, err := s.HGet(ctx, store.MatchKey(id), models.FieldID)
				if err != nil {
					return removed, err
				}
				if ok {
					continue
				}
				if err := s.SRem(ctx, pool, id); err != nil {
					return removed, err
				}
				removed++
			}
		}
	}
	return removed, nil
}

// UsersOnline reads the cluster-wide count of open sockets.
func UsersOnline(ctx context.Context, s *store.Store) (int64, error) {
	raw, ok, err := s.HGet(ctx, store.MetadataKey, store.MetadataSockets)
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("metadata %s: %w", store.MetadataSockets, err)
	}
	return max(n, 0), nil
}
