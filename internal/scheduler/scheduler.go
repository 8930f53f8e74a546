package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pet_adoption/internal/lib/logger/sl"
	"pet_adoption/internal/models"

	"github.com/robfig/cron/v3"
)

const jobTimeout = time.Minute

type AnimalProvider interface {
	AnimalsByState(ctx context.Context, state models.AdoptionState) ([]models.Animal, error)
}

type UserProvider interface {
	UsersByRole(ctx context.Context, role string) ([]models.User, error)
}

type Notifier interface {
	SendPendingDigest(ctx context.Context, to, username string, pending []models.Animal)
}

// Scheduler mails staff a periodic digest of adoption requests awaiting a decision.
type Scheduler struct {
	log      *slog.Logger
	cron     *cron.Cron
	animals  AnimalProvider
	users    UserProvider
	notifier Notifier

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(log *slog.Logger, animals AnimalProvider, users UserProvider, notifier Notifier) *Scheduler {
	return &Scheduler{
		log:      log,
		cron:     cron.New(cron.WithSeconds()),
		animals:  animals,
		users:    users,
		notifier: notifier,
	}
}

// Start registers the digest job under spec (six fields, seconds first, or a
// descriptor such as @daily) and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	const op = "scheduler.Start"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	if _, err := s.cron.AddFunc(spec, s.runJob); err != nil {
		s.cancel()
		return fmt.Errorf("%s: invalid cron expression %q: %w", op, spec, err)
	}

	s.cron.Start()
	s.running = true

	s.log.Info("scheduler started", slog.String("spec", spec))

	return nil
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	<-s.cron.Stop().Done()

	s.running = false
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) runJob() {
	ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
	defer cancel()

	if _, err := s.SendPendingDigest(ctx); err != nil {
		s.log.Error("pending digest failed", sl.Err(err))
	}
}

// SendPendingDigest mails every admin and shelter user once and returns the
// number of recipients. Nothing is sent when no request is pending.
func (s *Scheduler) SendPendingDigest(ctx context.Context) (int, error) {
	const op = "scheduler.SendPendingDigest"

	log := s.log.With(slog.String("op", op))

	pending, err := s.animals.AnimalsByState(ctx, models.AdoptionPending)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(pending) == 0 {
		log.Debug("no pending adoption requests")
		return 0, nil
	}

	seen := make(map[int64]struct{})
	sent := 0

	for _, role := range []string{models.RoleAdmin, models.RoleShelter} {
		staff, err := s.users.UsersByRole(ctx, role)
		if err != nil {
			return sent, fmt.Errorf("%s: %w", op, err)
		}

		for _, u := range staff {
			if _, ok := seen[u.ID]; ok {
				continue
			}
			seen[u.ID] = struct{}{}

			s.notifier.SendPendingDigest(ctx, u.Email, u.Username, pending)
			sent++
		}
	}

	log.Info("pending digest sent",
		slog.Int("pending", len(pending)),
		slog.Int("recipients", sent),
	)

	return sent, nil
}
