package scheduler_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"pet_adoption/internal/models"
	"pet_adoption/internal/scheduler"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeAnimals []models.Animal

func (f fakeAnimals) AnimalsByState(_ context.Context, state models.AdoptionState) ([]models.Animal, error) {
	var out []models.Animal
	for _, a := range f {
		if a.AdoptionState == state {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeUsers map[string][]models.User

func (f fakeUsers) UsersByRole(_ context.Context, role string) ([]models.User, error) {
	return f[role], nil
}

type fakeNotifier struct {
	mu         sync.Mutex
	recipients []string
}

func (n *fakeNotifier) SendPendingDigest(_ context.Context, to, _ string, _ []models.Animal) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.recipients = append(n.recipients, to)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendPendingDigest(t *testing.T) {
	boss := models.User{ID: 1, Username: "admin", Email: "admin@example.com"}
	staff := fakeUsers{
		models.RoleAdmin:   {boss},
		models.RoleShelter: {boss, {ID: 2, Username: "shelter", Email: "shelter@example.com"}},
	}

	tests := []struct {
		name    string
		animals fakeAnimals
		want    int
	}{
		{
			name:    "nothing pending",
			animals: fakeAnimals{{ID: 1, AdoptionState: models.AdoptionNone}},
			want:    0,
		},
		{
			name: "pending requests",
			animals: fakeAnimals{
				{ID: 1, AdoptionState: models.AdoptionPending},
				{ID: 2, AdoptionState: models.AdoptionDenied},
			},
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &fakeNotifier{}
			s := scheduler.New(discardLogger(), tt.animals, staff, n)

			sent, err := s.SendPendingDigest(context.Background())
			if err != nil {
				t.Fatalf("digest: %v", err)
			}
			if sent != tt.want || len(n.recipients) != tt.want {
				t.Fatalf("sent=%d recipients=%v, want %d", sent, n.recipients, tt.want)
			}
		})
	}
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := scheduler.New(discardLogger(), fakeAnimals{}, fakeUsers{}, &fakeNotifier{})

	if err := s.Start(context.Background(), "not a cron spec"); err == nil {
		s.Stop()
		t.Fatal("expected error for invalid spec")
	}
}

func TestStartStop(t *testing.T) {
	s := scheduler.New(discardLogger(), fakeAnimals{}, fakeUsers{}, &fakeNotifier{})

	if err := s.Start(context.Background(), "@every 1h"); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.Stop()
	s.Stop()
}
