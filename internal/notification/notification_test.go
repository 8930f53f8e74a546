package notification_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"pet_adoption/internal/models"
	"pet_adoption/internal/notification"
)

type fakePublisher struct {
	mu       sync.Mutex
	messages []models.Message
	err      error
	ctxErr   error
}

func (p *fakePublisher) SendMessage(ctx context.Context, msg models.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ctxErr = ctx.Err()
	p.messages = append(p.messages, msg)

	return p.err
}

func newNotifier(p notification.Publisher) *notification.Notifier {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return notification.New(log, p, "http://localhost:8081/", time.Second)
}

func TestSendVerificationContainsLink(t *testing.T) {
	p := &fakePublisher{}

	newNotifier(p).SendVerification(context.Background(), "bob@example.com", "bob", "tok-123")

	if len(p.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(p.messages))
	}

	msg := p.messages[0]
	if msg.Email != "bob@example.com" || msg.Purpose != notification.PurposeVerification {
		t.Fatalf("unexpected message %+v", msg)
	}
	if !strings.Contains(msg.Body, "http://localhost:8081/verify-email?token=tok-123") {
		t.Fatalf("body has no verification link: %q", msg.Body)
	}
	if !strings.Contains(msg.Body, "bob") {
		t.Fatalf("body does not greet the user: %q", msg.Body)
	}
}

func TestSendLoginAlertIncludesTimeAndIP(t *testing.T) {
	p := &fakePublisher{}
	at := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

	newNotifier(p).SendLoginAlert(context.Background(), "bob@example.com", "bob", at, "10.0.0.7")

	body := p.messages[0].Body
	if !strings.Contains(body, "2024-05-01 10:30:00") || !strings.Contains(body, "10.0.0.7") {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestSendAdoptionAccepted(t *testing.T) {
	p := &fakePublisher{}

	newNotifier(p).SendAdoptionAccepted(context.Background(), "bob@example.com", "Pepper")

	if !strings.Contains(p.messages[0].Body, "Pepper") {
		t.Fatalf("unexpected body %q", p.messages[0].Body)
	}
}

func TestSendPendingDigestListsAnimals(t *testing.T) {
	p := &fakePublisher{}
	pending := []models.Animal{
		{ID: 1, Name: "Pepper", Type: "Cat", Age: 2},
		{ID: 2, Name: "Nova", Type: "Dog", Age: 1},
	}

	newNotifier(p).SendPendingDigest(context.Background(), "admin@example.com", "admin", pending)

	body := p.messages[0].Body
	for _, want := range []string{"2 adoption request(s)", "#1 Pepper", "#2 Nova"} {
		if !strings.Contains(body, want) {
			t.Errorf("body misses %q: %q", want, body)
		}
	}
}

func TestPublishFailureIsSwallowed(t *testing.T) {
	p := &fakePublisher{err: errors.New("broker down")}

	newNotifier(p).SendWelcome(context.Background(), "bob@example.com", "bob")

	if len(p.messages) != 1 {
		t.Fatalf("expected publish attempt, got %d", len(p.messages))
	}
}

func TestPublishOutlivesCanceledRequest(t *testing.T) {
	p := &fakePublisher{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	newNotifier(p).SendWelcome(ctx, "bob@example.com", "bob")

	if p.ctxErr != nil {
		t.Fatalf("publish context should be detached, got %v", p.ctxErr)
	}
}

func TestSkipsEmptyRecipient(t *testing.T) {
	p := &fakePublisher{}

	newNotifier(p).SendWelcome(context.Background(), "", "bob")

	if len(p.messages) != 0 {
		t.Fatalf("expected no publish, got %d", len(p.messages))
	}
}
