// Package notification formats the system's plain-text emails and hands
// them to a Publisher. Delivery is best-effort: failures are logged, never
// returned.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pet_adoption/internal/lib/logger/sl"
	"pet_adoption/internal/lib/verification"
	"pet_adoption/internal/models"
)

const (
	PurposeVerification     = "verification"
	PurposeLoginAlert       = "login_alert"
	PurposeWelcome          = "welcome"
	PurposeAdoptionAccepted = "adoption_accepted"
	PurposePendingDigest    = "pending_digest"

	signature = "Best regards,\nThe Pet Adoption System team"

	defaultPublishTimeout = 5 * time.Second
)

// Publisher is implemented by the RabbitMQ client and by the in-process
// mail dispatcher.
type Publisher interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

type Notifier struct {
	log         *slog.Logger
	publisher   Publisher
	frontendURL string
	timeout     time.Duration
}

func New(log *slog.Logger, publisher Publisher, frontendURL string, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}

	return &Notifier{
		log:         log,
		publisher:   publisher,
		frontendURL: frontendURL,
		timeout:     timeout,
	}
}

func (n *Notifier) SendVerification(ctx context.Context, to, username, token string) {
	body := fmt.Sprintf(
		"Hello %s,\n\n"+
			"Welcome to the Pet Adoption System!\n\n"+
			"To complete your registration, please open the link below:\n\n"+
			"%s\n\n"+
			"This link is valid for 24 hours.\n\n"+
			"If you did not create this account, please ignore this email.\n\n"+
			signature,
		username, verification.Link(n.frontendURL, token),
	)

	n.publish(ctx, models.Message{
		Email:   to,
		Subject: "Email verification - Pet Adoption System",
		Body:    body,
		Purpose: PurposeVerification,
	})
}

func (n *Notifier) SendLoginAlert(ctx context.Context, to, username string, at time.Time, ip string) {
	body := fmt.Sprintf(
		"Hello %s,\n\n"+
			"A new sign-in to your account was detected:\n\n"+
			"Time: %s\n"+
			"IP address: %s\n\n"+
			"If this was not you, please contact us immediately.\n\n"+
			signature,
		username, at.Format("2006-01-02 15:04:05"), ip,
	)

	n.publish(ctx, models.Message{
		Email:   to,
		Subject: "Sign-in alert - Pet Adoption System",
		Body:    body,
		Purpose: PurposeLoginAlert,
	})
}

func (n *Notifier) SendWelcome(ctx context.Context, to, username string) {
	body := fmt.Sprintf(
		"Hello %s,\n\n"+
			"Welcome to the Pet Adoption System!\n\n"+
			"Your account has been verified and you can now:\n"+
			"- browse the available animals\n"+
			"- submit adoption requests\n"+
			"- manage your profile\n\n"+
			"Thank you for choosing us!\n\n"+
			signature,
		username,
	)

	n.publish(ctx, models.Message{
		Email:   to,
		Subject: "Welcome to the Pet Adoption System!",
		Body:    body,
		Purpose: PurposeWelcome,
	})
}

func (n *Notifier) SendAdoptionAccepted(ctx context.Context, to, animalName string) {
	n.publish(ctx, models.Message{
		Email:   to,
		Subject: "Your adoption has been accepted!",
		Body:    fmt.Sprintf("The adoption of %s has been accepted.", animalName),
		Purpose: PurposeAdoptionAccepted,
	})
}

// SendPendingDigest lists animals that wait for a decision on an adoption request.
func (n *Notifier) SendPendingDigest(ctx context.Context, to, username string, pending []models.Animal) {
	var b strings.Builder

	fmt.Fprintf(&b, "Hello %s,\n\n", username)
	fmt.Fprintf(&b, "%d adoption request(s) are waiting for a decision:\n\n", len(pending))
	for _, a := range pending {
		fmt.Fprintf(&b, "- #%d %s (%s, %d)\n", a.ID, a.Name, a.Type, a.Age)
	}
	b.WriteString("\n" + signature)

	n.publish(ctx, models.Message{
		Email:   to,
		Subject: "Pending adoption requests - Pet Adoption System",
		Body:    b.String(),
		Purpose: PurposePendingDigest,
	})
}

func (n *Notifier) publish(ctx context.Context, msg models.Message) {
	const op = "notification.publish"

	log := n.log.With(
		slog.String("op", op),
		slog.String("purpose", msg.Purpose),
	)

	if msg.Email == "" {
		log.Warn("recipient has no email, skipping")
		return
	}

	// The caller's request may finish before the publish does.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	if err := n.publisher.SendMessage(ctx, msg); err != nil {
		log.Error("failed to publish email", sl.Err(err))
		return
	}

	log.Debug("email published")
}
