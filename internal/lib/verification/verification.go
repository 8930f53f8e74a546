package verification

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long a freshly issued email verification token stays valid.
const DefaultTTL = 24 * time.Hour

// NewToken returns a random single-use verification token and its expiry.
func NewToken(now time.Time, ttl time.Duration) (string, time.Time) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return uuid.NewString(), now.Add(ttl)
}

// IsExpired reports whether a token with the given expiry is no longer usable at now.
func IsExpired(expiry *time.Time, now time.Time) bool {
	if expiry == nil {
		return true
	}

	return expiry.Before(now)
}

// Link builds the frontend URL the user follows to verify their email.
func Link(frontendURL, token string) string {
	return strings.TrimRight(frontendURL, "/") + "/verify-email?token=" + url.QueryEscape(token)
}
