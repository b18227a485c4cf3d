package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/jpp0ca/PlaylistTransfer-API/internal/domain"
)

// NewBearerClient returns an HTTP client that sends token as a bearer
// credential on every request. base supplies the underlying transport and
// may be nil.
func NewBearerClient(base *http.Client, token string) *http.Client {
	ctx := context.Background()
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
}

// NewLimiter returns a limiter allowing rps requests per second. A
// non-positive rps disables limiting.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// StatusError maps a non-2xx platform response onto the domain error taxonomy.
func StatusError(platform string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}

	var kind error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = domain.ErrNotAuthenticated
	case status == http.StatusNotFound:
		kind = domain.ErrNotFound
	case status == http.StatusTooManyRequests:
		kind = domain.ErrRateLimited
	case status >= 500:
		kind = domain.ErrTransientNetwork
	default:
		kind = domain.ErrInvalidArgument
	}
	return fmt.Errorf("%s API returned status %d: %w: %s", platform, status, kind, msg)
}

// TransportError classifies a failed round trip. Cancellation by the caller
// is passed through; anything else is treated as transient.
func TransportError(platform string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s request aborted: %w", platform, err)
	}
	return fmt.Errorf("%s request failed: %w: %v", platform, domain.ErrTransientNetwork, err)
}
