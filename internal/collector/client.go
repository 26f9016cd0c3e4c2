package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/qepting91/reddit-relay/internal/domain"
	"github.com/qepting91/reddit-relay/internal/resolver"
	"golang.org/x/time/rate"
)

// maxBody caps how much of an upstream response is read into memory.
const maxBody = 16 << 20

var threadIDRegex = regexp.MustCompile(`/comments/([A-Za-z0-9]+)`)

// relayError is the JSON body the relay sends instead of upstream content.
type relayError struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// newLimiter returns a token bucket allowing one request per interval.
func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// statusError classifies a non-200 response. The relay's exhausted body
// is recognised so the user sees a distinct message.
func statusError(status int, body []byte) error {
	var re relayError
	if json.Unmarshal(body, &re) == nil && re.Error == resolver.ExhaustedCode {
		return &domain.FetchError{Kind: domain.KindExhausted, Status: status, Err: errors.New(re.Details)}
	}
	return &domain.FetchError{
		Kind:   domain.KindUpstreamStatus,
		Status: status,
		Err:    fmt.Errorf("reddit returned status %d", status),
	}
}

// transportError keeps context cancellation visible to errors.Is while
// classifying everything else as a transport failure.
func transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return domain.NewError(domain.KindTransport, err)
}

func threadID(permalink string) (string, bool) {
	m := threadIDRegex.FindStringSubmatch(permalink)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func isNotFound(status int) bool {
	return status == http.StatusNotFound
}
