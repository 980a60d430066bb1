package transcription

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"video-recipe-go/internal/llm"
	"video-recipe-go/internal/types"
)

// Backoff describes a delay schedule of Base * Multiplier^(attempt-1).
type Backoff struct {
	Base       time.Duration
	Multiplier float64
}

var (
	singleBackoff = Backoff{Base: 2 * time.Second, Multiplier: 2}
	chunkBackoff  = Backoff{Base: 3 * time.Second, Multiplier: 1.5}
)

// Delays returns the waits taken before attempts 2..n.
func (b Backoff) Delays(attempts int) []time.Duration {
	var out []time.Duration
	d := float64(b.Base)
	for i := 1; i < attempts; i++ {
		out = append(out, time.Duration(d))
		d *= b.Multiplier
	}
	return out
}

func (b Backoff) policy(ctx context.Context, maxAttempts int) backoff.BackOffContext {
	eb := &backoff.ExponentialBackOff{
		InitialInterval:     b.Base,
		RandomizationFactor: 0,
		Multiplier:          b.Multiplier,
		MaxInterval:         10 * time.Minute,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	eb.Reset()
	retries := maxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)
}

// retry runs op until it succeeds, returns a non-retryable error, or the
// attempts run out. It reports how many attempts were made.
func retry(ctx context.Context, b Backoff, maxAttempts int, log *logrus.Entry, op func(attempt int) error) (int, error) {
	attempts := 0
	wrapped := func() error {
		attempts++
		err := op(attempts)
		if err != nil && !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.WithError(err).WithFields(logrus.Fields{
			"attempt": attempts,
			"wait_ms": wait.Milliseconds(),
		}).Warn("transcription attempt failed, retrying")
	}
	err := backoff.RetryNotify(wrapped, b.policy(ctx, maxAttempts), notify)
	return attempts, err
}

var nonRetryableMarkers = []string{
	"model not found",
	"not installed",
	"no speech",
	"invalid audio",
}

var retryableMarkers = []string{
	"timeout",
	"timed out",
	"deadline exceeded",
	"connection",
	"network",
	"reset",
	"refused",
	"eof",
}

// statusMarker matches 500/502/503 as standalone numbers in error text.
var statusMarker = regexp.MustCompile(`\b50[023]\b`)

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if types.IsPermanent(err) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range nonRetryableMarkers {
		if strings.Contains(msg, m) {
			return false
		}
	}

	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode >= http.StatusInternalServerError, apiErr.StatusCode == http.StatusTooManyRequests,
			apiErr.StatusCode == http.StatusRequestTimeout:
			return true
		case apiErr.StatusCode >= http.StatusBadRequest:
			return false
		}
	}

	for _, m := range retryableMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	if statusMarker.MatchString(msg) {
		return true
	}
	switch types.CodeOf(err) {
	case types.ErrTimeout, types.ErrTranscriptionFailed, types.ErrUnknown:
		return true
	}
	return false
}
