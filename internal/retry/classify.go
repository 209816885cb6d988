package retry

import (
	"context"
	"errors"
	"net/http"

	"github.com/amishk599/jobdeck/internal/model"
)

// Class describes a failure for presentation.
type Class struct {
	Kind      string // "network", "timeout", "rate_limited", "server", "client", "parse", "cancelled", "rejected", "not_found", "unknown"
	Retryable bool
}

// Classify reports what kind of failure err is and whether retrying it can
// help. Network, parse, 429 and 5xx failures are retryable; other 4xx,
// rejected actions and cancellations are not.
func Classify(err error) Class {
	if err == nil {
		return Class{}
	}

	// Context cancellation: never retry.
	if errors.Is(err, context.Canceled) {
		return Class{Kind: "cancelled"}
	}

	var (
		netErr   *model.NetworkError
		httpErr  *model.HTTPError
		parseErr *model.ParseError
	)
	switch {
	case errors.As(err, &netErr):
		if netErr.Timeout {
			return Class{Kind: "timeout", Retryable: true}
		}
		return Class{Kind: "network", Retryable: true}
	case errors.As(err, &httpErr):
		switch {
		case httpErr.StatusCode == http.StatusTooManyRequests:
			return Class{Kind: "rate_limited", Retryable: true}
		case httpErr.StatusCode >= 500:
			return Class{Kind: "server", Retryable: true}
		case httpErr.StatusCode == http.StatusNotFound:
			return Class{Kind: "not_found"}
		default:
			return Class{Kind: "client"}
		}
	case errors.As(err, &parseErr):
		return Class{Kind: "parse", Retryable: true}
	case errors.Is(err, model.ErrNotFound):
		return Class{Kind: "not_found"}
	case errors.Is(err, model.ErrActionRejected), errors.Is(err, model.ErrSyntheticID):
		return Class{Kind: "rejected"}
	case errors.Is(err, context.DeadlineExceeded):
		return Class{Kind: "timeout", Retryable: true}
	}

	// Untyped errors (DNS, resets wrapped by callers): retryable.
	return Class{Kind: "unknown", Retryable: true}
}

// IsRetryable is Classify(err).Retryable.
func IsRetryable(err error) bool {
	return Classify(err).Retryable
}
