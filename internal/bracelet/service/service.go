// Package service implements the bracelet lifecycle: provisioning,
// batch unlock, activation, and caregiver status reports.
package service

import (
	"errors"
	"log/slog"
	"time"

	braceletmetrics "safeband/internal/bracelet/metrics"
	"safeband/internal/bracelet/store"
	dErrors "safeband/pkg/domain-errors"
	"safeband/pkg/platform/sentinel"
)

// Service orchestrates bracelet identity lifecycle management.
type Service struct {
	identities store.IdentityStore
	throttle   *activationThrottle
	logger     *slog.Logger
	metrics    *braceletmetrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *braceletmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithActivationThrottle bounds failed activation attempts per bracelet
// within the window. Zero values disable the throttle.
func WithActivationThrottle(limit int, window time.Duration) Option {
	return func(s *Service) {
		if limit > 0 && window > 0 {
			s.throttle = newActivationThrottle(limit, window)
		}
	}
}

// New constructs the bracelet service.
func New(identities store.IdentityStore, opts ...Option) *Service {
	s := &Service{
		identities: identities,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// translateStoreErr maps sentinel store errors into coded domain
// errors. Domain errors returned by Execute callbacks pass through.
func translateStoreErr(err error, notFoundMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "storage is unavailable")
	default:
		var dErr *dErrors.Error
		if errors.As(err, &dErr) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "bracelet store failed")
	}
}
