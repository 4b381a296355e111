package watch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/signalalpha/cryptomkt-go/internal/config"
	"github.com/signalalpha/cryptomkt-go/internal/monitor"
	"github.com/signalalpha/cryptomkt-go/pkg/cryptomkt"
)

// ErrTimeout is returned when a payment order does not reach a terminal
// status before the watch timeout.
var ErrTimeout = errors.New("payment order watch timed out")

// StatusFetcher retrieves the current state of a payment order.
// *cryptomkt.Client implements it.
type StatusFetcher interface {
	GetPaymentOrderStatus(id string) (*cryptomkt.PaymentOrder, error)
}

// Config controls how a payment order is polled.
type Config struct {
	PollInterval time.Duration
	Timeout      time.Duration
	MaxErrors    int
}

// NewConfig converts the payment section of the application config.
func NewConfig(cfg config.PaymentConfig) Config {
	return Config{
		PollInterval: cfg.PollInterval(),
		Timeout:      cfg.WatchTimeout(),
		MaxErrors:    cfg.MaxErrors,
	}
}

// Service polls payment orders until they settle
type Service struct {
	client   StatusFetcher
	config   Config
	logger   *monitor.Logger
	onChange func(*cryptomkt.PaymentOrder)
}

// NewService creates a new watch service
func NewService(client StatusFetcher, cfg Config, logger *monitor.Logger) *Service {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = cryptomkt.PaymentExpiry + time.Minute
	}
	if cfg.MaxErrors <= 0 {
		cfg.MaxErrors = 1
	}
	return &Service{client: client, config: cfg, logger: logger}
}

// OnChange registers fn to be called with the order each time a new
// status is observed, including the first one.
func (s *Service) OnChange(fn func(*cryptomkt.PaymentOrder)) {
	s.onChange = fn
}

// Watch polls the payment order id until its status is terminal and
// returns the last order observed. It stops early when ctx is cancelled,
// the watch timeout elapses (ErrTimeout), MaxErrors consecutive polls
// fail, or the error cannot be fixed by retrying.
func (s *Service) Watch(ctx context.Context, id string) (*cryptomkt.PaymentOrder, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	fields := logrus.Fields{"payment_id": id}
	s.logger.WithFields(fields).Info("watching payment order")

	var (
		last     *cryptomkt.PaymentOrder
		lastSeen *cryptomkt.PaymentStatus
		failures int
		started  = time.Now()
	)

	for {
		order, err := s.client.GetPaymentOrderStatus(id)
		if err != nil {
			if permanent(err) {
				return last, err
			}

			failures++
			s.logger.WithError(err).WithFields(logrus.Fields{
				"payment_id": id,
				"failures":   failures,
			}).Warn("failed to fetch payment order status")

			if failures >= s.config.MaxErrors {
				return last, fmt.Errorf("giving up after %d consecutive errors: %w", failures, err)
			}
		} else {
			failures = 0
			last = order

			status, err := order.Status()
			if err != nil {
				return last, err
			}

			if lastSeen == nil || *lastSeen != status {
				s.logger.WithFields(logrus.Fields{
					"payment_id": id,
					"status":     int(status),
					"message":    status.String(),
				}).Info("payment order status changed")

				lastSeen = &status
				if s.onChange != nil {
					s.onChange(order)
				}
			}

			if status.IsTerminal() {
				s.logger.WithFields(logrus.Fields{
					"payment_id":  id,
					"status":      int(status),
					"duration_ms": time.Since(started).Milliseconds(),
				}).Info("payment order settled")
				return last, nil
			}
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				s.logger.WithFields(fields).Warn("payment order watch timed out")
				return last, ErrTimeout
			}
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}

// permanent reports whether err will not go away by polling again.
func permanent(err error) bool {
	var authErr *cryptomkt.AuthError
	var valErr *cryptomkt.ValidationError
	return errors.As(err, &authErr) || errors.As(err, &valErr)
}
