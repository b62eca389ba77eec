package membership

import (
	"context"
	"log/slog"
	"time"
)

// Checker is the external capability confirming a user belongs to the
// required channel. The Telegram transport provides the real
// implementation.
type Checker interface {
	IsMember(ctx context.Context, telegramID int64) (bool, error)
}

// DefaultTimeout bounds how long a membership check may block
const DefaultTimeout = 5 * time.Second

// Service wraps the membership capability with a bounded timeout and
// fail-closed semantics: any transport error or timeout reads as "not
// subscribed" instead of hanging or crashing.
type Service struct {
	checker Checker
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a new membership service
func New(checker Checker, timeout time.Duration, logger *slog.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		checker: checker,
		timeout: timeout,
		logger:  logger,
	}
}

// Check reports whether the user is subscribed to the required channel
func (s *Service) Check(ctx context.Context, telegramID int64) bool {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ok, err := s.checker.IsMember(ctx, telegramID)
	if err != nil {
		s.logger.Warn("membership check failed",
			slog.Int64("telegram_id", telegramID),
			slog.String("error", err.Error()),
		)
		return false
	}
	return ok
}
