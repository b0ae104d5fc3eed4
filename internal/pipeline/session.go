package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"sedeck/internal/logging"
)

// ErrBusy indicates another cycle holds the session lock.
var ErrBusy = errors.New("another sedeck cycle is running")

type session struct {
	id     string
	ctx    context.Context
	logger *slog.Logger
	lock   *flock.Flock
}

func (r *Runner) begin(ctx context.Context, kind string) (*session, error) {
	if err := os.MkdirAll(filepath.Dir(r.lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(r.lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrBusy, r.lockPath)
	}

	id := r.newRunID()
	ctx = logging.WithRunID(ctx, id)
	logger := logging.WithContext(ctx, r.logger).With(logging.String("cycle", kind))
	logger.Debug("session lock acquired", logging.String("lock", r.lockPath))
	return &session{id: id, ctx: ctx, logger: logger, lock: lock}, nil
}

func (s *session) end() {
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("failed to release session lock", logging.Error(err))
	}
}

func newRunID() string {
	return uuid.NewString()
}
