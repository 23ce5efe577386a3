package directory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"principalcheck/internal/principal/models"
	"principalcheck/pkg/platform/circuit"
)

// scripted answers every lookup with the next queued error.
type scripted struct {
	errs  []error
	calls int
}

func (s *scripted) next() error {
	s.calls++
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func (s *scripted) LookupGroup(context.Context, string) (*models.Group, error) {
	if err := s.next(); err != nil {
		return nil, err
	}
	return &models.Group{ID: "g"}, nil
}

func (s *scripted) LookupUser(context.Context, string) (*models.User, error) {
	if err := s.next(); err != nil {
		return nil, err
	}
	return &models.User{ID: "u"}, nil
}

func TestGuarded(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("opens after repeated auth errors", func(t *testing.T) {
		inner := &scripted{errs: []error{NewAuthError("down", nil), NewAuthError("down", nil)}}
		g := NewGuarded(inner, circuit.New("graph", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour)), logger)

		_, _ = g.LookupGroup(ctx, "a")
		_, _ = g.LookupUser(ctx, "a")
		_, err := g.LookupGroup(ctx, "a")

		assert.Equal(t, ResultAuthError, Classify(err))
		assert.Equal(t, reasonCircuitOpen, Reason(err))
		assert.Equal(t, 2, inner.calls)
	})

	t.Run("not found and undecidable are healthy answers", func(t *testing.T) {
		inner := &scripted{errs: []error{ErrNotFound, ErrUndecidable, ErrNotFound}}
		g := NewGuarded(inner, circuit.New("graph", circuit.WithFailureThreshold(1)), logger)

		for range 3 {
			_, _ = g.LookupUser(ctx, "a")
		}
		_, err := g.LookupUser(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, 4, inner.calls)
	})

	t.Run("canceled callers are not counted", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		inner := &scripted{errs: []error{context.Canceled}}
		b := circuit.New("graph", circuit.WithFailureThreshold(1))
		g := NewGuarded(inner, b, logger)

		_, err := g.LookupGroup(cctx, "a")
		assert.True(t, errors.Is(err, context.Canceled))
		assert.False(t, b.IsOpen())
	})
}
