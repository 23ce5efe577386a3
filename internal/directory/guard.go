package directory

import (
	"context"
	"log/slog"

	"principalcheck/internal/principal/models"
	"principalcheck/pkg/platform/circuit"
)

// reasonCircuitOpen is reported while the breaker rejects lookups.
const reasonCircuitOpen = "directory temporarily unavailable"

// Guarded wraps a Directory with a circuit breaker. Only AuthError results
// count as failures; lookups abandoned by the caller are not counted.
type Guarded struct {
	next    Directory
	breaker *circuit.Breaker
	logger  *slog.Logger
}

// NewGuarded returns next behind breaker.
func NewGuarded(next Directory, breaker *circuit.Breaker, logger *slog.Logger) *Guarded {
	return &Guarded{next: next, breaker: breaker, logger: logger}
}

// LookupGroup implements Directory.
func (g *Guarded) LookupGroup(ctx context.Context, name string) (*models.Group, error) {
	if !g.breaker.Allow() {
		return nil, NewAuthError(reasonCircuitOpen, nil)
	}
	grp, err := g.next.LookupGroup(ctx, name)
	g.record(ctx, err)
	return grp, err
}

// LookupUser implements Directory.
func (g *Guarded) LookupUser(ctx context.Context, name string) (*models.User, error) {
	if !g.breaker.Allow() {
		return nil, NewAuthError(reasonCircuitOpen, nil)
	}
	u, err := g.next.LookupUser(ctx, name)
	g.record(ctx, err)
	return u, err
}

func (g *Guarded) record(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	if Classify(err) != ResultAuthError {
		if g.breaker.RecordSuccess() {
			g.logger.InfoContext(ctx, "directory circuit closed", "breaker", g.breaker.Name())
		}
		return
	}
	if g.breaker.RecordFailure() {
		g.logger.WarnContext(ctx, "directory circuit opened",
			"breaker", g.breaker.Name(),
			"error", err,
		)
	}
}
