// Package validation decides whether a claimed user or group name resolves
// to a real principal and renders the result for the permission matrix.
package validation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"principalcheck/internal/directory"
	"principalcheck/internal/fragment"
	"principalcheck/internal/knownusers"
	"principalcheck/internal/platform/config"
	"principalcheck/internal/principal/models"
	"principalcheck/internal/symbol"
	"principalcheck/internal/validation/metrics"
	"principalcheck/pkg/requestcontext"
)

const (
	tooltipGroup          = "Group"
	tooltipUser           = "User"
	tooltipGroupAmbiguous = "Group found; but permissions would also be granted to a user of this name"
	tooltipEither         = "Permissions would also be granted to a user or group of this name"
	userAmbiguousSuffix   = " found; but permissions would also be granted to a group of this name"
)

// Validator turns directory lookups into form-validation outcomes.
type Validator struct {
	renderer fragment.Renderer
	known    knownusers.Store
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	maxWidth int
}

// Option configures a Validator.
type Option func(*Validator)

// WithMaxLabelWidth caps the rendered length of a user's full name.
func WithMaxLabelWidth(width int) Option {
	return func(v *Validator) {
		if width > 0 {
			v.maxWidth = width
		}
	}
}

// WithTracerProvider replaces the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(v *Validator) {
		if tp != nil {
			v.tracer = tp.Tracer("principalcheck/internal/validation")
		}
	}
}

// New builds a Validator. symbols is copied; the validator never mutates it.
func New(symbols symbol.Table, known knownusers.Store, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Validator {
	v := &Validator{
		renderer: fragment.Renderer{Symbols: symbols},
		known:    known,
		logger:   logger,
		metrics:  m,
		tracer:   otel.Tracer("principalcheck/internal/validation"),
		maxWidth: config.DefaultMaxLabelWidth,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// ValidateGroup checks name against the group namespace of dir. ambiguous is
// true when the same name may also denote a user.
func (v *Validator) ValidateGroup(ctx context.Context, name string, dir directory.Directory, ambiguous bool) models.Outcome {
	ctx, span := v.startSpan(ctx, "validation.ValidateGroup", name, ambiguous)
	defer span.End()

	start := time.Now()
	_, err := dir.LookupGroup(ctx, name)
	result := v.observe(span, "group", err, start)

	var out models.Outcome
	switch result {
	case directory.ResultFound:
		if ambiguous {
			out = warning(v.renderer.Format(fragment.IconGroup, name, tooltipGroupAmbiguous, true))
		} else {
			out = ok(v.renderer.Format(fragment.IconGroup, name, tooltipGroup, false))
		}
	case directory.ResultMaybeExists:
		if ambiguous {
			out = warning(v.renderer.Format(fragment.IconGroup, name, tooltipEither, true))
		} else {
			out = ok(v.renderer.Text(name))
		}
	case directory.ResultNotFound:
		out = models.Inconclusive()
	case directory.ResultAuthError:
		out = v.failure(ctx, span, "group", "Failed to test the validity of the group name "+name, name, err)
	}

	v.metrics.IncrementOutcome("group", out.Severity.String())
	return out
}

// ValidateUser checks name against the user namespace of dir. ambiguous is
// true when the same name may also denote a group.
func (v *Validator) ValidateUser(ctx context.Context, name string, dir directory.Directory, ambiguous bool) models.Outcome {
	ctx, span := v.startSpan(ctx, "validation.ValidateUser", name, ambiguous)
	defer span.End()

	start := time.Now()
	user, err := dir.LookupUser(ctx, name)
	result := v.observe(span, "user", err, start)

	var out models.Outcome
	switch result {
	case directory.ResultFound:
		out = v.foundUser(ctx, name, user, ambiguous)
	case directory.ResultMaybeExists:
		if ambiguous {
			out = warning(v.renderer.Format(fragment.IconFor(models.KindEither), name, tooltipEither, true))
		} else {
			out = ok(v.renderer.Text(name))
		}
	case directory.ResultNotFound:
		out = models.Inconclusive()
	case directory.ResultAuthError:
		out = v.failure(ctx, span, "user", "Failed to test the validity of the user ID "+name, name, err)
	}

	v.metrics.IncrementOutcome("user", out.Severity.String())
	return out
}

// Check applies the lookup policy for a matrix entry of the given kind:
// GROUP and USER consult one namespace, EITHER tries the group namespace and
// then the user namespace with the ambiguity flag set. A name no namespace
// recognizes is rendered as not found.
func (v *Validator) Check(ctx context.Context, name string, kind models.Kind, dir directory.Directory) models.Outcome {
	name = strings.TrimSpace(name)
	if name == "" {
		return ok("")
	}

	var out models.Outcome
	switch kind {
	case models.KindGroup:
		out = v.ValidateGroup(ctx, name, dir, false)
	case models.KindUser:
		out = v.ValidateUser(ctx, name, dir, false)
	case models.KindEither:
		out = v.ValidateGroup(ctx, name, dir, true)
		if out.Inconclusive() {
			out = v.ValidateUser(ctx, name, dir, true)
		}
	default:
		return models.Outcome{
			Severity: models.SeverityError,
			HTML:     v.renderer.Text("Unknown principal kind " + kind.String()),
		}
	}
	if !out.Inconclusive() {
		return out
	}

	v.logger.InfoContext(ctx, "principal not found",
		"request_id", requestcontext.RequestID(ctx),
		"name", name,
		"kind", kind.String(),
	)
	return models.Outcome{
		Severity: models.SeverityError,
		HTML:     v.renderer.FormatNotFound(name, kind.Label()+" not found", false),
	}
}

func (v *Validator) foundUser(ctx context.Context, name string, user *models.User, ambiguous bool) models.Outcome {
	fullName := v.fullName(ctx, name)

	var label, tooltip string
	if fullName == name {
		// The id doubles as the display name; show the directory's unique name.
		label = name
		if user != nil && user.UniqueName != "" {
			label = user.UniqueName
		}
		tooltip = tooltipUser
		if ambiguous {
			tooltip = tooltipUser + userAmbiguousSuffix
		}
	} else {
		label = fragment.Abbreviate(fullName, v.maxWidth)
		tooltip = tooltipUser + " " + name
		if ambiguous {
			tooltip += userAmbiguousSuffix
		}
	}

	if ambiguous {
		return warning(v.renderer.Format(fragment.IconUser, label, tooltip, true))
	}
	return ok(v.renderer.Format(fragment.IconUser, label, tooltip, false))
}

// fullName returns the locally known display name for id, falling back to id
// when the registry cannot answer.
func (v *Validator) fullName(ctx context.Context, id string) string {
	if v.known == nil {
		return id
	}
	u, err := v.known.GetOrCreate(ctx, id)
	if err != nil {
		v.logger.WarnContext(ctx, "known user lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"name", id,
			"error", err,
		)
		return id
	}
	return u.FullName
}

func (v *Validator) failure(ctx context.Context, span trace.Span, namespace, message, name string, err error) models.Outcome {
	reason := directory.Reason(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, reason)
	v.logger.WarnContext(ctx, "directory lookup failed",
		"request_id", requestcontext.RequestID(ctx),
		"namespace", namespace,
		"name", name,
		"error", err,
	)
	return models.Outcome{
		Severity: models.SeverityError,
		HTML:     v.renderer.Text(message + ": " + reason),
	}
}

func (v *Validator) startSpan(ctx context.Context, op, name string, ambiguous bool) (context.Context, trace.Span) {
	return v.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("principal.name", name),
		attribute.Bool("principal.ambiguous", ambiguous),
	))
}

func (v *Validator) observe(span trace.Span, namespace string, err error, start time.Time) directory.Result {
	result := directory.Classify(err)
	v.metrics.ObserveLookup(namespace, result.String(), time.Since(start))
	span.SetAttributes(attribute.String("directory.result", result.String()))
	return result
}

func ok(html string) models.Outcome {
	return models.Outcome{Severity: models.SeverityOK, HTML: html}
}

func warning(html string) models.Outcome {
	return models.Outcome{Severity: models.SeverityWarning, HTML: html}
}
