package models

import (
	"fmt"
	"strings"
	"time"
)

// Kind selects which namespace a matrix entry refers to.
type Kind int

const (
	KindUser Kind = iota + 1
	KindGroup
	KindEither
)

// ParseKind accepts USER, GROUP or EITHER in any case.
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "USER":
		return KindUser, nil
	case "GROUP":
		return KindGroup, nil
	case "EITHER":
		return KindEither, nil
	default:
		return 0, fmt.Errorf("unknown principal kind %q", s)
	}
}

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "USER"
	case KindGroup:
		return "GROUP"
	case KindEither:
		return "EITHER"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Label is the human-readable form used in tooltips.
func (k Kind) Label() string {
	switch k {
	case KindUser:
		return "User"
	case KindGroup:
		return "Group"
	default:
		return "User or group"
	}
}

// Severity is the form-validation kind shown to the UI.
type Severity int

const (
	SeverityOK Severity = iota + 1
	SeverityWarning
	SeverityError
	// SeverityInconclusive means the lookup did not find the name; the caller
	// should try the other namespace. It is never a final form result.
	SeverityInconclusive
)

func (s Severity) String() string {
	switch s {
	case SeverityOK:
		return "ok"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityInconclusive:
		return "inconclusive"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Outcome is a validation result: a severity plus an HTML-safe message.
type Outcome struct {
	Severity Severity
	HTML     string
}

// Inconclusive reports whether the caller should continue with the other namespace.
func (o Outcome) Inconclusive() bool {
	return o.Severity == SeverityInconclusive
}

// Inconclusive is the outcome of a lookup that found nothing.
func Inconclusive() Outcome {
	return Outcome{Severity: SeverityInconclusive}
}

// User is a user principal as returned by a directory.
type User struct {
	ID          string
	UniqueName  string // e.g. the user principal name
	DisplayName string
}

// Group is a group principal as returned by a directory.
type Group struct {
	ID          string
	DisplayName string
}

// KnownUser is the locally cached record of a user the system has seen.
type KnownUser struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	UpdatedAt time.Time `json:"updated_at"`
}
