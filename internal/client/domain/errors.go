package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthenticated: гейтвей ответил 401 на запрос с токеном.
	ErrUnauthenticated = errors.New("session expired")

	// ErrSuperseded возвращается, когда результат логина пришёл после logout/expiry.
	ErrSuperseded = errors.New("session change superseded")

	ErrNotAuthenticated = errors.New("not authenticated")
	ErrWrongRole        = errors.New("operation not allowed for this role")

	ErrValidation       = errors.New("validation failed")
	ErrUnknownRole      = errors.New("unknown role")
	ErrMalformedSession = errors.New("malformed stored session")

	// ErrRideNotCancellable возвращается для COMPLETED/CANCELLED поездок.
	ErrRideNotCancellable  = errors.New("ride can no longer be cancelled")
	ErrRideNotAcceptable   = errors.New("ride is not waiting for a driver")
	ErrRideAlreadyAccepted = errors.New("ride already accepted by another driver")
	ErrRideNotFound        = errors.New("ride not found")
	ErrInvalidStatus       = errors.New("invalid ride status")
	ErrInvalidTransition   = errors.New("invalid ride status transition")
	ErrNotAssignedDriver   = errors.New("ride is assigned to another driver")

	ErrInvalidLocation = errors.New("unknown location")
	ErrSameLocation    = errors.New("pickup and destination must differ")
	ErrNoCabsAvailable = errors.New("no cabs available")
)

// TransportError wraps network failures, timeouts and 5xx responses.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: gateway returned %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DomainError is a refusal from the gateway: the request arrived but was rejected.
type DomainError struct {
	Op     string
	Reason string
	// Err optionally links the refusal to a sentinel above.
	Err error
}

func (e *DomainError) Error() string {
	if e.Reason == "" {
		return e.Op + ": request rejected"
	}
	return e.Op + ": " + e.Reason
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError maps well-known gateway reasons to sentinels.
func NewDomainError(op, reason string) *DomainError {
	de := &DomainError{Op: op, Reason: reason}
	r := strings.ToLower(reason)
	switch {
	case strings.Contains(r, "already"):
		de.Err = ErrRideAlreadyAccepted
	case strings.Contains(r, "not found"):
		de.Err = ErrRideNotFound
	case strings.Contains(r, "no cab"), strings.Contains(r, "no driver"):
		de.Err = ErrNoCabsAvailable
	case strings.Contains(r, "cannot cancel"), strings.Contains(r, "cannot be cancelled"):
		de.Err = ErrRideNotCancellable
	case strings.Contains(r, "invalid status transition"):
		de.Err = ErrInvalidTransition
	}
	return de
}

type Kind string

const (
	KindNone       Kind = ""
	KindTransport  Kind = "transport"
	KindDomain     Kind = "domain"
	KindAuth       Kind = "auth"
	KindStale      Kind = "stale"
	KindValidation Kind = "validation"
	KindUnknown    Kind = "unknown"
)

// Classify sorts an error into the families views react to differently.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	var te *TransportError
	var de *DomainError
	switch {
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrNotAuthenticated), errors.Is(err, ErrWrongRole):
		return KindAuth
	case errors.Is(err, ErrSuperseded):
		return KindStale
	case errors.As(err, &te):
		return KindTransport
	case errors.As(err, &de):
		return KindDomain
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidLocation), errors.Is(err, ErrSameLocation),
		errors.Is(err, ErrUnknownRole):
		return KindValidation
	case errors.Is(err, ErrRideNotCancellable), errors.Is(err, ErrRideNotAcceptable),
		errors.Is(err, ErrRideAlreadyAccepted), errors.Is(err, ErrRideNotFound), errors.Is(err, ErrNoCabsAvailable),
		errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNotAssignedDriver):
		return KindDomain
	default:
		return KindUnknown
	}
}

// UserMessage is the text shown in a notification for err.
func UserMessage(err error) string {
	var de *DomainError
	switch Classify(err) {
	case KindNone:
		return ""
	case KindTransport:
		return "Unable to reach the server. Please try again."
	case KindAuth:
		if errors.Is(err, ErrUnauthenticated) {
			return "Your session has expired. Please log in again."
		}
		if errors.Is(err, ErrWrongRole) {
			return "This action is not available for your account type."
		}
		return "Please log in to continue."
	case KindDomain:
		if errors.As(err, &de) && de.Reason != "" {
			return de.Reason
		}
		return capitalize(rootMessage(err))
	case KindValidation:
		return capitalize(strings.TrimPrefix(err.Error(), ErrValidation.Error()+": "))
	default:
		return "Something went wrong."
	}
}

func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
