package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role: тип пользователя. Only riders and drivers exist on the client.
type Role string

const (
	RoleRider  Role = "RIDER"
	RoleDriver Role = "DRIVER"
)

func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleRider:
		return RoleRider, nil
	case RoleDriver:
		return RoleDriver, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

func (r Role) Valid() bool { return r == RoleRider || r == RoleDriver }

// Plural is used in guard warnings ("only accessible to drivers").
func (r Role) Plural() string {
	switch r {
	case RoleDriver:
		return "drivers"
	case RoleRider:
		return "riders"
	default:
		return "users"
	}
}

// Session is the authenticated identity bound to this client.
type Session struct {
	Username        string  `json:"username"`
	Role            Role    `json:"userType"`
	Name            string  `json:"name,omitempty"`
	Email           string  `json:"email,omitempty"`
	Phone           string  `json:"phone,omitempty"`
	Rating          float64 `json:"rating"`
	CurrentLocation string  `json:"current_location,omitempty"`
	IsAvailable     *bool   `json:"is_available,omitempty"`
}

// Profile is what the gateway returns about a user on login.
type Profile struct {
	Name            string
	Email           string
	Phone           string
	Rating          float64
	CurrentLocation string
	IsAvailable     *bool
}

func NewSession(username string, role Role, p Profile) Session {
	return Session{
		Username:        username,
		Role:            role,
		Name:            p.Name,
		Email:           p.Email,
		Phone:           p.Phone,
		Rating:          p.Rating,
		CurrentLocation: p.CurrentLocation,
		IsAvailable:     p.IsAvailable,
	}
}

func (s Session) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Username
}

// Validate is the well-formedness check applied to restored sessions.
func (s Session) Validate() error {
	if strings.TrimSpace(s.Username) == "" {
		return fmt.Errorf("%w: empty username", ErrMalformedSession)
	}
	if !s.Role.Valid() {
		return fmt.Errorf("%w: role %q", ErrMalformedSession, s.Role)
	}
	return nil
}

func (s Session) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

func UnmarshalSession(raw []byte) (Session, error) {
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrMalformedSession, err)
	}
	if err := s.Validate(); err != nil {
		return Session{}, err
	}
	return s, nil
}

type SessionStatus int

const (
	StatusLoading SessionStatus = iota
	StatusAnonymous
	StatusAuthenticated
)

func (s SessionStatus) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusAnonymous:
		return "anonymous"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// SessionState is the tri-state consumers observe.
type SessionState struct {
	Status  SessionStatus
	Session *Session
}

func Loading() SessionState   { return SessionState{Status: StatusLoading} }
func Anonymous() SessionState { return SessionState{Status: StatusAnonymous} }

func Authenticated(s Session) SessionState {
	return SessionState{Status: StatusAuthenticated, Session: &s}
}

func (st SessionState) Role() (Role, bool) {
	if st.Status != StatusAuthenticated || st.Session == nil {
		return "", false
	}
	return st.Session.Role, true
}

// ChangeReason tells listeners why the session state moved.
type ChangeReason string

const (
	ReasonRestore ChangeReason = "restore"
	ReasonLogin   ChangeReason = "login"
	ReasonLogout  ChangeReason = "logout"
	ReasonExpired ChangeReason = "expired"
)

type SessionChange struct {
	State  SessionState
	Reason ChangeReason
}

// Ended is true for transitions that must send the user back to the login view.
func (c SessionChange) Ended() bool {
	return c.Reason == ReasonLogout || c.Reason == ReasonExpired
}

// Registration: данные формы регистрации.
type Registration struct {
	Username        string
	Password        string
	ConfirmPassword string
	Role            Role
	Name            string
	Email           string
	Phone           string
}

func (r Registration) Validate() error {
	if strings.TrimSpace(r.Username) == "" || r.Password == "" {
		return fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	if r.ConfirmPassword != "" && r.ConfirmPassword != r.Password {
		return fmt.Errorf("%w: passwords do not match", ErrValidation)
	}
	if !r.Role.Valid() {
		return fmt.Errorf("%w: user type must be RIDER or DRIVER", ErrValidation)
	}
	return nil
}
