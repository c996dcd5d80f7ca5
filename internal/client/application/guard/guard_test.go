package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cabconnect/internal/client/application/ports/out"
	"cabconnect/internal/client/domain"
	"cabconnect/internal/client/testutil"
)

var (
	rider  = domain.Authenticated(domain.Session{Username: "alice", Role: domain.RoleRider})
	driver = domain.Authenticated(domain.Session{Username: "dave", Role: domain.RoleDriver})
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name    string
		state   domain.SessionState
		req     Requirement
		want    Outcome
		warning string
	}{
		{"loading waits", domain.Loading(), Driver, Wait, ""},
		{"loading waits on guest page", domain.Loading(), Guest, Wait, ""},
		{"anonymous to login", domain.Anonymous(), Authenticated, RedirectToLogin, ""},
		{"anonymous to login for role page", domain.Anonymous(), Rider, RedirectToLogin, ""},
		{"public page", domain.Anonymous(), None, Render, ""},
		{"rider on rider page", rider, Rider, Render, ""},
		{"rider on driver page", rider, Driver, RedirectToHome, "This page is only accessible to drivers"},
		{"driver on rider page", driver, Rider, RedirectToHome, "This page is only accessible to riders"},
		{"driver on shared page", driver, Authenticated, Render, ""},
		{"guest page anonymous", domain.Anonymous(), Guest, Render, ""},
		{"guest page authenticated", rider, Guest, RedirectToHome, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.state, tt.req)
			assert.Equal(t, tt.want, d.Outcome)
			assert.Equal(t, tt.warning, d.Warning)
		})
	}
}

func TestCheckWarnsOncePerTransition(t *testing.T) {
	n := &testutil.Notifier{}
	g := New(n)

	g.Check("/available-rides", rider, Driver)
	g.Check("/available-rides", rider, Driver)
	g.Check("/available-rides", rider, Driver)
	assert.Len(t, n.Notes(), 1)
	assert.Equal(t, out.LevelWarning, n.Last().Level)

	// leaving the redirect state re-arms the warning
	g.Check("/available-rides", driver, Driver)
	g.Check("/available-rides", rider, Driver)
	assert.Len(t, n.Notes(), 2)

	// keys are independent
	g.Check("/availability", rider, Driver)
	assert.Len(t, n.Notes(), 3)
}

func TestCheckNeverWarnsWithoutRoleMismatch(t *testing.T) {
	n := &testutil.Notifier{}
	g := New(n)
	g.Check("/", domain.Anonymous(), Authenticated)
	g.Check("/login", rider, Guest)
	g.Check("/stats", domain.Loading(), Authenticated)
	assert.Empty(t, n.Notes())
}

func TestForgetStartsNewNavigation(t *testing.T) {
	n := &testutil.Notifier{}
	g := New(n)

	g.Check("/book-ride", driver, Rider)
	g.Check("/book-ride", driver, Rider)
	assert.Len(t, n.Notes(), 1)

	g.Forget("/book-ride")
	g.Check("/book-ride", driver, Rider)
	assert.Len(t, n.Notes(), 2)
	assert.Equal(t, "This page is only accessible to riders", n.Last().Message)
}
