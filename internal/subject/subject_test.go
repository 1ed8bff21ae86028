package subject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/sessiongate/internal/session"
	"github.com/vyrodovalexey/sessiongate/internal/token"
)

func testSession() *session.StoredSession {
	return &session.StoredSession{
		ID: "s1",
		Principal: session.Principal{
			ID:    "alice",
			Roles: []string{"reader", "admin"},
		},
		TTLSeconds: 60,
	}
}

func TestNew_Anonymous(t *testing.T) {
	t.Parallel()

	s := New("billing")

	assert.Equal(t, "billing", s.System())
	assert.False(t, s.IsAuthenticated())
	_, ok := s.Principal()
	assert.False(t, ok)
	assert.Empty(t, s.Roles())
	assert.Nil(t, s.Session())
	assert.Nil(t, s.AuthenticationToken())
}

func TestNew_WithSession(t *testing.T) {
	t.Parallel()

	stored := testSession()
	s := New("billing", WithSession(stored), WithRoles("auditor"))

	require.True(t, s.IsAuthenticated())
	p, ok := s.Principal()
	require.True(t, ok)
	assert.Equal(t, "alice", p.ID)
	assert.Equal(t, []string{"admin", "auditor", "reader"}, s.Roles())
	assert.True(t, s.HasRole("admin"))
	assert.False(t, s.HasRole("root"))
	assert.Same(t, stored, s.Session())

	p.Roles[0] = "mutated"
	again, _ := s.Principal()
	assert.NotEqual(t, "mutated", again.Roles[0])
}

func TestNew_NilSessionIsAnonymous(t *testing.T) {
	t.Parallel()

	s := New("", WithSession(nil))
	assert.False(t, s.IsAuthenticated())
}

func TestNew_WithToken(t *testing.T) {
	t.Parallel()

	tok := token.NewLoginPasswordToken([]byte("alice"), []byte("pw"))
	s := New("", WithToken(tok))

	assert.Same(t, tok, s.AuthenticationToken())
	assert.False(t, s.IsAuthenticated(), "a token alone does not authenticate")
}
