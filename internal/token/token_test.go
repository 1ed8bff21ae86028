package token

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestConstructors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		tok        *LoginPasswordToken
		wantSystem string
		wantScheme Scheme
	}{
		{
			name:       "default system",
			tok:        NewLoginPasswordToken([]byte("alice"), []byte("secret")),
			wantSystem: "",
			wantScheme: SchemeForm,
		},
		{
			name:       "named system",
			tok:        NewSystemLoginPasswordToken("billing", []byte("alice"), []byte("secret")),
			wantSystem: "billing",
			wantScheme: SchemeForm,
		},
		{
			name:       "explicit scheme",
			tok:        NewLoginPasswordTokenWithScheme("crm", SchemeBasic, []byte("alice"), []byte("secret")),
			wantSystem: "crm",
			wantScheme: SchemeBasic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, "alice", tt.tok.Token())
			assert.Equal(t, tt.wantSystem, tt.tok.System())
			assert.Equal(t, tt.wantScheme, tt.tok.Scheme())
			assert.True(t, tt.tok.SessionAllowed())
			assert.True(t, tt.tok.AuthenticationRequired())
			assert.True(t, tt.tok.CredentialsPending())
		})
	}
}

func TestReadCredentials_Once(t *testing.T) {
	t.Parallel()

	tok := NewLoginPasswordToken([]byte("alice"), []byte("secret"))

	got, err := tok.ReadCredentials()
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), got)
	assert.False(t, tok.CredentialsPending())

	for i := 0; i < 2; i++ {
		got, err = tok.ReadCredentials()
		assert.ErrorIs(t, err, ErrCredentialsConsumed)
		assert.Nil(t, got)
	}
}

func TestReadCredentials_EmptyPassword(t *testing.T) {
	t.Parallel()

	tok := NewLoginPasswordToken([]byte("alice"), nil)

	got, err := tok.ReadCredentials()
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = tok.ReadCredentials()
	assert.ErrorIs(t, err, ErrCredentialsConsumed)
}

func TestReadCredentials_Concurrent(t *testing.T) {
	t.Parallel()

	tok := NewLoginPasswordToken([]byte("alice"), []byte("secret"))

	var (
		wg       sync.WaitGroup
		winners  atomic.Int32
		consumed atomic.Int32
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tok.ReadCredentials(); err == nil {
				winners.Add(1)
			} else if assert.ErrorIs(t, err, ErrCredentialsConsumed) {
				consumed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
	assert.Equal(t, int32(31), consumed.Load())
}

func TestLoginPasswordToken_NeverRendersSecret(t *testing.T) {
	t.Parallel()

	tok := NewSystemLoginPasswordToken("billing", []byte("alice"), []byte("hunter2"))

	s := tok.String()
	assert.NotContains(t, s, "hunter2")
	assert.Contains(t, s, `login="alice"`)
	assert.Contains(t, s, "credentialsPending=true")

	core, logs := observer.New(zapcore.DebugLevel)
	zap.New(core).Info("token", zap.Object("token", tok))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()["token"].(map[string]interface{})
	assert.Equal(t, "billing", fields["system"])
	assert.Equal(t, "FORM", fields["scheme"])
	assert.Equal(t, "alice", fields["login"])
	assert.Equal(t, true, fields["credentialsPending"])
	assert.NotContains(t, fields, "password")

	_, err := tok.ReadCredentials()
	require.NoError(t, err)
	assert.Contains(t, tok.String(), "credentialsPending=false")
}

func TestScheme(t *testing.T) {
	t.Parallel()

	tests := []struct {
		scheme Scheme
		valid  bool
	}{
		{SchemeForm, true},
		{SchemeBasic, true},
		{SchemeBearer, true},
		{Scheme("DIGEST"), false},
		{Scheme(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.scheme.String(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.valid, tt.scheme.IsValid())
		})
	}
}
