package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmalhotra/filedrive/auth"
)

func TestSessions_IssueAndVerify(t *testing.T) {
	sessions := auth.NewSessions([]byte("test-secret"), time.Hour)

	token, err := sessions.Issue("user-123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := sessions.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestSessions_Verify_WrongSecret(t *testing.T) {
	issued := auth.NewSessions([]byte("secret-a"), time.Hour)
	verifier := auth.NewSessions([]byte("secret-b"), time.Hour)

	token, err := issued.Issue("user-123")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestSessions_Verify_Expired(t *testing.T) {
	// NewSessions treats non-positive validity as the default, so build an
	// already-expired token with a tiny window instead.
	sessions := auth.NewSessions([]byte("test-secret"), time.Millisecond)

	token, err := sessions.Issue("user-123")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = sessions.Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestSessions_Verify_Garbage(t *testing.T) {
	sessions := auth.NewSessions([]byte("test-secret"), time.Hour)

	for _, tok := range []string{"", "abc", "a.b.c"} {
		_, err := sessions.Verify(tok)
		assert.ErrorIs(t, err, auth.ErrInvalidToken, "token %q", tok)
	}
}

func TestSessions_DefaultValidity(t *testing.T) {
	sessions := auth.NewSessions([]byte("test-secret"), 0)
	assert.Equal(t, 24*time.Hour, sessions.Validity())
}
