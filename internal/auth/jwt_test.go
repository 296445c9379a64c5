package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "session-secret-32-chars-long!!!!"

func TestJWTManager_IssueAndVerify(t *testing.T) {
	mgr := NewJWTManager(testSecret, time.Hour)

	t.Run("round trip", func(t *testing.T) {
		sess, err := mgr.Issue("uid-123", "test@example.com")
		require.NoError(t, err)
		assert.NotEmpty(t, sess.Token)
		assert.Equal(t, int64(3600), sess.ExpiresIn)

		claims, err := mgr.Verify(sess.Token)
		require.NoError(t, err)
		assert.Equal(t, "uid-123", claims.SubjectID())
		assert.Equal(t, "test@example.com", claims.Email)
		assert.Equal(t, "uid-123", claims.Subject)
	})

	t.Run("garbage is malformed", func(t *testing.T) {
		_, err := mgr.Verify("not-a-token")
		assert.ErrorIs(t, err, ErrTokenMalformed)
	})

	t.Run("foreign secret fails signature", func(t *testing.T) {
		other := NewJWTManager("another-secret-32-chars-long!!!!", time.Hour)
		sess, err := other.Issue("uid-123", "test@example.com")
		require.NoError(t, err)

		_, err = mgr.Verify(sess.Token)
		assert.ErrorIs(t, err, ErrTokenSignature)
	})

	t.Run("expired token", func(t *testing.T) {
		issued := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)
		m := NewJWTManager(testSecret, time.Hour)
		m.now = func() time.Time { return issued }

		sess, err := m.Issue("uid-exp", "exp@test.com")
		require.NoError(t, err)

		m.now = func() time.Time { return issued.Add(59 * time.Minute) }
		_, err = m.Verify(sess.Token)
		require.NoError(t, err)

		m.now = func() time.Time { return issued.Add(61 * time.Minute) }
		_, err = m.Verify(sess.Token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})
}

func TestClaims_SubjectIDFallsBackToSub(t *testing.T) {
	c := &Claims{}
	c.Subject = "from-sub"
	assert.Equal(t, "from-sub", c.SubjectID())

	c.UserID = "from-uid"
	assert.Equal(t, "from-uid", c.SubjectID())
}
