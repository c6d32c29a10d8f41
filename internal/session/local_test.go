package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProvider(t *testing.T) *LocalProvider {
	t.Helper()
	return NewLocalProvider(nil, "test-secret", time.Hour)
}

func TestLocalProvider_Verify(t *testing.T) {
	acc := &account{
		ID:    "uid-1",
		Email: "jo@example.com",
		Name:  "Jo",
		Role:  "admin",
	}

	t.Run("issued token round trips", func(t *testing.T) {
		p := testProvider(t)
		token, err := p.generateToken(acc)
		require.NoError(t, err)

		sess, err := p.Verify(context.Background(), token)
		require.NoError(t, err)

		assert.Equal(t, "uid-1", sess.SubjectID)
		assert.Equal(t, "jo@example.com", sess.Email)
		assert.Equal(t, "Jo", sess.Metadata.Name)
		assert.Equal(t, "admin", sess.Metadata.Role)
	})

	t.Run("token signed with another secret is rejected", func(t *testing.T) {
		other := NewLocalProvider(nil, "other-secret", time.Hour)
		token, err := other.generateToken(acc)
		require.NoError(t, err)

		_, err = testProvider(t).Verify(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		p := NewLocalProvider(nil, "test-secret", -time.Hour)
		token, err := p.generateToken(acc)
		require.NoError(t, err)

		_, err = testProvider(t).Verify(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := testProvider(t).Verify(context.Background(), "not.a.token")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestLocalProvider_Lifecycle(t *testing.T) {
	t.Run("current is nil before any session", func(t *testing.T) {
		p := testProvider(t)
		sess, err := p.Current(context.Background())
		require.NoError(t, err)
		assert.Nil(t, sess)
	})

	t.Run("establish then sign out notifies subscribers", func(t *testing.T) {
		p := testProvider(t)

		var events []Event
		cancel := p.Subscribe(func(ev Event) { events = append(events, ev) })
		defer cancel()

		sess, err := p.establish(&account{ID: "uid-1", Email: "jo@example.com"})
		require.NoError(t, err)
		assert.NotEmpty(t, sess.Token)

		current, err := p.Current(context.Background())
		require.NoError(t, err)
		require.NotNil(t, current)
		assert.Equal(t, "uid-1", current.SubjectID)

		require.NoError(t, p.SignOut(context.Background()))
		current, err = p.Current(context.Background())
		require.NoError(t, err)
		assert.Nil(t, current)

		require.Len(t, events, 2)
		assert.Equal(t, Established, events[0].Kind)
		assert.Equal(t, Terminated, events[1].Kind)
	})

	t.Run("cancelled subscription stops receiving", func(t *testing.T) {
		p := testProvider(t)

		var count int
		cancel := p.Subscribe(func(Event) { count++ })
		cancel()

		require.NoError(t, p.SignOut(context.Background()))
		assert.Zero(t, count)
	})
}
