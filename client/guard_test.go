package client

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard(t *testing.T) {
	t.Run("forbidden trips immediately", func(t *testing.T) {
		g := newGuard()
		require.NoError(t, g.check())

		g.observe(http.StatusForbidden)

		require.ErrorIs(t, g.check(), ErrBlocked)
		halted, _, reason := g.details()
		assert.True(t, halted)
		assert.Equal(t, "HTTP 403 detected", reason)
	})

	t.Run("consecutive server errors trip", func(t *testing.T) {
		g := newGuard()
		for i := 0; i < 4; i++ {
			g.observe(http.StatusInternalServerError)
		}
		require.NoError(t, g.check())

		g.observe(http.StatusServiceUnavailable)

		require.ErrorIs(t, g.check(), ErrBlocked)
	})

	t.Run("success resets the count", func(t *testing.T) {
		g := newGuard()
		for i := 0; i < 4; i++ {
			g.observe(http.StatusInternalServerError)
		}
		g.observe(http.StatusOK)
		for i := 0; i < 4; i++ {
			g.observe(http.StatusInternalServerError)
		}

		assert.NoError(t, g.check())
	})

	t.Run("client errors are neutral", func(t *testing.T) {
		g := newGuard()
		for i := 0; i < 4; i++ {
			g.observe(http.StatusInternalServerError)
		}
		g.observe(http.StatusConflict)
		require.NoError(t, g.check())

		g.observe(http.StatusInternalServerError)
		assert.ErrorIs(t, g.check(), ErrBlocked)
	})

	t.Run("first reason is kept", func(t *testing.T) {
		g := newGuard()
		g.observe(http.StatusTooManyRequests)
		g.observe(http.StatusForbidden)

		_, _, reason := g.details()
		assert.Equal(t, "HTTP 429 detected", reason)
	})
}
