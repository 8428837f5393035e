package token

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRequire(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	serve := func(h http.Handler, token string) int {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		if token != "" {
			req.Header.Set(Header, token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("plain token", func(t *testing.T) {
		guarded := Require("s3cret", logger)(ok)
		assert.Equal(t, http.StatusNoContent, serve(guarded, "s3cret"))
		assert.Equal(t, http.StatusUnauthorized, serve(guarded, "wrong"))
		assert.Equal(t, http.StatusUnauthorized, serve(guarded, ""))
	})

	t.Run("bcrypt hash", func(t *testing.T) {
		hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
		require.NoError(t, err)

		guarded := Require(string(hash), logger)(ok)
		assert.Equal(t, http.StatusNoContent, serve(guarded, "s3cret"))
		assert.Equal(t, http.StatusUnauthorized, serve(guarded, "wrong"))
		assert.Equal(t, http.StatusUnauthorized, serve(guarded, ""))
		assert.Equal(t, http.StatusUnauthorized, serve(guarded, string(hash)), "the hash itself is not the token")
	})

	t.Run("empty token leaves the endpoint open", func(t *testing.T) {
		open := Require("", logger)(ok)
		assert.Equal(t, http.StatusNoContent, serve(open, ""))
	})
}
