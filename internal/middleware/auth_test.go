package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"picturegram-sync/internal/identity"
	"picturegram-sync/internal/models"

	"github.com/stretchr/testify/require"
)

type stubAuth map[string]models.Principal

func (s stubAuth) Authenticate(_ context.Context, token string) (models.Principal, error) {
	p, ok := s[token]
	if !ok {
		return models.Principal{}, errors.New("unknown token")
	}
	return p, nil
}

func TestAuthMiddleware(t *testing.T) {
	auth := stubAuth{"good": {ID: "u1", DisplayName: "alice"}}
	var seen models.Principal
	h := AuthMiddleware(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = identity.FromContext(r.Context())
		require.Equal(t, "u1", GetUserID(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer bad", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, tc.status, rec.Code)
		})
	}
	require.Equal(t, models.Principal{ID: "u1", DisplayName: "alice"}, seen)
}
