package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centsible/centsible/internal/auth"
)

var secret = []byte("test-secret")

func TestParseToken_RoundTrip(t *testing.T) {
	userID := uuid.New()

	token, err := auth.GenerateToken(userID, secret, time.Hour)
	require.NoError(t, err)

	got, err := auth.ParseToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := auth.GenerateToken(uuid.New(), secret, time.Hour)
	require.NoError(t, err)

	_, err = auth.ParseToken(token, []byte("other-secret"))
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseToken_Expired(t *testing.T) {
	token, err := auth.GenerateToken(uuid.New(), secret, -time.Minute)
	require.NoError(t, err)

	_, err = auth.ParseToken(token, secret)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	userID := uuid.New()

	token, err := auth.GenerateToken(userID, secret, time.Hour)
	require.NoError(t, err)

	var gotUser uuid.UUID

	handler := auth.Middleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = auth.UserID(r.Context())
	}))

	tests := []struct {
		name       string
		setup      func(r *http.Request)
		wantStatus int
	}{
		{
			name:       "BearerHeader",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) },
			wantStatus: http.StatusOK,
		},
		{
			name:       "QueryToken",
			setup:      func(r *http.Request) { r.URL.RawQuery = "token=" + token },
			wantStatus: http.StatusOK,
		},
		{
			name:       "Missing",
			setup:      func(r *http.Request) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "Garbage",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer not-a-token") },
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser = uuid.Nil

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, userID, gotUser)
			}
		})
	}
}
