package identity_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ebasak22/Fitness/internal/identity"
)

func newProviderServer(t *testing.T, verifyStatus int, verifyBody any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/accounts:sendVerificationCode", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "secret", r.URL.Query().Get("key"))
		json.NewEncoder(w).Encode(map[string]string{"sessionInfo": "sess-abc"})
	})
	mux.HandleFunc("/v1/accounts:signInWithPhoneNumber", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "sess-abc", req["sessionInfo"])
		w.WriteHeader(verifyStatus)
		json.NewEncoder(w).Encode(verifyBody)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPProviderHappyPath(t *testing.T) {
	srv := newProviderServer(t, http.StatusOK, map[string]string{
		"idToken":     "opaque-token",
		"localId":     "uid-1",
		"phoneNumber": "+919876543210",
	})
	p := identity.NewHTTPProvider(srv.URL, "secret", srv.Client())

	confirmation, err := p.SendChallenge(context.Background(), "+919876543210")
	require.NoError(t, err)

	cred, err := confirmation.Verify(context.Background(), "123456")
	require.NoError(t, err)
	require.Equal(t, "uid-1", cred.UID)
	require.Equal(t, "+919876543210", cred.Phone)
	require.Equal(t, "opaque-token", cred.Token)
	require.False(t, cred.ExpiresAt.IsZero())
}

func TestHTTPProviderErrorMapping(t *testing.T) {
	cases := []struct {
		code     string
		status   int
		sentinel error
	}{
		{code: "INVALID_CODE", status: http.StatusBadRequest, sentinel: identity.ErrWrongCode},
		{code: "INVALID_SESSION_INFO", status: http.StatusBadRequest, sentinel: identity.ErrWrongCode},
		{code: "SESSION_EXPIRED", status: http.StatusBadRequest, sentinel: identity.ErrExpired},
		{code: "TOO_MANY_ATTEMPTS_TRY_LATER", status: http.StatusBadRequest, sentinel: identity.ErrRateLimited},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			srv := newProviderServer(t, tc.status, map[string]any{
				"error": map[string]string{"message": tc.code},
			})
			p := identity.NewHTTPProvider(srv.URL, "secret", srv.Client())

			confirmation, err := p.SendChallenge(context.Background(), "+919876543210")
			require.NoError(t, err)

			_, err = confirmation.Verify(context.Background(), "000000")
			require.ErrorIs(t, err, tc.sentinel)
		})
	}
}

func TestHTTPProviderSendChallengeInvalidNumber(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/accounts:sendVerificationCode", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"INVALID_PHONE_NUMBER : TOO_SHORT"}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	p := identity.NewHTTPProvider(srv.URL, "", srv.Client())

	_, err := p.SendChallenge(context.Background(), "+91")
	require.ErrorIs(t, err, identity.ErrInvalidNumber)
}

func TestHTTPProviderNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	p := identity.NewHTTPProvider(srv.URL, "", nil)

	_, err := p.SendChallenge(context.Background(), "+919876543210")
	require.ErrorIs(t, err, identity.ErrNetwork)
}
