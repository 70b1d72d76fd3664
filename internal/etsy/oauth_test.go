package etsy

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justpow98/j3d-backend/internal/config"
)

func TestAuthorizationURL(t *testing.T) {
	oauth := NewOAuth(config.EtsyConfig{
		ClientID:    "client-1",
		RedirectURI: "https://app.test/callback",
		AuthURL:     "https://www.etsy.com/oauth/connect",
	})

	auth, err := oauth.AuthorizationURL()
	require.NoError(t, err)
	assert.NotEmpty(t, auth.State)
	assert.NotEmpty(t, auth.CodeVerifier)

	u, err := url.Parse(auth.URL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "client-1", q.Get("client_id"))
	assert.Equal(t, "https://app.test/callback", q.Get("redirect_uri"))
	assert.Equal(t, "transactions_r shops_r", q.Get("scope"))
	assert.Equal(t, auth.State, q.Get("state"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))

	// the challenge is the S256 digest of the verifier
	sum := sha256.Sum256([]byte(auth.CodeVerifier))
	expected := base64.RawURLEncoding.EncodeToString(sum[:])
	assert.Equal(t, expected, q.Get("code_challenge"))
}

func TestAuthorizationURLUniquePerCall(t *testing.T) {
	oauth := NewOAuth(config.EtsyConfig{AuthURL: "https://www.etsy.com/oauth/connect"})

	a, err := oauth.AuthorizationURL()
	require.NoError(t, err)
	b, err := oauth.AuthorizationURL()
	require.NoError(t, err)

	assert.NotEqual(t, a.State, b.State)
	assert.NotEqual(t, a.CodeVerifier, b.CodeVerifier)
}

func TestExchangeCode(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":3600,"token_type":"Bearer"}`))
	}))
	defer server.Close()

	oauth := NewOAuth(config.EtsyConfig{
		ClientID:    "client-1",
		RedirectURI: "https://app.test/callback",
		TokenURL:    server.URL,
	})

	token, err := oauth.ExchangeCode(context.Background(), "the-code", "the-verifier")
	require.NoError(t, err)
	assert.Equal(t, "at", token.AccessToken)
	assert.Equal(t, "rt", token.RefreshToken)

	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "the-code", form.Get("code"))
	assert.Equal(t, "the-verifier", form.Get("code_verifier"))
	assert.Equal(t, "client-1", form.Get("client_id"))
}

func TestTokenResponseExpiresAt(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	token := &TokenResponse{ExpiresIn: 7200}
	assert.Equal(t, now.Add(2*time.Hour), token.ExpiresAt(now))
}

func TestMoneyDollars(t *testing.T) {
	assert.InDelta(t, 42.50, Money{Amount: 4250, Divisor: 100}.Dollars(), 0.001)
	assert.InDelta(t, 19.99, Money{Amount: 1999}.Dollars(), 0.001)
	assert.InDelta(t, 5.0, Money{Amount: 500, Divisor: 100, CurrencyCode: "EUR"}.Dollars(), 0.001)
}
