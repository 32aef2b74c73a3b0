package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/gad-tramites/internal/domain"
)

func sign(t *testing.T, key *rsa.PrivateKey, method jwt.SigningMethod, claims *domain.CustomClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return tok
}

func claims(issuer string, exp time.Time, scopes ...string) *domain.CustomClaims {
	c := &domain.CustomClaims{
		UserID: "u-1",
		Name:   "Inspector Ruiz",
		Scopes: map[string]bool{},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	for _, s := range scopes {
		c.Scopes[s] = true
	}
	return c
}

func TestVerifyToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	v := NewBaseValidator(&key.PublicKey, "gad-tramites")
	future := time.Now().Add(time.Hour)

	got, err := v.VerifyToken("Bearer " + sign(t, key, jwt.SigningMethodRS256, claims("gad-tramites", future, domain.ScopeReview)))
	require.NoError(t, err)
	assert.Equal(t, "Inspector Ruiz", got.Name)
	assert.True(t, got.Scopes[domain.ScopeReview])

	cases := map[string]string{
		"expired":      sign(t, key, jwt.SigningMethodRS256, claims("gad-tramites", time.Now().Add(-time.Minute))),
		"foreign key":  sign(t, other, jwt.SigningMethodRS256, claims("gad-tramites", future)),
		"wrong issuer": sign(t, key, jwt.SigningMethodRS256, claims("someone-else", future)),
		"wrong method": sign(t, key, jwt.SigningMethodRS512, claims("gad-tramites", future)),
		"garbage":      "not-a-token",
		"empty":        "Bearer ",
	}
	for name, tok := range cases {
		_, err := v.VerifyToken(tok)
		assert.Error(t, err, name)
	}
}

type staticValidator struct{ c *domain.CustomClaims }

func (s staticValidator) VerifyToken(tok string) (*domain.CustomClaims, error) {
	if tok != "Bearer good" {
		return nil, assert.AnError
	}
	return s.c, nil
}

func TestMiddlewareAndScopes(t *testing.T) {
	v := staticValidator{c: claims("gad-tramites", time.Now().Add(time.Hour), domain.ScopeCashier)}
	var actor string
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor = Actor(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	h := NewMiddleware(v, zap.NewNop())(RequireScope(domain.ScopeCashier)(final))
	denied := NewMiddleware(v, zap.NewNop())(RequireScope(domain.ScopeReview)(final))

	do := func(h http.Handler, header string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/tramites/x/payment", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, do(h, ""))
	assert.Equal(t, http.StatusUnauthorized, do(h, "Bearer bad"))
	assert.Equal(t, http.StatusForbidden, do(denied, "Bearer good"))
	assert.Equal(t, http.StatusNoContent, do(h, "Bearer good"))
	assert.Equal(t, "Inspector Ruiz", actor)
}
