package oidc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://accounts.google.com"

func unsignedToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	enc := base64.RawURLEncoding
	hdr, err := json.Marshal(map[string]string{"alg": "RS256", "typ": "JWT"})
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	return enc.EncodeToString(hdr) + "." + enc.EncodeToString(payload) + "." + enc.EncodeToString([]byte("sig"))
}

func googleClaims() map[string]any {
	return map[string]any{
		"iss":            testIssuer,
		"aud":            "client-1",
		"sub":            "1100220033",
		"name":           "Alice",
		"email":          "alice@example.com",
		"email_verified": true,
		"iat":            time.Now().Unix(),
		"exp":            time.Now().Add(time.Hour).Unix(),
	}
}

func TestInsecureVerifier_DecodesGoogleUser(t *testing.T) {
	v := NewInsecureVerifier(testIssuer, "client-1")

	u, err := v.VerifyGoogle(context.Background(), unsignedToken(t, googleClaims()))
	require.NoError(t, err)
	assert.Equal(t, "1100220033", u.Sub)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.True(t, u.EmailVerified)

	id := u.Identity()
	assert.Equal(t, "google", id.Provider)
	assert.Equal(t, "Alice", id.Name)
}

func TestInsecureVerifier_StillChecksClaims(t *testing.T) {
	v := NewInsecureVerifier(testIssuer, "client-1")
	ctx := context.Background()

	wrongAud := googleClaims()
	wrongAud["aud"] = "someone-else"
	_, err := v.VerifyGoogle(ctx, unsignedToken(t, wrongAud))
	assert.Error(t, err)

	expired := googleClaims()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	_, err = v.VerifyGoogle(ctx, unsignedToken(t, expired))
	assert.Error(t, err)

	wrongIss := googleClaims()
	wrongIss["iss"] = "https://evil.example"
	_, err = v.VerifyGoogle(ctx, unsignedToken(t, wrongIss))
	assert.Error(t, err)

	noSub := googleClaims()
	delete(noSub, "sub")
	_, err = v.VerifyGoogle(ctx, unsignedToken(t, noSub))
	assert.Error(t, err)

	_, err = v.VerifyGoogle(ctx, "garbage")
	assert.Error(t, err)
}
