package crypto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	Nonce     string `json:"nonce"`
	ReturnURL string `json:"return_url"`
}

func TestTokenSigner_SignVerify(t *testing.T) {
	signer := NewTokenSigner([]byte("test-signing-key-32-bytes-long!!"), 10*time.Minute)

	original := testPayload{Nonce: "abc123", ReturnURL: "/dashboard"}

	token, err := signer.Sign(original)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	var decoded testPayload
	err = signer.Verify(token, &decoded)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestTokenSigner_RejectsTampering(t *testing.T) {
	signer := NewTokenSigner([]byte("test-signing-key-32-bytes-long!!"), 10*time.Minute)

	token, err := signer.Sign(testPayload{Nonce: "abc123"})
	require.NoError(t, err)

	tampered := "x" + token[1:]
	var decoded testPayload
	assert.Error(t, signer.Verify(tampered, &decoded))
}

func TestTokenSigner_RejectsWrongKey(t *testing.T) {
	signer := NewTokenSigner([]byte("test-signing-key-32-bytes-long!!"), 10*time.Minute)
	other := NewTokenSigner([]byte("another-signing-key-32-bytes!!!!"), 10*time.Minute)

	token, err := signer.Sign(testPayload{Nonce: "abc123"})
	require.NoError(t, err)

	var decoded testPayload
	assert.Error(t, other.Verify(token, &decoded))
}

func TestTokenSigner_RejectsExpired(t *testing.T) {
	signer := NewTokenSigner([]byte("test-signing-key-32-bytes-long!!"), -1*time.Minute)

	token, err := signer.Sign(testPayload{Nonce: "abc123"})
	require.NoError(t, err)

	var decoded testPayload
	err = signer.Verify(token, &decoded)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestTokenSigner_RejectsGarbage(t *testing.T) {
	signer := NewTokenSigner([]byte("test-signing-key-32-bytes-long!!"), 10*time.Minute)

	var decoded testPayload
	assert.Error(t, signer.Verify("not-a-token", &decoded))
	assert.Error(t, signer.Verify("a.b.c", &decoded))
	assert.Error(t, signer.Verify("", &decoded))
}

func TestGenerateSecureToken(t *testing.T) {
	a, err := GenerateSecureToken()
	require.NoError(t, err)
	b, err := GenerateSecureToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.GreaterOrEqual(t, len(a), 32)
}
