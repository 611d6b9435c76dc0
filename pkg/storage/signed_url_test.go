package storage

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("serial-1", "apple/serial-1.pkpass")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	subject, path, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "serial-1", subject)
	require.Equal(t, "apple/serial-1.pkpass", path)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Millisecond*10)
	token, _, err := signer.Generate("serial-1", "apple/serial-1.pkpass")
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 20)

	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)

	subject, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "serial-1", subject)
	require.Equal(t, "apple/serial-1.pkpass", path)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("serial-1", "apple/serial-1.pkpass")
	require.NoError(t, err)

	other := NewSignedURLSigner("other", time.Hour)
	_, _, _, err = other.Parse(token, false)
	require.Error(t, err)
}

func TestSignedURLSignerRejectsForeignAudience(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "serial-1",
		Audience:  jwt.ClaimStrings{"admin"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	signer := NewSignedURLSigner("secret", time.Hour)
	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)
	_, _, _, err = signer.Parse(token, true)
	require.Error(t, err)
}

func TestSignedURLSignerUsesClock(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	issued := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return issued }
	token, expiresAt, err := signer.Generate("serial-1", "apple/serial-1.pkpass")
	require.NoError(t, err)
	require.Equal(t, issued.Add(time.Hour), expiresAt.UTC())

	signer.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)
}
