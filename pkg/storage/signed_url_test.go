package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("export-secret", time.Hour)

	token, expiresAt, err := signer.Generate("job-42", "2026/08/payments_all_20260826_101500.csv")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	jobID, relPath, parsedExp, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-42", jobID)
	assert.Equal(t, "2026/08/payments_all_20260826_101500.csv", relPath)
	assert.Equal(t, expiresAt.Unix(), parsedExp.Unix())
}

func TestSignedURLRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("export-secret", time.Hour)
	token, _, err := signer.Generate("job-42", "2026/08/grades_stu-1.pdf")
	require.NoError(t, err)

	// Flip a payload byte while keeping the original signature.
	encoded, mac, _ := strings.Cut(token, ".")
	forged := encoded[:len(encoded)-1] + "A." + mac
	_, _, _, err = signer.Parse(forged, false)
	require.Error(t, err)
}

func TestSignedURLRejectsWrongSecret(t *testing.T) {
	signer := NewSignedURLSigner("export-secret", time.Hour)
	token, _, err := signer.Generate("job-42", "2026/08/summary.xlsx")
	require.NoError(t, err)

	other := NewSignedURLSigner("different-secret", time.Hour)
	_, _, _, err = other.Parse(token, false)
	require.Error(t, err)
}

func TestSignedURLExpiry(t *testing.T) {
	signer := NewSignedURLSigner("export-secret", time.Hour)
	signer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := signer.Generate("job-42", "2026/06/payments_all.csv")
	require.NoError(t, err)

	signer.now = time.Now
	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)

	// Cleanup still needs the claims of lapsed tokens.
	jobID, relPath, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	assert.Equal(t, "job-42", jobID)
	assert.Equal(t, "2026/06/payments_all.csv", relPath)
}
