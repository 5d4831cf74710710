package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignedURLSigner mints download tokens for generated reports. A token
// carries the export job ID, the file's relative path and an expiry,
// all authenticated with HMAC-SHA256, so report downloads need no
// session and can be handed to guardians as plain links.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner builds a signer. ttl <= 0 defaults to 24 hours.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate returns a token of the form base64(jobID|expiry|relPath).hexmac
// together with its expiry time.
func (s *SignedURLSigner) Generate(jobID, relPath string) (string, time.Time, error) {
	if jobID == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("job id and path are required")
	}
	if strings.ContainsRune(jobID, '|') || strings.ContainsRune(relPath, '|') {
		return "", time.Time{}, fmt.Errorf("job id and path must not contain separators")
	}

	expiresAt := s.now().Add(s.ttl).UTC().Truncate(time.Second)
	payload := fmt.Sprintf("%s|%d|%s", jobID, expiresAt.Unix(), relPath)
	encoded := base64.RawURLEncoding.EncodeToString([]byte(payload))
	token := encoded + "." + s.sign(encoded)
	return token, expiresAt, nil
}

// Parse verifies a token and returns its claims. Expired tokens fail
// unless allowExpired is set, which the cleanup path uses to locate
// files belonging to lapsed jobs.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	encoded, mac, found := strings.Cut(token, ".")
	if !found || encoded == "" || mac == "" {
		return "", "", time.Time{}, fmt.Errorf("malformed download token")
	}
	if !hmac.Equal([]byte(mac), []byte(s.sign(encoded))) {
		return "", "", time.Time{}, fmt.Errorf("download token signature mismatch")
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("decode download token: %w", err)
	}
	parts := strings.SplitN(string(raw), "|", 3)
	if len(parts) != 3 {
		return "", "", time.Time{}, fmt.Errorf("malformed download token payload")
	}
	expUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("invalid download token expiry: %w", err)
	}

	jobID, relPath = parts[0], parts[2]
	expiresAt = time.Unix(expUnix, 0).UTC()
	if !allowExpired && s.now().After(expiresAt) {
		return "", "", time.Time{}, fmt.Errorf("download token expired at %s", expiresAt.Format(time.RFC3339))
	}
	return jobID, relPath, expiresAt, nil
}

func (s *SignedURLSigner) sign(encoded string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(encoded))
	return hex.EncodeToString(mac.Sum(nil))
}
