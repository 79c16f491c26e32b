package weather

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

const (
	tokenTTL = 15 * time.Minute
	// refreshWindow is how close to expiry a cached token may get before
	// it is regenerated. Regenerating early is idempotent and harmless.
	refreshWindow = 5 * time.Minute
)

// TokenSource produces signed bearer tokens for the weather API and
// caches them until they are within refreshWindow of expiry. Safe for
// concurrent use.
type TokenSource struct {
	keyID     string
	projectID string
	key       ed25519.PrivateKey

	mu     sync.Mutex
	token  string
	expiry time.Time

	now func() time.Time // injectable clock for tests
}

// NewTokenSource builds a token source from a base64-encoded ed25519
// private key seed.
func NewTokenSource(keyID, projectID, privateKeyB64 string) (*TokenSource, error) {
	seed, err := base64.StdEncoding.DecodeString(privateKeyB64)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("private key seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}

	return &TokenSource{
		keyID:     keyID,
		projectID: projectID,
		key:       ed25519.NewKeyFromSeed(seed),
		now:       time.Now,
	}, nil
}

// Token returns a valid bearer token, minting a fresh one only when the
// cached token is missing or within refreshWindow of expiry.
func (ts *TokenSource) Token() (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := ts.now()
	if ts.token != "" && now.Before(ts.expiry.Add(-refreshWindow)) {
		return ts.token, nil
	}

	token, expiry, err := ts.mint(now)
	if err != nil {
		return "", err
	}
	ts.token = token
	ts.expiry = expiry
	return token, nil
}

// mint signs a compact EdDSA JWS: header.payload.signature.
func (ts *TokenSource) mint(now time.Time) (string, time.Time, error) {
	expiry := now.Add(tokenTTL)

	header, err := json.Marshal(map[string]string{
		"alg": "EdDSA",
		"kid": ts.keyID,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("marshal header: %w", err)
	}

	// iat backdated 30s to tolerate clock skew.
	payload, err := json.Marshal(map[string]any{
		"sub": ts.projectID,
		"iat": now.Add(-30 * time.Second).Unix(),
		"exp": expiry.Unix(),
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("marshal payload: %w", err)
	}

	enc := base64.RawURLEncoding
	signingInput := enc.EncodeToString(header) + "." + enc.EncodeToString(payload)
	sig := ed25519.Sign(ts.key, []byte(signingInput))

	return signingInput + "." + enc.EncodeToString(sig), expiry, nil
}
