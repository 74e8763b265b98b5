package xems

import (
	"context"
	"encoding/json"
	"time"

	"github.com/xypriss/xypriss/infrastructure/crypto"
	"github.com/xypriss/xypriss/infrastructure/errors"
)

const envelopeInfo = "xems-session"

// record is the plaintext shape encrypted and stored at a token. Sandbox is
// never stored in the record itself: it is the encryption subject, so
// resolving under the wrong sandbox fails AEAD decryption rather than
// needing an explicit equality check (spec.md §3 "sandbox isolation
// absolute").
type record struct {
	Payload         []byte    `json:"payload"`
	CreatedAt       time.Time `json:"created_at"`
	RotationCounter int       `json:"rotation_counter"`

	// SuccessorToken is set only on a rotated-out token's stored record,
	// pointing at the token that replaced it. A repeat resolve of the same
	// old token within its grace window must keep returning this same
	// successor rather than minting a new one each time.
	SuccessorToken string `json:"successor_token,omitempty"`
}

// ResolveOptions tunes one resolveSession call.
type ResolveOptions struct {
	Sandbox     string
	Rotate      bool
	TTL         time.Duration // overrides Manager's DefaultTTL for the refreshed/new token
	GracePeriod time.Duration // overrides Manager's GracePeriod
}

// ResolveResult is what resolveSession returns on a hit.
type ResolveResult struct {
	Data     []byte
	NewToken string // set only when rotation occurred
}

// Manager implements the XEMS contract: createSession/resolveSession/
// destroySession/ping.
type Manager struct {
	cfg   Config
	store Store
}

// NewManager builds a Manager over store. cfg.Secret must be 32 bytes;
// NewManager itself does not validate this (spec.md only requires writes to
// fail loudly, and a 32-byte check on an empty/unset secret at boot would
// prevent a read-only or ping-only deployment), but every createSession/
// resolveSession call that touches the secret returns an error immediately
// if it isn't exactly 32 bytes.
func NewManager(cfg Config, store Store) *Manager {
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = 30 * time.Minute
	}
	if cfg.GracePeriod == 0 {
		cfg.GracePeriod = 30 * time.Second
	}
	if cfg.MaxRetention == 0 {
		cfg.MaxRetention = 5 * 24 * time.Hour
	}
	return &Manager{cfg: cfg, store: store}
}

// CreateSession encrypts data under sandbox and stores it behind a fresh
// token.
func (m *Manager) CreateSession(ctx context.Context, sandbox string, data []byte, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = m.cfg.DefaultTTL
	}

	token, err := newToken()
	if err != nil {
		return "", err
	}

	rec := record{Payload: data, CreatedAt: time.Now()}
	ciphertext, err := m.seal(sandbox, rec)
	if err != nil {
		return "", err
	}

	if err := m.store.Set(ctx, token, ciphertext, ttl); err != nil {
		return "", err
	}
	return token, nil
}

// ResolveSession decrypts the record at token under opts.Sandbox. A missing
// token, a token from a different sandbox, or a record past MaxRetention
// all resolve to (nil, nil) — XEMS never distinguishes "not found" from
// "wrong sandbox" to a caller, since that distinction is itself sensitive.
func (m *Manager) ResolveSession(ctx context.Context, token string, opts ResolveOptions) (*ResolveResult, error) {
	ciphertext, ok, err := m.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	rec, err := m.open(opts.Sandbox, ciphertext)
	if err != nil {
		return nil, nil // wrong sandbox or tampered ciphertext: treat as absent
	}

	if time.Since(rec.CreatedAt) > m.cfg.MaxRetention {
		_ = m.store.Delete(ctx, token)
		return nil, nil
	}

	result := &ResolveResult{Data: rec.Payload}
	if !opts.Rotate {
		return result, nil
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = m.cfg.DefaultTTL
	}
	grace := opts.GracePeriod
	if grace <= 0 {
		grace = m.cfg.GracePeriod
	}

	if rec.SuccessorToken != "" {
		// token was already rotated by an earlier call; keep returning the
		// same successor instead of minting another one, just refresh the
		// grace window so this old token stays resolvable a bit longer.
		if err := m.store.Set(ctx, token, ciphertext, grace); err != nil {
			return nil, err
		}
		result.NewToken = rec.SuccessorToken
		return result, nil
	}

	newTok, err := newToken()
	if err != nil {
		return nil, err
	}

	successor := rec
	successor.RotationCounter++
	newCiphertext, err := m.seal(opts.Sandbox, successor)
	if err != nil {
		return nil, err
	}
	if err := m.store.Set(ctx, newTok, newCiphertext, ttl); err != nil {
		return nil, err
	}

	// Old token stays resolvable for the grace window to cover races with
	// in-flight requests that already read the pre-rotation token, now
	// carrying the successor so repeat resolves don't mint another one.
	rec.SuccessorToken = newTok
	oldCiphertext, err := m.seal(opts.Sandbox, rec)
	if err != nil {
		return nil, err
	}
	if err := m.store.Set(ctx, token, oldCiphertext, grace); err != nil {
		return nil, err
	}

	result.NewToken = newTok
	return result, nil
}

// DestroySession invalidates token immediately.
func (m *Manager) DestroySession(ctx context.Context, token string) error {
	return m.store.Delete(ctx, token)
}

// Ping is a liveness probe against the backing store.
func (m *Manager) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}

func (m *Manager) seal(sandbox string, rec record) ([]byte, error) {
	plaintext, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	ciphertext, err := crypto.EncryptEnvelope(m.cfg.Secret, []byte(sandbox), envelopeInfo, plaintext)
	if err != nil {
		return nil, errors.EncryptionFailed(err)
	}
	return ciphertext, nil
}

func (m *Manager) open(sandbox string, ciphertext []byte) (record, error) {
	var rec record
	plaintext, err := crypto.DecryptEnvelope(m.cfg.Secret, []byte(sandbox), envelopeInfo, ciphertext)
	if err != nil {
		return rec, errors.DecryptionFailed(err)
	}
	if err := json.Unmarshal(plaintext, &rec); err != nil {
		return rec, errors.DecryptionFailed(err)
	}
	return rec, nil
}
