package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const envelopeVersionPrefix = "v1:"

// deriveEnvelopeKey derives a per-subject AES-256 key from masterKey via
// HKDF-SHA256 (RFC 5869), using subject as salt and info as the context
// string, so no two subjects ever share a key even under the same master.
func deriveEnvelopeKey(masterKey, subject []byte, info string) ([]byte, error) {
	if len(masterKey) != 32 {
		return nil, fmt.Errorf("master key must be 32 bytes, got %d", len(masterKey))
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, masterKey, subject, []byte(info))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

func envelopeAAD(subject []byte, info string) []byte {
	aad := make([]byte, 0, len(info)+1+len(subject))
	aad = append(aad, info...)
	aad = append(aad, 0)
	aad = append(aad, subject...)
	return aad
}

// EncryptEnvelope encrypts plaintext using a key derived from masterKey + subject + info.
// The output is ASCII-safe (`v1:` + base64url(nonce|ciphertext)).
func EncryptEnvelope(masterKey, subject []byte, info string, plaintext []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, nil
	}

	key, err := deriveEnvelopeKey(masterKey, subject, info)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}

	aad := envelopeAAD(subject, info)
	ciphertext := aead.Seal(nil, nonce, plaintext, aad)

	buf := make([]byte, 0, len(nonce)+len(ciphertext))
	buf = append(buf, nonce...)
	buf = append(buf, ciphertext...)

	encoded := base64.RawURLEncoding.EncodeToString(buf)
	return []byte(envelopeVersionPrefix + encoded), nil
}

// DecryptEnvelope decrypts ciphertext previously produced by EncryptEnvelope.
func DecryptEnvelope(masterKey, subject []byte, info string, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, nil
	}

	encoded := strings.TrimSpace(string(ciphertext))
	encoded = strings.TrimPrefix(encoded, envelopeVersionPrefix)

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}

	key, err := deriveEnvelopeKey(masterKey, subject, info)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	if len(raw) < aead.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce := raw[:aead.NonceSize()]
	body := raw[aead.NonceSize():]
	aad := envelopeAAD(subject, info)

	plaintext, err := aead.Open(nil, nonce, body, aad)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}
