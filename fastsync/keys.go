// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package fastsync

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
)

// GenerateSigningKey creates a fresh ed25519 snapshot signing keypair.
func GenerateSigningKey() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("fastsync: generating signing key: %w", err)
	}
	return publicKey, privateKey, nil
}

// SealKey encrypts a signing key to a passphrase with age scrypt and
// returns the base64 ciphertext for storage on disk. The passphrase
// slice is borrowed, not retained.
func SealKey(key ed25519.PrivateKey, passphrase []byte) (string, error) {
	recipient, err := age.NewScryptRecipient(string(passphrase))
	if err != nil {
		return "", fmt.Errorf("fastsync: scrypt recipient: %w", err)
	}

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipient)
	if err != nil {
		return "", fmt.Errorf("fastsync: sealing key: %w", err)
	}
	if _, err := writer.Write(key); err != nil {
		return "", fmt.Errorf("fastsync: sealing key: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("fastsync: sealing key: %w", err)
	}

	return base64.StdEncoding.EncodeToString(ciphertext.Bytes()), nil
}

// UnsealKey decrypts a sealed signing key with its passphrase.
func UnsealKey(sealed string, passphrase []byte) (ed25519.PrivateKey, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("fastsync: decoding sealed key: %w", err)
	}

	identity, err := age.NewScryptIdentity(string(passphrase))
	if err != nil {
		return nil, fmt.Errorf("fastsync: scrypt identity: %w", err)
	}
	reader, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("fastsync: unsealing key (wrong passphrase?): %w", err)
	}
	key, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("fastsync: reading unsealed key: %w", err)
	}
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("fastsync: unsealed key is %d bytes, want %d", len(key), ed25519.PrivateKeySize)
	}
	return ed25519.PrivateKey(key), nil
}

// WriteSealedKey stores a sealed key at path with owner-only
// permissions.
func WriteSealedKey(path, sealed string) error {
	if err := os.WriteFile(path, []byte(sealed), 0600); err != nil {
		return fmt.Errorf("fastsync: writing sealed key: %w", err)
	}
	return nil
}

// ReadSealedKey loads a sealed key file.
func ReadSealedKey(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("fastsync: reading sealed key: %w", err)
	}
	return string(bytes.TrimSpace(raw)), nil
}
