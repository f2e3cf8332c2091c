package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// loadOrCreateIssuerKey reads the DER-encoded ECDSA signing key at path,
// generating and persisting one when the file doesn't exist. The matching
// verification key is written next to it so client deployments can pick it
// up as a trusted issuer key.
func loadOrCreateIssuerKey(path string) (*ecdsa.PrivateKey, error) {
	der, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return createIssuerKey(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read signing key: %w", err)
	}

	privateKey, err := x509.ParseECPrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}
	return privateKey, nil
}

func createIssuerKey(path string) (*ecdsa.PrivateKey, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	privateKeyDER, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	if err := os.WriteFile(path, privateKeyDER, 0600); err != nil {
		return nil, fmt.Errorf("write signing key: %w", err)
	}

	publicKeyDER, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	verificationKeyPath := filepath.Join(filepath.Dir(path), "verification_key.der")
	if err := os.WriteFile(verificationKeyPath, publicKeyDER, 0644); err != nil {
		return nil, fmt.Errorf("write verification key: %w", err)
	}

	return privateKey, nil
}
