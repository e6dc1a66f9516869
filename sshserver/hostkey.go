package sshserver

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
)

// Host key types accepted in the ssh config.
const (
	HostKeyEd25519 = "ed25519"
	HostKeyECDSA   = "ecdsa"
	HostKeyRSA     = "rsa"
)

const rsaHostKeyBits = 3072

// HostKeyOptions controls how a missing host key is generated.
type HostKeyOptions struct {
	// Type is one of the HostKey* constants; empty means ed25519.
	Type string
	// Comment is stored in the PEM block of a generated key.
	Comment string
}

// HostKey is the story server's identity.
type HostKey struct {
	Signer  ssh.Signer
	Created bool
}

// Fingerprint returns the SHA256 fingerprint players see on first connect.
func (k HostKey) Fingerprint() string {
	return ssh.FingerprintSHA256(k.Signer.PublicKey())
}

// EnsureHostKey loads the host key at path, generating it first when the
// file does not exist. An existing key is used whatever its type.
func EnsureHostKey(path string, opts HostKeyOptions) (HostKey, error) {
	if strings.TrimSpace(path) == "" {
		return HostKey{}, errors.New("ssh host key path is required")
	}
	data, err := os.ReadFile(path)
	if err == nil {
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			return HostKey{}, fmt.Errorf("parse host key %s: %w", path, err)
		}
		return HostKey{Signer: signer}, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return HostKey{}, fmt.Errorf("read host key: %w", err)
	}

	priv, err := generateHostKey(opts.Type)
	if err != nil {
		return HostKey{}, err
	}
	block, err := ssh.MarshalPrivateKey(priv, opts.Comment)
	if err != nil {
		return HostKey{}, fmt.Errorf("marshal host key: %w", err)
	}
	if err := writeHostKey(path, block); err != nil {
		return HostKey{}, err
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		return HostKey{}, err
	}
	return HostKey{Signer: signer, Created: true}, nil
}

func generateHostKey(keyType string) (crypto.Signer, error) {
	switch strings.ToLower(strings.TrimSpace(keyType)) {
	case "", HostKeyEd25519:
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		return priv, err
	case HostKeyECDSA:
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case HostKeyRSA:
		return rsa.GenerateKey(rand.Reader, rsaHostKeyBits)
	default:
		return nil, fmt.Errorf("unsupported ssh host key type %q", keyType)
	}
}

// writeHostKey creates the key file exclusively so two servers starting
// at once cannot both write it.
func writeHostKey(path string, block *pem.Block) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create host key dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("write host key: %w", err)
	}
	if err := pem.Encode(file, block); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return fmt.Errorf("encode host key: %w", err)
	}
	return file.Close()
}
