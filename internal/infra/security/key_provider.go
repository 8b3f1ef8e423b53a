package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var ErrKeyNotFound = errors.New("key not found")

const ephemeralKeyBits = 2048

// KeyProvider defines the interface for providing cryptographic keys.
type KeyProvider interface {
	GetSigningKey() (*rsa.PrivateKey, error)
	SigningKeyID() string
	GetVerificationKey(kid string) (*rsa.PublicKey, error)
}

// StaticKeyProvider serves a fixed set of RSA keys.
type StaticKeyProvider struct {
	keys       map[string]*rsa.PublicKey
	signingKID string
	signingKey *rsa.PrivateKey
}

// NewStaticKeyProvider wraps a single signing key under kid.
func NewStaticKeyProvider(kid string, key *rsa.PrivateKey) (*StaticKeyProvider, error) {
	kid = strings.TrimSpace(kid)
	if kid == "" {
		return nil, ErrKeyIDMissing
	}
	if key == nil {
		return nil, errors.New("signing key is nil")
	}
	return &StaticKeyProvider{
		keys:       map[string]*rsa.PublicKey{kid: &key.PublicKey},
		signingKID: kid,
		signingKey: key,
	}, nil
}

// NewEphemeralKeyProvider generates an in-memory key. Tokens do not survive a restart.
func NewEphemeralKeyProvider() (*StaticKeyProvider, error) {
	key, err := rsa.GenerateKey(rand.Reader, ephemeralKeyBits)
	if err != nil {
		return nil, fmt.Errorf("generate ephemeral key: %w", err)
	}
	return NewStaticKeyProvider("ephemeral", key)
}

// NewDirKeyProvider loads PEM keys from keyDir. The file name without extension becomes the kid.
// The lexically first private key signs; every key verifies.
func NewDirKeyProvider(keyDir string) (*StaticKeyProvider, error) {
	files, err := os.ReadDir(keyDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read key directory: %w", err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })

	provider := &StaticKeyProvider{keys: make(map[string]*rsa.PublicKey)}

	for _, file := range files {
		if file.IsDir() || strings.HasPrefix(file.Name(), ".") {
			continue
		}

		path := filepath.Join(keyDir, file.Name())
		keyData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read key file %s: %w", path, err)
		}

		block, _ := pem.Decode(keyData)
		if block == nil {
			return nil, fmt.Errorf("failed to decode PEM block from %s", path)
		}

		kid := strings.TrimSuffix(file.Name(), filepath.Ext(file.Name()))
		private, public, err := parseRSAKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse key from file %s: %w", path, err)
		}

		provider.keys[kid] = public
		if private != nil && provider.signingKey == nil {
			provider.signingKey = private
			provider.signingKID = kid
		}
	}

	if provider.signingKey == nil {
		return nil, errors.New("no private key found for signing")
	}

	return provider, nil
}

func parseRSAKey(der []byte) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, &key.PublicKey, nil
	}
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		if rsaKey, ok := key.(*rsa.PrivateKey); ok {
			return rsaKey, &rsaKey.PublicKey, nil
		}
	}
	if key, err := x509.ParsePKCS1PublicKey(der); err == nil {
		return nil, key, nil
	}
	if key, err := x509.ParsePKIXPublicKey(der); err == nil {
		if rsaKey, ok := key.(*rsa.PublicKey); ok {
			return nil, rsaKey, nil
		}
	}
	return nil, nil, errors.New("unsupported key encoding")
}

// GetSigningKey returns the private key for signing tokens.
func (p *StaticKeyProvider) GetSigningKey() (*rsa.PrivateKey, error) {
	return p.signingKey, nil
}

// SigningKeyID returns the kid stamped into issued tokens.
func (p *StaticKeyProvider) SigningKeyID() string {
	return p.signingKID
}

// GetVerificationKey returns the public key for verifying tokens.
func (p *StaticKeyProvider) GetVerificationKey(kid string) (*rsa.PublicKey, error) {
	key, ok := p.keys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, kid)
	}
	return key, nil
}

// NewKeyProvider loads keys from keyDir, falling back to an ephemeral key in development.
func NewKeyProvider(keyDir string, allowEphemeral bool) (KeyProvider, error) {
	if strings.TrimSpace(keyDir) != "" {
		return NewDirKeyProvider(keyDir)
	}
	if !allowEphemeral {
		return nil, errors.New("jwt key directory is required outside development")
	}
	return NewEphemeralKeyProvider()
}
