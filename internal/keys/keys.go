// Package keys loads the asymmetric keypair used to sign and verify tokens.
//
// Keys are read once at startup and never reloaded: rotating a key requires
// redeploying every service that holds the public key.
package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const rsaKeyBits = 2048

// Key family derived from the JWT algorithm name
type family int

const (
	familyRSA family = iota + 1
	familyECDSA
	familyEd25519
)

// Immutable key material
// Private is nil for services that only verify tokens
type KeySet struct {
	Alg     string
	Private crypto.Signer
	Public  crypto.PublicKey
}

func (ks KeySet) CanSign() bool {
	return ks.Private != nil
}

// Load private and public key from PEM files
// The public key must be the counterpart of the private one
func LoadSigningKeys(privatePath string, publicPath string, alg string) (KeySet, error) {
	f, err := algFamily(alg)
	if err != nil {
		return KeySet{}, err
	}

	privatePEM, err := os.ReadFile(privatePath)
	if err != nil {
		return KeySet{}, fmt.Errorf("can't read private key. Err: %w", err)
	}
	private, err := parsePrivate(f, privatePEM)
	if err != nil {
		return KeySet{}, fmt.Errorf("can't parse private key %s. Err: %w", privatePath, err)
	}

	ks, err := LoadVerificationKey(publicPath, alg)
	if err != nil {
		return KeySet{}, err
	}

	if !publicMatches(private.Public(), ks.Public) {
		return KeySet{}, errors.New("public key does not match private key")
	}

	ks.Private = private
	return ks, nil
}

// Load public key only (services that verify tokens but never issue them)
func LoadVerificationKey(publicPath string, alg string) (KeySet, error) {
	f, err := algFamily(alg)
	if err != nil {
		return KeySet{}, err
	}

	publicPEM, err := os.ReadFile(publicPath)
	if err != nil {
		return KeySet{}, fmt.Errorf("can't read public key. Err: %w", err)
	}

	public, err := parsePublic(f, publicPEM)
	if err != nil {
		return KeySet{}, fmt.Errorf("can't parse public key %s. Err: %w", publicPath, err)
	}

	return KeySet{Alg: alg, Public: public}, nil
}

// Generate new keypair suitable for the algorithm
func Generate(alg string) (KeySet, error) {
	f, err := algFamily(alg)
	if err != nil {
		return KeySet{}, err
	}

	var private crypto.Signer
	switch f {
	case familyRSA:
		private, err = rsa.GenerateKey(rand.Reader, rsaKeyBits)
	case familyECDSA:
		private, err = ecdsa.GenerateKey(ecdsaCurve(alg), rand.Reader)
	case familyEd25519:
		_, private, err = ed25519.GenerateKey(rand.Reader)
	}
	if err != nil {
		return KeySet{}, fmt.Errorf("error while generating key. Err: %w", err)
	}

	return KeySet{Alg: alg, Private: private, Public: private.Public()}, nil
}

// Encode keys as PEM: PKCS8 for private key, PKIX for public key
func EncodePEM(ks KeySet) (privatePEM []byte, publicPEM []byte, err error) {
	if ks.CanSign() {
		der, err := x509.MarshalPKCS8PrivateKey(ks.Private)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal private key: %w", err)
		}
		privatePEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	}

	der, err := x509.MarshalPKIXPublicKey(ks.Public)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal public key: %w", err)
	}
	publicPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	return privatePEM, publicPEM, nil
}

func algFamily(alg string) (family, error) {
	switch {
	case jwt.GetSigningMethod(alg) == nil:
		return 0, fmt.Errorf("unknown signing algorithm %q", alg)
	case strings.HasPrefix(alg, "RS"), strings.HasPrefix(alg, "PS"):
		return familyRSA, nil
	case strings.HasPrefix(alg, "ES"):
		return familyECDSA, nil
	case alg == "EdDSA":
		return familyEd25519, nil
	default:
		// HS* and none: symmetric or unsigned, not usable across services
		return 0, fmt.Errorf("signing algorithm %q is not asymmetric", alg)
	}
}

func ecdsaCurve(alg string) elliptic.Curve {
	switch alg {
	case "ES384":
		return elliptic.P384()
	case "ES512":
		return elliptic.P521()
	default:
		return elliptic.P256()
	}
}

func parsePrivate(f family, data []byte) (crypto.Signer, error) {
	switch f {
	case familyRSA:
		return jwt.ParseRSAPrivateKeyFromPEM(data)
	case familyECDSA:
		return jwt.ParseECPrivateKeyFromPEM(data)
	default:
		key, err := jwt.ParseEdPrivateKeyFromPEM(data)
		if err != nil {
			return nil, err
		}
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, errors.New("key is not a signer")
		}
		return signer, nil
	}
}

func parsePublic(f family, data []byte) (crypto.PublicKey, error) {
	switch f {
	case familyRSA:
		return jwt.ParseRSAPublicKeyFromPEM(data)
	case familyECDSA:
		return jwt.ParseECPublicKeyFromPEM(data)
	default:
		return jwt.ParseEdPublicKeyFromPEM(data)
	}
}

func publicMatches(a crypto.PublicKey, b crypto.PublicKey) bool {
	type equaler interface {
		Equal(crypto.PublicKey) bool
	}

	e, ok := a.(equaler)
	return ok && e.Equal(b)
}
