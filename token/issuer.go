package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the access token signature algorithm.
type SigningMethod string

const (
	MethodEd25519 SigningMethod = "ed25519"
	MethodHS256   SigningMethod = "hs256"
)

const (
	refreshTokenSize = 32
	maxLeeway        = 2 * time.Minute
)

var (
	ErrInvalidIssuerConfig = errors.New("token: invalid issuer config")
	// ErrVerifyOnly is returned by Issue on an Ed25519 issuer built without a
	// private key.
	ErrVerifyOnly = errors.New("token: issuer has no signing key")
)

// IssuerConfig configures an Issuer. Ed25519 keys are accepted raw or PEM
// encoded; PrivateKey may be omitted for a verify-only issuer.
type IssuerConfig struct {
	AccessTTL     time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

// Claims are the access token claims understood by the FitLife backend.
type Claims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies access tokens for the stand-in auth service.
// Keys are decoded once, at construction.
type Issuer struct {
	ttl      time.Duration
	issuer   string
	audience string
	leeway   time.Duration

	method    jwt.SigningMethod
	signKey   any
	verifyKey any

	now func() time.Time
}

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidIssuerConfig, reason)
}

// NewIssuer validates cfg and returns an Issuer.
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	if cfg.AccessTTL <= 0 {
		return nil, invalid("access TTL must be > 0")
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, invalid(fmt.Sprintf("leeway must be within [0, %s]", maxLeeway))
	}

	iss := &Issuer{
		ttl:      cfg.AccessTTL,
		issuer:   strings.TrimSpace(cfg.Issuer),
		audience: cfg.Audience,
		leeway:   cfg.Leeway,
		now:      time.Now,
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, invalid("hs256 requires a shared key")
		}
		iss.method = jwt.SigningMethodHS256
		iss.signKey = cfg.PrivateKey
		iss.verifyKey = cfg.PrivateKey
	case MethodEd25519:
		if len(cfg.PublicKey) == 0 {
			return nil, invalid("ed25519 requires a public key")
		}
		pub, err := edPublicKey(cfg.PublicKey)
		if err != nil {
			return nil, err
		}
		iss.method = jwt.SigningMethodEdDSA
		iss.verifyKey = pub
		if len(cfg.PrivateKey) > 0 {
			priv, err := edPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			iss.signKey = priv
		}
	default:
		return nil, invalid(fmt.Sprintf("unsupported signing method %q", cfg.SigningMethod))
	}
	return iss, nil
}

// Issue signs an access token for the given user.
func (i *Issuer) Issue(uid, email, role string) (string, error) {
	if i.signKey == nil {
		return "", ErrVerifyOnly
	}
	now := i.now()
	claims := Claims{UID: uid, Email: email, Role: role}
	claims.Subject = uid
	claims.Issuer = i.issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	if i.audience != "" {
		claims.Audience = jwt.ClaimStrings{i.audience}
	}
	return jwt.NewWithClaims(i.method, claims).SignedString(i.signKey)
}

// Parse verifies tokenStr against the issuer's key, algorithm, issuer and
// audience, and returns its claims.
func (i *Issuer) Parse(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(i.leeway),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}
	if i.audience != "" {
		opts = append(opts, jwt.WithAudience(i.audience))
	}

	claims := &Claims{}
	if _, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return i.verifyKey, nil
	}, opts...); err != nil {
		return nil, err
	}
	return claims, nil
}

// NewRefreshToken returns an opaque random refresh token.
func NewRefreshToken() (string, error) {
	raw := make([]byte, refreshTokenSize)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func edPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, invalid("ed25519 private key is neither raw nor PEM")
	}
	priv, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, invalid("PEM private key is not ed25519")
	}
	return priv, nil
}

func edPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, invalid("ed25519 public key is neither raw nor PEM")
	}
	pub, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, invalid("PEM public key is not ed25519")
	}
	return pub, nil
}
