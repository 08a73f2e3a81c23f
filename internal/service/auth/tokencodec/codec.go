package tokencodec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/namity/backend/internal/apperrors"
	"github.com/namity/backend/internal/keys"
	"github.com/namity/backend/internal/models"
)

// Audiences separate token purposes: a token issued for one audience is never accepted for another
const (
	AudienceAccess   = "api"
	AudienceRefresh  = "refresh"
	AudienceIdentity = "client"
)

// Claims every verified token carries
// Email is present in identity tokens only
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Registered claims could not be overwritten by extra claims
var registeredClaims = map[string]struct{}{
	"iss": {}, "sub": {}, "aud": {}, "exp": {}, "nbf": {}, "iat": {}, "jti": {},
}

type Config struct {
	// Issuer put to and required from every token
	// Required to be set
	Issuer string

	// Tolerated clock skew when checking expiration
	// Zero by default: token expires exactly at 'exp'
	Leeway time.Duration
}

type Codec struct {
	issuer string
	leeway time.Duration
	method jwt.SigningMethod
	keys   keys.KeySet

	now func() time.Time
}

func New(cfg Config, ks keys.KeySet) (*Codec, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("issuer must not be empty")
	}

	if ks.Public == nil {
		return nil, errors.New("public key must be set")
	}

	method := jwt.GetSigningMethod(ks.Alg)
	if method == nil {
		return nil, fmt.Errorf("unknown signing algorithm %q", ks.Alg)
	}

	return &Codec{
		issuer: cfg.Issuer,
		leeway: cfg.Leeway,
		method: method,
		keys:   ks,
		now:    time.Now,
	}, nil
}

type issueOptions struct {
	id    string
	extra map[string]any
}

type IssueOption func(*issueOptions)

// Set token identifier (jti)
func WithID(id string) IssueOption {
	return func(o *issueOptions) {
		o.id = id
	}
}

// Merge extra claims into token payload
func WithExtra(extra map[string]any) IssueOption {
	return func(o *issueOptions) {
		o.extra = extra
	}
}

// Issue signed token for subject and audience that lives ttl
func (c *Codec) Issue(subject string, audience string, ttl time.Duration, opts ...IssueOption) (models.IssuedToken, error) {
	var issued models.IssuedToken

	if !c.keys.CanSign() {
		return issued, errors.New("codec has no private key, it can only verify tokens")
	}

	o := issueOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	now := c.now().Truncate(time.Second)
	expiresAt := now.Add(ttl)

	claims := jwt.MapClaims{}
	for k, v := range o.extra {
		if _, ok := registeredClaims[k]; ok {
			continue
		}
		claims[k] = v
	}
	claims["iss"] = c.issuer
	claims["sub"] = subject
	claims["aud"] = audience
	claims["iat"] = now.Unix()
	claims["exp"] = expiresAt.Unix()
	if o.id != "" {
		claims["jti"] = o.id
	}

	value, err := jwt.NewWithClaims(c.method, claims).SignedString(c.keys.Private)
	if err != nil {
		return issued, fmt.Errorf("error while signing %s token. Err: %w", audience, err)
	}

	return models.IssuedToken{Value: value, ExpiresAt: expiresAt}, nil
}

// Parse token and validate signature, algorithm, issuer, audience and expiration
// Any failure is reported as apperrors.ErrTokenInvalid
func (c *Codec) Verify(token string, audience string) (Claims, error) {
	claims := Claims{}

	_, err := jwt.ParseWithClaims(
		token,
		&claims,
		func(t *jwt.Token) (any, error) {
			return c.keys.Public, nil
		},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(c.leeway),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", apperrors.ErrTokenInvalid, err)
	}

	return claims, nil
}
