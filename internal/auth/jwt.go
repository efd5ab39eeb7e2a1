package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleKiosk is granted to registered check-in devices.
const RoleKiosk = "kiosk"

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongKind      = errors.New("wrong token kind")
	ErrIssuerMismatch = errors.New("issuer mismatch")
)

// TokenPair holds access and refresh tokens.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	AccessExp    time.Time `json:"access_expires_at"`
	RefreshExp   time.Time `json:"refresh_expires_at"`
}

// Claims represents the JWT payload of a device token.
type Claims struct {
	DeviceID string `json:"device_id"`
	Role     string `json:"role"`
	Kind     string `json:"kind"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 device tokens.
type Issuer struct {
	Name       string
	Key        []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

// NewIssuer creates an issuer for the given signing key.
func NewIssuer(name, key string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{Name: name, Key: []byte(key), AccessTTL: accessTTL, RefreshTTL: refreshTTL, Now: time.Now}
}

// Issue returns an access/refresh pair for deviceID.
func (i *Issuer) Issue(deviceID string) (TokenPair, error) {
	now := i.Now()
	accessExp := now.Add(i.AccessTTL)
	refreshExp := now.Add(i.RefreshTTL)

	access, err := i.sign(deviceID, "access", now, accessExp)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := i.sign(deviceID, "refresh", now, refreshExp)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

// Refresh exchanges a valid refresh token for a new pair.
func (i *Issuer) Refresh(refreshToken string) (TokenPair, error) {
	claims, err := i.Parse(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	if claims.Kind != "refresh" {
		return TokenPair{}, ErrWrongKind
	}
	return i.Issue(claims.DeviceID)
}

func (i *Issuer) sign(deviceID, kind string, now, exp time.Time) (string, error) {
	claims := Claims{
		DeviceID: deviceID,
		Role:     RoleKiosk,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.Name,
			Subject:   deviceID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.Key)
}

// Parse validates a token and returns its claims.
func (i *Issuer) Parse(tokenStr string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return i.Key, nil
	}, jwt.WithTimeFunc(i.Now))
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if i.Name != "" && claims.Issuer != i.Name {
		return Claims{}, ErrIssuerMismatch
	}
	return *claims, nil
}
