package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

const (
	tokenTypeAccess = "access"
	tokenTypePass   = "purchase_pass"
)

type Issuer struct {
	secret []byte
	now    func() time.Time
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret), now: time.Now}
}

// IssueAccessToken signs a bearer token for userID. The account service owns
// real logins; this exists for local tooling and tests.
func (i *Issuer) IssueAccessToken(userID string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := jwt.MapClaims{
		"sub": userID,
		"typ": tokenTypeAccess,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	return i.sign(claims)
}

func (i *Issuer) ParseAccessToken(token string) (string, error) {
	claims, err := i.parse(token, tokenTypeAccess)
	if err != nil {
		return "", err
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

// IssuePurchasePass signs a pass that proves w was granted. It expires with
// the window.
func (i *Issuer) IssuePurchasePass(w *models.AdmissionWindow) (string, error) {
	claims := jwt.MapClaims{
		"sub":      w.UserID,
		"typ":      tokenTypePass,
		"event_id": w.EventID,
		"seq":      w.SequenceNumber,
		"iat":      w.GrantedAt.Unix(),
		"exp":      w.ExpiresAt.Unix(),
	}
	return i.sign(claims)
}

type PurchasePass struct {
	UserID         string
	EventID        string
	SequenceNumber int64
}

func (i *Issuer) ParsePurchasePass(token string) (*PurchasePass, error) {
	claims, err := i.parse(token, tokenTypePass)
	if err != nil {
		return nil, err
	}

	sub, _ := claims["sub"].(string)
	eventID, _ := claims["event_id"].(string)
	seq, _ := claims["seq"].(float64)
	if sub == "" || eventID == "" {
		return nil, ErrInvalidToken
	}

	return &PurchasePass{UserID: sub, EventID: eventID, SequenceNumber: int64(seq)}, nil
}

func (i *Issuer) sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenStr, nil
}

func (i *Issuer) parse(token, typ string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims["typ"] != typ {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
