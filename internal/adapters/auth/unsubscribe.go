package auth

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/blake2b"

	"newsletterdispatch/internal/domain"
)

const unsubscribePath = "/newsletter/unsubscribe"

type unsubscribeClaims struct {
	jwt.RegisteredClaims
	Email      string `json:"email"`
	CampaignID string `json:"cid"`
}

type unsubscribeTokens struct {
	secret  []byte
	hashKey [32]byte
	baseURL string
	now     func() time.Time
}

// NewUnsubscribeTokens returns unsubscribe tokens signed with secret. Links point at
// baseURL + /newsletter/unsubscribe. Tokens do not expire.
func NewUnsubscribeTokens(secret, baseURL string) domain.UnsubscribeTokens {
	return &unsubscribeTokens{
		secret:  []byte(secret),
		hashKey: blake2b.Sum256([]byte(secret)),
		baseURL: strings.TrimSuffix(baseURL, "/"),
		now:     time.Now,
	}
}

// RecipientKey is a stable identity for a recipient without a subscriber id: a keyed
// hash of the campaign and the lowercased address.
func (u *unsubscribeTokens) RecipientKey(campaignID, email string) string {
	h, err := blake2b.New256(u.hashKey[:])
	if err != nil {
		// key length is fixed at 32 bytes
		panic(err)
	}
	h.Write([]byte(campaignID))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(h.Sum(nil))
}

func (u *unsubscribeTokens) Issue(campaignID string, r domain.Recipient) (string, error) {
	subject := r.Identity
	if subject == "" {
		subject = u.RecipientKey(campaignID, r.Email)
	}
	claims := unsubscribeClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(u.now()),
		},
		Email:      r.Email,
		CampaignID: campaignID,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(u.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign unsubscribe token: %w", err)
	}
	return token, nil
}

func (u *unsubscribeTokens) Verify(token string) (*domain.UnsubscribeClaims, error) {
	claims := &unsubscribeClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return u.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, fmt.Errorf("%w: incomplete claims", domain.ErrInvalidToken)
	}
	return &domain.UnsubscribeClaims{
		RecipientID: claims.Subject,
		Email:       claims.Email,
		CampaignID:  claims.CampaignID,
	}, nil
}

func (u *unsubscribeTokens) URL(token string) string {
	return u.baseURL + unsubscribePath + "?token=" + url.QueryEscape(token)
}
