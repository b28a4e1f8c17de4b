package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

var (
	// ErrNotAllowed пользователь не состоит в разрешённом чате.
	ErrNotAllowed = errors.New("You are not allowed to use this bot.")
	// ErrNotParticipant Membership возвращает её, когда пользователя нет в чате.
	ErrNotParticipant = errors.New("user is not a participant")
	// ErrInvalidToken токен API без подписи или с чужой подписью.
	ErrInvalidToken = errors.New("invalid token")
)

const bearerPrefix = "Bearer "

// Membership проверяет участие пользователя в чате.
type Membership interface {
	IsMember(ctx context.Context, userID int64) (bool, error)
}

// Gate пропускает только участников настроенного чата.
type Gate struct {
	Members Membership
}

func NewGate(m Membership) *Gate {
	return &Gate{Members: m}
}

// Check возвращает ErrNotAllowed, если пользователь вышел, исключён или не найден в чате.
func (g *Gate) Check(ctx context.Context, userID int64) error {
	ok, err := g.Members.IsMember(ctx, userID)
	if errors.Is(err, ErrNotParticipant) {
		return ErrNotAllowed
	}
	if err != nil {
		return fmt.Errorf("membership check: %w", err)
	}
	if !ok {
		return ErrNotAllowed
	}
	return nil
}

// Auth подписывает токены HTTP API.
type Auth struct {
	SecretKey string
}

func New(secret string) *Auth {
	return &Auth{SecretKey: secret}
}

// Создать подпись
func (a *Auth) sign(userID string) string {
	mac := hmac.New(sha256.New, []byte(a.SecretKey))
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Token выдаёт токен вида userID:signature
func (a *Auth) Token(userID int64) string {
	id := strconv.FormatInt(userID, 10)
	return fmt.Sprintf("%s:%s", id, a.sign(id))
}

// ParseToken проверяет подпись и возвращает id пользователя.
func (a *Auth) ParseToken(token string) (int64, error) {
	parts := strings.SplitN(token, ":", 2)
	if len(parts) != 2 || a.SecretKey == "" {
		return 0, ErrInvalidToken
	}
	if !hmac.Equal([]byte(a.sign(parts[0])), []byte(parts[1])) {
		return 0, ErrInvalidToken
	}
	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return userID, nil
}

// ValidateUserID проверяет заголовок Authorization: Bearer <token>
func (a *Auth) ValidateUserID(r *http.Request) (int64, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return 0, false
	}
	userID, err := a.ParseToken(strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)))
	if err != nil {
		return 0, false
	}
	return userID, true
}
