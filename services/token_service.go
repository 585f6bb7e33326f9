package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"articleqa/apperr"
	"articleqa/broker"
	"articleqa/policy"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

// MessageTypeLogout is the dispatch key of session-invalidation notices
// on the auth channel.
const MessageTypeLogout = "logout"

// Tokens are issued by the auth service; this service only needs to stop
// honoring them, so revocations are kept for longer than any token lives.
const revocationTTL = 30 * 24 * time.Hour

// Claims are the JWT claims issued by the auth service. The token id
// (jti) is what logout messages revoke.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Admin  bool   `json:"admin"`
}

// RevocationStore remembers invalidated token ids.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RedisRevocationStore keeps revocations in redis so all instances see a
// logout immediately.
type RedisRevocationStore struct {
	client *redis.Client
}

func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, tokenID string) error {
	if err := s.client.Set(ctx, revocationKey(tokenID), "1", revocationTTL).Err(); err != nil {
		return &apperr.PersistenceError{Op: "revoke token", Err: err}
	}
	return nil
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := s.client.Get(ctx, revocationKey(tokenID)).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, &apperr.PersistenceError{Op: "check token", Err: err}
	}
	return true, nil
}

func revocationKey(tokenID string) string {
	return "session:revoked:" + tokenID
}

// MemoryRevocationStore is the in-process RevocationStore used by tests
// and redis-less local runs.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{revoked: make(map[string]bool)}
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[tokenID] = true
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revoked[tokenID], nil
}

// TokenService validates bearer tokens and consumes the auth service's
// logout notices. It never issues tokens.
type TokenService struct {
	secret  []byte
	revoked RevocationStore
}

func NewTokenService(secret string, revoked RevocationStore) *TokenService {
	return &TokenService{
		secret:  []byte(secret),
		revoked: revoked,
	}
}

// Validate parses and verifies tokenString and returns the actor it
// represents. Expired, malformed and revoked tokens all come back as
// AuthorizationError.
func (s *TokenService) Validate(ctx context.Context, tokenString string) (policy.Actor, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return policy.Actor{}, &apperr.AuthorizationError{Reason: "invalid token"}
	}
	if claims.UserID == "" {
		return policy.Actor{}, &apperr.AuthorizationError{Reason: "token has no user"}
	}

	if claims.ID != "" {
		revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return policy.Actor{}, err
		}
		if revoked {
			return policy.Actor{}, &apperr.AuthorizationError{Reason: "session closed"}
		}
	}

	return policy.Actor{ID: claims.UserID, Admin: claims.Admin}, nil
}

func (s *TokenService) Invalidate(ctx context.Context, tokenID string) error {
	return s.revoked.Revoke(ctx, tokenID)
}

// Register subscribes the logout handler on the auth channel.
func (s *TokenService) Register(d *broker.Dispatcher) {
	d.Handle(MessageTypeLogout, s.HandleLogout)
}

// HandleLogout consumes one logout notice. The payload is the bare token
// id as a JSON string. Revoking an already-revoked id is a no-op, so
// redelivery is harmless.
func (s *TokenService) HandleLogout(ctx context.Context, msg broker.Message) error {
	var tokenID string
	if err := json.Unmarshal(msg.Message, &tokenID); err != nil {
		log.Printf("Auth: malformed logout message, dropping: %v", err)
		return nil
	}
	if tokenID == "" {
		log.Printf("Auth: logout message without token id, dropping")
		return nil
	}

	log.Printf("Auth: revoking session %s", tokenID)
	return s.Invalidate(ctx, tokenID)
}
