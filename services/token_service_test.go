package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"articleqa/apperr"
	"articleqa/broker"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func testClaims(userID, tokenID string, admin bool) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID: userID,
		Admin:  admin,
	}
}

func TestTokenService_ValidateReturnsActor(t *testing.T) {
	s := NewTokenService(testSecret, NewMemoryRevocationStore())

	actor, err := s.Validate(context.Background(), signToken(t, testClaims("u1", "t1", true)))
	require.NoError(t, err)
	assert.Equal(t, "u1", actor.ID)
	assert.True(t, actor.Admin)
}

func TestTokenService_RejectsBadSignature(t *testing.T) {
	s := NewTokenService(testSecret, NewMemoryRevocationStore())

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, testClaims("u1", "t1", false))
	signed, err := other.SignedString([]byte("wrong-secret"))
	require.NoError(t, err)

	_, err = s.Validate(context.Background(), signed)
	assert.True(t, apperr.IsAuthorization(err))
}

func TestTokenService_RejectsExpiredToken(t *testing.T) {
	s := NewTokenService(testSecret, NewMemoryRevocationStore())

	claims := testClaims("u1", "t1", false)
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	_, err := s.Validate(context.Background(), signToken(t, claims))
	assert.True(t, apperr.IsAuthorization(err))
}

func TestTokenService_RejectsMissingUser(t *testing.T) {
	s := NewTokenService(testSecret, NewMemoryRevocationStore())

	_, err := s.Validate(context.Background(), signToken(t, testClaims("", "t1", false)))
	assert.True(t, apperr.IsAuthorization(err))
}

func TestTokenService_RevokedTokenIsRejected(t *testing.T) {
	s := NewTokenService(testSecret, NewMemoryRevocationStore())
	ctx := context.Background()
	tokenString := signToken(t, testClaims("u1", "t1", false))

	_, err := s.Validate(ctx, tokenString)
	require.NoError(t, err)

	require.NoError(t, s.Invalidate(ctx, "t1"))

	_, err = s.Validate(ctx, tokenString)
	assert.True(t, apperr.IsAuthorization(err))
}

func TestTokenService_HandleLogoutRevokesSession(t *testing.T) {
	s := NewTokenService(testSecret, NewMemoryRevocationStore())
	ctx := context.Background()
	tokenString := signToken(t, testClaims("u1", "t9", false))

	msg, err := broker.NewMessage(MessageTypeLogout, "t9")
	require.NoError(t, err)
	require.NoError(t, s.HandleLogout(ctx, msg))

	_, err = s.Validate(ctx, tokenString)
	assert.True(t, apperr.IsAuthorization(err))

	// Redelivery of the same logout is harmless.
	require.NoError(t, s.HandleLogout(ctx, msg))
}

func TestTokenService_HandleLogoutDropsMalformedMessages(t *testing.T) {
	s := NewTokenService(testSecret, NewMemoryRevocationStore())
	ctx := context.Background()

	err := s.HandleLogout(ctx, broker.Message{
		Type:    MessageTypeLogout,
		Message: json.RawMessage(`{"not":"a string"}`),
	})
	assert.NoError(t, err)

	msg, err := broker.NewMessage(MessageTypeLogout, "")
	require.NoError(t, err)
	assert.NoError(t, s.HandleLogout(ctx, msg))
}

func TestTokenService_LogoutViaBrokerSubscription(t *testing.T) {
	s := NewTokenService(testSecret, NewMemoryRevocationStore())
	ctx := context.Background()

	memBroker := broker.NewMemoryBroker()
	auth := broker.NewDispatcher("auth")
	s.Register(auth)
	memBroker.Subscribe(auth)

	tokenString := signToken(t, testClaims("u1", "t42", false))
	_, err := s.Validate(ctx, tokenString)
	require.NoError(t, err)

	msg, err := broker.NewMessage(MessageTypeLogout, "t42")
	require.NoError(t, err)
	require.NoError(t, memBroker.Publish(ctx, "auth", msg))

	_, err = s.Validate(ctx, tokenString)
	assert.True(t, apperr.IsAuthorization(err))
}
