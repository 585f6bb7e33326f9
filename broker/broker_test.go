package broker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage_WrapsPayload(t *testing.T) {
	msg, err := NewMessage("article_exist", map[string]string{"referenceId": "q1", "articleId": "a1"})
	require.NoError(t, err)

	assert.Equal(t, "article_exist", msg.Type)
	assert.JSONEq(t, `{"referenceId":"q1","articleId":"a1"}`, string(msg.Message))
}

func TestDispatcher_RoutesByType(t *testing.T) {
	d := NewDispatcher("questions")

	var gotA, gotB int
	d.Handle("kind-a", func(ctx context.Context, msg Message) error {
		gotA++
		return nil
	})
	d.Handle("kind-b", func(ctx context.Context, msg Message) error {
		gotB++
		return nil
	})

	require.NoError(t, d.Dispatch(context.Background(), Message{Type: "kind-a"}))
	require.NoError(t, d.Dispatch(context.Background(), Message{Type: "kind-b"}))
	require.NoError(t, d.Dispatch(context.Background(), Message{Type: "kind-a"}))

	assert.Equal(t, 2, gotA)
	assert.Equal(t, 1, gotB)
}

func TestDispatcher_UnknownKindIsDropped(t *testing.T) {
	d := NewDispatcher("questions")
	d.Handle("known", func(ctx context.Context, msg Message) error {
		t.Fatal("handler must not run for unknown kind")
		return nil
	})

	err := d.Dispatch(context.Background(), Message{Type: "unknown"})
	assert.NoError(t, err)
}

func TestDispatcher_PropagatesHandlerError(t *testing.T) {
	d := NewDispatcher("questions")
	boom := errors.New("boom")
	d.Handle("kind", func(ctx context.Context, msg Message) error {
		return boom
	})

	err := d.Dispatch(context.Background(), Message{Type: "kind"})
	assert.ErrorIs(t, err, boom)
}

func TestMemoryBroker_DeliversToSubscribedTopicOnly(t *testing.T) {
	b := NewMemoryBroker()
	ctx := context.Background()

	questions := NewDispatcher("questions")
	auth := NewDispatcher("auth")

	var questionMsgs, authMsgs []Message
	questions.Handle("article-exist", func(ctx context.Context, msg Message) error {
		questionMsgs = append(questionMsgs, msg)
		return nil
	})
	auth.Handle("logout", func(ctx context.Context, msg Message) error {
		authMsgs = append(authMsgs, msg)
		return nil
	})

	b.Subscribe(questions)
	b.Subscribe(auth)

	require.NoError(t, b.Publish(ctx, "questions", Message{Type: "article-exist"}))
	require.NoError(t, b.Publish(ctx, "auth", Message{Type: "logout"}))
	// No subscriber: fire-and-forget drops it without error.
	require.NoError(t, b.Publish(ctx, "elsewhere", Message{Type: "article-exist"}))

	assert.Len(t, questionMsgs, 1)
	assert.Len(t, authMsgs, 1)
}

func TestMemoryBroker_PublisherUnaffectedByHandlerError(t *testing.T) {
	b := NewMemoryBroker()
	d := NewDispatcher("questions")
	d.Handle("kind", func(ctx context.Context, msg Message) error {
		return errors.New("consumer failure")
	})
	b.Subscribe(d)

	err := b.Publish(context.Background(), "questions", Message{Type: "kind"})
	assert.NoError(t, err)
}
