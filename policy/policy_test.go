package policy

import (
	"testing"

	"articleqa/models"

	"github.com/stretchr/testify/assert"
)

func TestDecide_CreateQuestion_AnyActor(t *testing.T) {
	assert.Equal(t, Allow, Decide(Actor{ID: "u1"}, nil, nil, CreateQuestion))
	assert.Equal(t, Allow, Decide(Actor{ID: "u2", Admin: true}, nil, nil, CreateQuestion))
}

func TestDecide_AddAnswer_AnyActorOnAnyQuestion(t *testing.T) {
	question := &models.Question{AuthorID: "owner", Status: models.StatusEnabled}

	assert.Equal(t, Allow, Decide(Actor{ID: "stranger"}, question, nil, AddAnswer))
	assert.Equal(t, Allow, Decide(Actor{ID: "owner"}, question, nil, AddAnswer))
}

func TestDecide_DeleteQuestion(t *testing.T) {
	question := &models.Question{AuthorID: "owner"}

	tests := []struct {
		name  string
		actor Actor
		want  Decision
	}{
		{"owner may delete", Actor{ID: "owner"}, Allow},
		{"admin may delete", Actor{ID: "someone", Admin: true}, Allow},
		{"stranger may not delete", Actor{ID: "stranger"}, Deny},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.actor, question, nil, DeleteQuestion))
		})
	}
}

func TestDecide_DeleteAnswer(t *testing.T) {
	question := &models.Question{AuthorID: "asker"}
	answer := &models.Answer{AuthorID: "answerer"}

	tests := []struct {
		name  string
		actor Actor
		want  Decision
	}{
		{"question author may delete", Actor{ID: "asker"}, Allow},
		{"answer author may delete", Actor{ID: "answerer"}, Allow},
		{"admin may delete", Actor{ID: "mod", Admin: true}, Allow},
		{"third party may not delete", Actor{ID: "stranger"}, Deny},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.actor, question, answer, DeleteAnswer))
		})
	}
}

func TestDecide_UnknownActionDenied(t *testing.T) {
	assert.Equal(t, Deny, Decide(Actor{ID: "u1", Admin: true}, nil, nil, Action(99)))
}
