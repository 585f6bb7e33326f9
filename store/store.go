// Package store persists Question aggregates. All mutation of a question
// and its embedded answers goes through this contract, and implementations
// must serialize concurrent mutations per question id so that an append
// racing a delete cannot resurrect data.
package store

import (
	"context"

	"articleqa/models"
)

type QuestionStore interface {
	// Insert assigns an id and persists the question with status pending.
	Insert(ctx context.Context, question *models.Question) error

	FindByID(ctx context.Context, id string) (*models.Question, error)

	// ListEnabledByArticle returns enabled questions for the article,
	// ordered by creation time.
	ListEnabledByArticle(ctx context.Context, articleID string) ([]models.Question, error)

	// UpdateStatus is an idempotent no-op when the question already has
	// the target status; verdict messages may be redelivered.
	UpdateStatus(ctx context.Context, id string, status models.QuestionStatus) error

	// AppendAnswer assigns the answer an id and appends it to the
	// question. Ordering of appended answers is insertion order.
	AppendAnswer(ctx context.Context, questionID string, answer *models.Answer) error

	RemoveAnswer(ctx context.Context, questionID, answerID string) error

	// Delete removes the question and, transitively, its answers.
	Delete(ctx context.Context, questionID string) error
}
