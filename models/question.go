package models

import (
	"time"
)

// QuestionStatus is the validation lifecycle of a question. A question is
// created pending and becomes enabled only after the article validator
// confirms the referenced article exists; a negative verdict deletes the
// question outright, so there is no explicit rejected state.
type QuestionStatus string

const (
	StatusPending QuestionStatus = "pending"
	StatusEnabled QuestionStatus = "enabled"
)

type Question struct {
	ID        string         `json:"id" gorm:"type:uuid;primaryKey"`
	ArticleID string         `json:"article_id" gorm:"not null;index:idx_questions_article_status"`
	AuthorID  string         `json:"author_id" gorm:"not null"`
	Text      string         `json:"text" gorm:"not null"`
	Status    QuestionStatus `json:"status" gorm:"not null;default:'pending';index:idx_questions_article_status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`

	// Relationships
	Answers []Answer `json:"answers" gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`
}

// Answer returns the embedded answer with the given id, or nil.
func (q *Question) Answer(answerID string) *Answer {
	for i := range q.Answers {
		if q.Answers[i].ID == answerID {
			return &q.Answers[i]
		}
	}
	return nil
}
