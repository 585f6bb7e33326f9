package models

import (
	"time"
)

type Answer struct {
	ID         string    `json:"id" gorm:"type:uuid;primaryKey"`
	QuestionID string    `json:"question_id" gorm:"type:uuid;not null;index"`
	AuthorID   string    `json:"author_id" gorm:"not null"`
	Text       string    `json:"text" gorm:"not null"`
	Seq        int64     `json:"-" gorm:"autoIncrement;uniqueIndex"` // insertion order within the question
	CreatedAt  time.Time `json:"created_at"`
}
