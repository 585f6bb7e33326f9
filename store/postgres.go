package store

import (
	"context"
	"errors"

	"articleqa/apperr"
	"articleqa/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresStore persists questions with gorm. Per-aggregate serialization
// is a row lock on the question inside each mutating transaction.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, question *models.Question) error {
	question.ID = uuid.NewString()
	question.Status = models.StatusPending

	if err := s.db.WithContext(ctx).Create(question).Error; err != nil {
		return &apperr.PersistenceError{Op: "insert question", Err: err}
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Question, error) {
	var question models.Question
	err := s.db.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.seq")
		}).
		First(&question, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperr.NotFoundError{Resource: "question"}
		}
		return nil, &apperr.PersistenceError{Op: "find question", Err: err}
	}
	return &question, nil
}

func (s *PostgresStore) ListEnabledByArticle(ctx context.Context, articleID string) ([]models.Question, error) {
	questions := []models.Question{}
	err := s.db.WithContext(ctx).
		Where("article_id = ? AND status = ?", articleID, models.StatusEnabled).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.seq")
		}).
		Order("created_at").
		Find(&questions).Error
	if err != nil {
		return nil, &apperr.PersistenceError{Op: "list questions", Err: err}
	}
	return questions, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status models.QuestionStatus) error {
	return s.mutate(ctx, "update status", id, func(tx *gorm.DB, question *models.Question) error {
		if question.Status == status {
			return nil // redelivered verdict
		}
		return tx.Model(question).Update("status", status).Error
	})
}

func (s *PostgresStore) AppendAnswer(ctx context.Context, questionID string, answer *models.Answer) error {
	return s.mutate(ctx, "append answer", questionID, func(tx *gorm.DB, question *models.Question) error {
		answer.ID = uuid.NewString()
		answer.QuestionID = question.ID
		return tx.Create(answer).Error
	})
}

func (s *PostgresStore) RemoveAnswer(ctx context.Context, questionID, answerID string) error {
	return s.mutate(ctx, "remove answer", questionID, func(tx *gorm.DB, question *models.Question) error {
		res := tx.Where("question_id = ? AND id = ?", question.ID, answerID).Delete(&models.Answer{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &apperr.NotFoundError{Resource: "answer"}
		}
		return nil
	})
}

func (s *PostgresStore) Delete(ctx context.Context, questionID string) error {
	return s.mutate(ctx, "delete question", questionID, func(tx *gorm.DB, question *models.Question) error {
		if err := tx.Where("question_id = ?", question.ID).Delete(&models.Answer{}).Error; err != nil {
			return err
		}
		return tx.Delete(question).Error
	})
}

// mutate runs fn inside a transaction holding a FOR UPDATE lock on the
// question row, so concurrent mutations on the same aggregate serialize.
func (s *PostgresStore) mutate(ctx context.Context, op, questionID string, fn func(tx *gorm.DB, question *models.Question) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var question models.Question
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&question, "id = ?", questionID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &apperr.NotFoundError{Resource: "question"}
			}
			return err
		}
		return fn(tx, &question)
	})
	if err == nil || apperr.IsNotFound(err) {
		return err
	}
	return &apperr.PersistenceError{Op: op, Err: err}
}
