package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"articleqa/apperr"
	"articleqa/models"

	"github.com/google/uuid"
)

// MemoryStore is an in-process QuestionStore used by tests and broker-less
// local runs. Mutations take a per-question lock, matching the row-lock
// serialization of the postgres implementation.
type MemoryStore struct {
	mu        sync.Mutex
	questions map[string]*models.Question
	locks     map[string]*sync.Mutex
	seq       int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		questions: make(map[string]*models.Question),
		locks:     make(map[string]*sync.Mutex),
	}
}

func (s *MemoryStore) Insert(_ context.Context, question *models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	question.ID = uuid.NewString()
	question.Status = models.StatusPending
	if question.CreatedAt.IsZero() {
		// gorm stamps this on Create; match it here.
		question.CreatedAt = time.Now()
	}
	stored := cloneQuestion(question)
	s.questions[question.ID] = &stored
	s.locks[question.ID] = &sync.Mutex{}
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*models.Question, error) {
	unlock, question, err := s.lockQuestion(id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := cloneQuestion(question)
	return &out, nil
}

func (s *MemoryStore) ListEnabledByArticle(ctx context.Context, articleID string) ([]models.Question, error) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.questions))
	for id := range s.questions {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	out := []models.Question{}
	for _, id := range ids {
		q, err := s.FindByID(ctx, id)
		if err != nil {
			continue // deleted since the snapshot
		}
		if q.ArticleID == articleID && q.Status == models.StatusEnabled {
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id string, status models.QuestionStatus) error {
	unlock, question, err := s.lockQuestion(id)
	if err != nil {
		return err
	}
	defer unlock()

	question.Status = status
	return nil
}

func (s *MemoryStore) AppendAnswer(_ context.Context, questionID string, answer *models.Answer) error {
	unlock, question, err := s.lockQuestion(questionID)
	if err != nil {
		return err
	}
	defer unlock()

	answer.ID = uuid.NewString()
	answer.QuestionID = questionID
	if answer.CreatedAt.IsZero() {
		answer.CreatedAt = time.Now()
	}
	s.mu.Lock()
	s.seq++
	answer.Seq = s.seq
	s.mu.Unlock()
	question.Answers = append(question.Answers, *answer)
	return nil
}

func (s *MemoryStore) RemoveAnswer(_ context.Context, questionID, answerID string) error {
	unlock, question, err := s.lockQuestion(questionID)
	if err != nil {
		return err
	}
	defer unlock()

	for i := range question.Answers {
		if question.Answers[i].ID == answerID {
			question.Answers = append(question.Answers[:i], question.Answers[i+1:]...)
			return nil
		}
	}
	return &apperr.NotFoundError{Resource: "answer"}
}

func (s *MemoryStore) Delete(_ context.Context, questionID string) error {
	unlock, _, err := s.lockQuestion(questionID)
	if err != nil {
		return err
	}
	defer unlock()

	s.mu.Lock()
	delete(s.questions, questionID)
	delete(s.locks, questionID)
	s.mu.Unlock()
	return nil
}

// lockQuestion acquires the per-question mutation lock and re-checks
// existence under it, since a concurrent Delete may have won the race.
func (s *MemoryStore) lockQuestion(id string) (func(), *models.Question, error) {
	s.mu.Lock()
	lock, ok := s.locks[id]
	s.mu.Unlock()
	if !ok {
		return nil, nil, &apperr.NotFoundError{Resource: "question"}
	}

	lock.Lock()

	s.mu.Lock()
	question, ok := s.questions[id]
	s.mu.Unlock()
	if !ok {
		lock.Unlock()
		return nil, nil, &apperr.NotFoundError{Resource: "question"}
	}
	return lock.Unlock, question, nil
}

func cloneQuestion(q *models.Question) models.Question {
	out := *q
	out.Answers = make([]models.Answer, len(q.Answers))
	copy(out.Answers, q.Answers)
	return out
}
