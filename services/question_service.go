package services

import (
	"context"
	"encoding/json"
	"log"

	"articleqa/apperr"
	"articleqa/broker"
	"articleqa/models"
	"articleqa/policy"
	"articleqa/store"
)

// Message kinds on the article-validation channel. The outbound request
// and the inbound verdict use different spellings; both are fixed by the
// validator service's contract.
const (
	MessageTypeArticleExist        = "article_exist"
	MessageTypeArticleExistVerdict = "article-exist"
)

// QuestionService coordinates the question lifecycle: questions are
// persisted pending, a validation request is published for the referenced
// article, and the asynchronous verdict either enables or purges the
// question. It is also the single mutation path for answers.
type QuestionService struct {
	store        store.QuestionStore
	publisher    broker.Publisher
	requestTopic string
}

func NewQuestionService(questionStore store.QuestionStore, publisher broker.Publisher, requestTopic string) *QuestionService {
	return &QuestionService{
		store:        questionStore,
		publisher:    publisher,
		requestTopic: requestTopic,
	}
}

type CreateQuestionRequest struct {
	ArticleID string `json:"articleId"`
	Text      string `json:"text"`
}

type AddAnswerRequest struct {
	Text string `json:"text"`
}

type articleExistRequest struct {
	ReferenceID string `json:"referenceId"`
	ArticleID   string `json:"articleId"`
}

type articleExistVerdict struct {
	ReferenceID string `json:"referenceId"`
	ArticleID   string `json:"articleId"`
	Valid       bool   `json:"valid"`
}

// CreateQuestion persists the question pending and asks the article
// service to validate the referenced article. The question is returned
// once persisted; a publish failure is logged and the question simply
// stays pending until a verdict arrives through another path, it is
// never rolled back.
func (s *QuestionService) CreateQuestion(ctx context.Context, actor policy.Actor, req *CreateQuestionRequest) (*models.Question, error) {
	var invalid []string
	if req.ArticleID == "" {
		invalid = append(invalid, "articleId")
	}
	if req.Text == "" {
		invalid = append(invalid, "text")
	}
	if len(invalid) > 0 {
		return nil, apperr.NewValidation(invalid...)
	}

	if policy.Decide(actor, nil, nil, policy.CreateQuestion) != policy.Allow {
		return nil, &apperr.AuthorizationError{Reason: "cannot create question"}
	}

	question := &models.Question{
		ArticleID: req.ArticleID,
		AuthorID:  actor.ID,
		Text:      req.Text,
	}
	if err := s.store.Insert(ctx, question); err != nil {
		return nil, err
	}

	msg, err := broker.NewMessage(MessageTypeArticleExist, articleExistRequest{
		ReferenceID: question.ID,
		ArticleID:   question.ArticleID,
	})
	if err == nil {
		err = s.publisher.Publish(ctx, s.requestTopic, msg)
	}
	if err != nil {
		log.Printf("Questions: validation request for %s not published, question stays pending: %v", question.ID, err)
	}

	return question, nil
}

// GetQuestionsByArticle returns the enabled questions of an article in
// creation order. Pending questions are invisible here.
func (s *QuestionService) GetQuestionsByArticle(ctx context.Context, articleID string) ([]models.Question, error) {
	return s.store.ListEnabledByArticle(ctx, articleID)
}

// AddAnswer appends an answer to an enabled question. Pending questions
// are reported as not found, indistinguishable from absent ones.
func (s *QuestionService) AddAnswer(ctx context.Context, actor policy.Actor, questionID string, req *AddAnswerRequest) (*models.Question, error) {
	if req.Text == "" {
		return nil, apperr.NewValidation("text")
	}

	question, err := s.store.FindByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if question.Status != models.StatusEnabled {
		return nil, &apperr.NotFoundError{Resource: "question"}
	}

	if policy.Decide(actor, question, nil, policy.AddAnswer) != policy.Allow {
		return nil, &apperr.AuthorizationError{Reason: "cannot answer this question"}
	}

	answer := &models.Answer{
		AuthorID: actor.ID,
		Text:     req.Text,
	}
	if err := s.store.AppendAnswer(ctx, question.ID, answer); err != nil {
		return nil, err
	}

	return s.store.FindByID(ctx, question.ID)
}

func (s *QuestionService) DeleteQuestion(ctx context.Context, actor policy.Actor, questionID string) error {
	question, err := s.store.FindByID(ctx, questionID)
	if err != nil {
		return err
	}

	if policy.Decide(actor, question, nil, policy.DeleteQuestion) != policy.Allow {
		return &apperr.AuthorizationError{Reason: "cannot delete this question"}
	}

	return s.store.Delete(ctx, question.ID)
}

func (s *QuestionService) DeleteAnswer(ctx context.Context, actor policy.Actor, questionID, answerID string) error {
	question, err := s.store.FindByID(ctx, questionID)
	if err != nil {
		return err
	}
	answer := question.Answer(answerID)
	if answer == nil {
		return &apperr.NotFoundError{Resource: "answer"}
	}

	if policy.Decide(actor, question, answer, policy.DeleteAnswer) != policy.Allow {
		return &apperr.AuthorizationError{Reason: "cannot delete this answer"}
	}

	return s.store.RemoveAnswer(ctx, question.ID, answer.ID)
}

// Register subscribes the verdict handler on the questions channel.
func (s *QuestionService) Register(d *broker.Dispatcher) {
	d.Handle(MessageTypeArticleExistVerdict, s.HandleArticleExist)
}

// HandleArticleExist consumes one validation verdict. Verdicts for
// unknown or already-resolved questions are no-ops: the transport
// delivers at least once and this handler must absorb duplicates.
// Persistence failures are returned so the transport redelivers.
func (s *QuestionService) HandleArticleExist(ctx context.Context, msg broker.Message) error {
	var verdict articleExistVerdict
	if err := json.Unmarshal(msg.Message, &verdict); err != nil {
		log.Printf("Questions: malformed article verdict, dropping: %v", err)
		return nil
	}
	if verdict.ReferenceID == "" {
		log.Printf("Questions: article verdict without referenceId, dropping")
		return nil
	}

	log.Printf("Questions: article verdict for %s: valid=%t", verdict.ReferenceID, verdict.Valid)

	question, err := s.store.FindByID(ctx, verdict.ReferenceID)
	if err != nil {
		if apperr.IsNotFound(err) {
			log.Printf("Questions: verdict for unknown question %s, ignoring", verdict.ReferenceID)
			return nil
		}
		return err
	}

	if verdict.Valid {
		err = s.store.UpdateStatus(ctx, question.ID, models.StatusEnabled)
	} else if question.Status == models.StatusEnabled {
		// Enabled is terminal; a conflicting late verdict must not purge
		// a question that is already visible and answerable.
		log.Printf("Questions: question %s already enabled, ignoring negative verdict", question.ID)
		return nil
	} else {
		err = s.store.Delete(ctx, question.ID)
	}
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil // resolved concurrently, verdict is stale
		}
		return err
	}
	return nil
}
