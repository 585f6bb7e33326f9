// Package policy holds the pure authorization rules for question and
// answer mutations. Decisions depend only on the actor and the aggregate
// passed in; preconditions such as "answers require an enabled question"
// belong to the caller, not to this package.
package policy

import (
	"articleqa/models"
)

// Actor is the authenticated principal extracted from the request token.
type Actor struct {
	ID    string
	Admin bool
}

type Action int

const (
	CreateQuestion Action = iota
	DeleteQuestion
	AddAnswer
	DeleteAnswer
)

type Decision int

const (
	Deny Decision = iota
	Allow
)

// Decide returns whether actor may perform action on the question. For
// DeleteAnswer the specific answer must be supplied; for other actions
// answer is ignored and may be nil.
func Decide(actor Actor, question *models.Question, answer *models.Answer, action Action) Decision {
	switch action {
	case CreateQuestion:
		// Any authenticated actor may ask.
		return Allow
	case AddAnswer:
		// Any authenticated actor may answer; the enabled-status
		// precondition is checked by the caller.
		return Allow
	case DeleteQuestion:
		if actor.Admin || (question != nil && actor.ID == question.AuthorID) {
			return Allow
		}
		return Deny
	case DeleteAnswer:
		if actor.Admin {
			return Allow
		}
		if question != nil && actor.ID == question.AuthorID {
			return Allow
		}
		if answer != nil && actor.ID == answer.AuthorID {
			return Allow
		}
		return Deny
	}
	return Deny
}
