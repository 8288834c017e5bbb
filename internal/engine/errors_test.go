package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEngineError_Error(t *testing.T) {
	err := NewIncompleteAnswerError("tok", 40, &Cursor{ListIndex: 1, PersonIndex: 2, SectionIndex: 0})
	assert.Equal(t, "INCOMPLETE_REQUIRED_ANSWER: required question has no answer (question=40, at=1/2/0)", err.Error())

	err = NewIncompleteAnswerError("tok", 7, nil)
	assert.Equal(t, "INCOMPLETE_REQUIRED_ANSWER: required question has no answer (question=7)", err.Error())

	closed := &EngineError{Code: ErrCodeSessionClosed, Message: "session was already submitted"}
	assert.Equal(t, "SESSION_CLOSED: session was already submitted", closed.Error())
}

func TestErrorHelpers_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("page 3: %w", NewIncompleteAnswerError("tok", 1, nil))

	assert.True(t, IsIncompleteAnswer(wrapped))
	assert.False(t, IsSessionClosed(wrapped))
	assert.Equal(t, ErrCodeIncompleteAnswer, CodeOf(wrapped))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	assert.True(t, IsInvalidAnswer(NewInvalidAnswerError("tok", 1, "bad")))
}
