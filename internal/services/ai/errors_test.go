package ai

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserMessage(t *testing.T) {
	timeout := NewTimeoutError(50*time.Millisecond, nil)
	remote := NewRemoteError("fn", "bad gateway", 502, errors.New("eof"))

	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "request timed out after 50ms", UserMessage(timeout))
	assert.Equal(t, "request timed out after 50ms", UserMessage(NewExhaustedError(2, timeout)))
	assert.Equal(t, "bad gateway", UserMessage(fmt.Errorf("wrapped: %w", remote)))
	assert.Equal(t, "plain failure", UserMessage(errors.New("plain failure")))
	assert.Equal(t, DefaultErrorMessage, UserMessage(&AIError{Type: ErrTypeRemote}))
	assert.Equal(t, "eof", UserMessage(&AIError{Type: ErrTypeRemote, Cause: errors.New("eof")}))
}

func TestErrorPredicates(t *testing.T) {
	exhaustedTimeout := NewExhaustedError(3, NewTimeoutError(time.Second, nil))
	assert.True(t, IsExhausted(exhaustedTimeout))
	assert.True(t, IsTimeout(exhaustedTimeout))
	assert.False(t, IsBusy(exhaustedTimeout))

	exhaustedRemote := NewExhaustedError(3, NewRemoteError("fn", "x", 500, nil))
	assert.False(t, IsTimeout(exhaustedRemote))

	assert.True(t, IsBusy(fmt.Errorf("ctx: %w", NewBusyError())))
	assert.False(t, IsTimeout(errors.New("timeout")))
}

func TestAIError_Error(t *testing.T) {
	err := NewRemoteError("draft-demand-response", "quota", 429, errors.New("http 429"))
	assert.Equal(t, "AI REMOTE error in draft-demand-response: quota (caused by: http 429)", err.Error())
	assert.Equal(t, "AI BUSY error in invoke: another request is already being processed", NewBusyError().Error())
}
