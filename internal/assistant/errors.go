package assistant

import "errors"

// Assistant-related errors
var (
	ErrNotConfigured      = errors.New("assistant is not configured: set assistant.api_key or DEALFLOW_ASSISTANT_API_KEY")
	ErrEmptyConversation  = errors.New("conversation must contain at least one message")
	ErrTooManyMessages    = errors.New("conversation is too long")
	ErrInvalidRole        = errors.New("message role must be user or assistant")
	ErrEmptyMessage       = errors.New("message content cannot be empty")
	ErrLastMessageNotUser = errors.New("last message must come from the user")
	ErrEmptyReply         = errors.New("assistant returned an empty reply")
)
