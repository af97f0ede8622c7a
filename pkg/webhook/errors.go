package webhook

import "errors"

var (
	ErrInvalidConfiguration   = errors.New("invalid webhook configuration")
	ErrInvalidPayload         = errors.New("invalid webhook payload")
	ErrInvalidSignatureHeader = errors.New("invalid webhook signature header")
	ErrSignatureMismatch      = errors.New("webhook signature verification failed")
)
