package email

import (
	"errors"
	"regexp"
)

var (
	ErrInvalidConfig     = errors.New("invalid email configuration")
	ErrInvalidRecipient  = errors.New("invalid email recipient")
	ErrMissingSubject    = errors.New("email subject is required")
	ErrMissingBody       = errors.New("email body is required")
	ErrFailedToSendEmail = errors.New("failed to send email")
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
