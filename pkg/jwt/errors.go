package jwt

import "errors"

var (
	ErrMissingSigningKey       = errors.New("jwt: signing key is required")
	ErrMissingClaims           = errors.New("jwt: claims are required")
	ErrInvalidToken            = errors.New("jwt: invalid token")
	ErrInvalidSignature        = errors.New("jwt: invalid token signature")
	ErrExpiredToken            = errors.New("jwt: token has expired")
	ErrUnexpectedSigningMethod = errors.New("jwt: unexpected signing method")
)
