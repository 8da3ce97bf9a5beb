package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrUnknownVenue  = errors.New("unknown venue")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNoCredentials = errors.New("no credentials configured")
	ErrUnauthorized  = errors.New("unauthorized")
)
