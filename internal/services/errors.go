// internal/services/errors.go
package services

import "errors"

var (
	ErrNotFound          = errors.New("record not found")
	ErrAlreadyExists     = errors.New("record already exists")
	ErrInvalidInput      = errors.New("invalid input")
	ErrCertificateRecall = errors.New("certificate has been recalled")
	ErrNoCertificate     = errors.New("product has no active certificate")
	ErrNoTokenID         = errors.New("product has no token id")
	ErrSimulatedDisabled = errors.New("no contract bound and simulated minting is disabled")
	ErrUnauthorized      = errors.New("invalid email or password")
)
