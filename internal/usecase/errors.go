package usecase

import "errors"

// DomainError is a failure caused by the caller's input. It is never retried.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// TechnicalError is an infrastructure failure (storage, broker). It may
// succeed when retried.
type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

const (
	ErrCodeInvalidPhoneFormat = "invalid_phone_format"
	ErrCodeStorage            = "storage_unavailable"
	ErrCodeQueue              = "queue_unavailable"
)
