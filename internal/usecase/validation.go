package usecase

import "regexp"

const InvalidPhoneMessage = "Invalid phone number. Use the format 09123456789."

var phonePattern = regexp.MustCompile(`^09[0-9]{9}$`)

// ValidatePhoneNumber accepts exactly "09" followed by nine digits. Callers
// trim input first; any surrounding whitespace is rejected here.
func ValidatePhoneNumber(phone string) (string, error) {
	if !phonePattern.MatchString(phone) {
		return "", &DomainError{
			Code:    ErrCodeInvalidPhoneFormat,
			Message: InvalidPhoneMessage,
		}
	}
	return phone, nil
}
