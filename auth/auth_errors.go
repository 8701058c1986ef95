package auth

import (
	"fmt"

	apperrors "github.com/manishahirrao/postpilot/internal/errors"
)

var (
	EmailRequiredErr    = fmt.Errorf("%w: email is required", apperrors.ErrInvalidInput)
	PasswordRequiredErr = fmt.Errorf("%w: password is required", apperrors.ErrInvalidInput)
	UserMissingErr      = fmt.Errorf("%w: response has no user", apperrors.ErrMalformedPayload)
)
