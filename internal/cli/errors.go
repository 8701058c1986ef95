package cli

import (
	"errors"

	apperrors "github.com/manishahirrao/postpilot/internal/errors"
	"github.com/rs/zerolog/log"
)

// userError maps err onto the message shown to people. Validation and
// configuration errors keep their detail since they tell the user what to fix.
func userError(err error) error {
	kind := apperrors.Classify(err)
	log.Debug().Err(err).Str("kind", kind.String()).Msg("command failed")

	if errors.Is(err, apperrors.ErrConfigMissing) {
		return err
	}
	var httpErr *apperrors.HTTPError
	if kind == apperrors.KindValidation && !errors.As(err, &httpErr) {
		return err
	}
	return errors.New(apperrors.UserMessage(err))
}
