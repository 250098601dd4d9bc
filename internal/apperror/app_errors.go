package apperror

import "errors"

var (
	ErrFetch               = errors.New("failed to fetch game status")
	ErrReady               = errors.New("failed to send ready signal")
	ErrDecision            = errors.New("decision failed")
	ErrValidationMismatch  = errors.New("action type does not match requested turn")
	ErrSubmission          = errors.New("action submission failed")
	ErrDuplicateSubmission = errors.New("action already submitted")
	ErrStaleTurn           = errors.New("action type mismatch, turn is stale")
)

// IsTurnClosing reports whether a submission error closes the turn for good.
func IsTurnClosing(err error) bool {
	return errors.Is(err, ErrDuplicateSubmission) || errors.Is(err, ErrStaleTurn)
}
