package evaluation

import "errors"

var (
	ErrNotFound      = errors.New("evaluation not found")
	ErrInvalidPeriod = errors.New("month must be 1-12 and year must be between 2000 and 2100")
	ErrInvalidScore  = errors.New("score must be between 0 and 100")
	ErrInvalid       = errors.New("invalid evaluation")
)
