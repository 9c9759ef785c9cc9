package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrBackend          = errors.New("backend failure")
	ErrDelivery         = errors.New("delivery failure")
	ErrTemporary        = errors.New("temporary failure")
	ErrUnsupportedModel = errors.New("unsupported model family")
	ErrJobNotFound      = errors.New("job not found")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
