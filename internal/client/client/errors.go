package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/memoria/internal/common"
)

var ErrMalformedResponse = errors.New("malformed response")

// mapError classifies a failed round trip. Caller cancellation is passed
// through untouched so the task layer can recognise it; everything else,
// timeouts included, is a retryable network error.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", common.ErrNetwork, err)
}

// mapStatus classifies an HTTP status that carries no usable envelope.
func mapStatus(code int, status string) error {
	switch {
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", common.ErrAuthRequired, status)
	case code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s", common.ErrNetwork, status)
	default:
		return fmt.Errorf("%w: %s", common.ErrServer, status)
	}
}
