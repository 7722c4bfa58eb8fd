package client

import (
	"fmt"
	"net/http"
)

// HTTPStatusError represents an HTTP error response.
type HTTPStatusError struct {
	StatusCode int
}

var _ error = HTTPStatusError{}

func (e HTTPStatusError) Error() string {
	return fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
}
