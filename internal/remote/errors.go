package remote

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrUnavailable marks an error as network-classified: the remote store could
// not be reached. Implementations wrap transport failures with it so callers
// can branch on errors.Is rather than message sniffing.
var ErrUnavailable = errors.New("remote: store unavailable")

// APIError is a non-network failure reported by the remote store itself.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote: api status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("remote: api status %d", e.Status)
}

// IsNetworkError reports whether err stems from connectivity loss rather
// than a logic or data fault. It prefers the typed classification
// (ErrUnavailable, net.Error) and falls back to matching known phrasings for
// errors that cross an untyped boundary.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrUnavailable) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// Check transport-specific error messages
	errMsg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"network",
		"offline",
		"connection",
		"unavailable",
		"timeout",
		"failed to fetch",
	} {
		if strings.Contains(errMsg, marker) {
			return true
		}
	}
	return false
}
