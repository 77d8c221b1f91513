package gitlab

import (
	"errors"
	"fmt"

	gl "gitlab.com/gitlab-org/api/client-go"
)

// Error taxonomy for remote calls. Callers match with errors.Is.
var (
	// ErrNetwork is a transport-level failure (DNS, TLS, refused...).
	ErrNetwork = errors.New("gitlab: network failure")
	// ErrAuth is a 401/403 on a call where access denial is meaningful.
	ErrAuth = errors.New("gitlab: authentication rejected")
	// ErrNotFound is a 404 where absence is an error (group resolution).
	ErrNotFound = errors.New("gitlab: not found")
	// ErrRemote covers rate limiting and server-side failures.
	ErrRemote = errors.New("gitlab: remote error")
)

// classify maps a client-go call result onto the taxonomy above.
func classify(resp *gl.Response, err error) error {
	if err == nil {
		return nil
	}
	if resp == nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	switch resp.StatusCode {
	case 401, 403:
		return fmt.Errorf("%w: %v", ErrAuth, err)
	case 404:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	default:
		return fmt.Errorf("%w: %v", ErrRemote, err)
	}
}

func statusOf(resp *gl.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
