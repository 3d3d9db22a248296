package catalog

import (
	"errors"
	"fmt"
)

// Sentinel errors for matching a FetchError's kind with errors.Is.
var (
	ErrNetwork    = errors.New("catalog: network error")
	ErrHTTPStatus = errors.New("catalog: unexpected HTTP status")
	ErrDecode     = errors.New("catalog: decode error")
)

// ErrorKind classifies a fetch failure.
type ErrorKind int

const (
	KindNetwork    ErrorKind = iota // Unreachable host, timeout, connection reset.
	KindHTTPStatus                  // Non-2xx response.
	KindDecode                      // Malformed JSON or image bytes.
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindHTTPStatus:
		return "http-status"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// FetchError describes a failed catalog or image fetch. All failures crossing
// the client boundary are reported as *FetchError values.
type FetchError struct {
	Kind       ErrorKind
	URL        string
	StatusCode int   // Set for KindHTTPStatus.
	Err        error // Underlying error, nil for KindHTTPStatus.
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	default:
		if e.Err != nil {
			return fmt.Sprintf("fetch %s: %s: %s", e.URL, e.Kind, e.Err)
		}
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel matching this error's kind.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrHTTPStatus:
		return e.Kind == KindHTTPStatus
	case ErrDecode:
		return e.Kind == KindDecode
	}
	return false
}
