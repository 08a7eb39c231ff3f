package timetables

import (
	"errors"
	"fmt"
)

type FetchErrorKind int

const (
	ClientError FetchErrorKind = iota
	ServerError
	NetworkError
	MalformedError
)

func (k FetchErrorKind) String() string {
	switch k {
	case ClientError:
		return "ClientError"
	case ServerError:
		return "ServerError"
	case NetworkError:
		return "Network"
	case MalformedError:
		return "Malformed"
	default:
		return fmt.Sprintf("FetchErrorKind(%d)", int(k))
	}
}

// Retryable reports whether another attempt could succeed
func (k FetchErrorKind) Retryable() bool {
	return k == ServerError || k == NetworkError
}

type FetchError struct {
	Kind       FetchErrorKind
	StatusCode int
	URL        string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s fetching %s: HTTP %d: %v", e.Kind, e.URL, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("%s fetching %s: %v", e.Kind, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err carries a FetchError of the given kind
func IsKind(err error, kind FetchErrorKind) bool {
	var fetchError *FetchError
	if errors.As(err, &fetchError) {
		return fetchError.Kind == kind
	}

	return false
}

var ErrMissingCredentials = errors.New("missing DB API credentials (DB_CLIENT_ID / DB_API_KEY)")
var ErrEmptyResponse = errors.New("API returned empty response")
