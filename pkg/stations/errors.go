package stations

import (
	"errors"
	"fmt"
)

var ErrStationNotFound = errors.New("station not found")

// StationNotFoundError is returned when the provider knows no station for a pattern
type StationNotFoundError struct {
	Pattern string
}

func (e *StationNotFoundError) Error() string {
	return fmt.Sprintf("no station found for %q", e.Pattern)
}

func (e *StationNotFoundError) Is(target error) bool {
	return target == ErrStationNotFound
}
