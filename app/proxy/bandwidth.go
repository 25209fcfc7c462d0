package proxy

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidBandwidth means the human-readable bandwidth string could not be
// parsed. Callers must treat this as a hard input error; it is never coerced
// to zero.
var ErrInvalidBandwidth = errors.New("invalid bandwidth string")

var bandwidthPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(GB|MB)$`)

// ParseBandwidth converts strings like "5 GB" or "512 MB" into megabytes.
// Gigabytes convert at 1024 MB per GB.
func ParseBandwidth(raw string) (int64, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	match := bandwidthPattern.FindStringSubmatch(normalized)
	if match == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidBandwidth, raw)
	}

	quantity, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidBandwidth, raw)
	}

	var megabytes float64
	switch match[2] {
	case "GB":
		megabytes = quantity * 1024
	case "MB":
		megabytes = quantity
	}

	result := int64(megabytes)
	if result <= 0 {
		return 0, fmt.Errorf("%w: %q resolves to zero megabytes", ErrInvalidBandwidth, raw)
	}
	return result, nil
}
