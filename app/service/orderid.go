package service

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderID returns a globally unique, human-traceable order identifier,
// e.g. "PX-20260831-9f3a2b1c4d5e". The date prefix makes support lookups
// tractable; the uuid fragment carries the uniqueness.
func NewOrderID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return "PX-" + time.Now().UTC().Format("20060102") + "-" + suffix
}
