package model

import (
	"time"

	"github.com/google/uuid"
)

// ID prefixes keep record kinds recognisable in logs and dumps.
const (
	UserIDPrefix         = "user_"
	AppointmentIDPrefix  = "appt_"
	PrescriptionIDPrefix = "presc_"
)

// NewID returns a fresh, never reused identifier with the given prefix.
func NewID(prefix string) string {
	return prefix + uuid.NewString()
}

// Millis converts t to the Unix millisecond timestamps stored in createdAt.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}
