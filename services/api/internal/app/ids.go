package app

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

func newUUID() string {
	return uuid.NewString()
}

// newNumber builds a human-facing reference such as INT-20250101-3F9A1C.
func newNumber(prefix string, at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return prefix + "-" + at.UTC().Format("20060102") + "-" + suffix
}

func newIntentNumber(at time.Time) string { return newNumber("INT", at) }

func newOrderNumber(at time.Time) string { return newNumber("ORD", at) }
