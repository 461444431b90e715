package domain

import "time"

type LockStatus string

const (
	LockStatusLocked    LockStatus = "LOCKED"
	LockStatusReleased  LockStatus = "RELEASED"
	LockStatusConverted LockStatus = "CONVERTED"
	LockStatusExpired   LockStatus = "EXPIRED"
)

func (s LockStatus) IsTerminal() bool {
	return s == LockStatusReleased || s == LockStatusConverted || s == LockStatusExpired
}

// InventoryLock is a temporary claim on a variant's stock owned by one intent.
type InventoryLock struct {
	ID         string
	IntentID   string
	VariantID  string
	Quantity   int
	Status     LockStatus
	LockedAt   time.Time
	ExpiresAt  time.Time
	ReleasedAt *time.Time
}

// LockSummary aggregates an intent's locks for API responses.
type LockSummary struct {
	Locks          []InventoryLock
	LockedQuantity int
	ClosedQuantity int
}

func SummarizeLocks(locks []InventoryLock) LockSummary {
	summary := LockSummary{Locks: locks}
	for _, l := range locks {
		if l.Status == LockStatusLocked {
			summary.LockedQuantity += l.Quantity
		} else {
			summary.ClosedQuantity += l.Quantity
		}
	}
	return summary
}
