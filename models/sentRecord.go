package models

import (
	"fmt"
	"time"
)

// SentRecord is one entry of the file ledger: a completed (product, slot, day)
// dispatch. The file is a plain JSON list of these, safe to inspect or edit
// between runs.
type SentRecord struct {
	ID string `json:"id"`
}

// SentEntry is the db ledger row. The unique index on key is what makes the
// db backend safe for multiple agent instances.
type SentEntry struct {
	ID        uint   `gorm:"primaryKey"`
	Key       string `gorm:"uniqueIndex;size:512;not null"`
	CreatedAt time.Time
}

// SentKey builds the idempotency key for one slot dispatch:
// "<Title>|<slotTime>|<isoDate>". Deterministic; the ledger stores nothing
// else about the send.
func SentKey(title string, slotTime string, day time.Time) string {
	return fmt.Sprintf("%s|%s|%s", title, slotTime, day.Format("2006-01-02"))
}
