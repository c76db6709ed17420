package journals

import (
	"time"

	"github.com/google/uuid"
)

// JournalEntry captures posting metadata. Entries are immutable once
// written; corrections are new entries with swapped sides referencing the
// original through ReversesID.
type JournalEntry struct {
	ID           int64
	Number       int64
	Date         time.Time
	SourceModule string
	SourceID     uuid.UUID
	Memo         string
	PostedBy     int64
	PostedAt     time.Time
	ReversesID   *int64
	CreatedAt    time.Time
	Lines        []JournalLine
}

// JournalLine stores a debit or credit amount for an account, never both.
type JournalLine struct {
	ID        int64
	JournalID int64
	AccountID int64
	Debit     float64
	Credit    float64
	CreatedAt time.Time
}
