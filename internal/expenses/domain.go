package expenses

import (
	"errors"
	"time"
)

// PaymentSource selects the credit side of the expense journal entry.
type PaymentSource string

const (
	SourceCash PaymentSource = "cash"
	SourceBank PaymentSource = "bank"
)

// Valid reports whether the source is known.
func (s PaymentSource) Valid() bool {
	return s == SourceCash || s == SourceBank
}

// Expense is a posted operating expense. AccountID is the expense account
// debited by the journal entry.
type Expense struct {
	ID        int64
	Code      string
	Category  string
	AccountID int64
	Amount    float64
	Source    PaymentSource
	Note      string
	SpentAt   time.Time
	PostedBy  int64
	CreatedAt time.Time
}

// PostExpenseInput carries an expense posting request.
type PostExpenseInput struct {
	Code      string        `json:"code"`
	Category  string        `json:"category"`
	AccountID int64         `json:"account_id" validate:"required"`
	Amount    float64       `json:"amount" validate:"gt=0"`
	Source    PaymentSource `json:"source" validate:"required"`
	Note      string        `json:"note"`
	SpentAt   time.Time     `json:"spent_at"`
	ActorID   int64         `json:"-"`
}

// ListFilter narrows expense listings.
type ListFilter struct {
	Category string
	From     time.Time
	To       time.Time
	Limit    int
}

var (
	// ErrExpenseNotFound indicates an unknown expense id.
	ErrExpenseNotFound = errors.New("expenses: expense not found")
	// ErrDuplicateCode indicates an expense code that was already posted.
	ErrDuplicateCode = errors.New("expenses: expense code already exists")
	// ErrInvalidSource indicates an unknown payment source.
	ErrInvalidSource = errors.New("expenses: invalid payment source")
	// ErrInvalidAmount indicates a non-positive amount.
	ErrInvalidAmount = errors.New("expenses: amount must be positive")
)
