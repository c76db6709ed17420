package expenses

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ledgerline/ledgerline/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service posts operating expenses. The expense row and its journal entry
// commit in one transaction.
type Service struct {
	repo        Repository
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	integration IntegrationHandler
}

// NewService builds Service.
func NewService(repo Repository, audit AuditPort, idem *shared.IdempotencyStore, integration IntegrationHandler) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem, integration: integration}
}

// Post records the expense and its journal entry.
func (s *Service) Post(ctx context.Context, input PostExpenseInput) (Expense, error) {
	if input.Amount <= 0 {
		return Expense{}, ErrInvalidAmount
	}
	if !input.Source.Valid() {
		return Expense{}, ErrInvalidSource
	}
	if input.AccountID == 0 {
		return Expense{}, fmt.Errorf("expenses: account required")
	}
	spentAt := input.SpentAt
	if spentAt.IsZero() {
		spentAt = time.Now().UTC()
	}
	if input.Code == "" {
		input.Code = fmt.Sprintf("EXP-%d", time.Now().UTC().UnixNano())
	}
	amount := math.Round(input.Amount*100) / 100

	key := fmt.Sprintf("expense:%s", input.Code)
	insertedKey := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "expenses"); err != nil {
			return Expense{}, err
		}
		insertedKey = true
	}

	expense := Expense{
		Code:      input.Code,
		Category:  input.Category,
		AccountID: input.AccountID,
		Amount:    amount,
		Source:    input.Source,
		Note:      input.Note,
		SpentAt:   spentAt,
		PostedBy:  input.ActorID,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		expenseID, err := tx.InsertExpense(ctx, expense)
		if err != nil {
			return err
		}
		expense.ID = expenseID

		if s.integration != nil {
			evt := ExpensePostedEvent{
				ExpenseID: expenseID,
				Code:      expense.Code,
				Category:  expense.Category,
				AccountID: expense.AccountID,
				Amount:    amount,
				Source:    expense.Source,
				SpentAt:   spentAt,
			}
			if err := s.integration.HandleExpensePosted(ctx, tx.Journals(), evt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, key)
		}
		return Expense{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "expenses.post",
			Entity:   "expense",
			EntityID: fmt.Sprintf("%d", expense.ID),
			Meta: map[string]any{
				"code":   expense.Code,
				"amount": amount,
				"source": string(expense.Source),
			},
		})
	}
	return expense, nil
}

// List returns expenses matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Expense, error) {
	return s.repo.List(ctx, filter)
}

// Get fetches one expense.
func (s *Service) Get(ctx context.Context, expenseID int64) (Expense, error) {
	return s.repo.Get(ctx, expenseID)
}
