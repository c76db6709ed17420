package journals

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/accounting/shared"
)

type memoryRepo struct {
	entries map[int64]JournalEntry
	lines   map[int64][]JournalLine
	links   map[string]int64
	nextID  int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		entries: make(map[int64]JournalEntry),
		lines:   make(map[int64][]JournalLine),
		links:   make(map[string]int64),
	}
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]JournalEntry, error) {
	var out []JournalEntry
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out, nil
}

func (r *memoryRepo) Get(ctx context.Context, entryID int64) (JournalEntry, error) {
	entry, ok := r.entries[entryID]
	if !ok {
		return JournalEntry{}, shared.ErrJournalNotFound
	}
	entry.Lines = r.lines[entryID]
	return entry, nil
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (tx *memoryTx) InsertJournalEntry(ctx context.Context, in PostingInput) (JournalEntry, error) {
	tx.repo.nextID++
	entry := JournalEntry{
		ID:           tx.repo.nextID,
		Number:       tx.repo.nextID,
		Date:         in.Date,
		SourceModule: in.SourceModule,
		SourceID:     in.SourceID,
		Memo:         in.Memo,
		PostedBy:     in.PostedBy,
		PostedAt:     time.Now(),
		ReversesID:   in.ReversesID,
		CreatedAt:    time.Now(),
	}
	tx.repo.entries[entry.ID] = entry
	return entry, nil
}

func (tx *memoryTx) InsertJournalLines(ctx context.Context, entryID int64, lines []PostingLineInput) error {
	for _, line := range lines {
		tx.repo.lines[entryID] = append(tx.repo.lines[entryID], JournalLine{
			JournalID: entryID,
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
		})
	}
	return nil
}

func (tx *memoryTx) LinkSource(ctx context.Context, module string, ref uuid.UUID, entryID int64) error {
	key := module + ":" + ref.String()
	if _, ok := tx.repo.links[key]; ok {
		return shared.ErrSourceConflict
	}
	tx.repo.links[key] = entryID
	return nil
}

func (tx *memoryTx) GetJournalWithLines(ctx context.Context, entryID int64) (JournalEntry, []JournalLine, error) {
	entry, ok := tx.repo.entries[entryID]
	if !ok {
		return JournalEntry{}, nil, shared.ErrJournalNotFound
	}
	return entry, tx.repo.lines[entryID], nil
}

func balancedInput() PostingInput {
	return PostingInput{
		Date:         time.Now(),
		SourceModule: "SALES.ORDER",
		SourceID:     uuid.New(),
		Memo:         "Sale SO-1",
		Lines: []PostingLineInput{
			{AccountID: 1, Debit: 6000},
			{AccountID: 2, Credit: 6000},
		},
	}
}

func TestPostJournalBalanced(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	entry, err := svc.PostJournal(context.Background(), balancedInput())
	require.NoError(t, err)
	require.Len(t, entry.Lines, 2)

	var debit, credit float64
	for _, line := range entry.Lines {
		debit += line.Debit
		credit += line.Credit
	}
	require.Equal(t, debit, credit)
}

func TestEngineEntriesReadableAndReversible(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	// Hook-posted entries carry no actor; posted_by stays NULL in storage
	// and must still read back and reverse cleanly.
	posted, err := svc.PostJournal(context.Background(), balancedInput())
	require.NoError(t, err)
	require.Zero(t, posted.PostedBy)

	got, err := svc.Get(context.Background(), posted.ID)
	require.NoError(t, err)
	require.Zero(t, got.PostedBy)

	reversal, err := svc.ReverseJournal(context.Background(), ReverseInput{EntryID: posted.ID, ActorID: 7})
	require.NoError(t, err)
	require.Equal(t, int64(7), reversal.PostedBy)
}

func TestPostJournalRejectsUnbalanced(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	input := balancedInput()
	input.Lines[1].Credit = 5999.99
	_, err := svc.PostJournal(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrUnbalanced)
	require.Empty(t, repo.entries)
}

func TestPostJournalRejectsTooFewLines(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	input := balancedInput()
	input.Lines = input.Lines[:1]
	_, err := svc.PostJournal(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrTooFewLines)
}

func TestPostJournalRejectsBothSidesLine(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	input := balancedInput()
	input.Lines[0].Credit = 1
	input.Lines[0].Debit = 6001
	_, err := svc.PostJournal(context.Background(), input)
	require.Error(t, err)
}

func TestPostJournalRejectsEmptyLine(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	input := balancedInput()
	input.Lines = append(input.Lines, PostingLineInput{AccountID: 3})
	_, err := svc.PostJournal(context.Background(), input)
	require.Error(t, err)
	require.Empty(t, repo.entries)
}

func TestPostJournalDeduplicatesSource(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	input := balancedInput()
	_, err := svc.PostJournal(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.PostJournal(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrSourceAlreadyLinked)
	require.Len(t, repo.entries, 1)
}

func TestReverseJournalSwapsSides(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	entry, err := svc.PostJournal(context.Background(), balancedInput())
	require.NoError(t, err)

	reversal, err := svc.ReverseJournal(context.Background(), ReverseInput{EntryID: entry.ID, ActorID: 1})
	require.NoError(t, err)
	require.NotNil(t, reversal.ReversesID)
	require.Equal(t, entry.ID, *reversal.ReversesID)
	require.Equal(t, entry.Lines[0].Debit, reversal.Lines[0].Credit)
	require.Equal(t, entry.Lines[1].Credit, reversal.Lines[1].Debit)

	// Original untouched.
	original, err := svc.Get(context.Background(), entry.ID)
	require.NoError(t, err)
	require.Equal(t, 6000.0, original.Lines[0].Debit)
}

func TestReverseJournalRejectsReversal(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	entry, err := svc.PostJournal(context.Background(), balancedInput())
	require.NoError(t, err)
	reversal, err := svc.ReverseJournal(context.Background(), ReverseInput{EntryID: entry.ID})
	require.NoError(t, err)

	_, err = svc.ReverseJournal(context.Background(), ReverseInput{EntryID: reversal.ID})
	require.ErrorIs(t, err, shared.ErrInvalidStatus)
}
