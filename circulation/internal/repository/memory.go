package repository

import (
	"cmp"
	"context"
	"iter"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
)

// MemoryStore keeps the catalog and loan records in process. Transactions are
// serialized by one lock and work on a copy that replaces the state on commit,
// so readers only ever see committed data.
type MemoryStore struct {
	mu    sync.RWMutex
	books map[string]model.Book
	// loans[i] has id i+1
	loans []model.LoanRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		books: make(map[string]model.Book),
	}
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return errs.Unavailable(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		books: maps.Clone(s.books),
		loans: slices.Clone(s.loans),
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.books, s.loans = tx.books, tx.loans
	return nil
}

type memTx struct {
	books map[string]model.Book
	loans []model.LoanRecord
}

func (t *memTx) LockBook(_ context.Context, bookID string) (model.Book, error) {
	book, ok := t.books[bookID]
	if !ok {
		return model.Book{}, errs.ErrBookNotFound
	}
	return book, nil
}

func (t *memTx) AdjustStock(_ context.Context, bookID string, delta int) (int, error) {
	book, ok := t.books[bookID]
	if !ok || book.Stock+delta < 0 {
		return 0, errs.ErrOutOfStock
	}
	book.Stock += delta
	t.books[bookID] = book
	return book.Stock, nil
}

func (t *memTx) CreateBook(_ context.Context, book model.Book) (model.Book, error) {
	if _, ok := t.books[book.BookID]; ok {
		return model.Book{}, errs.ErrDuplicateID
	}
	t.books[book.BookID] = book
	return book, nil
}

func (t *memTx) UpdateBook(_ context.Context, bookID string, upd model.BookUpdate) (model.Book, error) {
	book, ok := t.books[bookID]
	if !ok {
		return model.Book{}, errs.ErrBookNotFound
	}
	if upd.Title != nil {
		book.Title = *upd.Title
	}
	if upd.Category != nil {
		book.Category = *upd.Category
	}
	if upd.Stock != nil {
		book.Stock = *upd.Stock
	}
	t.books[bookID] = book
	return book, nil
}

func (t *memTx) SetShelfStatus(_ context.Context, bookID string, status model.ShelfStatus) error {
	book, ok := t.books[bookID]
	if !ok {
		return errs.ErrBookNotFound
	}
	book.ShelfStatus = status
	t.books[bookID] = book
	return nil
}

func (t *memTx) DeleteBook(_ context.Context, bookID string) error {
	if _, ok := t.books[bookID]; !ok {
		return errs.ErrBookNotFound
	}
	for _, loan := range t.loans {
		if loan.BookID == bookID {
			return errs.ErrBookHasLoans
		}
	}
	delete(t.books, bookID)
	return nil
}

func (t *memTx) CreateLoan(_ context.Context, loan model.LoanRecord) (model.LoanRecord, error) {
	if _, ok := t.books[loan.BookID]; !ok {
		return model.LoanRecord{}, errs.ErrBookNotFound
	}
	loan.ID = int64(len(t.loans) + 1)
	loan.ReturnedDate = nil
	t.loans = append(t.loans, loan)
	return loan, nil
}

func (t *memTx) LockLoan(_ context.Context, loanID int64) (model.LoanRecord, error) {
	idx, ok := t.index(loanID)
	if !ok {
		return model.LoanRecord{}, errs.ErrLoanNotFound
	}
	return t.loans[idx], nil
}

func (t *memTx) LockLatestOutstandingLoan(_ context.Context, bookID, studentID string) (model.LoanRecord, error) {
	var (
		latest model.LoanRecord
		found  bool
	)
	for _, loan := range t.loans {
		if loan.BookID != bookID || loan.StudentID != studentID || !loan.Outstanding() {
			continue
		}
		if !found || loan.BorrowDate.After(latest.BorrowDate) ||
			(loan.BorrowDate.Equal(latest.BorrowDate) && loan.ID > latest.ID) {
			latest, found = loan, true
		}
	}
	if !found {
		return model.LoanRecord{}, errs.ErrNoOutstandingLoan
	}
	return latest, nil
}

func (t *memTx) CloseLoan(_ context.Context, loanID int64, at time.Time) (model.LoanRecord, error) {
	idx, ok := t.index(loanID)
	if !ok {
		return model.LoanRecord{}, errs.ErrLoanNotFound
	}
	if !t.loans[idx].Outstanding() {
		return model.LoanRecord{}, errs.ErrLoanAlreadyReturned
	}
	t.loans[idx].ReturnedDate = &at
	return t.loans[idx], nil
}

func (t *memTx) SetDueDate(_ context.Context, loanID int64, due time.Time) (model.LoanRecord, error) {
	idx, ok := t.index(loanID)
	if !ok {
		return model.LoanRecord{}, errs.ErrLoanNotFound
	}
	if !t.loans[idx].Outstanding() {
		return model.LoanRecord{}, errs.ErrLoanAlreadyReturned
	}
	t.loans[idx].DueDate = due
	return t.loans[idx], nil
}

func (t *memTx) index(loanID int64) (int, bool) {
	idx := int(loanID - 1)
	return idx, idx >= 0 && idx < len(t.loans)
}

func (s *MemoryStore) GetBook(_ context.Context, bookID string) (model.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	book, ok := s.books[bookID]
	if !ok {
		return model.Book{}, errs.ErrBookNotFound
	}
	return book, nil
}

func (s *MemoryStore) ListBooks(ctx context.Context, sort model.BookSort) iter.Seq2[model.Book, error] {
	return func(yield func(model.Book, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(model.Book{}, errs.Unavailable(err))
			return
		}
		s.mu.RLock()
		books := slices.Collect(maps.Values(s.books))
		s.mu.RUnlock()

		sortBooks(books, sort)
		for _, book := range books {
			if !yield(book, nil) {
				return
			}
		}
	}
}

func (s *MemoryStore) SearchBooks(_ context.Context, keyword string) ([]model.Book, error) {
	kw := strings.ToLower(keyword)
	s.mu.RLock()
	books := make([]model.Book, 0)
	for _, book := range s.books {
		if strings.Contains(strings.ToLower(book.BookID), kw) || strings.Contains(strings.ToLower(book.Title), kw) {
			books = append(books, book)
		}
	}
	s.mu.RUnlock()

	sortBooks(books, model.SortByStock)
	return books, nil
}

func (s *MemoryStore) GetLoan(_ context.Context, loanID int64) (model.LoanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := int(loanID - 1)
	if idx < 0 || idx >= len(s.loans) {
		return model.LoanRecord{}, errs.ErrLoanNotFound
	}
	return s.withTitle(s.loans[idx]), nil
}

func (s *MemoryStore) ListLoans(_ context.Context, filter model.LoanFilter) ([]model.LoanRecord, error) {
	kw := strings.ToLower(filter.Keyword)
	loans := s.filterLoans(func(l model.LoanRecord) bool {
		return (filter.StudentID == "" || l.StudentID == filter.StudentID) &&
			(filter.BookID == "" || l.BookID == filter.BookID) &&
			(!filter.OutstandingOnly || l.Outstanding()) &&
			(kw == "" || containsFold(l.StudentID, kw) || containsFold(l.BookID, kw) || containsFold(l.Title, kw))
	})
	slices.SortStableFunc(loans, func(a, b model.LoanRecord) int {
		if c := b.BorrowDate.Compare(a.BorrowDate); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return loans, nil
}

func (s *MemoryStore) ListOverdueLoans(_ context.Context, now time.Time) ([]model.LoanRecord, error) {
	loans := s.filterLoans(func(l model.LoanRecord) bool {
		return l.Outstanding() && l.DueDate.Before(now)
	})
	slices.SortStableFunc(loans, func(a, b model.LoanRecord) int {
		if c := a.DueDate.Compare(b.DueDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return loans, nil
}

func (s *MemoryStore) DashboardStats(_ context.Context, now time.Time) (model.DashboardStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats model.DashboardStats
	for _, book := range s.books {
		stats.TotalStock += book.Stock
	}
	for _, loan := range s.loans {
		if !loan.Outstanding() {
			continue
		}
		stats.OutstandingCount++
		if loan.DueDate.Before(now) {
			stats.OverdueCount++
		}
	}
	return stats, nil
}

func (s *MemoryStore) filterLoans(keep func(model.LoanRecord) bool) []model.LoanRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loans := make([]model.LoanRecord, 0)
	for _, loan := range s.loans {
		if loan = s.withTitle(loan); keep(loan) {
			loans = append(loans, loan)
		}
	}
	return loans
}

func containsFold(s, lowerSub string) bool {
	return strings.Contains(strings.ToLower(s), lowerSub)
}

func (s *MemoryStore) withTitle(loan model.LoanRecord) model.LoanRecord {
	loan.Title = s.books[loan.BookID].Title
	return loan
}

func sortBooks(books []model.Book, sort model.BookSort) {
	slices.SortFunc(books, func(a, b model.Book) int {
		switch sort {
		case model.SortByTitle:
			if c := cmp.Compare(a.Title, b.Title); c != 0 {
				return c
			}
		case model.SortByID:
		default:
			if c := cmp.Compare(shelfRank(a), shelfRank(b)); c != 0 {
				return c
			}
			if c := cmp.Compare(b.Stock, a.Stock); c != 0 {
				return c
			}
		}
		return cmp.Compare(a.BookID, b.BookID)
	})
}

func shelfRank(b model.Book) int {
	if b.ShelfStatus == model.ShelfActive {
		return 0
	}
	return 1
}

var (
	_ Store  = (*MemoryStore)(nil)
	_ Reader = (*MemoryStore)(nil)
	_ Store  = (*PostgresStore)(nil)
	_ Reader = (*ReadRepository)(nil)
)
