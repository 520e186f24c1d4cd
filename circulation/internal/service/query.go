package service

import (
	"cmp"
	"context"
	"iter"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/circulation/internal/repository"
)

// Query holds the read-only views. Nothing here mutates state.
type Query struct {
	reader      repository.Reader
	now         func() time.Time
	dueSoonDays int
	log         *zap.Logger
}

func NewQuery(reader repository.Reader, log *zap.Logger, opts ...Option) *Query {
	o := newOptions(opts)
	return &Query{
		reader:      reader,
		now:         o.now,
		dueSoonDays: o.dueSoonDays,
		log:         log.Named("query"),
	}
}

func (q *Query) GetBook(ctx context.Context, bookID string) (model.Book, error) {
	return q.reader.GetBook(ctx, bookID)
}

// ListBooks defaults to the stock ordering: active books first, then by stock
// descending. The sequence can be ranged over more than once.
func (q *Query) ListBooks(ctx context.Context, sort model.BookSort) iter.Seq2[model.Book, error] {
	if sort == "" {
		sort = model.SortByStock
	}
	if !sort.Valid() {
		return func(yield func(model.Book, error) bool) {
			yield(model.Book{}, errs.Invalid("unknown sort key %q", sort))
		}
	}
	return q.reader.ListBooks(ctx, sort)
}

// SearchBooks matches keyword case-insensitively against id and title.
func (q *Query) SearchBooks(ctx context.Context, keyword string) ([]model.Book, error) {
	books, err := q.reader.SearchBooks(ctx, strings.TrimSpace(keyword))
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(books))
	return slices.DeleteFunc(books, func(b model.Book) bool {
		if _, ok := seen[b.BookID]; ok {
			return true
		}
		seen[b.BookID] = struct{}{}
		return false
	}), nil
}

func (q *Query) GetLoan(ctx context.Context, loanID int64) (model.LoanRecord, error) {
	loan, err := q.reader.GetLoan(ctx, loanID)
	if err != nil {
		return model.LoanRecord{}, err
	}
	return q.decorate(loan, q.now()), nil
}

// ListLoans is ordered by borrow date, newest first.
func (q *Query) ListLoans(ctx context.Context, filter model.LoanFilter) ([]model.LoanRecord, error) {
	filter.Keyword = strings.TrimSpace(filter.Keyword)
	loans, err := q.reader.ListLoans(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := q.now()
	for i := range loans {
		loans[i] = q.decorate(loans[i], now)
	}
	return loans, nil
}

// ListAllLoansForDashboard ranks by urgency: outstanding loans first, soonest
// due date first, then returned loans, most recently returned first. Both keys
// count whole days from now.
func (q *Query) ListAllLoansForDashboard(ctx context.Context) ([]model.LoanRecord, error) {
	loans, err := q.reader.ListLoans(ctx, model.LoanFilter{})
	if err != nil {
		return nil, err
	}
	now := q.now()
	for i := range loans {
		loans[i] = q.decorate(loans[i], now)
	}
	rankByUrgency(loans, now)
	return loans, nil
}

func (q *Query) ListOverdueLoans(ctx context.Context) ([]model.LoanRecord, error) {
	now := q.now()
	loans, err := q.reader.ListOverdueLoans(ctx, now)
	if err != nil {
		return nil, err
	}
	for i := range loans {
		loans[i] = q.decorate(loans[i], now)
	}
	return loans, nil
}

func (q *Query) ComputeDashboardStats(ctx context.Context) (model.DashboardStats, error) {
	return q.reader.DashboardStats(ctx, q.now())
}

func (q *Query) decorate(loan model.LoanRecord, now time.Time) model.LoanRecord {
	if !loan.Outstanding() {
		loan.OverdueDays = model.OverdueDays(loan.DueDate, *loan.ReturnedDate)
		loan.DueStatus = model.DueStatusReturned
		return loan
	}
	loan.OverdueDays = model.OverdueDays(loan.DueDate, now)
	switch {
	case loan.DueDate.Before(now):
		loan.DueStatus = model.DueStatusOverdue
	case model.DaysBetween(now, loan.DueDate) <= q.dueSoonDays:
		loan.DueStatus = model.DueStatusDueSoon
	default:
		loan.DueStatus = model.DueStatusOnLoan
	}
	return loan
}

// rankByUrgency is stable, so equal keys keep the borrow date order.
func rankByUrgency(loans []model.LoanRecord, now time.Time) {
	slices.SortStableFunc(loans, func(a, b model.LoanRecord) int {
		if a.Outstanding() != b.Outstanding() {
			if a.Outstanding() {
				return -1
			}
			return 1
		}
		if a.Outstanding() {
			return cmp.Compare(model.DaysBetween(now, a.DueDate), model.DaysBetween(now, b.DueDate))
		}
		return cmp.Compare(model.DaysBetween(*a.ReturnedDate, now), model.DaysBetween(*b.ReturnedDate, now))
	})
}
