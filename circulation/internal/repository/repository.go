package repository

import (
	"context"
	"iter"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/Astemirdum/library-circulation/circulation/internal/model"
)

// Store runs write transactions. fn sees a consistent, locked view and its
// effects are committed only if it returns nil.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

type Tx interface {
	LockBook(ctx context.Context, bookID string) (model.Book, error)
	// AdjustStock applies delta and returns the new stock. It fails with
	// errs.ErrOutOfStock instead of letting stock drop below zero.
	AdjustStock(ctx context.Context, bookID string, delta int) (int, error)
	CreateBook(ctx context.Context, book model.Book) (model.Book, error)
	UpdateBook(ctx context.Context, bookID string, upd model.BookUpdate) (model.Book, error)
	SetShelfStatus(ctx context.Context, bookID string, status model.ShelfStatus) error
	DeleteBook(ctx context.Context, bookID string) error

	CreateLoan(ctx context.Context, loan model.LoanRecord) (model.LoanRecord, error)
	LockLoan(ctx context.Context, loanID int64) (model.LoanRecord, error)
	LockLatestOutstandingLoan(ctx context.Context, bookID, studentID string) (model.LoanRecord, error)
	CloseLoan(ctx context.Context, loanID int64, at time.Time) (model.LoanRecord, error)
	SetDueDate(ctx context.Context, loanID int64, due time.Time) (model.LoanRecord, error)
}

// Reader never observes uncommitted writes.
type Reader interface {
	GetBook(ctx context.Context, bookID string) (model.Book, error)
	ListBooks(ctx context.Context, sort model.BookSort) iter.Seq2[model.Book, error]
	SearchBooks(ctx context.Context, keyword string) ([]model.Book, error)

	GetLoan(ctx context.Context, loanID int64) (model.LoanRecord, error)
	ListLoans(ctx context.Context, filter model.LoanFilter) ([]model.LoanRecord, error)
	ListOverdueLoans(ctx context.Context, now time.Time) ([]model.LoanRecord, error)
	DashboardStats(ctx context.Context, now time.Time) (model.DashboardStats, error)
}

const (
	booksTableName = `books`
	loansTableName = `loan_records`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var bookColumns = []string{
	"book_id",
	"title",
	"coalesce(category, '') as category",
	"stock",
	"shelf_status",
}

var loanColumns = []string{
	"id",
	"student_id",
	"book_id",
	"borrow_date",
	"due_date",
	"returned_date",
}

func bookOrder(sort model.BookSort) []string {
	switch sort {
	case model.SortByTitle:
		return []string{"title", "book_id"}
	case model.SortByID:
		return []string{"book_id"}
	default:
		return []string{"case when shelf_status = 'ACTIVE' then 0 else 1 end", "stock desc", "book_id"}
	}
}
