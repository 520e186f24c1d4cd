package handler

import (
	"context"
	"iter"
	"time"

	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/circulation/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type CirculationService interface {
	BorrowBook(ctx context.Context, studentID, bookID string, loanPeriodDays int) (model.LoanRecord, error)
	ReturnBook(ctx context.Context, bookID, studentID string) (model.LoanRecord, error)
	RenewLoan(ctx context.Context, loanID int64, newDueDate time.Time) (model.LoanRecord, error)

	AddBook(ctx context.Context, book model.Book) (model.Book, error)
	UpdateBook(ctx context.Context, bookID string, upd model.BookUpdate) (model.Book, error)
	WithdrawBook(ctx context.Context, bookID string) error
	DeleteBook(ctx context.Context, bookID string) error

	GetBook(ctx context.Context, bookID string) (model.Book, error)
	ListBooks(ctx context.Context, sort model.BookSort) iter.Seq2[model.Book, error]
	SearchBooks(ctx context.Context, keyword string) ([]model.Book, error)
	GetLoan(ctx context.Context, loanID int64) (model.LoanRecord, error)
	ListLoans(ctx context.Context, filter model.LoanFilter) ([]model.LoanRecord, error)
	ListAllLoansForDashboard(ctx context.Context) ([]model.LoanRecord, error)
	ListOverdueLoans(ctx context.Context) ([]model.LoanRecord, error)
	ComputeDashboardStats(ctx context.Context) (model.DashboardStats, error)
}

var _ CirculationService = (*service.Service)(nil)
