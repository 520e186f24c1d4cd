package service

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/circulation/internal/repository"
)

const day = 24 * time.Hour

// Engine performs every mutation of books and loan records. Each operation is
// one store transaction that re-reads and locks the rows it decides on.
type Engine struct {
	store     repository.Store
	publisher Publisher
	observer  Observer
	now       func() time.Time
	log       *zap.Logger
}

func NewEngine(store repository.Store, log *zap.Logger, opts ...Option) *Engine {
	o := newOptions(opts)
	return &Engine{
		store:     store,
		publisher: o.publisher,
		observer:  o.observer,
		now:       o.now,
		log:       log.Named("engine"),
	}
}

func (e *Engine) BorrowBook(ctx context.Context, studentID, bookID string, loanPeriodDays int) (loan model.LoanRecord, err error) {
	defer e.observe("borrow", time.Now(), &err)

	if strings.TrimSpace(studentID) == "" || strings.TrimSpace(bookID) == "" {
		return model.LoanRecord{}, errs.Invalid("student id and book id are required")
	}
	if loanPeriodDays <= 0 {
		return model.LoanRecord{}, errs.Invalid("loan period must be positive, got %d", loanPeriodDays)
	}

	now := e.clock()
	err = e.store.InTx(ctx, func(tx repository.Tx) error {
		book, err := tx.LockBook(ctx, bookID)
		if err != nil {
			return err
		}
		if book.ShelfStatus == model.ShelfWithdrawn {
			return errs.ErrBookWithdrawn
		}
		if book.Stock < 1 {
			return errs.ErrOutOfStock
		}
		if _, err := tx.AdjustStock(ctx, bookID, -1); err != nil {
			return err
		}
		loan, err = tx.CreateLoan(ctx, model.LoanRecord{
			StudentID:  studentID,
			BookID:     bookID,
			BorrowDate: now,
			DueDate:    now.Add(time.Duration(loanPeriodDays) * day),
		})
		loan.Title = book.Title
		return err
	})
	if err != nil {
		return model.LoanRecord{}, err
	}

	loan.DueStatus = model.DueStatusOnLoan
	e.log.Debug("borrowed", zap.Int64("loan", loan.ID), zap.String("book", bookID), zap.String("student", studentID))
	e.publish(ctx, model.NewEvent(model.EventBorrowed, loan, now))
	return loan, nil
}

// ReturnBook closes the most recently borrowed outstanding loan of the
// student for the book and puts the copy back into stock, also for withdrawn
// books.
func (e *Engine) ReturnBook(ctx context.Context, bookID, studentID string) (loan model.LoanRecord, err error) {
	defer e.observe("return", time.Now(), &err)

	if strings.TrimSpace(studentID) == "" || strings.TrimSpace(bookID) == "" {
		return model.LoanRecord{}, errs.Invalid("student id and book id are required")
	}

	now := e.clock()
	err = e.store.InTx(ctx, func(tx repository.Tx) error {
		// book row first: concurrent returns of the same book queue here and
		// then see each other's committed loan updates
		book, err := tx.LockBook(ctx, bookID)
		if err != nil {
			if errors.Is(err, errs.ErrBookNotFound) {
				return errs.ErrNoOutstandingLoan
			}
			return err
		}
		open, err := tx.LockLatestOutstandingLoan(ctx, bookID, studentID)
		if err != nil {
			return err
		}
		if loan, err = tx.CloseLoan(ctx, open.ID, now); err != nil {
			return err
		}
		loan.Title = book.Title
		_, err = tx.AdjustStock(ctx, bookID, 1)
		return err
	})
	if err != nil {
		return model.LoanRecord{}, err
	}

	loan.OverdueDays = model.OverdueDays(loan.DueDate, now)
	loan.DueStatus = model.DueStatusReturned
	if loan.OverdueDays > 0 {
		e.log.Info("overdue return", zap.Int64("loan", loan.ID), zap.Int("days", loan.OverdueDays))
	}
	e.publish(ctx, model.NewEvent(model.EventReturned, loan, now))
	return loan, nil
}

// RenewLoan moves the due date of an outstanding loan. Dates before today are
// rejected once the loan is known to be outstanding; there is no cap on renewals.
func (e *Engine) RenewLoan(ctx context.Context, loanID int64, newDueDate time.Time) (loan model.LoanRecord, err error) {
	defer e.observe("renew", time.Now(), &err)

	now := e.clock()
	err = e.store.InTx(ctx, func(tx repository.Tx) error {
		current, err := tx.LockLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if !current.Outstanding() {
			return errs.ErrLoanAlreadyReturned
		}
		if newDueDate.Before(model.StartOfDay(now)) {
			return errs.ErrDueDateInPast
		}
		loan, err = tx.SetDueDate(ctx, loanID, newDueDate.UTC())
		return err
	})
	if err != nil {
		return model.LoanRecord{}, err
	}

	e.publish(ctx, model.NewEvent(model.EventRenewed, loan, now))
	return loan, nil
}

func (e *Engine) AddBook(ctx context.Context, book model.Book) (created model.Book, err error) {
	defer e.observe("add_book", time.Now(), &err)

	book.BookID = strings.TrimSpace(book.BookID)
	book.Title = strings.TrimSpace(book.Title)
	switch {
	case book.BookID == "":
		return model.Book{}, errs.Invalid("book id is required")
	case book.Title == "":
		return model.Book{}, errs.Invalid("title is required")
	case book.Stock < 0:
		return model.Book{}, errs.Invalid("stock must not be negative, got %d", book.Stock)
	}
	book.ShelfStatus = model.ShelfActive

	err = e.store.InTx(ctx, func(tx repository.Tx) error {
		created, err = tx.CreateBook(ctx, book)
		return err
	})
	return created, err
}

func (e *Engine) UpdateBook(ctx context.Context, bookID string, upd model.BookUpdate) (updated model.Book, err error) {
	defer e.observe("update_book", time.Now(), &err)

	if upd.Empty() {
		return model.Book{}, errs.Invalid("nothing to update")
	}
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return model.Book{}, errs.Invalid("title must not be empty")
		}
		upd.Title = &title
	}
	if upd.Stock != nil && *upd.Stock < 0 {
		return model.Book{}, errs.Invalid("stock must not be negative, got %d", *upd.Stock)
	}

	err = e.store.InTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.LockBook(ctx, bookID); err != nil {
			return err
		}
		updated, err = tx.UpdateBook(ctx, bookID, upd)
		return err
	})
	return updated, err
}

// WithdrawBook takes the book off the shelf; stock and loan history stay.
func (e *Engine) WithdrawBook(ctx context.Context, bookID string) (err error) {
	defer e.observe("withdraw_book", time.Now(), &err)

	return e.store.InTx(ctx, func(tx repository.Tx) error {
		book, err := tx.LockBook(ctx, bookID)
		if err != nil {
			return err
		}
		if book.ShelfStatus == model.ShelfWithdrawn {
			return nil
		}
		return tx.SetShelfStatus(ctx, bookID, model.ShelfWithdrawn)
	})
}

// DeleteBook removes a book that no loan record has ever referenced.
func (e *Engine) DeleteBook(ctx context.Context, bookID string) (err error) {
	defer e.observe("delete_book", time.Now(), &err)

	return e.store.InTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.LockBook(ctx, bookID); err != nil {
			return err
		}
		return tx.DeleteBook(ctx, bookID)
	})
}

// clock is UTC truncated to what a timestamptz column keeps.
func (e *Engine) clock() time.Time {
	return e.now().UTC().Truncate(time.Microsecond)
}

func (e *Engine) observe(operation string, started time.Time, err *error) {
	e.observer.ObserveOperation(operation, started, *err)
}

// publish runs after commit, so a failure is reported but never undoes the operation.
func (e *Engine) publish(ctx context.Context, event model.CirculationEvent) {
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.observer.EventDropped()
		e.log.Error("publish", zap.String("type", string(event.Type)), zap.Int64("loan", event.LoanID), zap.Error(err))
	}
}
