package repository

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
)

type ReadRepository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewReadRepository(db *sqlx.DB, log *zap.Logger) *ReadRepository {
	return &ReadRepository{
		db:  db,
		log: log.Named("reader"),
	}
}

var loanViewColumns = []string{
	"l.id",
	"l.student_id",
	"l.book_id",
	"b.title",
	"l.borrow_date",
	"l.due_date",
	"l.returned_date",
}

func (r *ReadRepository) loansView() sq.SelectBuilder {
	return qb.Select(loanViewColumns...).
		From(loansTableName + " l").
		Join(fmt.Sprintf("%s b on b.book_id = l.book_id", booksTableName))
}

func (r *ReadRepository) GetBook(ctx context.Context, bookID string) (model.Book, error) {
	query, args, err := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Eq{"book_id": bookID}).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	var book model.Book
	if err := r.db.GetContext(ctx, &book, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrBookNotFound
		}
		return model.Book{}, errs.Unavailable(err)
	}
	return book, nil
}

// ListBooks streams rows as they are iterated; every iteration runs the query again.
func (r *ReadRepository) ListBooks(ctx context.Context, sort model.BookSort) iter.Seq2[model.Book, error] {
	return func(yield func(model.Book, error) bool) {
		query, args, err := qb.Select(bookColumns...).
			From(booksTableName).
			OrderBy(bookOrder(sort)...).
			ToSql()
		if err != nil {
			yield(model.Book{}, err)
			return
		}
		r.log.Debug("ListBooks", zap.String("query", query))

		rows, err := r.db.QueryxContext(ctx, query, args...)
		if err != nil {
			yield(model.Book{}, errs.Unavailable(err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var book model.Book
			if err := rows.StructScan(&book); err != nil {
				yield(model.Book{}, err)
				return
			}
			if !yield(book, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(model.Book{}, errs.Unavailable(err))
		}
	}
}

func (r *ReadRepository) SearchBooks(ctx context.Context, keyword string) ([]model.Book, error) {
	pattern := "%" + escapeLike(keyword) + "%"
	query, args, err := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Or{
			sq.ILike{"book_id": pattern},
			sq.ILike{"title": pattern},
		}).
		OrderBy(bookOrder(model.SortByStock)...).
		ToSql()
	if err != nil {
		return nil, err
	}

	books := make([]model.Book, 0)
	if err := r.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, errs.Unavailable(err)
	}
	return books, nil
}

func (r *ReadRepository) GetLoan(ctx context.Context, loanID int64) (model.LoanRecord, error) {
	query, args, err := r.loansView().
		Where(sq.Eq{"l.id": loanID}).
		ToSql()
	if err != nil {
		return model.LoanRecord{}, err
	}

	var loan model.LoanRecord
	if err := r.db.GetContext(ctx, &loan, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.LoanRecord{}, errs.ErrLoanNotFound
		}
		return model.LoanRecord{}, errs.Unavailable(err)
	}
	return loan, nil
}

func (r *ReadRepository) ListLoans(ctx context.Context, filter model.LoanFilter) ([]model.LoanRecord, error) {
	q := r.loansView()
	if filter.StudentID != "" {
		q = q.Where(sq.Eq{"l.student_id": filter.StudentID})
	}
	if filter.BookID != "" {
		q = q.Where(sq.Eq{"l.book_id": filter.BookID})
	}
	if filter.OutstandingOnly {
		q = q.Where(sq.Eq{"l.returned_date": nil})
	}
	if filter.Keyword != "" {
		pattern := "%" + escapeLike(filter.Keyword) + "%"
		q = q.Where(sq.Or{
			sq.ILike{"l.student_id": pattern},
			sq.ILike{"l.book_id": pattern},
			sq.ILike{"b.title": pattern},
		})
	}
	query, args, err := q.OrderBy("l.borrow_date desc", "l.id desc").ToSql()
	if err != nil {
		return nil, err
	}
	return r.selectLoans(ctx, query, args...)
}

func (r *ReadRepository) ListOverdueLoans(ctx context.Context, now time.Time) ([]model.LoanRecord, error) {
	query, args, err := r.loansView().
		Where(sq.Eq{"l.returned_date": nil}).
		Where(sq.Lt{"l.due_date": now}).
		OrderBy("l.due_date", "l.id").
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.selectLoans(ctx, query, args...)
}

// DashboardStats reads all three figures in one statement so they share a snapshot.
func (r *ReadRepository) DashboardStats(ctx context.Context, now time.Time) (model.DashboardStats, error) {
	const q = `
select
    (select coalesce(sum(stock), 0) from books) as total_stock,
    (select count(*) from loan_records where returned_date is null) as outstanding_count,
    (select count(*) from loan_records where returned_date is null and due_date < $1) as overdue_count`

	var stats model.DashboardStats
	if err := r.db.GetContext(ctx, &stats, q, now); err != nil {
		return model.DashboardStats{}, errs.Unavailable(err)
	}
	return stats, nil
}

func (r *ReadRepository) selectLoans(ctx context.Context, query string, args ...any) ([]model.LoanRecord, error) {
	loans := make([]model.LoanRecord, 0)
	if err := r.db.SelectContext(ctx, &loans, query, args...); err != nil {
		r.log.Error("selectLoans", zap.String("q", query), zap.Error(err))
		return nil, errs.Unavailable(err)
	}
	return loans, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
