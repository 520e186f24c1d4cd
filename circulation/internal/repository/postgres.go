package repository

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
)

// TxBeginner is the part of *pgxpool.Pool the store writes through.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type PostgresStore struct {
	db  TxBeginner
	log *zap.Logger
}

func NewPostgresStore(db TxBeginner, log *zap.Logger) *PostgresStore {
	return &PostgresStore{
		db:  db,
		log: log.Named("store"),
	}
}

// InTx uses read committed plus explicit row locks: every decision is made on
// rows locked with FOR UPDATE inside the transaction.
func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		s.log.Error("begin", zap.Error(err))
		return errs.Unavailable(err)
	}
	if err := fn(&pgTx{tx: tx, log: s.log}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.log.Warn("rollback", zap.Error(rbErr))
		}
		if errs.Kind(err) == nil {
			s.log.Error("tx", zap.Error(err))
		}
		return errs.Unavailable(err)
	}
	if err := tx.Commit(ctx); err != nil {
		s.log.Error("commit", zap.Error(err))
		return errs.Unavailable(err)
	}
	return nil
}

type pgTx struct {
	tx  pgx.Tx
	log *zap.Logger
}

func (t *pgTx) LockBook(ctx context.Context, bookID string) (model.Book, error) {
	query, args, err := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Eq{"book_id": bookID}).
		Suffix("for update").
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	return t.collectBook(ctx, query, args...)
}

func (t *pgTx) AdjustStock(ctx context.Context, bookID string, delta int) (int, error) {
	query, args, err := qb.Update(booksTableName).
		Set("stock", sq.Expr("stock + ?", delta)).
		Where(sq.Eq{"book_id": bookID}).
		Where("stock + ? >= 0", delta).
		Suffix("returning stock").
		ToSql()
	if err != nil {
		return 0, err
	}
	var stock int
	if err := t.tx.QueryRow(ctx, query, args...).Scan(&stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, errs.ErrOutOfStock
		}
		return 0, mapPgErr(err)
	}
	return stock, nil
}

func (t *pgTx) CreateBook(ctx context.Context, book model.Book) (model.Book, error) {
	query, args, err := qb.Insert(booksTableName).
		Columns("book_id", "title", "category", "stock", "shelf_status").
		Values(book.BookID, book.Title, sq.Expr("nullif(?, '')", book.Category), book.Stock, book.ShelfStatus).
		Suffix("returning " + strings.Join(bookColumns, ", ")).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	return t.collectBook(ctx, query, args...)
}

func (t *pgTx) UpdateBook(ctx context.Context, bookID string, upd model.BookUpdate) (model.Book, error) {
	q := qb.Update(booksTableName).
		Where(sq.Eq{"book_id": bookID}).
		Set("updated_at", sq.Expr("now()"))
	if upd.Title != nil {
		q = q.Set("title", *upd.Title)
	}
	if upd.Category != nil {
		q = q.Set("category", sq.Expr("nullif(?, '')", *upd.Category))
	}
	if upd.Stock != nil {
		q = q.Set("stock", *upd.Stock)
	}
	query, args, err := q.Suffix("returning " + strings.Join(bookColumns, ", ")).ToSql()
	if err != nil {
		return model.Book{}, err
	}
	return t.collectBook(ctx, query, args...)
}

func (t *pgTx) SetShelfStatus(ctx context.Context, bookID string, status model.ShelfStatus) error {
	query, args, err := qb.Update(booksTableName).
		Set("shelf_status", status).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"book_id": bookID}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrBookNotFound
	}
	return nil
}

func (t *pgTx) DeleteBook(ctx context.Context, bookID string) error {
	query, args, err := qb.Delete(booksTableName).
		Where(sq.Eq{"book_id": bookID}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrBookNotFound
	}
	return nil
}

func (t *pgTx) CreateLoan(ctx context.Context, loan model.LoanRecord) (model.LoanRecord, error) {
	query, args, err := qb.Insert(loansTableName).
		Columns("student_id", "book_id", "borrow_date", "due_date").
		Values(loan.StudentID, loan.BookID, loan.BorrowDate, loan.DueDate).
		Suffix("returning " + strings.Join(loanColumns, ", ")).
		ToSql()
	if err != nil {
		return model.LoanRecord{}, err
	}
	return t.collectLoan(ctx, errs.ErrLoanNotFound, query, args...)
}

func (t *pgTx) LockLoan(ctx context.Context, loanID int64) (model.LoanRecord, error) {
	query, args, err := qb.Select(loanColumns...).
		From(loansTableName).
		Where(sq.Eq{"id": loanID}).
		Suffix("for update").
		ToSql()
	if err != nil {
		return model.LoanRecord{}, err
	}
	return t.collectLoan(ctx, errs.ErrLoanNotFound, query, args...)
}

func (t *pgTx) LockLatestOutstandingLoan(ctx context.Context, bookID, studentID string) (model.LoanRecord, error) {
	query, args, err := qb.Select(loanColumns...).
		From(loansTableName).
		Where(sq.Eq{"book_id": bookID}).
		Where(sq.Eq{"student_id": studentID}).
		Where(sq.Eq{"returned_date": nil}).
		OrderBy("borrow_date desc", "id desc").
		Limit(1).
		Suffix("for update").
		ToSql()
	if err != nil {
		return model.LoanRecord{}, err
	}
	return t.collectLoan(ctx, errs.ErrNoOutstandingLoan, query, args...)
}

func (t *pgTx) CloseLoan(ctx context.Context, loanID int64, at time.Time) (model.LoanRecord, error) {
	query, args, err := qb.Update(loansTableName).
		Set("returned_date", at).
		Where(sq.Eq{"id": loanID}).
		Where(sq.Eq{"returned_date": nil}).
		Suffix("returning " + strings.Join(loanColumns, ", ")).
		ToSql()
	if err != nil {
		return model.LoanRecord{}, err
	}
	return t.collectLoan(ctx, errs.ErrLoanAlreadyReturned, query, args...)
}

func (t *pgTx) SetDueDate(ctx context.Context, loanID int64, due time.Time) (model.LoanRecord, error) {
	query, args, err := qb.Update(loansTableName).
		Set("due_date", due).
		Where(sq.Eq{"id": loanID}).
		Where(sq.Eq{"returned_date": nil}).
		Suffix("returning " + strings.Join(loanColumns, ", ")).
		ToSql()
	if err != nil {
		return model.LoanRecord{}, err
	}
	return t.collectLoan(ctx, errs.ErrLoanAlreadyReturned, query, args...)
}

func (t *pgTx) collectBook(ctx context.Context, query string, args ...any) (model.Book, error) {
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return model.Book{}, mapPgErr(err)
	}
	defer rows.Close()

	book, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Book])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Book{}, errs.ErrBookNotFound
		}
		t.log.Debug("collectBook", zap.String("q", query), zap.Any("args", args))
		return model.Book{}, mapPgErr(err)
	}
	return book, nil
}

func (t *pgTx) collectLoan(ctx context.Context, notFound error, query string, args ...any) (model.LoanRecord, error) {
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return model.LoanRecord{}, mapPgErr(err)
	}
	defer rows.Close()

	loan, err := pgx.CollectOneRow(rows, pgx.RowToStructByNameLax[model.LoanRecord])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.LoanRecord{}, notFound
		}
		t.log.Debug("collectLoan", zap.String("q", query), zap.Any("args", args))
		return model.LoanRecord{}, mapPgErr(err)
	}
	return loan, nil
}

func mapPgErr(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return errs.Unavailable(err)
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return errs.ErrDuplicateID
	case pgerrcode.ForeignKeyViolation:
		return errs.ErrBookHasLoans
	case pgerrcode.CheckViolation:
		if pgErr.ConstraintName == "books_stock_check" {
			return errs.ErrOutOfStock
		}
		return errs.Invalid("%s", pgErr.Message)
	}
	return errs.Unavailable(err)
}
