package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/circulation/internal/repository"
)

func seed(t *testing.T, s *repository.MemoryStore, books ...model.Book) {
	t.Helper()
	err := s.InTx(context.Background(), func(tx repository.Tx) error {
		for _, b := range books {
			if _, err := tx.CreateBook(context.Background(), b); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStore_RollbackOnError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := repository.NewMemoryStore()
	seed(t, s, model.Book{BookID: "b-1", Title: "Dune", Stock: 1, ShelfStatus: model.ShelfActive})

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.AdjustStock(ctx, "b-1", -1); err != nil {
			return err
		}
		if _, err := tx.CreateLoan(ctx, model.LoanRecord{StudentID: "S1", BookID: "b-1", BorrowDate: time.Now(), DueDate: time.Now()}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	book, err := s.GetBook(ctx, "b-1")
	require.NoError(t, err)
	require.Equal(t, 1, book.Stock)

	loans, err := s.ListLoans(ctx, model.LoanFilter{})
	require.NoError(t, err)
	require.Empty(t, loans)
}

func TestMemoryStore_AdjustStockNeverNegative(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := repository.NewMemoryStore()
	seed(t, s, model.Book{BookID: "b-1", Title: "Dune", Stock: 0, ShelfStatus: model.ShelfActive})

	err := s.InTx(ctx, func(tx repository.Tx) error {
		_, err := tx.AdjustStock(ctx, "b-1", -1)
		return err
	})
	require.ErrorIs(t, err, errs.ErrOutOfStock)
}

func TestMemoryStore_DeleteReferencedBook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := repository.NewMemoryStore()
	seed(t, s,
		model.Book{BookID: "b-1", Title: "Dune", Stock: 1, ShelfStatus: model.ShelfActive},
		model.Book{BookID: "b-2", Title: "Emma", Stock: 1, ShelfStatus: model.ShelfActive},
	)
	require.NoError(t, s.InTx(ctx, func(tx repository.Tx) error {
		_, err := tx.CreateLoan(ctx, model.LoanRecord{StudentID: "S1", BookID: "b-1", BorrowDate: time.Now(), DueDate: time.Now()})
		return err
	}))

	err := s.InTx(ctx, func(tx repository.Tx) error { return tx.DeleteBook(ctx, "b-1") })
	require.ErrorIs(t, err, errs.ErrBookHasLoans)

	require.NoError(t, s.InTx(ctx, func(tx repository.Tx) error { return tx.DeleteBook(ctx, "b-2") }))
	_, err = s.GetBook(ctx, "b-2")
	require.ErrorIs(t, err, errs.ErrBookNotFound)
}

func TestMemoryStore_SearchBooks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := repository.NewMemoryStore()
	seed(t, s,
		model.Book{BookID: "978-dune", Title: "Dune", Stock: 1, ShelfStatus: model.ShelfActive},
		model.Book{BookID: "978-1", Title: "Children of Dune", Stock: 4, ShelfStatus: model.ShelfActive},
		model.Book{BookID: "978-2", Title: "Emma", Stock: 9, ShelfStatus: model.ShelfWithdrawn},
	)

	books, err := s.SearchBooks(ctx, "DUNE")
	require.NoError(t, err)
	require.Len(t, books, 2)
	require.Equal(t, "978-1", books[0].BookID)
	require.Equal(t, "978-dune", books[1].BookID)
}

func TestMemoryStore_ListLoansKeyword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := repository.NewMemoryStore()
	seed(t, s,
		model.Book{BookID: "978-1", Title: "Children of Dune", Stock: 4, ShelfStatus: model.ShelfActive},
		model.Book{BookID: "978-2", Title: "Emma", Stock: 9, ShelfStatus: model.ShelfActive},
	)
	day := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.InTx(ctx, func(tx repository.Tx) error {
		for i, l := range []model.LoanRecord{
			{StudentID: "S-ALICE", BookID: "978-1"},
			{StudentID: "S-BOB", BookID: "978-2"},
			{StudentID: "S-CAROL", BookID: "978-2"},
		} {
			l.BorrowDate = day.AddDate(0, 0, i)
			l.DueDate = l.BorrowDate.AddDate(0, 0, 30)
			if _, err := tx.CreateLoan(ctx, l); err != nil {
				return err
			}
		}
		return nil
	}))

	tests := []struct {
		keyword  string
		students []string
	}{
		{keyword: "dune", students: []string{"S-ALICE"}},
		{keyword: "bob", students: []string{"S-BOB"}},
		{keyword: "978-2", students: []string{"S-CAROL", "S-BOB"}},
		{keyword: "", students: []string{"S-CAROL", "S-BOB", "S-ALICE"}},
		{keyword: "tolkien", students: []string{}},
	}
	for _, tt := range tests {
		loans, err := s.ListLoans(ctx, model.LoanFilter{Keyword: tt.keyword})
		require.NoError(t, err)
		got := make([]string, 0, len(loans))
		for _, l := range loans {
			got = append(got, l.StudentID)
		}
		require.Equal(t, tt.students, got, tt.keyword)
	}
}
