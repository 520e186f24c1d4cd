package service_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/circulation/internal/repository"
	"github.com/Astemirdum/library-circulation/circulation/internal/service"
)

var day1 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.CirculationEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event model.CirculationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []model.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]model.EventType, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

type env struct {
	svc   *service.Service
	store *repository.MemoryStore
	clock *fakeClock
	pub   *recordingPublisher
}

func newEnv(t *testing.T, books ...model.Book) env {
	t.Helper()
	e := env{
		store: repository.NewMemoryStore(),
		clock: &fakeClock{now: day1},
		pub:   &recordingPublisher{},
	}
	e.svc = service.NewService(e.store, e.store, zap.NewNop(),
		service.WithClock(e.clock.Now),
		service.WithPublisher(e.pub),
	)
	for _, b := range books {
		_, err := e.svc.AddBook(context.Background(), b)
		require.NoError(t, err)
	}
	return e
}

func (e env) stock(t *testing.T, bookID string) int {
	t.Helper()
	book, err := e.svc.GetBook(context.Background(), bookID)
	require.NoError(t, err)
	return book.Stock
}

func TestEngine_BorrowReturnScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t, model.Book{BookID: "978-1", Title: "Dune", Stock: 1})

	loan, err := e.svc.BorrowBook(ctx, "S1", "978-1", 30)
	require.NoError(t, err)
	require.Equal(t, 0, e.stock(t, "978-1"))
	require.Equal(t, day1, loan.BorrowDate)
	require.Equal(t, day1.AddDate(0, 0, 30), loan.DueDate)
	require.Nil(t, loan.ReturnedDate)
	require.Equal(t, "Dune", loan.Title)

	_, err = e.svc.BorrowBook(ctx, "S2", "978-1", 30)
	require.ErrorIs(t, err, errs.ErrOutOfStock)
	require.ErrorIs(t, err, errs.ErrStateConflict)
	require.Equal(t, 0, e.stock(t, "978-1"))

	e.clock.Advance(2 * time.Hour)
	returned, err := e.svc.ReturnBook(ctx, "978-1", "S1")
	require.NoError(t, err)
	require.Equal(t, loan.ID, returned.ID)
	require.NotNil(t, returned.ReturnedDate)
	require.Equal(t, day1.Add(2*time.Hour), *returned.ReturnedDate)
	require.Zero(t, returned.OverdueDays)
	require.Equal(t, 1, e.stock(t, "978-1"))

	loans, err := e.svc.ListLoans(ctx, model.LoanFilter{BookID: "978-1"})
	require.NoError(t, err)
	require.Len(t, loans, 1)
	require.False(t, loans[0].Outstanding())

	require.Equal(t, []model.EventType{model.EventBorrowed, model.EventReturned}, e.pub.types())
}

func TestEngine_ReturnMostRecentFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t, model.Book{BookID: "book", Title: "Emma", Stock: 2})

	first, err := e.svc.BorrowBook(ctx, "S1", "book", 30)
	require.NoError(t, err)
	e.clock.Advance(4 * 24 * time.Hour)
	second, err := e.svc.BorrowBook(ctx, "S1", "book", 30)
	require.NoError(t, err)

	returned, err := e.svc.ReturnBook(ctx, "book", "S1")
	require.NoError(t, err)
	require.Equal(t, second.ID, returned.ID)

	outstanding, err := e.svc.ListLoans(ctx, model.LoanFilter{StudentID: "S1", OutstandingOnly: true})
	require.NoError(t, err)
	require.Len(t, outstanding, 1)
	require.Equal(t, first.ID, outstanding[0].ID)

	// the next return falls through to the older loan
	returned, err = e.svc.ReturnBook(ctx, "book", "S1")
	require.NoError(t, err)
	require.Equal(t, first.ID, returned.ID)

	_, err = e.svc.ReturnBook(ctx, "book", "S1")
	require.ErrorIs(t, err, errs.ErrNoOutstandingLoan)
	require.Equal(t, 2, e.stock(t, "book"))
}

func TestEngine_ConcurrentBorrowersLastCopy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t, model.Book{BookID: "978-1", Title: "Dune", Stock: 1})

	const borrowers = 50
	var (
		mu         sync.Mutex
		succeeded  int
		outOfStock int
	)
	var g errgroup.Group
	for i := 0; i < borrowers; i++ {
		student := string(rune('A'+i%26)) + string(rune('0'+i/26))
		g.Go(func() error {
			_, err := e.svc.BorrowBook(ctx, student, "978-1", 14)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, errs.ErrOutOfStock):
				outOfStock++
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Equal(t, 1, succeeded)
	require.Equal(t, borrowers-1, outOfStock)
	require.Equal(t, 0, e.stock(t, "978-1"))

	stats, err := e.svc.ComputeDashboardStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.OutstandingCount)
}

func TestEngine_ConcurrentReturnsSameStudentAndBook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t, model.Book{BookID: "book", Title: "Emma", Stock: 2})

	for i := 0; i < 2; i++ {
		_, err := e.svc.BorrowBook(ctx, "S1", "book", 30)
		require.NoError(t, err)
		e.clock.Advance(time.Hour)
	}

	var g errgroup.Group
	ids := make([]int64, 2)
	for i := range ids {
		g.Go(func() error {
			loan, err := e.svc.ReturnBook(ctx, "book", "S1")
			ids[i] = loan.ID
			return err
		})
	}
	require.NoError(t, g.Wait())
	require.ElementsMatch(t, []int64{1, 2}, ids)
	require.Equal(t, 2, e.stock(t, "book"))
}

func TestEngine_BorrowPreconditions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t,
		model.Book{BookID: "active", Title: "Active", Stock: 3},
		model.Book{BookID: "gone", Title: "Gone", Stock: 3},
	)
	require.NoError(t, e.svc.WithdrawBook(ctx, "gone"))

	tests := []struct {
		name    string
		student string
		book    string
		days    int
		wantErr error
	}{
		{name: "unknown book", student: "S1", book: "nope", days: 30, wantErr: errs.ErrBookNotFound},
		{name: "withdrawn", student: "S1", book: "gone", days: 30, wantErr: errs.ErrBookWithdrawn},
		{name: "zero period", student: "S1", book: "active", days: 0, wantErr: errs.ErrValidation},
		{name: "empty student", student: " ", book: "active", days: 30, wantErr: errs.ErrValidation},
	}
	for _, tt := range tests {
		_, err := e.svc.BorrowBook(ctx, tt.student, tt.book, tt.days)
		require.ErrorIs(t, err, tt.wantErr, tt.name)
	}
	require.Equal(t, 3, e.stock(t, "active"))
	require.Equal(t, 3, e.stock(t, "gone"))
	require.Empty(t, e.pub.types())
}

func TestEngine_ReturnWithdrawnBookRestoresStock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t, model.Book{BookID: "b", Title: "B", Stock: 1})

	_, err := e.svc.BorrowBook(ctx, "S1", "b", 7)
	require.NoError(t, err)
	require.NoError(t, e.svc.WithdrawBook(ctx, "b"))

	e.clock.Advance(10 * 24 * time.Hour)
	loan, err := e.svc.ReturnBook(ctx, "b", "S1")
	require.NoError(t, err)
	require.Equal(t, 3, loan.OverdueDays)
	require.Equal(t, 1, e.stock(t, "b"))

	_, err = e.svc.BorrowBook(ctx, "S2", "b", 7)
	require.ErrorIs(t, err, errs.ErrBookWithdrawn)
}

func TestEngine_RenewLoan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t, model.Book{BookID: "b", Title: "B", Stock: 2})

	loan, err := e.svc.BorrowBook(ctx, "S1", "b", 7)
	require.NoError(t, err)

	newDue := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	renewed, err := e.svc.RenewLoan(ctx, loan.ID, newDue)
	require.NoError(t, err)
	require.Equal(t, newDue, renewed.DueDate)

	_, err = e.svc.RenewLoan(ctx, loan.ID, day1.AddDate(0, 0, -1))
	require.ErrorIs(t, err, errs.ErrDueDateInPast)

	// earlier than the current due date but not in the past is accepted
	today := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	_, err = e.svc.RenewLoan(ctx, loan.ID, today)
	require.NoError(t, err)

	_, err = e.svc.RenewLoan(ctx, 42, newDue)
	require.ErrorIs(t, err, errs.ErrLoanNotFound)

	_, err = e.svc.ReturnBook(ctx, "b", "S1")
	require.NoError(t, err)
	_, err = e.svc.RenewLoan(ctx, loan.ID, newDue)
	require.ErrorIs(t, err, errs.ErrLoanAlreadyReturned)

	got, err := e.svc.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	require.Equal(t, today, got.DueDate)

	// state errors win over a past date
	past := day1.AddDate(0, 0, -3)
	_, err = e.svc.RenewLoan(ctx, loan.ID, past)
	require.ErrorIs(t, err, errs.ErrLoanAlreadyReturned)
	_, err = e.svc.RenewLoan(ctx, 42, past)
	require.ErrorIs(t, err, errs.ErrLoanNotFound)
}

func TestEngine_StockNeverNegative(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t,
		model.Book{BookID: "a", Title: "A", Stock: 2},
		model.Book{BookID: "b", Title: "B", Stock: 1},
	)
	rnd := rand.New(rand.NewSource(7))
	books := []string{"a", "b"}
	students := []string{"S1", "S2", "S3"}

	for i := 0; i < 300; i++ {
		book := books[rnd.Intn(len(books))]
		student := students[rnd.Intn(len(students))]
		var err error
		if rnd.Intn(2) == 0 {
			_, err = e.svc.BorrowBook(ctx, student, book, 1+rnd.Intn(30))
		} else {
			_, err = e.svc.ReturnBook(ctx, book, student)
		}
		if err != nil {
			require.ErrorIs(t, err, errs.ErrStateConflict)
		}
		for _, id := range books {
			require.GreaterOrEqual(t, e.stock(t, id), 0)
		}
	}

	// every outstanding loan accounts for exactly one missing copy
	for id, initial := range map[string]int{"a": 2, "b": 1} {
		open, err := e.svc.ListLoans(ctx, model.LoanFilter{BookID: id, OutstandingOnly: true})
		require.NoError(t, err)
		require.Equal(t, initial, e.stock(t, id)+len(open))
	}
}

type failingStore struct {
	*repository.MemoryStore
}

func (s failingStore) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return s.MemoryStore.InTx(ctx, func(tx repository.Tx) error {
		return fn(failingTx{Tx: tx})
	})
}

type failingTx struct {
	repository.Tx
}

func (failingTx) CreateLoan(context.Context, model.LoanRecord) (model.LoanRecord, error) {
	return model.LoanRecord{}, errs.Unavailable(errors.New("connection reset"))
}

func TestEngine_StoreFailureLeavesNoPartialEffect(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	setup := service.NewEngine(store, zap.NewNop())
	_, err := setup.AddBook(ctx, model.Book{BookID: "b", Title: "B", Stock: 1})
	require.NoError(t, err)

	engine := service.NewEngine(failingStore{store}, zap.NewNop())
	_, err = engine.BorrowBook(ctx, "S1", "b", 7)
	require.ErrorIs(t, err, errs.ErrStoreUnavailable)

	book, err := store.GetBook(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, 1, book.Stock)
}

func TestEngine_PublishFailureKeepsCommit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t, model.Book{BookID: "b", Title: "B", Stock: 1})
	e.pub.err = errors.New("broker down")

	_, err := e.svc.BorrowBook(ctx, "S1", "b", 7)
	require.NoError(t, err)
	require.Equal(t, 0, e.stock(t, "b"))
}

func TestEngine_Catalog(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t, model.Book{BookID: "b", Title: "B", Category: "novel", Stock: 1})

	_, err := e.svc.AddBook(ctx, model.Book{BookID: "b", Title: "Again", Stock: 1})
	require.ErrorIs(t, err, errs.ErrDuplicateID)
	_, err = e.svc.AddBook(ctx, model.Book{BookID: "c", Title: "C", Stock: -1})
	require.ErrorIs(t, err, errs.ErrValidation)
	_, err = e.svc.AddBook(ctx, model.Book{BookID: "d", Title: ""})
	require.ErrorIs(t, err, errs.ErrValidation)

	title, stock := "B, revised", 4
	updated, err := e.svc.UpdateBook(ctx, "b", model.BookUpdate{Title: &title, Stock: &stock})
	require.NoError(t, err)
	require.Equal(t, "B, revised", updated.Title)
	require.Equal(t, "novel", updated.Category)
	require.Equal(t, 4, updated.Stock)

	_, err = e.svc.UpdateBook(ctx, "nope", model.BookUpdate{Title: &title})
	require.ErrorIs(t, err, errs.ErrBookNotFound)
	_, err = e.svc.UpdateBook(ctx, "b", model.BookUpdate{})
	require.ErrorIs(t, err, errs.ErrValidation)
	negative := -1
	_, err = e.svc.UpdateBook(ctx, "b", model.BookUpdate{Stock: &negative})
	require.ErrorIs(t, err, errs.ErrValidation)

	require.ErrorIs(t, e.svc.WithdrawBook(ctx, "nope"), errs.ErrBookNotFound)
	require.NoError(t, e.svc.WithdrawBook(ctx, "b"))
	require.NoError(t, e.svc.WithdrawBook(ctx, "b"))
	book, err := e.svc.GetBook(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, model.ShelfWithdrawn, book.ShelfStatus)
	require.Equal(t, 4, book.Stock)

	_, err = e.svc.AddBook(ctx, model.Book{BookID: "e", Title: "E", Stock: 1})
	require.NoError(t, err)
	_, err = e.svc.BorrowBook(ctx, "S1", "e", 7)
	require.NoError(t, err)
	require.ErrorIs(t, e.svc.DeleteBook(ctx, "e"), errs.ErrBookHasLoans)
	require.NoError(t, e.svc.DeleteBook(ctx, "b"))
	require.ErrorIs(t, e.svc.DeleteBook(ctx, "b"), errs.ErrBookNotFound)
}

func TestEngine_RenewToEndOfToday(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t, model.Book{BookID: "b", Title: "B", Stock: 1})

	loan, err := e.svc.BorrowBook(ctx, "S1", "b", 7)
	require.NoError(t, err)

	endOfToday := model.StartOfDay(day1).Add(24*time.Hour - time.Microsecond)
	_, err = e.svc.RenewLoan(ctx, loan.ID, endOfToday)
	require.NoError(t, err)

	e.clock.Advance(10 * time.Hour)
	got, err := e.svc.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	require.Equal(t, model.DueStatusDueSoon, got.DueStatus)
	require.Zero(t, got.OverdueDays)
}
