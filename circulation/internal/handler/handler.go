package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/metrics"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	md "github.com/Astemirdum/library-circulation/pkg/middleware"
	"github.com/Astemirdum/library-circulation/pkg/validate"
)

const defaultLoanDays = 30

type Handler struct {
	circulationSvc  CirculationService
	metrics         *metrics.Metrics
	defaultLoanDays int
	log             *zap.Logger
}

type Option func(*Handler)

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithDefaultLoanDays sets the loan period used when a borrow request has none.
func WithDefaultLoanDays(days int) Option {
	return func(h *Handler) {
		if days > 0 {
			h.defaultLoanDays = days
		}
	}
}

func New(circulationSvc CirculationService, log *zap.Logger, opts ...Option) *Handler {
	h := &Handler{
		circulationSvc:  circulationSvc,
		defaultLoanDays: defaultLoanDays,
		log:             log.Named("handler"),
	}
	for _, op := range opts {
		op(h)
	}
	return h
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.HideBanner = true
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPost, http.MethodPatch, http.MethodDelete},
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)
	if h.metrics != nil {
		base.GET("/metrics", echo.WrapHandler(h.metrics.Handler()))
	}

	var observe md.ObserveFunc
	if h.metrics != nil {
		observe = h.metrics.ObserveHTTP
	}
	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig(h.log, observe)),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
	)

	api.GET("/books", h.ListBooks)
	api.GET("/books/search", h.SearchBooks)
	api.GET("/books/:bookId", h.GetBook)
	api.POST("/books", h.AddBook)
	api.PATCH("/books/:bookId", h.UpdateBook)
	api.POST("/books/:bookId/withdraw", h.WithdrawBook)
	api.DELETE("/books/:bookId", h.DeleteBook)

	api.POST("/loans", h.BorrowBook)
	api.POST("/loans/return", h.ReturnBook)
	api.POST("/loans/:loanId/renew", h.RenewLoan)
	api.GET("/loans", h.ListLoans)
	api.GET("/loans/overdue", h.ListOverdueLoans)
	api.GET("/loans/:loanId", h.GetLoan)

	api.GET("/dashboard", h.Dashboard)
	api.GET("/dashboard/loans", h.DashboardLoans)
	api.GET("/dashboard/stats", h.DashboardStats)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (h *Handler) ListBooks(c echo.Context) error {
	books := make([]model.Book, 0)
	for book, err := range h.circulationSvc.ListBooks(c.Request().Context(), model.BookSort(c.QueryParam("sort"))) {
		if err != nil {
			return httpError(err)
		}
		books = append(books, book)
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) SearchBooks(c echo.Context) error {
	keyword := c.QueryParam("q")
	if strings.TrimSpace(keyword) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	books, err := h.circulationSvc.SearchBooks(c.Request().Context(), keyword)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) GetBook(c echo.Context) error {
	book, err := h.circulationSvc.GetBook(c.Request().Context(), c.Param("bookId"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) AddBook(c echo.Context) error {
	type Req struct {
		BookID   string `json:"bookId" validate:"required"`
		Title    string `json:"title" validate:"required"`
		Category string `json:"category"`
		Stock    int    `json:"stock" validate:"gte=0"`
	}
	var req Req
	if err := h.bind(c, &req); err != nil {
		return err
	}
	book, err := h.circulationSvc.AddBook(c.Request().Context(), model.Book{
		BookID:   req.BookID,
		Title:    req.Title,
		Category: req.Category,
		Stock:    req.Stock,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, book)
}

func (h *Handler) UpdateBook(c echo.Context) error {
	var upd model.BookUpdate
	if err := h.bind(c, &upd); err != nil {
		return err
	}
	book, err := h.circulationSvc.UpdateBook(c.Request().Context(), c.Param("bookId"), upd)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) WithdrawBook(c echo.Context) error {
	if err := h.circulationSvc.WithdrawBook(c.Request().Context(), c.Param("bookId")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeleteBook(c echo.Context) error {
	if err := h.circulationSvc.DeleteBook(c.Request().Context(), c.Param("bookId")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) BorrowBook(c echo.Context) error {
	type Req struct {
		StudentID      string `json:"studentId" validate:"required"`
		BookID         string `json:"bookId" validate:"required"`
		LoanPeriodDays int    `json:"loanPeriodDays" validate:"gte=0"`
	}
	var req Req
	if err := h.bind(c, &req); err != nil {
		return err
	}
	if req.LoanPeriodDays == 0 {
		req.LoanPeriodDays = h.defaultLoanDays
	}
	loan, err := h.circulationSvc.BorrowBook(c.Request().Context(), req.StudentID, req.BookID, req.LoanPeriodDays)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, loan)
}

func (h *Handler) ReturnBook(c echo.Context) error {
	var req model.ReturnRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	loan, err := h.circulationSvc.ReturnBook(c.Request().Context(), req.BookID, req.StudentID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

func (h *Handler) RenewLoan(c echo.Context) error {
	loanID, err := loanIDParam(c)
	if err != nil {
		return err
	}
	type Req struct {
		DueDate string `json:"dueDate" validate:"required"`
	}
	var req Req
	if err := h.bind(c, &req); err != nil {
		return err
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "dueDate is invalid")
	}
	loan, err := h.circulationSvc.RenewLoan(c.Request().Context(), loanID, due)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

func (h *Handler) GetLoan(c echo.Context) error {
	loanID, err := loanIDParam(c)
	if err != nil {
		return err
	}
	loan, err := h.circulationSvc.GetLoan(c.Request().Context(), loanID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

func (h *Handler) ListLoans(c echo.Context) error {
	filter := model.LoanFilter{
		StudentID: c.QueryParam("studentId"),
		BookID:    c.QueryParam("bookId"),
		Keyword:   c.QueryParam("q"),
	}
	if outstanding := c.QueryParam("outstanding"); outstanding != "" {
		var err error
		if filter.OutstandingOnly, err = strconv.ParseBool(outstanding); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "outstanding is invalid")
		}
	}
	loans, err := h.circulationSvc.ListLoans(c.Request().Context(), filter)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

func (h *Handler) ListOverdueLoans(c echo.Context) error {
	loans, err := h.circulationSvc.ListOverdueLoans(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

func (h *Handler) DashboardLoans(c echo.Context) error {
	loans, err := h.circulationSvc.ListAllLoansForDashboard(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

func (h *Handler) DashboardStats(c echo.Context) error {
	stats, err := h.circulationSvc.ComputeDashboardStats(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

type dashboard struct {
	Stats model.DashboardStats `json:"stats"`
	Loans []model.LoanRecord   `json:"loans"`
}

// Dashboard loads stats and the ranked loan list concurrently.
func (h *Handler) Dashboard(c echo.Context) error {
	var resp dashboard
	g, ctx := errgroup.WithContext(c.Request().Context())
	g.Go(func() (err error) {
		resp.Stats, err = h.circulationSvc.ComputeDashboardStats(ctx)
		return err
	})
	g.Go(func() (err error) {
		resp.Loans, err = h.circulationSvc.ListAllLoansForDashboard(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func loanIDParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("loanId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "loanId is invalid")
	}
	return id, nil
}

// parseDate accepts an RFC 3339 timestamp or a calendar date. A date means
// the last microsecond of that day in UTC, so a loan due "today" is not
// overdue before the day ends.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.Add(24*time.Hour - time.Microsecond), nil
	}
	return time.Parse(time.RFC3339, s)
}

func httpError(err error) *echo.HTTPError {
	switch errs.Kind(err) {
	case errs.ErrNotFound:
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errs.ErrStateConflict:
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errs.ErrValidation:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errs.ErrStoreUnavailable:
		return echo.NewHTTPError(http.StatusServiceUnavailable, errs.ErrStoreUnavailable.Error())
	}
	if errors.Is(err, context.Canceled) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
