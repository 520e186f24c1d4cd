package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-circulation/circulation/internal/model"
)

// OverdueScanner periodically reports outstanding loans past their due date.
// Each scan publishes one OVERDUE event per such loan.
type OverdueScanner struct {
	query     *Query
	publisher Publisher
	observer  Observer
	cron      *cron.Cron
	spec      string
	timeout   time.Duration
	log       *zap.Logger
}

// NewOverdueScanner skips a tick while the previous scan is still running.
func NewOverdueScanner(query *Query, spec string, log *zap.Logger, opts ...Option) *OverdueScanner {
	o := newOptions(opts)
	log = log.Named("overdue")
	cl := cronLogger{log: log.Sugar()}
	return &OverdueScanner{
		query:     query,
		publisher: o.publisher,
		observer:  o.observer,
		cron:      cron.New(cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl))),
		spec:      spec,
		timeout:   time.Minute,
		log:       log,
	}
}

func (s *OverdueScanner) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.run); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop waits for a running scan to finish or ctx to expire.
func (s *OverdueScanner) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *OverdueScanner) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.Scan(ctx); err != nil {
		s.log.Error("scan", zap.Error(err))
	}
}

func (s *OverdueScanner) Scan(ctx context.Context) (int, error) {
	loans, err := s.query.ListOverdueLoans(ctx)
	if err != nil {
		return 0, err
	}
	s.observer.SetOverdueLoans(len(loans))

	now := s.query.now()
	for _, loan := range loans {
		if err := s.publisher.Publish(ctx, model.NewEvent(model.EventOverdue, loan, now)); err != nil {
			s.observer.EventDropped()
			s.log.Error("publish", zap.Int64("loan", loan.ID), zap.Error(err))
		}
	}
	s.log.Info("overdue scan", zap.Int("overdue", len(loans)))
	return len(loans), nil
}

// cronLogger routes cron's own messages into zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
