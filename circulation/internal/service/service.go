package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/Astemirdum/library-circulation/circulation/internal/repository"
)

// Observer receives operational signals; *metrics.Metrics implements it.
type Observer interface {
	ObserveOperation(operation string, started time.Time, err error)
	SetOverdueLoans(n int)
	EventDropped()
}

type nopObserver struct{}

func (nopObserver) ObserveOperation(string, time.Time, error) {}
func (nopObserver) SetOverdueLoans(int)                       {}
func (nopObserver) EventDropped()                             {}

const defaultDueSoonDays = 3

type options struct {
	now         func() time.Time
	publisher   Publisher
	observer    Observer
	dueSoonDays int
}

type Option func(*options)

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithPublisher(p Publisher) Option {
	return func(o *options) { o.publisher = p }
}

func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

func WithDueSoonDays(days int) Option {
	return func(o *options) {
		if days >= 0 {
			o.dueSoonDays = days
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		now:         time.Now,
		publisher:   NopPublisher{},
		observer:    nopObserver{},
		dueSoonDays: defaultDueSoonDays,
	}
	for _, op := range opts {
		op(&o)
	}
	return o
}

// Service is what the presentation adapters talk to: the circulation engine
// for mutations and the query service for reads.
type Service struct {
	*Engine
	*Query
}

func NewService(store repository.Store, reader repository.Reader, log *zap.Logger, opts ...Option) *Service {
	return &Service{
		Engine: NewEngine(store, log, opts...),
		Query:  NewQuery(reader, log, opts...),
	}
}
