package handler_test

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/handler"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
)

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	messages chan *sarama.ConsumerMessage
}

func (c fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func TestConsumer_ConsumeClaim(t *testing.T) {
	t.Parallel()
	results := map[string]error{
		"S1": nil,
		"S2": errs.ErrNoOutstandingLoan,
	}
	var calls []string
	consumer := handler.NewConsumer(func(_ context.Context, bookID, studentID string) (model.LoanRecord, error) {
		calls = append(calls, bookID+"/"+studentID)
		return model.LoanRecord{ID: 1}, results[studentID]
	}, zap.NewNop())

	claim := fakeClaim{messages: make(chan *sarama.ConsumerMessage, 8)}
	for offset, value := range []string{
		`{"bookId":"b","studentId":"S1"}`,
		`not json`,
		`{"bookId":"b"}`,
		`{"bookId":"b","studentId":"S2"}`,
	} {
		claim.messages <- &sarama.ConsumerMessage{Offset: int64(offset), Value: []byte(value)}
	}
	close(claim.messages)

	session := &fakeSession{ctx: context.Background()}
	require.NoError(t, consumer.Setup(session))
	require.NoError(t, consumer.ConsumeClaim(session, claim))
	require.NoError(t, consumer.Cleanup(session))

	require.Equal(t, []string{"b/S1", "b/S2"}, calls)
	require.Equal(t, []int64{0, 1, 2, 3}, session.marked)
}

func TestConsumer_StoreOutageStopsClaim(t *testing.T) {
	t.Parallel()
	down := true
	var calls []string
	consumer := handler.NewConsumer(func(_ context.Context, bookID, studentID string) (model.LoanRecord, error) {
		calls = append(calls, bookID+"/"+studentID)
		if down {
			return model.LoanRecord{}, errs.Unavailable(errors.New("conn refused"))
		}
		return model.LoanRecord{ID: 1}, nil
	}, zap.NewNop())

	newClaim := func() fakeClaim {
		claim := fakeClaim{messages: make(chan *sarama.ConsumerMessage, 4)}
		claim.messages <- &sarama.ConsumerMessage{Offset: 9, Value: []byte(`{"bookId":"a","studentId":"S0"}`)}
		claim.messages <- &sarama.ConsumerMessage{Offset: 10, Value: []byte(`{"bookId":"b","studentId":"S1"}`)}
		claim.messages <- &sarama.ConsumerMessage{Offset: 11, Value: []byte(`{"bookId":"b","studentId":"S2"}`)}
		close(claim.messages)
		return claim
	}

	// the first message fails: nothing after it may be marked
	session := &fakeSession{ctx: context.Background()}
	err := consumer.ConsumeClaim(session, newClaim())
	require.ErrorIs(t, err, errs.ErrStoreUnavailable)
	require.Equal(t, []string{"a/S0"}, calls)
	require.Empty(t, session.marked)

	// redelivery after recovery applies every message in order
	down = false
	calls = nil
	session = &fakeSession{ctx: context.Background()}
	require.NoError(t, consumer.ConsumeClaim(session, newClaim()))
	require.Equal(t, []string{"a/S0", "b/S1", "b/S2"}, calls)
	require.Equal(t, []int64{9, 10, 11}, session.marked)
}

func TestConsumer_OutageAfterProgress(t *testing.T) {
	t.Parallel()
	consumer := handler.NewConsumer(func(_ context.Context, _, studentID string) (model.LoanRecord, error) {
		if studentID == "S1" {
			return model.LoanRecord{}, errs.Unavailable(errors.New("conn refused"))
		}
		return model.LoanRecord{ID: 1}, nil
	}, zap.NewNop())

	claim := fakeClaim{messages: make(chan *sarama.ConsumerMessage, 4)}
	claim.messages <- &sarama.ConsumerMessage{Offset: 9, Value: []byte(`{"bookId":"b","studentId":"S0"}`)}
	claim.messages <- &sarama.ConsumerMessage{Offset: 10, Value: []byte(`{"bookId":"b","studentId":"S1"}`)}
	claim.messages <- &sarama.ConsumerMessage{Offset: 11, Value: []byte(`{"bookId":"b","studentId":"S2"}`)}
	close(claim.messages)

	session := &fakeSession{ctx: context.Background()}
	require.ErrorIs(t, consumer.ConsumeClaim(session, claim), errs.ErrStoreUnavailable)
	require.Equal(t, []int64{9}, session.marked)
}

func TestConsumer_StopsWithSession(t *testing.T) {
	t.Parallel()
	consumer := handler.NewConsumer(func(context.Context, string, string) (model.LoanRecord, error) {
		return model.LoanRecord{}, nil
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	session := &fakeSession{ctx: ctx}
	require.NoError(t, consumer.ConsumeClaim(session, fakeClaim{messages: make(chan *sarama.ConsumerMessage)}))
	require.Empty(t, session.marked)
}
