package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/pkg/validate"
)

type returnBook func(ctx context.Context, bookID, studentID string) (model.LoanRecord, error)

// Consumer processes drop-box returns. A message is marked once it was applied
// or can never be applied. A store outage ends the claim without marking, so
// the session restarts from the failed message.
type Consumer struct {
	returnHandler returnBook
	validator     *validate.CustomValidator
	timeout       time.Duration
	log           *zap.Logger
}

func NewConsumer(returnHandler returnBook, log *zap.Logger) *Consumer {
	return &Consumer{
		returnHandler: returnHandler,
		validator:     validate.NewCustomValidator(),
		timeout:       10 * time.Second,
		log:           log.Named("consumer"),
	}
}

func (consumer *Consumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited.
func (consumer *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (consumer *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				consumer.log.Warn("message channel was closed")
				return nil
			}
			if err := consumer.handle(session.Context(), message); err != nil {
				return err
			}
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

// handle fails only when the message has to be delivered again.
func (consumer *Consumer) handle(ctx context.Context, message *sarama.ConsumerMessage) error {
	var req model.ReturnRequest
	if err := json.Unmarshal(message.Value, &req); err != nil {
		consumer.log.Error("malformed return request", zap.Error(err), zap.Int64("offset", message.Offset))
		return nil
	}
	if err := consumer.validator.Validate(req); err != nil {
		consumer.log.Error("invalid return request", zap.Error(err), zap.Int64("offset", message.Offset))
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, consumer.timeout)
	defer cancel()
	loan, err := consumer.returnHandler(ctx, req.BookID, req.StudentID)
	switch errs.Kind(err) {
	case nil:
		consumer.log.Debug("returned",
			zap.Int64("loan", loan.ID),
			zap.String("topic", message.Topic),
			zap.Time("timestamp", message.Timestamp))
		return nil
	case errs.ErrStoreUnavailable:
		consumer.log.Error("return", zap.Error(err), zap.Int64("offset", message.Offset))
		return errors.Wrapf(err, "return at offset %d", message.Offset)
	default:
		consumer.log.Warn("return rejected", zap.Error(err),
			zap.String("book", req.BookID), zap.String("student", req.StudentID))
		return nil
	}
}
