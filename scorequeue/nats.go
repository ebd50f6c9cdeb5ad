package scorequeue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

const natsQueueGroup = "scorer"

// NatsSubscriber scores submissions on finished_evaluation messages
// published by the testers. Subscribers share a queue group so each
// message is handled once.
type NatsSubscriber struct {
	nc      *nats.Conn
	subject string
	handle  HandleFunc
	logger  *slog.Logger
}

func NewNatsSubscriber(nc *nats.Conn, subject string, handle HandleFunc, logger *slog.Logger) *NatsSubscriber {
	return &NatsSubscriber{
		nc:      nc,
		subject: subject,
		handle:  handle,
		logger:  logger.With(slog.String("subject", subject)),
	}
}

// Run subscribes and blocks until ctx is cancelled.
func (s *NatsSubscriber) Run(ctx context.Context) error {
	sub, err := s.nc.QueueSubscribe(s.subject, natsQueueGroup, func(msg *nats.Msg) {
		s.process(ctx, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.subject, err)
	}
	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		s.logger.Warn("failed to drain subscription", "error", err)
	}
	return nil
}

func (s *NatsSubscriber) process(ctx context.Context, data []byte) {
	msg, err := Decode(string(data))
	if err != nil {
		s.logger.Error("dropping malformed message", "error", err)
		return
	}
	if msg.MsgType != MsgTypeFinishedEvaluation {
		return
	}
	if err := s.handle(ctx, msg.SubmUUID); err != nil {
		s.logger.Error("failed to score submission",
			"subm_uuid", msg.SubmUUID,
			"error", err)
	}
}
