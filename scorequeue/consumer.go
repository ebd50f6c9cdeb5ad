package scorequeue

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

const MsgTypeFinishedEvaluation = "finished_evaluation"

// Msg is the header shared by all evaluation pipeline messages.
type Msg struct {
	MsgType  string    `json:"msg_type"`
	SubmUUID uuid.UUID `json:"subm_uuid"`
}

// sqsClient is the part of the SQS client the consumer uses.
type sqsClient interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

type HandleFunc func(ctx context.Context, submUUID uuid.UUID) error

// Consumer long-polls a queue and calls the handler for every finished
// evaluation. Messages are deleted once handled, failed ones become
// visible again after the queue's visibility timeout.
type Consumer struct {
	client   sqsClient
	queueUrl string
	handle   HandleFunc
	logger   *slog.Logger
}

func NewConsumer(client *sqs.Client, queueUrl string, handle HandleFunc, logger *slog.Logger) *Consumer {
	return newConsumer(client, queueUrl, handle, logger)
}

func newConsumer(client sqsClient, queueUrl string, handle HandleFunc, logger *slog.Logger) *Consumer {
	return &Consumer{
		client:   client,
		queueUrl: queueUrl,
		handle:   handle,
		logger:   logger.With(slog.String("queue", queueUrl)),
	}
}

// Run receives messages until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		output, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueUrl),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			c.logger.Error("failed to receive messages", "error", err)
			continue
		}

		for _, m := range output.Messages {
			c.process(ctx, m.Body, m.ReceiptHandle)
		}
	}
}

func (c *Consumer) process(ctx context.Context, body *string, receiptHandle *string) {
	if body == nil || receiptHandle == nil {
		c.logger.Error("received message without body or receipt handle")
		return
	}

	msg, err := Decode(*body)
	if err != nil {
		// undecodable messages would be redelivered forever
		c.logger.Error("dropping malformed message", "error", err)
		c.delete(ctx, *receiptHandle)
		return
	}

	if msg.MsgType != MsgTypeFinishedEvaluation {
		c.delete(ctx, *receiptHandle)
		return
	}

	if err := c.handle(ctx, msg.SubmUUID); err != nil {
		c.logger.Error("failed to score submission",
			"subm_uuid", msg.SubmUUID,
			"error", err)
		return
	}
	c.delete(ctx, *receiptHandle)
}

func (c *Consumer) delete(ctx context.Context, receiptHandle string) {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueUrl),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		c.logger.Error("failed to ack message", "error", err)
	}
}

// Decode parses a message body. Bodies are either plain JSON or base64
// encoded zstd compressed JSON.
func Decode(body string) (Msg, error) {
	raw := []byte(body)
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		compressed, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return Msg{}, fmt.Errorf("failed to decode base64 body: %w", err)
		}
		zstdDecoder, err := zstd.NewReader(nil)
		if err != nil {
			return Msg{}, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		defer zstdDecoder.Close()
		raw, err = zstdDecoder.DecodeAll(compressed, nil)
		if err != nil {
			return Msg{}, fmt.Errorf("failed to decompress body: %w", err)
		}
	}

	var msg Msg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Msg{}, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	if msg.MsgType == "" {
		return Msg{}, fmt.Errorf("message has no msg_type")
	}
	return msg, nil
}

// Encode produces a base64 zstd body.
func Encode(msg Msg) (string, error) {
	jsonMsg, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}
	zstdEncoder, err := zstd.NewWriter(nil)
	if err != nil {
		return "", fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	defer zstdEncoder.Close()

	compressed := zstdEncoder.EncodeAll(jsonMsg, make([]byte, 0, len(jsonMsg)))
	return base64.StdEncoding.EncodeToString(compressed), nil
}
