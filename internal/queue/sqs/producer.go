package sqsqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"trackersms/internal/domain"
)

const defaultGroupBuckets = 64

// Producer publishes history events for downstream consumers.
type Producer struct {
	SQS      *sqs.Client
	QueueURL string

	// FIFO queues need a group id and a deduplication id on every message.
	FIFO         bool
	GroupBuckets int
}

func (p *Producer) PublishHistory(ctx context.Context, ev domain.HistoryEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	in := &sqs.SendMessageInput{
		QueueUrl:    &p.QueueURL,
		MessageBody: str(string(body)),
	}
	if p.FIFO {
		// per-phone ordering, spread across a bounded number of groups
		in.MessageGroupId = str(messageGroupIDBucketed(ev.PhoneNumber, p.GroupBuckets))
		in.MessageDeduplicationId = str("history-" + strconv.FormatInt(ev.HistoryID, 10))
	}
	_, err = p.SQS.SendMessage(ctx, in)
	return err
}

func messageGroupIDBucketed(phone string, buckets int) string {
	if buckets <= 0 {
		buckets = defaultGroupBuckets
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(phone))
	return fmt.Sprintf("phone-%d", h.Sum32()%uint32(buckets))
}

func str(s string) *string { return &s }
