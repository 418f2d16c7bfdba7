package awsstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/EliuX/cloud-tools/pkg/plan"
	"github.com/EliuX/cloud-tools/pkg/resource"
	"github.com/EliuX/cloud-tools/pkg/transfer"
)

// QueueEnumerator lists an account's queues with retention, visibility
// timeout and tags.
type QueueEnumerator struct {
	client *sqs.Client
}

func NewQueueEnumerator(c *Clients) *QueueEnumerator {
	return &QueueEnumerator{client: c.SQS}
}

func (e *QueueEnumerator) List(ctx context.Context) (resource.Snapshot, error) {
	snapshot := make(resource.Snapshot)

	var nextToken *string
	for {
		out, err := e.client.ListQueues(ctx, &sqs.ListQueuesInput{
			NextToken:  nextToken,
			MaxResults: aws.Int32(1000),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list queues: %w", err)
		}

		for _, queueURL := range out.QueueUrls {
			record, err := e.describeQueue(ctx, queueURL)
			if err != nil {
				return nil, err
			}
			snapshot[record.Key()] = record
		}

		if out.NextToken == nil {
			return snapshot, nil
		}
		nextToken = out.NextToken
	}
}

func (e *QueueEnumerator) describeQueue(ctx context.Context, queueURL string) (resource.QueueRecord, error) {
	name := queueURL
	if idx := strings.LastIndex(queueURL, "/"); idx >= 0 {
		name = queueURL[idx+1:]
	}
	record := resource.QueueRecord{Name: name}

	attrs, err := e.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl: aws.String(queueURL),
		AttributeNames: []types.QueueAttributeName{
			types.QueueAttributeNameMessageRetentionPeriod,
			types.QueueAttributeNameVisibilityTimeout,
		},
	})
	if err != nil {
		return record, fmt.Errorf("failed to read attributes of queue %s: %w", name, err)
	}
	if v := attrs.Attributes[string(types.QueueAttributeNameMessageRetentionPeriod)]; v != "" {
		record.RetentionSeconds, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := attrs.Attributes[string(types.QueueAttributeNameVisibilityTimeout)]; v != "" {
		record.VisibilityTimeout, _ = strconv.ParseInt(v, 10, 64)
	}

	tags, err := e.client.ListQueueTags(ctx, &sqs.ListQueueTagsInput{QueueUrl: aws.String(queueURL)})
	if err != nil && !isNotFound(err) {
		return record, fmt.Errorf("failed to read tags of queue %s: %w", name, err)
	}
	if tags != nil && len(tags.Tags) > 0 {
		record.Metadata = make(map[string]string, len(tags.Tags))
		for k, v := range tags.Tags {
			record.Metadata[k] = v
		}
	}

	return record, nil
}

// QueueApplier creates, updates and deletes queues on the destination
// account.
type QueueApplier struct {
	client *sqs.Client
}

func NewQueueApplier(c *Clients) *QueueApplier {
	return &QueueApplier{client: c.SQS}
}

func (a *QueueApplier) Create(ctx context.Context, record resource.Record) transfer.Outcome {
	queue, ok := record.(resource.QueueRecord)
	if !ok {
		return transfer.Terminal(fmt.Sprintf("expected queue record, got %T", record))
	}

	_, err := a.client.CreateQueue(ctx, &sqs.CreateQueueInput{
		QueueName:  aws.String(queue.Name),
		Attributes: queueAttributes(queue),
		Tags:       queue.Metadata,
	})
	return classify(err)
}

func (a *QueueApplier) Update(ctx context.Context, update plan.Update) transfer.Outcome {
	queue, ok := update.Source.(resource.QueueRecord)
	if !ok {
		return transfer.Terminal(fmt.Sprintf("expected queue record, got %T", update.Source))
	}

	queueURL, err := a.queueURL(ctx, queue.Name)
	if err != nil {
		return classify(err)
	}

	if _, err := a.client.SetQueueAttributes(ctx, &sqs.SetQueueAttributesInput{
		QueueUrl:   aws.String(queueURL),
		Attributes: queueAttributes(queue),
	}); err != nil {
		return classify(err)
	}

	if len(queue.Metadata) > 0 {
		if _, err := a.client.TagQueue(ctx, &sqs.TagQueueInput{
			QueueUrl: aws.String(queueURL),
			Tags:     queue.Metadata,
		}); err != nil {
			return classify(err)
		}
	}
	return transfer.OK()
}

func (a *QueueApplier) Delete(ctx context.Context, key resource.Key) transfer.Outcome {
	queueURL, err := a.queueURL(ctx, string(key))
	if err != nil {
		return classify(err)
	}
	_, err = a.client.DeleteQueue(ctx, &sqs.DeleteQueueInput{QueueUrl: aws.String(queueURL)})
	return classify(err)
}

func (a *QueueApplier) Exists(ctx context.Context, key resource.Key) (bool, error) {
	_, err := a.queueURL(ctx, string(key))
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (a *QueueApplier) queueURL(ctx context.Context, name string) (string, error) {
	out, err := a.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(name)})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.QueueUrl), nil
}

func queueAttributes(queue resource.QueueRecord) map[string]string {
	attrs := make(map[string]string)
	if queue.RetentionSeconds > 0 {
		attrs[string(types.QueueAttributeNameMessageRetentionPeriod)] = strconv.FormatInt(queue.RetentionSeconds, 10)
	}
	if queue.VisibilityTimeout > 0 {
		attrs[string(types.QueueAttributeNameVisibilityTimeout)] = strconv.FormatInt(queue.VisibilityTimeout, 10)
	}
	return attrs
}
