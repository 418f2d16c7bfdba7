package awsstore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/EliuX/cloud-tools/pkg/pager"
	"github.com/EliuX/cloud-tools/pkg/plan"
	"github.com/EliuX/cloud-tools/pkg/resource"
	"github.com/EliuX/cloud-tools/pkg/transfer"
)

const (
	defaultIDAttribute = "id"
)

// DocumentPager reads a document table in bounded pages. The store's
// LastEvaluatedKey is serialized into the engine's opaque cursor and
// restored verbatim on the next read. String-typed key attributes are
// assumed.
type DocumentPager struct {
	client             *dynamodb.Client
	table              string
	idAttribute        string
	partitionAttribute string
}

func NewDocumentPager(c *Clients, table, idAttribute, partitionAttribute string) *DocumentPager {
	if idAttribute == "" {
		idAttribute = defaultIDAttribute
	}
	return &DocumentPager{
		client:             c.Dynamo,
		table:              table,
		idAttribute:        idAttribute,
		partitionAttribute: partitionAttribute,
	}
}

func (p *DocumentPager) ReadPage(ctx context.Context, cursor pager.Cursor, pageSize int) ([]resource.Record, pager.Cursor, bool, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(p.table),
		Limit:     aws.Int32(int32(pageSize)),
	}
	if cursor != "" {
		startKey, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", false, fmt.Errorf("failed to decode scan cursor: %w", err)
		}
		input.ExclusiveStartKey = startKey
	}

	out, err := p.client.Scan(ctx, input)
	if err != nil {
		return nil, "", false, fmt.Errorf("failed to scan table %s: %w", p.table, err)
	}

	records := make([]resource.Record, 0, len(out.Items))
	for _, item := range out.Items {
		var body map[string]any
		if err := attributevalue.UnmarshalMap(item, &body); err != nil {
			return nil, "", false, fmt.Errorf("failed to decode document in %s: %w", p.table, err)
		}
		records = append(records, resource.DocumentRecord{
			ID:           stringAttribute(body, p.idAttribute),
			PartitionKey: stringAttribute(body, p.partitionAttribute),
			Body:         body,
		})
	}

	if len(out.LastEvaluatedKey) == 0 {
		return records, "", true, nil
	}
	next, err := encodeCursor(out.LastEvaluatedKey)
	if err != nil {
		return nil, "", false, fmt.Errorf("failed to encode scan cursor: %w", err)
	}
	return records, next, false, nil
}

// DocumentApplier writes documents into the destination table.
// Copies are last-writer-wins puts; conflict resolution beyond property
// overwrite is out of scope.
type DocumentApplier struct {
	client             *dynamodb.Client
	table              string
	idAttribute        string
	partitionAttribute string
}

func NewDocumentApplier(c *Clients, table, idAttribute, partitionAttribute string) *DocumentApplier {
	if idAttribute == "" {
		idAttribute = defaultIDAttribute
	}
	return &DocumentApplier{
		client:             c.Dynamo,
		table:              table,
		idAttribute:        idAttribute,
		partitionAttribute: partitionAttribute,
	}
}

func (a *DocumentApplier) Create(ctx context.Context, record resource.Record) transfer.Outcome {
	doc, ok := record.(resource.DocumentRecord)
	if !ok {
		return transfer.Terminal(fmt.Sprintf("expected document record, got %T", record))
	}

	item, err := attributevalue.MarshalMap(doc.Body)
	if err != nil {
		return transfer.Terminal(fmt.Sprintf("failed to encode document %s: %v", doc.Key(), err))
	}
	if _, ok := item[a.idAttribute]; !ok {
		item[a.idAttribute] = &types.AttributeValueMemberS{Value: doc.ID}
	}
	if a.partitionAttribute != "" {
		if _, ok := item[a.partitionAttribute]; !ok {
			item[a.partitionAttribute] = &types.AttributeValueMemberS{Value: doc.PartitionKey}
		}
	}

	_, err = a.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(a.table),
		Item:      item,
	})
	return classify(err)
}

func (a *DocumentApplier) Update(ctx context.Context, update plan.Update) transfer.Outcome {
	return a.Create(ctx, update.Source)
}

func (a *DocumentApplier) Delete(ctx context.Context, key resource.Key) transfer.Outcome {
	_, err := a.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(a.table),
		Key:       a.itemKey(key),
	})
	return classify(err)
}

func (a *DocumentApplier) Exists(ctx context.Context, key resource.Key) (bool, error) {
	out, err := a.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(a.table),
		Key:       a.itemKey(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return len(out.Item) > 0, nil
}

// itemKey reverses DocumentRecord.Key: "partition/id" when a partition
// attribute is configured, bare id otherwise.
func (a *DocumentApplier) itemKey(key resource.Key) map[string]types.AttributeValue {
	id := string(key)
	partition := ""
	if a.partitionAttribute != "" {
		if parts := strings.SplitN(id, "/", 2); len(parts) == 2 {
			partition, id = parts[0], parts[1]
		}
	}

	item := map[string]types.AttributeValue{
		a.idAttribute: &types.AttributeValueMemberS{Value: id},
	}
	if a.partitionAttribute != "" {
		item[a.partitionAttribute] = &types.AttributeValueMemberS{Value: partition}
	}
	return item
}

func stringAttribute(body map[string]any, attribute string) string {
	if attribute == "" {
		return ""
	}
	if v, ok := body[attribute].(string); ok {
		return v
	}
	if v, ok := body[attribute]; ok && v != nil {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func encodeCursor(key map[string]types.AttributeValue) (pager.Cursor, error) {
	var plain map[string]any
	if err := attributevalue.UnmarshalMap(key, &plain); err != nil {
		return "", err
	}
	raw, err := json.Marshal(plain)
	if err != nil {
		return "", err
	}
	return pager.Cursor(base64.StdEncoding.EncodeToString(raw)), nil
}

func decodeCursor(cursor pager.Cursor) (map[string]types.AttributeValue, error) {
	raw, err := base64.StdEncoding.DecodeString(string(cursor))
	if err != nil {
		return nil, err
	}
	var plain map[string]any
	if err := json.Unmarshal(raw, &plain); err != nil {
		return nil, err
	}
	return attributevalue.MarshalMap(plain)
}
