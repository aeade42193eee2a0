package releaserun

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/imrishuroy/wishwall/internal/aws"
)

// Store encapsulates release run operations against DynamoDB.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	ttlWindow time.Duration // default TTL window when creating entries
	nowFunc   func() time.Time
}

// NewStore returns a configured Store.
// tableName: DynamoDB table name for release runs.
// ttlWindow: TTL window for new records; zero means DefaultTTLWindow.
func NewStore(client aws.DynamoDBAPI, tableName string, ttlWindow time.Duration) *Store {
	if ttlWindow <= 0 {
		ttlWindow = DefaultTTLWindow
	}
	return &Store{
		client:    client,
		tableName: tableName,
		ttlWindow: ttlWindow,
		nowFunc:   time.Now,
	}
}

func (s *Store) Begin(ctx context.Context, key, trigger string) (bool, error) {
	now := s.nowFunc()
	rec := Record{
		RunKey:    key,
		Status:    StatusInProgress,
		Trigger:   trigger,
		Attempts:  1,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.ttlWindow).Unix(),
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return false, fmt.Errorf("marshal record: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
		// Only create when attribute_not_exists(runKey)
		ConditionExpression: awsString("attribute_not_exists(runKey)"),
	})
	if err != nil {
		var sc smithy.APIError
		if errors.As(err, &sc) && sc.ErrorCode() == "ConditionalCheckFailedException" {
			return false, nil
		}
		return false, fmt.Errorf("put item: %w", err)
	}
	return true, nil
}

func (s *Store) Get(ctx context.Context, key string) (*Record, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            s.key(key),
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return &rec, nil
}

func (s *Store) Retry(ctx context.Context, key, trigger string) error {
	now := s.nowFunc()
	input := &dyn.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              s.key(key),
		UpdateExpression: awsString("SET #s = :inprogress, #t = :trigger, attempts = if_not_exists(attempts, :zero) + :inc, updatedAt = :ua"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
			"#t": "trigger",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":inprogress": &types.AttributeValueMemberS{Value: StatusInProgress},
			":trigger":    &types.AttributeValueMemberS{Value: trigger},
			":zero":       &types.AttributeValueMemberN{Value: "0"},
			":inc":        &types.AttributeValueMemberN{Value: "1"},
			":ua":         &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	}
	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		return fmt.Errorf("update item (retry): %w", err)
	}
	return nil
}

func (s *Store) MarkDone(ctx context.Context, key string, updated int) error {
	return s.finish(ctx, key, StatusDone, updated, "")
}

func (s *Store) MarkFailed(ctx context.Context, key string, updated int, note string) error {
	return s.finish(ctx, key, StatusFailed, updated, note)
}

func (s *Store) finish(ctx context.Context, key, status string, updated int, note string) error {
	now := s.nowFunc()
	input := &dyn.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              s.key(key),
		UpdateExpression: awsString("SET #s = :status, note = :n, updatedAt = :ua, updated = if_not_exists(updated, :zero) + :u"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: status},
			":n":      &types.AttributeValueMemberS{Value: note},
			":ua":     &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
			":zero":   &types.AttributeValueMemberN{Value: "0"},
			":u":      &types.AttributeValueMemberN{Value: strconv.Itoa(updated)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	}
	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		return fmt.Errorf("update item (mark %s): %w", status, err)
	}
	return nil
}

func (s *Store) key(runKey string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"runKey": &types.AttributeValueMemberS{Value: runKey},
	}
}

var _ Ledger = (*Store)(nil)

// Helper
func awsString(s string) *string { return &s }
func awsBool(b bool) *bool       { return &b }
