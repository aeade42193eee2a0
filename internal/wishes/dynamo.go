package wishes

import (
	"context"
	"errors"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/imrishuroy/wishwall/internal/aws"
)

const (
	DefaultTableName = "Wishes"
	// StatusIndexName is the GSI keyed by status (PK) and SortKeyAttr (SK).
	StatusIndexName = "StatusCreatedAtIndex"
	// SortKeyAttr holds the zero padded createdAt followed by the wishId, so
	// the index range order is exactly (createdAt, wishId).
	SortKeyAttr = "createdAtWishId"
	// UserIndexName is the GSI keyed by userId.
	UserIndexName = "UserIdIndex"
)

// DynamoStore encapsulates wish operations on the Wishes table.
type DynamoStore struct {
	client    aws.DynamoDBAPI
	tableName string
	opts      options
}

// NewDynamoStore creates a store over tableName. An empty name means DefaultTableName.
func NewDynamoStore(client aws.DynamoDBAPI, tableName string, opts ...Option) *DynamoStore {
	if tableName == "" {
		tableName = DefaultTableName
	}
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		opts:      applyOptions(opts),
	}
}

func sortKey(createdAt int64, wishID string) string {
	return fmt.Sprintf("%013d#%s", createdAt, wishID)
}

// ListByStatus queries the status index newest first. It asks for one item
// more than the page size so a trailing LastEvaluatedKey on an exhausted index
// never produces an empty follow-up page.
func (s *DynamoStore) ListByStatus(ctx context.Context, status Status, limit int, token string) (ListResult, error) {
	limit = ClampLimit(limit)
	want := limit + 1

	input := &dyn.QueryInput{
		TableName:                &s.tableName,
		IndexName:                sdkaws.String(StatusIndexName),
		KeyConditionExpression:   sdkaws.String("#status = :status"),
		ExpressionAttributeNames: map[string]string{"#status": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(status)},
		},
		ScanIndexForward: sdkaws.Bool(false),
	}
	// The start key is rebuilt from the sort attributes, so it stays valid even
	// if the referenced wish has since changed status.
	if c, ok := decodeCursor(token); ok {
		input.ExclusiveStartKey = map[string]types.AttributeValue{
			"wishId":    &types.AttributeValueMemberS{Value: c.WishID},
			"status":    &types.AttributeValueMemberS{Value: string(status)},
			SortKeyAttr: &types.AttributeValueMemberS{Value: sortKey(c.CreatedAt, c.WishID)},
		}
	}

	items := make([]Wish, 0, want)
	for {
		input.Limit = sdkaws.Int32(int32(want - len(items)))
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return ListResult{}, fmt.Errorf("query wishes by status: %w", err)
		}
		var page []Wish
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return ListResult{}, fmt.Errorf("unmarshal wishes: %w", err)
		}
		items = append(items, page...)
		if len(items) >= want || len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	return pageOf(items, limit), nil
}

// CountByUserAndStatus counts across every page of the user index.
func (s *DynamoStore) CountByUserAndStatus(ctx context.Context, userID string, status Status) (int, error) {
	input := &dyn.QueryInput{
		TableName:                &s.tableName,
		IndexName:                sdkaws.String(UserIndexName),
		KeyConditionExpression:   sdkaws.String("userId = :userId"),
		FilterExpression:         sdkaws.String("#status = :status"),
		ExpressionAttributeNames: map[string]string{"#status": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":userId": &types.AttributeValueMemberS{Value: userID},
			":status": &types.AttributeValueMemberS{Value: string(status)},
		},
		Select: types.SelectCount,
	}

	total := 0
	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return 0, fmt.Errorf("count wishes: %w", err)
		}
		total += int(out.Count)
		if len(out.LastEvaluatedKey) == 0 {
			return total, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// CreateWish checks the quota then puts the new wish. The two steps are not
// atomic; see Store.
func (s *DynamoStore) CreateWish(ctx context.Context, input CreateInput) (Wish, error) {
	count, err := s.CountByUserAndStatus(ctx, input.UserID, StatusActive)
	if err != nil {
		return Wish{}, err
	}
	if count >= s.opts.maxActive {
		return Wish{}, ErrQuotaExceeded
	}

	w := newWish(s.opts, input)
	w.TTL = w.CreatedAt/1000 + int64(s.opts.retention.Seconds())

	item, err := attributevalue.MarshalMap(w)
	if err != nil {
		return Wish{}, fmt.Errorf("marshal wish: %w", err)
	}
	item[SortKeyAttr] = &types.AttributeValueMemberS{Value: sortKey(w.CreatedAt, w.WishID)}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: sdkaws.String("attribute_not_exists(wishId)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return Wish{}, fmt.Errorf("wish id %s already exists: %w", w.WishID, err)
		}
		return Wish{}, fmt.Errorf("put wish: %w", err)
	}
	return w, nil
}

// ReleaseAllActive pages through the active partition of the status index and
// flips each wish with its own conditional update.
func (s *DynamoStore) ReleaseAllActive(ctx context.Context) (int, error) {
	input := &dyn.QueryInput{
		TableName:                &s.tableName,
		IndexName:                sdkaws.String(StatusIndexName),
		KeyConditionExpression:   sdkaws.String("#status = :status"),
		ProjectionExpression:     sdkaws.String("wishId"),
		ExpressionAttributeNames: map[string]string{"#status": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(StatusActive)},
		},
	}

	released := 0
	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return released, fmt.Errorf("query active wishes: %w", err)
		}
		for _, item := range out.Items {
			id, ok := item["wishId"].(*types.AttributeValueMemberS)
			if !ok || id.Value == "" {
				continue
			}
			if err := ctx.Err(); err != nil {
				return released, err
			}
			changed, err := s.release(ctx, id.Value)
			if err != nil {
				return released, err
			}
			if changed {
				released++
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			return released, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// release conditionally moves one wish from active to released. It returns
// false when the wish was no longer active.
func (s *DynamoStore) release(ctx context.Context, wishID string) (bool, error) {
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"wishId": &types.AttributeValueMemberS{Value: wishID},
		},
		UpdateExpression:         sdkaws.String("SET #status = :released"),
		ConditionExpression:      sdkaws.String("#status = :active"),
		ExpressionAttributeNames: map[string]string{"#status": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":released": &types.AttributeValueMemberS{Value: string(StatusReleased)},
			":active":   &types.AttributeValueMemberS{Value: string(StatusActive)},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("release wish %s: %w", wishID, err)
	}
	return true, nil
}

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException"
}

var _ Store = (*DynamoStore)(nil)
