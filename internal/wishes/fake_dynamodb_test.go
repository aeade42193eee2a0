package wishes

import (
	"context"
	"errors"
	"sort"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo is an in-memory stand-in for the Wishes table and its two GSIs.
// It understands exactly the expressions DynamoStore sends.
// pageSize caps how many items a single Query evaluates, mimicking the 1MB page limit.
type fakeDynamo struct {
	mu       sync.Mutex
	items    map[string]map[string]types.AttributeValue
	pageSize int

	queryCalls  int
	updateCalls int
	putCalls    int

	// failUpdateAfter makes UpdateItem fail once this many updates succeeded (-1 disables).
	failUpdateAfter int
	queryErr        error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{
		items:           map[string]map[string]types.AttributeValue{},
		failUpdateAfter: -1,
	}
}

func strAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func (m *fakeDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	id := strAttr(params.Item, "wishId")
	if id == "" {
		return nil, errors.New("no primary key in put item")
	}
	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(wishId)" {
		if _, exists := m.items[id]; exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	m.items[id] = copyItem(params.Item)
	return &dyn.PutItemOutput{}, nil
}

func (m *fakeDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[strAttr(params.Key, "wishId")]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: copyItem(item)}, nil
}

func (m *fakeDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdateAfter >= 0 && m.updateCalls >= m.failUpdateAfter {
		return nil, errors.New("service unavailable")
	}
	m.updateCalls++
	item, ok := m.items[strAttr(params.Key, "wishId")]
	if !ok {
		return nil, &types.ConditionalCheckFailedException{}
	}
	if params.ConditionExpression != nil && *params.ConditionExpression == "#status = :active" {
		if strAttr(item, "status") != strAttr(params.ExpressionAttributeValues, ":active") {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	if v, ok := params.ExpressionAttributeValues[":released"]; ok {
		item["status"] = v
	}
	return &dyn.UpdateItemOutput{}, nil
}

func (m *fakeDynamo) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryCalls++
	if m.queryErr != nil {
		return nil, m.queryErr
	}

	values := params.ExpressionAttributeValues
	var candidates []map[string]types.AttributeValue
	var keyNames []string
	var less func(a, b map[string]types.AttributeValue) bool

	switch *params.IndexName {
	case StatusIndexName:
		status := strAttr(values, ":status")
		for _, it := range m.items {
			if strAttr(it, "status") == status {
				candidates = append(candidates, it)
			}
		}
		// only the index range key orders the partition
		keyNames = []string{"wishId", "status", SortKeyAttr}
		less = func(a, b map[string]types.AttributeValue) bool {
			return strAttr(a, SortKeyAttr) < strAttr(b, SortKeyAttr)
		}
	case UserIndexName:
		userID := strAttr(values, ":userId")
		for _, it := range m.items {
			if strAttr(it, "userId") == userID {
				candidates = append(candidates, it)
			}
		}
		keyNames = []string{"wishId", "userId"}
		less = func(a, b map[string]types.AttributeValue) bool {
			return strAttr(a, "wishId") < strAttr(b, "wishId")
		}
	default:
		return nil, errors.New("unknown index")
	}

	forward := params.ScanIndexForward == nil || *params.ScanIndexForward
	sort.Slice(candidates, func(i, j int) bool {
		if forward {
			return less(candidates[i], candidates[j])
		}
		return less(candidates[j], candidates[i])
	})

	start := 0
	if esk := params.ExclusiveStartKey; len(esk) > 0 {
		start = len(candidates)
		for i, it := range candidates {
			if forward && less(esk, it) || !forward && less(it, esk) {
				start = i
				break
			}
		}
	}

	n := len(candidates) - start
	if params.Limit != nil && int(*params.Limit) < n {
		n = int(*params.Limit)
	}
	if m.pageSize > 0 && m.pageSize < n {
		n = m.pageSize
	}
	evaluated := candidates[start : start+n]

	out := &dyn.QueryOutput{ScannedCount: int32(len(evaluated))}
	limitHit := (params.Limit != nil && int(*params.Limit) == n) || (m.pageSize > 0 && m.pageSize == n)
	if len(evaluated) > 0 && (start+n < len(candidates) || limitHit) {
		last := evaluated[len(evaluated)-1]
		lek := map[string]types.AttributeValue{}
		for _, k := range keyNames {
			lek[k] = last[k]
		}
		out.LastEvaluatedKey = lek
	}

	for _, it := range evaluated {
		if params.FilterExpression != nil && *params.FilterExpression == "#status = :status" {
			if strAttr(it, "status") != strAttr(values, ":status") {
				continue
			}
		}
		out.Count++
		if params.Select == types.SelectCount {
			continue
		}
		if params.ProjectionExpression != nil && *params.ProjectionExpression == "wishId" {
			out.Items = append(out.Items, map[string]types.AttributeValue{"wishId": it["wishId"]})
			continue
		}
		out.Items = append(out.Items, copyItem(it))
	}
	return out, nil
}
