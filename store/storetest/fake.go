// Package storetest provides an in-memory stand-in for the DynamoDB client
// interface, covering exactly the request shapes the stores issue:
// key lookups, equality key conditions on a GSI, paged scans, and
// single-equality / attribute_exists conditional writes.
package storetest

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/skyposts/skyposts/store"
)

// Table describes a fake table: its partition key attribute and the
// queryable secondary indexes (index name -> partition key attribute).
type Table struct {
	Name    string
	Key     string
	Indexes map[string]string
}

// DB is a thread-safe in-memory DynamoDB fake.
type DB struct {
	mu     sync.Mutex
	tables map[string]*fakeTable
}

type fakeTable struct {
	def   Table
	items map[string]map[string]types.AttributeValue
}

var _ store.DynamoAPI = (*DB)(nil)

// New creates a fake with the given table definitions.
func New(tables ...Table) *DB {
	db := &DB{tables: make(map[string]*fakeTable)}
	for _, t := range tables {
		db.tables[t.Name] = &fakeTable{def: t, items: make(map[string]map[string]types.AttributeValue)}
	}
	return db
}

func (db *DB) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, err := db.table(in.TableName)
	if err != nil {
		return nil, err
	}
	key, err := stringAttr(in.Item, t.def.Key)
	if err != nil {
		return nil, err
	}
	if in.ConditionExpression != nil {
		if !evalCondition(*in.ConditionExpression, t.items[key], in.ExpressionAttributeNames, in.ExpressionAttributeValues) {
			return nil, conditionFailed()
		}
	}
	t.items[key] = copyItem(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (db *DB) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, err := db.table(in.TableName)
	if err != nil {
		return nil, err
	}
	key, err := stringAttr(in.Key, t.def.Key)
	if err != nil {
		return nil, err
	}
	item, ok := t.items[key]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: copyItem(item)}, nil
}

func (db *DB) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, err := db.table(in.TableName)
	if err != nil {
		return nil, err
	}
	key, err := stringAttr(in.Key, t.def.Key)
	if err != nil {
		return nil, err
	}
	item, exists := t.items[key]
	if in.ConditionExpression != nil {
		if !evalCondition(*in.ConditionExpression, item, in.ExpressionAttributeNames, in.ExpressionAttributeValues) {
			return nil, conditionFailed()
		}
	}
	if !exists {
		// Unconditional UpdateItem upserts, like the real store.
		item = copyItem(in.Key)
		t.items[key] = item
	}
	if in.UpdateExpression != nil {
		if err := applyUpdate(*in.UpdateExpression, item, in.ExpressionAttributeNames, in.ExpressionAttributeValues); err != nil {
			return nil, err
		}
	}

	out := &dynamodb.UpdateItemOutput{}
	if in.ReturnValues == types.ReturnValueAllNew {
		out.Attributes = copyItem(item)
	}
	return out, nil
}

func (db *DB) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, err := db.table(in.TableName)
	if err != nil {
		return nil, err
	}
	key, err := stringAttr(in.Key, t.def.Key)
	if err != nil {
		return nil, err
	}
	if in.ConditionExpression != nil {
		if !evalCondition(*in.ConditionExpression, t.items[key], in.ExpressionAttributeNames, in.ExpressionAttributeValues) {
			return nil, conditionFailed()
		}
	}
	delete(t.items, key)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (db *DB) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, err := db.table(in.TableName)
	if err != nil {
		return nil, err
	}
	if in.KeyConditionExpression == nil {
		return nil, fmt.Errorf("storetest: missing key condition")
	}
	attr, want, err := parseEquality(*in.KeyConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	if in.IndexName != nil {
		indexAttr, ok := t.def.Indexes[*in.IndexName]
		if !ok {
			return nil, fmt.Errorf("storetest: unknown index %q on table %q", *in.IndexName, t.def.Name)
		}
		if indexAttr != attr {
			return nil, fmt.Errorf("storetest: index %q is keyed on %q, condition uses %q", *in.IndexName, indexAttr, attr)
		}
	} else if attr != t.def.Key {
		return nil, fmt.Errorf("storetest: table %q is keyed on %q, condition uses %q", t.def.Name, t.def.Key, attr)
	}

	out := &dynamodb.QueryOutput{}
	for _, k := range t.sortedKeys() {
		item := t.items[k]
		if got, ok := item[attr]; ok && avEqual(got, want) {
			out.Items = append(out.Items, copyItem(item))
			if in.Limit != nil && int32(len(out.Items)) >= *in.Limit {
				break
			}
		}
	}
	return out, nil
}

func (db *DB) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, err := db.table(in.TableName)
	if err != nil {
		return nil, err
	}

	keys := t.sortedKeys()
	if in.ExclusiveStartKey != nil {
		after, err := stringAttr(in.ExclusiveStartKey, t.def.Key)
		if err != nil {
			return nil, err
		}
		idx := sort.SearchStrings(keys, after)
		if idx < len(keys) && keys[idx] == after {
			idx++
		}
		keys = keys[idx:]
	}

	out := &dynamodb.ScanOutput{}
	for i, k := range keys {
		if in.Limit != nil && int32(i) >= *in.Limit {
			out.LastEvaluatedKey = map[string]types.AttributeValue{
				t.def.Key: &types.AttributeValueMemberS{Value: keys[i-1]},
			}
			break
		}
		out.Items = append(out.Items, copyItem(t.items[k]))
	}
	return out, nil
}

func (db *DB) table(name *string) (*fakeTable, error) {
	if name == nil {
		return nil, fmt.Errorf("storetest: missing table name")
	}
	t, ok := db.tables[*name]
	if !ok {
		return nil, fmt.Errorf("storetest: unknown table %q", *name)
	}
	return t, nil
}

func (t *fakeTable) sortedKeys() []string {
	keys := make([]string, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// evalCondition handles the shapes the stores emit: a single equality or a
// single attribute_exists / attribute_not_exists. A nil item means the
// record is absent, which fails equality and attribute_exists.
func evalCondition(cond string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) bool {
	c := strings.ReplaceAll(cond, " ", "")
	switch {
	case strings.HasPrefix(c, "attribute_exists("):
		attr := resolveName(strings.TrimSuffix(strings.TrimPrefix(c, "attribute_exists("), ")"), names)
		_, ok := item[attr]
		return ok
	case strings.HasPrefix(c, "attribute_not_exists("):
		attr := resolveName(strings.TrimSuffix(strings.TrimPrefix(c, "attribute_not_exists("), ")"), names)
		_, ok := item[attr]
		return !ok
	default:
		attr, want, err := parseEquality(cond, names, values)
		if err != nil {
			return false
		}
		got, ok := item[attr]
		return ok && avEqual(got, want)
	}
}

// parseEquality parses "#0 = :0" into the resolved attribute name and the
// expected value.
func parseEquality(expr string, names map[string]string, values map[string]types.AttributeValue) (string, types.AttributeValue, error) {
	parts := strings.SplitN(strings.ReplaceAll(expr, " ", ""), "=", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("storetest: unsupported expression %q", expr)
	}
	attr := resolveName(parts[0], names)
	want, ok := values[parts[1]]
	if !ok {
		return "", nil, fmt.Errorf("storetest: unbound value %q in %q", parts[1], expr)
	}
	return attr, want, nil
}

// applyUpdate handles "SET #a = :x, #b = :y" update expressions.
func applyUpdate(expr string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) error {
	trimmed := strings.TrimSpace(expr)
	if !strings.HasPrefix(trimmed, "SET") {
		return fmt.Errorf("storetest: unsupported update expression %q", expr)
	}
	for _, clause := range strings.Split(strings.TrimPrefix(trimmed, "SET"), ",") {
		parts := strings.SplitN(strings.ReplaceAll(clause, " ", ""), "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("storetest: unsupported update clause %q", clause)
		}
		val, ok := values[parts[1]]
		if !ok {
			return fmt.Errorf("storetest: unbound value %q in %q", parts[1], clause)
		}
		item[resolveName(parts[0], names)] = val
	}
	return nil
}

func resolveName(token string, names map[string]string) string {
	if strings.HasPrefix(token, "#") {
		if attr, ok := names[token]; ok {
			return attr
		}
	}
	return token
}

func avEqual(a, b types.AttributeValue) bool {
	as, aok := a.(*types.AttributeValueMemberS)
	bs, bok := b.(*types.AttributeValueMemberS)
	if aok && bok {
		return as.Value == bs.Value
	}
	return reflect.DeepEqual(a, b)
}

func stringAttr(item map[string]types.AttributeValue, attr string) (string, error) {
	av, ok := item[attr]
	if !ok {
		return "", fmt.Errorf("storetest: missing key attribute %q", attr)
	}
	s, ok := av.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("storetest: key attribute %q is not a string", attr)
	}
	return s.Value, nil
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
}
