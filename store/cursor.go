package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// EncodeCursor turns a DynamoDB LastEvaluatedKey into an opaque
// continuation cursor. An empty key encodes to the empty string, meaning
// the listing is exhausted.
func EncodeCursor(key map[string]types.AttributeValue) (string, error) {
	if len(key) == 0 {
		return "", nil
	}
	var plain map[string]string
	if err := attributevalue.UnmarshalMap(key, &plain); err != nil {
		return "", fmt.Errorf("encode cursor: %w", err)
	}
	b, err := json.Marshal(plain)
	if err != nil {
		return "", fmt.Errorf("encode cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeCursor reverses EncodeCursor. The empty string decodes to nil,
// starting the listing from the beginning. Any malformed input yields
// ErrBadCursor.
func DecodeCursor(cursor string) (map[string]types.AttributeValue, error) {
	if cursor == "" {
		return nil, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrBadCursor
	}
	var plain map[string]string
	if err := json.Unmarshal(b, &plain); err != nil {
		return nil, ErrBadCursor
	}
	if len(plain) == 0 {
		return nil, ErrBadCursor
	}
	key, err := attributevalue.MarshalMap(plain)
	if err != nil {
		return nil, ErrBadCursor
	}
	return key, nil
}
