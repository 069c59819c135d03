package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/skyposts/skyposts/models"
)

// GSIs scoping comments by parent post and by owner.
const (
	PostCommentsIndex = "postCommentsIndex"
	UserCommentsIndex = "userCommentsIndex"
)

// Comments persists comment records keyed by commentId. Mutations are
// owner-gated: the ownership check and the write are a single conditional
// operation at the store, never a read-then-compare-then-write sequence.
type Comments struct {
	db    DynamoAPI
	table string
}

func NewComments(db DynamoAPI, table string) *Comments {
	return &Comments{db: db, table: table}
}

func (s *Comments) Create(ctx context.Context, comment models.Comment) error {
	item, err := attributevalue.MarshalMap(comment)
	if err != nil {
		return fmt.Errorf("marshal comment: %w", err)
	}
	_, err = s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put comment: %w", err)
	}
	return nil
}

// List pages through the whole table in store-native order.
func (s *Comments) List(ctx context.Context, limit int32, cursor string) ([]models.Comment, string, error) {
	start, err := DecodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	in := &dynamodb.ScanInput{
		TableName: aws.String(s.table),
		Limit:     aws.Int32(limit),
	}
	if start != nil {
		in.ExclusiveStartKey = start
	}

	out, err := s.db.Scan(ctx, in)
	if err != nil {
		return nil, "", fmt.Errorf("scan comments: %w", err)
	}

	var comments []models.Comment
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &comments); err != nil {
		return nil, "", fmt.Errorf("unmarshal comments: %w", err)
	}

	next, err := EncodeCursor(out.LastEvaluatedKey)
	if err != nil {
		return nil, "", err
	}
	return comments, next, nil
}

// ListByPost returns all comments under one post via the post GSI.
func (s *Comments) ListByPost(ctx context.Context, postID string) ([]models.Comment, error) {
	return s.queryIndex(ctx, PostCommentsIndex, "postId", postID)
}

// ListByOwner returns all comments written by one user via the owner GSI.
func (s *Comments) ListByOwner(ctx context.Context, userID string) ([]models.Comment, error) {
	return s.queryIndex(ctx, UserCommentsIndex, "userId", userID)
}

func (s *Comments) queryIndex(ctx context.Context, index, attr, value string) ([]models.Comment, error) {
	keyCond := expression.Key(attr).Equal(expression.Value(value))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", index, err)
	}

	var comments []models.Comment
	var start map[string]types.AttributeValue
	for {
		out, err := s.db.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(s.table),
			IndexName:                 aws.String(index),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         start,
		})
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", index, err)
		}
		var page []models.Comment
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal comments: %w", err)
		}
		comments = append(comments, page...)
		if out.LastEvaluatedKey == nil {
			return comments, nil
		}
		start = out.LastEvaluatedKey
	}
}

// Update rewrites a comment's content, conditioned on the requester being
// the recorded owner. A conditional failure maps to ErrForbidden; DynamoDB
// reports an absent record the same way, so the two are indistinguishable.
func (s *Comments) Update(ctx context.Context, userID, commentID, content string, now time.Time) (*models.Comment, error) {
	cond := expression.Name("userId").Equal(expression.Value(userID))
	upd := expression.Set(expression.Name("content"), expression.Value(content)).
		Set(expression.Name("updatedAt"), expression.Value(now))

	expr, err := expression.NewBuilder().WithCondition(cond).WithUpdate(upd).Build()
	if err != nil {
		return nil, fmt.Errorf("build comment update: %w", err)
	}

	out, err := s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       commentKey(commentID),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return nil, ErrForbidden
		}
		return nil, fmt.Errorf("update comment: %w", err)
	}

	var comment models.Comment
	if err := attributevalue.UnmarshalMap(out.Attributes, &comment); err != nil {
		return nil, fmt.Errorf("unmarshal comment: %w", err)
	}
	return &comment, nil
}

// Delete removes a comment under the same atomic owner condition as
// Update.
func (s *Comments) Delete(ctx context.Context, userID, commentID string) error {
	cond := expression.Name("userId").Equal(expression.Value(userID))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("build comment delete: %w", err)
	}

	_, err = s.db.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(s.table),
		Key:                       commentKey(commentID),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return ErrForbidden
		}
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

func commentKey(commentID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"commentId": &types.AttributeValueMemberS{Value: commentID},
	}
}
