package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/skyposts/skyposts/models"
)

// AuthorPostsIndex is the GSI scoping posts by their owner.
const AuthorPostsIndex = "authorPostsIndex"

// Posts persists post records keyed by postId. Posts are write-once: there
// is no update or delete path.
type Posts struct {
	db    DynamoAPI
	table string
}

func NewPosts(db DynamoAPI, table string) *Posts {
	return &Posts{db: db, table: table}
}

func (s *Posts) Create(ctx context.Context, post models.Post) error {
	item, err := attributevalue.MarshalMap(post)
	if err != nil {
		return fmt.Errorf("marshal post: %w", err)
	}
	_, err = s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put post: %w", err)
	}
	return nil
}

func (s *Posts) Get(ctx context.Context, postID string) (*models.Post, error) {
	out, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       postKey(postID),
	})
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	var post models.Post
	if err := attributevalue.UnmarshalMap(out.Item, &post); err != nil {
		return nil, fmt.Errorf("unmarshal post: %w", err)
	}
	return &post, nil
}

// List pages through the whole table in store-native order. Insertion
// order is not guaranteed, and the cursor is only stable in the absence of
// concurrent writes.
func (s *Posts) List(ctx context.Context, limit int32, cursor string) ([]models.Post, string, error) {
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
		return nil, "", fmt.Errorf("scan posts: %w", err)
	}

	var posts []models.Post
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &posts); err != nil {
		return nil, "", fmt.Errorf("unmarshal posts: %w", err)
	}

	next, err := EncodeCursor(out.LastEvaluatedKey)
	if err != nil {
		return nil, "", err
	}
	return posts, next, nil
}

// ListByOwner returns all posts of one owner via the author GSI, following
// the store's continuation key until exhausted.
func (s *Posts) ListByOwner(ctx context.Context, userID string) ([]models.Post, error) {
	keyCond := expression.Key("userId").Equal(expression.Value(userID))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("build owner query: %w", err)
	}

	var posts []models.Post
	var start map[string]types.AttributeValue
	for {
		out, err := s.db.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(s.table),
			IndexName:                 aws.String(AuthorPostsIndex),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         start,
		})
		if err != nil {
			return nil, fmt.Errorf("query author index: %w", err)
		}
		var page []models.Post
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal posts: %w", err)
		}
		posts = append(posts, page...)
		if out.LastEvaluatedKey == nil {
			return posts, nil
		}
		start = out.LastEvaluatedKey
	}
}

func postKey(postID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"postId": &types.AttributeValueMemberS{Value: postID},
	}
}
