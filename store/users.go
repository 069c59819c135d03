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

// EmailIndex is the GSI resolving a user record by email.
const EmailIndex = "EmailIndex"

// Users persists user records keyed by userId.
type Users struct {
	db    DynamoAPI
	table string
}

func NewUsers(db DynamoAPI, table string) *Users {
	return &Users{db: db, table: table}
}

// Create inserts a user record. Email uniqueness is checked by the caller
// via GetByEmail before this put; the check and the write are not atomic,
// so two concurrent registrations for the same email can both land. Known
// gap, kept as-is.
func (s *Users) Create(ctx context.Context, user models.User) error {
	item, err := attributevalue.MarshalMap(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// Get resolves a user by identity. Returns ErrNotFound when the record is
// gone.
func (s *Users) Get(ctx context.Context, userID string) (*models.User, error) {
	out, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       userKey(userID),
	})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	var user models.User
	if err := attributevalue.UnmarshalMap(out.Item, &user); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &user, nil
}

// GetByEmail resolves a user through the email GSI.
func (s *Users) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	keyCond := expression.Key("email").Equal(expression.Value(email))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("build email query: %w", err)
	}
	out, err := s.db.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		IndexName:                 aws.String(EmailIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query email index: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, ErrNotFound
	}
	var user models.User
	if err := attributevalue.UnmarshalMap(out.Items[0], &user); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &user, nil
}

// UpdateProfile applies a partial update: only non-nil fields are touched,
// omitted fields keep their stored value. The attribute_exists condition
// stops UpdateItem from upserting a fresh record for a deleted identity;
// its failure maps to ErrNotFound.
func (s *Users) UpdateProfile(ctx context.Context, userID string, name, profileImage *string) (*models.User, error) {
	var upd expression.UpdateBuilder
	if name != nil {
		upd = upd.Set(expression.Name("name"), expression.Value(*name))
	}
	if profileImage != nil {
		upd = upd.Set(expression.Name("profileImage"), expression.Value(*profileImage))
	}
	cond := expression.AttributeExists(expression.Name("userId"))

	expr, err := expression.NewBuilder().WithUpdate(upd).WithCondition(cond).Build()
	if err != nil {
		return nil, fmt.Errorf("build profile update: %w", err)
	}

	out, err := s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       userKey(userID),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	var user models.User
	if err := attributevalue.UnmarshalMap(out.Attributes, &user); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &user, nil
}

func userKey(userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
	}
}
