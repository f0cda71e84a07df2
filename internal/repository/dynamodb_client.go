package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"nft-curator/internal/domain"
)

const skPrefixKey = "KEY#"

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Client stores session state in a single DynamoDB table, one item per
// (sender, key). Items never expire.
type Client struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName, now: time.Now}, nil
}

// senderPK returns the DynamoDB partition key for a sender.
func senderPK(sender string) string {
	return "SENDER#" + sender
}

// keySK returns the sort key for a session key.
func keySK(key string) string {
	return skPrefixKey + key
}

// Get returns the stored value for key, reporting false when absent.
func (c *Client) Get(ctx context.Context, sender, key string) (string, bool, error) {
	if err := validate(sender, key); err != nil {
		return "", false, err
	}
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: senderPK(sender)},
			"SK": &types.AttributeValueMemberS{Value: keySK(key)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", false, fmt.Errorf("repository: Get %s: %w", key, err)
	}
	if out == nil || len(out.Item) == 0 {
		return "", false, nil
	}
	value, err := strAttr(out.Item, "value")
	if err != nil {
		return "", false, fmt.Errorf("repository: Get %s: %w", key, err)
	}
	return value, true, nil
}

// Set writes or replaces the value stored under key.
func (c *Client) Set(ctx context.Context, sender, key, value string) error {
	if err := validate(sender, key); err != nil {
		return err
	}
	entry := NewEntry(sender, key, value, c.now())
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      entryItem(entry),
	})
	if err != nil {
		return fmt.Errorf("repository: Set %s: %w", key, err)
	}
	return nil
}

// Keys lists the session keys stored for sender, following pagination.
func (c *Client) Keys(ctx context.Context, sender string) ([]string, error) {
	if strings.TrimSpace(sender) == "" {
		return nil, errors.New("repository: sender is required")
	}
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: senderPK(sender)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixKey},
		},
		ProjectionExpression: aws.String("SK"),
		ConsistentRead:       aws.Bool(true),
	}

	var keys []string
	for {
		out, err := c.api.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("repository: Keys query: %w", err)
		}
		for _, item := range out.Items {
			sk, err := strAttr(item, "SK")
			if err != nil {
				return nil, fmt.Errorf("repository: Keys unmarshal: %w", err)
			}
			keys = append(keys, strings.TrimPrefix(sk, skPrefixKey))
		}
		if len(out.LastEvaluatedKey) == 0 {
			return keys, nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// NewEntry constructs a SessionEntry with PK/SK derived from sender and key.
func NewEntry(sender, key, value string, at time.Time) domain.SessionEntry {
	return domain.SessionEntry{
		PK:        senderPK(sender),
		SK:        keySK(key),
		Sender:    sender,
		Key:       key,
		Value:     value,
		UpdatedAt: at.UTC().Format(time.RFC3339),
	}
}

func entryItem(e domain.SessionEntry) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: e.PK},
		"SK":        &types.AttributeValueMemberS{Value: e.SK},
		"sender":    &types.AttributeValueMemberS{Value: e.Sender},
		"key":       &types.AttributeValueMemberS{Value: e.Key},
		"value":     &types.AttributeValueMemberS{Value: e.Value},
		"updatedAt": &types.AttributeValueMemberS{Value: e.UpdatedAt},
	}
}

func validate(sender, key string) error {
	if strings.TrimSpace(sender) == "" {
		return errors.New("repository: sender is required")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("repository: key is required")
	}
	return nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}
