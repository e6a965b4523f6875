package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/service/idempotency"
)

// DynamoAPI is the subset of *dynamodb.Client used here.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type headerItem struct {
	Name  string `dynamodbav:"Name"`
	Value []byte `dynamodbav:"Value"`
}

// savedResponseItem is one saved response in the single-table layout.
type savedResponseItem struct {
	PK         string       `dynamodbav:"PK"`
	SK         string       `dynamodbav:"SK"`
	StatusCode int          `dynamodbav:"StatusCode"`
	Headers    []headerItem `dynamodbav:"Headers"`
	Body       []byte       `dynamodbav:"Body"`
	CreatedAt  string       `dynamodbav:"CreatedAt"`
}

// DynamoIdempotencyStore implements idempotency.Store on a DynamoDB table
// keyed by PK = "IDEMPOTENCY#<caller>", SK = "KEY#<key>".
type DynamoIdempotencyStore struct {
	client    DynamoAPI
	tableName string
	now       func() time.Time
}

// NewDynamoIdempotencyStore creates a DynamoDB-backed saved-response store.
func NewDynamoIdempotencyStore(client DynamoAPI, tableName string) *DynamoIdempotencyStore {
	return &DynamoIdempotencyStore{client: client, tableName: tableName, now: time.Now}
}

func itemKey(callerID uuid.UUID, key domain.IdempotencyKey) (string, string) {
	return "IDEMPOTENCY#" + callerID.String(), "KEY#" + string(key)
}

func (s *DynamoIdempotencyStore) Get(ctx context.Context, callerID uuid.UUID, key domain.IdempotencyKey) (*domain.SavedResponse, error) {
	pk, sk := itemKey(callerID, key)
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		ConsistentRead: aws.Bool(true),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("getting saved response from DynamoDB: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var item savedResponseItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshaling saved response: %w", err)
	}
	created, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing saved response timestamp: %w", err)
	}

	resp := &domain.SavedResponse{
		StatusCode: item.StatusCode,
		Headers:    make([]domain.HeaderPair, 0, len(item.Headers)),
		Body:       item.Body,
		CreatedAt:  created,
	}
	for _, h := range item.Headers {
		resp.Headers = append(resp.Headers, domain.HeaderPair{Name: h.Name, Value: h.Value})
	}
	if resp.Body == nil {
		resp.Body = []byte{}
	}
	return resp, nil
}

func (s *DynamoIdempotencyStore) Put(ctx context.Context, callerID uuid.UUID, key domain.IdempotencyKey, resp domain.SavedResponse) (*domain.SavedResponse, error) {
	pk, sk := itemKey(callerID, key)
	resp.CreatedAt = s.now().UTC()

	item := savedResponseItem{
		PK:         pk,
		SK:         sk,
		StatusCode: resp.StatusCode,
		Headers:    make([]headerItem, 0, len(resp.Headers)),
		Body:       resp.Body,
		CreatedAt:  resp.CreatedAt.Format(time.RFC3339Nano),
	}
	for _, h := range resp.Headers {
		item.Headers = append(item.Headers, headerItem{Name: h.Name, Value: h.Value})
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("marshaling item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, idempotency.ErrDuplicateKey
		}
		return nil, fmt.Errorf("putting item to DynamoDB: %w", err)
	}
	return &resp, nil
}
