package data

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/deadraisers/riri/internal/biz/domain"
	"github.com/deadraisers/riri/internal/biz/repo"
)

const (
	skPrefixTurn   = "TURN#"
	batchWriteSize = 25 // DynamoDB BatchWriteItem limit
	batchRetries   = 5
	// skTimeLayout is fixed width so sort keys order the same as the times they hold
	skTimeLayout = "2006-01-02T15:04:05.000000000Z"
)

// dynamodbAPI is the minimal DynamoDB interface required by the turn store.
// *dynamodb.Client satisfies it.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// dynamoTurnRepo implements the conversation store on a single DynamoDB table
// keyed by PK=CHAT#<chat> and SK=TURN#<time>#<id>.
type dynamoTurnRepo struct {
	api       dynamodbAPI
	tableName string
}

// NewDynamoTurnRepo creates a DynamoDB-backed conversation store
func NewDynamoTurnRepo(api dynamodbAPI, tableName string) (repo.TurnRepo, error) {
	if api == nil {
		return nil, errors.New("dynamo turn store: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("dynamo turn store: table name must not be empty")
	}
	return &dynamoTurnRepo{api: api, tableName: tableName}, nil
}

func chatPK(chatID string) string {
	return "CHAT#" + chatID
}

func turnSK(ts time.Time, id string) string {
	return skPrefixTurn + ts.UTC().Format(skTimeLayout) + "#" + id
}

// Append writes one turn; the condition guards against overwriting
func (r *dynamoTurnRepo) Append(ctx context.Context, turn *domain.Turn) error {
	if !turn.Valid() {
		return fmt.Errorf("invalid turn for chat %q: message and response are required", turn.ChatID)
	}
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}

	_, err := r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                turnItem(turn),
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("put turn: %w", err)
	}
	return nil
}

// Recent queries newest first and returns oldest first
func (r *dynamoTurnRepo) Recent(ctx context.Context, chatID string, limit int) ([]domain.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}

	out, err := r.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: chatPK(chatID)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixTurn},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}

	turns := make([]domain.Turn, 0, len(out.Items))
	for _, item := range out.Items {
		t, err := itemToTurn(item)
		if err != nil {
			return nil, fmt.Errorf("decode turn: %w", err)
		}
		turns = append(turns, t)
	}
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// CountByChat counts a chat's turns across all result pages
func (r *dynamoTurnRepo) CountByChat(ctx context.Context, chatID string) (int64, error) {
	var total int64
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.api.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":     &types.AttributeValueMemberS{Value: chatPK(chatID)},
				":prefix": &types.AttributeValueMemberS{Value: skPrefixTurn},
			},
			Select:            types.SelectCount,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return 0, fmt.Errorf("count chat turns: %w", err)
		}
		total += int64(out.Count)
		if len(out.LastEvaluatedKey) == 0 {
			return total, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// CountAll scans the table counting turn items
func (r *dynamoTurnRepo) CountAll(ctx context.Context) (int64, error) {
	var total int64
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.api.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(r.tableName),
			FilterExpression: aws.String("begins_with(SK, :prefix)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":prefix": &types.AttributeValueMemberS{Value: skPrefixTurn},
			},
			Select:            types.SelectCount,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return 0, fmt.Errorf("count turns: %w", err)
		}
		total += int64(out.Count)
		if len(out.LastEvaluatedKey) == 0 {
			return total, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// DeleteChat removes all turn items under the chat's partition
func (r *dynamoTurnRepo) DeleteChat(ctx context.Context, chatID string) (int64, error) {
	var keys []map[string]types.AttributeValue
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.api.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":     &types.AttributeValueMemberS{Value: chatPK(chatID)},
				":prefix": &types.AttributeValueMemberS{Value: skPrefixTurn},
			},
			ProjectionExpression: aws.String("PK, SK"),
			ExclusiveStartKey:    startKey,
		})
		if err != nil {
			return 0, fmt.Errorf("list chat turns: %w", err)
		}
		keys = append(keys, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return r.deleteKeys(ctx, keys)
}

// CleanupBefore scans for turns older than before and deletes them
func (r *dynamoTurnRepo) CleanupBefore(ctx context.Context, before time.Time) (int64, error) {
	var keys []map[string]types.AttributeValue
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.api.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(r.tableName),
			FilterExpression: aws.String("begins_with(SK, :prefix) AND #ts < :before"),
			ExpressionAttributeNames: map[string]string{
				"#ts": "ts",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":prefix": &types.AttributeValueMemberS{Value: skPrefixTurn},
				":before": &types.AttributeValueMemberN{Value: strconv.FormatInt(before.UnixNano(), 10)},
			},
			ProjectionExpression: aws.String("PK, SK"),
			ExclusiveStartKey:    startKey,
		})
		if err != nil {
			return 0, fmt.Errorf("scan old turns: %w", err)
		}
		keys = append(keys, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return r.deleteKeys(ctx, keys)
}

// deleteKeys batch-deletes items, resubmitting unprocessed ones a bounded number of times
func (r *dynamoTurnRepo) deleteKeys(ctx context.Context, keys []map[string]types.AttributeValue) (int64, error) {
	var deleted int64
	for start := 0; start < len(keys); start += batchWriteSize {
		end := start + batchWriteSize
		if end > len(keys) {
			end = len(keys)
		}

		requests := make([]types.WriteRequest, 0, end-start)
		for _, k := range keys[start:end] {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: map[string]types.AttributeValue{
					"PK": k["PK"],
					"SK": k["SK"],
				}},
			})
		}

		pending := map[string][]types.WriteRequest{r.tableName: requests}
		for attempt := 0; len(pending[r.tableName]) > 0; attempt++ {
			if attempt >= batchRetries {
				return deleted, fmt.Errorf("batch delete: %d items left unprocessed", len(pending[r.tableName]))
			}
			out, err := r.api.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
			if err != nil {
				return deleted, fmt.Errorf("batch delete: %w", err)
			}
			sent := len(pending[r.tableName])
			pending = out.UnprocessedItems
			if pending == nil {
				pending = map[string][]types.WriteRequest{}
			}
			deleted += int64(sent - len(pending[r.tableName]))
		}
	}
	return deleted, nil
}

func turnItem(t *domain.Turn) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":       &types.AttributeValueMemberS{Value: chatPK(t.ChatID)},
		"SK":       &types.AttributeValueMemberS{Value: turnSK(t.Timestamp, t.ID)},
		"id":       &types.AttributeValueMemberS{Value: t.ID},
		"chatId":   &types.AttributeValueMemberS{Value: t.ChatID},
		"userId":   &types.AttributeValueMemberS{Value: t.UserID},
		"username": &types.AttributeValueMemberS{Value: t.Username},
		"message":  &types.AttributeValueMemberS{Value: t.Message},
		"response": &types.AttributeValueMemberS{Value: t.Response},
		"ts":       &types.AttributeValueMemberN{Value: strconv.FormatInt(t.Timestamp.UnixNano(), 10)},
	}
}

func itemToTurn(item map[string]types.AttributeValue) (domain.Turn, error) {
	var t domain.Turn
	var err error
	if t.ChatID, err = strAttr(item, "chatId"); err != nil {
		return t, err
	}
	if t.Message, err = strAttr(item, "message"); err != nil {
		return t, err
	}
	if t.Response, err = strAttr(item, "response"); err != nil {
		return t, err
	}
	t.ID, _ = strAttr(item, "id")
	t.UserID, _ = strAttr(item, "userId")
	t.Username, _ = strAttr(item, "username")

	if v, ok := item["ts"].(*types.AttributeValueMemberN); ok {
		ns, err := strconv.ParseInt(v.Value, 10, 64)
		if err != nil {
			return t, fmt.Errorf("parse ts: %w", err)
		}
		t.Timestamp = time.Unix(0, ns)
	}
	return t, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("attribute %q is not a string", key)
	}
	return s.Value, nil
}
