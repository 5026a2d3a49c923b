package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoClient is the subset of the DynamoDB API used by DynamoLedger.
// *dynamodb.Client satisfies it.
type DynamoClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DynamoLedger is a Ledger backed by a DynamoDB table keyed by job_id.
//
// Record uses a conditional write, so exactly one of several concurrent
// runners recording the same job succeeds.
type DynamoLedger struct {
	client DynamoClient
	table  string
}

// NewDynamoLedger creates a ledger on table.
func NewDynamoLedger(client DynamoClient, table string) *DynamoLedger {
	return &DynamoLedger{client: client, table: table}
}

// Lookup implements Ledger.
func (l *DynamoLedger) Lookup(ctx context.Context, id string) (Entry, bool, error) {
	resp, err := l.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(l.table),
		Key: map[string]types.AttributeValue{
			"job_id": &types.AttributeValueMemberS{Value: id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return Entry{}, false, fmt.Errorf("ledger: get %s: %w", id, err)
	}
	if len(resp.Item) == 0 {
		return Entry{}, false, nil
	}

	e, err := decodeItem(resp.Item)
	if err != nil {
		return Entry{}, false, fmt.Errorf("ledger: decode %s: %w", id, err)
	}
	return e, true, nil
}

// Record implements Ledger.
func (l *DynamoLedger) Record(ctx context.Context, e Entry) error {
	_, err := l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.table),
		Item:                encodeItem(e),
		ConditionExpression: aws.String("attribute_not_exists(job_id)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrAlreadyRecorded
		}
		return fmt.Errorf("ledger: put %s: %w", e.JobID, err)
	}
	return nil
}

func encodeItem(e Entry) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"job_id":       &types.AttributeValueMemberS{Value: e.JobID},
		"output":       &types.AttributeValueMemberS{Value: e.Output},
		"matched":      &types.AttributeValueMemberN{Value: strconv.Itoa(e.Matched)},
		"total":        &types.AttributeValueMemberN{Value: strconv.Itoa(e.Total)},
		"fraction":     &types.AttributeValueMemberN{Value: strconv.FormatFloat(e.Fraction, 'g', -1, 64)},
		"completed_at": &types.AttributeValueMemberS{Value: e.CompletedAt.UTC().Format(time.RFC3339Nano)},
	}
	if e.RunID != "" {
		item["run_id"] = &types.AttributeValueMemberS{Value: e.RunID}
	}
	return item
}

func decodeItem(item map[string]types.AttributeValue) (Entry, error) {
	var (
		e   Entry
		err error
	)

	if e.JobID, err = stringAttr(item, "job_id"); err != nil {
		return Entry{}, err
	}
	if e.Output, err = stringAttr(item, "output"); err != nil {
		return Entry{}, err
	}
	if _, ok := item["run_id"]; ok {
		if e.RunID, err = stringAttr(item, "run_id"); err != nil {
			return Entry{}, err
		}
	}

	matched, err := numberAttr(item, "matched")
	if err != nil {
		return Entry{}, err
	}
	if e.Matched, err = strconv.Atoi(matched); err != nil {
		return Entry{}, fmt.Errorf("matched: %w", err)
	}

	total, err := numberAttr(item, "total")
	if err != nil {
		return Entry{}, err
	}
	if e.Total, err = strconv.Atoi(total); err != nil {
		return Entry{}, fmt.Errorf("total: %w", err)
	}

	fraction, err := numberAttr(item, "fraction")
	if err != nil {
		return Entry{}, err
	}
	if e.Fraction, err = strconv.ParseFloat(fraction, 64); err != nil {
		return Entry{}, fmt.Errorf("fraction: %w", err)
	}

	completed, err := stringAttr(item, "completed_at")
	if err != nil {
		return Entry{}, err
	}
	if e.CompletedAt, err = time.Parse(time.RFC3339Nano, completed); err != nil {
		return Entry{}, fmt.Errorf("completed_at: %w", err)
	}

	return e, nil
}

func stringAttr(item map[string]types.AttributeValue, name string) (string, error) {
	v, ok := item[name].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("invalid %s attribute", name)
	}
	return v.Value, nil
}

func numberAttr(item map[string]types.AttributeValue, name string) (string, error) {
	v, ok := item[name].(*types.AttributeValueMemberN)
	if !ok {
		return "", fmt.Errorf("invalid %s attribute", name)
	}
	return v.Value, nil
}
