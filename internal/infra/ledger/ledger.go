// Where: internal/infra/ledger/ledger.go
// What: Optional audit log of successful publishes.
// Why: Keep a record of every archive a service document has pointed to.
package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// Entry is one published archive.
type Entry struct {
	ID          string
	Service     string
	Namespace   string
	Package     string
	Bucket      string
	Key         string
	URL         string
	Checksum    string
	Size        int
	PublishedAt time.Time
}

// Recorder stores publish entries.
type Recorder interface {
	Record(ctx context.Context, entry Entry) (Entry, error)
}

// Nop discards entries; used when no ledger table is configured.
type Nop struct{}

func (Nop) Record(_ context.Context, entry Entry) (Entry, error) {
	return entry, nil
}

// PutItemAPI is the subset of the DynamoDB client used by the ledger.
type PutItemAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type DynamoLedger struct {
	client PutItemAPI
	table  string
	newID  func() string
	now    func() time.Time
}

func NewDynamo(client PutItemAPI, table string) *DynamoLedger {
	return &DynamoLedger{
		client: client,
		table:  table,
		newID:  func() string { return uuid.NewString() },
		now:    time.Now,
	}
}

// Record writes entry, filling ID and PublishedAt when absent. An existing
// ID is never overwritten.
func (l *DynamoLedger) Record(ctx context.Context, entry Entry) (Entry, error) {
	if l.client == nil {
		return Entry{}, fmt.Errorf("dynamodb client is nil")
	}
	if strings.TrimSpace(l.table) == "" {
		return Entry{}, fmt.Errorf("ledger table is required")
	}
	if entry.ID == "" {
		entry.ID = l.newID()
	}
	if entry.PublishedAt.IsZero() {
		entry.PublishedAt = l.now()
	}

	_, err := l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.table),
		Item:                toItem(entry),
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return Entry{}, fmt.Errorf("record publish in %s: %w", l.table, err)
	}
	return entry, nil
}

func toItem(entry Entry) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"id":          &types.AttributeValueMemberS{Value: entry.ID},
		"service":     &types.AttributeValueMemberS{Value: entry.Service},
		"package":     &types.AttributeValueMemberS{Value: entry.Package},
		"bucket":      &types.AttributeValueMemberS{Value: entry.Bucket},
		"key":         &types.AttributeValueMemberS{Value: entry.Key},
		"url":         &types.AttributeValueMemberS{Value: entry.URL},
		"checksum":    &types.AttributeValueMemberS{Value: entry.Checksum},
		"size":        &types.AttributeValueMemberN{Value: strconv.Itoa(entry.Size)},
		"publishedAt": &types.AttributeValueMemberS{Value: entry.PublishedAt.UTC().Format(time.RFC3339)},
	}
	if entry.Namespace != "" {
		item["namespace"] = &types.AttributeValueMemberS{Value: entry.Namespace}
	}
	return item
}
