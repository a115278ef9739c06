package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"flowbuilder/domain/events"
	pkgerrors "flowbuilder/pkg/errors"
	"flowbuilder/pkg/utils"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DynamoDB accepts at most 25 items per BatchWriteItem call
const maxBatchWrite = 25

// EventJournal appends domain events to the flow's partition so the edit
// history of a flow can be replayed or audited
type EventJournal struct {
	client    API
	tableName string
	retention time.Duration
	logger    *zap.Logger
}

// NewEventJournal creates a journal. A positive retention sets a TTL on
// every record.
func NewEventJournal(client API, tableName string, retention time.Duration, logger *zap.Logger) *EventJournal {
	return &EventJournal{
		client:    client,
		tableName: tableName,
		retention: retention,
		logger:    logger,
	}
}

// eventRecord represents how events are stored in DynamoDB
type eventRecord struct {
	PK          string `dynamodbav:"PK"` // FLOW#<flow_id>
	SK          string `dynamodbav:"SK"` // EVENT#<version>#<timestamp>#<event_id>
	EntityType  string `dynamodbav:"EntityType"`
	EventID     string `dynamodbav:"EventID"`
	EventType   string `dynamodbav:"EventType"`
	AggregateID string `dynamodbav:"AggregateID"`
	Version     int    `dynamodbav:"Version"`
	Timestamp   string `dynamodbav:"Timestamp"`
	Data        string `dynamodbav:"Data"`
	TTL         int64  `dynamodbav:"TTL,omitempty"`
}

// Publish appends a single event
func (j *EventJournal) Publish(ctx context.Context, event events.DomainEvent) error {
	return j.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch appends events in batches of 25
func (j *EventJournal) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	writeRequests := make([]types.WriteRequest, 0, len(domainEvents))
	for _, event := range domainEvents {
		record, err := j.toRecord(event)
		if err != nil {
			return err
		}

		item, err := attributevalue.MarshalMap(record)
		if err != nil {
			return pkgerrors.NewInternalError("failed to marshal event record").WithCause(err)
		}

		writeRequests = append(writeRequests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}

	for i := 0; i < len(writeRequests); i += maxBatchWrite {
		end := i + maxBatchWrite
		if end > len(writeRequests) {
			end = len(writeRequests)
		}

		result, err := j.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				j.tableName: writeRequests[i:end],
			},
		})
		if err != nil {
			return pkgerrors.NewDatabaseError("append events", err)
		}

		if unprocessed := len(result.UnprocessedItems[j.tableName]); unprocessed > 0 {
			return pkgerrors.NewDatabaseError("append events", fmt.Errorf("%d events were not written", unprocessed))
		}
	}

	j.logger.Debug("Events appended to journal", zap.Int("count", len(domainEvents)))
	return nil
}

func (j *EventJournal) toRecord(event events.DomainEvent) (eventRecord, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return eventRecord{}, pkgerrors.NewInternalError("failed to encode event").WithCause(err)
	}

	eventID := uuid.New().String()
	timestamp := utils.FormatTimestamp(event.GetTimestamp())

	record := eventRecord{
		PK:          flowKeyPrefix + event.GetAggregateID(),
		SK:          fmt.Sprintf("EVENT#%010d#%s#%s", event.GetVersion(), timestamp, eventID),
		EntityType:  "EVENT",
		EventID:     eventID,
		EventType:   event.GetEventType(),
		AggregateID: event.GetAggregateID(),
		Version:     event.GetVersion(),
		Timestamp:   timestamp,
		Data:        string(data),
	}
	if j.retention > 0 {
		record.TTL = event.GetTimestamp().Add(j.retention).Unix()
	}
	return record, nil
}
