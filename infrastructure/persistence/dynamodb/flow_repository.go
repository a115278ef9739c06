package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"flowbuilder/domain/core/aggregates"
	"flowbuilder/domain/core/entities"
	"flowbuilder/domain/core/valueobjects"
	pkgerrors "flowbuilder/pkg/errors"
	"flowbuilder/pkg/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const (
	flowKeyPrefix = "FLOW#"
	snapshotSK    = "SNAPSHOT"
	entityFlow    = "FLOW"
)

// FlowRepository stores the last saved snapshot of each flow as a single
// DynamoDB item
type FlowRepository struct {
	client    API
	tableName string
	logger    *zap.Logger
}

// NewFlowRepository creates a new FlowRepository
func NewFlowRepository(client API, tableName string, logger *zap.Logger) *FlowRepository {
	return &FlowRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// flowItem represents the DynamoDB item structure for a saved flow
type flowItem struct {
	PK         string       `dynamodbav:"PK"`
	SK         string       `dynamodbav:"SK"`
	EntityType string       `dynamodbav:"EntityType"`
	FlowID     string       `dynamodbav:"FlowID"`
	Version    int          `dynamodbav:"Version"`
	NodeCount  int          `dynamodbav:"NodeCount"`
	EdgeCount  int          `dynamodbav:"EdgeCount"`
	Nodes      []nodeRecord `dynamodbav:"Nodes"`
	Edges      []edgeRecord `dynamodbav:"Edges"`
	CreatedAt  string       `dynamodbav:"CreatedAt"`
	SavedAt    string       `dynamodbav:"SavedAt"`
}

type nodeRecord struct {
	ID    string  `dynamodbav:"ID"`
	Kind  string  `dynamodbav:"Kind"`
	Label string  `dynamodbav:"Label"`
	X     float64 `dynamodbav:"X"`
	Y     float64 `dynamodbav:"Y"`
}

type edgeRecord struct {
	ID           string `dynamodbav:"ID"`
	Source       string `dynamodbav:"Source"`
	SourceHandle string `dynamodbav:"SourceHandle,omitempty"`
	Target       string `dynamodbav:"Target"`
	TargetHandle string `dynamodbav:"TargetHandle,omitempty"`
}

func flowKey(id valueobjects.FlowID) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: flowKeyPrefix + id.String()},
		"SK": &types.AttributeValueMemberS{Value: snapshotSK},
	}
}

// Save writes the snapshot unless the table already holds a newer version
// of the same flow
func (r *FlowRepository) Save(ctx context.Context, snapshot aggregates.FlowSnapshot) error {
	av, err := attributevalue.MarshalMap(toItem(snapshot))
	if err != nil {
		return pkgerrors.NewInternalError("failed to marshal flow").WithCause(err)
	}

	cond := expression.Or(
		expression.AttributeNotExists(expression.Name("PK")),
		expression.Name("Version").LessThanEqual(expression.Value(snapshot.Version)),
	)
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return pkgerrors.NewInternalError("failed to build save condition").WithCause(err)
	}

	input := &dynamodb.PutItemInput{
		TableName:                 aws.String(r.tableName),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	if _, err := r.client.PutItem(ctx, input); err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			r.logger.Warn("Refusing to overwrite newer saved flow",
				zap.String("flowID", snapshot.FlowID.String()),
				zap.Int("version", snapshot.Version),
			)
			return pkgerrors.NewConflictError("a newer version of this flow has already been saved").
				WithDetails(map[string]interface{}{"flow_id": snapshot.FlowID.String(), "version": snapshot.Version})
		}

		r.logger.Error("Failed to save flow to DynamoDB",
			zap.Error(err),
			zap.String("flowID", snapshot.FlowID.String()),
		)
		return pkgerrors.NewDatabaseError("save flow", err)
	}

	r.logger.Debug("Saved flow to DynamoDB",
		zap.String("flowID", snapshot.FlowID.String()),
		zap.Int("version", snapshot.Version),
		zap.Int("nodeCount", len(snapshot.Nodes)),
		zap.Int("edgeCount", len(snapshot.Edges)),
	)
	return nil
}

// Load reads the last saved snapshot of a flow
func (r *FlowRepository) Load(ctx context.Context, id valueobjects.FlowID) (aggregates.FlowSnapshot, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            flowKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return aggregates.FlowSnapshot{}, pkgerrors.NewDatabaseError("load flow", err)
	}
	if len(result.Item) == 0 {
		return aggregates.FlowSnapshot{}, pkgerrors.NewNotFoundError("saved flow")
	}

	var item flowItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return aggregates.FlowSnapshot{}, pkgerrors.NewInternalError("failed to unmarshal flow").WithCause(err)
	}

	snapshot, err := fromItem(item)
	if err != nil {
		return aggregates.FlowSnapshot{}, pkgerrors.NewInternalError(fmt.Sprintf("saved flow %s is corrupt", id)).WithCause(err)
	}
	return snapshot, nil
}

// Delete removes a saved flow
func (r *FlowRepository) Delete(ctx context.Context, id valueobjects.FlowID) error {
	if _, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       flowKey(id),
	}); err != nil {
		return pkgerrors.NewDatabaseError("delete flow", err)
	}

	r.logger.Debug("Flow deleted", zap.String("flowID", id.String()))
	return nil
}

func toItem(s aggregates.FlowSnapshot) flowItem {
	item := flowItem{
		PK:         flowKeyPrefix + s.FlowID.String(),
		SK:         snapshotSK,
		EntityType: entityFlow,
		FlowID:     s.FlowID.String(),
		Version:    s.Version,
		NodeCount:  len(s.Nodes),
		EdgeCount:  len(s.Edges),
		Nodes:      make([]nodeRecord, 0, len(s.Nodes)),
		Edges:      make([]edgeRecord, 0, len(s.Edges)),
		CreatedAt:  utils.FormatTimestamp(s.CreatedAt),
		SavedAt:    utils.FormatTimestamp(s.SavedAt),
	}
	for _, n := range s.Nodes {
		item.Nodes = append(item.Nodes, nodeRecord{
			ID:    n.ID.String(),
			Kind:  string(n.Kind),
			Label: n.Label,
			X:     n.Position.X,
			Y:     n.Position.Y,
		})
	}
	for _, e := range s.Edges {
		item.Edges = append(item.Edges, edgeRecord{
			ID:           e.ID.String(),
			Source:       e.Source.String(),
			SourceHandle: e.SourceHandle,
			Target:       e.Target.String(),
			TargetHandle: e.TargetHandle,
		})
	}
	return item
}

func fromItem(item flowItem) (aggregates.FlowSnapshot, error) {
	createdAt, err := utils.ParseTimestamp(item.CreatedAt)
	if err != nil {
		return aggregates.FlowSnapshot{}, fmt.Errorf("created at: %w", err)
	}
	savedAt, err := utils.ParseTimestamp(item.SavedAt)
	if err != nil {
		return aggregates.FlowSnapshot{}, fmt.Errorf("saved at: %w", err)
	}

	snapshot := aggregates.FlowSnapshot{
		FlowID:    valueobjects.FlowID(item.FlowID),
		Version:   item.Version,
		Nodes:     make([]entities.NodeSnapshot, 0, len(item.Nodes)),
		Edges:     make([]entities.Edge, 0, len(item.Edges)),
		CreatedAt: createdAt,
		SavedAt:   savedAt,
	}

	for _, n := range item.Nodes {
		id, err := valueobjects.NewNodeIDFromString(n.ID)
		if err != nil {
			return aggregates.FlowSnapshot{}, fmt.Errorf("node id: %w", err)
		}
		kind, err := entities.ParseNodeKind(n.Kind)
		if err != nil {
			return aggregates.FlowSnapshot{}, fmt.Errorf("node %s: %w", n.ID, err)
		}
		snapshot.Nodes = append(snapshot.Nodes, entities.NodeSnapshot{
			ID:       id,
			Kind:     kind,
			Position: valueobjects.Position{X: n.X, Y: n.Y},
			Label:    n.Label,
		})
	}

	for _, e := range item.Edges {
		id, err := valueobjects.NewEdgeIDFromString(e.ID)
		if err != nil {
			return aggregates.FlowSnapshot{}, fmt.Errorf("edge id: %w", err)
		}
		source, err := valueobjects.NewNodeIDFromString(e.Source)
		if err != nil {
			return aggregates.FlowSnapshot{}, fmt.Errorf("edge %s source: %w", e.ID, err)
		}
		target, err := valueobjects.NewNodeIDFromString(e.Target)
		if err != nil {
			return aggregates.FlowSnapshot{}, fmt.Errorf("edge %s target: %w", e.ID, err)
		}
		snapshot.Edges = append(snapshot.Edges, entities.Edge{
			ID:           id,
			Source:       source,
			SourceHandle: e.SourceHandle,
			Target:       target,
			TargetHandle: e.TargetHandle,
		})
	}

	return snapshot, nil
}
