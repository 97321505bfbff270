package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"

	"github.com/Kubolab-io/takkapp-v1-sub000/config"
	"github.com/Kubolab-io/takkapp-v1-sub000/models"
)

// maxTransactItems is the DynamoDB limit for a single TransactWriteItems call.
const maxTransactItems = 100

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// DynamoStore maps every collection to a table named TablePrefix+collection
// with a string hash key "id".
type DynamoStore struct {
	Client      DynamoAPI
	TablePrefix string
	log         zerolog.Logger
}

func NewDynamoStore(client DynamoAPI, tablePrefix string, logger zerolog.Logger) *DynamoStore {
	return &DynamoStore{
		Client:      client,
		TablePrefix: tablePrefix,
		log:         logger.With().Str("component", "dynamo").Logger(),
	}
}

// NewDynamoClient loads AWS config for the store section. Static credentials and
// an endpoint override are only set for DynamoDB Local style setups.
func NewDynamoClient(ctx context.Context, cfg config.StoreConfig) (*dynamodb.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

func (ds *DynamoStore) table(collection string) string {
	return ds.TablePrefix + collection
}

func idKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}}
}

func (ds *DynamoStore) GetDocument(ctx context.Context, collection, id string) (models.Document, error) {
	output, err := ds.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(ds.table(collection)),
		Key:            idKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item from table '%s': %w", ds.table(collection), err)
	}
	if output.Item == nil {
		return nil, ErrDocumentNotFound
	}

	doc := models.Document{}
	if err := attributevalue.UnmarshalMap(output.Item, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return doc, nil
}

func (ds *DynamoStore) SetDocument(ctx context.Context, collection, id string, doc models.Document, merge bool) error {
	if merge {
		return ds.update(ctx, collection, id, doc, false)
	}

	item, err := marshalWithID(id, doc)
	if err != nil {
		return err
	}
	ds.log.Debug().Str("table", ds.table(collection)).Str("id", id).Msg("📥 Putting item")
	_, err = ds.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(ds.table(collection)),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put item in table '%s': %w", ds.table(collection), err)
	}
	return nil
}

func (ds *DynamoStore) UpdateDocument(ctx context.Context, collection, id string, fields models.Document) error {
	return ds.update(ctx, collection, id, fields, true)
}

// update issues one SET expression for all fields. mustExist guards the write
// with attribute_exists(id) so a missing document is reported, not created.
func (ds *DynamoStore) update(ctx context.Context, collection, id string, fields models.Document, mustExist bool) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k != "id" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)

	names := map[string]string{"#id": "id"}
	values := map[string]types.AttributeValue{}
	sets := make([]string, 0, len(keys))
	for i, k := range keys {
		av, err := attributevalue.Marshal(fields[k])
		if err != nil {
			return fmt.Errorf("failed to marshal field %q: %w", k, err)
		}
		name, placeholder := fmt.Sprintf("#f%d", i), fmt.Sprintf(":v%d", i)
		names[name] = k
		values[placeholder] = av
		sets = append(sets, name+" = "+placeholder)
	}

	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(ds.table(collection)),
		Key:                       idKey(id),
		UpdateExpression:          aws.String("SET " + strings.Join(sets, ", ")),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}
	if mustExist {
		input.ConditionExpression = aws.String("attribute_exists(#id)")
	} else {
		delete(names, "#id")
	}

	ds.log.Debug().Str("table", ds.table(collection)).Str("id", id).Str("expression", *input.UpdateExpression).Msg("🔄 Updating item")
	_, err := ds.Client.UpdateItem(ctx, input)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrDocumentNotFound
		}
		return fmt.Errorf("failed to update item in table '%s': %w", ds.table(collection), err)
	}
	return nil
}

func (ds *DynamoStore) QueryDocuments(ctx context.Context, collection string, filters []Filter) ([]models.Document, error) {
	input := &dynamodb.ScanInput{
		TableName:      aws.String(ds.table(collection)),
		ConsistentRead: aws.Bool(true),
	}
	if len(filters) > 0 {
		names := map[string]string{}
		values := map[string]types.AttributeValue{}
		conds := make([]string, 0, len(filters))
		for i, f := range filters {
			av, err := attributevalue.Marshal(f.Value)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal filter %q: %w", f.Field, err)
			}
			name, placeholder := fmt.Sprintf("#f%d", i), fmt.Sprintf(":v%d", i)
			names[name] = f.Field
			values[placeholder] = av
			conds = append(conds, name+" = "+placeholder)
		}
		input.FilterExpression = aws.String(strings.Join(conds, " AND "))
		input.ExpressionAttributeNames = names
		input.ExpressionAttributeValues = values
	}

	var docs []models.Document
	paginator := dynamodb.NewScanPaginator(ds.Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan table '%s': %w", ds.table(collection), err)
		}
		for _, item := range page.Items {
			doc := models.Document{}
			if err := attributevalue.UnmarshalMap(item, &doc); err != nil {
				return nil, fmt.Errorf("failed to unmarshal scan result: %w", err)
			}
			docs = append(docs, doc)
		}
	}
	ds.log.Debug().Str("table", ds.table(collection)).Int("count", len(docs)).Msg("✅ Scan finished")
	return docs, nil
}

// CommitBatch applies all puts in one TransactWriteItems call.
func (ds *DynamoStore) CommitBatch(ctx context.Context, writes []Write) error {
	if len(writes) == 0 {
		return nil
	}
	if len(writes) > maxTransactItems {
		return fmt.Errorf("batch of %d writes exceeds the transaction limit of %d", len(writes), maxTransactItems)
	}

	items := make([]types.TransactWriteItem, 0, len(writes))
	for _, w := range writes {
		item, err := marshalWithID(w.ID, w.Doc)
		if err != nil {
			return err
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName: aws.String(ds.table(w.Collection)),
				Item:      item,
			},
		})
	}

	_, err := ds.Client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		return fmt.Errorf("failed to commit batch of %d writes: %w", len(writes), err)
	}
	return nil
}

func marshalWithID(id string, doc models.Document) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(withID(id, doc))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}
	return item, nil
}
