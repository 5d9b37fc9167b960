package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/vitwit/paygate/types"
)

const (
	DefaultTableName = "paygate-payments"

	attrPK     = "pk"
	attrTTL    = "ttl"
	attrStatus = "status"
)

// DynamoAPI is the subset of *dynamodb.Client used by DynamoStore.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// TableAPI is what EnsureTable needs to provision the table.
type TableAPI interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	UpdateTimeToLive(ctx context.Context, params *dynamodb.UpdateTimeToLiveInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error)
}

// DynamoConfig locates the DynamoDB table.
type DynamoConfig struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	TableName       string
}

// NewDynamoClient builds a DynamoDB client. Static credentials are used when
// given, which is what DynamoDB Local expects; otherwise the default AWS
// credential chain applies.
func NewDynamoClient(ctx context.Context, cfg DynamoConfig) (*dynamodb.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// paymentItem is the DynamoDB shape of a PaymentRecord.
//
// Table requirements:
//   - PK: pk (string), "payment:<id>"
//   - TTL attribute: ttl (epoch seconds)
type paymentItem struct {
	PK           string `dynamodbav:"pk"`
	PaymentID    string `dynamodbav:"payment_id"`
	Merchant     string `dynamodbav:"merchant"`
	Token        string `dynamodbav:"token"`
	Amount       string `dynamodbav:"amount"`
	Metadata     string `dynamodbav:"metadata"`
	PayerAddress string `dynamodbav:"payer_address,omitempty"`
	Status       string `dynamodbav:"status"`
	CreatedAt    string `dynamodbav:"created_at"`
	ExpiresAt    string `dynamodbav:"expires_at"`
	ExecutedAt   string `dynamodbav:"executed_at,omitempty"`
	TTL          int64  `dynamodbav:"ttl"`
}

// DynamoStore persists records in a DynamoDB table with native TTL.
// DynamoDB removes expired items lazily, so reads also treat ttl <= now as
// absent.
type DynamoStore struct {
	ddb       DynamoAPI
	tableName string
	opts      options
}

var _ Store = (*DynamoStore)(nil)

func NewDynamoStore(ddb DynamoAPI, tableName string, opts ...Option) *DynamoStore {
	if tableName == "" {
		tableName = DefaultTableName
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &DynamoStore{ddb: ddb, tableName: tableName, opts: o}
}

func (s *DynamoStore) Put(ctx context.Context, record *types.PaymentRecord, ttl time.Duration) error {
	if err := checkRecord(record, ttl); err != nil {
		return err
	}

	it := toPaymentItem(record, expiresAtEpoch(s.opts.now().Add(ttl)))
	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return types.NewError(types.ErrStoreError, "failed to marshal payment record", err)
	}

	_, err = s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return types.NewError(types.ErrStoreError, "failed to put payment record", err)
	}
	return nil
}

func (s *DynamoStore) Get(ctx context.Context, paymentID string) (*types.PaymentRecord, error) {
	out, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            keyOf(paymentID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, types.NewError(types.ErrStoreError, "failed to get payment record", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	var it paymentItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, types.NewError(types.ErrInvalidRecord, "failed to unmarshal payment record", err)
	}
	if !s.alive(it.TTL) {
		return nil, ErrNotFound
	}

	rec, err := fromPaymentItem(it)
	if err != nil {
		return nil, err
	}
	return readBack(rec)
}

func (s *DynamoStore) ListByPrefix(ctx context.Context, prefix string) ([]Entry, error) {
	p := dynamodb.NewScanPaginator(s.ddb, &dynamodb.ScanInput{
		TableName:        aws.String(s.tableName),
		FilterExpression: aws.String("begins_with(#pk, :prefix) AND #ttl > :now"),
		ExpressionAttributeNames: map[string]string{
			"#pk":  attrPK,
			"#ttl": attrTTL,
		},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":prefix": &ddbtypes.AttributeValueMemberS{Value: prefix},
			":now":    &ddbtypes.AttributeValueMemberN{Value: strconv.FormatInt(s.opts.now().Unix(), 10)},
		},
	})

	var out []Entry
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, types.NewError(types.ErrStoreError, "failed to scan payment records", err)
		}

		for _, raw := range page.Items {
			var it paymentItem
			if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
				s.opts.logger.Warn("skipping malformed payment record", map[string]any{"error": err.Error()})
				continue
			}
			if !strings.HasPrefix(it.PK, prefix) || !s.alive(it.TTL) {
				continue
			}

			rec, err := fromPaymentItem(it)
			if err == nil {
				rec, err = readBack(rec)
			}
			if err != nil {
				s.opts.logger.Warn("skipping malformed payment record", map[string]any{"key": it.PK, "error": err.Error()})
				continue
			}
			out = append(out, Entry{Key: it.PK, Record: rec})
		}
	}
	return out, nil
}

func (s *DynamoStore) CompareAndSwapStatus(ctx context.Context, paymentID string, from, to types.PaymentStatus, at time.Time) (*types.PaymentRecord, error) {
	out, err := s.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 keyOf(paymentID),
		UpdateExpression:    aws.String("SET #status = :to, #executed_at = :at"),
		ConditionExpression: aws.String("attribute_exists(#pk) AND #status = :from AND #ttl > :now"),
		ExpressionAttributeNames: map[string]string{
			"#pk":          attrPK,
			"#ttl":         attrTTL,
			"#status":      attrStatus,
			"#executed_at": "executed_at",
		},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":from": &ddbtypes.AttributeValueMemberS{Value: string(from)},
			":to":   &ddbtypes.AttributeValueMemberS{Value: string(to)},
			":at":   &ddbtypes.AttributeValueMemberS{Value: at.UTC().Format(time.RFC3339Nano)},
			":now":  &ddbtypes.AttributeValueMemberN{Value: strconv.FormatInt(s.opts.now().Unix(), 10)},
		},
		ReturnValues: ddbtypes.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, notPending(paymentID, from)
		}
		return nil, types.NewError(types.ErrStoreError, "failed to update payment status", err)
	}

	var it paymentItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &it); err != nil {
		return nil, types.NewError(types.ErrInvalidRecord, "failed to unmarshal payment record", err)
	}
	rec, err := fromPaymentItem(it)
	if err != nil {
		return nil, err
	}
	return readBack(rec)
}

func (s *DynamoStore) alive(ttl int64) bool {
	return ttl > s.opts.now().Unix()
}

// EnsureTable creates the table with on-demand billing and enables TTL on
// the ttl attribute when it does not exist yet.
func EnsureTable(ctx context.Context, api TableAPI, tableName string, maxWait time.Duration) error {
	_, err := api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(tableName)})
	if err == nil {
		return nil
	}
	var notFound *ddbtypes.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("describe table %s: %w", tableName, err)
	}

	_, err = api.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(tableName),
		AttributeDefinitions: []ddbtypes.AttributeDefinition{
			{AttributeName: aws.String(attrPK), AttributeType: ddbtypes.ScalarAttributeTypeS},
		},
		KeySchema: []ddbtypes.KeySchemaElement{
			{AttributeName: aws.String(attrPK), KeyType: ddbtypes.KeyTypeHash},
		},
		BillingMode: ddbtypes.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("create table %s: %w", tableName, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(api)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(tableName)}, maxWait); err != nil {
		return fmt.Errorf("wait for table %s: %w", tableName, err)
	}

	_, err = api.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(tableName),
		TimeToLiveSpecification: &ddbtypes.TimeToLiveSpecification{
			AttributeName: aws.String(attrTTL),
			Enabled:       aws.Bool(true),
		},
	})
	if err != nil {
		return fmt.Errorf("enable ttl on %s: %w", tableName, err)
	}
	return nil
}

func keyOf(paymentID string) map[string]ddbtypes.AttributeValue {
	return map[string]ddbtypes.AttributeValue{
		attrPK: &ddbtypes.AttributeValueMemberS{Value: Key(paymentID)},
	}
}

// expiresAtEpoch rounds up so an item never expires before its deadline.
func expiresAtEpoch(deadline time.Time) int64 {
	sec := deadline.Unix()
	if deadline.Nanosecond() > 0 {
		sec++
	}
	return sec
}

func toPaymentItem(r *types.PaymentRecord, ttl int64) paymentItem {
	it := paymentItem{
		PK:           Key(r.PaymentID),
		PaymentID:    r.PaymentID,
		Merchant:     r.Merchant,
		Token:        r.Token,
		Amount:       r.Amount,
		Metadata:     r.Metadata,
		PayerAddress: r.PayerAddress,
		Status:       string(r.Status),
		CreatedAt:    r.CreatedAt.UTC().Format(time.RFC3339Nano),
		ExpiresAt:    r.ExpiresAt.UTC().Format(time.RFC3339Nano),
		TTL:          ttl,
	}
	if r.ExecutedAt != nil {
		it.ExecutedAt = r.ExecutedAt.UTC().Format(time.RFC3339Nano)
	}
	return it
}

func fromPaymentItem(it paymentItem) (*types.PaymentRecord, error) {
	created, err := time.Parse(time.RFC3339Nano, it.CreatedAt)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRecord, fmt.Sprintf("record %s: created_at", it.PaymentID), err)
	}
	expires, err := time.Parse(time.RFC3339Nano, it.ExpiresAt)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRecord, fmt.Sprintf("record %s: expires_at", it.PaymentID), err)
	}

	rec := &types.PaymentRecord{
		PaymentID:    it.PaymentID,
		Merchant:     it.Merchant,
		Token:        it.Token,
		Amount:       it.Amount,
		Metadata:     it.Metadata,
		PayerAddress: it.PayerAddress,
		Status:       types.PaymentStatus(it.Status),
		CreatedAt:    created,
		ExpiresAt:    expires,
	}

	if it.ExecutedAt != "" {
		executed, err := time.Parse(time.RFC3339Nano, it.ExecutedAt)
		if err != nil {
			return nil, types.NewError(types.ErrInvalidRecord, fmt.Sprintf("record %s: executed_at", it.PaymentID), err)
		}
		rec.ExecutedAt = &executed
	}

	if Key(rec.PaymentID) != it.PK {
		return nil, types.NewError(types.ErrInvalidRecord, fmt.Sprintf("record %s stored under %s", it.PaymentID, it.PK), nil)
	}
	return rec, nil
}
