// Package dynamodb stores identities in a DynamoDB table keyed by uuid.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/kozaktomas/face-roster/internal/database"
)

var (
	_ database.IdentityWriter  = (*Store)(nil)
	_ database.IdentityDeduper = (*Store)(nil)
)

// fingerprintPrefix marks items that reserve a fingerprint for its owning identity.
const fingerprintPrefix = "fp#"

// API is the subset of the DynamoDB client used by Store.
type API interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// item mirrors the table layout. Unregistered identities carry no name or grade attributes.
type item struct {
	UUID         string    `dynamodbav:"uuid"`
	Photo        string    `dynamodbav:"photo"`
	Fingerprint  string    `dynamodbav:"fingerprint,omitempty"`
	FirstName    *string   `dynamodbav:"firstName,omitempty"`
	LastName     *string   `dynamodbav:"lastName,omitempty"`
	Grade        *int      `dynamodbav:"grade,omitempty"`
	IsRegistered bool      `dynamodbav:"isRegistered"`
	CreatedAt    time.Time `dynamodbav:"createdAt"`
}

// fingerprintItem reserves a fingerprint. It shares the table and key attribute with identities.
type fingerprintItem struct {
	UUID  string `dynamodbav:"uuid"`
	Owner string `dynamodbav:"owner"`
}

func fingerprintKey(fingerprint string) string {
	return fingerprintPrefix + fingerprint
}

func isFingerprintKey(uuid string) bool {
	return strings.HasPrefix(uuid, fingerprintPrefix)
}

func fromIdentity(identity *database.StoredIdentity) item {
	return item{
		UUID:         identity.UUID,
		Photo:        identity.Photo,
		Fingerprint:  identity.Fingerprint,
		FirstName:    identity.FirstName,
		LastName:     identity.LastName,
		Grade:        identity.Grade,
		IsRegistered: identity.IsRegistered,
		CreatedAt:    identity.CreatedAt,
	}
}

func (it item) identity() database.StoredIdentity {
	return database.StoredIdentity{
		UUID:         it.UUID,
		Photo:        it.Photo,
		Fingerprint:  it.Fingerprint,
		FirstName:    it.FirstName,
		LastName:     it.LastName,
		Grade:        it.Grade,
		IsRegistered: it.IsRegistered,
		CreatedAt:    it.CreatedAt,
	}
}

// Store implements database.IdentityWriter on a DynamoDB table.
// Scan order follows the table's partition layout and cursors are the last evaluated uuid.
// Fingerprints are reserved by fp#<fingerprint> items written in the same transaction as the identity.
type Store struct {
	client API
	table  string
}

// NewStore creates a store on the given table.
func NewStore(client API, table string) *Store {
	return &Store{client: client, table: table}
}

// NewStoreFromConfig builds the DynamoDB client from a loaded AWS configuration.
func NewStoreFromConfig(cfg aws.Config, table string) *Store {
	return NewStore(dynamodb.NewFromConfig(cfg), table)
}

func uuidKey(uuid string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"uuid": &types.AttributeValueMemberS{Value: uuid}}
}

// ScanPage reads one Scan page. Limit counts evaluated items, so a page may hold fewer
// identities than requested while a continuation cursor is still returned.
func (s *Store) ScanPage(ctx context.Context, cursor string, limit int) (*database.IdentityPage, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(s.table),
		Limit:     aws.Int32(int32(database.NormalizeLimit(limit))),
	}
	if cursor != "" {
		input.ExclusiveStartKey = uuidKey(cursor)
	}

	out, err := s.client.Scan(ctx, input)
	if err != nil {
		return nil, database.StoreError("scan table", err)
	}

	var items []item
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, database.StoreError("unmarshal identities", err)
	}

	page := &database.IdentityPage{Identities: make([]database.StoredIdentity, 0, len(items))}
	for _, it := range items {
		if isFingerprintKey(it.UUID) {
			continue
		}
		page.Identities = append(page.Identities, it.identity())
	}

	if len(out.LastEvaluatedKey) > 0 {
		key, ok := out.LastEvaluatedKey["uuid"].(*types.AttributeValueMemberS)
		if !ok {
			return nil, database.StoreError("scan table", errors.New("last evaluated key has no uuid"))
		}
		page.NextCursor = key.Value
	}
	return page, nil
}

// Get retrieves an identity by UUID, returns nil if not found
func (s *Store) Get(ctx context.Context, uuid string) (*database.StoredIdentity, error) {
	if isFingerprintKey(uuid) {
		return nil, nil
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            uuidKey(uuid),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, database.StoreError("get identity", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, database.StoreError("unmarshal identity", err)
	}
	identity := it.identity()
	return &identity, nil
}

// Insert puts a new item, refusing to overwrite an existing uuid.
func (s *Store) Insert(ctx context.Context, identity *database.StoredIdentity) error {
	av, err := attributevalue.MarshalMap(fromIdentity(identity))
	if err != nil {
		return database.StoreError("marshal identity", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(s.table),
		Item:                     av,
		ConditionExpression:      aws.String("attribute_not_exists(#uuid)"),
		ExpressionAttributeNames: map[string]string{"#uuid": "uuid"},
	})
	if err != nil {
		return database.StoreError("put identity", err)
	}
	return nil
}

// InsertIfAbsent writes the identity and its fingerprint reservation in one transaction.
// When the reservation already exists the transaction is canceled and the reserving identity is returned.
func (s *Store) InsertIfAbsent(ctx context.Context, identity *database.StoredIdentity) (*database.StoredIdentity, bool, error) {
	if identity.Fingerprint == "" {
		if err := s.Insert(ctx, identity); err != nil {
			return nil, false, err
		}
		stored := *identity
		return &stored, true, nil
	}

	identityAV, err := attributevalue.MarshalMap(fromIdentity(identity))
	if err != nil {
		return nil, false, database.StoreError("marshal identity", err)
	}
	reservationAV, err := attributevalue.MarshalMap(fingerprintItem{
		UUID:  fingerprintKey(identity.Fingerprint),
		Owner: identity.UUID,
	})
	if err != nil {
		return nil, false, database.StoreError("marshal fingerprint", err)
	}

	names := map[string]string{"#uuid": "uuid"}
	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:                aws.String(s.table),
				Item:                     identityAV,
				ConditionExpression:      aws.String("attribute_not_exists(#uuid)"),
				ExpressionAttributeNames: names,
			}},
			{Put: &types.Put{
				TableName:                aws.String(s.table),
				Item:                     reservationAV,
				ConditionExpression:      aws.String("attribute_not_exists(#uuid)"),
				ExpressionAttributeNames: names,
			}},
		},
	})
	if err == nil {
		stored := *identity
		return &stored, true, nil
	}
	if !reservationTaken(err) {
		return nil, false, database.StoreError("put identity", err)
	}

	owner, err := s.fingerprintOwner(ctx, identity.Fingerprint)
	if err != nil {
		return nil, false, err
	}
	return owner, false, nil
}

// reservationTaken reports whether a transaction was canceled by the fingerprint item's condition.
func reservationTaken(err error) bool {
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) || len(canceled.CancellationReasons) < 2 {
		return false
	}
	return aws.ToString(canceled.CancellationReasons[1].Code) == "ConditionalCheckFailed"
}

func (s *Store) fingerprintOwner(ctx context.Context, fingerprint string) (*database.StoredIdentity, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            uuidKey(fingerprintKey(fingerprint)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, database.StoreError("get fingerprint", err)
	}
	if len(out.Item) == 0 {
		return nil, database.StoreError("get fingerprint", fmt.Errorf("reservation for %s disappeared", fingerprint))
	}
	var reservation fingerprintItem
	if err := attributevalue.UnmarshalMap(out.Item, &reservation); err != nil {
		return nil, database.StoreError("unmarshal fingerprint", err)
	}

	owner, err := s.Get(ctx, reservation.Owner)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, database.StoreError("get fingerprint owner", fmt.Errorf("fingerprint %s reserved by missing identity %q", fingerprint, reservation.Owner))
	}
	return owner, nil
}

// Register sets the registration attributes on an existing item.
func (s *Store) Register(ctx context.Context, uuid string, reg database.Registration) (*database.StoredIdentity, error) {
	if isFingerprintKey(uuid) {
		return nil, database.ErrNotFound
	}
	values, err := attributevalue.MarshalMap(map[string]any{
		":first":      reg.FirstName,
		":last":       reg.LastName,
		":grade":      reg.Grade,
		":registered": true,
	})
	if err != nil {
		return nil, database.StoreError("marshal registration", err)
	}

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.table),
		Key:                 uuidKey(uuid),
		UpdateExpression:    aws.String("SET firstName = :first, lastName = :last, grade = :grade, isRegistered = :registered"),
		ConditionExpression: aws.String("attribute_exists(#uuid)"),
		ExpressionAttributeNames: map[string]string{
			"#uuid": "uuid",
		},
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return nil, database.ErrNotFound
		}
		return nil, database.StoreError("register identity", err)
	}

	var it item
	if err := attributevalue.UnmarshalMap(out.Attributes, &it); err != nil {
		return nil, database.StoreError("unmarshal identity", fmt.Errorf("registered %s: %w", uuid, err))
	}
	identity := it.identity()
	return &identity, nil
}
