package s3

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/docgo/persistence"
)

// ErrConcurrentModification is returned when a concurrent write is detected.
var ErrConcurrentModification = errors.New("concurrent modification detected")

// DDBClient is the interface for DynamoDB operations.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// VersionedStore wraps a Store with a DynamoDB commit log, providing
// the atomic compare-and-swap semantics that S3 lacks. Multiple writers
// can safely coordinate without losing saves.
//
// Each Save uploads the collection to a versioned key
// (`<prefix>/<collection>.v<N>.json`) and then commits the version with
// a DynamoDB conditional write; a losing writer gets
// ErrConcurrentModification instead of silently clobbering the winner.
// Load resolves the latest committed version before reading.
//
// Table schema:
//   - Partition key: base_uri (string) - "s3://bucket/prefix/collection"
//   - Sort key: version (number) - monotonically increasing version
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name docgo-commits \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type VersionedStore struct {
	store     *Store
	ddbClient DDBClient
	tableName string
}

// NewVersionedStore wraps store with a DynamoDB commit log.
func NewVersionedStore(store *Store, ddbClient DDBClient, tableName string) *VersionedStore {
	return &VersionedStore{
		store:     store,
		ddbClient: ddbClient,
		tableName: tableName,
	}
}

func (s *VersionedStore) baseURI(collection string) string {
	return fmt.Sprintf("s3://%s/%s", s.store.bucket, s.store.key(collection))
}

// versionedName is the collection name a version is stored under; the
// wrapped store appends its usual ".json" suffix.
func (s *VersionedStore) versionedName(collection string, version uint64) string {
	return fmt.Sprintf("%s.v%d", collection, version)
}

// Load reads the latest committed version of a collection.
func (s *VersionedStore) Load(ctx context.Context, collection string) (persistence.Collection, error) {
	version, objectKey, err := s.latestVersion(ctx, collection)
	if err != nil {
		return nil, persistence.NewErrLoad(collection, err)
	}
	if version == 0 || objectKey == "" {
		return nil, persistence.ErrNotFound
	}
	return s.store.Load(ctx, objectKey)
}

// Save uploads the collection under the next version and commits it.
// Returns ErrConcurrentModification when another writer committed the
// same version first; the caller should reload and retry.
func (s *VersionedStore) Save(ctx context.Context, collection string, docs persistence.Collection) error {
	currentVersion, _, err := s.latestVersion(ctx, collection)
	if err != nil {
		return persistence.NewErrSave(collection, err)
	}
	newVersion := currentVersion + 1

	objectKey := s.versionedName(collection, newVersion)
	if err := s.store.Save(ctx, objectKey, docs); err != nil {
		return err
	}

	if err := s.commitVersion(ctx, collection, newVersion, objectKey); err != nil {
		return persistence.NewErrSave(collection, err)
	}
	return nil
}

// Delete commits a tombstone version pointing at no object.
func (s *VersionedStore) Delete(ctx context.Context, collection string) error {
	currentVersion, objectKey, err := s.latestVersion(ctx, collection)
	if err != nil {
		return persistence.NewErrSave(collection, err)
	}
	if currentVersion == 0 || objectKey == "" {
		// Never committed, or already tombstoned.
		return nil
	}
	if err := s.commitVersion(ctx, collection, currentVersion+1, ""); err != nil {
		return persistence.NewErrSave(collection, err)
	}
	return nil
}

// versionSuffix matches the ".v<N>" tail of a versioned object name.
var versionSuffix = regexp.MustCompile(`\.v\d+$`)

// List lists collections from the underlying store. Versioned object
// names collapse to their collection name.
func (s *VersionedStore) List(ctx context.Context) ([]string, error) {
	names, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(names))
	collections := make([]string, 0, len(names))
	for _, name := range names {
		base := versionSuffix.ReplaceAllString(name, "")
		if _, ok := seen[base]; ok {
			continue
		}
		seen[base] = struct{}{}
		collections = append(collections, base)
	}
	sort.Strings(collections)
	return collections, nil
}

// Close is a no-op; the underlying clients are owned by the caller.
func (s *VersionedStore) Close() error { return nil }

// latestVersion queries DynamoDB for the latest committed version. A
// version of 0 means no commit exists yet. An empty object key marks a
// tombstone: the collection was deleted at that version, but the
// counter keeps advancing so later saves never reuse a committed
// version number.
func (s *VersionedStore) latestVersion(ctx context.Context, collection string) (uint64, string, error) {
	resp, err := s.ddbClient.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: s.baseURI(collection)},
		},
		ScanIndexForward: aws.Bool(false), // Descending order
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("failed to query DynamoDB: %w", err)
	}

	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("invalid version attribute in DynamoDB")
	}
	keyAttr, ok := item["object_key"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("invalid object_key attribute in DynamoDB")
	}

	var version uint64
	if _, err := fmt.Sscanf(versionAttr.Value, "%d", &version); err != nil {
		return 0, "", fmt.Errorf("failed to parse version: %w", err)
	}

	return version, keyAttr.Value, nil
}

// commitVersion atomically records a new version using a DynamoDB
// conditional write; only succeeds if this version does not exist yet.
func (s *VersionedStore) commitVersion(ctx context.Context, collection string, version uint64, objectKey string) error {
	_, err := s.ddbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"base_uri":   &types.AttributeValueMemberS{Value: s.baseURI(collection)},
			"version":    &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", version)},
			"object_key": &types.AttributeValueMemberS{Value: objectKey},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrConcurrentModification
		}
		return fmt.Errorf("failed to commit version to DynamoDB: %w", err)
	}
	return nil
}
