package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"osrs-vault-api/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDBVaultStore implements VaultStore using MongoDB.
// RecordSnapshot uses multi-document transactions and therefore needs a replica set.
type MongoDBVaultStore struct {
	client    *mongo.Client
	db        *mongo.Database
	accounts  *mongo.Collection
	snapshots *mongo.Collection
	counters  *mongo.Collection
	sequences *mongo.Collection
}

// NewMongoDBVaultStore connects to MongoDB and prepares the vault collections.
func NewMongoDBVaultStore(uri, database string) (*MongoDBVaultStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(20).
		SetMaxConnIdleTime(5 * time.Minute).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := pingOrDisconnect(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	r := &MongoDBVaultStore{
		client:    client,
		db:        db,
		accounts:  db.Collection("vault_accounts"),
		snapshots: db.Collection("vault_snapshots"),
		counters:  db.Collection("vault_counters"),
		sequences: db.Collection("vault_sequences"),
	}

	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{r.accounts, mongo.IndexModel{
			Keys:    bson.D{{Key: "account_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{r.snapshots, mongo.IndexModel{
			Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "approved", Value: 1}, {Key: "_id", Value: -1}},
		}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, idx.model); err != nil {
			log.Printf("[MongoDB] Warning: failed to create index: %v", err)
		}
	}

	log.Printf("[MongoDB] Connected to %s", database)
	return r, nil
}

// pingOrDisconnect pings client and releases it when the server is unreachable.
func pingOrDisconnect(ctx context.Context, client *mongo.Client) error {
	err := client.Ping(ctx, nil)
	if err == nil {
		return nil
	}
	if derr := client.Disconnect(context.Background()); derr != nil {
		log.Printf("[MongoDB] Warning: disconnect after failed ping: %v", derr)
	}
	return err
}

type accountDocument struct {
	ID          int64  `bson:"_id"`
	AccountHash string `bson:"account_hash"`
	Label       string `bson:"label"`
	CreatedAt   int64  `bson:"created_at"`
}

type snapshotDocument struct {
	ID          int64  `bson:"_id"`
	AccountID   int64  `bson:"account_id"`
	TsUnix      int64  `bson:"ts_unix"`
	Nonce       string `bson:"nonce"`
	PayloadHash string `bson:"payload_hash"`
	RawJSON     string `bson:"raw_json"`
	Approved    bool   `bson:"approved"`
}

type counterDocument struct {
	Key       string `bson:"_id"`
	Count     int64  `bson:"count"`
	UpdatedAt int64  `bson:"updated_at"`
}

// nextID allocates a monotonic id from the sequences collection.
func (r *MongoDBVaultStore) nextID(ctx context.Context, name string) (int64, error) {
	var seq struct {
		Value int64 `bson:"value"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := r.sequences.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		opts,
	).Decode(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s id: %w", name, err)
	}
	return seq.Value, nil
}

// AppendSnapshot stores snap and returns its id.
func (r *MongoDBVaultStore) AppendSnapshot(ctx context.Context, snap *model.Snapshot) (int64, error) {
	return r.RecordSnapshot(ctx, snap, "", 0)
}

// RecordSnapshot appends snap and increments counterKey inside one transaction.
func (r *MongoDBVaultStore) RecordSnapshot(ctx context.Context, snap *model.Snapshot, counterKey string, delta int64) (int64, error) {
	if delta < 0 {
		return 0, ErrNegativeDelta
	}

	sess, err := r.client.StartSession()
	if err != nil {
		return 0, fmt.Errorf("failed to start session: %w", err)
	}
	defer sess.EndSession(ctx)

	result, err := sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		n, err := r.accounts.CountDocuments(sc, bson.M{"_id": snap.AccountID})
		if err != nil {
			return nil, fmt.Errorf("failed to check account: %w", err)
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: id=%d", ErrAccountNotFound, snap.AccountID)
		}

		id, err := r.nextID(sc, "snapshots")
		if err != nil {
			return nil, err
		}

		doc := snapshotDocument{
			ID:          id,
			AccountID:   snap.AccountID,
			TsUnix:      snap.TimestampUnix,
			Nonce:       snap.Nonce,
			PayloadHash: snap.PayloadHash,
			RawJSON:     string(snap.RawPayload),
			Approved:    snap.Approved,
		}
		if _, err := r.snapshots.InsertOne(sc, doc); err != nil {
			return nil, fmt.Errorf("failed to insert snapshot: %w", err)
		}

		if delta > 0 && counterKey != "" {
			if _, err := r.incrementCounter(sc, counterKey, delta); err != nil {
				return nil, err
			}
		}
		return id, nil
	})
	if err != nil {
		return 0, err
	}

	id := result.(int64)
	snap.ID = id
	return id, nil
}

// LatestApproved returns the newest approved snapshot, optionally for one account.
func (r *MongoDBVaultStore) LatestApproved(ctx context.Context, accountID *int64) (*model.Snapshot, error) {
	filter := bson.M{"approved": true}
	if accountID != nil {
		filter["account_id"] = *accountID
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})

	var doc snapshotDocument
	err := r.snapshots.FindOne(ctx, filter, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	return &model.Snapshot{
		ID:            doc.ID,
		AccountID:     doc.AccountID,
		TimestampUnix: doc.TsUnix,
		Nonce:         doc.Nonce,
		PayloadHash:   doc.PayloadHash,
		RawPayload:    []byte(doc.RawJSON),
		Approved:      doc.Approved,
	}, nil
}

// GetCounter returns a counter value, 0 when absent.
func (r *MongoDBVaultStore) GetCounter(ctx context.Context, key string) (int64, error) {
	var doc counterDocument
	err := r.counters.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get counter %s: %w", key, err)
	}
	return doc.Count, nil
}

// IncrementCounter adds delta to a counter and returns the new value.
func (r *MongoDBVaultStore) IncrementCounter(ctx context.Context, key string, delta int64) (int64, error) {
	if delta < 0 {
		return 0, ErrNegativeDelta
	}
	if delta == 0 {
		return r.GetCounter(ctx, key)
	}
	return r.incrementCounter(ctx, key, delta)
}

func (r *MongoDBVaultStore) incrementCounter(ctx context.Context, key string, delta int64) (int64, error) {
	var doc counterDocument
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": key},
		bson.M{
			"$inc": bson.M{"count": delta},
			"$set": bson.M{"updated_at": time.Now().Unix()},
		},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter %s: %w", key, err)
	}
	return doc.Count, nil
}

// ResetCounter sets a counter to 0.
func (r *MongoDBVaultStore) ResetCounter(ctx context.Context, key string) error {
	_, err := r.counters.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"count": int64(0), "updated_at": time.Now().Unix()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to reset counter %s: %w", key, err)
	}
	return nil
}

// ResolveAccount finds an account id by hash.
func (r *MongoDBVaultStore) ResolveAccount(ctx context.Context, accountHash string) (int64, error) {
	var doc accountDocument
	err := r.accounts.FindOne(ctx, bson.M{"account_hash": accountHash}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, fmt.Errorf("%w: account_hash=%s", ErrAccountNotFound, accountHash)
		}
		return 0, fmt.Errorf("failed to resolve account: %w", err)
	}
	return doc.ID, nil
}

// EnsureAccount creates the account when missing and returns its id.
func (r *MongoDBVaultStore) EnsureAccount(ctx context.Context, accountHash, label string) (int64, error) {
	id, err := r.ResolveAccount(ctx, accountHash)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return 0, err
	}

	id, err = r.nextID(ctx, "accounts")
	if err != nil {
		return 0, err
	}
	_, err = r.accounts.InsertOne(ctx, accountDocument{
		ID:          id,
		AccountHash: accountHash,
		Label:       label,
		CreatedAt:   time.Now().Unix(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return r.ResolveAccount(ctx, accountHash)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to create account: %w", err)
	}
	return id, nil
}

// GetStats returns document counts and the last snapshot time.
func (r *MongoDBVaultStore) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})
	stats["driver"] = "mongodb"

	total, err := r.snapshots.EstimatedDocumentCount(ctx)
	if err != nil {
		return nil, err
	}
	stats["total_snapshots"] = total

	approved, err := r.snapshots.CountDocuments(ctx, bson.M{"approved": true})
	if err != nil {
		return nil, err
	}
	stats["approved_snapshots"] = approved

	var last snapshotDocument
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})
	if err := r.snapshots.FindOne(ctx, bson.M{}, opts).Decode(&last); err == nil {
		stats["last_snapshot"] = time.Unix(last.TsUnix, 0).UTC()
	}

	if accounts, err := r.accounts.EstimatedDocumentCount(ctx); err == nil {
		stats["accounts"] = accounts
	}

	return stats, nil
}

// Ping checks the MongoDB connection.
func (r *MongoDBVaultStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

// Close disconnects from MongoDB.
func (r *MongoDBVaultStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

// Ensure MongoDBVaultStore implements VaultStore
var _ VaultStore = (*MongoDBVaultStore)(nil)
