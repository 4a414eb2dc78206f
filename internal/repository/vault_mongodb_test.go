package repository

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const unreachableMongoURI = "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=200&connectTimeoutMS=200"

func TestPingOrDisconnectReleasesClient(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(unreachableMongoURI))
	require.NoError(t, err)

	assert.Error(t, pingOrDisconnect(ctx, client))
	assert.ErrorIs(t, client.Disconnect(ctx), mongo.ErrClientDisconnected, "client already released")
}

func TestNewMongoDBVaultStoreUnreachable(t *testing.T) {
	store, err := NewMongoDBVaultStore(unreachableMongoURI, "osrs_vault_test")
	assert.Error(t, err)
	assert.Nil(t, store)
}
