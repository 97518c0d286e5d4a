package testing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

// CreateTestContext creates a context with a timeout for tests
func CreateTestContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// SetupMongoDatabase starts a container and returns a fresh database. The container
// is terminated when the test ends.
func SetupMongoDatabase(t *testing.T, name string) *mongo.Database {
	t.Helper()
	ctx := context.Background()

	container, err := NewMongoDBContainer(ctx)
	require.NoError(t, err)

	client, err := container.GetClient(ctx)
	if err != nil {
		_ = container.Close(ctx)
		require.NoError(t, err)
	}

	t.Cleanup(func() {
		_ = client.Disconnect(ctx)
		_ = container.Close(ctx)
	})

	return client.Database(name)
}
