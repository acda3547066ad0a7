package feed

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"solana-price-tracker/internal/domain"
)

func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	require.NoError(t, client.Ping(ctx).Err())

	return client, func() {
		client.Close()
		_ = container.Terminate(ctx)
	}
}

func TestRedisSource_Run(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	sub := &recordingSubmitter{}
	src := NewRedisSource(client, "test:feed", NewHandler(sub, false, nil), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx) }()

	// LPUSH + BRPOP keeps FIFO order
	require.NoError(t, client.LPush(context.Background(), "test:feed", `{"mint": "MintA"}`, `MintB-latest`).Err())

	require.Eventually(t, func() bool { return len(sub.submitted()) == 2 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []domain.TokenID{"MintA", "MintB"}, sub.submitted())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("redis source did not stop")
	}
}
