package cin_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinregistry/internal/cin"
	cinstore "cinregistry/internal/cin/store"
	"cinregistry/pkg/platform/circuit"
)

func claim(t *testing.T, ledger *cinstore.InMemoryLedger, prefix string, seq int) {
	t.Helper()
	require.NoError(t, ledger.Claim(context.Background(), cin.Issuance{
		Code:     fmt.Sprintf("%s%03d", prefix, seq),
		Prefix:   prefix,
		Sequence: seq,
		Kind:     cin.KindPrimary,
	}))
}

func TestStoreCounter(t *testing.T) {
	ctx := context.Background()
	ledger := cinstore.NewInMemoryLedger()
	c := cin.NewStoreCounter(ledger)

	n, err := c.Next(ctx, "SLOR")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = c.Next(ctx, "SLOR")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "store counter proposes until a claim lands")

	claim(t, ledger, "SLOR", 1)
	n, err = c.Next(ctx, "SLOR")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMemoryCounter(t *testing.T) {
	ctx := context.Background()
	ledger := cinstore.NewInMemoryLedger()
	claim(t, ledger, "SLOR", 4)
	c := cin.NewMemoryCounter(ledger)

	n, err := c.Next(ctx, "SLOR")
	require.NoError(t, err)
	assert.Equal(t, 5, n, "seeded from the ledger")

	n, err = c.Next(ctx, "SLOR")
	require.NoError(t, err)
	assert.Equal(t, 6, n, "increments without consulting the ledger")

	claim(t, ledger, "SLOR", 9)
	require.NoError(t, c.Resync(ctx, "SLOR"))
	n, err = c.Next(ctx, "SLOR")
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}

func TestRedisCounter(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds from the ledger then increments", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()

		ledger := cinstore.NewInMemoryLedger()
		claim(t, ledger, "SLOR", 3)
		c := cin.NewRedisCounter(client, ledger)

		n, err := c.Next(ctx, "SLOR")
		require.NoError(t, err)
		assert.Equal(t, 4, n)

		n, err = c.Next(ctx, "SLOR")
		require.NoError(t, err)
		assert.Equal(t, 5, n)

		got, err := mr.Get("cinregistry:cin:seq:SLOR")
		require.NoError(t, err)
		assert.Equal(t, "5", got)
	})

	t.Run("seeding never lowers a key another process advanced", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()
		require.NoError(t, mr.Set("cinregistry:cin:seq:SLOR", "20"))

		c := cin.NewRedisCounter(client, cinstore.NewInMemoryLedger())
		n, err := c.Next(ctx, "SLOR")
		require.NoError(t, err)
		assert.Equal(t, 21, n)
	})

	t.Run("falls back to the ledger during an outage and reseeds after", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
		defer client.Close()

		ledger := cinstore.NewInMemoryLedger()
		breaker := circuit.New("test", circuit.WithFailureThreshold(1), circuit.WithSuccessThreshold(1))
		c := cin.NewRedisCounter(client, ledger, cin.WithBreaker(breaker))

		n, err := c.Next(ctx, "SLOR")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		claim(t, ledger, "SLOR", 1)

		mr.Close()
		n, err = c.Next(ctx, "SLOR")
		require.NoError(t, err)
		assert.Equal(t, 2, n, "ledger max + 1 while redis is down")
		assert.True(t, breaker.IsOpen())
		claim(t, ledger, "SLOR", 2)
		claim(t, ledger, "SLOR", 3)

		require.NoError(t, mr.Restart())
		n, err = c.Next(ctx, "SLOR")
		require.NoError(t, err)
		assert.False(t, breaker.IsOpen())
		assert.Equal(t, 4, n, "redis key raised past sequences issued during the outage")
	})
}
