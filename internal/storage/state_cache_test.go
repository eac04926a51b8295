package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whale-scanner/internal/hyperliquid"
	"github.com/whale-scanner/internal/types"
)

func testStateCache(t *testing.T) (*StateCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStateCache(&RedisCache{client: client}, 10*time.Minute), mr
}

func TestStateCache_RoundTrip(t *testing.T) {
	cache, mr := testStateCache(t)
	ctx := context.Background()
	addr := types.Address("0x1111111111111111111111111111111111111111")

	state := &hyperliquid.ClearinghouseState{
		MarginSummary: hyperliquid.MarginSummary{AccountValue: "123456.7"},
		AssetPositions: []hyperliquid.AssetPosition{
			{Type: "oneWay", Position: &hyperliquid.RawPosition{Coin: "BTC", Szi: "2", PositionValue: "130000"}},
		},
	}
	require.NoError(t, cache.PutState(ctx, addr, state))

	got, err := cache.GetState(ctx, addr)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "123456.7", got.MarginSummary.AccountValue)
	require.Len(t, got.AssetPositions, 1)
	assert.Equal(t, "BTC", got.AssetPositions[0].Position.Coin)

	assert.True(t, mr.Exists("whale:state:0x1111111111111111111111111111111111111111"))
	assert.Equal(t, 10*time.Minute, mr.TTL("whale:state:0x1111111111111111111111111111111111111111"))
}

func TestStateCache_MissReturnsNil(t *testing.T) {
	cache, _ := testStateCache(t)

	got, err := cache.GetState(context.Background(), "0x2222222222222222222222222222222222222222")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStateCache_CorruptEntryIsAMiss(t *testing.T) {
	cache, mr := testStateCache(t)
	addr := types.Address("0x3333333333333333333333333333333333333333")
	require.NoError(t, mr.Set("whale:state:"+string(addr), "not json"))

	got, err := cache.GetState(context.Background(), addr)
	require.NoError(t, err)
	assert.Nil(t, got)
}
