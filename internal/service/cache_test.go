package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/storefront-api/internal/dto"
	"github.com/flicky/storefront-api/internal/model"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCatalogService_ListStores_ServedFromCache(t *testing.T) {
	mr, rdb := newTestRedis(t)
	stores := newMockStoreRepo()
	seedStore(stores, "Alpha Market", nil)
	svc := NewCatalogService(stores, newMockProductRepo(), rdb)
	ctx := context.Background()

	first, err := svc.ListStores(ctx, "")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.True(t, mr.Exists(storesCacheKey))
	assert.Greater(t, mr.TTL(storesCacheKey), time.Duration(0))

	// Bypass the service so only a cache hit can hide the new row.
	seedStore(stores, "Beta Bazaar", nil)

	second, err := svc.ListStores(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCatalogService_AddProduct_ClearsStoreCache(t *testing.T) {
	mr, rdb := newTestRedis(t)
	stores := newMockStoreRepo()
	store := seedStore(stores, "Alpha Market", nil)
	svc := NewCatalogService(stores, newMockProductRepo(), rdb)
	ctx := context.Background()

	_, err := svc.ListStores(ctx, "")
	require.NoError(t, err)
	require.True(t, mr.Exists(storesCacheKey))

	_, err = svc.AddProduct(ctx, store.ID, dto.CreateProductRequest{Name: "Tea", Price: decimal.NewFromInt(3)})
	require.NoError(t, err)
	assert.False(t, mr.Exists(storesCacheKey))
}

func TestCatalogService_DeleteStore_ClearsStoreCache(t *testing.T) {
	mr, rdb := newTestRedis(t)
	stores := newMockStoreRepo()
	gone := seedStore(stores, "Alpha Market", nil)
	seedStore(stores, "Beta Bazaar", nil)
	svc := NewCatalogService(stores, newMockProductRepo(), rdb)
	ctx := context.Background()

	_, err := svc.ListStores(ctx, "")
	require.NoError(t, err)
	require.True(t, mr.Exists(storesCacheKey))

	require.NoError(t, svc.DeleteStore(ctx, gone.ID))
	assert.False(t, mr.Exists(storesCacheKey))

	left, err := svc.ListStores(ctx, "")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "Beta Bazaar", left[0].Name)
}

func TestOrderService_ListByUserID_CachesAndInvalidates(t *testing.T) {
	mr, rdb := newTestRedis(t)
	repo := newMockOrderRepo()
	userID := uuid.New()
	first := &model.Order{ID: uuid.New(), UserID: userID, CreatedAt: time.Now().Add(-time.Hour)}
	repo.orders[first.ID] = first
	svc := NewOrderService(repo, rdb)
	ctx := context.Background()

	orders, err := svc.ListByUserID(ctx, userID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.True(t, mr.Exists(orderHistoryKey(userID)))

	second := &model.Order{ID: uuid.New(), UserID: userID, CreatedAt: time.Now()}
	repo.orders[second.ID] = second

	orders, err = svc.ListByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, orders, 1, "stale list expected while cached")

	require.NoError(t, svc.InvalidateHistory(ctx, userID))
	assert.False(t, mr.Exists(orderHistoryKey(userID)))

	orders, err = svc.ListByUserID(ctx, userID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
}

func TestOrderService_InvalidateHistory_WithoutRedis(t *testing.T) {
	svc := NewOrderService(newMockOrderRepo(), nil)
	assert.NoError(t, svc.InvalidateHistory(context.Background(), uuid.New()))
}

func TestCheckoutService_PlaceOrder_ShowsInCachedHistory(t *testing.T) {
	mr, rdb := newTestRedis(t)
	f := newCheckoutFixture()
	history := NewOrderService(f.orders, rdb)
	f.svc = NewCheckoutService(f.checkouts, f.carts, f.orders, history, nil, discardLogger())
	f.seedCart("s1")
	f.toReview(t, "s1")
	userID := uuid.New()
	ctx := context.Background()

	before, err := history.ListByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, before)
	require.True(t, mr.Exists(orderHistoryKey(userID)))

	order, err := f.svc.PlaceOrder(ctx, "s1", userID)
	require.NoError(t, err)

	after, err := history.ListByUserID(ctx, userID)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, order.ID, after[0].ID)
	assert.True(t, after[0].Total.Equal(decimal.NewFromInt(250)))
}
