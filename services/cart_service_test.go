package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deepaktraders/storefront-backend/models"
)

type fakeGuestCarts struct {
	carts      map[string][]models.CartItem
	principals map[string]string
}

func newFakeGuestCarts() *fakeGuestCarts {
	return &fakeGuestCarts{
		carts:      make(map[string][]models.CartItem),
		principals: make(map[string]string),
	}
}

func (f *fakeGuestCarts) GetCart(ctx context.Context, token string) ([]models.CartItem, error) {
	return append([]models.CartItem(nil), f.carts[token]...), nil
}

func (f *fakeGuestCarts) SaveCart(ctx context.Context, token string, items []models.CartItem) error {
	f.carts[token] = append([]models.CartItem(nil), items...)
	return nil
}

func (f *fakeGuestCarts) DeleteCart(ctx context.Context, token string) error {
	delete(f.carts, token)
	return nil
}

func (f *fakeGuestCarts) LastPrincipal(ctx context.Context, token string) (string, error) {
	return f.principals[token], nil
}

func (f *fakeGuestCarts) SetLastPrincipal(ctx context.Context, token, userID string) error {
	if userID == "" {
		delete(f.principals, token)
		return nil
	}
	f.principals[token] = userID
	return nil
}

// fakeRemoteRepo backs the remote cart with the sequence-guarded fake store.
type fakeRemoteRepo struct {
	*fakeCartStore
}

func (f *fakeRemoteRepo) Get(ctx context.Context, userID string) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items, ok := f.carts[userID]
	if !ok {
		return nil, nil
	}
	return &models.Cart{UserID: userID, Items: append([]models.CartItem(nil), items...)}, nil
}

func (f *fakeRemoteRepo) Clear(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.carts, userID)
	return nil
}

func newCartFixture() (*CartService, *fakeGuestCarts, *fakeRemoteRepo, *RemoteCartWriter) {
	guest := newFakeGuestCarts()
	remote := &fakeRemoteRepo{fakeCartStore: newFakeCartStore()}
	writer := NewRemoteCartWriter(remote, time.Hour, zap.NewNop())
	svc := NewCartService(guest, remote, writer, zap.NewNop())
	return svc, guest, remote, writer
}

func principalFor(userID string) *models.Principal {
	return &models.Principal{UserID: userID, Email: userID + "@example.com", Role: models.RoleMember}
}

func TestMergeSumsOverlappingLines(t *testing.T) {
	svc, _, _, _ := newCartFixture()

	merged := svc.Merge(
		[]models.CartItem{{ProductID: "p1", Qty: 1}, {ProductID: "p2", Qty: 2}},
		[]models.CartItem{{ProductID: "p1", Qty: 3}, {ProductID: "p3", Qty: 1}},
		MergeSum,
	)

	assert.Equal(t, []models.CartItem{
		{ProductID: "p1", Qty: 4},
		{ProductID: "p2", Qty: 2},
		{ProductID: "p3", Qty: 1},
	}, merged)
}

func TestMergeReplaceTakesIncomingQuantity(t *testing.T) {
	svc, _, _, _ := newCartFixture()

	merged := svc.Merge(
		[]models.CartItem{{ProductID: "p1", Qty: 5}},
		[]models.CartItem{{ProductID: "p1", Qty: 2}},
		MergeReplace,
	)

	assert.Equal(t, []models.CartItem{{ProductID: "p1", Qty: 2}}, merged)
}

func TestMergeClampsAndDropsInvalidQuantities(t *testing.T) {
	svc, _, _, _ := newCartFixture()

	merged := svc.Merge(
		[]models.CartItem{{ProductID: "p1", Qty: 80}, {ProductID: "p2", Qty: 0}},
		[]models.CartItem{{ProductID: "p1", Qty: 80}},
		MergeSum,
	)

	assert.Equal(t, []models.CartItem{{ProductID: "p1", Qty: models.MaxQty}}, merged)
}

func TestSyncLoginMergesGuestIntoRemoteOnce(t *testing.T) {
	svc, guest, remote, _ := newCartFixture()
	ctx := context.Background()

	require.NoError(t, guest.SaveCart(ctx, "t1", []models.CartItem{
		{ProductID: "p1", Qty: 1},
		{ProductID: "p2", Qty: 2},
	}))
	require.NoError(t, remote.ReplaceItems(ctx, "u1", []models.CartItem{{ProductID: "p1", Qty: 3}}, 1))

	items, svcErr := svc.Sync(ctx, "t1", principalFor("u1"))
	require.Nil(t, svcErr)

	assert.Equal(t, []models.CartItem{
		{ProductID: "p1", Qty: 4},
		{ProductID: "p2", Qty: 2},
	}, items)

	// guest cart is consumed by the merge
	guestItems, err := guest.GetCart(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, guestItems)

	// a repeated sync with the same identity must not merge again
	items, svcErr = svc.Sync(ctx, "t1", principalFor("u1"))
	require.Nil(t, svcErr)
	assert.Equal(t, []models.CartItem{
		{ProductID: "p1", Qty: 4},
		{ProductID: "p2", Qty: 2},
	}, items)
}

func TestSyncLogoutHandsRemoteCartToGuest(t *testing.T) {
	svc, guest, remote, _ := newCartFixture()
	ctx := context.Background()

	require.NoError(t, remote.ReplaceItems(ctx, "u1", []models.CartItem{{ProductID: "p1", Qty: 2}}, 1))
	require.NoError(t, guest.SaveCart(ctx, "t1", []models.CartItem{{ProductID: "p2", Qty: 1}}))
	require.NoError(t, guest.SetLastPrincipal(ctx, "t1", "u1"))

	items, svcErr := svc.Sync(ctx, "t1", nil)
	require.Nil(t, svcErr)

	// the remote cart replaces the guest cart wholesale
	assert.Equal(t, []models.CartItem{{ProductID: "p1", Qty: 2}}, items)

	guestItems, err := guest.GetCart(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, []models.CartItem{{ProductID: "p1", Qty: 2}}, guestItems)
}

func TestSyncAnonymousStableIdentityIsNoOp(t *testing.T) {
	svc, guest, _, _ := newCartFixture()
	ctx := context.Background()

	require.NoError(t, guest.SaveCart(ctx, "t1", []models.CartItem{{ProductID: "p1", Qty: 1}}))

	items, svcErr := svc.Sync(ctx, "t1", nil)
	require.Nil(t, svcErr)
	assert.Equal(t, []models.CartItem{{ProductID: "p1", Qty: 1}}, items)
}

func TestAddItemClampsAtCap(t *testing.T) {
	svc, _, _, _ := newCartFixture()
	ctx := context.Background()

	items, svcErr := svc.AddItem(ctx, nil, "t1", "p1", 80)
	require.Nil(t, svcErr)
	items, svcErr = svc.AddItem(ctx, nil, "t1", "p1", 80)
	require.Nil(t, svcErr)

	assert.Equal(t, []models.CartItem{{ProductID: "p1", Qty: models.MaxQty}}, items)
}

func TestAddItemRejectsNonPositiveDelta(t *testing.T) {
	svc, _, _, _ := newCartFixture()

	_, svcErr := svc.AddItem(context.Background(), nil, "t1", "p1", 0)
	require.NotNil(t, svcErr)
	assert.Equal(t, 400, svcErr.StatusCode)
}

func TestSetQtyZeroRemovesLine(t *testing.T) {
	svc, _, _, _ := newCartFixture()
	ctx := context.Background()

	_, svcErr := svc.AddItem(ctx, nil, "t1", "p1", 2)
	require.Nil(t, svcErr)

	items, svcErr := svc.SetQty(ctx, nil, "t1", "p1", 0)
	require.Nil(t, svcErr)
	assert.Empty(t, items)
}

func TestRemoveAbsentItemIsNoOp(t *testing.T) {
	svc, _, _, _ := newCartFixture()
	ctx := context.Background()

	_, svcErr := svc.AddItem(ctx, nil, "t1", "p1", 1)
	require.Nil(t, svcErr)

	items, svcErr := svc.RemoveItem(ctx, nil, "t1", "p2")
	require.Nil(t, svcErr)
	assert.Equal(t, []models.CartItem{{ProductID: "p1", Qty: 1}}, items)
}

func TestAuthenticatedMutationIsDebouncedButReadable(t *testing.T) {
	svc, _, remote, writer := newCartFixture()
	ctx := context.Background()
	principal := principalFor("u1")

	_, svcErr := svc.AddItem(ctx, principal, "", "p1", 2)
	require.Nil(t, svcErr)

	// nothing flushed yet, but reads observe the pending state
	assert.Equal(t, 0, remote.writeCount())

	items, svcErr := svc.ActiveCart(ctx, principal, "")
	require.Nil(t, svcErr)
	assert.Equal(t, []models.CartItem{{ProductID: "p1", Qty: 2}}, items)

	writer.Flush()
	assert.Equal(t, []models.CartItem{{ProductID: "p1", Qty: 2}}, remote.get("u1"))
}

func TestClearRemoteEmptiesUserCart(t *testing.T) {
	svc, _, remote, _ := newCartFixture()
	ctx := context.Background()

	require.NoError(t, remote.ReplaceItems(ctx, "u1", []models.CartItem{{ProductID: "p1", Qty: 2}}, 1))
	require.NoError(t, svc.ClearRemote(ctx, "u1"))

	items, svcErr := svc.ActiveCart(ctx, principalFor("u1"), "")
	require.Nil(t, svcErr)
	assert.Empty(t, items)
}
