package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/deepaktraders/storefront-backend/models"
)

// GuestCartRepository stores the anonymous cart and the last-seen principal
// for a cart session, both keyed by the client's cart token.
type GuestCartRepository interface {
	GetCart(ctx context.Context, token string) ([]models.CartItem, error)
	SaveCart(ctx context.Context, token string, items []models.CartItem) error
	DeleteCart(ctx context.Context, token string) error
	LastPrincipal(ctx context.Context, token string) (string, error)
	SetLastPrincipal(ctx context.Context, token, userID string) error
}

type RedisGuestCartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewGuestCartRepository(client *redis.Client, ttl time.Duration) *RedisGuestCartRepository {
	return &RedisGuestCartRepository{client: client, ttl: ttl}
}

func (r *RedisGuestCartRepository) cartKey(token string) string {
	return fmt.Sprintf("cart:guest:%s", token)
}

func (r *RedisGuestCartRepository) principalKey(token string) string {
	return fmt.Sprintf("cart:principal:%s", token)
}

// GetCart returns the guest cart. Unparseable stored content is treated as an
// empty cart and the corrupted key is removed.
func (r *RedisGuestCartRepository) GetCart(ctx context.Context, token string) ([]models.CartItem, error) {
	data, err := r.client.Get(ctx, r.cartKey(token)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	items, ok := DecodeCartItems(data)
	if !ok {
		_ = r.client.Del(ctx, r.cartKey(token)).Err()
		return nil, nil
	}
	return items, nil
}

func (r *RedisGuestCartRepository) SaveCart(ctx context.Context, token string, items []models.CartItem) error {
	if items == nil {
		items = []models.CartItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.cartKey(token), data, r.ttl).Err()
}

func (r *RedisGuestCartRepository) DeleteCart(ctx context.Context, token string) error {
	return r.client.Del(ctx, r.cartKey(token)).Err()
}

// LastPrincipal returns the user id observed on the previous request for this
// cart session, or "" when the session was anonymous.
func (r *RedisGuestCartRepository) LastPrincipal(ctx context.Context, token string) (string, error) {
	val, err := r.client.Get(ctx, r.principalKey(token)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (r *RedisGuestCartRepository) SetLastPrincipal(ctx context.Context, token, userID string) error {
	if userID == "" {
		return r.client.Del(ctx, r.principalKey(token)).Err()
	}
	return r.client.Set(ctx, r.principalKey(token), userID, r.ttl).Err()
}

// DecodeCartItems parses a stored guest cart, reporting false for content
// that is not a valid item array.
func DecodeCartItems(data []byte) ([]models.CartItem, bool) {
	var items []models.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false
	}
	for _, item := range items {
		if item.ProductID == "" || item.Qty < 1 || item.Qty > models.MaxQty {
			return nil, false
		}
	}
	return items, true
}
