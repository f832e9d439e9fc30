package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clovelane/order-service/internal/order"
)

const historyKeyPrefix = "order:notifications:"

type HistoryEntry struct {
	Kind   order.NotificationKind `json:"kind"`
	SentAt time.Time              `json:"sent_at"`
}

// HistoryCache keeps an append-only record of delivered notifications per
// order, newest first. It survives order rows going terminal.
type HistoryCache interface {
	Record(ctx context.Context, orderNumber string, kind order.NotificationKind, sentAt time.Time) error
	List(ctx context.Context, orderNumber string, limit int) ([]HistoryEntry, error)
}

type redisHistoryCache struct {
	client *redis.Client
}

func NewHistoryCache(client *redis.Client) HistoryCache {
	return &redisHistoryCache{client: client}
}

func (r *redisHistoryCache) Record(ctx context.Context, orderNumber string, kind order.NotificationKind, sentAt time.Time) error {
	member := redis.Z{
		Score: float64(sentAt.UnixNano()),
		// Nanosecond suffix keeps repeated sends of the same kind distinct.
		Member: fmt.Sprintf("%s:%d", kind, sentAt.UnixNano()),
	}
	return r.client.ZAdd(ctx, historyKeyPrefix+orderNumber, member).Err()
}

func (r *redisHistoryCache) List(ctx context.Context, orderNumber string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	members, err := r.client.ZRevRange(ctx, historyKeyPrefix+orderNumber, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(members))
	for _, m := range members {
		idx := strings.LastIndex(m, ":")
		if idx < 0 {
			continue
		}
		nanos, err := strconv.ParseInt(m[idx+1:], 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, HistoryEntry{
			Kind:   order.NotificationKind(m[:idx]),
			SentAt: time.Unix(0, nanos).UTC(),
		})
	}
	return entries, nil
}
