package redisx

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// EventDedup: penanda event yang sudah diproses, per service. Best effort:
// redis down dianggap belum pernah lihat, consumer memang idempotent.
type EventDedup struct {
	Client  *redis.Client
	Service string
}

func (d *EventDedup) Seen(ctx context.Context, eventID string) bool {
	ok, err := Exists(ctx, d.Client, fmt.Sprintf(KeyDedup, d.Service, eventID))
	if err != nil {
		log.Printf("dedup check %s: %v", eventID, err)
		return false
	}
	return ok
}

func (d *EventDedup) MarkSeen(ctx context.Context, eventID string) {
	key := fmt.Sprintf(KeyDedup, d.Service, eventID)
	if err := d.Client.Set(ctx, key, "1", TTLDedup).Err(); err != nil {
		log.Printf("dedup mark %s: %v", eventID, err)
	}
}
