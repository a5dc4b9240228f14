package screening

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"centralledger/internal/domain"
	platformredis "centralledger/internal/platform/redis"
)

// freezeCacheTTL bounds staleness if an invalidation is lost; writes
// always invalidate explicitly.
const freezeCacheTTL = 5 * time.Minute

// Cache is a read-through Redis cache over the freeze point lookups the
// rule engine makes per transaction. A nil Cache is a no-op, and any
// Redis failure falls through to the store.
type Cache struct {
	client *platformredis.Client
	logger *slog.Logger
}

func NewCache(client *platformredis.Client, logger *slog.Logger) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{client: client, logger: logger}
}

func freezeKey(entityType domain.EntityType, entityID string) string {
	return fmt.Sprintf("screening:freeze:%s:%s", entityType, entityID)
}

// GetFreezeScopes returns the cached fi scopes holding an active freeze
// for the entity. ok is false on miss or error.
func (c *Cache) GetFreezeScopes(ctx context.Context, entityType domain.EntityType, entityID string) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, freezeKey(entityType, entityID)).Bytes()
	if err != nil {
		return nil, false
	}
	var scopes []string
	if err := json.Unmarshal(raw, &scopes); err != nil {
		c.logger.WarnContext(ctx, "corrupt freeze cache entry", "entity_id", entityID, "error", err)
		return nil, false
	}
	return scopes, true
}

func (c *Cache) SetFreezeScopes(ctx context.Context, entityType domain.EntityType, entityID string, scopes []string) {
	if c == nil {
		return
	}
	if scopes == nil {
		scopes = []string{}
	}
	raw, err := json.Marshal(scopes)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, freezeKey(entityType, entityID), raw, freezeCacheTTL).Err(); err != nil {
		c.logger.DebugContext(ctx, "freeze cache set failed", "entity_id", entityID, "error", err)
	}
}

// Invalidate drops the cached scopes after any freeze state change.
func (c *Cache) Invalidate(ctx context.Context, entityType domain.EntityType, entityID string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, freezeKey(entityType, entityID)).Err(); err != nil {
		c.logger.DebugContext(ctx, "freeze cache invalidation failed", "entity_id", entityID, "error", err)
	}
}
