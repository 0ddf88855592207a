package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "correspondence/pkg/domain"
)

const (
	keyPrefix   = "notification:procedure:"
	claimedMark = "claimed"
)

// releaseScript deletes the key only while it still holds a claim.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisStore keeps the ledger as one key per procedure. Claims expire after
// staleAfter; confirmed sends never expire.
type RedisStore struct {
	client     redis.UniversalClient
	staleAfter time.Duration
}

func NewRedis(client redis.UniversalClient, staleAfter time.Duration) *RedisStore {
	return &RedisStore{client: client, staleAfter: staleAfter}
}

func key(procedureID id.ProcedureID) string {
	return keyPrefix + procedureID.String()
}

func (s *RedisStore) Claim(ctx context.Context, procedureID id.ProcedureID, _ time.Time) (bool, error) {
	ok, err := s.client.SetNX(ctx, key(procedureID), claimedMark, s.staleAfter).Result()
	if err != nil {
		return false, fmt.Errorf("claim notification: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Confirm(ctx context.Context, procedureID id.ProcedureID, messageID string, _ time.Time) error {
	if err := s.client.Set(ctx, key(procedureID), "sent:"+messageID, 0).Err(); err != nil {
		return fmt.Errorf("confirm notification: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, procedureID id.ProcedureID) error {
	if err := releaseScript.Run(ctx, s.client, []string{key(procedureID)}, claimedMark).Err(); err != nil {
		return fmt.Errorf("release notification: %w", err)
	}
	return nil
}
