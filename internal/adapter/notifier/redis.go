package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	ucApproval "chama-approvals/internal/usecase/approval"

	"github.com/redis/go-redis/v9"
)

const publishTimeout = 2 * time.Second

// RedisPublisher publishes finalization events as JSON on a pub/sub channel
// the funds ledger subscribes to.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel}
}

func (p *RedisPublisher) NotifyFinalized(ctx context.Context, ev ucApproval.FinalizationEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	// the caller's request may already be finishing; give the publish its own deadline
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", p.channel, err)
	}
	return nil
}
