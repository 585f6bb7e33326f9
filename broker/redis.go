package broker

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"articleqa/apperr"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	envelopeField = "envelope"
	readBlock     = 5 * time.Second
	readCount     = 10
	reclaimIdle   = time.Minute
)

// RedisBroker publishes and consumes envelopes over redis streams. Each
// logical topic is one stream; consumption runs in a consumer group, so
// messages are acknowledged individually and redelivered if a handler
// fails or the process dies mid-batch.
type RedisBroker struct {
	client   *redis.Client
	group    string
	consumer string
}

func NewRedisBroker(client *redis.Client, group string) *RedisBroker {
	return &RedisBroker{
		client:   client,
		group:    group,
		consumer: group + "-" + uuid.NewString()[:8],
	}
}

func (b *RedisBroker) Publish(ctx context.Context, topic string, msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return &apperr.TransportError{Op: "publish " + topic, Err: err}
	}

	err = b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		Values: map[string]interface{}{envelopeField: raw},
	}).Err()
	if err != nil {
		return &apperr.TransportError{Op: "publish " + topic, Err: err}
	}
	return nil
}

// Consume reads the dispatcher's topic until ctx is cancelled. Handled
// messages are acked; messages whose handler errors stay pending and are
// reclaimed once idle, which is what gives handlers at-least-once
// delivery across restarts.
func (b *RedisBroker) Consume(ctx context.Context, d *Dispatcher) error {
	if err := b.ensureGroup(ctx, d.Topic()); err != nil {
		return err
	}

	log.Printf("Broker: consuming stream %s as group %s", d.Topic(), b.group)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		b.reclaim(ctx, d)

		streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    b.group,
			Consumer: b.consumer,
			Streams:  []string{d.Topic(), ">"},
			Count:    readCount,
			Block:    readBlock,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // block timed out, poll again
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			log.Printf("Broker: read on stream %s failed: %v", d.Topic(), err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, entry := range stream.Messages {
				b.deliver(ctx, d, entry)
			}
		}
	}
}

func (b *RedisBroker) deliver(ctx context.Context, d *Dispatcher, entry redis.XMessage) {
	raw, ok := entry.Values[envelopeField].(string)
	if !ok {
		log.Printf("Broker: entry %s on stream %s has no envelope, dropping", entry.ID, d.Topic())
		b.ack(ctx, d.Topic(), entry.ID)
		return
	}

	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		// Poison message; ack so it cannot wedge the group.
		log.Printf("Broker: malformed envelope %s on stream %s: %v", entry.ID, d.Topic(), err)
		b.ack(ctx, d.Topic(), entry.ID)
		return
	}

	if err := d.Dispatch(ctx, msg); err != nil {
		log.Printf("Broker: handler for %s/%s failed, leaving %s pending: %v", d.Topic(), msg.Type, entry.ID, err)
		return
	}
	b.ack(ctx, d.Topic(), entry.ID)
}

func (b *RedisBroker) ack(ctx context.Context, topic, id string) {
	if err := b.client.XAck(ctx, topic, b.group, id).Err(); err != nil {
		log.Printf("Broker: ack of %s on stream %s failed: %v", id, topic, err)
	}
}

// reclaim takes over pending entries abandoned by dead consumers.
func (b *RedisBroker) reclaim(ctx context.Context, d *Dispatcher) {
	entries, _, err := b.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   d.Topic(),
		Group:    b.group,
		Consumer: b.consumer,
		MinIdle:  reclaimIdle,
		Start:    "0-0",
		Count:    readCount,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Printf("Broker: reclaim on stream %s failed: %v", d.Topic(), err)
		return
	}
	for _, entry := range entries {
		b.deliver(ctx, d, entry)
	}
}

func (b *RedisBroker) ensureGroup(ctx context.Context, topic string) error {
	err := b.client.XGroupCreateMkStream(ctx, topic, b.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return &apperr.TransportError{Op: "create group " + b.group, Err: err}
	}
	return nil
}
