// Package ledger delivers posted journal entries to the external ledger.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/settlement"
)

const (
	DefaultStream = "astra:ledger:journal"
	// approximate cap; the external ledger consumes well within it
	defaultMaxLen = 100_000
	// how long an appended entry id is remembered; outlives every outbox retry
	defaultDedupTTL = 7 * 24 * time.Hour
)

// appendOnce adds the message only if the entry has not been appended
// before. KEYS[1] stream, KEYS[2] entry marker.
// ARGV: maxlen, marker ttl seconds, then field/value pairs.
var appendOnce = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
	return 0
end
local id = redis.call('XADD', KEYS[1], 'MAXLEN', '~', ARGV[1], '*', unpack(ARGV, 3))
redis.call('SET', KEYS[2], id, 'EX', ARGV[2])
return 1
`)

// RedisStreamSink appends journal entries to a Redis stream read by the
// external ledger through a consumer group
type RedisStreamSink struct {
	client   redis.UniversalClient
	stream   string
	maxLen   int64
	dedupTTL time.Duration
}

// NewRedisStreamSink creates a sink; an empty stream uses DefaultStream
func NewRedisStreamSink(client redis.UniversalClient, stream string) *RedisStreamSink {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisStreamSink{client: client, stream: stream, maxLen: defaultMaxLen, dedupTTL: defaultDedupTTL}
}

// Append writes one stream message per journal entry. Appending an entry
// that is already on the stream is a no-op, so an outbox redelivery after a
// partial failure does not duplicate it. The event id also travels with the
// message for consumers that track it.
func (s *RedisStreamSink) Append(ctx context.Context, event *settlement.JournalEntryPostedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode journal entry %s: %w", event.EntryNumber, err)
	}

	entryID := event.AggregateID().String()
	_, err = appendOnce.Run(ctx, s.client,
		[]string{s.stream, s.entryKey(entryID)},
		strconv.FormatInt(s.maxLen, 10),
		strconv.FormatInt(int64(s.dedupTTL/time.Second), 10),
		"event_id", event.EventID().String(),
		"tenant_id", event.TenantID().String(),
		"entry_id", entryID,
		"entry_number", event.EntryNumber,
		"payload", string(payload),
	).Int()
	if err != nil {
		return fmt.Errorf("failed to append journal entry %s to %s: %w", event.EntryNumber, s.stream, err)
	}
	return nil
}

// entryKey shares the stream's hash tag when it has one so both keys land
// in the same cluster slot
func (s *RedisStreamSink) entryKey(entryID string) string {
	return s.stream + ":entry:" + entryID
}

// Stream returns the stream name
func (s *RedisStreamSink) Stream() string {
	return s.stream
}
