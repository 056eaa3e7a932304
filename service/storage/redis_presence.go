package storage

import (
	"context"
	"strconv"
	"time"

	"DMChat/logger"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// presence key: im:presence:<user>, value is the node id, TTL bounds a crashed node's entries.
func presenceKey(user string) string { return "im:presence:" + user }

// last seen key: im:lastseen:<user>, unix millis of the last disconnect
func lastSeenKey(user string) string { return "im:lastseen:" + user }

// presenceCmds is the subset of redis.Cmdable the mirror needs.
type presenceCmds interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type presenceEvent struct {
	user   string
	online bool
	at     time.Time
}

// PresenceMirror copies gateway presence changes into Redis for other
// processes to read. Writes happen on one background worker in event order;
// the in-process registry stays authoritative and a full queue drops events.
type PresenceMirror struct {
	rdb    presenceCmds
	nodeID string
	ttl    time.Duration
	events chan presenceEvent
	done   chan struct{}
}

func NewPresenceMirror(rdb presenceCmds, nodeID string, ttl time.Duration, queue int) *PresenceMirror {
	if queue <= 0 {
		queue = 1024
	}
	return &PresenceMirror{
		rdb:    rdb,
		nodeID: nodeID,
		ttl:    ttl,
		events: make(chan presenceEvent, queue),
		done:   make(chan struct{}),
	}
}

// Run applies queued events until ctx is canceled.
func (p *PresenceMirror) Run(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.events:
			if err := p.apply(ctx, ev); err != nil {
				logger.Warn("presence mirror write failed", zap.String("user", ev.user), zap.Bool("online", ev.online), zap.Error(err))
			}
		}
	}
}

// Done is closed when Run returns.
func (p *PresenceMirror) Done() <-chan struct{} { return p.done }

func (p *PresenceMirror) Online(userID string)  { p.enqueue(presenceEvent{user: userID, online: true, at: time.Now()}) }
func (p *PresenceMirror) Offline(userID string) { p.enqueue(presenceEvent{user: userID, at: time.Now()}) }

func (p *PresenceMirror) enqueue(ev presenceEvent) {
	select {
	case p.events <- ev:
	default:
		logger.Warn("presence mirror queue full, event dropped", zap.String("user", ev.user))
	}
}

func (p *PresenceMirror) apply(ctx context.Context, ev presenceEvent) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if ev.online {
		return p.rdb.Set(ctx, presenceKey(ev.user), p.nodeID, p.ttl).Err()
	}
	if err := p.rdb.Del(ctx, presenceKey(ev.user)).Err(); err != nil {
		return err
	}
	return p.rdb.Set(ctx, lastSeenKey(ev.user), strconv.FormatInt(ev.at.UnixMilli(), 10), 0).Err()
}

// Lookup reports whether some node currently holds user online.
func (p *PresenceMirror) Lookup(ctx context.Context, user string) (nodeID string, online bool, err error) {
	val, err := p.rdb.Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// LastSeen returns the time of the user's last recorded disconnect.
func (p *PresenceMirror) LastSeen(ctx context.Context, user string) (time.Time, bool, error) {
	val, err := p.rdb.Get(ctx, lastSeenKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, errors.Wrapf(err, "bad last seen value %q", val)
	}
	return time.UnixMilli(ms), true, nil
}
