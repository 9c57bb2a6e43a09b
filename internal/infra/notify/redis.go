// Package notify forwards scoring notifications to Redis streams so
// scoreboards and other consumers can follow a match without polling.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cricketcore/internal/core"

	"github.com/redis/go-redis/v9"
)

// DefaultStream is the stream key used when none is configured.
const DefaultStream = "cricket.notifications"

// DefaultMaxLen caps the stream length; trimming is approximate.
const DefaultMaxLen = 10000

// streamWriter is the subset of redis.Cmdable the notifier uses.
type streamWriter interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// StreamNotifier publishes each notification as one stream entry.
type StreamNotifier struct {
	client   streamWriter
	stream   string
	maxLen   int64
	perMatch bool
}

// Option customises a StreamNotifier.
type Option func(*StreamNotifier)

// WithStream sets the stream key.
func WithStream(stream string) Option {
	return func(n *StreamNotifier) {
		if strings.TrimSpace(stream) != "" {
			n.stream = stream
		}
	}
}

// WithMaxLen bounds the stream; zero or less disables trimming.
func WithMaxLen(maxLen int64) Option {
	return func(n *StreamNotifier) { n.maxLen = maxLen }
}

// WithPerMatchStreams appends ".<matchID>" to the stream key.
func WithPerMatchStreams() Option {
	return func(n *StreamNotifier) { n.perMatch = true }
}

// NewStreamNotifier wraps a go-redis client.
func NewStreamNotifier(client redis.Cmdable, opts ...Option) *StreamNotifier {
	return newStreamNotifier(client, opts...)
}

func newStreamNotifier(client streamWriter, opts ...Option) *StreamNotifier {
	n := &StreamNotifier{client: client, stream: DefaultStream, maxLen: DefaultMaxLen}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var _ core.Notifier = (*StreamNotifier)(nil)

// StreamFor returns the stream a match's notifications are written to.
func (n *StreamNotifier) StreamFor(matchID string) string {
	if n.perMatch && matchID != "" {
		return n.stream + "." + matchID
	}
	return n.stream
}

// Notify implements core.Notifier.
func (n *StreamNotifier) Notify(ctx context.Context, note core.Notification) error {
	data, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}
	stream := n.StreamFor(note.MatchID)
	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"data":     string(data),
			"match_id": note.MatchID,
			"level":    string(note.Level),
		},
	}
	if n.maxLen > 0 {
		args.MaxLen = n.maxLen
		args.Approx = true
	}
	if err := n.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("publishing to stream %s: %w", stream, err)
	}
	return nil
}

// Open parses a redis:// URL and returns a connected client. The caller
// closes it.
func Open(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
