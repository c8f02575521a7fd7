package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// DefaultNATSBucket is used when no bucket is configured
const DefaultNATSBucket = "lastword"

const maxIncrAttempts = 10

// NATSStore keeps state in a JetStream key-value bucket
type NATSStore struct {
	conn *nats.Conn
	kv   jetstream.KeyValue
}

// NewNATSStore connects to url and opens (or creates) the bucket
func NewNATSStore(ctx context.Context, url, bucket string) (*NATSStore, error) {
	if bucket == "" {
		bucket = DefaultNATSBucket
	}

	conn, err := nats.Connect(url, nats.Name("lastword"))
	if err != nil {
		return nil, unavailable(BackendNATS, "connect", "", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	kv, err := js.KeyValue(ctx, bucket)
	if err != nil {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: "lastword dead man's switch state",
			History:     1,
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create KV bucket: %w", err)
		}
	}

	return &NATSStore{conn: conn, kv: kv}, nil
}

func (n *NATSStore) Get(ctx context.Context, key string) (string, bool, error) {
	entry, err := n.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable(BackendNATS, "get", key, err)
	}
	return string(entry.Value()), true, nil
}

func (n *NATSStore) Set(ctx context.Context, key, value string) error {
	if _, err := n.kv.Put(ctx, key, []byte(value)); err != nil {
		return unavailable(BackendNATS, "set", key, err)
	}
	return nil
}

// Incr uses compare-and-set on the entry revision. Only a revision conflict
// (another writer got there first) is retried; anything else is returned.
func (n *NATSStore) Incr(ctx context.Context, key string) (int64, error) {
	for attempt := 0; attempt < maxIncrAttempts; attempt++ {
		entry, err := n.kv.Get(ctx, key)
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			if _, err := n.kv.Create(ctx, key, []byte("1")); err == nil {
				return 1, nil
			} else if !errors.Is(err, jetstream.ErrKeyExists) {
				return 0, unavailable(BackendNATS, "incr", key, err)
			}
			continue
		}
		if err != nil {
			return 0, unavailable(BackendNATS, "incr", key, err)
		}

		current, err := strconv.ParseInt(string(entry.Value()), 10, 64)
		if err != nil {
			return 0, unavailable(BackendNATS, "incr", key, err)
		}
		next := current + 1
		_, err = n.kv.Update(ctx, key, []byte(strconv.FormatInt(next, 10)), entry.Revision())
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, jetstream.ErrKeyExists) {
			return 0, unavailable(BackendNATS, "incr", key, err)
		}
	}
	return 0, unavailable(BackendNATS, "incr", key, fmt.Errorf("too many concurrent updates"))
}

func (n *NATSStore) Ping(ctx context.Context) error {
	if !n.conn.IsConnected() {
		return fmt.Errorf("nats connection %s", n.conn.Status())
	}
	return n.conn.FlushWithContext(ctx)
}

func (n *NATSStore) Backend() string { return BackendNATS }

func (n *NATSStore) Close() error {
	n.conn.Close()
	return nil
}
