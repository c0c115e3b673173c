package redisbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/job-intake/internal/posting"
)

type fakeClient struct {
	values    map[string]string
	getErr    error
	deleted   []string
	published map[string][]string
	ttl       time.Duration
}

func newFakeClient() *fakeClient {
	return &fakeClient{values: map[string]string{}, published: map[string][]string{}}
}

func (f *fakeClient) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeClient) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.values[key] = value.(string)
	f.ttl = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeClient) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.values, k)
		f.deleted = append(f.deleted, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (f *fakeClient) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	f.published[channel] = append(f.published[channel], string(message.([]byte)))
	return redis.NewIntResult(1, nil)
}

func (f *fakeClient) Close() error { return nil }

func TestStopRequestedConsumesKey(t *testing.T) {
	fc := newFakeClient()
	bus := newBus(fc, Config{}, zap.NewNop())

	if bus.StopRequested(context.Background()) {
		t.Fatal("expected no stop without key")
	}

	if err := bus.RequestStop(context.Background()); err != nil {
		t.Fatalf("request stop: %v", err)
	}
	if fc.ttl != stopTTL {
		t.Fatalf("expected stop key ttl %s, got %s", stopTTL, fc.ttl)
	}

	if !bus.StopRequested(context.Background()) {
		t.Fatal("expected stop after request")
	}
	if bus.StopRequested(context.Background()) {
		t.Fatal("stop key must be consumed")
	}
	if len(fc.deleted) != 1 || fc.deleted[0] != DefaultStopKey {
		t.Fatalf("unexpected deletes: %v", fc.deleted)
	}
}

func TestStopRequestedIgnoresFalseValues(t *testing.T) {
	fc := newFakeClient()
	bus := newBus(fc, Config{StopKey: "custom"}, nil)

	for _, v := range []string{"", "0", "false", " FALSE "} {
		fc.values["custom"] = v
		if bus.StopRequested(context.Background()) {
			t.Fatalf("%q must not stop", v)
		}
	}
}

func TestStopRequestedFailsOpen(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)
	fc := newFakeClient()
	fc.getErr = errors.New("connection reset")

	if newBus(fc, Config{}, zap.New(core)).StopRequested(context.Background()) {
		t.Fatal("read errors must not stop the run")
	}
	if observed.FilterMessage("reading stop key failed").Len() != 1 {
		t.Fatal("expected warning")
	}
}

func TestPublishStoredPosting(t *testing.T) {
	fc := newFakeClient()
	bus := newBus(fc, Config{EventsChannel: "events"}, nil)

	p := &posting.Posting{ID: "ABCD1234", Title: "Go Developer", Company: "Acme", Score: 90, Priority: posting.PriorityHigh}
	if err := bus.Publish(context.Background(), p); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msgs := fc.published["events"]
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %v", fc.published)
	}

	var ev Event
	if err := json.Unmarshal([]byte(msgs[0]), &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Type != EventPostingStored || ev.ID != "ABCD1234" || ev.Score != 90 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestConnectRequiresURL(t *testing.T) {
	if _, err := Connect(context.Background(), Config{}, nil); err == nil {
		t.Fatal("expected error without url")
	}
	if _, err := Connect(context.Background(), Config{URL: "not-a-url://"}, nil); err == nil {
		t.Fatal("expected parse error")
	}
}
