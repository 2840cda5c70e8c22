package localstate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	type snapshot struct {
		OrderID string  `json:"orderId"`
		Total   float64 `json:"total"`
	}

	key := client.ThankYouKey("user-1")
	if err := client.SetJSON(ctx, key, snapshot{OrderID: "rec123", Total: 1042.5}, 5*time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	var got snapshot
	if err := client.GetJSON(ctx, key, &got); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.OrderID != "rec123" || got.Total != 1042.5 {
		t.Fatalf("unexpected snapshot %+v", got)
	}

	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if err := client.GetJSON(ctx, key, &got); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSetMembership(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	key := client.FavoritesKey("user-1")
	if err := client.AddMember(ctx, key, "prod-a", "prod-b"); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	ok, err := client.HasMember(ctx, key, "prod-a")
	if err != nil || !ok {
		t.Fatalf("expected member prod-a, ok=%v err=%v", ok, err)
	}

	if err := client.RemoveMember(ctx, key, "prod-a"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	members, err := client.Members(ctx, key)
	if err != nil {
		t.Fatalf("members failed: %v", err)
	}
	if len(members) != 1 || members[0] != "prod-b" {
		t.Fatalf("unexpected members %v", members)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.SessionKey("tok"); got != "ed:session:tok" {
		t.Fatalf("unexpected session key %s", got)
	}
	if got := client.FavoritesKey("user"); got != "ed:favorites:user" {
		t.Fatalf("unexpected favorites key %s", got)
	}
	if got := client.DismissedReviewsKey("user"); got != "ed:dismissed_reviews:user" {
		t.Fatalf("unexpected dismissed reviews key %s", got)
	}
	if got := client.ReadNotificationsKey("user"); got != "ed:read_notifications:user" {
		t.Fatalf("unexpected read notifications key %s", got)
	}
	if got := client.ThankYouKey("user"); got != "ed:thank_you:user" {
		t.Fatalf("unexpected thank-you key %s", got)
	}
	if got := client.ActiveOrderKey("user"); got != "ed:active_order:user" {
		t.Fatalf("unexpected active order key %s", got)
	}
}

type mockCmdable struct {
	data map[string]string
	sets map[string]map[string]struct{}
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		sets: make(map[string]map[string]struct{}),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = stringify(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = stringify(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) SAdd(ctx context.Context, key string, members ...any) *redis.IntCmd {
	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]struct{})
		m.sets[key] = set
	}
	var added int64
	for _, member := range members {
		s := stringify(member)
		if _, exists := set[s]; !exists {
			set[s] = struct{}{}
			added++
		}
	}
	return redis.NewIntResult(added, nil)
}

func (m *mockCmdable) SRem(ctx context.Context, key string, members ...any) *redis.IntCmd {
	set := m.sets[key]
	var removed int64
	for _, member := range members {
		s := stringify(member)
		if _, exists := set[s]; exists {
			delete(set, s)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func (m *mockCmdable) SMembers(ctx context.Context, key string) *redis.StringSliceCmd {
	var members []string
	for member := range m.sets[key] {
		members = append(members, member)
	}
	sort.Strings(members)
	return redis.NewStringSliceResult(members, nil)
}

func (m *mockCmdable) SIsMember(ctx context.Context, key string, member any) *redis.BoolCmd {
	_, ok := m.sets[key][stringify(member)]
	return redis.NewBoolResult(ok, nil)
}

func (m *mockCmdable) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
		delete(m.sets, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func stringify(value any) string {
	if b, ok := value.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(value)
}
