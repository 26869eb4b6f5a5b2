package client

import (
	"context"
	"testing"
	"time"

	"Concord/internal/entity"
	"Concord/internal/events"
	"Concord/internal/rest/resttest"
	"Concord/internal/shared/serverconfig"
)

type recordRecorder struct {
	dispatched []events.Type
	drops      map[string]int
}

func (r *recordRecorder) ObserveDispatch(t events.Type, _ time.Duration) {
	r.dispatched = append(r.dispatched, t)
}

func (r *recordRecorder) RecordDrop(t events.Type, reason string) {
	if r.drops == nil {
		r.drops = make(map[string]int)
	}
	r.drops[t+"/"+reason]++
}

func newTestClient(t *testing.T, cache serverconfig.CacheConfig) (*Client, *recordRecorder) {
	t.Helper()
	rec := &recordRecorder{}
	c, err := New(Options{REST: resttest.New(), Cache: cache, Recorder: rec})
	if err != nil {
		t.Fatalf("New err=%v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c, rec
}

func readyPayload() entity.Payload {
	return entity.Payload{
		"user":   map[string]any{"id": "900", "username": "bot", "bot": true},
		"guilds": []any{map[string]any{"id": "1", "unavailable": true}},
	}
}

func guildPayload() entity.Payload {
	return entity.Payload{
		"id":       "1",
		"name":     "concord",
		"owner_id": "10",
		"roles": []any{
			map[string]any{"id": "1", "name": "@everyone", "permissions": "1024", "position": 0},
		},
		"channels": []any{
			map[string]any{"id": "20", "type": 0, "name": "general", "position": 0},
		},
		"members": []any{
			map[string]any{"user": map[string]any{"id": "10", "username": "owner"}, "roles": []any{}},
		},
	}
}

func TestDispatch_READY记录当前用户并发出ready(t *testing.T) {
	c, _ := newTestClient(t, nil)
	var got []any
	c.On(events.ClientReady, func(args ...any) { got = args })

	c.Dispatch(events.Ready, readyPayload())

	if c.UserID().String() != "900" {
		t.Fatalf("UserID 错误: %s", c.UserID())
	}
	if me := c.Users().Me(); me == nil || me.ID().String() != "900" {
		t.Fatalf("Users().Me() 未解析到当前用户")
	}
	if len(got) != 1 || got[0] != c.Users().Me() {
		t.Fatalf("ready 参数错误: %#v", got)
	}
	g := c.Guilds().Get(1)
	if g == nil || g.Available() {
		t.Fatalf("READY 中的 guild 应以不可用状态占位")
	}
}

func TestDispatch_不可用guild恢复时发guildAvailable(t *testing.T) {
	c, _ := newTestClient(t, nil)
	c.Dispatch(events.Ready, readyPayload())
	created, available := 0, 0
	c.On(events.GuildCreated, func(...any) { created++ })
	c.On(events.GuildAvailable, func(...any) { available++ })

	c.Dispatch(events.GuildCreate, guildPayload())

	if created != 0 || available != 1 {
		t.Fatalf("事件计数错误 created=%d available=%d", created, available)
	}
	g := c.Guilds().Get(1)
	if !g.Available() || g.Name() != "concord" {
		t.Fatalf("guild 未被快照填充: available=%v name=%q", g.Available(), g.Name())
	}
	if c.Channels().Get(20) == nil || g.Channels().Get(20) == nil {
		t.Fatalf("快照中的频道应同时出现在全局缓存与 guild 视图")
	}
}

func TestDispatch_未知类型被忽略(t *testing.T) {
	c, rec := newTestClient(t, nil)
	fired := false
	c.On(events.GuildCreated, func(...any) { fired = true })

	c.Dispatch("SOMETHING_NEW", entity.Payload{"id": "1"})

	if fired || len(rec.dispatched) != 0 {
		t.Fatalf("未知事件不应产生任何效果")
	}
	if c.Handles("SOMETHING_NEW") || !c.Handles(events.GuildCreate) {
		t.Fatalf("Handles 判断错误")
	}
}

func TestApply_未缓存实体的更新被丢弃并计数(t *testing.T) {
	c, rec := newTestClient(t, nil)

	results := c.Apply(events.GuildUpdate, entity.Payload{"id": "77", "name": "x"})

	if len(results) != 0 {
		t.Fatalf("未缓存 guild 的更新不应产生事件: %#v", results)
	}
	if rec.drops[events.GuildUpdate+"/guild_not_cached"] != 1 {
		t.Fatalf("丢弃未被记录: %#v", rec.drops)
	}
	if c.Guilds().Get(77) != nil {
		t.Fatalf("更新不应凭空创建 guild")
	}
}

func TestOnce_只触发一次_Off取消监听(t *testing.T) {
	c, _ := newTestClient(t, nil)
	once, always := 0, 0
	c.Once(events.GuildCreated, func(...any) { once++ })
	id := c.On(events.GuildCreated, func(...any) { always++ })

	c.Dispatch(events.GuildCreate, entity.Payload{"id": "1", "name": "a"})
	c.Dispatch(events.GuildCreate, entity.Payload{"id": "2", "name": "b"})
	if !c.Off(events.GuildCreated, id) {
		t.Fatalf("Off 应返回 true")
	}
	c.Dispatch(events.GuildCreate, entity.Payload{"id": "3", "name": "c"})

	if once != 1 || always != 2 {
		t.Fatalf("监听计数错误 once=%d always=%d", once, always)
	}
	if c.Off(events.GuildCreated, id) {
		t.Fatalf("重复 Off 应返回 false")
	}
}

func TestEmit_监听器panic不影响后续监听器(t *testing.T) {
	c, _ := newTestClient(t, nil)
	second := false
	c.On(events.GuildCreated, func(...any) { panic("boom") })
	c.On(events.GuildCreated, func(...any) { second = true })

	c.Dispatch(events.GuildCreate, entity.Payload{"id": "1"})

	if !second {
		t.Fatalf("panic 之后的监听器未被调用")
	}
}

func TestEmit_监听器在锁外执行可以读取缓存(t *testing.T) {
	c, _ := newTestClient(t, nil)
	done := make(chan struct{})
	c.On(events.GuildCreated, func(args ...any) {
		// 持锁期间调用 Write 会死锁
		c.Write(func() {})
		close(done)
	})

	go c.Dispatch(events.GuildCreate, entity.Payload{"id": "1"})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("监听器未在锁外执行")
	}
}

func TestCacheLimit_按配置返回上限(t *testing.T) {
	c, _ := newTestClient(t, serverconfig.CacheConfig{
		entity.CacheMessages: {MaxSize: 50},
		entity.CacheUsers:    {MaxSize: 0},
	})
	if got := c.CacheLimit(entity.CacheMessages); got != 50 {
		t.Fatalf("messages 上限错误: %d", got)
	}
	if got := c.CacheLimit(entity.CacheUsers); got != 0 {
		t.Fatalf("0 表示不限: %d", got)
	}
	if got := c.CacheLimit(entity.CacheGuilds); got != 0 {
		t.Fatalf("未配置时不限: %d", got)
	}
}

func TestNonce_单调且唯一(t *testing.T) {
	c, _ := newTestClient(t, nil)
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		n := c.Nonce()
		if _, dup := seen[n]; dup {
			t.Fatalf("nonce 重复: %s", n)
		}
		seen[n] = struct{}{}
	}
}

func TestNew_节点id越界返回错误(t *testing.T) {
	if _, err := New(Options{NodeID: -1}); err == nil {
		t.Fatalf("期望节点 id 越界报错")
	}
}
