package entity_test

import (
	"context"
	"errors"
	"testing"

	"Concord/internal/entity"
	"Concord/internal/events"
	"Concord/internal/rest"
	"Concord/internal/shared/serverconfig"
)

func TestAdd_局部patch保留缺席字段(t *testing.T) {
	c, _ := newClient(t, nil)
	u, err := c.Users().Add(entity.Payload{"id": "5", "username": "alice", "global_name": "Alice", "avatar": "abc"}, true)
	if err != nil {
		t.Fatalf("Add err=%v", err)
	}

	same, _ := c.Users().Add(entity.Payload{"id": "5", "global_name": nil}, true)

	if same != u {
		t.Fatalf("同一 id 应返回同一实例")
	}
	if u.Username() != "alice" || u.Avatar() == nil || *u.Avatar() != "abc" {
		t.Fatalf("缺席字段不应被重置")
	}
	if u.GlobalName() != nil {
		t.Fatalf("显式 null 应清空字段")
	}
}

func TestAdd_重复应用同一payload结果不变(t *testing.T) {
	c, _ := newClient(t, nil)
	p := entity.Payload{"id": "5", "username": "alice", "discriminator": "0"}
	first, _ := c.Users().Add(p, true)
	snapshot := *first

	second, _ := c.Users().Add(p, true)

	if !second.Equals(&snapshot) {
		t.Fatalf("重复应用应幂等")
	}
}

func TestAdd_缺少id返回畸形错误(t *testing.T) {
	c, _ := newClient(t, nil)
	_, err := c.Users().Add(entity.Payload{"username": "x"}, true)
	if !errors.Is(err, entity.ErrMalformedPayload) {
		t.Fatalf("期望 ErrMalformedPayload, got %v", err)
	}
	if c.Users().Cache().Len() != 0 {
		t.Fatalf("畸形记录不应写入缓存")
	}
}

func TestAdd_不缓存时不影响已缓存实例(t *testing.T) {
	c, _ := newClient(t, nil)
	u, _ := c.Users().Add(entity.Payload{"id": "5", "username": "alice"}, true)

	cp, _ := c.Users().Add(entity.Payload{"id": "5", "username": "other"}, false)

	if cp == u || u.Username() != "alice" || cp.Username() != "other" {
		t.Fatalf("cache=false 不应修改缓存中的实例")
	}
}

func TestResolve_接受实体与id字符串(t *testing.T) {
	c, _ := newClient(t, nil)
	g := seed(t, c)

	if got, err := c.Guilds().Resolve("1"); err != nil || got != g {
		t.Fatalf("按字符串解析失败: %v", err)
	}
	if got, err := c.Guilds().Resolve(g); err != nil || got != g {
		t.Fatalf("按实体解析失败: %v", err)
	}
	if got, err := c.Guilds().Resolve(g.Roles().Get(2)); err != nil || got != g {
		t.Fatalf("按角色解析 guild 失败: %v", err)
	}
	if _, err := c.Guilds().Resolve(3.5); !errors.Is(err, entity.ErrInvalidResolvable) {
		t.Fatalf("非法引用应返回 ErrInvalidResolvable, got %v", err)
	}
	if got, err := c.Guilds().Resolve("404"); err != nil || got != nil {
		t.Fatalf("未缓存的 id 应返回 nil")
	}
}

func TestFetch_命中缓存不发请求_Force时请求(t *testing.T) {
	c, fake := newClient(t, nil)
	seed(t, c)
	fake.Reply(rest.MethodGet, rest.User("10"), map[string]any{"id": "10", "username": "owner2"})

	u, err := c.Users().Fetch(context.Background(), 10, entity.FetchOptions{})
	if err != nil || u.Username() != "owner" {
		t.Fatalf("缓存命中返回错误: %v", err)
	}
	if len(fake.Calls()) != 0 {
		t.Fatalf("缓存命中不应发请求")
	}

	u2, err := c.Users().Fetch(context.Background(), 10, entity.FetchOptions{Force: true})
	if err != nil {
		t.Fatalf("Force Fetch err=%v", err)
	}
	if u2 != u || u.Username() != "owner2" {
		t.Fatalf("Force 结果应 patch 到同一实例")
	}
}

func TestFetch_远端错误原样返回(t *testing.T) {
	c, fake := newClient(t, nil)
	remote := rest.ErrRemoteOperationFailed.WithData("status", 404)
	fake.Fail(rest.MethodGet, rest.User("77"), remote)

	_, err := c.Users().Fetch(context.Background(), 77, entity.FetchOptions{})

	if !errors.Is(err, rest.ErrRemoteOperationFailed) {
		t.Fatalf("期望远端错误, got %v", err)
	}
	if c.Users().Get(77) != nil {
		t.Fatalf("失败的 fetch 不应写入缓存")
	}
}

func TestCollection_超出上限淘汰最旧的可淘汰记录(t *testing.T) {
	col := entity.NewLimitedCollection[int, string](2, func(v string) bool { return v == "keep" })
	col.Set(1, "keep")
	col.Set(2, "a")
	col.Set(3, "b")

	if col.Len() != 2 || !col.Has(1) || col.Has(2) || !col.Has(3) {
		t.Fatalf("淘汰结果错误 keys=%v", col.Keys())
	}
}

func TestCollection_保持插入顺序(t *testing.T) {
	col := entity.NewCollection[string, int]()
	col.Set("b", 1)
	col.Set("a", 2)
	col.Set("b", 3)

	keys := col.Keys()
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Fatalf("插入顺序错误: %v", keys)
	}
	if v, _ := col.Get("b"); v != 3 {
		t.Fatalf("覆盖写入错误: %d", v)
	}
}

func TestCacheLimit_消息缓存按配置淘汰(t *testing.T) {
	c, _ := newClient(t, serverconfig.CacheConfig{entity.CacheMessages: {MaxSize: 2}})
	seed(t, c)
	for _, id := range []string{"300", "301", "302"} {
		c.Dispatch("MESSAGE_CREATE", entity.Payload{"id": id, "channel_id": "20", "guild_id": "1", "author": obj("id", "11", "username", "bob")})
	}
	tb := c.Channels().Get(20).(entity.TextBased)
	if tb.Messages().Cache().Len() != 2 || tb.Messages().Get(300) != nil {
		t.Fatalf("最旧的消息应被淘汰: %v", tb.Messages().Cache().Keys())
	}
}

func TestRemove_tombstone对旧引用可见(t *testing.T) {
	c, _ := newClient(t, nil)
	u, _ := c.Users().Add(entity.Payload{"id": "5", "username": "x"}, true)

	c.Users().Remove(u.ID())

	if got, _ := c.Users().Resolve("5"); got != nil {
		t.Fatalf("删除后 Resolve 应返回 nil")
	}
	if !u.Deleted() || u.Username() != "x" {
		t.Fatalf("旧引用应保留最后的字段并标记 deleted")
	}

	again, _ := c.Users().Add(entity.Payload{"id": "5", "username": "x"}, true)
	if again == u || again.Deleted() {
		t.Fatalf("重新 Add 应构造未删除的新实例")
	}
}

func TestGuildAdd_快照构造频道与角色(t *testing.T) {
	c, _ := newClient(t, nil)
	g, err := c.Guilds().Add(entity.Payload{
		"id":       "9",
		"name":     "g",
		"channels": []any{obj("id", "1", "type", 0, "name", "general")},
		"roles":    []any{obj("id", "10", "name", "@everyone", "position", 0, "permissions", "104324673")},
	}, true)
	if err != nil {
		t.Fatalf("Add err=%v", err)
	}
	if g.Channels().Cache().Len() != 1 || g.Roles().Cache().Len() != 1 {
		t.Fatalf("快照应各构造一条记录")
	}
	ch := g.Channels().Get(1)
	gs, ok := ch.(entity.GuildScoped)
	if !ok || gs.Name() != "general" {
		t.Fatalf("频道 1 的 name 应为 general")
	}
	if g.Roles().Get(10) == nil {
		t.Fatalf("角色 10 应在缓存中")
	}
}

func TestAdd_频道局部patch保留缺席字段(t *testing.T) {
	c, _ := newClient(t, nil)
	seed(t, c)
	if _, err := c.Channels().Add(entity.Payload{"id": "40", "type": 0, "guild_id": "1", "name": "general", "nsfw": true}, true); err != nil {
		t.Fatalf("Add err=%v", err)
	}

	c.Channels().Add(entity.Payload{"id": "40", "topic": "hi"}, true)

	ch, ok := c.Channels().Get(40).(*entity.TextChannel)
	if !ok {
		t.Fatalf("频道 40 应为文本频道")
	}
	if ch.Name() != "general" || !ch.NSFW() {
		t.Fatalf("缺席字段不应被重置: name=%s nsfw=%v", ch.Name(), ch.NSFW())
	}
	if ch.Topic() == nil || *ch.Topic() != "hi" {
		t.Fatalf("topic 应被更新为 hi")
	}
}

func TestCacheLimit_频道淘汰同步移出guild视图(t *testing.T) {
	c, _ := newClient(t, serverconfig.CacheConfig{entity.CacheChannels: {MaxSize: 2}})
	c.Dispatch(events.Ready, entity.Payload{"user": obj("id", "900", "username", "bot")})
	c.Dispatch(events.GuildCreate, entity.Payload{
		"id":   "1",
		"name": "concord",
		"channels": []any{
			obj("id", "20", "type", 0, "name", "a", "position", 0),
			obj("id", "21", "type", 0, "name", "b", "position", 1),
			obj("id", "22", "type", 0, "name", "c", "position", 2),
		},
	})
	g := c.Guilds().Get(1)

	if c.Channels().Get(20) != nil {
		t.Fatalf("最旧的频道应被全局缓存淘汰")
	}
	if g.Channels().Get(20) != nil || len(g.Channels().Sorted()) != 2 {
		t.Fatalf("被淘汰的频道应同时移出 guild 视图: %v", g.Channels().Cache().Keys())
	}

	c.Dispatch(events.ChannelDelete, entity.Payload{"id": "21", "type": 0, "guild_id": "1"})
	if g.Channels().Get(21) != nil || len(g.Channels().Sorted()) != 1 {
		t.Fatalf("删除后 guild 视图应与全局缓存一致: %v", g.Channels().Cache().Keys())
	}
}

func TestCollection_Put返回被淘汰的记录(t *testing.T) {
	col := entity.NewLimitedCollection[int, string](1, nil)
	if _, evicted := col.Put(1, "a"); evicted {
		t.Fatalf("未满时不应淘汰")
	}
	old, evicted := col.Put(2, "b")
	if !evicted || old != "a" {
		t.Fatalf("应返回被淘汰的记录, got=%q %v", old, evicted)
	}
	if _, evicted := col.Put(2, "c"); evicted {
		t.Fatalf("覆盖已有键不应淘汰")
	}
}
