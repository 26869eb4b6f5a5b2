package client

import (
	"context"
	"testing"
	"time"

	"Concord/internal/entity"
	"Concord/internal/events"
	"Concord/internal/shared/serverconfig"
)

func TestSweep_按id时间清理过期消息(t *testing.T) {
	c, _ := newTestClient(t, nil)
	c.Dispatch(events.GuildCreate, guildPayload())
	// 很小的 id 对应平台纪元附近的时间，必然过期
	c.Dispatch(events.MessageCreate, entity.Payload{"id": "30", "channel_id": "20", "guild_id": "1", "content": "old",
		"author": map[string]any{"id": "10", "username": "owner"}})

	ch, ok := c.Channels().Get(20).(entity.TextBased)
	if !ok || ch.Messages().Get(30) == nil {
		t.Fatalf("消息未被缓存")
	}

	if n := c.Sweep(entity.CacheMessages, time.Hour); n != 1 {
		t.Fatalf("清理条数错误: %d", n)
	}
	if ch.Messages().Get(30) != nil {
		t.Fatalf("过期消息仍在缓存中")
	}
}

func TestSweep_只清理归档线程(t *testing.T) {
	c, _ := newTestClient(t, nil)
	c.Dispatch(events.GuildCreate, guildPayload())
	c.Dispatch(events.ThreadCreate, entity.Payload{"id": "40", "type": 11, "guild_id": "1", "parent_id": "20", "name": "open",
		"thread_metadata": map[string]any{"archived": false}})
	c.Dispatch(events.ThreadCreate, entity.Payload{"id": "41", "type": 11, "guild_id": "1", "parent_id": "20", "name": "closed",
		"thread_metadata": map[string]any{"archived": true, "archive_timestamp": "2020-01-01T00:00:00Z"}})

	if n := c.Sweep(entity.CacheThreads, time.Hour); n != 1 {
		t.Fatalf("清理条数错误: %d", n)
	}
	if c.Channels().Get(40) == nil {
		t.Fatalf("未归档线程不应被清理")
	}
	evicted := c.Channels().Get(41)
	if evicted != nil {
		t.Fatalf("归档线程应被移出缓存")
	}
	if parent, ok := c.Channels().Get(20).(*entity.TextChannel); !ok || parent.Threads().Get(41) != nil {
		t.Fatalf("父频道的线程视图未同步")
	}
}

func TestStartSweepers_Close后停止(t *testing.T) {
	c, _ := newTestClient(t, serverconfig.CacheConfig{
		entity.CacheMessages: {SweepIntervalS: 1, SweepLifetimeS: 60},
		"unknown_manager":    {SweepIntervalS: 1},
	})
	c.StartSweepers()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Close(ctx); err != nil {
		t.Fatalf("Close err=%v", err)
	}
	if err := c.Close(ctx); err != nil {
		t.Fatalf("重复 Close err=%v", err)
	}
}
