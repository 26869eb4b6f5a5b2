package action_test

import (
	"testing"

	"Concord/internal/entity"
	"Concord/internal/events"
)

func TestScheduledEvent_未缓存的更新按新建处理(t *testing.T) {
	c := newClient(t)
	g := seedGuild(t, c)
	updated := record(c, events.ScheduledEventUpdated)
	deleted := record(c, events.ScheduledEventDeleted)

	ev := entity.Payload{"id": "70", "guild_id": "1", "name": "party", "status": 1, "entity_type": 2, "channel_id": "21",
		"creator": obj("id", "10", "username", "owner")}
	c.Dispatch(events.GuildScheduledEventUpdate, ev)
	c.Dispatch(events.GuildScheduledEventUpdate, ev.With("status", 2))

	if len(*updated) != 2 || (*updated)[0][0] != nil {
		t.Fatalf("首次更新的 old 应为 nil: %#v", *updated)
	}
	if got := g.ScheduledEvents().Get(70); got == nil || got.Status() != 2 || !got.IsActive() {
		t.Fatalf("活动状态未更新")
	}

	c.Dispatch(events.GuildScheduledEventDelete, entity.Payload{"id": "70", "guild_id": "1"})
	if len(*deleted) != 1 || g.ScheduledEvents().Get(70) != nil {
		t.Fatalf("活动删除错误")
	}
}

func TestAutoModRule_创建更新删除(t *testing.T) {
	c := newClient(t)
	g := seedGuild(t, c)
	created := record(c, events.AutoModerationRuleCreated)
	updated := record(c, events.AutoModerationRuleUpdated)
	deleted := record(c, events.AutoModerationRuleDeleted)

	rule := entity.Payload{"id": "80", "guild_id": "1", "name": "no-spam", "enabled": true, "trigger_type": 3, "event_type": 1,
		"actions": []any{obj("type", 1)}}
	c.Dispatch(events.AutoModerationRuleCreate, rule)
	c.Dispatch(events.AutoModerationRuleUpdate, rule.With("enabled", false))
	c.Dispatch(events.AutoModerationRuleDelete, entity.Payload{"id": "80", "guild_id": "1"})

	if len(*created) != 1 || len(*updated) != 1 || len(*deleted) != 1 {
		t.Fatalf("事件次数错误 create=%d update=%d delete=%d", len(*created), len(*updated), len(*deleted))
	}
	old := (*updated)[0][0].(*entity.AutoModerationRule)
	if !old.Enabled() {
		t.Fatalf("old 应保留修改前的 enabled")
	}
	if g.AutoModerationRules().Get(80) != nil {
		t.Fatalf("规则未被删除")
	}
}

func TestInvite_按code缓存与删除(t *testing.T) {
	c := newClient(t)
	g := seedGuild(t, c)
	created := record(c, events.InviteCreated)
	deleted := record(c, events.InviteDeleted)

	c.Dispatch(events.InviteCreate, entity.Payload{"code": "abc", "guild_id": "1", "channel_id": "20", "max_age": 3600, "uses": 0,
		"created_at": "2024-01-01T00:00:00Z", "inviter": obj("id", "10", "username", "owner")})

	inv := g.Invites().Get("abc")
	if len(*created) != 1 || inv == nil || inv.Inviter() == nil {
		t.Fatalf("邀请未缓存或邀请人未解析")
	}
	if inv.ExpiresAt().IsZero() {
		t.Fatalf("有 max_age 的邀请应能推算过期时间")
	}

	c.Dispatch(events.InviteDelete, entity.Payload{"code": "abc", "guild_id": "1", "channel_id": "20"})
	c.Dispatch(events.InviteDelete, entity.Payload{"code": "abc", "guild_id": "1", "channel_id": "20"})
	if len(*deleted) != 1 || !inv.Deleted() {
		t.Fatalf("邀请删除错误: %d", len(*deleted))
	}
}

func TestDispatcher_覆盖全部dispatch类型(t *testing.T) {
	c := newClient(t)
	for _, typ := range []string{
		events.Ready, events.Resumed, events.UserUpdate,
		events.GuildCreate, events.GuildUpdate, events.GuildDelete,
		events.GuildRoleCreate, events.GuildRoleUpdate, events.GuildRoleDelete,
		events.ChannelCreate, events.ChannelUpdate, events.ChannelDelete, events.ChannelPinsUpdate,
		events.ThreadCreate, events.ThreadUpdate, events.ThreadDelete, events.ThreadListSync,
		events.ThreadMemberUpdate, events.ThreadMembersUpdate,
		events.GuildMemberAdd, events.GuildMemberUpdate, events.GuildMemberRemove, events.GuildMembersChunk,
		events.PresenceUpdate, events.MessageCreate, events.MessageUpdate, events.MessageDelete, events.MessageDeleteBulk,
		events.VoiceStateUpdate,
		events.GuildScheduledEventCreate, events.GuildScheduledEventUpdate, events.GuildScheduledEventDelete,
		events.AutoModerationRuleCreate, events.AutoModerationRuleUpdate, events.AutoModerationRuleDelete,
		events.InviteCreate, events.InviteDelete, events.GuildEmojisUpdate, events.GuildStickersUpdate,
	} {
		if !c.Handles(typ) {
			t.Fatalf("缺少 %s 的处理器", typ)
		}
	}
}

func TestDispatcher_畸形payload不panic(t *testing.T) {
	c := newClient(t)
	seedGuild(t, c)
	for _, typ := range []string{
		events.GuildRoleDelete, events.ChannelDelete, events.GuildMemberRemove, events.MessageDelete,
		events.GuildScheduledEventDelete, events.InviteDelete, events.GuildEmojiDelete,
	} {
		c.Dispatch(typ, entity.Payload{"guild_id": "1"})
		c.Dispatch(typ, nil)
	}
}
