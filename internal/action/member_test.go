package action_test

import (
	"testing"

	"Concord/internal/action"
	"Concord/internal/entity"
	"Concord/internal/events"
)

func TestMemberAdd_Remove_维护成员数(t *testing.T) {
	c := newClient(t)
	g := seedGuild(t, c)
	added := record(c, events.GuildMemberAdded)
	removed := record(c, events.GuildMemberRemoved)

	c.Dispatch(events.GuildMemberAdd, entity.Payload{"guild_id": "1", "user": obj("id", "12", "username", "carol"), "roles": []any{}})
	if len(*added) != 1 || g.MemberCount() != 3 {
		t.Fatalf("成员加入处理错误 events=%d count=%d", len(*added), g.MemberCount())
	}
	m := g.Members().Get(12)

	c.Dispatch(events.GuildMemberRemove, entity.Payload{"guild_id": "1", "user": obj("id", "12", "username", "carol")})
	if len(*removed) != 1 || g.MemberCount() != 2 || g.Members().Get(12) != nil {
		t.Fatalf("成员离开处理错误 events=%d count=%d", len(*removed), g.MemberCount())
	}
	if !m.Deleted() {
		t.Fatalf("离开的成员应打 tombstone")
	}
}

func TestMemberUpdate_用户变化先发userUpdate(t *testing.T) {
	c := newClient(t)
	g := seedGuild(t, c)
	var order []string
	c.On(events.UserUpdated, func(...any) { order = append(order, "user") })
	c.On(events.GuildMemberUpdated, func(...any) { order = append(order, "member") })

	c.Dispatch(events.GuildMemberUpdate, entity.Payload{
		"guild_id": "1",
		"user":     obj("id", "11", "username", "bobby"),
		"roles":    []any{},
	})

	if len(order) != 2 || order[0] != "user" || order[1] != "member" {
		t.Fatalf("事件顺序错误: %v", order)
	}
	if c.Users().Get(11).Username() != "bobby" {
		t.Fatalf("用户名未更新")
	}
	if g.Members().Get(11).HasRole(2) {
		t.Fatalf("角色列表未更新")
	}
}

func TestMemberUpdate_无变化不发事件(t *testing.T) {
	c := newClient(t)
	seedGuild(t, c)
	updated := record(c, events.GuildMemberUpdated)

	c.Dispatch(events.GuildMemberUpdate, entity.Payload{"guild_id": "1", "user": obj("id", "11", "username", "bob"), "roles": []any{"2"}})

	if len(*updated) != 0 {
		t.Fatalf("内容相同的更新不应发事件")
	}
}

func TestMembersChunk_附带分片信息(t *testing.T) {
	c := newClient(t)
	g := seedGuild(t, c)
	chunks := record(c, events.GuildMembersChunked)

	c.Dispatch(events.GuildMembersChunk, entity.Payload{
		"guild_id":    "1",
		"chunk_index": 0,
		"chunk_count": 2,
		"nonce":       "n1",
		"not_found":   []any{"99"},
		"members": []any{
			obj("user", obj("id", "13", "username", "dan"), "roles", []any{}),
			obj("roles", []any{}),
		},
	})

	if len(*chunks) != 1 {
		t.Fatalf("chunk 事件次数错误")
	}
	args := (*chunks)[0]
	members := args[0].([]*entity.Member)
	if len(members) != 1 || args[1] != g {
		t.Fatalf("chunk 参数错误: %#v", args)
	}
	chunk := args[2].(action.MembersChunk)
	if chunk.Count != 2 || chunk.Nonce != "n1" || len(chunk.NotFound) != 1 || chunk.NotFound[0].String() != "99" {
		t.Fatalf("chunk 信息错误: %+v", chunk)
	}
	if g.Members().Get(13) == nil {
		t.Fatalf("chunk 成员未写入缓存")
	}
}

func TestPresenceUpdate_首次old为nil_相同内容不发事件(t *testing.T) {
	c := newClient(t)
	g := seedGuild(t, c)
	updates := record(c, events.PresenceUpdated)

	p := entity.Payload{"guild_id": "1", "user": obj("id", "11"), "status": "online"}
	c.Dispatch(events.PresenceUpdate, p)
	c.Dispatch(events.PresenceUpdate, p)
	c.Dispatch(events.PresenceUpdate, entity.Payload{"guild_id": "1", "user": obj("id", "11"), "status": "idle"})

	if len(*updates) != 2 {
		t.Fatalf("presenceUpdate 次数错误: %d", len(*updates))
	}
	if (*updates)[0][0] != nil {
		t.Fatalf("首次 presence 的 old 应为 nil")
	}
	if g.Presences().Get(11).Status() != "idle" {
		t.Fatalf("状态未更新")
	}
}

func TestVoiceStateUpdate_首次加入old为未连接状态(t *testing.T) {
	c := newClient(t)
	g := seedGuild(t, c)
	updates := record(c, events.VoiceStateUpdated)

	c.Dispatch(events.VoiceStateUpdate, entity.Payload{"guild_id": "1", "user_id": "11", "channel_id": "21", "session_id": "s"})
	c.Dispatch(events.VoiceStateUpdate, entity.Payload{"guild_id": "1", "user_id": "11", "channel_id": nil})

	if len(*updates) != 2 {
		t.Fatalf("voiceStateUpdate 次数错误: %d", len(*updates))
	}
	first := (*updates)[0]
	old := first[0].(*entity.VoiceState)
	if old.Connected() || old.ID().String() != "11" {
		t.Fatalf("首次加入的 old 应为未连接状态")
	}
	if cur := first[1].(*entity.VoiceState); cur.ChannelID().String() != "21" {
		t.Fatalf("加入后频道错误")
	}
	if vs := g.VoiceStates().Get(11); vs.Connected() || vs.SessionID() != "s" {
		t.Fatalf("离开语音后状态错误")
	}
}
