package action_test

import (
	"testing"

	"Concord/internal/entity"
	"Concord/internal/events"
)

func TestGuildCreate_快照填充全部集合(t *testing.T) {
	c := newClient(t)
	created := record(c, events.GuildCreated)

	g := seedGuild(t, c)

	if len(*created) != 1 || (*created)[0][0] != g {
		t.Fatalf("guildCreate 参数错误: %#v", *created)
	}
	if g.Roles().Cache().Len() != 2 || g.Channels().Cache().Len() != 2 || g.Members().Cache().Len() != 2 {
		t.Fatalf("集合数量错误 roles=%d channels=%d members=%d",
			g.Roles().Cache().Len(), g.Channels().Cache().Len(), g.Members().Cache().Len())
	}
	if g.Everyone() == nil || g.Everyone().Name() != "@everyone" {
		t.Fatalf("everyone 角色缺失")
	}
	if c.Users().Get(11) == nil {
		t.Fatalf("成员附带的用户未写入全局缓存")
	}
	if g.Emojis().Cache().Len() != 2 {
		t.Fatalf("表情数量错误: %d", g.Emojis().Cache().Len())
	}
}

func TestGuildUpdate_局部更新不丢字段且保持实例(t *testing.T) {
	c := newClient(t)
	g := seedGuild(t, c)
	updated := record(c, events.GuildUpdated)

	c.Dispatch(events.GuildUpdate, entity.Payload{"id": "1", "name": "renamed"})

	if c.Guilds().Get(1) != g {
		t.Fatalf("更新后实例身份变化")
	}
	if g.Name() != "renamed" || g.OwnerID().String() != "10" || g.MemberCount() != 2 {
		t.Fatalf("局部更新结果错误 name=%q owner=%s count=%d", g.Name(), g.OwnerID(), g.MemberCount())
	}
	if g.Roles().Cache().Len() != 2 {
		t.Fatalf("未携带 roles 的更新不应清空角色")
	}
	if len(*updated) != 1 {
		t.Fatalf("guildUpdate 次数错误: %d", len(*updated))
	}
	old := (*updated)[0][0].(*entity.Guild)
	if old.Name() != "concord" || old == g {
		t.Fatalf("old 应为修改前的拷贝: %q", old.Name())
	}
}

func TestGuildDelete_不可用保留实体_离开则tombstone(t *testing.T) {
	c := newClient(t)
	g := seedGuild(t, c)
	unavailable := record(c, events.GuildUnavailable)
	deleted := record(c, events.GuildDeleted)

	c.Dispatch(events.GuildDelete, entity.Payload{"id": "1", "unavailable": true})
	if len(*unavailable) != 1 || c.Guilds().Get(1) != g || g.Available() {
		t.Fatalf("服务端故障时 guild 应保留并标记为不可用")
	}

	c.Dispatch(events.GuildDelete, entity.Payload{"id": "1"})
	if len(*deleted) != 1 || c.Guilds().Get(1) != nil {
		t.Fatalf("离开 guild 后应从缓存移除")
	}
	if !g.Deleted() {
		t.Fatalf("被删除的 guild 应打 tombstone")
	}
	if g.Name() != "concord" {
		t.Fatalf("tombstone 后仍应可读最后数据")
	}
	if c.Channels().Get(20) != nil {
		t.Fatalf("guild 删除后其频道应从全局缓存移除")
	}
}

func TestGuildCreate_删除后重新加入得到新实例(t *testing.T) {
	c := newClient(t)
	first := seedGuild(t, c)
	c.Dispatch(events.GuildDelete, entity.Payload{"id": "1"})

	second := seedGuild(t, c)

	if first == second {
		t.Fatalf("重新加入应构造新实例")
	}
	if !first.Deleted() || second.Deleted() {
		t.Fatalf("tombstone 状态错误 first=%v second=%v", first.Deleted(), second.Deleted())
	}
}

func TestRole_创建更新删除(t *testing.T) {
	c := newClient(t)
	g := seedGuild(t, c)
	created := record(c, events.RoleCreated)
	updated := record(c, events.RoleUpdated)
	deleted := record(c, events.RoleDeleted)

	role := obj("id", "3", "name", "vip", "permissions", "0", "position", 2)
	c.Dispatch(events.GuildRoleCreate, entity.Payload{"guild_id": "1", "role": role})
	c.Dispatch(events.GuildRoleCreate, entity.Payload{"guild_id": "1", "role": role})
	if len(*created) != 1 {
		t.Fatalf("重复创建不应再次发事件: %d", len(*created))
	}

	r := g.Roles().Get(3)
	c.Dispatch(events.GuildRoleUpdate, entity.Payload{"guild_id": "1", "role": obj("id", "3", "name", "vip+")})
	if len(*updated) != 1 || g.Roles().Get(3) != r || r.Name() != "vip+" {
		t.Fatalf("角色更新错误")
	}
	if r.Permissions().Bits() != 0 || r.RawPosition() != 2 {
		t.Fatalf("未携带的字段不应被重置")
	}

	c.Dispatch(events.GuildRoleDelete, entity.Payload{"guild_id": "1", "role_id": "3"})
	if len(*deleted) != 1 || g.Roles().Get(3) != nil || !r.Deleted() {
		t.Fatalf("角色删除错误")
	}
}

func TestRole_未缓存guild的事件被丢弃(t *testing.T) {
	c := newClient(t)
	created := record(c, events.RoleCreated)

	c.Dispatch(events.GuildRoleCreate, entity.Payload{"guild_id": "404", "role": obj("id", "3", "name", "x")})

	if len(*created) != 0 || c.Guilds().Get(404) != nil {
		t.Fatalf("未缓存 guild 的角色事件不应产生效果")
	}
}

func TestRolesPositionUpdate_只改序号不发事件(t *testing.T) {
	c := newClient(t)
	g := seedGuild(t, c)
	updated := record(c, events.RoleUpdated)

	c.Dispatch(events.GuildRolesPositionUpdate, entity.Payload{"guild_id": "1", "roles": []any{
		obj("id", "2", "position", 5),
	}})

	if g.Roles().Get(2).RawPosition() != 5 {
		t.Fatalf("rawPosition 未更新")
	}
	if len(*updated) != 0 {
		t.Fatalf("位置批量更新不应发 roleUpdate")
	}
}
