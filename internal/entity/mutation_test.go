package entity_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"Concord/internal/entity"
	"Concord/internal/events"
	"Concord/internal/rest"
)

func TestRoleEdit_REST结果经同一对账路径落到缓存(t *testing.T) {
	c, fake := newClient(t, nil)
	g := seed(t, c)
	role := g.Roles().Get(2)
	fake.Reply(rest.MethodPatch, rest.GuildRole("1", "2"), map[string]any{"id": "2", "name": "moderator", "permissions": "2", "position": 1})
	var updated [][]any
	c.On(events.RoleUpdated, func(args ...any) { updated = append(updated, args) })

	name := "moderator"
	got, err := role.Edit(context.Background(), entity.RoleEditOptions{Name: &name})
	if err != nil {
		t.Fatalf("Edit err=%v", err)
	}

	if got != role || role.Name() != "moderator" {
		t.Fatalf("Edit 应返回 patch 后的同一实例")
	}
	if len(updated) != 1 {
		t.Fatalf("REST 变更也应发出 roleUpdate: %d", len(updated))
	}
	call, _ := fake.Last()
	body := call.Body.(map[string]any)
	if body["name"] != "moderator" || len(body) != 1 {
		t.Fatalf("请求体只应包含设置的字段: %#v", body)
	}
}

func TestRoleEdit_已删除实体快速失败(t *testing.T) {
	c, fake := newClient(t, nil)
	g := seed(t, c)
	role := g.Roles().Get(2)
	c.Dispatch(events.GuildRoleDelete, entity.Payload{"guild_id": "1", "role_id": "2"})

	_, err := role.SetName(context.Background(), "x")

	if !errors.Is(err, entity.ErrStaleEntity) {
		t.Fatalf("期望 ErrStaleEntity, got %v", err)
	}
	if len(fake.Calls()) != 0 {
		t.Fatalf("tombstone 实体不应发起请求")
	}
	if role.Name() != "mod" {
		t.Fatalf("tombstone 实体仍可读取最后数据")
	}
}

func TestRoleCreate_远端失败不修改缓存(t *testing.T) {
	c, fake := newClient(t, nil)
	g := seed(t, c)
	fake.Fail(rest.MethodPost, rest.GuildRoles("1"), rest.ErrRemoteOperationFailed.WithData("status", 403))

	_, err := g.Roles().Create(context.Background(), entity.RoleEditOptions{})

	if !errors.Is(err, rest.ErrRemoteOperationFailed) {
		t.Fatalf("远端错误应原样返回, got %v", err)
	}
	if g.Roles().Cache().Len() != 3 {
		t.Fatalf("失败时缓存不应变化")
	}
}

func TestMessageSend_携带nonce且与网关回显去重(t *testing.T) {
	c, fake := newClient(t, nil)
	seed(t, c)
	reply := map[string]any{"id": "300", "channel_id": "20", "guild_id": "1", "content": "hi",
		"author": map[string]any{"id": "900", "username": "bot"}}
	fake.Reply(rest.MethodPost, rest.ChannelMessages("20"), reply)
	created := 0
	c.On(events.MessageCreated, func(...any) { created++ })
	tb := c.Channels().Get(20).(entity.TextBased)

	msg, err := tb.Messages().Send(context.Background(), entity.MessageCreateOptions{Content: "hi"})
	if err != nil {
		t.Fatalf("Send err=%v", err)
	}
	c.Dispatch(events.MessageCreate, entity.Payload(reply))

	if created != 1 {
		t.Fatalf("REST 与网关回显只应产生一次 messageCreate: %d", created)
	}
	if tb.Messages().Get(300) != msg {
		t.Fatalf("Send 返回的实例应是缓存实例")
	}
	call, _ := fake.Last()
	body := call.Body.(map[string]any)
	if body["nonce"] == nil || body["enforce_nonce"] != true {
		t.Fatalf("请求体缺少 nonce: %#v", body)
	}
}

func TestBulkDelete_数量限制与单条退化(t *testing.T) {
	c, fake := newClient(t, nil)
	seed(t, c)
	tb := c.Channels().Get(20).(entity.TextBased)

	many := make([]any, 101)
	for i := range many {
		many[i] = "1000"
	}
	if _, err := tb.Messages().BulkDelete(context.Background(), many); !errors.Is(err, entity.ErrInvalidResolvable) {
		t.Fatalf("超过 100 条应报错, got %v", err)
	}

	if _, err := tb.Messages().BulkDelete(context.Background(), []any{"300"}); err != nil {
		t.Fatalf("单条删除 err=%v", err)
	}
	call, _ := fake.Last()
	if call.Method != rest.MethodDelete || call.Route != rest.ChannelMessage("20", "300") {
		t.Fatalf("单条应退化为普通删除: %+v", call)
	}
}

func TestMessageSend_频道删除后快速失败(t *testing.T) {
	c, fake := newClient(t, nil)
	seed(t, c)
	tb := c.Channels().Get(20).(entity.TextBased)
	c.Dispatch(events.ChannelDelete, entity.Payload{"id": "20", "type": 0, "guild_id": "1"})

	_, err := tb.Messages().Send(context.Background(), entity.MessageCreateOptions{Content: "hi"})

	if !errors.Is(err, entity.ErrStaleEntity) {
		t.Fatalf("期望 ErrStaleEntity, got %v", err)
	}
	if len(fake.Calls()) != 0 {
		t.Fatalf("不应发起请求")
	}
}

func TestMemberKick_发出guildMemberRemove(t *testing.T) {
	c, fake := newClient(t, nil)
	g := seed(t, c)
	removed := 0
	c.On(events.GuildMemberRemoved, func(...any) { removed++ })

	if err := g.Members().Get(12).Kick(context.Background()); err != nil {
		t.Fatalf("Kick err=%v", err)
	}

	call, _ := fake.Last()
	if call.Method != rest.MethodDelete || call.Route != rest.GuildMember("1", "12") {
		t.Fatalf("请求错误: %+v", call)
	}
	if removed != 1 || g.Members().Get(12) != nil {
		t.Fatalf("踢出后成员仍在缓存中")
	}
}

func TestGuildLeave_owner不能离开(t *testing.T) {
	c, fake := newClient(t, nil)
	c.Dispatch(events.Ready, entity.Payload{"user": obj("id", "10", "username", "owner")})
	c.Dispatch(events.GuildCreate, entity.Payload{"id": "1", "name": "mine", "owner_id": "10"})

	err := c.Guilds().Get(1).Leave(context.Background())
	if !errors.Is(err, entity.ErrOwnerCannotLeave) {
		t.Fatalf("owner 离开应返回 ErrOwnerCannotLeave, got %v", err)
	}
	if errors.Is(err, entity.ErrInvalidResolvable) {
		t.Fatalf("owner 离开不应复用 ErrInvalidResolvable")
	}
	if len(fake.Calls()) != 0 {
		t.Fatalf("不应发起请求")
	}
}

func TestInviteFetch_接受完整链接(t *testing.T) {
	c, fake := newClient(t, nil)
	g := seed(t, c)
	fake.Reply(rest.MethodGet, rest.Invite("abc"), map[string]any{"code": "abc", "guild_id": "1", "guild": map[string]any{"id": "1"}, "channel_id": "20"})

	inv, err := g.Invites().Fetch(context.Background(), entity.InviteBaseURL+"abc", entity.FetchOptions{})
	if err != nil {
		t.Fatalf("Fetch err=%v", err)
	}
	if inv.Code() != "abc" || g.Invites().Get("abc") != inv {
		t.Fatalf("邀请应按 code 缓存")
	}
	if inv.URL() != entity.InviteBaseURL+"abc" {
		t.Fatalf("URL 错误: %s", inv.URL())
	}
}

func TestEmojiCreate_经内部事件落到缓存(t *testing.T) {
	c, fake := newClient(t, nil)
	g := seed(t, c)
	fake.Reply(rest.MethodPost, rest.GuildEmojis("1"), map[string]any{"id": "55", "name": "party"})
	created := 0
	c.On(events.EmojiCreated, func(...any) { created++ })

	e, err := g.Emojis().Create(context.Background(), entity.EmojiCreateOptions{Name: "party", Image: "data:image/png;base64,AAAA"})
	if err != nil {
		t.Fatalf("Create err=%v", err)
	}

	if created != 1 || g.Emojis().Get(55) != e || e.GuildID().String() != "1" {
		t.Fatalf("表情未正确入缓存")
	}
}

func TestMemberAddRole_并发增删角色不丢失更新(t *testing.T) {
	c, _ := newClient(t, nil)
	g := seed(t, c)
	carol := g.Members().Get(12)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			c.Dispatch(events.GuildMemberUpdate, entity.Payload{"guild_id": "1", "user": obj("id", "12"), "nick": "c" + string(rune('a'+i%26))})
		}
	}()
	var adds sync.WaitGroup
	for _, rid := range []string{"2", "3"} {
		adds.Add(1)
		go func(rid string) {
			defer adds.Done()
			for i := 0; i < 200; i++ {
				if _, err := carol.AddRole(context.Background(), rid); err != nil {
					t.Errorf("AddRole err=%v", err)
					return
				}
			}
		}(rid)
	}
	adds.Wait()
	close(stop)
	wg.Wait()

	if !carol.HasRole(2) || !carol.HasRole(3) || len(carol.RoleIDs()) != 2 {
		t.Fatalf("并发增加的角色都应保留, got=%v", carol.RoleIDs())
	}
}

func TestMemberAddRole_成员未缓存时返回不缓存的实例(t *testing.T) {
	c, fake := newClient(t, nil)
	g := seed(t, c)

	m, err := g.Members().AddRole(context.Background(), "77", "2")
	if err != nil {
		t.Fatalf("AddRole err=%v", err)
	}
	if m == nil || m.ID().String() != "77" || !m.HasRole(2) {
		t.Fatalf("未缓存成员也应返回带新角色的实例: %+v", m)
	}
	if g.Members().Get(77) != nil {
		t.Fatalf("未缓存成员不应被写入缓存")
	}
	if call, _ := fake.Last(); call.Method != rest.MethodPut || call.Route != rest.GuildMemberRole("1", "77", "2") {
		t.Fatalf("请求不符: %+v", call)
	}
}

func TestOverwriteEdit_合并覆盖后经频道更新对账(t *testing.T) {
	c, _ := newClient(t, nil)
	seed(t, c)
	ch := c.Channels().Get(21).(entity.GuildChannel)

	if err := ch.PermissionOverwrites().Edit(context.Background(), "2", entity.OverwriteOptions{Allow: "2048"}, true); err != nil {
		t.Fatalf("Edit err=%v", err)
	}

	ow := ch.PermissionOverwrites().Get(2)
	if ow == nil || !ow.Allow().Has(1024, false) || !ow.Allow().Has(2048, false) {
		t.Fatalf("合并后应同时允许 1024 与 2048: %+v", ow)
	}
	if ch.PermissionOverwrites().Get(1) == nil {
		t.Fatalf("其它目标的覆盖不应丢失")
	}
}
