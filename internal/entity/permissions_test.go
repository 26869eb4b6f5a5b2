package entity_test

import (
	"testing"

	"Concord/internal/bitfield"
	"Concord/internal/entity"
)

func TestPermissions_owner与管理员拥有全部权限(t *testing.T) {
	c, _ := newClient(t, nil)
	g := seed(t, c)

	owner := g.Members().Get(10)
	admin := g.Members().Get(13)
	if !owner.Permissions().Has(bitfield.Permissions.All(), false) {
		t.Fatalf("owner 应拥有全部权限")
	}
	if !admin.Permissions().Has(bitfield.KickMembers, true) {
		t.Fatalf("管理员应通过全能位拥有任意权限")
	}
	if g.Owner() != owner {
		t.Fatalf("Owner() 解析错误")
	}
}

func TestPermissions_角色权限按位或(t *testing.T) {
	c, _ := newClient(t, nil)
	g := seed(t, c)

	bob := g.Members().Get(11)
	perms := bob.Permissions()
	if !perms.Has(bitfield.ViewChannel|bitfield.SendMessages|bitfield.KickMembers, false) {
		t.Fatalf("权限缺失: %v", perms.Names())
	}
	if perms.Has(bitfield.Administrator, false) {
		t.Fatalf("不应含有管理员位")
	}
	if !perms.IsFrozen() {
		t.Fatalf("返回的权限应为冻结实例")
	}
}

func TestPermissionsFor_频道覆盖先everyone再角色(t *testing.T) {
	c, _ := newClient(t, nil)
	g := seed(t, c)
	secret := c.Channels().Get(21).(entity.GuildChannel)

	bob := g.Members().Get(11)
	carol := g.Members().Get(12)
	if !secret.PermissionsFor(bob, true).Has(bitfield.ViewChannel, false) {
		t.Fatalf("角色覆盖应重新允许 VIEW_CHANNEL")
	}
	if secret.PermissionsFor(carol, true).Has(bitfield.ViewChannel, false) {
		t.Fatalf("everyone 覆盖应拒绝 VIEW_CHANNEL")
	}
	if !secret.PermissionsFor(g.Members().Get(13), true).Has(bitfield.ViewChannel, false) {
		t.Fatalf("管理员不受覆盖影响")
	}
	if !secret.PermissionsFor(carol, true).Has(bitfield.SendMessages, false) {
		t.Fatalf("未被覆盖的权限应保留")
	}
}

func TestRoles_按位置排序并包含everyone(t *testing.T) {
	c, _ := newClient(t, nil)
	g := seed(t, c)

	roles := g.Members().Get(13).Roles()
	if len(roles) != 2 || !roles[0].IsEveryone() || roles[1].Name() != "admin" {
		t.Fatalf("成员角色顺序错误")
	}
	if g.Members().Get(13).HighestRole().Name() != "admin" {
		t.Fatalf("最高角色错误")
	}
	mod, admin := g.Roles().Get(2), g.Roles().Get(3)
	if mod.Compare(admin) >= 0 || admin.Compare(mod) <= 0 {
		t.Fatalf("角色比较结果错误")
	}
	if admin.Position() != 2 || g.Everyone().Position() != 0 {
		t.Fatalf("派生位置错误 admin=%d everyone=%d", admin.Position(), g.Everyone().Position())
	}
}

func TestRoles_序号相同按id决胜(t *testing.T) {
	c, _ := newClient(t, nil)
	g := seed(t, c)
	c.Dispatch("GUILD_ROLE_CREATE", entity.Payload{"guild_id": "1", "role": obj("id", "4", "name", "twin", "position", 1)})

	mod, twin := g.Roles().Get(2), g.Roles().Get(4)
	if mod.Position() >= twin.Position() {
		t.Fatalf("相同序号时 id 较小者应较低 mod=%d twin=%d", mod.Position(), twin.Position())
	}
	if twin.Compare(mod) <= 0 {
		t.Fatalf("排序结果应稳定")
	}
}
