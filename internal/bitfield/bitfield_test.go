package bitfield

import (
	"errors"
	"slices"
	"testing"
)

func TestHas_管理员全能位覆盖(t *testing.T) {
	perms, err := New(Permissions, []string{"ADMINISTRATOR"})
	if err != nil {
		t.Fatalf("New err=%v", err)
	}
	send := Permissions.MustResolve("SEND_MESSAGES")

	if !perms.Has(send, true) {
		t.Fatalf("期望 checkOverride=true 时返回 true")
	}
	if perms.Has(send, false) {
		t.Fatalf("期望 checkOverride=false 时返回 false")
	}
	if !perms.HasName("SEND_MESSAGES", true) {
		t.Fatalf("HasName 应与 Has 一致")
	}
	if got := perms.Missing(send, true); len(got) != 0 {
		t.Fatalf("管理员不应缺少任何权限, got=%v", got)
	}
	if got := perms.Missing(send, false); !slices.Equal(got, []string{"SEND_MESSAGES"}) {
		t.Fatalf("Missing 不符合预期, got=%v", got)
	}
}

func TestOverride_仅对定义了全能位的集合生效(t *testing.T) {
	intents, _ := New(Intents, Bit(1<<3))
	if intents.Has(Intents.MustResolve("GUILDS"), true) {
		t.Fatalf("intents 没有全能位，不应被覆盖")
	}
}

func TestResolve_多种输入形态(t *testing.T) {
	cases := []struct {
		in   any
		want Bit
	}{
		{"104324673", Bit(104324673)},
		{"SEND_MESSAGES", SendMessages},
		{[]string{"VIEW_CHANNEL", "SEND_MESSAGES"}, ViewChannel | SendMessages},
		{[]any{"VIEW_CHANNEL", float64(SendMessages)}, ViewChannel | SendMessages},
		{float64(8), Administrator},
		{Frozen(Permissions, KickMembers), KickMembers},
		{nil, 0},
	}
	for _, c := range cases {
		got, err := Permissions.Resolve(c.in)
		if err != nil || got != c.want {
			t.Fatalf("Resolve(%v) got=%d err=%v want=%d", c.in, got, err, c.want)
		}
	}
}

func TestResolve_非法输入返回错误(t *testing.T) {
	for _, in := range []any{"NOT_A_FLAG", -1, 1.5, struct{}{}} {
		if _, err := Permissions.Resolve(in); !errors.Is(err, ErrInvalidBitField) {
			t.Fatalf("期望 %v 解析失败, err=%v", in, err)
		}
	}
}

func TestFrozen_Add返回新实例且原值不变(t *testing.T) {
	frozen := Frozen(Permissions, ViewChannel)
	next := frozen.Add(SendMessages)

	if next == frozen {
		t.Fatalf("冻结实例 Add 应返回新实例")
	}
	if frozen.Has(SendMessages, false) {
		t.Fatalf("冻结实例不应被修改")
	}
	if !next.Has(ViewChannel|SendMessages, false) || next.IsFrozen() {
		t.Fatalf("新实例应包含两位且未冻结, got=%s", next)
	}

	removed := frozen.Remove(ViewChannel)
	if removed.Bits() != 0 || frozen.Bits() != ViewChannel {
		t.Fatalf("Remove 语义错误 removed=%d frozen=%d", removed.Bits(), frozen.Bits())
	}
}

func TestUnfrozen_Add原地修改(t *testing.T) {
	bf, _ := New(Permissions, nil)
	same := bf.Add(SendMessages).Remove(KickMembers)
	if same != bf || bf.Bits() != SendMessages {
		t.Fatalf("未冻结实例应原地修改, bits=%d", bf.Bits())
	}
}

func TestNames_按定义顺序且String为十进制(t *testing.T) {
	bf, _ := New(Permissions, SendMessages|ViewChannel)
	if got := bf.Names(); !slices.Equal(got, []string{"VIEW_CHANNEL", "SEND_MESSAGES"}) {
		t.Fatalf("Names 顺序错误, got=%v", got)
	}
	if bf.String() != "3072" {
		t.Fatalf("String 错误, got=%s", bf.String())
	}
	ser := bf.Serialize()
	if !ser["VIEW_CHANNEL"] || ser["ADMINISTRATOR"] {
		t.Fatalf("Serialize 错误, got=%v", ser)
	}
	if !bf.Equals(Frozen(Permissions, "3072")) {
		t.Fatalf("Equals 应只比较位值")
	}
}
