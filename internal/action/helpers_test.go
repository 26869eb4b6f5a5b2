package action_test

import (
	"context"
	"testing"

	"Concord/internal/client"
	"Concord/internal/entity"
	"Concord/internal/events"
	"Concord/internal/rest/resttest"
)

func newClient(t *testing.T) *client.Client {
	t.Helper()
	c, err := client.New(client.Options{REST: resttest.New()})
	if err != nil {
		t.Fatalf("client.New err=%v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

// record 收集某个事件名的每次参数。
func record(c *client.Client, name events.Name) *[][]any {
	var got [][]any
	c.On(name, func(args ...any) { got = append(got, args) })
	return &got
}

func obj(kv ...any) map[string]any {
	out := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i].(string)] = kv[i+1]
	}
	return out
}

// seedGuild 下发一个包含角色、频道、成员的完整 guild 快照。
func seedGuild(t *testing.T, c *client.Client) *entity.Guild {
	t.Helper()
	c.Dispatch(events.GuildCreate, entity.Payload{
		"id":           "1",
		"name":         "concord",
		"owner_id":     "10",
		"member_count": 2,
		"roles": []any{
			obj("id", "1", "name", "@everyone", "permissions", "1024", "position", 0),
			obj("id", "2", "name", "mod", "permissions", "2", "position", 1),
		},
		"channels": []any{
			obj("id", "20", "type", 0, "name", "general", "position", 0),
			obj("id", "21", "type", 2, "name", "voice", "position", 0),
		},
		"members": []any{
			obj("user", obj("id", "10", "username", "owner"), "roles", []any{}),
			obj("user", obj("id", "11", "username", "bob"), "roles", []any{"2"}),
		},
		"emojis": []any{
			obj("id", "50", "name", "smile"),
			obj("id", "51", "name", "wave"),
		},
	})
	g := c.Guilds().Get(1)
	if g == nil {
		t.Fatalf("guild 快照未写入缓存")
	}
	return g
}
