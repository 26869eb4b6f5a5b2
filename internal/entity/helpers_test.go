package entity_test

import (
	"context"
	"testing"

	"Concord/internal/client"
	"Concord/internal/entity"
	"Concord/internal/events"
	"Concord/internal/rest/resttest"
	"Concord/internal/shared/serverconfig"
)

func newClient(t *testing.T, cache serverconfig.CacheConfig) (*client.Client, *resttest.Fake) {
	t.Helper()
	fake := resttest.New()
	c, err := client.New(client.Options{REST: fake, Cache: cache})
	if err != nil {
		t.Fatalf("client.New err=%v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c, fake
}

func obj(kv ...any) map[string]any {
	out := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i].(string)] = kv[i+1]
	}
	return out
}

// seed 下发 READY 与一个 guild 快照：10 是 owner，11 持有 mod 角色，900 是当前用户。
func seed(t *testing.T, c *client.Client) *entity.Guild {
	t.Helper()
	c.Dispatch(events.Ready, entity.Payload{"user": obj("id", "900", "username", "bot", "bot", true)})
	c.Dispatch(events.GuildCreate, entity.Payload{
		"id":       "1",
		"name":     "concord",
		"owner_id": "10",
		"roles": []any{
			obj("id", "1", "name", "@everyone", "permissions", "3072", "position", 0),
			obj("id", "2", "name", "mod", "permissions", "2", "position", 1),
			obj("id", "3", "name", "admin", "permissions", "8", "position", 2),
		},
		"channels": []any{
			obj("id", "20", "type", 0, "name", "general", "position", 0),
			obj("id", "21", "type", 0, "name", "secret", "position", 1, "permission_overwrites", []any{
				obj("id", "1", "type", 0, "allow", "0", "deny", "1024"),
				obj("id", "2", "type", 0, "allow", "1024", "deny", "0"),
			}),
		},
		"members": []any{
			obj("user", obj("id", "10", "username", "owner"), "roles", []any{}),
			obj("user", obj("id", "11", "username", "bob"), "roles", []any{"2"}),
			obj("user", obj("id", "12", "username", "carol"), "roles", []any{}),
			obj("user", obj("id", "13", "username", "dave"), "roles", []any{"3"}),
			obj("user", obj("id", "900", "username", "bot"), "roles", []any{}),
		},
	})
	g := c.Guilds().Get(1)
	if g == nil {
		t.Fatalf("guild 未缓存")
	}
	return g
}
