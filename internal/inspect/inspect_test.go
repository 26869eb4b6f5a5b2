package inspect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"Concord/internal/client"
	"Concord/internal/entity"
	"Concord/internal/events"
	"Concord/internal/rest/resttest"
	"Concord/internal/shared/security"
	transporthttp "Concord/internal/shared/transport/http"
	"Concord/modules/kit/logx"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
)

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func newServer(t *testing.T, opts Options) (*transporthttp.Server, *client.Client) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, err := client.New(client.Options{REST: resttest.New()})
	if err != nil {
		t.Fatalf("client.New err=%v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	c.Dispatch(events.Ready, entity.Payload{"user": map[string]any{"id": "900", "username": "bot"}})
	c.Dispatch(events.GuildCreate, entity.Payload{
		"id":           "1",
		"name":         "concord",
		"owner_id":     "10",
		"member_count": 2,
		"roles": []any{
			map[string]any{"id": "1", "name": "@everyone", "permissions": "1024", "position": 0},
			map[string]any{"id": "2", "name": "admin", "permissions": "8", "position": 1},
		},
		"channels": []any{
			map[string]any{"id": "20", "type": 0, "name": "general", "position": 1},
			map[string]any{"id": "21", "type": 0, "name": "random", "position": 1},
			map[string]any{"id": "22", "type": 0, "name": "rules", "position": 0},
		},
		"members": []any{
			map[string]any{"user": map[string]any{"id": "10", "username": "owner"}, "roles": []any{}},
			map[string]any{"user": map[string]any{"id": "11", "username": "alice"}, "roles": []any{"2"}, "nick": "ally"},
		},
	})

	s := transporthttp.NewHttpServer(":0", gin.New(), logx.Nop())
	New(c, opts).HttpRegister(s.Group())
	return s, c
}

func get(t *testing.T, s *transporthttp.Server, path, token string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("响应不是合法 JSON: %s", w.Body.String())
		}
	}
	return w.Code, env
}

func TestInspect_guild列表与详情(t *testing.T) {
	s, _ := newServer(t, Options{})

	code, env := get(t, s, "/api/guilds", "")
	if code != http.StatusOK || env.Code != 0 {
		t.Fatalf("列表请求失败: %d %+v", code, env)
	}
	var list []guildSummary
	_ = json.Unmarshal(env.Data, &list)
	if len(list) != 1 || list[0].Name != "concord" || !list[0].Available {
		t.Fatalf("guild 列表不符: %+v", list)
	}

	code, env = get(t, s, "/api/guilds/1", "")
	if code != http.StatusOK {
		t.Fatalf("详情请求失败: %d", code)
	}
	var view guildView
	_ = json.Unmarshal(env.Data, &view)
	if view.OwnerID.String() != "10" || view.Cached["members"] != 2 || view.Cached["channels"] != 3 {
		t.Fatalf("guild 详情不符: %+v", view)
	}
}

func TestInspect_频道按计算位置排序(t *testing.T) {
	s, _ := newServer(t, Options{})

	_, env := get(t, s, "/api/guilds/1/channels", "")
	var chans []channelView
	_ = json.Unmarshal(env.Data, &chans)
	want := []string{"22", "20", "21"}
	if len(chans) != len(want) {
		t.Fatalf("频道数量不符: %+v", chans)
	}
	for i, ch := range chans {
		if ch.ID.String() != want[i] {
			t.Fatalf("频道顺序应为 %v, got[%d]=%s", want, i, ch.ID)
		}
		if ch.Position == nil || *ch.Position != i {
			t.Fatalf("频道 %s 的计算位置应为 %d", ch.ID, i)
		}
	}
}

func TestInspect_成员权限与角色排序(t *testing.T) {
	s, _ := newServer(t, Options{})

	_, env := get(t, s, "/api/guilds/1/members/11", "")
	var mem memberView
	_ = json.Unmarshal(env.Data, &mem)
	if mem.DisplayName != "ally" {
		t.Fatalf("display name 应取 nick, got=%s", mem.DisplayName)
	}
	hasAdmin := false
	for _, p := range mem.Permissions {
		if p == "ADMINISTRATOR" {
			hasAdmin = true
		}
	}
	if !hasAdmin {
		t.Fatalf("成员权限应包含 ADMINISTRATOR: %v", mem.Permissions)
	}

	_, env = get(t, s, "/api/guilds/1/roles", "")
	var roles []roleView
	_ = json.Unmarshal(env.Data, &roles)
	if len(roles) != 2 || roles[0].Name != "@everyone" || roles[1].Position != 1 {
		t.Fatalf("角色排序不符: %+v", roles)
	}
}

func TestInspect_未缓存与非法id(t *testing.T) {
	s, _ := newServer(t, Options{})

	if code, env := get(t, s, "/api/guilds/999", ""); code != http.StatusNotFound || env.Code != 404 {
		t.Fatalf("未缓存 guild 应返回 404, got=%d %+v", code, env)
	}
	if code, _ := get(t, s, "/api/channels/abc", ""); code != http.StatusBadRequest {
		t.Fatalf("非法 id 应返回 400, got=%d", code)
	}
	code, env := get(t, s, "/api/channels/20", "")
	if code != http.StatusOK {
		t.Fatalf("已缓存频道应返回 200, got=%d", code)
	}
	var ch channelView
	_ = json.Unmarshal(env.Data, &ch)
	if ch.Name != "general" || ch.GuildID.String() != "1" {
		t.Fatalf("频道详情不符: %+v", ch)
	}
}

func TestInspect_删除后不可见(t *testing.T) {
	s, c := newServer(t, Options{})
	c.Dispatch(events.ChannelDelete, entity.Payload{"id": "20", "type": 0, "guild_id": "1"})

	if code, _ := get(t, s, "/api/channels/20", ""); code != http.StatusNotFound {
		t.Fatalf("删除后的频道不应再可见, got=%d", code)
	}
}

func TestInspect_开启鉴权后需要scope(t *testing.T) {
	t.Setenv("JWT_SECRET", "inspect-secret")
	s, _ := newServer(t, Options{NeedAuth: true})

	if code, _ := get(t, s, "/api/guilds", ""); code != http.StatusUnauthorized {
		t.Fatalf("无 token 应返回 401, got=%d", code)
	}
	token, err := security.Award("ops", time.Minute, security.ScopeInspect)
	if err != nil {
		t.Fatalf("Award err=%v", err)
	}
	if code, _ := get(t, s, "/api/guilds", token); code != http.StatusOK {
		t.Fatalf("带 scope 的 token 应通过, got=%d", code)
	}
	if code, _ := get(t, s, "/healthz", ""); code != http.StatusOK {
		t.Fatalf("/healthz 不应鉴权, got=%d", code)
	}
}

func TestInspect_挂载metrics(t *testing.T) {
	called := false
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		_, _ = w.Write([]byte("# metrics"))
	})
	s, _ := newServer(t, Options{Metrics: h})
	get(t, s, "/metrics", "")
	if !called {
		t.Fatalf("/metrics 应交给 metrics handler")
	}
}
