package rest

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"Concord/modules/kit/errx"

	"github.com/h2non/gock"
)

const testBase = "https://api.concord.test"

func newTestRequester(t *testing.T) *HTTPRequester {
	t.Helper()
	r := NewHTTPRequester(Options{BaseURL: testBase, Version: 10, Token: "tkn"})
	gock.InterceptClient(r.HTTPClient())
	t.Cleanup(func() {
		gock.OffAll()
		gock.RestoreClient(r.HTTPClient())
	})
	return r
}

type recordObserver struct {
	route  string
	status int
}

func (o *recordObserver) ObserveRequest(_, route string, status int, _ time.Duration) {
	o.route, o.status = route, status
}

func TestRequest_成功返回解析后的JSON(t *testing.T) {
	r := newTestRequester(t)
	obs := &recordObserver{}
	r.SetObserver(obs)

	gock.New(testBase).
		Get("/v10/guilds/1/roles").
		MatchHeader("Authorization", "^Bot tkn$").
		Reply(200).
		JSON([]map[string]any{{"id": "10", "name": "@everyone"}})

	out, err := r.Request(context.Background(), GuildRoles("1"), MethodGet, nil, nil)
	if err != nil {
		t.Fatalf("Request err=%v", err)
	}
	items, ok := out.([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("返回结构不符合预期: %#v", out)
	}
	if obs.route != "/guilds/:id/roles" || obs.status != 200 {
		t.Fatalf("observer 记录错误: %+v", obs)
	}
	if !gock.IsDone() {
		t.Fatalf("存在未命中的 mock")
	}
}

func TestRequest_204返回nil(t *testing.T) {
	r := newTestRequester(t)
	gock.New(testBase).
		Put("/v10/guilds/1/members/2/roles/3").
		Reply(204)

	out, err := r.Request(context.Background(), GuildMemberRole("1", "2", "3"), MethodPut, nil, nil)
	if err != nil || out != nil {
		t.Fatalf("期望 (nil, nil), got=%v err=%v", out, err)
	}
}

func TestRequest_非2xx返回远端失败错误(t *testing.T) {
	r := newTestRequester(t)
	gock.New(testBase).
		Patch("/v10/channels/5").
		Reply(403).
		JSON(map[string]any{"code": 50013, "message": "Missing Permissions"})

	_, err := r.Request(context.Background(), Channel("5"), MethodPatch, map[string]any{"name": "x"}, nil)
	if !errors.Is(err, ErrRemoteOperationFailed) {
		t.Fatalf("期望 ErrRemoteOperationFailed, got=%v", err)
	}
	var e *errx.Error
	if !errors.As(err, &e) {
		t.Fatalf("期望 *errx.Error")
	}
	if code, _ := e.Value("api_code"); code != 50013 {
		t.Fatalf("api_code 错误: %v", code)
	}
	if StatusOf(err) != http.StatusForbidden {
		t.Fatalf("status 错误: %d", StatusOf(err))
	}
	if e.Msg() != "Missing Permissions" {
		t.Fatalf("msg 错误: %s", e.Msg())
	}
}

func TestRequest_网络错误保留cause(t *testing.T) {
	r := newTestRequester(t)
	boom := errors.New("boom")
	gock.New(testBase).
		Get("/v10/users/1").
		ReplyError(boom)

	_, err := r.Request(context.Background(), User("1"), MethodGet, nil, nil)
	if !errors.Is(err, ErrRemoteOperationFailed) || !errors.Is(err, boom) {
		t.Fatalf("期望远端失败且保留 cause, got=%v", err)
	}
}

func TestBucket_替换id段(t *testing.T) {
	if got := Bucket("/channels/123/messages/456?limit=5"); got != "/channels/:id/messages/:id" {
		t.Fatalf("Bucket 错误: %s", got)
	}
	if got := Bucket(Invite("abc")); got != "/invites/abc" {
		t.Fatalf("Bucket 不应替换非数字段: %s", got)
	}
}
