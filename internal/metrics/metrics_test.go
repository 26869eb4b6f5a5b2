package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"Concord/internal/events"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fixedSizer map[string]int

func (s fixedSizer) CacheSizes() map[string]int { return s }

func TestRecorder_对账计数与丢弃原因(t *testing.T) {
	r := New()
	r.ObserveDispatch(events.GuildCreate, time.Millisecond)
	r.ObserveDispatch(events.GuildCreate, time.Millisecond)
	r.RecordDrop(events.GuildMemberUpdate, "guild_uncached")

	if got := testutil.ToFloat64(r.dispatches.WithLabelValues(events.GuildCreate)); got != 2 {
		t.Fatalf("GUILD_CREATE 计数应为 2, got=%v", got)
	}
	if got := testutil.ToFloat64(r.drops.WithLabelValues(events.GuildMemberUpdate, "guild_uncached")); got != 1 {
		t.Fatalf("丢弃计数应为 1, got=%v", got)
	}
}

func TestRecorder_REST请求按状态码分桶(t *testing.T) {
	r := New()
	r.ObserveRequest("PATCH", "/guilds/:id/roles/:id", 200, 10*time.Millisecond)
	r.ObserveRequest("PATCH", "/guilds/:id/roles/:id", 403, 10*time.Millisecond)
	r.ObserveRequest("PATCH", "/guilds/:id/roles/:id", 0, time.Second)

	if got := testutil.CollectAndCount(r.requests); got != 3 {
		t.Fatalf("应按 status 拆成 3 个序列, got=%d", got)
	}
	if got := testutil.ToFloat64(r.requests.WithLabelValues("PATCH", "/guilds/:id/roles/:id", "0")); got != 1 {
		t.Fatalf("无响应请求应记为 status=0, got=%v", got)
	}
}

func TestRecorder_缓存规模在采集时读取(t *testing.T) {
	r := New()
	sizes := fixedSizer{"guilds": 2, "channels": 7}
	if err := r.TrackCache(sizes); err != nil {
		t.Fatalf("注册采集器失败: %v", err)
	}
	sizes["guilds"] = 3

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("请求 /metrics 失败: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	text := string(body)
	if !strings.Contains(text, `concord_cache_entries{manager="guilds"} 3`) {
		t.Fatalf("应导出最新的 guilds 规模, body=%s", text)
	}
	if !strings.Contains(text, `concord_cache_entries{manager="channels"} 7`) {
		t.Fatalf("应导出 channels 规模, body=%s", text)
	}
}

func TestRecorder_重复注册采集器报错(t *testing.T) {
	r := New()
	if err := r.TrackCache(fixedSizer{}); err != nil {
		t.Fatalf("首次注册不应失败: %v", err)
	}
	if err := r.TrackCache(fixedSizer{}); err == nil {
		t.Fatalf("重复注册同一 desc 应失败")
	}
}
