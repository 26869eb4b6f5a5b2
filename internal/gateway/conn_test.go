package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"Concord/internal/entity"
	"Concord/internal/events"

	"github.com/cenkalti/backoff/v4"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

type recordSink struct {
	mu     sync.Mutex
	types  []events.Type
	notify chan events.Type
}

func newRecordSink() *recordSink {
	return &recordSink{notify: make(chan events.Type, 16)}
}

func (s *recordSink) Dispatch(t events.Type, _ entity.Payload) {
	s.mu.Lock()
	s.types = append(s.types, t)
	s.mu.Unlock()
	s.notify <- t
}

func (s *recordSink) wait(t *testing.T, want events.Type) {
	t.Helper()
	select {
	case got := <-s.notify:
		if got != want {
			t.Fatalf("dispatch 顺序不符, want=%s got=%s", want, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("等待 %s 超时", want)
	}
}

// fakeGateway 每个连接执行一个脚本。
type fakeGateway struct {
	mu      sync.Mutex
	scripts []func(ws *websocket.Conn)
	conns   int
}

func (g *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ws, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()
	g.mu.Lock()
	idx := g.conns
	g.conns++
	g.mu.Unlock()
	if idx < len(g.scripts) {
		g.scripts[idx](ws)
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func write(ws *websocket.Conn, op Opcode, t string, seq int64, d any) {
	raw, _ := json.Marshal(d)
	f := Frame{Op: op, Data: raw, Type: t}
	if seq > 0 {
		f.Seq = &seq
	}
	out, _ := json.Marshal(f)
	_ = ws.WriteMessage(websocket.TextMessage, out)
}

// readUntil 跳过心跳，返回第一个 op 匹配的帧。
func readUntil(ws *websocket.Conn, op Opcode) (*Frame, error) {
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		f, err := decodeFrame(raw)
		if err != nil {
			return nil, err
		}
		if f.Op == OpHeartbeat {
			write(ws, OpHeartbeatACK, "", 0, nil)
			continue
		}
		if f.Op == op {
			return f, nil
		}
	}
}

func fastBackOff() backoff.BackOff {
	return backoff.NewConstantBackOff(10 * time.Millisecond)
}

func TestConn_IDENTIFY后按顺序转发dispatch(t *testing.T) {
	var got identify
	identified := make(chan struct{})
	g := &fakeGateway{}
	g.scripts = []func(*websocket.Conn){
		func(ws *websocket.Conn) {
			write(ws, OpHello, "", 0, hello{HeartbeatInterval: 1000})
			f, err := readUntil(ws, OpIdentify)
			if err != nil {
				return
			}
			_ = json.Unmarshal(f.Data, &got)
			close(identified)
			write(ws, OpDispatch, events.Ready, 1, map[string]any{"session_id": "s1", "user": map[string]any{"id": "900"}})
			write(ws, OpDispatch, events.GuildCreate, 2, map[string]any{"id": "1"})
			_, _ = readUntil(ws, -1)
		},
	}
	srv := httptest.NewServer(g)
	defer srv.Close()

	sink := newRecordSink()
	c := New(Options{URL: wsURL(srv), Token: "tkn", Intents: 513, BackOff: fastBackOff(), MaxRetries: 1}, sink)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	sink.wait(t, events.Ready)
	sink.wait(t, events.GuildCreate)
	<-identified
	if got.Token != "tkn" || got.Intents != 513 {
		t.Fatalf("IDENTIFY 内容不符: %+v", got)
	}
	if c.SessionID() != "s1" || c.Seq() != 2 {
		t.Fatalf("会话状态不符, session=%s seq=%d", c.SessionID(), c.Seq())
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("ctx 取消后 Run 应返回 nil, got=%v", err)
	}
}

func TestConn_RECONNECT后使用RESUME续传(t *testing.T) {
	resumed := make(chan resume, 1)
	g := &fakeGateway{}
	g.scripts = []func(*websocket.Conn){
		func(ws *websocket.Conn) {
			write(ws, OpHello, "", 0, hello{HeartbeatInterval: 1000})
			if _, err := readUntil(ws, OpIdentify); err != nil {
				return
			}
			write(ws, OpDispatch, events.Ready, 1, map[string]any{"session_id": "s1"})
			write(ws, OpDispatch, events.MessageCreate, 5, map[string]any{"id": "7"})
			write(ws, OpReconnect, "", 0, nil)
		},
		func(ws *websocket.Conn) {
			write(ws, OpHello, "", 0, hello{HeartbeatInterval: 1000})
			f, err := readUntil(ws, OpResume)
			if err != nil {
				return
			}
			var r resume
			_ = json.Unmarshal(f.Data, &r)
			resumed <- r
			write(ws, OpDispatch, events.Resumed, 6, map[string]any{})
			_, _ = readUntil(ws, -1)
		},
	}
	srv := httptest.NewServer(g)
	defer srv.Close()

	sink := newRecordSink()
	c := New(Options{URL: wsURL(srv), Token: "tkn", BackOff: fastBackOff()}, sink)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	sink.wait(t, events.Ready)
	sink.wait(t, events.MessageCreate)
	select {
	case r := <-resumed:
		if r.SessionID != "s1" || r.Seq != 5 {
			t.Fatalf("RESUME 应携带 session 与最后序号: %+v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("等待 RESUME 超时")
	}
	sink.wait(t, events.Resumed)
}

func TestConn_不可恢复的INVALID_SESSION重新IDENTIFY(t *testing.T) {
	identifies := make(chan struct{}, 2)
	handshake := func(ws *websocket.Conn) {
		write(ws, OpHello, "", 0, hello{HeartbeatInterval: 1000})
		if _, err := readUntil(ws, OpIdentify); err != nil {
			return
		}
		identifies <- struct{}{}
	}
	g := &fakeGateway{}
	g.scripts = []func(*websocket.Conn){
		func(ws *websocket.Conn) {
			handshake(ws)
			write(ws, OpDispatch, events.Ready, 1, map[string]any{"session_id": "s1"})
			write(ws, OpInvalidSession, "", 0, false)
		},
		func(ws *websocket.Conn) {
			handshake(ws)
			_, _ = readUntil(ws, -1)
		},
	}
	srv := httptest.NewServer(g)
	defer srv.Close()

	c := New(Options{URL: wsURL(srv), BackOff: fastBackOff()}, newRecordSink())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	for i := 0; i < 2; i++ {
		select {
		case <-identifies:
		case <-time.After(2 * time.Second):
			t.Fatalf("第 %d 次 IDENTIFY 超时", i+1)
		}
	}
}

func TestConn_鉴权失败不重连(t *testing.T) {
	g := &fakeGateway{}
	g.scripts = []func(*websocket.Conn){
		func(ws *websocket.Conn) {
			write(ws, OpHello, "", 0, hello{HeartbeatInterval: 1000})
			_, _ = readUntil(ws, OpIdentify)
			msg := websocket.FormatCloseMessage(4004, "authentication failed")
			_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		},
	}
	srv := httptest.NewServer(g)
	defer srv.Close()

	c := New(Options{URL: wsURL(srv), BackOff: fastBackOff()}, newRecordSink())
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := c.Run(ctx)
	if !errors.Is(err, ErrSessionRejected) {
		t.Fatalf("4004 应返回 ErrSessionRejected, got=%v", err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.conns != 1 {
		t.Fatalf("不可恢复的关闭不应重连, conns=%d", g.conns)
	}
}

func TestConn_重连次数耗尽后返回错误(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(Options{URL: wsURL(srv), BackOff: fastBackOff(), MaxRetries: 2}, newRecordSink())
	err := c.Run(context.Background())
	if !errors.Is(err, ErrGatewayClosed) {
		t.Fatalf("重连耗尽应返回 ErrGatewayClosed, got=%v", err)
	}
}

func TestConn_心跳携带最新序号(t *testing.T) {
	beat := make(chan *Frame, 1)
	g := &fakeGateway{}
	g.scripts = []func(*websocket.Conn){
		func(ws *websocket.Conn) {
			write(ws, OpHello, "", 0, hello{HeartbeatInterval: 30})
			if _, err := readUntil(ws, OpIdentify); err != nil {
				return
			}
			write(ws, OpDispatch, events.Ready, 3, map[string]any{"session_id": "s"})
			for {
				_, raw, err := ws.ReadMessage()
				if err != nil {
					return
				}
				f, _ := decodeFrame(raw)
				if f != nil && f.Op == OpHeartbeat && string(f.Data) == "3" {
					beat <- f
					return
				}
				write(ws, OpHeartbeatACK, "", 0, nil)
			}
		},
	}
	srv := httptest.NewServer(g)
	defer srv.Close()

	c := New(Options{URL: wsURL(srv), BackOff: fastBackOff(), MaxRetries: 1}, newRecordSink())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	select {
	case <-beat:
	case <-time.After(2 * time.Second):
		t.Fatalf("未收到携带序号 3 的心跳")
	}
}

func TestConn_endpoint补齐版本与编码(t *testing.T) {
	c := New(Options{URL: "wss://gateway.example/?v=9"}, nil)
	got := c.endpoint()
	if !strings.Contains(got, "v=9") || !strings.Contains(got, "encoding=json") {
		t.Fatalf("endpoint 不符: %s", got)
	}
	c.sessionID = "s"
	c.resumeURL = "wss://resume.example"
	if got := c.endpoint(); !strings.HasPrefix(got, "wss://resume.example") {
		t.Fatalf("有会话时应连接 resume url: %s", got)
	}
}
