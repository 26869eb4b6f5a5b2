// Package gateway 维护与网关的 websocket 会话：HELLO 后心跳，IDENTIFY 或 RESUME，
// 把 dispatch 按接收顺序交给 Sink，断线后按指数退避重连。
package gateway

import (
	"context"
	"errors"
	"net/url"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"Concord/internal/bitfield"
	"Concord/internal/entity"
	"Concord/internal/events"
	"Concord/modules/kit/errx"
	"Concord/modules/kit/logx"

	"github.com/cenkalti/backoff/v4"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	CodeGatewayClosed   errx.Code = "GATEWAY_CLOSED"
	CodeSessionRejected errx.Code = "GATEWAY_SESSION_REJECTED"
)

var (
	// ErrGatewayClosed 表示会话需要重连（网络错误、RECONNECT、心跳无 ACK）。
	ErrGatewayClosed = errx.NewSys(CodeGatewayClosed, "gateway connection closed")
	// ErrSessionRejected 表示服务端以不可恢复的 close code 关闭（token 无效、intents 非法等）。
	ErrSessionRejected = errx.NewSys(CodeSessionRejected, "gateway session rejected")
)

// 不可重连的 close code。
var fatalCloseCodes = map[int]string{
	4004: "authentication failed",
	4010: "invalid shard",
	4011: "sharding required",
	4012: "invalid api version",
	4013: "invalid intents",
	4014: "disallowed intents",
}

// Sink 接收 dispatch；实现方负责保持接收顺序。
type Sink interface {
	Dispatch(t events.Type, data entity.Payload)
}

type Options struct {
	URL            string
	Token          string
	Intents        bitfield.Bit
	LargeThreshold int
	// MaxRetries 为 0 时无限重连。
	MaxRetries int
	Logger     logx.Logger
	Dialer     *websocket.Dialer
	// BackOff 为空时使用默认指数退避。
	BackOff backoff.BackOff
}

type Conn struct {
	opts Options
	sink Sink
	log  logx.Logger

	writeMu sync.Mutex
	ws      *websocket.Conn

	seq       atomic.Int64
	sessionID string
	resumeURL string
	acked     atomic.Bool
	bo        backoff.BackOff
}

func New(opts Options, sink Sink) *Conn {
	l := opts.Logger
	if l == nil {
		l = logx.Nop()
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	return &Conn{
		opts: opts,
		sink: sink,
		log:  l.With(zap.String("component", "gateway")),
	}
}

// Seq 返回最后一次收到的 dispatch 序号。
func (c *Conn) Seq() int64 { return c.seq.Load() }

func (c *Conn) SessionID() string { return c.sessionID }

// Run 阻塞运行直到 ctx 结束、服务端拒绝会话或重连次数耗尽。
func (c *Conn) Run(ctx context.Context) error {
	c.bo = c.backOff(ctx)
	err := backoff.RetryNotify(func() error {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if errors.Is(err, ErrSessionRejected) {
			return backoff.Permanent(err)
		}
		return err
	}, c.bo, func(err error, wait time.Duration) {
		c.log.Warn("gateway reconnecting",
			zap.Error(err),
			zap.Duration("wait", wait),
			zap.Bool("resume", c.sessionID != ""),
		)
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (c *Conn) backOff(ctx context.Context) backoff.BackOff {
	b := c.opts.BackOff
	if b == nil {
		expo := backoff.NewExponentialBackOff()
		expo.InitialInterval = time.Second
		expo.MaxInterval = time.Minute
		expo.MaxElapsedTime = 0
		b = expo
	}
	if c.opts.MaxRetries > 0 {
		b = backoff.WithMaxRetries(b, uint64(c.opts.MaxRetries))
	}
	return backoff.WithContext(b, ctx)
}

// session 跑完一次连接的生命周期，返回值决定是否重连。
func (c *Conn) session(ctx context.Context) error {
	ws, _, err := c.opts.Dialer.DialContext(ctx, c.endpoint(), nil)
	if err != nil {
		return ErrGatewayClosed.WithCause(err).WithData("stage", "dial")
	}
	c.writeMu.Lock()
	c.ws = ws
	c.writeMu.Unlock()

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-sctx.Done()
		_ = ws.Close()
	}()

	h, err := c.readHello(ws)
	if err != nil {
		return err
	}
	c.acked.Store(true)
	go c.heartbeat(sctx, ws, time.Duration(h.HeartbeatInterval)*time.Millisecond)

	if c.sessionID != "" {
		err = c.send(OpResume, resume{Token: c.opts.Token, SessionID: c.sessionID, Seq: c.seq.Load()})
	} else {
		err = c.send(OpIdentify, identify{
			Token:          c.opts.Token,
			Intents:        uint64(c.opts.Intents),
			LargeThreshold: c.opts.LargeThreshold,
			Properties:     identifyProperties{OS: runtime.GOOS, Browser: "concord", Device: "concord"},
		})
	}
	if err != nil {
		return err
	}
	return c.readLoop(ws)
}

func (c *Conn) endpoint() string {
	raw := c.opts.URL
	if c.resumeURL != "" && c.sessionID != "" {
		raw = c.resumeURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Get("v") == "" {
		q.Set("v", "10")
	}
	q.Set("encoding", "json")
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Conn) readHello(ws *websocket.Conn) (*hello, error) {
	f, err := c.read(ws)
	if err != nil {
		return nil, err
	}
	if f.Op != OpHello {
		return nil, ErrGatewayClosed.WithData("stage", "hello").WithData("op", int(f.Op))
	}
	h := &hello{}
	if err := json.Unmarshal(f.Data, h); err != nil || h.HeartbeatInterval <= 0 {
		return nil, ErrGatewayClosed.WithCause(err).WithData("stage", "hello")
	}
	return h, nil
}

func (c *Conn) readLoop(ws *websocket.Conn) error {
	for {
		f, err := c.read(ws)
		if err != nil {
			return err
		}
		switch f.Op {
		case OpDispatch:
			c.dispatch(f)
		case OpHeartbeat:
			if err := c.send(OpHeartbeat, c.seqValue()); err != nil {
				return err
			}
		case OpHeartbeatACK:
			c.acked.Store(true)
		case OpReconnect:
			return ErrGatewayClosed.WithData("stage", "reconnect")
		case OpInvalidSession:
			var resumable bool
			_ = json.Unmarshal(f.Data, &resumable)
			if !resumable {
				c.sessionID = ""
				c.resumeURL = ""
				c.seq.Store(0)
			}
			return ErrGatewayClosed.WithData("stage", "invalid_session").WithData("resumable", resumable)
		}
	}
}

func (c *Conn) dispatch(f *Frame) {
	if f.Seq != nil {
		c.seq.Store(*f.Seq)
	}
	var data entity.Payload
	if err := json.Unmarshal(f.Data, &data); err != nil {
		c.log.Warn("gateway dispatch decode failed", zap.String("event", f.Type), zap.Error(err))
		return
	}
	switch f.Type {
	case events.Ready:
		r := ready{}
		_ = json.Unmarshal(f.Data, &r)
		c.sessionID = r.SessionID
		c.resumeURL = r.ResumeGatewayURL
		c.bo.Reset()
		c.log.Info("gateway ready", zap.String("session_id", r.SessionID))
	case events.Resumed:
		c.bo.Reset()
		c.log.Info("gateway resumed", zap.Int64("seq", c.seq.Load()))
	}
	c.sink.Dispatch(f.Type, data)
}

func (c *Conn) read(ws *websocket.Conn) (*Frame, error) {
	_, raw, err := ws.ReadMessage()
	if err != nil {
		var ce *websocket.CloseError
		if errors.As(err, &ce) {
			if reason, fatal := fatalCloseCodes[ce.Code]; fatal {
				return nil, ErrSessionRejected.WithCause(err).WithData("close_code", ce.Code).WithMsg(reason)
			}
		}
		return nil, ErrGatewayClosed.WithCause(err).WithData("stage", "read")
	}
	f, err := decodeFrame(raw)
	if err != nil {
		return nil, ErrGatewayClosed.WithCause(err).WithData("stage", "decode")
	}
	return f, nil
}

// heartbeat 上一次心跳未收到 ACK 时视为僵死连接，关闭后由 readLoop 触发重连。
func (c *Conn) heartbeat(ctx context.Context, ws *websocket.Conn, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.acked.Swap(false) {
				c.log.Warn("gateway heartbeat not acknowledged, closing")
				_ = ws.Close()
				return
			}
			if err := c.send(OpHeartbeat, c.seqValue()); err != nil {
				return
			}
		}
	}
}

func (c *Conn) seqValue() any {
	if s := c.seq.Load(); s > 0 {
		return s
	}
	return nil
}

func (c *Conn) send(op Opcode, data any) error {
	raw, err := encodeFrame(op, data)
	if err != nil {
		return ErrGatewayClosed.WithCause(err).WithData("stage", "encode")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.ws == nil {
		return ErrGatewayClosed.WithData("stage", "write")
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, raw); err != nil {
		return ErrGatewayClosed.WithCause(err).WithData("stage", "write")
	}
	return nil
}
