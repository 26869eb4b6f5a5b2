// Package client 是实体缓存的注册表：持有全局 manager，串行执行对账处理器并向监听器发出事件。
//
// 锁约定：每次对账（Dispatch/Apply）与 Write 都在同一把写锁内执行，Read 使用读锁；
// 监听器在锁释放之后按结果顺序调用，因此监听器内部可以安全地发起 REST 变更。
package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"Concord/internal/action"
	"Concord/internal/entity"
	"Concord/internal/events"
	"Concord/internal/rest"
	"Concord/internal/shared/serverconfig"
	"Concord/internal/shared/snowflake"
	"Concord/modules/kit/logx"

	"go.uber.org/zap"
)

// Recorder 接收对账过程的统计，metrics.Recorder 实现它。
type Recorder interface {
	ObserveDispatch(t events.Type, elapsed time.Duration)
	RecordDrop(t events.Type, reason string)
}

type Options struct {
	REST     rest.Requester
	Logger   logx.Logger
	Cache    serverconfig.CacheConfig
	NodeID   int64
	Recorder Recorder
}

type Client struct {
	mu sync.RWMutex

	rest     rest.Requester
	logger   logx.Logger
	cache    serverconfig.CacheConfig
	recorder Recorder
	nonce    *snowflake.Node
	actions  *action.Dispatcher
	userID   atomic.Uint64

	guilds   *entity.GuildManager
	channels *entity.ChannelManager
	users    *entity.UserManager

	emitter emitter

	sweepOnce sync.Once
	stop      chan struct{}
	sweepers  sync.WaitGroup
}

var _ entity.Client = (*Client)(nil)

func New(opts Options) (*Client, error) {
	node, err := snowflake.NewNode(opts.NodeID)
	if err != nil {
		return nil, err
	}
	l := opts.Logger
	if l == nil {
		l = logx.Nop()
	}
	c := &Client{
		rest:     opts.REST,
		logger:   l.With(zap.String("component", "client")),
		cache:    opts.Cache,
		recorder: opts.Recorder,
		nonce:    node,
		actions:  action.NewDispatcher(),
		stop:     make(chan struct{}),
	}
	c.users = entity.NewUserManager(c)
	c.channels = entity.NewChannelManager(c)
	c.guilds = entity.NewGuildManager(c)
	return c, nil
}

func (c *Client) Guilds() *entity.GuildManager     { return c.guilds }
func (c *Client) Channels() *entity.ChannelManager { return c.channels }
func (c *Client) Users() *entity.UserManager       { return c.users }
func (c *Client) REST() rest.Requester             { return c.rest }
func (c *Client) Logger() logx.Logger              { return c.logger }
func (c *Client) UserID() snowflake.ID             { return snowflake.ID(c.userID.Load()) }

// Nonce 生成消息发送时的去重 nonce。
func (c *Client) Nonce() string {
	return c.nonce.Next().String()
}

// CacheLimit 返回 manager 的缓存上限，未配置时不限。
func (c *Client) CacheLimit(manager string) int {
	if p, ok := c.cache[manager]; ok && p.MaxSize > 0 {
		return p.MaxSize
	}
	return 0
}

// Dispatch 处理一条网关 dispatch，未知类型直接忽略。
func (c *Client) Dispatch(t events.Type, data entity.Payload) {
	c.Apply(t, data)
}

// Apply 在写锁内执行 t 的处理器，释放锁后发出事件并返回结果。
// REST 变更与网关事件都经由这里落到缓存。
func (c *Client) Apply(t events.Type, data entity.Payload) []entity.Result {
	return c.ApplyFunc(t, func() (entity.Payload, bool) { return data, true })
}

// ApplyFunc 与 Apply 相同，但 payload 由 build 在写锁内基于当前缓存构造；
// build 返回 false 时不执行处理器也不发出事件。
func (c *Client) ApplyFunc(t events.Type, build func() (entity.Payload, bool)) []entity.Result {
	start := time.Now()
	c.mu.Lock()
	data, proceed := build()
	if !proceed {
		c.mu.Unlock()
		return nil
	}
	if t == events.Ready {
		c.identify(data)
	}
	results, ok := c.actions.Handle(c, t, data)
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("unhandled dispatch", zap.String("event", t))
		return nil
	}
	if c.recorder != nil {
		c.recorder.ObserveDispatch(t, time.Since(start))
	}
	for _, r := range results {
		c.emitter.emit(c.logger, r.Event, r.Args())
	}
	return results
}

// identify 记录当前登录用户 id，READY 处理器依赖它解析 Users().Me()。
func (c *Client) identify(data entity.Payload) {
	if data == nil {
		return
	}
	if u, ok := data.Object("user"); ok {
		if id, ok := u.ID("id"); ok && id.Valid() {
			c.userID.Store(uint64(id))
		}
	}
}

// Write 在全局写锁内执行 fn；不可在监听器之外的对账路径中嵌套调用。
func (c *Client) Write(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}

// Read 在读锁内执行 fn，得到一次一致的缓存视图。
func (c *Client) Read(fn func()) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn()
}

// RecordDrop 实现 action.DropRecorder。
func (c *Client) RecordDrop(t events.Type, reason string) {
	if c.recorder != nil {
		c.recorder.RecordDrop(t, reason)
	}
}

// Handles 判断 t 是否有对应的处理器。
func (c *Client) Handles(t events.Type) bool {
	return c.actions.Has(t)
}

func (c *Client) On(name events.Name, fn Listener) ListenerID {
	return c.emitter.add(name, fn, false)
}

// Once 注册只触发一次的监听器。
func (c *Client) Once(name events.Name, fn Listener) ListenerID {
	return c.emitter.add(name, fn, true)
}

func (c *Client) Off(name events.Name, id ListenerID) bool {
	return c.emitter.remove(name, id)
}

// Close 停止 sweeper，可重复调用。
func (c *Client) Close(ctx context.Context) error {
	c.sweepOnce.Do(func() { close(c.stop) })
	done := make(chan struct{})
	go func() {
		c.sweepers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CacheSizes 在读锁内统计各 manager 的缓存条目数，供 metrics 采集。
func (c *Client) CacheSizes() map[string]int {
	out := make(map[string]int, 6)
	c.Read(func() {
		out["guilds"] = c.guilds.Cache().Len()
		out["channels"] = c.channels.Cache().Len()
		out["users"] = c.users.Cache().Len()
		var members, roles, messages int
		c.guilds.Cache().Each(func(_ snowflake.ID, g *entity.Guild) bool {
			members += g.Members().Cache().Len()
			roles += g.Roles().Cache().Len()
			return true
		})
		c.channels.Cache().Each(func(_ snowflake.ID, ch entity.Channel) bool {
			if tb, ok := ch.(entity.TextBased); ok {
				messages += tb.Messages().Cache().Len()
			}
			return true
		})
		out["members"] = members
		out["roles"] = roles
		out["messages"] = messages
	})
	return out
}
