package client

import (
	"time"

	"Concord/internal/entity"
	"Concord/internal/shared/snowflake"

	"go.uber.org/zap"
)

// sweepFuncs 按 manager 名称给出清理逻辑，返回清理条数。lifetime 以实体 id 的创建时间计算。
var sweepFuncs = map[string]func(c *Client, lifetime time.Duration) int{
	entity.CacheMessages: sweepMessages,
	entity.CacheThreads:  sweepThreads,
	entity.CacheInvites:  sweepInvites,
}

// StartSweepers 为配置了 sweep_interval_s 的 manager 启动定时清理，Close 时停止。
func (c *Client) StartSweepers() {
	for kind, policy := range c.cache {
		if policy.SweepIntervalS <= 0 {
			continue
		}
		fn, ok := sweepFuncs[kind]
		if !ok {
			c.logger.Warn("sweeper not supported", zap.String("manager", kind))
			continue
		}
		interval := time.Duration(policy.SweepIntervalS) * time.Second
		lifetime := time.Duration(policy.SweepLifetimeS) * time.Second
		c.sweepers.Add(1)
		go c.runSweeper(kind, interval, lifetime, fn)
	}
}

func (c *Client) runSweeper(kind string, interval, lifetime time.Duration, fn func(*Client, time.Duration) int) {
	defer c.sweepers.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if n := c.Sweep(kind, lifetime); n > 0 {
				c.logger.Debug("cache swept", zap.String("manager", kind), zap.Int("count", n))
			}
		}
	}
}

// Sweep 在全局写锁内执行一次 kind 的清理。
func (c *Client) Sweep(kind string, lifetime time.Duration) int {
	fn, ok := sweepFuncs[kind]
	if !ok {
		return 0
	}
	var n int
	c.Write(func() { n = fn(c, lifetime) })
	return n
}

func expired(id snowflake.ID, lifetime time.Duration, now time.Time) bool {
	return lifetime > 0 && now.Sub(id.Time()) > lifetime
}

func sweepMessages(c *Client, lifetime time.Duration) int {
	now := time.Now()
	n := 0
	for _, ch := range c.channels.Cache().Values() {
		tb, ok := ch.(entity.TextBased)
		if !ok {
			continue
		}
		n += tb.Messages().Cache().Sweep(func(m *entity.Message) bool {
			return expired(m.ID(), lifetime, now)
		})
	}
	return n
}

// sweepThreads 只清理已归档的线程，归档时间超过 lifetime 才会被移出。
func sweepThreads(c *Client, lifetime time.Duration) int {
	now := time.Now()
	n := 0
	for _, ch := range c.channels.Cache().Values() {
		t, ok := ch.(*entity.ThreadChannel)
		if !ok || !t.Archived() {
			continue
		}
		if lifetime > 0 && now.Sub(t.ArchiveTimestamp()) <= lifetime {
			continue
		}
		if _, ok := c.channels.Evict(t.ID()); ok {
			n++
		}
	}
	return n
}

// sweepInvites 清理已过期的邀请，与 lifetime 无关。
func sweepInvites(c *Client, _ time.Duration) int {
	now := time.Now()
	n := 0
	for _, g := range c.guilds.Cache().Values() {
		n += g.Invites().Cache().Sweep(func(inv *entity.Invite) bool {
			exp := inv.ExpiresAt()
			return !exp.IsZero() && exp.Before(now)
		})
	}
	return n
}
