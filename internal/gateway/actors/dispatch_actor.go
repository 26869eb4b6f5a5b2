// Package actors 放置网关侧的 actor：所有 dispatch 经同一个 mailbox 串行落到缓存。
package actors

import (
	"time"

	"Concord/internal/entity"
	"Concord/internal/events"
	"Concord/modules/kit/logx"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// Applier 把一条 dispatch 应用到缓存，client.Client 实现它。
type Applier interface {
	Apply(t events.Type, data entity.Payload) []entity.Result
}

// DispatchMessage 是投递给 DispatchActor 的消息。
type DispatchMessage struct {
	Type       events.Type
	Data       entity.Payload
	ReceivedAt time.Time
}

// Barrier 在此前投递的消息全部处理后得到 Drained 回复。
type Barrier struct{}

type Drained struct{}

// DispatchActor 单实例运行，mailbox 顺序即接收顺序。
type DispatchActor struct {
	target Applier
	log    logx.Logger
	lagMax time.Duration
}

func NewDispatchActor(target Applier, l logx.Logger) *DispatchActor {
	if l == nil {
		l = logx.Nop()
	}
	return &DispatchActor{
		target: target,
		log:    l.With(zap.String("component", "dispatch_actor")),
		lagMax: time.Second,
	}
}

func (a *DispatchActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		a.log.Debug("dispatch actor started")
	case *actor.Restarting:
		a.log.Warn("dispatch actor restarting")
	case *Barrier:
		ctx.Respond(&Drained{})
	case *DispatchMessage:
		if msg == nil {
			return
		}
		if lag := time.Since(msg.ReceivedAt); !msg.ReceivedAt.IsZero() && lag > a.lagMax {
			a.log.Warn("dispatch mailbox lagging", zap.String("event", msg.Type), zap.Duration("lag", lag))
		}
		a.target.Apply(msg.Type, msg.Data)
	}
}
