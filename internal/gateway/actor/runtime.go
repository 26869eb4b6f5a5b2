package actor

import (
	"context"
	"time"

	"Concord/internal/entity"
	"Concord/internal/events"
	"Concord/internal/gateway/actors"
	"Concord/internal/shared/transport"
	"Concord/modules/kit/logx"

	protoactor "github.com/asynkron/protoactor-go/actor"
)

const defaultAskTimeout = 3 * time.Second

type RuntimeError struct {
	Code    transport.BizCode
	Message string
	Cause   error
}

func (e *RuntimeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *RuntimeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Runtime 持有 actor system 与唯一的 dispatch actor，网关 dispatch 经它按接收顺序落到缓存。
// REST 变更直接调用 client.Apply：监听器运行在 actor 协程上，经 mailbox 等待回复会自锁。
type Runtime struct {
	system   *protoactor.ActorSystem
	root     *protoactor.RootContext
	dispatch *protoactor.PID
	timeout  time.Duration
}

func NewRuntime(target actors.Applier, l logx.Logger, askTimeout time.Duration) *Runtime {
	if askTimeout <= 0 {
		askTimeout = defaultAskTimeout
	}
	system := protoactor.NewActorSystem()
	root := system.Root
	props := protoactor.PropsFromProducer(func() protoactor.Actor {
		return actors.NewDispatchActor(target, l)
	})
	return &Runtime{
		system:   system,
		root:     root,
		dispatch: root.Spawn(props),
		timeout:  askTimeout,
	}
}

// Dispatch 投递后立即返回，实现 gateway.Sink。
func (r *Runtime) Dispatch(t events.Type, data entity.Payload) {
	if r == nil || r.root == nil {
		return
	}
	r.root.Send(r.dispatch, &actors.DispatchMessage{Type: t, Data: data, ReceivedAt: time.Now()})
}

// Drain 等待此前投递的 dispatch 全部处理完，超时取 ctx 剩余时间与默认超时中较小者。
func (r *Runtime) Drain(ctx context.Context) error {
	res, err := r.request(&actors.Barrier{}, r.timeoutFromContext(ctx))
	if err != nil {
		return err
	}
	if _, ok := res.(*actors.Drained); !ok {
		return &RuntimeError{Code: transport.SystemError, Message: "actor 返回类型非法"}
	}
	return nil
}

func (r *Runtime) Shutdown() {
	if r == nil {
		return
	}
	if r.root != nil && r.dispatch != nil {
		r.root.Stop(r.dispatch)
	}
	if r.system != nil {
		r.system.Shutdown()
	}
}

func (r *Runtime) request(msg any, timeout time.Duration) (any, error) {
	if r == nil || r.root == nil {
		return nil, &RuntimeError{Code: transport.SystemError, Message: "actor runtime 未初始化"}
	}
	future := r.root.RequestFuture(r.dispatch, msg, timeout)
	res, err := future.Result()
	if err != nil {
		return nil, &RuntimeError{Code: transport.SystemError, Message: "actor 请求失败", Cause: err}
	}
	return res, nil
}

func (r *Runtime) timeoutFromContext(ctx context.Context) time.Duration {
	if r == nil || r.timeout <= 0 {
		return defaultAskTimeout
	}
	if ctx == nil {
		return r.timeout
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		return r.timeout
	}
	remain := time.Until(deadline)
	if remain <= 0 {
		return time.Millisecond
	}
	return min(remain, r.timeout)
}
