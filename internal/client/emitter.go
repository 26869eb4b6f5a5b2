package client

import (
	"context"
	"fmt"
	"sync"

	"Concord/internal/events"
	"Concord/modules/kit/errx"
	"Concord/modules/kit/logx"

	"go.uber.org/zap"
)

// Listener 接收事件参数，顺序见 events 包中各事件名的注释。
type Listener func(args ...any)

type ListenerID uint64

const CodeListenerPanic errx.Code = "LISTENER_PANIC"

var ErrListenerPanic = errx.NewSys(CodeListenerPanic, "listener panicked")

type listener struct {
	id   ListenerID
	fn   Listener
	once bool
}

type emitter struct {
	mu        sync.Mutex
	next      ListenerID
	listeners map[events.Name][]listener
}

func (e *emitter) add(name events.Name, fn Listener, once bool) ListenerID {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listeners == nil {
		e.listeners = make(map[events.Name][]listener)
	}
	e.next++
	e.listeners[name] = append(e.listeners[name], listener{id: e.next, fn: fn, once: once})
	return e.next
}

func (e *emitter) remove(name events.Name, id ListenerID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	ls := e.listeners[name]
	for i, l := range ls {
		if l.id == id {
			e.listeners[name] = append(ls[:i:i], ls[i+1:]...)
			return true
		}
	}
	return false
}

// snapshot 取出本次要调用的监听器，once 监听器在此时摘除。
func (e *emitter) snapshot(name events.Name) []listener {
	e.mu.Lock()
	defer e.mu.Unlock()
	ls := e.listeners[name]
	if len(ls) == 0 {
		return nil
	}
	out := make([]listener, len(ls))
	copy(out, ls)
	kept := ls[:0:0]
	for _, l := range ls {
		if !l.once {
			kept = append(kept, l)
		}
	}
	e.listeners[name] = kept
	return out
}

func (e *emitter) emit(l logx.Logger, name events.Name, args []any) {
	for _, ln := range e.snapshot(name) {
		call(l, name, ln, args)
	}
}

// call 隔离监听器 panic，避免影响后续事件。
func call(l logx.Logger, name events.Name, ln listener, args []any) {
	defer func() {
		if r := recover(); r != nil {
			err := ErrListenerPanic.WithMsg(fmt.Sprint(r))
			logx.ReportSysErrorWithLoggerContext(context.Background(), l, logx.NewSysLog("emit", err),
				zap.String("event", name), zap.Uint64("listener", uint64(ln.id)))
		}
	}()
	ln.fn(args...)
}
