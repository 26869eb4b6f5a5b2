// Package resttest 提供记录调用并按路由返回预设结果的 rest.Requester。
package resttest

import (
	"context"
	"net/url"
	"sync"
)

type Call struct {
	Route  string
	Method string
	Body   any
	Query  url.Values
}

type reply struct {
	out any
	err error
}

// Fake 按 "METHOD route" 匹配预设结果；未预设的请求返回 (nil, nil)。
type Fake struct {
	mu      sync.Mutex
	calls   []Call
	replies map[string]reply
}

func New() *Fake {
	return &Fake{replies: make(map[string]reply)}
}

func (f *Fake) Reply(method, route string, out any) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[method+" "+route] = reply{out: out}
	return f
}

func (f *Fake) Fail(method, route string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[method+" "+route] = reply{err: err}
	return f
}

func (f *Fake) Request(_ context.Context, route, method string, body any, query url.Values) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Route: route, Method: method, Body: body, Query: query})
	r := f.replies[method+" "+route]
	return r.out, r.err
}

func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Last 返回最后一次调用，没有调用时 ok=false。
func (f *Fake) Last() (Call, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return Call{}, false
	}
	return f.calls[len(f.calls)-1], true
}
