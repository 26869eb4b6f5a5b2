// Package rest 是 REST 接口的调用端：只负责把请求发出去并返回解析后的 JSON，
// 不做重试和限流，失败原样交给调用方。
package rest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"Concord/modules/kit/errx"

	json "github.com/goccy/go-json"
)

const CodeRemoteOperationFailed errx.Code = "REMOTE_OPERATION_FAILED"

// ErrRemoteOperationFailed 的 data 包含 status / api_code / route / method。
var ErrRemoteOperationFailed = errx.NewSys(CodeRemoteOperationFailed, "remote operation failed")

// Requester 是 REST 协作方的抽象。返回值是 JSON 解析结果（map[string]any / []any），204 返回 nil。
type Requester interface {
	Request(ctx context.Context, route, method string, body any, query url.Values) (any, error)
}

// Observer 接收每次请求的结果，用于指标统计。
type Observer interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

type Options struct {
	BaseURL   string
	Version   int
	Token     string
	UserAgent string
	Timeout   time.Duration
}

type HTTPRequester struct {
	opts     Options
	http     *http.Client
	observer Observer
}

func NewHTTPRequester(opts Options) *HTTPRequester {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://discord.com/api"
	}
	if opts.Version <= 0 {
		opts.Version = 10
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Concord (https://github.com/concord, 1.0)"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &HTTPRequester{
		opts: opts,
		http: &http.Client{Timeout: opts.Timeout},
	}
}

// HTTPClient 暴露底层 client（测试里用 gock 拦截）。
func (r *HTTPRequester) HTTPClient() *http.Client {
	return r.http
}

func (r *HTTPRequester) SetObserver(o Observer) {
	r.observer = o
}

func (r *HTTPRequester) endpoint(route string, query url.Values) string {
	u := fmt.Sprintf("%s/v%d%s", strings.TrimRight(r.opts.BaseURL, "/"), r.opts.Version, route)
	if len(query) != 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (r *HTTPRequester) Request(ctx context.Context, route, method string, body any, query url.Values) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	failed := ErrRemoteOperationFailed.WithData("route", route).WithData("method", method)

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, errx.ErrInvalidArgument.WithData("route", route).WithCause(err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.endpoint(route, query), reader)
	if err != nil {
		return nil, failed.WithCause(err)
	}
	req.Header.Set("Authorization", "Bot "+r.opts.Token)
	req.Header.Set("User-Agent", r.opts.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := r.http.Do(req)
	if err != nil {
		r.observe(method, route, 0, start)
		return nil, failed.WithData("status", 0).WithCause(err)
	}
	defer resp.Body.Close()
	r.observe(method, route, resp.StatusCode, start)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failed.WithData("status", resp.StatusCode).WithCause(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apiError(failed, resp, raw)
	}
	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, failed.WithData("status", resp.StatusCode).WithCause(err)
	}
	return out, nil
}

// apiError 解析 {"code":50013,"message":"Missing Permissions"} 形式的错误体。
func apiError(base *errx.Error, resp *http.Response, raw []byte) error {
	e := base.WithData("status", resp.StatusCode)
	var body struct {
		Code       int     `json:"code"`
		Message    string  `json:"message"`
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		e = e.WithData("api_code", body.Code)
		if body.Message != "" {
			e = e.WithMsg(body.Message)
		}
		if body.RetryAfter > 0 {
			e = e.WithData("retry_after", body.RetryAfter)
		}
	} else {
		e = e.WithMsg(http.StatusText(resp.StatusCode))
	}
	return e
}

func (r *HTTPRequester) observe(method, route string, status int, start time.Time) {
	if r.observer == nil {
		return
	}
	r.observer.ObserveRequest(method, Bucket(route), status, time.Since(start))
}
