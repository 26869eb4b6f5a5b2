package entity

import (
	"encoding/json"
	"strconv"
	"time"

	"Concord/internal/shared/snowflake"

	"github.com/go-viper/mapstructure/v2"
)

// Payload 是解码后的线上对象。
//
// 读取方法统一返回 (value, present)：present=false 表示字段缺席，patch 时必须保留旧值；
// 字段存在但为 null 时返回零值且 present=true。类型不符按缺席处理。
type Payload map[string]any

// AsPayload 把 REST 返回的 JSON 结构转换为 Payload。
func AsPayload(v any) (Payload, bool) {
	switch t := v.(type) {
	case Payload:
		return t, t != nil
	case map[string]any:
		return Payload(t), t != nil
	default:
		return nil, false
	}
}

// AsPayloads 转换 JSON 数组，非对象元素被跳过。
func AsPayloads(v any) []Payload {
	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case []Payload:
		return t
	case []map[string]any:
		out := make([]Payload, 0, len(t))
		for _, m := range t {
			out = append(out, Payload(m))
		}
		return out
	default:
		return nil
	}
	out := make([]Payload, 0, len(items))
	for _, item := range items {
		if p, ok := AsPayload(item); ok {
			out = append(out, p)
		}
	}
	return out
}

func (p Payload) Get(key string) (any, bool) {
	v, ok := p[key]
	return v, ok
}

func (p Payload) Has(key string) bool {
	_, ok := p[key]
	return ok
}

func (p Payload) String(key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	default:
		return "", false
	}
}

// StringPtr 用于可空字段：null 返回 (nil, true)。
func (p Payload) StringPtr(key string) (*string, bool) {
	v, ok := p[key]
	if !ok {
		return nil, false
	}
	switch t := v.(type) {
	case nil:
		return nil, true
	case string:
		return &t, true
	default:
		return nil, false
	}
}

func (p Payload) Bool(key string) (bool, bool) {
	v, ok := p[key]
	if !ok {
		return false, false
	}
	switch t := v.(type) {
	case nil:
		return false, true
	case bool:
		return t, true
	default:
		return false, false
	}
}

func (p Payload) Int(key string) (int, bool) {
	n, ok := p.Int64(key)
	return int(n), ok
}

func (p Payload) Int64(key string) (int64, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case nil:
		return 0, true
	case float64:
		return int64(t), true
	case int:
		return int64(t), true
	case int64:
		return t, true
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// IntPtr 用于可空整数（例如 color、user_limit）。
func (p Payload) IntPtr(key string) (*int, bool) {
	v, ok := p[key]
	if !ok {
		return nil, false
	}
	if v == nil {
		return nil, true
	}
	n, ok := p.Int(key)
	if !ok {
		return nil, false
	}
	return &n, true
}

// ID 读取 snowflake；null 返回 (0, true)。
func (p Payload) ID(key string) (snowflake.ID, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	if v == nil {
		return 0, true
	}
	id, err := snowflake.FromAny(v)
	if err != nil {
		return 0, false
	}
	return id, true
}

// IDs 读取 id 数组，非法元素被跳过；返回的切片总是新分配的。
func (p Payload) IDs(key string) ([]snowflake.ID, bool) {
	v, ok := p[key]
	if !ok {
		return nil, false
	}
	items, _ := v.([]any)
	out := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		if id, err := snowflake.FromAny(item); err == nil {
			out = append(out, id)
		}
	}
	if ss, ok := v.([]string); ok {
		for _, s := range ss {
			if id, err := snowflake.Parse(s); err == nil {
				out = append(out, id)
			}
		}
	}
	return out, true
}

func (p Payload) Strings(key string) ([]string, bool) {
	v, ok := p[key]
	if !ok {
		return nil, false
	}
	switch t := v.(type) {
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out, true
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	case nil:
		return nil, true
	default:
		return nil, false
	}
}

// Time 解析 ISO8601 时间戳或毫秒数；null 返回零值。
func (p Payload) Time(key string) (time.Time, bool) {
	v, ok := p[key]
	if !ok {
		return time.Time{}, false
	}
	switch t := v.(type) {
	case nil:
		return time.Time{}, true
	case string:
		ts, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return ts, true
	case float64:
		return time.UnixMilli(int64(t)), true
	case int64:
		return time.UnixMilli(t), true
	default:
		return time.Time{}, false
	}
}

func (p Payload) Object(key string) (Payload, bool) {
	v, ok := p[key]
	if !ok {
		return nil, false
	}
	if v == nil {
		return nil, true
	}
	return AsPayload(v)
}

func (p Payload) Objects(key string) ([]Payload, bool) {
	v, ok := p[key]
	if !ok {
		return nil, false
	}
	return AsPayloads(v), true
}

// Decode 把子对象解码到 dst（按 json tag，弱类型）。字段缺席时返回 false 且不修改 dst。
func (p Payload) Decode(key string, dst any) (bool, error) {
	v, ok := p[key]
	if !ok {
		return false, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           dst,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
	})
	if err != nil {
		return true, err
	}
	return true, dec.Decode(v)
}

// With 返回设置了 key 的浅拷贝，不修改原 payload。
func (p Payload) With(key string, v any) Payload {
	out := make(Payload, len(p)+1)
	for k, val := range p {
		out[k] = val
	}
	out[key] = v
	return out
}

// WithDefault 仅在 key 缺席时设置。
func (p Payload) WithDefault(key string, v any) Payload {
	if p.Has(key) {
		return p
	}
	return p.With(key, v)
}
