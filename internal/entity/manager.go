package entity

import (
	"context"

	"Concord/internal/shared/snowflake"
)

// FetchOptions 控制 fetch 行为。
type FetchOptions struct {
	// NoCache 结果不写入缓存（已缓存的实例也不会被 patch）。
	NoCache bool
	// Force 跳过缓存命中，总是请求远端。
	Force bool
}

// cachingManager 是所有 manager 共享的缓存核心：构造或 patch、tombstone、解析引用。
type cachingManager[K comparable, V cached[V]] struct {
	client Client
	kind   string
	cache  *Collection[K, V]

	keyField string
	key      func(Payload) (K, bool)
	keyOf    func(V) K
	parse    func(any) (K, bool)
	build    func(Payload) V

	// prepare 在构造/patch 之前执行跨 manager 的写入（例如成员附带的用户）。
	prepare func(Payload)
	// replace 非 nil 且返回 true 时，已缓存实例被新实例替换（例如频道类型变化）。
	replace func(cur V, data Payload) (V, bool)
	linked   func(V)
	unlinked func(V)
}

func newIDManager[V interface {
	cached[V]
	ID() snowflake.ID
}](c Client, kind string, build func(Payload) V, keep func(V) bool) cachingManager[snowflake.ID, V] {
	return cachingManager[snowflake.ID, V]{
		client:   c,
		kind:     kind,
		cache:    NewLimitedCollection[snowflake.ID, V](c.CacheLimit(kind), keep),
		keyField: "id",
		key:      func(p Payload) (snowflake.ID, bool) { return idKey(p, "id") },
		keyOf:    func(v V) snowflake.ID { return v.ID() },
		parse:    parseID,
		build:    build,
	}
}

func idKey(p Payload, field string) (snowflake.ID, bool) {
	id, ok := p.ID(field)
	return id, ok && id.Valid()
}

// parseID 把 id 形态的引用转换为 snowflake。
func parseID(v any) (snowflake.ID, bool) {
	switch t := v.(type) {
	case snowflake.ID:
		return t, t.Valid()
	case string:
		id, err := snowflake.Parse(t)
		return id, err == nil
	default:
		return 0, false
	}
}

func (m *cachingManager[K, V]) Cache() *Collection[K, V] {
	return m.cache
}

// Get 返回缓存命中或零值，从不访问网络。
func (m *cachingManager[K, V]) Get(key K) V {
	v, _ := m.cache.Get(key)
	return v
}

// Add 构造新实体或 patch 已缓存实体并返回同一实例。
// cache=false 时不写缓存：已缓存的实体会被拷贝后再 patch，原实例不受影响。
func (m *cachingManager[K, V]) Add(data Payload, cache bool) (V, error) {
	var zero V
	key, ok := m.key(data)
	if !ok {
		return zero, malformed(m.kind, m.keyField)
	}
	m.prepared(data)
	if cur, ok := m.cache.Get(key); ok {
		if next, replaced := m.replaced(cur, data); replaced {
			if cache {
				m.swap(key, cur, next)
			}
			return next, nil
		}
		if cache {
			cur.patch(data)
			return cur, nil
		}
		cp := cur.clone()
		cp.patch(data)
		return cp, nil
	}
	v := m.build(data)
	if cache {
		m.insert(key, v)
	}
	return v, nil
}

// Upsert 用于更新事件：已缓存时先浅拷贝再 patch，返回 (old, updated, true)；
// 未缓存时按新建处理，返回 (zero, created, false)。
func (m *cachingManager[K, V]) Upsert(data Payload) (old, cur V, existed bool, err error) {
	key, ok := m.key(data)
	if !ok {
		err = malformed(m.kind, m.keyField)
		return
	}
	m.prepared(data)
	if prev, ok := m.cache.Get(key); ok {
		if next, replaced := m.replaced(prev, data); replaced {
			m.swap(key, prev, next)
			return prev, next, true, nil
		}
		old = prev.clone()
		prev.patch(data)
		return old, prev, true, nil
	}
	cur = m.build(data)
	m.insert(key, cur)
	return
}

// Update 只 patch 已缓存的实体；未缓存时 ok=false，调用方丢弃事件。
func (m *cachingManager[K, V]) Update(data Payload) (old, cur V, ok bool, err error) {
	key, valid := m.key(data)
	if !valid {
		err = malformed(m.kind, m.keyField)
		return
	}
	prev, hit := m.cache.Get(key)
	if !hit {
		return
	}
	m.prepared(data)
	if next, replaced := m.replaced(prev, data); replaced {
		m.swap(key, prev, next)
		return prev, next, true, nil
	}
	old = prev.clone()
	prev.patch(data)
	return old, prev, true, nil
}

// Remove 从缓存删除并打 tombstone，不存在时是 no-op。
func (m *cachingManager[K, V]) Remove(key K) (V, bool) {
	v, ok := m.cache.Delete(key)
	if !ok {
		return v, false
	}
	v.markDeleted()
	if m.unlinked != nil {
		m.unlinked(v)
	}
	return v, true
}

// Evict 只从缓存移出（sweeper 使用），不打 tombstone。
func (m *cachingManager[K, V]) Evict(key K) (V, bool) {
	v, ok := m.cache.Delete(key)
	if ok && m.unlinked != nil {
		m.unlinked(v)
	}
	return v, ok
}

// Sync 用完整快照同步成员：快照外的条目被删除，其余逐条 Add。
// 畸形记录被跳过并返回错误，不影响其它记录。
func (m *cachingManager[K, V]) Sync(items []Payload) []error {
	var errs []error
	keep := make(map[K]struct{}, len(items))
	valid := make([]Payload, 0, len(items))
	for _, item := range items {
		key, ok := m.key(item)
		if !ok {
			errs = append(errs, malformed(m.kind, m.keyField))
			continue
		}
		keep[key] = struct{}{}
		valid = append(valid, item)
	}
	for _, key := range m.cache.Keys() {
		if _, ok := keep[key]; !ok {
			m.Remove(key)
		}
	}
	for _, item := range valid {
		if _, err := m.Add(item, true); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// AddAll 逐条 Add，跳过畸形记录。
func (m *cachingManager[K, V]) AddAll(items []Payload, cache bool) ([]V, []error) {
	out := make([]V, 0, len(items))
	var errs []error
	for _, item := range items {
		v, err := m.Add(item, cache)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, v)
	}
	return out, errs
}

// Resolve 接受实例或 id；实例原样返回，id 查缓存，未命中返回零值。
// 引用形态非法时返回 ErrInvalidResolvable。
func (m *cachingManager[K, V]) Resolve(v any) (V, error) {
	var zero V
	if inst, ok := v.(V); ok {
		return inst, nil
	}
	key, ok := m.parse(v)
	if !ok {
		return zero, invalidResolvable(m.kind, v)
	}
	return m.Get(key), nil
}

func (m *cachingManager[K, V]) ResolveID(v any) (K, error) {
	if inst, ok := v.(V); ok {
		return m.keyOf(inst), nil
	}
	key, ok := m.parse(v)
	if !ok {
		var zero K
		return zero, invalidResolvable(m.kind, v)
	}
	return key, nil
}

// resolveLive 解析引用，并拒绝已删除的实例。
func (m *cachingManager[K, V]) resolveLive(v any) (K, error) {
	if inst, ok := v.(V); ok && isDeleted(m.client, inst) {
		var zero K
		return zero, stale(m.kind, "")
	}
	return m.ResolveID(v)
}

// fetchCached 实现 fetch 的缓存命中路径。
func (m *cachingManager[K, V]) fetchCached(key K, opts FetchOptions) (V, bool) {
	if opts.Force {
		var zero V
		return zero, false
	}
	return m.cache.Get(key)
}

// store 在全局写锁内把远端返回写入缓存。
func (m *cachingManager[K, V]) store(raw any, opts FetchOptions) (V, error) {
	var zero V
	data, ok := AsPayload(raw)
	if !ok {
		return zero, malformed(m.kind, m.keyField)
	}
	var (
		v   V
		err error
	)
	m.client.Write(func() { v, err = m.Add(data, !opts.NoCache) })
	return v, err
}

func (m *cachingManager[K, V]) storeAll(raw any, opts FetchOptions) ([]V, error) {
	items := AsPayloads(raw)
	var out []V
	m.client.Write(func() { out, _ = m.AddAll(items, !opts.NoCache) })
	return out, nil
}

// applied 在 Apply 之后取回缓存实例；父级未缓存时退化为不缓存的构造。
// 构造会经 prepare 写入其它 manager，因此在写锁内执行。
func (m *cachingManager[K, V]) applied(data Payload) (V, error) {
	if key, ok := m.key(data); ok {
		if v, hit := m.cache.Get(key); hit {
			return v, nil
		}
	}
	var (
		v   V
		err error
	)
	m.client.Write(func() { v, err = m.Add(data, false) })
	return v, err
}

func (m *cachingManager[K, V]) prepared(data Payload) {
	if m.prepare != nil {
		m.prepare(data)
	}
}

func (m *cachingManager[K, V]) replaced(cur V, data Payload) (V, bool) {
	if m.replace == nil {
		var zero V
		return zero, false
	}
	return m.replace(cur, data)
}

func (m *cachingManager[K, V]) swap(key K, prev, next V) {
	if m.unlinked != nil {
		m.unlinked(prev)
	}
	m.put(key, next)
	if m.linked != nil {
		m.linked(next)
	}
}

func (m *cachingManager[K, V]) insert(key K, v V) {
	m.put(key, v)
	if m.linked != nil {
		m.linked(v)
	}
}

// put 写入缓存；因上限被淘汰的记录按 Evict 处理，从各视图中一并移出。
func (m *cachingManager[K, V]) put(key K, v V) {
	if old, evicted := m.cache.Put(key, v); evicted && m.unlinked != nil {
		m.unlinked(old)
	}
}

// request 统一 REST 调用入口，错误原样返回。
func request(ctx context.Context, c Client, method, route string, body any) (any, error) {
	return c.REST().Request(ctx, route, method, body, nil)
}
