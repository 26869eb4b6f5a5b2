package entity

import (
	"container/list"
	"sync"
)

// Collection 是保持插入顺序的键值缓存，自带读写锁。
//
// MaxSize>0 时插入新键会淘汰最旧的一条可淘汰记录；keep 返回 true 的记录不会被淘汰，
// 全部不可淘汰时允许超出上限。
type Collection[K comparable, V any] struct {
	mu      sync.RWMutex
	order   *list.List
	index   map[K]*list.Element
	maxSize int
	keep    func(V) bool
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

func NewCollection[K comparable, V any]() *Collection[K, V] {
	return &Collection[K, V]{
		order: list.New(),
		index: make(map[K]*list.Element),
	}
}

// NewLimitedCollection 创建有上限的集合，keep 可为 nil。
func NewLimitedCollection[K comparable, V any](maxSize int, keep func(V) bool) *Collection[K, V] {
	c := NewCollection[K, V]()
	c.maxSize = maxSize
	c.keep = keep
	return c
}

func (c *Collection[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if el, ok := c.index[key]; ok {
		return el.Value.(*entry[K, V]).value, true
	}
	var zero V
	return zero, false
}

func (c *Collection[K, V]) Has(key K) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.index[key]
	return ok
}

// Set 写入；已存在的键保持原有顺序位置。
func (c *Collection[K, V]) Set(key K, value V) {
	c.Put(key, value)
}

// Put 同 Set，并返回为腾出空间而淘汰的记录。
func (c *Collection[K, V]) Put(key K, value V) (evicted V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, hit := c.index[key]; hit {
		el.Value.(*entry[K, V]).value = value
		return evicted, false
	}
	if c.maxSize > 0 && len(c.index) >= c.maxSize {
		evicted, ok = c.evictLocked()
	}
	c.index[key] = c.order.PushBack(&entry[K, V]{key: key, value: value})
	return evicted, ok
}

func (c *Collection[K, V]) evictLocked() (V, bool) {
	for el := c.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry[K, V])
		if c.keep != nil && c.keep(e.value) {
			continue
		}
		c.order.Remove(el)
		delete(c.index, e.key)
		return e.value, true
	}
	var zero V
	return zero, false
}

func (c *Collection[K, V]) Delete(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.Remove(el)
	delete(c.index, key)
	return el.Value.(*entry[K, V]).value, true
}

func (c *Collection[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.index)
}

func (c *Collection[K, V]) Keys() []K {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]K, 0, len(c.index))
	for el := c.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*entry[K, V]).key)
	}
	return out
}

func (c *Collection[K, V]) Values() []V {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]V, 0, len(c.index))
	for el := c.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*entry[K, V]).value)
	}
	return out
}

// Each 按插入顺序遍历快照，fn 返回 false 时停止。
func (c *Collection[K, V]) Each(fn func(K, V) bool) {
	c.mu.RLock()
	items := make([]*entry[K, V], 0, len(c.index))
	for el := c.order.Front(); el != nil; el = el.Next() {
		items = append(items, el.Value.(*entry[K, V]))
	}
	c.mu.RUnlock()
	for _, e := range items {
		if !fn(e.key, e.value) {
			return
		}
	}
}

func (c *Collection[K, V]) Filter(fn func(V) bool) []V {
	var out []V
	c.Each(func(_ K, v V) bool {
		if fn(v) {
			out = append(out, v)
		}
		return true
	})
	return out
}

func (c *Collection[K, V]) Find(fn func(V) bool) (V, bool) {
	var (
		found V
		ok    bool
	)
	c.Each(func(_ K, v V) bool {
		if fn(v) {
			found, ok = v, true
			return false
		}
		return true
	})
	return found, ok
}

// Sweep 删除满足 fn 的记录，返回删除条数。
func (c *Collection[K, V]) Sweep(fn func(V) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*entry[K, V])
		if fn(e.value) {
			c.order.Remove(el)
			delete(c.index, e.key)
			n++
		}
		el = next
	}
	return n
}

func (c *Collection[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.index = make(map[K]*list.Element)
}
