package entity

import (
	"time"

	"Concord/internal/shared/snowflake"
)

// Entity 是所有缓存实体的最小契约。
type Entity interface {
	Deleted() bool
}

// Identified 是以 snowflake 为身份的实体。
type Identified interface {
	Entity
	ID() snowflake.ID
}

// cached 是 manager 对实体的内部要求：原地 patch、浅拷贝、打 tombstone。
type cached[V any] interface {
	Entity
	patch(data Payload)
	clone() V
	markDeleted()
}

// Base 持有不可变身份和对 client 的非拥有引用。
// 已删除的实体仍可读取最后一次已知的数据；发起远端变更会返回 ErrStaleEntity。
type Base struct {
	client  Client
	id      snowflake.ID
	deleted bool
}

func newBase(c Client, id snowflake.ID) Base {
	return Base{client: c, id: id}
}

func (b *Base) ID() snowflake.ID { return b.id }
func (b *Base) Client() Client   { return b.client }
func (b *Base) Deleted() bool    { return b.deleted }
func (b *Base) markDeleted()     { b.deleted = true }

func (b *Base) CreatedTimestamp() int64 {
	return b.id.Timestamp()
}

func (b *Base) CreatedAt() time.Time {
	return b.id.Time()
}

func (b *Base) alive(kind string) error {
	if isDeleted(b.client, b) {
		return stale(kind, b.id.String())
	}
	return nil
}

// isDeleted 在读锁内读取 tombstone，对账在写锁内设置它。
func isDeleted(c Client, e Entity) bool {
	var deleted bool
	c.Read(func() { deleted = e.Deleted() })
	return deleted
}
