package entity

import (
	"fmt"

	"Concord/modules/kit/errx"
)

const (
	CodeMalformedPayload  errx.Code = "MALFORMED_PAYLOAD"
	CodeInvalidResolvable errx.Code = "INVALID_RESOLVABLE"
	CodeStaleEntity       errx.Code = "STALE_ENTITY_ACCESS"
	CodeOwnerCannotLeave  errx.Code = "GUILD_OWNER_CANNOT_LEAVE"
)

var (
	// ErrMalformedPayload：payload 缺少身份字段，只影响这一条记录。
	ErrMalformedPayload = errx.NewBiz(CodeMalformedPayload, "malformed payload")
	// ErrInvalidResolvable：传给 manager 的引用既不是 id 也不是实体。
	ErrInvalidResolvable = errx.NewBiz(CodeInvalidResolvable, "invalid resolvable")
	// ErrStaleEntity：在已删除（tombstone）的实体上发起远端变更。
	ErrStaleEntity = errx.NewBiz(CodeStaleEntity, "entity has been deleted")
	// ErrOwnerCannotLeave：guild 所有者不能退出自己的 guild，需先转让。
	ErrOwnerCannotLeave = errx.NewBiz(CodeOwnerCannotLeave, "guild owner cannot leave")
)

func malformed(kind, field string) error {
	return ErrMalformedPayload.
		WithData("kind", kind).
		WithData("field", field).
		WithMsg(fmt.Sprintf("%s payload missing valid %q", kind, field))
}

func invalidResolvable(kind string, v any) error {
	return ErrInvalidResolvable.
		WithData("kind", kind).
		WithMsg(fmt.Sprintf("cannot resolve %s from %T", kind, v))
}

func stale(kind, id string) error {
	return ErrStaleEntity.
		WithData("kind", kind).
		WithData("id", id)
}
