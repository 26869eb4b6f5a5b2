package entity

import (
	"cmp"
	"slices"
	"strconv"

	"Concord/internal/shared/snowflake"
)

func ptrEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func setPtr[T any](body map[string]any, key string, v *T) {
	if v != nil {
		body[key] = *v
	}
}

func idStrings(ids []snowflake.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// positioned 是参与派生排序的实体：原始序号 + id。
type positioned interface {
	ID() snowflake.ID
	RawPosition() int
}

// comparePositions 先比原始序号，再按 id 升序打破平局。
func comparePositions(a, b positioned) int {
	if c := cmp.Compare(a.RawPosition(), b.RawPosition()); c != 0 {
		return c
	}
	return a.ID().Compare(b.ID())
}

// sortPositioned 就地排序，结果是严格全序。
func sortPositioned[T positioned](items []T) []T {
	slices.SortFunc(items, func(a, b T) int { return comparePositions(a, b) })
	return items
}

// sortPositionedBy 先按 group 分组排序，组内同 sortPositioned。
func sortPositionedBy[T positioned](items []T, group func(T) int) []T {
	slices.SortFunc(items, func(a, b T) int {
		if c := cmp.Compare(group(a), group(b)); c != 0 {
			return c
		}
		return comparePositions(a, b)
	})
	return items
}

// indexOf 返回派生位置；不在组内时返回 -1。
func indexOf[T positioned](items []T, id snowflake.ID) int {
	for i, it := range items {
		if it.ID() == id {
			return i
		}
	}
	return -1
}

func itoa(n int) string { return strconv.Itoa(n) }
