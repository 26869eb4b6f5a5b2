package bitfield

import (
	"fmt"
	"strconv"
	"strings"

	"Concord/modules/kit/errx"
)

// Bit 是原始位值，线上以十进制字符串或整数传输。
type Bit uint64

const CodeInvalidBitField errx.Code = "INVALID_BITFIELD"

var ErrInvalidBitField = errx.NewBiz(CodeInvalidBitField, "invalid bitfield resolvable")

// Flag 描述一个具名位。
type Flag struct {
	Name string
	Bit  Bit
}

// FlagSet 是某一类位集合的定义（权限、intents、频道 flags ...）。
// override 非 0 时，Has(bit, true) 在该位存在时直接返回 true。
type FlagSet struct {
	name     string
	flags    []Flag
	byName   map[string]Bit
	override Bit
	all      Bit
}

func NewFlagSet(name string, flags ...Flag) *FlagSet {
	s := &FlagSet{
		name:   name,
		flags:  flags,
		byName: make(map[string]Bit, len(flags)),
	}
	for _, f := range flags {
		s.byName[f.Name] = f.Bit
		s.all |= f.Bit
	}
	return s
}

// WithOverride 指定"全能位"，例如权限里的 ADMINISTRATOR。
func (s *FlagSet) WithOverride(name string) *FlagSet {
	s.override = s.MustResolve(name)
	return s
}

func (s *FlagSet) Name() string { return s.name }
func (s *FlagSet) All() Bit     { return s.all }
func (s *FlagSet) Flags() []Flag {
	out := make([]Flag, len(s.flags))
	copy(out, s.flags)
	return out
}

// Resolve 接受 Bit / 整数 / 十进制字符串 / 位名 / 位名数组 / *BitField。
func (s *FlagSet) Resolve(v any) (Bit, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case Bit:
		return t, nil
	case *BitField:
		if t == nil {
			return 0, nil
		}
		return t.bits, nil
	case BitField:
		return t.bits, nil
	case uint64:
		return Bit(t), nil
	case int:
		if t < 0 {
			return 0, s.invalid(v)
		}
		return Bit(t), nil
	case int64:
		if t < 0 {
			return 0, s.invalid(v)
		}
		return Bit(t), nil
	case float64:
		if t < 0 || t != float64(uint64(t)) {
			return 0, s.invalid(v)
		}
		return Bit(uint64(t)), nil
	case string:
		if b, ok := s.byName[t]; ok {
			return b, nil
		}
		n, err := strconv.ParseUint(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, s.invalid(v)
		}
		return Bit(n), nil
	case []string:
		var out Bit
		for _, name := range t {
			b, err := s.Resolve(name)
			if err != nil {
				return 0, err
			}
			out |= b
		}
		return out, nil
	case []any:
		var out Bit
		for _, item := range t {
			b, err := s.Resolve(item)
			if err != nil {
				return 0, err
			}
			out |= b
		}
		return out, nil
	case []Bit:
		var out Bit
		for _, b := range t {
			out |= b
		}
		return out, nil
	default:
		return 0, s.invalid(v)
	}
}

func (s *FlagSet) MustResolve(v any) Bit {
	b, err := s.Resolve(v)
	if err != nil {
		panic(err)
	}
	return b
}

func (s *FlagSet) invalid(v any) error {
	return ErrInvalidBitField.
		WithData("set", s.name).
		WithMsg(fmt.Sprintf("%s: cannot resolve %v (%T)", s.name, v, v))
}

// BitField 是具名位集合的值类型。
// 未冻结时 Add/Remove 原地修改并返回自身；冻结后返回新的未冻结实例。
// 实体上存放的都是冻结实例，外部无法篡改缓存里的权限/flags。
type BitField struct {
	set    *FlagSet
	bits   Bit
	frozen bool
}

func New(set *FlagSet, v any) (*BitField, error) {
	b, err := set.Resolve(v)
	if err != nil {
		return nil, err
	}
	return &BitField{set: set, bits: b}, nil
}

// Frozen 构造冻结实例，解析失败时回落到 0。
func Frozen(set *FlagSet, v any) *BitField {
	bf, err := New(set, v)
	if err != nil {
		bf = &BitField{set: set}
	}
	bf.frozen = true
	return bf
}

func (b *BitField) Set() *FlagSet { return b.set }
func (b *BitField) Bits() Bit     { return b.bits }
func (b *BitField) IsFrozen() bool {
	return b.frozen
}

// Freeze 冻结实例，之后的 Add/Remove 不再修改它。
func (b *BitField) Freeze() *BitField {
	b.frozen = true
	return b
}

// Any 判断是否包含 bit 中的任意一位。
func (b *BitField) Any(bit Bit) bool {
	return b.bits&bit != 0
}

// Has 判断是否包含 bit 的全部位；checkOverride 为 true 且含有全能位时直接返回 true。
func (b *BitField) Has(bit Bit, checkOverride bool) bool {
	if b == nil {
		return false
	}
	if checkOverride && b.hasOverride() {
		return true
	}
	return b.bits&bit == bit
}

func (b *BitField) hasOverride() bool {
	return b.set.override != 0 && b.bits&b.set.override == b.set.override
}

// HasName 按位名查询，位名未知时返回 false。
func (b *BitField) HasName(name string, checkOverride bool) bool {
	bit, ok := b.set.byName[name]
	if !ok {
		return false
	}
	return b.Has(bit, checkOverride)
}

// Missing 返回 bit 中本实例缺少的位名。
func (b *BitField) Missing(bit Bit, checkOverride bool) []string {
	if checkOverride && b.hasOverride() {
		return nil
	}
	return (&BitField{set: b.set, bits: bit &^ b.bits}).Names()
}

func (b *BitField) Add(bits ...Bit) *BitField {
	var total Bit
	for _, bit := range bits {
		total |= bit
	}
	if b.frozen {
		return &BitField{set: b.set, bits: b.bits | total}
	}
	b.bits |= total
	return b
}

func (b *BitField) Remove(bits ...Bit) *BitField {
	var total Bit
	for _, bit := range bits {
		total |= bit
	}
	if b.frozen {
		return &BitField{set: b.set, bits: b.bits &^ total}
	}
	b.bits &^= total
	return b
}

func (b *BitField) Equals(other *BitField) bool {
	if b == nil || other == nil {
		return b == other
	}
	return b.bits == other.bits
}

// Names 按定义顺序返回已置位的位名。
func (b *BitField) Names() []string {
	out := make([]string, 0, len(b.set.flags))
	for _, f := range b.set.flags {
		if f.Bit != 0 && b.bits&f.Bit == f.Bit {
			out = append(out, f.Name)
		}
	}
	return out
}

func (b *BitField) Serialize() map[string]bool {
	out := make(map[string]bool, len(b.set.flags))
	for _, f := range b.set.flags {
		out[f.Name] = b.bits&f.Bit == f.Bit
	}
	return out
}

// String 返回十进制字符串，与线上格式一致。
func (b *BitField) String() string {
	if b == nil {
		return "0"
	}
	return strconv.FormatUint(uint64(b.bits), 10)
}

// Clone 返回未冻结的副本。
func (b *BitField) Clone() *BitField {
	return &BitField{set: b.set, bits: b.bits}
}
