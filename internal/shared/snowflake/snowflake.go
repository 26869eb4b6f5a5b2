package snowflake

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Epoch 平台纪元 2015-01-01 00:00:00 UTC，单位毫秒。
const Epoch int64 = 1420070400000

const (
	workerBits  uint8 = 5
	processBits uint8 = 5
	seqBits     uint8 = 12

	timeShift uint8 = workerBits + processBits + seqBits
)

var ErrInvalidID = errors.New("invalid snowflake")

// ID 是 64 位无符号标识，线上以十进制字符串传输。
type ID uint64

// Parse 解析十进制字符串；空串、非数字、0 都视为非法。
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidID
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return ID(v), nil
}

// FromAny 兼容 JSON 解码后的各种形态（string / float64 / json.Number / 整数）。
func FromAny(v any) (ID, error) {
	switch t := v.(type) {
	case ID:
		if t == 0 {
			return 0, ErrInvalidID
		}
		return t, nil
	case string:
		return Parse(t)
	case fmt.Stringer:
		return Parse(t.String())
	case float64:
		if t <= 0 || t != float64(uint64(t)) {
			return 0, fmt.Errorf("%w: %v", ErrInvalidID, t)
		}
		return ID(uint64(t)), nil
	case int:
		if t <= 0 {
			return 0, fmt.Errorf("%w: %d", ErrInvalidID, t)
		}
		return ID(t), nil
	case int64:
		if t <= 0 {
			return 0, fmt.Errorf("%w: %d", ErrInvalidID, t)
		}
		return ID(t), nil
	case uint64:
		if t == 0 {
			return 0, ErrInvalidID
		}
		return ID(t), nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrInvalidID, v)
	}
}

func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

func (id ID) Valid() bool {
	return id != 0
}

// Timestamp 返回创建时间（毫秒）。
func (id ID) Timestamp() int64 {
	return int64(uint64(id)>>timeShift) + Epoch
}

func (id ID) Time() time.Time {
	return time.UnixMilli(id.Timestamp())
}

// Compare 按 64 位数值比较，用于派生排序的平局裁决（小 id 在前）。
func (id ID) Compare(other ID) int {
	switch {
	case id < other:
		return -1
	case id > other:
		return 1
	default:
		return 0
	}
}

// FromTime 构造某时刻的最小 id，常用于 before/after 分页游标。
func FromTime(t time.Time) ID {
	ms := t.UnixMilli() - Epoch
	if ms < 0 {
		ms = 0
	}
	return ID(uint64(ms) << timeShift)
}

func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(id.String())), nil
}

func (id *ID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		*id = 0
		return nil
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*id = v
	return nil
}
