package snowflake

import (
	"errors"
	"testing"
	"time"
)

func TestTimestamp_按纪元解码(t *testing.T) {
	// 175928847299117063 -> 2016-04-30T11:18:25.796Z
	id, err := Parse("175928847299117063")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got := id.Timestamp(); got != 1462015105796 {
		t.Fatalf("timestamp 解码错误, got=%d", got)
	}
	if !id.Time().Equal(time.UnixMilli(1462015105796)) {
		t.Fatalf("Time() 与 Timestamp() 不一致")
	}
}

func TestParse_非法输入(t *testing.T) {
	for _, s := range []string{"", "abc", "0", "-1", "18446744073709551616"} {
		if _, err := Parse(s); !errors.Is(err, ErrInvalidID) {
			t.Fatalf("期望 %q 解析失败, err=%v", s, err)
		}
	}
}

func TestFromAny_兼容JSON数字(t *testing.T) {
	id, err := FromAny(float64(10))
	if err != nil || id != 10 {
		t.Fatalf("got=%v err=%v", id, err)
	}
	if _, err := FromAny(1.5); err == nil {
		t.Fatalf("期望小数失败")
	}
	if _, err := FromAny(nil); err == nil {
		t.Fatalf("期望 nil 失败")
	}
}

func TestNode_单调递增(t *testing.T) {
	n, err := NewNode(1)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	prev := n.Next()
	for i := 0; i < 5000; i++ {
		cur := n.Next()
		if cur <= prev {
			t.Fatalf("期望单调递增, prev=%d cur=%d", prev, cur)
		}
		prev = cur
	}
	if d := time.Since(prev.Time()); d < 0 || d > time.Minute {
		t.Fatalf("生成 id 的时间戳偏差过大: %v", d)
	}
}

func TestFromTime_可作分页游标(t *testing.T) {
	at := time.UnixMilli(Epoch + 1000)
	if got := FromTime(at).Timestamp(); got != Epoch+1000 {
		t.Fatalf("got=%d", got)
	}
}
