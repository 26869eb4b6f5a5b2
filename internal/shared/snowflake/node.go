package snowflake

import (
	"fmt"
	"sync"
	"time"
)

const (
	maxWorkerID int64 = -1 ^ (-1 << (workerBits + processBits))
	maxSeq      int64 = -1 ^ (-1 << seqBits)
)

// Node 本地生成 id（用作消息 nonce），位布局与平台一致。
type Node struct {
	mu       sync.Mutex
	workerID int64
	lastTS   int64
	seq      int64
}

func NewNode(workerID int64) (*Node, error) {
	if workerID < 0 || workerID > maxWorkerID {
		return nil, fmt.Errorf("snowflake worker id out of range: %d", workerID)
	}
	return &Node{workerID: workerID}, nil
}

func (n *Node) Next() ID {
	n.mu.Lock()
	defer n.mu.Unlock()

	ts := time.Now().UnixMilli()
	if ts < n.lastTS {
		// 时钟回拨时不回退，保持单调递增。
		ts = n.lastTS
	}
	if ts == n.lastTS {
		n.seq = (n.seq + 1) & maxSeq
		if n.seq == 0 {
			ts = waitNextMillisecond(n.lastTS)
		}
	} else {
		n.seq = 0
	}
	n.lastTS = ts
	return ID(((ts - Epoch) << timeShift) | (n.workerID << seqBits) | n.seq)
}

func waitNextMillisecond(lastTS int64) int64 {
	ts := time.Now().UnixMilli()
	for ts <= lastTS {
		ts = time.Now().UnixMilli()
	}
	return ts
}
