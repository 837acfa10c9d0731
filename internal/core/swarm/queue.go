package swarm

import (
	"context"
	"sync"

	"github.com/dep2p/go-margo/pkg/types"
)

// eventQueue 无界 FIFO 事件队列
//
// push 从不阻塞；next 阻塞直到有事件、出现故障、队列关闭或 ctx 取消。
// 故障与关闭都在已入队事件被取完之后才返回。
type eventQueue struct {
	mu     sync.Mutex
	items  []types.Event
	head   int
	fault  error
	closed bool
	// signal 在有新状态时被关闭并替换
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{signal: make(chan struct{})}
}

// wake 唤醒等待者，调用方持有 q.mu
func (q *eventQueue) wake() {
	close(q.signal)
	q.signal = make(chan struct{})
}

// push 入队，关闭后的事件被丢弃并返回 false
func (q *eventQueue) push(ev types.Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, ev)
	q.wake()
	return true
}

// fail 记录致命故障，只保留第一个
func (q *eventQueue) fail(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || q.fault != nil {
		return
	}
	q.fault = err
	q.wake()
}

// close 停止接收新事件
func (q *eventQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.wake()
}

// next 取出下一个事件
func (q *eventQueue) next(ctx context.Context) (types.Event, error) {
	for {
		q.mu.Lock()
		if q.head < len(q.items) {
			ev := q.items[q.head]
			q.items[q.head] = nil
			q.head++
			// 取空时回收底层数组
			if q.head == len(q.items) {
				q.items = q.items[:0]
				q.head = 0
			}
			q.mu.Unlock()
			return ev, nil
		}
		if q.fault != nil {
			err := q.fault
			q.mu.Unlock()
			return nil, err
		}
		if q.closed {
			q.mu.Unlock()
			return nil, ErrSwarmClosed
		}
		signal := q.signal
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-signal:
		}
	}
}

// len 返回待取事件数
func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}
