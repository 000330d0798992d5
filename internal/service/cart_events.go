package service

import "sync"

// CartEvents 购物车变更通知
// 信号不携带数据，订阅方收到后自行重新拉取购物车；每个订阅者只缓冲一个信号，连续变更会合并
type CartEvents struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string]map[uint64]chan struct{}
}

// NewCartEvents 创建通知中心
func NewCartEvents() *CartEvents {
	return &CartEvents{subs: map[string]map[uint64]chan struct{}{}}
}

// Subscribe 订阅某个会话的购物车变更，cancel 后通道关闭
func (e *CartEvents) Subscribe(sessionID string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	if e.subs[sessionID] == nil {
		e.subs[sessionID] = map[uint64]chan struct{}{}
	}
	e.subs[sessionID][id] = ch
	e.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if group, ok := e.subs[sessionID]; ok {
				delete(group, id)
				if len(group) == 0 {
					delete(e.subs, sessionID)
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Publish 通知某个会话的全部订阅者，不阻塞
func (e *CartEvents) Publish(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ch := range e.subs[sessionID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribers 当前订阅数
func (e *CartEvents) Subscribers(sessionID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs[sessionID])
}
