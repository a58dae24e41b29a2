package eventbus

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Handler 事件处理函数
type Handler func(ctx context.Context, event Event)

// Bus 事件总线接口
type Bus interface {
	// Publish 发布事件，同步分发给当前全部订阅者
	Publish(ctx context.Context, event Event)
	// Subscribe 订阅事件，返回取消订阅函数
	Subscribe(eventName string, handler Handler) (unsubscribe func())
	// Close 关闭事件总线，之后的发布被丢弃
	Close()
}

type subscription struct {
	id      uint64
	handler Handler
}

// SyncBus 进程内同步事件总线
//
// 分发在发布者的调用栈上同步完成，按订阅先后顺序逐个调用；
// 总线不做过滤，处理器自行按载荷中的实例/实体 id 过滤。
// 没有持久化与回放：发布之后注册的处理器看不到该次发布。
type SyncBus struct {
	mu       sync.RWMutex
	handlers map[string][]subscription
	nextID   uint64
	closed   bool
	logger   *zap.Logger
}

// NewSyncBus 创建同步事件总线
func NewSyncBus(logger *zap.Logger) *SyncBus {
	return &SyncBus{
		handlers: make(map[string][]subscription),
		logger:   logger,
	}
}

// Subscribe 订阅事件
func (b *SyncBus) Subscribe(eventName string, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[eventName] = append(b.handlers[eventName], subscription{id: id, handler: handler})

	b.logger.Debug("Handler subscribed",
		zap.String("event", eventName),
		zap.Uint64("subscription_id", id),
	)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.handlers[eventName]
		for i, s := range subs {
			if s.id == id {
				b.handlers[eventName] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		if len(b.handlers[eventName]) == 0 {
			delete(b.handlers, eventName)
		}
	}
}

// Publish 发布事件
//
// 分发遍历订阅列表的快照：在分发过程中取消订阅是安全的，
// 但本次分发仍会投递给快照中的全部处理器。
func (b *SyncBus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	subs := append([]subscription(nil), b.handlers[event.Name()]...)
	b.mu.RUnlock()

	for _, s := range subs {
		b.invoke(ctx, s, event)
	}
}

// invoke 调用单个处理器，恢复其 panic 以保证后续处理器继续执行
func (b *SyncBus) invoke(ctx context.Context, s subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Handler panicked",
				zap.String("event", event.Name()),
				zap.Uint64("subscription_id", s.id),
				zap.Any("panic", r),
			)
		}
	}()
	s.handler(ctx, event)
}

// Close 关闭事件总线
func (b *SyncBus) Close() {
	b.mu.Lock()
	b.closed = true
	b.handlers = make(map[string][]subscription)
	b.mu.Unlock()

	b.logger.Info("Event bus closed")
}
