package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/soporteops/soporteops/console/internal/infrastructure/eventbus"
	"github.com/soporteops/soporteops/console/internal/infrastructure/monitoring"
	"github.com/soporteops/soporteops/console/internal/infrastructure/store"
)

// Reconciler 推送事件协调器
//
// 构造时订阅事件总线，把外部平台的推送事件落入实体缓存。处理器
// 自行按实例过滤；事件引用的会话不在缓存中时直接丢弃（不触发补拉）。
type Reconciler struct {
	store   *store.Store
	logger  *zap.Logger
	monitor *monitoring.Monitor
	unsubs  []func()
}

// NewReconciler 创建协调器并立即订阅
func NewReconciler(bus eventbus.Bus, st *store.Store, monitor *monitoring.Monitor, logger *zap.Logger) *Reconciler {
	r := &Reconciler{store: st, logger: logger, monitor: monitor}
	r.unsubs = append(r.unsubs,
		bus.Subscribe(eventbus.EventMessageCreated, r.onMessageCreated),
		bus.Subscribe(eventbus.EventContactUpdated, r.onContactUpdated),
		bus.Subscribe(eventbus.EventConversationCreated, r.onConversationUpserted),
		bus.Subscribe(eventbus.EventConversationUpdated, r.onConversationUpserted),
	)
	return r
}

// Close 退订全部事件
func (r *Reconciler) Close() {
	for _, unsub := range r.unsubs {
		unsub()
	}
	r.unsubs = nil
}

// onMessageCreated 新消息：更新预览与活动时间、列表置顶；
// 会话当前打开中时同时追加到消息列表
func (r *Reconciler) onMessageCreated(ctx context.Context, ev eventbus.Event) {
	e, ok := ev.(eventbus.MessageCreated)
	if !ok {
		return
	}

	conv, found := r.store.ConversationByID(e.InstanceID, e.ConversationID)
	if !found {
		r.drop("message_created", e.InstanceID)
		return
	}

	conv.LastMessage = e.Message.Content
	conv.LastActivityAt = e.Message.CreatedAt
	r.store.ReplaceConversation(e.InstanceID, conv)
	r.store.MoveConversationToFront(e.InstanceID, e.ConversationID)

	if r.store.OpenConversation(e.InstanceID) == e.ConversationID {
		r.store.AppendMessage(e.ConversationID, e.Message)
	}
}

// onContactUpdated 联系人推送：按 id 替换或插入，后写覆盖
func (r *Reconciler) onContactUpdated(ctx context.Context, ev eventbus.Event) {
	e, ok := ev.(eventbus.ContactUpdated)
	if !ok {
		return
	}
	r.store.UpsertContact(e.InstanceID, e.Contact)
}

// onConversationUpserted 会话创建/更新推送：按 id 替换或插入
func (r *Reconciler) onConversationUpserted(ctx context.Context, ev eventbus.Event) {
	switch e := ev.(type) {
	case eventbus.ConversationCreated:
		r.store.UpsertConversation(e.InstanceID, e.Conversation)
	case eventbus.ConversationUpdated:
		r.store.UpsertConversation(e.InstanceID, e.Conversation)
	}
}

func (r *Reconciler) drop(event string, instanceID int64) {
	if r.monitor != nil {
		r.monitor.IncEventDropped()
	}
	r.logger.Debug("Dropped push event for unknown conversation",
		zap.String("event", event),
		zap.Int64("instance_id", instanceID))
}
