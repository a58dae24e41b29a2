package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/soporteops/soporteops/console/internal/infrastructure/eventbus"
	"github.com/soporteops/soporteops/console/internal/infrastructure/monitoring"
	"github.com/soporteops/soporteops/console/pkg/safego"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源 (生产环境应限制)
	},
}

// Frame 推送帧：事件名 + 原始事件载荷
type Frame struct {
	Type      string         `json:"type"`
	Payload   eventbus.Event `json:"payload"`
	Timestamp int64          `json:"timestamp"`
}

// Client 已连接的浏览器客户端，绑定到一个实例
type Client struct {
	ID         string
	InstanceID int64
	conn       *websocket.Conn
	send       chan []byte
	hub        *Hub
	logger     *zap.Logger
}

// Hub 推送中心：把总线事件转发给对应实例的客户端
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	logger     *zap.Logger
	monitor    *monitoring.Monitor
	mu         sync.RWMutex
	unsubs     []func()
}

// NewHub 创建推送中心并订阅事件总线
func NewHub(bus eventbus.Bus, monitor *monitoring.Monitor, logger *zap.Logger) *Hub {
	h := &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(zap.String("component", "ws-hub")),
		monitor:    monitor,
	}

	for _, name := range []string{
		eventbus.EventMessageCreated,
		eventbus.EventContactUpdated,
		eventbus.EventConversationCreated,
		eventbus.EventConversationUpdated,
	} {
		h.unsubs = append(h.unsubs, bus.Subscribe(name, h.forward))
	}

	return h
}

// Run 运行推送中心，阻塞直到 ctx 取消
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			if h.monitor != nil {
				h.monitor.IncWsClients()
			}
			h.logger.Info("Client connected",
				zap.String("client_id", client.ID),
				zap.Int64("instance_id", client.InstanceID),
			)
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.send)
				if h.monitor != nil {
					h.monitor.DecWsClients()
				}
			}
			h.mu.Unlock()
			h.logger.Info("Client disconnected",
				zap.String("client_id", client.ID),
			)
		}
	}
}

// shutdown 退订总线并断开所有客户端
func (h *Hub) shutdown() {
	for _, unsub := range h.unsubs {
		unsub()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		close(client.send)
		delete(h.clients, id)
		if h.monitor != nil {
			h.monitor.DecWsClients()
		}
	}
}

// forward 总线事件 → 对应实例的所有客户端
func (h *Hub) forward(ctx context.Context, event eventbus.Event) {
	instanceID := eventInstanceID(event)
	if instanceID == 0 {
		return
	}

	data, err := json.Marshal(Frame{
		Type:      event.Name(),
		Payload:   event,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		h.logger.Error("Failed to marshal push frame", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.InstanceID != instanceID {
			continue
		}
		select {
		case client.send <- data:
		default:
			// 慢客户端丢帧，由下一次全量读取补齐
		}
	}
}

// eventInstanceID 提取事件的实例范围
func eventInstanceID(event eventbus.Event) int64 {
	switch e := event.(type) {
	case eventbus.MessageCreated:
		return e.InstanceID
	case eventbus.ContactUpdated:
		return e.InstanceID
	case eventbus.ConversationCreated:
		return e.InstanceID
	case eventbus.ConversationUpdated:
		return e.InstanceID
	}
	return 0
}

// ClientCount 当前客户端数量
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS 处理 WebSocket 连接，要求 ?instance_id=N
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	instanceID, err := strconv.ParseInt(r.URL.Query().Get("instance_id"), 10, 64)
	if err != nil || instanceID <= 0 {
		http.Error(w, "invalid instance_id", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection", zap.Error(err))
		return
	}

	client := &Client{
		ID:         uuid.NewString(),
		InstanceID: instanceID,
		conn:       conn,
		send:       make(chan []byte, 256),
		hub:        h,
		logger:     h.logger,
	}

	h.register <- client

	safego.Go(h.logger, "ws-write", client.writePump)
	safego.Go(h.logger, "ws-read", client.readPump)
}

// readPump 读取消息。客户端只收不发，读循环用于感知断开与心跳
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(64 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error", zap.Error(err))
			}
			break
		}
	}
}

// writePump 写入消息
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
