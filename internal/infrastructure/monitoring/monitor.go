package monitoring

import (
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Metrics 指标收集器
type Metrics struct {
	// HTTP 请求
	RequestsTotal   uint64
	RequestsSuccess uint64
	RequestsFailed  uint64

	// Webhook 事件
	EventsReceived     uint64
	EventsDropped      uint64
	EventsBadSignature uint64

	// 乐观写
	MutationsApplied  uint64
	MutationsReverted uint64

	// 远端调用
	RemoteCallsTotal  uint64
	RemoteCallsFailed uint64

	// Websocket 连接
	WsClients int64

	// 延迟 (纳秒)
	RequestLatencySum   uint64
	RequestLatencyCount uint64

	// 启动时间
	StartTime time.Time
}

// Monitor 性能监控器
type Monitor struct {
	metrics *Metrics
	logger  *zap.Logger
}

// NewMonitor 创建监控器
func NewMonitor(logger *zap.Logger) *Monitor {
	return &Monitor{
		metrics: &Metrics{StartTime: time.Now()},
		logger:  logger,
	}
}

// 计数方法
func (m *Monitor) IncRequestTotal()       { atomic.AddUint64(&m.metrics.RequestsTotal, 1) }
func (m *Monitor) IncRequestSuccess()     { atomic.AddUint64(&m.metrics.RequestsSuccess, 1) }
func (m *Monitor) IncRequestFailed()      { atomic.AddUint64(&m.metrics.RequestsFailed, 1) }
func (m *Monitor) IncEventReceived()      { atomic.AddUint64(&m.metrics.EventsReceived, 1) }
func (m *Monitor) IncEventDropped()       { atomic.AddUint64(&m.metrics.EventsDropped, 1) }
func (m *Monitor) IncEventBadSignature()  { atomic.AddUint64(&m.metrics.EventsBadSignature, 1) }
func (m *Monitor) IncMutationApplied()    { atomic.AddUint64(&m.metrics.MutationsApplied, 1) }
func (m *Monitor) IncMutationReverted()   { atomic.AddUint64(&m.metrics.MutationsReverted, 1) }
func (m *Monitor) IncRemoteCall()         { atomic.AddUint64(&m.metrics.RemoteCallsTotal, 1) }
func (m *Monitor) IncRemoteCallFailed()   { atomic.AddUint64(&m.metrics.RemoteCallsFailed, 1) }
func (m *Monitor) IncWsClients()          { atomic.AddInt64(&m.metrics.WsClients, 1) }
func (m *Monitor) DecWsClients()          { atomic.AddInt64(&m.metrics.WsClients, -1) }

func (m *Monitor) RecordRequestLatency(d time.Duration) {
	atomic.AddUint64(&m.metrics.RequestLatencySum, uint64(d.Nanoseconds()))
	atomic.AddUint64(&m.metrics.RequestLatencyCount, 1)
}

// GetStats 获取当前统计
func (m *Monitor) GetStats() map[string]interface{} {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	uptime := time.Since(m.metrics.StartTime)

	avgLatency := float64(0)
	if count := atomic.LoadUint64(&m.metrics.RequestLatencyCount); count > 0 {
		avgLatency = float64(atomic.LoadUint64(&m.metrics.RequestLatencySum)) / float64(count) / 1e6 // ms
	}

	return map[string]interface{}{
		"uptime_seconds":       uptime.Seconds(),
		"requests_total":       atomic.LoadUint64(&m.metrics.RequestsTotal),
		"requests_success":     atomic.LoadUint64(&m.metrics.RequestsSuccess),
		"requests_failed":      atomic.LoadUint64(&m.metrics.RequestsFailed),
		"events_received":      atomic.LoadUint64(&m.metrics.EventsReceived),
		"events_dropped":       atomic.LoadUint64(&m.metrics.EventsDropped),
		"events_bad_signature": atomic.LoadUint64(&m.metrics.EventsBadSignature),
		"mutations_applied":    atomic.LoadUint64(&m.metrics.MutationsApplied),
		"mutations_reverted":   atomic.LoadUint64(&m.metrics.MutationsReverted),
		"remote_calls_total":   atomic.LoadUint64(&m.metrics.RemoteCallsTotal),
		"remote_calls_failed":  atomic.LoadUint64(&m.metrics.RemoteCallsFailed),
		"ws_clients":           atomic.LoadInt64(&m.metrics.WsClients),
		"avg_latency_ms":       avgLatency,
		"memory_mb":            float64(memStats.Alloc) / 1024 / 1024,
		"goroutines":           runtime.NumGoroutine(),
	}
}
