package remote

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/soporteops/soporteops/console/internal/domain/entity"
	"github.com/soporteops/soporteops/console/pkg/errors"
)

// 内存远端的分析类只读接口。数值同样按 实例id×固定因子 做种子生成。

// GetKpis 汇总指标
func (m *MemoryAPI) GetKpis(ctx context.Context, inst entity.Instance) (entity.Kpis, error) {
	if err := m.checkAuth(ctx, inst); err != nil {
		return entity.Kpis{}, err
	}
	if err := m.sleep(ctx); err != nil {
		return entity.Kpis{}, err
	}

	f := newFaker(inst.ID * 100)
	return entity.Kpis{
		FirstResponseTime:  f.float1(5, 25),
		ResolutionRate:     f.float1(75, 98),
		AvgResolutionTime:  f.float1(30, 90),
		Csat:               f.float1(80, 99),
		AgentUtilization:   f.float1(60, 95),
		MessageVolume:      f.intn(500, 2000),
		ConversationVolume: f.intn(150, 500),
	}, nil
}

// ListAnomalies 指标异常列表
func (m *MemoryAPI) ListAnomalies(ctx context.Context, inst entity.Instance) ([]entity.Anomaly, error) {
	if err := m.checkAuth(ctx, inst); err != nil {
		return nil, err
	}
	if err := m.sleep(ctx); err != nil {
		return nil, err
	}

	f := newFaker(inst.ID * 600)
	return []entity.Anomaly{
		{
			ID: 1, MetricAffected: "Tiempo de Primera Respuesta", Severity: entity.SeverityHigh,
			ExpectedValue: 15, ActualValue: float64(f.intn(40, 60)),
			DetectedAt: f.recent(1), AnomalyType: "spike",
		},
		{
			ID: 2, MetricAffected: "CSAT", Severity: entity.SeverityCritical,
			ExpectedValue: 92, ActualValue: float64(f.intn(70, 80)),
			DetectedAt: f.recent(1), AnomalyType: "drop",
		},
		{
			ID: 3, MetricAffected: "Tasa de Resolución", Severity: entity.SeverityMedium,
			ExpectedValue: 85, ActualValue: float64(f.intn(75, 82)),
			DetectedAt: f.recent(2), AnomalyType: "drop",
		},
	}, nil
}

// ListHealthChecks 平台健康检查
func (m *MemoryAPI) ListHealthChecks(ctx context.Context, inst entity.Instance) ([]entity.HealthCheck, error) {
	if err := m.checkAuth(ctx, inst); err != nil {
		return nil, err
	}
	if err := m.sleep(ctx); err != nil {
		return nil, err
	}

	return []entity.HealthCheck{
		{CheckType: "API", Status: "healthy", Details: "200 OK | 120ms"},
		{CheckType: "Base de Datos", Status: "healthy", Details: "Conectado | 45ms latencia"},
		{CheckType: "Espacio en Disco", Status: "warning", Details: "85% usado"},
	}, nil
}

// GetConversationVolume 过去 days 天的会话量时间序列
func (m *MemoryAPI) GetConversationVolume(ctx context.Context, inst entity.Instance, days int) ([]entity.TimeSeriesPoint, error) {
	if err := m.checkAuth(ctx, inst); err != nil {
		return nil, err
	}
	if err := m.sleep(ctx); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = 30
	}

	f := newFaker(inst.ID * 500)
	today := time.Now()
	points := make([]entity.TimeSeriesPoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		points = append(points, entity.TimeSeriesPoint{
			Date:  today.AddDate(0, 0, -i).Format("2006-01-02"),
			Value: f.intn(100, 400),
		})
	}
	return points, nil
}

// GetSentiment 情感分布，三项之和为 100
func (m *MemoryAPI) GetSentiment(ctx context.Context, inst entity.Instance) (entity.SentimentData, error) {
	if err := m.checkAuth(ctx, inst); err != nil {
		return entity.SentimentData{}, err
	}
	if err := m.sleep(ctx); err != nil {
		return entity.SentimentData{}, err
	}

	f := newFaker(inst.ID * 700)
	positive := f.float1(60, 85)
	neutral := f.float1(5, 15)
	negative := math.Round((100-positive-neutral)*10) / 10
	return entity.SentimentData{Positive: positive, Neutral: neutral, Negative: negative}, nil
}

// GetAiAnalysis AI 分析报告。实例未配置 AI 凭证时拒绝
func (m *MemoryAPI) GetAiAnalysis(ctx context.Context, inst entity.Instance) (entity.AiAnalysisReport, error) {
	if err := m.checkAuth(ctx, inst); err != nil {
		return entity.AiAnalysisReport{}, err
	}
	if inst.AIAPIKey == "" {
		return entity.AiAnalysisReport{}, errors.NewInvalidInputError("AI API key not configured for instance")
	}
	if err := m.sleep(ctx); err != nil {
		return entity.AiAnalysisReport{}, err
	}

	f := newFaker(inst.ID * 800)
	total := f.intn(150, 500)

	return entity.AiAnalysisReport{
		SentimentBreakdown: entity.SentimentData{
			Positive: f.float1(70, 85),
			Neutral:  f.float1(10, 20),
			Negative: f.float1(5, 10),
		},
		MainTopics: []entity.TopicData{
			{Topic: "Problemas de Facturación", Percentage: float64(f.intn(30, 40))},
			{Topic: "Consultas de Envío", Percentage: float64(f.intn(20, 30))},
			{Topic: "Soporte Técnico", Percentage: float64(f.intn(15, 25))},
			{Topic: "Devoluciones", Percentage: float64(f.intn(10, 15))},
			{Topic: "Otros", Percentage: 5},
		},
		FrequentQuestions: []entity.FaqItem{
			{
				Question: "¿Cuál es el estado de mi pedido?",
				Answer:   `Puede verificar el estado de su pedido en la sección "Mis Pedidos" de su cuenta.`,
				Count:    f.intn(20, 50),
			},
			{
				Question: "¿Cómo puedo devolver un producto?",
				Answer:   `Inicie sesión en su cuenta, vaya a "Historial de Pedidos" y seleccione la opción de devolución.`,
				Count:    f.intn(15, 30),
			},
			{
				Question: "¿Aceptan pagos con tarjeta de crédito?",
				Answer:   "Sí, aceptamos Visa, MasterCard y American Express.",
				Count:    f.intn(5, 20),
			},
		},
		IntentBreakdown: []entity.IntentClassification{
			{Intent: "Soporte Técnico", Percentage: 45, Count: int(math.Round(float64(total) * 0.45))},
			{Intent: "Consulta de Ventas", Percentage: 30, Count: int(math.Round(float64(total) * 0.30))},
			{Intent: "Facturación", Percentage: 15, Count: int(math.Round(float64(total) * 0.15))},
			{Intent: "Feedback de Producto", Percentage: 10, Count: int(math.Round(float64(total) * 0.10))},
		},
		PredictiveInsights: []entity.PredictiveInsight{
			{
				Title:   "Tendencia de Soporte",
				Insight: fmt.Sprintf("Se prevé un aumento del %d%% en tickets de soporte técnico la próxima semana.", f.intn(10, 20)),
				Icon:    "trendingUp",
			},
			{
				Title:   "Oportunidad de Venta",
				Insight: fmt.Sprintf("Los clientes que preguntan por 'integraciones' tienen un %d%% de probabilidad de conversión.", f.intn(60, 80)),
				Icon:    "dollarSign",
			},
			{
				Title:   "Necesidad de Personal",
				Insight: fmt.Sprintf("La carga de trabajo sugiere la necesidad de %d agente(s) adicional(es) en el turno de tarde.", f.intn(1, 2)),
				Icon:    "users",
			},
		},
		Summary: fmt.Sprintf(
			"El sentimiento general para %s es mayormente positivo. Los problemas de facturación son el tema más común, "+
				"lo que sugiere una posible área de mejora en el proceso de pago o en la claridad de las facturas. "+
				"La pregunta más frecuente se refiere al estado de los pedidos, indicando una oportunidad para mejorar "+
				"las notificaciones proactivas de envío.", inst.Name),
	}, nil
}
