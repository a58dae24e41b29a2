package entity

import "time"

// Kpis 汇总指标
type Kpis struct {
	FirstResponseTime  float64 `json:"firstResponseTime"`
	ResolutionRate     float64 `json:"resolutionRate"`
	AvgResolutionTime  float64 `json:"avgResolutionTime"`
	Csat               float64 `json:"csat"`
	AgentUtilization   float64 `json:"agentUtilization"`
	MessageVolume      int     `json:"messageVolume"`
	ConversationVolume int     `json:"conversationVolume"`
}

// AnomalySeverity 异常严重级别
type AnomalySeverity string

const (
	SeverityLow      AnomalySeverity = "low"
	SeverityMedium   AnomalySeverity = "medium"
	SeverityHigh     AnomalySeverity = "high"
	SeverityCritical AnomalySeverity = "critical"
)

// Anomaly 指标异常
type Anomaly struct {
	ID             int64           `json:"id"`
	MetricAffected string          `json:"metricAffected"`
	Severity       AnomalySeverity `json:"severity"`
	ExpectedValue  float64         `json:"expectedValue"`
	ActualValue    float64         `json:"actualValue"`
	DetectedAt     time.Time       `json:"detectedAt"`
	AnomalyType    string          `json:"anomalyType"` // spike, drop, outlier
}

// HealthCheck 外部平台健康检查项
type HealthCheck struct {
	CheckType string `json:"checkType"`
	Status    string `json:"status"` // healthy, degraded, down, warning
	Details   string `json:"details"`
}

// TimeSeriesPoint 时间序列数据点
type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Value int    `json:"value"`
}

// SentimentData 情感分布
type SentimentData struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

// FaqItem 高频问题
type FaqItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Count    int    `json:"count"`
}

// TopicData 话题占比
type TopicData struct {
	Topic      string  `json:"topic"`
	Percentage float64 `json:"percentage"`
}

// IntentClassification 意图分类
type IntentClassification struct {
	Intent     string  `json:"intent"`
	Percentage float64 `json:"percentage"`
	Count      int     `json:"count"`
}

// PredictiveInsight 预测洞察
type PredictiveInsight struct {
	Title   string `json:"title"`
	Insight string `json:"insight"`
	Icon    string `json:"icon"` // trendingUp, users, dollarSign
}

// AiAnalysisReport AI 分析报告，由外部服务整体产出，本系统只做透传
type AiAnalysisReport struct {
	SentimentBreakdown SentimentData          `json:"sentimentBreakdown"`
	MainTopics         []TopicData            `json:"mainTopics"`
	FrequentQuestions  []FaqItem              `json:"frequentlyAskedQuestions"`
	IntentBreakdown    []IntentClassification `json:"intentClassification"`
	PredictiveInsights []PredictiveInsight    `json:"predictiveInsights"`
	Summary            string                 `json:"summary"`
}

// Property 房产（real_estate 行业数据）
type Property struct {
	ID       string  `json:"id"`
	Address  string  `json:"address"`
	Price    float64 `json:"price"`
	Bedrooms int     `json:"bedrooms"`
	Bathrooms int    `json:"bathrooms"`
	Area     int     `json:"area"`
}

// MedicalService 医疗服务（health 行业数据）
type MedicalService struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
