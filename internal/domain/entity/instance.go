package entity

// AiProvider AI 分析服务提供方
type AiProvider string

const (
	AiProviderGemini   AiProvider = "gemini"
	AiProviderOpenAI   AiProvider = "openai"
	AiProviderDeepseek AiProvider = "deepseek"
)

// Industry 行业分类，决定实例使用的管道阶段集合与任务类型词表
type Industry string

const (
	IndustryServices     Industry = "services"
	IndustryRealEstate   Industry = "real_estate"
	IndustryHealth       Industry = "health"
	IndustryMunicipality Industry = "municipality"
)

// ValidIndustry 判断行业分类是否合法
func ValidIndustry(i Industry) bool {
	switch i {
	case IndustryServices, IndustryRealEstate, IndustryHealth, IndustryMunicipality:
		return true
	}
	return false
}

// Instance 租户实例：一个品牌工作区到外部客服收件箱平台的连接描述
// id 创建后不可变
type Instance struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Region    string   `json:"region"`
	BaseURL   string   `json:"baseUrl"`
	APIKey    string   `json:"apiKey"`
	AccountID int64    `json:"accountId"`
	Industry  Industry `json:"industry"`

	// AI 分析凭证（可选）
	AIProvider AiProvider `json:"aiProvider,omitempty"`
	AIAPIKey   string     `json:"aiApiKey,omitempty"`

	// Meta 外部渠道凭证（可选）
	MetaAppID             string `json:"metaAppId,omitempty"`
	MetaBusinessAccountID string `json:"metaBusinessAccountId,omitempty"`
	MetaToken             string `json:"metaToken,omitempty"`
	MetaInboxID           int64  `json:"metaInboxId,omitempty"`

	// Webhook 签名密钥（可选）
	WebhookSecret string `json:"webhookHmacToken,omitempty"`
}

// SameCredentials 判断两份连接凭证是否指向同一账户
// 远端访问层的授权检查以此为准
func (i Instance) SameCredentials(other Instance) bool {
	return i.BaseURL == other.BaseURL &&
		i.AccountID == other.AccountID &&
		i.APIKey == other.APIKey
}
