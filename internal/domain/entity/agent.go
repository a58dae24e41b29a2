package entity

// Agent 客服座席，归属于实例，启用状态独立于任何会话切换
type Agent struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl"`
	IsActive  bool   `json:"isActive"`
}
