package entity

// Team 团队，用于文件夹的访问控制
type Team struct {
	ID         int64   `json:"id"`
	InstanceID int64   `json:"instanceId"`
	Name       string  `json:"name"`
	AgentIDs   []int64 `json:"agentIds"`
}

// Folder 收件箱内的路由文件夹，可选关联一个团队
type Folder struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	TeamID int64  `json:"teamId,omitempty"`
}

// Inbox 收件箱，归属于实例，包含有序的文件夹列表
type Inbox struct {
	ID          int64    `json:"id"`
	InstanceID  int64    `json:"instanceId"`
	Name        string   `json:"name"`
	ChannelType string   `json:"channelType"`
	PhoneNumber string   `json:"phoneNumber"`
	Folders     []Folder `json:"folders"`
}
