package entity

import "time"

// TaskPriority 任务优先级
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// TaskRecurrence 重复周期：完成带周期的任务会派生一个后继任务
type TaskRecurrence string

const (
	RecurrenceDaily   TaskRecurrence = "daily"
	RecurrenceWeekly  TaskRecurrence = "weekly"
	RecurrenceMonthly TaskRecurrence = "monthly"
)

// Advance 按周期推进到期时间
func (r TaskRecurrence) Advance(due time.Time) time.Time {
	switch r {
	case RecurrenceDaily:
		return due.AddDate(0, 0, 1)
	case RecurrenceWeekly:
		return due.AddDate(0, 0, 7)
	case RecurrenceMonthly:
		return due.AddDate(0, 1, 0)
	}
	return due
}

// Task 任务，归属于唯一实例与唯一会话
type Task struct {
	ID              int64          `json:"id"`
	ConversationID  int64          `json:"conversationId"`
	ContactName     string         `json:"contactName"`
	Content         string         `json:"content"`
	DueDate         time.Time      `json:"dueDate"`
	Priority        TaskPriority   `json:"priority"`
	IsCompleted     bool           `json:"isCompleted"`
	AssignedAgentID int64          `json:"assignedAgentId"`
	Type            string         `json:"type"`
	Recurrence      TaskRecurrence `json:"recurrence,omitempty"`
}

// Successor 派生后继任务：内容/优先级/类型不变，到期时间按周期推进，
// 未完成。前驱保持已完成状态，历史不被覆盖。
func (t Task) Successor(id int64) Task {
	next := t
	next.ID = id
	next.DueDate = t.Recurrence.Advance(t.DueDate)
	next.IsCompleted = false
	return next
}
