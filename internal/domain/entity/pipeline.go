package entity

import "sort"

// PipelineStageConfig 管道阶段配置，归属于行业（同行业实例共享）
// Order 决定看板列的展示顺序（升序）
type PipelineStageConfig struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Probability int    `json:"probability" yaml:"probability"` // 0-100 成交概率
	Order       int    `json:"order" yaml:"order"`
}

// SortStages 按展示顺序升序排序（原地）
func SortStages(stages []PipelineStageConfig) {
	sort.SliceStable(stages, func(i, j int) bool {
		return stages[i].Order < stages[j].Order
	})
}

// StageIDSet 提取阶段 id 集合
func StageIDSet(stages []PipelineStageConfig) map[string]struct{} {
	set := make(map[string]struct{}, len(stages))
	for _, s := range stages {
		set[s.ID] = struct{}{}
	}
	return set
}
