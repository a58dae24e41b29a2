package entity

// Contact 联系人，归属于唯一实例，以远端 id 去重
// 首次由会话内嵌引用派生而来，之后作为独立投影各自演化（不回写会话）
type Contact struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	AvatarURL string   `json:"avatarUrl"`
	Tags      []string `json:"tags"`

	// 行业相关的关联列表
	InterestedPropertyIDs []string `json:"interestedPropertyIds,omitempty"`
	MedicalHistoryIDs     []string `json:"medicalHistoryIds,omitempty"`
	AssociatedServiceIDs  []string `json:"associatedServiceIds,omitempty"`
	MunicipalCaseIDs      []string `json:"municipalCaseIds,omitempty"`
}

// Clone 深拷贝
func (c Contact) Clone() Contact {
	out := c
	out.Tags = append([]string(nil), c.Tags...)
	out.InterestedPropertyIDs = append([]string(nil), c.InterestedPropertyIDs...)
	out.MedicalHistoryIDs = append([]string(nil), c.MedicalHistoryIDs...)
	out.AssociatedServiceIDs = append([]string(nil), c.AssociatedServiceIDs...)
	out.MunicipalCaseIDs = append([]string(nil), c.MunicipalCaseIDs...)
	return out
}

// HasTag 判断标签是否已存在
func (c Contact) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// MergeTags 并入标签集合，保持唯一性
func (c Contact) MergeTags(tags []string) Contact {
	out := c.Clone()
	for _, t := range tags {
		if !out.HasTag(t) {
			out.Tags = append(out.Tags, t)
		}
	}
	return out
}
