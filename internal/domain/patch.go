package domain

// ContactPatch Contact可编辑字段的"属性包"。
// 指针语义：nil = 调用方没有提供该键（保持现值），非nil = 覆盖。
// ExtraPhones 例外：提供时与现有列表合并（并集去重），而不是替换。
type ContactPatch struct {
	FirstName   *string
	LastName    *string
	MiddleName  *string
	Email       *string
	ExtraPhones []string // 已规范化；nil = 未提供
	Notes       *string
}

// HasExtraPhones 是否提供了 extra_phones 键（空列表也算提供）
func (p ContactPatch) HasExtraPhones() bool {
	return p.ExtraPhones != nil
}

// IsEmpty 补丁没有携带任何键
func (p ContactPatch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.MiddleName == nil &&
		p.Email == nil && p.ExtraPhones == nil && p.Notes == nil
}

// CustomerPatch Customer可编辑字段的"属性包"，指针语义同 ContactPatch
type CustomerPatch struct {
	ServiceType *ServiceType
	UserID      *string
	Notes       *string
}
