package dto

// ── 用户模块 DTO ──

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	PaginationRequest
	Role    string `form:"role"    binding:"omitempty,oneof=admin teacher student"`
	Keyword string `form:"keyword" binding:"omitempty,max=50"`
}

// AssignRoleRequest 分配角色请求（仅管理员）
type AssignRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin teacher student"`
}

// SearchUsersRequest 成员候选人搜索参数
// exclude_ids 为逗号分隔的用户 ID 列表；非法 ID 直接丢弃不报错
type SearchUsersRequest struct {
	Q            string `form:"q"             binding:"omitempty,max=100"`
	Role         string `form:"role"`
	Limit        int    `form:"limit"`
	ExcludeIDs   string `form:"exclude_ids"`
	ProjectID    string `form:"project_id"    binding:"omitempty,uuid"`
	GroupID      string `form:"group_id"      binding:"omitempty,uuid"`
	AcademicYear string `form:"academic_year" binding:"omitempty,len=4,numeric"`
}

// ImportUserResponse 批量导入用户响应
type ImportUserResponse struct {
	Total   int               `json:"total"`
	Success int               `json:"success"`
	Failed  int               `json:"failed"`
	Errors  []ImportUserError `json:"errors,omitempty"`
}

// ImportUserError 导入错误详情
type ImportUserError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}
