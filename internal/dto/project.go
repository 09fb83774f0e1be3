package dto

// ── 项目模块 DTO ──

// CreateProjectRequest 创建项目请求
// member_ids 中的非法/冲突候选人会被静默过滤，不阻断创建
type CreateProjectRequest struct {
	Name         string   `json:"name"          binding:"required,min=2,max=200"`
	Description  string   `json:"description"   binding:"omitempty,max=2000"`
	AcademicYear string   `json:"academic_year" binding:"required,len=4,numeric"`
	AdvisorID    string   `json:"advisor_id"    binding:"required,uuid"`
	MemberIDs    []string `json:"member_ids"    binding:"omitempty,max=20"`
}

// UpdateProjectRequest 更新项目请求
// academic_year 创建后不可变，不在可更新字段之列
type UpdateProjectRequest struct {
	Name        *string `json:"name"        binding:"omitempty,min=2,max=200"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	AdvisorID   *string `json:"advisor_id"  binding:"omitempty,uuid"`
	Status      *string `json:"status"      binding:"omitempty,oneof=active archived"`
}

// MemberIDsRequest 成员增删请求
type MemberIDsRequest struct {
	MemberIDs []string `json:"member_ids" binding:"required,min=1,max=50"`
}

// ProjectListRequest 项目列表查询参数
type ProjectListRequest struct {
	PaginationRequest
	AcademicYear string `form:"academic_year" binding:"omitempty,len=4,numeric"`
	Status       string `form:"status"        binding:"omitempty,oneof=active archived"`
	Keyword      string `form:"keyword"       binding:"omitempty,max=100"`
}

// ProjectResponse 项目信息响应（关联字段已填充）
type ProjectResponse struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	AcademicYear string         `json:"academic_year"`
	Advisor      *UserResponse  `json:"advisor,omitempty"`
	Creator      *UserResponse  `json:"creator,omitempty"`
	Members      []UserResponse `json:"members"`
	Status       string         `json:"status"`
	CreatedAt    string         `json:"created_at"`
	UpdatedAt    string         `json:"updated_at"`
}
