package dto

// ── 小组模块 DTO（旧版实体，无学年字段）──

// CreateGroupRequest 创建小组请求
type CreateGroupRequest struct {
	GroupNumber string   `json:"group_number" binding:"omitempty,max=20"`
	Name        string   `json:"name"         binding:"required,min=2,max=200"`
	Description string   `json:"description"  binding:"omitempty,max=2000"`
	AdvisorID   string   `json:"advisor_id"   binding:"required,uuid"`
	MemberIDs   []string `json:"member_ids"   binding:"omitempty,max=20"`
}

// UpdateGroupRequest 更新小组请求
type UpdateGroupRequest struct {
	GroupNumber *string `json:"group_number" binding:"omitempty,max=20"`
	Name        *string `json:"name"         binding:"omitempty,min=2,max=200"`
	Description *string `json:"description"  binding:"omitempty,max=2000"`
	AdvisorID   *string `json:"advisor_id"   binding:"omitempty,uuid"`
	Status      *string `json:"status"       binding:"omitempty,oneof=active archived"`
}

// GroupListRequest 小组列表查询参数
type GroupListRequest struct {
	PaginationRequest
	Status  string `form:"status"  binding:"omitempty,oneof=active archived"`
	Keyword string `form:"keyword" binding:"omitempty,max=100"`
}

// GroupResponse 小组信息响应
type GroupResponse struct {
	ID          string         `json:"id"`
	GroupNumber string         `json:"group_number"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Advisor     *UserResponse  `json:"advisor,omitempty"`
	Creator     *UserResponse  `json:"creator,omitempty"`
	Members     []UserResponse `json:"members"`
	Status      string         `json:"status"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
}
