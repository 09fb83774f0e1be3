package dto

// ── 预约模块 DTO ──

// CreateAppointmentRequest 创建预约请求
type CreateAppointmentRequest struct {
	Title             string   `json:"title"              binding:"required,min=2,max=200"`
	Description       string   `json:"description"        binding:"omitempty,max=2000"`
	Reason            string   `json:"reason"             binding:"omitempty,max=2000"`
	Date              string   `json:"date"               binding:"required"` // "2006-01-02"
	StartTime         string   `json:"start_time"         binding:"required"` // "15:04"
	EndTime           string   `json:"end_time"           binding:"required"`
	MeetingType       string   `json:"meeting_type"       binding:"required,oneof=online offline"`
	Location          string   `json:"location"           binding:"omitempty,max=200"`
	GroupID           string   `json:"group_id"           binding:"omitempty,uuid"`
	ParticipantIDs    []string `json:"participant_ids"    binding:"omitempty,max=50"`
	ParticipantEmails []string `json:"participant_emails" binding:"omitempty,max=50,dive,email"`
}

// UpdateAppointmentRequest 更新预约请求（仅创建者）
type UpdateAppointmentRequest struct {
	Title             *string  `json:"title"              binding:"omitempty,min=2,max=200"`
	Description       *string  `json:"description"        binding:"omitempty,max=2000"`
	Reason            *string  `json:"reason"             binding:"omitempty,max=2000"`
	Date              *string  `json:"date"`
	StartTime         *string  `json:"start_time"`
	EndTime           *string  `json:"end_time"`
	MeetingType       *string  `json:"meeting_type"       binding:"omitempty,oneof=online offline"`
	Location          *string  `json:"location"           binding:"omitempty,max=200"`
	ParticipantIDs    []string `json:"participant_ids"    binding:"omitempty,max=50"`
	ParticipantEmails []string `json:"participant_emails" binding:"omitempty,max=50,dive,email"`
}

// AppointmentListRequest 预约列表查询参数
type AppointmentListRequest struct {
	PaginationRequest
	Status string `form:"status" binding:"omitempty,oneof=pending confirmed cancelled"`
}

// AppointmentResponse 预约信息响应
type AppointmentResponse struct {
	ID                string         `json:"id"`
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	Reason            string         `json:"reason"`
	Date              string         `json:"date"`
	StartTime         string         `json:"start_time"`
	EndTime           string         `json:"end_time"`
	StartAt           string         `json:"start_at"`
	EndAt             string         `json:"end_at"`
	MeetingType       string         `json:"meeting_type"`
	Location          string         `json:"location"`
	Group             *GroupResponse `json:"group,omitempty"`
	Creator           *UserResponse  `json:"creator,omitempty"`
	Participants      []UserResponse `json:"participants"`
	ParticipantEmails []string       `json:"participant_emails"`
	Status            string         `json:"status"`
	CreatedAt         string         `json:"created_at"`
}
