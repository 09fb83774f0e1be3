package model

import "time"

// Group 旧版小组表 — 对应 groups
// Project 的前代实体：无学年字段，成员无跨年唯一约束；
// 删除为物理删除（与 Project 的归档语义不同，历史遗留，见 DESIGN.md）
type Group struct {
	GroupID     string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"group_id"`
	GroupNumber string `gorm:"type:varchar(20);not null;default:''"           json:"group_number"`
	Name        string `gorm:"type:varchar(200);not null"                     json:"name"`
	Description string `gorm:"type:text;not null;default:''"                  json:"description"`
	AdvisorID   string `gorm:"type:uuid;not null"                             json:"advisor_id"`
	CreatedBy   string `gorm:"type:uuid;not null"                             json:"created_by"`
	Status      string `gorm:"type:varchar(20);not null;default:'active'"     json:"status"`
	BaseModel

	Advisor *User         `gorm:"foreignKey:AdvisorID;references:UserID" json:"advisor,omitempty"`
	Creator *User         `gorm:"foreignKey:CreatedBy;references:UserID" json:"creator,omitempty"`
	Members []GroupMember `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
}

// TableName 指定表名
func (Group) TableName() string { return "groups" }

// MemberUserIDs 返回当前成员的用户 ID 集合
func (g *Group) MemberUserIDs() map[string]bool {
	ids := make(map[string]bool, len(g.Members))
	for _, m := range g.Members {
		ids[m.UserID] = true
	}
	return ids
}

// GroupMember 小组成员行 — 对应 group_members
type GroupMember struct {
	ID        uint      `gorm:"primaryKey"                                                    json:"-"`
	GroupID   string    `gorm:"type:uuid;not null;uniqueIndex:idx_group_members_group_user"  json:"group_id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_group_members_group_user"  json:"user_id"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"                            json:"created_at"`

	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (GroupMember) TableName() string { return "group_members" }
