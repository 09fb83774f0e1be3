package service

import (
	"time"

	"advisor-hub/backend/internal/dto"
	"advisor-hub/backend/internal/model"
)

// toUserResponse 将 model.User 转换为公开字段响应
func toUserResponse(user *model.User) *dto.UserResponse {
	if user == nil {
		return nil
	}
	return &dto.UserResponse{
		ID:        user.UserID,
		Username:  user.Username,
		Email:     user.Email,
		FullName:  user.FullName,
		StudentID: user.StudentID,
		Role:      user.Role,
	}
}

// formatTime 统一时间戳输出格式
func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}
