package service

import (
	"errors"
	"regexp"

	"advisor-hub/backend/internal/model"
)

// ── 跨模块共用的业务错误 ──

var (
	ErrNoPermission = errors.New("无权操作")
)

// academicYearPattern 学年固定为 4 位数字（佛历年，如 "2567"）
var academicYearPattern = regexp.MustCompile(`^\d{4}$`)

// isValidAcademicYear 校验学年格式
func isValidAcademicYear(year string) bool {
	return academicYearPattern.MatchString(year)
}

// canMutate 实体变更能力判定：创建者本人或管理员
// 统一入口，取代散落各处的角色字符串比较
func canMutate(createdBy, requesterID, requesterRole string) bool {
	if requesterRole == model.RoleAdmin {
		return true
	}
	return createdBy == requesterID
}
