package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"advisor-hub/backend/internal/dto"
	"advisor-hub/backend/internal/service"
	"advisor-hub/backend/pkg/response"
)

// GroupHandler 小组模块 HTTP 处理器（旧版实体）
type GroupHandler struct {
	groupSvc service.GroupService
}

// NewGroupHandler 创建 GroupHandler
func NewGroupHandler(groupSvc service.GroupService) *GroupHandler {
	return &GroupHandler{groupSvc: groupSvc}
}

// CreateGroup 创建小组
// POST /api/v1/groups
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	var req dto.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	group, err := h.groupSvc.Create(c.Request.Context(), &req, userID, role)
	if err != nil {
		h.writeGroupError(c, err)
		return
	}

	response.Created(c, group)
}

// GetGroup 小组详情
// GET /api/v1/groups/:id
func (h *GroupHandler) GetGroup(c *gin.Context) {
	group, err := h.groupSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeGroupError(c, err)
		return
	}

	response.OK(c, group)
}

// ListGroups 小组列表
// GET /api/v1/groups
func (h *GroupHandler) ListGroups(c *gin.Context) {
	var req dto.GroupListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	groups, total, err := h.groupSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, groups, total, req.GetPage(), req.GetPageSize())
}

// ListMyGroups 我相关的小组
// GET /api/v1/groups/mine
func (h *GroupHandler) ListMyGroups(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	groups, err := h.groupSvc.ListMine(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, groups)
}

// UpdateGroup 更新小组
// PATCH /api/v1/groups/:id
func (h *GroupHandler) UpdateGroup(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	var req dto.UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	group, err := h.groupSvc.Update(c.Request.Context(), c.Param("id"), &req, userID, role)
	if err != nil {
		h.writeGroupError(c, err)
		return
	}

	response.OK(c, group)
}

// DeleteGroup 删除小组（物理删除，创建者或管理员）
// DELETE /api/v1/groups/:id
func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	if err := h.groupSvc.Delete(c.Request.Context(), c.Param("id"), userID, role); err != nil {
		h.writeGroupError(c, err)
		return
	}

	response.OK(c, nil)
}

// AddMembers 添加小组成员
// PATCH /api/v1/groups/:id/members/add
func (h *GroupHandler) AddMembers(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	var req dto.MemberIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	group, err := h.groupSvc.AddMembers(c.Request.Context(), c.Param("id"), req.MemberIDs, userID, role)
	if err != nil {
		h.writeGroupError(c, err)
		return
	}

	response.OK(c, group)
}

// RemoveMembers 移除小组成员
// PATCH /api/v1/groups/:id/members/remove
func (h *GroupHandler) RemoveMembers(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	var req dto.MemberIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	group, err := h.groupSvc.RemoveMembers(c.Request.Context(), c.Param("id"), req.MemberIDs, userID, role)
	if err != nil {
		h.writeGroupError(c, err)
		return
	}

	response.OK(c, group)
}

// SearchUsers 成员候选人搜索
// GET /api/v1/groups/search-users
func (h *GroupHandler) SearchUsers(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.SearchUsersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	users, err := h.groupSvc.SearchUsers(c.Request.Context(), &req, userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, users)
}

// writeGroupError 统一映射小组模块业务错误
func (h *GroupHandler) writeGroupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrGroupNotFound):
		response.NotFound(c, 31001, "小组不存在")
	case errors.Is(err, service.ErrAdvisorNotTeacher):
		response.BadRequest(c, 30003, "导师必须是教师角色")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 20001, "用户不存在")
	case errors.Is(err, service.ErrNoPermission):
		response.Forbidden(c, 10003, "无权限访问")
	default:
		response.InternalError(c)
	}
}
