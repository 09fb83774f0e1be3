package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"advisor-hub/backend/internal/dto"
	"advisor-hub/backend/internal/service"
	"advisor-hub/backend/pkg/response"
)

// ProjectHandler 项目模块 HTTP 处理器
type ProjectHandler struct {
	projectSvc service.ProjectService
}

// NewProjectHandler 创建 ProjectHandler
func NewProjectHandler(projectSvc service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectSvc: projectSvc}
}

// CreateProject 创建项目
// POST /api/v1/projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	project, err := h.projectSvc.Create(c.Request.Context(), &req, userID, role)
	if err != nil {
		h.writeProjectError(c, err)
		return
	}

	response.Created(c, project)
}

// GetProject 项目详情
// GET /api/v1/projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, err := h.projectSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeProjectError(c, err)
		return
	}

	response.OK(c, project)
}

// ListProjects 项目列表
// GET /api/v1/projects
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	var req dto.ProjectListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	projects, total, err := h.projectSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, projects, total, req.GetPage(), req.GetPageSize())
}

// ListMyProjects 我相关的项目（创建/指导/参与）
// GET /api/v1/projects/mine
func (h *ProjectHandler) ListMyProjects(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	projects, err := h.projectSvc.ListMine(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, projects)
}

// UpdateProject 更新项目
// PATCH /api/v1/projects/:id
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	var req dto.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	project, err := h.projectSvc.Update(c.Request.Context(), c.Param("id"), &req, userID, role)
	if err != nil {
		h.writeProjectError(c, err)
		return
	}

	response.OK(c, project)
}

// ArchiveProject 归档项目（仅管理员；项目不做物理删除）
// DELETE /api/v1/projects/:id
func (h *ProjectHandler) ArchiveProject(c *gin.Context) {
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	if err := h.projectSvc.Archive(c.Request.Context(), c.Param("id"), role); err != nil {
		h.writeProjectError(c, err)
		return
	}

	response.OK(c, nil)
}

// AddMembers 添加项目成员
// PATCH /api/v1/projects/:id/members/add
// 无效候选人静默过滤，始终返回操作后的项目状态
func (h *ProjectHandler) AddMembers(c *gin.Context) {
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

	project, err := h.projectSvc.AddMembers(c.Request.Context(), c.Param("id"), req.MemberIDs, userID, role)
	if err != nil {
		h.writeProjectError(c, err)
		return
	}

	response.OK(c, project)
}

// RemoveMembers 移除项目成员
// PATCH /api/v1/projects/:id/members/remove
func (h *ProjectHandler) RemoveMembers(c *gin.Context) {
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

	project, err := h.projectSvc.RemoveMembers(c.Request.Context(), c.Param("id"), req.MemberIDs, userID, role)
	if err != nil {
		h.writeProjectError(c, err)
		return
	}

	response.OK(c, project)
}

// SearchUsers 成员候选人搜索（已排除不可选用户）
// GET /api/v1/projects/search-users
func (h *ProjectHandler) SearchUsers(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.SearchUsersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	users, err := h.projectSvc.SearchUsers(c.Request.Context(), &req, userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, users)
}

// writeProjectError 统一映射项目模块业务错误
func (h *ProjectHandler) writeProjectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrProjectNotFound):
		response.NotFound(c, 30001, "项目不存在")
	case errors.Is(err, service.ErrInvalidAcademicYear):
		response.BadRequest(c, 30002, "学年必须为 4 位数字")
	case errors.Is(err, service.ErrAdvisorNotTeacher):
		response.BadRequest(c, 30003, "导师必须是教师角色")
	case errors.Is(err, service.ErrOwnerYearConflict):
		response.Conflict(c, 30004, "该学年已创建过项目")
	case errors.Is(err, service.ErrInvalidStatusChange):
		response.BadRequest(c, 30005, "非法的状态变更")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 20001, "用户不存在")
	case errors.Is(err, service.ErrNoPermission):
		response.Forbidden(c, 10003, "无权限访问")
	default:
		response.InternalError(c)
	}
}
