package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"advisor-hub/backend/internal/dto"
	"advisor-hub/backend/internal/model"
	"advisor-hub/backend/internal/repository"
)

// ── 项目模块业务错误 ──

var (
	ErrProjectNotFound     = errors.New("项目不存在")
	ErrAdvisorNotTeacher   = errors.New("导师必须是教师角色")
	ErrInvalidAcademicYear = errors.New("学年必须为 4 位数字")
	ErrOwnerYearConflict   = errors.New("该学年已创建过项目")
	ErrInvalidStatusChange = errors.New("非法的状态变更")
)

// 搜索候选人数量上限
const (
	searchLimitDefault = 10
	searchLimitMax     = 50
)

// ProjectService 项目业务接口
type ProjectService interface {
	Create(ctx context.Context, req *dto.CreateProjectRequest, requesterID, requesterRole string) (*dto.ProjectResponse, error)
	GetByID(ctx context.Context, id string) (*dto.ProjectResponse, error)
	List(ctx context.Context, req *dto.ProjectListRequest) ([]dto.ProjectResponse, int64, error)
	ListMine(ctx context.Context, requesterID string) ([]dto.ProjectResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateProjectRequest, requesterID, requesterRole string) (*dto.ProjectResponse, error)
	Archive(ctx context.Context, id string, requesterRole string) error
	AddMembers(ctx context.Context, id string, memberIDs []string, requesterID, requesterRole string) (*dto.ProjectResponse, error)
	RemoveMembers(ctx context.Context, id string, memberIDs []string, requesterID, requesterRole string) (*dto.ProjectResponse, error)
	SearchUsers(ctx context.Context, req *dto.SearchUsersRequest, requesterID string) ([]dto.UserResponse, error)
}

type projectService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewProjectService 创建 ProjectService 实例
func NewProjectService(repo *repository.Repository, logger *zap.Logger) ProjectService {
	return &projectService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

// Create 创建项目。结构性字段（名称/学年/导师）是硬门槛，校验失败整体拒绝；
// member_ids 里的无效候选人按加人策略静默过滤，单个坏 ID 不阻断建组。
func (s *projectService) Create(ctx context.Context, req *dto.CreateProjectRequest, requesterID, requesterRole string) (*dto.ProjectResponse, error) {
	if !isValidAcademicYear(req.AcademicYear) {
		return nil, ErrInvalidAcademicYear
	}

	if err := s.validateAdvisor(ctx, req.AdvisorID); err != nil {
		return nil, err
	}

	// 同一学年每人只能创建一个项目
	owned, err := s.repo.Project.HasCreatedInYear(ctx, requesterID, req.AcademicYear)
	if err != nil {
		s.logger.Error("查询创建者学年项目失败", zap.Error(err))
		return nil, err
	}
	if owned {
		return nil, ErrOwnerYearConflict
	}

	// 初始成员 = {创建者(学生时)} ∪ member_ids，按请求顺序逐个过滤
	candidates := make([]string, 0, len(req.MemberIDs)+1)
	if requesterRole == model.RoleStudent {
		candidates = append(candidates, requesterID)
	}
	candidates = append(candidates, req.MemberIDs...)

	memberIDs := s.filterMemberCandidates(ctx, candidates, req.AdvisorID, req.AcademicYear, nil)

	project := &model.Project{
		Name:         req.Name,
		Description:  req.Description,
		AcademicYear: req.AcademicYear,
		AdvisorID:    req.AdvisorID,
		CreatedBy:    requesterID,
		Status:       model.StatusActive,
	}

	// 项目行与成员行在同一事务内落库
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	txRepo := s.repo.WithTx(tx)

	if err := txRepo.Project.Create(ctx, project); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("创建项目失败", zap.Error(err))
		return nil, err
	}

	members := make([]model.ProjectMember, 0, len(memberIDs))
	for _, uid := range memberIDs {
		members = append(members, model.ProjectMember{
			ProjectID:    project.ProjectID,
			UserID:       uid,
			AcademicYear: project.AcademicYear,
		})
	}
	// 唯一索引冲突（校验后的并发竞态）静默跳过
	if err := txRepo.Project.AddMembers(ctx, members); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("写入项目成员失败", zap.Error(err))
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	created, err := s.repo.Project.GetByID(ctx, project.ProjectID)
	if err != nil {
		return nil, err
	}
	return s.toProjectResponse(created), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *projectService) GetByID(ctx context.Context, id string) (*dto.ProjectResponse, error) {
	project, err := s.repo.Project.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		s.logger.Error("查询项目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return s.toProjectResponse(project), nil
}

// ────────────────────── List ──────────────────────

func (s *projectService) List(ctx context.Context, req *dto.ProjectListRequest) ([]dto.ProjectResponse, int64, error) {
	filters := &repository.ProjectListFilters{
		AcademicYear: req.AcademicYear,
		Status:       req.Status,
		Keyword:      req.Keyword,
	}

	projects, total, err := s.repo.Project.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出项目失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.ProjectResponse, 0, len(projects))
	for i := range projects {
		result = append(result, *s.toProjectResponse(&projects[i]))
	}
	return result, total, nil
}

// ────────────────────── ListMine ──────────────────────

func (s *projectService) ListMine(ctx context.Context, requesterID string) ([]dto.ProjectResponse, error) {
	projects, err := s.repo.Project.ListByUser(ctx, requesterID)
	if err != nil {
		s.logger.Error("查询我的项目失败", zap.String("user_id", requesterID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.ProjectResponse, 0, len(projects))
	for i := range projects {
		result = append(result, *s.toProjectResponse(&projects[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *projectService) Update(ctx context.Context, id string, req *dto.UpdateProjectRequest, requesterID, requesterRole string) (*dto.ProjectResponse, error) {
	project, err := s.repo.Project.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		s.logger.Error("查询项目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if !canMutate(project.CreatedBy, requesterID, requesterRole) {
		return nil, ErrNoPermission
	}

	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.AdvisorID != nil && *req.AdvisorID != project.AdvisorID {
		if err := s.validateAdvisor(ctx, *req.AdvisorID); err != nil {
			return nil, err
		}
		project.AdvisorID = *req.AdvisorID
	}
	if req.Status != nil && *req.Status != project.Status {
		if !model.CanTransitionStatus(project.Status, *req.Status) {
			return nil, ErrInvalidStatusChange
		}
		project.Status = *req.Status
	}

	if err := s.repo.Project.Update(ctx, project); err != nil {
		s.logger.Error("更新项目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	updated, err := s.repo.Project.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toProjectResponse(updated), nil
}

// ────────────────────── Archive ──────────────────────

// Archive 处理 DELETE /projects/:id：仅管理员可调用，
// 且只做 active → archived 状态流转，从不物理删除
func (s *projectService) Archive(ctx context.Context, id string, requesterRole string) error {
	if requesterRole != model.RoleAdmin {
		return ErrNoPermission
	}

	project, err := s.repo.Project.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		s.logger.Error("查询项目失败", zap.String("id", id), zap.Error(err))
		return err
	}

	if project.Status == model.StatusArchived {
		return nil // 已归档，幂等返回
	}
	if !model.CanTransitionStatus(project.Status, model.StatusArchived) {
		return ErrInvalidStatusChange
	}

	if err := s.repo.Project.UpdateStatus(ctx, id, model.StatusArchived); err != nil {
		s.logger.Error("归档项目失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── AddMembers ──────────────────────

// AddMembers 批量加人：按请求顺序处理，无效候选人静默跳过，
// 集合语义去重，始终返回变更后的项目状态
func (s *projectService) AddMembers(ctx context.Context, id string, memberIDs []string, requesterID, requesterRole string) (*dto.ProjectResponse, error) {
	project, err := s.repo.Project.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		s.logger.Error("查询项目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if !canMutate(project.CreatedBy, requesterID, requesterRole) {
		return nil, ErrNoPermission
	}

	surviving := s.filterMemberCandidates(ctx, memberIDs, project.AdvisorID, project.AcademicYear, project.MemberUserIDs())

	members := make([]model.ProjectMember, 0, len(surviving))
	for _, uid := range surviving {
		members = append(members, model.ProjectMember{
			ProjectID:    project.ProjectID,
			UserID:       uid,
			AcademicYear: project.AcademicYear,
		})
	}

	if err := s.repo.Project.AddMembers(ctx, members); err != nil {
		s.logger.Error("添加项目成员失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	updated, err := s.repo.Project.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toProjectResponse(updated), nil
}

// ────────────────────── RemoveMembers ──────────────────────

// RemoveMembers 批量移除成员；创建者始终受保护，列表中不存在的 ID 不报错
func (s *projectService) RemoveMembers(ctx context.Context, id string, memberIDs []string, requesterID, requesterRole string) (*dto.ProjectResponse, error) {
	project, err := s.repo.Project.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		s.logger.Error("查询项目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if !canMutate(project.CreatedBy, requesterID, requesterRole) {
		return nil, ErrNoPermission
	}

	removable := make([]string, 0, len(memberIDs))
	for _, uid := range memberIDs {
		if uid == "" || uid == project.CreatedBy {
			continue // 创建者不可被移除
		}
		removable = append(removable, uid)
	}

	if err := s.repo.Project.RemoveMembers(ctx, id, removable); err != nil {
		s.logger.Error("移除项目成员失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	updated, err := s.repo.Project.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toProjectResponse(updated), nil
}

// ────────────────────── SearchUsers ──────────────────────

// SearchUsers 成员候选人搜索：角色过滤 + 关键词匹配 + 排除集
// 排除集 = 显式 exclude_ids ∪ 请求者本人 ∪ 指定项目的导师与成员 ∪ 指定学年的全部项目成员
// 非法 ID 丢弃不报错；空结果返回空列表
func (s *projectService) SearchUsers(ctx context.Context, req *dto.SearchUsersRequest, requesterID string) ([]dto.UserResponse, error) {
	role := req.Role
	if role != model.RoleTeacher && role != model.RoleStudent {
		role = model.RoleStudent // 非法角色值回退为 student
	}

	limit := req.Limit
	if limit <= 0 {
		limit = searchLimitDefault
	}
	if limit > searchLimitMax {
		limit = searchLimitMax
	}

	exclude := map[string]bool{requesterID: true}

	for _, raw := range strings.Split(req.ExcludeIDs, ",") {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, err := uuid.Parse(id); err != nil {
			continue // 非法 ID 直接丢弃
		}
		exclude[id] = true
	}

	if req.ProjectID != "" {
		project, err := s.repo.Project.GetByID(ctx, req.ProjectID)
		if err == nil {
			exclude[project.AdvisorID] = true
			for uid := range project.MemberUserIDs() {
				exclude[uid] = true
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询项目失败", zap.String("id", req.ProjectID), zap.Error(err))
			return nil, err
		}
	}

	if req.AcademicYear != "" {
		ids, err := s.repo.Project.MemberIDsInYear(ctx, req.AcademicYear)
		if err != nil {
			s.logger.Error("查询学年成员失败", zap.String("academic_year", req.AcademicYear), zap.Error(err))
			return nil, err
		}
		for _, uid := range ids {
			exclude[uid] = true
		}
	}

	excludeIDs := make([]string, 0, len(exclude))
	for uid := range exclude {
		excludeIDs = append(excludeIDs, uid)
	}

	users, err := s.repo.User.Search(ctx, role, req.Q, excludeIDs, limit)
	if err != nil {
		s.logger.Error("搜索用户失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, *toUserResponse(&users[i]))
	}
	return result, nil
}

// ── 内部辅助方法 ──

// validateAdvisor 导师必须存在且为教师角色
func (s *projectService) validateAdvisor(ctx context.Context, advisorID string) error {
	advisor, err := s.repo.User.GetByID(ctx, advisorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAdvisorNotTeacher
		}
		s.logger.Error("查询导师失败", zap.String("id", advisorID), zap.Error(err))
		return err
	}
	if advisor.Role != model.RoleTeacher {
		return ErrAdvisorNotTeacher
	}
	return nil
}

// filterMemberCandidates 按加人策略过滤候选人，保持请求顺序、集合去重。
// 跳过：空 ID、导师本人、已是成员、非学生角色、该学年已占名额者。
// 任何一条不满足都只是跳过该候选人，从不让整个请求失败。
func (s *projectService) filterMemberCandidates(ctx context.Context, candidateIDs []string, advisorID, academicYear string, existing map[string]bool) []string {
	seen := make(map[string]bool, len(candidateIDs))
	surviving := make([]string, 0, len(candidateIDs))

	for _, uid := range candidateIDs {
		if uid == "" || uid == advisorID || seen[uid] {
			continue
		}
		if existing != nil && existing[uid] {
			continue
		}
		seen[uid] = true

		user, err := s.repo.User.GetByID(ctx, uid)
		if err != nil {
			continue // 不存在或查询失败都按无效候选人跳过
		}
		if user.Role != model.RoleStudent {
			continue
		}

		taken, err := s.repo.Project.HasMembershipInYear(ctx, uid, academicYear)
		if err != nil || taken {
			continue
		}

		surviving = append(surviving, uid)
	}
	return surviving
}

// toProjectResponse 将 model.Project 转换为响应（关联字段已预加载）
func (s *projectService) toProjectResponse(p *model.Project) *dto.ProjectResponse {
	members := make([]dto.UserResponse, 0, len(p.Members))
	for _, m := range p.Members {
		if m.User != nil {
			members = append(members, *toUserResponse(m.User))
		}
	}
	return &dto.ProjectResponse{
		ID:           p.ProjectID,
		Name:         p.Name,
		Description:  p.Description,
		AcademicYear: p.AcademicYear,
		Advisor:      toUserResponse(p.Advisor),
		Creator:      toUserResponse(p.Creator),
		Members:      members,
		Status:       p.Status,
		CreatedAt:    formatTime(p.CreatedAt),
		UpdatedAt:    formatTime(p.UpdatedAt),
	}
}
