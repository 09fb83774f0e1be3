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

// ── 小组模块业务错误 ──

var ErrGroupNotFound = errors.New("小组不存在")

// GroupService 小组业务接口（旧版实体：无学年约束，删除为物理删除）
type GroupService interface {
	Create(ctx context.Context, req *dto.CreateGroupRequest, requesterID, requesterRole string) (*dto.GroupResponse, error)
	GetByID(ctx context.Context, id string) (*dto.GroupResponse, error)
	List(ctx context.Context, req *dto.GroupListRequest) ([]dto.GroupResponse, int64, error)
	ListMine(ctx context.Context, requesterID string) ([]dto.GroupResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateGroupRequest, requesterID, requesterRole string) (*dto.GroupResponse, error)
	Delete(ctx context.Context, id string, requesterID, requesterRole string) error
	AddMembers(ctx context.Context, id string, memberIDs []string, requesterID, requesterRole string) (*dto.GroupResponse, error)
	RemoveMembers(ctx context.Context, id string, memberIDs []string, requesterID, requesterRole string) (*dto.GroupResponse, error)
	SearchUsers(ctx context.Context, req *dto.SearchUsersRequest, requesterID string) ([]dto.UserResponse, error)
}

type groupService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewGroupService 创建 GroupService 实例
func NewGroupService(repo *repository.Repository, logger *zap.Logger) GroupService {
	return &groupService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *groupService) Create(ctx context.Context, req *dto.CreateGroupRequest, requesterID, requesterRole string) (*dto.GroupResponse, error) {
	if err := s.validateAdvisor(ctx, req.AdvisorID); err != nil {
		return nil, err
	}

	candidates := make([]string, 0, len(req.MemberIDs)+1)
	if requesterRole == model.RoleStudent {
		candidates = append(candidates, requesterID)
	}
	candidates = append(candidates, req.MemberIDs...)

	memberIDs := s.filterMemberCandidates(ctx, candidates, req.AdvisorID, nil)

	group := &model.Group{
		GroupNumber: req.GroupNumber,
		Name:        req.Name,
		Description: req.Description,
		AdvisorID:   req.AdvisorID,
		CreatedBy:   requesterID,
		Status:      model.StatusActive,
	}
	for _, uid := range memberIDs {
		group.Members = append(group.Members, model.GroupMember{UserID: uid})
	}

	if err := s.repo.Group.Create(ctx, group); err != nil {
		s.logger.Error("创建小组失败", zap.Error(err))
		return nil, err
	}

	created, err := s.repo.Group.GetByID(ctx, group.GroupID)
	if err != nil {
		return nil, err
	}
	return s.toGroupResponse(created), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *groupService) GetByID(ctx context.Context, id string) (*dto.GroupResponse, error) {
	group, err := s.repo.Group.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		s.logger.Error("查询小组失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return s.toGroupResponse(group), nil
}

// ────────────────────── List ──────────────────────

func (s *groupService) List(ctx context.Context, req *dto.GroupListRequest) ([]dto.GroupResponse, int64, error) {
	filters := &repository.GroupListFilters{
		Status:  req.Status,
		Keyword: req.Keyword,
	}

	groups, total, err := s.repo.Group.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出小组失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.GroupResponse, 0, len(groups))
	for i := range groups {
		result = append(result, *s.toGroupResponse(&groups[i]))
	}
	return result, total, nil
}

// ────────────────────── ListMine ──────────────────────

func (s *groupService) ListMine(ctx context.Context, requesterID string) ([]dto.GroupResponse, error) {
	groups, err := s.repo.Group.ListByUser(ctx, requesterID)
	if err != nil {
		s.logger.Error("查询我的小组失败", zap.String("user_id", requesterID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.GroupResponse, 0, len(groups))
	for i := range groups {
		result = append(result, *s.toGroupResponse(&groups[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *groupService) Update(ctx context.Context, id string, req *dto.UpdateGroupRequest, requesterID, requesterRole string) (*dto.GroupResponse, error) {
	group, err := s.repo.Group.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		s.logger.Error("查询小组失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if !canMutate(group.CreatedBy, requesterID, requesterRole) {
		return nil, ErrNoPermission
	}

	if req.GroupNumber != nil {
		group.GroupNumber = *req.GroupNumber
	}
	if req.Name != nil {
		group.Name = *req.Name
	}
	if req.Description != nil {
		group.Description = *req.Description
	}
	if req.AdvisorID != nil && *req.AdvisorID != group.AdvisorID {
		if err := s.validateAdvisor(ctx, *req.AdvisorID); err != nil {
			return nil, err
		}
		group.AdvisorID = *req.AdvisorID
	}
	if req.Status != nil && *req.Status != group.Status {
		if !model.CanTransitionStatus(group.Status, *req.Status) {
			return nil, ErrInvalidStatusChange
		}
		group.Status = *req.Status
	}

	if err := s.repo.Group.Update(ctx, group); err != nil {
		s.logger.Error("更新小组失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	updated, err := s.repo.Group.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toGroupResponse(updated), nil
}

// ────────────────────── Delete ──────────────────────

// Delete 物理删除小组（创建者或管理员）。
// 与 Project 的归档语义不一致，属两代实体间的历史遗留差异，保持现状（见 DESIGN.md）
func (s *groupService) Delete(ctx context.Context, id string, requesterID, requesterRole string) error {
	group, err := s.repo.Group.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGroupNotFound
		}
		s.logger.Error("查询小组失败", zap.String("id", id), zap.Error(err))
		return err
	}

	if !canMutate(group.CreatedBy, requesterID, requesterRole) {
		return ErrNoPermission
	}

	if err := s.repo.Group.Delete(ctx, id); err != nil {
		s.logger.Error("删除小组失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── AddMembers ──────────────────────

func (s *groupService) AddMembers(ctx context.Context, id string, memberIDs []string, requesterID, requesterRole string) (*dto.GroupResponse, error) {
	group, err := s.repo.Group.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		s.logger.Error("查询小组失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if !canMutate(group.CreatedBy, requesterID, requesterRole) {
		return nil, ErrNoPermission
	}

	surviving := s.filterMemberCandidates(ctx, memberIDs, group.AdvisorID, group.MemberUserIDs())

	members := make([]model.GroupMember, 0, len(surviving))
	for _, uid := range surviving {
		members = append(members, model.GroupMember{GroupID: group.GroupID, UserID: uid})
	}

	if err := s.repo.Group.AddMembers(ctx, members); err != nil {
		s.logger.Error("添加小组成员失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	updated, err := s.repo.Group.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toGroupResponse(updated), nil
}

// ────────────────────── RemoveMembers ──────────────────────

func (s *groupService) RemoveMembers(ctx context.Context, id string, memberIDs []string, requesterID, requesterRole string) (*dto.GroupResponse, error) {
	group, err := s.repo.Group.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		s.logger.Error("查询小组失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if !canMutate(group.CreatedBy, requesterID, requesterRole) {
		return nil, ErrNoPermission
	}

	removable := make([]string, 0, len(memberIDs))
	for _, uid := range memberIDs {
		if uid == "" || uid == group.CreatedBy {
			continue // 创建者不可被移除
		}
		removable = append(removable, uid)
	}

	if err := s.repo.Group.RemoveMembers(ctx, id, removable); err != nil {
		s.logger.Error("移除小组成员失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	updated, err := s.repo.Group.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toGroupResponse(updated), nil
}

// ────────────────────── SearchUsers ──────────────────────

// SearchUsers 与项目侧同构，但排除集只含指定小组的导师与成员（无学年维度）
func (s *groupService) SearchUsers(ctx context.Context, req *dto.SearchUsersRequest, requesterID string) ([]dto.UserResponse, error) {
	role := req.Role
	if role != model.RoleTeacher && role != model.RoleStudent {
		role = model.RoleStudent
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
			continue
		}
		exclude[id] = true
	}

	if req.GroupID != "" {
		group, err := s.repo.Group.GetByID(ctx, req.GroupID)
		if err == nil {
			exclude[group.AdvisorID] = true
			for uid := range group.MemberUserIDs() {
				exclude[uid] = true
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询小组失败", zap.String("id", req.GroupID), zap.Error(err))
			return nil, err
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

func (s *groupService) validateAdvisor(ctx context.Context, advisorID string) error {
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

// filterMemberCandidates 小组版候选人过滤：无学年名额检查，其余与项目侧一致
func (s *groupService) filterMemberCandidates(ctx context.Context, candidateIDs []string, advisorID string, existing map[string]bool) []string {
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
			continue
		}
		if user.Role != model.RoleStudent {
			continue
		}

		surviving = append(surviving, uid)
	}
	return surviving
}

func (s *groupService) toGroupResponse(g *model.Group) *dto.GroupResponse {
	members := make([]dto.UserResponse, 0, len(g.Members))
	for _, m := range g.Members {
		if m.User != nil {
			members = append(members, *toUserResponse(m.User))
		}
	}
	return &dto.GroupResponse{
		ID:          g.GroupID,
		GroupNumber: g.GroupNumber,
		Name:        g.Name,
		Description: g.Description,
		Advisor:     toUserResponse(g.Advisor),
		Creator:     toUserResponse(g.Creator),
		Members:     members,
		Status:      g.Status,
		CreatedAt:   formatTime(g.CreatedAt),
		UpdatedAt:   formatTime(g.UpdatedAt),
	}
}
