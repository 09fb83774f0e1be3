package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"advisor-hub/backend/internal/model"
)

// GroupListFilters 小组列表过滤条件
type GroupListFilters struct {
	Status  string
	Keyword string
}

// GroupRepository 小组数据访问接口（旧版实体）
type GroupRepository interface {
	Create(ctx context.Context, group *model.Group) error
	GetByID(ctx context.Context, id string) (*model.Group, error)
	List(ctx context.Context, filters *GroupListFilters, offset, limit int) ([]model.Group, int64, error)
	ListByUser(ctx context.Context, userID string) ([]model.Group, error)
	Update(ctx context.Context, group *model.Group) error
	Delete(ctx context.Context, id string) error
	AddMembers(ctx context.Context, members []model.GroupMember) error
	RemoveMembers(ctx context.Context, groupID string, userIDs []string) error
}

// groupRepo GroupRepository 的 GORM 实现
type groupRepo struct {
	db *gorm.DB
}

// NewGroupRepo 创建 GroupRepository 实例
func NewGroupRepo(db *gorm.DB) GroupRepository {
	return &groupRepo{db: db}
}

func (r *groupRepo) Create(ctx context.Context, group *model.Group) error {
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *groupRepo) GetByID(ctx context.Context, id string) (*model.Group, error) {
	var group model.Group
	err := r.db.WithContext(ctx).
		Preload("Advisor").
		Preload("Creator").
		Preload("Members.User").
		Where("group_id = ?", id).
		First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *groupRepo) List(ctx context.Context, filters *GroupListFilters, offset, limit int) ([]model.Group, int64, error) {
	var groups []model.Group
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Group{})

	if filters != nil {
		if filters.Status != "" {
			db = db.Where("status = ?", filters.Status)
		}
		if filters.Keyword != "" {
			db = db.Where("name ILIKE ?", "%"+escapeLike(filters.Keyword)+"%")
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Advisor").Preload("Creator").Preload("Members.User").
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&groups).Error; err != nil {
		return nil, 0, err
	}

	return groups, total, nil
}

func (r *groupRepo) ListByUser(ctx context.Context, userID string) ([]model.Group, error) {
	var groups []model.Group
	err := r.db.WithContext(ctx).
		Preload("Advisor").
		Preload("Creator").
		Preload("Members.User").
		Where("created_by = ? OR advisor_id = ?"+
			" OR group_id IN (SELECT group_id FROM group_members WHERE user_id = ?)",
			userID, userID, userID).
		Order("created_at DESC").
		Find(&groups).Error
	return groups, err
}

func (r *groupRepo) Update(ctx context.Context, group *model.Group) error {
	return r.db.WithContext(ctx).
		Model(&model.Group{}).
		Where("group_id = ?", group.GroupID).
		Select("group_number", "name", "description", "advisor_id", "status", "updated_at").
		Updates(group).Error
}

// Delete 物理删除；成员行由外键 ON DELETE CASCADE 清理
func (r *groupRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("group_id = ?", id).
		Delete(&model.Group{}).Error
}

func (r *groupRepo) AddMembers(ctx context.Context, members []model.GroupMember) error {
	if len(members) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&members).Error
}

func (r *groupRepo) RemoveMembers(ctx context.Context, groupID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("group_id = ? AND user_id IN ?", groupID, userIDs).
		Delete(&model.GroupMember{}).Error
}
