package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"advisor-hub/backend/internal/model"
)

// ProjectListFilters 项目列表过滤条件
type ProjectListFilters struct {
	AcademicYear string
	Status       string
	Keyword      string
}

// ProjectRepository 项目数据访问接口
type ProjectRepository interface {
	Create(ctx context.Context, project *model.Project) error
	GetByID(ctx context.Context, id string) (*model.Project, error)
	List(ctx context.Context, filters *ProjectListFilters, offset, limit int) ([]model.Project, int64, error)
	ListByUser(ctx context.Context, userID string) ([]model.Project, error)
	Update(ctx context.Context, project *model.Project) error
	UpdateStatus(ctx context.Context, id, status string) error
	AddMembers(ctx context.Context, members []model.ProjectMember) error
	RemoveMembers(ctx context.Context, projectID string, userIDs []string) error
	HasMembershipInYear(ctx context.Context, userID, academicYear string) (bool, error)
	MemberIDsInYear(ctx context.Context, academicYear string) ([]string, error)
	HasCreatedInYear(ctx context.Context, creatorID, academicYear string) (bool, error)
}

// projectRepo ProjectRepository 的 GORM 实现
type projectRepo struct {
	db *gorm.DB
}

// NewProjectRepo 创建 ProjectRepository 实例
func NewProjectRepo(db *gorm.DB) ProjectRepository {
	return &projectRepo{db: db}
}

// Create 创建项目，Members 已填充时一并写入（GORM 嵌套创建，单事务）
func (r *projectRepo) Create(ctx context.Context, project *model.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

func (r *projectRepo) GetByID(ctx context.Context, id string) (*model.Project, error) {
	var project model.Project
	err := r.db.WithContext(ctx).
		Preload("Advisor").
		Preload("Creator").
		Preload("Members.User").
		Where("project_id = ?", id).
		First(&project).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepo) List(ctx context.Context, filters *ProjectListFilters, offset, limit int) ([]model.Project, int64, error) {
	var projects []model.Project
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Project{})

	if filters != nil {
		if filters.AcademicYear != "" {
			db = db.Where("academic_year = ?", filters.AcademicYear)
		}
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
		Find(&projects).Error; err != nil {
		return nil, 0, err
	}

	return projects, total, nil
}

// ListByUser 返回用户作为创建者、导师或成员参与的全部项目
func (r *projectRepo) ListByUser(ctx context.Context, userID string) ([]model.Project, error) {
	var projects []model.Project
	err := r.db.WithContext(ctx).
		Preload("Advisor").
		Preload("Creator").
		Preload("Members.User").
		Where("created_by = ? OR advisor_id = ?"+
			" OR project_id IN (SELECT project_id FROM project_members WHERE user_id = ?)",
			userID, userID, userID).
		Order("created_at DESC").
		Find(&projects).Error
	return projects, err
}

// Update 只写入可变列；academic_year 与 created_by 创建后不可变
func (r *projectRepo) Update(ctx context.Context, project *model.Project) error {
	return r.db.WithContext(ctx).
		Model(&model.Project{}).
		Where("project_id = ?", project.ProjectID).
		Select("name", "description", "advisor_id", "status", "updated_at").
		Updates(project).Error
}

func (r *projectRepo) UpdateStatus(ctx context.Context, id, status string) error {
	return r.db.WithContext(ctx).
		Model(&model.Project{}).
		Where("project_id = ?", id).
		Update("status", status).Error
}

// AddMembers 批量写入成员行；冲突（已是成员/学年名额已占）静默跳过。
// ON CONFLICT DO NOTHING 让并发加人天然幂等，也兜住校验后的竞态写入。
func (r *projectRepo) AddMembers(ctx context.Context, members []model.ProjectMember) error {
	if len(members) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&members).Error
}

// RemoveMembers 按 ID 列表删除成员行；不存在的行不报错
func (r *projectRepo) RemoveMembers(ctx context.Context, projectID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("project_id = ? AND user_id IN ?", projectID, userIDs).
		Delete(&model.ProjectMember{}).Error
}

// HasMembershipInYear 判断用户在指定学年是否已占有项目名额
func (r *projectRepo) HasMembershipInYear(ctx context.Context, userID, academicYear string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ProjectMember{}).
		Where("user_id = ? AND academic_year = ?", userID, academicYear).
		Count(&count).Error
	return count > 0, err
}

// MemberIDsInYear 返回指定学年所有项目的成员用户 ID
func (r *projectRepo) MemberIDsInYear(ctx context.Context, academicYear string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.ProjectMember{}).
		Where("academic_year = ?", academicYear).
		Pluck("user_id", &ids).Error
	return ids, err
}

// HasCreatedInYear 判断用户在指定学年是否已创建过项目
func (r *projectRepo) HasCreatedInYear(ctx context.Context, creatorID, academicYear string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Project{}).
		Where("created_by = ? AND academic_year = ?", creatorID, academicYear).
		Count(&count).Error
	return count > 0, err
}
