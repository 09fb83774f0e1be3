package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"advisor-hub/backend/internal/model"
)

// AppointmentListFilters 预约列表过滤条件
type AppointmentListFilters struct {
	Status string
}

// AppointmentRepository 预约数据访问接口
type AppointmentRepository interface {
	Create(ctx context.Context, appointment *model.Appointment) error
	GetByID(ctx context.Context, id string) (*model.Appointment, error)
	ListByUser(ctx context.Context, userID string, filters *AppointmentListFilters, offset, limit int) ([]model.Appointment, int64, error)
	Update(ctx context.Context, appointment *model.Appointment) error
	ReplaceParticipants(ctx context.Context, appointmentID string, participants []model.AppointmentParticipant) error
	Delete(ctx context.Context, id string) error
}

// appointmentRepo AppointmentRepository 的 GORM 实现
type appointmentRepo struct {
	db *gorm.DB
}

// NewAppointmentRepo 创建 AppointmentRepository 实例
func NewAppointmentRepo(db *gorm.DB) AppointmentRepository {
	return &appointmentRepo{db: db}
}

// Create 创建预约，Participants 已填充时一并写入
func (r *appointmentRepo) Create(ctx context.Context, appointment *model.Appointment) error {
	return r.db.WithContext(ctx).Create(appointment).Error
}

func (r *appointmentRepo) GetByID(ctx context.Context, id string) (*model.Appointment, error) {
	var appointment model.Appointment
	err := r.db.WithContext(ctx).
		Preload("Creator").
		Preload("Group").
		Preload("Participants.User").
		Where("appointment_id = ?", id).
		First(&appointment).Error
	if err != nil {
		return nil, err
	}
	return &appointment, nil
}

// ListByUser 返回用户作为创建者或参与人的全部预约
func (r *appointmentRepo) ListByUser(ctx context.Context, userID string, filters *AppointmentListFilters, offset, limit int) ([]model.Appointment, int64, error) {
	var appointments []model.Appointment
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Appointment{}).
		Where("creator_id = ?"+
			" OR appointment_id IN (SELECT appointment_id FROM appointment_participants WHERE user_id = ?)",
			userID, userID)

	if filters != nil && filters.Status != "" {
		db = db.Where("status = ?", filters.Status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Creator").Preload("Group").Preload("Participants.User").
		Offset(offset).Limit(limit).
		Order("start_at DESC").
		Find(&appointments).Error; err != nil {
		return nil, 0, err
	}

	return appointments, total, nil
}

func (r *appointmentRepo) Update(ctx context.Context, appointment *model.Appointment) error {
	return r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Where("appointment_id = ?", appointment.AppointmentID).
		Select("title", "description", "reason", "date", "start_time", "end_time",
			"start_at", "end_at", "meeting_type", "location", "participant_emails", "updated_at").
		Updates(appointment).Error
}

// ReplaceParticipants 整体替换参与人集合
func (r *appointmentRepo) ReplaceParticipants(ctx context.Context, appointmentID string, participants []model.AppointmentParticipant) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("appointment_id = ?", appointmentID).
			Delete(&model.AppointmentParticipant{}).Error; err != nil {
			return err
		}
		if len(participants) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&participants).Error
	})
}

// Delete 物理删除；参与人行由外键 ON DELETE CASCADE 清理
func (r *appointmentRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("appointment_id = ?", id).
		Delete(&model.Appointment{}).Error
}
