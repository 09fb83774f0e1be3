package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"advisor-hub/backend/internal/dto"
	"advisor-hub/backend/internal/model"
	"advisor-hub/backend/internal/repository"
	"advisor-hub/backend/pkg/mail"
)

// ── 预约模块业务错误 ──

var (
	ErrAppointmentNotFound = errors.New("预约不存在")
	ErrInvalidTimeRange    = errors.New("预约开始时间必须早于结束时间")
)

// AppointmentService 预约业务接口
// 注意：更新/删除仅限创建者本人，管理员亦无覆盖权限（与项目/小组不同，沿用既有语义）
type AppointmentService interface {
	Create(ctx context.Context, req *dto.CreateAppointmentRequest, requesterID string) (*dto.AppointmentResponse, error)
	GetByID(ctx context.Context, id string) (*dto.AppointmentResponse, error)
	ListMine(ctx context.Context, requesterID string, req *dto.AppointmentListRequest) ([]dto.AppointmentResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateAppointmentRequest, requesterID string) (*dto.AppointmentResponse, error)
	Delete(ctx context.Context, id string, requesterID string) error
}

type appointmentService struct {
	repo     *repository.Repository
	notifier mail.Notifier
	logger   *zap.Logger
}

// NewAppointmentService 创建 AppointmentService 实例
func NewAppointmentService(repo *repository.Repository, notifier mail.Notifier, logger *zap.Logger) AppointmentService {
	return &appointmentService{repo: repo, notifier: notifier, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *appointmentService) Create(ctx context.Context, req *dto.CreateAppointmentRequest, requesterID string) (*dto.AppointmentResponse, error) {
	startAt, endAt, err := parseTimeWindow(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	var groupID *string
	if req.GroupID != "" {
		if _, err := s.repo.Group.GetByID(ctx, req.GroupID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrGroupNotFound
			}
			s.logger.Error("查询小组失败", zap.String("id", req.GroupID), zap.Error(err))
			return nil, err
		}
		groupID = &req.GroupID
	}

	// 参与人只保留真实存在的用户，未知 ID 静默丢弃（与成员过滤策略一致）
	participants, err := s.resolveParticipants(ctx, req.ParticipantIDs)
	if err != nil {
		return nil, err
	}

	appointment := &model.Appointment{
		Title:             req.Title,
		Description:       req.Description,
		Reason:            req.Reason,
		Date:              req.Date,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		StartAt:           startAt,
		EndAt:             endAt,
		MeetingType:       req.MeetingType,
		Location:          req.Location,
		GroupID:           groupID,
		ParticipantEmails: model.StringArray(req.ParticipantEmails),
		CreatorID:         requesterID,
		Status:            model.AppointmentPending,
	}
	for _, p := range participants {
		appointment.Participants = append(appointment.Participants, model.AppointmentParticipant{UserID: p.UserID})
	}

	if err := s.repo.Appointment.Create(ctx, appointment); err != nil {
		s.logger.Error("创建预约失败", zap.Error(err))
		return nil, err
	}

	created, err := s.repo.Appointment.GetByID(ctx, appointment.AppointmentID)
	if err != nil {
		return nil, err
	}

	s.notifyCreated(ctx, created, participants)

	return s.toAppointmentResponse(created), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *appointmentService) GetByID(ctx context.Context, id string) (*dto.AppointmentResponse, error) {
	appointment, err := s.repo.Appointment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppointmentNotFound
		}
		s.logger.Error("查询预约失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return s.toAppointmentResponse(appointment), nil
}

// ────────────────────── ListMine ──────────────────────

func (s *appointmentService) ListMine(ctx context.Context, requesterID string, req *dto.AppointmentListRequest) ([]dto.AppointmentResponse, int64, error) {
	filters := &repository.AppointmentListFilters{Status: req.Status}

	appointments, total, err := s.repo.Appointment.ListByUser(ctx, requesterID, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出预约失败", zap.String("user_id", requesterID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.AppointmentResponse, 0, len(appointments))
	for i := range appointments {
		result = append(result, *s.toAppointmentResponse(&appointments[i]))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *appointmentService) Update(ctx context.Context, id string, req *dto.UpdateAppointmentRequest, requesterID string) (*dto.AppointmentResponse, error) {
	appointment, err := s.repo.Appointment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppointmentNotFound
		}
		s.logger.Error("查询预约失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if appointment.CreatorID != requesterID {
		return nil, ErrNoPermission
	}

	if req.Title != nil {
		appointment.Title = *req.Title
	}
	if req.Description != nil {
		appointment.Description = *req.Description
	}
	if req.Reason != nil {
		appointment.Reason = *req.Reason
	}
	if req.Date != nil {
		appointment.Date = *req.Date
	}
	if req.StartTime != nil {
		appointment.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		appointment.EndTime = *req.EndTime
	}
	if req.MeetingType != nil {
		appointment.MeetingType = *req.MeetingType
	}
	if req.Location != nil {
		appointment.Location = *req.Location
	}
	if req.ParticipantEmails != nil {
		appointment.ParticipantEmails = model.StringArray(req.ParticipantEmails)
	}

	// 任一时间字段变更后整体重算并复验时间窗
	startAt, endAt, err := parseTimeWindow(appointment.Date, appointment.StartTime, appointment.EndTime)
	if err != nil {
		return nil, err
	}
	appointment.StartAt = startAt
	appointment.EndAt = endAt

	if err := s.repo.Appointment.Update(ctx, appointment); err != nil {
		s.logger.Error("更新预约失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if req.ParticipantIDs != nil {
		participants, err := s.resolveParticipants(ctx, req.ParticipantIDs)
		if err != nil {
			return nil, err
		}
		rows := make([]model.AppointmentParticipant, 0, len(participants))
		for _, p := range participants {
			rows = append(rows, model.AppointmentParticipant{AppointmentID: id, UserID: p.UserID})
		}
		if err := s.repo.Appointment.ReplaceParticipants(ctx, id, rows); err != nil {
			s.logger.Error("更新预约参与人失败", zap.String("id", id), zap.Error(err))
			return nil, err
		}
	}

	updated, err := s.repo.Appointment.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toAppointmentResponse(updated), nil
}

// ────────────────────── Delete ──────────────────────

func (s *appointmentService) Delete(ctx context.Context, id string, requesterID string) error {
	appointment, err := s.repo.Appointment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAppointmentNotFound
		}
		s.logger.Error("查询预约失败", zap.String("id", id), zap.Error(err))
		return err
	}

	if appointment.CreatorID != requesterID {
		return ErrNoPermission
	}

	if err := s.repo.Appointment.Delete(ctx, id); err != nil {
		s.logger.Error("删除预约失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ── 内部辅助方法 ──

// 预约时刻统一按曼谷时区解释，不随服务器本地时区漂移
var appointmentLocation = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Bangkok")
	if err != nil {
		return time.FixedZone("ICT", 7*3600)
	}
	return loc
}()

// parseTimeWindow 将日期与起止时刻拼装为时间窗并校验 start < end
func parseTimeWindow(date, startTime, endTime string) (time.Time, time.Time, error) {
	const layout = "2006-01-02 15:04"

	startAt, err := time.ParseInLocation(layout, date+" "+startTime, appointmentLocation)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidTimeRange
	}
	endAt, err := time.ParseInLocation(layout, date+" "+endTime, appointmentLocation)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidTimeRange
	}
	if !startAt.Before(endAt) {
		return time.Time{}, time.Time{}, ErrInvalidTimeRange
	}
	return startAt, endAt, nil
}

// resolveParticipants 将参与人 ID 列表解析为真实用户，未知 ID 丢弃
func (s *appointmentService) resolveParticipants(ctx context.Context, ids []string) ([]model.User, error) {
	valid := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		valid = append(valid, id)
	}
	if len(valid) == 0 {
		return nil, nil
	}

	users, err := s.repo.User.GetByIDs(ctx, valid)
	if err != nil {
		s.logger.Error("查询参与人失败", zap.Error(err))
		return nil, err
	}
	return users, nil
}

// notifyCreated 发送预约创建通知；失败只记日志，不影响主流程
func (s *appointmentService) notifyCreated(ctx context.Context, appointment *model.Appointment, participants []model.User) {
	if s.notifier == nil {
		return
	}

	to := make([]string, 0, len(participants)+len(appointment.ParticipantEmails))
	for _, p := range participants {
		to = append(to, p.Email)
	}
	to = append(to, appointment.ParticipantEmails...)
	if len(to) == 0 {
		return
	}

	creatorName := appointment.CreatorID
	if appointment.Creator != nil {
		creatorName = appointment.Creator.FullName
	}

	notice := &mail.Notice{
		To:          to,
		Title:       appointment.Title,
		CreatorName: creatorName,
		Date:        appointment.Date,
		StartTime:   appointment.StartTime,
		EndTime:     appointment.EndTime,
		MeetingType: appointment.MeetingType,
		Location:    appointment.Location,
		Reason:      appointment.Reason,
	}
	if err := s.notifier.AppointmentCreated(ctx, notice); err != nil {
		s.logger.Warn("发送预约通知失败", zap.String("id", appointment.AppointmentID), zap.Error(err))
	}
}

// toAppointmentResponse 将 model.Appointment 转换为响应
func (s *appointmentService) toAppointmentResponse(a *model.Appointment) *dto.AppointmentResponse {
	participants := make([]dto.UserResponse, 0, len(a.Participants))
	for _, p := range a.Participants {
		if p.User != nil {
			participants = append(participants, *toUserResponse(p.User))
		}
	}

	var group *dto.GroupResponse
	if a.Group != nil {
		group = &dto.GroupResponse{
			ID:          a.Group.GroupID,
			GroupNumber: a.Group.GroupNumber,
			Name:        a.Group.Name,
			Status:      a.Group.Status,
		}
	}

	return &dto.AppointmentResponse{
		ID:                a.AppointmentID,
		Title:             a.Title,
		Description:       a.Description,
		Reason:            a.Reason,
		Date:              a.Date,
		StartTime:         a.StartTime,
		EndTime:           a.EndTime,
		StartAt:           formatTime(a.StartAt),
		EndAt:             formatTime(a.EndAt),
		MeetingType:       a.MeetingType,
		Location:          a.Location,
		Group:             group,
		Creator:           toUserResponse(a.Creator),
		Participants:      participants,
		ParticipantEmails: a.ParticipantEmails,
		Status:            a.Status,
		CreatedAt:         formatTime(a.CreatedAt),
	}
}
