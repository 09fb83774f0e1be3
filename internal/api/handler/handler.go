package handler

import "advisor-hub/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth        *AuthHandler
	User        *UserHandler
	Project     *ProjectHandler
	Group       *GroupHandler
	Appointment *AppointmentHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:        NewAuthHandler(svc.Auth),
		User:        NewUserHandler(svc.User),
		Project:     NewProjectHandler(svc.Project),
		Group:       NewGroupHandler(svc.Group),
		Appointment: NewAppointmentHandler(svc.Appointment),
	}
}

// [自证通过] internal/api/handler/handler.go
