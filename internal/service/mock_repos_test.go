package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"advisor-hub/backend/internal/model"
	"advisor-hub/backend/internal/repository"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
	seq   int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		m.seq++
		user.UserID = fmt.Sprintf("uid-auto-%03d", m.seq)
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByIDs(_ context.Context, ids []string) ([]model.User, error) {
	var result []model.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			result = append(result, *u)
		}
	}
	return result, nil
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) List(_ context.Context, filters *repository.UserListFilters, offset, limit int) ([]model.User, int64, error) {
	var all []model.User
	for _, u := range m.users {
		if filters != nil {
			if filters.Role != "" && u.Role != filters.Role {
				continue
			}
			if filters.Keyword != "" && !userMatchesKeyword(u, filters.Keyword) {
				continue
			}
		}
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Username < all[j].Username })

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockUserRepo) Search(_ context.Context, role, keyword string, excludeIDs []string, limit int) ([]model.User, error) {
	excluded := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}

	var result []model.User
	for _, u := range m.users {
		if u.Role != role || excluded[u.UserID] {
			continue
		}
		if keyword != "" && !userMatchesKeyword(u, keyword) {
			continue
		}
		result = append(result, *u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func userMatchesKeyword(u *model.User, keyword string) bool {
	kw := strings.ToLower(keyword)
	return strings.Contains(strings.ToLower(u.Username), kw) ||
		strings.Contains(strings.ToLower(u.Email), kw) ||
		strings.Contains(strings.ToLower(u.FullName), kw)
}

// ── Mock ProjectRepository ──

type mockProjectRepo struct {
	projects map[string]*model.Project
	members  []model.ProjectMember
	users    *mockUserRepo
	seq      int
}

func newMockProjectRepo(users *mockUserRepo) *mockProjectRepo {
	return &mockProjectRepo{projects: make(map[string]*model.Project), users: users}
}

func (m *mockProjectRepo) Create(_ context.Context, project *model.Project) error {
	if project.ProjectID == "" {
		m.seq++
		project.ProjectID = fmt.Sprintf("proj-%03d", m.seq)
	}
	stored := *project
	stored.Members = nil
	m.projects[project.ProjectID] = &stored

	// 嵌套创建：Members 已填充时一并落库
	for _, mem := range project.Members {
		mem.ProjectID = project.ProjectID
		if mem.AcademicYear == "" {
			mem.AcademicYear = project.AcademicYear
		}
		if m.hasMemberConflict(mem) {
			continue
		}
		m.members = append(m.members, mem)
	}
	return nil
}

func (m *mockProjectRepo) GetByID(_ context.Context, id string) (*model.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.withAssociations(p), nil
}

func (m *mockProjectRepo) List(_ context.Context, filters *repository.ProjectListFilters, offset, limit int) ([]model.Project, int64, error) {
	var all []model.Project
	for _, p := range m.projects {
		if filters != nil {
			if filters.AcademicYear != "" && p.AcademicYear != filters.AcademicYear {
				continue
			}
			if filters.Status != "" && p.Status != filters.Status {
				continue
			}
			if filters.Keyword != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filters.Keyword)) {
				continue
			}
		}
		all = append(all, *m.withAssociations(p))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ProjectID < all[j].ProjectID })

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockProjectRepo) ListByUser(_ context.Context, userID string) ([]model.Project, error) {
	memberOf := make(map[string]bool)
	for _, mem := range m.members {
		if mem.UserID == userID {
			memberOf[mem.ProjectID] = true
		}
	}

	var result []model.Project
	for _, p := range m.projects {
		if p.CreatedBy == userID || p.AdvisorID == userID || memberOf[p.ProjectID] {
			result = append(result, *m.withAssociations(p))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ProjectID < result[j].ProjectID })
	return result, nil
}

func (m *mockProjectRepo) Update(_ context.Context, project *model.Project) error {
	p, ok := m.projects[project.ProjectID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	// 只更新可变列，academic_year/created_by 不动
	p.Name = project.Name
	p.Description = project.Description
	p.AdvisorID = project.AdvisorID
	p.Status = project.Status
	return nil
}

func (m *mockProjectRepo) UpdateStatus(_ context.Context, id, status string) error {
	p, ok := m.projects[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Status = status
	return nil
}

// AddMembers 模拟 ON CONFLICT DO NOTHING：冲突行静默跳过
func (m *mockProjectRepo) AddMembers(_ context.Context, members []model.ProjectMember) error {
	for _, mem := range members {
		if m.hasMemberConflict(mem) {
			continue
		}
		m.members = append(m.members, mem)
	}
	return nil
}

func (m *mockProjectRepo) RemoveMembers(_ context.Context, projectID string, userIDs []string) error {
	removing := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		removing[id] = true
	}
	kept := m.members[:0]
	for _, mem := range m.members {
		if mem.ProjectID == projectID && removing[mem.UserID] {
			continue
		}
		kept = append(kept, mem)
	}
	m.members = kept
	return nil
}

func (m *mockProjectRepo) HasMembershipInYear(_ context.Context, userID, academicYear string) (bool, error) {
	for _, mem := range m.members {
		if mem.UserID == userID && mem.AcademicYear == academicYear {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockProjectRepo) MemberIDsInYear(_ context.Context, academicYear string) ([]string, error) {
	var ids []string
	for _, mem := range m.members {
		if mem.AcademicYear == academicYear {
			ids = append(ids, mem.UserID)
		}
	}
	return ids, nil
}

func (m *mockProjectRepo) HasCreatedInYear(_ context.Context, creatorID, academicYear string) (bool, error) {
	for _, p := range m.projects {
		if p.CreatedBy == creatorID && p.AcademicYear == academicYear {
			return true, nil
		}
	}
	return false, nil
}

// hasMemberConflict 对应 (project_id, user_id) 与 (user_id, academic_year) 两条唯一索引
func (m *mockProjectRepo) hasMemberConflict(candidate model.ProjectMember) bool {
	for _, mem := range m.members {
		if mem.ProjectID == candidate.ProjectID && mem.UserID == candidate.UserID {
			return true
		}
		if mem.UserID == candidate.UserID && mem.AcademicYear == candidate.AcademicYear {
			return true
		}
	}
	return false
}

// withAssociations 模拟 Preload：填充 Advisor/Creator/Members.User
func (m *mockProjectRepo) withAssociations(p *model.Project) *model.Project {
	loaded := *p
	loaded.Advisor = m.users.users[p.AdvisorID]
	loaded.Creator = m.users.users[p.CreatedBy]
	loaded.Members = nil
	for _, mem := range m.members {
		if mem.ProjectID != p.ProjectID {
			continue
		}
		row := mem
		row.User = m.users.users[mem.UserID]
		loaded.Members = append(loaded.Members, row)
	}
	return &loaded
}

// ── Mock GroupRepository ──

type mockGroupRepo struct {
	groups  map[string]*model.Group
	members []model.GroupMember
	users   *mockUserRepo
	seq     int
}

func newMockGroupRepo(users *mockUserRepo) *mockGroupRepo {
	return &mockGroupRepo{groups: make(map[string]*model.Group), users: users}
}

func (m *mockGroupRepo) Create(_ context.Context, group *model.Group) error {
	if group.GroupID == "" {
		m.seq++
		group.GroupID = fmt.Sprintf("grp-%03d", m.seq)
	}
	stored := *group
	stored.Members = nil
	m.groups[group.GroupID] = &stored

	for _, mem := range group.Members {
		mem.GroupID = group.GroupID
		if m.hasMember(group.GroupID, mem.UserID) {
			continue
		}
		m.members = append(m.members, mem)
	}
	return nil
}

func (m *mockGroupRepo) GetByID(_ context.Context, id string) (*model.Group, error) {
	g, ok := m.groups[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.withAssociations(g), nil
}

func (m *mockGroupRepo) List(_ context.Context, filters *repository.GroupListFilters, offset, limit int) ([]model.Group, int64, error) {
	var all []model.Group
	for _, g := range m.groups {
		if filters != nil {
			if filters.Status != "" && g.Status != filters.Status {
				continue
			}
			if filters.Keyword != "" && !strings.Contains(strings.ToLower(g.Name), strings.ToLower(filters.Keyword)) {
				continue
			}
		}
		all = append(all, *m.withAssociations(g))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].GroupID < all[j].GroupID })

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockGroupRepo) ListByUser(_ context.Context, userID string) ([]model.Group, error) {
	memberOf := make(map[string]bool)
	for _, mem := range m.members {
		if mem.UserID == userID {
			memberOf[mem.GroupID] = true
		}
	}

	var result []model.Group
	for _, g := range m.groups {
		if g.CreatedBy == userID || g.AdvisorID == userID || memberOf[g.GroupID] {
			result = append(result, *m.withAssociations(g))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].GroupID < result[j].GroupID })
	return result, nil
}

func (m *mockGroupRepo) Update(_ context.Context, group *model.Group) error {
	g, ok := m.groups[group.GroupID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	g.GroupNumber = group.GroupNumber
	g.Name = group.Name
	g.Description = group.Description
	g.AdvisorID = group.AdvisorID
	g.Status = group.Status
	return nil
}

// Delete 物理删除；成员行模拟级联清理
func (m *mockGroupRepo) Delete(_ context.Context, id string) error {
	delete(m.groups, id)
	kept := m.members[:0]
	for _, mem := range m.members {
		if mem.GroupID == id {
			continue
		}
		kept = append(kept, mem)
	}
	m.members = kept
	return nil
}

func (m *mockGroupRepo) AddMembers(_ context.Context, members []model.GroupMember) error {
	for _, mem := range members {
		if m.hasMember(mem.GroupID, mem.UserID) {
			continue
		}
		m.members = append(m.members, mem)
	}
	return nil
}

func (m *mockGroupRepo) RemoveMembers(_ context.Context, groupID string, userIDs []string) error {
	removing := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		removing[id] = true
	}
	kept := m.members[:0]
	for _, mem := range m.members {
		if mem.GroupID == groupID && removing[mem.UserID] {
			continue
		}
		kept = append(kept, mem)
	}
	m.members = kept
	return nil
}

func (m *mockGroupRepo) hasMember(groupID, userID string) bool {
	for _, mem := range m.members {
		if mem.GroupID == groupID && mem.UserID == userID {
			return true
		}
	}
	return false
}

func (m *mockGroupRepo) withAssociations(g *model.Group) *model.Group {
	loaded := *g
	loaded.Advisor = m.users.users[g.AdvisorID]
	loaded.Creator = m.users.users[g.CreatedBy]
	loaded.Members = nil
	for _, mem := range m.members {
		if mem.GroupID != g.GroupID {
			continue
		}
		row := mem
		row.User = m.users.users[mem.UserID]
		loaded.Members = append(loaded.Members, row)
	}
	return &loaded
}

// ── Mock AppointmentRepository ──

type mockAppointmentRepo struct {
	appointments map[string]*model.Appointment
	participants []model.AppointmentParticipant
	users        *mockUserRepo
	groups       *mockGroupRepo
	seq          int
}

func newMockAppointmentRepo(users *mockUserRepo, groups *mockGroupRepo) *mockAppointmentRepo {
	return &mockAppointmentRepo{
		appointments: make(map[string]*model.Appointment),
		users:        users,
		groups:       groups,
	}
}

func (m *mockAppointmentRepo) Create(_ context.Context, appointment *model.Appointment) error {
	if appointment.AppointmentID == "" {
		m.seq++
		appointment.AppointmentID = fmt.Sprintf("appt-%03d", m.seq)
	}
	stored := *appointment
	stored.Participants = nil
	m.appointments[appointment.AppointmentID] = &stored

	for _, p := range appointment.Participants {
		p.AppointmentID = appointment.AppointmentID
		m.participants = append(m.participants, p)
	}
	return nil
}

func (m *mockAppointmentRepo) GetByID(_ context.Context, id string) (*model.Appointment, error) {
	a, ok := m.appointments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.withAssociations(a), nil
}

func (m *mockAppointmentRepo) ListByUser(_ context.Context, userID string, filters *repository.AppointmentListFilters, offset, limit int) ([]model.Appointment, int64, error) {
	participating := make(map[string]bool)
	for _, p := range m.participants {
		if p.UserID == userID {
			participating[p.AppointmentID] = true
		}
	}

	var all []model.Appointment
	for _, a := range m.appointments {
		if a.CreatorID != userID && !participating[a.AppointmentID] {
			continue
		}
		if filters != nil && filters.Status != "" && a.Status != filters.Status {
			continue
		}
		all = append(all, *m.withAssociations(a))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartAt.After(all[j].StartAt) })

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockAppointmentRepo) Update(_ context.Context, appointment *model.Appointment) error {
	a, ok := m.appointments[appointment.AppointmentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	a.Title = appointment.Title
	a.Description = appointment.Description
	a.Reason = appointment.Reason
	a.Date = appointment.Date
	a.StartTime = appointment.StartTime
	a.EndTime = appointment.EndTime
	a.StartAt = appointment.StartAt
	a.EndAt = appointment.EndAt
	a.MeetingType = appointment.MeetingType
	a.Location = appointment.Location
	a.ParticipantEmails = appointment.ParticipantEmails
	return nil
}

func (m *mockAppointmentRepo) ReplaceParticipants(_ context.Context, appointmentID string, participants []model.AppointmentParticipant) error {
	kept := m.participants[:0]
	for _, p := range m.participants {
		if p.AppointmentID == appointmentID {
			continue
		}
		kept = append(kept, p)
	}
	m.participants = kept
	m.participants = append(m.participants, participants...)
	return nil
}

func (m *mockAppointmentRepo) Delete(_ context.Context, id string) error {
	delete(m.appointments, id)
	kept := m.participants[:0]
	for _, p := range m.participants {
		if p.AppointmentID == id {
			continue
		}
		kept = append(kept, p)
	}
	m.participants = kept
	return nil
}

func (m *mockAppointmentRepo) withAssociations(a *model.Appointment) *model.Appointment {
	loaded := *a
	loaded.Creator = m.users.users[a.CreatorID]
	if a.GroupID != nil {
		loaded.Group = m.groups.groups[*a.GroupID]
	}
	loaded.Participants = nil
	for _, p := range m.participants {
		if p.AppointmentID != a.AppointmentID {
			continue
		}
		row := p
		row.User = m.users.users[p.UserID]
		loaded.Participants = append(loaded.Participants, row)
	}
	return &loaded
}
