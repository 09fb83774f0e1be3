package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"advisor-hub/backend/internal/dto"
	"advisor-hub/backend/internal/model"
	"advisor-hub/backend/internal/repository"
)

// ── 测试辅助 ──

func setupTestProjectService() (ProjectService, *mockUserRepo, *mockProjectRepo) {
	userRepo := newMockUserRepo()
	projectRepo := newMockProjectRepo(userRepo)
	repo := &repository.Repository{
		User:        userRepo,
		Project:     projectRepo,
		Group:       newMockGroupRepo(userRepo),
		Appointment: newMockAppointmentRepo(userRepo, newMockGroupRepo(userRepo)),
	}
	svc := NewProjectService(repo, zap.NewNop())
	return svc, userRepo, projectRepo
}

func addProjectTestUser(userRepo *mockUserRepo, userID, username, role string) *model.User {
	user := &model.User{
		UserID:   userID,
		Username: username,
		Email:    username + "@test.com",
		FullName: "测试用户" + username,
		Role:     role,
	}
	userRepo.users[userID] = user
	return user
}

func mustCreateProject(t *testing.T, svc ProjectService, req *dto.CreateProjectRequest, requesterID, requesterRole string) *dto.ProjectResponse {
	t.Helper()
	project, err := svc.Create(context.Background(), req, requesterID, requesterRole)
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	return project
}

func memberIDSet(p *dto.ProjectResponse) map[string]bool {
	ids := make(map[string]bool, len(p.Members))
	for _, m := range p.Members {
		ids[m.ID] = true
	}
	return ids
}

// ── Create 测试 ──

func TestProjectService_Create_StudentAutoJoins(t *testing.T) {
	svc, userRepo, _ := setupTestProjectService()
	addProjectTestUser(userRepo, "t-001", "advisor1", model.RoleTeacher)
	addProjectTestUser(userRepo, "s-001", "student1", model.RoleStudent)

	project := mustCreateProject(t, svc, &dto.CreateProjectRequest{
		Name:         "智能排课系统",
		AcademicYear: "2567",
		AdvisorID:    "t-001",
	}, "s-001", model.RoleStudent)

	if project.AcademicYear != "2567" {
		t.Errorf("期望学年=2567，实际=%s", project.AcademicYear)
	}
	if !memberIDSet(project)["s-001"] {
		t.Error("学生创建者应自动成为项目成员")
	}
	if project.Advisor == nil || project.Advisor.ID != "t-001" {
		t.Error("期望导师关联已填充")
	}
}

func TestProjectService_Create_TeacherCreatorNotMember(t *testing.T) {
	svc, userRepo, _ := setupTestProjectService()
	addProjectTestUser(userRepo, "t-001", "advisor1", model.RoleTeacher)
	addProjectTestUser(userRepo, "t-002", "teacher2", model.RoleTeacher)

	project := mustCreateProject(t, svc, &dto.CreateProjectRequest{
		Name:         "教师发起的项目",
		AcademicYear: "2567",
		AdvisorID:    "t-001",
	}, "t-002", model.RoleTeacher)

	if len(project.Members) != 0 {
		t.Errorf("教师创建者不应被加入成员，实际成员数=%d", len(project.Members))
	}
}

func TestProjectService_Create_InvalidAcademicYear(t *testing.T) {
	svc, userRepo, _ := setupTestProjectService()
	addProjectTestUser(userRepo, "t-001", "advisor1", model.RoleTeacher)

	for _, year := range []string{"", "25", "25670", "abcd", "25a7"} {
		_, err := svc.Create(context.Background(), &dto.CreateProjectRequest{
			Name:         "非法学年项目",
			AcademicYear: year,
			AdvisorID:    "t-001",
		}, "s-001", model.RoleStudent)
		if !errors.Is(err, ErrInvalidAcademicYear) {
			t.Errorf("学年=%q 期望 ErrInvalidAcademicYear，实际: %v", year, err)
		}
	}
}

func TestProjectService_Create_AdvisorMustBeTeacher(t *testing.T) {
	svc, userRepo, _ := setupTestProjectService()
	addProjectTestUser(userRepo, "s-001", "student1", model.RoleStudent)
	addProjectTestUser(userRepo, "s-002", "student2", model.RoleStudent)

	// 学生当导师
	_, err := svc.Create(context.Background(), &dto.CreateProjectRequest{
		Name:         "导师角色错误",
		AcademicYear: "2567",
		AdvisorID:    "s-002",
	}, "s-001", model.RoleStudent)
	if !errors.Is(err, ErrAdvisorNotTeacher) {
		t.Errorf("期望 ErrAdvisorNotTeacher，实际: %v", err)
	}

	// 导师不存在
	_, err = svc.Create(context.Background(), &dto.CreateProjectRequest{
		Name:         "导师不存在",
		AcademicYear: "2567",
		AdvisorID:    "nonexistent",
	}, "s-001", model.RoleStudent)
	if !errors.Is(err, ErrAdvisorNotTeacher) {
		t.Errorf("期望 ErrAdvisorNotTeacher，实际: %v", err)
	}
}

func TestProjectService_Create_OnePerYearPerCreator(t *testing.T) {
	svc, userRepo, _ := setupTestProjectService()
	addProjectTestUser(userRepo, "t-001", "advisor1", model.RoleTeacher)
	addProjectTestUser(userRepo, "s-001", "student1", model.RoleStudent)

	mustCreateProject(t, svc, &dto.CreateProjectRequest{
		Name:         "第一个项目",
		AcademicYear: "2567",
		AdvisorID:    "t-001",
	}, "s-001", model.RoleStudent)

	// 同学年再建 → 拒绝
	_, err := svc.Create(context.Background(), &dto.CreateProjectRequest{
		Name:         "第二个项目",
		AcademicYear: "2567",
		AdvisorID:    "t-001",
	}, "s-001", model.RoleStudent)
	if !errors.Is(err, ErrOwnerYearConflict) {
		t.Errorf("期望 ErrOwnerYearConflict，实际: %v", err)
	}

	// 不同学年可以再建
	if _, err := svc.Create(context.Background(), &dto.CreateProjectRequest{
		Name:         "次年项目",
		AcademicYear: "2568",
		AdvisorID:    "t-001",
	}, "s-001", model.RoleStudent); err != nil {
		t.Errorf("不同学年创建应成功: %v", err)
	}
}

func TestProjectService_Create_FiltersInvalidCandidates(t *testing.T) {
	svc, userRepo, _ := setupTestProjectService()
	addProjectTestUser(userRepo, "t-001", "advisor1", model.RoleTeacher)
	addProjectTestUser(userRepo, "t-002", "teacher2", model.RoleTeacher)
	addProjectTestUser(userRepo, "s-001", "student1", model.RoleStudent)
	addProjectTestUser(userRepo, "s-002", "student2", model.RoleStudent)
	addProjectTestUser(userRepo, "s-003", "student3", model.RoleStudent)

	// s-003 已在同学年另一个项目中占名额
	mustCreateProject(t, svc, &dto.CreateProjectRequest{
		Name:         "已有项目",
		AcademicYear: "2567",
		AdvisorID:    "t-001",
	}, "s-003", model.RoleStudent)

	project := mustCreateProject(t, svc, &dto.CreateProjectRequest{
		Name:         "过滤测试项目",
		AcademicYear: "2567",
		AdvisorID:    "t-001",
		MemberIDs: []string{
			"s-002",       // 有效学生
			"s-002",       // 重复，去重
			"t-001",       // 导师本人，跳过
			"t-002",       // 非学生角色，跳过
			"nonexistent", // 不存在，跳过
			"s-003",       // 学年名额已占，跳过
			"",            // 空 ID，跳过
		},
	}, "s-001", model.RoleStudent)

	members := memberIDSet(project)
	if len(members) != 2 || !members["s-001"] || !members["s-002"] {
		t.Errorf("期望成员集合={s-001, s-002}，实际=%v", members)
	}
}

// ── AddMembers / RemoveMembers 测试 ──

func TestProjectService_AddMembers_IdempotentAndFiltered(t *testing.T) {
	svc, userRepo, _ := setupTestProjectService()
	addProjectTestUser(userRepo, "t-001", "advisor1", model.RoleTeacher)
	addProjectTestUser(userRepo, "s-001", "student1", model.RoleStudent)
	addProjectTestUser(userRepo, "s-002", "student2", model.RoleStudent)

	project := mustCreateProject(t, svc, &dto.CreateProjectRequest{
		Name:         "加人测试项目",
		AcademicYear: "2567",
		AdvisorID:    "t-001",
	}, "s-001", model.RoleStudent)

	// 已是成员的 s-001 与新成员 s-002 一起提交：不报错，集合语义
	updated, err := svc.AddMembers(context.Background(), project.ID, []string{"s-001", "s-002"}, "s-001", model.RoleStudent)
	if err != nil {
		t.Fatalf("AddMembers 应成功: %v", err)
	}
	if len(updated.Members) != 2 {
		t.Errorf("期望成员数=2，实际=%d", len(updated.Members))
	}

	// 再次提交同一批 → 结果不变
	again, err := svc.AddMembers(context.Background(), project.ID, []string{"s-002"}, "s-001", model.RoleStudent)
	if err != nil {
		t.Fatalf("重复 AddMembers 应成功: %v", err)
	}
	if len(again.Members) != 2 {
		t.Errorf("重复加人后期望成员数仍=2，实际=%d", len(again.Members))
	}
}

func TestProjectService_AddMembers_PermissionDenied(t *testing.T) {
	svc, userRepo, _ := setupTestProjectService()
	addProjectTestUser(userRepo, "t-001", "advisor1", model.RoleTeacher)
	addProjectTestUser(userRepo, "s-001", "student1", model.RoleStudent)
	addProjectTestUser(userRepo, "s-002", "student2", model.RoleStudent)

	project := mustCreateProject(t, svc, &dto.CreateProjectRequest{
		Name:         "权限测试项目",
		AcademicYear: "2567",
		AdvisorID:    "t-001",
	}, "s-001", model.RoleStudent)

	// 非创建者非管理员
	_, err := svc.AddMembers(context.Background(), project.ID, []string{"s-002"}, "s-002", model.RoleStudent)
	if !errors.Is(err, ErrNoPermission) {
		t.Errorf("期望 ErrNoPermission，实际: %v", err)
	}

	// 管理员可以
	if _, err := svc.AddMembers(context.Background(), project.ID, []string{"s-002"}, "admin-001", model.RoleAdmin); err != nil {
		t.Errorf("管理员 AddMembers 应成功: %v", err)
	}
}

func TestProjectService_RemoveMembers_CreatorProtected(t *testing.T) {
	svc, userRepo, _ := setupTestProjectService()
	addProjectTestUser(userRepo, "t-001", "advisor1", model.RoleTeacher)
	addProjectTestUser(userRepo, "s-001", "student1", model.RoleStudent)
	addProjectTestUser(userRepo, "s-002", "student2", model.RoleStudent)

	project := mustCreateProject(t, svc, &dto.CreateProjectRequest{
		Name:         "移除测试项目",
		AcademicYear: "2567",
		AdvisorID:    "t-001",
		MemberIDs:    []string{"s-002"},
	}, "s-001", model.RoleStudent)

	// 创建者 + 普通成员 + 不存在的 ID 一起移除：只有 s-002 被移除
	updated, err := svc.RemoveMembers(context.Background(), project.ID, []string{"s-001", "s-002", "ghost"}, "s-001", model.RoleStudent)
	if err != nil {
		t.Fatalf("RemoveMembers 应成功: %v", err)
	}
	members := memberIDSet(updated)
	if !members["s-001"] {
		t.Error("创建者不应被移除")
	}
	if members["s-002"] {
		t.Error("s-002 应已被移除")
	}
}

// ── Update / Archive 测试 ──

func TestProjectService_Update_StatusTransition(t *testing.T) {
	svc, userRepo, _ := setupTestProjectService()
	addProjectTestUser(userRepo, "t-001", "advisor1", model.RoleTeacher)
	addProjectTestUser(userRepo, "s-001", "student1", model.RoleStudent)

	project := mustCreateProject(t, svc, &dto.CreateProjectRequest{
		Name:         "状态测试项目",
		AcademicYear: "2567",
		AdvisorID:    "t-001",
	}, "s-001", model.RoleStudent)

	// active → archived 合法
	archived := model.StatusArchived
	updated, err := svc.Update(context.Background(), project.ID, &dto.UpdateProjectRequest{Status: &archived}, "s-001", model.RoleStudent)
	if err != nil {
		t.Fatalf("归档更新应成功: %v", err)
	}
	if updated.Status != model.StatusArchived {
		t.Errorf("期望状态=archived，实际=%s", updated.Status)
	}

	// archived → active 非法
	active := model.StatusActive
	_, err = svc.Update(context.Background(), project.ID, &dto.UpdateProjectRequest{Status: &active}, "s-001", model.RoleStudent)
	if !errors.Is(err, ErrInvalidStatusChange) {
		t.Errorf("期望 ErrInvalidStatusChange，实际: %v", err)
	}
}

func TestProjectService_Update_AdvisorRevalidated(t *testing.T) {
	svc, userRepo, _ := setupTestProjectService()
	addProjectTestUser(userRepo, "t-001", "advisor1", model.RoleTeacher)
	addProjectTestUser(userRepo, "s-001", "student1", model.RoleStudent)
	addProjectTestUser(userRepo, "s-002", "student2", model.RoleStudent)

	project := mustCreateProject(t, svc, &dto.CreateProjectRequest{
		Name:         "换导师测试",
		AcademicYear: "2567",
		AdvisorID:    "t-001",
	}, "s-001", model.RoleStudent)

	badAdvisor := "s-002"
	_, err := svc.Update(context.Background(), project.ID, &dto.UpdateProjectRequest{AdvisorID: &badAdvisor}, "s-001", model.RoleStudent)
	if !errors.Is(err, ErrAdvisorNotTeacher) {
		t.Errorf("期望 ErrAdvisorNotTeacher，实际: %v", err)
	}
}

func TestProjectService_Archive_AdminOnlyAndIdempotent(t *testing.T) {
	svc, userRepo, _ := setupTestProjectService()
	addProjectTestUser(userRepo, "t-001", "advisor1", model.RoleTeacher)
	addProjectTestUser(userRepo, "s-001", "student1", model.RoleStudent)

	project := mustCreateProject(t, svc, &dto.CreateProjectRequest{
		Name:         "归档测试项目",
		AcademicYear: "2567",
		AdvisorID:    "t-001",
	}, "s-001", model.RoleStudent)

	// 创建者本人也无权归档
	if err := svc.Archive(context.Background(), project.ID, model.RoleStudent); !errors.Is(err, ErrNoPermission) {
		t.Errorf("期望 ErrNoPermission，实际: %v", err)
	}

	if err := svc.Archive(context.Background(), project.ID, model.RoleAdmin); err != nil {
		t.Fatalf("管理员归档应成功: %v", err)
	}

	// 重复归档幂等
	if err := svc.Archive(context.Background(), project.ID, model.RoleAdmin); err != nil {
		t.Errorf("重复归档应幂等返回: %v", err)
	}

	got, err := svc.GetByID(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("GetByID 应成功: %v", err)
	}
	if got.Status != model.StatusArchived {
		t.Errorf("期望状态=archived，实际=%s", got.Status)
	}
}

func TestProjectService_Archive_NotFound(t *testing.T) {
	svc, _, _ := setupTestProjectService()

	if err := svc.Archive(context.Background(), "nonexistent", model.RoleAdmin); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("期望 ErrProjectNotFound，实际: %v", err)
	}
}

// ── SearchUsers 测试 ──

func TestProjectService_SearchUsers_ExclusionSet(t *testing.T) {
	svc, userRepo, _ := setupTestProjectService()
	addProjectTestUser(userRepo, "t-001", "advisor1", model.RoleTeacher)
	addProjectTestUser(userRepo, "s-001", "student1", model.RoleStudent)
	addProjectTestUser(userRepo, "s-002", "student2", model.RoleStudent)
	addProjectTestUser(userRepo, "s-003", "student3", model.RoleStudent)
	addProjectTestUser(userRepo, "s-004", "student4", model.RoleStudent)

	project := mustCreateProject(t, svc, &dto.CreateProjectRequest{
		Name:         "搜索测试项目",
		AcademicYear: "2567",
		AdvisorID:    "t-001",
		MemberIDs:    []string{"s-002"},
	}, "s-001", model.RoleStudent)

	// 请求者 s-003；排除项目现有成员 {s-001, s-002} 与学年已占名额者
	result, err := svc.SearchUsers(context.Background(), &dto.SearchUsersRequest{
		Role:         model.RoleStudent,
		ProjectID:    project.ID,
		AcademicYear: "2567",
	}, "s-003")
	if err != nil {
		t.Fatalf("SearchUsers 应成功: %v", err)
	}
	if len(result) != 1 || result[0].ID != "s-004" {
		t.Errorf("期望只剩 s-004 可选，实际=%v", result)
	}
}

func TestProjectService_SearchUsers_BadExcludeIDsDropped(t *testing.T) {
	svc, userRepo, _ := setupTestProjectService()
	addProjectTestUser(userRepo, "s-001", "student1", model.RoleStudent)
	addProjectTestUser(userRepo, "s-002", "student2", model.RoleStudent)

	// exclude_ids 全是非法值：静默丢弃，不影响结果
	result, err := svc.SearchUsers(context.Background(), &dto.SearchUsersRequest{
		Role:       model.RoleStudent,
		ExcludeIDs: "not-a-uuid, ,also!bad",
	}, "requester-x")
	if err != nil {
		t.Fatalf("SearchUsers 应成功: %v", err)
	}
	if len(result) != 2 {
		t.Errorf("非法 exclude_ids 应被丢弃，期望2条结果，实际=%d", len(result))
	}
}

func TestProjectService_SearchUsers_RoleFallbackAndLimitClamp(t *testing.T) {
	svc, userRepo, _ := setupTestProjectService()
	addProjectTestUser(userRepo, "t-001", "advisor1", model.RoleTeacher)
	addProjectTestUser(userRepo, "s-001", "student1", model.RoleStudent)

	// 非法角色回退为 student
	result, err := svc.SearchUsers(context.Background(), &dto.SearchUsersRequest{
		Role:  "admin",
		Limit: 9999, // 超出上限，内部截断
	}, "requester-x")
	if err != nil {
		t.Fatalf("SearchUsers 应成功: %v", err)
	}
	if len(result) != 1 || result[0].ID != "s-001" {
		t.Errorf("非法角色应回退为学生搜索，实际=%v", result)
	}
}

// ── canMutate / 学年校验 ──

func TestCanMutate(t *testing.T) {
	cases := []struct {
		name      string
		createdBy string
		requester string
		role      string
		want      bool
	}{
		{"创建者本人", "u1", "u1", model.RoleStudent, true},
		{"管理员", "u1", "u2", model.RoleAdmin, true},
		{"无关学生", "u1", "u2", model.RoleStudent, false},
		{"无关教师", "u1", "u2", model.RoleTeacher, false},
	}
	for _, tc := range cases {
		if got := canMutate(tc.createdBy, tc.requester, tc.role); got != tc.want {
			t.Errorf("%s: canMutate=%v，期望=%v", tc.name, got, tc.want)
		}
	}
}

func TestIsValidAcademicYear(t *testing.T) {
	valid := []string{"2567", "2024", "0001"}
	invalid := []string{"", "99", "20245", "abcd", "2 24"}

	for _, y := range valid {
		if !isValidAcademicYear(y) {
			t.Errorf("学年 %q 应合法", y)
		}
	}
	for _, y := range invalid {
		if isValidAcademicYear(y) {
			t.Errorf("学年 %q 应非法", y)
		}
	}
}
