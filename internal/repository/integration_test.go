//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"advisor-hub/backend/internal/model"
	"advisor-hub/backend/internal/repository"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=advisor_hub password=advisor_hub_password dbname=advisor_hub_test sslmode=disable TimeZone=Asia/Bangkok"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	// 自动迁移测试表结构
	err = testDB.AutoMigrate(
		&model.User{},
		&model.Project{},
		&model.ProjectMember{},
		&model.Group{},
		&model.GroupMember{},
		&model.Appointment{},
		&model.AppointmentParticipant{},
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "AutoMigrate 失败: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.Exit(code)
}

// createTestUser 创建一名测试用户并返回清理函数
func createTestUser(t *testing.T, role string) (*model.User, func()) {
	t.Helper()
	ctx := context.Background()

	nano := time.Now().UnixNano()
	user := &model.User{
		Username:     fmt.Sprintf("u%d", nano),
		Email:        fmt.Sprintf("u%d@test.edu", nano),
		PasswordHash: "$2a$10$placeholder",
		FullName:     "测试用户",
		StudentID:    fmt.Sprintf("%d", nano%100000000),
		Role:         role,
	}
	if err := testDB.WithContext(ctx).Create(user).Error; err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}

	cleanup := func() {
		testDB.Unscoped().Where("user_id = ?", user.UserID).Delete(&model.User{})
	}
	return user, cleanup
}

// createTestProject 创建一个项目（成员为空）并返回清理函数
func createTestProject(t *testing.T, advisorID, creatorID, year string) (*model.Project, func()) {
	t.Helper()
	ctx := context.Background()

	project := &model.Project{
		Name:         fmt.Sprintf("测试项目-%d", time.Now().UnixNano()),
		AcademicYear: year,
		AdvisorID:    advisorID,
		CreatedBy:    creatorID,
		Status:       model.StatusActive,
	}
	if err := testDB.WithContext(ctx).Create(project).Error; err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}

	cleanup := func() {
		testDB.Unscoped().Where("project_id = ?", project.ProjectID).Delete(&model.ProjectMember{})
		testDB.Unscoped().Where("project_id = ?", project.ProjectID).Delete(&model.Project{})
	}
	return project, cleanup
}

// ═══════════════════════════════════════════════════════════
// ProjectRepository
// ═══════════════════════════════════════════════════════════

// 同一学生在同一学年的第二条成员行应被 (user_id, academic_year)
// 唯一索引 + ON CONFLICT DO NOTHING 静默吞掉
func TestProjectRepo_AddMembers_YearSlotUnique(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewProjectRepo(testDB)

	advisor, cleanAdvisor := createTestUser(t, model.RoleTeacher)
	defer cleanAdvisor()
	student, cleanStudent := createTestUser(t, model.RoleStudent)
	defer cleanStudent()

	p1, cleanP1 := createTestProject(t, advisor.UserID, advisor.UserID, "2567")
	defer cleanP1()
	p2, cleanP2 := createTestProject(t, advisor.UserID, advisor.UserID, "2567")
	defer cleanP2()

	if err := repo.AddMembers(ctx, []model.ProjectMember{
		{ProjectID: p1.ProjectID, UserID: student.UserID, AcademicYear: "2567"},
	}); err != nil {
		t.Fatalf("首次加入应成功: %v", err)
	}

	// 同学年第二个项目：写入不报错，但行不落库
	if err := repo.AddMembers(ctx, []model.ProjectMember{
		{ProjectID: p2.ProjectID, UserID: student.UserID, AcademicYear: "2567"},
	}); err != nil {
		t.Fatalf("冲突写入不应报错: %v", err)
	}

	var count int64
	testDB.Model(&model.ProjectMember{}).
		Where("user_id = ? AND academic_year = ?", student.UserID, "2567").
		Count(&count)
	if count != 1 {
		t.Errorf("期望该学生在 2567 学年仅占 1 个名额，实际=%d", count)
	}

	taken, err := repo.HasMembershipInYear(ctx, student.UserID, "2567")
	if err != nil {
		t.Fatalf("HasMembershipInYear 失败: %v", err)
	}
	if !taken {
		t.Error("期望 HasMembershipInYear=true")
	}
}

func TestProjectRepo_AddMembers_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewProjectRepo(testDB)

	advisor, cleanAdvisor := createTestUser(t, model.RoleTeacher)
	defer cleanAdvisor()
	student, cleanStudent := createTestUser(t, model.RoleStudent)
	defer cleanStudent()

	project, cleanProject := createTestProject(t, advisor.UserID, advisor.UserID, "2568")
	defer cleanProject()

	member := model.ProjectMember{
		ProjectID: project.ProjectID, UserID: student.UserID, AcademicYear: "2568",
	}
	if err := repo.AddMembers(ctx, []model.ProjectMember{member}); err != nil {
		t.Fatalf("首次加入应成功: %v", err)
	}
	if err := repo.AddMembers(ctx, []model.ProjectMember{member}); err != nil {
		t.Fatalf("重复加入不应报错: %v", err)
	}

	var count int64
	testDB.Model(&model.ProjectMember{}).
		Where("project_id = ?", project.ProjectID).
		Count(&count)
	if count != 1 {
		t.Errorf("期望成员行数=1，实际=%d", count)
	}
}

func TestProjectRepo_HasCreatedInYear(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewProjectRepo(testDB)

	advisor, cleanAdvisor := createTestUser(t, model.RoleTeacher)
	defer cleanAdvisor()

	_, cleanProject := createTestProject(t, advisor.UserID, advisor.UserID, "2569")
	defer cleanProject()

	created, err := repo.HasCreatedInYear(ctx, advisor.UserID, "2569")
	if err != nil {
		t.Fatalf("HasCreatedInYear 失败: %v", err)
	}
	if !created {
		t.Error("期望 HasCreatedInYear=true")
	}

	created, err = repo.HasCreatedInYear(ctx, advisor.UserID, "2570")
	if err != nil {
		t.Fatalf("HasCreatedInYear 失败: %v", err)
	}
	if created {
		t.Error("其他学年期望 HasCreatedInYear=false")
	}
}

// ═══════════════════════════════════════════════════════════
// GroupRepository
// ═══════════════════════════════════════════════════════════

// 小组删除为物理删除，成员行级联清理
func TestGroupRepo_Delete_Cascades(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewGroupRepo(testDB)

	advisor, cleanAdvisor := createTestUser(t, model.RoleTeacher)
	defer cleanAdvisor()
	student, cleanStudent := createTestUser(t, model.RoleStudent)
	defer cleanStudent()

	group := &model.Group{
		Name:      fmt.Sprintf("测试小组-%d", time.Now().UnixNano()),
		AdvisorID: advisor.UserID,
		CreatedBy: student.UserID,
		Status:    model.StatusActive,
	}
	if err := repo.Create(ctx, group); err != nil {
		t.Fatalf("创建小组失败: %v", err)
	}
	if err := repo.AddMembers(ctx, []model.GroupMember{
		{GroupID: group.GroupID, UserID: student.UserID},
	}); err != nil {
		t.Fatalf("加入成员失败: %v", err)
	}

	if err := repo.Delete(ctx, group.GroupID); err != nil {
		t.Fatalf("删除小组失败: %v", err)
	}

	var groupCount, memberCount int64
	testDB.Model(&model.Group{}).Where("group_id = ?", group.GroupID).Count(&groupCount)
	testDB.Model(&model.GroupMember{}).Where("group_id = ?", group.GroupID).Count(&memberCount)
	if groupCount != 0 {
		t.Errorf("小组应已物理删除，剩余=%d", groupCount)
	}
	if memberCount != 0 {
		t.Errorf("成员行应级联清理，剩余=%d", memberCount)
	}
}

// ═══════════════════════════════════════════════════════════
// UserRepository
// ═══════════════════════════════════════════════════════════

func TestUserRepo_Search_ExcludesIDs(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepo(testDB)

	s1, clean1 := createTestUser(t, model.RoleStudent)
	defer clean1()
	s2, clean2 := createTestUser(t, model.RoleStudent)
	defer clean2()

	users, err := repo.Search(ctx, model.RoleStudent, "", []string{s1.UserID}, 100)
	if err != nil {
		t.Fatalf("Search 失败: %v", err)
	}

	for _, u := range users {
		if u.UserID == s1.UserID {
			t.Error("排除列表中的用户不应出现在结果里")
		}
	}
	found := false
	for _, u := range users {
		if u.UserID == s2.UserID {
			found = true
		}
	}
	if !found {
		t.Error("未被排除的学生应出现在结果里")
	}
}
