//go:build integration

package repository_test

import (
	"fmt"
	"os"
	"testing"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"evalhub_backend/internal/model"
	"evalhub_backend/internal/repository"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(127.0.0.1:3306)/evalhub_test?charset=utf8mb4&parseTime=true&loc=Local"
	}

	var err error
	testDB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	err = testDB.AutoMigrate(
		&model.User{},
		&model.Course{},
		&model.Question{},
		&model.Submission{},
		&model.Screenshot{},
		&model.Assignment{},
		&model.EvaluationAudit{},
		&model.Evaluation{},
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "AutoMigrate 失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// setupTestData 创建一个评阅人和一份提交，返回清理函数
func setupTestData(t *testing.T) (faculty *model.User, sub *model.Submission, cleanup func()) {
	t.Helper()

	faculty = &model.User{
		Name:        "测试评阅人",
		Email:       fmt.Sprintf("faculty%d@test.local", time.Now().UnixNano()),
		Password:    "$2a$10$placeholder",
		Role:        model.Faculty,
		MaxCapacity: 10,
		IsAvailable: true,
	}
	if err := testDB.Create(faculty).Error; err != nil {
		t.Fatalf("创建评阅人失败: %v", err)
	}

	course := &model.Course{
		Title:       fmt.Sprintf("测试课程-%d", time.Now().UnixNano()),
		IsPublished: true,
		CreatorID:   faculty.ID,
	}
	if err := testDB.Create(course).Error; err != nil {
		t.Fatalf("创建课程失败: %v", err)
	}

	sub = &model.Submission{
		UserID:      faculty.ID,
		CourseID:    course.ID,
		Status:      model.SubmissionPending,
		Weight:      1,
		SubmittedAt: time.Now(),
	}
	if err := testDB.Create(sub).Error; err != nil {
		t.Fatalf("创建提交失败: %v", err)
	}

	cleanup = func() {
		testDB.Unscoped().Where("submission_id = ?", sub.ID).Delete(&model.Assignment{})
		testDB.Unscoped().Where("submission_id = ?", sub.ID).Delete(&model.EvaluationAudit{})
		testDB.Unscoped().Where("id = ?", sub.ID).Delete(&model.Submission{})
		testDB.Unscoped().Where("id = ?", course.ID).Delete(&model.Course{})
		testDB.Unscoped().Where("id = ?", faculty.ID).Delete(&model.User{})
	}
	return
}

func createAssignment(t *testing.T, facultyID, submissionID uint) *model.Assignment {
	t.Helper()
	a := &model.Assignment{
		SubmissionID:     submissionID,
		FacultyID:        facultyID,
		Status:           model.AssignmentAssigned,
		Version:          1,
		SubmissionWeight: 1,
	}
	if err := testDB.Create(a).Error; err != nil {
		t.Fatalf("创建分配失败: %v", err)
	}
	return a
}

// ═══════════════════════════════════════════════════════════
// Test: Versioned Updates
// ═══════════════════════════════════════════════════════════

func TestUpdateVersioned_StaleVersionRejected(t *testing.T) {
	faculty, sub, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewAssignmentRepository(testDB)
	a := createAssignment(t, faculty.ID, sub.ID)

	// 第一次按版本 1 更新应成功
	ok, err := repo.UpdateVersioned(testDB, a, 1, map[string]interface{}{
		"status": model.AssignmentInProgress,
	})
	if err != nil {
		t.Fatalf("第一次更新失败: %v", err)
	}
	if !ok {
		t.Fatal("期望第一次更新命中 1 行")
	}

	// 仍按版本 1 再更新应命中 0 行
	ok, err = repo.UpdateVersioned(testDB, a, 1, map[string]interface{}{
		"status": model.AssignmentAssigned,
	})
	if err != nil {
		t.Fatalf("第二次更新报错: %v", err)
	}
	if ok {
		t.Fatal("期望过期版本命中 0 行，但更新成功了")
	}

	// 验证版本已递增到 2
	final, err := repo.FindBySubmissionID(sub.ID)
	if err != nil {
		t.Fatalf("查询分配失败: %v", err)
	}
	if final.Version != 2 {
		t.Errorf("期望 version=2，得到: %d", final.Version)
	}
	if final.Status != model.AssignmentInProgress {
		t.Errorf("期望状态保持 in_progress，得到: %s", final.Status)
	}
}

func TestUniqueAssignmentPerSubmission(t *testing.T) {
	faculty, sub, cleanup := setupTestData(t)
	defer cleanup()

	createAssignment(t, faculty.ID, sub.ID)

	dup := &model.Assignment{
		SubmissionID: sub.ID,
		FacultyID:    faculty.ID,
		Status:       model.AssignmentAssigned,
		Version:      1,
	}
	if err := testDB.Create(dup).Error; err == nil {
		testDB.Unscoped().Where("id = ?", dup.ID).Delete(&model.Assignment{})
		t.Fatal("期望 submission_id 唯一约束违反，但创建成功了")
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Live Load Aggregation
// ═══════════════════════════════════════════════════════════

func TestSumActiveWeight(t *testing.T) {
	faculty, sub, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewAssignmentRepository(testDB)
	a := createAssignment(t, faculty.ID, sub.ID)

	total, err := repo.SumActiveWeight(testDB, faculty.ID)
	if err != nil {
		t.Fatalf("SumActiveWeight 失败: %v", err)
	}
	if total != 1 {
		t.Errorf("期望负载 1，得到: %d", total)
	}

	// 推进到终态后不再计入负载
	ok, err := repo.UpdateVersioned(testDB, a, 1, map[string]interface{}{
		"status": model.AssignmentEvaluated,
	})
	if err != nil || !ok {
		t.Fatalf("推进到 evaluated 失败: ok=%v err=%v", ok, err)
	}

	total, err = repo.SumActiveWeight(testDB, faculty.ID)
	if err != nil {
		t.Fatalf("SumActiveWeight 失败: %v", err)
	}
	if total != 0 {
		t.Errorf("终态分配不应计入负载，得到: %d", total)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Heartbeat
// ═══════════════════════════════════════════════════════════

func TestRefreshHeartbeat(t *testing.T) {
	faculty, sub, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewAssignmentRepository(testDB)
	a := createAssignment(t, faculty.ID, sub.ID)

	now := time.Now()
	ok, err := repo.UpdateVersioned(testDB, a, 1, map[string]interface{}{
		"status":    model.AssignmentInProgress,
		"locked_by": faculty.ID,
		"locked_at": now,
	})
	if err != nil || !ok {
		t.Fatalf("上锁失败: ok=%v err=%v", ok, err)
	}

	// 本人心跳应成功并递增版本
	ok, err = repo.RefreshHeartbeat(sub.ID, faculty.ID, time.Now())
	if err != nil {
		t.Fatalf("心跳失败: %v", err)
	}
	if !ok {
		t.Fatal("期望本人心跳命中 1 行")
	}

	final, _ := repo.FindBySubmissionID(sub.ID)
	if final.Version != 3 {
		t.Errorf("期望心跳后 version=3，得到: %d", final.Version)
	}

	// 非持锁人心跳应命中 0 行
	ok, err = repo.RefreshHeartbeat(sub.ID, faculty.ID+1, time.Now())
	if err != nil {
		t.Fatalf("心跳报错: %v", err)
	}
	if ok {
		t.Fatal("非持锁人心跳不应命中任何行")
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Audit Log
// ═══════════════════════════════════════════════════════════

func TestAuditListFilter(t *testing.T) {
	faculty, sub, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewAuditRepository(testDB)
	fid := faculty.ID
	entry := &model.EvaluationAudit{
		SubmissionID: sub.ID,
		ActionType:   model.AuditAutoAssign,
		ToFacultyID:  &fid,
		ActorRole:    model.Admin,
	}
	if err := repo.Create(testDB, entry); err != nil {
		t.Fatalf("写审计失败: %v", err)
	}

	entries, total, err := repo.List(repository.AuditFilter{SubmissionID: sub.ID}, 1, 10)
	if err != nil {
		t.Fatalf("查询审计失败: %v", err)
	}
	if total != 1 || len(entries) != 1 {
		t.Fatalf("期望 1 条审计记录，得到 total=%d len=%d", total, len(entries))
	}
	if entries[0].ActionType != model.AuditAutoAssign {
		t.Errorf("期望 auto_assign，得到: %s", entries[0].ActionType)
	}

	// 按评阅人过滤（from 或 to 命中）
	entries, _, err = repo.List(repository.AuditFilter{FacultyID: faculty.ID}, 1, 10)
	if err != nil {
		t.Fatalf("按评阅人过滤失败: %v", err)
	}
	if len(entries) == 0 {
		t.Error("to_faculty_id 命中时应返回记录")
	}
}
