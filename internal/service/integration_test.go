//go:build integration

package service_test

import (
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"evalhub_backend/internal/model"
	"evalhub_backend/internal/repository"
	"evalhub_backend/internal/service"
	"evalhub_backend/pkg/logger"
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
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
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

	logger.Log = zap.NewNop()

	os.Exit(m.Run())
}

func newEngine() *service.AssignmentService {
	return service.NewAssignmentService(
		repository.NewAssignmentRepository(testDB),
		repository.NewSubmissionRepository(testDB),
		repository.NewUserRepository(testDB),
		repository.NewAuditRepository(testDB),
		repository.NewEvaluationRepository(testDB),
		testDB,
	)
}

// createFaculty 创建评阅人，注册清理
func createFaculty(t *testing.T, capacity int, available bool) *model.User {
	t.Helper()
	f := &model.User{
		Name:        "评阅人",
		Email:       fmt.Sprintf("faculty%d@test.local", time.Now().UnixNano()),
		Password:    "$2a$10$placeholder",
		Role:        model.Faculty,
		MaxCapacity: capacity,
		IsAvailable: available,
	}
	if err := testDB.Create(f).Error; err != nil {
		t.Fatalf("创建评阅人失败: %v", err)
	}
	t.Cleanup(func() {
		testDB.Unscoped().Where("id = ?", f.ID).Delete(&model.User{})
	})
	return f
}

// createSubmission 创建一门课程和一份待处理提交，注册清理
func createSubmission(t *testing.T) *model.Submission {
	t.Helper()
	course := &model.Course{
		Title:       fmt.Sprintf("课程-%d", time.Now().UnixNano()),
		IsPublished: true,
		CreatorID:   1,
	}
	if err := testDB.Create(course).Error; err != nil {
		t.Fatalf("创建课程失败: %v", err)
	}
	sub := &model.Submission{
		UserID:      1,
		CourseID:    course.ID,
		Status:      model.SubmissionPending,
		Weight:      1,
		SubmittedAt: time.Now(),
	}
	if err := testDB.Create(sub).Error; err != nil {
		t.Fatalf("创建提交失败: %v", err)
	}
	t.Cleanup(func() {
		testDB.Unscoped().Where("submission_id = ?", sub.ID).Delete(&model.Evaluation{})
		testDB.Unscoped().Where("submission_id = ?", sub.ID).Delete(&model.EvaluationAudit{})
		testDB.Unscoped().Where("submission_id = ?", sub.ID).Delete(&model.Assignment{})
		testDB.Unscoped().Where("id = ?", sub.ID).Delete(&model.Submission{})
		testDB.Unscoped().Where("id = ?", course.ID).Delete(&model.Course{})
	})
	return sub
}

// assignTo 直接落一条 assigned 分配并同步负载缓存
func assignTo(t *testing.T, facultyID, submissionID uint) *model.Assignment {
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
	if err := testDB.Model(&model.Submission{}).Where("id = ?", submissionID).
		Update("status", model.SubmissionAssigned).Error; err != nil {
		t.Fatalf("同步提交状态失败: %v", err)
	}
	syncLoad(t, facultyID)
	return a
}

func syncLoad(t *testing.T, facultyID uint) {
	t.Helper()
	live, err := repository.NewAssignmentRepository(testDB).SumActiveWeight(testDB, facultyID)
	if err != nil {
		t.Fatalf("聚合负载失败: %v", err)
	}
	if err := testDB.Model(&model.User{}).Where("id = ?", facultyID).
		Update("current_load", live).Error; err != nil {
		t.Fatalf("写负载缓存失败: %v", err)
	}
}

func reloadAssignment(t *testing.T, submissionID uint) *model.Assignment {
	t.Helper()
	a, err := repository.NewAssignmentRepository(testDB).FindBySubmissionID(submissionID)
	if err != nil {
		t.Fatalf("查询分配失败: %v", err)
	}
	return a
}

// assertLoadMatchesLive 每次变更落盘后，负载缓存必须等于实时聚合
func assertLoadMatchesLive(t *testing.T, facultyID uint) {
	t.Helper()
	live, err := repository.NewAssignmentRepository(testDB).SumActiveWeight(testDB, facultyID)
	if err != nil {
		t.Fatalf("聚合负载失败: %v", err)
	}
	var u model.User
	if err := testDB.First(&u, facultyID).Error; err != nil {
		t.Fatalf("查询评阅人失败: %v", err)
	}
	if u.CurrentLoad != live {
		t.Errorf("评阅人 %d 负载缓存与实时聚合不一致: cache=%d live=%d", facultyID, u.CurrentLoad, live)
	}
}

func countAudit(t *testing.T, submissionID uint, action model.AuditAction) int64 {
	t.Helper()
	_, total, err := repository.NewAuditRepository(testDB).List(repository.AuditFilter{
		SubmissionID: submissionID,
		ActionType:   string(action),
	}, 1, 10)
	if err != nil {
		t.Fatalf("查询审计失败: %v", err)
	}
	return total
}

// ═══════════════════════════════════════════════════════════
// Test: Reallocation End-to-End
// ═══════════════════════════════════════════════════════════

func TestReallocateMovesAssignment(t *testing.T) {
	svc := newEngine()
	source := createFaculty(t, 10, true)
	dest := createFaculty(t, 10, true)
	sub := createSubmission(t)
	assignTo(t, source.ID, sub.ID)

	err := svc.Reallocate(source.ID, model.Faculty, service.ReallocateRequest{
		SubmissionID:    sub.ID,
		TargetFacultyID: dest.ID,
		Reason:          "利益冲突",
	})
	if err != nil {
		t.Fatalf("转派失败: %v", err)
	}

	a := reloadAssignment(t, sub.ID)
	if a.FacultyID != dest.ID {
		t.Errorf("期望分配转到评阅人 %d，得到: %d", dest.ID, a.FacultyID)
	}
	if a.Status != model.AssignmentAssigned {
		t.Errorf("转派后状态应回到 assigned，得到: %s", a.Status)
	}
	if a.Version != 2 {
		t.Errorf("期望转派后 version=2，得到: %d", a.Version)
	}
	if a.ReallocationCount != 1 {
		t.Errorf("期望 reallocation_count=1，得到: %d", a.ReallocationCount)
	}
	if a.LastReallocatedAt == nil {
		t.Error("转派后 last_reallocated_at 应被记录")
	}
	if a.LockedBy != nil || a.LockedAt != nil {
		t.Error("转派后软锁应被清除")
	}

	// 源负载回落，目标负载上升，双方缓存都等于实时聚合
	assertLoadMatchesLive(t, source.ID)
	assertLoadMatchesLive(t, dest.ID)
	var destUser model.User
	testDB.First(&destUser, dest.ID)
	if destUser.CurrentLoad != 1 {
		t.Errorf("期望目标负载 1，得到: %d", destUser.CurrentLoad)
	}
	var sourceUser model.User
	testDB.First(&sourceUser, source.ID)
	if sourceUser.CurrentLoad != 0 {
		t.Errorf("期望源负载 0，得到: %d", sourceUser.CurrentLoad)
	}

	// 恰好一条 faculty_reallocate 审计记录，from/to 指向正确
	entries, total, err := repository.NewAuditRepository(testDB).List(repository.AuditFilter{
		SubmissionID: sub.ID,
		ActionType:   string(model.AuditFacultyReallocate),
	}, 1, 10)
	if err != nil {
		t.Fatalf("查询审计失败: %v", err)
	}
	if total != 1 {
		t.Fatalf("期望恰好 1 条转派审计，得到: %d", total)
	}
	if entries[0].FromFacultyID == nil || *entries[0].FromFacultyID != source.ID {
		t.Error("审计 from_faculty_id 应指向源评阅人")
	}
	if entries[0].ToFacultyID == nil || *entries[0].ToFacultyID != dest.ID {
		t.Error("审计 to_faculty_id 应指向目标评阅人")
	}
}

func TestConcurrentReallocateSingleWinner(t *testing.T) {
	svc := newEngine()
	source := createFaculty(t, 10, true)
	destB := createFaculty(t, 10, true)
	destC := createFaculty(t, 10, true)
	sub := createSubmission(t)
	assignTo(t, source.ID, sub.ID)

	// 两个并发转派抢同一条分配：行锁串行化后只有先到者提交，
	// 后到者重读到已易主的行，被所有权守卫拒绝
	targets := []uint{destB.ID, destC.ID}
	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target uint) {
			defer wg.Done()
			errs[i] = svc.Reallocate(source.ID, model.Faculty, service.ReallocateRequest{
				SubmissionID:    sub.ID,
				TargetFacultyID: target,
			})
		}(i, target)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	if succeeded != 1 {
		t.Fatalf("期望恰好 1 次转派成功，得到: %d (errs=%v)", succeeded, errs)
	}

	a := reloadAssignment(t, sub.ID)
	if a.ReallocationCount != 1 {
		t.Errorf("期望 reallocation_count=1，得到: %d", a.ReallocationCount)
	}
	if a.Version != 2 {
		t.Errorf("期望 version=2，得到: %d", a.Version)
	}
	if a.FacultyID != destB.ID && a.FacultyID != destC.ID {
		t.Errorf("分配应落在其中一个目标评阅人，得到: %d", a.FacultyID)
	}
	if got := countAudit(t, sub.ID, model.AuditFacultyReallocate); got != 1 {
		t.Errorf("期望恰好 1 条转派审计，得到: %d", got)
	}

	assertLoadMatchesLive(t, source.ID)
	assertLoadMatchesLive(t, destB.ID)
	assertLoadMatchesLive(t, destC.ID)
}

// ═══════════════════════════════════════════════════════════
// Test: Evaluation End-to-End
// ═══════════════════════════════════════════════════════════

func TestSubmitEvaluationFinalizesAndReducesLoad(t *testing.T) {
	svc := newEngine()
	faculty := createFaculty(t, 10, true)
	sub := createSubmission(t)
	assignTo(t, faculty.ID, sub.ID)

	if err := svc.StartEvaluation(faculty.ID, sub.ID); err != nil {
		t.Fatalf("进入评阅失败: %v", err)
	}
	assertLoadMatchesLive(t, faculty.ID)

	evaluation, err := svc.SubmitEvaluation(faculty.ID, model.Faculty, service.EvaluationRequest{
		SubmissionID: sub.ID,
		Scores: []model.QuestionScore{
			{QuestionID: 1, Score: 8},
			{QuestionID: 2, Score: 7, Comment: "边界情况未覆盖"},
		},
		Feedback: "整体不错",
	})
	if err != nil {
		t.Fatalf("提交评分失败: %v", err)
	}
	if evaluation.TotalScore != 15 {
		t.Errorf("期望总分 15，得到: %d", evaluation.TotalScore)
	}

	a := reloadAssignment(t, sub.ID)
	if a.Status != model.AssignmentEvaluated {
		t.Errorf("期望状态 evaluated，得到: %s", a.Status)
	}
	// assigned(1) → start(2) → evaluate(3)，版本随每次写入单调递增
	if a.Version != 3 {
		t.Errorf("期望 version=3，得到: %d", a.Version)
	}
	if a.LockedBy != nil || a.LockedAt != nil {
		t.Error("评阅完成后软锁应被清除")
	}

	// 终态分配不再计入负载
	assertLoadMatchesLive(t, faculty.ID)
	var u model.User
	testDB.First(&u, faculty.ID)
	if u.CurrentLoad != 0 {
		t.Errorf("评阅完成后负载应回落到 0，得到: %d", u.CurrentLoad)
	}

	var finalSub model.Submission
	testDB.First(&finalSub, sub.ID)
	if finalSub.Status != model.SubmissionEvaluated {
		t.Errorf("提交状态应同步为 evaluated，得到: %s", finalSub.Status)
	}

	if got := countAudit(t, sub.ID, model.AuditEvaluate); got != 1 {
		t.Errorf("期望恰好 1 条 evaluate 审计，得到: %d", got)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Bulk Assign Report
// ═══════════════════════════════════════════════════════════

func TestBulkAssignUnavailableTargetReportsSkips(t *testing.T) {
	svc := newEngine()
	faculty := createFaculty(t, 10, false)
	sub1 := createSubmission(t)
	sub2 := createSubmission(t)

	result, err := svc.BulkAssign(service.BulkAssignRequest{
		SubmissionIDs: []uint{sub1.ID, sub2.ID},
		FacultyID:     faculty.ID,
	}, model.Admin, 1)
	if err != nil {
		t.Fatalf("目标不可用时应返回报告而不是整体失败: %v", err)
	}
	if result.Assigned != 0 || result.Skipped != 2 {
		t.Errorf("期望 assigned=0 skipped=2，得到: assigned=%d skipped=%d", result.Assigned, result.Skipped)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("期望 2 条逐项错误，得到: %d", len(result.Errors))
	}
	for _, e := range result.Errors {
		if e.Reason == "" {
			t.Error("逐项错误应带原因")
		}
	}

	// 不存在的目标同样走报告
	result, err = svc.BulkAssign(service.BulkAssignRequest{
		SubmissionIDs: []uint{sub1.ID},
		FacultyID:     99999999,
	}, model.Admin, 1)
	if err != nil {
		t.Fatalf("目标不存在时应返回报告而不是整体失败: %v", err)
	}
	if result.Assigned != 0 || result.Skipped != 1 {
		t.Errorf("期望 assigned=0 skipped=1，得到: assigned=%d skipped=%d", result.Assigned, result.Skipped)
	}

	var count int64
	testDB.Model(&model.Assignment{}).
		Where("submission_id IN ?", []uint{sub1.ID, sub2.ID}).
		Count(&count)
	if count != 0 {
		t.Errorf("整批跳过时不应落下任何分配行，得到: %d", count)
	}
}

func TestBulkAssignPartialFailureOnCapacity(t *testing.T) {
	svc := newEngine()
	faculty := createFaculty(t, 1, true)
	sub1 := createSubmission(t)
	sub2 := createSubmission(t)

	result, err := svc.BulkAssign(service.BulkAssignRequest{
		SubmissionIDs: []uint{sub1.ID, sub2.ID},
		FacultyID:     faculty.ID,
	}, model.Admin, 1)
	if err != nil {
		t.Fatalf("批量指派失败: %v", err)
	}
	if result.Assigned != 1 || result.Skipped != 1 {
		t.Errorf("容量 1 指派 2 份应部分成功: assigned=%d skipped=%d", result.Assigned, result.Skipped)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("期望 1 条逐项错误，得到: %d", len(result.Errors))
	}
	if result.Errors[0].SubmissionID != sub2.ID {
		t.Errorf("应跳过后一份提交 %d，得到: %d", sub2.ID, result.Errors[0].SubmissionID)
	}

	assertLoadMatchesLive(t, faculty.ID)
	var u model.User
	testDB.First(&u, faculty.ID)
	if u.CurrentLoad != 1 {
		t.Errorf("期望负载 1，得到: %d", u.CurrentLoad)
	}
}
