package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"evalhub_backend/internal/model"
	"evalhub_backend/internal/repository"
	"evalhub_backend/internal/util"
	"evalhub_backend/pkg/logger"
	"evalhub_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AssignmentService 提交分配与评阅流转引擎。
// 所有带守卫的变更都在单个事务内完成：行锁 + 守卫 + 带版本谓词的写入 +
// 负载缓存重算 + 审计追加，要么全部提交要么全部回滚。
type AssignmentService struct {
	AssignmentRepo *repository.AssignmentRepository
	SubmissionRepo *repository.SubmissionRepository
	UserRepo       *repository.UserRepository
	AuditRepo      *repository.AuditRepository
	EvaluationRepo *repository.EvaluationRepository
	DB             *gorm.DB
}

func NewAssignmentService(
	assignmentRepo *repository.AssignmentRepository,
	submissionRepo *repository.SubmissionRepository,
	userRepo *repository.UserRepository,
	auditRepo *repository.AuditRepository,
	evaluationRepo *repository.EvaluationRepository,
	db *gorm.DB,
) *AssignmentService {
	return &AssignmentService{
		AssignmentRepo: assignmentRepo,
		SubmissionRepo: submissionRepo,
		UserRepo:       userRepo,
		AuditRepo:      auditRepo,
		EvaluationRepo: evaluationRepo,
		DB:             db,
	}
}

// recomputeLoad 负载缓存的唯一重算入口，必须和触发它的变更同事务。
// current_load 只是缓存，真实值永远是 active 状态分配的权重和。
func (s *AssignmentService) recomputeLoad(tx *gorm.DB, facultyID uint) error {
	live, err := s.AssignmentRepo.SumActiveWeight(tx, facultyID)
	if err != nil {
		return err
	}
	return s.UserRepo.UpdateCurrentLoad(tx, facultyID, live)
}

func (s *AssignmentService) audit(tx *gorm.DB, action model.AuditAction, submissionID uint,
	from, to *uint, actorRole model.UserRole, adminID *uint, notes string) error {
	return s.AuditRepo.Create(tx, &model.EvaluationAudit{
		SubmissionID:  submissionID,
		ActionType:    action,
		FromFacultyID: from,
		ToFacultyID:   to,
		ActorRole:     actorRole,
		AdminID:       adminID,
		Notes:         notes,
	})
}

// ══════════════ Smart Assign ══════════════

// SmartAssign 把未分配的提交（最早优先）贪心分给负载最小且未满的可用评阅人。
// 整批一个事务；每个评阅人的负载缓存只在循环结束后统一落一次盘。
// 返回实际分配的数量，评阅人全满时剩余提交保持未分配。
func (s *AssignmentService) SmartAssign(actorRole model.UserRole) (int, error) {
	assigned := 0
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		subs, err := s.SubmissionRepo.ListUnassigned(tx)
		if err != nil {
			return err
		}
		if len(subs) == 0 {
			return nil
		}

		faculty, err := s.UserRepo.ListAvailableFaculty(tx)
		if err != nil {
			return err
		}

		items := make([]pendingItem, 0, len(subs))
		subWeight := make(map[uint]int, len(subs))
		for _, sub := range subs {
			items = append(items, pendingItem{SubmissionID: sub.ID, Weight: sub.Weight})
			subWeight[sub.ID] = sub.Weight
		}

		slots := make([]facultySlot, 0, len(faculty))
		loads := make(map[uint]int, len(faculty))
		for _, f := range faculty {
			slots = append(slots, facultySlot{FacultyID: f.ID, Capacity: f.MaxCapacity})
			// 规划排序用缓存负载即可，见 §负载缓存 注释
			loads[f.ID] = f.CurrentLoad
		}

		plan, _ := planPlacements(items, slots, loads)

		touched := make(map[uint]bool)
		for _, p := range plan {
			a := &model.Assignment{
				SubmissionID:     p.SubmissionID,
				FacultyID:        p.FacultyID,
				Status:           model.AssignmentAssigned,
				Version:          1,
				SubmissionWeight: p.Weight,
			}
			if err := s.AssignmentRepo.Create(tx, a); err != nil {
				return err
			}
			if err := s.SubmissionRepo.UpdateStatus(tx, p.SubmissionID, model.SubmissionAssigned); err != nil {
				return err
			}
			fid := p.FacultyID
			if err := s.audit(tx, model.AuditAutoAssign, p.SubmissionID, nil, &fid, actorRole, nil, "smart assign"); err != nil {
				return err
			}
			touched[p.FacultyID] = true
		}

		// 负载缓存每人只写一次，避免逐条写放大
		for fid := range touched {
			if err := s.recomputeLoad(tx, fid); err != nil {
				return err
			}
		}

		assigned = len(plan)
		return nil
	})

	if err != nil {
		monitoring.RecordAssignmentAction("smart_assign", "error")
		return 0, err
	}
	monitoring.RecordAssignmentAction("smart_assign", "ok")
	logger.Log.Info("smart assign completed", zap.Int("assigned", assigned))
	return assigned, nil
}

// ══════════════ Bulk / Manual Assign ══════════════

type BulkAssignRequest struct {
	SubmissionIDs []uint `json:"submissionIds" binding:"required"`
	FacultyID     uint   `json:"facultyId" binding:"required"`
}

type BulkAssignItemError struct {
	SubmissionID uint   `json:"submissionId"`
	Reason       string `json:"reason"`
}

type BulkAssignResult struct {
	Assigned int                   `json:"assigned"`
	Skipped  int                   `json:"skipped"`
	Errors   []BulkAssignItemError `json:"errors"`
}

// BulkAssign 把一批提交显式指派给同一个评阅人。逐条处理、逐条隔离失败：
// 单条被拒（容量满、已评阅完成等）只计入 skipped/errors，不中断整批。
// 目标评阅人不存在或不可用时同样走报告：全部条目计入 skipped。
func (s *AssignmentService) BulkAssign(req BulkAssignRequest, actorRole model.UserRole, adminID uint) (*BulkAssignResult, error) {
	if len(req.SubmissionIDs) == 0 {
		return nil, util.NewValidationError("submissionIds 不能为空")
	}

	result := &BulkAssignResult{}
	action := model.AuditBulkAssign
	if len(req.SubmissionIDs) == 1 {
		action = model.AuditManualAssign
	}

	// 目标评阅人整体不可用时不让整批失败，按逐条跳过上报，报告形状保持不变
	skipAll := func(reason string) {
		for _, subID := range req.SubmissionIDs {
			result.Skipped++
			result.Errors = append(result.Errors, BulkAssignItemError{
				SubmissionID: subID,
				Reason:       reason,
			})
		}
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		dest, err := s.UserRepo.FindFacultyForUpdate(tx, req.FacultyID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				skipAll("目标评阅人不存在")
				return nil
			}
			return err
		}
		if !dest.IsAvailable || dest.Disabled {
			skipAll("目标评阅人当前不可用")
			return nil
		}

		for _, subID := range req.SubmissionIDs {
			if err := s.assignOne(tx, subID, dest, action, actorRole, adminID); err != nil {
				if ae := util.AsAppError(err); ae != nil {
					result.Skipped++
					result.Errors = append(result.Errors, BulkAssignItemError{
						SubmissionID: subID,
						Reason:       ae.Message,
					})
					continue
				}
				return err
			}
			result.Assigned++
		}
		return nil
	})

	if err != nil {
		monitoring.RecordAssignmentAction(string(action), "rejected")
		return nil, err
	}
	monitoring.RecordAssignmentAction(string(action), "ok")
	return result, nil
}

// assignOne 指派单份提交。容量判定走实时聚合，不信缓存，
// 避免两个并发指派同时认为还有余量。
func (s *AssignmentService) assignOne(tx *gorm.DB, submissionID uint, dest *model.User,
	action model.AuditAction, actorRole model.UserRole, adminID uint) error {

	sub, err := s.SubmissionRepo.FindByIDTx(tx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.NewNotFoundError("提交 %d 不存在", submissionID)
		}
		return err
	}

	liveLoad, err := s.AssignmentRepo.SumActiveWeight(tx, dest.ID)
	if err != nil {
		return err
	}
	if liveLoad >= dest.MaxCapacity {
		return util.NewBusinessRuleError("评阅人已达容量上限 (%d/%d)", liveLoad, dest.MaxCapacity)
	}

	var adminRef *uint
	if adminID > 0 {
		adminRef = &adminID
	}
	destID := dest.ID

	existing, err := s.AssignmentRepo.FindBySubmissionIDForUpdate(tx, submissionID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if err == nil {
		// 已有分配：保持每份提交唯一一行，改派到新评阅人
		if existing.IsTerminal() {
			return util.NewBusinessRuleError("提交 %d 已评阅完成", submissionID)
		}
		prev := existing.FacultyID
		ok, uerr := s.AssignmentRepo.UpdateVersioned(tx, existing, existing.Version, map[string]interface{}{
			"faculty_id": destID,
			"status":     model.AssignmentAssigned,
			"locked_by":  nil,
			"locked_at":  nil,
		})
		if uerr != nil {
			return uerr
		}
		if !ok {
			monitoring.VersionConflicts.Inc()
			return util.NewConflictError("提交 %d 存在并发修改", submissionID)
		}
		if prev != destID {
			if err := s.recomputeLoad(tx, prev); err != nil {
				return err
			}
		}
		if err := s.recomputeLoad(tx, destID); err != nil {
			return err
		}
		return s.audit(tx, action, submissionID, &prev, &destID, actorRole, adminRef, "")
	}

	a := &model.Assignment{
		SubmissionID:     submissionID,
		FacultyID:        destID,
		Status:           model.AssignmentAssigned,
		Version:          1,
		SubmissionWeight: sub.Weight,
	}
	if err := s.AssignmentRepo.Create(tx, a); err != nil {
		return err
	}
	if err := s.SubmissionRepo.UpdateStatus(tx, submissionID, model.SubmissionAssigned); err != nil {
		return err
	}
	if err := s.recomputeLoad(tx, destID); err != nil {
		return err
	}
	return s.audit(tx, action, submissionID, nil, &destID, actorRole, adminRef, "")
}

// ══════════════ Reallocation ══════════════

type ReallocateRequest struct {
	SubmissionID    uint   `json:"submissionId" binding:"required"`
	TargetFacultyID uint   `json:"targetFacultyId" binding:"required"`
	Reason          string `json:"reason"`
}

// Reallocate 评阅人主动转派。单事务内：锁定分配行和目标评阅人行，
// 依序过守卫链（首败即回），带版本谓词写入，双方负载重算，追加审计。
func (s *AssignmentService) Reallocate(callerID uint, callerRole model.UserRole, req ReallocateRequest) error {
	if req.SubmissionID == 0 || req.TargetFacultyID == 0 {
		return util.NewValidationError("submissionId 和 targetFacultyId 不能为空")
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		a, err := s.AssignmentRepo.FindBySubmissionIDForUpdate(tx, req.SubmissionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.NewNotFoundError("该提交尚未分配")
			}
			return err
		}

		dest, err := s.UserRepo.FindFacultyForUpdate(tx, req.TargetFacultyID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.NewNotFoundError("目标评阅人不存在")
			}
			return err
		}

		liveLoad, err := s.AssignmentRepo.SumActiveWeight(tx, dest.ID)
		if err != nil {
			return err
		}

		now := time.Now()
		gctx := &reallocationContext{
			Assignment:          a,
			CallerID:            callerID,
			Destination:         dest,
			DestinationLiveLoad: liveLoad,
			Now:                 now,
		}
		if err := runGuards(reallocationGuards(), gctx); err != nil {
			return err
		}

		source := a.FacultyID
		ok, err := s.AssignmentRepo.UpdateVersioned(tx, a, a.Version, map[string]interface{}{
			"faculty_id":          dest.ID,
			"status":              model.AssignmentAssigned,
			"locked_by":           nil,
			"locked_at":           nil,
			"reallocation_count":  a.ReallocationCount + 1,
			"last_reallocated_at": now,
		})
		if err != nil {
			return err
		}
		if !ok {
			// 行锁之下版本谓词理应命中；命中 0 行说明有并发写溜了进来
			monitoring.VersionConflicts.Inc()
			return util.NewConflictError("该提交存在并发修改，请重试")
		}

		if err := s.recomputeLoad(tx, source); err != nil {
			return err
		}
		if err := s.recomputeLoad(tx, dest.ID); err != nil {
			return err
		}

		destID := dest.ID
		return s.audit(tx, model.AuditFacultyReallocate, req.SubmissionID,
			&source, &destID, callerRole, nil, req.Reason)
	})

	if err != nil {
		if util.IsKind(err, util.KindConflict) {
			monitoring.RecordAssignmentAction("reallocate", "conflict")
		} else {
			monitoring.RecordAssignmentAction("reallocate", "rejected")
		}
		return err
	}
	monitoring.RecordAssignmentAction("reallocate", "ok")
	return nil
}

// ══════════════ State machine: start / heartbeat / evaluate / reopen ══════════════

// StartEvaluation 评阅人打开提交进入评阅：assigned → in_progress 并上软锁。
// 本人重复进入视为续锁。
func (s *AssignmentService) StartEvaluation(callerID uint, submissionID uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		a, err := s.AssignmentRepo.FindBySubmissionIDForUpdate(tx, submissionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.NewNotFoundError("该提交尚未分配")
			}
			return err
		}

		if a.FacultyID != callerID {
			return util.NewAuthorizationError("该提交未分配给当前评阅人")
		}
		if a.IsTerminal() {
			return util.NewBusinessRuleError("该提交已评阅完成")
		}
		now := time.Now()
		if lockHeldByOther(a, callerID, now) {
			return util.NewConflictError("该提交正在被其他评阅人评阅中")
		}

		ok, err := s.AssignmentRepo.UpdateVersioned(tx, a, a.Version, map[string]interface{}{
			"status":    model.AssignmentInProgress,
			"locked_by": callerID,
			"locked_at": now,
		})
		if err != nil {
			return err
		}
		if !ok {
			monitoring.VersionConflicts.Inc()
			return util.NewConflictError("该提交存在并发修改，请重试")
		}
		return nil
	})
}

// Heartbeat 心跳刷新软锁。只在 locked_by 是本人且 in_progress 时刷新；
// 否则说明调用方的会话已不再持锁，返回“锁已失”。
func (s *AssignmentService) Heartbeat(callerID uint, submissionID uint) error {
	ok, err := s.AssignmentRepo.RefreshHeartbeat(submissionID, callerID, time.Now())
	if err != nil {
		return err
	}
	if !ok {
		return util.NewNotFoundError("评阅锁已失效")
	}
	return nil
}

type EvaluationRequest struct {
	SubmissionID uint                  `json:"submissionId" binding:"required"`
	Scores       []model.QuestionScore `json:"scores" binding:"required"`
	Feedback     string                `json:"feedback"`
}

// SubmitEvaluation 提交评分：写 Evaluation 行，分配进入终态 evaluated，
// 清锁、负载回落、通知提交方更新状态，追加 evaluate 审计。
func (s *AssignmentService) SubmitEvaluation(callerID uint, callerRole model.UserRole, req EvaluationRequest) (*model.Evaluation, error) {
	if len(req.Scores) == 0 {
		return nil, util.NewValidationError("scores 不能为空")
	}

	var evaluation *model.Evaluation
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		a, err := s.AssignmentRepo.FindBySubmissionIDForUpdate(tx, req.SubmissionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.NewNotFoundError("该提交尚未分配")
			}
			return err
		}

		if a.FacultyID != callerID {
			return util.NewAuthorizationError("该提交未分配给当前评阅人")
		}
		if a.IsTerminal() {
			return util.NewBusinessRuleError("该提交已评阅完成")
		}
		if lockHeldByOther(a, callerID, time.Now()) {
			return util.NewConflictError("该提交正在被其他评阅人评阅中")
		}

		total := 0
		for _, sc := range req.Scores {
			if sc.Score < 0 {
				return util.NewValidationError("得分不能为负数")
			}
			total += sc.Score
		}
		scoresJSON, err := json.Marshal(req.Scores)
		if err != nil {
			return err
		}

		evaluation = &model.Evaluation{
			SubmissionID: req.SubmissionID,
			FacultyID:    callerID,
			Scores:       scoresJSON,
			TotalScore:   total,
			Feedback:     req.Feedback,
		}
		if err := s.EvaluationRepo.Create(tx, evaluation); err != nil {
			return err
		}

		ok, err := s.AssignmentRepo.UpdateVersioned(tx, a, a.Version, map[string]interface{}{
			"status":    model.AssignmentEvaluated,
			"locked_by": nil,
			"locked_at": nil,
		})
		if err != nil {
			return err
		}
		if !ok {
			monitoring.VersionConflicts.Inc()
			return util.NewConflictError("该提交存在并发修改，请重试")
		}

		if err := s.recomputeLoad(tx, callerID); err != nil {
			return err
		}
		if err := s.SubmissionRepo.UpdateStatus(tx, req.SubmissionID, model.SubmissionEvaluated); err != nil {
			return err
		}

		fid := callerID
		return s.audit(tx, model.AuditEvaluate, req.SubmissionID, &fid, nil, callerRole, nil,
			fmt.Sprintf("total score %d", total))
	})

	if err != nil {
		monitoring.RecordAssignmentAction("evaluate", "rejected")
		return nil, err
	}
	monitoring.RecordAssignmentAction("evaluate", "ok")
	return evaluation, nil
}

// Reopen 管理员例外通道：把 evaluated 的分配退回 assigned 重评。
// 评阅人侧状态机里 evaluated 是终态，唯一出口就是这里。
func (s *AssignmentService) Reopen(adminID uint, submissionID uint, notes string) error {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		a, err := s.AssignmentRepo.FindBySubmissionIDForUpdate(tx, submissionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.NewNotFoundError("该提交尚未分配")
			}
			return err
		}
		if !a.IsTerminal() {
			return util.NewBusinessRuleError("该提交尚未评阅完成，无需重开")
		}

		ok, err := s.AssignmentRepo.UpdateVersioned(tx, a, a.Version, map[string]interface{}{
			"status":    model.AssignmentAssigned,
			"locked_by": nil,
			"locked_at": nil,
		})
		if err != nil {
			return err
		}
		if !ok {
			monitoring.VersionConflicts.Inc()
			return util.NewConflictError("该提交存在并发修改，请重试")
		}

		// 旧评分作废，重评后重新写入
		if err := s.EvaluationRepo.DeleteBySubmissionID(tx, submissionID); err != nil {
			return err
		}
		if err := s.recomputeLoad(tx, a.FacultyID); err != nil {
			return err
		}
		if err := s.SubmissionRepo.UpdateStatus(tx, submissionID, model.SubmissionAssigned); err != nil {
			return err
		}

		fid := a.FacultyID
		return s.audit(tx, model.AuditReopen, submissionID, nil, &fid, model.Admin, &adminID, notes)
	})

	if err != nil {
		monitoring.RecordAssignmentAction("reopen", "rejected")
		return err
	}
	monitoring.RecordAssignmentAction("reopen", "ok")
	return nil
}

// ══════════════ Redistribution ══════════════

// Redistribute 过载疏散：把某评阅人的 active 分配用同一套贪心规划
// 移到有空余容量的同伴身上，放不下的留在原处。返回移动数量。
func (s *AssignmentService) Redistribute(fromFacultyID uint, actorRole model.UserRole, adminID uint) (int, error) {
	moved := 0
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := s.UserRepo.FindFacultyForUpdate(tx, fromFacultyID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.NewNotFoundError("源评阅人不存在")
			}
			return err
		}

		assignments, err := s.AssignmentRepo.ListActiveByFaculty(tx, fromFacultyID)
		if err != nil {
			return err
		}
		if len(assignments) == 0 {
			return nil
		}

		faculty, err := s.UserRepo.ListAvailableFaculty(tx)
		if err != nil {
			return err
		}

		items := make([]pendingItem, 0, len(assignments))
		bySubmission := make(map[uint]model.Assignment, len(assignments))
		for _, a := range assignments {
			items = append(items, pendingItem{SubmissionID: a.SubmissionID, Weight: a.SubmissionWeight})
			bySubmission[a.SubmissionID] = a
		}

		// 只把工作移给同伴，源评阅人不参与规划
		slots := make([]facultySlot, 0, len(faculty))
		loads := make(map[uint]int, len(faculty))
		for _, f := range faculty {
			if f.ID == fromFacultyID {
				continue
			}
			slots = append(slots, facultySlot{FacultyID: f.ID, Capacity: f.MaxCapacity})
			loads[f.ID] = f.CurrentLoad
		}

		plan, _ := planPlacements(items, slots, loads)

		var adminRef *uint
		if adminID > 0 {
			adminRef = &adminID
		}

		touched := map[uint]bool{fromFacultyID: true}
		for _, p := range plan {
			a := bySubmission[p.SubmissionID]
			ok, err := s.AssignmentRepo.UpdateVersioned(tx, &a, a.Version, map[string]interface{}{
				"faculty_id": p.FacultyID,
				"status":     model.AssignmentAssigned,
				"locked_by":  nil,
				"locked_at":  nil,
			})
			if err != nil {
				return err
			}
			if !ok {
				monitoring.VersionConflicts.Inc()
				return util.NewConflictError("提交 %d 存在并发修改", p.SubmissionID)
			}

			from := fromFacultyID
			to := p.FacultyID
			if err := s.audit(tx, model.AuditRedistribute, p.SubmissionID,
				&from, &to, actorRole, adminRef, ""); err != nil {
				return err
			}
			touched[p.FacultyID] = true
			moved++
		}

		for fid := range touched {
			if err := s.recomputeLoad(tx, fid); err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		monitoring.RecordAssignmentAction("redistribute", "rejected")
		return 0, err
	}
	monitoring.RecordAssignmentAction("redistribute", "ok")
	logger.Log.Info("redistribute completed",
		zap.Uint("fromFacultyId", fromFacultyID), zap.Int("moved", moved))
	return moved, nil
}

// ══════════════ Queries ══════════════

func (s *AssignmentService) ListAssignments(facultyID uint, status string, page, limit int) ([]model.Assignment, int64, error) {
	return s.AssignmentRepo.List(facultyID, status, page, limit)
}

func (s *AssignmentService) GetAssignment(submissionID uint) (*model.Assignment, error) {
	a, err := s.AssignmentRepo.FindBySubmissionID(submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NewNotFoundError("该提交尚未分配")
		}
		return nil, err
	}
	return a, nil
}

func (s *AssignmentService) ListAuditLog(filter repository.AuditFilter, page, limit int) ([]model.EvaluationAudit, int64, error) {
	return s.AuditRepo.List(filter, page, limit)
}
