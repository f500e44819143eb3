package repository

import (
	"evalhub_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AssignmentRepository struct {
	DB *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{DB: db}
}

func (r *AssignmentRepository) Create(tx *gorm.DB, a *model.Assignment) error {
	return tx.Create(a).Error
}

func (r *AssignmentRepository) FindBySubmissionID(submissionID uint) (*model.Assignment, error) {
	var a model.Assignment
	err := r.DB.Where("submission_id = ?", submissionID).First(&a).Error
	return &a, err
}

// FindBySubmissionIDForUpdate 持行锁读取，必须在事务内调用
func (r *AssignmentRepository) FindBySubmissionIDForUpdate(tx *gorm.DB, submissionID uint) (*model.Assignment, error) {
	var a model.Assignment
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("submission_id = ?", submissionID).
		First(&a).Error
	return &a, err
}

// UpdateVersioned 带版本谓词的写入。期望版本不匹配时命中 0 行，
// 返回 (false, nil)，由调用方升级为冲突错误并回滚。
func (r *AssignmentRepository) UpdateVersioned(tx *gorm.DB, a *model.Assignment, expectedVersion int, fields map[string]interface{}) (bool, error) {
	fields["version"] = expectedVersion + 1
	res := tx.Model(&model.Assignment{}).
		Where("id = ? AND version = ?", a.ID, expectedVersion).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListActiveByFaculty 某评阅人当前计入负载的分配
func (r *AssignmentRepository) ListActiveByFaculty(tx *gorm.DB, facultyID uint) ([]model.Assignment, error) {
	var as []model.Assignment
	err := tx.Where("faculty_id = ? AND status IN ?", facultyID, model.ActiveAssignmentStatuses).
		Order("created_at asc").
		Find(&as).Error
	return as, err
}

// SumActiveWeight 实时聚合负载，容量守卫必须走这里而不是缓存字段
func (r *AssignmentRepository) SumActiveWeight(tx *gorm.DB, facultyID uint) (int, error) {
	var total int64
	err := tx.Model(&model.Assignment{}).
		Select("COALESCE(SUM(submission_weight), 0)").
		Where("faculty_id = ? AND status IN ?", facultyID, model.ActiveAssignmentStatuses).
		Scan(&total).Error
	return int(total), err
}

func (r *AssignmentRepository) List(facultyID uint, status string, page, limit int) ([]model.Assignment, int64, error) {
	var as []model.Assignment
	var total int64
	query := r.DB.Model(&model.Assignment{})
	if facultyID > 0 {
		query = query.Where("faculty_id = ?", facultyID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).
		Preload("Submission").
		Find(&as).Error
	return as, total, err
}

// CountByStatus 各状态分配数量，工作台统计用
func (r *AssignmentRepository) CountByStatus() (map[string]int64, error) {
	type row struct {
		Status string
		Total  int64
	}
	var rows []row
	err := r.DB.Model(&model.Assignment{}).
		Select("status, COUNT(*) as total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}

// RefreshHeartbeat 心跳只在持锁人本人且 in_progress 时刷新，命中行数为 0 即锁已失
func (r *AssignmentRepository) RefreshHeartbeat(submissionID, facultyID uint, now time.Time) (bool, error) {
	res := r.DB.Model(&model.Assignment{}).
		Where("submission_id = ? AND locked_by = ? AND status = ?",
			submissionID, facultyID, model.AssignmentInProgress).
		Updates(map[string]interface{}{
			"locked_at": now,
			"version":   gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
