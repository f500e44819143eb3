package model

type AuditAction string

const (
	AuditAutoAssign        AuditAction = "auto_assign"
	AuditManualAssign      AuditAction = "manual_assign"
	AuditBulkAssign        AuditAction = "bulk_assign"
	AuditFacultyReallocate AuditAction = "faculty_reallocate"
	AuditRedistribute      AuditAction = "redistribute"
	AuditEvaluate          AuditAction = "evaluate"
	AuditReopen            AuditAction = "reopen"
)

// swagger:model EvaluationAudit
// EvaluationAudit 流转审计，仅追加，本服务从不修改或删除。
// 外键可空：被引用的评阅人删除时置空，不阻塞删除。
type EvaluationAudit struct {
	UUIDBase
	SubmissionID  uint        `gorm:"index;not null;type:bigint unsigned" json:"submissionId"`
	ActionType    AuditAction `gorm:"type:enum('auto_assign','manual_assign','bulk_assign','faculty_reallocate','redistribute','evaluate','reopen');not null" json:"actionType"`
	FromFacultyID *uint       `gorm:"type:bigint unsigned" json:"fromFacultyId,omitempty"`
	ToFacultyID   *uint       `gorm:"type:bigint unsigned" json:"toFacultyId,omitempty"`
	ActorRole     UserRole    `gorm:"size:20;not null" json:"actorRole"`
	AdminID       *uint       `gorm:"type:bigint unsigned" json:"adminId,omitempty"`
	Notes         string      `gorm:"type:text" json:"notes"`
}

func (EvaluationAudit) TableName() string {
	return "evaluation_audits"
}
