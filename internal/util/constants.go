package util

import "time"

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 文件上传相关常量
const (
	MimeImage       = "image/"
	MimePDF         = "application/pdf"
	MimeOctetStream = "application/octet-stream"
)

var (
	AllowedScreenshotExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}
)

// 评阅分配引擎常量
const (
	// MaxReallocations 同一份提交最多被转派的次数
	MaxReallocations = 3
	// ReallocationCooldown 两次转派之间的最短间隔
	ReallocationCooldown = 5 * time.Minute
	// LockLeaseTTL 软锁租约：LockedAt 超过该时长未被心跳刷新即视为失效，
	// 由守卫惰性判定，不引入后台清扫任务
	LockLeaseTTL = 15 * time.Minute
	// MinFacultyCapacity / MaxFacultyCapacity 评阅人容量合法区间
	MinFacultyCapacity = 1
	MaxFacultyCapacity = 100
)
