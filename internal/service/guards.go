package service

import (
	"evalhub_backend/internal/model"
	"evalhub_backend/internal/util"
	"time"
)

// 转派守卫链：有序的 (名称, 谓词) 列表，责任链式逐个求值，首个失败即返回。
// 守卫只读快照数据，不碰存储；快照由调用方在持锁事务内装配。

// reallocationContext 守卫求值所需的快照
type reallocationContext struct {
	Assignment *model.Assignment
	CallerID   uint
	// Destination 目标评阅人（已持行锁读出）
	Destination *model.User
	// DestinationLiveLoad 目标评阅人的实时聚合负载，不是缓存字段
	DestinationLiveLoad int
	Now                 time.Time
}

type guard struct {
	name  string
	check func(*reallocationContext) error
}

// lockHeldByOther 软锁被他人持有且租约未过期。
// 租约过期的陈旧锁惰性判定为失效，不需要后台清扫。
func lockHeldByOther(a *model.Assignment, callerID uint, now time.Time) bool {
	if a.LockedBy == nil || *a.LockedBy == callerID {
		return false
	}
	if a.LockedAt != nil && now.Sub(*a.LockedAt) > util.LockLeaseTTL {
		return false
	}
	return true
}

// reallocationGuards 顺序固定，新增守卫按位插入即可
func reallocationGuards() []guard {
	return []guard{
		{
			name: "ownership",
			check: func(ctx *reallocationContext) error {
				if ctx.Assignment.FacultyID != ctx.CallerID {
					return util.NewAuthorizationError("只有当前负责的评阅人才能转派该提交")
				}
				return nil
			},
		},
		{
			name: "not_terminal",
			check: func(ctx *reallocationContext) error {
				if ctx.Assignment.IsTerminal() {
					return util.NewBusinessRuleError("该提交已评阅完成，不能再转派")
				}
				return nil
			},
		},
		{
			name: "lock_check",
			check: func(ctx *reallocationContext) error {
				if lockHeldByOther(ctx.Assignment, ctx.CallerID, ctx.Now) {
					return util.NewConflictError("该提交正在被其他评阅人评阅中")
				}
				return nil
			},
		},
		{
			name: "destination_available",
			check: func(ctx *reallocationContext) error {
				if !ctx.Destination.IsAvailable || ctx.Destination.Disabled {
					return util.NewBusinessRuleError("目标评阅人当前不可用")
				}
				return nil
			},
		},
		{
			name: "destination_capacity",
			check: func(ctx *reallocationContext) error {
				if ctx.DestinationLiveLoad >= ctx.Destination.MaxCapacity {
					return util.NewBusinessRuleError("目标评阅人已达容量上限 (%d/%d)",
						ctx.DestinationLiveLoad, ctx.Destination.MaxCapacity)
				}
				return nil
			},
		},
		{
			name: "reallocation_ceiling",
			check: func(ctx *reallocationContext) error {
				if ctx.Assignment.ReallocationCount >= util.MaxReallocations {
					return util.NewBusinessRuleError("该提交已达最大转派次数 (%d)", util.MaxReallocations)
				}
				return nil
			},
		},
		{
			name: "cooldown",
			check: func(ctx *reallocationContext) error {
				last := ctx.Assignment.LastReallocatedAt
				if last == nil {
					return nil
				}
				elapsed := ctx.Now.Sub(*last)
				if elapsed < util.ReallocationCooldown {
					remaining := int((util.ReallocationCooldown - elapsed).Seconds())
					if remaining < 1 {
						remaining = 1
					}
					return util.NewRateLimitError(remaining, "转派冷却中，%d 秒后可重试", remaining)
				}
				return nil
			},
		},
	}
}

func runGuards(guards []guard, ctx *reallocationContext) error {
	for _, g := range guards {
		if err := g.check(ctx); err != nil {
			return err
		}
	}
	return nil
}
