package service

import (
	"testing"
	"time"

	"evalhub_backend/internal/model"
	"evalhub_backend/internal/util"
)

func validContext() *reallocationContext {
	return &reallocationContext{
		Assignment: &model.Assignment{
			FacultyID: 1,
			Status:    model.AssignmentAssigned,
			Version:   1,
		},
		CallerID: 1,
		Destination: &model.User{
			BaseModel:   model.BaseModel{ID: 2},
			Role:        model.Faculty,
			MaxCapacity: 10,
			IsAvailable: true,
		},
		DestinationLiveLoad: 3,
		Now:                 time.Now(),
	}
}

func TestGuardsPassWithValidContext(t *testing.T) {
	if err := runGuards(reallocationGuards(), validContext()); err != nil {
		t.Fatalf("expected all guards to pass, got %v", err)
	}
}

func TestGuardOwnership(t *testing.T) {
	ctx := validContext()
	ctx.CallerID = 99

	err := runGuards(reallocationGuards(), ctx)
	if !util.IsKind(err, util.KindAuthorization) {
		t.Fatalf("expected authorization error, got %v", err)
	}
}

func TestGuardTerminalState(t *testing.T) {
	ctx := validContext()
	ctx.Assignment.Status = model.AssignmentEvaluated

	err := runGuards(reallocationGuards(), ctx)
	if !util.IsKind(err, util.KindBusinessRule) {
		t.Fatalf("expected business rule error, got %v", err)
	}
}

func TestGuardLockHeldByOther(t *testing.T) {
	ctx := validContext()
	other := uint(7)
	lockedAt := ctx.Now.Add(-time.Minute)
	ctx.Assignment.LockedBy = &other
	ctx.Assignment.LockedAt = &lockedAt

	err := runGuards(reallocationGuards(), ctx)
	if !util.IsKind(err, util.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestGuardLockHeldBySelfPasses(t *testing.T) {
	ctx := validContext()
	self := ctx.CallerID
	lockedAt := ctx.Now.Add(-time.Minute)
	ctx.Assignment.LockedBy = &self
	ctx.Assignment.LockedAt = &lockedAt

	if err := runGuards(reallocationGuards(), ctx); err != nil {
		t.Fatalf("own lock should not block reallocation, got %v", err)
	}
}

func TestGuardStaleLockExpires(t *testing.T) {
	// 租约过期的锁惰性失效
	ctx := validContext()
	other := uint(7)
	lockedAt := ctx.Now.Add(-util.LockLeaseTTL - time.Minute)
	ctx.Assignment.LockedBy = &other
	ctx.Assignment.LockedAt = &lockedAt

	if err := runGuards(reallocationGuards(), ctx); err != nil {
		t.Fatalf("expired lock should not block reallocation, got %v", err)
	}
}

func TestGuardDestinationUnavailable(t *testing.T) {
	ctx := validContext()
	ctx.Destination.IsAvailable = false

	err := runGuards(reallocationGuards(), ctx)
	if !util.IsKind(err, util.KindBusinessRule) {
		t.Fatalf("expected business rule error, got %v", err)
	}
}

func TestGuardDestinationDisabled(t *testing.T) {
	ctx := validContext()
	ctx.Destination.Disabled = true

	err := runGuards(reallocationGuards(), ctx)
	if !util.IsKind(err, util.KindBusinessRule) {
		t.Fatalf("expected business rule error, got %v", err)
	}
}

func TestGuardDestinationAtCapacity(t *testing.T) {
	ctx := validContext()
	ctx.DestinationLiveLoad = ctx.Destination.MaxCapacity

	err := runGuards(reallocationGuards(), ctx)
	if !util.IsKind(err, util.KindBusinessRule) {
		t.Fatalf("expected business rule error at capacity, got %v", err)
	}
}

func TestGuardDestinationJustBelowCapacityPasses(t *testing.T) {
	ctx := validContext()
	ctx.DestinationLiveLoad = ctx.Destination.MaxCapacity - 1

	if err := runGuards(reallocationGuards(), ctx); err != nil {
		t.Fatalf("load below capacity should pass, got %v", err)
	}
}

func TestGuardReallocationCeiling(t *testing.T) {
	ctx := validContext()
	ctx.Assignment.ReallocationCount = util.MaxReallocations

	err := runGuards(reallocationGuards(), ctx)
	if !util.IsKind(err, util.KindBusinessRule) {
		t.Fatalf("expected business rule error at ceiling, got %v", err)
	}
}

func TestGuardCooldownStillActive(t *testing.T) {
	// 4分59秒前转派过，仍在冷却期
	ctx := validContext()
	last := ctx.Now.Add(-(util.ReallocationCooldown - time.Second))
	ctx.Assignment.LastReallocatedAt = &last

	err := runGuards(reallocationGuards(), ctx)
	if !util.IsKind(err, util.KindRateLimit) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	ae := util.AsAppError(err)
	if ae.RetryAfterSeconds < 1 {
		t.Errorf("expected positive retry-after, got %d", ae.RetryAfterSeconds)
	}
}

func TestGuardCooldownExactlyElapsedPasses(t *testing.T) {
	// 恰好满冷却时长即可转派
	ctx := validContext()
	last := ctx.Now.Add(-util.ReallocationCooldown)
	ctx.Assignment.LastReallocatedAt = &last

	if err := runGuards(reallocationGuards(), ctx); err != nil {
		t.Fatalf("cooldown exactly elapsed should pass, got %v", err)
	}
}

func TestGuardOrderingFirstFailureWins(t *testing.T) {
	// 同时违反所有权和容量时，先挂在所有权上
	ctx := validContext()
	ctx.CallerID = 99
	ctx.DestinationLiveLoad = ctx.Destination.MaxCapacity

	err := runGuards(reallocationGuards(), ctx)
	if !util.IsKind(err, util.KindAuthorization) {
		t.Fatalf("expected ownership to fail first, got %v", err)
	}
}

func TestGuardOrderingTerminalBeforeCooldown(t *testing.T) {
	ctx := validContext()
	ctx.Assignment.Status = model.AssignmentEvaluated
	last := ctx.Now.Add(-time.Second)
	ctx.Assignment.LastReallocatedAt = &last

	err := runGuards(reallocationGuards(), ctx)
	if !util.IsKind(err, util.KindBusinessRule) {
		t.Fatalf("expected terminal state to fail before cooldown, got %v", err)
	}
}

func TestLockHeldByOtherNoLock(t *testing.T) {
	a := &model.Assignment{FacultyID: 1}
	if lockHeldByOther(a, 1, time.Now()) {
		t.Error("assignment without lock should not report held lock")
	}
}
