package util

import (
	"errors"
	"fmt"
	"testing"
)

func TestAsAppError(t *testing.T) {
	err := NewConflictError("并发修改")
	ae := AsAppError(err)
	if ae == nil {
		t.Fatal("expected AppError, got nil")
	}
	if ae.Kind != KindConflict {
		t.Errorf("expected KindConflict, got %d", ae.Kind)
	}
}

func TestAsAppErrorWrapped(t *testing.T) {
	err := fmt.Errorf("事务失败: %w", NewBusinessRuleError("容量已满"))
	ae := AsAppError(err)
	if ae == nil {
		t.Fatal("expected wrapped AppError to be unwrapped")
	}
	if ae.Kind != KindBusinessRule {
		t.Errorf("expected KindBusinessRule, got %d", ae.Kind)
	}
}

func TestAsAppErrorPlainError(t *testing.T) {
	if ae := AsAppError(errors.New("boom")); ae != nil {
		t.Errorf("plain error should not convert, got %+v", ae)
	}
}

func TestIsKind(t *testing.T) {
	err := NewRateLimitError(42, "冷却中")
	if !IsKind(err, KindRateLimit) {
		t.Error("expected rate limit kind to match")
	}
	if IsKind(err, KindValidation) {
		t.Error("kind should not match a different kind")
	}
	if IsKind(nil, KindRateLimit) {
		t.Error("nil error should never match")
	}
}

func TestRateLimitErrorCarriesRetryAfter(t *testing.T) {
	err := NewRateLimitError(17, "转派冷却中，%d 秒后可重试", 17)
	ae := AsAppError(err)
	if ae.RetryAfterSeconds != 17 {
		t.Errorf("expected retry-after 17, got %d", ae.RetryAfterSeconds)
	}
	if ae.Error() != "转派冷却中，17 秒后可重试" {
		t.Errorf("unexpected message: %s", ae.Error())
	}
}
