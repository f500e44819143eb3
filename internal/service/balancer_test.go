package service

import (
	"testing"
)

func TestPlanPlacementsBalancesLoad(t *testing.T) {
	items := []pendingItem{
		{SubmissionID: 1, Weight: 1},
		{SubmissionID: 2, Weight: 1},
		{SubmissionID: 3, Weight: 1},
		{SubmissionID: 4, Weight: 1},
	}
	slots := []facultySlot{
		{FacultyID: 10, Capacity: 10},
		{FacultyID: 20, Capacity: 10},
	}
	loads := map[uint]int{10: 0, 20: 0}

	plan, acc := planPlacements(items, slots, loads)

	if len(plan) != 4 {
		t.Fatalf("expected 4 placements, got %d", len(plan))
	}
	if acc[10] != 2 || acc[20] != 2 {
		t.Errorf("expected even load (2/2), got %d/%d", acc[10], acc[20])
	}
}

func TestPlanPlacementsPrefersLeastLoaded(t *testing.T) {
	items := []pendingItem{{SubmissionID: 1, Weight: 1}}
	slots := []facultySlot{
		{FacultyID: 10, Capacity: 10},
		{FacultyID: 20, Capacity: 10},
	}
	loads := map[uint]int{10: 5, 20: 2}

	plan, _ := planPlacements(items, slots, loads)

	if len(plan) != 1 {
		t.Fatalf("expected 1 placement, got %d", len(plan))
	}
	if plan[0].FacultyID != 20 {
		t.Errorf("expected submission to go to least loaded faculty 20, got %d", plan[0].FacultyID)
	}
}

func TestPlanPlacementsRespectsCapacity(t *testing.T) {
	items := []pendingItem{
		{SubmissionID: 1, Weight: 1},
		{SubmissionID: 2, Weight: 1},
		{SubmissionID: 3, Weight: 1},
	}
	slots := []facultySlot{
		{FacultyID: 10, Capacity: 2},
	}
	loads := map[uint]int{10: 0}

	plan, acc := planPlacements(items, slots, loads)

	if len(plan) != 2 {
		t.Fatalf("expected partial result of 2 placements, got %d", len(plan))
	}
	if acc[10] != 2 {
		t.Errorf("expected faculty load to stop at capacity 2, got %d", acc[10])
	}
}

func TestPlanPlacementsFullSlotDoesNotQualify(t *testing.T) {
	// 负载等于容量即视为满，不再接收
	items := []pendingItem{{SubmissionID: 1, Weight: 1}}
	slots := []facultySlot{
		{FacultyID: 10, Capacity: 5},
		{FacultyID: 20, Capacity: 5},
	}
	loads := map[uint]int{10: 5, 20: 4}

	plan, _ := planPlacements(items, slots, loads)

	if len(plan) != 1 {
		t.Fatalf("expected 1 placement, got %d", len(plan))
	}
	if plan[0].FacultyID != 20 {
		t.Errorf("expected full faculty 10 to be skipped, placement went to %d", plan[0].FacultyID)
	}
}

func TestPlanPlacementsAllFull(t *testing.T) {
	items := []pendingItem{
		{SubmissionID: 1, Weight: 1},
		{SubmissionID: 2, Weight: 1},
	}
	slots := []facultySlot{
		{FacultyID: 10, Capacity: 3},
	}
	loads := map[uint]int{10: 3}

	plan, acc := planPlacements(items, slots, loads)

	if len(plan) != 0 {
		t.Fatalf("expected no placements when all faculty are full, got %d", len(plan))
	}
	if acc[10] != 3 {
		t.Errorf("accumulator should be untouched, got %d", acc[10])
	}
}

func TestPlanPlacementsWeightAccumulates(t *testing.T) {
	items := []pendingItem{
		{SubmissionID: 1, Weight: 3},
		{SubmissionID: 2, Weight: 1},
	}
	slots := []facultySlot{
		{FacultyID: 10, Capacity: 10},
		{FacultyID: 20, Capacity: 10},
	}
	loads := map[uint]int{10: 0, 20: 0}

	plan, acc := planPlacements(items, slots, loads)

	if len(plan) != 2 {
		t.Fatalf("expected 2 placements, got %d", len(plan))
	}
	// 第一份（权重3）进了 10 之后，第二份应选负载更低的 20
	if plan[0].FacultyID == plan[1].FacultyID {
		t.Errorf("expected placements to spread across faculty, both went to %d", plan[0].FacultyID)
	}
	if acc[10]+acc[20] != 4 {
		t.Errorf("expected total accumulated weight 4, got %d", acc[10]+acc[20])
	}
}

func TestPlanPlacementsZeroWeightDefaultsToOne(t *testing.T) {
	items := []pendingItem{{SubmissionID: 1, Weight: 0}}
	slots := []facultySlot{{FacultyID: 10, Capacity: 5}}

	plan, acc := planPlacements(items, slots, map[uint]int{10: 0})

	if len(plan) != 1 {
		t.Fatalf("expected 1 placement, got %d", len(plan))
	}
	if plan[0].Weight != 1 {
		t.Errorf("expected weight to default to 1, got %d", plan[0].Weight)
	}
	if acc[10] != 1 {
		t.Errorf("expected accumulated load 1, got %d", acc[10])
	}
}

func TestPlanPlacementsDoesNotMutateInput(t *testing.T) {
	items := []pendingItem{{SubmissionID: 1, Weight: 2}}
	slots := []facultySlot{{FacultyID: 10, Capacity: 5}}
	loads := map[uint]int{10: 1}

	_, acc := planPlacements(items, slots, loads)

	if loads[10] != 1 {
		t.Errorf("input loads map mutated: got %d", loads[10])
	}
	if acc[10] != 3 {
		t.Errorf("expected accumulator 3, got %d", acc[10])
	}
}
