package service

// 容量感知的贪心分配规划。纯函数：输入待分配项、评阅人槽位和起始负载，
// 输出放置方案和累加后的负载，不碰存储，便于单测。

// pendingItem 待分配的一份提交
type pendingItem struct {
	SubmissionID uint
	Weight       int
}

// facultySlot 参与分配的评阅人
type facultySlot struct {
	FacultyID uint
	Capacity  int
}

// placement 一次放置决定
type placement struct {
	SubmissionID uint
	FacultyID    uint
	Weight       int
}

// planPlacements 按顺序为每份提交挑选累加负载最小且仍低于容量上限的评阅人。
// 没有任何评阅人有空余容量时提前停止，剩余提交保持未分配（部分结果，不是错误）。
// 负载累加器显式传入传出，种子值来自各评阅人的缓存负载。
func planPlacements(items []pendingItem, slots []facultySlot, loads map[uint]int) ([]placement, map[uint]int) {
	acc := make(map[uint]int, len(slots))
	for id, v := range loads {
		acc[id] = v
	}

	var plan []placement
	for _, item := range items {
		w := item.Weight
		if w <= 0 {
			w = 1
		}

		best := -1
		for i, slot := range slots {
			if acc[slot.FacultyID] >= slot.Capacity {
				continue
			}
			if best == -1 || acc[slot.FacultyID] < acc[slots[best].FacultyID] {
				best = i
			}
		}
		if best == -1 {
			// 所有评阅人已满
			break
		}

		chosen := slots[best]
		plan = append(plan, placement{
			SubmissionID: item.SubmissionID,
			FacultyID:    chosen.FacultyID,
			Weight:       w,
		})
		acc[chosen.FacultyID] += w
	}

	return plan, acc
}
