package service

import (
	"sort"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"

	"github.com/shopspring/decimal"
)

// LevelAggregates 等级评估所需的用户聚合快照
// 评估是纯函数：相同快照永远得到相同结果。
type LevelAggregates struct {
	PersonalTotal     decimal.Decimal   // 个人累计购买总额
	GroupSales        []decimal.Decimal // 各分组累计销量
	DirectChildLevels []int             // 直推下级当前等级列表
}

// EvaluateQualifiedLevel 计算用户达标等级（连续前缀语义）
// 逐级从 1 向上评估，达标等级为全部满足的最长连续前缀；
// 中间出现未满足的等级即停止，不允许跳级。
func EvaluateQualifiedLevel(requirements []models.LevelRequirement, agg LevelAggregates) int {
	byLevel := groupRequirementsByLevel(requirements)
	if len(byLevel) == 0 {
		return 0
	}
	levels := sortedLevels(byLevel)

	qualified := 0
	expected := 1
	for _, level := range levels {
		if level != expected {
			break
		}
		if !levelSatisfied(byLevel[level], agg) {
			break
		}
		qualified = level
		expected = level + 1
	}
	return qualified
}

// EvaluateHighestSatisfied 计算满足条件的最高等级（独立评估语义）
// 每级独立判定，取满足的最大等级。仅用于对照与诊断，线上流程使用连续前缀语义。
func EvaluateHighestSatisfied(requirements []models.LevelRequirement, agg LevelAggregates) int {
	byLevel := groupRequirementsByLevel(requirements)
	highest := 0
	for level, groups := range byLevel {
		if level > highest && levelSatisfied(groups, agg) {
			highest = level
		}
	}
	return highest
}

// levelSatisfied 等级判定：任一条件组满足即可（组间 OR）
func levelSatisfied(groups map[int][]models.LevelRequirement, agg LevelAggregates) bool {
	for _, reqs := range groups {
		if groupSatisfied(reqs, agg) {
			return true
		}
	}
	return false
}

// groupSatisfied 条件组判定：组内全部条件都要满足（组内 AND）
func groupSatisfied(reqs []models.LevelRequirement, agg LevelAggregates) bool {
	if len(reqs) == 0 {
		return false
	}
	for _, req := range reqs {
		if !requirementSatisfied(req, agg) {
			return false
		}
	}
	return true
}

func requirementSatisfied(req models.LevelRequirement, agg LevelAggregates) bool {
	switch req.Kind {
	case constants.LevelRequirementNodeAmountMin:
		return agg.PersonalTotal.GreaterThanOrEqual(req.Amount.Decimal)
	case constants.LevelRequirementGroupSalesAmountMin:
		for _, sales := range agg.GroupSales {
			if sales.GreaterThanOrEqual(req.Amount.Decimal) {
				return true
			}
		}
		return false
	case constants.LevelRequirementDirectReferralCountMin:
		return len(agg.DirectChildLevels) >= req.Count
	case constants.LevelRequirementDirectDownlineLevelCountMin:
		matched := 0
		for _, childLevel := range agg.DirectChildLevels {
			if childLevel >= req.TargetLevel {
				matched++
			}
		}
		return matched >= req.Count
	default:
		// 未知条件类型按不满足处理，避免配置错误导致误升级
		return false
	}
}

func groupRequirementsByLevel(requirements []models.LevelRequirement) map[int]map[int][]models.LevelRequirement {
	byLevel := make(map[int]map[int][]models.LevelRequirement)
	for _, req := range requirements {
		if req.Level <= 0 {
			continue
		}
		groups, ok := byLevel[req.Level]
		if !ok {
			groups = make(map[int][]models.LevelRequirement)
			byLevel[req.Level] = groups
		}
		groups[req.GroupOrdinal] = append(groups[req.GroupOrdinal], req)
	}
	return byLevel
}

func sortedLevels(byLevel map[int]map[int][]models.LevelRequirement) []int {
	levels := make([]int, 0, len(byLevel))
	for level := range byLevel {
		levels = append(levels, level)
	}
	sort.Ints(levels)
	return levels
}
