package service

import (
	"testing"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"

	"github.com/shopspring/decimal"
)

func amountRequirement(level, group int, kind string, amount int64) models.LevelRequirement {
	return models.LevelRequirement{
		Level:        level,
		GroupOrdinal: group,
		Kind:         kind,
		Amount:       models.NewMoneyFromDecimal(decimal.NewFromInt(amount)),
	}
}

func TestEvaluateQualifiedLevelGroupsAreAlternatives(t *testing.T) {
	// 二级：个人购买 ≥ 1000，或任一分组销量 ≥ 10000
	requirements := []models.LevelRequirement{
		amountRequirement(1, 1, constants.LevelRequirementNodeAmountMin, 100),
		amountRequirement(2, 1, constants.LevelRequirementNodeAmountMin, 1000),
		amountRequirement(2, 2, constants.LevelRequirementGroupSalesAmountMin, 10000),
	}

	cases := []struct {
		name     string
		agg      LevelAggregates
		expected int
	}{
		{
			name: "first group alone qualifies",
			agg: LevelAggregates{
				PersonalTotal: decimal.NewFromInt(1000),
			},
			expected: 2,
		},
		{
			name: "second group alone qualifies",
			agg: LevelAggregates{
				PersonalTotal: decimal.NewFromInt(999),
				GroupSales:    []decimal.Decimal{decimal.NewFromInt(10000)},
			},
			expected: 2,
		},
		{
			name: "neither group qualifies",
			agg: LevelAggregates{
				PersonalTotal: decimal.NewFromInt(999),
				GroupSales:    []decimal.Decimal{decimal.NewFromInt(9999)},
			},
			expected: 1,
		},
		{
			name:     "nothing qualifies",
			agg:      LevelAggregates{PersonalTotal: decimal.NewFromInt(99)},
			expected: 0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EvaluateQualifiedLevel(requirements, tc.agg); got != tc.expected {
				t.Fatalf("level want %d got %d", tc.expected, got)
			}
		})
	}
}

func TestEvaluateQualifiedLevelRequiresContiguousPrefix(t *testing.T) {
	requirements := []models.LevelRequirement{
		amountRequirement(1, 1, constants.LevelRequirementNodeAmountMin, 100),
		amountRequirement(2, 1, constants.LevelRequirementGroupSalesAmountMin, 10000),
		amountRequirement(3, 1, constants.LevelRequirementNodeAmountMin, 200),
	}

	// 一、三级满足但二级不满足，达标等级停在一级
	agg := LevelAggregates{PersonalTotal: decimal.NewFromInt(500)}
	if got := EvaluateQualifiedLevel(requirements, agg); got != 1 {
		t.Fatalf("contiguous prefix should stop at 1, got %d", got)
	}
	if got := EvaluateHighestSatisfied(requirements, agg); got != 3 {
		t.Fatalf("independent evaluation should see level 3, got %d", got)
	}
}

func TestEvaluateQualifiedLevelSkipsMissingLowestLevel(t *testing.T) {
	// 规则从二级开始，一级缺失则任何快照都无法达标
	requirements := []models.LevelRequirement{
		amountRequirement(2, 1, constants.LevelRequirementNodeAmountMin, 1),
	}
	agg := LevelAggregates{PersonalTotal: decimal.NewFromInt(1000000)}
	if got := EvaluateQualifiedLevel(requirements, agg); got != 0 {
		t.Fatalf("gap at level 1 should block qualification, got %d", got)
	}
}

func TestEvaluateQualifiedLevelCountConditions(t *testing.T) {
	requirements := []models.LevelRequirement{
		{Level: 1, GroupOrdinal: 1, Kind: constants.LevelRequirementDirectReferralCountMin, Count: 3},
		{Level: 2, GroupOrdinal: 1, Kind: constants.LevelRequirementDirectDownlineLevelCountMin, Count: 2, TargetLevel: 1},
	}

	agg := LevelAggregates{DirectChildLevels: []int{0, 1, 2}}
	if got := EvaluateQualifiedLevel(requirements, agg); got != 2 {
		t.Fatalf("three direct children with two at level >= 1 should reach 2, got %d", got)
	}

	agg = LevelAggregates{DirectChildLevels: []int{0, 0, 1}}
	if got := EvaluateQualifiedLevel(requirements, agg); got != 1 {
		t.Fatalf("only one child at level >= 1 should stop at 1, got %d", got)
	}

	agg = LevelAggregates{DirectChildLevels: []int{1, 2}}
	if got := EvaluateQualifiedLevel(requirements, agg); got != 0 {
		t.Fatalf("two direct children should miss the level 1 count, got %d", got)
	}
}

func TestEvaluateQualifiedLevelGroupRequiresAllConditions(t *testing.T) {
	// 同组条件为 AND：数量达标但金额不达标不放行
	requirements := []models.LevelRequirement{
		amountRequirement(1, 1, constants.LevelRequirementNodeAmountMin, 100),
		{Level: 1, GroupOrdinal: 1, Kind: constants.LevelRequirementDirectReferralCountMin, Count: 2},
	}

	agg := LevelAggregates{
		PersonalTotal:     decimal.NewFromInt(50),
		DirectChildLevels: []int{0, 0},
	}
	if got := EvaluateQualifiedLevel(requirements, agg); got != 0 {
		t.Fatalf("partial group satisfaction should not qualify, got %d", got)
	}

	agg.PersonalTotal = decimal.NewFromInt(100)
	if got := EvaluateQualifiedLevel(requirements, agg); got != 1 {
		t.Fatalf("full group satisfaction should qualify, got %d", got)
	}
}

func TestEvaluateQualifiedLevelUnknownKindNeverSatisfied(t *testing.T) {
	requirements := []models.LevelRequirement{
		{Level: 1, GroupOrdinal: 1, Kind: "mystery_condition"},
	}
	agg := LevelAggregates{PersonalTotal: decimal.NewFromInt(1000000)}
	if got := EvaluateQualifiedLevel(requirements, agg); got != 0 {
		t.Fatalf("unknown condition kinds must not qualify, got %d", got)
	}
}

func TestEvaluateQualifiedLevelEmptyRequirements(t *testing.T) {
	if got := EvaluateQualifiedLevel(nil, LevelAggregates{}); got != 0 {
		t.Fatalf("no requirements means no level, got %d", got)
	}
}
