package royalty

import (
	"testing"

	"citementor-api/internal/domain/entity"
)

func TestRankMultiplier(t *testing.T) {
	c := NewCalculator(2, 0.85, 0.25)

	tests := []struct {
		rank int
		want float64
	}{
		{0, 1.0},
		{1, 0.85},
		{2, 0.7225},
		// 0.85^10 ≈ 0.197 < 0.25，触发下限
		{10, 0.25},
	}
	for _, tt := range tests {
		got := c.rankMultiplier(tt.rank)
		if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("rankMultiplier(%d) = %v, want %v", tt.rank, got, tt.want)
		}
	}
}

func TestPassageCost(t *testing.T) {
	c := NewCalculator(2, 0.85, 0.25)

	// 100 tokens，第 0 名：2 × 100 × 1.0 = 200 微美元
	if got := c.PassageCost(100, 0); got != 200 {
		t.Errorf("PassageCost(100, 0) = %d, want 200", got)
	}
	// 第 1 名：2 × 100 × 0.85 = 170
	if got := c.PassageCost(100, 1); got != 170 {
		t.Errorf("PassageCost(100, 1) = %d, want 170", got)
	}
	if got := c.PassageCost(0, 0); got != 0 {
		t.Errorf("零 token 应零费用, got %d", got)
	}
}

func TestPriceTotalIsExactSum(t *testing.T) {
	c := NewCalculator(2, 0.85, 0.25)

	passages := []entity.ScoredPassage{
		{Passage: entity.Passage{ID: "a#0", BookTitle: "A", Text: "Start by saving a tenth of all you earn."}, Score: 0.9},
		{Passage: entity.Passage{ID: "b#3", BookTitle: "B", Text: "Wealth grows wherever men exert energy."}, Score: 0.8},
		{Passage: entity.Passage{ID: "c#7", BookTitle: "C", Text: "Advice is one thing freely given away."}, Score: 0.7},
	}

	citations, total := c.Price(passages)
	if len(citations) != 3 {
		t.Fatalf("引用数 = %d, want 3", len(citations))
	}

	var sum entity.CostMicros
	for i, cit := range citations {
		if cit.Rank != i {
			t.Errorf("第 %d 条引用名次 = %d", i, cit.Rank)
		}
		if cit.Tokens <= 0 {
			t.Errorf("引用 %s token 数应为正, got %d", cit.PassageID, cit.Tokens)
		}
		if cit.CostMicros <= 0 {
			t.Errorf("引用 %s 费用应为正, got %d", cit.PassageID, cit.CostMicros)
		}
		sum += cit.CostMicros
	}
	if total != sum {
		t.Errorf("总额 %d 不等于各项之和 %d", total, sum)
	}
}

func TestPriceDeterministic(t *testing.T) {
	c := NewCalculator(2, 0.85, 0.25)
	passages := []entity.ScoredPassage{
		{Passage: entity.Passage{ID: "x#1", Text: "The obstacle is the way."}, Score: 0.5},
	}

	_, first := c.Price(passages)
	for i := 0; i < 5; i++ {
		if _, got := c.Price(passages); got != first {
			t.Fatalf("同一输入第 %d 次计费不一致: %d vs %d", i, got, first)
		}
	}
}

func TestPriceEmptyPassages(t *testing.T) {
	c := NewCalculator(0, 0, 0)
	citations, total := c.Price(nil)
	if len(citations) != 0 || total != 0 {
		t.Errorf("空召回应零账单, got %d 条 / %d", len(citations), total)
	}
}

func TestCostMicrosUSD(t *testing.T) {
	if got := entity.CostMicros(12345).USD(); got != 0.12345 {
		t.Errorf("USD() = %v, want 0.12345", got)
	}
}
