package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livepulse-service/models"
)

func newTestResolver(rng Rand) *Resolver {
	return NewResolver(DefaultPolicy(), rng, fixedClock)
}

func TestApplyConversionBoostClampsAtMax(t *testing.T) {
	room := testRoom("r1", 5000,
		testProduct("a", 500, 500, 0),
		testProduct("b", 500, 500, 0),
	)
	room.ConversionRate = 0.18

	event := models.EventDefinition{
		ID: "boost", Name: "加速", Type: models.EventPositive,
		Effects: models.EventEffects{ConversionBoost: ptr(0.05)},
	}

	history := NewLogHistory(10)
	logs := newTestResolver(&scriptedRand{}).Apply(event, room, history)

	assert.Equal(t, 0.2, room.ConversionRate)
	assert.Equal(t, 1, countAction(logs, ActionConversionUp))
	assert.Equal(t, 2, countAction(logs, ActionInventoryManagement), "boost above the significant change restocks the first two products")
	assert.Equal(t, ActionEventTriggered, logs[0].ActionType)
	assert.Equal(t, "green", logs[0].Color)
	assert.Equal(t, len(logs), history.Len())
}

func TestApplySmallBoostSkipsRestock(t *testing.T) {
	room := testRoom("r1", 5000, testProduct("a", 500, 500, 0))
	event := models.EventDefinition{
		ID: "boost", Type: models.EventPositive,
		Effects: models.EventEffects{ConversionBoost: ptr(0.01)},
	}

	logs := newTestResolver(&scriptedRand{}).Apply(event, room, NewLogHistory(10))

	assert.Equal(t, []string{ActionEventTriggered, ActionConversionUp}, actions(logs))
	assert.InDelta(t, 0.03, room.ConversionRate, 1e-9)
}

func TestApplyConversionPenaltyFloor(t *testing.T) {
	room := testRoom("r1", 5000, testProduct("a", 500, 500, 0))
	room.ConversionRate = 0.02
	event := models.EventDefinition{
		ID: "drop", Type: models.EventNegative,
		Effects: models.EventEffects{ConversionPenalty: ptr(0.05)},
	}

	logs := newTestResolver(&scriptedRand{}).Apply(event, room, NewLogHistory(10))

	assert.Equal(t, 0.01, room.ConversionRate)
	assert.Equal(t, "red", logs[0].Color)
	assert.Equal(t, []string{ActionEventTriggered, ActionConversionDown, ActionInventoryAdjustment}, actions(logs))
}

func TestApplyStockReductionToTight(t *testing.T) {
	room := testRoom("r1", 5000, testProduct("a", 1000, 1000, 0))
	event := models.EventDefinition{
		ID: "shortage", Type: models.EventNegative,
		Effects: models.EventEffects{StockReduction: ptr(0.8)},
	}

	logs := newTestResolver(&scriptedRand{}).Apply(event, room, NewLogHistory(10))

	p := room.Products[0]
	assert.Equal(t, models.StockTight, p.StockStatus)
	assert.GreaterOrEqual(t, p.Stock, 200+50)
	assert.LessOrEqual(t, p.Stock, 200+200)
	assert.Equal(t, []string{ActionEventTriggered, ActionStockAlert, ActionStockReplenishment}, actions(logs))
	assert.Contains(t, logs[1].Message, "从1000降至200")
	assert.Equal(t, models.HealthYellow, room.HealthStatus)
}

func TestApplyStockReductionToCritical(t *testing.T) {
	room := testRoom("r1", 5000, testProduct("a", 1000, 1000, 0))
	event := models.EventDefinition{
		ID: "shortage", Type: models.EventNegative,
		Effects: models.EventEffects{StockReduction: ptr(0.95)},
	}

	logs := newTestResolver(&scriptedRand{}).Apply(event, room, NewLogHistory(10))

	p := room.Products[0]
	assert.Equal(t, models.StockCritical, p.StockStatus, "status is classified before the restock arrives")
	assert.GreaterOrEqual(t, p.Stock, 50+100)
	assert.LessOrEqual(t, p.Stock, 50+500)
	assert.Equal(t, []string{ActionEventTriggered, ActionStockAlert, ActionEmergencyRestock, ActionInventoryPlanning}, actions(logs))
	assert.Equal(t, models.HealthRed, room.HealthStatus)
}

func TestApplyStockReductionFloorAndSkip(t *testing.T) {
	room := testRoom("r1", 5000,
		testProduct("full", 400, 1000, 0),
		testProduct("tight", 200, 1000, 0),
	)
	event := models.EventDefinition{
		ID: "wipe", Type: models.EventNegative,
		Effects: models.EventEffects{StockReduction: ptr(1.0)},
	}

	newTestResolver(&scriptedRand{}).Apply(event, room, NewLogHistory(10))

	// 10 件保底后触发紧急调货, 最少 +100
	assert.GreaterOrEqual(t, room.Products[0].Stock, 10+100)
	assert.Equal(t, 200, room.Products[1].Stock, "only sufficient products are reduced")
}

func TestApplyViewerChange(t *testing.T) {
	t.Run("surge adds forecast", func(t *testing.T) {
		room := testRoom("r1", 1000, testProduct("a", 500, 500, 0))
		event := models.EventDefinition{
			ID: "kol", Type: models.EventPositive,
			Effects: models.EventEffects{ViewersChange: ptr([2]int{3000, 3000})},
		}
		logs := newTestResolver(&scriptedRand{}).Apply(event, room, NewLogHistory(10))

		assert.Equal(t, 4000, room.Viewers)
		assert.Equal(t, []string{ActionEventTriggered, ActionViewerChange, ActionInventoryForecast}, actions(logs))
	})

	t.Run("drop respects floor", func(t *testing.T) {
		room := testRoom("r1", 1000, testProduct("a", 500, 500, 0))
		event := models.EventDefinition{
			ID: "outage", Type: models.EventNegative,
			Effects: models.EventEffects{ViewersChange: ptr([2]int{-5000, -5000})},
		}
		logs := newTestResolver(&scriptedRand{}).Apply(event, room, NewLogHistory(10))

		assert.Equal(t, 100, room.Viewers)
		require.Len(t, logs, 2)
		assert.Contains(t, logs[1].Message, "减少5000人")
		assert.Equal(t, "red", logs[1].Color)
	})
}

func TestApplySalesMultiplierDispatchesStock(t *testing.T) {
	room := testRoom("r1", 5000, testProduct("a", 10, 500, 100))
	event := models.EventDefinition{
		ID: "hot", Type: models.EventPositive,
		Effects: models.EventEffects{ProductSalesMultiplier: ptr(3.0)},
	}

	logs := newTestResolver(&scriptedRand{floats: []float64{0, 0.5}}).Apply(event, room, NewLogHistory(10))

	p := room.Products[0]
	// floor(100 * 3 * 1.2)
	assert.Equal(t, 360, p.PredictedSales)
	assert.GreaterOrEqual(t, p.Stock, p.PredictedSales)
	assert.Equal(t, []string{
		ActionEventTriggered, ActionSalesForecast, ActionMarketing, ActionInventoryDispatch, ActionMultiWarehouse,
	}, actions(logs))
}

func TestApplyReturnsAtMostMaxEventLogs(t *testing.T) {
	policy := DefaultPolicy()
	policy.MaxEventLogs = 2
	resolver := NewResolver(policy, &scriptedRand{}, fixedClock)

	room := testRoom("r1", 5000, testProduct("a", 500, 500, 0), testProduct("b", 500, 500, 0))
	event := models.EventDefinition{
		ID: "boost", Type: models.EventPositive,
		Effects: models.EventEffects{ConversionBoost: ptr(0.05)},
	}

	history := NewLogHistory(10)
	logs := resolver.Apply(event, room, history)

	require.Len(t, logs, 2)
	assert.Equal(t, 4, history.Len(), "history keeps every generated entry")
	all := history.Last(0)
	assert.Equal(t, all[2:], logs)
}
