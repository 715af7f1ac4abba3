package simulation

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"livepulse-service/models"
)

// 日志动作类型
const (
	ActionEventTriggered      = "事件触发"
	ActionViewerChange        = "观众变化"
	ActionInventoryForecast   = "库存预测"
	ActionConversionUp        = "转化率提升"
	ActionConversionDown      = "转化率下降"
	ActionInventoryManagement = "库存管理"
	ActionInventoryAdjustment = "库存调整"
	ActionStockAlert          = "库存预警"
	ActionEmergencyRestock    = "紧急调货"
	ActionInventoryPlanning   = "库存规划"
	ActionStockReplenishment  = "库存补充"
	ActionSalesForecast       = "销售预测"
	ActionMarketing           = "营销策略"
	ActionInventoryDispatch   = "库存调度"
	ActionMultiWarehouse      = "多仓协同"
	ActionAnomalousTraffic    = "异常流量"
	ActionSentimentAnalysis   = "舆情分析"
	ActionWarehouseManagement = "仓储管理"
)

var (
	inventoryStrategies = []string{
		"实时库存预测",
		"智能补货计划",
		"多仓协同调度",
		"库存优化分配",
		"紧急调货方案",
		"销量预测补货",
		"供应链协调",
	}
	warehouseLocations = []string{
		"上海中心仓",
		"广州南方仓",
		"北京北方仓",
		"成都西部仓",
		"武汉中部仓",
	}
	logisticsMethods = []string{
		"特快直达",
		"空运专线",
		"城市即时达",
		"次日达",
		"优先配送",
	}
)

// Resolver 将事件效果应用到直播间，并生成 AI Agent 的应对日志
type Resolver struct {
	policy Policy
	rng    Rand
	clock  func() time.Time
	logs   logFactory
}

// NewResolver 创建效果解析器
func NewResolver(policy Policy, rng Rand, clock func() time.Time) *Resolver {
	if clock == nil {
		clock = time.Now
	}
	return &Resolver{policy: policy, rng: rng, clock: clock, logs: newLogFactory(clock)}
}

// logFactory 统一生成日志条目的 ID 与时间戳
type logFactory struct {
	clock func() time.Time
	newID func() string
}

func newLogFactory(clock func() time.Time) logFactory {
	return logFactory{clock: clock, newID: uuid.NewString}
}

func (f logFactory) entry(room *models.Room, action, message, impact, color string) models.AgentLog {
	return models.AgentLog{
		ID:         f.newID(),
		Timestamp:  f.clock(),
		RoomID:     room.ID,
		RoomName:   room.Name,
		ActionType: action,
		Message:    message,
		Impact:     impact,
		Color:      color,
	}
}

func (r *Resolver) eta() string {
	minutes := randInt(r.rng, r.policy.ETAMinMinutes, r.policy.ETAMaxMinutes)
	return r.clock().Add(time.Duration(minutes) * time.Minute).Format("15:04")
}

// Apply 应用事件效果。所有生成的日志写入 history，返回本次生成的最后若干条。
// 调用方负责校验事件与直播间存在，并持有世界状态的锁。
func (r *Resolver) Apply(event models.EventDefinition, room *models.Room, history *LogHistory) []models.AgentLog {
	var generated []models.AgentLog
	emit := func(entry models.AgentLog) {
		generated = append(generated, entry)
		history.Append(entry)
	}

	color := "green"
	if event.Type == models.EventNegative {
		color = "red"
	}
	emit(r.logs.entry(room, ActionEventTriggered,
		fmt.Sprintf("触发事件：%s - %s", event.Name, event.Description),
		"AI Agent正在分析并采取应对措施...", color))

	effects := event.Effects
	if effects.ViewersChange != nil {
		r.applyViewerChange(*effects.ViewersChange, room, emit)
	}
	if effects.ConversionBoost != nil {
		r.applyConversionBoost(*effects.ConversionBoost, room, emit)
	}
	if effects.ConversionPenalty != nil {
		r.applyConversionPenalty(*effects.ConversionPenalty, room, emit)
	}
	if effects.StockReduction != nil {
		r.applyStockReduction(*effects.StockReduction, room, emit)
	}
	if effects.ProductSalesMultiplier != nil {
		r.applySalesMultiplier(*effects.ProductSalesMultiplier, room, emit)
	}

	room.RefreshHealth()

	if limit := r.policy.MaxEventLogs; limit > 0 && len(generated) > limit {
		generated = generated[len(generated)-limit:]
	}
	return generated
}

func (r *Resolver) applyViewerChange(bounds [2]int, room *models.Room, emit func(models.AgentLog)) {
	delta := randInt(r.rng, bounds[0], bounds[1])
	room.Viewers = maxInt(r.policy.ViewerFloor, room.Viewers+delta)

	direction, color := "增加", "green"
	if delta <= 0 {
		direction, color = "减少", "red"
	}
	emit(r.logs.entry(room, ActionViewerChange,
		fmt.Sprintf("直播间观众%s%d人", direction, absInt(delta)),
		fmt.Sprintf("当前观众数：%d人", room.Viewers), color))

	if delta > r.policy.ViewerSurgeForLog {
		strategy := choice(r.rng, inventoryStrategies)
		warehouse := choice(r.rng, warehouseLocations)
		increase := int(math.Round(float64(delta) * uniform(r.rng, 0.01, 0.05)))
		emit(r.logs.entry(room, ActionInventoryForecast,
			fmt.Sprintf("检测到观众激增，启动「%s」分析", strategy),
			fmt.Sprintf("预计销量增加%d件，已通知%s备货", increase, warehouse), "blue"))
	}
}

func (r *Resolver) applyConversionBoost(boost float64, room *models.Room, emit func(models.AgentLog)) {
	room.ConversionRate = math.Min(r.policy.MaxConversionRate, room.ConversionRate+boost)
	emit(r.logs.entry(room, ActionConversionUp,
		fmt.Sprintf("直播间转化率提升%.1f%%", boost*100),
		fmt.Sprintf("当前转化率：%.1f%%", room.ConversionRate*100), "green"))

	if boost < r.policy.SignificantConversionChange {
		return
	}
	strategy := choice(r.rng, inventoryStrategies)
	for i := 0; i < len(room.Products) && i < 2; i++ {
		amount := randInt(r.rng, r.policy.BoostRestockMin, r.policy.BoostRestockMax)
		emit(r.logs.entry(room, ActionInventoryManagement,
			fmt.Sprintf("启动「%s」，为%s增调%d件库存", strategy, room.Products[i].Name, amount),
			fmt.Sprintf("预计%s前到达，确保直播间持续销售", r.eta()), "teal"))
	}
}

func (r *Resolver) applyConversionPenalty(penalty float64, room *models.Room, emit func(models.AgentLog)) {
	room.ConversionRate = math.Max(r.policy.MinConversionRate, room.ConversionRate-penalty)
	emit(r.logs.entry(room, ActionConversionDown,
		fmt.Sprintf("直播间转化率下降%.1f%%", penalty*100),
		fmt.Sprintf("当前转化率：%.1f%%", room.ConversionRate*100), "red"))

	if penalty < r.policy.SignificantConversionChange {
		return
	}
	strategy := choice(r.rng, inventoryStrategies)
	emit(r.logs.entry(room, ActionInventoryAdjustment,
		fmt.Sprintf("检测到转化率大幅下降，启动「%s」", strategy),
		"暂缓部分商品补货计划，避免库存积压", "purple"))
}

func (r *Resolver) applyStockReduction(factor float64, room *models.Room, emit func(models.AgentLog)) {
	for i := range room.Products {
		p := &room.Products[i]
		if p.StockStatus != models.StockSufficient {
			continue
		}

		before := p.Stock
		p.Stock = maxInt(r.policy.StockReductionFloor, reduceStock(p.Stock, factor))
		p.RefreshStockStatus()

		emit(r.logs.entry(room, ActionStockAlert,
			fmt.Sprintf("%s 库存急剧减少，从%d降至%d", p.Name, before, p.Stock),
			fmt.Sprintf("库存状态更新为：%s", p.StockStatus), "red"))

		switch p.StockStatus {
		case models.StockCritical:
			strategy := choice(r.rng, inventoryStrategies)
			warehouse := choice(r.rng, warehouseLocations)
			logistics := choice(r.rng, logisticsMethods)

			// 第一步：紧急调货，立即入库
			amount := randInt(r.rng, r.policy.EmergencyRestockMin, r.policy.EmergencyRestockMax)
			emit(r.logs.entry(room, ActionEmergencyRestock,
				fmt.Sprintf("AI Agent启动「%s」，从%s紧急调拨%s %d件", strategy, warehouse, p.Name, amount),
				fmt.Sprintf("通过%s配送，预计%s前到达", logistics, r.eta()), "blue"))

			// 第二步：向供应商下单，仅作规划
			days := randInt(r.rng, 3, 7)
			order := randInt(r.rng, 500, 2000)
			emit(r.logs.entry(room, ActionInventoryPlanning,
				fmt.Sprintf("AI分析近期%s销售趋势，制定%d天补货计划", p.Name, days),
				fmt.Sprintf("已向供应商下单%d件，优化库存结构，防止再次短缺", order), "purple"))

			p.Stock += amount

		case models.StockTight:
			strategy := choice(r.rng, inventoryStrategies)
			warehouse := choice(r.rng, warehouseLocations)
			amount := randInt(r.rng, r.policy.ReplenishMin, r.policy.ReplenishMax)
			p.Stock += amount
			emit(r.logs.entry(room, ActionStockReplenishment,
				fmt.Sprintf("AI Agent检测到%s库存偏低，启动「%s」", p.Name, strategy),
				fmt.Sprintf("从%s调拨%d件，确保销售持续性", warehouse, amount), "teal"))
		}
	}
}

func (r *Resolver) applySalesMultiplier(multiplier float64, room *models.Room, emit func(models.AgentLog)) {
	if len(room.Products) == 0 {
		return
	}
	p := &room.Products[r.rng.Intn(len(room.Products))]

	emit(r.logs.entry(room, ActionSalesForecast,
		fmt.Sprintf("%s 销售预期大幅提升，预计销量增长%g倍", p.Name, multiplier),
		"AI Agent建议增加库存并提高曝光", "green"))

	discount := randInt(r.rng, 5, 15)
	emit(r.logs.entry(room, ActionMarketing,
		fmt.Sprintf("AI Agent为%s自动发放限时%d元优惠券", p.Name, discount),
		"预计将进一步提升销量和转化率", "teal"))

	strategy := choice(r.rng, inventoryStrategies)
	warehouse := choice(r.rng, warehouseLocations)
	logistics := choice(r.rng, logisticsMethods)

	predicted := int(math.Floor(float64(p.Sales) * multiplier * uniform(r.rng, 1.2, 2.0)))
	p.PredictedSales = predicted
	current := p.Stock
	if predicted <= current {
		return
	}

	needed := predicted - current
	emit(r.logs.entry(room, ActionInventoryDispatch,
		fmt.Sprintf("AI预测%s销量将达%d件，当前库存%d件不足", p.Name, predicted, current),
		fmt.Sprintf("启动「%s」，从%s紧急调拨%d件", strategy, warehouse, needed), "blue"))

	secondary := choice(r.rng, without(warehouseLocations, warehouse))
	extra := int(math.Floor(float64(needed) * uniform(r.rng, 0.3, 0.5)))
	emit(r.logs.entry(room, ActionMultiWarehouse,
		fmt.Sprintf("启动多仓协同方案，%s额外提供%d件%s", secondary, extra, p.Name),
		fmt.Sprintf("通过%s加急配送，确保爆款商品充足供应", logistics), "purple"))

	p.Stock += needed + extra
}

// reduceStock floor(stock * (1 - factor))，用十进制计算避免 1-0.8 之类的浮点误差
func reduceStock(stock int, factor float64) int {
	remaining := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(factor))
	return int(decimal.NewFromInt(int64(stock)).Mul(remaining).Floor().IntPart())
}

func without(pool []string, exclude string) []string {
	out := make([]string, 0, len(pool))
	for _, v := range pool {
		if v != exclude {
			out = append(out, v)
		}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
