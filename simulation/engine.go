package simulation

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"livepulse-service/logger"
	"livepulse-service/models"
)

// 引擎默认参数
const (
	DefaultTickInterval = 2 * time.Second
	DefaultRetryBackoff = 5 * time.Second
	DefaultDrainTimeout = 5 * time.Second
)

// EngineState 引擎状态
type EngineState int32

const (
	StateIdle EngineState = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s EngineState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("EngineState(%d)", int32(s))
	}
}

// 自动生成的 AI 洞察
var cannedInsights = []struct {
	Action  string
	Message string
	Impact  string
}{
	{ActionSalesForecast, "预计未来1小时销售额将增长20%", "销售预测调整"},
	{ActionSentimentAnalysis, "直播间氛围活跃，用户评价正面", "直播间健康度保持绿色"},
	{ActionMarketing, "建议开展限时促销活动", "预期提升转化率5%"},
}

var actionColors = map[string]string{
	ActionSalesForecast:       "green",
	ActionStockAlert:          "orange",
	ActionWarehouseManagement: "blue",
	ActionSentimentAnalysis:   "purple",
	ActionMarketing:           "teal",
	ActionAnomalousTraffic:    "red",
}

func colorFor(action string) string {
	if c, ok := actionColors[action]; ok {
		return c
	}
	return "gray"
}

// EngineConfig 引擎配置
type EngineConfig struct {
	Policy       Policy
	Rand         Rand
	Clock        func() time.Time
	Interval     time.Duration
	RetryBackoff time.Duration
	DrainTimeout time.Duration

	// OnError 在 tick 失败时调用（不含取消），不能阻塞
	OnError func(err error)
}

// Engine 定时推进所有直播间的状态
type Engine struct {
	world     *World
	publisher Publisher
	policy    Policy
	rng       Rand
	logs      logFactory
	cfg       EngineConfig

	// prevViewers 只在持有世界锁时访问
	prevViewers map[string]int
	ticks       atomic.Uint64

	state    atomic.Int32
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
	cancel   context.CancelFunc
}

// NewEngine 创建 tick 引擎
func NewEngine(world *World, publisher Publisher, cfg EngineConfig) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Rand == nil {
		cfg.Rand = NewRand(0)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultTickInterval
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}
	if publisher == nil {
		publisher = NopPublisher{}
	}

	e := &Engine{
		world:       world,
		publisher:   publisher,
		policy:      cfg.Policy,
		rng:         cfg.Rand,
		logs:        newLogFactory(cfg.Clock),
		cfg:         cfg,
		prevViewers: make(map[string]int),
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
	}
	world.mutate(func() {
		for _, r := range world.rooms {
			e.prevViewers[r.ID] = r.Viewers
		}
	})
	return e
}

// State 当前状态
func (e *Engine) State() EngineState {
	return EngineState(e.state.Load())
}

// Ticks 已执行的 tick 数（包括失败的）
func (e *Engine) Ticks() uint64 {
	return e.ticks.Load()
}

// Start 在后台启动 tick 循环
func (e *Engine) Start(ctx context.Context) error {
	if !e.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	logger.Printf("[Engine] Started (interval: %v)", e.cfg.Interval)
	go e.run(runCtx)
	return nil
}

func (e *Engine) run(ctx context.Context) {
	defer func() {
		e.state.Store(int32(StateStopped))
		close(e.done)
		logger.Println("[Engine] Stopped")
	}()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		// timer 与 stopCh 同时就绪时 select 随机选择，这里优先停止
		select {
		case <-e.stopCh:
			return
		default:
		}

		delay := e.cfg.Interval
		if err := e.Step(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Errorf("[Engine] ❌ %v, retrying in %v", err, e.cfg.RetryBackoff)
			if e.cfg.OnError != nil {
				e.cfg.OnError(err)
			}
			delay = e.cfg.RetryBackoff
		}
		timer.Reset(delay)
	}
}

// Stop 请求在 tick 边界停止，超过排空时间后强制取消正在执行的 tick。
// 取消后最多再等待一个排空时间或 ctx 结束，仍未退出的 tick 协程被放弃
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel == nil {
		e.state.Store(int32(StateStopped))
		return nil
	}
	e.state.CompareAndSwap(int32(StateRunning), int32(StateStopping))
	e.stopOnce.Do(func() { close(e.stopCh) })

	timer := time.NewTimer(e.cfg.DrainTimeout)
	defer timer.Stop()

	select {
	case <-e.done:
		return nil
	case <-timer.C:
	case <-ctx.Done():
	}

	logger.Errorf("[Engine] ⚠️ Drain timeout, cancelling in-flight tick")
	e.cancel()

	timer.Reset(e.cfg.DrainTimeout)
	select {
	case <-e.done:
	case <-timer.C:
		logger.Errorf("[Engine] ⚠️ Tick did not exit after cancel, abandoning it")
		e.state.Store(int32(StateStopped))
	case <-ctx.Done():
		logger.Errorf("[Engine] ⚠️ Stop deadline reached, abandoning in-flight tick")
		e.state.Store(int32(StateStopped))
	}
	return ErrDrainTimeout
}

// Done 引擎退出后关闭
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Step 同步执行一次 tick
func (e *Engine) Step(ctx context.Context) (err error) {
	tick := e.ticks.Add(1)
	defer func() {
		if r := recover(); r != nil {
			err = &TransientSimulationError{Tick: tick, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	var aborted error

	e.world.commit(func() (publish func()) {
		var emitted []models.AgentLog
		emit := func(entry models.AgentLog) {
			emitted = append(emitted, entry)
			e.world.logs.Append(entry)
		}

		for _, room := range e.world.rooms {
			if err := ctx.Err(); err != nil {
				aborted = err
				return nil
			}
			e.tickRoom(room, &e.world.stats, emit)
		}

		totalViewers, totalSales := 0, 0.0
		for _, room := range e.world.rooms {
			totalViewers += room.Viewers
			totalSales += room.Sales
		}
		if totalViewers > 0 {
			e.world.stats.AvgConversionRate = totalSales / float64(totalViewers)
		}
		e.world.stats.ActiveRooms = len(e.world.rooms)
		e.world.stats.RefreshInventoryHealth(e.world.rooms)

		rooms := e.world.snapshotLocked()
		stats := e.world.stats
		return func() {
			for _, entry := range emitted {
				e.publisher.PublishLog(entry)
			}
			e.publisher.PublishSnapshot(rooms, stats)
		}
	})

	if aborted != nil {
		return &TransientSimulationError{Tick: tick, Cause: aborted}
	}
	return nil
}

func (e *Engine) tickRoom(room *models.Room, stats *models.GlobalStats, emit func(models.AgentLog)) {
	p := e.policy

	// 观众随机游走
	drift := randInt(e.rng, p.ViewerDriftMin, p.ViewerDriftMax)
	room.Viewers = maxInt(p.ViewerFloor, room.Viewers+drift)

	// 异常流量检测
	if prev, ok := e.prevViewers[room.ID]; ok && prev > 0 {
		change := float64(room.Viewers-prev) / float64(prev)
		if math.Abs(change) > p.AnomalyThreshold {
			direction := "激增"
			if change < 0 {
				direction = "骤降"
			}
			emit(e.logs.entry(room, ActionAnomalousTraffic,
				fmt.Sprintf("检测到直播间观众%s，变化幅度%.1f%%", direction, math.Abs(change)*100),
				fmt.Sprintf("当前观众数：%d人，AI助手正在分析原因", room.Viewers),
				colorFor(ActionAnomalousTraffic)))
		}
	}
	e.prevViewers[room.ID] = room.Viewers

	// 商品销售
	for i := range room.Products {
		product := &room.Products[i]
		if product.Stock <= 0 {
			continue
		}

		qty := randInt(e.rng, 0, p.SalesPerTickMax)
		if qty > product.Stock {
			qty = product.Stock
		}
		product.Stock -= qty
		product.Sales += qty

		amount := float64(qty) * product.Price
		room.Sales += amount
		stats.TotalSales += amount
		stats.TotalProfit += amount * p.ProfitMargin

		prev := product.RefreshStockStatus()
		if prev == product.StockStatus {
			continue
		}
		switch product.StockStatus {
		case models.StockCritical:
			if chance(e.rng, p.CriticalAlertProbability) {
				emit(e.logs.entry(room, ActionStockAlert,
					fmt.Sprintf("%s 库存告急，仅剩%d件！", product.Name, product.Stock),
					"库存健康度调为红色", colorFor(ActionStockAlert)))
			}
		case models.StockTight:
			if chance(e.rng, p.TightAlertProbability) {
				emit(e.logs.entry(room, ActionStockAlert,
					fmt.Sprintf("%s 库存偏低，当前%d件", product.Name, product.Stock),
					"建议及时补货以维持销售", colorFor(ActionStockAlert)))
			}
		}
	}

	// 转化率 = 累计销量 / 观众数
	if room.Viewers > 0 {
		rate := float64(room.UnitsSold()) / float64(room.Viewers)
		room.ConversionRate = math.Max(0, math.Min(p.MaxConversionRate, rate))
	}
	room.RefreshHealth()

	if chance(e.rng, p.InsightProbability) {
		insight := cannedInsights[e.rng.Intn(len(cannedInsights))]
		emit(e.logs.entry(room, insight.Action, insight.Message, insight.Impact, colorFor(insight.Action)))
	}
}
