package simulation

import (
	"math/rand"
	"sync"
	"time"
)

// Rand 可注入的随机源，测试中可替换为确定性实现
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// NewRand 创建带种子的随机源, seed 为 0 时使用当前时间
func NewRand(seed int64) Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

// lockedRand 并发安全的 *rand.Rand 包装
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// randInt 返回 [min, max] 闭区间内的均匀整数
func randInt(r Rand, min, max int) int {
	if max <= min {
		return min
	}
	return min + r.Intn(max-min+1)
}

// uniform 返回 [min, max) 内的均匀浮点数
func uniform(r Rand, min, max float64) float64 {
	return min + (max-min)*r.Float64()
}

// chance 以概率 p 返回 true
func chance(r Rand, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return r.Float64() < p
}

func choice(r Rand, pool []string) string {
	return pool[r.Intn(len(pool))]
}

// Policy 模拟与事件效果的参数表
type Policy struct {
	// 观众
	ViewerFloor       int
	ViewerDriftMin    int
	ViewerDriftMax    int
	AnomalyThreshold  float64 // 相对上一 tick 的变化比例
	ViewerSurgeForLog int     // 事件带来的观众增量超过该值时触发库存预测

	// 转化率
	MinConversionRate           float64
	MaxConversionRate           float64
	SignificantConversionChange float64

	// 销售
	SalesPerTickMax int
	ProfitMargin    float64

	// 概率
	CriticalAlertProbability float64
	TightAlertProbability    float64
	InsightProbability       float64

	// 补货
	StockReductionFloor int
	EmergencyRestockMin int
	EmergencyRestockMax int
	ReplenishMin        int
	ReplenishMax        int
	BoostRestockMin     int
	BoostRestockMax     int
	ETAMinMinutes       int
	ETAMaxMinutes       int

	// 单次事件返回的最大日志条数
	MaxEventLogs int
}

// DefaultPolicy 默认参数
func DefaultPolicy() Policy {
	return Policy{
		ViewerFloor:       100,
		ViewerDriftMin:    -100,
		ViewerDriftMax:    200,
		AnomalyThreshold:  0.15,
		ViewerSurgeForLog: 2000,

		MinConversionRate:           0.01,
		MaxConversionRate:           0.2,
		SignificantConversionChange: 0.03,

		SalesPerTickMax: 3,
		ProfitMargin:    0.3,

		CriticalAlertProbability: 0.3,
		TightAlertProbability:    0.2,
		InsightProbability:       0.1,

		StockReductionFloor: 10,
		EmergencyRestockMin: 100,
		EmergencyRestockMax: 500,
		ReplenishMin:        50,
		ReplenishMax:        200,
		BoostRestockMin:     100,
		BoostRestockMax:     300,
		ETAMinMinutes:       15,
		ETAMaxMinutes:       45,

		MaxEventLogs: 8,
	}
}
