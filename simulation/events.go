package simulation

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"livepulse-service/models"
)

func intRange(min, max int) *[2]int { return &[2]int{min, max} }
func ratio(v float64) *float64      { return &v }

// DefaultEvents 预定义事件
func DefaultEvents() []models.EventDefinition {
	return []models.EventDefinition{
		// 正面事件
		{
			ID:          "competitor_offline",
			Name:        "竞品主播下线",
			Description: "竞品主播突然下线，流量涌入",
			Type:        models.EventPositive,
			Effects: models.EventEffects{
				ViewersChange:   intRange(1000, 5000),
				ConversionBoost: ratio(0.02),
				Duration:        300,
			},
		},
		{
			ID:          "kol_promotion",
			Name:        "KOL推荐爆火",
			Description: "某商品被知名KOL推荐，瞬间爆火",
			Type:        models.EventPositive,
			Effects: models.EventEffects{
				ProductSalesMultiplier: ratio(5),
				ViewersChange:          intRange(2000, 8000),
				Duration:               600,
			},
		},
		{
			ID:          "host_performance",
			Name:        "主播超常发挥",
			Description: "主播超常发挥，互动率飙升",
			Type:        models.EventPositive,
			Effects: models.EventEffects{
				ConversionBoost: ratio(0.05),
				ViewersChange:   intRange(500, 2000),
				Duration:        450,
			},
		},

		// 负面事件
		{
			ID:          "stock_shortage",
			Name:        "核心商品库存不足",
			Description: "核心商品库存不足",
			Type:        models.EventNegative,
			Effects: models.EventEffects{
				StockReduction: ratio(0.8),
				Duration:       600,
			},
		},
		{
			ID:          "negative_comments",
			Name:        "负面评论增多",
			Description: "直播间出现大量负面评论",
			Type:        models.EventNegative,
			Effects: models.EventEffects{
				ConversionPenalty: ratio(0.03),
				ViewersChange:     intRange(-2000, -500),
				Duration:          300,
			},
		},
		{
			ID:          "host_mistake",
			Name:        "主播口误",
			Description: "主播口误/表现不佳",
			Type:        models.EventNegative,
			Effects: models.EventEffects{
				ConversionPenalty: ratio(0.02),
				ViewersChange:     intRange(-1000, -200),
				Duration:          180,
			},
		},
		{
			ID:          "competitor_discount",
			Name:        "竞争对手降价",
			Description: "竞争对手突然推出同类商品并大幅降价",
			Type:        models.EventNegative,
			Effects: models.EventEffects{
				ConversionPenalty: ratio(0.04),
				ViewersChange:     intRange(-1500, -300),
				Duration:          900,
			},
		},
		{
			ID:          "network_issues",
			Name:        "网络波动",
			Description: "外部网络波动，直播间观看人数骤降",
			Type:        models.EventNegative,
			Effects: models.EventEffects{
				ViewersChange: intRange(-4000, -1000),
				Duration:      240,
			},
		},
		{
			ID:          "logistics_failure",
			Name:        "物流系统故障",
			Description: "物流系统故障，发货延迟",
			Type:        models.EventNegative,
			Effects: models.EventEffects{
				ConversionPenalty: ratio(0.03),
				Duration:          1200,
			},
		},
	}
}

// Catalog 只读事件目录
type Catalog struct {
	events []models.EventDefinition
	index  map[string]int
}

// NewCatalog 校验并创建事件目录
func NewCatalog(defs []models.EventDefinition) (*Catalog, error) {
	c := &Catalog{
		events: make([]models.EventDefinition, 0, len(defs)),
		index:  make(map[string]int, len(defs)),
	}
	for _, def := range defs {
		if err := validateEvent(def); err != nil {
			return nil, err
		}
		if _, dup := c.index[def.ID]; dup {
			return nil, invalidEffect(def.ID, "duplicate id")
		}
		c.index[def.ID] = len(c.events)
		c.events = append(c.events, def)
	}
	return c, nil
}

// DefaultCatalog 使用预定义事件的目录
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultEvents())
	if err != nil {
		panic(fmt.Sprintf("built-in event catalog is invalid: %v", err))
	}
	return c
}

// LoadCatalog 从 YAML 文件加载事件目录
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read events file: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog 解析 YAML 格式的事件列表
func ParseCatalog(data []byte) (*Catalog, error) {
	var defs []models.EventDefinition
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEffectData, err)
	}
	return NewCatalog(defs)
}

// List 按定义顺序返回全部事件
func (c *Catalog) List() []models.EventDefinition {
	out := make([]models.EventDefinition, len(c.events))
	copy(out, c.events)
	return out
}

// Get 按 ID 查找事件
func (c *Catalog) Get(id string) (models.EventDefinition, error) {
	i, ok := c.index[id]
	if !ok {
		return models.EventDefinition{}, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	return c.events[i], nil
}

func validateEvent(def models.EventDefinition) error {
	if def.ID == "" {
		return invalidEffect(def.ID, "missing id")
	}
	if def.Type != models.EventPositive && def.Type != models.EventNegative {
		return invalidEffect(def.ID, "unknown type %q", def.Type)
	}

	e := def.Effects
	if e.Empty() {
		return invalidEffect(def.ID, "no effects")
	}
	if e.ViewersChange != nil && e.ViewersChange[0] > e.ViewersChange[1] {
		return invalidEffect(def.ID, "viewers_change min %d > max %d", e.ViewersChange[0], e.ViewersChange[1])
	}
	if e.ConversionBoost != nil && *e.ConversionBoost < 0 {
		return invalidEffect(def.ID, "negative conversion_boost")
	}
	if e.ConversionPenalty != nil && *e.ConversionPenalty < 0 {
		return invalidEffect(def.ID, "negative conversion_penalty")
	}
	if e.StockReduction != nil && (*e.StockReduction <= 0 || *e.StockReduction > 1) {
		return invalidEffect(def.ID, "stock_reduction %v outside (0, 1]", *e.StockReduction)
	}
	if e.ProductSalesMultiplier != nil && *e.ProductSalesMultiplier <= 0 {
		return invalidEffect(def.ID, "product_sales_multiplier must be positive")
	}
	if e.Duration < 0 {
		return invalidEffect(def.ID, "negative duration")
	}
	return nil
}
