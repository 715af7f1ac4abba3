package models

// EventType 事件类型
type EventType string

const (
	EventPositive EventType = "positive"
	EventNegative EventType = "negative"
)

// EventEffects 事件效果，字段为空表示该效果不存在
type EventEffects struct {
	ViewersChange          *[2]int  `json:"viewers_change,omitempty" yaml:"viewers_change,omitempty"`
	ConversionBoost        *float64 `json:"conversion_boost,omitempty" yaml:"conversion_boost,omitempty"`
	ConversionPenalty      *float64 `json:"conversion_penalty,omitempty" yaml:"conversion_penalty,omitempty"`
	StockReduction         *float64 `json:"stock_reduction,omitempty" yaml:"stock_reduction,omitempty"`
	ProductSalesMultiplier *float64 `json:"product_sales_multiplier,omitempty" yaml:"product_sales_multiplier,omitempty"`
	// Duration 持续时间(秒)，仅作展示，效果不会过期
	Duration int `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// Empty 是否没有任何实际效果
func (e EventEffects) Empty() bool {
	return e.ViewersChange == nil && e.ConversionBoost == nil && e.ConversionPenalty == nil &&
		e.StockReduction == nil && e.ProductSalesMultiplier == nil
}

// EventDefinition 预定义事件
type EventDefinition struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description" yaml:"description"`
	Type        EventType    `json:"type" yaml:"type"`
	Effects     EventEffects `json:"effects" yaml:"effects"`
}
