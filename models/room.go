package models

import "time"

// StockStatus 商品库存状态
type StockStatus string

const (
	StockSufficient StockStatus = "充足"
	StockTight      StockStatus = "紧张"
	StockCritical   StockStatus = "告急"
)

// 库存状态阈值 (库存 / 初始库存)
const (
	CriticalStockRatio = 0.1
	TightStockRatio    = 0.3
)

// StockStatusFor 根据剩余库存与初始库存的比例计算库存状态
func StockStatusFor(stock, initialStock int) StockStatus {
	if initialStock <= 0 {
		if stock > 0 {
			return StockSufficient
		}
		return StockCritical
	}
	ratio := float64(stock) / float64(initialStock)
	switch {
	case ratio < CriticalStockRatio:
		return StockCritical
	case ratio < TightStockRatio:
		return StockTight
	default:
		return StockSufficient
	}
}

// HealthStatus 直播间/库存健康度
type HealthStatus string

const (
	HealthGreen  HealthStatus = "green"
	HealthYellow HealthStatus = "yellow"
	HealthRed    HealthStatus = "red"
)

// worse 返回两个健康度中更差的一个
func worse(a, b HealthStatus) HealthStatus {
	rank := map[HealthStatus]int{HealthGreen: 0, HealthYellow: 1, HealthRed: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

// Product 直播间商品
type Product struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Price          float64     `json:"price"`
	OriginalPrice  float64     `json:"original_price"`
	Stock          int         `json:"stock"`
	InitialStock   int         `json:"initial_stock"`
	Sales          int         `json:"sales"`
	Size           string      `json:"size"`
	Color          string      `json:"color"` // 口味
	PredictedSales int         `json:"predicted_sales"`
	StockStatus    StockStatus `json:"stock_status"`
}

// RefreshStockStatus 重新计算库存状态，返回之前的状态
func (p *Product) RefreshStockStatus() StockStatus {
	prev := p.StockStatus
	p.StockStatus = StockStatusFor(p.Stock, p.InitialStock)
	return prev
}

// Room 直播间
type Room struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	HostName       string       `json:"host_name"`
	Viewers        int          `json:"viewers"`
	Sales          float64      `json:"sales"`
	ConversionRate float64      `json:"conversion_rate"`
	HealthStatus   HealthStatus `json:"health_status"`
	Products       []Product    `json:"products"`
	StartTime      time.Time    `json:"start_time"`
}

// Clone 深拷贝直播间（包括商品列表）
func (r *Room) Clone() Room {
	c := *r
	c.Products = make([]Product, len(r.Products))
	copy(c.Products, r.Products)
	return c
}

// UnitsSold 所有商品累计销量
func (r *Room) UnitsSold() int {
	total := 0
	for _, p := range r.Products {
		total += p.Sales
	}
	return total
}

// RefreshHealth 根据商品库存状态推导直播间健康度
func (r *Room) RefreshHealth() HealthStatus {
	health := HealthGreen
	for _, p := range r.Products {
		switch p.StockStatus {
		case StockCritical:
			health = worse(health, HealthRed)
		case StockTight:
			health = worse(health, HealthYellow)
		}
	}
	r.HealthStatus = health
	return health
}

// GlobalStats 全局统计
type GlobalStats struct {
	TotalSales        float64      `json:"total_sales"`
	TotalProfit       float64      `json:"total_profit"`
	ActiveRooms       int          `json:"active_rooms"`
	InventoryHealth   HealthStatus `json:"inventory_health"`
	StartTime         time.Time    `json:"start_time"`
	AvgConversionRate float64      `json:"avg_conversion_rate"`
}

// RefreshInventoryHealth 取所有直播间中最差的健康度
func (s *GlobalStats) RefreshInventoryHealth(rooms []*Room) {
	health := HealthGreen
	for _, r := range rooms {
		health = worse(health, r.HealthStatus)
	}
	s.InventoryHealth = health
}
