package simulation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"livepulse-service/models"
)

// productCategory 商品品类表
type productCategory struct {
	Key      string
	Names    []string
	MinPrice float64
	MaxPrice float64
}

var productCategories = []productCategory{
	{Key: "snacks", Names: []string{"什锦饼干礼盒", "进口巧克力", "网红辣条", "坚果大礼包", "薯片零食"}, MinPrice: 15, MaxPrice: 50},
	{Key: "drinks", Names: []string{"有机牛奶", "果汁饮料", "气泡水", "咖啡豆", "茶叶礼盒"}, MinPrice: 20, MaxPrice: 80},
	{Key: "fresh", Names: []string{"新鲜水果拼盘", "有机蔬菜", "生鲜海鲜", "冷鲜肉品", "乳制品"}, MinPrice: 30, MaxPrice: 150},
	{Key: "instant", Names: []string{"速食拌饭", "方便面", "即食麦片", "速食汤品", "冻干食品"}, MinPrice: 10, MaxPrice: 40},
	{Key: "specialty", Names: []string{"手工水饺", "风味香肠", "地方特产", "传统糕点", "调味酱料"}, MinPrice: 25, MaxPrice: 100},
}

var (
	productSizes   = []string{"小份", "标准", "家庭装", "派对装", "礼盒装"}
	productFlavors = []string{"原味", "香辣", "海苔", "芝士", "五香", "咖喱", "酱香", "甜辣", "麻辣", "清淡"}

	roomThemes = []string{
		"深夜食堂 - 宵夜美食汇",
		"环球零食发现之旅",
		"健康轻食料理坊",
		"烘焙甜蜜时光屋",
		"妈妈的味道 - 家常菜精选",
	}
	hostNames = []string{
		"食神小当家",
		"味蕾探险家Alice",
		"美食达人小K",
		"烹饪大师阿福",
		"甜点魔法师Lila",
	}
)

const (
	minProductsPerRoom = 3
	maxProductsPerRoom = 6
	minInitialViewers  = 1000
	maxInitialViewers  = 10000
	minInitialCR       = 0.01
	maxInitialCR       = 0.05
	minInitialStock    = 100
	maxInitialStock    = 1000
)

// Generator 初始直播间与商品生成器
type Generator struct {
	rng   Rand
	clock func() time.Time
}

// NewGenerator 创建生成器
func NewGenerator(rng Rand, clock func() time.Time) *Generator {
	if clock == nil {
		clock = time.Now
	}
	return &Generator{rng: rng, clock: clock}
}

// CreateRooms 生成全部主题直播间
func (g *Generator) CreateRooms() []*models.Room {
	rooms := make([]*models.Room, 0, len(roomThemes))
	now := g.clock()

	for i := range roomThemes {
		count := randInt(g.rng, minProductsPerRoom, maxProductsPerRoom)
		products := make([]models.Product, 0, count)
		for j := 0; j < count; j++ {
			products = append(products, g.CreateProduct(fmt.Sprintf("prod_%d_%d", i+1, j+1), ""))
		}

		room := &models.Room{
			ID:             fmt.Sprintf("room_%d", i+1),
			Name:           roomThemes[i],
			HostName:       hostNames[i],
			Viewers:        randInt(g.rng, minInitialViewers, maxInitialViewers),
			ConversionRate: uniform(g.rng, minInitialCR, maxInitialCR),
			HealthStatus:   models.HealthGreen,
			Products:       products,
			StartTime:      now,
		}
		rooms = append(rooms, room)
	}

	return rooms
}

// CreateProduct 生成单个商品, categoryHint 不在品类表中时随机选择品类
func (g *Generator) CreateProduct(id, categoryHint string) models.Product {
	category, ok := lookupCategory(categoryHint)
	if !ok {
		category = productCategories[g.rng.Intn(len(productCategories))]
	}

	price := uniform(g.rng, category.MinPrice, category.MaxPrice)
	originalPrice := price * uniform(g.rng, 1.1, 1.3)
	stock := randInt(g.rng, minInitialStock, maxInitialStock)

	return models.Product{
		ID:            id,
		Name:          choice(g.rng, category.Names),
		Price:         roundCents(price),
		OriginalPrice: roundCents(originalPrice),
		Stock:         stock,
		InitialStock:  stock,
		Size:          choice(g.rng, productSizes),
		Color:         choice(g.rng, productFlavors),
		StockStatus:   models.StockSufficient,
	}
}

func lookupCategory(key string) (productCategory, bool) {
	for _, c := range productCategories {
		if c.Key == key {
			return c, true
		}
	}
	return productCategory{}, false
}

func roundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
