package simulation

import (
	"context"
	"fmt"
	"time"

	"livepulse-service/logger"
	"livepulse-service/models"
)

// DefaultLogLimit 日志查询与新订阅者初始快照的默认条数
const DefaultLogLimit = 50

// Options 模拟器配置
type Options struct {
	Seed         int64
	Policy       *Policy
	Rand         Rand
	Clock        func() time.Time
	Catalog      *Catalog
	HistorySize  int
	TickInterval time.Duration
	RetryBackoff time.Duration
	DrainTimeout time.Duration
	Publisher    Publisher

	// OnTickError tick 失败回调，在引擎协程中调用，不能阻塞
	OnTickError func(err error)
}

// TriggerResult 事件触发结果
type TriggerResult struct {
	Event models.EventDefinition `json:"event"`
	Room  models.Room            `json:"room"`
	Logs  []models.AgentLog      `json:"logs"`
}

// Simulator 组合世界状态、事件目录、效果解析器和 tick 引擎，
// 对外提供事件触发入口和只读查询
type Simulator struct {
	world     *World
	catalog   *Catalog
	resolver  *Resolver
	engine    *Engine
	publisher Publisher
	rng       Rand
}

// New 生成初始直播间并创建模拟器
func New(opts Options) *Simulator {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	rng := opts.Rand
	if rng == nil {
		rng = NewRand(opts.Seed)
	}
	policy := DefaultPolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	}
	catalog := opts.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = NopPublisher{}
	}

	rooms := NewGenerator(rng, clock).CreateRooms()
	world := NewWorld(rooms, clock(), opts.HistorySize)

	return &Simulator{
		world:     world,
		catalog:   catalog,
		resolver:  NewResolver(policy, rng, clock),
		publisher: publisher,
		rng:       rng,
		engine: NewEngine(world, publisher, EngineConfig{
			Policy:       policy,
			Rand:         rng,
			Clock:        clock,
			Interval:     opts.TickInterval,
			RetryBackoff: opts.RetryBackoff,
			DrainTimeout: opts.DrainTimeout,
			OnError:      opts.OnTickError,
		}),
	}
}

// Engine tick 引擎
func (s *Simulator) Engine() *Engine {
	return s.engine
}

// World 世界状态
func (s *Simulator) World() *World {
	return s.world
}

// TriggerEvent 在指定直播间触发事件，roomID 为空时随机选择直播间
func (s *Simulator) TriggerEvent(ctx context.Context, eventID, roomID string) (TriggerResult, error) {
	if err := ctx.Err(); err != nil {
		return TriggerResult{}, err
	}

	event, err := s.catalog.Get(eventID)
	if err != nil {
		return TriggerResult{}, err
	}

	var (
		tagged   []models.AgentLog
		room     models.Room
		notFound bool
	)

	s.world.commit(func() func() {
		target := s.pickRoomLocked(roomID)
		if target == nil {
			notFound = true
			return nil
		}

		logs := s.resolver.Apply(event, target, s.world.logs)
		s.world.stats.RefreshInventoryHealth(s.world.rooms)

		tagged = make([]models.AgentLog, len(logs))
		for i, entry := range logs {
			tagged[i] = entry.WithSource(models.SourceTriggeredEvent)
		}

		room = target.Clone()
		rooms := s.world.snapshotLocked()
		stats := s.world.stats
		return func() {
			s.publisher.PublishSnapshot(rooms, stats)
			for _, entry := range tagged {
				s.publisher.PublishLog(entry)
			}
		}
	})

	if notFound {
		return TriggerResult{}, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}

	logger.WithFields(logger.Fields{
		"event": event.ID,
		"room":  room.ID,
		"logs":  len(tagged),
	}).Infof("[Simulator] Event '%s' triggered in room '%s'", event.Name, room.Name)

	return TriggerResult{Event: event, Room: room, Logs: tagged}, nil
}

func (s *Simulator) pickRoomLocked(roomID string) *models.Room {
	if roomID != "" {
		return s.world.index[roomID]
	}
	if len(s.world.rooms) == 0 {
		return nil
	}
	return s.world.rooms[s.rng.Intn(len(s.world.rooms))]
}

// Rooms 当前所有直播间
func (s *Simulator) Rooms() []models.Room {
	return s.world.Rooms()
}

// Room 按 ID 查询直播间
func (s *Simulator) Room(id string) (models.Room, error) {
	room, ok := s.world.Room(id)
	if !ok {
		return models.Room{}, fmt.Errorf("%w: %s", ErrRoomNotFound, id)
	}
	return room, nil
}

// Logs 最近 limit 条日志, limit <= 0 时使用默认值
func (s *Simulator) Logs(limit int) []models.AgentLog {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	return s.world.Logs(limit)
}

// Stats 全局统计
func (s *Simulator) Stats() models.GlobalStats {
	return s.world.Stats()
}

// Events 事件目录
func (s *Simulator) Events() []models.EventDefinition {
	return s.catalog.List()
}

// Bootstrap 新订阅者的初始快照
func (s *Simulator) Bootstrap(logLimit int) Bootstrap {
	if logLimit <= 0 {
		logLimit = DefaultLogLimit
	}
	return s.world.Bootstrap(logLimit)
}
