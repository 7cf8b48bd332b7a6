package service

import (
	"database/sql"

	"github.com/redis/go-redis/v9"

	"rpgwar-self/internal/pkg/config"
	"rpgwar-self/internal/pkg/log"
	"rpgwar-self/internal/pkg/metrics"
	"rpgwar-self/internal/pkg/warlock"
	"rpgwar-self/internal/repository/impl"
	"rpgwar-self/internal/repository/interfaces"
)

// ServiceContainer 游戏服务容器 - 统一管理所有 Repository 和 Service
// 目的：避免重复创建 Repository，简化依赖注入
type ServiceContainer struct {
	// 所有 Repository（共享实例）
	sessionRepo interfaces.BattleSessionRepository
	warRepo     interfaces.WarRepository
	partRepo    interfaces.WarParticipationRepository
	userRepo    interfaces.UserRepository
	monsterRepo interfaces.MonsterRepository

	// 所有 Service（共享实例）
	BattleService   *BattleService
	WarService      *WarService
	WarBlockService *WarBlockService
}

// NewServiceContainer 创建游戏服务容器。
func NewServiceContainer(
	db *sql.DB,
	redisClient redis.Cmdable,
	cfg *config.GameConfig,
	gameMetrics *metrics.GameMetrics,
	logger log.Logger,
	kingdoms []string,
) *ServiceContainer {
	c := &ServiceContainer{
		sessionRepo: impl.NewBattleSessionRepository(db),
		warRepo:     impl.NewWarRepository(db),
		partRepo:    impl.NewWarParticipationRepository(db),
		userRepo:    impl.NewUserRepository(db),
		monsterRepo: impl.NewMonsterRepository(db),
	}

	c.BattleService = NewBattleService(c.sessionRepo, c.userRepo, c.monsterRepo, cfg, gameMetrics, logger)
	c.WarService = NewWarService(
		c.warRepo, c.partRepo, c.userRepo,
		warlock.NewRedisLocker(redisClient),
		cfg, gameMetrics, logger, kingdoms,
	)
	c.WarBlockService = NewWarBlockService(c.partRepo, cfg)
	return c
}

// UserRepo 暴露共享的用户仓储给需要直写的任务（如战后恢复）。
func (c *ServiceContainer) UserRepo() interfaces.UserRepository {
	return c.userRepo
}
