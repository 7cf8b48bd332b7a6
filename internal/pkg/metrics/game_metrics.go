// File: internal/pkg/metrics/game_metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// GameMetrics 战斗与战争核心指标收集器
type GameMetrics struct {
	// 已结算回合数
	RoundsResolvedTotal prometheus.Counter

	// 已结束战斗数（按结果分组：victory/draw/timeout）
	BattlesFinishedTotal *prometheus.CounterVec

	// 已结算战争数（按胜方角色分组：attacker/defender）
	WarsFinishedTotal *prometheus.CounterVec

	// 调度触发失败数（按触发类型分组：prewar/start/restore/rollforward）
	WarTriggerFailuresTotal *prometheus.CounterVec

	// 战争结算耗时直方图
	WarResolutionDuration prometheus.Histogram
}

// DefaultGameMetrics 默认的游戏指标实例
var DefaultGameMetrics *GameMetrics

// warResolutionBuckets 战争结算预期在亚秒到数秒之间
var warResolutionBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

func init() {
	DefaultGameMetrics = NewGameMetrics("rpgwar")
}

// NewGameMetrics 创建游戏指标收集器
func NewGameMetrics(namespace string) *GameMetrics {
	factory := promauto.With(GetRegisterer())
	return &GameMetrics{
		RoundsResolvedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "battle_rounds_resolved_total",
			Help:      "累计结算的战斗回合数",
		}),
		BattlesFinishedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "battles_finished_total",
			Help:      "累计结束的战斗会话数",
		}, []string{"outcome"}),
		WarsFinishedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wars_finished_total",
			Help:      "累计结算的王国战争数",
		}, []string{"winner_role"}),
		WarTriggerFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "war_trigger_failures_total",
			Help:      "战争调度触发失败数",
		}, []string{"trigger"}),
		WarResolutionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "war_resolution_duration_seconds",
			Help:      "单场战争结算耗时",
			Buckets:   warResolutionBuckets,
		}),
	}
}

// ObserveWarResolution 记录一次战争结算
func (m *GameMetrics) ObserveWarResolution(winnerRole string, duration time.Duration) {
	m.WarsFinishedTotal.WithLabelValues(winnerRole).Inc()
	m.WarResolutionDuration.Observe(duration.Seconds())
}

// RecordBattleFinished 记录一场战斗结束
func (m *GameMetrics) RecordBattleFinished(outcome string) {
	m.BattlesFinishedTotal.WithLabelValues(outcome).Inc()
}

// RecordTriggerFailure 记录一次调度触发失败
func (m *GameMetrics) RecordTriggerFailure(trigger string) {
	m.WarTriggerFailuresTotal.WithLabelValues(trigger).Inc()
}
