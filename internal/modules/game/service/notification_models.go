package service

import (
	"fmt"
	"strings"
	"time"

	"rpgwar-self/internal/entity/game_runtime"
)

// PreWarEvent 开战前通知事件
type PreWarEvent struct {
	WarID            string    `json:"war_id"`
	DefendingKingdom string    `json:"defending_kingdom"`
	ScheduledTime    time.Time `json:"scheduled_time"`
	MinutesLeft      int       `json:"minutes_left"`
}

// WarSummaryEvent 战争结算摘要事件
type WarSummaryEvent struct {
	Result *game_runtime.WarResult `json:"result"`
}

// RestoreEvent 战后恢复事件
type RestoreEvent struct {
	WarID    string `json:"war_id"`
	Restored int64  `json:"restored"`
}

// PreWarNoticeText 开战前通知的频道文本。
func PreWarNoticeText(war *game_runtime.War, minutesLeft int) string {
	return fmt.Sprintf("⚔️ 王国战争即将开始！守方：%s，攻方：%s，%d 分钟后开战。",
		war.DefendingKingdom, strings.Join(war.AttackingKingdoms, "、"), minutesLeft)
}

// WarSummaryText 战争结算的频道文本。
func WarSummaryText(result *game_runtime.WarResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏰 王国战争结束！守方 %s", result.DefendingKingdom)
	if result.WinnerRole == game_runtime.RoleDefender {
		fmt.Fprintf(&b, " 守住了城池！")
	} else {
		fmt.Fprintf(&b, " 被 %s 攻陷！", result.WinningKingdom)
	}
	fmt.Fprintf(&b, "\n攻方战力 %.0f vs 守方战力 %.0f", result.AttackScore, result.DefenseScore)
	if result.MoneyTransferred > 0 {
		fmt.Fprintf(&b, "\n💰 转移金币 %d", result.MoneyTransferred)
	}
	fmt.Fprintf(&b, "\n✨ 分发经验 %d，参战 %d 人", result.ExpDistributed, result.Participants)
	return b.String()
}

// WarSlotSummaryText 同一时段全部战争的合并频道文本，一个时段只发一条。
func WarSlotSummaryText(results []*game_runtime.WarResult) string {
	if len(results) == 1 {
		return WarSummaryText(results[0])
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, WarSummaryText(r))
	}
	return strings.Join(parts, "\n\n")
}

// RestoreNoticeText 战后恢复的频道文本。
func RestoreNoticeText(restored int64) string {
	return fmt.Sprintf("🧪 战争结束，%d 名参战者的生命与法力已恢复。", restored)
}
