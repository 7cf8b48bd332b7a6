// File: internal/pkg/xerrors/codes.go
package xerrors

import "fmt"

// ErrorCode 错误码类型（类型安全）
type ErrorCode int

// IsValid 检查错误码是否在预定义列表中
func (c ErrorCode) IsValid() bool {
	_, exists := codeMessages[c]
	return exists
}

// String 返回错误码的字符串表示
func (c ErrorCode) String() string {
	if msg, ok := codeMessages[c]; ok {
		return fmt.Sprintf("%d (%s)", c, msg)
	}
	return fmt.Sprintf("%d (未定义的错误码)", c)
}

// Message 返回错误码对应的消息
func (c ErrorCode) Message() string {
	if msg, ok := codeMessages[c]; ok {
		return msg
	}
	return "未知错误"
}

// ToInt 转换为 int（用于 JSON 序列化等场景）
func (c ErrorCode) ToInt() int {
	return int(c)
}

// -----------------------------------------------------------------------------
// 业务错误码统一定义
// 按模块或领域对错误码进行分段，便于管理。
// -----------------------------------------------------------------------------
const (
	// 1xxxxx: 通用错误码
	CodeSuccess           ErrorCode = 100000 // 操作成功
	CodeInternalError     ErrorCode = 100001 // 内部服务错误
	CodeInvalidParams     ErrorCode = 100002 // 参数错误
	CodeInvalidRequest    ErrorCode = 100003 // 请求格式错误
	CodeResourceNotFound  ErrorCode = 100404 // 资源不存在
	CodeDuplicateResource ErrorCode = 100409 // 资源已存在

	// 4xxxxx: 用户相关错误码
	CodeUserNotFound   ErrorCode = 400001 // 用户不存在
	CodeMonsterMissing ErrorCode = 400002 // 怪物模板不存在

	// 6xxxxx: 战斗相关错误码
	CodeBattleNotFound    ErrorCode = 600001 // 战斗会话不存在
	CodeWrongPhase        ErrorCode = 600002 // 当前阶段不接受该选择
	CodeStaleRound        ErrorCode = 600003 // 本回合已提交过选择
	CodeBattleFinished    ErrorCode = 600004 // 战斗已结束
	CodeNotInBattle       ErrorCode = 600005 // 不是该战斗的参与者
	CodeParticipantDead   ErrorCode = 600006 // 参与者已阵亡
	CodeDuplicateBattle   ErrorCode = 600007 // 该对战双方已有进行中的战斗
	CodeBattleConflict    ErrorCode = 600008 // 回合已结算，提交过期
	CodeBattleStoreFailed ErrorCode = 600009 // 战斗状态持久化失败

	// 7xxxxx: 王国战争相关错误码
	CodeWarNotFound      ErrorCode = 700001 // 战争不存在
	CodeWarNotScheduled  ErrorCode = 700002 // 战争不在 scheduled 状态
	CodeWarLocked        ErrorCode = 700003 // 战争正在结算中
	CodeWarBlockedAction ErrorCode = 700004 // 战争期间该操作被禁止
	CodeWarSquadSealed   ErrorCode = 700005 // 战争已开始，部队不可变更
	CodeWarAlreadyJoined ErrorCode = 700006 // 已加入该战争
	CodeWarScheduleError ErrorCode = 700007 // 战争调度执行失败
)

// codeMessages 错误码默认文案
var codeMessages = map[ErrorCode]string{
	CodeSuccess:           "操作成功",
	CodeInternalError:     "内部服务错误",
	CodeInvalidParams:     "参数错误",
	CodeInvalidRequest:    "请求格式错误",
	CodeResourceNotFound:  "资源不存在",
	CodeDuplicateResource: "资源已存在",

	CodeUserNotFound:   "用户不存在",
	CodeMonsterMissing: "怪物模板不存在",

	CodeBattleNotFound:    "战斗会话不存在",
	CodeWrongPhase:        "当前阶段不接受该类型的选择",
	CodeStaleRound:        "本回合已提交过选择",
	CodeBattleFinished:    "战斗已结束",
	CodeNotInBattle:       "不是该战斗的参与者",
	CodeParticipantDead:   "参与者已阵亡",
	CodeDuplicateBattle:   "该对战双方已有进行中的战斗",
	CodeBattleConflict:    "回合已结算，提交过期",
	CodeBattleStoreFailed: "战斗状态持久化失败",

	CodeWarNotFound:      "战争不存在",
	CodeWarNotScheduled:  "战争不在可开始状态",
	CodeWarLocked:        "战争正在结算中",
	CodeWarBlockedAction: "战争期间该操作被禁止",
	CodeWarSquadSealed:   "战争已开始，部队不可变更",
	CodeWarAlreadyJoined: "已加入该战争",
	CodeWarScheduleError: "战争调度执行失败",
}
