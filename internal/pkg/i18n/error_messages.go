// File: internal/pkg/i18n/error_messages.go
package i18n

import (
	"rpgwar-self/internal/pkg/xerrors"

	"golang.org/x/text/language"
)

// ErrorMessages 错误消息的多语言映射
// 游戏面向俄语用户，频道文案以俄语为主，中文/英文供后台与日志使用。
var ErrorMessages = map[xerrors.ErrorCode]map[language.Tag]string{
	xerrors.CodeSuccess:           {language.Chinese: "操作成功", language.English: "Operation successful", language.Russian: "Успешно"},
	xerrors.CodeInternalError:     {language.Chinese: "内部服务错误", language.English: "Internal server error", language.Russian: "Внутренняя ошибка"},
	xerrors.CodeInvalidParams:     {language.Chinese: "参数错误", language.English: "Invalid parameters", language.Russian: "Неверные параметры"},
	xerrors.CodeInvalidRequest:    {language.Chinese: "请求格式错误", language.English: "Invalid request format", language.Russian: "Неверный формат запроса"},
	xerrors.CodeResourceNotFound:  {language.Chinese: "资源不存在", language.English: "Resource not found", language.Russian: "Не найдено"},
	xerrors.CodeDuplicateResource: {language.Chinese: "资源已存在", language.English: "Resource already exists", language.Russian: "Уже существует"},

	xerrors.CodeUserNotFound:   {language.Chinese: "用户不存在", language.English: "User not found", language.Russian: "Игрок не найден"},
	xerrors.CodeMonsterMissing: {language.Chinese: "怪物模板不存在", language.English: "Monster template not found", language.Russian: "Монстр не найден"},

	xerrors.CodeBattleNotFound:  {language.Chinese: "战斗会话不存在", language.English: "Battle session not found", language.Russian: "Бой не найден"},
	xerrors.CodeWrongPhase:      {language.Chinese: "当前阶段不接受该类型的选择", language.English: "Choice not accepted in current phase", language.Russian: "Сейчас нельзя сделать этот выбор"},
	xerrors.CodeStaleRound:      {language.Chinese: "本回合已提交过选择", language.English: "Choice already submitted this round", language.Russian: "Выбор уже сделан в этом раунде"},
	xerrors.CodeBattleFinished:  {language.Chinese: "战斗已结束", language.English: "Battle already finished", language.Russian: "Бой уже завершён"},
	xerrors.CodeNotInBattle:     {language.Chinese: "不是该战斗的参与者", language.English: "Not a participant of this battle", language.Russian: "Вы не участник этого боя"},
	xerrors.CodeParticipantDead: {language.Chinese: "参与者已阵亡", language.English: "Participant is dead", language.Russian: "Участник погиб"},
	xerrors.CodeDuplicateBattle: {language.Chinese: "该对战双方已有进行中的战斗", language.English: "An active battle already exists for this pair", language.Russian: "Бой уже идёт"},
	xerrors.CodeBattleConflict:  {language.Chinese: "回合已结算，提交过期", language.English: "Round already resolved, submission stale", language.Russian: "Раунд уже рассчитан"},

	xerrors.CodeWarNotFound:      {language.Chinese: "战争不存在", language.English: "War not found", language.Russian: "Война не найдена"},
	xerrors.CodeWarNotScheduled:  {language.Chinese: "战争不在可开始状态", language.English: "War is not in scheduled state", language.Russian: "Война не запланирована"},
	xerrors.CodeWarLocked:        {language.Chinese: "战争正在结算中", language.English: "War resolution in progress", language.Russian: "Война уже рассчитывается"},
	xerrors.CodeWarBlockedAction: {language.Chinese: "战争期间该操作被禁止", language.English: "Action blocked during war", language.Russian: "Действие недоступно во время войны"},
	xerrors.CodeWarSquadSealed:   {language.Chinese: "战争已开始，部队不可变更", language.English: "Squads are sealed once the war is active", language.Russian: "Отряды уже зафиксированы"},
	xerrors.CodeWarAlreadyJoined: {language.Chinese: "已加入该战争", language.English: "Already joined this war", language.Russian: "Вы уже участвуете в этой войне"},
}

// GetErrorMessage 获取错误码的本地化消息，没有对应语言时回落到默认文案
func GetErrorMessage(code xerrors.ErrorCode, lang language.Tag) string {
	if byLang, ok := ErrorMessages[code]; ok {
		if msg, ok := byLang[lang]; ok {
			return msg
		}
		if msg, ok := byLang[language.English]; ok {
			return msg
		}
	}
	return code.Message()
}
