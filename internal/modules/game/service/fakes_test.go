package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"rpgwar-self/internal/entity/game_runtime"
	"rpgwar-self/internal/pkg/config"
	"rpgwar-self/internal/pkg/log"
	"rpgwar-self/internal/pkg/xerrors"
	"rpgwar-self/internal/repository/entity"
	"rpgwar-self/internal/repository/interfaces"
	"rpgwar-self/internal/repository/query"
)

// 单元测试用的内存仓储替身。
// 读写都经过 JSON 深拷贝，模拟数据库的"读到的是快照"语义，
// 避免服务层原地修改悄悄穿透到存储。

func cloneSession(s *game_runtime.BattleSession) *game_runtime.BattleSession {
	data, _ := json.Marshal(s)
	var out game_runtime.BattleSession
	_ = json.Unmarshal(data, &out)
	if out.Pending == nil {
		out.Pending = make(map[string]*game_runtime.RoundChoice)
	}
	return &out
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*game_runtime.BattleSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*game_runtime.BattleSession)}
}

func (f *fakeSessionRepo) Create(_ context.Context, session *game_runtime.BattleSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.ID] = cloneSession(session)
	return nil
}

func (f *fakeSessionRepo) GetByID(_ context.Context, id string) (*game_runtime.BattleSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, xerrors.New(xerrors.CodeBattleNotFound, "").WithBattle(id)
	}
	return cloneSession(s), nil
}

func (f *fakeSessionRepo) Update(_ context.Context, session *game_runtime.BattleSession, expectedRound int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.sessions[session.ID]
	if !ok {
		return xerrors.New(xerrors.CodeBattleNotFound, "").WithBattle(session.ID)
	}
	if stored.Round != expectedRound || stored.Finished() {
		return xerrors.New(xerrors.CodeBattleConflict, "").WithBattle(session.ID)
	}
	f.sessions[session.ID] = cloneSession(session)
	return nil
}

func (f *fakeSessionRepo) FindActiveByPair(_ context.Context, pairKey string) (*game_runtime.BattleSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.PairKey() == pairKey && !s.Finished() {
			return cloneSession(s), nil
		}
	}
	return nil, nil
}

type rewardCall struct {
	userID string
	exp    int64
	money  int64
}

type fakeUserRepo struct {
	users        map[string]*entity.User
	rewards      []rewardCall
	restoredIDs  []string
	restoreCalls int
}

func newFakeUserRepo(users ...*entity.User) *fakeUserRepo {
	m := make(map[string]*entity.User, len(users))
	for _, u := range users {
		m[u.ID] = u
	}
	return &fakeUserRepo{users: m}
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, xerrors.New(xerrors.CodeUserNotFound, "").WithUser(id)
	}
	return u, nil
}

func (f *fakeUserRepo) ApplyRewards(_ context.Context, userID string, exp, money int64) error {
	f.rewards = append(f.rewards, rewardCall{userID: userID, exp: exp, money: money})
	return nil
}

func (f *fakeUserRepo) RestoreVitals(_ context.Context, userIDs []string) (int64, error) {
	f.restoreCalls++
	f.restoredIDs = append(f.restoredIDs, userIDs...)
	return int64(len(userIDs)), nil
}

type fakeMonsterRepo struct {
	monster *entity.Monster
}

func (f *fakeMonsterRepo) GetByID(_ context.Context, id string) (*entity.Monster, error) {
	if f.monster == nil || f.monster.ID != id {
		return nil, xerrors.New(xerrors.CodeMonsterMissing, "")
	}
	return f.monster, nil
}

func (f *fakeMonsterRepo) PickForLevel(_ context.Context, _ int) (*entity.Monster, error) {
	if f.monster == nil {
		return nil, xerrors.New(xerrors.CodeMonsterMissing, "")
	}
	return f.monster, nil
}

func cloneWar(w *game_runtime.War) *game_runtime.War {
	data, _ := json.Marshal(w)
	var out game_runtime.War
	_ = json.Unmarshal(data, &out)
	return &out
}

type fakeWarRepo struct {
	mu   sync.Mutex
	wars map[string]*game_runtime.War
	// FinishWar 落地的参战记录快照
	finished map[string][]*game_runtime.WarParticipation
}

func newFakeWarRepo(wars ...*game_runtime.War) *fakeWarRepo {
	f := &fakeWarRepo{
		wars:     make(map[string]*game_runtime.War),
		finished: make(map[string][]*game_runtime.WarParticipation),
	}
	for _, w := range wars {
		f.wars[w.ID] = cloneWar(w)
	}
	return f
}

func (f *fakeWarRepo) CreateScheduled(_ context.Context, war *game_runtime.War) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.wars {
		if w.DefendingKingdom == war.DefendingKingdom && w.ScheduledTime.Equal(war.ScheduledTime) {
			return false, nil
		}
	}
	f.wars[war.ID] = cloneWar(war)
	return true, nil
}

func (f *fakeWarRepo) GetByID(_ context.Context, id string) (*game_runtime.War, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.wars[id]
	if !ok {
		return nil, xerrors.New(xerrors.CodeWarNotFound, "").WithWar(id)
	}
	return cloneWar(w), nil
}

func (f *fakeWarRepo) ListScheduledInWindow(_ context.Context, from, to time.Time) ([]*game_runtime.War, error) {
	return f.listInWindow(from, to, game_runtime.WarScheduled), nil
}

func (f *fakeWarRepo) ListFinishedInWindow(_ context.Context, from, to time.Time) ([]*game_runtime.War, error) {
	return f.listInWindow(from, to, game_runtime.WarFinished), nil
}

func (f *fakeWarRepo) listInWindow(from, to time.Time, status game_runtime.WarStatus) []*game_runtime.War {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*game_runtime.War
	for _, w := range f.wars {
		if w.Status == status && !w.ScheduledTime.Before(from) && w.ScheduledTime.Before(to) {
			out = append(out, cloneWar(w))
		}
	}
	return out
}

func (f *fakeWarRepo) MarkRestored(_ context.Context, warID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.wars[warID]
	if !ok || w.RestoredAt != nil {
		return false, nil
	}
	at := time.Now()
	w.RestoredAt = &at
	return true, nil
}

func (f *fakeWarRepo) ListHistory(_ context.Context, q query.WarQuery) ([]*game_runtime.War, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*game_runtime.War
	for _, w := range f.wars {
		if q.Kingdom != "" && w.DefendingKingdom != q.Kingdom && !contains(w.AttackingKingdoms, q.Kingdom) {
			continue
		}
		if q.Status != "" && w.Status != q.Status {
			continue
		}
		if q.ScheduledAfter != nil && w.ScheduledTime.Before(*q.ScheduledAfter) {
			continue
		}
		out = append(out, cloneWar(w))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledTime.After(out[j].ScheduledTime) })
	return out, nil
}

func (f *fakeWarRepo) FindCurrentByKingdom(_ context.Context, kingdom string) (*game_runtime.War, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.wars {
		if w.DefendingKingdom == kingdom && w.Status != game_runtime.WarFinished {
			return cloneWar(w), nil
		}
	}
	return nil, nil
}

func (f *fakeWarRepo) MarkActive(_ context.Context, warID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.wars[warID]
	if !ok || w.Status != game_runtime.WarScheduled {
		return false, nil
	}
	w.Status = game_runtime.WarActive
	started := at
	w.StartedAt = &started
	return true, nil
}

func (f *fakeWarRepo) FinishWar(_ context.Context, war *game_runtime.War, participations []*game_runtime.WarParticipation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.wars[war.ID]
	if !ok {
		return xerrors.New(xerrors.CodeWarNotFound, "").WithWar(war.ID)
	}
	if stored.Status == game_runtime.WarFinished {
		return xerrors.New(xerrors.CodeWarLocked, "").WithWar(war.ID)
	}
	war.Status = game_runtime.WarFinished
	f.wars[war.ID] = cloneWar(war)
	var copies []*game_runtime.WarParticipation
	for _, p := range participations {
		cp := *p
		copies = append(copies, &cp)
	}
	f.finished[war.ID] = copies
	return nil
}

type fakePartRepo struct {
	mu      sync.Mutex
	records []*game_runtime.WarParticipation
	// ListByUserUnfinished 的注入结果
	unfinished map[string][]*interfaces.ParticipationWithWar
}

func newFakePartRepo() *fakePartRepo {
	return &fakePartRepo{unfinished: make(map[string][]*interfaces.ParticipationWithWar)}
}

func (f *fakePartRepo) Create(_ context.Context, p *game_runtime.WarParticipation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.WarID == p.WarID && r.UserID == p.UserID {
			return xerrors.New(xerrors.CodeWarAlreadyJoined, "").WithWar(p.WarID).WithUser(p.UserID)
		}
	}
	cp := *p
	f.records = append(f.records, &cp)
	return nil
}

func (f *fakePartRepo) ListByWar(_ context.Context, warID string) ([]*game_runtime.WarParticipation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*game_runtime.WarParticipation
	for _, r := range f.records {
		if r.WarID == warID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakePartRepo) ListByUserUnfinished(_ context.Context, userID string) ([]*interfaces.ParticipationWithWar, error) {
	return f.unfinished[userID], nil
}

type fakeLocker struct {
	held     map[string]bool
	acquires []string
	releases int
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (f *fakeLocker) Acquire(_ context.Context, warID string, _ time.Duration) (func(), bool, error) {
	if f.held[warID] {
		return func() {}, false, nil
	}
	f.held[warID] = true
	f.acquires = append(f.acquires, warID)
	return func() {
		f.held[warID] = false
		f.releases++
	}, true, nil
}

// testGameConfig 固定的测试配置，与缺省配置一致但不读环境变量。
func testGameConfig() *config.GameConfig {
	return &config.GameConfig{
		MaxRounds:           10,
		RoundTimeout:        30 * time.Second,
		AttackPower:         3.0,
		Timezone:            "Asia/Tashkent",
		WarSlots:            []int{8, 13, 18},
		PreWarOffset:        30 * time.Minute,
		RestoreDelay:        5 * time.Minute,
		ImminentWindow:      30 * time.Minute,
		DefenseBuff:         1.2,
		AttackWinRatio:      1.5,
		WarBaseMoney:        1000,
		WarBaseExp:          500,
		BattleExpPerLevel:   25,
		BattleMoneyPerLevel: 10,
	}
}

func testLogger() log.Logger {
	return log.GetLogger()
}
