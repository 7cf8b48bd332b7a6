package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rpgwar-self/internal/modules/game/service"
	"rpgwar-self/internal/pkg/log"
	"rpgwar-self/internal/pkg/response"
)

type fakeChecker struct {
	decision *service.BlockDecision
	err      error
	lastUser string
	lastKind string
}

func (f *fakeChecker) CheckBlocked(_ context.Context, userID, actionKind string) (*service.BlockDecision, error) {
	f.lastUser = userID
	f.lastKind = actionKind
	if f.err != nil {
		return nil, f.err
	}
	return f.decision, nil
}

func doRequest(t *testing.T, checker *fakeChecker, actionKind, userID string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	respWriter := response.NewWriter(log.GetLogger())
	mw := NewWarBlockMiddleware(checker, respWriter, log.GetLogger())

	handler := AuthMiddleware(respWriter, log.GetLogger())(
		mw.Require(actionKind)(func(c echo.Context) error {
			return c.String(http.StatusOK, "ok")
		}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	_ = handler(e.NewContext(req, rec))
	return rec
}

// TestWarBlockMiddleware_Blocked 测试封锁动作返回 403
func TestWarBlockMiddleware_Blocked(t *testing.T) {
	checker := &fakeChecker{decision: &service.BlockDecision{
		Blocked:          true,
		WarID:            "war-1",
		DefendingKingdom: "north",
		ScheduledTime:    time.Now(),
		Reason:           "战争进行中",
	}}

	rec := doRequest(t, checker, "shop_menu", "u1")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "u1", checker.lastUser)
	assert.Equal(t, "shop_menu", checker.lastKind)
	assert.Contains(t, rec.Body.String(), "战争进行中")
}

// TestWarBlockMiddleware_Allowed 测试未封锁时放行
func TestWarBlockMiddleware_Allowed(t *testing.T) {
	checker := &fakeChecker{decision: &service.BlockDecision{}}

	rec := doRequest(t, checker, "shop_menu", "u1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

// TestWarBlockMiddleware_MissingUser 测试缺少用户身份时被认证中间件拦截
func TestWarBlockMiddleware_MissingUser(t *testing.T) {
	checker := &fakeChecker{decision: &service.BlockDecision{}}

	rec := doRequest(t, checker, "shop_menu", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, checker.lastUser)
}
