package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
)

var (
	ncMu sync.RWMutex
	nc   *nats.Conn
)

// SetNatsConn 设置全局 NATS 连接（由 main 提供）
func SetNatsConn(conn *nats.Conn) {
	ncMu.Lock()
	defer ncMu.Unlock()
	nc = conn
}

// Default subjects
const (
	SubjectWarPreWar  = "war.prewar"
	SubjectWarSummary = "war.summary"
	SubjectWarRestore = "war.restore"
)

// ChannelMessage 发往频道的文本消息
type ChannelMessage struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

// PublishWarEvent 发布战争相关事件
// 投递是尽力而为：没有连接时静默降级，失败交给调用方记日志。
func PublishWarEvent(ctx context.Context, subject string, payload interface{}) error {
	ncMu.RLock()
	conn := nc
	ncMu.RUnlock()
	if conn == nil {
		return nil // 没有连接时静默降级
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal war event failed: %w", err)
	}
	return conn.Publish(subject, data)
}

// NatsGateway 把频道文本投递包装成 NATS 发布。
type NatsGateway struct {
	subject string
}

// NewNatsGateway 创建战争频道网关
func NewNatsGateway(subject string) *NatsGateway {
	if subject == "" {
		subject = SubjectWarSummary
	}
	return &NatsGateway{subject: subject}
}

// Send 投递一条频道文本
func (g *NatsGateway) Send(ctx context.Context, channel, text string) error {
	return PublishWarEvent(ctx, g.subject, ChannelMessage{Channel: channel, Text: text})
}
