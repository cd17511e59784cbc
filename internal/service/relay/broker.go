// broker.go
// 核心职责：广播消息的投递通道抽象
// 单机部署走进程内 channel，多实例部署走 Kafka，
// 两种模式由配置 kafkaConfig.messageMode 决定，对事件处理层透明
package relay

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"weitalk_relay_server/pkg/constants"
)

// 广播范围
const (
	ScopeChat   = "chat"   // 发给会话房间内的连接
	ScopeGlobal = "global" // 发给所有已认证的连接
)

// BroadcastEnvelope 一条待广播的事件
// ExcludeConnId 用于排除发起方自己的连接（如输入状态、已读回执），
// 为空则不排除任何连接
type BroadcastEnvelope struct {
	Scope         string          `json:"scope"`
	ChatId        string          `json:"chat_id,omitempty"`
	ExcludeConnId string          `json:"exclude_conn_id,omitempty"`
	Event         string          `json:"event"`
	Data          json.RawMessage `json:"data"`
}

// Broker 广播投递通道
type Broker interface {
	// Publish 投递一条广播，由消费侧下发到目标连接
	Publish(ctx context.Context, envelope *BroadcastEnvelope) error
	// Start 启动消费循环
	Start()
	// Close 停止消费并释放资源
	Close()
}

// ChannelBroker 进程内的 channel 投递实现
type ChannelBroker struct {
	server   *Server
	transmit chan *BroadcastEnvelope
	done     chan struct{}
}

// NewChannelBroker 创建 channel 模式的投递通道
func NewChannelBroker(server *Server) *ChannelBroker {
	return &ChannelBroker{
		server:   server,
		transmit: make(chan *BroadcastEnvelope, constants.CHANNEL_SIZE),
		done:     make(chan struct{}),
	}
}

// Publish 投递广播，通道满时丢弃并告警，不阻塞事件处理
func (b *ChannelBroker) Publish(_ context.Context, envelope *BroadcastEnvelope) error {
	select {
	case b.transmit <- envelope:
	default:
		zap.L().Warn("广播通道已满，丢弃消息",
			zap.String("event", envelope.Event),
			zap.String("chat_id", envelope.ChatId))
	}
	return nil
}

// Start 启动消费循环
func (b *ChannelBroker) Start() {
	go func() {
		for {
			select {
			case envelope := <-b.transmit:
				b.server.Deliver(envelope)
			case <-b.done:
				return
			}
		}
	}()
}

// Close 停止消费循环
func (b *ChannelBroker) Close() {
	close(b.done)
}
