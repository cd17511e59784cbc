// kafka_broker.go
// 核心职责：多实例部署时经由 Kafka 的广播投递
// 每个实例用独立的 GroupID 消费同一 topic，保证所有实例
// 都能收到全量广播并下发给本地连接
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"weitalk_relay_server/internal/config"
)

// KafkaBroker Kafka 模式的投递实现
type KafkaBroker struct {
	writer *kafka.Writer
	reader *kafka.Reader
	server *Server
	cancel context.CancelFunc
}

// NewKafkaBroker 创建 Kafka 模式的投递通道
func NewKafkaBroker(server *Server) *KafkaBroker {
	kafkaConfig := config.GetConfig().KafkaConfig

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(kafkaConfig.HostPort),
		Topic:                  kafkaConfig.BroadcastTopic,
		Balancer:               &kafka.Hash{},
		WriteTimeout:           kafkaConfig.Timeout * time.Second,
		RequiredAcks:           kafka.RequireNone,
		AllowAutoTopicCreation: true,
	}
	// 广播需要到达每个实例，GroupID 必须实例唯一
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{kafkaConfig.HostPort},
		Topic:          kafkaConfig.BroadcastTopic,
		CommitInterval: time.Second,
		GroupID:        "relay_" + uuid.NewString(),
		StartOffset:    kafka.LastOffset,
	})
	return &KafkaBroker{
		writer: writer,
		reader: reader,
		server: server,
	}
}

// Publish 将广播写入 Kafka
func (b *KafkaBroker) Publish(ctx context.Context, envelope *BroadcastEnvelope) error {
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("序列化广播消息失败: %w", err)
	}
	key := envelope.ChatId
	if key == "" {
		key = envelope.Event
	}
	if err := b.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
	}); err != nil {
		return fmt.Errorf("写入 Kafka 失败: %w", err)
	}
	return nil
}

// Start 启动消费循环
func (b *KafkaBroker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	go func() {
		for {
			message, err := b.reader.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
					return
				}
				zap.L().Error("读取 Kafka 消息失败", zap.Error(err))
				continue
			}
			var envelope BroadcastEnvelope
			if err := json.Unmarshal(message.Value, &envelope); err != nil {
				zap.L().Error("解析广播消息失败", zap.Error(err))
				continue
			}
			b.server.Deliver(&envelope)
		}
	}()
}

// Close 停止消费并关闭读写端
func (b *KafkaBroker) Close() {
	if b.cancel != nil {
		b.cancel()
	}
	if err := b.reader.Close(); err != nil {
		zap.L().Error("关闭 Kafka reader 失败", zap.Error(err))
	}
	if err := b.writer.Close(); err != nil {
		zap.L().Error("关闭 Kafka writer 失败", zap.Error(err))
	}
}
