package job

import (
	"context"
	"sync"
	"time"

	"pawnshop/internal/config"
	"pawnshop/internal/infrastructure/metrics"
	"pawnshop/internal/infrastructure/mq"
	"pawnshop/internal/model"
	"pawnshop/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OutboxSender 轮询 outbox 表，把待发送事件投递到 Kafka。
// 投递至少一次：发送成功但标记失败时，下一轮会重发。
type OutboxSender struct {
	outboxRepo *repository.OutboxRepository
	publisher  mq.Publisher
	log        *zap.Logger
	stopCh     chan struct{}
	stopOnce   sync.Once
	interval   time.Duration
	batchSize  int
	maxRetry   int
}

func NewOutboxSender(db *gorm.DB, publisher mq.Publisher, cfg *config.Config, log *zap.Logger) *OutboxSender {
	return &OutboxSender{
		outboxRepo: repository.NewOutboxRepository(db),
		publisher:  publisher,
		log:        log.Named("outbox"),
		stopCh:     make(chan struct{}),
		interval:   cfg.Business.OutboxInterval(),
		batchSize:  cfg.Business.OutboxBatchSize,
		maxRetry:   cfg.Business.MaxRetryCount,
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	s.log.Info("消息发送任务启动", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("收到停止信号，任务退出")
			return
		case <-s.stopCh:
			s.log.Info("任务停止")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// processPendingMessages relays one batch and returns how many were sent.
func (s *OutboxSender) processPendingMessages(ctx context.Context) int {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		s.log.Error("查询消息失败", zap.Error(err))
		return 0
	}

	sent := 0
	for _, msg := range messages {
		if ctx.Err() != nil {
			break
		}
		if s.sendMessage(ctx, msg) {
			sent++
		}
	}
	return sent
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) bool {
	fields := []zap.Field{
		zap.Int64("id", msg.ID),
		zap.String("topic", msg.Topic),
		zap.String("event_type", msg.EventType),
		zap.String("key", msg.MessageKey),
	}

	err := s.publisher.Publish(msg.Topic, msg.MessageKey, msg.Payload)
	if err == nil {
		metrics.OutboxPublished.WithLabelValues("sent").Inc()
		if updateErr := s.outboxRepo.MarkSent(ctx, msg.ID); updateErr != nil {
			s.log.Error("更新消息状态失败", append(fields, zap.Error(updateErr))...)
			return true
		}
		s.log.Debug("消息发送成功", fields...)
		return true
	}

	s.log.Warn("消息发送失败", append(fields, zap.Int("retry_count", msg.RetryCount), zap.Error(err))...)
	if err := s.outboxRepo.RecordFailure(ctx, msg, s.maxRetry); err != nil {
		s.log.Error("记录重试次数失败", append(fields, zap.Error(err))...)
		return false
	}
	if msg.Status == model.OutboxStatusFailed {
		metrics.OutboxPublished.WithLabelValues("failed").Inc()
		s.log.Error("消息超过最大重试次数，标记为失败", append(fields, zap.Int("retry_count", msg.RetryCount))...)
	} else {
		metrics.OutboxPublished.WithLabelValues("retry").Inc()
	}
	return false
}
