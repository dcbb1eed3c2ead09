package job

import (
	"context"
	"sync"
	"time"

	"pawnshop/internal/service"

	"go.uber.org/zap"
)

// OverdueSweeper is the part of the contract service the sweep job drives.
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context) (*service.SweepResult, error)
}

// ExclusiveRunner runs fn only when no other instance holds the same lock.
type ExclusiveRunner interface {
	RunExclusive(ctx context.Context, fn func(ctx context.Context) error) (bool, error)
}

// OverdueSweepJob 定时把过了到期日的 active/extended 合同标记为 overdue。
// 多实例部署时靠 Redis 锁保证同一时刻只有一个实例在扫。
type OverdueSweepJob struct {
	sweeper  OverdueSweeper
	lock     ExclusiveRunner
	log      *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
	interval time.Duration
}

func NewOverdueSweepJob(sweeper OverdueSweeper, lock ExclusiveRunner, interval time.Duration, log *zap.Logger) *OverdueSweepJob {
	return &OverdueSweepJob{
		sweeper:  sweeper,
		lock:     lock,
		log:      log.Named("overdue-sweep"),
		stopCh:   make(chan struct{}),
		interval: interval,
	}
}

// Start sweeps once right away, then on every tick.
func (j *OverdueSweepJob) Start(ctx context.Context) {
	j.log.Info("逾期扫描任务启动", zap.Duration("interval", j.interval))
	j.runOnce(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info("收到停止信号，任务退出")
			return
		case <-j.stopCh:
			j.log.Info("任务停止")
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *OverdueSweepJob) Stop() {
	j.stopOnce.Do(func() { close(j.stopCh) })
}

// runOnce reports whether this instance ran the sweep.
func (j *OverdueSweepJob) runOnce(ctx context.Context) bool {
	ran, err := j.lock.RunExclusive(ctx, func(ctx context.Context) error {
		_, err := j.sweeper.SweepOverdue(ctx)
		return err
	})
	if err != nil {
		j.log.Error("逾期扫描失败", zap.Error(err))
		return ran
	}
	if !ran {
		j.log.Debug("其他实例正在扫描，本轮跳过")
	}
	return ran
}
