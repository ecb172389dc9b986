package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/yuqie6/gigledger/internal/service"
)

// Aggregator 每日聚合任务（service.DailyAggregator 实现）
type Aggregator interface {
	Run(ctx context.Context, date string) (*service.AggregateResult, error)
}

var specParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Daily 按 cron 表达式（UTC）触发每日聚合
type Daily struct {
	spec     string
	schedule cron.Schedule
	job      Aggregator
	timeout  time.Duration
}

// NewDaily 解析 cron 表达式；非法表达式直接返回错误
func NewDaily(spec string, job Aggregator) (*Daily, error) {
	schedule, err := specParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("解析调度表达式失败 %q: %w", spec, err)
	}
	return &Daily{spec: spec, schedule: schedule, job: job, timeout: 30 * time.Minute}, nil
}

// Next now 之后的下一次触发时间
func (d *Daily) Next(now time.Time) time.Time {
	return d.schedule.Next(now.UTC())
}

// Run 阻塞直到 ctx 结束；同一时刻只跑一个聚合
func (d *Daily) Run(ctx context.Context) error {
	logger := cron.VerbosePrintfLogger(slogPrintf{})
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithParser(specParser),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	c.Schedule(d.schedule, cron.FuncJob(func() { d.runOnce(ctx) }))

	slog.Info("每日聚合调度已启动", "spec", d.spec, "next", d.Next(time.Now()))
	c.Start()
	<-ctx.Done()

	stopped := c.Stop()
	<-stopped.Done()
	slog.Info("每日聚合调度已停止")
	return nil
}

func (d *Daily) runOnce(parent context.Context) {
	if parent.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, d.timeout)
	defer cancel()

	start := time.Now()
	res, err := d.job.Run(ctx, "")
	if err != nil {
		slog.Error("每日聚合执行失败", "error", err)
		return
	}
	slog.Info("每日聚合执行完成", "date", res.Date, "processed", res.Processed, "skipped", res.Skipped, "failed", res.Failed, "cost", time.Since(start))
}

// slogPrintf 把 cron 内部日志转到 slog
type slogPrintf struct{}

func (slogPrintf) Printf(format string, args ...any) {
	slog.Debug(fmt.Sprintf(format, args...), "component", "cron")
}
