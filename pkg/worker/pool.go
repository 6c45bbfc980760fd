package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hieplh/ata-sample-webapp/pkg/metrics"
)

// ErrPoolClosed 任务池已关闭
var ErrPoolClosed = errors.New("worker pool closed")

// ErrQueueFull 队列已满
var ErrQueueFull = errors.New("worker queue full")

// Task 后台任务
type Task struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Pool 固定大小的后台任务池
// 提交在事务提交之后的邮件发送、身份服务同步等任务；失败只记录日志
type Pool struct {
	queue   chan Task
	logger  *zap.Logger
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPool 创建并启动任务池
func NewPool(size, queueSize int, taskTimeout time.Duration, logger *zap.Logger) *Pool {
	if size <= 0 {
		size = 4
	}
	if queueSize <= 0 {
		queueSize = 100
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		queue:   make(chan Task, queueSize),
		logger:  logger,
		timeout: taskTimeout,
		ctx:     ctx,
		cancel:  cancel,
	}

	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.run(i)
	}

	logger.Info("后台任务池已启动", zap.Int("workers", size), zap.Int("queue_size", queueSize))
	return p
}

func (p *Pool) run(id int) {
	defer p.wg.Done()
	for task := range p.queue {
		p.execute(id, task)
	}
}

func (p *Pool) execute(id int, task Task) {
	ctx := p.ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(p.ctx, p.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			metrics.BackgroundTasksTotal.WithLabelValues(task.Name, "panic").Inc()
			p.logger.Error("后台任务 panic", zap.String("task", task.Name), zap.Any("panic", r))
		}
	}()

	err := task.Fn(ctx)
	metrics.BackgroundTasksTotal.WithLabelValues(task.Name, metrics.Result(err)).Inc()
	if err != nil {
		p.logger.Error("后台任务执行失败",
			zap.Int("worker_id", id),
			zap.String("task", task.Name),
			zap.Error(err),
		)
		return
	}
	p.logger.Debug("后台任务完成", zap.Int("worker_id", id), zap.String("task", task.Name))
}

// Submit 非阻塞提交任务，队列满或已关闭时返回错误
func (p *Pool) Submit(name string, fn func(ctx context.Context) error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.queue <- Task{Name: name, Fn: fn}:
		return nil
	default:
		p.logger.Warn("后台任务队列已满，任务被丢弃", zap.String("task", name))
		return ErrQueueFull
	}
}

// Shutdown 停止接收新任务并等待队列排空
// ctx 到期后取消仍在执行的任务
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.logger.Info("后台任务池已关闭")
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}
