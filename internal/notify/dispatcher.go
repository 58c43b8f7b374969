package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type task struct {
	name string
	fn   func(ctx context.Context) error
}

// Dispatcher 尽力而为的异步任务执行器：请求路径只入队不等待，
// 失败只进日志，绝不回传给发起方。
type Dispatcher struct {
	log     *zap.Logger
	tasks   chan task
	wg      sync.WaitGroup
	timeout time.Duration

	mu     sync.Mutex
	closed bool
}

func NewDispatcher(log *zap.Logger, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}
	d := &Dispatcher{
		log:     log,
		tasks:   make(chan task, queueSize),
		timeout: 30 * time.Second,
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for t := range d.tasks {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := t.fn(ctx); err != nil {
			d.log.Warn("async task failed", zap.String("task", t.name), zap.Error(err))
		}
		cancel()
	}
}

// Go 非阻塞入队；队列满时丢弃并告警，宁丢通知不拖慢请求
func (d *Dispatcher) Go(name string, fn func(ctx context.Context) error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.log.Warn("async task dropped, dispatcher closed", zap.String("task", name))
		return
	}
	d.mu.Unlock()

	select {
	case d.tasks <- task{name: name, fn: fn}:
	default:
		d.log.Warn("async task dropped, queue full", zap.String("task", name))
	}
}

// Close 排空队列后返回
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()
	close(d.tasks)
	d.wg.Wait()
}
