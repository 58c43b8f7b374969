package notify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestDispatcherRunsTasks(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), 8)

	var n int32
	for i := 0; i < 5; i++ {
		d.Go("count", func(ctx context.Context) error {
			atomic.AddInt32(&n, 1)
			return nil
		})
	}
	d.Close() // 排空队列

	assert.Equal(t, int32(5), atomic.LoadInt32(&n))
}

func TestDispatcherTaskFailureDoesNotStopOthers(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), 8)

	var n int32
	d.Go("fail", func(ctx context.Context) error { return errors.New("smtp down") })
	d.Go("ok", func(ctx context.Context) error {
		atomic.AddInt32(&n, 1)
		return nil
	})
	d.Close()

	assert.Equal(t, int32(1), atomic.LoadInt32(&n))
}

func TestDispatcherDropsAfterClose(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), 8)
	d.Close()

	var n int32
	assert.NotPanics(t, func() {
		d.Go("late", func(ctx context.Context) error {
			atomic.AddInt32(&n, 1)
			return nil
		})
	})
	assert.Equal(t, int32(0), atomic.LoadInt32(&n))

	// 重复 Close 幂等
	assert.NotPanics(t, func() { d.Close() })
}
