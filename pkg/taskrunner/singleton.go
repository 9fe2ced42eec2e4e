package taskrunner

import (
	"context"
	"sync"

	coreconfig "github.com/VIER-CognitiveVoice/cvg-connect/core/config"
	"github.com/sirupsen/logrus"
)

var (
	globalPool     *Pool
	globalPoolOnce sync.Once
	globalCancel   context.CancelFunc
)

// GetGlobalPool returns the singleton task pool, starting it on first use.
func GetGlobalPool() *Pool {
	globalPoolOnce.Do(func() {
		var ctx context.Context
		ctx, globalCancel = context.WithCancel(context.Background())

		size := 8
		queue := 250
		if coreconfig.Global != nil {
			if coreconfig.Global.TaskPool.Size > 0 {
				size = coreconfig.Global.TaskPool.Size
			}
			if coreconfig.Global.TaskPool.QueueSize > 0 {
				queue = coreconfig.Global.TaskPool.QueueSize
			}
		}

		globalPool = NewPool(size, queue)
		globalPool.Start(ctx)
		logrus.Infof("[TASK_POOL] Global instance started with %d workers and queue size %d", size, queue)
	})
	return globalPool
}

// StopGlobalPool stops the singleton pool.
func StopGlobalPool() {
	if globalCancel != nil {
		globalCancel()
	}
	if globalPool != nil {
		globalPool.Stop()
	}
}
