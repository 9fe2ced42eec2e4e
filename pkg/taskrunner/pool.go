// Package taskrunner supervises fire-and-forget work triggered by a dialog:
// deferred webhook processing and asynchronous Gateway requests. Tasks for
// the same dialog land on the same worker queue, so they are submitted to
// the network in dispatch order; tasks for different dialogs run
// concurrently. Every task is accounted for from dispatch to completion, so
// the in-flight count never drifts and running work is never dropped.
package taskrunner

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Task is one unit of supervised work bound to a dialog.
type Task struct {
	DialogID string
	Handler  func(ctx context.Context) error
}

// Stats contains a point-in-time view of the pool.
type Stats struct {
	NumWorkers      int            `json:"num_workers"`
	QueueSize       int            `json:"queue_size"`
	InFlight        int64          `json:"in_flight"`
	TotalDispatched int64          `json:"total_dispatched"`
	TotalProcessed  int64          `json:"total_processed"`
	TotalDropped    int64          `json:"total_dropped"`
	TotalErrors     int64          `json:"total_errors"`
	ActiveDialogs   map[string]int `json:"active_dialogs"` // dialogID -> pending+running tasks
}

// Pool is a fixed set of workers with per-worker FIFO queues, sharded by
// dialog id.
type Pool struct {
	numWorkers int
	queueSize  int
	workers    []*worker
	wg         sync.WaitGroup
	stopOnce   sync.Once
	stopped    int32

	totalDispatched int64
	totalProcessed  int64
	totalDropped    int64
	totalErrors     int64
	inFlight        int64

	activeMu      sync.Mutex
	activeDialogs map[string]int
}

type worker struct {
	id        int
	taskQueue chan Task
	ctx       context.Context
	cancel    context.CancelFunc
	pool      *Pool
}

// NewPool creates a pool. Non-positive arguments fall back to safe defaults.
func NewPool(numWorkers, queueSize int) *Pool {
	if numWorkers <= 0 {
		numWorkers = 8
	}
	if queueSize <= 0 {
		queueSize = 100
	}

	return &Pool{
		numWorkers:    numWorkers,
		queueSize:     queueSize,
		workers:       make([]*worker, numWorkers),
		activeDialogs: make(map[string]int),
	}
}

// Start launches the workers. It must be called before Dispatch.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.numWorkers; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		w := &worker{
			id:        i,
			taskQueue: make(chan Task, p.queueSize),
			ctx:       workerCtx,
			cancel:    cancel,
			pool:      p,
		}
		p.workers[i] = w

		p.wg.Add(1)
		go w.run(&p.wg)
	}

	logrus.Infof("[TASK_POOL] Started with %d workers, queue size: %d", p.numWorkers, p.queueSize)
}

// Run schedules fn for the given dialog and returns immediately. It reports
// whether the task could be enqueued.
func (p *Pool) Run(dialogID string, fn func(ctx context.Context) error) bool {
	return p.TryDispatch(Task{DialogID: dialogID, Handler: fn})
}

// TryDispatch enqueues the task on the worker owning its dialog shard. It
// never blocks; a full queue (or a stopped pool) drops the task.
func (p *Pool) TryDispatch(task Task) bool {
	if atomic.LoadInt32(&p.stopped) == 1 {
		atomic.AddInt64(&p.totalDropped, 1)
		return false
	}

	shard := p.shardForDialog(task.DialogID)
	p.trackEnter(task.DialogID)

	sent := func() (ok bool) {
		defer func() {
			if r := recover(); r != nil {
				ok = false
			}
		}()
		select {
		case p.workers[shard].taskQueue <- task:
			return true
		default:
			return false
		}
	}()

	if sent {
		atomic.AddInt64(&p.totalDispatched, 1)
		return true
	}

	p.trackLeave(task.DialogID)
	atomic.AddInt64(&p.totalDropped, 1)
	logrus.Warnf("[TASK_POOL] Worker %d queue full (or stopped), dropping task for dialog %s", shard, task.DialogID)
	return false
}

// Stop drains the queues and waits for running tasks to finish.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		atomic.StoreInt32(&p.stopped, 1)
		logrus.Info("[TASK_POOL] Stopping workers...")

		for _, w := range p.workers {
			w.cancel()
			close(w.taskQueue)
		}
		p.wg.Wait()

		logrus.Info("[TASK_POOL] All workers stopped")
	})
}

// InFlight returns the number of tasks dispatched but not yet completed.
func (p *Pool) InFlight() int64 {
	return atomic.LoadInt64(&p.inFlight)
}

// GetStats returns a snapshot of the pool counters.
func (p *Pool) GetStats() Stats {
	p.activeMu.Lock()
	activeSnapshot := make(map[string]int, len(p.activeDialogs))
	for k, v := range p.activeDialogs {
		activeSnapshot[k] = v
	}
	p.activeMu.Unlock()

	return Stats{
		NumWorkers:      p.numWorkers,
		QueueSize:       p.queueSize,
		InFlight:        atomic.LoadInt64(&p.inFlight),
		TotalDispatched: atomic.LoadInt64(&p.totalDispatched),
		TotalProcessed:  atomic.LoadInt64(&p.totalProcessed),
		TotalDropped:    atomic.LoadInt64(&p.totalDropped),
		TotalErrors:     atomic.LoadInt64(&p.totalErrors),
		ActiveDialogs:   activeSnapshot,
	}
}

func (p *Pool) shardForDialog(dialogID string) int {
	h := fnv.New32a()
	h.Write([]byte(dialogID))
	return int(h.Sum32() % uint32(p.numWorkers))
}

func (p *Pool) trackEnter(dialogID string) {
	atomic.AddInt64(&p.inFlight, 1)
	p.activeMu.Lock()
	p.activeDialogs[dialogID]++
	p.activeMu.Unlock()
}

func (p *Pool) trackLeave(dialogID string) {
	atomic.AddInt64(&p.inFlight, -1)
	p.activeMu.Lock()
	if n := p.activeDialogs[dialogID]; n <= 1 {
		delete(p.activeDialogs, dialogID)
	} else {
		p.activeDialogs[dialogID] = n - 1
	}
	p.activeMu.Unlock()
}

func (w *worker) run(wg *sync.WaitGroup) {
	defer wg.Done()

	logrus.Debugf("[TASK_POOL] Worker %d started", w.id)

	for {
		select {
		case task, ok := <-w.taskQueue:
			if !ok {
				logrus.Debugf("[TASK_POOL] Worker %d shutting down", w.id)
				return
			}
			w.process(task)

		case <-w.ctx.Done():
			logrus.Debugf("[TASK_POOL] Worker %d context cancelled, draining queue...", w.id)
			w.drainQueue()
			return
		}
	}
}

// process runs one task; the deferred block guarantees the in-flight
// accounting is released exactly once, panic or not.
func (w *worker) process(task Task) {
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&w.pool.totalErrors, 1)
			logrus.Errorf("[TASK_POOL] Worker %d panic for dialog %s: %v", w.id, task.DialogID, r)
		}
		w.pool.trackLeave(task.DialogID)
		atomic.AddInt64(&w.pool.totalProcessed, 1)
	}()

	if err := task.Handler(w.ctx); err != nil {
		atomic.AddInt64(&w.pool.totalErrors, 1)
		logrus.WithError(err).Errorf("[TASK_POOL] Worker %d task failed for dialog %s", w.id, task.DialogID)
	}
}

func (w *worker) drainQueue() {
	for {
		select {
		case task, ok := <-w.taskQueue:
			if !ok {
				return
			}
			w.process(task)
		default:
			return
		}
	}
}
