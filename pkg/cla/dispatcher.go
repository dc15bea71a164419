// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cla

import (
	"context"
	"runtime"
	"sync"

	log "github.com/sirupsen/logrus"
)

// DispatcherConfig configures a Dispatcher. Non-positive values select the defaults.
type DispatcherConfig struct {
	// Workers is the amount of concurrent transfers, defaulting to the number of CPUs.
	Workers int

	// QueueSize is the amount of pending transfers before Dispatch blocks, defaulting to 1024.
	QueueSize int
}

type transferTask struct {
	ctx    context.Context
	sender ClaSender
	ready  [][]byte
	result chan bool
}

// Dispatcher runs ClaSender transfers on a bounded pool of worker goroutines, keeping the blocking submissions
// away from the caller.
type Dispatcher struct {
	taskQueue chan transferTask

	workers sync.WaitGroup

	// closed is protected by closeMutex. Dispatch holds the read lock while enqueueing.
	closed     bool
	closeMutex sync.RWMutex
	stopSyn    chan struct{}
}

// NewDispatcher creates and starts a new Dispatcher.
func NewDispatcher(config DispatcherConfig) *Dispatcher {
	if config.Workers < 1 {
		config.Workers = runtime.NumCPU()
	}
	if config.QueueSize < 1 {
		config.QueueSize = 1024
	}

	d := &Dispatcher{
		taskQueue: make(chan transferTask, config.QueueSize),
		stopSyn:   make(chan struct{}),
	}

	d.workers.Add(config.Workers)
	for i := 0; i < config.Workers; i++ {
		go d.worker()
	}

	return d
}

func (d *Dispatcher) worker() {
	defer d.workers.Done()

	for {
		select {
		case <-d.stopSyn:
			return

		case task := <-d.taskQueue:
			if task.ctx.Err() != nil {
				task.result <- false
				continue
			}

			ok := task.sender.Transfer(task.ready)
			if !ok {
				log.WithFields(log.Fields{
					"sender":  task.sender,
					"bundles": len(task.ready),
				}).Debug("Dispatched transfer failed")
			}
			task.result <- ok
		}
	}
}

// Dispatch schedules a transfer and returns a channel which receives its outcome exactly once. If the Dispatcher
// is closed or the context is done before the transfer starts, false is delivered.
func (d *Dispatcher) Dispatch(ctx context.Context, sender ClaSender, ready [][]byte) <-chan bool {
	result := make(chan bool, 1)

	d.closeMutex.RLock()
	defer d.closeMutex.RUnlock()

	if d.closed {
		result <- false
		return result
	}

	task := transferTask{ctx: ctx, sender: sender, ready: ready, result: result}
	select {
	case d.taskQueue <- task:
	case <-ctx.Done():
		result <- false
	}

	return result
}

// Close stops all workers after their current transfer. Pending transfers are reported as failed.
func (d *Dispatcher) Close() {
	d.closeMutex.Lock()
	if d.closed {
		d.closeMutex.Unlock()
		return
	}
	d.closed = true
	close(d.stopSyn)
	d.closeMutex.Unlock()

	d.workers.Wait()

	for {
		select {
		case task := <-d.taskQueue:
			task.result <- false
		default:
			return
		}
	}
}
