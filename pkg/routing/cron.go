// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package routing

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

type cronjob struct {
	task      func()
	interval  time.Duration
	nextEvent time.Time

	// running prevents overlapping executions of a slow task.
	running bool
}

// Cron manages different jobs which require interval based execution.
type Cron struct {
	jobs  map[string]*cronjob
	mutex sync.Mutex

	tick time.Duration

	stopOnce sync.Once
	stopSyn  chan struct{}
	stopAck  chan struct{}
}

// NewCron creates and starts an empty Cron instance, checking its jobs every second.
func NewCron() *Cron {
	return newCron(time.Second)
}

func newCron(tick time.Duration) *Cron {
	cron := &Cron{
		jobs:    make(map[string]*cronjob),
		tick:    tick,
		stopSyn: make(chan struct{}),
		stopAck: make(chan struct{}),
	}

	go cron.loop()

	return cron
}

func (cron *Cron) loop() {
	ticker := time.NewTicker(cron.tick)
	defer ticker.Stop()

	for {
		select {
		case <-cron.stopSyn:
			close(cron.stopAck)
			return

		case t := <-ticker.C:
			cron.fire(t)
		}
	}
}

func (cron *Cron) fire(t time.Time) {
	cron.mutex.Lock()
	defer cron.mutex.Unlock()

	for name, job := range cron.jobs {
		if job.nextEvent.After(t) || job.running {
			continue
		}

		job.nextEvent = t.Add(job.interval)
		job.running = true
		go cron.run(name, job)

		log.WithFields(log.Fields{
			"job":        name,
			"interval":   job.interval,
			"next_event": job.nextEvent,
		}).Debug("Cron executed job")
	}
}

func (cron *Cron) run(name string, job *cronjob) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"job":   name,
				"error": r,
			}).Warn("Cron job panicked")
		}

		cron.mutex.Lock()
		job.running = false
		cron.mutex.Unlock()
	}()

	job.task()
}

// Stop this Cron. Running jobs are not interrupted.
func (cron *Cron) Stop() {
	cron.stopOnce.Do(func() {
		close(cron.stopSyn)
		<-cron.stopAck
	})
}

// Register a new task by its name, function and interval. The interval must be at least one second. The function
// will be executed in a new goroutine, but never concurrently to itself.
func (cron *Cron) Register(name string, task func(), interval time.Duration) error {
	cron.mutex.Lock()
	defer cron.mutex.Unlock()

	if _, exists := cron.jobs[name]; exists {
		return fmt.Errorf("a job named %s is already registered", name)
	}

	if interval < time.Second {
		return fmt.Errorf("given interval %v is shorter than a second", interval)
	}

	cron.jobs[name] = &cronjob{
		task:      task,
		interval:  interval,
		nextEvent: time.Now().Add(interval),
	}

	return nil
}

// Unregister a task by its name.
func (cron *Cron) Unregister(name string) {
	cron.mutex.Lock()
	defer cron.mutex.Unlock()

	delete(cron.jobs, name)
}
