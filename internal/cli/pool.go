//
//  Copyright 2023 PayPal Inc.
//
//  Licensed to the Apache Software Foundation (ASF) under one or more
//  contributor license agreements.  See the NOTICE file distributed with
//  this work for additional information regarding copyright ownership.
//  The ASF licenses this file to You under the Apache License, Version 2.0
//  (the "License"); you may not use this file except in compliance with
//  the License.  You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.
//

package cli

import (
	"context"
	"fmt"
	"sync"
	"time"

	uuid "github.com/satori/go.uuid"

	"binpush/pkg/errors"
	"binpush/pkg/io"
	"binpush/pkg/proto"
)

// Pool runs several workers, each on its own connection.
type Pool struct {
	id       string
	mode     WorkerMode
	conf     io.WorkerConfig
	workers  []*Worker
	listener ProgressListener

	mtx     sync.Mutex
	next    int
	running int
	started bool
	chDone  chan struct{}
}

// NewListPool splits items across at most n workers. Every worker gets
// len(items)/n notifications and the last one also takes the remainder.
func NewListPool(dialer Dialer, out io.OutboundConfig, conf io.WorkerConfig, items []proto.PayloadPerDevice, n int) *Pool {
	p := newPool(ModeList, conf)
	for i, part := range partition(items, n) {
		p.add(NewListWorker(dialer, out, conf, i+1, part))
	}
	return p
}

// NewQueuePool creates n idle QUEUE workers.
func NewQueuePool(dialer Dialer, out io.OutboundConfig, conf io.WorkerConfig, n int) *Pool {
	if n < 1 {
		n = 1
	}
	p := newPool(ModeQueue, conf)
	for i := 0; i < n; i++ {
		p.add(NewQueueWorker(dialer, out, conf, i+1))
	}
	return p
}

func newPool(mode WorkerMode, conf io.WorkerConfig) *Pool {
	conf.SetDefaultIfNotDefined()
	return &Pool{
		id:     uuid.NewV4().String(),
		mode:   mode,
		conf:   conf,
		chDone: make(chan struct{}),
	}
}

func (p *Pool) add(w *Worker) {
	w.SetName(fmt.Sprintf("%s-%d", p.id[:8], w.Number()))
	w.onFinished = p.workerFinished
	p.workers = append(p.workers, w)
}

func partition(items []proto.PayloadPerDevice, n int) [][]proto.PayloadPerDevice {
	total := len(items)
	if total == 0 {
		return nil
	}
	if n < 1 {
		n = 1
	}
	if n > total {
		n = total
	}
	size := total / n
	parts := make([][]proto.PayloadPerDevice, n)
	for i := 0; i < n; i++ {
		end := (i + 1) * size
		if i == n-1 {
			end = total
		}
		parts[i] = items[i*size : end]
	}
	return parts
}

func (p *Pool) Id() string {
	return p.id
}

func (p *Pool) Size() int {
	return len(p.workers)
}

func (p *Pool) Mode() WorkerMode {
	return p.mode
}

func (p *Pool) Workers() []*Worker {
	return p.workers
}

func (p *Pool) SetListener(l ProgressListener) {
	p.listener = l
	for _, w := range p.workers {
		w.SetListener(l)
	}
}

// Start launches the workers, DelayBetweenWorkers apart. It returns once
// the last worker has been launched.
func (p *Pool) Start(ctx context.Context) error {
	if !p.markStarted() {
		return fmt.Errorf("pool %s already started", p.id)
	}

	delay := p.conf.DelayBetweenWorkers.Duration
	for i, w := range p.workers {
		if i > 0 && delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				p.abandon(p.workers[i:])
				return ctx.Err()
			}
		}
		w.Start(ctx)
	}
	if p.listener != nil {
		p.listener.EventAllWorkersStarted(p)
	}
	return nil
}

func (p *Pool) markStarted() bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if p.started {
		return false
	}
	p.started = true
	p.running = len(p.workers)
	if p.running == 0 {
		close(p.chDone)
	}
	return true
}

// abandon finishes workers that were never started. Their items are
// recorded as not sent.
func (p *Pool) abandon(workers []*Worker) {
	for _, w := range workers {
		w.Stop()
	}
}

func (p *Pool) workerFinished(*Worker) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.running--
	if p.running == 0 {
		if p.listener != nil {
			p.listener.EventAllWorkersFinished(p)
		}
		close(p.chDone)
	}
}

func (p *Pool) Done() <-chan struct{} {
	return p.chDone
}

func (p *Pool) Wait() {
	<-p.chDone
}

// WaitForAllWorkers blocks until every worker has finished. With
// returnCritical set, the first critical error of any worker is returned.
func (p *Pool) WaitForAllWorkers(returnCritical bool) error {
	p.Wait()
	if !returnCritical {
		return nil
	}
	if errs := p.CriticalErrors(); len(errs) != 0 {
		return errs[0]
	}
	return nil
}

// Add hands a notification to the next idle worker. When every worker is
// busy it falls back to plain round-robin. Stopped workers are skipped; the
// item is rejected with ErrWorkerStopped only when none is left.
func (p *Pool) Add(device proto.Device, payload proto.Payload) error {
	if p.mode != ModeQueue {
		return fmt.Errorf("pool %s is not in queue mode", p.id)
	}
	for range p.workers {
		w := p.nextWorker()
		if w == nil {
			break
		}
		err := w.Add(device, payload)
		if !errors.Is(err, errors.ErrWorkerStopped) {
			return err
		}
	}
	var cause error
	if errs := p.CriticalErrors(); len(errs) != 0 {
		cause = errs[0]
	}
	return errors.ErrWorkerStopped.Wrap(cause, "pool %s has no running worker", p.id)
}

// nextWorker returns nil when every worker has stopped.
func (p *Pool) nextWorker() *Worker {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	n := len(p.workers)
	for i := 0; i < n; i++ {
		idx := (p.next + i) % n
		if w := p.workers[idx]; w.accepting() && !w.IsBusy() {
			p.next = idx + 1
			return w
		}
	}
	for i := 0; i < n; i++ {
		idx := (p.next + i) % n
		if w := p.workers[idx]; w.accepting() {
			p.next = idx + 1
			return w
		}
	}
	return nil
}

// Stop asks every worker to finish. A pool that was never started
// completes at once.
func (p *Pool) Stop() {
	p.markStarted()
	for _, w := range p.workers {
		w.Stop()
	}
}

func (p *Pool) CriticalErrors() (errs []error) {
	for _, w := range p.workers {
		if err := w.CriticalError(); err != nil {
			errs = append(errs, err)
		}
	}
	return
}

// Notifications collects the retained notifications of every worker.
func (p *Pool) Notifications() (all []*proto.PushedNotification) {
	for _, w := range p.workers {
		all = append(all, w.Notifications()...)
	}
	return
}

func (p *Pool) Stats() *Stats {
	s := NewStats()
	for _, w := range p.workers {
		s.Merge(w.Stats())
	}
	return s
}
