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
	"sync/atomic"
	"time"

	"binpush/pkg/errors"
	"binpush/pkg/io"
	"binpush/pkg/logging/glog"
	"binpush/pkg/logging/otel"
	"binpush/pkg/proto"
	"binpush/pkg/util"
)

type WorkerMode int

const (
	// ModeList sends a fixed batch and finishes.
	ModeList WorkerMode = iota
	// ModeQueue sends whatever is added until stopped.
	ModeQueue
)

func (m WorkerMode) String() string {
	if m == ModeQueue {
		return "QUEUE"
	}
	return "LIST"
}

// Worker owns one connection and sends its notifications in order on a
// dedicated goroutine.
type Worker struct {
	number int
	mode   WorkerMode
	conf   io.WorkerConfig
	engine *Engine

	items []proto.PayloadPerDevice
	next  int

	mtx      sync.Mutex
	queue    []proto.PayloadPerDevice
	critical error
	stopped  bool

	chWake   chan struct{}
	chStop   chan struct{}
	chDone   chan struct{}
	stopOnce sync.Once

	started      int32
	busy         int32
	sent         int64
	sinceRestart int

	notifications *proto.PushedNotifications
	stats         *Stats
	listener      ProgressListener
	onFinished    func(*Worker)
}

func NewListWorker(dialer Dialer, out io.OutboundConfig, conf io.WorkerConfig, number int, items []proto.PayloadPerDevice) *Worker {
	w := newWorker(dialer, out, conf, number, ModeList)
	w.items = items
	return w
}

func NewQueueWorker(dialer Dialer, out io.OutboundConfig, conf io.WorkerConfig, number int) *Worker {
	return newWorker(dialer, out, conf, number, ModeQueue)
}

func newWorker(dialer Dialer, out io.OutboundConfig, conf io.WorkerConfig, number int, mode WorkerMode) *Worker {
	conf.SetDefaultIfNotDefined()
	w := &Worker{
		number:        number,
		mode:          mode,
		conf:          conf,
		engine:        NewEngine(dialer, out),
		chWake:        make(chan struct{}, 1),
		chStop:        make(chan struct{}),
		chDone:        make(chan struct{}),
		notifications: proto.NewPushedNotifications(conf.MaxRetained),
		stats:         NewStats(),
	}
	w.engine.SetIdentifierBase(uint32(number) << 24)
	w.engine.SetStats(w.stats)
	w.engine.SetName(fmt.Sprintf("worker-%d", number))
	w.engine.onRestart = func() {
		if w.listener != nil {
			w.listener.EventConnectionRestarted(w)
		}
	}
	return w
}

func (w *Worker) SetListener(l ProgressListener) {
	w.listener = l
}

func (w *Worker) SetName(name string) {
	w.engine.SetName(name)
}

func (w *Worker) Number() int {
	return w.number
}

func (w *Worker) Mode() WorkerMode {
	return w.mode
}

// Planned is the LIST batch size, or the current queue length.
func (w *Worker) Planned() int {
	if w.mode == ModeList {
		return len(w.items)
	}
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return len(w.queue)
}

func (w *Worker) Sent() int64 {
	return atomic.LoadInt64(&w.sent)
}

func (w *Worker) IsBusy() bool {
	return atomic.LoadInt32(&w.busy) != 0
}

func (w *Worker) setBusy(busy bool) {
	if busy {
		atomic.StoreInt32(&w.busy, 1)
	} else {
		atomic.StoreInt32(&w.busy, 0)
	}
}

// CriticalError returns the error that stopped the worker, if any.
func (w *Worker) CriticalError() error {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return w.critical
}

// Notifications returns snapshots of the retained notifications.
func (w *Worker) Notifications() []*proto.PushedNotification {
	items := w.notifications.Items()
	out := make([]*proto.PushedNotification, len(items))
	for i, n := range items {
		out[i] = n.Clone()
	}
	return out
}

func (w *Worker) Stats() *Stats {
	return w.stats
}

func (w *Worker) Done() <-chan struct{} {
	return w.chDone
}

func (w *Worker) Wait() {
	<-w.chDone
}

// Start launches the worker goroutine. It has no effect on a worker that
// was already started or stopped.
func (w *Worker) Start(ctx context.Context) {
	if atomic.CompareAndSwapInt32(&w.started, 0, 1) {
		go w.run(ctx)
	}
}

// Add queues a notification. Only QUEUE workers accept additions.
func (w *Worker) Add(device proto.Device, payload proto.Payload) error {
	if w.mode != ModeQueue {
		return fmt.Errorf("worker %d is not in queue mode", w.number)
	}
	w.mtx.Lock()
	if w.stopped {
		err := errors.ErrWorkerStopped.Wrap(w.critical, "worker %d", w.number)
		w.mtx.Unlock()
		return err
	}
	w.queue = append(w.queue, proto.PayloadPerDevice{Payload: payload, Device: device})
	w.mtx.Unlock()
	select {
	case w.chWake <- struct{}{}:
	default:
	}
	return nil
}

// Stop asks the worker to send what is queued and exit. LIST workers stop
// after the notification in progress. A worker stopped before Start
// finishes immediately, its items recorded as not sent.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.mtx.Lock()
		w.stopped = true
		w.mtx.Unlock()
		close(w.chStop)
		if atomic.CompareAndSwapInt32(&w.started, 0, 1) {
			w.finish(nil)
		}
	})
}

// accepting is false once the worker stopped or exited.
func (w *Worker) accepting() bool {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return !w.stopped
}

func (w *Worker) finish(err error) {
	w.failUnsent(err)
	w.setBusy(false)
	if w.listener != nil {
		w.listener.EventWorkerFinished(w)
	}
	if w.onFinished != nil {
		w.onFinished(w)
	}
	close(w.chDone)
}

// failUnsent closes the worker to additions and records every item it
// never sent as failed, with cause attached.
func (w *Worker) failUnsent(cause error) {
	w.mtx.Lock()
	w.stopped = true
	unsent := w.queue
	w.queue = nil
	if w.mode == ModeList {
		unsent = w.items[w.next:]
		w.next = len(w.items)
	}
	w.mtx.Unlock()
	if len(unsent) == 0 {
		return
	}
	err := errors.ErrWorkerStopped.Wrap(cause, "worker %d, not sent", w.number)
	for _, item := range unsent {
		n := proto.NewPushedNotification(item.Device, item.Payload, 0)
		n.SetError(err)
		w.notifications.Add(n)
	}
	glog.Warningf("worker %d: %d notifications not sent", w.number, len(unsent))
}

func (w *Worker) run(ctx context.Context) {
	var err error
	defer func() {
		w.finish(err)
	}()
	if w.listener != nil {
		w.listener.EventWorkerStarted(w)
	}
	if w.mode == ModeList {
		err = w.runList(ctx)
	} else {
		err = w.runQueue(ctx)
	}
	if err == nil {
		return
	}
	w.engine.closeConn()
	if !errors.IsCritical(err) {
		glog.Infof("worker %d: %s", w.number, err)
		return
	}
	w.mtx.Lock()
	w.critical = err
	w.mtx.Unlock()
	otel.RecordCount(otel.CriticalError, otel.Tags{TagName: "worker", TagValue: fmt.Sprint(w.number)})
	if w.listener != nil {
		w.listener.EventCriticalError(w, err)
	}
}

func (w *Worker) runList(ctx context.Context) error {
	w.setBusy(true)
	if err := w.engine.Open(ctx); err != nil {
		return err
	}
	for i, item := range w.items {
		select {
		case <-w.chStop:
			return w.engine.Close(ctx)
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		w.next = i + 1
		if err := w.send(ctx, item); err != nil {
			return err
		}
		if i+1 < len(w.items) {
			if err := w.pause(ctx); err != nil {
				return err
			}
		}
	}
	return w.engine.Close(ctx)
}

func (w *Worker) runQueue(ctx context.Context) error {
	if err := w.engine.Open(ctx); err != nil {
		return err
	}
	idle := util.NewTimerWrapper(w.conf.IdleCheckInterval.Duration)
	idle.Reset(w.conf.IdleCheckInterval.Duration)
	defer idle.Stop()
	for {
		if err := w.drainQueue(ctx); err != nil {
			return err
		}
		select {
		case <-w.chWake:
		case <-idle.GetTimeoutCh():
			idle.OnFired()
			if err := w.engine.PollResponses(ctx); err != nil {
				return err
			}
			idle.Reset(w.conf.IdleCheckInterval.Duration)
		case <-w.chStop:
			if err := w.drainQueue(ctx); err != nil {
				return err
			}
			return w.engine.Close(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Worker) drainQueue(ctx context.Context) error {
	for {
		w.mtx.Lock()
		if len(w.queue) == 0 {
			w.mtx.Unlock()
			w.setBusy(false)
			return nil
		}
		item := w.queue[0]
		w.queue[0] = proto.PayloadPerDevice{}
		w.queue = w.queue[1:]
		w.mtx.Unlock()

		w.setBusy(true)
		if err := w.send(ctx, item); err != nil {
			return err
		}
		if err := w.pause(ctx); err != nil {
			return err
		}
	}
}

// send forces a reconnect every MaxNotificationsPerConnection sends, just
// before the next one goes out.
func (w *Worker) send(ctx context.Context, item proto.PayloadPerDevice) error {
	if w.sinceRestart >= w.conf.MaxNotificationsPerConnection {
		if err := w.engine.Restart(ctx); err != nil {
			return err
		}
		w.sinceRestart = 0
	}
	n := proto.NewPushedNotification(item.Device, item.Payload, 0)
	err := w.engine.Send(ctx, n)
	w.notifications.Add(n)
	w.sinceRestart++
	atomic.AddInt64(&w.sent, 1)
	return err
}

func (w *Worker) pause(ctx context.Context) error {
	d := w.conf.SleepBetweenNotifications.Duration
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
