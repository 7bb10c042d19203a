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

package proto

import (
	"fmt"
	"sync"

	"binpush/pkg/errors"
)

const DefaultMaxRetained = 1000

// PushedNotification records one notification and its delivery outcome.
// It is mutated by the worker that owns it; readers elsewhere take Clone().
type PushedNotification struct {
	mtx sync.RWMutex

	Device     Device
	Payload    Payload
	Identifier uint32
	Expiry     uint32

	attempts  int
	completed bool
	response  *ErrorResponse
	err       error
}

func NewPushedNotification(device Device, payload Payload, id uint32) *PushedNotification {
	return &PushedNotification{Device: device, Payload: payload, Identifier: id}
}

func (n *PushedNotification) AddAttempt() {
	n.mtx.Lock()
	n.attempts++
	n.mtx.Unlock()
}

func (n *PushedNotification) SetCompleted(completed bool) {
	n.mtx.Lock()
	n.completed = completed
	n.mtx.Unlock()
}

// SetResponse links an error frame to the record. A failing status also
// sets ErrErrorResponseReceived unless an error is already attached.
func (n *PushedNotification) SetResponse(r *ErrorResponse) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	n.response = r
	if r.IsError() && !r.IsShutdown() && n.err == nil {
		n.err = errors.ErrErrorResponseReceived.Wrap(nil, "%s", r.Message())
	}
}

func (n *PushedNotification) SetError(err error) {
	n.mtx.Lock()
	n.err = err
	n.mtx.Unlock()
}

func (n *PushedNotification) Attempts() int {
	n.mtx.RLock()
	defer n.mtx.RUnlock()
	return n.attempts
}

func (n *PushedNotification) TransmissionCompleted() bool {
	n.mtx.RLock()
	defer n.mtx.RUnlock()
	return n.completed
}

func (n *PushedNotification) Response() *ErrorResponse {
	n.mtx.RLock()
	defer n.mtx.RUnlock()
	return n.response
}

func (n *PushedNotification) Err() error {
	n.mtx.RLock()
	defer n.mtx.RUnlock()
	return n.err
}

// IsSuccessful is true when the frame was written and no failing error
// response names it. A shutdown status means the notification was the last
// one the gateway accepted.
func (n *PushedNotification) IsSuccessful() bool {
	n.mtx.RLock()
	defer n.mtx.RUnlock()
	if !n.completed || n.err != nil {
		return false
	}
	return n.response == nil || !n.response.IsError() || n.response.IsShutdown()
}

// LatestTransmissionAttempt resets the outcome before a resend while keeping
// the attempt count.
func (n *PushedNotification) LatestTransmissionAttempt() {
	n.mtx.Lock()
	n.completed = false
	n.response = nil
	n.err = nil
	n.mtx.Unlock()
}

func (n *PushedNotification) Clone() *PushedNotification {
	n.mtx.RLock()
	defer n.mtx.RUnlock()
	return &PushedNotification{
		Device:     n.Device,
		Payload:    n.Payload,
		Identifier: n.Identifier,
		Expiry:     n.Expiry,
		attempts:   n.attempts,
		completed:  n.completed,
		response:   n.response,
		err:        n.err,
	}
}

func (n *PushedNotification) String() string {
	n.mtx.RLock()
	defer n.mtx.RUnlock()
	s := fmt.Sprintf("[%d] transmitted to token %s", n.Identifier, n.Device.Token)
	if !n.completed {
		s = fmt.Sprintf("[%d] not transmitted to token %s", n.Identifier, n.Device.Token)
	}
	if n.response != nil {
		s += " " + n.response.Message()
	}
	if n.err != nil {
		s += " " + n.err.Error()
	}
	return s
}

// PushedNotifications is an ordered list with a retention ceiling. When an
// add would exceed the ceiling the oldest entries are evicted.
type PushedNotifications struct {
	mtx         sync.Mutex
	items       []*PushedNotification
	maxRetained int
}

func NewPushedNotifications(maxRetained int) *PushedNotifications {
	if maxRetained <= 0 {
		maxRetained = DefaultMaxRetained
	}
	return &PushedNotifications{maxRetained: maxRetained}
}

func (l *PushedNotifications) MaxRetained() int {
	return l.maxRetained
}

func (l *PushedNotifications) Add(n *PushedNotification) {
	l.mtx.Lock()
	l.prepareAdd(1)
	l.items = append(l.items, n)
	l.mtx.Unlock()
}

func (l *PushedNotifications) AddAll(ns []*PushedNotification) {
	if len(ns) > l.maxRetained {
		ns = ns[len(ns)-l.maxRetained:]
	}
	l.mtx.Lock()
	l.prepareAdd(len(ns))
	l.items = append(l.items, ns...)
	l.mtx.Unlock()
}

func (l *PushedNotifications) prepareAdd(n int) {
	if excess := len(l.items) + n - l.maxRetained; excess > 0 {
		l.items = append(l.items[:0:0], l.items[excess:]...)
	}
}

// Items returns a snapshot of the current entries in insertion order.
func (l *PushedNotifications) Items() []*PushedNotification {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	out := make([]*PushedNotification, len(l.items))
	copy(out, l.items)
	return out
}

func (l *PushedNotifications) Len() int {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return len(l.items)
}

func (l *PushedNotifications) Clear() {
	l.mtx.Lock()
	l.items = nil
	l.mtx.Unlock()
}

func (l *PushedNotifications) Successful() []*PushedNotification {
	return l.filter(true)
}

func (l *PushedNotifications) Failed() []*PushedNotification {
	return l.filter(false)
}

func (l *PushedNotifications) filter(successful bool) (out []*PushedNotification) {
	for _, n := range l.Items() {
		if n.IsSuccessful() == successful {
			out = append(out, n)
		}
	}
	return
}

// FindSuccessful and FindFailed work on plain slices, e.g. results merged
// from several workers.
func FindSuccessful(ns []*PushedNotification) (out []*PushedNotification) {
	for _, n := range ns {
		if n.IsSuccessful() {
			out = append(out, n)
		}
	}
	return
}

func FindFailed(ns []*PushedNotification) (out []*PushedNotification) {
	for _, n := range ns {
		if !n.IsSuccessful() {
			out = append(out, n)
		}
	}
	return
}
