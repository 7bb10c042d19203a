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

package util

import (
	"time"
)

// TimerWrapper works around time.Timer.Reset() racing with an already
// expired timer (https://github.com/golang/go/issues/11513). A stopped
// wrapper returns a nil channel, so it can sit in a select unconditionally.
type TimerWrapper struct {
	t       *time.Timer
	stopped bool
}

func NewTimerWrapper(d time.Duration) *TimerWrapper {
	t := &TimerWrapper{
		t:       time.NewTimer(d),
		stopped: true,
	}
	t.t.Stop()
	return t
}

func (t *TimerWrapper) GetTimeoutCh() <-chan time.Time {
	if t.stopped {
		return nil
	}
	return t.t.C
}

func (t *TimerWrapper) IsStopped() bool {
	return t.stopped
}

// OnFired must be called after a value was received from GetTimeoutCh().
func (t *TimerWrapper) OnFired() {
	t.stopped = true
}

func (t *TimerWrapper) Stop() {
	if t.stopped {
		return
	}
	if !t.t.Stop() {
		select {
		case <-t.t.C:
		default:
		}
	}
	t.stopped = true
}

func (t *TimerWrapper) Reset(d time.Duration) {
	if !t.stopped {
		t.Stop()
	}
	t.t.Reset(d)
	t.stopped = false
}
