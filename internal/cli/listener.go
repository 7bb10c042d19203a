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
	"binpush/pkg/logging/glog"
)

// ProgressListener receives worker and pool lifecycle events. Calls come
// from worker goroutines.
type ProgressListener interface {
	EventAllWorkersStarted(p *Pool)
	EventAllWorkersFinished(p *Pool)
	EventWorkerStarted(w *Worker)
	EventWorkerFinished(w *Worker)
	EventConnectionRestarted(w *Worker)
	EventCriticalError(w *Worker, err error)
}

// LogProgressListener reports every event through glog.
type LogProgressListener struct{}

func (LogProgressListener) EventAllWorkersStarted(p *Pool) {
	glog.Infof("pool %s: all %d workers started", p.Id(), p.Size())
}

func (LogProgressListener) EventAllWorkersFinished(p *Pool) {
	glog.Infof("pool %s: all workers finished", p.Id())
}

func (LogProgressListener) EventWorkerStarted(w *Worker) {
	glog.Infof("worker %d started (%s, %d notifications)", w.Number(), w.Mode(), w.Planned())
}

func (LogProgressListener) EventWorkerFinished(w *Worker) {
	glog.Infof("worker %d finished: %d sent", w.Number(), w.Sent())
}

func (LogProgressListener) EventConnectionRestarted(w *Worker) {
	if glog.LOG_DEBUG {
		glog.DebugInfof("worker %d restarted its connection", w.Number())
	}
}

func (LogProgressListener) EventCriticalError(w *Worker, err error) {
	glog.Errorf("worker %d stopped: %s", w.Number(), err)
}
