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
	"binpush/pkg/proto"
)

// PendingTracker keeps the notifications sent on the current connection,
// by identifier and in send order. Only the owning engine touches it.
type PendingTracker struct {
	byId  map[uint32]*proto.PushedNotification
	order []*proto.PushedNotification
}

func newPendingTracker() *PendingTracker {
	return &PendingTracker{
		byId: make(map[uint32]*proto.PushedNotification),
	}
}

func (p *PendingTracker) OnSent(n *proto.PushedNotification) {
	if v, found := p.byId[n.Identifier]; found {
		if v == n {
			return
		}
		glog.Warningf("identifier %d reused, replacing tracked notification", n.Identifier)
		p.remove(v)
	}
	p.byId[n.Identifier] = n
	p.order = append(p.order, n)
}

func (p *PendingTracker) Lookup(id uint32) *proto.PushedNotification {
	return p.byId[id]
}

// Notifications returns the tracked notifications in send order.
func (p *PendingTracker) Notifications() []*proto.PushedNotification {
	out := make([]*proto.PushedNotification, len(p.order))
	copy(out, p.order)
	return out
}

// SentAfterFirstFailure returns what was sent after the earliest
// notification named by a failing error response.
func (p *PendingTracker) SentAfterFirstFailure() (failed *proto.PushedNotification, after []*proto.PushedNotification) {
	for i, n := range p.order {
		if failed != nil {
			after = append(after, n)
			continue
		}
		if r := n.Response(); r != nil && r.IsError() {
			failed = n
			after = make([]*proto.PushedNotification, 0, len(p.order)-i-1)
		}
	}
	return
}

func (p *PendingTracker) Len() int {
	return len(p.order)
}

func (p *PendingTracker) Clear() {
	p.byId = make(map[uint32]*proto.PushedNotification)
	p.order = nil
}

func (p *PendingTracker) remove(n *proto.PushedNotification) {
	delete(p.byId, n.Identifier)
	for i, v := range p.order {
		if v == n {
			p.order = append(p.order[:i], p.order[i+1:]...)
			return
		}
	}
}
