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
	"strconv"

	"binpush/pkg/logging"
	"binpush/pkg/logging/glog"
	"binpush/pkg/logging/otel"
	"binpush/pkg/proto"
)

func (e *Engine) drainAndRecover(ctx context.Context) error {
	if e.conn == nil || !e.conf.Enhanced() {
		return nil
	}
	return e.processResponses(ctx, e.readResponses(e.conf.DrainTimeout.Duration))
}

// processResponses links error responses to their notifications, then
// resends, on a fresh connection, everything sent after the earliest
// failure. It repeats while draining the new connection yields responses.
func (e *Engine) processResponses(ctx context.Context, responses []*proto.ErrorResponse) error {
	for len(responses) != 0 {
		for _, r := range responses {
			otel.RecordCount(otel.ErrorResponse, otel.Tags{TagName: "status", TagValue: strconv.Itoa(int(r.Status))})
			n := e.tracker.Lookup(r.Identifier)
			if n == nil {
				glog.Warningf("error response for unknown notification: %s", r)
				continue
			}
			n.SetResponse(r)
			if r.IsError() && !r.IsShutdown() {
				otel.RecordCount(otel.Failed, otel.Tags{TagName: "pool", TagValue: e.name})
				glog.Warningf("notification rejected: %s", logging.NewKVBufferForLog().AddPool(e.name).AddNotification(n).String())
			}
		}
		failed, resend := e.tracker.SentAfterFirstFailure()
		if failed != nil {
			glog.Infof("resending %d notifications sent after id=%d (%s)", len(resend), failed.Identifier, failed.Response().Status)
		}

		e.closeConn()
		e.tracker.Clear()
		if err := e.Open(ctx); err != nil {
			for _, n := range resend {
				n.SetCompleted(false)
				n.SetError(err)
			}
			return err
		}
		e.onRestarted()

		for _, n := range resend {
			n.LatestTransmissionAttempt()
			frame, err := e.encode(n)
			if err != nil {
				n.SetError(err)
				continue
			}
			e.tracker.OnSent(n)
			if err = e.transmit(ctx, n, frame); err != nil {
				return err
			}
			otel.RecordCount(otel.Resent, otel.Tags{TagName: "pool", TagValue: e.name})
		}
		responses = e.readResponses(e.conf.DrainTimeout.Duration)
	}
	return nil
}
