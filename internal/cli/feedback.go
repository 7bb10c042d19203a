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
	"bufio"
	"context"
	"io"
	"net"
	"time"

	"binpush/pkg/errors"
	"binpush/pkg/logging/glog"
	"binpush/pkg/proto"
)

// ReadFeedback connects to the feedback service and collects the devices it
// reports as inactive. The service closes the connection once it is done;
// a read that stays idle for socketTimeout also ends the list. The timeout
// applies per read, not to the whole stream.
func ReadFeedback(ctx context.Context, dialer Dialer, socketTimeout time.Duration) ([]proto.Device, error) {
	conn, err := dialer.Connect(ctx)
	if err != nil {
		if errors.IsCritical(err) {
			return nil, err
		}
		return nil, errors.ErrCommunication.Wrap(err, "feedback connect")
	}
	defer conn.Close()

	var r io.Reader = conn
	if socketTimeout > 0 {
		r = &idleDeadlineReader{conn: conn, timeout: socketTimeout}
	}
	tuples, err := proto.ReadFeedbackTuples(bufio.NewReader(r))
	if err != nil {
		return nil, errors.ErrCommunication.Wrap(err, "feedback read")
	}
	devices := make([]proto.Device, 0, len(tuples))
	for _, t := range tuples {
		devices = append(devices, t.Device())
	}
	glog.Infof("feedback: %d inactive devices", len(devices))
	return devices, nil
}

// idleDeadlineReader moves the read deadline forward before every read.
type idleDeadlineReader struct {
	conn    net.Conn
	timeout time.Duration
}

func (r *idleDeadlineReader) Read(b []byte) (int, error) {
	r.conn.SetReadDeadline(time.Now().Add(r.timeout))
	return r.conn.Read(b)
}
