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
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"

	"binpush/pkg/errors"
	"binpush/pkg/io"
	"binpush/pkg/logging"
	"binpush/pkg/logging/glog"
	"binpush/pkg/logging/otel"
	"binpush/pkg/proto"
	"binpush/pkg/util"
)

// Engine owns one gateway connection and transmits notifications on it in
// order. It is not safe for concurrent use; each worker has its own.
type Engine struct {
	dialer  Dialer
	conf    io.OutboundConfig
	conn    net.Conn
	reader  *bufio.Reader
	tracker *PendingTracker
	backoff *backoff.ExponentialBackOff

	idBase uint32
	nextId uint32

	name      string
	stats     *Stats
	onRestart func()

	opens    int
	restarts int
}

func NewEngine(dialer Dialer, conf io.OutboundConfig) *Engine {
	conf.SetDefaultIfNotDefined()
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = conf.ReconnectIntervalBase.Duration
	b.MaxInterval = conf.ReconnectIntervalMax.Duration
	b.MaxElapsedTime = 0
	b.Reset()
	return &Engine{
		dialer:  dialer,
		conf:    conf,
		tracker: newPendingTracker(),
		backoff: b,
		name:    "serial",
	}
}

// SetIdentifierBase makes assigned identifiers base|1, base|2, ...
func (e *Engine) SetIdentifierBase(base uint32) {
	e.idBase = base
	e.nextId = 0
}

func (e *Engine) SetName(name string) {
	e.name = name
}

func (e *Engine) SetStats(s *Stats) {
	e.stats = s
}

func (e *Engine) Opens() int {
	return e.opens
}

func (e *Engine) Restarts() int {
	return e.restarts
}

func (e *Engine) IsOpen() bool {
	return e.conn != nil
}

func (e *Engine) Open(ctx context.Context) (err error) {
	if e.conn != nil {
		return nil
	}
	var conn net.Conn
	e.opens++
	if conn, err = e.dialer.Connect(ctx); err != nil {
		if !errors.IsCritical(err) {
			err = errors.ErrCommunication.Wrap(err, "")
		}
		return
	}
	e.conn = conn
	e.reader = util.NewBufioReader(conn, e.conf.IOBufSize)
	return
}

// Close drains pending error responses, resends what they invalidated and
// closes the connection.
func (e *Engine) Close(ctx context.Context) (err error) {
	if e.conn == nil {
		return nil
	}
	err = e.drainAndRecover(ctx)
	e.closeConn()
	e.tracker.Clear()
	return
}

// Restart drains, closes and reopens the connection.
func (e *Engine) Restart(ctx context.Context) (err error) {
	if err = e.drainAndRecover(ctx); err != nil {
		return
	}
	e.closeConn()
	e.tracker.Clear()
	if err = e.Open(ctx); err == nil {
		e.onRestarted()
	}
	return
}

// SendNotification builds a record for device and payload and sends it.
func (e *Engine) SendNotification(ctx context.Context, device proto.Device, payload proto.Payload, id uint32) (*proto.PushedNotification, error) {
	n := proto.NewPushedNotification(device, payload, id)
	return n, e.Send(ctx, n)
}

// Send transmits n. Validation failures are attached to n and do not
// produce an error; the returned error is always critical.
func (e *Engine) Send(ctx context.Context, n *proto.PushedNotification) error {
	if err := proto.ValidateToken(n.Device.Token); err != nil {
		n.SetError(err)
		otel.RecordCount(otel.Failed, otel.Tags{TagName: "pool", TagValue: e.name})
		return nil
	}
	if n.Payload == nil {
		n.SetError(errors.ErrPayloadIsEmpty)
		otel.RecordCount(otel.Failed, otel.Tags{TagName: "pool", TagValue: e.name})
		return nil
	}
	if err := n.Payload.Validate(); err != nil {
		n.SetError(err)
		otel.RecordCount(otel.Failed, otel.Tags{TagName: "pool", TagValue: e.name})
		return nil
	}
	if len(n.Payload.Bytes()) == 0 {
		n.SetError(errors.ErrPayloadIsEmpty)
		otel.RecordCount(otel.Failed, otel.Tags{TagName: "pool", TagValue: e.name})
		return nil
	}
	if n.Identifier == 0 {
		e.nextId++
		n.Identifier = e.idBase | e.nextId
	}
	if n.Expiry == 0 {
		n.Expiry = util.GetExpirationTime(n.Payload.Expiry())
	}
	frame, err := e.encode(n)
	if err != nil {
		n.SetError(err)
		return nil
	}
	if err = e.Open(ctx); err != nil {
		n.SetError(err)
		return err
	}
	e.tracker.OnSent(n)
	if err = e.transmit(ctx, n, frame); err != nil {
		return err
	}
	return e.poll(ctx)
}

// PollResponses checks an idle connection for error responses.
func (e *Engine) PollResponses(ctx context.Context) error {
	if e.conn == nil || !e.conf.Enhanced() {
		return nil
	}
	timeout := e.conf.PollTimeout.Duration
	if timeout <= 0 {
		timeout = time.Millisecond
	}
	return e.processResponses(ctx, e.readResponses(timeout))
}

func (e *Engine) encode(n *proto.PushedNotification) ([]byte, error) {
	return proto.EncodeNotification(n.Device.Token, n.Payload.Bytes(), n.Identifier, n.Expiry, e.conf.Enhanced())
}

// transmit writes frame, reconnecting and rewriting on I/O failure until the
// attempts are exhausted.
func (e *Engine) transmit(ctx context.Context, n *proto.PushedNotification, frame []byte) error {
	for attempts := 1; ; attempts++ {
		n.AddAttempt()
		timeStart := time.Now()
		err := e.write(frame)
		elapsed := time.Since(timeStart)
		if e.stats != nil {
			e.stats.Put(elapsed, err)
		}
		if err == nil {
			n.SetCompleted(true)
			e.backoff.Reset()
			otel.RecordSend(e.name, otel.StatusSuccess, elapsed)
			otel.RecordCount(otel.Sent, otel.Tags{TagName: "pool", TagValue: e.name})
			if glog.LOG_VERBOSE {
				glog.Verbosef("sent %s", logging.NewKVBufferForLog().AddPool(e.name).AddNotification(n).String())
			}
			return nil
		}
		otel.RecordSend(e.name, otel.StatusError, elapsed)
		if attempts >= e.conf.RetryAttempts {
			n.SetCompleted(false)
			cerr := errors.ErrCommunication.Wrap(err, "id=%d after %d attempts", n.Identifier, attempts)
			n.SetError(cerr)
			otel.RecordCount(otel.Failed, otel.Tags{TagName: "pool", TagValue: e.name})
			glog.Errorln(cerr)
			return cerr
		}
		glog.Warningf("attempt %d for id=%d failed: %s", attempts, n.Identifier, err)
		if err = e.reopen(ctx); err != nil {
			n.SetError(err)
			return err
		}
	}
}

func (e *Engine) write(frame []byte) error {
	if e.conn == nil {
		return &IOError{Err: fmt.Errorf("not connected")}
	}
	if e.conf.SocketTimeout.Duration > 0 {
		e.conn.SetWriteDeadline(time.Now().Add(e.conf.SocketTimeout.Duration))
	}
	if _, err := e.conn.Write(frame); err != nil {
		return &IOError{Err: err}
	}
	return nil
}

// reopen replaces a broken connection without draining it.
func (e *Engine) reopen(ctx context.Context) error {
	e.closeConn()
	wait := e.backoff.NextBackOff()
	if wait != backoff.Stop && wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return errors.ErrCommunication.Wrap(ctx.Err(), "reconnect cancelled")
		}
	}
	if err := e.Open(ctx); err != nil {
		return err
	}
	e.onRestarted()
	return nil
}

func (e *Engine) poll(ctx context.Context) error {
	if e.conf.PollTimeout.Duration < 0 || !e.conf.Enhanced() {
		return nil
	}
	return e.processResponses(ctx, e.readResponses(e.conf.PollTimeout.Duration))
}

// readResponses collects complete error frames until a read yields nothing
// within timeout. Running out of data is not an error.
func (e *Engine) readResponses(timeout time.Duration) (responses []*proto.ErrorResponse) {
	if e.conn == nil {
		return
	}
	for {
		e.conn.SetReadDeadline(time.Now().Add(timeout))
		b, err := e.reader.Peek(proto.ErrorResponseSize)
		if err != nil {
			if glog.LOG_VERBOSE && len(b) != 0 {
				glog.Verbosef("partial error response (%d bytes): %s", len(b), err)
			}
			break
		}
		if r := proto.DecodeErrorResponse(b); r != nil {
			responses = append(responses, r)
		}
		e.reader.Discard(proto.ErrorResponseSize)
	}
	if e.conn != nil {
		e.conn.SetReadDeadline(time.Time{})
	}
	return
}

func (e *Engine) closeConn() {
	if e.conn != nil {
		e.conn.Close()
		e.conn = nil
		util.PutBufioReader(e.reader)
		e.reader = nil
	}
}

func (e *Engine) onRestarted() {
	e.restarts++
	otel.RecordCount(otel.Restart, otel.Tags{TagName: "pool", TagValue: e.name})
	if e.onRestart != nil {
		e.onRestart()
	}
}
