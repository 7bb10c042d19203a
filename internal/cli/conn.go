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
	"net"
	"time"

	"binpush/pkg/errors"
	"binpush/pkg/io"
	"binpush/pkg/logging/glog"
	"binpush/pkg/logging/otel"
	"binpush/pkg/sec"
)

const DefaultUserAgent = "binpush"

type (
	// Dialer opens one ready-to-use gateway connection.
	Dialer interface {
		Connect(ctx context.Context) (net.Conn, error)
	}

	ConnectorConfig struct {
		Endpoint io.Endpoint

		// TLS is nil for plain TCP.
		TLS            *sec.TlsContext
		ConnectTimeout time.Duration
		Proxy          *io.ProxyConfig
		LibraryProxy   *io.ProxyConfig
		EnvProxy       io.ProxyFunc
		UserAgent      string
	}

	// Connector is stateless once built and may be shared by workers.
	Connector struct {
		cfg ConnectorConfig
	}
)

func NewConnector(cfg ConnectorConfig) *Connector {
	if len(cfg.UserAgent) == 0 {
		cfg.UserAgent = DefaultUserAgent
	}
	return &Connector{cfg: cfg}
}

func (c *Connector) Endpoint() io.Endpoint {
	return c.cfg.Endpoint
}

func (c *Connector) Connect(ctx context.Context) (conn net.Conn, err error) {
	timeStart := time.Now()
	target := io.Addr(c.cfg.Endpoint)
	status := otel.StatusSuccess
	defer func() {
		if err != nil {
			status = otel.StatusError
		}
		otel.RecordConnect(target, status, time.Since(timeStart))
	}()

	var proxy *io.ProxyConfig
	if proxy, err = io.ResolveProxy(c.cfg.Proxy, c.cfg.LibraryProxy, c.cfg.EnvProxy, target); err != nil {
		err = errors.ErrCommunication.Wrap(err, "proxy resolution for %s", target)
		return
	}
	if c.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.ConnectTimeout)
		defer cancel()
	}

	var raw net.Conn
	if proxy.IsSet() {
		if raw, err = dialTunnel(ctx, proxy, target, c.cfg.UserAgent); err != nil {
			glog.Warningf("tunnel to %s through %s failed: %s", target, proxy, err)
			return
		}
	} else {
		dialer := &net.Dialer{}
		if raw, err = dialer.DialContext(ctx, "tcp", target); err != nil {
			err = errors.ErrCommunication.Wrap(err, "connect to %s", target)
			glog.Warningln(err)
			return
		}
	}
	if c.cfg.TLS == nil {
		conn = raw
		if glog.LOG_DEBUG {
			glog.DebugInfof("connected to %s via %s (plain) elapsed=%s", target, proxy, time.Since(timeStart))
		}
		return
	}
	host, _ := c.cfg.Endpoint.Endpoint()
	var tlsConn sec.Conn
	if tlsConn, err = c.cfg.TLS.Client(ctx, raw, host); err != nil {
		raw.Close()
		err = errors.ErrCommunication.Wrap(err, "TLS handshake with %s", target)
		glog.Warningln(err)
		return
	}
	if glog.LOG_DEBUG {
		glog.DebugInfof("connected to %s via %s %s elapsed=%s", target, proxy, tlsConn.GetStateString(), time.Since(timeStart))
	}
	conn = tlsConn
	return
}
