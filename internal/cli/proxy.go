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
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"binpush/pkg/errors"
	"binpush/pkg/io"
)

const maxTunnelReplySize = 8 * 1024

// dialTunnel opens a plain TCP connection to proxy and asks it to CONNECT
// to target. The returned connection carries raw bytes to target.
func dialTunnel(ctx context.Context, proxy *io.ProxyConfig, target string, userAgent string) (net.Conn, error) {
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", io.Addr(proxy))
	if err != nil {
		return nil, errors.ErrCommunication.Wrap(err, "connect to proxy %s", proxy)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	if err = handshakeTunnel(conn, proxy, target, userAgent); err != nil {
		conn.Close()
		return nil, err
	}
	conn.SetDeadline(time.Time{})
	return conn, nil
}

func handshakeTunnel(conn net.Conn, proxy *io.ProxyConfig, target string, userAgent string) error {
	var req bytes.Buffer
	fmt.Fprintf(&req, "CONNECT %s HTTP/1.0\r\n", target)
	fmt.Fprintf(&req, "User-Agent: %s\r\n", userAgent)
	if len(proxy.Authorization) != 0 {
		fmt.Fprintf(&req, "Proxy-Authorization: %s\r\n", proxy.Authorization)
	}
	req.WriteString("\r\n")
	if _, err := conn.Write(req.Bytes()); err != nil {
		return errors.ErrCommunication.Wrap(err, "write CONNECT to %s", proxy)
	}

	reply, err := readTunnelReply(conn)
	if err != nil {
		return errors.ErrProxyTunnel.Wrap(err, "read reply from %s", proxy)
	}
	statusLine := reply
	if i := strings.IndexAny(reply, "\r\n"); i >= 0 {
		statusLine = reply[:i]
	}
	if !strings.Contains(statusLine, "200") {
		return errors.ErrProxyTunnel.Wrap(nil, "%s returns %q", proxy, statusLine)
	}
	return nil
}

// readTunnelReply reads one byte at a time until two consecutive line
// terminators, so no byte belonging to the tunnelled stream is consumed.
func readTunnelReply(conn net.Conn) (string, error) {
	var reply []byte
	var b [1]byte
	newlines := 0
	for newlines < 2 {
		if _, err := conn.Read(b[:]); err != nil {
			return string(reply), err
		}
		switch b[0] {
		case '\n':
			newlines++
		case '\r':
		default:
			newlines = 0
		}
		reply = append(reply, b[0])
		if len(reply) > maxTunnelReplySize {
			return string(reply), fmt.Errorf("reply exceeds %d bytes", maxTunnelReplySize)
		}
	}
	return string(reply), nil
}
