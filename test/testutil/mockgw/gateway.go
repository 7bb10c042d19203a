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

/*
Package mockgw provides in-process stand-ins for the push gateway, the
feedback service and an HTTP CONNECT proxy.
*/
package mockgw

import (
	"bufio"
	"crypto/tls"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"binpush/pkg/logging/glog"
	"binpush/pkg/proto"
)

type (
	Option func(*Gateway)

	// Gateway accepts notification frames and records them per connection.
	// Identifiers registered with WithFailure are answered with an error
	// frame the first time they are seen.
	Gateway struct {
		ln           net.Listener
		tlsConfig    *tls.Config
		closeOnError bool
		readDelay    time.Duration

		mtx      sync.Mutex
		failures map[uint32]proto.Status
		conns    [][]*proto.Frame
		active   map[net.Conn]struct{}
		wg       sync.WaitGroup
	}
)

func WithTLS(cfg *tls.Config) Option {
	return func(g *Gateway) {
		g.tlsConfig = cfg
	}
}

func WithFailure(id uint32, status proto.Status) Option {
	return func(g *Gateway) {
		g.failures[id] = status
	}
}

// WithCloseOnError makes the gateway close the connection right after it
// writes an error frame, as the production service does.
func WithCloseOnError(closeOnError bool) Option {
	return func(g *Gateway) {
		g.closeOnError = closeOnError
	}
}

func WithReadDelay(d time.Duration) Option {
	return func(g *Gateway) {
		g.readDelay = d
	}
}

func Start(opts ...Option) (*Gateway, error) {
	g := &Gateway{
		failures: make(map[uint32]proto.Status),
		active:   make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	if g.tlsConfig != nil {
		ln = tls.NewListener(ln, g.tlsConfig)
	}
	g.ln = ln
	g.wg.Add(1)
	go g.serve()
	return g, nil
}

func (g *Gateway) Endpoint() (string, int) {
	return endpointOf(g.ln)
}

func (g *Gateway) Addr() string {
	return g.ln.Addr().String()
}

// AddFailure registers another identifier to reject once.
func (g *Gateway) AddFailure(id uint32, status proto.Status) {
	g.mtx.Lock()
	g.failures[id] = status
	g.mtx.Unlock()
}

func (g *Gateway) Connections() int {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return len(g.conns)
}

// Frames returns the frames received on the i-th accepted connection.
func (g *Gateway) Frames(i int) []*proto.Frame {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	if i < 0 || i >= len(g.conns) {
		return nil
	}
	out := make([]*proto.Frame, len(g.conns[i]))
	copy(out, g.conns[i])
	return out
}

// Identifiers returns the identifiers received on the i-th connection.
func (g *Gateway) Identifiers(i int) []uint32 {
	var ids []uint32
	for _, f := range g.Frames(i) {
		ids = append(ids, f.Identifier)
	}
	return ids
}

func (g *Gateway) TotalFrames() (n int) {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	for _, c := range g.conns {
		n += len(c)
	}
	return
}

// WaitForFrames blocks until at least n frames were received overall.
func (g *Gateway) WaitForFrames(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if g.TotalFrames() >= n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return g.TotalFrames() >= n
}

func (g *Gateway) Close() {
	g.ln.Close()
	g.mtx.Lock()
	for c := range g.active {
		c.Close()
	}
	g.mtx.Unlock()
	g.wg.Wait()
}

func (g *Gateway) serve() {
	defer g.wg.Done()
	for {
		conn, err := g.ln.Accept()
		if err != nil {
			return
		}
		g.mtx.Lock()
		index := len(g.conns)
		g.conns = append(g.conns, nil)
		g.active[conn] = struct{}{}
		g.mtx.Unlock()
		g.wg.Add(1)
		go g.handle(conn, index)
	}
}

func (g *Gateway) handle(conn net.Conn, index int) {
	defer g.wg.Done()
	defer func() {
		conn.Close()
		g.mtx.Lock()
		delete(g.active, conn)
		g.mtx.Unlock()
	}()
	r := bufio.NewReader(conn)
	for {
		f, err := proto.ReadFrame(r)
		if err != nil {
			if err != io.EOF && glog.LOG_DEBUG {
				glog.DebugInfof("mockgw conn %d: %s", index, err)
			}
			return
		}
		if g.readDelay > 0 {
			time.Sleep(g.readDelay)
		}
		g.mtx.Lock()
		g.conns[index] = append(g.conns[index], f)
		status, fail := g.failures[f.Identifier]
		if fail && f.Command == proto.CommandEnhanced {
			delete(g.failures, f.Identifier)
		} else {
			fail = false
		}
		g.mtx.Unlock()

		if fail {
			if _, err = conn.Write(proto.NewErrorResponse(status, f.Identifier).Encode()); err != nil {
				return
			}
			if g.closeOnError {
				return
			}
		}
	}
}

func endpointOf(ln net.Listener) (string, int) {
	host, port, _ := net.SplitHostPort(ln.Addr().String())
	p, _ := strconv.Atoi(port)
	return host, p
}
