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

package mockgw

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
)

// Proxy is a minimal HTTP CONNECT proxy. With RejectStatus set it answers
// every request with that status instead of tunnelling.
type Proxy struct {
	ln           net.Listener
	rejectStatus int

	mtx      sync.Mutex
	requests []*http.Request
	active   map[net.Conn]struct{}
	wg       sync.WaitGroup
}

func StartProxy(rejectStatus int) (*Proxy, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	p := &Proxy{ln: ln, rejectStatus: rejectStatus, active: make(map[net.Conn]struct{})}
	p.wg.Add(1)
	go p.serve()
	return p, nil
}

func (p *Proxy) Endpoint() (string, int) {
	return endpointOf(p.ln)
}

// Requests returns the CONNECT requests seen so far.
func (p *Proxy) Requests() []*http.Request {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	out := make([]*http.Request, len(p.requests))
	copy(out, p.requests)
	return out
}

func (p *Proxy) Close() {
	p.ln.Close()
	p.mtx.Lock()
	for c := range p.active {
		c.Close()
	}
	p.mtx.Unlock()
	p.wg.Wait()
}

func (p *Proxy) serve() {
	defer p.wg.Done()
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			return
		}
		p.mtx.Lock()
		p.active[conn] = struct{}{}
		p.mtx.Unlock()
		p.wg.Add(1)
		go p.handle(conn)
	}
}

func (p *Proxy) handle(conn net.Conn) {
	defer p.wg.Done()
	defer func() {
		conn.Close()
		p.mtx.Lock()
		delete(p.active, conn)
		p.mtx.Unlock()
	}()
	r := bufio.NewReader(conn)
	req, err := http.ReadRequest(r)
	if err != nil {
		return
	}
	p.mtx.Lock()
	p.requests = append(p.requests, req)
	p.mtx.Unlock()

	if req.Method != http.MethodConnect {
		fmt.Fprintf(conn, "HTTP/1.0 405 Method Not Allowed\r\n\r\n")
		return
	}
	if p.rejectStatus != 0 {
		fmt.Fprintf(conn, "HTTP/1.0 %d %s\r\n\r\n", p.rejectStatus, http.StatusText(p.rejectStatus))
		return
	}
	target, err := net.Dial("tcp", req.Host)
	if err != nil {
		fmt.Fprintf(conn, "HTTP/1.0 502 Bad Gateway\r\n\r\n")
		return
	}
	defer target.Close()
	fmt.Fprintf(conn, "HTTP/1.0 200 Connection established\r\nProxy-agent: mockgw\r\n\r\n")

	done := make(chan struct{}, 2)
	go func() {
		io.Copy(target, r)
		if tc, ok := target.(*net.TCPConn); ok {
			tc.CloseWrite()
		}
		done <- struct{}{}
	}()
	go func() {
		io.Copy(conn, target)
		done <- struct{}{}
	}()
	<-done
}
