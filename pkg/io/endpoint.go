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

package io

import (
	"fmt"
	"net"
	"strconv"
)

const (
	NotificationHostProduction = "gateway.push.apple.com"
	NotificationHostSandbox    = "gateway.sandbox.push.apple.com"
	NotificationPort           = 2195

	FeedbackHostProduction = "feedback.push.apple.com"
	FeedbackHostSandbox    = "feedback.sandbox.push.apple.com"
	FeedbackPort           = 2196
)

// Endpoint is a gateway address a connection can be opened to.
type Endpoint interface {
	Endpoint() (host string, port int)
}

type ServiceEndpoint struct {
	Host string
	Port int
}

func (p ServiceEndpoint) Endpoint() (string, int) {
	return p.Host, p.Port
}

func (p ServiceEndpoint) Validate() (err error) {
	if len(p.Host) == 0 {
		err = fmt.Errorf("ServiceEndpoint.Host not specified")
	} else if p.Port <= 0 || p.Port > 65535 {
		err = fmt.Errorf("ServiceEndpoint.Port %d out of range", p.Port)
	}
	return
}

func (p ServiceEndpoint) String() string {
	return Addr(p)
}

// SetFromConnString parses "host:port".
func (p *ServiceEndpoint) SetFromConnString(connStr string) error {
	host, port, err := net.SplitHostPort(connStr)
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid port in %q: %w", connStr, err)
	}
	p.Host, p.Port = host, n
	return p.Validate()
}

func NotificationEndpoint(production bool) ServiceEndpoint {
	if production {
		return ServiceEndpoint{Host: NotificationHostProduction, Port: NotificationPort}
	}
	return ServiceEndpoint{Host: NotificationHostSandbox, Port: NotificationPort}
}

func FeedbackEndpoint(production bool) ServiceEndpoint {
	if production {
		return ServiceEndpoint{Host: FeedbackHostProduction, Port: FeedbackPort}
	}
	return ServiceEndpoint{Host: FeedbackHostSandbox, Port: FeedbackPort}
}

func Addr(e Endpoint) string {
	host, port := e.Endpoint()
	return net.JoinHostPort(host, strconv.Itoa(port))
}
