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
	"testing"
	"time"

	"golang.org/x/net/http/httpproxy"
)

func TestResolveProxyPrecedence(t *testing.T) {
	perConn := &ProxyConfig{Host: "conn-proxy", Port: 3128}
	library := &ProxyConfig{Host: "lib-proxy", Port: 8080}
	env := ProxyFromConfig(&httpproxy.Config{HTTPSProxy: "http://user:pw@env-proxy:8888", NoProxy: "internal.example.com"})

	tests := []struct {
		name    string
		perConn *ProxyConfig
		library *ProxyConfig
		target  string
		want    string
	}{
		{"per connection wins", perConn, library, "gateway.example.com:2195", "conn-proxy"},
		{"library next", nil, library, "gateway.example.com:2195", "lib-proxy"},
		{"empty override ignored", &ProxyConfig{}, library, "gateway.example.com:2195", "lib-proxy"},
		{"environment last", nil, nil, "gateway.example.com:2195", "env-proxy"},
		{"no proxy honored", nil, nil, "internal.example.com:2195", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveProxy(tt.perConn, tt.library, env, tt.target)
			if err != nil {
				t.Fatal(err)
			}
			host := ""
			if got.IsSet() {
				host = got.Host
			}
			if host != tt.want {
				t.Errorf("resolved %q, want %q", host, tt.want)
			}
		})
	}
}

func TestProxyFromConfigAuthorization(t *testing.T) {
	fn := ProxyFromConfig(&httpproxy.Config{HTTPSProxy: "http://user:pw@env-proxy"})
	p, err := fn("gateway.example.com:2195")
	if err != nil {
		t.Fatal(err)
	}
	if p.Port != 80 {
		t.Errorf("default port = %d", p.Port)
	}
	if p.Authorization != "Basic dXNlcjpwdw==" {
		t.Errorf("Authorization = %q", p.Authorization)
	}
}

func TestEndpoints(t *testing.T) {
	tests := []struct {
		e    ServiceEndpoint
		want string
	}{
		{NotificationEndpoint(true), "gateway.push.apple.com:2195"},
		{NotificationEndpoint(false), "gateway.sandbox.push.apple.com:2195"},
		{FeedbackEndpoint(true), "feedback.push.apple.com:2196"},
		{FeedbackEndpoint(false), "feedback.sandbox.push.apple.com:2196"},
	}
	for _, tt := range tests {
		if got := Addr(tt.e); got != tt.want {
			t.Errorf("Addr() = %s, want %s", got, tt.want)
		}
	}
	var e ServiceEndpoint
	if err := e.SetFromConnString("127.0.0.1:12195"); err != nil || e.Port != 12195 {
		t.Errorf("SetFromConnString: %v %+v", err, e)
	}
	if err := e.SetFromConnString("nohost"); err == nil {
		t.Error("expected error")
	}
}

func TestOutboundConfigDefaults(t *testing.T) {
	conf := OutboundConfig{PollTimeout: DefaultOutboundConfig.PollTimeout}
	conf.PollTimeout.Duration = -1
	if !conf.SetDefaultIfNotDefined() {
		t.Fatal("defaults expected")
	}
	if conf.RetryAttempts != 3 || conf.DrainTimeout.Duration != 5*time.Second {
		t.Errorf("unexpected defaults %+v", conf)
	}
	if conf.PollTimeout.Duration >= 0 {
		t.Error("negative poll timeout must be kept")
	}
	if conf.SocketTimeout.Duration != 0 {
		t.Error("zero socket timeout means none and must be kept")
	}

	var w WorkerConfig
	w.SetDefaultIfNotDefined()
	if w.MaxNotificationsPerConnection != 200 || w.MaxRetained != 1000 || w.DelayBetweenWorkers.Duration != 500*time.Millisecond {
		t.Errorf("unexpected worker defaults %+v", w)
	}
}
