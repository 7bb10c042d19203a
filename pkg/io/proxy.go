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
	"encoding/base64"
	"net"
	"net/url"
	"strconv"

	"golang.org/x/net/http/httpproxy"
)

// ProxyConfig describes an HTTP proxy reached with CONNECT. Authorization
// is the complete Proxy-Authorization header value, e.g. "Basic dXNlcjpwdw==".
type ProxyConfig struct {
	Host          string
	Port          int
	Authorization string
}

// ProxyFunc resolves the proxy for target ("host:port"). nil means direct.
type ProxyFunc func(target string) (*ProxyConfig, error)

func (p *ProxyConfig) IsSet() bool {
	return p != nil && len(p.Host) != 0
}

func (p *ProxyConfig) Endpoint() (string, int) {
	return p.Host, p.Port
}

func (p *ProxyConfig) SetBasicAuthorization(user, password string) {
	p.Authorization = "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+password))
}

// ResolveProxy applies the precedence: per-connection override, then the
// library-wide setting, then the ambient environment.
func ResolveProxy(perConn, library *ProxyConfig, env ProxyFunc, target string) (*ProxyConfig, error) {
	if perConn.IsSet() {
		return perConn, nil
	}
	if library.IsSet() {
		return library, nil
	}
	if env == nil {
		return nil, nil
	}
	return env(target)
}

// EnvironmentProxy reads HTTPS_PROXY, HTTP_PROXY and NO_PROXY.
func EnvironmentProxy(target string) (*ProxyConfig, error) {
	return ProxyFromConfig(httpproxy.FromEnvironment())(target)
}

func ProxyFromConfig(cfg *httpproxy.Config) ProxyFunc {
	fn := cfg.ProxyFunc()
	return func(target string) (*ProxyConfig, error) {
		u, err := fn(&url.URL{Scheme: "https", Host: target})
		if err != nil || u == nil {
			return nil, err
		}
		p := &ProxyConfig{Host: u.Hostname()}
		if port := u.Port(); port != "" {
			if p.Port, err = strconv.Atoi(port); err != nil {
				return nil, err
			}
		} else if u.Scheme == "https" {
			p.Port = 443
		} else {
			p.Port = 80
		}
		if u.User != nil {
			pw, _ := u.User.Password()
			p.SetBasicAuthorization(u.User.Username(), pw)
		}
		return p, nil
	}
}

func (p *ProxyConfig) String() string {
	if !p.IsSet() {
		return "direct"
	}
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}
