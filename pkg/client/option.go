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

package client

import (
	"binpush/internal/cli"
	"binpush/pkg/io"
	"binpush/pkg/sec"
)

type optionData struct {
	notificationEndpoint io.Endpoint
	feedbackEndpoint     io.Endpoint
	notificationDialer   cli.Dialer
	feedbackDialer       cli.Dialer
	keyStore             *sec.KeyStore
	proxy                *io.ProxyConfig
	envProxy             io.ProxyFunc
	envProxySet          bool
	listener             cli.ProgressListener
}

type IOption func(data interface{})

// WithNotificationEndpoint overrides the gateway address.
func WithNotificationEndpoint(ep io.Endpoint) IOption {
	return func(i interface{}) {
		if data, ok := i.(*optionData); ok {
			data.notificationEndpoint = ep
		}
	}
}

func WithFeedbackEndpoint(ep io.Endpoint) IOption {
	return func(i interface{}) {
		if data, ok := i.(*optionData); ok {
			data.feedbackEndpoint = ep
		}
	}
}

// WithDialer replaces the connection factory used for notifications.
func WithDialer(d cli.Dialer) IOption {
	return func(i interface{}) {
		if data, ok := i.(*optionData); ok {
			data.notificationDialer = d
		}
	}
}

func WithFeedbackDialer(d cli.Dialer) IOption {
	return func(i interface{}) {
		if data, ok := i.(*optionData); ok {
			data.feedbackDialer = d
		}
	}
}

// WithKeyStore supplies already loaded credentials instead of the [Sec]
// files.
func WithKeyStore(ks *sec.KeyStore) IOption {
	return func(i interface{}) {
		if data, ok := i.(*optionData); ok {
			data.keyStore = ks
		}
	}
}

// WithProxy sets a proxy for this client's connections. It takes precedence
// over the configured [Proxy] and the environment.
func WithProxy(p *io.ProxyConfig) IOption {
	return func(i interface{}) {
		if data, ok := i.(*optionData); ok {
			data.proxy = p
		}
	}
}

// WithEnvironmentProxy replaces the HTTPS_PROXY lookup. nil disables it.
func WithEnvironmentProxy(fn io.ProxyFunc) IOption {
	return func(i interface{}) {
		if data, ok := i.(*optionData); ok {
			data.envProxy = fn
			data.envProxySet = true
		}
	}
}

func WithProgressListener(l cli.ProgressListener) IOption {
	return func(i interface{}) {
		if data, ok := i.(*optionData); ok {
			data.listener = l
		}
	}
}

func newOptionData(opts ...IOption) *optionData {
	data := &optionData{}
	for _, op := range opts {
		op(data)
	}
	return data
}
