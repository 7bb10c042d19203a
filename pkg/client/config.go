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
	"fmt"

	"github.com/BurntSushi/toml"

	"binpush/pkg/io"
	"binpush/pkg/logging/glog"
	otelCfg "binpush/pkg/logging/otel/config"
	"binpush/pkg/sec"
)

// Config is the toml-loadable client configuration.
//
//	AppName = "pusher"
//	Production = false
//
//	[Sec]
//	KeyStoreFilePath = "push.p12"
//	KeyStorePassword = "secret"
//
//	[Outbound]
//	ConnectTimeout = "5s"
//	RetryAttempts = 3
//
//	[Worker]
//	MaxNotificationsPerConnection = 500
type Config struct {
	AppName    string
	Production bool

	// NotificationAddr and FeedbackAddr ("host:port") replace the Apple
	// endpoints selected by Production.
	NotificationAddr string
	FeedbackAddr     string

	// PlainTCP skips TLS. Only fake gateways accept it.
	PlainTCP bool

	Proxy                  io.ProxyConfig
	ProxyUser              string
	ProxyPassword          string
	IgnoreEnvironmentProxy bool

	UserAgent string
	Sec       sec.Config
	Outbound  io.OutboundConfig
	Worker    io.WorkerConfig
	Otel      otelCfg.Config
}

var defaultConfig = Config{
	AppName:  "binpush",
	Outbound: io.DefaultOutboundConfig,
	Worker:   io.DefaultWorkerConfig,
}

func DefaultConfig() Config {
	return defaultConfig
}

// LoadConfig reads a toml file on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	conf := DefaultConfig()
	if _, err := toml.DecodeFile(path, &conf); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	conf.SetDefaultIfNotDefined()
	return &conf, nil
}

func (c *Config) SetDefaultIfNotDefined() {
	if len(c.AppName) == 0 {
		c.AppName = defaultConfig.AppName
	}
	if len(c.ProxyUser) != 0 && len(c.Proxy.Authorization) == 0 {
		c.Proxy.SetBasicAuthorization(c.ProxyUser, c.ProxyPassword)
	}
	if len(c.Otel.AppName) == 0 {
		c.Otel.AppName = c.AppName
	}
	c.Sec.SetDefaultIfNotDefined()
	c.Outbound.SetDefaultIfNotDefined()
	c.Worker.SetDefaultIfNotDefined()
	c.Otel.SetDefaultIfNotDefined()
}

func (c *Config) validate(needKeyStore bool) error {
	if len(c.NotificationAddr) != 0 {
		var ep io.ServiceEndpoint
		if err := ep.SetFromConnString(c.NotificationAddr); err != nil {
			return fmt.Errorf("NotificationAddr: %w", err)
		}
	}
	if len(c.FeedbackAddr) != 0 {
		var ep io.ServiceEndpoint
		if err := ep.SetFromConnString(c.FeedbackAddr); err != nil {
			return fmt.Errorf("FeedbackAddr: %w", err)
		}
	}
	if c.Proxy.IsSet() && (c.Proxy.Port <= 0 || c.Proxy.Port > 65535) {
		return fmt.Errorf("Proxy.Port %d out of range", c.Proxy.Port)
	}
	if needKeyStore {
		if err := c.Sec.Validate(); err != nil {
			return err
		}
	}
	return c.Otel.Validate()
}

func (c *Config) notificationEndpoint() io.Endpoint {
	return endpointOrDefault(c.NotificationAddr, io.NotificationEndpoint(c.Production))
}

func (c *Config) feedbackEndpoint() io.Endpoint {
	return endpointOrDefault(c.FeedbackAddr, io.FeedbackEndpoint(c.Production))
}

func endpointOrDefault(addr string, def io.ServiceEndpoint) io.Endpoint {
	if len(addr) == 0 {
		return def
	}
	var ep io.ServiceEndpoint
	if err := ep.SetFromConnString(addr); err != nil {
		return def
	}
	return ep
}

func (c *Config) Dump() {
	glog.Infof("Client: AppName=%s Production=%v Notification=%s Feedback=%s Proxy=%s PlainTCP=%v",
		c.AppName, c.Production, io.Addr(c.notificationEndpoint()), io.Addr(c.feedbackEndpoint()), &c.Proxy, c.PlainTCP)
	if !c.PlainTCP {
		c.Sec.Dump()
	}
	c.Outbound.Dump()
	c.Worker.Dump()
	c.Otel.Dump()
}
