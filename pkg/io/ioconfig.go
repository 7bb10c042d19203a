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
	"time"

	"binpush/pkg/logging/glog"
	"binpush/pkg/util"
)

var (
	DefaultOutboundConfig = OutboundConfig{
		ConnectTimeout:        util.Duration{Duration: 10 * time.Second},
		SocketTimeout:         util.Duration{Duration: 30 * time.Second},
		DrainTimeout:          util.Duration{Duration: 5 * time.Second},
		PollTimeout:           util.Duration{Duration: 1 * time.Millisecond},
		RetryAttempts:         3,
		ReconnectIntervalBase: util.Duration{Duration: 100 * time.Millisecond},
		ReconnectIntervalMax:  util.Duration{Duration: 5 * time.Second},
		IOBufSize:             4 * 1024,
	}

	DefaultWorkerConfig = WorkerConfig{
		MaxNotificationsPerConnection: 200,
		DelayBetweenWorkers:           util.Duration{Duration: 500 * time.Millisecond},
		MaxRetained:                   1000,
		IdleCheckInterval:             util.Duration{Duration: 10 * time.Second},
	}
)

type (
	// OutboundConfig holds the per-connection transmission settings.
	OutboundConfig struct {
		ConnectTimeout util.Duration

		// SocketTimeout bounds every write. Zero disables it.
		SocketTimeout util.Duration

		// DrainTimeout bounds every read while draining error frames.
		DrainTimeout util.Duration

		// PollTimeout bounds the read that follows every write. A negative
		// value disables polling; error frames are then only seen at drain time.
		PollTimeout util.Duration

		RetryAttempts int

		// SimpleFormat selects command 0 frames. Recovery is not possible
		// with them since they carry no identifier.
		SimpleFormat bool

		ReconnectIntervalBase util.Duration
		ReconnectIntervalMax  util.Duration
		IOBufSize             int
	}

	WorkerConfig struct {
		MaxNotificationsPerConnection int
		SleepBetweenNotifications     util.Duration
		DelayBetweenWorkers           util.Duration
		MaxRetained                   int
		IdleCheckInterval             util.Duration
	}
)

func (conf *OutboundConfig) SetDefaultIfNotDefined() (set bool) {
	if conf.ConnectTimeout.Duration == 0 {
		set = true
		conf.ConnectTimeout = DefaultOutboundConfig.ConnectTimeout
	}
	if conf.DrainTimeout.Duration == 0 {
		set = true
		conf.DrainTimeout = DefaultOutboundConfig.DrainTimeout
	}
	if conf.PollTimeout.Duration == 0 {
		set = true
		conf.PollTimeout = DefaultOutboundConfig.PollTimeout
	}
	if conf.RetryAttempts <= 0 {
		set = true
		conf.RetryAttempts = DefaultOutboundConfig.RetryAttempts
	}
	if conf.ReconnectIntervalBase.Duration == 0 {
		set = true
		conf.ReconnectIntervalBase = DefaultOutboundConfig.ReconnectIntervalBase
	}
	if conf.ReconnectIntervalMax.Duration < conf.ReconnectIntervalBase.Duration {
		set = true
		conf.ReconnectIntervalMax = DefaultOutboundConfig.ReconnectIntervalMax
		if conf.ReconnectIntervalMax.Duration < conf.ReconnectIntervalBase.Duration {
			conf.ReconnectIntervalMax = conf.ReconnectIntervalBase
		}
	}
	if conf.IOBufSize == 0 {
		set = true
		conf.IOBufSize = DefaultOutboundConfig.IOBufSize
	}
	return
}

func (conf *OutboundConfig) Enhanced() bool {
	return !conf.SimpleFormat
}

func (conf *OutboundConfig) Dump() {
	glog.Infof("Outbound: ConnectTimeout=%s SocketTimeout=%s DrainTimeout=%s PollTimeout=%s RetryAttempts=%d SimpleFormat=%v",
		conf.ConnectTimeout.Duration, conf.SocketTimeout.Duration, conf.DrainTimeout.Duration,
		conf.PollTimeout.Duration, conf.RetryAttempts, conf.SimpleFormat)
}

func (conf *WorkerConfig) SetDefaultIfNotDefined() (set bool) {
	if conf.MaxNotificationsPerConnection <= 0 {
		set = true
		conf.MaxNotificationsPerConnection = DefaultWorkerConfig.MaxNotificationsPerConnection
	}
	if conf.DelayBetweenWorkers.Duration == 0 {
		set = true
		conf.DelayBetweenWorkers = DefaultWorkerConfig.DelayBetweenWorkers
	}
	if conf.MaxRetained <= 0 {
		set = true
		conf.MaxRetained = DefaultWorkerConfig.MaxRetained
	}
	if conf.IdleCheckInterval.Duration == 0 {
		set = true
		conf.IdleCheckInterval = DefaultWorkerConfig.IdleCheckInterval
	}
	return
}

func (conf *WorkerConfig) Dump() {
	glog.Infof("Worker: MaxNotificationsPerConnection=%d SleepBetweenNotifications=%s DelayBetweenWorkers=%s MaxRetained=%d",
		conf.MaxNotificationsPerConnection, conf.SleepBetweenNotifications.Duration,
		conf.DelayBetweenWorkers.Duration, conf.MaxRetained)
}
