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
	"context"
	"fmt"
	"strconv"

	"binpush/internal/cli"
	"binpush/pkg/errors"
	"binpush/pkg/io"
	"binpush/pkg/logging"
	"binpush/pkg/logging/glog"
	"binpush/pkg/logging/otel"
	"binpush/pkg/proto"
	"binpush/pkg/sec"
)

type clientImplT struct {
	config       Config
	notification cli.Dialer
	feedback     cli.Dialer
	listener     cli.ProgressListener
	otelEnabled  bool
}

// New validates conf, loads the credentials and prepares the connectors.
// Nothing is dialed until the first send.
func New(conf *Config, opts ...IOption) (IClient, error) {
	if conf == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := *conf
	cfg.SetDefaultIfNotDefined()
	data := newOptionData(opts...)

	needKeyStore := !cfg.PlainTCP && data.keyStore == nil &&
		(data.notificationDialer == nil || data.feedbackDialer == nil)
	if err := cfg.validate(needKeyStore); err != nil {
		return nil, err
	}
	if glog.LOG_DEBUG {
		cfg.Dump()
	}

	var tlsCtx *sec.TlsContext
	if needKeyStore || (!cfg.PlainTCP && data.keyStore != nil) {
		ks := data.keyStore
		if ks == nil {
			var err error
			if ks, err = sec.LoadKeyStore(&cfg.Sec); err != nil {
				return nil, err
			}
		}
		var err error
		if tlsCtx, err = sec.NewTlsContext(&cfg.Sec, ks); err != nil {
			return nil, err
		}
	}

	envProxy := io.ProxyFunc(io.EnvironmentProxy)
	if data.envProxySet {
		envProxy = data.envProxy
	} else if cfg.IgnoreEnvironmentProxy {
		envProxy = nil
	}
	var libraryProxy *io.ProxyConfig
	if cfg.Proxy.IsSet() {
		p := cfg.Proxy
		libraryProxy = &p
	}
	connector := func(ep io.Endpoint, out io.OutboundConfig) *cli.Connector {
		return cli.NewConnector(cli.ConnectorConfig{
			Endpoint:       ep,
			TLS:            tlsCtx,
			ConnectTimeout: out.ConnectTimeout.Duration,
			Proxy:          data.proxy,
			LibraryProxy:   libraryProxy,
			EnvProxy:       envProxy,
			UserAgent:      cfg.UserAgent,
		})
	}

	c := &clientImplT{
		config:       cfg,
		notification: data.notificationDialer,
		feedback:     data.feedbackDialer,
		listener:     data.listener,
	}
	if c.notification == nil {
		ep := data.notificationEndpoint
		if ep == nil {
			ep = cfg.notificationEndpoint()
		}
		c.notification = connector(ep, cfg.Outbound)
	}
	if c.feedback == nil {
		ep := data.feedbackEndpoint
		if ep == nil {
			ep = cfg.feedbackEndpoint()
		}
		c.feedback = connector(ep, cfg.Outbound)
	}
	if cfg.Otel.Enabled {
		if err := otel.Initialize(&cfg.Otel); err != nil {
			glog.Warningf("metrics disabled: %s", err)
		} else {
			c.otelEnabled = true
		}
	}
	return c, nil
}

func (c *clientImplT) Close() {
	if c.otelEnabled {
		otel.Finalize()
		c.otelEnabled = false
	}
}

func (c *clientImplT) newEngine() *cli.Engine {
	return cli.NewEngine(c.notification, c.config.Outbound)
}

func (c *clientImplT) Push(ctx context.Context, device proto.Device, payload proto.Payload) (*proto.PushedNotification, error) {
	e := c.newEngine()
	n := proto.NewPushedNotification(device, payload, 0)
	if err := e.Send(ctx, n); err != nil {
		e.Close(ctx)
		c.logError("Push", err)
		return n, err
	}
	err := e.Close(ctx)
	c.logError("Push", err)
	return n, err
}

func (c *clientImplT) PushBatch(ctx context.Context, payload proto.Payload, devices []proto.Device) ([]*proto.PushedNotification, error) {
	return c.PushPayloads(ctx, proto.AsPayloadsPerDevice(payload, devices))
}

// PushPayloads sends items in order over one connection. Items after a
// critical error are returned as failed with that error attached.
func (c *clientImplT) PushPayloads(ctx context.Context, items []proto.PayloadPerDevice) (sent []*proto.PushedNotification, err error) {
	e := c.newEngine()
	sent = make([]*proto.PushedNotification, 0, len(items))
	for _, item := range items {
		n := proto.NewPushedNotification(item.Device, item.Payload, 0)
		sent = append(sent, n)
		if err != nil {
			n.SetError(err)
			continue
		}
		err = e.Send(ctx, n)
	}
	if err == nil {
		err = e.Close(ctx)
	} else {
		e.Close(ctx)
	}
	c.logError("PushPayloads", err)
	return
}

func (c *clientImplT) PushConcurrently(ctx context.Context, items []proto.PayloadPerDevice, workers int) ([]*proto.PushedNotification, []error) {
	p, err := c.StartPool(ctx, items, workers)
	if err != nil {
		return nil, []error{err}
	}
	p.Wait()
	errs := p.CriticalErrors()
	for _, err := range errs {
		c.logError("PushConcurrently", err)
	}
	return p.Notifications(), errs
}

func (c *clientImplT) StartPool(ctx context.Context, items []proto.PayloadPerDevice, workers int) (IPool, error) {
	p := cli.NewListPool(c.notification, c.config.Outbound, c.workerConfig(len(items)), items, workers)
	if c.listener != nil {
		p.SetListener(c.listener)
	}
	if err := p.Start(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// workerConfig keeps every result of a batch of n.
func (c *clientImplT) workerConfig(n int) io.WorkerConfig {
	wc := c.config.Worker
	if n > wc.MaxRetained {
		wc.MaxRetained = n
	}
	return wc
}

func (c *clientImplT) OpenQueue(workers int) IQueue {
	if workers <= 1 {
		w := cli.NewQueueWorker(c.notification, c.config.Outbound, c.config.Worker, 1)
		if c.listener != nil {
			w.SetListener(c.listener)
		}
		return &singleQueue{w}
	}
	p := cli.NewQueuePool(c.notification, c.config.Outbound, c.config.Worker, workers)
	if c.listener != nil {
		p.SetListener(c.listener)
	}
	return p
}

func (c *clientImplT) Feedback(ctx context.Context) ([]proto.Device, error) {
	devices, err := cli.ReadFeedback(ctx, c.feedback, c.config.Outbound.SocketTimeout.Duration)
	c.logError("Feedback", err)
	return devices, err
}

func (c *clientImplT) logError(op string, err error) {
	if err == nil {
		return
	}
	b := logging.NewKVBufferForLog()
	b.Add([]byte("op"), op).Add([]byte("app"), c.config.AppName)
	b.Add([]byte("critical"), strconv.FormatBool(errors.IsCritical(err)))
	glog.Errorf("[ERROR] %s. %s", b.String(), err)
}

// singleQueue adapts one worker to IQueue.
type singleQueue struct {
	*cli.Worker
}

func (q *singleQueue) Start(ctx context.Context) error {
	q.Worker.Start(ctx)
	return nil
}

func (q *singleQueue) CriticalErrors() []error {
	if err := q.CriticalError(); err != nil {
		return []error{err}
	}
	return nil
}
