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
Package client sends notifications through the legacy binary push gateway.

A Client is built once from a Config and reused. Credentials are loaded when
the client is created and shared by every connection it opens.

	conf, err := client.LoadConfig("binpush.toml")
	c, err := client.New(conf)
	n, err := c.Push(ctx, proto.NewDevice(token), proto.NewPayload(body, 3600))

Per-notification problems (bad tokens, oversized payloads, error responses
from the gateway) are attached to the returned PushedNotification. The error
return is reserved for critical failures: bad credentials, or a gateway
that cannot be reached after the configured retries.

	Push, PushBatch, PushPayloads
	* nil
	* ErrCommunication
	* ErrProxyTunnel
	* ErrKeystore and its variants

	PushConcurrently, Queue.CriticalErrors
	* one critical error per failed worker
*/
package client

import (
	"context"

	"binpush/internal/cli"
	"binpush/pkg/proto"
)

type IClient interface {
	// Push sends one notification on its own connection.
	Push(ctx context.Context, device proto.Device, payload proto.Payload) (*proto.PushedNotification, error)
	// PushBatch sends payload to every device over a single connection.
	PushBatch(ctx context.Context, payload proto.Payload, devices []proto.Device) ([]*proto.PushedNotification, error)
	PushPayloads(ctx context.Context, items []proto.PayloadPerDevice) ([]*proto.PushedNotification, error)
	// PushConcurrently splits items across workers and waits for all of them.
	PushConcurrently(ctx context.Context, items []proto.PayloadPerDevice, workers int) ([]*proto.PushedNotification, []error)
	StartPool(ctx context.Context, items []proto.PayloadPerDevice, workers int) (IPool, error)
	OpenQueue(workers int) IQueue
	// Feedback lists the devices the feedback service reports as inactive.
	Feedback(ctx context.Context) ([]proto.Device, error)
	Close()
}

// IPool is a running batch split across workers.
type IPool interface {
	Id() string
	Size() int
	Wait()
	WaitForAllWorkers(returnCritical bool) error
	Stop()
	Notifications() []*proto.PushedNotification
	CriticalErrors() []error
	// Stats merges the write latencies of every worker.
	Stats() *cli.Stats
}

// IQueue accepts notifications until stopped. Stop sends what is already
// queued before the connections are closed.
type IQueue interface {
	Start(ctx context.Context) error
	Add(device proto.Device, payload proto.Payload) error
	Stop()
	Wait()
	Notifications() []*proto.PushedNotification
	CriticalErrors() []error
}
