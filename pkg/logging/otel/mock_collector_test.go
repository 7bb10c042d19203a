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

package otel

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"

	collectormetricpb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	metricpb "go.opentelemetry.io/proto/otlp/metrics/v1"
	"google.golang.org/protobuf/proto"
)

const DefaultMetricsPath string = "/v1/metrics"

type mockCollector struct {
	server   *http.Server
	port     int
	mtx      sync.Mutex
	metrics  []*metricpb.Metric
	requests int
}

func runMockCollector(t *testing.T) *mockCollector {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	m := &mockCollector{port: ln.Addr().(*net.TCPAddr).Port}
	mux := http.NewServeMux()
	mux.Handle(DefaultMetricsPath, http.HandlerFunc(m.serveMetrics))
	m.server = &http.Server{Handler: mux}
	go func() {
		_ = m.server.Serve(ln)
	}()
	return m
}

func (c *mockCollector) MustStop(t *testing.T) {
	if err := c.server.Shutdown(context.Background()); err != nil {
		t.Log(err)
	}
}

func (c *mockCollector) serveMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("content-type") != "application/x-protobuf" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	request := &collectormetricpb.ExportMetricsServiceRequest{}
	if err = proto.Unmarshal(raw, request); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	rawResponse, _ := proto.Marshal(&collectormetricpb.ExportMetricsServiceResponse{})
	w.Header().Set("Content-Type", "application/x-protobuf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rawResponse)

	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.requests++
	for _, rm := range request.GetResourceMetrics() {
		for _, sm := range rm.GetScopeMetrics() {
			c.metrics = append(c.metrics, sm.GetMetrics()...)
		}
	}
}

func (c *mockCollector) GetMetrics() []*metricpb.Metric {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	m := make([]*metricpb.Metric, 0, len(c.metrics))
	return append(m, c.metrics...)
}
