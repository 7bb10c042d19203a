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
	"testing"
	"time"

	otelCfg "binpush/pkg/logging/otel/config"
)

func TestConfigDefaults(t *testing.T) {
	c := otelCfg.Config{Enabled: true}
	if err := c.Validate(); err == nil {
		t.Error("AppName required when enabled")
	}
	c.AppName = "pnscli"
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if c.Port != 4318 || c.Resolution != 60 || c.UrlPath != "/v1/metrics" || len(c.HistogramBuckets.Send) == 0 {
		t.Errorf("unexpected defaults %+v", c)
	}
}

func TestMetricsExported(t *testing.T) {
	mc := runMockCollector(t)
	defer mc.MustStop(t)

	cfg := &otelCfg.Config{
		Host:       "127.0.0.1",
		Port:       uint32(mc.port),
		Enabled:    true,
		AppName:    "binpush-test",
		Resolution: 60,
	}
	if err := Initialize(cfg); err != nil {
		t.Fatal(err)
	}
	defer Finalize()
	if !IsEnabled() {
		t.Fatal("provider not initialized")
	}

	RecordCount(Sent, Tags{"pool", "p1"})
	RecordCountN(Resent, 2, Tags{"pool", "p1"})
	RecordCount(ErrorResponse, Tags{"status", "8"})
	RecordConnect("127.0.0.1:2195", StatusSuccess, 12*time.Millisecond)
	RecordSend("p1", StatusSuccess, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := Flush(ctx); err != nil {
		t.Fatal(err)
	}

	seen := make(map[string]bool)
	for _, m := range mc.GetMetrics() {
		seen[m.GetName()] = true
	}
	for _, name := range []string{"sent", "resent", "error_response", "connect", "send"} {
		if !seen[PopulateMetricNamePrefix(name)] {
			t.Errorf("metric %s not exported, got %v", name, seen)
		}
	}
}

func TestUnknownCounter(t *testing.T) {
	if _, err := GetCounter(CMetric(99)); err == nil {
		t.Error("expected error")
	}
}
