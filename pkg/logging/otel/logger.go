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
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric/global"
	"go.opentelemetry.io/otel/metric/instrument"
	"go.opentelemetry.io/otel/metric/instrument/syncint64"
	"go.opentelemetry.io/otel/metric/unit"
	"go.opentelemetry.io/otel/sdk/instrumentation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/aggregation"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"

	otelCfg "binpush/pkg/logging/otel/config"
	"binpush/pkg/logging/glog"
)

const (
	METRIC_PREFIX = "binpush.client."
	MeterName     = "binpush-client-meter"
)

type CMetric int

const (
	Sent CMetric = CMetric(iota)
	Failed
	ErrorResponse
	Resent
	Restart
	CriticalError
)

const (
	StatusSuccess string = "SUCCESS"
	StatusError   string = "ERROR"
)

type Tags struct {
	TagName  string
	TagValue string
}

type countMetric struct {
	metricName    string
	metricDesc    string
	counter       syncint64.Counter
	createCounter sync.Once
}

var countMetricMap = map[CMetric]*countMetric{
	Sent:          {metricName: "sent", metricDesc: "Notification frames written to the gateway"},
	Failed:        {metricName: "failed", metricDesc: "Notifications that could not be delivered"},
	ErrorResponse: {metricName: "error_response", metricDesc: "Error-response frames received from the gateway"},
	Resent:        {metricName: "resent", metricDesc: "Notifications resent after an error response"},
	Restart:       {metricName: "restart", metricDesc: "Gateway connections closed and reopened"},
	CriticalError: {metricName: "critical_error", metricDesc: "Workers stopped by a critical error"},
}

var (
	connectHistogramOnce sync.Once
	sendHistogramOnce    sync.Once
	connectHistogram     syncint64.Histogram
	sendHistogram        syncint64.Histogram

	providerMtx   sync.Mutex
	meterProvider *metric.MeterProvider
)

// Initialize starts the OTLP exporter when the configuration enables it.
func Initialize(c *otelCfg.Config) (err error) {
	if c == nil {
		return fmt.Errorf("nil otel config")
	}
	if err = c.Validate(); err != nil {
		glog.Error(err)
		return
	}
	c.Dump()
	if c.Enabled {
		err = InitMetricProvider(c)
	}
	return
}

func InitMetricProvider(config *otelCfg.Config) error {
	providerMtx.Lock()
	defer providerMtx.Unlock()
	if meterProvider != nil {
		glog.Info("meter provider already initialized")
		return nil
	}
	config.SetDefaultIfNotDefined()
	ctx := context.Background()

	connectView := metric.NewView(
		metric.Instrument{
			Name:  PopulateMetricNamePrefix("connect"),
			Scope: instrumentation.Scope{Name: MeterName},
		},
		metric.Stream{
			Aggregation: aggregation.ExplicitBucketHistogram{Boundaries: config.HistogramBuckets.Connect},
		})
	sendView := metric.NewView(
		metric.Instrument{
			Name:  PopulateMetricNamePrefix("send"),
			Scope: instrumentation.Scope{Name: MeterName},
		},
		metric.Stream{
			Aggregation: aggregation.ExplicitBucketHistogram{Boundaries: config.HistogramBuckets.Send},
		})

	provider, err := NewMeterProvider(ctx, config, connectView, sendView)
	if err != nil {
		return err
	}
	meterProvider = provider
	global.SetMeterProvider(provider)
	glog.Infof("otel metrics exported to %s every %ds", config.Endpoint(), config.Resolution)
	return nil
}

func NewMeterProvider(ctx context.Context, cfg *otelCfg.Config, vis ...metric.View) (*metric.MeterProvider, error) {
	exp, err := NewHTTPExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	reader := metric.NewPeriodicReader(exp, metric.WithInterval(time.Duration(cfg.Resolution)*time.Second))
	return metric.NewMeterProvider(
		metric.WithResource(getResourceInfo(cfg.AppName)),
		metric.WithReader(reader),
		metric.WithView(vis...),
	), nil
}

func NewHTTPExporter(ctx context.Context, cfg *otelCfg.Config) (metric.Exporter, error) {
	var deltaTemporalitySelector = func(metric.InstrumentKind) metricdata.Temporality { return metricdata.DeltaTemporality }
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint()),
		otlpmetrichttp.WithURLPath(cfg.UrlPath),
		otlpmetrichttp.WithTimeout(7 * time.Second),
		otlpmetrichttp.WithCompression(otlpmetrichttp.NoCompression),
		otlpmetrichttp.WithTemporalitySelector(deltaTemporalitySelector),
		otlpmetrichttp.WithRetry(otlpmetrichttp.RetryConfig{
			Enabled:         true,
			InitialInterval: 1 * time.Second,
			MaxInterval:     10 * time.Second,
			MaxElapsedTime:  240 * time.Second,
		}),
	}
	if !cfg.UseTls {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	return otlpmetrichttp.New(ctx, opts...)
}

func IsEnabled() bool {
	providerMtx.Lock()
	defer providerMtx.Unlock()
	return meterProvider != nil
}

// Flush exports what has been recorded so far.
func Flush(ctx context.Context) error {
	providerMtx.Lock()
	p := meterProvider
	providerMtx.Unlock()
	if p == nil {
		return nil
	}
	return p.ForceFlush(ctx)
}

func Finalize() {
	providerMtx.Lock()
	defer providerMtx.Unlock()
	if meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(ctx); err != nil {
			glog.Warningf("otel shutdown: %s", err)
		}
		meterProvider = nil
	}
}

func GetHistogramForConnect() (syncint64.Histogram, error) {
	var err error
	connectHistogramOnce.Do(func() {
		meter := global.Meter(MeterName)
		connectHistogram, err = meter.SyncInt64().Histogram(
			PopulateMetricNamePrefix("connect"),
			instrument.WithDescription("Histogram for gateway connection establishment"),
			instrument.WithUnit(unit.Milliseconds),
		)
	})
	if connectHistogram == nil && err == nil {
		err = errors.New("connect histogram not ready")
	}
	return connectHistogram, err
}

func GetHistogramForSend() (syncint64.Histogram, error) {
	var err error
	sendHistogramOnce.Do(func() {
		meter := global.Meter(MeterName)
		sendHistogram, err = meter.SyncInt64().Histogram(
			PopulateMetricNamePrefix("send"),
			instrument.WithDescription("Histogram for notification frame writes"),
			instrument.WithUnit(unit.Milliseconds),
		)
	})
	if sendHistogram == nil && err == nil {
		err = errors.New("send histogram not ready")
	}
	return sendHistogram, err
}

func GetCounter(counterName CMetric) (syncint64.Counter, error) {
	counterMetric, ok := countMetricMap[counterName]
	if !ok {
		return nil, errors.New("No Such counter exists")
	}
	counterMetric.createCounter.Do(func() {
		meter := global.Meter(MeterName)
		counterMetric.counter, _ = meter.SyncInt64().Counter(
			PopulateMetricNamePrefix(counterMetric.metricName),
			instrument.WithDescription(counterMetric.metricDesc),
		)
	})
	if counterMetric.counter == nil {
		return nil, errors.New("Counter Object not Ready")
	}
	return counterMetric.counter, nil
}

func RecordConnect(endpoint string, status string, latency time.Duration) {
	if h, err := GetHistogramForConnect(); err == nil {
		h.Record(context.Background(), latency.Milliseconds(),
			attribute.String("endpoint", endpoint),
			attribute.String("status", status),
		)
	}
}

func RecordSend(pool string, status string, latency time.Duration) {
	if h, err := GetHistogramForSend(); err == nil {
		h.Record(context.Background(), latency.Milliseconds(),
			attribute.String("pool", pool),
			attribute.String("status", status),
		)
	}
}

func RecordCount(counterName CMetric, tags ...Tags) {
	RecordCountN(counterName, 1, tags...)
}

func RecordCountN(counterName CMetric, n int64, tags ...Tags) {
	if n <= 0 {
		return
	}
	counter, err := GetCounter(counterName)
	if err != nil {
		glog.Error(err)
		return
	}
	counter.Add(context.Background(), n, covertTagsToOTELAttributes(tags)...)
}

func covertTagsToOTELAttributes(tags []Tags) (attr []attribute.KeyValue) {
	attr = make([]attribute.KeyValue, len(tags))
	for i := 0; i < len(tags); i++ {
		attr[i] = attribute.String(tags[i].TagName, tags[i].TagValue)
	}
	return
}

func PopulateMetricNamePrefix(metricName string) string {
	return METRIC_PREFIX + metricName
}

func getResourceInfo(appName string) *resource.Resource {
	hostname, _ := os.Hostname()
	return resource.NewWithAttributes(semconv.SchemaURL,
		semconv.HostNameKey.String(hostname),
		semconv.ServiceNameKey.String(appName),
		attribute.String("application", appName),
	)
}
