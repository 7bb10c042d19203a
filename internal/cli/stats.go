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

package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

type (
	// Stats accumulates frame write latencies.
	Stats struct {
		mtx       sync.Mutex
		hist      *hdrhistogram.Histogram
		total     time.Duration
		numErrors int64
		tmStart   time.Time
	}

	StatsData struct {
		Throughput   float32
		AvgLatency   time.Duration
		MinLatency   time.Duration
		MaxLatency   time.Duration
		P50Latency   time.Duration
		P95Latency   time.Duration
		P99Latency   time.Duration
		P9999Latency time.Duration
		NumRequests  int64
		NumErrors    int64
		Elapsed      time.Duration
	}
)

func NewStats() *Stats {
	return &Stats{
		hist:    hdrhistogram.New(1, int64(3600*time.Second), 3),
		tmStart: time.Now(),
	}
}

func (s *Stats) Put(tm time.Duration, err error) {
	s.mtx.Lock()
	s.hist.RecordValues(int64(tm), 1)
	s.total += tm
	if err != nil {
		s.numErrors++
	}
	s.mtx.Unlock()
}

// Merge adds o's samples into s. s and o must differ.
func (s *Stats) Merge(o *Stats) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	o.mtx.Lock()
	defer o.mtx.Unlock()
	s.hist.Merge(o.hist)
	s.total += o.total
	s.numErrors += o.numErrors
	if o.tmStart.Before(s.tmStart) {
		s.tmStart = o.tmStart
	}
}

func (s *Stats) Reset() {
	s.mtx.Lock()
	s.hist.Reset()
	s.total = 0
	s.numErrors = 0
	s.tmStart = time.Now()
	s.mtx.Unlock()
}

func (s *Stats) GetStats() (stat StatsData) {
	s.mtx.Lock()
	stat.NumRequests = s.hist.TotalCount()
	stat.NumErrors = s.numErrors
	stat.MinLatency = time.Duration(s.hist.Min())
	stat.MaxLatency = time.Duration(s.hist.Max())
	stat.P50Latency = time.Duration(s.hist.ValueAtQuantile(50.))
	stat.P95Latency = time.Duration(s.hist.ValueAtQuantile(95.))
	stat.P99Latency = time.Duration(s.hist.ValueAtQuantile(99.))
	stat.P9999Latency = time.Duration(s.hist.ValueAtQuantile(99.99))
	stat.Elapsed = time.Since(s.tmStart)
	total := s.total
	s.mtx.Unlock()

	if stat.NumRequests != 0 {
		stat.AvgLatency = time.Duration(float32(total) / float32(stat.NumRequests))
	}
	if stat.Elapsed > 0 {
		stat.Throughput = float32(stat.NumRequests) / float32(stat.Elapsed.Seconds())
	}
	return
}

func (s *Stats) PrettyPrint(w io.Writer, label string) {
	msfunc := func(d time.Duration) time.Duration {
		return d.Round(time.Microsecond)
	}
	stat := s.GetStats()
	fmt.Fprintln(w,
		`
  sends/s   |                              write latency                                               |  number of |  number of
            | average    | min        | max        |        50% |      95%   |      99%   |     99.99% |  writes    |  errors
------------+------------+------------+------------+------------+------------+------------+------------+------------+-------------`)
	fmt.Fprintf(w, "%12.2f %12s %12s %12s %12s %12s %12s %12s %12d %12d  %s\n",
		stat.Throughput, msfunc(stat.AvgLatency), msfunc(stat.MinLatency), msfunc(stat.MaxLatency),
		msfunc(stat.P50Latency), msfunc(stat.P95Latency), msfunc(stat.P99Latency), msfunc(stat.P9999Latency),
		stat.NumRequests, stat.NumErrors, label)
}
