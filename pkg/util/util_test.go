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

package util

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestGetExpirationTimeFrom(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tests := []struct {
		name string
		ttl  int
		want uint32
	}{
		{"do not store", 0, 0},
		{"negative", -5, 0},
		{"one hour", 3600, 1700003600},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExpirationTimeFrom(now, tt.ttl); got != tt.want {
				t.Errorf("GetExpirationTimeFrom() = %d, want %d", got, tt.want)
			}
		})
	}
	if got := GetExpirationTimeFrom(time.Unix(math.MaxUint32-1, 0), 100); got != math.MaxUint32 {
		t.Errorf("expected clamping to MaxUint32, got %d", got)
	}
}

func TestDurationText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("1500ms")); err != nil {
		t.Fatal(err)
	}
	if d.Duration != 1500*time.Millisecond {
		t.Errorf("got %v", d.Duration)
	}
	text, _ := d.MarshalText()
	if string(text) != "1.5s" {
		t.Errorf("MarshalText() = %s", text)
	}
	if err := d.UnmarshalText([]byte("soon")); err == nil {
		t.Error("expected parse error")
	}
}

func TestTimerWrapper(t *testing.T) {
	tw := NewTimerWrapper(time.Hour)
	if !tw.IsStopped() || tw.GetTimeoutCh() != nil {
		t.Fatal("new timer should be stopped")
	}
	tw.Reset(5 * time.Millisecond)
	select {
	case <-tw.GetTimeoutCh():
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	tw.Stop()
	if !tw.IsStopped() {
		t.Error("timer should be stopped")
	}
}

func TestBufioReaderPool(t *testing.T) {
	br := NewBufioReader(strings.NewReader("first"), 16)
	PutBufioReader(br)
	br = NewBufioReader(strings.NewReader("second"), 16)
	b, err := br.Peek(6)
	if err != nil || string(b) != "second" {
		t.Errorf("Peek() = %q, %v", b, err)
	}
	PutBufioReader(nil)
}
