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
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"binpush/pkg/errors"
	"binpush/pkg/io"
	"binpush/pkg/proto"
	"binpush/pkg/util"
	"binpush/test/testutil/mockgw"
)

type countingListener struct {
	LogProgressListener
	started   int32
	finished  int32
	restarts  int32
	criticals int32
	poolDone  int32
}

func (l *countingListener) EventWorkerStarted(*Worker) { atomic.AddInt32(&l.started, 1) }
func (l *countingListener) EventWorkerFinished(*Worker) { atomic.AddInt32(&l.finished, 1) }
func (l *countingListener) EventConnectionRestarted(*Worker) { atomic.AddInt32(&l.restarts, 1) }
func (l *countingListener) EventAllWorkersFinished(*Pool) { atomic.AddInt32(&l.poolDone, 1) }

func (l *countingListener) EventCriticalError(*Worker, error) {
	atomic.AddInt32(&l.criticals, 1)
}

type refusingDialer struct{}

func (refusingDialer) Connect(context.Context) (net.Conn, error) {
	return nil, fmt.Errorf("connection refused")
}

func testItems(count int) []proto.PayloadPerDevice {
	devices := make([]proto.Device, count)
	for i := range devices {
		devices[i] = proto.NewDevice(testToken(i + 1))
	}
	return proto.AsPayloadsPerDevice(testPayload(), devices)
}

func testWorkerConfig() io.WorkerConfig {
	c := io.DefaultWorkerConfig
	c.DelayBetweenWorkers = util.Duration{Duration: time.Millisecond}
	c.IdleCheckInterval = util.Duration{Duration: 20 * time.Millisecond}
	return c
}

func TestListWorkerRestartsConnection(t *testing.T) {
	gw := startGateway(t)
	wc := testWorkerConfig()
	wc.MaxNotificationsPerConnection = 2
	l := &countingListener{}

	w := NewListWorker(plainDialer(gw), testOutbound(), wc, 1, testItems(5))
	w.SetListener(l)
	w.Start(context.Background())
	w.Wait()

	if err := w.CriticalError(); err != nil {
		t.Fatal(err)
	}
	if !gw.WaitForFrames(5, 2*time.Second) {
		t.Fatalf("gateway received %d frames", gw.TotalFrames())
	}
	base := uint32(1 << 24)
	want := [][]uint32{{base | 1, base | 2}, {base | 3, base | 4}, {base | 5}}
	var got [][]uint32
	for i := 0; i < gw.Connections(); i++ {
		got = append(got, gw.Identifiers(i))
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("frames per connection (-want +got):\n%s", diff)
	}
	if l.restarts != 2 || l.started != 1 || l.finished != 1 {
		t.Errorf("events: restarts=%d started=%d finished=%d", l.restarts, l.started, l.finished)
	}
	if w.Sent() != 5 || len(proto.FindSuccessful(w.Notifications())) != 5 {
		t.Errorf("sent=%d notifications=%d", w.Sent(), len(w.Notifications()))
	}
	if w.Stats().GetStats().NumRequests != 5 {
		t.Errorf("stats recorded %d writes", w.Stats().GetStats().NumRequests)
	}
}

func TestQueueWorker(t *testing.T) {
	gw := startGateway(t)
	w := NewQueueWorker(plainDialer(gw), testOutbound(), testWorkerConfig(), 2)
	if w.Mode() != ModeQueue {
		t.Fatalf("mode %s", w.Mode())
	}
	w.Start(context.Background())
	for _, item := range testItems(3) {
		if err := w.Add(item.Device, item.Payload); err != nil {
			t.Fatal(err)
		}
	}
	if !gw.WaitForFrames(3, 2*time.Second) {
		t.Fatalf("gateway received %d frames", gw.TotalFrames())
	}
	// let the idle check run at least once
	time.Sleep(50 * time.Millisecond)
	w.Stop()
	w.Wait()

	if err := w.Add(proto.NewDevice(testToken(9)), testPayload()); err == nil {
		t.Error("Add after Stop should fail")
	}
	if w.Sent() != 3 || w.IsBusy() {
		t.Errorf("sent=%d busy=%v", w.Sent(), w.IsBusy())
	}
	if gw.Connections() != 1 {
		t.Errorf("connections=%d, want 1", gw.Connections())
	}
}

func TestListWorkerRejectsAdd(t *testing.T) {
	w := NewListWorker(refusingDialer{}, testOutbound(), testWorkerConfig(), 1, nil)
	if err := w.Add(proto.NewDevice(testToken(1)), testPayload()); err == nil {
		t.Error("LIST worker accepted Add")
	}
}

func TestWorkerCriticalError(t *testing.T) {
	l := &countingListener{}
	w := NewListWorker(refusingDialer{}, testOutbound(), testWorkerConfig(), 1, testItems(2))
	w.SetListener(l)
	w.Start(context.Background())
	w.Wait()

	if !errors.IsCritical(w.CriticalError()) {
		t.Errorf("critical error %v", w.CriticalError())
	}
	if l.criticals != 1 {
		t.Errorf("critical events %d", l.criticals)
	}
	for _, n := range w.Notifications() {
		if !errors.Is(n.Err(), errors.ErrWorkerStopped) && !errors.Is(n.Err(), errors.ErrCommunication) {
			t.Errorf("item not marked failed: %s", n)
		}
	}
	if n := len(w.Notifications()); n != 2 {
		t.Errorf("%d notifications recorded, want 2", n)
	}
}

// flakyDialer refuses the first refuse connects and then dials through.
type flakyDialer struct {
	refuse int32
	next   Dialer
}

func (d *flakyDialer) Connect(ctx context.Context) (net.Conn, error) {
	if atomic.AddInt32(&d.refuse, -1) >= 0 {
		return nil, fmt.Errorf("connection refused")
	}
	return d.next.Connect(ctx)
}

func waitForAnyWorker(t *testing.T, workers []*Worker) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		for _, w := range workers {
			select {
			case <-w.Done():
				return
			default:
			}
		}
		select {
		case <-deadline:
			t.Fatal("no worker finished")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestQueueWorkerRecordsUnsentAfterCriticalError(t *testing.T) {
	w := NewQueueWorker(refusingDialer{}, testOutbound(), testWorkerConfig(), 1)
	for _, item := range testItems(2) {
		if err := w.Add(item.Device, item.Payload); err != nil {
			t.Fatal(err)
		}
	}
	w.Start(context.Background())
	w.Wait()

	if !errors.IsCritical(w.CriticalError()) {
		t.Fatalf("critical error %v", w.CriticalError())
	}
	ns := w.Notifications()
	if len(ns) != 2 {
		t.Fatalf("%d notifications recorded, want 2", len(ns))
	}
	for _, n := range ns {
		if n.IsSuccessful() || !errors.Is(n.Err(), errors.ErrWorkerStopped) || !errors.Is(n.Err(), errors.ErrCommunication) {
			t.Errorf("unsent item: %s", n)
		}
	}
	err := w.Add(proto.NewDevice(testToken(3)), testPayload())
	if !errors.Is(err, errors.ErrWorkerStopped) {
		t.Errorf("Add on a dead worker: %v", err)
	}
}

func TestQueuePoolSkipsStoppedWorkers(t *testing.T) {
	gw := startGateway(t)
	p := NewQueuePool(&flakyDialer{refuse: 1, next: plainDialer(gw)}, testOutbound(), testWorkerConfig(), 2)
	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitForAnyWorker(t, p.Workers())
	if n := len(p.CriticalErrors()); n != 1 {
		t.Fatalf("%d critical errors, want 1", n)
	}

	rejected := 0
	for _, item := range testItems(4) {
		if err := p.Add(item.Device, item.Payload); err != nil {
			rejected++
		}
	}
	if rejected != 0 {
		t.Fatalf("%d items rejected with a live worker", rejected)
	}
	if !gw.WaitForFrames(4, 2*time.Second) {
		t.Fatalf("gateway received %d frames", gw.TotalFrames())
	}
	p.Stop()
	p.Wait()
	if n := len(proto.FindSuccessful(p.Notifications())); n != 4 {
		t.Errorf("%d successful, want 4", n)
	}

	err := p.Add(proto.NewDevice(testToken(9)), testPayload())
	if !errors.Is(err, errors.ErrWorkerStopped) {
		t.Errorf("Add on a stopped pool: %v", err)
	}
}

func TestQueuePoolAllWorkersDead(t *testing.T) {
	p := NewQueuePool(refusingDialer{}, testOutbound(), testWorkerConfig(), 2)
	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	p.Wait()
	err := p.Add(proto.NewDevice(testToken(1)), testPayload())
	if !errors.Is(err, errors.ErrWorkerStopped) || !errors.Is(err, errors.ErrCommunication) {
		t.Errorf("got %v", err)
	}
}

func TestPoolStopBeforeStart(t *testing.T) {
	p := NewQueuePool(refusingDialer{}, testOutbound(), testWorkerConfig(), 2)
	if err := p.Add(proto.NewDevice(testToken(1)), testPayload()); err != nil {
		t.Fatal(err)
	}
	p.Stop()

	done := make(chan error, 1)
	go func() { done <- p.WaitForAllWorkers(true) }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait blocked on a pool stopped before Start")
	}
	ns := p.Notifications()
	if len(ns) != 1 || !errors.Is(ns[0].Err(), errors.ErrWorkerStopped) {
		t.Errorf("notifications %v", ns)
	}
	if err := p.Start(context.Background()); err == nil {
		t.Error("Start after Stop should fail")
	}
}

func TestPartition(t *testing.T) {
	tests := []struct {
		total int
		n     int
		sizes []int
	}{
		{10, 3, []int{3, 3, 4}},
		{2, 5, []int{1, 1}},
		{7, 1, []int{7}},
		{4, 0, []int{4}},
		{0, 3, nil},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%d/%d", tc.total, tc.n), func(t *testing.T) {
			var sizes []int
			for _, part := range partition(testItems(tc.total), tc.n) {
				sizes = append(sizes, len(part))
			}
			if diff := cmp.Diff(tc.sizes, sizes); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestListPool(t *testing.T) {
	gw := startGateway(t)
	l := &countingListener{}
	p := NewListPool(plainDialer(gw), testOutbound(), testWorkerConfig(), testItems(10), 3)
	p.SetListener(l)
	if p.Size() != 3 || len(p.Id()) == 0 {
		t.Fatalf("size=%d id=%q", p.Size(), p.Id())
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := p.WaitForAllWorkers(true); err != nil {
		t.Fatal(err)
	}
	if !gw.WaitForFrames(10, 2*time.Second) {
		t.Fatalf("gateway received %d frames", gw.TotalFrames())
	}
	if n := len(proto.FindSuccessful(p.Notifications())); n != 10 {
		t.Errorf("%d successful notifications", n)
	}
	if l.poolDone != 1 || l.finished != 3 {
		t.Errorf("events: poolDone=%d finished=%d", l.poolDone, l.finished)
	}
	if p.Stats().GetStats().NumRequests != 10 {
		t.Errorf("merged stats %+v", p.Stats().GetStats())
	}
	var buf bytes.Buffer
	p.Stats().PrettyPrint(&buf, "pool")
	if !strings.Contains(buf.String(), "pool") {
		t.Errorf("stats output %q", buf.String())
	}
}

func TestPoolCriticalErrors(t *testing.T) {
	p := NewListPool(refusingDialer{}, testOutbound(), testWorkerConfig(), testItems(4), 2)
	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := p.WaitForAllWorkers(true); !errors.IsCritical(err) {
		t.Errorf("got %v", err)
	}
	if len(p.CriticalErrors()) != 2 {
		t.Errorf("%d critical errors", len(p.CriticalErrors()))
	}
	if err := p.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}
}

func TestQueuePoolFallsBackWhenBusy(t *testing.T) {
	p := NewQueuePool(refusingDialer{}, testOutbound(), testWorkerConfig(), 2)
	workers := p.Workers()
	for _, w := range workers {
		atomic.StoreInt32(&w.busy, 1)
	}
	var got []int
	for i := 0; i < 3; i++ {
		got = append(got, p.nextWorker().Number())
	}
	if diff := cmp.Diff([]int{1, 2, 1}, got); diff != "" {
		t.Errorf("round robin (-want +got):\n%s", diff)
	}

	atomic.StoreInt32(&workers[0].busy, 0)
	for i := 0; i < 2; i++ {
		if n := p.nextWorker().Number(); n != 1 {
			t.Errorf("picked worker %d, want the idle one", n)
		}
	}
	if err := p.Add(proto.NewDevice(testToken(1)), testPayload()); err != nil {
		t.Error(err)
	}
	if workers[0].Planned() != 1 {
		t.Errorf("worker 1 has %d queued", workers[0].Planned())
	}
}

func TestQueuePool(t *testing.T) {
	gw := startGateway(t)
	p := NewQueuePool(plainDialer(gw), testOutbound(), testWorkerConfig(), 2)
	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, item := range testItems(6) {
		if err := p.Add(item.Device, item.Payload); err != nil {
			t.Fatal(err)
		}
	}
	if !gw.WaitForFrames(6, 2*time.Second) {
		t.Fatalf("gateway received %d frames", gw.TotalFrames())
	}
	p.Stop()
	if err := p.WaitForAllWorkers(true); err != nil {
		t.Fatal(err)
	}
	if n := len(p.Notifications()); n != 6 {
		t.Errorf("%d notifications", n)
	}
	lp := NewListPool(refusingDialer{}, testOutbound(), testWorkerConfig(), testItems(1), 1)
	if err := lp.Add(proto.NewDevice(testToken(1)), testPayload()); err == nil {
		t.Error("LIST pool accepted Add")
	}
}

func TestTunnel(t *testing.T) {
	gw := startGateway(t)
	proxy, err := mockgw.StartProxy(0)
	if err != nil {
		t.Fatal(err)
	}
	defer proxy.Close()
	host, port := proxy.Endpoint()
	pc := &io.ProxyConfig{Host: host, Port: port}
	pc.SetBasicAuthorization("user", "pw")

	c := NewConnector(ConnectorConfig{Endpoint: gw, ConnectTimeout: 2 * time.Second, Proxy: pc})
	e := NewEngine(c, testOutbound())
	sendAll(t, e, 2)
	if err = e.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !gw.WaitForFrames(2, 2*time.Second) {
		t.Fatalf("gateway received %d frames", gw.TotalFrames())
	}
	reqs := proxy.Requests()
	if len(reqs) != 1 {
		t.Fatalf("%d CONNECT requests", len(reqs))
	}
	if reqs[0].Host != gw.Addr() {
		t.Errorf("CONNECT target %q, want %q", reqs[0].Host, gw.Addr())
	}
	if got := reqs[0].Header.Get("Proxy-Authorization"); got != "Basic dXNlcjpwdw==" {
		t.Errorf("Proxy-Authorization %q", got)
	}
	if got := reqs[0].Header.Get("User-Agent"); got != DefaultUserAgent {
		t.Errorf("User-Agent %q", got)
	}
}

func TestTunnelRejected(t *testing.T) {
	gw := startGateway(t)
	proxy, err := mockgw.StartProxy(407)
	if err != nil {
		t.Fatal(err)
	}
	defer proxy.Close()
	host, port := proxy.Endpoint()

	c := NewConnector(ConnectorConfig{
		Endpoint:       gw,
		ConnectTimeout: 2 * time.Second,
		LibraryProxy:   &io.ProxyConfig{Host: host, Port: port},
	})
	_, err = c.Connect(context.Background())
	if !errors.Is(err, errors.ErrProxyTunnel) {
		t.Fatalf("got %v", err)
	}
	if !strings.Contains(err.Error(), "407") {
		t.Errorf("error %q lacks the status line", err)
	}
	if gw.Connections() != 0 {
		t.Errorf("gateway saw %d connections", gw.Connections())
	}
}

func TestReadFeedback(t *testing.T) {
	tok1, _ := proto.DecodeToken(testToken(1))
	tok2, _ := proto.DecodeToken(testToken(2))
	fb, err := mockgw.StartFeedback(nil, []proto.FeedbackTuple{
		{Time: 1700000000, Token: tok1},
		{Time: 1700000100, Token: tok2},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer fb.Close()

	devices, err := ReadFeedback(context.Background(), plainDialer(fb), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, d := range devices {
		got = append(got, d.Token)
	}
	if diff := cmp.Diff([]string{testToken(1), testToken(2)}, got); diff != "" {
		t.Errorf("tokens (-want +got):\n%s", diff)
	}
	if devices[1].LastRegister.Unix() != 1700000100 {
		t.Errorf("timestamp %s", devices[1].LastRegister)
	}

	if _, err = ReadFeedback(context.Background(), refusingDialer{}, time.Second); !errors.IsCritical(err) {
		t.Errorf("got %v", err)
	}
}

func TestReadFeedbackIdleTimeoutPerRead(t *testing.T) {
	var tuples []proto.FeedbackTuple
	for i := 1; i <= 4; i++ {
		raw, _ := proto.DecodeToken(testToken(i))
		tuples = append(tuples, proto.FeedbackTuple{Time: 1700000000, Token: raw})
	}
	fb, err := mockgw.StartPacedFeedback(nil, tuples, 100*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer fb.Close()

	// the stream lasts longer than the timeout, no single gap does
	devices, err := ReadFeedback(context.Background(), plainDialer(fb), 300*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if len(devices) != len(tuples) {
		t.Errorf("%d devices, want %d", len(devices), len(tuples))
	}
}

func TestPendingTracker(t *testing.T) {
	p := newPendingTracker()
	var ns []*proto.PushedNotification
	for i := 1; i <= 4; i++ {
		n := proto.NewPushedNotification(proto.NewDevice(testToken(i)), testPayload(), uint32(i))
		ns = append(ns, n)
		p.OnSent(n)
	}
	p.OnSent(ns[0])
	if p.Len() != 4 {
		t.Fatalf("len=%d", p.Len())
	}

	replacement := proto.NewPushedNotification(proto.NewDevice(testToken(9)), testPayload(), 2)
	p.OnSent(replacement)
	if p.Lookup(2) != replacement || p.Len() != 4 {
		t.Errorf("id reuse did not replace the tracked notification")
	}

	if failed, after := p.SentAfterFirstFailure(); failed != nil || len(after) != 0 {
		t.Errorf("no failure expected, got %v %v", failed, after)
	}
	ns[2].SetResponse(proto.NewErrorResponse(proto.StatusInvalidToken, 3))
	failed, after := p.SentAfterFirstFailure()
	if failed != ns[2] {
		t.Fatalf("failed=%v", failed)
	}
	var ids []uint32
	for _, n := range after {
		ids = append(ids, n.Identifier)
	}
	if diff := cmp.Diff([]uint32{4, 2}, ids); diff != "" {
		t.Errorf("after (-want +got):\n%s", diff)
	}
	p.Clear()
	if p.Len() != 0 || p.Lookup(1) != nil {
		t.Error("Clear left notifications behind")
	}
}
