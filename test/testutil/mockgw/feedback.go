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

package mockgw

import (
	"crypto/tls"
	"net"
	"sync"
	"time"

	"binpush/pkg/proto"
)

// FeedbackService writes a fixed list of tuples to every connection and
// then closes it.
type FeedbackService struct {
	ln     net.Listener
	tuples []proto.FeedbackTuple
	delay  time.Duration
	wg     sync.WaitGroup
}

func StartFeedback(tlsConfig *tls.Config, tuples []proto.FeedbackTuple) (*FeedbackService, error) {
	return StartPacedFeedback(tlsConfig, tuples, 0)
}

// StartPacedFeedback waits delay before writing each tuple.
func StartPacedFeedback(tlsConfig *tls.Config, tuples []proto.FeedbackTuple, delay time.Duration) (*FeedbackService, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	if tlsConfig != nil {
		ln = tls.NewListener(ln, tlsConfig)
	}
	s := &FeedbackService{ln: ln, tuples: tuples, delay: delay}
	s.wg.Add(1)
	go s.serve()
	return s, nil
}

func (s *FeedbackService) Endpoint() (string, int) {
	return endpointOf(s.ln)
}

func (s *FeedbackService) Close() {
	s.ln.Close()
	s.wg.Wait()
}

func (s *FeedbackService) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		for _, t := range s.tuples {
			if s.delay > 0 {
				time.Sleep(s.delay)
			}
			if _, err = conn.Write(t.Encode()); err != nil {
				break
			}
		}
		conn.Close()
	}
}
