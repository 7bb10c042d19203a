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

package logging

import (
	"testing"

	"binpush/pkg/proto"
)

func TestKeyValueBuffer(t *testing.T) {
	token := "00000000000000000000000000000000000000000000000000000000000000ab"
	n := proto.NewPushedNotification(proto.NewDevice(token), proto.NewPayload([]byte("{}"), 0), 7)
	n.AddAttempt()
	n.AddAttempt()
	n.SetResponse(proto.NewErrorResponse(proto.StatusInvalidToken, 7))

	tests := []struct {
		name string
		buf  *KeyValueBuffer
		want string
	}{
		{"log", NewKVBufferForLog(), "pool=w1,id=7,token=" + token + ",len=2,try_no=2,st=Invalid token"},
		{"query", NewKVBuffer(), "pool=w1&id=7&token=" + token + "&len=2&try_no=2&m_err=8"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.buf.AddPool("w1").AddNotification(n).String()
			if got != tc.want {
				t.Errorf("got  %s\nwant %s", got, tc.want)
			}
		})
	}
}
