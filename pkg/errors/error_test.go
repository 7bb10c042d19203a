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

package errors

import (
	"errors"
	"io"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		critical   bool
		validation bool
	}{
		{"keystore", ErrKeystore.Wrap(nil, "bad file"), true, false},
		{"password", ErrInvalidKeystorePassword, true, false},
		{"communication", ErrCommunication.Wrap(io.EOF, "write"), true, false},
		{"tunnel", ErrProxyTunnel.Wrap(nil, "HTTP/1.0 403 Forbidden"), true, false},
		{"token", ErrInvalidDeviceToken.Wrap(nil, "zz"), false, true},
		{"empty", ErrPayloadIsEmpty, false, true},
		{"response", ErrErrorResponseReceived, false, false},
		{"stopped", ErrWorkerStopped.Wrap(ErrCommunication, "worker 1"), false, false},
		{"plain", io.ErrUnexpectedEOF, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCritical(tt.err); got != tt.critical {
				t.Errorf("IsCritical() = %v, want %v", got, tt.critical)
			}
			if got := IsValidation(tt.err); got != tt.validation {
				t.Errorf("IsValidation() = %v, want %v", got, tt.validation)
			}
		})
	}
}

func TestWrapKeepsKindAndCause(t *testing.T) {
	err := ErrCommunication.Wrap(io.EOF, "reconnect to %s", "gw:2195")
	if !errors.Is(err, ErrCommunication) {
		t.Error("wrapped error should match its kind")
	}
	if errors.Is(err, ErrProxyTunnel) {
		t.Error("wrapped error should not match another kind")
	}
	if !errors.Is(err, io.EOF) {
		t.Error("wrapped error should unwrap to its cause")
	}
	if err.ErrNo() != KErrCommunication {
		t.Errorf("errno = %d", err.ErrNo())
	}
}
