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
	"fmt"
)

const (
	KErrKeystore uint32 = iota + 1
	KErrInvalidKeystoreReference
	KErrInvalidKeystorePassword
	KErrInvalidKeystoreFormat
	KErrInvalidCertificateChain

	KErrCommunication
	KErrProxyTunnel

	KErrErrorResponseReceived

	KErrInvalidDeviceToken
	KErrPayloadIsEmpty
	KErrPayloadMaxSizeExceeded

	KErrWorkerStopped
)

// credential errors, fatal to connection establishment
var (
	ErrKeystore                 = &Error{what: "keystore", errno: KErrKeystore}
	ErrInvalidKeystoreReference = &Error{what: "invalid keystore reference", errno: KErrInvalidKeystoreReference}
	ErrInvalidKeystorePassword  = &Error{what: "invalid keystore password", errno: KErrInvalidKeystorePassword}
	ErrInvalidKeystoreFormat    = &Error{what: "invalid keystore format", errno: KErrInvalidKeystoreFormat}
	ErrInvalidCertificateChain  = &Error{what: "invalid certificate chain", errno: KErrInvalidCertificateChain}
)

// transport errors
var (
	ErrCommunication = &Error{what: "communication", errno: KErrCommunication}
	ErrProxyTunnel   = &Error{what: "unable to tunnel through proxy", errno: KErrProxyTunnel}
)

// per-notification errors. They are attached to the notification record.
var (
	ErrErrorResponseReceived  = &Error{what: "error response packet received", errno: KErrErrorResponseReceived}
	ErrInvalidDeviceToken     = &Error{what: "invalid device token format", errno: KErrInvalidDeviceToken}
	ErrPayloadIsEmpty         = &Error{what: "payload is empty", errno: KErrPayloadIsEmpty}
	ErrPayloadMaxSizeExceeded = &Error{what: "payload max size exceeded", errno: KErrPayloadMaxSizeExceeded}
)

// ErrWorkerStopped is returned by queue additions once no worker can take
// the item, and attached to queued items a worker could not send.
var ErrWorkerStopped = &Error{what: "worker stopped", errno: KErrWorkerStopped}

type Error struct {
	what  string
	errno uint32
	cause error
}

func NewError(what string, errno uint32) *Error {
	return &Error{what: what, errno: errno}
}

// Wrap returns an error of the same kind as e with a detail message and an
// optional cause.
func (e *Error) Wrap(cause error, format string, args ...interface{}) *Error {
	what := e.what
	if format != "" {
		what += ": " + fmt.Sprintf(format, args...)
	}
	return &Error{what: what, errno: e.errno, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("error: %s (%d): %s", e.what, e.errno, e.cause.Error())
	}
	return fmt.Sprintf("error: %s (%d)", e.what, e.errno)
}

func (e *Error) ErrNo() uint32 {
	return e.errno
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error carrying the same errno.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return t.errno == e.errno
	}
	return false
}

func IsCredential(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.errno >= KErrKeystore && e.errno <= KErrInvalidCertificateChain
	}
	return false
}

func IsTransport(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.errno == KErrCommunication || e.errno == KErrProxyTunnel
	}
	return false
}

// IsCritical reports whether err escapes per-notification handling and must
// stop the owning worker.
func IsCritical(err error) bool {
	return IsCredential(err) || IsTransport(err)
}

func IsValidation(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.errno >= KErrInvalidDeviceToken && e.errno <= KErrPayloadMaxSizeExceeded
	}
	return false
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
