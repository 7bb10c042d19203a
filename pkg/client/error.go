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

package client

import (
	"binpush/pkg/errors"
)

// Errors returned or attached by the client. Compare with errors.Is.
var (
	ErrKeystore                 = errors.ErrKeystore
	ErrInvalidKeystoreReference = errors.ErrInvalidKeystoreReference
	ErrInvalidKeystorePassword  = errors.ErrInvalidKeystorePassword
	ErrInvalidKeystoreFormat    = errors.ErrInvalidKeystoreFormat
	ErrInvalidCertificateChain  = errors.ErrInvalidCertificateChain

	ErrCommunication = errors.ErrCommunication
	ErrProxyTunnel   = errors.ErrProxyTunnel

	ErrErrorResponseReceived  = errors.ErrErrorResponseReceived
	ErrInvalidDeviceToken     = errors.ErrInvalidDeviceToken
	ErrPayloadIsEmpty         = errors.ErrPayloadIsEmpty
	ErrPayloadMaxSizeExceeded = errors.ErrPayloadMaxSizeExceeded

	ErrWorkerStopped = errors.ErrWorkerStopped
)

// IsCritical reports whether err stopped a send or a worker, as opposed to
// a per-notification failure.
func IsCritical(err error) bool {
	return errors.IsCritical(err)
}
