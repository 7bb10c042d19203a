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

package proto

import (
	"time"

	"binpush/pkg/errors"
)

const (
	DefaultPayloadMaxSize = 256
	BigPayloadMaxSize     = 2048
)

type (
	// Payload is the notification body. The transmission side only reads it.
	Payload interface {
		Bytes() []byte
		// Expiry is in seconds from now. <= 0 asks the gateway not to store
		// the notification.
		Expiry() int
		// Validate is called before the frame is encoded.
		Validate() error
	}

	RawPayload struct {
		data          []byte
		expirySeconds int
		maxSize       int
	}

	Device struct {
		Token        string
		Id           string
		LastRegister time.Time
	}

	PayloadPerDevice struct {
		Payload Payload
		Device  Device
	}
)

func NewPayload(data []byte, expirySeconds int) *RawPayload {
	return &RawPayload{data: data, expirySeconds: expirySeconds, maxSize: DefaultPayloadMaxSize}
}

func NewBigPayload(data []byte, expirySeconds int) *RawPayload {
	return &RawPayload{data: data, expirySeconds: expirySeconds, maxSize: BigPayloadMaxSize}
}

func (p *RawPayload) Bytes() []byte {
	if p == nil {
		return nil
	}
	return p.data
}

func (p *RawPayload) Expiry() int {
	if p == nil {
		return 0
	}
	return p.expirySeconds
}

func (p *RawPayload) SetExpiry(seconds int) {
	p.expirySeconds = seconds
}

func (p *RawPayload) MaxSize() int {
	return p.maxSize
}

func (p *RawPayload) Validate() error {
	if p == nil || len(p.data) == 0 {
		return errors.ErrPayloadIsEmpty
	}
	if p.maxSize > 0 && len(p.data) > p.maxSize {
		return errors.ErrPayloadMaxSizeExceeded.Wrap(nil, "%d bytes, max %d", len(p.data), p.maxSize)
	}
	return nil
}

func (p *RawPayload) String() string {
	return string(p.data)
}

func NewDevice(token string) Device {
	return Device{Token: token}
}

// AsPayloadsPerDevice pairs one payload with every device.
func AsPayloadsPerDevice(payload Payload, devices []Device) []PayloadPerDevice {
	pairs := make([]PayloadPerDevice, len(devices))
	for i, d := range devices {
		pairs[i] = PayloadPerDevice{Payload: payload, Device: d}
	}
	return pairs
}
