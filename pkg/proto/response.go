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
	"encoding/binary"
	"fmt"
	"io"
)

const ErrorResponseSize = 6

// Status is the second byte of an error-response frame.
type Status uint8

const (
	StatusNoErrors           Status = 0
	StatusProcessingError    Status = 1
	StatusMissingDeviceToken Status = 2
	StatusMissingTopic       Status = 3
	StatusMissingPayload     Status = 4
	StatusInvalidTokenSize   Status = 5
	StatusInvalidTopicSize   Status = 6
	StatusInvalidPayloadSize Status = 7
	StatusInvalidToken       Status = 8
	StatusShutdown           Status = 10
	StatusUnknown            Status = 255
)

var statusMessages = map[Status]string{
	StatusNoErrors:           "No errors encountered",
	StatusProcessingError:    "Processing error",
	StatusMissingDeviceToken: "Missing device token",
	StatusMissingTopic:       "Missing topic",
	StatusMissingPayload:     "Missing payload",
	StatusInvalidTokenSize:   "Invalid token size",
	StatusInvalidTopicSize:   "Invalid topic size",
	StatusInvalidPayloadSize: "Invalid payload size",
	StatusInvalidToken:       "Invalid token",
	StatusShutdown:           "Shutdown",
	StatusUnknown:            "None (unknown)",
}

func (s Status) String() string {
	if m, ok := statusMessages[s]; ok {
		return m
	}
	return fmt.Sprintf("Undocumented status code: %d", uint8(s))
}

// ErrorResponse is the 6-byte frame the gateway writes before closing a
// connection on a delivery failure.
type ErrorResponse struct {
	Command    uint8
	Status     Status
	Identifier uint32
}

// IsError reports whether the frame is a well formed error response with a
// non-zero status.
func (r *ErrorResponse) IsError() bool {
	return r != nil && r.Command == CommandErrorResponse && r.Status != StatusNoErrors
}

// IsShutdown reports whether the gateway closed the connection for
// maintenance. The identified notification was the last one delivered.
func (r *ErrorResponse) IsShutdown() bool {
	return r != nil && r.Status == StatusShutdown
}

func (r *ErrorResponse) Message() string {
	return fmt.Sprintf("APNS: [%d] %s", r.Identifier, r.Status)
}

func (r *ErrorResponse) String() string {
	return fmt.Sprintf("command=%d status=%d(%s) id=%d", r.Command, uint8(r.Status), r.Status, r.Identifier)
}

func (r *ErrorResponse) Encode() []byte {
	b := make([]byte, ErrorResponseSize)
	b[0] = r.Command
	b[1] = uint8(r.Status)
	binary.BigEndian.PutUint32(b[2:], r.Identifier)
	return b
}

func NewErrorResponse(status Status, id uint32) *ErrorResponse {
	return &ErrorResponse{Command: CommandErrorResponse, Status: status, Identifier: id}
}

// DecodeErrorResponse decodes a frame from b. It returns nil when b holds
// fewer than ErrorResponseSize bytes.
func DecodeErrorResponse(b []byte) *ErrorResponse {
	if len(b) < ErrorResponseSize {
		return nil
	}
	return &ErrorResponse{
		Command:    b[0],
		Status:     Status(b[1]),
		Identifier: binary.BigEndian.Uint32(b[2:6]),
	}
}

// ReadErrorResponse reads exactly one frame. A stream that yields fewer than
// six bytes before ending or timing out gives (nil, nil); any other read
// error is returned.
func ReadErrorResponse(r io.Reader) (*ErrorResponse, error) {
	var b [ErrorResponseSize]byte
	n, err := io.ReadFull(r, b[:])
	if n < ErrorResponseSize {
		if err == nil || err == io.EOF || err == io.ErrUnexpectedEOF || isTimeout(err) {
			return nil, nil
		}
		return nil, err
	}
	return DecodeErrorResponse(b[:]), nil
}

func isTimeout(err error) bool {
	te, ok := err.(interface{ Timeout() bool })
	return ok && te.Timeout()
}
