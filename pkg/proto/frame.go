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
	"math"
)

const (
	CommandSimple        uint8 = 0
	CommandEnhanced      uint8 = 1
	CommandErrorResponse uint8 = 8

	simpleHeaderSize   = 1 + 2
	enhancedHeaderSize = 1 + 4 + 4 + 2
)

// Frame is a decoded notification frame. Identifier and Expiry are zero for
// the simple format.
type Frame struct {
	Command    uint8
	Identifier uint32
	Expiry     uint32
	Token      []byte
	Payload    []byte
}

// EncodeNotification builds one wire frame. token is the hex device token,
// expiry is absolute epoch seconds (0 means do not store).
func EncodeNotification(token string, payload []byte, id uint32, expiry uint32, enhanced bool) ([]byte, error) {
	raw, err := DecodeToken(token)
	if err != nil {
		return nil, err
	}
	if len(raw) > math.MaxUint16 || len(payload) > math.MaxUint16 {
		return nil, fmt.Errorf("frame field too long: token %d, payload %d", len(raw), len(payload))
	}
	hdr := simpleHeaderSize
	if enhanced {
		hdr = enhancedHeaderSize
	}
	buf := make([]byte, hdr+len(raw)+2+len(payload))
	off := 0
	if enhanced {
		buf[0] = CommandEnhanced
		binary.BigEndian.PutUint32(buf[1:5], id)
		binary.BigEndian.PutUint32(buf[5:9], expiry)
		off = 9
	} else {
		buf[0] = CommandSimple
		off = 1
	}
	binary.BigEndian.PutUint16(buf[off:], uint16(len(raw)))
	off += 2
	off += copy(buf[off:], raw)
	binary.BigEndian.PutUint16(buf[off:], uint16(len(payload)))
	off += 2
	copy(buf[off:], payload)
	return buf, nil
}

// ReadFrame decodes a single notification frame. It returns io.EOF when the
// stream ends cleanly before a command byte.
func ReadFrame(r io.Reader) (*Frame, error) {
	var cmd [1]byte
	if _, err := io.ReadFull(r, cmd[:]); err != nil {
		return nil, err
	}
	f := &Frame{Command: cmd[0]}
	switch f.Command {
	case CommandEnhanced:
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return nil, unexpected(err)
		}
		f.Identifier = binary.BigEndian.Uint32(hdr[0:4])
		f.Expiry = binary.BigEndian.Uint32(hdr[4:8])
	case CommandSimple:
	default:
		return nil, fmt.Errorf("unknown command %d", f.Command)
	}
	var err error
	if f.Token, err = readItem(r); err != nil {
		return nil, err
	}
	if f.Payload, err = readItem(r); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Frame) HexToken() string {
	return EncodeToken(f.Token)
}

func readItem(r io.Reader) ([]byte, error) {
	var l [2]byte
	if _, err := io.ReadFull(r, l[:]); err != nil {
		return nil, unexpected(err)
	}
	b := make([]byte, binary.BigEndian.Uint16(l[:]))
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, unexpected(err)
	}
	return b, nil
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
