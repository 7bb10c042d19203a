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
	"io"
	"time"
)

// FeedbackTuple is one entry of the feedback service stream.
type FeedbackTuple struct {
	Time  uint32
	Token []byte
}

func (t *FeedbackTuple) Device() Device {
	return Device{
		Token:        EncodeToken(t.Token),
		LastRegister: time.Unix(int64(t.Time), 0),
	}
}

func (t *FeedbackTuple) Encode() []byte {
	b := make([]byte, 4+2+len(t.Token))
	binary.BigEndian.PutUint32(b[0:4], t.Time)
	binary.BigEndian.PutUint16(b[4:6], uint16(len(t.Token)))
	copy(b[6:], t.Token)
	return b
}

// ReadFeedbackTuples decodes tuples until the stream ends. A clean end of
// stream, or a truncated trailing tuple, terminates the list without error.
func ReadFeedbackTuples(r io.Reader) ([]FeedbackTuple, error) {
	var tuples []FeedbackTuple
	for {
		var hdr [6]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return tuples, endOfFeedback(err)
		}
		tok := make([]byte, binary.BigEndian.Uint16(hdr[4:6]))
		if _, err := io.ReadFull(r, tok); err != nil {
			return tuples, endOfFeedback(err)
		}
		tuples = append(tuples, FeedbackTuple{Time: binary.BigEndian.Uint32(hdr[0:4]), Token: tok})
	}
}

func endOfFeedback(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF || isTimeout(err) {
		return nil
	}
	return err
}
