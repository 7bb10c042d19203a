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
	"bytes"
	"strconv"

	"binpush/pkg/proto"
)

// KeyValueBuffer builds "k=v,k=v" log records.
type KeyValueBuffer struct {
	bytes.Buffer
	delimiter     byte
	pairDelimiter byte
}

func NewKVBufferForLog() *KeyValueBuffer {
	return &KeyValueBuffer{
		delimiter:     '=',
		pairDelimiter: ',',
	}
}

// NewKVBuffer uses the query string form, "k=v&k=v".
func NewKVBuffer() *KeyValueBuffer {
	return &KeyValueBuffer{
		delimiter:     '=',
		pairDelimiter: '&',
	}
}

var (
	logDataKeyId         = []byte("id")
	logDataKeyToken      = []byte("token")
	logDataKeyStatus     = []byte("st")
	logDataKeyErrStatus  = []byte("m_err")
	logDataKeyExpiration = []byte("et")
	logDataKeyPayloadLen = []byte("len")
	logDataKeyTryNo      = []byte("try_no")
	logDataKeyPool       = []byte("pool")
)

func (b *KeyValueBuffer) AddBytes(key []byte, value []byte) *KeyValueBuffer {
	if b.Len() > 0 {
		b.WriteByte(b.pairDelimiter)
	}
	b.Write(key)
	b.WriteByte(b.delimiter)
	b.Write(value)
	return b
}

func (b *KeyValueBuffer) Add(key []byte, value string) *KeyValueBuffer {
	if b.Len() > 0 {
		b.WriteByte(b.pairDelimiter)
	}
	b.Write(key)
	b.WriteByte(b.delimiter)
	b.WriteString(value)
	return b
}

func (b *KeyValueBuffer) AddInt(key []byte, value int) *KeyValueBuffer {
	return b.Add(key, strconv.Itoa(value))
}

func (b *KeyValueBuffer) AddUInt64(key []byte, value uint64) *KeyValueBuffer {
	return b.Add(key, strconv.FormatUint(value, 10))
}

func (b *KeyValueBuffer) AddIdentifier(id uint32) *KeyValueBuffer {
	return b.AddUInt64(logDataKeyId, uint64(id))
}

func (b *KeyValueBuffer) AddToken(token string) *KeyValueBuffer {
	return b.Add(logDataKeyToken, token)
}

// AddStatus writes st=<message>; the query form only records failures,
// as m_err=<code>.
func (b *KeyValueBuffer) AddStatus(st proto.Status) *KeyValueBuffer {
	if b.pairDelimiter == '&' {
		if st != proto.StatusNoErrors {
			b.AddInt(logDataKeyErrStatus, int(st))
		}
		return b
	}
	return b.Add(logDataKeyStatus, st.String())
}

func (b *KeyValueBuffer) AddExpirationTime(v uint32) *KeyValueBuffer {
	if v != 0 {
		b.AddUInt64(logDataKeyExpiration, uint64(v))
	}
	return b
}

func (b *KeyValueBuffer) AddPayloadLen(n int) *KeyValueBuffer {
	return b.AddInt(logDataKeyPayloadLen, n)
}

func (b *KeyValueBuffer) AddTryNo(n int) *KeyValueBuffer {
	if n > 1 {
		b.AddInt(logDataKeyTryNo, n)
	}
	return b
}

func (b *KeyValueBuffer) AddPool(name string) *KeyValueBuffer {
	return b.Add(logDataKeyPool, name)
}

// AddNotification writes the fields identifying n on the wire.
func (b *KeyValueBuffer) AddNotification(n *proto.PushedNotification) *KeyValueBuffer {
	b.AddIdentifier(n.Identifier).AddToken(n.Device.Token)
	if n.Payload != nil {
		b.AddPayloadLen(len(n.Payload.Bytes()))
	}
	b.AddExpirationTime(n.Expiry).AddTryNo(n.Attempts())
	if r := n.Response(); r != nil {
		b.AddStatus(r.Status)
	}
	return b
}
