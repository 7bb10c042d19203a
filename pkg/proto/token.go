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
	"encoding/hex"
	"strings"

	"binpush/pkg/errors"
)

const (
	TokenLength      = 64 // hex characters
	TokenBytesLength = TokenLength / 2
)

// ValidateToken checks that token is exactly 64 hexadecimal characters.
func ValidateToken(token string) error {
	if len(token) != TokenLength {
		return errors.ErrInvalidDeviceToken.Wrap(nil, "token length %d, expected %d", len(token), TokenLength)
	}
	if pos := firstNonHex(token); pos >= 0 {
		return errors.ErrInvalidDeviceToken.Wrap(nil, "non-hex characters %q", offendingPair(token, pos))
	}
	return nil
}

// DecodeToken converts a hex token into raw bytes. Only hex digits are
// checked here; length rules belong to ValidateToken.
func DecodeToken(token string) ([]byte, error) {
	if pos := firstNonHex(token); pos >= 0 {
		return nil, errors.ErrInvalidDeviceToken.Wrap(nil, "non-hex characters %q", offendingPair(token, pos))
	}
	if len(token)%2 != 0 {
		return nil, errors.ErrInvalidDeviceToken.Wrap(nil, "odd token length %d", len(token))
	}
	return hex.DecodeString(token)
}

// EncodeToken returns the lower case hex form of raw token bytes.
func EncodeToken(raw []byte) string {
	return hex.EncodeToString(raw)
}

// SameToken compares two hex tokens ignoring case.
func SameToken(a, b string) bool {
	return strings.EqualFold(a, b)
}

func firstNonHex(s string) int {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return i
		}
	}
	return -1
}

// offendingPair returns the two-character group the bad byte belongs to.
func offendingPair(s string, pos int) string {
	start := pos - pos%2
	end := start + 2
	if end > len(s) {
		end = len(s)
	}
	return s[start:end]
}
