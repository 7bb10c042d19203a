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

/*
Package util implements some utility functions.
*/
package util

import (
	"math"
	"time"
)

// Duration lets toml configuration carry values like "500ms" or "5s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() (text []byte, err error) {
	text = []byte(d.Duration.String())
	return
}

// GetExpirationTimeFrom converts a time-to-live in seconds into an absolute
// epoch-seconds value. A ttl <= 0 yields 0.
func GetExpirationTimeFrom(now time.Time, ttl int) (expirationTime uint32) {
	if ttl <= 0 {
		return 0
	}
	exp := now.Unix() + int64(ttl)
	if exp > math.MaxUint32 {
		expirationTime = math.MaxUint32
	} else {
		expirationTime = uint32(exp)
	}
	return
}

func GetExpirationTime(ttl int) uint32 {
	return GetExpirationTimeFrom(time.Now(), ttl)
}
