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

package client_test

import (
	"context"
	"fmt"

	"binpush/pkg/client"
	"binpush/pkg/proto"
)

func Example() {
	conf, err := client.LoadConfig("binpush.toml")
	if err != nil {
		fmt.Println(err)
		return
	}
	c, err := client.New(conf)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer c.Close()

	token := "3f0b1e9a3f0b1e9a3f0b1e9a3f0b1e9a3f0b1e9a3f0b1e9a3f0b1e9a3f0b1e9a"
	n, err := c.Push(context.Background(), proto.NewDevice(token), proto.NewPayload([]byte(`{"aps":{"alert":"hi"}}`), 3600))
	if err != nil {
		fmt.Println(err)
		return
	}
	if !n.IsSuccessful() {
		fmt.Println(n.Err())
	}
}
