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

package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"binpush/pkg/cmd"
	"binpush/pkg/errors"
	"binpush/pkg/proto"
	"binpush/test/testutil/mockgw"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pnscli.toml")
	content := `
AppName = "pnscli-test"
PlainTCP = true
IgnoreEnvironmentProxy = true

[Outbound]
DrainTimeout = "50ms"

[Worker]
DelayBetweenWorkers = "1ms"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadTokens(t *testing.T) {
	tokens, err := readTokens(strings.NewReader("aa\n\n# comment\n  bb  \n"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"aa", "bb"}, tokens); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestOptionsOverrideConfig(t *testing.T) {
	c := &cmdPushT{}
	c.Init("push-test", "push")
	err := c.Parse([]string{"-c", writeConfig(t), "-s", "127.0.0.1:9999", "-proxy", "proxy.local:3128",
		"-cert", "client.crt", "-key", "client.pem", "-simple", "-e", "60", "tok"})
	if err != nil {
		t.Fatal(err)
	}
	if c.AppName != "pnscli-test" || c.NotificationAddr != "127.0.0.1:9999" {
		t.Errorf("AppName=%s NotificationAddr=%s", c.AppName, c.NotificationAddr)
	}
	if c.Proxy.Host != "proxy.local" || c.Proxy.Port != 3128 {
		t.Errorf("proxy %s", &c.Proxy)
	}
	if c.Sec.KeyStoreType != "PEM" || c.Outbound.Enhanced() {
		t.Errorf("KeyStoreType=%s enhanced=%v", c.Sec.KeyStoreType, c.Outbound.Enhanced())
	}
	if c.Outbound.DrainTimeout.Duration != 50*time.Millisecond {
		t.Errorf("DrainTimeout %s", c.Outbound.DrainTimeout.Duration)
	}
	if p := c.payload(); p.Expiry() != 60 {
		t.Errorf("expiry %d", p.Expiry())
	}

	if err = (&cmdPushT{}).parseFresh([]string{"-c", writeConfig(t)}); err == nil {
		t.Error("push without a token should fail")
	}
}

func (c *cmdPushT) parseFresh(args []string) error {
	c.Init("push-test", "push")
	return c.Parse(args)
}

func TestBatchCommand(t *testing.T) {
	gw, err := mockgw.Start()
	if err != nil {
		t.Fatal(err)
	}
	defer gw.Close()

	tokenFile := filepath.Join(t.TempDir(), "tokens.txt")
	tokens := strings.Repeat("ab", 32) + "\n" + strings.Repeat("cd", 32) + "\n"
	if err = os.WriteFile(tokenFile, []byte(tokens), 0600); err != nil {
		t.Fatal(err)
	}

	c := &cmdBatchT{}
	c.Init("batch-test", "batch")
	err = c.Parse([]string{"-c", writeConfig(t), "-s", gw.Addr(), "-f", tokenFile, "-w", "2", "-n", "2", strings.Repeat("ef", 32)})
	if err != nil {
		t.Fatal(err)
	}
	c.Exec()
	if !gw.WaitForFrames(6, 2*time.Second) {
		t.Fatalf("gateway received %d frames", gw.TotalFrames())
	}
	if gw.Connections() != 2 {
		t.Errorf("%d connections", gw.Connections())
	}
	if code := c.ExitCode(); code != cmd.ExitSuccess {
		t.Errorf("exit code %d", code)
	}
}

func TestOutcome(t *testing.T) {
	delivered := proto.NewPushedNotification(proto.NewDevice(strings.Repeat("ab", 32)), proto.NewPayload([]byte("{}"), 0), 1)
	delivered.SetCompleted(true)
	rejected := proto.NewPushedNotification(proto.NewDevice("abcd"), proto.NewPayload([]byte("{}"), 0), 2)
	rejected.SetError(errors.ErrInvalidDeviceToken)

	tests := []struct {
		name    string
		err     error
		results []*proto.PushedNotification
		failed  bool
	}{
		{"delivered", nil, []*proto.PushedNotification{delivered}, false},
		{"rejected", nil, []*proto.PushedNotification{delivered, rejected}, true},
		{"critical", errors.ErrCommunication, []*proto.PushedNotification{delivered}, true},
		{"nothing sent", nil, nil, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := outcome(tc.err, tc.results); (err != nil) != tc.failed {
				t.Errorf("outcome() = %v", err)
			}
		})
	}
}
