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
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	uuid "github.com/satori/go.uuid"

	internal "binpush/internal/cli"
	"binpush/pkg/client"
	"binpush/pkg/cmd"
	"binpush/pkg/logging/glog"
	"binpush/pkg/proto"
)

const (
	kClientAppName  = "pnscli"
	kDefaultPayload = `{"aps":{"alert":"Hello from pnscli"}}`
)

type (
	clientCommandT struct {
		cmd.Command
		*client.Config

		optLogLevel     string
		optCfgFile      string
		optGateway      string
		optFeedback     string
		optProduction   bool
		optPlain        bool
		optKeyStore     string
		optPassword     string
		optCertFile     string
		optKeyFile      string
		optTrustAll     bool
		optProxy        string
		optTimeout      time.Duration
		optSimpleFormat bool
	}

	notificationCommandT struct {
		clientCommandT
		optPayload string
		optExpiry  int
		optBig     bool
	}

	cmdPushT struct {
		notificationCommandT
	}

	cmdBatchT struct {
		notificationCommandT
		optTokenFile string
		optWorkers   int
		optRepeat    int
	}

	cmdQueueT struct {
		notificationCommandT
		optWorkers int
	}

	cmdFeedbackT struct {
		clientCommandT
	}
)

func (c *clientCommandT) Init(name string, desc string) {
	c.Command.Init(name, desc)
	c.StringOption(&c.optCfgFile, "c|config", "", "specify toml configuration file name")
	c.StringOption(&c.optLogLevel, "log-level", "info", "specify log level")
	c.StringOption(&c.optGateway, "s|gateway", "", "override the gateway address (host:port)")
	c.StringOption(&c.optFeedback, "feedback", "", "override the feedback address (host:port)")
	c.BoolOption(&c.optProduction, "production", false, "use the production endpoints instead of the sandbox")
	c.BoolOption(&c.optPlain, "plain", false, "connect without TLS (fake gateways only)")
	c.StringOption(&c.optKeyStore, "k|keystore", "", "PKCS#12 keystore file")
	c.StringOption(&c.optPassword, "p|password", "", "keystore password")
	c.StringOption(&c.optCertFile, "cert", "", "PEM client certificate")
	c.StringOption(&c.optKeyFile, "key", "", "PEM client private key")
	c.BoolOption(&c.optTrustAll, "trust-all", false, "do not verify the server certificate")
	c.StringOption(&c.optProxy, "proxy", "", "HTTPS proxy (host:port)")
	c.DurationOption(&c.optTimeout, "t|timeout", 5*time.Minute, "overall timeout")
	c.BoolOption(&c.optSimpleFormat, "simple", false, "send simple (command 0) frames")
	c.AddEnvironment("HTTPS_PROXY", "proxy used when neither -proxy nor the configuration names one")
	c.AddEnvironment("NO_PROXY", "hosts reached without the environment proxy")
}

func (c *clientCommandT) Parse(args []string) (err error) {
	if err = c.Command.Parse(args); err != nil {
		return
	}
	glog.InitLogging(c.optLogLevel, " [pnscli] ")

	if len(c.optCfgFile) != 0 {
		if c.Config, err = client.LoadConfig(c.optCfgFile); err != nil {
			return
		}
	} else {
		conf := client.DefaultConfig()
		conf.AppName = kClientAppName
		c.Config = &conf
	}
	c.applyOptions()
	return
}

// applyOptions lets command line flags override the configuration file.
func (c *clientCommandT) applyOptions() {
	if len(c.optGateway) != 0 {
		c.NotificationAddr = c.optGateway
	}
	if len(c.optFeedback) != 0 {
		c.FeedbackAddr = c.optFeedback
	}
	if c.optProduction {
		c.Production = true
	}
	if c.optPlain {
		c.PlainTCP = true
	}
	if len(c.optKeyStore) != 0 {
		c.Sec.KeyStoreFilePath = c.optKeyStore
		c.Sec.KeyStoreType = ""
	}
	if len(c.optPassword) != 0 {
		c.Sec.KeyStorePassword = c.optPassword
	}
	if len(c.optCertFile) != 0 {
		c.Sec.CertPemFilePath = c.optCertFile
		c.Sec.KeyPemFilePath = c.optKeyFile
		c.Sec.KeyStoreType = ""
	}
	if c.optTrustAll {
		c.Sec.TrustAllServerCertificates = true
	}
	if len(c.optProxy) != 0 {
		host, port, err := splitHostPort(c.optProxy)
		if err != nil {
			glog.Exitf("invalid -proxy %q: %s", c.optProxy, err)
		}
		c.Proxy.Host, c.Proxy.Port = host, port
	}
	if c.optSimpleFormat {
		c.Outbound.SimpleFormat = true
	}
	c.SetDefaultIfNotDefined()
}

func (c *clientCommandT) newClient() client.IClient {
	cli, err := client.New(c.Config, client.WithProgressListener(internal.LogProgressListener{}))
	if err != nil {
		glog.Exitf("* command '%s' failed: %s", c.GetName(), err)
	}
	return cli
}

func (c *clientCommandT) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.optTimeout)
}

func (c *notificationCommandT) Init(name string, desc string) {
	c.clientCommandT.Init(name, desc)
	c.StringOption(&c.optPayload, "m|payload", kDefaultPayload, "JSON payload")
	c.IntOption(&c.optExpiry, "e|expiry", 0, "expiry in seconds from now, 0 for none")
	c.BoolOption(&c.optBig, "big", false, "allow payloads up to 2048 bytes")
}

func (c *notificationCommandT) payload() proto.Payload {
	if c.optBig {
		return proto.NewBigPayload([]byte(c.optPayload), c.optExpiry)
	}
	return proto.NewPayload([]byte(c.optPayload), c.optExpiry)
}

func (c *cmdPushT) Init(name string, desc string) {
	c.notificationCommandT.Init(name, desc)
	c.SetSynopsis("[option] <token>")
	c.AddExample("pnscli push -c binpush.toml 3f0b...1e9a", "send the default payload to one device")
}

func (c *cmdPushT) Parse(args []string) (err error) {
	if err = c.notificationCommandT.Parse(args); err != nil {
		return
	}
	if c.NArg() < 1 {
		err = fmt.Errorf("missing token")
	}
	return
}

func (c *cmdPushT) Exec() {
	c.Validate()
	cli := c.newClient()
	defer cli.Close()
	ctx, cancel := c.context()
	defer cancel()

	n, err := cli.Push(ctx, proto.NewDevice(c.Arg(0)), c.payload())
	results := []*proto.PushedNotification{n}
	printResults(os.Stdout, results)
	c.Report(outcome(err, results))
}

func (c *cmdBatchT) Init(name string, desc string) {
	c.notificationCommandT.Init(name, desc)
	c.StringOption(&c.optTokenFile, "f|file", "", "file with one token per line")
	c.IntOption(&c.optWorkers, "w|workers", 1, "number of concurrent connections")
	c.IntOption(&c.optRepeat, "n|repeat", 1, "send every token n times")
	c.SetSynopsis("[option] [<token> ...]")
	c.AddExample("pnscli batch -c binpush.toml -f tokens.txt -w 4", "send to every token in tokens.txt over 4 connections")
}

func (c *cmdBatchT) Parse(args []string) (err error) {
	if err = c.notificationCommandT.Parse(args); err != nil {
		return
	}
	if c.NArg() == 0 && len(c.optTokenFile) == 0 {
		err = fmt.Errorf("no tokens given")
	}
	return
}

func (c *cmdBatchT) Exec() {
	c.Validate()
	tokens := append([]string{}, c.Args()...)
	if len(c.optTokenFile) != 0 {
		f, err := os.Open(c.optTokenFile)
		if err != nil {
			glog.Exitf("* command '%s' failed: %s", c.GetName(), err)
		}
		fromFile, err := readTokens(f)
		f.Close()
		if err != nil {
			glog.Exitf("* command '%s' failed: %s", c.GetName(), err)
		}
		tokens = append(tokens, fromFile...)
	}
	var devices []proto.Device
	for i := 0; i < c.optRepeat; i++ {
		for _, t := range tokens {
			devices = append(devices, proto.NewDevice(t))
		}
	}
	items := proto.AsPayloadsPerDevice(c.payload(), devices)

	cli := c.newClient()
	defer cli.Close()
	ctx, cancel := c.context()
	defer cancel()

	runId := uuid.NewV4().String()
	glog.Infof("run %s: %d notifications, %d workers", runId, len(items), c.optWorkers)
	pool, err := cli.StartPool(ctx, items, c.optWorkers)
	if err != nil {
		c.Report(err)
		return
	}
	err = pool.WaitForAllWorkers(true)
	results := pool.Notifications()
	printSummary(os.Stdout, results)
	pool.Stats().PrettyPrint(os.Stdout, runId)
	c.Report(outcome(err, results))
}

func (c *cmdQueueT) Init(name string, desc string) {
	c.notificationCommandT.Init(name, desc)
	c.IntOption(&c.optWorkers, "w|workers", 1, "number of concurrent connections")
	c.SetSynopsis("[option] < tokens.txt")
	c.AddDetails("  Reads tokens from the standard input and queues one notification per line\n  until end of input.\n")
}

func (c *cmdQueueT) Exec() {
	c.Validate()
	cli := c.newClient()
	defer cli.Close()
	ctx, cancel := c.context()
	defer cancel()

	q := cli.OpenQueue(c.optWorkers)
	if err := q.Start(ctx); err != nil {
		c.Report(err)
		return
	}
	payload := c.payload()
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		token := strings.TrimSpace(scanner.Text())
		if len(token) == 0 || strings.HasPrefix(token, "#") {
			continue
		}
		if err := q.Add(proto.NewDevice(token), payload); err != nil {
			glog.Errorf("queue: %s", err)
			break
		}
	}
	q.Stop()
	q.Wait()
	results := q.Notifications()
	printSummary(os.Stdout, results)
	var err error
	if errs := q.CriticalErrors(); len(errs) != 0 {
		err = errs[0]
	}
	c.Report(outcome(err, results))
}

func (c *cmdFeedbackT) Init(name string, desc string) {
	c.clientCommandT.Init(name, desc)
	c.SetSynopsis("[option]")
}

func (c *cmdFeedbackT) Exec() {
	c.Validate()
	cli := c.newClient()
	defer cli.Close()
	ctx, cancel := c.context()
	defer cancel()

	devices, err := cli.Feedback(ctx)
	for _, d := range devices {
		fmt.Printf("%s  %s\n", d.LastRegister.UTC().Format(time.RFC3339), d.Token)
	}
	c.Report(err)
}

func readTokens(r io.Reader) (tokens []string, err error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		t := strings.TrimSpace(scanner.Text())
		if len(t) != 0 && !strings.HasPrefix(t, "#") {
			tokens = append(tokens, t)
		}
	}
	err = scanner.Err()
	return
}

func printResults(w io.Writer, results []*proto.PushedNotification) {
	for _, n := range results {
		fmt.Fprintf(w, "  %s\n", n)
	}
}

func printSummary(w io.Writer, results []*proto.PushedNotification) {
	failed := proto.FindFailed(results)
	fmt.Fprintf(w, "  * %d successful, %d failed\n", len(results)-len(failed), len(failed))
	printResults(w, failed)
}

// outcome turns undelivered notifications into a command failure.
func outcome(err error, results []*proto.PushedNotification) error {
	if err != nil {
		return err
	}
	if failed := len(proto.FindFailed(results)); failed != 0 {
		return fmt.Errorf("%d of %d notifications not delivered", failed, len(results))
	}
	return nil
}

func init() {
	push := &cmdPushT{}
	push.Init("push", "send one notification")

	batch := &cmdBatchT{}
	batch.Init("batch", "send a batch of notifications, optionally over several connections")

	queue := &cmdQueueT{}
	queue.Init("queue", "queue notifications read from stdin")

	feedback := &cmdFeedbackT{}
	feedback.Init("feedback", "list devices reported inactive by the feedback service")

	cmd.RegisterNewGroup("push", "send notifications through the binary gateway", push, batch, queue)
	cmd.RegisterNewGroup("feedback", "query the feedback service", feedback)
}
