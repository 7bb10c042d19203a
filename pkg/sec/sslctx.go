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

package sec

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"os"

	"binpush/pkg/errors"
	"binpush/pkg/logging/glog"
)

type (
	Conn interface {
		net.Conn
		GetStateString() string
		GetTLSVersion() string
		GetCipherName() string
		DidResume() string
	}

	// TlsContext is the client side TLS setup shared read only by every
	// connection.
	TlsContext struct {
		config *tls.Config
	}
)

func NewTlsContext(cfg *Config, ks *KeyStore) (ctx *TlsContext, err error) {
	var tlscfg *tls.Config
	if tlscfg, err = NewClientTLSConfig(cfg, ks); err == nil {
		ctx = &TlsContext{config: tlscfg}
	}
	return
}

// NewClientTLSConfig presents ks as the client certificate. Server
// certificates are checked against the system pool plus cfg.CAFilePath
// unless cfg.TrustAllServerCertificates is set.
func NewClientTLSConfig(cfg *Config, ks *KeyStore) (*tls.Config, error) {
	rootCAs, _ := x509.SystemCertPool()
	if rootCAs == nil {
		rootCAs = x509.NewCertPool()
	}
	if len(cfg.CAFilePath) != 0 {
		caPEMBlock, err := os.ReadFile(cfg.CAFilePath)
		if err != nil {
			return nil, errors.ErrInvalidCertificateChain.Wrap(err, "%s", cfg.CAFilePath)
		}
		if !rootCAs.AppendCertsFromPEM(caPEMBlock) {
			return nil, errors.ErrInvalidCertificateChain.Wrap(nil, "no certificate found in %s", cfg.CAFilePath)
		}
	}
	tlscfg := &tls.Config{
		RootCAs:            rootCAs,
		InsecureSkipVerify: cfg.TrustAllServerCertificates,
		ClientSessionCache: tls.NewLRUClientSessionCache(0),
	}
	if ks != nil {
		tlscfg.Certificates = []tls.Certificate{ks.Certificate}
	}
	if cfg.TrustAllServerCertificates {
		glog.Warningf("server certificate verification disabled")
	}
	return tlscfg, nil
}

// Client layers TLS over raw and completes the handshake. serverName is
// used for verification and SNI.
func (c *TlsContext) Client(ctx context.Context, raw net.Conn, serverName string) (Conn, error) {
	cfg := c.config.Clone()
	cfg.ServerName = serverName
	conn := tls.Client(raw, cfg)
	if err := conn.HandshakeContext(ctx); err != nil {
		return nil, err
	}
	return &TlsConn{conn: conn}, nil
}

func (c *TlsContext) Config() *tls.Config {
	return c.config
}
