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
	"fmt"
	"strings"

	"binpush/pkg/logging/glog"
)

const (
	KeyStoreTypePKCS12 = "PKCS12"
	KeyStoreTypePEM    = "PEM"
)

var (
	DefaultConfig = Config{
		KeyStoreType:       KeyStoreTypePKCS12,
		RequireAppleIssuer: false,
	}
)

// Config locates the client credential. With KeyStoreType PKCS12 the
// keystore is KeyStoreFilePath protected by KeyStorePassword. With PEM,
// either CertPemFilePath and KeyPemFilePath are given, or KeyStoreFilePath
// holds both blocks.
type Config struct {
	KeyStoreFilePath string
	KeyStorePassword string
	KeyStoreType     string
	CertPemFilePath  string
	KeyPemFilePath   string

	// CAFilePath adds PEM roots to the system pool for server verification.
	CAFilePath                 string
	TrustAllServerCertificates bool

	// VerifyKeyStore runs VerifyCertificate on the loaded leaf.
	VerifyKeyStore     bool
	RequireAppleIssuer bool
}

func (c *Config) SetDefaultIfNotDefined() {
	if len(c.KeyStoreType) == 0 {
		if len(c.CertPemFilePath) != 0 {
			c.KeyStoreType = KeyStoreTypePEM
		} else {
			c.KeyStoreType = DefaultConfig.KeyStoreType
		}
	}
	c.KeyStoreType = strings.ToUpper(c.KeyStoreType)
}

func (c *Config) Validate() error {
	switch c.KeyStoreType {
	case KeyStoreTypePKCS12:
		if len(c.KeyStoreFilePath) == 0 {
			return fmt.Errorf("KeyStoreFilePath required for %s keystore", c.KeyStoreType)
		}
	case KeyStoreTypePEM:
		if len(c.KeyStoreFilePath) == 0 && (len(c.CertPemFilePath) == 0 || len(c.KeyPemFilePath) == 0) {
			return fmt.Errorf("CertPemFilePath and KeyPemFilePath, or KeyStoreFilePath, required for PEM keystore")
		}
	default:
		return fmt.Errorf("unsupported keystore type %q", c.KeyStoreType)
	}
	return nil
}

func (c *Config) Dump() {
	glog.Infof("Sec: KeyStoreType=%s KeyStoreFilePath=%s CertPemFilePath=%s CAFilePath=%s TrustAll=%v",
		c.KeyStoreType, c.KeyStoreFilePath, c.CertPemFilePath, c.CAFilePath, c.TrustAllServerCertificates)
}
