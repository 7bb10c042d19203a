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
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"
	"time"

	"golang.org/x/crypto/pkcs12"

	"binpush/pkg/errors"
	"binpush/pkg/logging/glog"
)

// KeyStore is the loaded client credential. It is read only once built and
// may be shared by every connection.
type KeyStore struct {
	Certificate tls.Certificate
	Leaf        *x509.Certificate
}

// LoadKeyStore reads the credential described by cfg.
func LoadKeyStore(cfg *Config) (ks *KeyStore, err error) {
	if cfg.KeyStoreType == KeyStoreTypePEM && len(cfg.CertPemFilePath) != 0 {
		var certPEMBlock, keyPEMBlock []byte
		if certPEMBlock, err = readFile(cfg.CertPemFilePath); err != nil {
			return
		}
		if keyPEMBlock, err = readFile(cfg.KeyPemFilePath); err != nil {
			return
		}
		ks, err = newKeyStoreFromPEM(certPEMBlock, keyPEMBlock)
	} else {
		var data []byte
		if data, err = readFile(cfg.KeyStoreFilePath); err != nil {
			return
		}
		ks, err = DecodeKeyStore(data, cfg.KeyStorePassword, cfg.KeyStoreType)
	}
	if err != nil {
		return
	}
	if cfg.VerifyKeyStore {
		if err = VerifyCertificate(ks.Leaf, time.Now(), cfg.RequireAppleIssuer); err != nil {
			return nil, err
		}
	}
	if glog.LOG_DEBUG {
		glog.DebugInfof("keystore loaded: subject=%q issuer=%q notAfter=%s",
			ks.Leaf.Subject.CommonName, ks.Leaf.Issuer.String(), ks.Leaf.NotAfter.Format(time.RFC3339))
	}
	return
}

// DecodeKeyStore builds a KeyStore from in-memory keystore bytes.
func DecodeKeyStore(data []byte, password string, ksType string) (*KeyStore, error) {
	if len(data) == 0 {
		return nil, errors.ErrInvalidKeystoreReference.Wrap(nil, "empty keystore")
	}
	if ksType == KeyStoreTypePEM {
		return newKeyStoreFromPEM(data, data)
	}
	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		if err == pkcs12.ErrIncorrectPassword {
			return nil, errors.ErrInvalidKeystorePassword.Wrap(err, "")
		}
		return nil, errors.ErrInvalidKeystoreFormat.Wrap(err, "")
	}
	var pemData []byte
	for _, b := range blocks {
		pemData = append(pemData, pem.EncodeToMemory(b)...)
	}
	return newKeyStoreFromPEM(pemData, pemData)
}

func newKeyStoreFromPEM(certPEMBlock, keyPEMBlock []byte) (*KeyStore, error) {
	cert, err := tls.X509KeyPair(certPEMBlock, keyPEMBlock)
	if err != nil {
		return nil, errors.ErrInvalidKeystoreFormat.Wrap(err, "")
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, errors.ErrInvalidKeystoreFormat.Wrap(err, "")
	}
	cert.Leaf = leaf
	return &KeyStore{Certificate: cert, Leaf: leaf}, nil
}

func readFile(path string) ([]byte, error) {
	if len(path) == 0 {
		return nil, errors.ErrInvalidKeystoreReference.Wrap(nil, "no keystore path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ErrInvalidKeystoreReference.Wrap(err, "%s", path)
	}
	return data, nil
}
