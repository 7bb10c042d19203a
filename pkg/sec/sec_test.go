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
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"
	"time"

	"binpush/pkg/errors"
	"binpush/test/testutil/mockgw"
)

func TestLoadKeyStoreErrors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.p12")
	if err := os.WriteFile(garbage, []byte("not a keystore"), 0600); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"missing file", Config{KeyStoreType: KeyStoreTypePKCS12, KeyStoreFilePath: filepath.Join(dir, "nope.p12")}, errors.ErrInvalidKeystoreReference},
		{"no path", Config{KeyStoreType: KeyStoreTypePKCS12}, errors.ErrInvalidKeystoreReference},
		{"bad pkcs12", Config{KeyStoreType: KeyStoreTypePKCS12, KeyStoreFilePath: garbage, KeyStorePassword: "pw"}, errors.ErrInvalidKeystoreFormat},
		{"bad pem", Config{KeyStoreType: KeyStoreTypePEM, KeyStoreFilePath: garbage}, errors.ErrInvalidKeystoreFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadKeyStore(&tt.cfg)
			if !errors.Is(err, tt.want) {
				t.Errorf("LoadKeyStore() = %v, want %v", err, tt.want)
			}
			if !errors.IsCredential(err) {
				t.Errorf("%v should be a credential error", err)
			}
		})
	}
}

func TestLoadKeyStorePEM(t *testing.T) {
	certs, err := mockgw.GenerateCerts(mockgw.CertOptions{})
	if err != nil {
		t.Fatal(err)
	}
	caFile, certFile, keyFile, err := certs.WriteFiles(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cfg := &Config{CertPemFilePath: certFile, KeyPemFilePath: keyFile, CAFilePath: caFile, VerifyKeyStore: true, RequireAppleIssuer: true}
	cfg.SetDefaultIfNotDefined()
	if cfg.KeyStoreType != KeyStoreTypePEM {
		t.Fatalf("KeyStoreType = %s", cfg.KeyStoreType)
	}
	if err = cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	ks, err := LoadKeyStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if ks.Leaf == nil || ks.Leaf.Subject.CommonName == "" {
		t.Error("leaf not parsed")
	}
	tlscfg, err := NewClientTLSConfig(cfg, ks)
	if err != nil {
		t.Fatal(err)
	}
	if len(tlscfg.Certificates) != 1 || tlscfg.InsecureSkipVerify {
		t.Errorf("unexpected tls config %+v", tlscfg)
	}

	combined := append(append([]byte{}, certs.ClientCertPEM...), certs.ClientKeyPEM...)
	if _, err = DecodeKeyStore(combined, "", KeyStoreTypePEM); err != nil {
		t.Errorf("combined PEM keystore: %v", err)
	}
}

func TestVerifyCertificate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		opts    mockgw.CertOptions
		apple   bool
		wantErr bool
	}{
		{"valid", mockgw.CertOptions{}, true, false},
		{"expired", mockgw.CertOptions{ClientNotBefore: now.Add(-48 * time.Hour), ClientNotAfter: now.Add(-24 * time.Hour)}, false, true},
		{"not yet valid", mockgw.CertOptions{ClientNotBefore: now.Add(time.Hour), ClientNotAfter: now.Add(48 * time.Hour)}, false, true},
		{"foreign issuer", mockgw.CertOptions{IssuerOrganization: "Example Corp"}, true, true},
		{"foreign issuer allowed", mockgw.CertOptions{IssuerOrganization: "Example Corp"}, false, false},
		{"wrong usage", mockgw.CertOptions{ClientKeyUsage: x509.KeyUsageCertSign}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			certs, err := mockgw.GenerateCerts(tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			ks, err := newKeyStoreFromPEM(certs.ClientCertPEM, certs.ClientKeyPEM)
			if err != nil {
				t.Fatal(err)
			}
			err = VerifyCertificate(ks.Leaf, now, tt.apple)
			if (err != nil) != tt.wantErr {
				t.Errorf("VerifyCertificate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"pkcs12 without path", Config{KeyStoreType: "pkcs12"}, true},
		{"pkcs12", Config{KeyStoreFilePath: "a.p12"}, false},
		{"pem without key", Config{KeyStoreType: "PEM", CertPemFilePath: "c.crt"}, true},
		{"unknown type", Config{KeyStoreType: "JKS", KeyStoreFilePath: "a.jks"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.SetDefaultIfNotDefined()
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestVersionName(t *testing.T) {
	if GetVersionName(0x0304) != "TLSv1.3" || GetVersionName(0x0303) != "TLSv1.2" {
		t.Error("unexpected TLS version names")
	}
}
