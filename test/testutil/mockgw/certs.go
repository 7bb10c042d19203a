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

package mockgw

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// CertOptions shapes the generated client certificate.
type CertOptions struct {
	IssuerOrganization string
	ClientNotBefore    time.Time
	ClientNotAfter     time.Time
	ClientKeyUsage     x509.KeyUsage
}

// Certs is a throwaway PKI: one CA signing a server certificate for
// localhost/127.0.0.1 and a client certificate.
type Certs struct {
	CA            *x509.Certificate
	CAPEM         []byte
	ServerCertPEM []byte
	ServerKeyPEM  []byte
	ClientCertPEM []byte
	ClientKeyPEM  []byte
}

func GenerateCerts(opts CertOptions) (*Certs, error) {
	now := time.Now()
	if opts.IssuerOrganization == "" {
		opts.IssuerOrganization = "Apple Inc."
	}
	if opts.ClientNotBefore.IsZero() {
		opts.ClientNotBefore = now.Add(-time.Hour)
	}
	if opts.ClientNotAfter.IsZero() {
		opts.ClientNotAfter = now.Add(24 * time.Hour)
	}
	if opts.ClientKeyUsage == 0 {
		opts.ClientKeyUsage = x509.KeyUsageDigitalSignature
	}

	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	caTmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			Organization: []string{opts.IssuerOrganization},
			CommonName:   opts.IssuerOrganization + " Test Certification Authority",
		},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTmpl, caTmpl, &caKey.PublicKey, caKey)
	if err != nil {
		return nil, err
	}
	ca, err := x509.ParseCertificate(caDER)
	if err != nil {
		return nil, err
	}
	c := &Certs{CA: ca, CAPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: caDER})}

	serverTmpl := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "localhost"},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		NotBefore:    now.Add(-time.Hour),
		NotAfter:     now.Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	if c.ServerCertPEM, c.ServerKeyPEM, err = issue(serverTmpl, ca, caKey); err != nil {
		return nil, err
	}

	clientTmpl := &x509.Certificate{
		SerialNumber: big.NewInt(3),
		Subject:      pkix.Name{CommonName: "Apple Push Services: com.example.test"},
		NotBefore:    opts.ClientNotBefore,
		NotAfter:     opts.ClientNotAfter,
		KeyUsage:     opts.ClientKeyUsage,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	if c.ClientCertPEM, c.ClientKeyPEM, err = issue(clientTmpl, ca, caKey); err != nil {
		return nil, err
	}
	return c, nil
}

func issue(tmpl, ca *x509.Certificate, caKey *ecdsa.PrivateKey) (certPEM, keyPEM []byte, err error) {
	var key *ecdsa.PrivateKey
	if key, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader); err != nil {
		return
	}
	var der, keyDER []byte
	if der, err = x509.CreateCertificate(rand.Reader, tmpl, ca, &key.PublicKey, caKey); err != nil {
		return
	}
	if keyDER, err = x509.MarshalPKCS8PrivateKey(key); err != nil {
		return
	}
	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})
	return
}

// ServerTLSConfig requires a client certificate signed by the test CA.
func (c *Certs) ServerTLSConfig() (*tls.Config, error) {
	cert, err := tls.X509KeyPair(c.ServerCertPEM, c.ServerKeyPEM)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	pool.AddCert(c.CA)
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ClientCAs:    pool,
	}, nil
}

// WriteFiles stores the CA and the client credential as PEM files in dir.
func (c *Certs) WriteFiles(dir string) (caFile, certFile, keyFile string, err error) {
	caFile = filepath.Join(dir, "ca.crt")
	certFile = filepath.Join(dir, "client.crt")
	keyFile = filepath.Join(dir, "client.pem")
	for name, data := range map[string][]byte{caFile: c.CAPEM, certFile: c.ClientCertPEM, keyFile: c.ClientKeyPEM} {
		if err = os.WriteFile(name, data, 0600); err != nil {
			return
		}
	}
	return
}
