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
	"strings"
	"time"

	"binpush/pkg/errors"
)

// VerifyCertificate detects common credential mistakes: a certificate
// outside its validity period, one not usable for digital signatures, and
// optionally one not issued by Apple.
func VerifyCertificate(cert *x509.Certificate, now time.Time, requireAppleIssuer bool) error {
	if cert == nil {
		return errors.ErrKeystore.Wrap(nil, "keystore does not contain any valid certificate")
	}
	if now.After(cert.NotAfter) {
		return errors.ErrKeystore.Wrap(nil, "certificate expired on %s", cert.NotAfter.Format(time.RFC3339))
	}
	if now.Before(cert.NotBefore) {
		return errors.ErrKeystore.Wrap(nil, "certificate not valid before %s", cert.NotBefore.Format(time.RFC3339))
	}
	if requireAppleIssuer && !strings.Contains(cert.Issuer.String(), "Apple") {
		return errors.ErrKeystore.Wrap(nil, "certificate was not issued by Apple: %s", cert.Issuer.String())
	}
	if cert.KeyUsage != 0 && cert.KeyUsage&x509.KeyUsageDigitalSignature == 0 {
		return errors.ErrKeystore.Wrap(nil, "certificate usage is incorrect")
	}
	return nil
}
