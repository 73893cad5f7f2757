// Package relaytls generates the in-memory, self-signed TLS material
// cmd/xmem-relay needs to run QUIC over loopback without an operator
// having to provision a real certificate for a meta-index side channel.
package relaytls

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"math/big"
	"net"
	"time"
)

// NextProto is the ALPN value xmem-relay's server and client negotiate.
const NextProto = "xmem-relay"

// relayCertLifetime is fixed rather than configurable: xmem-relay is a
// short-lived demo process, generates a fresh cert every time it starts,
// and never persists one across runs, so there is no case where a caller
// needs a longer-lived certificate.
const relayCertLifetime = time.Hour

// GenerateSelfSignedTLS creates an in-memory self-signed server TLS config
// for listenAddr, xmem-relay's own QUIC listen address (host:port or
// :port). The certificate covers listenAddr's host plus "localhost" and
// "127.0.0.1", so a client dialing any of the ways a relay operator would
// reasonably address a loopback relay passes verification.
func GenerateSelfSignedTLS(listenAddr string) (*tls.Config, error) {
	hosts := []string{"localhost", "127.0.0.1"}
	if host, _, err := net.SplitHostPort(listenAddr); err == nil && host != "" {
		hosts = append(hosts, host)
	}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(relayCertLifetime),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			tmpl.IPAddresses = append(tmpl.IPAddresses, ip)
		} else {
			tmpl.DNSNames = append(tmpl.DNSNames, h)
		}
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{pair},
		MinVersion:   tls.VersionTLS13,
		NextProtos:   []string{NextProto},
	}, nil
}

// InsecureClientTLS returns a client TLS config that trusts any server
// certificate, appropriate only for a loopback demo relay talking to the
// self-signed config GenerateSelfSignedTLS produces.
func InsecureClientTLS() *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: true,
		MinVersion:         tls.VersionTLS13,
		NextProtos:         []string{NextProto},
	}
}
