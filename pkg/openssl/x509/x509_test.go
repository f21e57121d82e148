//go:build cgo && !windows

package x509_test

import (
	"crypto/sha256"
	"errors"
	"math/big"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/hash"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/testpki"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/pkey"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/x509"
)

func newPKI(t *testing.T) *testpki.PKI {
	t.Helper()
	pki, err := testpki.New()
	require.NoError(t, err)
	return pki
}

func load(t *testing.T, pem []byte) *x509.Certificate {
	t.Helper()
	c, err := x509.FromPEM(pem)
	require.NoError(t, err)
	t.Cleanup(c.Free)
	return c
}

func TestCertificateEncodings(t *testing.T) {
	pki := newPKI(t)
	cert := load(t, pki.ServerCert)

	std, err := testpki.DecodeCertificate(pki.ServerCert)
	require.NoError(t, err)

	der, err := cert.ToDER()
	require.NoError(t, err)
	assert.Equal(t, std.Raw, der)

	fromDER, err := x509.FromDER(der)
	require.NoError(t, err)
	defer fromDER.Free()
	der2, err := fromDER.ToDER()
	require.NoError(t, err)
	assert.Equal(t, der, der2)

	pem1, err := cert.ToPEM()
	require.NoError(t, err)
	pem2, err := load(t, pem1).ToPEM()
	require.NoError(t, err)
	assert.Equal(t, pem1, pem2)
	assert.Equal(t, testpki.EncodeCertificate(der), pem1)
}

func TestCertificateFields(t *testing.T) {
	pki := newPKI(t)
	cert := load(t, pki.ServerCert)
	std, err := testpki.DecodeCertificate(pki.ServerCert)
	require.NoError(t, err)

	subject, err := cert.Subject()
	require.NoError(t, err)
	assert.Equal(t, "testpki server", subject.CommonName())
	orgs, err := subject.EntriesByNID(x509.NIDOrganizationName)
	require.NoError(t, err)
	assert.Equal(t, []string{"openssl-go tests"}, orgs)
	entries, err := subject.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Contains(t, subject.String(), "CN=testpki server")

	issuer, err := cert.Issuer()
	require.NoError(t, err)
	assert.Equal(t, "testpki CA", issuer.CommonName())
	issuerDER, err := issuer.DER()
	require.NoError(t, err)
	assert.Equal(t, std.RawIssuer, issuerDER)

	serial, err := cert.SerialNumber()
	require.NoError(t, err)
	assert.Zero(t, serial.Cmp(big.NewInt(2)))
	assert.Equal(t, 3, cert.Version())

	nb, err := cert.NotBefore()
	require.NoError(t, err)
	na, err := cert.NotAfter()
	require.NoError(t, err)
	assert.True(t, nb.Equal(std.NotBefore), "%v != %v", nb, std.NotBefore)
	assert.True(t, na.Equal(std.NotAfter), "%v != %v", na, std.NotAfter)

	fp, err := cert.Fingerprint(hash.SHA256())
	require.NoError(t, err)
	want := sha256.Sum256(std.Raw)
	assert.Equal(t, want[:], fp)
}

func TestCertificateKeysAndHosts(t *testing.T) {
	pki := newPKI(t)
	ca := load(t, pki.CACert)
	server := load(t, pki.ServerCert)

	serverKey, err := pkey.PrivateKeyFromPEM(pki.ServerKey)
	require.NoError(t, err)
	defer serverKey.Free()
	pub, err := server.PublicKey()
	require.NoError(t, err)
	defer pub.Free()
	assert.True(t, pub.PublicEqual(serverKey))

	caPub, err := ca.PublicKey()
	require.NoError(t, err)
	defer caPub.Free()
	ok, err := server.Verify(caPub)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = server.Verify(pub)
	require.NoError(t, err)
	assert.False(t, ok, "the server did not sign itself")

	assert.True(t, ca.Issued(server))
	assert.False(t, server.Issued(ca))

	ok, err = server.CheckHost(testpki.ServerName)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = server.CheckHost("example.com")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = server.CheckIP(net.IPv4(127, 0, 0, 1))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStackFromPEM(t *testing.T) {
	pki := newPKI(t)
	bundle := append(append([]byte{}, pki.ServerCert...), pki.CACert...)
	certs, err := x509.StackFromPEM(bundle)
	require.NoError(t, err)
	require.Len(t, certs, 2)
	defer func() {
		for _, c := range certs {
			c.Free()
		}
	}()
	subject, err := certs[1].Subject()
	require.NoError(t, err)
	assert.Equal(t, "testpki CA", subject.CommonName())

	_, err = x509.StackFromPEM([]byte("not a certificate"))
	require.Error(t, err)
	assert.NotEmpty(t, openssl.StackOf(err))
}

func TestGarbagePEM(t *testing.T) {
	_, err := x509.FromPEM([]byte("-----BEGIN CERTIFICATE-----\nMIIB\n-----END CERTIFICATE-----\n"))
	require.Error(t, err)
	stack := openssl.StackOf(err)
	require.NotEmpty(t, stack)
	assert.ErrorIs(t, err, openssl.ErrOperationFailed)
	assert.NotErrorIs(t, err, openssl.ErrAllocationFailed)

	_, err = x509.FromDER([]byte{0x30, 0x03, 0x02, 0x01, 0x01})
	var oe *openssl.Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, openssl.KindOperationFailed, oe.Kind)
	assert.Equal(t, "d2i_X509", oe.Op)
}

func TestNilPointers(t *testing.T) {
	_, err := x509.FromRaw(nil)
	assert.ErrorIs(t, err, openssl.ErrAllocationFailed)
	_, err = x509.CloneRaw(nil)
	assert.ErrorIs(t, err, openssl.ErrAllocationFailed)
}

func TestStoreVerify(t *testing.T) {
	pki := newPKI(t)
	ca := load(t, pki.CACert)
	server := load(t, pki.ServerCert)

	store, err := mustBuilder(t).AddCert(ca).Build()
	require.NoError(t, err)
	defer store.Free()
	require.NoError(t, store.Verify(server))

	empty, err := mustBuilder(t).Build()
	require.NoError(t, err)
	defer empty.Free()
	err = empty.Verify(server)
	var ve *x509.VerifyError
	require.True(t, errors.As(err, &ve), "got %v", err)
	assert.Equal(t, x509.VerifyUnableToGetIssuerLocal, ve.Result)
	assert.Equal(t, 0, ve.Depth)
	assert.NotEmpty(t, ve.Result.String())

	selfCert, _, err := testpki.SelfSigned("lonely.test")
	require.NoError(t, err)
	err = store.Verify(load(t, selfCert))
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, x509.VerifyDepthZeroSelfSigned, ve.Result)
}

func TestStoreLoadFile(t *testing.T) {
	pki := newPKI(t)
	files, err := pki.WriteFiles(t.TempDir())
	require.NoError(t, err)

	store, err := mustBuilder(t).LoadFile(files.CACert).Build()
	require.NoError(t, err)
	defer store.Free()
	require.NoError(t, store.Verify(load(t, pki.ClientCert)))

	_, err = mustBuilder(t).LoadFile(files.CACert + ".missing").AddCert(load(t, pki.CACert)).Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, openssl.ErrOperationFailed)
}

func TestBorrowedNameAfterFree(t *testing.T) {
	pki := newPKI(t)
	c, err := x509.FromPEM(pki.CACert)
	require.NoError(t, err)
	name, err := c.Subject()
	require.NoError(t, err)
	clone, err := c.Clone()
	require.NoError(t, err)
	defer clone.Free()

	c.Free()
	c.Free()
	_, err = name.Entries()
	assert.ErrorIs(t, err, openssl.ErrClosed)
	assert.Equal(t, "", name.String())

	cloneName, err := clone.Subject()
	require.NoError(t, err)
	assert.Equal(t, "testpki CA", cloneName.CommonName())
}

func TestVerifyResultStrings(t *testing.T) {
	assert.True(t, x509.VerifyOK.OK())
	assert.NoError(t, x509.VerifyOK.Err())
	assert.Equal(t, "ok", x509.VerifyOK.String())
	assert.Error(t, x509.VerifyCertHasExpired.Err())
	assert.Contains(t, x509.VerifyCertHasExpired.String(), "expired")
}

func mustBuilder(t *testing.T) *x509.StoreBuilder {
	t.Helper()
	b, err := x509.NewStoreBuilder()
	require.NoError(t, err)
	return b
}
