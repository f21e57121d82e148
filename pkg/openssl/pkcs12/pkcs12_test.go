//go:build cgo && !windows

package pkcs12_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/testpki"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/pkcs12"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/pkey"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/x509"
)

func TestBuildAndParse(t *testing.T) {
	pki, err := testpki.New()
	require.NoError(t, err)

	key, err := pkey.PrivateKeyFromPEM(pki.ServerKey)
	require.NoError(t, err)
	defer key.Free()
	cert, err := x509.FromPEM(pki.ServerCert)
	require.NoError(t, err)
	defer cert.Free()
	ca, err := x509.FromPEM(pki.CACert)
	require.NoError(t, err)
	defer ca.Free()

	p12, err := pkcs12.NewBuilder().Name("server").CA(ca).Build("s3cret", key, cert)
	require.NoError(t, err)
	defer p12.Free()

	der, err := p12.ToDER()
	require.NoError(t, err)

	reread, err := pkcs12.FromDER(der)
	require.NoError(t, err)
	defer reread.Free()
	der2, err := reread.ToDER()
	require.NoError(t, err)
	assert.Equal(t, der, der2)

	parsed, err := reread.Parse("s3cret")
	require.NoError(t, err)
	defer parsed.Free()

	require.NotNil(t, parsed.Key)
	assert.True(t, parsed.Key.PublicEqual(key))
	require.NotNil(t, parsed.Cert)
	want, err := cert.ToDER()
	require.NoError(t, err)
	got, err := parsed.Cert.ToDER()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.Len(t, parsed.CA, 1)
	caName, err := parsed.CA[0].Subject()
	require.NoError(t, err)
	assert.Equal(t, "testpki CA", caName.CommonName())
}

func TestWrongPassword(t *testing.T) {
	pki, err := testpki.New()
	require.NoError(t, err)
	key, err := pkey.PrivateKeyFromPEM(pki.ClientKey)
	require.NoError(t, err)
	defer key.Free()
	cert, err := x509.FromPEM(pki.ClientCert)
	require.NoError(t, err)
	defer cert.Free()

	p12, err := pkcs12.NewBuilder().Build("right", key, cert)
	require.NoError(t, err)
	defer p12.Free()

	_, err = p12.Parse("wrong")
	require.ErrorIs(t, err, openssl.ErrOperationFailed)
	assert.NotEmpty(t, openssl.StackOf(err))
}

func TestGarbageAndFree(t *testing.T) {
	_, err := pkcs12.FromDER([]byte{0x30, 0x03, 0x02, 0x01})
	require.Error(t, err)
	assert.NotEmpty(t, openssl.StackOf(err))
	assert.ErrorIs(t, err, openssl.ErrOperationFailed)

	pki, err := testpki.New()
	require.NoError(t, err)
	key, err := pkey.PrivateKeyFromPEM(pki.ServerKey)
	require.NoError(t, err)
	defer key.Free()
	cert, err := x509.FromPEM(pki.ServerCert)
	require.NoError(t, err)
	defer cert.Free()

	for i := 0; i < 10; i++ {
		p12, err := pkcs12.NewBuilder().Build("pw", key, cert)
		require.NoError(t, err)
		p12.Free()
		p12.Free()
		_, err = p12.ToDER()
		assert.ErrorIs(t, err, openssl.ErrClosed)
	}
}
