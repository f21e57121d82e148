//go:build cgo && !windows

package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/hash"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/pkcs12"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/pkey"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/ssl"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/x509"
)

// envPassword supplies passwords without a prompt.
const envPassword = "OPENSSL_GO_PASSWORD"

var commands = map[string]command{
	"version":  {"Print wrapper and library versions", runVersion},
	"digest":   {"Hash files or stdin", runDigest},
	"x509":     {"Describe a PEM certificate", runX509},
	"pkcs12":   {"Describe a PKCS#12 bundle", runPKCS12},
	"pkey":     {"Describe a PEM private key", runPKey},
	"s_client": {"Open a TLS connection and relay stdin/stdout", runSClient},
}

func runVersion([]string) error {
	fmt.Printf("openssl-go %s\n", openssl.WrapperVersion)
	fmt.Printf("library:   %s\n", openssl.VersionText())
	v, err := openssl.LibraryVersion()
	if err != nil {
		return err
	}
	fmt.Printf("vendor:    %s %s\n", openssl.LibraryVendor(), v)
	for _, f := range []openssl.Feature{
		openssl.FeatureTLS13,
		openssl.FeatureKeylog,
		openssl.FeatureProtoVersionSetters,
		openssl.FeatureGet1PeerCertificate,
	} {
		fmt.Printf("  %-28s %t\n", f, openssl.Supports(f))
	}
	return nil
}

func runDigest(args []string) error {
	fs := flag.NewFlagSet("digest", flag.ContinueOnError)
	name := fs.String("md", "sha256", "Digest name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	md, err := hash.ByName(*name)
	if err != nil {
		return fmt.Errorf("digest %q: %w", *name, err)
	}

	sum := func(label string, r io.Reader) error {
		h, err := hash.New(md)
		if err != nil {
			return err
		}
		defer h.Free()
		if _, err := io.Copy(h, r); err != nil {
			return err
		}
		out, err := h.Finish()
		if err != nil {
			return err
		}
		fmt.Printf("%s(%s)= %s\n", strings.ToUpper(md.Name()), label, hex.EncodeToString(out))
		return nil
	}

	if fs.NArg() == 0 {
		return sum("stdin", os.Stdin)
	}
	for _, path := range fs.Args() {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		err = sum(path, f)
		_ = f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func readInput(fs *flag.FlagSet, in string) ([]byte, error) {
	if in == "" {
		fs.Usage()
		return nil, errors.New("-in is required")
	}
	return os.ReadFile(in)
}

func runX509(args []string) error {
	fs := flag.NewFlagSet("x509", flag.ContinueOnError)
	in := fs.String("in", "", "PEM certificate file")
	fp := fs.String("fingerprint", "sha256", "Fingerprint digest, empty to skip")
	host := fs.String("checkhost", "", "Report whether the certificate matches this host")
	if err := fs.Parse(args); err != nil {
		return err
	}
	data, err := readInput(fs, *in)
	if err != nil {
		return err
	}
	certs, err := x509.StackFromPEM(data)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range certs {
			c.Free()
		}
	}()
	for i, c := range certs {
		if i > 0 {
			fmt.Println()
		}
		if err := describeCert(c, *fp); err != nil {
			return err
		}
		if *host != "" {
			ok, err := c.CheckHost(*host)
			if err != nil {
				return err
			}
			fmt.Printf("Matches %s: %t\n", *host, ok)
		}
	}
	return nil
}

func describeCert(c *x509.Certificate, fpName string) error {
	subject, err := c.Subject()
	if err != nil {
		return err
	}
	issuer, err := c.Issuer()
	if err != nil {
		return err
	}
	serial, err := c.SerialNumber()
	if err != nil {
		return err
	}
	notBefore, err := c.NotBefore()
	if err != nil {
		return err
	}
	notAfter, err := c.NotAfter()
	if err != nil {
		return err
	}
	fmt.Printf("Subject:    %s\n", subject)
	fmt.Printf("Issuer:     %s\n", issuer)
	fmt.Printf("Serial:     %s\n", serial)
	fmt.Printf("Not Before: %s\n", notBefore.UTC().Format(time.RFC3339))
	fmt.Printf("Not After:  %s\n", notAfter.UTC().Format(time.RFC3339))
	if fpName == "" {
		return nil
	}
	md, err := hash.ByName(fpName)
	if err != nil {
		return err
	}
	sum, err := c.Fingerprint(md)
	if err != nil {
		return err
	}
	fmt.Printf("%s Fingerprint: %s\n", strings.ToUpper(md.Name()), colonHex(sum))
	return nil
}

func colonHex(b []byte) string {
	parts := make([]string, len(b))
	for i := range b {
		parts[i] = strings.ToUpper(hex.EncodeToString(b[i : i+1]))
	}
	return strings.Join(parts, ":")
}

// password reads a password from envPassword, or prompts on the terminal.
func password(prompt string) ([]byte, error) {
	if v, ok := os.LookupEnv(envPassword); ok {
		return []byte(v), nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("no terminal for the password prompt; set %s", envPassword)
	}
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	return pw, err
}

func runPKCS12(args []string) error {
	fs := flag.NewFlagSet("pkcs12", flag.ContinueOnError)
	in := fs.String("in", "", "DER PKCS#12 file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	data, err := readInput(fs, *in)
	if err != nil {
		return err
	}
	p, err := pkcs12.FromDER(data)
	if err != nil {
		return err
	}
	defer p.Free()

	pw, err := password("Import password: ")
	if err != nil {
		return err
	}
	defer openssl.ZeroizeBytes(pw)
	parsed, err := p.Parse(string(pw))
	if err != nil {
		return err
	}
	defer parsed.Free()

	if parsed.Key != nil {
		fmt.Printf("Key:  %s, %d bits\n", parsed.Key.Type(), parsed.Key.Bits())
	}
	if parsed.Cert != nil {
		if err := describeCert(parsed.Cert, "sha256"); err != nil {
			return err
		}
	}
	fmt.Printf("CA certificates: %d\n", len(parsed.CA))
	return nil
}

func runPKey(args []string) error {
	fs := flag.NewFlagSet("pkey", flag.ContinueOnError)
	in := fs.String("in", "", "PEM private key file")
	pubout := fs.Bool("pubout", false, "Print the public key")
	if err := fs.Parse(args); err != nil {
		return err
	}
	data, err := readInput(fs, *in)
	if err != nil {
		return err
	}
	key, err := pkey.PrivateKeyFromPEMWithPassword(data, func(bool) ([]byte, error) {
		return password("Key password: ")
	})
	if err != nil {
		return err
	}
	defer key.Free()
	fmt.Printf("Type: %s\nBits: %d\n", key.Type(), key.Bits())
	if *pubout {
		pem, err := key.PublicKeyToPEM()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(pem)
		return err
	}
	return nil
}

func runSClient(args []string) error {
	fs := flag.NewFlagSet("s_client", flag.ContinueOnError)
	addr := fs.String("connect", "", "host:port to connect to")
	caFile := fs.String("CAfile", "", "PEM file of trusted CAs (default: system store)")
	alpn := fs.String("alpn", "", "Comma-separated ALPN protocols")
	insecure := fs.Bool("insecure", false, "Skip certificate and hostname verification")
	keylog := fs.String("keylog", "", "Append NSS key log lines to this file")
	timeout := fs.Duration("timeout", 10*time.Second, "Connect timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *addr == "" {
		fs.Usage()
		return errors.New("-connect is required")
	}

	b, err := ssl.NewConnectorBuilder(ssl.TLSClientMethod())
	if err != nil {
		return err
	}
	if *caFile != "" {
		b.SetCAFile(*caFile)
	}
	if *insecure {
		b.SetVerify(ssl.VerifyNone)
	}
	if *alpn != "" {
		b.SetALPNProtos(strings.Split(*alpn, ",")...)
	}
	if *keylog != "" {
		f, err := os.OpenFile(*keylog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return err
		}
		defer f.Close()
		var mu sync.Mutex
		b.SetKeylogCallback(func(_ *ssl.SSL, line string) {
			mu.Lock()
			defer mu.Unlock()
			_, _ = fmt.Fprintln(f, line)
		})
	}
	connector, err := b.Build()
	if err != nil {
		return err
	}
	defer connector.Free()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	var conn *ssl.Conn
	if *insecure {
		conn, err = dialInsecure(ctx, connector, *addr)
	} else {
		conn, err = connector.Dial(ctx, "tcp", *addr)
	}
	if err != nil {
		var he *ssl.HandshakeError
		if errors.As(err, &he) && !he.VerifyResult.OK() {
			return fmt.Errorf("%w (verify error %d)", err, int(he.VerifyResult))
		}
		return err
	}
	defer conn.Close()

	describeSession(conn.SSL())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = io.Copy(os.Stdout, conn)
	}()
	if _, err := io.Copy(conn, os.Stdin); err != nil {
		return err
	}
	_, _ = conn.Stream().Shutdown()
	<-done
	return nil
}

// dialInsecure is Connector.Dial without the hostname check.
func dialInsecure(ctx context.Context, c *ssl.Connector, addr string) (*ssl.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	var d net.Dialer
	raw, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	cfg, err := c.Configure()
	if err != nil {
		_ = raw.Close()
		return nil, err
	}
	cfg.VerifyHostname = false
	stream, err := cfg.Connect(host, raw)
	if err != nil {
		_ = raw.Close()
		return nil, err
	}
	return ssl.NewConn(stream, raw), nil
}

func describeSession(s *ssl.SSL) {
	w := os.Stderr
	fmt.Fprintf(w, "Protocol: %s\n", s.Version())
	if c, ok := s.CurrentCipher(); ok {
		secret, _ := c.Bits()
		fmt.Fprintf(w, "Cipher:   %s (%d bits)\n", c.Name(), secret)
	}
	if p := s.SelectedALPN(); len(p) > 0 {
		fmt.Fprintf(w, "ALPN:     %s\n", p)
	}
	fmt.Fprintf(w, "Verify:   %s\n", s.VerifyResult())
	if peer, err := s.PeerCertificate(); err == nil && peer != nil {
		if subject, err := peer.Subject(); err == nil {
			fmt.Fprintf(w, "Peer:     %s\n", subject)
		}
		peer.Free()
	}
	fmt.Fprintln(w, "---")
}
