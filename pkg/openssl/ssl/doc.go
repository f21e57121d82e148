//go:build cgo && !windows

// Package ssl provides TLS and DTLS over any io.ReadWriter.
//
// A Context is configured once through a ContextBuilder and shared by every
// connection created from it. Each connection starts life as an SSL, which is
// turned into a Stream by Connect or Accept. The Stream owns the SSL and a
// custom BIO that forwards record I/O to the caller's stream.
//
//	b, err := ssl.NewContextBuilder(ssl.TLSMethod())
//	if err != nil {
//	    return err
//	}
//	ctx, err := b.SetDefaultVerifyPaths().SetVerify(ssl.VerifyPeer).Build()
//	if err != nil {
//	    return err
//	}
//	defer ctx.Free()
//	s, err := ssl.New(ctx)
//	if err != nil {
//	    return err
//	}
//	stream, err := s.Connect(conn)
//
// Callbacks registered on a context run while OpenSSL is on the stack. A
// callback that panics does not unwind through C: the panic is captured and
// re-raised, as a *openssl.CallbackPanic, by the Stream method that was
// running when it happened.
//
// Context, Session and Cipher values are safe for concurrent use. SSL and
// Stream are not; Stream serialises its own methods with a mutex.
package ssl
