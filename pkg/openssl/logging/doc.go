// Package logging is the small logging facade used across openssl-go.
//
// The Logger interface carries a context on every call so that request-scoped
// handlers keep working even though OpenSSL itself knows nothing about
// contexts:
//
//	type Logger interface {
//	    Debug(ctx context.Context, msg string, args ...any)
//	    Info(ctx context.Context, msg string, args ...any)
//	    Warn(ctx context.Context, msg string, args ...any)
//	    Error(ctx context.Context, msg string, args ...any)
//	    With(args ...any) Logger
//	}
//
// # Implementations
//
// New wraps a *slog.Logger, NewZap wraps a *zap.Logger and Nop discards
// everything. The library default is Nop; install another with
// openssl.SetLogger:
//
//	z, _ := zap.NewProduction()
//	openssl.SetLogger(logging.NewZap(z))
//
// # What gets logged
//
//   - TLS handshakes starting and finishing, and shutdown, at debug level.
//   - Host stream failures observed by a TLS stream, at warn level.
//   - A callback that panicked while no stream was attached to its
//     connection, at error level. With a stream attached the panic is
//     re-raised to the caller instead.
//
// # Redaction
//
// PSK identities and keys, passphrases and key material are never passed to
// a Logger. Where their presence matters, Redacted(key) stands in:
//
//	logger.Debug(ctx, "psk negotiated", logging.Redacted("identity"))
package logging
