package fetch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/law-makers/crawlflow/internal/engine"
)

// classify maps a transport error onto a failure kind. Timeouts and TLS
// handshake failures are transient; everything else is fatal.
func classify(rawURL string, err error) error {
	var ee *engine.EngineError
	if errors.As(err, &ee) {
		return err
	}

	switch {
	case isTLSHandshake(err):
		return engine.NewEngineError(engine.ErrCodeTLSHandshake, "tls handshake failed", err).
			WithDetail("url", rawURL)
	case errors.Is(err, context.DeadlineExceeded) || isNetTimeout(err):
		return engine.NewEngineError(engine.ErrCodeRequestTimeout, "request timeout", err).
			WithDetail("url", rawURL)
	case errors.Is(err, context.Canceled):
		return engine.NewEngineError(engine.ErrCodeFetch, "request cancelled", err).
			WithDetail("url", rawURL)
	default:
		return engine.NewEngineError(engine.ErrCodeFetch, "request failed", err).
			WithDetail("url", rawURL)
	}
}

func isNetTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isTLSHandshake(err error) bool {
	var (
		recordErr tls.RecordHeaderError
		alertErr  tls.AlertError
		verifyErr *tls.CertificateVerificationError
		unknownCA x509.UnknownAuthorityError
		hostErr   x509.HostnameError
	)
	switch {
	case errors.As(err, &recordErr),
		errors.As(err, &alertErr),
		errors.As(err, &verifyErr),
		errors.As(err, &unknownCA),
		errors.As(err, &hostErr):
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "tls: handshake")
}

// checkStatus turns throttling and server errors into a retry signal and
// other error statuses into a fatal failure.
func checkStatus(rawURL string, status int) error {
	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		return engine.RetryError(http.StatusText(status), nil).
			WithDetail("url", rawURL).
			WithDetail("status", status)
	case status >= 400:
		return engine.NewEngineError(engine.ErrCodeFetch, http.StatusText(status), nil).
			WithDetail("url", rawURL).
			WithDetail("status", status)
	}
	return nil
}
