package checker

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"strings"

	"LinkScanner/internal/domain"
)

// Classify maps a transport error onto an ErrorKind.
func Classify(err error) domain.ErrorKind {
	if err == nil {
		return domain.KindRequest
	}

	if errors.Is(err, context.Canceled) {
		return domain.KindCanceled
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return domain.KindDNS
	}

	if isTLS(err) {
		return domain.KindTLS
	}

	if isTimeout(err) {
		if isDial(err) || strings.Contains(err.Error(), "TLS handshake timeout") {
			return domain.KindConnectTimeout
		}
		return domain.KindReadTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return domain.KindConnection
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return domain.KindConnection
	}

	return domain.KindRequest
}

func isTLS(err error) bool {
	var (
		verifyErr    *tls.CertificateVerificationError
		recordErr    tls.RecordHeaderError
		alertErr     tls.AlertError
		authorityErr x509.UnknownAuthorityError
		hostErr      x509.HostnameError
		invalidErr   x509.CertificateInvalidError
	)
	return errors.As(err, &verifyErr) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &alertErr) ||
		errors.As(err, &authorityErr) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalidErr)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isDial(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
