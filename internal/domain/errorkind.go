package domain

// ErrorKind classifies why a liveness probe failed.
type ErrorKind string

const (
	KindInvalidURL     ErrorKind = "InvalidURL"
	KindDNS            ErrorKind = "DNSError"
	KindConnection     ErrorKind = "ConnectionError"
	KindConnectTimeout ErrorKind = "ConnectTimeout"
	KindReadTimeout    ErrorKind = "ReadTimeout"
	KindTLS            ErrorKind = "TLSError"
	KindHTTPStatus     ErrorKind = "HTTPStatusError"
	KindCanceled       ErrorKind = "Canceled"
	KindRequest        ErrorKind = "RequestError"
)

// ErrorKinds lists every known kind in a stable order.
func ErrorKinds() []ErrorKind {
	return []ErrorKind{
		KindInvalidURL,
		KindDNS,
		KindConnection,
		KindConnectTimeout,
		KindReadTimeout,
		KindTLS,
		KindHTTPStatus,
		KindCanceled,
		KindRequest,
	}
}

// Valid reports whether k is one of the known kinds.
func (k ErrorKind) Valid() bool {
	for _, known := range ErrorKinds() {
		if k == known {
			return true
		}
	}
	return false
}
