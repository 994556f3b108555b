package tts

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// RequestSigner builds authenticated connection URLs. The api secret never
// leaves the process; only an HMAC-SHA256 signature over host, date and
// request line is sent.
type RequestSigner struct {
	creds       Credentials
	endpoint    string
	host        string
	requestLine string
	now         func() time.Time
}

// SignerOption customizes a RequestSigner
type SignerOption func(*RequestSigner)

// WithEndpoint sets the base URL the query string is appended to
func WithEndpoint(endpoint string) SignerOption {
	return func(s *RequestSigner) { s.endpoint = endpoint }
}

// WithSignedHost sets the host value covered by the signature
func WithSignedHost(host string) SignerOption {
	return func(s *RequestSigner) { s.host = host }
}

// WithRequestLine sets the request line covered by the signature
func WithRequestLine(line string) SignerOption {
	return func(s *RequestSigner) { s.requestLine = line }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) SignerOption {
	return func(s *RequestSigner) { s.now = now }
}

// NewRequestSigner creates a signer for the given credentials
func NewRequestSigner(creds Credentials, opts ...SignerOption) *RequestSigner {
	s := &RequestSigner{
		creds:       creds,
		endpoint:    defaultEndpoint,
		host:        defaultSignedHost,
		requestLine: defaultRequestLine,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// URL signs a connection URL for the current time
func (s *RequestSigner) URL() string {
	return s.SignedURL(s.now())
}

// SignedURL signs a connection URL for the given time. Equal inputs give
// byte-identical output.
func (s *RequestSigner) SignedURL(now time.Time) string {
	date := now.UTC().Format(http.TimeFormat)

	v := url.Values{}
	v.Set("authorization", s.authorization(date))
	v.Set("date", date)
	v.Set("host", s.host)

	return s.endpoint + "?" + v.Encode()
}

func (s *RequestSigner) authorization(date string) string {
	origin := fmt.Sprintf("host: %s\ndate: %s\n%s", s.host, date, s.requestLine)

	mac := hmac.New(sha256.New, []byte(s.creds.APISecret))
	mac.Write([]byte(origin))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	auth := fmt.Sprintf(`api_key="%s", algorithm="hmac-sha256", headers="host date request-line", signature="%s"`,
		s.creds.APIKey, signature)
	return base64.StdEncoding.EncodeToString([]byte(auth))
}
