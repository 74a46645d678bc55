package s3

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	algorithm   = "AWS4-HMAC-SHA256"
	awsRequest  = "aws4_request"
	service     = "s3"
	dateFormat  = "20060102"
	amzDateForm = "20060102T150405Z"
	emptySHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
)

// signer implements the AWS SigV4 request-signing algorithm directly over
// net/http, per the storage.s3 package documentation: the signing
// procedure is the specified behavior, so it is not delegated to an SDK.
type signer struct {
	accessKeyID     string
	secretAccessKey string
	region          string
	securityToken   string

	mu            sync.Mutex
	signingKeyDay string
	signingKey    []byte
}

func newSigner(accessKeyID, secretAccessKey, securityToken, region string) *signer {
	return &signer{accessKeyID: accessKeyID, secretAccessKey: secretAccessKey, securityToken: securityToken, region: region}
}

// sign computes and sets the Authorization, x-amz-date, and
// x-amz-content-sha256 headers on req. payloadHash is the hex SHA-256 of
// the request body (or the empty-string hash for bodiless requests), and
// now is the signing instant — callers pass time.Now().UTC() in
// production and a fixed time in tests for determinism.
func (s *signer) sign(req *http.Request, payloadHash string, now time.Time) {
	amzDate := now.Format(amzDateForm)
	date := now.Format(dateFormat)

	req.Header.Set("x-amz-date", amzDate)
	req.Header.Set("x-amz-content-sha256", payloadHash)
	if s.securityToken != "" {
		req.Header.Set("x-amz-security-token", s.securityToken)
	}

	canonicalRequest, signedHeaders := s.canonicalRequest(req, payloadHash)
	stringToSign := strings.Join([]string{
		algorithm,
		amzDate,
		date + "/" + s.region + "/" + service + "/" + awsRequest,
		hashHex(canonicalRequest),
	}, "\n")

	key := s.daySigningKey(date)
	signature := hex.EncodeToString(hmacSHA256(key, stringToSign))

	authorization := algorithm + " Credential=" + s.accessKeyID + "/" + date + "/" + s.region + "/" + service + "/" + awsRequest +
		",SignedHeaders=" + signedHeaders + ",Signature=" + signature
	req.Header.Set("authorization", authorization)
}

// daySigningKey returns the HMAC-chained signing key for date, regenerating
// and caching it the first time a given UTC day is seen.
func (s *signer) daySigningKey(date string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.signingKeyDay == date && s.signingKey != nil {
		return s.signingKey
	}

	dateKey := hmacSHA256([]byte("AWS4"+s.secretAccessKey), date)
	regionKey := hmacSHA256(dateKey, s.region)
	serviceKey := hmacSHA256(regionKey, service)
	signingKey := hmacSHA256(serviceKey, awsRequest)

	s.signingKeyDay = date
	s.signingKey = signingKey
	return signingKey
}

// canonicalRequest builds the SigV4 canonical request string and the
// SignedHeaders value. The authorization header itself is excluded even
// if present (a retry carrying a stale Authorization from a previous
// signing attempt must not be signed over).
func (s *signer) canonicalRequest(req *http.Request, payloadHash string) (string, string) {
	var headerNames []string
	headerValues := map[string]string{}
	for name, values := range req.Header {
		lower := strings.ToLower(name)
		if lower == "authorization" {
			continue
		}
		headerNames = append(headerNames, lower)
		joined := make([]string, len(values))
		for i, v := range values {
			joined[i] = strings.TrimSpace(v)
		}
		headerValues[lower] = strings.Join(joined, ",")
	}
	if _, ok := headerValues["host"]; !ok {
		headerNames = append(headerNames, "host")
		headerValues["host"] = req.Host
	}
	sort.Strings(headerNames)

	var canonicalHeaders strings.Builder
	for _, name := range headerNames {
		canonicalHeaders.WriteString(name)
		canonicalHeaders.WriteByte(':')
		canonicalHeaders.WriteString(headerValues[name])
		canonicalHeaders.WriteByte('\n')
	}
	signedHeaders := strings.Join(headerNames, ";")

	canonicalQuery := canonicalQueryString(req.URL)

	canonical := strings.Join([]string{
		req.Method,
		canonicalURI(req.URL),
		canonicalQuery,
		canonicalHeaders.String(),
		signedHeaders,
		payloadHash,
	}, "\n")
	return canonical, signedHeaders
}

func canonicalURI(u *url.URL) string {
	path := u.EscapedPath()
	if path == "" {
		return "/"
	}
	return path
}

func canonicalQueryString(u *url.URL) string {
	values := u.Query()
	var keys []string
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		vs := values[k]
		sort.Strings(vs)
		for _, v := range vs {
			parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
		}
	}
	return strings.Join(parts, "&")
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}

func hashHex(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// payloadHashHex returns the hex SHA-256 of body, or the well-known empty
// hash if body is nil.
func payloadHashHex(body []byte) string {
	if len(body) == 0 {
		return emptySHA256
	}
	return hashHex(string(body))
}
