package testutil

import (
	"crypto"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"git.sr.ht/~jakintosh/attest/pkg/request"
)

// HTTPResult captures HTTP response details for test assertions.
type HTTPResult struct {
	Code    int
	Error   error
	Headers http.Header
	Body    []byte
}

// ExpectStatus validates the HTTP status code and fails the test if it
// doesn't match.
func ExpectStatus(
	t *testing.T,
	expected int,
	result HTTPResult,
) {
	t.Helper()
	if result.Error != nil {
		t.Fatalf("request error: %v", result.Error)
	}
	if result.Code != expected {
		t.Fatalf("expected status %d, got %d. Body: %s", expected, result.Code, string(result.Body))
	}
}

// PostJSON performs a POST with a JSON body and optionally decodes the JSON
// response.
func PostJSON(
	router http.Handler,
	urlPath string,
	body string,
	response any,
) HTTPResult {
	req := httptest.NewRequest(http.MethodPost, urlPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return Do(router, req, response)
}

// PostSigned performs a POST carrying the given certificate, signed with the
// client's private key, and optionally decodes the JSON response.
func PostSigned(
	t *testing.T,
	router http.Handler,
	urlPath string,
	cert []byte,
	clientKey crypto.PrivateKey,
	response any,
) HTTPResult {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, urlPath, nil)
	req.Header.Set(request.CertificateHeader, base64.StdEncoding.EncodeToString(cert))
	if err := request.NewSigner(clientKey).SignRequest(req, nil); err != nil {
		t.Fatalf("failed to sign request: %v", err)
	}
	return Do(router, req, response)
}

// Do serves a prepared request through the router and optionally decodes the
// JSON response.
func Do(
	router http.Handler,
	req *http.Request,
	response any,
) HTTPResult {
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if response != nil && res.Body.Len() > 0 {
		if err := json.Unmarshal(res.Body.Bytes(), response); err != nil {
			return HTTPResult{
				Code:    res.Code,
				Error:   fmt.Errorf("failed to decode JSON: %v\n%s", err, res.Body.String()),
				Headers: res.Header(),
				Body:    res.Body.Bytes(),
			}
		}
	}

	return HTTPResult{Code: res.Code, Headers: res.Header(), Body: res.Body.Bytes()}
}
