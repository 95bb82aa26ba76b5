package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
)

// HeaderSignature carries the HMAC-SHA256 of the request body, as raw hex or
// "sha256=<hex>".
const HeaderSignature = "X-Boardroom-Signature"

const maxSignedBody = 1 << 20

// SignedBody returns middleware that rejects requests whose body does not
// carry a valid HeaderSignature. The external metrics process signs its
// PUT /executions/{id}/metrics calls this way. secret is read per request so
// the key can rotate; an empty secret disables the check.
func SignedBody(secret func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := secret()
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			sig := r.Header.Get(HeaderSignature)
			if sig == "" {
				writeMiddlewareError(w, http.StatusUnauthorized, "missing signature")
				return
			}
			body, err := io.ReadAll(io.LimitReader(r.Body, maxSignedBody+1))
			if err != nil {
				writeMiddlewareError(w, http.StatusBadRequest, "failed to read body")
				return
			}
			if len(body) > maxSignedBody {
				writeMiddlewareError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			if !validSignature(body, sig, key) {
				writeMiddlewareError(w, http.StatusForbidden, "invalid signature")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func validSignature(body []byte, signature, secret string) bool {
	got, err := hex.DecodeString(strings.TrimPrefix(signature, "sha256="))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

func writeMiddlewareError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
