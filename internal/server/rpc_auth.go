package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/creachadair/jrpc2"
)

const codeUnauthorized = jrpc2.Code(-32600)

// authFailure is the JSON-RPC envelope written for rejected requests, so
// jhttp and WebSocket clients both decode a normal error response.
type authFailure struct {
	Version string       `json:"jsonrpc"`
	Error   *jrpc2.Error `json:"error"`
	ID      any          `json:"id"`
}

// requireToken lets a request through only when it carries
// "Authorization: Bearer <secret>". A daemon started without rpc_secret
// rejects everything.
func requireToken(secret string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if validToken(secret, r.Header.Get("Authorization")) {
			next.ServeHTTP(w, r)
			return
		}
		h := w.Header()
		h.Set("Content-Type", "application/json")
		h.Set("WWW-Authenticate", `Bearer realm="deadline"`)
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(authFailure{
			Version: "2.0",
			Error:   &jrpc2.Error{Code: codeUnauthorized, Message: "Unauthorized"},
		})
	})
}

func validToken(secret, authHeader string) bool {
	if secret == "" {
		return false
	}
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}
