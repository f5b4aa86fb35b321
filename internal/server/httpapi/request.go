package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/refinery/internal/common"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// originOf returns the client address without port. RemoteAddr has already
// been rewritten by middleware.RealIP when proxy headers are present.
func originOf(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// tokenOf reads a bearer token from Authorization, falling back to the
// access_token header.
func tokenOf(r *http.Request) string {
	if h := r.Header.Get(common.AuthorizationHeaderName); h != "" {
		if len(h) > len(common.BearerPrefix) && strings.EqualFold(h[:len(common.BearerPrefix)], common.BearerPrefix) {
			return strings.TrimSpace(h[len(common.BearerPrefix):])
		}
		return ""
	}
	return strings.TrimSpace(r.Header.Get(common.AccessTokenHeaderName))
}

// readBody reads the request body and puts an identical reader back so the
// handler can decode it again.
func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	_ = r.Body.Close()
	if err != nil {
		return nil, err
	}
	if len(body) > maxBodyBytes {
		return nil, errBodyTooLarge
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

// payloadOf collects everything a client controls into one map for
// screening: JSON body fields, query parameters and route parameters.
// A body that is not a JSON object is screened as a single string.
func payloadOf(r *http.Request) (map[string]any, error) {
	body, err := readBody(r)
	if err != nil {
		return nil, err
	}

	payload := make(map[string]any)

	if len(bytes.TrimSpace(body)) > 0 {
		var fields map[string]any
		if err := json.Unmarshal(body, &fields); err == nil {
			for k, v := range fields {
				payload[k] = v
			}
		} else {
			var v any
			if json.Unmarshal(body, &v) == nil {
				payload["body"] = v
			} else {
				payload["body"] = string(body)
			}
		}
	}

	if q := r.URL.Query(); len(q) > 0 {
		query := make(map[string]any, len(q))
		for k, vs := range q {
			items := make([]any, len(vs))
			for i, v := range vs {
				items[i] = v
			}
			query[k] = items
		}
		payload["query"] = query
	}

	if rctx := chi.RouteContext(r.Context()); rctx != nil && len(rctx.URLParams.Keys) > 0 {
		params := make(map[string]any, len(rctx.URLParams.Keys))
		for i, k := range rctx.URLParams.Keys {
			params[k] = rctx.URLParams.Values[i]
		}
		payload["path"] = params
	}

	return payload, nil
}
