package httpclient

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostSendsJSONAndDecodesNumbers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"params":{"id":7}}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rows":[{"total":12345678901234}],"count":1}`))
	}))
	defer srv.Close()

	var out map[string]interface{}
	err := NewClient().Post(srv.URL, map[string]interface{}{"params": map[string]int{"id": 7}}, &out)
	require.NoError(t, err)

	rows := out["rows"].([]interface{})
	assert.Equal(t, json.Number("12345678901234"), rows[0].(map[string]interface{})["total"])
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{
			name:    "error and message",
			status:  http.StatusNotFound,
			body:    `{"error":"no external database configured for this tenant","message":"unknown tenant: t1","status":"error"}`,
			wantMsg: "no external database configured for this tenant: unknown tenant: t1",
		},
		{
			name:    "validation fields",
			status:  http.StatusUnprocessableEntity,
			body:    `{"error":"validation failed","status":"error","fields":["nombre is required"]}`,
			wantMsg: "validation failed\n  - nombre is required",
		},
		{
			name:    "empty document",
			status:  http.StatusServiceUnavailable,
			body:    `{}`,
			wantMsg: "HTTP 503 error",
		},
		{
			name:    "not json",
			status:  http.StatusBadGateway,
			body:    "bad gateway",
			wantMsg: "HTTP 502: bad gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := NewClient().Get(srv.URL, nil)
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}
