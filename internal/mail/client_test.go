package mail

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, url string, retries int) *Client {
	t.Helper()
	client, err := NewClient(Config{
		APIURL:      url,
		APIKey:      "secret-key",
		FromAddress: "no-reply@leadforge.io",
		FromName:    "LeadForge",
		RetryLimit:  retries,
	})
	require.NoError(t, err)
	return client
}

func TestSendPostsProviderPayload(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 0)
	err := client.Send(context.Background(), Message{
		ToEmail: "lead@example.com",
		ToName:  "Maria",
		Subject: "Olá Maria",
		Body:    "<p>conteúdo</p>",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-key", gotAuth)
	assert.Equal(t, "Olá Maria", gotBody["subject"])
	assert.Equal(t, "<p>conteúdo</p>", gotBody["html"])

	from := gotBody["from"].(map[string]any)
	assert.Equal(t, "no-reply@leadforge.io", from["email"])
	assert.Equal(t, "LeadForge", from["name"])

	to := gotBody["to"].([]any)
	require.Len(t, to, 1)
	assert.Equal(t, "lead@example.com", to[0].(map[string]any)["email"])
	assert.Equal(t, "Maria", to[0].(map[string]any)["name"])
}

func TestSendRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 2)
	err := client.Send(context.Background(), Message{ToEmail: "lead@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSendReturnsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"invalid recipient"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 0)
	err := client.Send(context.Background(), Message{ToEmail: "lead@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "invalid recipient")
}

func TestSendRejectsMissingRecipient(t *testing.T) {
	client := newTestClient(t, "http://mail.invalid", 0)
	err := client.Send(context.Background(), Message{Subject: "no one to send to"})
	require.Error(t, err)
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(Config{FromAddress: "no-reply@leadforge.io"})
	require.Error(t, err)

	_, err = NewClient(Config{APIURL: "http://mail.invalid"})
	require.Error(t, err)
}
