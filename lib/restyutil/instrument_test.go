package restyutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type memoryOutput struct {
	mutex    sync.Mutex
	messages map[string]string
}

func (o *memoryOutput) Write(id string, contents string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if o.messages == nil {
		o.messages = map[string]string{}
	}
	o.messages[id] = contents
}

func TestInstrumentClientRedacts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Set-Cookie", "session=abc")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	out := &memoryOutput{}
	client := resty.New()
	InstrumentClient(client, "test", out, func(req *resty.Request) bool {
		return strings.HasSuffix(req.URL, "/login")
	})

	_, err := client.R().
		SetAuthToken("secret-token").
		SetBody(map[string]string{"password": "hunter2"}).
		Post(srv.URL + "/login")
	require.NoError(t, err)

	_, err = client.R().
		SetBody(map[string]string{"visible": "yes"}).
		Post(srv.URL + "/other")
	require.NoError(t, err)

	require.Len(t, out.messages, 2)
	var joined strings.Builder
	for id, msg := range out.messages {
		require.True(t, strings.HasPrefix(id, "test-"), id)
		joined.WriteString(msg)
	}
	dump := joined.String()
	require.NotContains(t, dump, "secret-token")
	require.NotContains(t, dump, "hunter2")
	require.NotContains(t, dump, "session=abc")
	require.Contains(t, dump, `"visible":"yes"`)
	require.Contains(t, dump, `{"ok":true}`)
}

func TestInstrumentClientNilOutput(t *testing.T) {
	client := resty.New()
	InstrumentClient(client, "test", nil, nil)
}
