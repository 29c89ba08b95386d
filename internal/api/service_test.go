package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

// fakeService speaks enough batchexecute for the client: it decodes the
// f.req envelope and answers with the handler registered for the RPC id.
type fakeService struct {
	t        *testing.T
	mu       sync.Mutex
	handlers map[string]func(args []interface{}) interface{}
	calls    []fakeCall
	server   *httptest.Server
}

type fakeCall struct {
	ID         string
	Args       []interface{}
	SourcePath string
}

func newFakeService(t *testing.T) *fakeService {
	f := &fakeService{t: t, handlers: make(map[string]func([]interface{}) interface{})}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeService) handle(id string, h func(args []interface{}) interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[id] = h
}

func (f *fakeService) client(opts ...Option) *Client {
	opts = append([]Option{WithHost(strings.TrimPrefix(f.server.URL, "http://"), true)}, opts...)
	return New("token", "SID=s; HSID=h; SSID=x", opts...)
}

func (f *fakeService) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	form, err := url.ParseQuery(string(body))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var envelope [][][]interface{}
	if err := json.Unmarshal([]byte(form.Get("f.req")), &envelope); err != nil || len(envelope) == 0 || len(envelope[0]) == 0 {
		http.Error(w, "bad f.req", http.StatusBadRequest)
		return
	}
	rpcData := envelope[0][0]
	id, _ := rpcData[0].(string)
	argsJSON, _ := rpcData[1].(string)
	var args []interface{}
	json.Unmarshal([]byte(argsJSON), &args)

	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{ID: id, Args: args, SourcePath: r.URL.Query().Get("source-path")})
	h := f.handlers[id]
	if h == nil {
		f.mu.Unlock()
		f.t.Errorf("unexpected rpc %s", id)
		http.Error(w, "no handler", http.StatusNotFound)
		return
	}
	payload, _ := json.Marshal(h(args))
	f.mu.Unlock()
	reply, _ := json.Marshal([]interface{}{
		[]interface{}{"wrb.fr", id, string(payload), nil, nil, nil, "generic"},
	})
	fmt.Fprintf(w, ")]}'\n\n%d\n%s\n", len(reply), reply)
}

func (f *fakeService) lastCall() fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		f.t.Fatal("no calls recorded")
	}
	return f.calls[len(f.calls)-1]
}
