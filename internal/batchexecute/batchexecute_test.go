package batchexecute

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeResponse(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected []Response
		wantErr  bool
	}{
		{
			name:  "plain envelope",
			input: `)]}'` + "\n" + `[["wrb.fr","wXbhsf","[[\"a\"]]",null,null,null,"generic"]]`,
			expected: []Response{
				{ID: "wXbhsf", Data: json.RawMessage(`[["a"]]`)},
			},
		},
		{
			name: "chunked with metadata chunks",
			input: `)]}'

107
[["wrb.fr","CCqFvf","[\"title\",null,\"id-1\"]",null,null,null,"generic"],["di",42],["af.httprm",41,"x",1]]
25
[["e",4,null,null,131]]
`,
			expected: []Response{
				{ID: "CCqFvf", Data: json.RawMessage(`["title",null,"id-1"]`)},
			},
		},
		{
			name: "triple nested chunk",
			input: `123
[[["wrb.fr","test","{\"result\":\"success\"}",null,null,null,"generic"]]]`,
			expected: []Response{
				{ID: "test", Data: json.RawMessage(`{"result":"success"}`)},
			},
		},
		{
			name: "chunk spanning lines",
			input: `200
[["wrb.fr","BD",
"[\"answer\"]",null,null,null,"generic"]]`,
			expected: []Response{
				{ID: "BD", Data: json.RawMessage(`["answer"]`)},
			},
		},
		{
			name:  "null payload carries status",
			input: `[["wrb.fr","rLM1Ne",null,null,null,[5],"generic"]]`,
			expected: []Response{
				{ID: "rLM1Ne", Data: json.RawMessage(`[5]`)},
			},
		},
		{
			name:  "numeric index",
			input: `[["wrb.fr","a","1",null,null,null,"1"],["wrb.fr","b","2",null,null,null,"2"]]`,
			expected: []Response{
				{Index: 1, ID: "a", Data: json.RawMessage(`1`)},
				{Index: 2, ID: "b", Data: json.RawMessage(`2`)},
			},
		},
		{
			name:    "empty",
			input:   `)]}'`,
			wantErr: true,
		},
		{
			name:    "no envelopes",
			input:   `[["di",12]]`,
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeResponse(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("decodeResponse() = %v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeResponse() error = %v", err)
			}
			if diff := cmp.Diff(tc.expected, got); diff != "" {
				t.Errorf("decodeResponse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExecute(t *testing.T) {
	var gotQuery url.Values
	var gotForm url.Values
	var gotCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/_/LabsTailwindUi/data/batchexecute" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotQuery = r.URL.Query()
		body, _ := io.ReadAll(r.Body)
		gotForm, _ = url.ParseQuery(string(body))
		gotCookie = r.Header.Get("cookie")
		io.WriteString(w, ")]}'\n\n"+`[["wrb.fr","wXbhsf","[[]]",null,null,null,"generic"]]`)
	}))
	defer server.Close()

	c := NewClient(Config{
		Host:      strings.TrimPrefix(server.URL, "http://"),
		App:       "LabsTailwindUi",
		AuthToken: "tok",
		Cookies:   "SID=abc",
		URLParams: map[string]string{"hl": "en"},
		UseHTTP:   true,
	})
	resp, err := c.Do(context.Background(), RPC{
		ID:        "wXbhsf",
		Args:      []interface{}{nil, 1},
		URLParams: map[string]string{"source-path": "/"},
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if string(resp.Data) != "[[]]" {
		t.Errorf("Data = %s", resp.Data)
	}
	if got := gotQuery.Get("rpcids"); got != "wXbhsf" {
		t.Errorf("rpcids = %q", got)
	}
	if got := gotQuery.Get("hl"); got != "en" {
		t.Errorf("hl = %q", got)
	}
	if got := gotQuery.Get("source-path"); got != "/" {
		t.Errorf("source-path = %q", got)
	}
	if gotQuery.Get("_reqid") == "" {
		t.Error("missing _reqid")
	}
	if got := gotForm.Get("at"); got != "tok" {
		t.Errorf("at = %q", got)
	}
	if want := `[[["wXbhsf","[null,1]",null,"generic"]]]`; gotForm.Get("f.req") != want {
		t.Errorf("f.req = %s, want %s", gotForm.Get("f.req"), want)
	}
	if gotCookie != "SID=abc" {
		t.Errorf("cookie = %q", gotCookie)
	}
}

func TestExecuteErrorPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[["wrb.fr","rLM1Ne",null,null,null,[277566],"generic"]]`)
	}))
	defer server.Close()

	c := NewClient(Config{Host: strings.TrimPrefix(server.URL, "http://"), App: "x", UseHTTP: true})
	_, err := c.Do(context.Background(), RPC{ID: "rLM1Ne"})
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("error = %T %v, want *APIError", err, err)
	}
	if apiErr.ErrorCode.Code != 277566 {
		t.Errorf("code = %d", apiErr.ErrorCode.Code)
	}
}

func TestConfigIsCopied(t *testing.T) {
	c := NewClient(Config{Headers: map[string]string{"a": "1"}})
	cfg := c.Config()
	cfg.Headers["a"] = "2"
	if c.Config().Headers["a"] != "1" {
		t.Error("Config() exposed internal map")
	}
}

func TestMasking(t *testing.T) {
	if got := maskSensitiveValue("short"); got != "*****" {
		t.Errorf("maskSensitiveValue(short) = %q", got)
	}
	if got := maskSensitiveValue("abcdefghijkl"); got != "ab********kl" {
		t.Errorf("maskSensitiveValue(12) = %q", got)
	}
	if got := maskCookieValues("SID=abcdefghijklmnopqrst; flag"); got != "SID=abc**************rst; flag" {
		t.Errorf("maskCookieValues = %q", got)
	}
}

func TestReqIDGenerator(t *testing.T) {
	g := &ReqIDGenerator{base: 1234}
	for _, want := range []string{"1234", "101234", "201234"} {
		if got := g.Next(); got != want {
			t.Errorf("Next() = %s, want %s", got, want)
		}
	}
	g.Reset()
	if got := g.Next(); got != "1234" {
		t.Errorf("after Reset Next() = %s", got)
	}
}
