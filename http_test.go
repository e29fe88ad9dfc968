package panelread

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hazyhaar/panelread/collect"
	"github.com/hazyhaar/panelread/readout"
)

func serve(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHTTP_ReadFlow(t *testing.T) {
	r, _ := testReader(t, accountsPort())
	h := r.Handler()

	if w := serve(t, h, "GET", "/health"); w.Code != http.StatusOK {
		t.Fatalf("health: got %d", w.Code)
	}

	w := serve(t, h, "POST", "/panels/accounts/read")
	if w.Code != http.StatusOK {
		t.Fatalf("read: got %d: %s", w.Code, w.Body)
	}
	res, err := readout.UnmarshalResult(w.Body.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 2 {
		t.Errorf("records: got %d", len(res.Records))
	}

	w = serve(t, h, "GET", "/sessions?panel=accounts&limit=5")
	if w.Code != http.StatusOK {
		t.Fatalf("sessions: got %d", w.Code)
	}
	var list []map[string]any
	json.Unmarshal(w.Body.Bytes(), &list)
	if len(list) != 1 || list[0]["id"] != res.ID {
		t.Errorf("sessions: %v", list)
	}

	if w := serve(t, h, "GET", "/sessions/"+res.ID); w.Code != http.StatusOK {
		t.Errorf("session: got %d", w.Code)
	}
	if w := serve(t, h, "GET", "/sessions/rd_missing"); w.Code != http.StatusNotFound {
		t.Errorf("missing session: got %d", w.Code)
	}
}

func TestHTTP_ErrorStatus(t *testing.T) {
	timeout := accountsPort()
	timeout.waitErr[".mid-viewport"] = true

	tests := []struct {
		name  string
		port  *panelPort
		panel string
		want  int
	}{
		{"unknown panel", accountsPort(), "nope", http.StatusNotFound},
		{"render timeout", timeout, "accounts", http.StatusGatewayTimeout},
		{"structural mismatch", ledgerPort([]string{"h;i", "a;b;c"}, []string{"1", "2"}), "ledger", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := testReader(t, tt.port)
			w := serve(t, r.Handler(), "POST", "/panels/"+tt.panel+"/read")
			if w.Code != tt.want {
				t.Fatalf("status: got %d, want %d: %s", w.Code, tt.want, w.Body)
			}
			var body map[string]string
			json.Unmarshal(w.Body.Bytes(), &body)
			if body["error"] == "" {
				t.Errorf("no error in body: %s", w.Body)
			}
			if tt.want != http.StatusNotFound && body["session"] == "" {
				t.Errorf("no session in body: %s", w.Body)
			}
		})
	}
}

func TestReadStatusParity(t *testing.T) {
	if got := readStatus(&ReadError{Kind: readout.ErrBufferParity, Err: &collect.BufferParityError{Content: 2, Markers: 1}}); got != http.StatusConflict {
		t.Errorf("parity: got %d", got)
	}
}

func TestHTTP_ReadRateLimit(t *testing.T) {
	r, _ := testReader(t, accountsPort())
	r.cfg.HTTP.ReadLimit = 1
	h := r.Handler()

	if w := serve(t, h, "POST", "/panels/accounts/read"); w.Code != http.StatusOK {
		t.Fatalf("first read: got %d", w.Code)
	}
	w := serve(t, h, "POST", "/panels/accounts/read")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second read: got %d, want 429", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID missing")
	}
	if w := serve(t, h, "GET", "/panels"); w.Code != http.StatusOK {
		t.Errorf("listing is not limited: got %d", w.Code)
	}
}
