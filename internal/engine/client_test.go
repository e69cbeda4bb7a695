package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"dot5_panel/internal/shared/types"
)

func TestCheckBulk_SendsPayloadAndDecodes(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/check-bulk" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[
			{"input":"1.1.1.1","status":"real","http_status":200,"elapsed_ms":87,"ports_tried":[80,"x",8080],"final_url":"http://t/"},
			{"input":"2.2.2.2:8080","status":"fake","http_status":null,"error":"","fake_source_url":"https://proxyscrape.com/x"}
		]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", 0)
	recs, err := c.CheckBulk(context.Background(), types.CheckRequest{
		IPs: []string{"1.1.1.1", "2.2.2.2:8080"}, Timeout: 6, MaxWorkers: 20,
	})
	if err != nil {
		t.Fatalf("CheckBulk: %v", err)
	}

	if got["try_ports"] == nil {
		t.Error("try_ports must be sent as an array, not null")
	}
	if got["max_workers"].(float64) != 20 {
		t.Errorf("max_workers = %v", got["max_workers"])
	}

	if len(recs) != 2 {
		t.Fatalf("got %d records", len(recs))
	}
	if code, ok := recs[0].HTTPStatus.Get(); !ok || code != 200 {
		t.Errorf("http status = %v %v", code, ok)
	}
	if ports, _ := recs[0].PortsTried.Get(); !reflect.DeepEqual(ports, []int{80, 8080}) {
		t.Errorf("ports = %#v", ports)
	}
	if recs[1].HTTPStatus.Present() || recs[1].Error.Present() {
		t.Errorf("null/empty fields should be absent: %+v", recs[1])
	}
	if u, _ := recs[1].FakeSourceURL.Get(); u != "https://proxyscrape.com/x" {
		t.Errorf("fake source = %q", u)
	}
}

func TestCheckBulk_Failures(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, `[]`, ErrUnexpectedStatus},
		{"not json", http.StatusOK, `<html>oops</html>`, nil},
		{"object instead of array", http.StatusOK, `{"detail":"bad"}`, nil},
		{"null", http.StatusOK, `null`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, 0).CheckBulk(context.Background(), types.CheckRequest{IPs: []string{"x"}})
			if err == nil {
				t.Fatal("expected an error")
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Errorf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestCheckBulk_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := NewClient(url, 0).CheckBulk(context.Background(), types.CheckRequest{}); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestExportCSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/export-csv" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body struct {
			Results []map[string]interface{} `json:"results"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if len(body.Results) != 1 || body.Results[0]["input"] != "1.1.1.1" {
			t.Errorf("results = %+v", body.Results)
		}
		if body.Results[0]["http_status"] != nil {
			t.Errorf("absent http_status should encode as null, got %v", body.Results[0]["http_status"])
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		io.WriteString(w, "input,status\n1.1.1.1,real\n")
	}))
	defer srv.Close()

	csv, err := NewClient(srv.URL, 0).ExportCSV(context.Background(), []types.ResultRecord{{Input: "1.1.1.1", Status: "real"}})
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	if csv != "input,status\n1.1.1.1,real\n" {
		t.Errorf("csv = %q", csv)
	}
}

func TestExportCSV_OversizedBodyIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, strings.Repeat("x", 65))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	c.maxBytes = 64
	csv, err := c.ExportCSV(context.Background(), []types.ResultRecord{{Input: "1.1.1.1"}})
	if !errors.Is(err, ErrResponseTooLarge) {
		t.Fatalf("err = %v, want ErrResponseTooLarge", err)
	}
	if csv != "" {
		t.Errorf("partial csv returned: %d bytes", len(csv))
	}

	// exactly at the limit is still accepted
	c.maxBytes = 65
	csv, err = c.ExportCSV(context.Background(), []types.ResultRecord{{Input: "1.1.1.1"}})
	if err != nil || len(csv) != 65 {
		t.Fatalf("csv len = %d, err = %v", len(csv), err)
	}
}
