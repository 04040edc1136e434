package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRemoteEngine_Recognize(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req struct {
			Image     string   `json:"image"`
			MIME      string   `json:"mime"`
			Languages []string `json:"languages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		data, _ := base64.StdEncoding.DecodeString(req.Image)
		if string(data) != "imgbytes" {
			t.Errorf("image bytes mangled: %q", data)
		}
		if req.MIME != "image/png" || len(req.Languages) != 1 {
			t.Errorf("unexpected request: %+v", req)
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "recognized"})
	}))
	defer srv.Close()

	e := NewRemoteEngine(srv.URL, "secret")
	text, err := e.Recognize(context.Background(), Request{
		Image:     []byte("imgbytes"),
		MIME:      "image/png",
		Languages: []string{"eng"},
	})
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if text != "recognized" {
		t.Errorf("unexpected text: %q", text)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("missing bearer auth, got %q", gotAuth)
	}
}

func TestRemoteEngine_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "model crashed"})
	}))
	defer srv.Close()

	e := NewRemoteEngine(srv.URL, "")
	if _, err := e.Recognize(context.Background(), Request{Image: []byte{1}, MIME: "image/png"}); err == nil {
		t.Error("expected error from failing sidecar")
	}
}
