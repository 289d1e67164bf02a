package veo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIsSupportedModel(t *testing.T) {
	if !IsSupportedModel("veo-3.1-generate-preview") {
		t.Error("expected veo-3.1-generate-preview to be supported")
	}
	if IsSupportedModel("unknown-model") {
		t.Error("expected unknown-model to be rejected")
	}
	models := SupportedModels()
	models[0] = "mutated"
	if SupportedModels()[0] == "mutated" {
		t.Error("SupportedModels must return a copy")
	}
}

func TestNewClient_MissingAPIKey(t *testing.T) {
	if _, err := NewClient(""); !errors.Is(err, ErrAPIKeyRequired) {
		t.Errorf("expected ErrAPIKeyRequired, got %v", err)
	}
}

func TestClient_Submit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/veo-3.1-generate-preview:predictLongRunning" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "key" {
			t.Errorf("missing api key header")
		}
		var body predictRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		inst := body.Instances[0]
		if inst.Image == nil || inst.LastFrame == nil {
			t.Errorf("expected image and lastFrame, got %+v", inst)
			return
		}
		if inst.Image.BytesBase64Encoded != base64.StdEncoding.EncodeToString([]byte("first")) {
			t.Errorf("image not base64 encoded")
		}
		if body.Parameters.DurationSeconds != 8 || body.Parameters.AspectRatio != "16:9" {
			t.Errorf("unexpected parameters %+v", body.Parameters)
		}
		_, _ = w.Write([]byte(`{"name":"models/veo-3.1-generate-preview/operations/op-1"}`))
	}))
	defer server.Close()

	c, _ := NewClient("key", WithBaseURL(server.URL))
	name, err := c.Submit(context.Background(), "veo-3.1-generate-preview", SubmitOptions{
		Image:           &InlineImage{Data: []byte("first"), MimeType: "image/png"},
		LastFrame:       &InlineImage{Data: []byte("last"), MimeType: "image/png"},
		AspectRatio:     "16:9",
		DurationSeconds: 8,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if name != "models/veo-3.1-generate-preview/operations/op-1" {
		t.Errorf("name = %q", name)
	}
}

func TestClient_Submit_Errors(t *testing.T) {
	c, _ := NewClient("key")
	_, err := c.Submit(context.Background(), "m", SubmitOptions{LastFrame: &InlineImage{}})
	if !errors.Is(err, ErrLastFrameWithoutImage) {
		t.Errorf("expected ErrLastFrameWithoutImage, got %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c, _ = NewClient("key", WithBaseURL(server.URL))
	if _, err := c.Submit(context.Background(), "m", SubmitOptions{Prompt: "p"}); !errors.Is(err, ErrNoOperationReturned) {
		t.Errorf("expected ErrNoOperationReturned, got %v", err)
	}
}

func TestClient_Poll(t *testing.T) {
	tests := []struct {
		name string
		body string
		want PollResult
	}{
		{"pending", `{"name":"op","done":false}`, PollResult{}},
		{
			"done with video",
			`{"name":"op","done":true,"response":{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"https://files/v.mp4"}}]}}}`,
			PollResult{Done: true, VideoURI: "https://files/v.mp4"},
		},
		{
			"done with error",
			`{"name":"op","done":true,"error":{"code":3,"message":"bad prompt"}}`,
			PollResult{Done: true, Failed: true, Error: "bad prompt (code 3)"},
		},
		{
			"filtered",
			`{"name":"op","done":true,"response":{"generateVideoResponse":{"raiMediaFilteredCount":1,"raiMediaFilteredReasons":["celebrity"]}}}`,
			PollResult{Done: true, Error: "filtered by safety policy: celebrity"},
		},
		{
			"missing sample",
			`{"name":"op","done":true,"response":{}}`,
			PollResult{Done: true, Error: "response.generateVideoResponse.generatedSamples[0].video.uri missing from response"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if !strings.HasSuffix(r.URL.Path, "/operations/op-1") {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c, _ := NewClient("key", WithBaseURL(server.URL))
			got, err := c.Poll(context.Background(), "models/veo/operations/op-1")
			if err != nil {
				t.Fatalf("Poll() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Poll() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestClient_DownloadOutputSendsKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "key" {
			t.Error("download must carry the API key")
		}
		_, _ = w.Write([]byte("mp4"))
	}))
	defer server.Close()

	c, _ := NewClient("key")
	rc, err := c.DownloadOutput(context.Background(), server.URL+"/files/v:download")
	if err != nil {
		t.Fatalf("DownloadOutput() error = %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "mp4" {
		t.Errorf("got %q", data)
	}
}

func TestClient_DownloadOutputRedirectDropsKey(t *testing.T) {
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-goog-api-key"); got != "" {
			t.Errorf("storage host received API key %q", got)
		}
		_, _ = w.Write([]byte("mp4"))
	}))
	defer storage.Close()

	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "key" {
			t.Error("file endpoint must carry the API key")
		}
		http.Redirect(w, r, storage.URL+"/signed/v.mp4", http.StatusFound)
	}))
	defer files.Close()

	c, _ := NewClient("key", WithHTTPClient(&http.Client{}))
	rc, err := c.DownloadOutput(context.Background(), files.URL+"/files/v:download")
	if err != nil {
		t.Fatalf("DownloadOutput() error = %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "mp4" {
		t.Errorf("got %q", data)
	}
}
