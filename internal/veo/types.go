// Package veo provides an HTTP client for Veo video generation through the
// Gemini API long-running operation endpoints.
package veo

import "strings"

// Models accepted by predictLongRunning.
var supportedModels = []string{
	"veo-3.1-generate-preview",
	"veo-3.1-fast-generate-preview",
	"veo-3.0-generate-001",
	"veo-3.0-fast-generate-001",
	"veo-2.0-generate-001",
}

// SupportedModels returns the model names the client knows about.
func SupportedModels() []string {
	out := make([]string, len(supportedModels))
	copy(out, supportedModels)
	return out
}

// IsSupportedModel reports whether model is a known Veo model.
func IsSupportedModel(model string) bool {
	for _, m := range supportedModels {
		if strings.EqualFold(m, model) {
			return true
		}
	}
	return false
}

// InlineImage is an image sent inside the request body.
type InlineImage struct {
	Data     []byte
	MimeType string
}

// SubmitOptions contains the parameters of a Veo generation.
type SubmitOptions struct {
	Prompt          string
	Image           *InlineImage // First frame
	LastFrame       *InlineImage // Interpolation target; requires Image
	AspectRatio     string       // "16:9" or "9:16"
	Resolution      string       // "720p" or "1080p"
	DurationSeconds int
}

// predictRequest represents the body of :predictLongRunning.
type predictRequest struct {
	Instances  []instance `json:"instances"`
	Parameters parameters `json:"parameters"`
}

type instance struct {
	Prompt    string       `json:"prompt,omitempty"`
	Image     *encodedBlob `json:"image,omitempty"`
	LastFrame *encodedBlob `json:"lastFrame,omitempty"`
}

type encodedBlob struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type parameters struct {
	AspectRatio     string `json:"aspectRatio,omitempty"`
	Resolution      string `json:"resolution,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
}

// operation is the long-running operation resource.
type operation struct {
	Name     string             `json:"name"`
	Done     bool               `json:"done"`
	Error    *operationError    `json:"error,omitempty"`
	Response *operationResponse `json:"response,omitempty"`
}

type operationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type operationResponse struct {
	GenerateVideoResponse *generateVideoResponse `json:"generateVideoResponse,omitempty"`
}

type generateVideoResponse struct {
	GeneratedSamples        []generatedSample `json:"generatedSamples"`
	RaiMediaFilteredCount   int               `json:"raiMediaFilteredCount,omitempty"`
	RaiMediaFilteredReasons []string          `json:"raiMediaFilteredReasons,omitempty"`
}

type generatedSample struct {
	Video *videoRef `json:"video,omitempty"`
}

type videoRef struct {
	URI string `json:"uri"`
}

// videoURI walks response.generateVideoResponse.generatedSamples[0].video.uri.
func (o operation) videoURI() (string, bool) {
	if o.Response == nil || o.Response.GenerateVideoResponse == nil {
		return "", false
	}
	samples := o.Response.GenerateVideoResponse.GeneratedSamples
	if len(samples) == 0 || samples[0].Video == nil || samples[0].Video.URI == "" {
		return "", false
	}
	return samples[0].Video.URI, true
}

// PollResult contains the state of an operation.
type PollResult struct {
	Done     bool
	Failed   bool   // The operation finished with an error
	VideoURI string // Only set when Done and a sample was produced
	Error    string // Operation error, or why no sample was found
}
