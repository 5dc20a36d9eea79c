package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/timmy/lookaloud/internal/domain"
	apperrors "github.com/timmy/lookaloud/internal/errors"
	"github.com/timmy/lookaloud/internal/logger"
)

const describePath = "/describe-image/"

// DescribeConfig holds configuration for the description backend client.
type DescribeConfig struct {
	BaseURL   string
	Timeout   time.Duration // 0 disables the client-side deadline
	UserAgent string
}

// DescribeService talks to the remote description and speech backend.
type DescribeService struct {
	client  *resty.Client
	baseURL string
}

// DescribeRequest is one analyze call: the raw file plus the two options.
type DescribeRequest struct {
	FileName string
	MIMEType string
	Data     []byte
	Options  domain.AnalysisOptions
}

// DescribeResponse is a decoded success body. AudioURL is already absolute.
type DescribeResponse struct {
	Description string
	AudioURL    string
	ImageURL    string
}

// AudioFile is a downloaded narration.
type AudioFile struct {
	Name        string
	ContentType string
	Data        []byte
}

type describeBody struct {
	Description *string `json:"description"`
	AudioURL    *string `json:"audio_url"`
	ImageURL    string  `json:"image_url,omitempty"`
}

// NewDescribeService creates a backend client.
func NewDescribeService(cfg *DescribeConfig) *DescribeService {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &DescribeService{
		client:  client,
		baseURL: baseURL,
	}
}

// BaseURL returns the backend base URL without a trailing slash.
func (s *DescribeService) BaseURL() string {
	return s.baseURL
}

// Describe uploads the image and options and returns the description and
// the absolute audio URL.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - req: file content and analysis options.
//
// Returns:
//   - *DescribeResponse: decoded success body.
//   - error: *apperrors.AppError classifying transport, status or decode failures.
func (s *DescribeService) Describe(ctx context.Context, req *DescribeRequest) (*DescribeResponse, error) {
	contentType := req.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	fileName := req.FileName
	if fileName == "" {
		fileName = "upload"
	}

	logger.CtxDebug(ctx, "Sending describe request: %s", req)

	httpResp, err := s.client.R().
		SetContext(ctx).
		SetMultipartField("file", fileName, contentType, bytes.NewReader(req.Data)).
		SetMultipartFormData(map[string]string{
			"speaker_type":     string(req.Options.SpeakerVoice),
			"description_type": string(req.Options.DescriptionDetail),
		}).
		Post(describePath)
	if err != nil {
		return nil, apperrors.FromTransport("failed to call describe endpoint", err)
	}

	if !httpResp.IsSuccess() {
		return nil, apperrors.NewServerError(httpResp.StatusCode(), remoteError(httpResp.Body()))
	}

	var body describeBody
	if err := json.Unmarshal(httpResp.Body(), &body); err != nil {
		return nil, apperrors.NewDecodeError("describe response is not valid JSON", err)
	}
	if body.Description == nil {
		return nil, apperrors.NewDecodeError("describe response has no description", nil)
	}
	if body.AudioURL == nil || strings.TrimSpace(*body.AudioURL) == "" {
		return nil, apperrors.NewDecodeError("describe response has no audio_url", nil)
	}

	audioURL, err := s.ResolveURL(*body.AudioURL)
	if err != nil {
		return nil, apperrors.NewDecodeError("describe response has an invalid audio_url", err)
	}

	return &DescribeResponse{
		Description: *body.Description,
		AudioURL:    audioURL,
		ImageURL:    body.ImageURL,
	}, nil
}

// ResolveURL turns a server-relative path into an absolute URL under the
// base URL. Absolute URLs are returned unchanged.
func (s *DescribeService) ResolveURL(ref string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", err
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	return s.baseURL + "/" + strings.TrimLeft(u.String(), "/"), nil
}

// FetchAudio downloads the audio resource at audioURL.
func (s *DescribeService) FetchAudio(ctx context.Context, audioURL string) (*AudioFile, error) {
	target, err := s.ResolveURL(audioURL)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid audio URL", err)
	}

	httpResp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Accept", "audio/*, */*").
		Get(target)
	if err != nil {
		return nil, apperrors.FromTransport("failed to download audio", err)
	}
	if !httpResp.IsSuccess() {
		return nil, apperrors.NewServerError(httpResp.StatusCode(), remoteError(httpResp.Body()))
	}

	name := "audio"
	if u, err := url.Parse(target); err == nil && path.Base(u.Path) != "/" && path.Base(u.Path) != "." {
		name = path.Base(u.Path)
	}

	return &AudioFile{
		Name:        name,
		ContentType: httpResp.Header().Get("Content-Type"),
		Data:        httpResp.Body(),
	}, nil
}

// remoteError pulls the string "error" field out of an error body, if any.
func remoteError(body []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}
	raw, ok := fields["error"]
	if !ok {
		return ""
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err != nil {
		return ""
	}
	return strings.TrimSpace(msg)
}

func (r *DescribeRequest) String() string {
	return fmt.Sprintf("%s (%s, %d bytes, %s/%s)", r.FileName, r.MIMEType, len(r.Data),
		r.Options.SpeakerVoice, r.Options.DescriptionDetail)
}
