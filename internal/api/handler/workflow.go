package handler

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timmy/lookaloud/internal/domain"
	apperrors "github.com/timmy/lookaloud/internal/errors"
	"github.com/timmy/lookaloud/internal/logger"
	"github.com/timmy/lookaloud/internal/presenter"
	"github.com/timmy/lookaloud/internal/service"
	"github.com/timmy/lookaloud/internal/workflow"
)

// AudioFetcher downloads narration audio for the download endpoint.
type AudioFetcher interface {
	FetchAudio(ctx context.Context, audioURL string) (*service.AudioFile, error)
}

// WorkflowHandler exposes the workflow controller over HTML forms and JSON.
type WorkflowHandler struct {
	ctrl      *workflow.Controller
	audio     AudioFetcher
	maxUpload int64
}

// optionsRequest is the PATCH /api/v1/options body.
type optionsRequest struct {
	SpeakerVoice      *string `json:"speaker_voice"`
	DescriptionDetail *string `json:"description_detail"`
}

// NewWorkflowHandler creates a new workflow handler.
// Parameters:
//   - ctrl: workflow controller shared by every request.
//   - audio: audio downloader used by the download endpoint.
//   - maxUpload: largest accepted image in bytes.
//
// Returns:
//   - *WorkflowHandler: initialized handler.
func NewWorkflowHandler(ctrl *workflow.Controller, audio AudioFetcher, maxUpload int64) *WorkflowHandler {
	return &WorkflowHandler{ctrl: ctrl, audio: audio, maxUpload: maxUpload}
}

// Index handles GET /.
func (h *WorkflowHandler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, presenter.IndexTemplate, presenter.Project(h.ctrl.State()))
}

// UploadImageForm handles POST /image.
func (h *WorkflowHandler) UploadImageForm(c *gin.Context) {
	img, err := h.readImage(c)
	if err != nil {
		logger.CtxWarn(c.Request.Context(), "Image upload rejected: %v", err)
	} else {
		h.ctrl.SelectImage(img)
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// UploadImage handles POST /api/v1/image.
func (h *WorkflowHandler) UploadImage(c *gin.Context) {
	img, err := h.readImage(c)
	if err != nil {
		respondError(c, err)
		return
	}

	ref := h.ctrl.SelectImage(img)
	c.JSON(http.StatusOK, gin.H{
		"preview": ref,
		"state":   h.ctrl.State(),
	})
}

// UpdateOptionsForm handles POST /options.
func (h *WorkflowHandler) UpdateOptionsForm(c *gin.Context) {
	req := optionsRequest{}
	if v, ok := c.GetPostForm("speaker_voice"); ok {
		req.SpeakerVoice = &v
	}
	if v, ok := c.GetPostForm("description_detail"); ok {
		req.DescriptionDetail = &v
	}

	if err := h.applyOptions(req); err != nil {
		logger.CtxWarn(c.Request.Context(), "Options rejected: %v", err)
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// UpdateOptions handles PATCH /api/v1/options.
func (h *WorkflowHandler) UpdateOptions(c *gin.Context) {
	var req optionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if err := h.applyOptions(req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.ctrl.State())
}

// SubmitForm handles POST /submit. The request runs in the background and
// the page follows progress through the event stream.
func (h *WorkflowHandler) SubmitForm(c *gin.Context) {
	if _, err := h.ctrl.SubmitAsync(context.WithoutCancel(c.Request.Context())); err != nil {
		logger.CtxInfo(c.Request.Context(), "Submit refused: %s", apperrors.UserMessage(err))
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// Submit handles POST /api/v1/submit. With ?wait=true it blocks until the
// submission settles and returns the final state, or the error status with
// the user message and the settled state.
func (h *WorkflowHandler) Submit(c *gin.Context) {
	if c.Query("wait") == "true" {
		if err := h.ctrl.Submit(c.Request.Context()); err != nil {
			_ = c.Error(err)
			c.JSON(apperrors.GetStatusCode(err), gin.H{
				"error": apperrors.UserMessage(err),
				"state": h.ctrl.State(),
			})
			return
		}
		c.JSON(http.StatusOK, h.ctrl.State())
		return
	}

	id, err := h.ctrl.SubmitAsync(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"submission_id": id,
		"state":         h.ctrl.State(),
	})
}

// State handles GET /api/v1/state.
func (h *WorkflowHandler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctrl.State())
}

// Events handles GET /api/v1/events, streaming a "state" event for the
// current state and then for every change.
func (h *WorkflowHandler) Events(c *gin.Context) {
	updates := make(chan domain.State, 1)
	cancel := h.ctrl.Subscribe(func(s domain.State) {
		for {
			select {
			case updates <- s:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("state", h.ctrl.State())
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case s := <-updates:
			c.SSEvent("state", s)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// Preview handles GET /preview/:id.
func (h *WorkflowHandler) Preview(c *gin.Context) {
	data, mimeType, ok := h.ctrl.Previews().Open(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Preview not found"})
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, mimeType, data)
}

// DownloadAudio handles GET /audio/download.
func (h *WorkflowHandler) DownloadAudio(c *gin.Context) {
	state := h.ctrl.State()
	if state.Result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No audio available."})
		return
	}

	file, err := h.audio.FetchAudio(c.Request.Context(), service.StripCacheBuster(state.Result.AudioLocation))
	if err != nil {
		respondError(c, err)
		return
	}
	sendAttachment(c, file)
}

func sendAttachment(c *gin.Context, file *service.AudioFile) {
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	c.Data(http.StatusOK, contentType, file.Data)
}

func (h *WorkflowHandler) readImage(c *gin.Context) (domain.SelectedImage, error) {
	header, err := c.FormFile("image")
	if err != nil {
		header, err = c.FormFile("file")
	}
	if err != nil {
		return domain.SelectedImage{}, apperrors.NewValidationError(apperrors.MsgNoImage, err)
	}
	if h.maxUpload > 0 && header.Size > h.maxUpload {
		return domain.SelectedImage{}, &apperrors.AppError{
			Type:       apperrors.ErrorTypeValidation,
			Message:    fmt.Sprintf("File is too large (limit %d bytes).", h.maxUpload),
			StatusCode: http.StatusRequestEntityTooLarge,
		}
	}

	f, err := header.Open()
	if err != nil {
		return domain.SelectedImage{}, apperrors.NewInternalError("failed to open upload", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return domain.SelectedImage{}, apperrors.NewInternalError("failed to read upload", err)
	}

	return service.InspectImage(header.Filename, header.Header.Get("Content-Type"), data), nil
}

func (h *WorkflowHandler) applyOptions(req optionsRequest) error {
	var update domain.OptionsUpdate
	if req.SpeakerVoice != nil {
		v, err := domain.ParseSpeakerVoice(*req.SpeakerVoice)
		if err != nil {
			return apperrors.NewValidationError(err.Error(), err)
		}
		update.SpeakerVoice = &v
	}
	if req.DescriptionDetail != nil {
		d, err := domain.ParseDescriptionDetail(*req.DescriptionDetail)
		if err != nil {
			return apperrors.NewValidationError(err.Error(), err)
		}
		update.DescriptionDetail = &d
	}
	return h.ctrl.SetAnalysisOptions(update)
}

func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(apperrors.GetStatusCode(err), gin.H{"error": apperrors.UserMessage(err)})
}
