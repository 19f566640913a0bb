package handlers

import (
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"Whispen/internal/audio"
	"Whispen/internal/models"
	"Whispen/internal/service"
	"Whispen/internal/transcribe"
	"Whispen/pkg/errors"
	"Whispen/pkg/response"

	"github.com/gin-gonic/gin"
)

// maxFieldBytes bounds non-file form fields.
const maxFieldBytes = 64

// handleUpload transcribes the multipart "file" field. The part is streamed
// straight into the temp folder and the stored copy is removed before the
// response is written.
func (h *Handlers) handleUpload(c *gin.Context) {
	limit := h.svc.Files().MaxBytes() + multipartOverhead
	if c.Request.ContentLength > limit {
		h.fail(c, errors.WithKindf(errors.KindPayloadTooLarge,
			"request body too large: %d bytes", c.Request.ContentLength))
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	mr, err := c.Request.MultipartReader()
	if err != nil {
		h.fail(c, errors.WrapKind(err, errors.KindBadRequest, "invalid multipart form"))
		return
	}

	ctx := c.Request.Context()
	language := ""
	var artifact *audio.Artifact
	defer func() { h.svc.Discard(artifact) }()

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			h.fail(c, uploadError(err, "invalid multipart form"))
			return
		}

		switch {
		case part.FormName() == "file" && part.FileName() != "" && artifact == nil:
			artifact, err = h.svc.Store(ctx, service.Upload{
				Reader:   part,
				Filename: part.FileName(),
			})
			if err != nil {
				part.Close()
				h.fail(c, uploadError(err, ""))
				return
			}
		case part.FormName() == "language":
			raw, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
			if err != nil {
				part.Close()
				h.fail(c, uploadError(err, "invalid multipart form"))
				return
			}
			language = strings.TrimSpace(string(raw))
		}
		part.Close()
	}

	if artifact == nil {
		response.Fail(c, http.StatusBadRequest, h.t(c, "missing_file", nil), http.ErrMissingFile.Error())
		return
	}
	if language == "" {
		language = transcribe.DefaultLanguage
	}

	out, err := h.svc.TranscribeStored(ctx, artifact, language)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, models.NewTranscriptionResponse(out))
}

// uploadError classifies a failure while reading the request body. Errors
// that already carry a kind keep it unless the body limit was hit.
func uploadError(err error, msg string) error {
	switch {
	case isBodyTooLarge(err):
		return errors.WrapKind(err, errors.KindPayloadTooLarge, "request body too large")
	case errors.KindOf(err) != errors.KindUnknown:
		return err
	default:
		return errors.WrapKind(err, errors.KindBadRequest, msg)
	}
}

func (h *Handlers) handleTranscriptionHealth(c *gin.Context) {
	available := h.svc.TranscriptionAvailable()

	body := models.ComponentHealth{
		Service:   "transcription",
		Status:    models.StatusOperational,
		Backend:   h.svc.Backend(),
		Connected: available,
		Timestamp: h.now(),
	}
	status := http.StatusOK
	if !available {
		body.Status = models.StatusUnavailable
		status = http.StatusServiceUnavailable
	}
	response.JSON(c, status, body)
}

func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if stderrors.As(err, &mbe) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
