// Package voices implements the /api/v1/voices HTTP surface: enrollment,
// metadata, deletion, and synthesis.
package voices

import (
	"io"
	"net/http"
	"strings"

	"github.com/voxloop/vox/internal/httputil"
	"github.com/voxloop/vox/internal/logging"
	"github.com/voxloop/vox/internal/svc"
	"github.com/voxloop/vox/internal/voice"
)

// statusFor maps error kinds onto HTTP status codes. Caller mistakes are
// 400s, missing voices 404, everything internal 500.
func statusFor(kind voice.Kind) int {
	switch kind {
	case voice.KindUnsupportedFormat,
		voice.KindCorruptAudio,
		voice.KindInsufficientAudio,
		voice.KindEmptyText,
		voice.KindUnsupportedSampleRate,
		voice.KindIncompatibleEmbedding:
		return http.StatusBadRequest
	case voice.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a pipeline error. Internal failures log the cause
// and hide it from the response body.
func writeError(w http.ResponseWriter, err error) {
	kind := voice.KindOf(err)
	status := statusFor(kind)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logging.Errorf("internal error: %v", err)
		message = "internal error"
	}
	httputil.ErrorWithKind(w, status, string(kind), message)
}

// EnrollHandler accepts a multipart upload and registers a new voice.
func EnrollHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, svcCtx.Config.MaxUploadBytes)

		file, header, err := r.FormFile("file")
		if err != nil {
			httputil.ErrorWithCode(w, http.StatusBadRequest, "missing file field in multipart form")
			return
		}
		defer file.Close()

		raw, err := io.ReadAll(file)
		if err != nil {
			httputil.ErrorWithCode(w, http.StatusBadRequest, "failed to read upload")
			return
		}

		hint := header.Header.Get("Content-Type")
		if hint == "" {
			hint = header.Filename
		}

		v, err := svcCtx.Pipeline.Enroll(r.Context(),
			raw,
			hint,
			header.Filename,
			r.FormValue("display_name"),
			r.FormValue("description"),
		)
		if err != nil {
			writeError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, v)
	}
}

// ListHandler returns all enrolled voices, oldest first.
func ListHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		voicesList, err := svcCtx.Store.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		httputil.OkJSON(w, map[string]any{
			"voices": voicesList,
			"count":  len(voicesList),
		})
	}
}

// GetHandler returns one voice record.
func GetHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := svcCtx.Store.Get(r.Context(), httputil.PathVar(r, "voiceId"))
		if err != nil {
			writeError(w, err)
			return
		}
		httputil.OkJSON(w, v)
	}
}

type updateRequest struct {
	DisplayName *string `json:"display_name"`
	Description *string `json:"description"`
}

// UpdateHandler patches display name and description. Absent fields are
// left unchanged.
func UpdateHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateRequest
		if err := httputil.ParseJSON(r, &req); err != nil {
			httputil.ErrorWithCode(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.DisplayName == nil && req.Description == nil {
			httputil.ErrorWithCode(w, http.StatusBadRequest, "nothing to update")
			return
		}

		v, err := svcCtx.Store.UpdateMetadata(r.Context(), httputil.PathVar(r, "voiceId"), voice.MetadataPatch{
			DisplayName: req.DisplayName,
			Description: req.Description,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		httputil.OkJSON(w, v)
	}
}

// DeleteHandler removes a voice and its retained files. Deleting an
// absent id succeeds.
func DeleteHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svcCtx.Pipeline.Delete(r.Context(), httputil.PathVar(r, "voiceId")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type synthesizeRequest struct {
	Text       string `json:"text"`
	Format     string `json:"format"`
	SampleRate int    `json:"sample_rate"`
}

// SynthesizeHandler renders text in an enrolled voice and streams the
// encoded audio back.
func SynthesizeHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req synthesizeRequest
		if err := httputil.ParseJSON(r, &req); err != nil {
			httputil.ErrorWithCode(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Format == "" {
			req.Format = svcCtx.Config.DefaultFormat
		}

		data, contentType, err := svcCtx.Pipeline.Synthesize(r.Context(),
			httputil.PathVar(r, "voiceId"),
			req.Text,
			strings.ToLower(req.Format),
			req.SampleRate,
		)
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}
