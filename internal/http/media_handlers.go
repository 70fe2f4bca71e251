package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"athena-feed/internal/service"
)

func (h *Handler) uploadMedia(c *gin.Context) {
	if h.media == nil {
		h.writeError(c, service.ErrStorageDisabled)
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "A file is required")
		return
	}
	body, err := file.Open()
	if err != nil {
		badRequest(c, "Unable to read uploaded file")
		return
	}
	defer body.Close()

	upload, err := h.media.Upload(c.Request.Context(), service.UploadInput{
		OwnerID:     currentUserID(c),
		FileName:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Body:        body,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusAccepted, mediaToResponse(upload, ""))
}

func (h *Handler) getMedia(c *gin.Context) {
	if h.media == nil {
		h.writeError(c, service.ErrStorageDisabled)
		return
	}
	view, err := h.media.Get(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, mediaToResponse(view.Upload, view.DownloadURL))
}

func (h *Handler) deleteMedia(c *gin.Context) {
	if h.media == nil {
		h.writeError(c, service.ErrStorageDisabled)
		return
	}
	warnings, err := h.media.Delete(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if len(warnings) > 0 {
		h.logger.WithField("media_id", c.Param("id")).Warnf("media cleanup incomplete: %v", warnings)
	}
	respond(c, http.StatusOK, DeleteMediaResponse{Deleted: true, Warnings: warnings})
}

func (h *Handler) listStoredObjects(c *gin.Context) {
	if h.media == nil {
		h.writeError(c, service.ErrStorageDisabled)
		return
	}
	objects, err := h.media.ListObjects(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, objectsToResponse(objects))
}
