package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxUploadBytes = 10 << 20

// uploadMedia stores a multipart "file" field
func (h *Handler) uploadMedia(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "Missing file", err)
		return
	}

	f, err := header.Open()
	if err != nil {
		badRequest(c, "Unreadable file", err)
		return
	}
	defer f.Close()

	media, err := h.deps.Content.Upload(c.Request.Context(), header.Filename, header.Header.Get("Content-Type"), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, media)
}

// getMedia streams a stored binary
func (h *Handler) getMedia(c *gin.Context) {
	body, media, err := h.deps.Content.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer body.Close()

	c.Header("Content-Type", media.ContentType)
	c.Header("Cache-Control", "public, max-age=86400")
	if media.Size > 0 {
		c.Header("Content-Length", strconv.FormatInt(media.Size, 10))
	}
	c.Status(http.StatusOK)

	if _, err := io.Copy(c.Writer, body); err != nil {
		h.logger.Warn("Media stream interrupted", zap.String("media_id", media.ID), zap.Error(err))
	}
}

// deleteMedia handles media removal
func (h *Handler) deleteMedia(c *gin.Context) {
	if err := h.deps.Content.DeleteMedia(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
