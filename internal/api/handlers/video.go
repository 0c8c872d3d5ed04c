package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/denisAlshanov/ytproxy/internal/models"
	"github.com/denisAlshanov/ytproxy/internal/services/downloader"
	"github.com/denisAlshanov/ytproxy/internal/utils"
)

type VideoHandler struct {
	downloader *downloader.Service
}

func NewVideoHandler(downloader *downloader.Service) *VideoHandler {
	return &VideoHandler{
		downloader: downloader,
	}
}

// GetVideoInfo godoc
// @Summary Get the downloadable formats of a YouTube video
// @Description Resolve a YouTube link and list its muxed video formats and audio-only formats
// @Tags video
// @Produce json
// @Param url query string true "YouTube URL or 11-character video ID"
// @Success 200 {object} models.VideoCatalog
// @Failure 400 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/info [get]
func (h *VideoHandler) GetVideoInfo(c *gin.Context) {
	ctx := c.Request.Context()

	var query models.VideoInfoQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		errorResponse(c, utils.NewValidationError("URL is required", map[string]interface{}{
			"error": err.Error(),
		}))
		return
	}

	catalog, err := h.downloader.GetCatalog(ctx, query.URL)
	if err != nil {
		h.handleError(c, "Failed to get video info", err)
		return
	}

	c.JSON(http.StatusOK, catalog)
}

// Download godoc
// @Summary Stream a YouTube video or audio format
// @Description Re-resolve the chosen format and relay its bytes as an attachment
// @Tags video
// @Accept json
// @Produce octet-stream
// @Param request body models.DownloadRequest true "Link and format ID from /api/info"
// @Success 200 {file} binary
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/download [post]
func (h *VideoHandler) Download(c *gin.Context) {
	ctx := c.Request.Context()

	var req models.DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, utils.NewValidationError("URL and format ID are required", map[string]interface{}{
			"error": err.Error(),
		}))
		return
	}

	download, err := h.downloader.PrepareDownload(ctx, req.URL, req.FormatID.String())
	if err != nil {
		h.handleError(c, "Failed to prepare download", err)
		return
	}
	defer download.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", download.Filename))
	c.Header("Content-Type", download.ContentType)
	if download.ContentLength >= 0 {
		c.Header("Content-Length", strconv.FormatInt(download.ContentLength, 10))
	}
	c.Status(http.StatusOK)

	start := time.Now()
	written, err := io.Copy(c.Writer, download)
	fields := utils.Fields{
		"format_id":     download.Format.FormatID,
		"file_name":     download.Filename,
		"bytes_written": written,
		"duration_ms":   time.Since(start).Milliseconds(),
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			utils.LogInfo(ctx, "Client disconnected during download", fields)
			return
		}
		utils.LogError(ctx, "Failed to stream download", err, fields)
		if !c.Writer.Written() {
			c.Writer.Header().Del("Content-Disposition")
			c.Writer.Header().Del("Content-Length")
			c.Writer.Header().Del("Content-Type")
			errorResponse(c, utils.NewUpstreamError(0, err))
		}
		return
	}

	utils.LogInfo(ctx, "Successfully streamed download", fields)
}

func (h *VideoHandler) handleError(c *gin.Context, message string, err error) {
	ctx := c.Request.Context()

	appErr, ok := utils.AsAppError(err)
	if !ok {
		if errors.Is(err, context.Canceled) {
			utils.LogInfo(ctx, "Client disconnected before response", utils.Fields{
				"error": err.Error(),
			})
			return
		}
		utils.LogError(ctx, message, err)
		appErr = utils.NewInternalError()
	} else if appErr.StatusCode >= http.StatusInternalServerError {
		utils.LogError(ctx, message, err)
	} else {
		utils.LogWarn(ctx, message, utils.Fields{
			"code":  appErr.Code,
			"error": err.Error(),
		})
	}

	errorResponse(c, appErr)
}

// errorResponse writes the standard error envelope unless the response is
// already under way.
func errorResponse(c *gin.Context, err *utils.AppError) {
	if c.Writer.Written() {
		return
	}
	c.JSON(err.StatusCode, gin.H{
		"error":      err,
		"request_id": c.GetString("request_id"),
		"timestamp":  time.Now().Format(time.RFC3339),
	})
}
