package handlers

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/arnav/capsera/internal/logger"
	"github.com/arnav/capsera/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UploadHandler receives image uploads and stores them in object storage.
type UploadHandler struct {
	storage      storage.ObjectStorage
	maxSizeBytes int64
}

var allowedImageExts = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// NewUploadHandler creates a new upload handler.
// Parameters:
//   - store: object storage backend.
//   - maxSizeBytes: upload size cap; values below 1 default to 10MB.
// Returns:
//   - *UploadHandler: initialized handler.
func NewUploadHandler(store storage.ObjectStorage, maxSizeBytes int64) *UploadHandler {
	if maxSizeBytes < 1 {
		maxSizeBytes = 10 * 1024 * 1024
	}
	return &UploadHandler{
		storage:      store,
		maxSizeBytes: maxSizeBytes,
	}
}

// Upload handles POST /api/v1/upload. The file must be a decodable image in
// an allowed format; the stored key is uploads/<userID>/<imageID><ext>.
func (h *UploadHandler) Upload(c *gin.Context) {
	userID := c.PostForm("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "userId is required",
		})
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "image file is required",
		})
		return
	}

	if fileHeader.Size > h.maxSizeBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"success": false,
			"error":   fmt.Sprintf("image exceeds the %d byte limit", h.maxSizeBytes),
		})
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	contentType, ok := allowedImageExts[ext]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "unsupported image format, use jpg, png, gif or webp",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to read upload",
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxSizeBytes+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to read upload",
		})
		return
	}
	if int64(len(data)) > h.maxSizeBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"success": false,
			"error":   fmt.Sprintf("image exceeds the %d byte limit", h.maxSizeBytes),
		})
		return
	}

	// Decode the header to reject files that merely claim an image extension.
	dims, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "file is not a valid image",
		})
		return
	}

	ctx := c.Request.Context()
	imageID := uuid.New().String()
	key := fmt.Sprintf("uploads/%s/%s%s", userID, imageID, ext)

	if err := h.storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		logger.FromContext(ctx).WithError(err).Error("Image upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to store image",
		})
		return
	}

	logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldUserID:  userID,
		logger.FieldImageID: imageID,
		logger.FieldSize:    len(data),
		"format":            format,
	}).Info("Image uploaded")

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"imageId":    imageID,
		"imageUrl":   h.storage.GetURL(key),
		"storageKey": key,
		"imageName":  fileHeader.Filename,
		"width":      dims.Width,
		"height":     dims.Height,
		"format":     format,
	})
}

// DeleteImage handles DELETE /api/v1/upload/:userId/:imageId, removing an
// uploaded object that was never attached to a caption record.
func (h *UploadHandler) DeleteImage(c *gin.Context) {
	userID := c.Param("userId")
	imageID := c.Param("imageId")

	ctx := c.Request.Context()
	prefix := fmt.Sprintf("uploads/%s/%s", userID, imageID)

	deleted := false
	for ext := range allowedImageExts {
		key := prefix + ext
		exists, err := h.storage.Exists(ctx, key)
		if err != nil || !exists {
			continue
		}
		if err := h.storage.Delete(ctx, key); err != nil {
			logger.CtxWarn(ctx, "Failed to delete uploaded image %s: %v", key, err)
			continue
		}
		logger.CtxInfo(ctx, "Deleted uploaded image %s", key)
		deleted = true
	}

	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "image not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}
