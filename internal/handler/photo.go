package handler

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/photomanager/api/internal/ai"
	"github.com/photomanager/api/internal/model"
	"github.com/photomanager/api/internal/service"
	"github.com/photomanager/api/internal/store"
	"github.com/photomanager/api/pkg/response"
)

type PhotoHandler struct {
	photos     *service.PhotoService
	store      store.Store
	uploadsDir string
	maxSize    int64
}

func NewPhotoHandler(photos *service.PhotoService, st store.Store, uploadsDir string, maxSizeMB int) *PhotoHandler {
	return &PhotoHandler{
		photos:     photos,
		store:      st,
		uploadsDir: uploadsDir,
		maxSize:    int64(maxSizeMB) * 1024 * 1024,
	}
}

// Upload handles POST /api/photos: stores the file, creates the photo row
// and queues the analysis job, responding immediately with 202.
func (h *PhotoHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("photo")
	if err != nil {
		return response.ValidationError(c, "Photo file is required", nil)
	}

	if file.Size > h.maxSize {
		return response.ValidationError(c, "File size exceeds limit", map[string]interface{}{
			"maxSize":  h.maxSize,
			"fileSize": file.Size,
		})
	}

	contentType := file.Header.Get("Content-Type")
	validTypes := map[string]bool{
		"image/jpeg": true,
		"image/jpg":  true,
		"image/png":  true,
		"image/webp": true,
	}
	if !validTypes[contentType] {
		return response.ValidationError(c, "Invalid file type. Supported: JPEG, PNG, WebP", map[string]interface{}{
			"contentType": contentType,
		})
	}

	filename := uuid.New().String() + filepath.Ext(file.Filename)
	dst := filepath.Join(h.uploadsDir, filename)
	if err := c.SaveFile(file, dst); err != nil {
		return response.ServiceError(c, "Failed to save file")
	}

	photo := &model.Photo{
		Filename:     filename,
		OriginalName: file.Filename,
		Path:         dst,
		MimeType:     contentType,
		Size:         file.Size,
	}
	if err := h.store.CreatePhoto(c.Context(), photo); err != nil {
		return response.ServiceError(c, "Failed to save photo")
	}

	jobID, err := h.photos.EnqueueAnalysis(c.Context(), photo.ID, dst, correlationID(c))
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, fiber.Map{
		"photo":      photo,
		"tags":       []model.Tag{},
		"jobId":      jobID,
		"processing": true,
		"message":    "Photo uploaded, analysis in progress...",
	})
}

// Reanalyze handles POST /api/photos/:id/reanalyze
func (h *PhotoHandler) Reanalyze(c *fiber.Ctx) error {
	photoID, err := parsePhotoID(c)
	if err != nil {
		return response.ValidationError(c, "Invalid photo id", nil)
	}

	jobID, err := h.photos.Reanalyze(c.Context(), photoID, correlationID(c))
	if errors.Is(err, store.ErrNotFound) {
		return response.NotFound(c, "Photo not found")
	}
	if errors.Is(err, service.ErrAnalysisInFlight) {
		return response.Conflict(c, "Analysis already in progress for this photo")
	}
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, fiber.Map{
		"photoId":    photoID,
		"jobId":      jobID,
		"processing": true,
		"message":    "Reanalysis in progress...",
	})
}

// List handles GET /api/photos
func (h *PhotoHandler) List(c *fiber.Ctx) error {
	photos, err := h.store.ListPhotos(c.Context())
	if err != nil {
		return response.ServiceError(c, "Failed to fetch photos")
	}
	if photos == nil {
		photos = []model.Photo{}
	}
	return response.OK(c, photos)
}

// Get handles GET /api/photos/:id, returning the photo with its tags and
// metadata.
func (h *PhotoHandler) Get(c *fiber.Ctx) error {
	photoID, err := parsePhotoID(c)
	if err != nil {
		return response.ValidationError(c, "Invalid photo id", nil)
	}

	photo, err := h.store.GetPhotoByID(c.Context(), photoID)
	if errors.Is(err, store.ErrNotFound) {
		return response.NotFound(c, "Photo not found")
	}
	if err != nil {
		return response.ServiceError(c, "Failed to fetch photo")
	}

	tags, err := h.store.GetPhotoTags(c.Context(), photoID)
	if err != nil {
		return response.ServiceError(c, "Failed to fetch tags")
	}
	if tags == nil {
		tags = []model.Tag{}
	}

	meta, err := h.store.GetPhotoMetadata(c.Context(), photoID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return response.ServiceError(c, "Failed to fetch metadata")
	}

	return response.OK(c, model.PhotoDetail{Photo: *photo, Tags: tags, Metadata: meta})
}

type renameRequest struct {
	NewName string `json:"newName"`
}

// Rename handles PUT /api/photos/:id/rename, updating the display name.
// The stored file keeps its generated filename.
func (h *PhotoHandler) Rename(c *fiber.Ctx) error {
	photoID, err := parsePhotoID(c)
	if err != nil {
		return response.ValidationError(c, "Invalid photo id", nil)
	}

	var req renameRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	newName := strings.TrimSpace(req.NewName)
	if newName == "" {
		return response.ValidationError(c, "New name is required", nil)
	}

	if err := h.store.RenamePhoto(c.Context(), photoID, newName); errors.Is(err, store.ErrNotFound) {
		return response.NotFound(c, "Photo not found")
	} else if err != nil {
		return response.ServiceError(c, "Failed to rename photo")
	}

	photo, err := h.store.GetPhotoByID(c.Context(), photoID)
	if err != nil {
		return response.ServiceError(c, "Failed to fetch photo")
	}
	return response.OK(c, photo)
}

// ListTags handles GET /api/tags
func (h *PhotoHandler) ListTags(c *fiber.Ctx) error {
	tags, err := h.store.ListTags(c.Context())
	if err != nil {
		return response.ServiceError(c, "Failed to fetch tags")
	}
	if tags == nil {
		tags = []model.Tag{}
	}
	return response.OK(c, tags)
}

// PhotoTags handles GET /api/photos/:id/tags
func (h *PhotoHandler) PhotoTags(c *fiber.Ctx) error {
	photoID, err := parsePhotoID(c)
	if err != nil {
		return response.ValidationError(c, "Invalid photo id", nil)
	}

	if _, err := h.store.GetPhotoByID(c.Context(), photoID); errors.Is(err, store.ErrNotFound) {
		return response.NotFound(c, "Photo not found")
	} else if err != nil {
		return response.ServiceError(c, "Failed to fetch photo")
	}

	return h.respondPhotoTags(c, photoID)
}

type addTagRequest struct {
	TagName string `json:"tagName"`
}

// AddTag handles POST /api/photos/:id/tags. The tag name goes through the
// same normalization as analysis-produced tags, so the tag table stays
// uniformly lowercase. Responds with the photo's full tag list.
func (h *PhotoHandler) AddTag(c *fiber.Ctx) error {
	photoID, err := parsePhotoID(c)
	if err != nil {
		return response.ValidationError(c, "Invalid photo id", nil)
	}

	var req addTagRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	normalized := ai.NormalizeTags([]string{req.TagName})
	if len(normalized) == 0 {
		return response.ValidationError(c, "Tag name is required", nil)
	}
	name := normalized[0]

	if _, err := h.store.GetPhotoByID(c.Context(), photoID); errors.Is(err, store.ErrNotFound) {
		return response.NotFound(c, "Photo not found")
	} else if err != nil {
		return response.ServiceError(c, "Failed to fetch photo")
	}

	if err := h.store.CreateTag(c.Context(), name); err != nil {
		return response.ServiceError(c, "Failed to create tag")
	}
	tag, err := h.store.GetTagByName(c.Context(), name)
	if err != nil {
		return response.ServiceError(c, "Failed to create tag")
	}
	if err := h.store.AddPhotoTag(c.Context(), photoID, tag.ID); err != nil {
		return response.ServiceError(c, "Failed to add tag")
	}

	return h.respondPhotoTags(c, photoID)
}

// RemoveTag handles DELETE /api/photos/:photoId/tags/:tagId. Removing an
// association that does not exist is a no-op, matching the idempotent add.
func (h *PhotoHandler) RemoveTag(c *fiber.Ctx) error {
	photoID, err := strconv.ParseInt(c.Params("photoId"), 10, 64)
	if err != nil {
		return response.ValidationError(c, "Invalid photo id", nil)
	}
	tagID, err := strconv.ParseInt(c.Params("tagId"), 10, 64)
	if err != nil {
		return response.ValidationError(c, "Invalid tag id", nil)
	}

	if err := h.store.RemovePhotoTag(c.Context(), photoID, tagID); err != nil {
		return response.ServiceError(c, "Failed to remove tag")
	}
	return response.OK(c, fiber.Map{"success": true})
}

func (h *PhotoHandler) respondPhotoTags(c *fiber.Ctx, photoID int64) error {
	tags, err := h.store.GetPhotoTags(c.Context(), photoID)
	if err != nil {
		return response.ServiceError(c, "Failed to fetch tags")
	}
	if tags == nil {
		tags = []model.Tag{}
	}
	return response.OK(c, tags)
}

// Delete handles DELETE /api/photos/:id. The row goes first; tag
// associations and metadata follow by cascade, the file last.
func (h *PhotoHandler) Delete(c *fiber.Ctx) error {
	photoID, err := parsePhotoID(c)
	if err != nil {
		return response.ValidationError(c, "Invalid photo id", nil)
	}

	photo, err := h.store.GetPhotoByID(c.Context(), photoID)
	if errors.Is(err, store.ErrNotFound) {
		return response.NotFound(c, "Photo not found")
	}
	if err != nil {
		return response.ServiceError(c, "Failed to fetch photo")
	}

	if err := h.store.DeletePhoto(c.Context(), photoID); err != nil {
		return response.ServiceError(c, "Failed to delete photo")
	}
	if err := os.Remove(photo.Path); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to remove file %s: %v", photo.Path, err)
	}

	return response.NoContent(c)
}

// JobStatus handles GET /api/jobs/:jobId
func (h *PhotoHandler) JobStatus(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	job, err := h.photos.GetJob(c.Context(), jobID)
	if err != nil {
		return response.NotFound(c, fmt.Sprintf("Job %s not found", jobID))
	}
	return response.OK(c, job)
}

func parsePhotoID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}

// correlationID extracts the client-supplied session id used to route
// progress events; absent means no delivery, which is fine.
func correlationID(c *fiber.Ctx) string {
	if sid := c.FormValue("socketId"); sid != "" {
		return sid
	}
	return c.Get("X-Socket-Id")
}
