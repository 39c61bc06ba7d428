package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"materials-viewer/internal/materials/export"
	"materials-viewer/internal/materials/geometry"
	"materials-viewer/internal/materials/grouping"
	"materials-viewer/internal/materials/models"
	"materials-viewer/internal/materials/parser"
	"materials-viewer/internal/materials/repository"
	"materials-viewer/internal/materials/storage"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// ============================================================
// Materials Handler
// ============================================================

type MaterialsHandler struct {
	repo           *repository.Repository
	storage        *storage.FileStorage
	defaultDensity float64
}

func NewMaterialsHandler(repo *repository.Repository, store *storage.FileStorage, defaultDensity float64) *MaterialsHandler {
	if defaultDensity <= 0 {
		defaultDensity = grouping.DefaultDensity
	}
	return &MaterialsHandler{
		repo:           repo,
		storage:        store,
		defaultDensity: defaultDensity,
	}
}

// Upload stores an element manifest and registers its metadata. The
// manifest is validated up front so a broken upload never produces a
// half-usable file id.
func (h *MaterialsHandler) Upload(c fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "file required in multipart/form-data"})
	}

	name := strings.ToLower(file.Filename)
	if !strings.HasSuffix(name, ".bmm") && !strings.HasSuffix(name, ".json") {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "only .bmm or .json manifests are supported"})
	}

	f, err := file.Open()
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to open file"})
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read file"})
	}
	if len(data) == 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "empty file uploaded"})
	}

	if _, err := parser.Parse(bytes.NewReader(data)); err != nil {
		log.Printf("[MATERIALS] upload rejected: %v", err)
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": fmt.Sprintf("invalid manifest: %v", err)})
	}

	fileID := uuid.NewString()
	if err := h.storage.SaveManifest(fileID, data); err != nil {
		log.Printf("[MATERIALS] save manifest: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store file"})
	}

	rec := repository.UploadRecord{
		ID:               fileID,
		OriginalFilename: file.Filename,
		SizeBytes:        int64(len(data)),
	}
	if err := h.repo.SaveUpload(context.Background(), rec); err != nil {
		log.Printf("[MATERIALS] save upload record: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to record upload"})
	}

	return c.JSON(models.UploadResponse{
		FileID:   fileID,
		Filename: file.Filename,
		Status:   "success",
	})
}

// Summary returns the material group table, computing and caching it on
// first request per (file id, density).
func (h *MaterialsHandler) Summary(c fiber.Ctx) error {
	fileID := c.Params("id")
	density := h.density(c)

	ctx := context.Background()
	if _, err := h.repo.GetUpload(ctx, fileID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": fmt.Sprintf("file %s not found", fileID)})
		}
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "metadata lookup failed"})
	}

	groups, err := h.repo.GetSummary(ctx, fileID, density)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "summary cache lookup failed"})
	}

	if errors.Is(err, repository.ErrNotFound) {
		manifest, herr := h.loadManifest(fileID)
		if herr != nil {
			return herr(c)
		}
		groups = grouping.Group(manifest.Elements, density)
		if err := h.repo.SaveSummary(ctx, fileID, density, groups); err != nil {
			log.Printf("[MATERIALS] cache summary: %v", err)
		}
	}

	return c.JSON(models.SummaryResponse{
		FileID:         fileID,
		Density:        density,
		MaterialGroups: groups,
	})
}

// Export streams the material summary as a CSV attachment.
func (h *MaterialsHandler) Export(c fiber.Ctx) error {
	fileID := c.Params("id")
	density := h.density(c)

	ctx := context.Background()
	rec, err := h.repo.GetUpload(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": fmt.Sprintf("file %s not found", fileID)})
		}
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "metadata lookup failed"})
	}

	manifest, herr := h.loadManifest(fileID)
	if herr != nil {
		return herr(c)
	}
	groups := grouping.Group(manifest.Elements, density)

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, groups); err != nil {
		log.Printf("[MATERIALS] export csv: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to export CSV"})
	}

	filename := export.Filename(rec.OriginalFilename, fileID)
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Type("csv")
	return c.Send(buf.Bytes())
}

// Model returns the renderable geometry payload, built once and cached on
// disk beside the manifest.
func (h *MaterialsHandler) Model(c fiber.Ctx) error {
	fileID := c.Params("id")

	if _, err := h.repo.GetUpload(context.Background(), fileID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": fmt.Sprintf("file %s not found", fileID)})
		}
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "metadata lookup failed"})
	}

	data, herr := h.payloadBytes(fileID, h.storage.PayloadPath(fileID))
	if herr != nil {
		return herr(c)
	}

	c.Set("Content-Type", "application/json")
	return c.Send(data)
}

// ModelIDs returns the stable-id/mesh-index identifier map.
func (h *MaterialsHandler) ModelIDs(c fiber.Ctx) error {
	fileID := c.Params("id")

	if _, err := h.repo.GetUpload(context.Background(), fileID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": fmt.Sprintf("file %s not found", fileID)})
		}
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "metadata lookup failed"})
	}

	data, herr := h.payloadBytes(fileID, h.storage.IdentifierMapPath(fileID))
	if herr != nil {
		return herr(c)
	}

	c.Set("Content-Type", "application/json")
	return c.Send(data)
}

// ============================================================
// Helpers
// ============================================================

type errorResponder func(fiber.Ctx) error

func (h *MaterialsHandler) density(c fiber.Ctx) float64 {
	if raw := c.Query("density"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			return v
		}
	}
	return h.defaultDensity
}

func (h *MaterialsHandler) loadManifest(fileID string) (*models.Manifest, errorResponder) {
	data, err := h.storage.ReadManifest(fileID)
	if err != nil {
		log.Printf("[MATERIALS] read manifest %s: %v", fileID, err)
		return nil, func(c fiber.Ctx) error {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": fmt.Sprintf("file %s not found", fileID)})
		}
	}

	manifest, err := parser.Parse(bytes.NewReader(data))
	if err != nil {
		log.Printf("[MATERIALS] parse manifest %s: %v", fileID, err)
		return nil, func(c fiber.Ctx) error {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "stored manifest is corrupt"})
		}
	}
	return manifest, nil
}

// payloadBytes returns the cached derived artifact at path, building both
// the payload and the identifier map on a cache miss.
func (h *MaterialsHandler) payloadBytes(fileID, path string) ([]byte, errorResponder) {
	if data, ok := h.storage.ReadDerived(path); ok {
		return data, nil
	}

	manifest, herr := h.loadManifest(fileID)
	if herr != nil {
		return nil, herr
	}

	payload, idMap := geometry.Build(fileID, manifest.Elements)

	payloadJSON, err := json.Marshal(payload)
	if err == nil {
		err = h.storage.SaveDerived(h.storage.PayloadPath(fileID), payloadJSON)
	}
	var idMapJSON []byte
	if err == nil {
		idMapJSON, err = json.Marshal(idMap)
	}
	if err == nil {
		err = h.storage.SaveDerived(h.storage.IdentifierMapPath(fileID), idMapJSON)
	}
	if err != nil {
		log.Printf("[MATERIALS] build geometry %s: %v", fileID, err)
		return nil, func(c fiber.Ctx) error {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to build geometry payload"})
		}
	}

	if path == h.storage.PayloadPath(fileID) {
		return payloadJSON, nil
	}
	return idMapJSON, nil
}
