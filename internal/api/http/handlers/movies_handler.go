package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/streamhub/internal/api/dto"
	"github.com/spec-kit/streamhub/internal/auth"
	"github.com/spec-kit/streamhub/internal/domain"
	"github.com/spec-kit/streamhub/internal/service"
	apperrors "github.com/spec-kit/streamhub/pkg/util/errorutil"
)

// MoviesHandler exposes the catalog and the playback gate.
type MoviesHandler struct {
	catalog *service.CatalogService
}

// NewMoviesHandler constructs handler.
func NewMoviesHandler(catalog *service.CatalogService) *MoviesHandler {
	return &MoviesHandler{catalog: catalog}
}

// List GET /movies.
func (h *MoviesHandler) List(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	views, err := h.catalog.ListMovies(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.MovieResponse, 0, len(views))
	for _, view := range views {
		items = append(items, dto.NewMovieResponse(view))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /movies/:id.
func (h *MoviesHandler) Get(c *fiber.Ctx) error {
	view, err := h.catalog.GetMovie(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMovieResponse(*view)})
}

// Play GET /movies/:id/play.
func (h *MoviesHandler) Play(c *fiber.Ctx) error {
	playback, err := h.catalog.Play(c.UserContext(), auth.CallerFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.PlaybackResponse{
		MovieID:   playback.MovieID,
		URL:       playback.URL,
		ExpiresAt: playback.ExpiresAt,
	}})
}

// Create POST /admin/movies.
func (h *MoviesHandler) Create(c *fiber.Ctx) error {
	var req dto.MovieRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	movie, err := h.catalog.CreateMovie(c.UserContext(), auth.CallerFromContext(c), service.MovieInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewMovieAdminResponse(movie)})
}

// Update PUT /admin/movies/:id.
func (h *MoviesHandler) Update(c *fiber.Ctx) error {
	var req dto.MovieRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	movie, err := h.catalog.UpdateMovie(c.UserContext(), auth.CallerFromContext(c), c.Params("id"), service.MovieInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMovieAdminResponse(movie)})
}

// Delete DELETE /admin/movies/:id.
func (h *MoviesHandler) Delete(c *fiber.Ctx) error {
	if err := h.catalog.DeleteMovie(c.UserContext(), auth.CallerFromContext(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// UploadAsset POST /admin/movies/:id/assets/:kind with a multipart "file".
func (h *MoviesHandler) UploadAsset(c *fiber.Ctx) error {
	kind, err := domain.ParseAssetKind(c.Params("kind"))
	if err != nil {
		return apperrors.NewValidationError("invalid asset kind", map[string]any{"kind": c.Params("kind")})
	}
	header, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file is required", map[string]any{"file": "required"})
	}
	file, err := header.Open()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	defer file.Close()

	movie, err := h.catalog.UploadAsset(c.UserContext(), auth.CallerFromContext(c), c.Params("id"), kind, service.AssetUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get(fiber.HeaderContentType),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewMovieAdminResponse(movie)})
}
