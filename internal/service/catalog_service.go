package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/streamhub/internal/domain"
	"github.com/spec-kit/streamhub/internal/repository"
	"github.com/spec-kit/streamhub/internal/storage"
	apperrors "github.com/spec-kit/streamhub/pkg/util/errorutil"
)

// MovieInput holds the editable catalog fields.
type MovieInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Validate checks the trimmed input.
func (in MovieInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 300)),
		validation.Field(&in.Description, validation.Length(0, 5000)),
	)
}

// AssetUpload is one file streamed into the object store.
type AssetUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// MovieView is a catalog entry with presigned asset URLs.
type MovieView struct {
	domain.Movie
	CoverURL        string
	DetailImageURLs []string
}

// Playback is a granted request to stream a movie.
type Playback struct {
	MovieID   string
	URL       string
	ExpiresAt time.Time
}

// CatalogService manages movies and gates playback on access.
type CatalogService struct {
	movies     repository.MovieRepository
	objects    storage.ObjectStorage
	access     *AccessService
	logger     *zap.Logger
	presignTTL time.Duration
	now        Clock
}

// CatalogDependencies bundles collaborators for the service. Storage may be
// nil, in which case uploads and playback report the store unavailable.
type CatalogDependencies struct {
	MovieRepo  repository.MovieRepository
	Storage    storage.ObjectStorage
	Access     *AccessService
	Logger     *zap.Logger
	PresignTTL time.Duration
	Clock      Clock
}

// NewCatalogService builds the service.
func NewCatalogService(deps CatalogDependencies) *CatalogService {
	ttl := deps.PresignTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CatalogService{
		movies:     deps.MovieRepo,
		objects:    deps.Storage,
		access:     deps.Access,
		logger:     loggerOrNop(deps.Logger),
		presignTTL: ttl,
		now:        clockOrNow(deps.Clock),
	}
}

func (in MovieInput) normalize() MovieInput {
	return MovieInput{Title: strings.TrimSpace(in.Title), Description: strings.TrimSpace(in.Description)}
}

// CreateMovie adds a catalog entry without assets.
func (s *CatalogService) CreateMovie(ctx context.Context, caller domain.Caller, input MovieInput) (*domain.Movie, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	input = input.normalize()
	if err := input.Validate(); err != nil {
		return nil, validationFailed(err)
	}

	movie := &domain.Movie{Title: input.Title, Description: input.Description}
	if err := s.movies.Create(ctx, movie); err != nil {
		return nil, storeError("movie", err)
	}
	s.logger.Info("movie created", zap.String("movie_id", movie.ID))
	return movie, nil
}

// UpdateMovie replaces title and description.
func (s *CatalogService) UpdateMovie(ctx context.Context, caller domain.Caller, id string, input MovieInput) (*domain.Movie, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	input = input.normalize()
	if err := input.Validate(); err != nil {
		return nil, validationFailed(err)
	}

	movie, err := s.movies.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("movie", err)
	}
	movie.Title = input.Title
	movie.Description = input.Description
	if err := s.movies.Update(ctx, movie); err != nil {
		return nil, storeError("movie", err)
	}
	return movie, nil
}

// DeleteMovie removes the entry, then its stored assets on a best-effort basis.
func (s *CatalogService) DeleteMovie(ctx context.Context, caller domain.Caller, id string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	movie, err := s.movies.GetByID(ctx, id)
	if err != nil {
		return storeError("movie", err)
	}
	if err := s.movies.Delete(ctx, id); err != nil {
		return storeError("movie", err)
	}
	for _, key := range movie.AssetKeys() {
		s.removeObject(ctx, key)
	}
	s.logger.Info("movie deleted", zap.String("movie_id", id))
	return nil
}

// UploadAsset streams a file into the object store and attaches it to the
// movie. Cover and video replace the previous object; detail images append.
func (s *CatalogService) UploadAsset(ctx context.Context, caller domain.Caller, movieID string, kind domain.AssetKind, upload AssetUpload) (*domain.Movie, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if err := validateUpload(kind, upload); err != nil {
		return nil, err
	}
	if s.objects == nil {
		return nil, apperrors.NewStoreUnavailable(storage.ErrNotConfigured)
	}

	movie, err := s.movies.GetByID(ctx, movieID)
	if err != nil {
		return nil, storeError("movie", err)
	}

	key := assetKey(movie.ID, kind, upload.Filename)
	size := upload.Size
	if size <= 0 {
		size = -1
	}
	if err := s.objects.Put(ctx, key, upload.Body, size, upload.ContentType); err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}

	var replaced string
	switch kind {
	case domain.AssetCover:
		replaced, movie.CoverImageKey = movie.CoverImageKey, key
	case domain.AssetDetail:
		movie.DetailImageKeys = append(movie.DetailImageKeys, key)
	case domain.AssetVideo:
		replaced, movie.VideoKey = movie.VideoKey, key
	}
	if err := s.movies.Update(ctx, movie); err != nil {
		s.removeObject(ctx, key)
		return nil, storeError("movie", err)
	}
	if replaced != "" {
		s.removeObject(ctx, replaced)
	}

	s.logger.Info("movie asset uploaded",
		zap.String("movie_id", movie.ID),
		zap.String("kind", string(kind)),
		zap.String("key", key))
	return movie, nil
}

// ListMovies returns the catalog newest first with presigned cover URLs.
func (s *CatalogService) ListMovies(ctx context.Context, limit, offset int) ([]MovieView, error) {
	movies, err := s.movies.List(ctx, limit, offset)
	if err != nil {
		return nil, storeError("movie", err)
	}
	views := make([]MovieView, 0, len(movies))
	for _, movie := range movies {
		views = append(views, MovieView{Movie: movie, CoverURL: s.presign(ctx, movie.CoverImageKey)})
	}
	return views, nil
}

// GetMovie returns one entry with every image URL presigned.
func (s *CatalogService) GetMovie(ctx context.Context, id string) (*MovieView, error) {
	movie, err := s.movies.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("movie", err)
	}
	view := &MovieView{
		Movie:           *movie,
		CoverURL:        s.presign(ctx, movie.CoverImageKey),
		DetailImageURLs: make([]string, 0, len(movie.DetailImageKeys)),
	}
	for _, key := range movie.DetailImageKeys {
		if url := s.presign(ctx, key); url != "" {
			view.DetailImageURLs = append(view.DetailImageURLs, url)
		}
	}
	return view, nil
}

// Play re-reads the caller's entitlement and only then releases a video URL.
func (s *CatalogService) Play(ctx context.Context, caller domain.Caller, movieID string) (*Playback, error) {
	_, decision, err := s.access.Check(ctx, caller)
	if err != nil {
		return nil, err
	}
	if !decision.Granted() {
		return nil, DeniedError(decision)
	}

	movie, err := s.movies.GetByID(ctx, movieID)
	if err != nil {
		return nil, storeError("movie", err)
	}
	if movie.VideoKey == "" {
		return nil, apperrors.NewNotFound("video", map[string]any{"movie_id": movieID})
	}
	if s.objects == nil {
		return nil, apperrors.NewStoreUnavailable(storage.ErrNotConfigured)
	}

	url, err := s.objects.PresignGet(ctx, movie.VideoKey, s.presignTTL)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return &Playback{MovieID: movie.ID, URL: url, ExpiresAt: s.now().Add(s.presignTTL)}, nil
}

func (s *CatalogService) presign(ctx context.Context, key string) string {
	if key == "" || s.objects == nil {
		return ""
	}
	url, err := s.objects.PresignGet(ctx, key, s.presignTTL)
	if err != nil {
		s.logger.Warn("presign failed", zap.String("key", key), zap.Error(err))
		return ""
	}
	return url
}

func (s *CatalogService) removeObject(ctx context.Context, key string) {
	if s.objects == nil || key == "" {
		return
	}
	if err := s.objects.Delete(ctx, key); err != nil {
		s.logger.Warn("object cleanup failed", zap.String("key", key), zap.Error(err))
	}
}

func validateUpload(kind domain.AssetKind, upload AssetUpload) error {
	if upload.Body == nil {
		return apperrors.NewValidationError("file is required", map[string]any{"file": "required"})
	}
	want := "image/"
	if kind == domain.AssetVideo {
		want = "video/"
	}
	if !strings.HasPrefix(strings.ToLower(upload.ContentType), want) {
		return apperrors.NewValidationError("unsupported content type", map[string]any{
			"content_type": fmt.Sprintf("must be %s*", want),
		})
	}
	return nil
}

func assetKey(movieID string, kind domain.AssetKind, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(filename)))
	return fmt.Sprintf("movies/%s/%s/%s%s", movieID, kind, uuid.NewString(), ext)
}
