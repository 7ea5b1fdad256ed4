package scan

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"splay/domain"
	"splay/entities"
	"splay/internal/cache"
	"splay/internal/utils/imaging"
	"splay/internal/utils/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
	SharedPathPrefix = "/api/v1/shared/"
)

type (
	ScanService interface {
		CreateScan(ctx context.Context, req domain.CreateScanRequest, userID string) (domain.ScanResponse, error)
		GetScan(ctx context.Context, id string, userID string) (domain.ScanResponse, error)
		ListScans(ctx context.Context, userID string, skip, limit int) (domain.ScanListResponse, error)
		DeleteScan(ctx context.Context, id string, userID string) error
		ShareScan(ctx context.Context, id string, userID string) (domain.ShareScanResponse, error)
		GetSharedScan(ctx context.Context, token string) (domain.ScanResponse, error)
	}

	// QuotaRepository meters scans per user and month.
	QuotaRepository interface {
		ConsumeScanQuota(ctx context.Context, id string, period string, limit int) (bool, error)
		ReleaseScanQuota(ctx context.Context, id string, period string) error
	}

	Queue interface {
		Submit(id uuid.UUID) bool
	}

	Options struct {
		FreeScanLimit int
		CacheTTL      time.Duration
	}

	scanService struct {
		scanRepository  ScanRepository
		quotaRepository QuotaRepository
		store           storage.Storage
		queue           Queue
		process         ProcessFunc
		cache           cache.Cache
		logger          *zap.Logger
		opts            Options
		now             func() time.Time
	}
)

func NewScanService(
	scanRepository ScanRepository,
	quotaRepository QuotaRepository,
	store storage.Storage,
	queue Queue,
	process ProcessFunc,
	scanCache cache.Cache,
	logger *zap.Logger,
	opts Options,
) ScanService {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	return &scanService{
		scanRepository:  scanRepository,
		quotaRepository: quotaRepository,
		store:           store,
		queue:           queue,
		process:         process,
		cache:           scanCache,
		logger:          logger,
		opts:            opts,
		now:             time.Now,
	}
}

type upload struct {
	ext         string
	contentType string
	data        []byte
}

// readUpload checks the upload in the order clients see errors: name,
// extension, content type, size, then the decoded dimensions.
func readUpload(file *multipart.FileHeader) (upload, error) {
	if file == nil || file.Filename == "" {
		return upload{}, domain.ErrFilenameRequired
	}
	if !storage.IsAllowedExt(file.Filename, storage.AllowImage...) {
		return upload{}, domain.ErrInvalidFileType
	}
	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return upload{}, domain.ErrNotAnImage
	}
	if file.Size > domain.MaxUploadSize {
		return upload{}, domain.ErrFileTooLarge
	}

	f, err := file.Open()
	if err != nil {
		return upload{}, fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, domain.MaxUploadSize+1))
	if err != nil {
		return upload{}, fmt.Errorf("reading upload: %w", err)
	}
	if len(data) > domain.MaxUploadSize {
		return upload{}, domain.ErrFileTooLarge
	}

	w, h, err := imaging.Dimensions(data, contentType)
	if err != nil {
		return upload{}, domain.ErrInvalidImage
	}
	if w < domain.MinImageSide || h < domain.MinImageSide {
		return upload{}, domain.ErrImageTooSmall
	}
	if w > domain.MaxImageSide || h > domain.MaxImageSide {
		return upload{}, domain.ErrImageTooLarge
	}

	return upload{
		ext:         strings.ToLower(filepath.Ext(file.Filename)),
		contentType: contentType,
		data:        data,
	}, nil
}

func (s *scanService) period() string {
	return s.now().UTC().Format("2006-01")
}

func (s *scanService) CreateScan(ctx context.Context, req domain.CreateScanRequest, userID string) (domain.ScanResponse, error) {
	owner, err := uuid.Parse(userID)
	if err != nil {
		return domain.ScanResponse{}, domain.ErrParseUUID
	}

	up, err := readUpload(req.Image)
	if err != nil {
		return domain.ScanResponse{}, err
	}

	period := s.period()
	ok, err := s.quotaRepository.ConsumeScanQuota(ctx, userID, period, s.opts.FreeScanLimit)
	if err != nil {
		return domain.ScanResponse{}, fmt.Errorf("checking scan quota: %w", err)
	}
	if !ok {
		return domain.ScanResponse{}, domain.ErrScanQuotaExceeded
	}

	scan, err := s.storeScan(ctx, owner, up)
	if err != nil {
		if rerr := s.quotaRepository.ReleaseScanQuota(context.WithoutCancel(ctx), userID, period); rerr != nil {
			s.logger.Error("releasing scan quota", zap.String("user_id", userID), zap.Error(rerr))
		}
		return domain.ScanResponse{}, err
	}

	if !s.queue.Submit(scan.ID) {
		s.logger.Warn("scan queue full, processing inline", zap.String("scan_id", scan.ID.String()))
		s.process(ctx, scan.ID)
		if done, err := s.scanRepository.GetScanByID(ctx, scan.ID.String()); err == nil {
			scan = done
		}
	}

	return ToScanResponse(scan), nil
}

func (s *scanService) storeScan(ctx context.Context, owner uuid.UUID, up upload) (*entities.Scan, error) {
	id := uuid.New()
	ext := up.ext
	if ext == "" {
		ext = ".jpg"
	}

	imageURL, err := s.store.Save(ctx, fmt.Sprintf("%s/%s%s", storage.FolderUploads, id, ext), up.data, up.contentType)
	if err != nil {
		return nil, fmt.Errorf("storing upload: %w", err)
	}

	thumbnailURL, err := s.storeThumbnail(ctx, id, ext, up)
	if err != nil {
		return nil, fmt.Errorf("storing thumbnail: %w", err)
	}

	scan := &entities.Scan{
		ID:           id,
		UserID:       owner,
		Status:       entities.ScanStatusProcessing,
		ImageURL:     imageURL,
		ThumbnailURL: thumbnailURL,
		Items:        []*entities.DetectedItem{},
	}
	if err := s.scanRepository.CreateScan(ctx, scan); err != nil {
		return nil, fmt.Errorf("creating scan: %w", err)
	}
	return scan, nil
}

// storeThumbnail falls back to storing the original bytes when the image
// cannot be scaled.
func (s *scanService) storeThumbnail(ctx context.Context, id uuid.UUID, ext string, up upload) (string, error) {
	img, err := imaging.Decode(up.data, up.contentType)
	if err == nil {
		var thumb []byte
		if thumb, err = imaging.Thumbnail(img, imaging.ThumbnailSize); err == nil {
			return s.store.Save(ctx, fmt.Sprintf("%s/%s.jpg", storage.FolderThumbnails, id), thumb, "image/jpeg")
		}
	}

	s.logger.Warn("creating thumbnail, storing original", zap.String("scan_id", id.String()), zap.Error(err))
	return s.store.Save(ctx, fmt.Sprintf("%s/%s%s", storage.FolderThumbnails, id, ext), up.data, up.contentType)
}

func (s *scanService) loadOwned(ctx context.Context, id string, userID string) (*entities.Scan, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrScanNotFound
	}

	scan, err := s.scanRepository.GetScanByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrScanNotFound
		}
		return nil, err
	}
	if scan.UserID.String() != userID {
		return nil, domain.ErrUnauthorizedAccess
	}
	return scan, nil
}

func (s *scanService) GetScan(ctx context.Context, id string, userID string) (domain.ScanResponse, error) {
	if res, ok := s.cached(ctx, id); ok {
		if res.UserID != userID {
			return domain.ScanResponse{}, domain.ErrUnauthorizedAccess
		}
		return res, nil
	}

	scan, err := s.loadOwned(ctx, id, userID)
	if err != nil {
		return domain.ScanResponse{}, err
	}

	res := ToScanResponse(scan)
	if isTerminal(scan.Status) {
		s.cacheScan(ctx, res)
	}
	return res, nil
}

func (s *scanService) cached(ctx context.Context, id string) (domain.ScanResponse, bool) {
	raw, err := s.cache.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("reading scan cache", zap.String("scan_id", id), zap.Error(err))
		}
		return domain.ScanResponse{}, false
	}

	var res domain.ScanResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		s.logger.Warn("decoding cached scan", zap.String("scan_id", id), zap.Error(err))
		return domain.ScanResponse{}, false
	}
	return res, true
}

func (s *scanService) cacheScan(ctx context.Context, res domain.ScanResponse) {
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, res.ID, raw, s.opts.CacheTTL); err != nil {
		s.logger.Warn("writing scan cache", zap.String("scan_id", res.ID), zap.Error(err))
	}
}

func (s *scanService) ListScans(ctx context.Context, userID string, skip, limit int) (domain.ScanListResponse, error) {
	if skip < 0 {
		skip = 0
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	scans, total, err := s.scanRepository.GetScans(ctx, userID, skip, limit)
	if err != nil {
		return domain.ScanListResponse{}, err
	}

	items := make([]domain.ScanListItemResponse, 0, len(scans))
	for _, scan := range scans {
		items = append(items, toListItemResponse(scan))
	}

	return domain.ScanListResponse{
		Scans: items,
		Total: total,
		Skip:  skip,
		Limit: limit,
	}, nil
}

func (s *scanService) DeleteScan(ctx context.Context, id string, userID string) error {
	scan, err := s.loadOwned(ctx, id, userID)
	if err != nil {
		return err
	}

	if err := s.scanRepository.DeleteScan(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrScanNotFound
		}
		return err
	}

	links := []string{scan.ImageURL, scan.ThumbnailURL}
	for _, item := range scan.Items {
		links = append(links, item.CropURL)
	}
	for _, link := range links {
		key := s.store.GetObjectKeyFromLink(link)
		if key == "" {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			s.logger.Warn("deleting scan file", zap.String("key", key), zap.Error(err))
		}
	}

	if err := s.cache.Delete(ctx, id); err != nil {
		s.logger.Warn("evicting scan cache", zap.String("scan_id", id), zap.Error(err))
	}
	return nil
}

func newShareToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (s *scanService) ShareScan(ctx context.Context, id string, userID string) (domain.ShareScanResponse, error) {
	scan, err := s.loadOwned(ctx, id, userID)
	if err != nil {
		return domain.ShareScanResponse{}, err
	}

	if scan.ShareToken == nil {
		token, err := newShareToken()
		if err != nil {
			return domain.ShareScanResponse{}, fmt.Errorf("generating share token: %w", err)
		}
		if err := s.scanRepository.SetShareToken(ctx, id, token); err != nil {
			return domain.ShareScanResponse{}, err
		}
		scan.ShareToken = &token
	}

	return domain.ShareScanResponse{
		ShareToken: *scan.ShareToken,
		SharePath:  SharedPathPrefix + *scan.ShareToken,
	}, nil
}

func (s *scanService) GetSharedScan(ctx context.Context, token string) (domain.ScanResponse, error) {
	if token == "" {
		return domain.ScanResponse{}, domain.ErrScanNotFound
	}

	scan, err := s.scanRepository.GetScanByShareToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ScanResponse{}, domain.ErrScanNotFound
		}
		return domain.ScanResponse{}, err
	}

	res := ToScanResponse(scan)
	res.UserID = ""
	return res, nil
}
