package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"splay/domain"
	"splay/entities"
	"splay/internal/metrics"
	"splay/internal/utils/imaging"
	"splay/internal/utils/storage"
	"splay/pkg/matching"
	"splay/pkg/vision"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Processor runs detection and matching for one scan and records the outcome.
type Processor struct {
	scanRepository ScanRepository
	store          storage.Storage
	vision         vision.Provider
	matching       matching.MatchingService
	metrics        *metrics.Metrics
	logger         *zap.Logger
	now            func() time.Time
}

func NewProcessor(
	scanRepository ScanRepository,
	store storage.Storage,
	visionProvider vision.Provider,
	matchingService matching.MatchingService,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		scanRepository: scanRepository,
		store:          store,
		vision:         visionProvider,
		matching:       matchingService,
		metrics:        m,
		logger:         logger,
		now:            time.Now,
	}
}

// Process moves the scan from processing to done or failed. Errors are
// recorded on the scan rather than returned.
func (p *Processor) Process(ctx context.Context, scanID uuid.UUID) {
	start := p.now()
	log := p.logger.With(zap.String("scan_id", scanID.String()))
	defer func() {
		if r := recover(); r != nil {
			log.Error("scan panicked", zap.Any("panic", r), zap.Stack("stack"))
			elapsed := p.now().Sub(start)
			msg := fmt.Errorf("%w: %v", domain.ErrScanProcessing, r).Error()
			if ferr := p.scanRepository.FailScan(context.WithoutCancel(ctx), scanID.String(), msg, elapsed.Milliseconds(), p.now()); ferr != nil {
				log.Error("recording scan failure", zap.Error(ferr))
			}
			p.observe(entities.ScanStatusFailed, elapsed)
		}
	}()

	scan, err := p.scanRepository.GetScanByID(ctx, scanID.String())
	if err != nil {
		log.Error("loading scan", zap.Error(err))
		return
	}
	if scan.Status != entities.ScanStatusProcessing {
		return
	}

	items, err := p.analyze(ctx, scan)
	elapsed := p.now().Sub(start)
	ms := elapsed.Milliseconds()
	completedAt := p.now()

	if err != nil {
		log.Warn("scan failed", zap.Error(err))
		if ferr := p.scanRepository.FailScan(context.WithoutCancel(ctx), scanID.String(), err.Error(), ms, completedAt); ferr != nil {
			log.Error("recording scan failure", zap.Error(ferr))
		}
		p.observe(entities.ScanStatusFailed, elapsed)
		return
	}

	scan.ItemCount = len(items)
	scan.ProcessingTimeMs = &ms
	scan.CompletedAt = &completedAt
	if err := p.scanRepository.CompleteScan(ctx, scan, items); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Info("scan removed while processing")
			return
		}
		log.Error("saving scan results", zap.Error(err))
		msg := fmt.Errorf("%w: saving results", domain.ErrScanProcessing).Error()
		_ = p.scanRepository.FailScan(context.WithoutCancel(ctx), scanID.String(), msg, ms, completedAt)
		p.observe(entities.ScanStatusFailed, elapsed)
		return
	}

	for _, item := range items {
		if p.metrics != nil {
			p.metrics.IncDetectedItem(item.Category)
		}
	}
	p.observe(entities.ScanStatusDone, elapsed)
	log.Info("scan done", zap.Int("items", len(items)), zap.Int64("processing_time_ms", ms))
}

func (p *Processor) observe(status string, elapsed time.Duration) {
	if p.metrics != nil {
		p.metrics.ObserveScan(status, elapsed.Seconds())
	}
}

func (p *Processor) analyze(ctx context.Context, scan *entities.Scan) ([]*entities.DetectedItem, error) {
	key := p.store.GetObjectKeyFromLink(scan.ImageURL)
	if key == "" {
		return nil, fmt.Errorf("image %s is not in storage", scan.ImageURL)
	}
	data, err := p.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}

	detections, err := p.vision.Detect(ctx, data, "", key)
	if err != nil {
		return nil, fmt.Errorf("detecting furniture: %w", err)
	}

	// crops are best effort; a bad decode only costs the crop URLs
	img, decodeErr := imaging.Decode(data, "")
	if decodeErr != nil {
		p.logger.Warn("decoding image for crops", zap.String("scan_id", scan.ID.String()), zap.Error(decodeErr))
	}

	items := make([]*entities.DetectedItem, 0, len(detections))
	for i, d := range detections {
		box := d.BBox.Clamp()
		item := &entities.DetectedItem{
			ID:         uuid.New(),
			ScanID:     scan.ID,
			Position:   i,
			Category:   d.Category,
			BBoxX:      box.X,
			BBoxY:      box.Y,
			BBoxWidth:  box.W,
			BBoxHeight: box.H,
			Confidence: d.Confidence,
			Embedding:  matching.Embed(matching.ItemText(d.Category), matching.EmbeddingDimension),
		}
		if img != nil {
			item.CropURL = p.saveCrop(ctx, img, scan.ID, i, d.Category, box)
		}

		found, err := p.matching.FindMatches(ctx, d.Category, item.Embedding, matching.DefaultMatchLimit)
		if err != nil {
			return nil, fmt.Errorf("matching %s: %w", d.Category, err)
		}
		for _, r := range p.matching.Rank(found) {
			item.Matches = append(item.Matches, &entities.ItemMatch{
				ID:                  uuid.New(),
				ItemID:              item.ID,
				ProductID:           r.Product.ID,
				SimilarityScore:     r.SimilarityScore,
				IsBudgetAlternative: r.IsBudget,
				Rank:                r.Rank,
			})
		}

		items = append(items, item)
	}
	return items, nil
}

func (p *Processor) saveCrop(ctx context.Context, img image.Image, scanID uuid.UUID, idx int, category string, box vision.BBox) string {
	data, err := imaging.Crop(img, box.X, box.Y, box.W, box.H)
	if err != nil {
		p.logger.Warn("creating crop", zap.String("scan_id", scanID.String()), zap.Error(err))
		return ""
	}
	key := fmt.Sprintf("%s/%s_%d_%s.jpg", storage.FolderCrops, scanID, idx, category)
	crop, err := p.store.Save(ctx, key, data, "image/jpeg")
	if err != nil {
		p.logger.Warn("saving crop", zap.String("scan_id", scanID.String()), zap.Error(err))
		return ""
	}
	return crop
}
