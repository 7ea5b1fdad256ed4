package scan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"mime/multipart"
	"net/textproto"
	"testing"
	"time"

	"splay/domain"
	"splay/entities"
	"splay/internal/cache"
	"splay/internal/utils/imaging"
	"splay/internal/utils/storage"
	"splay/internal/utils/testdb"
	"splay/pkg/matching"
	"splay/pkg/product"
	"splay/pkg/user"
	"splay/pkg/vision"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingQueue struct {
	accept bool
	ids    []uuid.UUID
}

func (q *recordingQueue) Submit(id uuid.UUID) bool {
	q.ids = append(q.ids, id)
	return q.accept
}

type failingVision struct{}

func (failingVision) Detect(context.Context, []byte, string, string) ([]vision.Detection, error) {
	return nil, errors.New("model unavailable")
}

func (failingVision) Categories() []string { return vision.Categories }

func (failingVision) Close() error { return nil }

type panickingVision struct{ failingVision }

func (panickingVision) Detect(context.Context, []byte, string, string) ([]vision.Detection, error) {
	panic("detector crashed")
}

type fixture struct {
	svc       ScanService
	repo      ScanRepository
	users     user.UserRepository
	store     *storage.LocalStorage
	cache     *cache.InMemoryCache
	queue     *recordingQueue
	processor *Processor
}

func newFixture(t *testing.T, provider vision.Provider, freeLimit int) fixture {
	db := testdb.New(t)
	ctx := context.Background()

	products := product.NewProductRepository(db)
	_, err := product.NewProductService(products, zap.NewNop()).Seed(ctx, false)
	require.NoError(t, err)

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	repo := NewScanRepository(db)
	users := user.NewUserRepository(db)
	processor := NewProcessor(repo, store, provider, matching.NewMatchingService(products), nil, zap.NewNop())
	scanCache := cache.NewInMemoryCache()
	queue := &recordingQueue{accept: true}

	svc := NewScanService(repo, users, store, queue, processor.Process, scanCache, zap.NewNop(), Options{
		FreeScanLimit: freeLimit,
	})

	return fixture{
		svc:       svc,
		repo:      repo,
		users:     users,
		store:     store,
		cache:     scanCache,
		queue:     queue,
		processor: processor,
	}
}

func (f fixture) newUser(t *testing.T) string {
	u := &entities.User{
		ID:               uuid.New(),
		Email:            uuid.NewString() + "@example.com",
		PasswordHash:     "x",
		Name:             "Ann",
		SubscriptionTier: entities.TierFree,
		IsActive:         true,
	}
	require.NoError(t, f.users.CreateUser(context.Background(), u))
	return u.ID.String()
}

func roomPNG(t *testing.T, w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y += 4 {
		for x := 0; x < w; x += 4 {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	data, err := imaging.EncodePNG(img)
	require.NoError(t, err)
	return data
}

func fileHeader(t *testing.T, filename, contentType string, data []byte) *multipart.FileHeader {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	return form.File["file"][0]
}

func (f fixture) create(t *testing.T, userID string) domain.ScanResponse {
	res, err := f.svc.CreateScan(context.Background(), domain.CreateScanRequest{
		Image: fileHeader(t, "room.png", "image/png", roomPNG(t, 800, 600)),
	}, userID)
	require.NoError(t, err)
	return res
}

func TestCreateScanQueuesProcessing(t *testing.T) {
	f := newFixture(t, vision.NewStubProvider(), 10)
	userID := f.newUser(t)
	ctx := context.Background()

	res := f.create(t, userID)
	assert.Equal(t, entities.ScanStatusProcessing, res.Status)
	assert.Empty(t, res.Items)
	assert.Equal(t, userID, res.UserID)
	require.Len(t, f.queue.ids, 1)
	assert.Equal(t, res.ID, f.queue.ids[0].String())

	thumbKey := f.store.GetObjectKeyFromLink(res.ThumbnailURL)
	thumb, err := f.store.Get(ctx, thumbKey)
	require.NoError(t, err)
	w, h, err := imaging.Dimensions(thumb, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, 400, w)
	assert.Equal(t, 300, h)

	polled, err := f.svc.GetScan(ctx, res.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, entities.ScanStatusProcessing, polled.Status)
	_, err = f.cache.Get(ctx, res.ID)
	assert.ErrorIs(t, err, cache.ErrCacheMiss, "processing scans are not cached")

	f.processor.Process(ctx, f.queue.ids[0])

	done, err := f.svc.GetScan(ctx, res.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, entities.ScanStatusDone, done.Status)
	assert.Equal(t, 3, done.ItemCount)
	require.NotNil(t, done.ProcessingTimeMs)
	require.NotNil(t, done.CompletedAt)
	require.Len(t, done.Items, 3)
	assert.Equal(t, "sofa", done.Items[0].Category)
	assert.Equal(t, domain.BBox{X: 0.15, Y: 0.35, W: 0.50, H: 0.40}, done.Items[0].BBox)
	assert.Equal(t, "coffee_table", done.Items[1].Category)

	for _, item := range done.Items {
		assert.NotEmpty(t, item.CropURL)
		require.NotEmpty(t, item.Matches)
		assert.LessOrEqual(t, len(item.Matches), 6)
		for i, m := range item.Matches {
			if m.IsBudget {
				assert.Equal(t, 6, m.Rank)
				continue
			}
			assert.Equal(t, i+1, m.Rank)
		}
	}

	_, err = f.cache.Get(ctx, res.ID)
	assert.NoError(t, err, "terminal scans are cached")
}

func TestCreateScanProcessesInlineWhenQueueFull(t *testing.T) {
	f := newFixture(t, vision.NewStubProvider(), 10)
	f.queue.accept = false
	userID := f.newUser(t)

	res := f.create(t, userID)
	assert.Equal(t, entities.ScanStatusDone, res.Status)
	assert.Len(t, res.Items, 3)
}

func TestCreateScanFailure(t *testing.T) {
	f := newFixture(t, failingVision{}, 10)
	f.queue.accept = false
	userID := f.newUser(t)

	res := f.create(t, userID)
	assert.Equal(t, entities.ScanStatusFailed, res.Status)
	assert.Contains(t, res.Error, "model unavailable")
	assert.NotNil(t, res.CompletedAt)
}

func TestProcessRecoversFromPanic(t *testing.T) {
	f := newFixture(t, panickingVision{}, 10)
	f.queue.accept = false
	userID := f.newUser(t)

	res := f.create(t, userID)
	assert.Equal(t, entities.ScanStatusFailed, res.Status)
	assert.Contains(t, res.Error, domain.ErrScanProcessing.Error())
	assert.Contains(t, res.Error, "detector crashed")
	assert.NotNil(t, res.CompletedAt)
}

func TestCreateScanValidation(t *testing.T) {
	f := newFixture(t, vision.NewStubProvider(), 10)
	userID := f.newUser(t)
	ctx := context.Background()
	valid := roomPNG(t, 800, 600)

	tooLarge := fileHeader(t, "room.png", "image/png", valid)
	tooLarge.Size = domain.MaxUploadSize + 1

	cases := []struct {
		name string
		file *multipart.FileHeader
		err  error
	}{
		{"missing file", nil, domain.ErrFilenameRequired},
		{"bad extension", fileHeader(t, "room.gif", "image/gif", valid), domain.ErrInvalidFileType},
		{"not an image", fileHeader(t, "room.png", "text/plain", valid), domain.ErrNotAnImage},
		{"too large", tooLarge, domain.ErrFileTooLarge},
		{"garbage", fileHeader(t, "room.png", "image/png", []byte("definitely not a png")), domain.ErrInvalidImage},
		{"too small", fileHeader(t, "room.png", "image/png", roomPNG(t, 300, 600)), domain.ErrImageTooSmall},
		{"too big", fileHeader(t, "room.png", "image/png", roomPNG(t, 4001, 500)), domain.ErrImageTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateScan(ctx, domain.CreateScanRequest{Image: tc.file}, userID)
			assert.ErrorIs(t, err, tc.err)
		})
	}
	assert.Empty(t, f.queue.ids)

	stored, err := f.users.GetUserByID(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, stored.ScansThisMonth, "rejected uploads do not use quota")
}

func TestCreateScanQuota(t *testing.T) {
	f := newFixture(t, vision.NewStubProvider(), 1)
	userID := f.newUser(t)

	f.create(t, userID)
	_, err := f.svc.CreateScan(context.Background(), domain.CreateScanRequest{
		Image: fileHeader(t, "room.png", "image/png", roomPNG(t, 800, 600)),
	}, userID)
	assert.ErrorIs(t, err, domain.ErrScanQuotaExceeded)
}

func TestGetScanAccess(t *testing.T) {
	f := newFixture(t, vision.NewStubProvider(), 10)
	owner := f.newUser(t)
	other := f.newUser(t)
	ctx := context.Background()

	res := f.create(t, owner)

	_, err := f.svc.GetScan(ctx, res.ID, other)
	assert.ErrorIs(t, err, domain.ErrUnauthorizedAccess)

	_, err = f.svc.GetScan(ctx, uuid.NewString(), owner)
	assert.ErrorIs(t, err, domain.ErrScanNotFound)

	_, err = f.svc.GetScan(ctx, "not-a-uuid", owner)
	assert.ErrorIs(t, err, domain.ErrScanNotFound)

	// cached terminal scans keep the ownership check
	f.processor.Process(ctx, f.queue.ids[0])
	_, err = f.svc.GetScan(ctx, res.ID, owner)
	require.NoError(t, err)
	_, err = f.svc.GetScan(ctx, res.ID, other)
	assert.ErrorIs(t, err, domain.ErrUnauthorizedAccess)
}

func TestListScans(t *testing.T) {
	f := newFixture(t, vision.NewStubProvider(), 10)
	userID := f.newUser(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, f.create(t, userID).ID)
		time.Sleep(5 * time.Millisecond)
	}
	f.create(t, f.newUser(t))

	list, err := f.svc.ListScans(ctx, userID, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Total)
	require.Len(t, list.Scans, 3)
	assert.Equal(t, ids[2], list.Scans[0].ID, "newest first")
	assert.Equal(t, ids[0], list.Scans[2].ID)
	assert.NotEmpty(t, list.Scans[0].ThumbnailURL)

	page, err := f.svc.ListScans(ctx, userID, 1, 1)
	require.NoError(t, err)
	require.Len(t, page.Scans, 1)
	assert.Equal(t, ids[1], page.Scans[0].ID)

	clamped, err := f.svc.ListScans(ctx, userID, -5, 1000)
	require.NoError(t, err)
	assert.Equal(t, 0, clamped.Skip)
	assert.Equal(t, MaxListLimit, clamped.Limit)
}

func TestDeleteScan(t *testing.T) {
	f := newFixture(t, vision.NewStubProvider(), 10)
	f.queue.accept = false
	owner := f.newUser(t)
	ctx := context.Background()

	res := f.create(t, owner)
	_, err := f.svc.GetScan(ctx, res.ID, owner)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.DeleteScan(ctx, res.ID, f.newUser(t)), domain.ErrUnauthorizedAccess)
	require.NoError(t, f.svc.DeleteScan(ctx, res.ID, owner))

	_, err = f.svc.GetScan(ctx, res.ID, owner)
	assert.ErrorIs(t, err, domain.ErrScanNotFound)
	_, err = f.store.Get(ctx, f.store.GetObjectKeyFromLink(res.ImageURL))
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	_, err = f.store.Get(ctx, f.store.GetObjectKeyFromLink(res.Items[0].CropURL))
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)

	assert.ErrorIs(t, f.svc.DeleteScan(ctx, res.ID, owner), domain.ErrScanNotFound)
}

func TestShareScan(t *testing.T) {
	f := newFixture(t, vision.NewStubProvider(), 10)
	f.queue.accept = false
	owner := f.newUser(t)
	ctx := context.Background()

	res := f.create(t, owner)

	share, err := f.svc.ShareScan(ctx, res.ID, owner)
	require.NoError(t, err)
	assert.Len(t, share.ShareToken, 64)
	assert.Equal(t, SharedPathPrefix+share.ShareToken, share.SharePath)

	again, err := f.svc.ShareScan(ctx, res.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, share.ShareToken, again.ShareToken)

	_, err = f.svc.ShareScan(ctx, res.ID, f.newUser(t))
	assert.ErrorIs(t, err, domain.ErrUnauthorizedAccess)

	shared, err := f.svc.GetSharedScan(ctx, share.ShareToken)
	require.NoError(t, err)
	assert.Equal(t, res.ID, shared.ID)
	assert.Empty(t, shared.UserID)
	assert.Len(t, shared.Items, 3)

	_, err = f.svc.GetSharedScan(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrScanNotFound)
}

func TestFailProcessingScans(t *testing.T) {
	f := newFixture(t, vision.NewStubProvider(), 10)
	owner := f.newUser(t)
	ctx := context.Background()

	res := f.create(t, owner)
	n, err := f.repo.FailProcessingScans(ctx, "interrupted", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := f.svc.GetScan(ctx, res.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, entities.ScanStatusFailed, got.Status)
	assert.Equal(t, "interrupted", got.Error)

	// a failed scan is not reprocessed
	f.processor.Process(ctx, f.queue.ids[0])
	got, err = f.svc.GetScan(ctx, res.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, entities.ScanStatusFailed, got.Status)
}
