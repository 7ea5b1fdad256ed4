package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAllowedExt(t *testing.T) {
	assert.True(t, IsAllowedExt("room.JPG", AllowImage...))
	assert.True(t, IsAllowedExt("room.heic", AllowImage...))
	assert.False(t, IsAllowedExt("room.gif", AllowImage...))
	assert.False(t, IsAllowedExt("room", AllowImage...))
}

func TestCleanKey(t *testing.T) {
	key, err := cleanKey("/uploads/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "uploads/a.jpg", key)

	for _, bad := range []string{"", "..", "../etc/passwd", "uploads/../../x"} {
		_, err := cleanKey(bad)
		assert.ErrorIs(t, err, ErrInvalidKey, bad)
	}
}

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	url, err := store.Save(ctx, "uploads/scan.jpg", []byte("img"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "/storage/uploads/scan.jpg", url)
	assert.Equal(t, "uploads/scan.jpg", store.GetObjectKeyFromLink(url))
	assert.Equal(t, "", store.GetObjectKeyFromLink("https://elsewhere/x.jpg"))

	data, err := store.Get(ctx, "uploads/scan.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), data)

	require.NoError(t, store.Delete(ctx, "uploads/scan.jpg"))
	_, err = store.Get(ctx, "uploads/scan.jpg")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "uploads/scan.jpg"), ErrObjectNotFound)

	_, err = store.Save(ctx, "../escape.jpg", []byte("x"), "image/jpeg")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

type fakeS3 struct {
	objects      map[string][]byte
	contentTypes map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = data
	f.contentTypes[*in.Key] = *in.ContentType
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if _, ok := f.objects[*in.Key]; !ok {
		return nil, errors.New("missing")
	}
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestAwsS3(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := newAwsS3WithClient(fake, "splay", "https://cdn.example.com/")

	url, err := store.Save(ctx, "thumbnails/a.jpg", []byte("thumb"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/thumbnails/a.jpg", url)
	assert.Equal(t, "image/jpeg", fake.contentTypes["thumbnails/a.jpg"])
	assert.Equal(t, "thumbnails/a.jpg", store.GetObjectKeyFromLink(url))

	data, err := store.Get(ctx, "thumbnails/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("thumb"), data)

	_, err = store.Get(ctx, "thumbnails/missing.jpg")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	require.NoError(t, store.Delete(ctx, "thumbnails/a.jpg"))
	assert.Empty(t, fake.objects)
}

func TestNewAwsS3RequiresBucket(t *testing.T) {
	_, err := NewAwsS3(context.Background(), S3Config{})
	assert.Error(t, err)
}

func TestS3Addressing(t *testing.T) {
	tests := []struct {
		name      string
		cfg       S3Config
		pathStyle bool
		publicURL string
	}{
		{
			name:      "aws virtual host",
			cfg:       S3Config{Bucket: "splay"},
			publicURL: "https://splay.s3.eu-west-1.amazonaws.com",
		},
		{
			name:      "aws path style",
			cfg:       S3Config{Bucket: "splay", PathStyle: true},
			pathStyle: true,
			publicURL: "https://s3.eu-west-1.amazonaws.com/splay",
		},
		{
			name:      "custom endpoint path style",
			cfg:       S3Config{Bucket: "splay", Endpoint: "http://minio:9000/", PathStyle: true},
			pathStyle: true,
			publicURL: "http://minio:9000/splay",
		},
		{
			name:      "custom endpoint virtual host",
			cfg:       S3Config{Bucket: "splay", Endpoint: "https://objects.example.com"},
			publicURL: "https://splay.objects.example.com",
		},
		{
			name:      "explicit public url",
			cfg:       S3Config{Bucket: "splay", PublicURL: "https://cdn.example.com"},
			publicURL: "https://cdn.example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts s3.Options
			clientOptions(tt.cfg)(&opts)
			assert.Equal(t, tt.pathStyle, opts.UsePathStyle)
			if tt.cfg.Endpoint != "" {
				require.NotNil(t, opts.BaseEndpoint)
				assert.Equal(t, tt.cfg.Endpoint, *opts.BaseEndpoint)
			} else {
				assert.Nil(t, opts.BaseEndpoint)
			}
			assert.Equal(t, tt.publicURL, publicBaseURL(tt.cfg, "eu-west-1"))
		})
	}
}
