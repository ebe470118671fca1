package blob

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jmalhotra/filedrive"
)

type SpyObjectAPI struct {
	mock.Mock
}

func (s *SpyObjectAPI) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := s.Called(ctx, in)
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func (s *SpyObjectAPI) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := s.Called(ctx, in)
	return args.Get(0).(*s3.DeleteObjectOutput), args.Error(1)
}

type SpyPresignAPI struct {
	mock.Mock
}

func (s *SpyPresignAPI) PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	args := s.Called(ctx, in)
	return args.Get(0).(*v4.PresignedHTTPRequest), args.Error(1)
}

func newTestStore(t *testing.T) (*Store, *SpyObjectAPI, *SpyPresignAPI) {
	t.Helper()
	client := new(SpyObjectAPI)
	presigner := new(SpyPresignAPI)
	store := newStore(client, presigner, Config{
		Endpoint: "http://blob.local",
		Region:   "us-east-1",
		Bucket:   "drive",
	})
	return store, client, presigner
}

func TestStore_Place(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		store, client, _ := newTestStore(t)
		ctx := context.Background()
		ownerID := uuid.New()

		client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
			return *in.Bucket == "drive" &&
				strings.HasPrefix(*in.Key, "file-uploader/user-"+ownerID.String()+"/") &&
				strings.HasSuffix(*in.Key, "-report.pdf") &&
				*in.ContentLength == 5
		})).Return(&s3.PutObjectOutput{}, nil)

		loc, size, err := store.Place(ctx, ownerID, "report.pdf", bytes.NewBufferString("hello"))
		require.NoError(t, err)

		assert.Equal(t, filedrive.LocatorRemote, loc.Kind)
		assert.Equal(t, int64(5), size)
		assert.Equal(t, "http://blob.local/drive/"+loc.RemoteKey, loc.URL)
		assert.NoError(t, loc.Validate())

		client.AssertExpectations(t)
	})

	t.Run("disallowed extension rejected before the remote call", func(t *testing.T) {
		store, client, _ := newTestStore(t)
		ctx := context.Background()

		for _, name := range []string{"script.sh", "binary.exe", "noext", "archive.tar.gz"} {
			_, _, err := store.Place(ctx, uuid.New(), name, bytes.NewBufferString("x"))
			assert.ErrorIs(t, err, filedrive.ErrInvalidInput, "name %q", name)
		}

		client.AssertNotCalled(t, "PutObject")
	})

	t.Run("extension check is case-insensitive", func(t *testing.T) {
		store, client, _ := newTestStore(t)
		ctx := context.Background()

		client.On("PutObject", mock.Anything, mock.Anything).Return(&s3.PutObjectOutput{}, nil)

		_, _, err := store.Place(ctx, uuid.New(), "PHOTO.JPG", bytes.NewBufferString("x"))
		assert.NoError(t, err)
	})

	t.Run("oversized object rejected before the remote call", func(t *testing.T) {
		store, client, _ := newTestStore(t)
		ctx := context.Background()

		big := bytes.NewReader(make([]byte, MaxObjectSize+1))
		_, _, err := store.Place(ctx, uuid.New(), "big.zip", big)
		assert.ErrorIs(t, err, filedrive.ErrInvalidInput)

		client.AssertNotCalled(t, "PutObject")
	})

	t.Run("object at exactly the cap is accepted", func(t *testing.T) {
		store, client, _ := newTestStore(t)
		ctx := context.Background()

		client.On("PutObject", mock.Anything, mock.Anything).Return(&s3.PutObjectOutput{}, nil)

		_, size, err := store.Place(ctx, uuid.New(), "big.zip", bytes.NewReader(make([]byte, MaxObjectSize)))
		require.NoError(t, err)
		assert.Equal(t, int64(MaxObjectSize), size)
	})

	t.Run("remote failure reads as backend unavailable", func(t *testing.T) {
		store, client, _ := newTestStore(t)
		ctx := context.Background()

		client.On("PutObject", mock.Anything, mock.Anything).
			Return((*s3.PutObjectOutput)(nil), fmt.Errorf("connection refused"))

		_, _, err := store.Place(ctx, uuid.New(), "report.pdf", bytes.NewBufferString("x"))
		assert.ErrorIs(t, err, filedrive.ErrBackendUnavailable)
	})

	t.Run("traversal in the name is sanitized into the key", func(t *testing.T) {
		store, client, _ := newTestStore(t)
		ctx := context.Background()

		client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
			return !strings.Contains(*in.Key, "..") && strings.HasSuffix(*in.Key, "-evil.png")
		})).Return(&s3.PutObjectOutput{}, nil)

		_, _, err := store.Place(ctx, uuid.New(), "../../evil.png", bytes.NewBufferString("x"))
		assert.NoError(t, err)

		client.AssertExpectations(t)
	})
}

func TestStore_DownloadURL(t *testing.T) {
	t.Run("presigns with attachment disposition", func(t *testing.T) {
		store, _, presigner := newTestStore(t)
		ctx := context.Background()

		loc := filedrive.Locator{
			Kind:      filedrive.LocatorRemote,
			URL:       "http://blob.local/drive/file-uploader/user-x/123-report.pdf",
			RemoteKey: "file-uploader/user-x/123-report.pdf",
		}

		presigner.On("PresignGetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
			return *in.Key == loc.RemoteKey &&
				*in.ResponseContentDisposition == `attachment; filename="123-report.pdf"`
		})).Return(&v4.PresignedHTTPRequest{URL: "http://blob.local/presigned"}, nil)

		url, err := store.DownloadURL(ctx, loc)
		require.NoError(t, err)
		assert.Equal(t, "http://blob.local/presigned", url)

		presigner.AssertExpectations(t)
	})

	t.Run("rejects non-remote locators", func(t *testing.T) {
		store, _, presigner := newTestStore(t)
		ctx := context.Background()

		_, err := store.DownloadURL(ctx, filedrive.Locator{Kind: filedrive.LocatorLocal, Path: "a/b"})
		assert.ErrorIs(t, err, filedrive.ErrInvalidInput)

		presigner.AssertNotCalled(t, "PresignGetObject")
	})

	t.Run("presign failure reads as backend unavailable", func(t *testing.T) {
		store, _, presigner := newTestStore(t)
		ctx := context.Background()

		loc := filedrive.Locator{Kind: filedrive.LocatorRemote, URL: "http://x", RemoteKey: "k"}
		presigner.On("PresignGetObject", mock.Anything, mock.Anything).
			Return((*v4.PresignedHTTPRequest)(nil), fmt.Errorf("connection refused"))

		_, err := store.DownloadURL(ctx, loc)
		assert.ErrorIs(t, err, filedrive.ErrBackendUnavailable)
	})
}

func TestStore_Remove(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		store, client, _ := newTestStore(t)
		ctx := context.Background()

		loc := filedrive.Locator{Kind: filedrive.LocatorRemote, URL: "http://x", RemoteKey: "file-uploader/user-x/123-report.pdf"}
		client.On("DeleteObject", mock.Anything, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
			return *in.Bucket == "drive" && *in.Key == loc.RemoteKey
		})).Return(&s3.DeleteObjectOutput{}, nil)

		assert.NoError(t, store.Remove(ctx, loc))
		client.AssertExpectations(t)
	})

	t.Run("remote failure reads as backend unavailable", func(t *testing.T) {
		store, client, _ := newTestStore(t)
		ctx := context.Background()

		loc := filedrive.Locator{Kind: filedrive.LocatorRemote, URL: "http://x", RemoteKey: "k"}
		client.On("DeleteObject", mock.Anything, mock.Anything).
			Return((*s3.DeleteObjectOutput)(nil), fmt.Errorf("connection refused"))

		err := store.Remove(ctx, loc)
		assert.ErrorIs(t, err, filedrive.ErrBackendUnavailable)
	})

	t.Run("rejects non-remote locators", func(t *testing.T) {
		store, client, _ := newTestStore(t)
		ctx := context.Background()

		err := store.Remove(ctx, filedrive.Locator{Kind: filedrive.LocatorNone})
		assert.ErrorIs(t, err, filedrive.ErrInvalidInput)

		client.AssertNotCalled(t, "DeleteObject")
	})
}
