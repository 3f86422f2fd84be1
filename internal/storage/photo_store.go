package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrPhotoNotFound = errors.New("photo not found")

// PhotoStore persists listing photos and returns a URL that resolves to them.
type PhotoStore interface {
	Upload(ctx context.Context, r io.Reader, filename string) (string, error)
	Open(ctx context.Context, id string) (*Photo, error)
}

// Photo is an open photo stream. Callers must close it.
type Photo struct {
	io.ReadCloser
	ID          string
	ContentType string
	Size        int64
}

type GridFSStore struct {
	db            *mongo.Database
	bucketName    string
	publicBaseURL string
}

type GridFSOption func(*GridFSStore)

func WithBucket(name string) GridFSOption {
	return func(s *GridFSStore) {
		s.bucketName = name
	}
}

func NewGridFSStore(client *mongo.Client, dbName, publicBaseURL string, opts ...GridFSOption) *GridFSStore {
	store := &GridFSStore{
		db:            client.Database(dbName),
		bucketName:    options.DefaultName,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// NewMongoClient connects to uri and verifies the connection.
func NewMongoClient(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// bucket opens a bucket per call; deadlines are bucket-wide in GridFS.
func (s *GridFSStore) bucket(ctx context.Context) (*gridfs.Bucket, error) {
	bucket, err := gridfs.NewBucket(s.db, options.GridFSBucket().SetName(s.bucketName))
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := bucket.SetWriteDeadline(deadline); err != nil {
			return nil, err
		}
		if err := bucket.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
	}
	return bucket, nil
}

func (s *GridFSStore) Upload(ctx context.Context, r io.Reader, filename string) (string, error) {
	key := ObjectKey(filename)

	bucket, err := s.bucket(ctx)
	if err != nil {
		return "", fmt.Errorf("open bucket: %w", err)
	}

	meta := options.GridFSUpload().SetMetadata(bson.D{{Key: "contentType", Value: contentType(key)}})
	stream, err := bucket.OpenUploadStream(key, meta)
	if err != nil {
		return "", fmt.Errorf("open upload stream: %w", err)
	}

	if _, err := io.Copy(stream, r); err != nil {
		_ = stream.Abort()
		return "", fmt.Errorf("upload photo: %w", err)
	}
	if err := stream.Close(); err != nil {
		return "", fmt.Errorf("upload photo: %w", err)
	}

	return PhotoURL(s.publicBaseURL, key), nil
}

func (s *GridFSStore) Open(ctx context.Context, id string) (*Photo, error) {
	bucket, err := s.bucket(ctx)
	if err != nil {
		return nil, fmt.Errorf("open bucket: %w", err)
	}

	stream, err := bucket.OpenDownloadStreamByName(id)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPhotoNotFound, id)
		}
		return nil, fmt.Errorf("open download stream: %w", err)
	}

	return &Photo{
		ReadCloser:  stream,
		ID:          id,
		ContentType: contentType(id),
		Size:        stream.GetFile().Length,
	}, nil
}

// ObjectKey returns a unique storage key "<uuid>_<base name>" for filename.
func ObjectKey(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" {
		name = "photo"
	}
	return uuid.NewString() + "_" + name
}

// PhotoURL is the public address the photo with key is served from.
func PhotoURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + "/photos/" + url.PathEscape(key)
}

func contentType(key string) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(key))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

var _ PhotoStore = (*GridFSStore)(nil)
