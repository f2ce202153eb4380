package gcs

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/trezcool/studybuddy/core"
	"github.com/trezcool/studybuddy/core/notes"
)

const publicBaseURL = "https://storage.googleapis.com"

// Store keeps uploaded note files in a Google Cloud Storage bucket.
type Store struct {
	client *storage.Client
	bucket string
}

var _ notes.ObjectStore = (*Store)(nil)

// NewStore connects to GCS with the configured credentials file, or the application default credentials.
func NewStore(ctx context.Context, conf *core.Config) (*Store, error) {
	var opts []option.ClientOption
	if conf.Storage.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(conf.Storage.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating storage client")
	}
	return &Store{client: client, bucket: conf.Storage.Bucket}, nil
}

// Upload writes body to objectName, makes it publicly readable and returns its public URL.
func (s *Store) Upload(ctx context.Context, objectName, contentType string, body io.Reader) (string, error) {
	obj := s.client.Bucket(s.bucket).Object(objectName)

	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return "", errors.Wrap(err, "writing object")
	}
	// the object only exists once the writer is closed successfully
	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "closing object writer")
	}

	if err := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		return "", errors.Wrap(err, "making object public")
	}
	return PublicURL(s.bucket, objectName), nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// PublicURL returns the public URL of an object, escaping each path segment of its name.
func PublicURL(bucket, objectName string) string {
	segments := strings.Split(objectName, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/%s/%s", publicBaseURL, bucket, strings.Join(segments, "/"))
}
