/*
Copyright © 2019 the m2m authors.
This file is part of m2m.

m2m is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

m2m is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with m2m.  If not, see <http://www.gnu.org/licenses/>.
*/

package m2mutil

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/google/go-cloud/blob"
	"github.com/google/go-cloud/blob/fileblob"
	"github.com/google/go-cloud/blob/gcsblob"
	"github.com/google/go-cloud/blob/s3blob"
	"github.com/google/go-cloud/gcp"
)

// IsBlob returns whether the given filename represents a blob.
// (i.e., if it starts with `gs://`, 's3://', or 'file://').
func IsBlob(path string) bool {
	return strings.HasPrefix(path, "gs://") || strings.HasPrefix(path, "s3://") || strings.HasPrefix(path, "file://")
}

// OpenBucket returns the blob storage bucket specified by bucketName,
// which must be in the format 'provider://name'. The accepted providers
// are "file" for a local directory, "gs" for Google Cloud Storage
// and "s3" for AWS S3.
func OpenBucket(ctx context.Context, bucketName string) (*blob.Bucket, error) {
	u, err := url.Parse(bucketName)
	if err != nil {
		return nil, fmt.Errorf("m2mutil.OpenBucket: %v", err)
	}
	switch u.Scheme {
	case "file":
		return fileblob.NewBucket(u.Hostname())
	case "gs":
		return gsBucket(ctx, u.Hostname())
	case "s3":
		return s3Bucket(ctx, u.Hostname())
	default:
		return nil, fmt.Errorf("m2mutil.OpenBucket: invalid provider %s", u.Scheme)
	}
}

func gsBucket(ctx context.Context, name string) (*blob.Bucket, error) {
	// See https://cloud.google.com/docs/authentication/getting-started
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, err
	}
	c, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, err
	}
	return gcsblob.OpenBucket(ctx, name, c)
}

// s3Bucket opens an s3 storage bucket using the AWS_REGION,
// AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY environment variables.
func s3Bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-2"
	}
	c := &aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewEnvCredentials(),
	}
	s := session.Must(session.NewSession(c))
	return s3blob.OpenBucket(ctx, s, name)
}

type uploader struct {
	// files is a set of file path pairs. The first of each pair
	// is a local file path and the second is the blob storage
	// location it should be uploaded to.
	files [][2]string
	err   error
	dir   string
}

// maybeUpload returns path unchanged if it is a local file. If it refers
// to a blob storage location, a temporary local path is returned instead
// and the file is uploaded when uploadOutput is run.
func (u *uploader) maybeUpload(path string) string {
	if u.err != nil {
		return ""
	}
	if !IsBlob(path) {
		return path
	}
	if u.dir == "" {
		u.dir, u.err = ioutil.TempDir("", "m2m")
		if u.err != nil {
			return ""
		}
	}
	local := filepath.Join(u.dir, filepath.Base(path))
	u.files = append(u.files, [2]string{local, path})
	return local
}

func (u *uploader) uploadOutput(ctx context.Context) error {
	if u.err != nil {
		return u.err
	}
	for _, files := range u.files {
		if err := upload(ctx, files[0], files[1]); err != nil {
			return err
		}
	}
	return nil
}

func upload(ctx context.Context, local, dst string) error {
	r, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("m2mutil: opening file '%s' for upload: %v", local, err)
	}
	defer r.Close()
	u, err := url.Parse(dst)
	if err != nil {
		return fmt.Errorf("m2mutil: parsing url '%s' for upload: %v", dst, err)
	}
	bucket, err := OpenBucket(ctx, u.Scheme+"://"+u.Host)
	if err != nil {
		return fmt.Errorf("m2mutil: opening bucket to upload file '%s': %v", dst, err)
	}
	w, err := bucket.NewWriter(ctx, strings.TrimPrefix(u.Path, "/"), &blob.WriterOptions{})
	if err != nil {
		return fmt.Errorf("m2mutil: opening writer to upload file '%s': %v", dst, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("m2mutil: uploading file '%s' to '%s': %v", local, dst, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("m2mutil: uploading file '%s' to '%s': %v", local, dst, err)
	}
	return nil
}
