// Package docstore abstracts the object store holding generated
// documents. Invoice PDFs and parquet exports are archived with Put;
// the invoice download path reads archived copies back with Get.
package docstore

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("document not found")

type DocumentInfo struct {
	Key  string
	Size int64
	ETag string
}

type PutOptions struct {
	ContentType string
}

type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (DocumentInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}
