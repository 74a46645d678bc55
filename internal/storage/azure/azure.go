// Package azure implements storage.Interface over Azure Blob Storage,
// wrapping github.com/Azure/azure-sdk-for-go/sdk/storage/azblob.
package azure

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"github.com/aalhour/pgbackrest-go/internal/storage"
)

// Driver is a storage.Interface backed by a single Azure container. Blob
// names are the full path under the container, mirroring how S3 treats
// keys: there is no real directory structure, just "/"-delimited name
// prefixes.
type Driver struct {
	client    *azblob.Client
	container string
}

// New wraps an already-constructed azblob.Client scoped to containerName.
func New(client *azblob.Client, containerName string) *Driver {
	return &Driver{client: client, container: containerName}
}

func (d *Driver) Features() storage.Feature {
	return 0
}

func (d *Driver) blobName(path string) string {
	return strings.TrimPrefix(path, "/")
}

// Info fetches blob properties. Azure blobs carry no posix mode/owner/link
// metadata, so level only controls how much of the response is parsed —
// the GetProperties call itself is unavoidable at any level since it is
// also how existence is confirmed.
func (d *Driver) Info(ctx context.Context, path string, level storage.Level) (storage.Info, error) {
	blobClient := d.client.ServiceClient().NewContainerClient(d.container).NewBlobClient(d.blobName(path))
	resp, err := blobClient.GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return storage.Info{}, fmt.Errorf("%w: %s", storage.ErrNotExist, path)
		}
		return storage.Info{}, err
	}

	out := storage.Info{Name: path, Exists: true}
	if level < storage.LevelType {
		return out, nil
	}
	out.Type = storage.TypeFile
	if level < storage.LevelBasic {
		return out, nil
	}
	if resp.ContentLength != nil {
		out.Size = *resp.ContentLength
	}
	if resp.LastModified != nil {
		out.TimeModified = *resp.LastModified
	}
	return out, nil
}

func (d *Driver) List(ctx context.Context, path string, level storage.Level) ([]storage.Info, error) {
	prefix := d.blobName(path)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var out []storage.Info
	pager := d.client.NewListBlobsFlatPager(d.container, &container.ListBlobsFlatOptions{
		Prefix: to.Ptr(prefix),
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			entry := storage.Info{Name: strings.TrimPrefix(*item.Name, prefix), Exists: true}
			if level >= storage.LevelType {
				entry.Type = storage.TypeFile
			}
			if level >= storage.LevelBasic {
				if item.Properties != nil && item.Properties.ContentLength != nil {
					entry.Size = *item.Properties.ContentLength
				}
				if item.Properties != nil && item.Properties.LastModified != nil {
					entry.TimeModified = *item.Properties.LastModified
				}
			}
			out = append(out, entry)
		}
	}
	return out, nil
}

func (d *Driver) NewRead(ctx context.Context, path string) (io.ReadCloser, error) {
	resp, err := d.client.DownloadStream(ctx, d.container, d.blobName(path), nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotExist, path)
		}
		return nil, err
	}
	return resp.Body, nil
}

// NewWrite buffers the write in memory and uploads on Close, since
// azblob's block-blob upload API takes a whole io.ReadSeekCloser rather
// than a streaming writer.
func (d *Driver) NewWrite(ctx context.Context, path string, opts storage.WriteOptions) (io.WriteCloser, error) {
	return &blobWriter{ctx: ctx, client: d.client, container: d.container, blob: d.blobName(path)}, nil
}

func (d *Driver) PathCreate(ctx context.Context, path string) error {
	return nil
}

func (d *Driver) PathRemove(ctx context.Context, path string, recursive bool) error {
	if !recursive {
		return d.Remove(ctx, path)
	}
	entries, err := d.List(ctx, path, storage.LevelExists)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := d.Remove(ctx, strings.TrimRight(path, "/")+"/"+e.Name); err != nil {
			return err
		}
	}
	return nil
}

// PathSync is a no-op: Azure Blob has no directory entity to fsync.
func (d *Driver) PathSync(ctx context.Context, path string) error {
	return nil
}

// Move copies then deletes the source blob — Azure has no rename. Like
// s3.Driver.Move, it either completes fully or returns an error, so
// sameFilesystem is true on success.
func (d *Driver) Move(ctx context.Context, src, dst string) (bool, error) {
	srcURL := d.client.ServiceClient().NewContainerClient(d.container).NewBlobClient(d.blobName(src)).URL()
	_, err := d.client.ServiceClient().NewContainerClient(d.container).NewBlobClient(d.blobName(dst)).StartCopyFromURL(ctx, srcURL, nil)
	if err != nil {
		return false, err
	}
	if err := d.Remove(ctx, src); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Driver) Remove(ctx context.Context, path string) error {
	_, err := d.client.DeleteBlob(ctx, d.container, d.blobName(path), nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return fmt.Errorf("%w: %s", storage.ErrNotExist, path)
	}
	return err
}

type blobWriter struct {
	ctx       context.Context
	client    *azblob.Client
	container string
	blob      string
	buf       bytes.Buffer
}

func (w *blobWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *blobWriter) Close() error {
	_, err := w.client.UploadBuffer(w.ctx, w.container, w.blob, w.buf.Bytes(), nil)
	return err
}
