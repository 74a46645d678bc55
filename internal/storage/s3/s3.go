// Package s3 implements storage.Interface over the S3 REST API, signing
// every request with a hand-rolled AWS SigV4 implementation (see
// sigv4.go) instead of an SDK.
package s3

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aalhour/pgbackrest-go/internal/storage"
)

// Config describes the bucket and credentials a Driver signs requests
// with.
type Config struct {
	Endpoint        string // e.g. "https://s3.amazonaws.com" or a compatible host
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SecurityToken   string // optional, for temporary credentials

	// PartSize is the size of each part in a multi-part upload. Uploads
	// smaller than PartSize use a single PUT instead.
	PartSize int64

	HTTPClient *http.Client
}

// Driver is a storage.Interface backed by S3-compatible object storage.
type Driver struct {
	cfg    Config
	signer *signer
	client *http.Client
}

// New constructs a Driver from cfg.
func New(cfg Config) *Driver {
	if cfg.PartSize == 0 {
		cfg.PartSize = 16 * 1024 * 1024
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &Driver{
		cfg:    cfg,
		signer: newSigner(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SecurityToken, cfg.Region),
		client: client,
	}
}

func (d *Driver) Features() storage.Feature {
	return 0
}

func (d *Driver) objectURL(key string) string {
	return strings.TrimRight(d.cfg.Endpoint, "/") + "/" + d.cfg.Bucket + "/" + strings.TrimLeft(key, "/")
}

// do signs and executes req, returning the response. Callers are
// responsible for closing resp.Body.
func (d *Driver) do(ctx context.Context, req *http.Request, body []byte) (*http.Response, error) {
	req = req.WithContext(ctx)
	d.signer.sign(req, payloadHashHex(body), time.Now().UTC())
	return d.client.Do(req)
}

// Info HEADs the object. S3 objects carry no mode/owner/link metadata, so
// level only distinguishes how much of the HEAD response is parsed — the
// request itself is unavoidable at any level, since a remote HEAD is the
// only way to confirm existence.
func (d *Driver) Info(ctx context.Context, path string, level storage.Level) (storage.Info, error) {
	req, err := http.NewRequest(http.MethodHead, d.objectURL(path), nil)
	if err != nil {
		return storage.Info{}, err
	}
	resp, err := d.do(ctx, req, nil)
	if err != nil {
		return storage.Info{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return storage.Info{}, fmt.Errorf("%w: %s", storage.ErrNotExist, path)
	}
	if resp.StatusCode != http.StatusOK {
		return storage.Info{}, fmt.Errorf("s3: HEAD %s: status %d", path, resp.StatusCode)
	}

	out := storage.Info{Name: path, Exists: true}
	if level < storage.LevelType {
		return out, nil
	}
	out.Type = storage.TypeFile
	if level < storage.LevelBasic {
		return out, nil
	}
	out.Size, _ = strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	out.TimeModified, _ = time.Parse(http.TimeFormat, resp.Header.Get("Last-Modified"))
	return out, nil
}

// listBucketResult models the ListObjectsV2 XML response body.
type listBucketResult struct {
	XMLName               xml.Name `xml:"ListBucketResult"`
	IsTruncated           bool     `xml:"IsTruncated"`
	NextContinuationToken string   `xml:"NextContinuationToken"`
	Contents              []struct {
		Key          string `xml:"Key"`
		Size         int64  `xml:"Size"`
		LastModified string `xml:"LastModified"`
	} `xml:"Contents"`
}

// List uses ListObjectsV2 (list-type=2) with continuation tokens,
// per §4.2/§6.
func (d *Driver) List(ctx context.Context, path string, level storage.Level) ([]storage.Info, error) {
	prefix := strings.TrimPrefix(path, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var out []storage.Info
	token := ""
	for {
		q := url.Values{}
		q.Set("list-type", "2")
		q.Set("prefix", prefix)
		q.Set("delimiter", "/")
		if token != "" {
			q.Set("continuation-token", token)
		}

		reqURL := strings.TrimRight(d.cfg.Endpoint, "/") + "/" + d.cfg.Bucket + "?" + q.Encode()
		req, err := http.NewRequest(http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := d.do(ctx, req, nil)
		if err != nil {
			return nil, err
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("s3: list %s: status %d", path, resp.StatusCode)
		}

		var parsed listBucketResult
		if err := xml.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("s3: list response: %w", err)
		}
		for _, c := range parsed.Contents {
			entry := storage.Info{Name: strings.TrimPrefix(c.Key, prefix), Exists: true}
			if level >= storage.LevelType {
				entry.Type = storage.TypeFile
			}
			if level >= storage.LevelBasic {
				entry.Size = c.Size
				entry.TimeModified, _ = time.Parse(time.RFC3339, c.LastModified)
			}
			out = append(out, entry)
		}

		if !parsed.IsTruncated {
			break
		}
		token = parsed.NextContinuationToken
	}
	return out, nil
}

func (d *Driver) NewRead(ctx context.Context, path string) (io.ReadCloser, error) {
	req, err := http.NewRequest(http.MethodGet, d.objectURL(path), nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.do(ctx, req, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", storage.ErrNotExist, path)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("s3: GET %s: status %d", path, resp.StatusCode)
	}
	return resp.Body, nil
}

// NewWrite buffers the object in memory and uploads it whole (or via
// multi-part, for objects at or above PartSize) on Close.
func (d *Driver) NewWrite(ctx context.Context, path string, opts storage.WriteOptions) (io.WriteCloser, error) {
	return &objectWriter{ctx: ctx, d: d, key: path}, nil
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

// PathSync is a no-op: S3 has no directory entity to fsync.
func (d *Driver) PathSync(ctx context.Context, path string) error {
	return nil
}

// Move is implemented as a server-side copy followed by delete, since the
// S3 API has no rename operation. It always either completes the move
// fully or returns an error — there is no partial "cross-device" state
// for an object store to report, so sameFilesystem is true on success
// (the move needed no help from storage.MoveOrCopy's local-copy fallback).
func (d *Driver) Move(ctx context.Context, src, dst string) (bool, error) {
	req, err := http.NewRequest(http.MethodPut, d.objectURL(dst), nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("x-amz-copy-source", "/"+d.cfg.Bucket+"/"+strings.TrimLeft(src, "/"))
	resp, err := d.do(ctx, req, nil)
	if err != nil {
		return false, err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("s3: copy %s -> %s: status %d", src, dst, resp.StatusCode)
	}
	if err := d.Remove(ctx, src); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Driver) Remove(ctx context.Context, path string) error {
	req, err := http.NewRequest(http.MethodDelete, d.objectURL(path), nil)
	if err != nil {
		return err
	}
	resp, err := d.do(ctx, req, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("s3: delete %s: status %d", path, resp.StatusCode)
	}
	return nil
}

type objectWriter struct {
	ctx context.Context
	d   *Driver
	key string
	buf bytes.Buffer
}

func (w *objectWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *objectWriter) Close() error {
	if int64(w.buf.Len()) < w.d.cfg.PartSize {
		return w.putWhole()
	}
	return w.putMultipart()
}

func (w *objectWriter) putWhole() error {
	body := w.buf.Bytes()
	req, err := http.NewRequest(http.MethodPut, w.d.objectURL(w.key), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.ContentLength = int64(len(body))
	resp, err := w.d.do(w.ctx, req, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("s3: put %s: status %d", w.key, resp.StatusCode)
	}
	return nil
}

type initiateMultipartResult struct {
	UploadID string `xml:"UploadId"`
}

type completeMultipartRequest struct {
	XMLName xml.Name `xml:"CompleteMultipartUpload"`
	Parts   []completedPart
}

type completedPart struct {
	XMLName    xml.Name `xml:"Part"`
	PartNumber int      `xml:"PartNumber"`
	ETag       string   `xml:"ETag"`
}

func (w *objectWriter) putMultipart() error {
	uploadID, err := w.initiateMultipart()
	if err != nil {
		return err
	}

	data := w.buf.Bytes()
	var parts []completedPart
	partSize := w.d.cfg.PartSize
	for i, offset := 0, int64(0); offset < int64(len(data)); i, offset = i+1, offset+partSize {
		end := offset + partSize
		if end > int64(len(data)) {
			end = int64(len(data))
		}
		etag, err := w.uploadPart(uploadID, i+1, data[offset:end])
		if err != nil {
			return err
		}
		parts = append(parts, completedPart{PartNumber: i + 1, ETag: etag})
	}
	return w.completeMultipart(uploadID, parts)
}

func (w *objectWriter) initiateMultipart() (string, error) {
	reqURL := w.d.objectURL(w.key) + "?uploads"
	req, err := http.NewRequest(http.MethodPost, reqURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := w.d.do(w.ctx, req, nil)
	if err != nil {
		return "", err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("s3: initiate multipart %s: status %d", w.key, resp.StatusCode)
	}

	var parsed initiateMultipartResult
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("s3: initiate multipart response: %w", err)
	}
	return parsed.UploadID, nil
}

func (w *objectWriter) uploadPart(uploadID string, partNumber int, data []byte) (string, error) {
	q := url.Values{}
	q.Set("partNumber", strconv.Itoa(partNumber))
	q.Set("uploadId", uploadID)
	reqURL := w.d.objectURL(w.key) + "?" + q.Encode()

	req, err := http.NewRequest(http.MethodPut, reqURL, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.ContentLength = int64(len(data))
	resp, err := w.d.do(w.ctx, req, data)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("s3: upload part %d of %s: status %d", partNumber, w.key, resp.StatusCode)
	}
	return resp.Header.Get("ETag"), nil
}

func (w *objectWriter) completeMultipart(uploadID string, parts []completedPart) error {
	payload := completeMultipartRequest{Parts: parts}
	body, err := xml.Marshal(payload)
	if err != nil {
		return err
	}

	q := url.Values{}
	q.Set("uploadId", uploadID)
	reqURL := w.d.objectURL(w.key) + "?" + q.Encode()

	req, err := http.NewRequest(http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.ContentLength = int64(len(body))
	resp, err := w.d.do(w.ctx, req, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("s3: complete multipart %s: status %d", w.key, resp.StatusCode)
	}
	return nil
}
