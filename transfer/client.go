// Package transfer implements the book operations against a resolved
// device address: list, resolve, download, upload, delete. Every operation
// is an independent request/response cycle; the client keeps no state
// between calls.
package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/pablogventura/likebook-wifi-book-uploader/listing"
	"github.com/pablogventura/likebook-wifi-book-uploader/tool"
	"github.com/pablogventura/likebook-wifi-book-uploader/types"
)

// ConfirmFunc gates a destructive operation. It receives the resolved book
// name and returns true to proceed.
type ConfirmFunc func(name string) bool

// Config carries the explicit dependencies of a Client.
type Config struct {
	Device     types.DeviceAddress
	Parser     listing.Parser // defaults to JSONParser
	HTTPClient *http.Client
	Logger     *log.Logger
}

// Client performs book operations against one device.
type Client struct {
	device types.DeviceAddress
	parser listing.Parser
	http   *http.Client
	logger *log.Logger
}

// NewClient builds a Client, filling unset Config fields with defaults.
func NewClient(cfg Config) *Client {
	if cfg.Parser == nil {
		cfg.Parser = listing.JSONParser{}
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = tool.NewTransferHTTPClient(tool.DefaultTransferTimeout)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Client{
		device: cfg.Device,
		parser: cfg.Parser,
		http:   cfg.HTTPClient,
		logger: cfg.Logger,
	}
}

// List fetches the device's current book set. A device with zero books
// yields an empty slice, not an error.
func (c *Client) List(ctx context.Context) ([]types.BookEntry, error) {
	u := buildListURL(c.device)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create listing request: %w", types.ErrCommunication, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch listing from %s: %w", types.ErrCommunication, c.device.HostPort(), err)
	}
	defer c.closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: listing request failed: %s", types.ErrCommunication, resp.Status)
	}

	books, err := c.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrCommunication, err)
	}
	c.logger.Debugf("Device reports %d books", len(books))
	return books, nil
}

// Resolve matches a user-supplied identifier against a fresh listing.
// A numeric identifier selects by 1-based index, anything else by exact
// name. With duplicate names the first (lowest-index) match wins.
func (c *Client) Resolve(ctx context.Context, identifier string) (types.BookEntry, error) {
	books, err := c.List(ctx)
	if err != nil {
		return types.BookEntry{}, err
	}
	return ResolveEntry(books, identifier)
}

// ResolveEntry matches identifier against an already-fetched listing using
// the same rules as Resolve.
func ResolveEntry(books []types.BookEntry, identifier string) (types.BookEntry, error) {
	identifier = strings.TrimSpace(identifier)
	if idx, err := strconv.Atoi(identifier); err == nil {
		for _, b := range books {
			if b.Index == idx {
				return b, nil
			}
		}
		return types.BookEntry{}, fmt.Errorf("%w: no book at index %d (device lists %d)", types.ErrNotFound, idx, len(books))
	}
	for _, b := range books {
		if b.Name == identifier {
			return b, nil
		}
	}
	return types.BookEntry{}, fmt.Errorf("%w: no book named %q", types.ErrNotFound, identifier)
}

// Download resolves identifier, fetches the book's bytes, and writes them
// to outputDir/name, creating outputDir if needed. An existing file at the
// destination is overwritten. Returns the saved path.
func (c *Client) Download(ctx context.Context, identifier, outputDir string) (string, error) {
	book, err := c.Resolve(ctx, identifier)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: failed to create output directory %s: %w", types.ErrFilesystem, outputDir, err)
	}

	u := buildFileURL(c.device, book.Name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create download request: %w", types.ErrCommunication, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: failed to download %q: %w", types.ErrCommunication, book.Name, err)
	}
	defer c.closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: download of %q failed: %s", types.ErrCommunication, book.Name, resp.Status)
	}

	dest := filepath.Join(outputDir, book.Name)
	if err := writeAtomically(dest, resp.Body); err != nil {
		return "", err
	}
	c.logger.Infof("Saved %q to %s", book.Name, dest)
	return dest, nil
}

// writeAtomically streams r into a temp file next to dest and renames it
// into place, so an interrupted transfer never leaves a truncated book
// under the final name.
func writeAtomically(dest string, r io.Reader) error {
	tmp := dest + ".partial-" + uuid.NewString()
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("%w: failed to create %s: %w", types.ErrFilesystem, tmp, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("%w: failed to write %s: %w", types.ErrCommunication, tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: failed to close %s: %w", types.ErrFilesystem, tmp, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: failed to move download into place: %w", types.ErrFilesystem, err)
	}
	return nil
}

// Upload sends each local file to the device, in order, best-effort: a
// failed file is recorded and the rest still upload. The result slice
// covers every input path.
func (c *Client) Upload(ctx context.Context, paths []string) []types.UploadResult {
	results := make([]types.UploadResult, 0, len(paths))
	for _, path := range paths {
		name := filepath.Base(path)
		err := c.uploadOne(ctx, path)
		if err != nil {
			c.logger.Errorf("Upload of %s failed: %v", path, err)
		} else {
			c.logger.Infof("Uploaded %s", name)
		}
		results = append(results, types.UploadResult{Path: path, Name: name, Err: err})
	}
	return results
}

func (c *Client) uploadOne(ctx context.Context, path string) error {
	name, _, err := tool.StatRegularFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrFilesystem, err)
	}
	if !tool.IsSupportedBookFormat(name) {
		return fmt.Errorf("%w: unsupported format: %s", types.ErrFilesystem, name)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: failed to read %s: %w", types.ErrFilesystem, path, err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("newfile", name)
	if err != nil {
		return fmt.Errorf("%w: failed to build upload body: %w", types.ErrCommunication, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("%w: failed to read %s: %w", types.ErrFilesystem, path, err)
	}
	if err := writer.WriteField("fileName", url.PathEscape(name)); err != nil {
		return fmt.Errorf("%w: failed to build upload body: %w", types.ErrCommunication, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("%w: failed to build upload body: %w", types.ErrCommunication, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, buildUploadURL(c.device), &body)
	if err != nil {
		return fmt.Errorf("%w: failed to create upload request: %w", types.ErrCommunication, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to upload %q: %w", types.ErrCommunication, name, err)
	}
	defer c.closeBody(resp)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: device rejected %q: %s", types.ErrCommunication, name, resp.Status)
	}
	return nil
}

// Delete resolves identifier and asks the device to remove the book. The
// confirm gate runs after resolution so the prompt can show the real name;
// a nil confirm means the caller already confirmed. A declined confirmation
// sends nothing and returns nil.
func (c *Client) Delete(ctx context.Context, identifier string, confirm ConfirmFunc) error {
	book, err := c.Resolve(ctx, identifier)
	if err != nil {
		return err
	}
	if confirm != nil && !confirm(book.Name) {
		c.logger.Infof("Delete of %q cancelled", book.Name)
		return nil
	}

	form := url.Values{"_method": {"delete"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		buildFileURL(c.device, book.Name), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: failed to create delete request: %w", types.ErrCommunication, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to delete %q: %w", types.ErrCommunication, book.Name, err)
	}
	defer c.closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: delete of %q failed: %s", types.ErrCommunication, book.Name, resp.Status)
	}
	c.logger.Infof("Deleted %q", book.Name)
	return nil
}

func (c *Client) closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		c.logger.Errorf("Failed to close response body: %v", err)
	}
}
