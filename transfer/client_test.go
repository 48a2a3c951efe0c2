package transfer_test

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/pablogventura/likebook-wifi-book-uploader/devicetest"
	"github.com/pablogventura/likebook-wifi-book-uploader/transfer"
	"github.com/pablogventura/likebook-wifi-book-uploader/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestClient spins up a fake device and a client pointed at it.
func newTestClient(t *testing.T) (*transfer.Client, *devicetest.Server) {
	t.Helper()
	srv := devicetest.New()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("parse test server URL: %v", err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("split host: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}

	client := transfer.NewClient(transfer.Config{
		Device: types.DeviceAddress{Host: host, Port: port},
	})
	return client, srv
}

func TestListBooks(t *testing.T) {
	client, srv := newTestClient(t)
	srv.Seed("a.epub", []byte("aaa"))
	srv.Seed("b.pdf", []byte("bbbb"))

	books, err := client.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(books) != 2 {
		t.Fatalf("len(books) = %d, want 2", len(books))
	}
	if books[0].Index != 1 || books[0].Name != "a.epub" {
		t.Errorf("books[0] = %+v", books[0])
	}
	if books[1].Index != 2 || books[1].Name != "b.pdf" {
		t.Errorf("books[1] = %+v", books[1])
	}
}

func TestListEmptyDevice(t *testing.T) {
	client, _ := newTestClient(t)

	books, err := client.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if books == nil || len(books) != 0 {
		t.Fatalf("books = %v, want empty slice", books)
	}
}

func TestListUnreachableDevice(t *testing.T) {
	client := transfer.NewClient(transfer.Config{
		Device: types.DeviceAddress{Host: "127.0.0.1", Port: reservedPort(t)},
	})
	_, err := client.List(context.Background())
	if !errors.Is(err, types.ErrCommunication) {
		t.Fatalf("err = %v, want ErrCommunication", err)
	}
}

func reservedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

func TestResolveByIndexAndName(t *testing.T) {
	client, srv := newTestClient(t)
	srv.Seed("a.epub", []byte("aaa"))
	srv.Seed("b.pdf", []byte("bbbb"))
	ctx := context.Background()

	book, err := client.Resolve(ctx, "2")
	if err != nil {
		t.Fatalf("Resolve(2): %v", err)
	}
	if book.Name != "b.pdf" {
		t.Errorf("Resolve(2).Name = %q, want b.pdf", book.Name)
	}

	book, err = client.Resolve(ctx, "a.epub")
	if err != nil {
		t.Fatalf("Resolve(a.epub): %v", err)
	}
	if book.Name != "a.epub" || book.Index != 1 {
		t.Errorf("Resolve(a.epub) = %+v, want index 1", book)
	}

	if _, err := client.Resolve(ctx, "3"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Resolve(3) err = %v, want ErrNotFound", err)
	}
	if _, err := client.Resolve(ctx, "missing.pdf"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Resolve(missing.pdf) err = %v, want ErrNotFound", err)
	}
}

func TestResolveConsistentWithList(t *testing.T) {
	client, srv := newTestClient(t)
	srv.Seed("a.epub", []byte("aaa"))
	srv.Seed("b.pdf", []byte("bbbb"))
	srv.Seed("c.mobi", []byte("cc"))
	ctx := context.Background()

	books, err := client.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, want := range books {
		byIndex, err := client.Resolve(ctx, strconv.Itoa(want.Index))
		if err != nil {
			t.Fatalf("Resolve(%d): %v", want.Index, err)
		}
		if byIndex != want {
			t.Errorf("Resolve(%d) = %+v, want %+v", want.Index, byIndex, want)
		}
		byName, err := client.Resolve(ctx, want.Name)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", want.Name, err)
		}
		if byName != want {
			t.Errorf("Resolve(%q) = %+v, want %+v", want.Name, byName, want)
		}
	}
}

func TestDownloadRoundTrip(t *testing.T) {
	client, srv := newTestClient(t)
	content := []byte("the full epub content, byte for byte")
	srv.Seed("roundtrip.epub", content)

	outDir := filepath.Join(t.TempDir(), "books", "nested")
	path, err := client.Download(context.Background(), "roundtrip.epub", outDir)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if path != filepath.Join(outDir, "roundtrip.epub") {
		t.Errorf("path = %q", path)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("downloaded bytes differ: got %q, want %q", got, content)
	}

	// No partial file may survive a successful download.
	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".partial-") {
			t.Errorf("leftover partial file: %s", e.Name())
		}
	}
}

func TestDownloadOverwritesExistingFile(t *testing.T) {
	client, srv := newTestClient(t)
	srv.Seed("book.pdf", []byte("fresh content"))

	outDir := t.TempDir()
	dest := filepath.Join(outDir, "book.pdf")
	if err := os.WriteFile(dest, []byte("stale"), 0o644); err != nil {
		t.Fatalf("write stale file: %v", err)
	}

	if _, err := client.Download(context.Background(), "book.pdf", outDir); err != nil {
		t.Fatalf("Download: %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "fresh content" {
		t.Errorf("content = %q, want overwrite with %q", got, "fresh content")
	}
}

func TestDownloadByIndex(t *testing.T) {
	client, srv := newTestClient(t)
	srv.Seed("first.epub", []byte("one"))
	srv.Seed("second.epub", []byte("two"))

	path, err := client.Download(context.Background(), "2", t.TempDir())
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if filepath.Base(path) != "second.epub" {
		t.Errorf("downloaded %q, want second.epub", filepath.Base(path))
	}
}

func TestDownloadUnknownIdentifier(t *testing.T) {
	client, srv := newTestClient(t)
	srv.Seed("a.epub", []byte("aaa"))

	_, err := client.Download(context.Background(), "nope.pdf", t.TempDir())
	if !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func writeUploadFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}

func TestUploadContinuesPastFailures(t *testing.T) {
	client, srv := newTestClient(t)
	dir := t.TempDir()

	first := writeUploadFixture(t, dir, "first.epub", "first")
	missing := filepath.Join(dir, "missing.pdf")
	third := writeUploadFixture(t, dir, "third.mobi", "third")

	results := client.Upload(context.Background(), []string{first, missing, third})
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	if results[0].Err != nil {
		t.Errorf("results[0].Err = %v, want nil", results[0].Err)
	}
	if results[1].Err == nil {
		t.Error("results[1].Err = nil, want failure for missing file")
	} else if !errors.Is(results[1].Err, types.ErrFilesystem) {
		t.Errorf("results[1].Err = %v, want ErrFilesystem", results[1].Err)
	}
	if results[2].Err != nil {
		t.Errorf("results[2].Err = %v, want nil", results[2].Err)
	}

	books := srv.Books()
	if len(books) != 2 || books[0] != "first.epub" || books[1] != "third.mobi" {
		t.Errorf("device books = %v, want [first.epub third.mobi]", books)
	}
}

func TestUploadRejectsUnsupportedFormat(t *testing.T) {
	client, srv := newTestClient(t)
	dir := t.TempDir()
	photo := writeUploadFixture(t, dir, "photo.jpg", "jpeg bytes")

	results := client.Upload(context.Background(), []string{photo})
	if len(results) != 1 || results[0].Err == nil {
		t.Fatalf("results = %+v, want one failure", results)
	}
	if !errors.Is(results[0].Err, types.ErrFilesystem) {
		t.Errorf("err = %v, want ErrFilesystem", results[0].Err)
	}
	if len(srv.Books()) != 0 {
		t.Errorf("device books = %v, want none", srv.Books())
	}
}

func TestUploadThenListRoundTrip(t *testing.T) {
	client, srv := newTestClient(t)
	dir := t.TempDir()
	path := writeUploadFixture(t, dir, "novel.epub", "novel content")

	results := client.Upload(context.Background(), []string{path})
	if results[0].Err != nil {
		t.Fatalf("Upload: %v", results[0].Err)
	}

	books, err := client.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(books) != 1 || books[0].Name != "novel.epub" {
		t.Fatalf("books = %+v, want the uploaded novel", books)
	}
	if stored := srv.Books(); len(stored) != 1 || stored[0] != "novel.epub" {
		t.Errorf("device books = %v, want [novel.epub]", stored)
	}
}

func TestDeleteConfirmed(t *testing.T) {
	client, srv := newTestClient(t)
	srv.Seed("doomed.pdf", []byte("xx"))

	var promptedName string
	err := client.Delete(context.Background(), "doomed.pdf", func(name string) bool {
		promptedName = name
		return true
	})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if promptedName != "doomed.pdf" {
		t.Errorf("confirm saw %q, want doomed.pdf", promptedName)
	}
	if len(srv.Books()) != 0 {
		t.Errorf("device books = %v, want none", srv.Books())
	}
}

func TestDeleteDeclinedSendsNothing(t *testing.T) {
	client, srv := newTestClient(t)
	srv.Seed("survivor.epub", []byte("xx"))

	err := client.Delete(context.Background(), "1", func(string) bool { return false })
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}

	for _, r := range srv.Requests() {
		if strings.HasPrefix(r, "POST ") {
			t.Errorf("unexpected request sent after declined confirmation: %s", r)
		}
	}

	books, err := client.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(books) != 1 || books[0].Name != "survivor.epub" {
		t.Errorf("books = %+v, want the survivor untouched", books)
	}
}

func TestDeleteByIndexPreConfirmed(t *testing.T) {
	client, srv := newTestClient(t)
	srv.Seed("a.epub", []byte("a"))
	srv.Seed("b.pdf", []byte("b"))

	if err := client.Delete(context.Background(), "1", nil); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	books := srv.Books()
	if len(books) != 1 || books[0] != "b.pdf" {
		t.Errorf("device books = %v, want [b.pdf]", books)
	}
}

func TestDeleteUnknownIdentifier(t *testing.T) {
	client, _ := newTestClient(t)

	err := client.Delete(context.Background(), "42", nil)
	if !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestResolveDuplicateNameFirstWins(t *testing.T) {
	// The firmware should not list duplicate names, but if it ever does,
	// resolution takes the lowest-index match.
	books := []types.BookEntry{
		{Index: 1, Name: "dup.epub", Size: "1 KB"},
		{Index: 2, Name: "dup.epub", Size: "2 KB"},
	}
	got, err := transfer.ResolveEntry(books, "dup.epub")
	if err != nil {
		t.Fatalf("ResolveEntry: %v", err)
	}
	if got.Index != 1 {
		t.Errorf("Index = %d, want first match 1", got.Index)
	}
}
