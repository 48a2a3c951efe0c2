// Package devicetest provides an in-memory stand-in for the WiFi Book
// Transfer firmware. It serves the same endpoints as the device so the
// scanner, the transfer client, and manual CLI runs can be exercised
// without hardware.
package devicetest

import (
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
)

// Book is one stored file on the fake device.
type Book struct {
	Name string
	Data []byte
}

// Server holds the fake device state. Books keep insertion order, matching
// the firmware's order-stable listing.
type Server struct {
	mu       sync.Mutex
	books    []Book
	requests []string
	engine   *gin.Engine
}

type listedFile struct {
	Name string `json:"name"`
	Size string `json:"size"`
}

// New creates a fake device with an empty library.
func New() *Server {
	s := &Server{}
	engine := gin.New()
	engine.Use(s.recordRequest)

	engine.GET("/files", s.listFiles)
	engine.GET("/files/:name", s.downloadFile)
	engine.POST("/files", s.uploadFile)
	engine.POST("/files/:name", s.deleteFile)

	s.engine = engine
	return s
}

// Handler returns the device's HTTP handler, ready for httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Seed stores a book directly, bypassing the upload endpoint.
func (s *Server) Seed(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setBook(name, data)
}

// Books returns the stored book names in listing order.
func (s *Server) Books() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.books))
	for _, b := range s.books {
		names = append(names, b.Name)
	}
	return names
}

// Requests returns every request seen so far as "METHOD /path" strings.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Server) recordRequest(c *gin.Context) {
	s.mu.Lock()
	s.requests = append(s.requests, c.Request.Method+" "+c.Request.URL.Path)
	s.mu.Unlock()
	c.Next()
}

func (s *Server) listFiles(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	files := make([]listedFile, 0, len(s.books))
	for _, b := range s.books {
		files = append(files, listedFile{Name: b.Name, Size: humanSize(len(b.Data))})
	}
	c.JSON(http.StatusOK, files)
}

func (s *Server) downloadFile(c *gin.Context) {
	name := c.Param("name")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.books {
		if b.Name == name {
			c.Data(http.StatusOK, "application/octet-stream", b.Data)
			return
		}
	}
	c.String(http.StatusNotFound, "file not found")
}

func (s *Server) uploadFile(c *gin.Context) {
	fh, err := c.FormFile("newfile")
	if err != nil {
		c.String(http.StatusBadRequest, "missing newfile part")
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.String(http.StatusInternalServerError, "open upload")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.String(http.StatusInternalServerError, "read upload")
		return
	}

	// The real firmware trusts the escaped fileName field over the part name.
	name := fh.Filename
	if escaped := c.PostForm("fileName"); escaped != "" {
		if unescaped, err := url.PathUnescape(escaped); err == nil && unescaped != "" {
			name = unescaped
		}
	}

	s.mu.Lock()
	s.setBook(name, data)
	s.mu.Unlock()
	c.String(http.StatusOK, "ok")
}

func (s *Server) deleteFile(c *gin.Context) {
	if c.PostForm("_method") != "delete" {
		c.String(http.StatusBadRequest, "unsupported method override")
		return
	}
	name := c.Param("name")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.books {
		if b.Name == name {
			s.books = append(s.books[:i], s.books[i+1:]...)
			c.String(http.StatusOK, "deleted")
			return
		}
	}
	c.String(http.StatusNotFound, "file not found")
}

// setBook replaces an existing book of the same name or appends a new one.
// Callers must hold mu.
func (s *Server) setBook(name string, data []byte) {
	for i, b := range s.books {
		if b.Name == name {
			s.books[i].Data = data
			return
		}
	}
	s.books = append(s.books, Book{Name: name, Data: data})
}

func humanSize(n int) string {
	switch {
	case n >= 1<<20:
		return strconv.Itoa(n>>20) + " MB"
	case n >= 1<<10:
		return strconv.Itoa(n>>10) + " KB"
	default:
		return strconv.Itoa(n) + " B"
	}
}
