package tool

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// supportedFormats lists the extensions the firmware accepts for upload.
var supportedFormats = map[string]struct{}{
	"epub": {}, "txt": {}, "pdf": {}, "mobi": {}, "azw": {}, "azw3": {},
	"fb2": {}, "doc": {}, "docx": {}, "htm": {}, "html": {}, "cbz": {},
	"cbt": {}, "cbr": {}, "jvu": {}, "djvu": {}, "djv": {}, "rtf": {},
	"zip": {}, "rar": {},
}

// IsSupportedBookFormat reports whether the file name carries an extension
// the device accepts. Matching is case-insensitive.
func IsSupportedBookFormat(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	_, ok := supportedFormats[ext]
	return ok
}

// StatRegularFile verifies path points at a readable regular file and
// returns its base name and size.
func StatRegularFile(path string) (string, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", 0, err
	}
	if info.IsDir() {
		return "", 0, fmt.Errorf("path %s is a directory, not a file", path)
	}
	return filepath.Base(path), info.Size(), nil
}
