package main

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	timePlaceholder = "{time}"
	sniffLen        = 512
)

var errNotRegularFile = errors.New("not a regular file")

// Whitelist is the fixed set of request paths the server will answer with a
// file. Matching is exact, case-sensitive string equality.
type Whitelist struct {
	paths []string
	set   map[string]struct{}
}

func NewWhitelist(paths []string) Whitelist {
	w := Whitelist{
		paths: make([]string, 0, len(paths)),
		set:   make(map[string]struct{}, len(paths)),
	}
	for _, p := range paths {
		if _, ok := w.set[p]; ok {
			continue
		}
		w.paths = append(w.paths, p)
		w.set[p] = struct{}{}
	}
	return w
}

func (w Whitelist) Contains(path string) bool {
	_, ok := w.set[path]
	return ok
}

// Paths returns the entries in configuration order.
func (w Whitelist) Paths() []string {
	out := make([]string, len(w.paths))
	copy(out, w.paths)
	return out
}

// resolvePath maps a validated request path onto the document root.
func resolvePath(root, path string) string {
	if len(path) > 0 {
		path = path[1:]
	}
	return filepath.Join(root, filepath.FromSlash(path))
}

type resolvedFile struct {
	path        string
	contentType string
	size        int64
	file        *os.File
}

func (f *resolvedFile) Close() error {
	return f.file.Close()
}

// openFile opens a regular file for streaming and works out its length and
// content type. The returned file is positioned at offset 0.
func openFile(path string) (*resolvedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, errNotRegularFile)
	}

	contentType, err := probeContentType(path, f)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &resolvedFile{
		path:        path,
		contentType: contentType,
		size:        info.Size(),
		file:        f,
	}, nil
}

// probeContentType uses the extension first and sniffs the leading bytes
// of r when the extension is unknown. r is rewound afterwards.
func probeContentType(path string, r io.ReadSeeker) (string, error) {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct, nil
	}

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", fmt.Errorf("sniff %s: %w", path, err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind %s: %w", path, err)
	}
	if n == 0 {
		return defaultContentType, nil
	}
	return http.DetectContentType(buf[:n]), nil
}

// renderTemplate reads the template at path and replaces every {time}
// placeholder with now.
func renderTemplate(path string, now time.Time) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, "", fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, "", fmt.Errorf("%s: %w", path, errNotRegularFile)
	}

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	if !utf8.Valid(raw) {
		return nil, "", fmt.Errorf("template %s is not valid UTF-8", path)
	}

	body := []byte(strings.ReplaceAll(string(raw), timePlaceholder, formatTime(now)))

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	return body, contentType, nil
}

// formatTime renders t as a local ISO-8601 date-time. Seconds are left out
// when they and the fraction are zero, and the fraction is printed as 3, 6
// or 9 digits, the shortest width that holds it exactly.
func formatTime(t time.Time) string {
	t = t.Local()
	out := t.Format("2006-01-02T15:04")

	sec, nano := t.Second(), t.Nanosecond()
	if sec == 0 && nano == 0 {
		return out
	}
	out += fmt.Sprintf(":%02d", sec)

	switch {
	case nano == 0:
	case nano%1_000_000 == 0:
		out += "." + pad(nano/1_000_000, 3)
	case nano%1_000 == 0:
		out += "." + pad(nano/1_000, 6)
	default:
		out += "." + pad(nano, 9)
	}
	return out
}

func pad(n, width int) string {
	s := strconv.Itoa(n)
	return strings.Repeat("0", width-len(s)) + s
}
