// Package assets validates and fetches image uploads for image components.
package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/pagecraft/internal/apperr"
)

// MaxSize is the largest accepted asset.
const MaxSize = 10 << 20 // 10 MB

// URLPrefix is the public path under which assets are served.
const URLPrefix = "/assets/"

var (
	allowedExtensions = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true,
		".gif": true, ".webp": true, ".svg": true,
	}

	mimeToExt = map[string]string{
		"image/png":     ".png",
		"image/jpeg":    ".jpg",
		"image/gif":     ".gif",
		"image/webp":    ".webp",
		"image/svg+xml": ".svg",
	}

	safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

// Asset describes a stored upload.
type Asset struct {
	Filename string `json:"filename"`
	Size     int    `json:"size"`
	URL      string `json:"url"`
}

// Writer stores validated asset bytes.
type Writer interface {
	WriteAsset(name string, data []byte) error
}

// Save validates data against the extension of filename and stores it.
// An empty filename gets a generated one based on fallbackExt.
func Save(w Writer, filename, fallbackExt string, data []byte) (*Asset, error) {
	if len(data) > MaxSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d): %w", len(data), MaxSize, apperr.ErrInvalidInput)
	}
	if filename == "" {
		filename = generatedName(fallbackExt)
	}
	filename = SanitizeFilename(filename)

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return nil, fmt.Errorf("unsupported file extension %q (allowed: png, jpg, jpeg, gif, webp, svg): %w", ext, apperr.ErrInvalidInput)
	}
	if err := ValidateMagicBytes(data, ext); err != nil {
		return nil, err
	}
	if err := w.WriteAsset(filename, data); err != nil {
		return nil, err
	}
	return &Asset{Filename: filename, Size: len(data), URL: URLPrefix + filename}, nil
}

// Load resolves a data URI or an http(s) URL into bytes, a detected
// extension and a suggested filename.
func Load(ctx context.Context, rawURL string) (data []byte, ext, filename string, err error) {
	if strings.HasPrefix(rawURL, "data:") {
		data, ext, err = DecodeDataURI(rawURL)
		return data, ext, "", err
	}
	data, ext, err = Fetch(ctx, rawURL)
	if err != nil {
		return nil, "", "", err
	}
	return data, ext, filenameFromURL(rawURL), nil
}

// DecodeDataURI parses a data:[<mediatype>];base64,<data> URI.
func DecodeDataURI(uri string) ([]byte, string, error) {
	rest := strings.TrimPrefix(uri, "data:")
	meta, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("invalid data URI: missing comma separator: %w", apperr.ErrInvalidInput)
	}
	if !strings.Contains(meta, ";base64") {
		return nil, "", fmt.Errorf("only base64 data URIs are supported: %w", apperr.ErrInvalidInput)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("invalid base64 data: %w: %w", apperr.ErrInvalidInput, err)
		}
	}

	mime := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	ext := mimeToExt[mime]
	if ext == "" {
		return nil, "", fmt.Errorf("unsupported MIME type in data URI: %s: %w", mime, apperr.ErrInvalidInput)
	}
	return data, ext, nil
}

// Fetch downloads an image over http(s). Loopback and cloud metadata
// hosts are refused, also after redirects.
func Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w: %w", apperr.ErrInvalidInput, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, "", fmt.Errorf("unsupported scheme %q (only http/https): %w", parsed.Scheme, apperr.ErrInvalidInput)
	}
	if err := CheckBlockedHost(parsed.Hostname()); err != nil {
		return nil, "", err
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return CheckBlockedHost(req.URL.Hostname())
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > MaxSize {
		return nil, "", fmt.Errorf("file too large: exceeds %d bytes: %w", MaxSize, apperr.ErrInvalidInput)
	}

	ext := mimeToExt[strings.Split(resp.Header.Get("Content-Type"), ";")[0]]
	return data, ext, nil
}

// CheckBlockedHost rejects loopback and cloud metadata addresses.
func CheckBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s: %w", host, apperr.ErrInvalidInput)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			return nil //nolint:nilerr // let http.Client report DNS failures
		}
		ip = ips[0]
	}

	if ip.IsLoopback() {
		return fmt.Errorf("blocked host: loopback address %s: %w", host, apperr.ErrInvalidInput)
	}
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("blocked host: cloud metadata address %s: %w", host, apperr.ErrInvalidInput)
	}
	return nil
}

func filenameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	base := path.Base(parsed.Path)
	if base == "" || base == "." || base == "/" || !strings.Contains(base, ".") {
		return ""
	}
	return base
}

func generatedName(ext string) string {
	if ext == "" {
		ext = ".bin"
	}
	return uuid.NewString() + ext
}

// SanitizeFilename strips path separators and unsafe characters.
func SanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = safeFilenameRe.ReplaceAllString(name, "_")
	if name == "" || name == "." || strings.HasPrefix(name, ".") {
		name = uuid.NewString() + name
	}
	return name
}

// ValidateMagicBytes verifies file content matches the declared extension.
func ValidateMagicBytes(data []byte, ext string) error {
	if ext == ".svg" {
		prefix := data
		if len(prefix) > 1024 {
			prefix = prefix[:1024]
		}
		if !bytes.Contains(prefix, []byte("<svg")) {
			return fmt.Errorf("content does not appear to be a valid SVG (missing <svg tag): %w", apperr.ErrInvalidInput)
		}
		return nil
	}

	detected := http.DetectContentType(data)
	got := mimeToExt[strings.Split(detected, ";")[0]]

	switch ext {
	case ".jpg", ".jpeg":
		if got != ".jpg" {
			return fmt.Errorf("content does not match extension %s (detected: %s): %w", ext, detected, apperr.ErrInvalidInput)
		}
	default:
		if got != ext {
			return fmt.Errorf("content does not match extension %s (detected: %s): %w", ext, detected, apperr.ErrInvalidInput)
		}
	}
	return nil
}
