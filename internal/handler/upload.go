package handler

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// maxUploadBytes caps a single uploaded file at 20 MiB.
const maxUploadBytes = 20 << 20

// allowedUploadTypes are the media types tickets may attach.
var allowedUploadTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"video/mp4":  true,
}

// UploadHandler stores ticket media on local disk and hands back /uploads/
// URLs for the ticket and AI endpoints to reference.
type UploadHandler struct {
	Dir string
}

// NewUploadHandler ensures the upload directory exists.
func NewUploadHandler(dir string) (*UploadHandler, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &UploadHandler{Dir: dir}, nil
}

// Single stores one file from the "file" form field.
func (h *UploadHandler) Single(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no file uploaded"})
	}
	url, err := h.save(fh)
	if err != nil {
		return uploadError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"file_url": url})
}

// Multiple stores up to five files from the "files" form field.
func (h *UploadHandler) Multiple(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no files uploaded"})
	}
	files := form.File["files"]
	if len(files) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no files uploaded"})
	}
	if len(files) > 5 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "at most 5 files per upload"})
	}

	urls := make([]string, 0, len(files))
	for _, fh := range files {
		url, err := h.save(fh)
		if err != nil {
			return uploadError(c, err)
		}
		urls = append(urls, url)
	}
	return c.JSON(http.StatusCreated, echo.Map{"files": urls})
}

var errBadUpload = fmt.Errorf("invalid file type: only images or mp4 video allowed")
var errTooLarge = fmt.Errorf("file exceeds the 20MB limit")

func uploadError(c echo.Context, err error) error {
	switch err {
	case errBadUpload, errTooLarge:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "upload failed"})
}

// save validates and writes one multipart file under a unique name.
func (h *UploadHandler) save(fh *multipart.FileHeader) (string, error) {
	if fh.Size > maxUploadBytes {
		return "", errTooLarge
	}
	ctype := fh.Header.Get("Content-Type")
	if !allowedUploadTypes[ctype] {
		return "", errBadUpload
	}

	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	name := uniqueName(fh.Filename)
	dst, err := os.Create(filepath.Join(h.Dir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	// LimitReader guards against a forged Content-Length.
	if _, err := io.Copy(dst, io.LimitReader(src, maxUploadBytes+1)); err != nil {
		return "", err
	}
	return "/uploads/" + name, nil
}

// uniqueName keeps the original extension and prefixes a timestamp plus
// random suffix so concurrent uploads never collide.
func uniqueName(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("file-%d-%s%s", time.Now().UnixNano(), hex.EncodeToString(buf), ext)
}
