package httpapi

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"scribe.dev/internal/audit"
	"scribe.dev/internal/auth"
)

const uploadField = "file"

var imageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// uploadProfileImage stores the image for the authenticated caller. The
// target account is always the caller; there is no id in the route.
func (a *API) uploadProfileImage(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, msgDenied)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes)
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	sniff := make([]byte, 512)
	n, err := io.ReadFull(file, sniff)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, "unreadable file")
		return
	}
	ext, ok := imageTypes[http.DetectContentType(sniff[:n])]
	if !ok {
		writeError(w, r, http.StatusUnsupportedMediaType, "unsupported image type")
		return
	}

	name := storedName(header.Filename, ext)
	if err := os.MkdirAll(a.uploadDir, 0o755); err != nil {
		logInternal(r, "upload_dir_failed", err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	dst, err := os.OpenFile(filepath.Join(a.uploadDir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		logInternal(r, "upload_create_failed", err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	_, err = io.Copy(dst, io.MultiReader(bytes.NewReader(sniff[:n]), file))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst.Name())
		logInternal(r, "upload_write_failed", err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	if _, err := a.users.SetProfileImage(r.Context(), identity.ID, name); err != nil {
		_ = os.Remove(dst.Name())
		a.handleUserError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventImageUploaded, map[string]any{"file": name})
	writeJSON(w, http.StatusOK, map[string]string{"profileImage": name})
}

// profileImage serves a stored image by bare file name.
func (a *API) profileImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, paramImage)
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	f, err := os.Open(filepath.Join(a.uploadDir, name))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// storedName keeps a readable prefix of the client name and makes it unique.
func storedName(original, ext string) string {
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '-', r == '_':
			b.WriteRune(r)
		}
		if b.Len() >= 40 {
			break
		}
	}
	prefix := b.String()
	if prefix == "" {
		prefix = "image"
	}
	return prefix + uuid.NewString() + ext
}
