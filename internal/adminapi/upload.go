package adminapi

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
	gbytes "github.com/labstack/gommon/bytes"
	"github.com/maudia1/site/internal/webserver"
	"github.com/maudia1/site/pkg/common"
	"github.com/maudia1/site/pkg/metrics"
	"go.uber.org/zap"
)

const defaultUploadLimit = 8 << 20

func registerUploadRoutes() {
	webserver.AdminPOST("/upload", uploadImage)
}

// uploadName builds "<unix ms>-<6 random chars><ext>" with the extension of the sniffed type
func uploadName(mt *mimetype.MIME) string {
	ext := ""
	if mt != nil {
		ext = mt.Extension()
	}
	if ext == "" {
		ext = ".bin"
	}
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + common.ShortUUID(6) + ext
}

// storeUpload writes data to a new file under dir, removing it again when the write fails
func storeUpload(dir, name string, data []byte) error {
	target := filepath.Join(dir, name)
	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, bytes.NewReader(data))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(target)
	}
	return err
}

func uploadImage(c echo.Context) error {
	cfg := GetAppContext(c).Config()
	limit := cfg.Upload.MaxSize
	if limit <= 0 {
		limit = defaultUploadLimit
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return fail(c, http.StatusBadRequest, "missing_file", "Multipart field \"file\" is required", nil)
	}
	if fh.Size > limit {
		return fail(c, http.StatusRequestEntityTooLarge, "file_too_large",
			"File exceeds "+gbytes.Format(limit), map[string]interface{}{"size": fh.Size, "limit": limit})
	}

	src, err := fh.Open()
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid_file", "Unable to read upload", err.Error())
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid_file", "Unable to read upload", err.Error())
	}
	if int64(len(data)) > limit {
		return fail(c, http.StatusRequestEntityTooLarge, "file_too_large", "File exceeds "+gbytes.Format(limit), nil)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return fail(c, http.StatusBadRequest, "invalid_file_type", "Only image uploads are accepted", map[string]string{"type": mt.String()})
	}

	dir := cfg.GetUploadDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fail(c, http.StatusInternalServerError, "server_error", "Upload directory unavailable", nil)
	}
	name := uploadName(mt)
	if err := storeUpload(dir, name, data); err != nil {
		zap.L().Error("upload write failed", zap.Error(err), zap.String("namespace", "upload"))
		return fail(c, http.StatusInternalServerError, "server_error", "Unable to store upload", nil)
	}

	metrics.Incr("uploads")
	zap.L().Info("image uploaded",
		zap.String("file", name),
		zap.String("type", mt.String()),
		zap.String("size", gbytes.Format(int64(len(data)))),
		zap.String("namespace", "upload"))
	return ok(c, map[string]string{"url": "/uploads/" + name})
}
