package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path"

	"bitbucket.org/mmdatafocus/retail_ledger/config"
	"bitbucket.org/mmdatafocus/retail_ledger/models"
	"bitbucket.org/mmdatafocus/retail_ledger/utils"
	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const maxUploadSizeBytes int64 = 5 * 1024 * 1024

const thumbnailWidth = 200

var imageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

var errInvalidImage = models.NewLedgerError(models.KindValidation, "InvalidImage", "image must be a jpeg or png up to 5MB")

type productImageResponse struct {
	*models.Product
	ImageURL     string `json:"image_url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// productImageHandler stores a product photo and a 200px wide JPEG thumbnail.
// Expects multipart field "image".
func productImageHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	logger := config.GetLogger()

	if _, err := models.GetProduct(ctx, id); err != nil {
		respondError(c, err)
		return
	}

	file, _, err := c.Request.FormFile("image")
	if err != nil {
		respondError(c, fmt.Errorf("%w: %v", errInvalidImage, err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSizeBytes+1))
	if err != nil {
		respondError(c, err)
		return
	}
	if int64(len(data)) > maxUploadSizeBytes {
		respondError(c, fmt.Errorf("%w: file size exceeds 5MB limit", errInvalidImage))
		return
	}
	mimeType := http.DetectContentType(data)
	if !imageMimeTypes[mimeType] {
		respondError(c, fmt.Errorf("%w: got %s", errInvalidImage, mimeType))
		return
	}

	thumbnail, err := createThumbnail(data)
	if err != nil {
		respondError(c, fmt.Errorf("%w: %v", errInvalidImage, err))
		return
	}

	store, err := utils.NewObjectStorage(ctx)
	if err != nil {
		logUploadError(logger, err, config.StorageProvider(), c)
		respondError(c, err)
		return
	}
	objectKey := path.Join("products", fmt.Sprint(id), utils.GenerateUniqueFilename()+extensionFromMimeType(mimeType))
	thumbnailKey := thumbnailObjectKey(objectKey)
	if err := store.Put(ctx, objectKey, mimeType, data); err != nil {
		logUploadError(logger, err, config.StorageProvider(), c)
		respondError(c, err)
		return
	}
	if err := store.Put(ctx, thumbnailKey, "image/jpeg", thumbnail); err != nil {
		logUploadError(logger, err, config.StorageProvider(), c)
		respondError(c, err)
		return
	}

	product, err := models.SetProductImage(ctx, id, objectKey, thumbnailKey)
	if err != nil {
		_ = store.Delete(ctx, objectKey)
		_ = store.Delete(ctx, thumbnailKey)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, productImageResponse{
		Product:      product,
		ImageURL:     store.URL(objectKey),
		ThumbnailURL: store.URL(thumbnailKey),
	})
}

func createThumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	thumbnail := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumbnail, imaging.JPEG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func thumbnailObjectKey(objectKey string) string {
	dir := path.Dir(objectKey)
	filename := path.Base(objectKey)
	ext := path.Ext(filename)
	return path.Join(dir, "thumbnails", filename[:len(filename)-len(ext)]+".jpg")
}

func extensionFromMimeType(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	default:
		return ""
	}
}

func logUploadError(logger *logrus.Logger, err error, provider string, c *gin.Context) {
	cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
	logger.WithFields(logrus.Fields{
		"error":          err.Error(),
		"provider":       provider,
		"product_id":     c.Param("id"),
		"correlation_id": cid,
	}).Error("[upload.error]")
}
