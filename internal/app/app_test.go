package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"picserve/internal/config"
	"picserve/internal/imaging"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	root := t.TempDir()

	cfg := config.Default()
	cfg.Storage.UploadDir = filepath.Join(root, "uploads")
	cfg.Storage.CacheDir = filepath.Join(root, "cache")
	cfg.Storage.FallbackImage = filepath.Join(root, "noimage.jpg")
	cfg.Images.RandomTTL = 3600

	require.NoError(t, os.WriteFile(cfg.Storage.FallbackImage, testJPEG(t, 300, 300, color.RGBA{R: 128, G: 128, B: 128, A: 255}), 0o644))

	db, err := OpenDatabase(filepath.Join(root, "test.db"))
	require.NoError(t, err)

	router, err := SetupRouter(cfg, db)
	require.NoError(t, err)
	return router
}

func testJPEG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	data, err := imaging.NewProcessor(90).EncodeJPEGBytes(img)
	require.NoError(t, err)
	return data
}

func upload(t *testing.T, router *gin.Engine, filename string, data []byte, tags []string) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fw, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)

	payload, err := json.Marshal(map[string][]string{"tags": tags})
	require.NoError(t, err)
	require.NoError(t, writer.WriteField("payload", string(payload)))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func get(router *gin.Engine, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func uploadedID(t *testing.T, rec *httptest.ResponseRecorder) uint {
	t.Helper()
	var resp struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotZero(t, resp.ID)
	return resp.ID
}

func TestUploadThenOriginalDeliveryRoundTrip(t *testing.T) {
	router := newTestServer(t)
	data := testJPEG(t, 120, 80, color.RGBA{R: 200, A: 255})

	rec := upload(t, router, "sunset.jpg", data, []string{"promo"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	uploadedID(t, rec)

	res := get(router, "/img/original/1", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "image/jpeg", res.Header().Get("Content-Type"))
	assert.Equal(t, data, res.Body.Bytes(), "original mode must return the upload byte for byte")
}

func TestDeliveryConditionalGet(t *testing.T) {
	router := newTestServer(t)
	rec := upload(t, router, "a.jpg", testJPEG(t, 100, 100, color.RGBA{B: 180, A: 255}), []string{})
	require.Equal(t, http.StatusCreated, rec.Code)

	first := get(router, "/img/50x50/1", nil)
	require.Equal(t, http.StatusOK, first.Code)
	etag := first.Header().Get("ETag")
	lastModified := first.Header().Get("Last-Modified")
	require.NotEmpty(t, etag)
	require.NotEmpty(t, lastModified)
	assert.Contains(t, first.Header().Get("Cache-Control"), "max-age=86400")

	byEtag := get(router, "/img/50x50/1", map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, byEtag.Code)
	assert.Empty(t, byEtag.Body.Bytes())

	byTime := get(router, "/img/50x50/1", map[string]string{"If-Modified-Since": lastModified})
	assert.Equal(t, http.StatusNotModified, byTime.Code)

	stale := get(router, "/img/50x50/1", map[string]string{"If-None-Match": `"different"`})
	assert.Equal(t, http.StatusOK, stale.Code)
}

func TestDeliveryResizesToRequestedDimensions(t *testing.T) {
	router := newTestServer(t)
	rec := upload(t, router, "wide.jpg", testJPEG(t, 400, 100, color.RGBA{G: 160, A: 255}), []string{})
	require.Equal(t, http.StatusCreated, rec.Code)

	res := get(router, "/img/80x60/1", nil)
	require.Equal(t, http.StatusOK, res.Code)

	img, _, err := imaging.NewProcessor(90).Decode(bytes.NewReader(res.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 80, img.Bounds().Dx())
	assert.Equal(t, 60, img.Bounds().Dy())
}

func TestDeliveryFallsBackOnEmptyCatalog(t *testing.T) {
	router := newTestServer(t)

	res := get(router, "/img/64x64/1", nil)
	require.Equal(t, http.StatusOK, res.Code, "an empty catalog serves the placeholder, not an error")

	img, _, err := imaging.NewProcessor(90).Decode(bytes.NewReader(res.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 64, img.Bounds().Dy())
}

func TestDeliveryFiltersByTag(t *testing.T) {
	router := newTestServer(t)
	red := testJPEG(t, 100, 100, color.RGBA{R: 200, A: 255})
	blue := testJPEG(t, 100, 100, color.RGBA{B: 200, A: 255})

	require.Equal(t, http.StatusCreated, upload(t, router, "red.jpg", red, []string{}).Code)
	require.Equal(t, http.StatusCreated, upload(t, router, "blue.jpg", blue, []string{}).Code)

	res := get(router, "/img/original/blueBg/1", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, blue, res.Body.Bytes(), "the derived background tag must route to the blue upload")
}

func TestUploadDuplicateConflict(t *testing.T) {
	router := newTestServer(t)
	data := testJPEG(t, 90, 90, color.RGBA{R: 60, G: 120, B: 30, A: 255})

	require.Equal(t, http.StatusCreated, upload(t, router, "one.jpg", data, []string{}).Code)
	dup := upload(t, router, "two.jpg", data, []string{})
	assert.Equal(t, http.StatusConflict, dup.Code)
}

func TestUploadValidation(t *testing.T) {
	router := newTestServer(t)

	// Missing payload field.
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fw, err := writer.CreateFormFile("file", "a.jpg")
	require.NoError(t, err)
	_, err = fw.Write(testJPEG(t, 10, 10, color.RGBA{A: 255}))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Not an image.
	garbage := upload(t, router, "a.txt", []byte("plain text"), []string{})
	assert.Equal(t, http.StatusBadRequest, garbage.Code)
}

func TestRotateEndpointInvalidatesRenders(t *testing.T) {
	router := newTestServer(t)
	rec := upload(t, router, "tall.jpg", testJPEG(t, 60, 120, color.RGBA{R: 30, G: 30, B: 30, A: 255}), []string{})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := uploadedID(t, rec)

	res := get(router, "/img/original/1", nil)
	require.Equal(t, http.StatusOK, res.Code)
	before, _, err := imaging.NewProcessor(90).Decode(bytes.NewReader(res.Body.Bytes()))
	require.NoError(t, err)
	require.Equal(t, 60, before.Bounds().Dx())

	body := bytes.NewBufferString(`{"direction":"R"}`)
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/images/%d/rotate", id), body)
	req.Header.Set("Content-Type", "application/json")
	rotated := httptest.NewRecorder()
	router.ServeHTTP(rotated, req)
	require.Equal(t, http.StatusOK, rotated.Code, rotated.Body.String())

	res = get(router, "/img/original/1", nil)
	require.Equal(t, http.StatusOK, res.Code)
	after, _, err := imaging.NewProcessor(90).Decode(bytes.NewReader(res.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 120, after.Bounds().Dx())
	assert.Equal(t, 60, after.Bounds().Dy())
}

func TestRotateRejectsBadDirection(t *testing.T) {
	router := newTestServer(t)
	rec := upload(t, router, "a.jpg", testJPEG(t, 50, 50, color.RGBA{R: 200, A: 255}), []string{})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := uploadedID(t, rec)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/images/%d/rotate", id), bytes.NewBufferString(`{"direction":"X"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestDeleteRemovesImageFromDelivery(t *testing.T) {
	router := newTestServer(t)
	data := testJPEG(t, 100, 100, color.RGBA{G: 200, A: 255})
	rec := upload(t, router, "a.jpg", data, []string{})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := uploadedID(t, rec)

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/images/%d", id), nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)

	after := get(router, "/img/original/1", nil)
	require.Equal(t, http.StatusOK, after.Code)
	assert.NotEqual(t, data, after.Body.Bytes(), "a removed image falls back to the placeholder")

	// Deleting again is a 404.
	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/images/%d", id), nil))
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestTagEndpoints(t *testing.T) {
	router := newTestServer(t)
	rec := upload(t, router, "a.jpg", testJPEG(t, 300, 100, color.RGBA{R: 200, A: 255}), []string{"promo"})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := uploadedID(t, rec)

	// Attach one more tag.
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/images/%d/tags", id), bytes.NewBufferString(`{"tag":"featured"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	listed := get(router, fmt.Sprintf("/api/v1/images/%d/tags", id), nil)
	require.Equal(t, http.StatusOK, listed.Code)
	var titles []string
	require.NoError(t, json.Unmarshal(listed.Body.Bytes(), &titles))
	assert.Contains(t, titles, "promo")
	assert.Contains(t, titles, "featured")
	assert.Contains(t, titles, "horizontal")

	count := httptest.NewRecorder()
	countReq := httptest.NewRequest(http.MethodPost, "/api/v1/tags/count", bytes.NewBufferString(`{"tags":["promo","featured"]}`))
	countReq.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(count, countReq)
	require.Equal(t, http.StatusOK, count.Code)
	var counted struct {
		Counter int64 `json:"counter"`
	}
	require.NoError(t, json.Unmarshal(count.Body.Bytes(), &counted))
	assert.EqualValues(t, 1, counted.Counter)

	all := get(router, "/api/v1/tags", nil)
	require.Equal(t, http.StatusOK, all.Code)
	var stats []struct {
		Title string `json:"title"`
		Count int64  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(all.Body.Bytes(), &stats))
	assert.NotEmpty(t, stats)
}

func TestTagEndpointsUnknownImage(t *testing.T) {
	router := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/images/99/tags", bytes.NewBufferString(`{"tag":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusNotFound, res.Code)

	listed := get(router, "/api/v1/images/99/tags", nil)
	assert.Equal(t, http.StatusNotFound, listed.Code)
}

func TestDeliveryRejectsMalformedSize(t *testing.T) {
	router := newTestServer(t)
	for _, path := range []string{"/img/banner", "/img/0x10", "/img/"} {
		res := get(router, path, nil)
		assert.Equal(t, http.StatusBadRequest, res.Code, "path %s", path)
	}
}

func TestRandomDeliveryIsStickyPerClient(t *testing.T) {
	router := newTestServer(t)
	for i := 0; i < 4; i++ {
		data := testJPEG(t, 100+i*10, 100, color.RGBA{R: uint8(40 * (i + 1)), A: 255})
		require.Equal(t, http.StatusCreated, upload(t, router, fmt.Sprintf("img-%d.jpg", i), data, []string{}).Code)
	}

	headers := map[string]string{"User-Agent": "sticky-test"}
	first := get(router, "/img/original/random", headers)
	require.Equal(t, http.StatusOK, first.Code)

	for i := 0; i < 5; i++ {
		again := get(router, "/img/original/random", headers)
		require.Equal(t, http.StatusOK, again.Code)
		assert.Equal(t, first.Body.Bytes(), again.Body.Bytes(), "the same client keeps its draw within the TTL")
	}
}
