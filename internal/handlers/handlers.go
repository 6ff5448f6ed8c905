package handlers

import (
	"encoding/json"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"net/http"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Brownie44l1/mnist-api/internal/digit"
	"github.com/Brownie44l1/mnist-api/internal/export"
	"github.com/Brownie44l1/mnist-api/internal/logger"
	"github.com/Brownie44l1/mnist-api/internal/model"
	"github.com/Brownie44l1/mnist-api/internal/recognizer"
)

const maxUploadSize = 10 << 20

type Handler struct {
	recognizer  *recognizer.Recognizer
	store       *export.Store
	gallerySize int
	lggr        logger.Logger
	now         func() time.Time
}

func NewHandler(rec *recognizer.Recognizer, store *export.Store, gallerySize int, lggr logger.Logger) *Handler {
	return &Handler{
		recognizer:  rec,
		store:       store,
		gallerySize: gallerySize,
		lggr:        lggr,
		now:         time.Now,
	}
}

// Routes registers every endpoint on mux, wrapped by mw.
func (h *Handler) Routes(mux *http.ServeMux, mw func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/health", mw(h.Health))
	mux.HandleFunc("/predict", mw(h.Predict))
	mux.HandleFunc("/predict/image", mw(h.PredictFromImage))
	mux.HandleFunc("/preview", mw(h.Preview))
	mux.HandleFunc("/save", mw(h.Save))
	mux.HandleFunc("/saved", mw(h.Saved))
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "healthy"})
}

// Predict classifies a canvas sent as a JSON grid of intensities.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.CanvasRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadSize)).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	rows, err := req.Rows()
	if err != nil {
		h.fail(w, err)
		return
	}
	img, err := digit.FromGrid(rows)
	if err != nil {
		h.fail(w, err)
		return
	}

	res, err := h.recognizer.Recognize(img)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, response(res))
}

func (h *Handler) PredictFromImage(w http.ResponseWriter, r *http.Request) {
	img, ok := h.upload(w, r)
	if !ok {
		return
	}

	res, err := h.recognizer.Recognize(img)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, response(res))
}

// Preview returns the preprocessed 28x28 input as a PNG.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	img, ok := h.upload(w, r)
	if !ok {
		return
	}

	t, err := h.recognizer.Preprocess(img)
	if err != nil {
		h.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, export.Denormalize(t)); err != nil {
		h.lggr.Errorw("Failed to write preview", "err", err)
	}
}

// Save classifies the upload and stores its preprocessed form under the
// predicted label.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	img, ok := h.upload(w, r)
	if !ok {
		return
	}

	res, err := h.recognizer.Recognize(img)
	if err != nil {
		h.fail(w, err)
		return
	}

	path, err := h.store.Save(res.Tensor, res.Top.Digit, h.now())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.lggr.Infow("Saved digit", "path", path, "label", res.Top.Digit)

	writeJSON(w, model.SaveResponse{
		Path:       path,
		Label:      res.Top.Digit,
		Confidence: res.Top.Probability,
	})
}

// Saved lists the most recently saved digits.
func (h *Handler) Saved(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	saved, err := h.store.Recent(h.gallerySize)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, saved)
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) (image.Image, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return nil, false
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "No image file provided. Use 'image' as the form field name", http.StatusBadRequest)
		return nil, false
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		http.Error(w, "Invalid image format. Supported: PNG, JPEG, GIF, BMP, TIFF, WebP", http.StatusBadRequest)
		return nil, false
	}

	h.lggr.Debugw("Received image",
		"file", header.Filename, "bytes", header.Size, "format", format,
		"width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return img, true
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, digit.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, digit.ErrInferenceUnavailable):
		h.lggr.Errorw("Prediction failed", "err", err)
		http.Error(w, "Model unavailable", http.StatusServiceUnavailable)
	default:
		h.lggr.Errorw("Request failed", "err", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

func response(res *recognizer.Result) model.PredictionResponse {
	return model.PredictionResponse{
		Label:         res.Top.Digit,
		Confidence:    res.Top.Probability,
		Probabilities: res.Probabilities,
		Ranking:       res.Ranking,
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(append(body, '\n'))
}
