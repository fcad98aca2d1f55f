package place

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/ssherwood/placeservice/internal/config"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	service *Service
}

func NewHandler(r *mux.Router, service *Service) *Handler {
	handler := &Handler{service: service}
	r.HandleFunc("/health", handler.Health).Methods("GET")
	r.HandleFunc("/places", handler.CreatePlace).Methods("POST")
	r.HandleFunc("/places", handler.ListPlaces).Methods("GET")
	r.HandleFunc("/places/{name}", handler.GetPlace).Methods("GET")
	r.HandleFunc("/places/{name}", handler.UpdatePlace).Methods("PUT")
	r.HandleFunc("/places/{name}", handler.DeletePlace).Methods("DELETE")
	r.HandleFunc("/places/{name}/image", handler.PutImage).Methods("PUT")
	r.HandleFunc("/places/{name}/image", handler.GetImage).Methods("GET")
	return handler
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"status":"ok"}`)
}

func (h *Handler) CreatePlace(w http.ResponseWriter, r *http.Request) {
	p, err := decodePlace(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := h.service.Create(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writePlace(w, r, http.StatusCreated, created)
}

func (h *Handler) ListPlaces(w http.ResponseWriter, r *http.Request) {
	places, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(places)
}

func (h *Handler) GetPlace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trace.SpanFromContext(ctx).AddEvent("GetPlace")

	p, err := h.service.Get(ctx, mux.Vars(r)["name"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	writePlace(w, r, http.StatusOK, p)
}

func (h *Handler) UpdatePlace(w http.ResponseWriter, r *http.Request) {
	p, err := decodePlace(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := h.service.Update(r.Context(), mux.Vars(r)["name"], p)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writePlace(w, r, http.StatusOK, updated)
}

func (h *Handler) DeletePlace(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), mux.Vars(r)["name"]); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PutImage(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	body := http.MaxBytesReader(w, r.Body, config.MaxBodyBytes)
	updated, err := h.service.PutImage(r.Context(), mux.Vars(r)["name"], body, r.ContentLength, contentType)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writePlace(w, r, http.StatusOK, updated)
}

func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	body, contentType, err := h.service.GetImage(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentType)
	if _, err := io.Copy(w, body); err != nil {
		slog.Warn("Unable to stream place image", config.ErrAttr(err))
	}
}

// decodePlace reads the request body in the form named by Content-Type: the legacy
// ordered form, the tagged binary form, or JSON (the default).
func decodePlace(w http.ResponseWriter, r *http.Request) (*Place, error) {
	body := http.MaxBytesReader(w, r.Body, config.MaxBodyBytes)
	p := New()

	switch mediaType(r.Header.Get("Content-Type")) {
	case LegacyContentType:
		if err := p.ReadLegacy(body); err != nil {
			return nil, err
		}
	case ContentType:
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, err
		}
		if err := p.UnmarshalBinary(data); err != nil {
			return nil, err
		}
	default:
		if err := json.NewDecoder(body).Decode(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// writePlace answers in the first form listed in Accept that it knows and that is not
// refused with q=0, JSON otherwise. Other q-values do not reorder the list.
func writePlace(w http.ResponseWriter, r *http.Request, status int, p *Place) {
	for _, accepted := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, params, err := mime.ParseMediaType(strings.TrimSpace(accepted))
		if err != nil || refused(params) {
			continue
		}
		switch mt {
		case LegacyContentType:
			w.Header().Set("Content-Type", LegacyContentType)
			w.WriteHeader(status)
			_ = p.WriteLegacy(w)
			return
		case ContentType:
			data, err := p.MarshalBinary()
			if err != nil {
				writeError(w, r, err)
				return
			}
			w.Header().Set("Content-Type", ContentType)
			w.WriteHeader(status)
			_, _ = w.Write(data)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(p)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	span := trace.SpanFromContext(r.Context())
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if status == http.StatusInternalServerError {
		slog.Error("Place request failed", slog.String("http.path", r.URL.Path), config.ErrAttr(err))
	}
	http.Error(w, err.Error(), status)
}

func statusFor(err error) int {
	var maxBytesErr *http.MaxBytesError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrOutOfRange):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrMalformed), errors.Is(err, ErrUnsupportedVersion),
		errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF),
		errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return http.StatusBadRequest
	case errors.Is(err, ErrImagesDisabled):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func refused(params map[string]string) bool {
	q, ok := params["q"]
	if !ok {
		return false
	}
	weight, err := strconv.ParseFloat(q, 64)
	return err == nil && weight == 0
}

func mediaType(header string) string {
	mt, _, err := mime.ParseMediaType(strings.TrimSpace(header))
	if err != nil {
		return ""
	}
	return mt
}
