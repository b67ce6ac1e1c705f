package httpapi

import (
	"net/http"
	"strings"

	"github.com/rubyhat/cloudsquares-api/internal/service"
)

// PropertyHandler 房产最小面：创建/读取/删除 + 照片任务投递
type PropertyHandler struct {
	svc    service.PropertyService
	owners *OwnerHandler
}

func NewPropertyHandler(svc service.PropertyService, owners *OwnerHandler) *PropertyHandler {
	return &PropertyHandler{svc: svc, owners: owners}
}

// Collection POST /api/v1/properties
func (h *PropertyHandler) Collection(w http.ResponseWriter, r *http.Request) {
	tc, ok := requireTenant(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Title  string `json:"title"`
		Price  int64  `json:"price"`
		Status string `json:"status"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	property, err := h.svc.CreateProperty(r.Context(), service.CreatePropertyRequest{
		AgencyID: tc.AgencyID,
		Title:    body.Title,
		Price:    body.Price,
		Status:   body.Status,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(property))
}

// Item /api/v1/properties/{id} 及其子资源 owners、photos
func (h *PropertyHandler) Item(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/properties/")
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if len(parts) == 2 {
		switch parts[1] {
		case "owners":
			h.owners.PropertyOwners(w, r, id)
			return
		case "photos":
			h.enqueuePhotos(w, r, id)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if len(parts) > 1 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	tc, ok := requireTenant(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		property, err := h.svc.GetProperty(r.Context(), tc.AgencyID, id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(property))

	case http.MethodDelete:
		if err := h.svc.DeleteProperty(r.Context(), tc.AgencyID, id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"deleted": true}))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// enqueuePhotos POST /api/v1/properties/{id}/photos — 投递异步下载任务
func (h *PropertyHandler) enqueuePhotos(w http.ResponseWriter, r *http.Request, propertyID string) {
	tc, ok := requireTenant(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		FileURLs []string `json:"file_urls"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	enqueued, err := h.svc.EnqueuePhotos(r.Context(), service.EnqueuePhotosRequest{
		AgencyID:   tc.AgencyID,
		PropertyID: propertyID,
		FileURLs:   body.FileURLs,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, Ok(map[string]any{"enqueued": enqueued}))
}
