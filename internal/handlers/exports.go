package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"asset-dashboard/internal/models"
	"asset-dashboard/pkg/exporter"

	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ListingSource returns the assets the caller is currently looking at
type ListingSource func(r *http.Request) ([]models.Asset, error)

// ExportsHandler handles spreadsheet exports of the current listing
type ExportsHandler struct {
	Source ListingSource
	Layout exporter.Layout
	Now    func() time.Time
	Log    *zap.Logger
}

// NewExportsHandler creates a new exports handler using the default layout
func NewExportsHandler(src ListingSource, log *zap.Logger) *ExportsHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ExportsHandler{
		Source: src,
		Layout: exporter.DefaultLayout(),
		Now:    time.Now,
		Log:    log,
	}
}

// DownloadXLSX writes the listing as a workbook attachment
func (h *ExportsHandler) DownloadXLSX(w http.ResponseWriter, r *http.Request) {
	assets, err := h.Source(r)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":   "LISTING_UNAVAILABLE",
			"details": err.Error(),
		})
		return
	}

	now := h.Now()
	var buf bytes.Buffer
	sum, err := exporter.Export(&buf, assets, exporter.Options{Layout: h.Layout, Now: now})
	if err != nil {
		h.Log.Error("export failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "EXPORT_FAILED",
			"details": err.Error(),
		})
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="assets-%s.xlsx"`, now.Format("20060102")))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Export-Rows", strconv.Itoa(sum.Rows))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.Log.Warn("export write interrupted", zap.Error(err))
	}
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
