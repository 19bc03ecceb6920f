package server

import (
	"fmt"
	"net/http"
	"time"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GET /v1/export.xlsx
func (r *Router) handleExportXLSX(w http.ResponseWriter, req *http.Request) error {
	body, err := r.deps.Export.ExportXLSX(req.Context())
	if err != nil {
		return err
	}
	return writeAttachment(w, xlsxContentType, "xlsx", body)
}

// GET /v1/export.md
func (r *Router) handleExportMarkdown(w http.ResponseWriter, req *http.Request) error {
	body, err := r.deps.Export.ExportMarkdown(req.Context())
	if err != nil {
		return err
	}
	return writeAttachment(w, "text/markdown; charset=utf-8", "md", body)
}

func writeAttachment(w http.ResponseWriter, contentType, ext string, body []byte) error {
	name := fmt.Sprintf("reports-catalog-%s.%s", time.Now().UTC().Format("20060102"), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(body)
	return err
}
