package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/zoe-motors/storefront-api/api"
	"github.com/zoe-motors/storefront-api/config"
	"github.com/zoe-motors/storefront-api/databases"
	"github.com/zoe-motors/storefront-api/models"
	"github.com/zoe-motors/storefront-api/session"
)

const maxUploadMemory = 32 << 20

var errNoIdentity = errors.New("no identity on request")

// writeJSON marshals v and writes it with status
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

// xlsxContentType is the media type of every workbook download
const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// writeWorkbook builds a workbook in memory and sends it as the dated
// attachment prefix-YYYY-MM-DD.xlsx
func writeWorkbook(w http.ResponseWriter, prefix string, build func(io.Writer) error) {
	var buf bytes.Buffer
	if err := build(&buf); err != nil {
		config.ErrorStatus("failed to build "+prefix+" workbook", http.StatusInternalServerError, w, err)
		return
	}
	name := fmt.Sprintf("%s-%s.xlsx", prefix, time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		zap.S().Errorw("failed to write workbook", "name", name, "error", err)
	}
}

// getPage reads the 1-based page query parameter
func getPage(r *http.Request) int {
	p, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || p < 1 {
		return 1
	}
	return p
}

// currentIdentity writes a 401 when the request carries no identity
func currentIdentity(w http.ResponseWriter, r *http.Request) (session.Identity, bool) {
	id, ok := api.IdentityFrom(r.Context())
	if !ok {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, errNoIdentity)
	}
	return id, ok
}

// sessionOf returns the caller's session when the request carries a live
// bearer token. Public routes use it to reuse per-user state.
func sessionOf(m *session.Manager, r *http.Request) (*session.Session, bool) {
	if m == nil {
		return nil, false
	}
	token, ok := api.BearerToken(r)
	if !ok {
		return nil, false
	}
	return m.Get(token)
}

// notFound answers a missing entity with a 404 and a redirect back to list
func notFound(w http.ResponseWriter, message, redirect string, err error) {
	zap.S().Warnw(message, "redirect", redirect, "error", err)
	writeJSON(w, http.StatusNotFound, models.RedirectResponse{Message: message, Redirect: redirect})
}

// dbErrorStatus maps store errors onto HTTP codes
func dbErrorStatus(err error) int {
	if databases.IsNotFound(err) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
