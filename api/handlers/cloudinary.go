package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zoe-motors/storefront-api/config"
	"github.com/zoe-motors/storefront-api/storage"
)

// UploadSigner signs browser-side image uploads
type UploadSigner interface {
	SignUpload(folder string, now time.Time) (storage.UploadSignature, error)
}

// Upload handles image upload related requests
type Upload struct {
	Signer UploadSigner
}

var uploadFolders = map[string]string{
	"vehicles":    storage.FolderVehicles,
	"spare-parts": storage.FolderSpareParts,
	"submissions": storage.FolderSubmissions,
}

// SignatureHandler generates a signature for a direct cloudinary upload.
// Only admins may sign catalog folders; everyone else signs submissions.
func (u Upload) SignatureHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	if u.Signer == nil {
		config.ErrorStatus("image uploads are not configured", http.StatusServiceUnavailable, w, errors.New("no signer"))
		return
	}
	var body struct {
		Folder string `json:"folder"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if body.Folder == "" {
		body.Folder = "submissions"
	}
	folder, known := uploadFolders[body.Folder]
	if !known {
		config.ErrorStatus("unknown upload folder", http.StatusBadRequest, w, fmt.Errorf("folder %q", body.Folder))
		return
	}
	if folder != storage.FolderSubmissions && !id.IsAdmin() {
		config.ErrorStatus("forbidden", http.StatusForbidden, w, fmt.Errorf("user %s cannot upload to %s", id.UserID, folder))
		return
	}

	sig, err := u.Signer.SignUpload(folder, time.Now())
	if err != nil {
		config.ErrorStatus("failed to sign upload", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, sig)
}
