package handlers

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/zoe-motors/storefront-api/config"
	"github.com/zoe-motors/storefront-api/i18n"
)

// Locale serves the storefront string tables
type Locale struct {
	Catalog *i18n.Catalog
}

func (l Locale) language(w http.ResponseWriter, r *http.Request) (i18n.Language, bool) {
	raw := mux.Vars(r)["lang"]
	lang, ok := i18n.ParseLanguage(raw)
	if !ok {
		config.ErrorStatus("unsupported language", http.StatusNotFound, w, fmt.Errorf("language %q", raw))
	}
	return lang, ok
}

// TableHandler returns every string of one language
func (l Locale) TableHandler(w http.ResponseWriter, r *http.Request) {
	lang, ok := l.language(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, l.Catalog.Table(lang))
}

// LookupHandler returns one string. Unknown keys come back as the key.
func (l Locale) LookupHandler(w http.ResponseWriter, r *http.Request) {
	lang, ok := l.language(w, r)
	if !ok {
		return
	}
	key := mux.Vars(r)["key"]
	writeJSON(w, http.StatusOK, map[string]string{"language": string(lang), "key": key, "value": l.Catalog.Lookup(lang, key)})
}
