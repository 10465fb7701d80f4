package session

import (
	"github.com/park285/chess-live-client/internal/msgcat"
)

// Formatter turns status effects and rejection reasons into display text.
type Formatter interface {
	Status(st Status) string
	Reject(reason string) string
}

// CatalogFormatter renders through a message catalog under "status.<kind>" and
// "reject.<reason>", falling back to plain text when a template is missing.
type CatalogFormatter struct {
	cat *msgcat.Catalog
}

func NewCatalogFormatter(cat *msgcat.Catalog) *CatalogFormatter {
	return &CatalogFormatter{cat: cat}
}

func (f *CatalogFormatter) Status(st Status) string {
	if f != nil && f.cat != nil {
		data := map[string]any{
			"Kind":    string(st.Kind),
			"Text":    st.Text,
			"Speaker": st.Speaker,
			"GameID":  st.GameID,
		}
		if s, err := f.cat.Render("status."+string(st.Kind), data); err == nil {
			return s
		}
	}
	return plainStatus(st)
}

func (f *CatalogFormatter) Reject(reason string) string {
	if f != nil && f.cat != nil {
		if s, err := f.cat.Render("reject."+reason, nil); err == nil {
			return s
		}
	}
	return reason
}

func plainStatus(st Status) string {
	switch {
	case st.Speaker != "":
		return st.Speaker + ": " + st.Text
	case st.Text != "":
		return string(st.Kind) + ": " + st.Text
	default:
		return string(st.Kind)
	}
}
