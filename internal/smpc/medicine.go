package smpc

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/medicsearch/rcpgest/internal/doctree"
)

// Medicine is one structured product characteristics document with the
// metadata read from its page.
type Medicine struct {
	ID          string           `json:"id"`
	URL         string           `json:"url,omitempty"`
	Title       string           `json:"title"`
	Laboratory  string           `json:"laboratoire"`
	Substances  []string         `json:"substances_actives"`
	Dosages     []string         `json:"dosages"`
	Form        string           `json:"forme"`
	UpdateDate  string           `json:"update_date"`
	ContentHash string           `json:"content_hash"`
	Document    doctree.Document `json:"document"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ContentHash returns the hex SHA-256 of raw source bytes.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Apply copies extracted metadata onto m.
func (m *Medicine) Apply(md Metadata) {
	m.Title = md.Title
	m.Laboratory = md.Laboratory
	m.Substances = md.Substances
	m.Dosages = md.Dosages
	m.Form = md.Form
	m.UpdateDate = md.UpdateDate
}
