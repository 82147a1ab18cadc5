package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medicsearch/rcpgest/internal/chunker"
	"github.com/medicsearch/rcpgest/internal/doctree"
	"github.com/medicsearch/rcpgest/internal/smpc"
)

// Summary is a medicine row without its document.
type Summary struct {
	ID          string    `json:"id"`
	URL         string    `json:"url,omitempty"`
	Title       string    `json:"title"`
	Laboratory  string    `json:"laboratoire"`
	Substances  []string  `json:"substances_actives"`
	Dosages     []string  `json:"dosages"`
	Form        string    `json:"forme"`
	UpdateDate  string    `json:"update_date"`
	ContentHash string    `json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

const summaryColumns = `id, url, title, laboratory, substances, dosages, form, update_date, content_hash, created_at, updated_at`

// PutMedicine inserts or replaces a medicine and its chunks in one
// transaction. An empty ID is assigned a new UUID.
func (s *Store) PutMedicine(ctx context.Context, m *smpc.Medicine, chunks []doctree.Chunk) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	docJSON, err := json.Marshal(m.Document)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	subs, err := json.Marshal(nonNil(m.Substances))
	if err != nil {
		return fmt.Errorf("marshal substances: %w", err)
	}
	doses, err := json.Marshal(nonNil(m.Dosages))
	if err != nil {
		return fmt.Errorf("marshal dosages: %w", err)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO medicines (id, url, title, laboratory, substances, dosages, form, update_date, content_hash, document, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			url = excluded.url, title = excluded.title, laboratory = excluded.laboratory,
			substances = excluded.substances, dosages = excluded.dosages, form = excluded.form,
			update_date = excluded.update_date, content_hash = excluded.content_hash,
			document = excluded.document, updated_at = excluded.updated_at`,
		m.ID, m.URL, m.Title, m.Laboratory, string(subs), string(doses), m.Form, m.UpdateDate,
		m.ContentHash, string(docJSON), m.CreatedAt.UnixMilli(), m.UpdatedAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("upsert medicine: %w", err)
	}

	if err := replaceChunks(ctx, tx, m.ID, chunks, now); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateDocument replaces the document and chunks of an existing medicine.
// It reports false when no medicine has that ID.
func (s *Store) UpdateDocument(ctx context.Context, id string, doc doctree.Document, chunks []doctree.Chunk) (bool, error) {
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return false, fmt.Errorf("marshal document: %w", err)
	}
	now := time.Now()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE medicines SET document = ?, updated_at = ? WHERE id = ?`,
		string(docJSON), now.UnixMilli(), id)
	if err != nil {
		return false, fmt.Errorf("update document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}
	if err := replaceChunks(ctx, tx, id, chunks, now); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

func replaceChunks(ctx context.Context, tx *sql.Tx, medicineID string, chunks []doctree.Chunk, now time.Time) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE medicine_id = ?`, medicineID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, medicine_id, chunk_index, breadcrumb, text, token_count, created_at)
		VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx,
			uuid.NewString(), medicineID, c.Index, strings.Join(c.Breadcrumb, " > "),
			c.Text, chunker.EstimateTokens(c.Text), now.UnixMilli(),
		); err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
	}
	return nil
}

// GetMedicine returns the medicine with its document, or nil if not found.
func (s *Store) GetMedicine(ctx context.Context, id string) (*smpc.Medicine, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+summaryColumns+`, document FROM medicines WHERE id = ?`, id)
	var docJSON string
	sum, err := scanSummary(row, &docJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m := &smpc.Medicine{
		ID: sum.ID, URL: sum.URL, Title: sum.Title, Laboratory: sum.Laboratory,
		Substances: sum.Substances, Dosages: sum.Dosages, Form: sum.Form,
		UpdateDate: sum.UpdateDate, ContentHash: sum.ContentHash,
		CreatedAt: sum.CreatedAt, UpdatedAt: sum.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(docJSON), &m.Document); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	return m, nil
}

// ListMedicines returns summaries ordered by title.
func (s *Store) ListMedicines(ctx context.Context, limit, offset int) ([]*Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+summaryColumns+` FROM medicines
		ORDER BY title, id
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Summary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// FindByHash returns the first medicine stored from identical source bytes,
// or nil.
func (s *Store) FindByHash(ctx context.Context, hash string) (*Summary, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+summaryColumns+` FROM medicines WHERE content_hash = ? ORDER BY created_at LIMIT 1`, hash)
	sum, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return sum, err
}

// DeleteMedicine removes a medicine and its chunks. It reports whether a row
// was deleted.
func (s *Store) DeleteMedicine(ctx context.Context, id string) (bool, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE medicine_id = ?`, id); err != nil {
		return false, fmt.Errorf("delete chunks: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM medicines WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete medicine: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, tx.Commit()
}

// CountMedicines returns the number of stored medicines.
func (s *Store) CountMedicines(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM medicines`).Scan(&n)
	return n, err
}

// CountChunks returns the total number of chunks in the store.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(sc scanner, extra ...any) (*Summary, error) {
	sum := &Summary{}
	var subs, doses string
	var created, updated int64
	dest := []any{
		&sum.ID, &sum.URL, &sum.Title, &sum.Laboratory, &subs, &doses,
		&sum.Form, &sum.UpdateDate, &sum.ContentHash, &created, &updated,
	}
	if err := sc.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(subs), &sum.Substances); err != nil {
		return nil, fmt.Errorf("decode substances: %w", err)
	}
	if err := json.Unmarshal([]byte(doses), &sum.Dosages); err != nil {
		return nil, fmt.Errorf("decode dosages: %w", err)
	}
	sum.CreatedAt = time.UnixMilli(created)
	sum.UpdatedAt = time.UnixMilli(updated)
	return sum, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
