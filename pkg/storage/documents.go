package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goccy/go-json"

	dcerrors "github.com/odvcencio/dashcore/pkg/errors"
	"github.com/odvcencio/dashcore/pkg/revive"
	"github.com/odvcencio/dashcore/pkg/target"
)

// Document describes a stored entry without its payload.
type Document struct {
	Key       string
	Type      string
	Size      int
	UpdatedAt time.Time
}

// TypeOf returns the revival name v is stored under, or "" for plain data.
func TypeOf(v any) string {
	switch x := v.(type) {
	case revive.Named:
		return x.ReviveName()
	case revive.Payload:
		return x.Name
	}
	if p, ok := revive.AsPayload(v); ok {
		return p.Name
	}
	return ""
}

type entry struct {
	key   string
	typ   string
	data  []byte
	value any
}

func (s *Store) encode(key string, v any) (entry, error) {
	if key == "" {
		return entry{}, dcerrors.New(dcerrors.ErrCodeInvalidInput, "document key is empty")
	}
	data, err := s.rev.Marshal(v)
	if err != nil {
		return entry{}, err
	}
	return entry{key: key, typ: TypeOf(v), data: data, value: v}, nil
}

// Put stores v under key, encoded in revivable form. Writing identical
// content posts nothing.
func (s *Store) Put(ctx context.Context, key string, v any) error {
	e, err := s.encode(key, v)
	if err != nil {
		s.metrics.StorageOp("put", err)
		return err
	}
	return s.write(ctx, "put", []entry{e})
}

func (s *Store) write(ctx context.Context, op string, entries []entry) error {
	olds := make([][]byte, len(entries))
	now := time.Now().UnixNano()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for i, e := range entries {
			old, err := readPayload(ctx, tx, e.key)
			if err != nil {
				return err
			}
			olds[i] = old
			if bytes.Equal(old, e.data) {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO documents (key, type, payload, updated_at) VALUES (?, ?, ?, ?)
				ON CONFLICT(key) DO UPDATE SET type = excluded.type, payload = excluded.payload, updated_at = excluded.updated_at`,
				e.key, e.typ, e.data, now); err != nil {
				return err
			}
		}
		return nil
	})
	s.metrics.StorageOp(op, err)
	if err != nil {
		if errors.Is(err, ErrStoreClosed) {
			return err
		}
		return dcerrors.Wrap(err, dcerrors.ErrCodeStorageWrite, "write documents").
			WithContext("count", len(entries)).
			WithRetryable(isBusyError(err))
	}

	for i, e := range entries {
		if bytes.Equal(olds[i], e.data) {
			continue
		}
		if err := s.Change(e.key, s.decode(olds[i]), e.value); err != nil {
			return err
		}
	}
	return nil
}

func readPayload(ctx context.Context, tx *sql.Tx, key string) ([]byte, error) {
	var data []byte
	err := tx.QueryRowContext(ctx, `SELECT payload FROM documents WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return data, err
}

// decode revives a previous payload for change events. Unreadable payloads
// are reported as nil.
func (s *Store) decode(data []byte) any {
	if data == nil {
		return nil
	}
	v, err := s.rev.Parse(data)
	if err != nil {
		s.log.Warn().Err(err).Msg("stored payload does not decode")
		return nil
	}
	return v
}

// GetRaw returns the stored JSON of key.
func (s *Store) GetRaw(ctx context.Context, key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM documents WHERE key = ?`, key).Scan(&data)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.metrics.StorageOp("get", err)
		return nil, dcerrors.New(dcerrors.ErrCodeNotFound, "document not found").WithContext("key", key)
	case err != nil:
		s.metrics.StorageOp("get", err)
		return nil, dcerrors.Wrap(err, dcerrors.ErrCodeStorageRead, "read document").WithContext("key", key)
	}
	s.metrics.StorageOp("get", nil)
	return data, nil
}

// Get returns the revived value of key. Tagged values whose type has no rule
// come back as plain maps.
func (s *Store) Get(ctx context.Context, key string) (any, error) {
	data, err := s.GetRaw(ctx, key)
	if err != nil {
		return nil, err
	}
	v, err := s.rev.Parse(data)
	if err != nil {
		return nil, dcerrors.Wrap(err, dcerrors.ErrCodeStorageCorrupt, "decode document").WithContext("key", key)
	}
	return v, nil
}

// GetInto decodes key into dst, which is typically a value type pointer
// implementing json.Unmarshaler.
func (s *Store) GetInto(ctx context.Context, key string, dst any) error {
	data, err := s.GetRaw(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return dcerrors.Wrap(err, dcerrors.ErrCodeStorageCorrupt, "decode document").WithContext("key", key)
	}
	return nil
}

// Delete removes key and reports whether it existed.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	var old []byte
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if old, err = readPayload(ctx, tx, key); err != nil || old == nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM documents WHERE key = ?`, key)
		return err
	})
	s.metrics.StorageOp("delete", err)
	if err != nil {
		if errors.Is(err, ErrStoreClosed) {
			return false, err
		}
		return false, dcerrors.Wrap(err, dcerrors.ErrCodeStorageWrite, "delete document").WithContext("key", key)
	}
	if old == nil {
		return false, nil
	}
	return true, s.Change(key, s.decode(old), nil)
}

// Documents lists entries whose key starts with prefix, ordered by key.
func (s *Store) Documents(ctx context.Context, prefix string) ([]Document, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, type, length(payload), updated_at FROM documents
		WHERE substr(key, 1, length(?)) = ? ORDER BY key`, prefix, prefix)
	if err != nil {
		s.metrics.StorageOp("list", err)
		return nil, dcerrors.Wrap(err, dcerrors.ErrCodeStorageRead, "list documents")
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var updated int64
		if err := rows.Scan(&d.Key, &d.Type, &d.Size, &updated); err != nil {
			s.metrics.StorageOp("list", err)
			return nil, dcerrors.Wrap(err, dcerrors.ErrCodeStorageRead, "scan document")
		}
		d.UpdatedAt = time.Unix(0, updated)
		docs = append(docs, d)
	}
	err = rows.Err()
	s.metrics.StorageOp("list", err)
	if err != nil {
		return nil, dcerrors.Wrap(err, dcerrors.ErrCodeStorageRead, "list documents")
	}
	return docs, nil
}

// Keys lists the keys starting with prefix, ordered.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	docs, err := s.Documents(ctx, prefix)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(docs))
	for i, d := range docs {
		keys[i] = d.Key
	}
	return keys, nil
}

// KeysOfType lists the keys whose value was stored under the revival name
// typ, ordered. Names match exactly.
func (s *Store) KeysOfType(ctx context.Context, typ string) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM documents WHERE type = ? ORDER BY key`, typ)
	if err != nil {
		s.metrics.StorageOp("list", err)
		return nil, dcerrors.Wrap(err, dcerrors.ErrCodeStorageRead, "list documents").WithContext("type", typ)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			s.metrics.StorageOp("list", err)
			return nil, dcerrors.Wrap(err, dcerrors.ErrCodeStorageRead, "scan document")
		}
		keys = append(keys, key)
	}
	err = rows.Err()
	s.metrics.StorageOp("list", err)
	if err != nil {
		return nil, dcerrors.Wrap(err, dcerrors.ErrCodeStorageRead, "list documents").WithContext("type", typ)
	}
	return keys, nil
}

// Apply replays a "change" event posted by another store: a nil new value
// deletes the key and anything else is stored. Other events are ignored.
func (s *Store) Apply(ctx context.Context, e target.Event) error {
	if e.Name != target.EventChange {
		return nil
	}
	key, _, to, ok := e.Change()
	if !ok || key == "" {
		return nil
	}
	if to == nil {
		_, err := s.Delete(ctx, key)
		return err
	}
	return s.Put(ctx, key, to)
}
