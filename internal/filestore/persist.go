package filestore

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/hbnb/pkg/types"
)

// Persist writes every registered entity to the backing file as one JSON
// object keyed by composite key, in insertion order. The file is replaced
// atomically using the temp-file, fsync, rename pattern. Write failures are
// returned to the caller.
func (s *Store) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.orderedKeysLocked()

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			buf.WriteString(", ")
		}
		k, err := json.Marshal(key)
		if err != nil {
			return fmt.Errorf("encoding key %s: %w", key, err)
		}
		rec, err := types.Marshal(s.objects[key])
		if err != nil {
			return fmt.Errorf("encoding %s: %w", key, err)
		}
		buf.Write(k)
		buf.WriteString(": ")
		buf.Write(rec)
	}
	buf.WriteByte('}')

	if err := writeFileAtomic(s.path, buf.Bytes()); err != nil {
		return err
	}
	s.log.Debug("persisted registry", zap.String("path", s.path), zap.Int("objects", len(keys)))

	if s.index != nil {
		entities := make([]types.Entity, len(keys))
		for i, key := range keys {
			entities[i] = s.objects[key]
		}
		if err := s.index.Replace(entities); err != nil {
			s.log.Warn("index rebuild failed", zap.Error(err))
		}
	}
	return nil
}

// Reload populates the registry from the backing file. A missing file
// leaves the registry unchanged. An unreadable or malformed file empties
// the registry; the error is logged, not returned. Records whose type tag
// is unknown are skipped. Each record is registered under the key computed
// from the rebuilt entity, not the key found in the file.
func (s *Store) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.log.Debug("no backing file", zap.String("path", s.path))
		return
	}
	if err != nil {
		s.resetLocked("reading backing file", err)
		return
	}

	entities, skipped, err := decodeFile(data)
	if err != nil {
		s.resetLocked("decoding backing file", err)
		return
	}
	for _, e := range entities {
		s.registerLocked(e)
	}
	s.log.Debug("reloaded registry",
		zap.String("path", s.path),
		zap.Int("objects", len(entities)),
		zap.Int("skipped", skipped))

	if s.index != nil {
		if err := s.index.Replace(s.entitiesLocked()); err != nil {
			s.log.Warn("index rebuild failed", zap.Error(err))
		}
	}
}

// resetLocked empties the registry after a failed reload.
func (s *Store) resetLocked(what string, err error) {
	s.log.Warn("backing file unusable, starting empty",
		zap.String("path", s.path), zap.String("stage", what), zap.Error(err))
	clear(s.objects)
	s.order = nil
	if s.index != nil {
		if err := s.index.Replace(nil); err != nil {
			s.log.Warn("index reset failed", zap.Error(err))
		}
	}
}

func (s *Store) entitiesLocked() []types.Entity {
	keys := s.orderedKeysLocked()
	out := make([]types.Entity, len(keys))
	for i, key := range keys {
		out[i] = s.objects[key]
	}
	return out
}

// decodeFile parses the backing file, keeping the order in which records
// appear. It returns the rebuilt entities and the number of records skipped
// for an unknown type tag. Any other problem fails the whole file.
func decodeFile(data []byte) ([]types.Entity, int, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return nil, 0, err
	}

	var (
		entities []types.Entity
		skipped  int
	)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, 0, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, 0, fmt.Errorf("expected object key, got %v", tok)
		}

		var record map[string]any
		if err := dec.Decode(&record); err != nil {
			return nil, 0, fmt.Errorf("record %s: %w", key, err)
		}
		if record == nil {
			return nil, 0, fmt.Errorf("record %s: not an object", key)
		}

		e, err := types.Reconstruct(normalize(record).(map[string]any))
		if errors.Is(err, types.ErrUnknownType) {
			skipped++
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("record %s: %w", key, err)
		}
		entities = append(entities, e)
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, 0, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, 0, errors.New("trailing data after object")
	}
	return entities, skipped, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

// normalize converts json.Number values to int when the text is integral
// and to float64 otherwise, recursing into objects and arrays.
func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		s := t.String()
		if !strings.ContainsAny(s, ".eE") {
			if n, err := strconv.Atoi(s); err == nil {
				return n
			}
		}
		f, err := t.Float64()
		if err != nil {
			return s
		}
		return f
	case map[string]any:
		for k, item := range t {
			t[k] = normalize(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = normalize(item)
		}
		return t
	}
	return v
}

// writeFileAtomic replaces path with data via a temp file in the same
// directory, so readers never observe a partial file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".hbnb-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	if _, err := w.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
