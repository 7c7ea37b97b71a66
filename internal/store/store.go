// Package store persists uploaded documents and their segmented clauses.
package store

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no clauses are stored for a document id
var ErrNotFound = errors.New("document not found")

const clausesSuffix = "_sentences.txt"

// Store keeps documents under a single upload directory. Each document is
// written as {id}_{name} with its clauses in {id}_sentences.txt, one per line.
type Store struct {
	dir string
}

// New creates the upload directory if needed
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the upload directory
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the original bytes and the clause list under a fresh id
func (s *Store) Save(name string, original io.Reader, clauses []string) (string, error) {
	id := uuid.NewString()
	name = SanitizeFilename(name)

	originalPath := filepath.Join(s.dir, id+"_"+name)
	if err := writeFile(originalPath, func(w io.Writer) error {
		_, err := io.Copy(w, original)
		return err
	}); err != nil {
		return "", fmt.Errorf("save document: %w", err)
	}

	if err := writeFile(s.clausesPath(id), func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		for _, c := range clauses {
			c = strings.Join(strings.Fields(c), " ")
			if c == "" {
				continue
			}
			bw.WriteString(c)
			bw.WriteByte('\n')
		}
		return bw.Flush()
	}); err != nil {
		os.Remove(originalPath)
		return "", fmt.Errorf("save clauses: %w", err)
	}

	return id, nil
}

// Clauses reads back the stored clauses of a document, skipping blank lines
func (s *Store) Clauses(id string) ([]string, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	f, err := os.Open(s.clausesPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open clauses: %w", err)
	}
	defer f.Close()

	clauses := []string{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			clauses = append(clauses, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read clauses: %w", err)
	}
	return clauses, nil
}

// Delete removes every file stored for a document
func (s *Store) Delete(id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	matches, err := filepath.Glob(filepath.Join(s.dir, id+"_*"))
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return ErrNotFound
	}
	var errs []error
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) clausesPath(id string) string {
	return filepath.Join(s.dir, id+clausesSuffix)
}

// ValidateID rejects anything that is not a canonical uuid
func ValidateID(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil || parsed.String() != id {
		return fmt.Errorf("invalid document id %q", id)
	}
	return nil
}

// SanitizeFilename reduces an uploaded name to a safe base name
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == ':' || r < 0x20:
			return '_'
		case r == ' ':
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == "_" {
		name = "unnamed"
	}
	return name
}

// createTemp is swapped in tests to fail individual writes
var createTemp = os.CreateTemp

// writeFile writes via a temp file and rename so readers never see partial data
func writeFile(path string, fill func(io.Writer) error) error {
	tmp, err := createTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := fill(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
