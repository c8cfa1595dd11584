package classifier

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/snappy"

	apperrors "churnlab/internal/errors"
)

// Serializer persists fitted models
type Serializer interface {
	Save(path string, model *Model) error
	Load(path string) (*Model, error)
}

// modelMagic prefixes every model file so foreign files fail fast
var modelMagic = []byte("CHURNRF\x01")

// GobSerializer writes models as a gob stream inside snappy framing
type GobSerializer struct{}

// NewGobSerializer creates the default model serializer
func NewGobSerializer() *GobSerializer {
	return &GobSerializer{}
}

// Save writes model to path, creating parent directories. The file is
// written to a temporary name first and renamed into place.
func (s *GobSerializer) Save(path string, model *Model) error {
	if model == nil {
		return apperrors.NewStorageError("cannot save nil model", nil)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.NewStorageError("failed to create model directory", err).WithContext("path", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return apperrors.NewStorageError("failed to create model file", err).WithContext("path", path)
	}
	defer os.Remove(tmp.Name())

	if err := s.Encode(tmp, model); err != nil {
		tmp.Close()
		return apperrors.NewStorageError("failed to encode model", err).WithContext("path", path)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewStorageError("failed to write model file", err).WithContext("path", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return apperrors.NewStorageError("failed to move model file into place", err).WithContext("path", path)
	}
	return nil
}

// Load reads a model written by Save
func (s *GobSerializer) Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open model file", err).WithContext("path", path)
	}
	defer f.Close()

	model, err := s.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, apperrors.NewStorageError("failed to decode model", err).WithContext("path", path)
	}
	return model, nil
}

// Encode writes model to w
func (s *GobSerializer) Encode(w io.Writer, model *Model) error {
	if _, err := w.Write(modelMagic); err != nil {
		return err
	}
	sw := snappy.NewBufferedWriter(w)
	if err := gob.NewEncoder(sw).Encode(model); err != nil {
		sw.Close()
		return err
	}
	return sw.Close()
}

// Decode reads a model from r
func (s *GobSerializer) Decode(r io.Reader) (*Model, error) {
	magic := make([]byte, len(modelMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if !bytes.Equal(magic, modelMagic) {
		return nil, fmt.Errorf("not a model file")
	}

	var model Model
	if err := gob.NewDecoder(snappy.NewReader(r)).Decode(&model); err != nil {
		return nil, err
	}
	if len(model.Trees) == 0 {
		return nil, fmt.Errorf("model has no trees")
	}
	return &model, nil
}
