package ecs

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/engine/internal/core/models"
)

// ComponentSet maps component class names to their structured data.
type ComponentSet map[string]models.Data

// Definition is the structured form of a whole population.
type Definition struct {
	Classes  map[string]ComponentSet `yaml:"classes,omitempty" toml:"classes,omitempty"`
	Entities []EntityDef             `yaml:"entities" toml:"entities"`
}

type EntityDef struct {
	Name       string       `yaml:"name,omitempty" toml:"name,omitempty"`
	Class      string       `yaml:"class,omitempty" toml:"class,omitempty"`
	Components ComponentSet `yaml:"components,omitempty" toml:"components,omitempty"`
}

type Format uint8

const (
	FormatYAML Format = iota
	FormatTOML
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

// FormatOf picks the codec from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func Decode(r io.Reader, format Format) (*Definition, error) {
	var def Definition
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil && err != io.EOF {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDefinition, err)
		}
	case FormatTOML:
		md, err := toml.NewDecoder(r).Decode(&def)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDefinition, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: unknown keys %v", ErrMalformedDefinition, undecoded)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return &def, nil
}

func Encode(w io.Writer, format Format, def *Definition) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(def); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(def)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Store is where named population definitions are read from and written to.
type Store interface {
	Read(name string) (*Definition, error)
	Write(name string, def *Definition) error
}

// DirStore keeps definitions as files in one directory. A name without an
// extension resolves to the first of name.yaml, name.yml, name.toml; new
// files default to YAML.
type DirStore struct {
	Dir string
}

var probeExtensions = []string{".yaml", ".yml", ".toml"}

func (s DirStore) Read(name string) (*Definition, error) {
	path, err := s.locate(name)
	if err != nil {
		return nil, err
	}
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f, format)
}

func (s DirStore) Write(name string, def *Definition) error {
	path := filepath.Join(s.Dir, name)
	if filepath.Ext(name) == "" {
		path += ".yaml"
	}
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, format, def); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func (s DirStore) locate(name string) (string, error) {
	base := filepath.Join(s.Dir, name)
	if filepath.Ext(name) != "" {
		return base, nil
	}
	for _, ext := range probeExtensions {
		if _, err := os.Stat(base + ext); err == nil {
			return base + ext, nil
		}
	}
	return "", fmt.Errorf("definition %s: %w", name, os.ErrNotExist)
}

// MemStore keeps encoded definitions in memory. Names carry their extension.
type MemStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{files: make(map[string][]byte)}
}

// Put stores raw definition text under name.
func (s *MemStore) Put(name string, raw string) {
	s.mu.Lock()
	s.files[name] = []byte(raw)
	s.mu.Unlock()
}

func (s *MemStore) Raw(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.files[name]
	return string(raw), ok
}

func (s *MemStore) Read(name string) (*Definition, error) {
	format, err := FormatOf(name)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	raw, ok := s.files[name]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("definition %s: %w", name, os.ErrNotExist)
	}
	return Decode(bytes.NewReader(raw), format)
}

func (s *MemStore) Write(name string, def *Definition) error {
	format, err := FormatOf(name)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, format, def); err != nil {
		return err
	}
	s.mu.Lock()
	s.files[name] = buf.Bytes()
	s.mu.Unlock()
	return nil
}
