// Package ldefs reads language definitions: which processor variants exist,
// which backend decodes them, and the register/ABI document for each.
package ldefs

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNoLanguage means no definition matches the requested cpu triple.
	ErrNoLanguage = errors.New("no matching language definition")
	// ErrSpecLoad means a definition or spec document could not be read.
	ErrSpecLoad = errors.New("cannot load language spec")
)

// Description is one language variant, e.g. AARCH64:LE:64:v8A.
type Description struct {
	ID        string   `yaml:"id" json:"id"`
	Processor string   `yaml:"processor" json:"processor"`
	Endian    string   `yaml:"endian" json:"endian"`
	Size      int      `yaml:"size" json:"size"`
	Variant   string   `yaml:"variant" json:"variant"`
	Alignment int      `yaml:"alignment" json:"alignment"`
	Backend   string   `yaml:"backend" json:"backend"`
	Spec      string   `yaml:"spec" json:"spec"`
	Default   bool     `yaml:"default" json:"default,omitempty"`
	Aliases   []string `yaml:"aliases" json:"aliases,omitempty"`
	Comment   string   `yaml:"description" json:"description,omitempty"`

	// SpecPath is Spec resolved against the directory of the ldefs file.
	SpecPath string `yaml:"-" json:"-"`
}

// BigEndian reports whether the variant is big endian.
func (d Description) BigEndian() bool {
	switch strings.ToLower(d.Endian) {
	case "big", "be":
		return true
	}
	return false
}

func (d Description) String() string { return d.ID }

func (d Description) matchesCPU(cpu string) bool {
	if strings.EqualFold(d.Processor, cpu) {
		return true
	}
	for _, a := range d.Aliases {
		if strings.EqualFold(a, cpu) {
			return true
		}
	}
	return false
}

type ldefsFile struct {
	Languages []Description `yaml:"languages"`
}

// Store holds every description found in a language directory.
type Store struct {
	fsys  fs.FS
	langs []Description
}

// Scan reads every *.ldefs.yaml file under fsys.
func Scan(fsys fs.FS) (*Store, error) {
	s := &Store{fsys: fsys}
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".ldefs.yaml") {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		var f ldefsFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		for _, l := range f.Languages {
			if l.ID == "" || l.Spec == "" {
				return fmt.Errorf("%s: language without id or spec", p)
			}
			l.SpecPath = path.Join(path.Dir(p), l.Spec)
			s.langs = append(s.langs, l)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSpecLoad, err)
	}
	sort.SliceStable(s.langs, func(i, j int) bool { return s.langs[i].ID < s.langs[j].ID })
	return s, nil
}

// Languages lists the known descriptions ordered by ID.
func (s *Store) Languages() []Description {
	out := make([]Description, len(s.langs))
	copy(out, s.langs)
	return out
}

// Resolve picks the description for a cpu triple. cpu may be a full
// language ID, which then wins regardless of bits and endianness. Otherwise
// the processor name or an alias must match together with size and
// endianness, and a default variant is preferred.
func (s *Store) Resolve(cpu string, bits int, bigEndian bool) (Description, error) {
	for _, l := range s.langs {
		if strings.EqualFold(l.ID, cpu) {
			return l, nil
		}
	}

	var found []Description
	for _, l := range s.langs {
		if l.matchesCPU(cpu) && l.Size == bits && l.BigEndian() == bigEndian {
			found = append(found, l)
		}
	}
	if len(found) == 0 {
		end := "little"
		if bigEndian {
			end = "big"
		}
		return Description{}, fmt.Errorf("%w: %s %d-bit %s endian", ErrNoLanguage, cpu, bits, end)
	}
	for _, l := range found {
		if l.Default {
			return l, nil
		}
	}
	return found[0], nil
}

// LoadSpec reads and validates the spec document of d.
func (s *Store) LoadSpec(d Description) (*Spec, error) {
	p := d.SpecPath
	if p == "" {
		p = d.Spec
	}
	data, err := fs.ReadFile(s.fsys, p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSpecLoad, d.ID, err)
	}
	spec, err := ParseSpec(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSpecLoad, d.ID, err)
	}
	return spec, nil
}
