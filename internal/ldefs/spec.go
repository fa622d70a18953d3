package ldefs

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Register declares one register, or a numbered bank of them when Count is
// set: Name is then a format with one %d verb, and the i-th register lives
// at Offset + i*Stride.
type Register struct {
	Name   string `yaml:"name"`
	Offset uint64 `yaml:"offset"`
	Size   uint32 `yaml:"size"`
	Group  string `yaml:"group,omitempty"`
	Count  int    `yaml:"count,omitempty"`
	Start  int    `yaml:"start,omitempty"`
	Stride uint64 `yaml:"stride,omitempty"`
}

// ABI is the default calling convention.
type ABI struct {
	Args []string `yaml:"args"`
	Rets []string `yaml:"rets"`
}

// SpaceNames overrides the default address space names.
type SpaceNames struct {
	RAM      string `yaml:"ram,omitempty"`
	Register string `yaml:"register,omitempty"`
	Unique   string `yaml:"unique,omitempty"`
	Const    string `yaml:"const,omitempty"`
}

// Spec is the register and ABI document of one processor.
type Spec struct {
	Name      string     `yaml:"name"`
	Registers []Register `yaml:"registers"`
	PC        string     `yaml:"pc"`
	SP        string     `yaml:"sp"`
	ABI       ABI        `yaml:"abi"`
	UserOps   []string   `yaml:"userops,omitempty"`
	Spaces    SpaceNames `yaml:"spaces,omitempty"`

	regs []Register
}

// ParseSpec decodes and validates a spec document. Unknown keys are errors.
func ParseSpec(data []byte) (*Spec, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var s Spec
	if err := dec.Decode(&s); err != nil {
		return nil, err
	}
	if err := s.expand(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Spec) expand() error {
	s.regs = s.regs[:0]
	for _, r := range s.Registers {
		if r.Size == 0 {
			return fmt.Errorf("register %q: size is zero", r.Name)
		}
		if r.Count == 0 {
			s.regs = append(s.regs, Register{Name: r.Name, Offset: r.Offset, Size: r.Size, Group: r.Group})
			continue
		}
		if !strings.Contains(r.Name, "%d") {
			return fmt.Errorf("register bank %q: name needs a %%d verb", r.Name)
		}
		stride := r.Stride
		if stride == 0 {
			stride = uint64(r.Size)
		}
		for i := 0; i < r.Count; i++ {
			s.regs = append(s.regs, Register{
				Name:   fmt.Sprintf(r.Name, r.Start+i),
				Offset: r.Offset + uint64(i)*stride,
				Size:   r.Size,
				Group:  r.Group,
			})
		}
	}
	if len(s.regs) == 0 {
		return fmt.Errorf("no registers declared")
	}

	known := make(map[string]bool, len(s.regs))
	for _, r := range s.regs {
		known[r.Name] = true
	}
	check := func(role, name string) error {
		if !known[name] {
			return fmt.Errorf("%s register %q is not declared", role, name)
		}
		return nil
	}
	if err := check("pc", s.PC); err != nil {
		return err
	}
	if err := check("sp", s.SP); err != nil {
		return err
	}
	for _, n := range s.ABI.Args {
		if err := check("argument", n); err != nil {
			return err
		}
	}
	for _, n := range s.ABI.Rets {
		if err := check("return", n); err != nil {
			return err
		}
	}
	return nil
}

// Regs returns the declared registers with banks expanded, in declaration
// order.
func (s *Spec) Regs() []Register {
	if s.regs == nil {
		// Built by hand rather than parsed.
		if err := s.expand(); err != nil {
			return nil
		}
	}
	out := make([]Register, len(s.regs))
	copy(out, s.regs)
	return out
}
