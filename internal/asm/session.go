// Package asm drives a translation engine one instruction at a time: it
// feeds caller bytes in, collects assembly text and micro-operations out,
// and canonicalizes register names on the way.
package asm

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/davecgh/go-spew/spew"

	"lifter/internal/canon"
	"lifter/internal/config"
	"lifter/internal/disasm"
	"lifter/internal/ldefs"
	"lifter/internal/pcode"
	"lifter/internal/sleigh"
)

// ErrNotReady is returned by operations on a session that has not been
// initialized.
var ErrNotReady = errors.New("session not initialized")

// Session binds one language to one engine instance. It is not safe for
// concurrent use.
type Session struct {
	log *log.Logger

	ready  bool
	lang   ldefs.Description
	tr     sleigh.Translator
	table  *canon.Table
	loader LoadImage
	text   *TextEmit
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. Sessions log nothing by default.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.log = l }
}

// New returns an uninitialized session.
func New(opts ...Option) *Session {
	s := &Session{}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = log.New(io.Discard)
	}
	return s
}

// Init resolves the language for cpu, bits and byte order, opens its
// backend and canonicalizes its registers. A nil cfg uses the built-in
// language set. On failure the session is left uninitialized.
func (s *Session) Init(cpu string, bits int, bigEndian bool, cfg *config.Config) error {
	s.ready = false
	s.tr, s.table, s.text = nil, nil, nil

	store, err := ldefs.Scan(cfg.LanguageFS())
	if err != nil {
		return err
	}
	lang, err := store.Resolve(cpu, bits, bigEndian)
	if err != nil {
		return err
	}
	spec, err := store.LoadSpec(lang)
	if err != nil {
		return err
	}
	tr, err := sleigh.Open(lang.Backend, sleigh.Options{
		Spec:      spec,
		Loader:    &s.loader,
		BigEndian: lang.BigEndian(),
		Alignment: lang.Alignment,
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ldefs.ErrSpecLoad, lang.ID, err)
	}

	s.lang, s.tr = lang, tr
	s.table = canon.Build(tr.Registration())
	s.text = NewTextEmit(s.table.Map())
	s.ready = true
	s.log.Info("Session ready", "language", lang.ID, "backend", lang.Backend, "registers", len(s.table.Registers()))
	return nil
}

// Ready reports whether Init succeeded.
func (s *Session) Ready() bool { return s.ready }

// Disassemble decodes the instruction at the start of buf, which is mapped
// at addr.
func (s *Session) Disassemble(addr uint64, buf []byte) (disasm.Inst, error) {
	if !s.ready {
		return disasm.Inst{}, ErrNotReady
	}
	s.loader.Reset(addr, buf)
	s.text.Reset()
	n, err := s.tr.PrintAssembly(s.text, addr)
	if err != nil {
		s.log.Debug("Disassembly failed", "addr", fmt.Sprintf("%#x", addr), "err", err)
		return disasm.Inst{}, err
	}
	return disasm.Inst{
		VA:   addr,
		Text: s.text.String(),
		Op:   s.text.Mnem,
		Len:  n,
		Raw:  clone(buf, n),
	}, nil
}

// Translate lifts the instruction at the start of buf into a fresh
// sequence and returns it with the instruction length.
func (s *Session) Translate(addr uint64, buf []byte) (pcode.Seq, int, error) {
	if !s.ready {
		return nil, 0, ErrNotReady
	}
	s.loader.Reset(addr, buf)
	b := pcode.NewBuilder(resolver{s})
	n, err := s.tr.OneInstruction(b, addr)
	if err != nil {
		s.log.Debug("Translation failed", "addr", fmt.Sprintf("%#x", addr), "err", err)
		return nil, 0, err
	}
	seq := b.Seq()
	if s.log.GetLevel() <= log.DebugLevel {
		s.log.Debug("Lifted", "addr", fmt.Sprintf("%#x", addr), "ops", len(seq), "seq", spew.Sdump(seq))
	}
	return seq, n, nil
}

// ListOptions controls Listing.
type ListOptions struct {
	Count int  // stop after this many instructions; 0 means no limit
	Pcode bool // lift every instruction
}

// Listing sweeps buf linearly from addr. Bytes that do not decode become
// invalid entries one alignment unit long.
func (s *Session) Listing(addr uint64, buf []byte, opts ListOptions) (disasm.Stream, error) {
	if !s.ready {
		return nil, ErrNotReady
	}
	var out disasm.Stream
	step := max(s.Alignment(), 1)
	for off := 0; off < len(buf); {
		if opts.Count > 0 && len(out) == opts.Count {
			break
		}
		va := addr + uint64(off)
		inst, err := s.Disassemble(va, buf[off:])
		switch {
		case errors.Is(err, sleigh.ErrDecode), errors.Is(err, sleigh.ErrOutOfRange):
			n := min(step, len(buf)-off)
			out = append(out, disasm.Inst{VA: va, Text: disasm.InvalidOp, Op: disasm.InvalidOp, Len: n, Raw: clone(buf[off:], n)})
			off += n
			continue
		case err != nil:
			return out, err
		}
		if opts.Pcode {
			seq, _, err := s.Translate(va, buf[off:])
			if err != nil {
				return out, fmt.Errorf("lift %#x: %w", va, err)
			}
			inst.Pcode = seq
		}
		out = append(out, inst)
		off += inst.Len
	}
	return out, nil
}

func clone(buf []byte, n int) []byte {
	n = min(n, len(buf))
	return append([]byte(nil), buf[:n]...)
}

// Language is the resolved language description.
func (s *Session) Language() ldefs.Description { return s.lang }

// Registers lists every declared register with its canonical name.
func (s *Session) Registers() []canon.Descriptor {
	if s.table == nil {
		return nil
	}
	return s.table.Registers()
}

func (s *Session) PC() string {
	if s.table == nil {
		return ""
	}
	return s.table.PC()
}

func (s *Session) SP() string {
	if s.table == nil {
		return ""
	}
	return s.table.SP()
}

func (s *Session) Args() []string {
	if s.table == nil {
		return nil
	}
	return s.table.Args()
}

func (s *Session) Rets() []string {
	if s.table == nil {
		return nil
	}
	return s.table.Rets()
}

// Groups maps canonical register names to their groups.
func (s *Session) Groups() map[string]string {
	if s.table == nil {
		return nil
	}
	return s.table.Groups()
}

// Alignment is the instruction alignment of the language, 1 when unset.
func (s *Session) Alignment() int {
	if s.tr == nil {
		return 1
	}
	return s.tr.Registration().Alignment
}

// Profile renders the register profile.
func (s *Session) Profile() string {
	if s.table == nil {
		return ""
	}
	return s.table.Profile()
}

// resolver names register varnodes for the sequence builder.
type resolver struct{ s *Session }

// RegisterName returns the canonical name of v. Storage no declared
// register covers is named after its offset and size.
func (r resolver) RegisterName(v pcode.Varnode) string {
	native := r.s.tr.RegisterName(v)
	if native == "" {
		return fmt.Sprintf("reg_%x_%d", v.Offset, v.Size)
	}
	if c, ok := r.s.table.Native(native); ok {
		return c
	}
	return canon.Canonical(native)
}
