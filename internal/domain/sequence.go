package domain

import (
	"errors"
	"fmt"
	"strings"
)

// SequencePolicy is the ordered list of document types an employee must clear.
// The zero value has no types.
type SequencePolicy struct {
	types []DocType
	index map[DocType]int
}

func NewSequencePolicy(types ...DocType) (SequencePolicy, error) {
	if len(types) == 0 {
		return SequencePolicy{}, errors.New("sequence policy needs at least one document type")
	}
	index := make(map[DocType]int, len(types))
	for i, t := range types {
		if strings.TrimSpace(string(t)) == "" {
			return SequencePolicy{}, fmt.Errorf("sequence policy position %d is empty", i)
		}
		if _, dup := index[t]; dup {
			return SequencePolicy{}, fmt.Errorf("sequence policy lists %q twice", t)
		}
		index[t] = i
	}
	return SequencePolicy{types: append([]DocType(nil), types...), index: index}, nil
}

func DefaultSequencePolicy() SequencePolicy {
	p, err := NewSequencePolicy(DocTypeOPTReceipt, DocTypeOPTEAD, DocTypeI983, DocTypeI20)
	if err != nil {
		panic(err)
	}
	return p
}

// ParseSequencePolicy builds a policy from a comma separated list such as
// "OPT Receipt,OPT EAD,I-983,I-20".
func ParseSequencePolicy(v string) (SequencePolicy, error) {
	parts := strings.Split(v, ",")
	types := make([]DocType, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			types = append(types, DocType(p))
		}
	}
	return NewSequencePolicy(types...)
}

func (p SequencePolicy) OrderOf(t DocType) (int, bool) {
	i, ok := p.index[t]
	return i, ok
}

func (p SequencePolicy) Contains(t DocType) bool {
	_, ok := p.index[t]
	return ok
}

func (p SequencePolicy) IsLast(t DocType) bool {
	i, ok := p.index[t]
	return ok && i == len(p.types)-1
}

func (p SequencePolicy) AllTypes() []DocType {
	return append([]DocType(nil), p.types...)
}

func (p SequencePolicy) Len() int {
	return len(p.types)
}

// First returns "" for the zero policy.
func (p SequencePolicy) First() DocType {
	if len(p.types) == 0 {
		return ""
	}
	return p.types[0]
}

func (p SequencePolicy) Next(t DocType) (DocType, bool) {
	i, ok := p.index[t]
	if !ok || i+1 >= len(p.types) {
		return "", false
	}
	return p.types[i+1], true
}
