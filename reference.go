package main

import "strings"

// Reference is the nonempty sequence every CompactGenome diffs
// against. Bases are stored as parsed Base values (N kept as the
// four-bit BaseN) so At(pos) is O(1); the raw string is kept for round-tripping FASTA
// output and error messages.
type Reference struct {
	Name  string
	Raw   string
	bases []Base
}

// NewReference parses a reference sequence, rejecting characters
// outside the minimal IUPAC set.
func NewReference(name, seq string) (*Reference, error) {
	if len(seq) == 0 {
		return nil, newErr(ErrInputFormat, "reference sequence is empty")
	}
	bases := make([]Base, len(seq))
	for i := 0; i < len(seq); i++ {
		b, err := BaseFromByte(seq[i])
		if err != nil {
			return nil, err
		}
		bases[i] = b
	}
	return &Reference{Name: name, Raw: strings.ToUpper(seq), bases: bases}, nil
}

// Len returns the reference length.
func (r *Reference) Len() int { return len(r.bases) }

// At returns the base at a 1-indexed position.
func (r *Reference) At(pos MutationPosition) Base {
	return r.bases[int(pos)-1]
}

// Equal compares two references by raw sequence; two inputs that
// disagree here is the RefMismatch failure mode of §4.2.
func (r *Reference) Equal(other *Reference) bool {
	if r == other {
		return true
	}
	if r == nil || other == nil {
		return false
	}
	return r.Raw == other.Raw
}
