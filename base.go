package main

import "math/bits"

// Base is a nucleotide value represented as a 4-bit one-hot set over
// (A,C,G,T). A single bit encodes an unambiguous base; two or more
// bits encode an IUPAC ambiguity code (all four bits set is N).
type Base uint8

const (
	BaseA Base = 1 << iota
	BaseC
	BaseG
	BaseT
)

// BaseN is the fully ambiguous base: compatible with everything.
const BaseN = BaseA | BaseC | BaseG | BaseT

// unambiguousByByte / byteByBase cover the minimal {A,C,G,T,N}
// alphabet (input accepted in either case); extended IUPAC letters beyond N are
// rejected rather than silently accepted (spec.md §4.1 calls this
// implementation policy; this repo takes the minimal set).
var unambiguousByByte = map[byte]Base{
	'A': BaseA, 'C': BaseC, 'G': BaseG, 'T': BaseT,
	'a': BaseA, 'c': BaseC, 'g': BaseG, 't': BaseT,
	'N': BaseN, 'n': BaseN,
}

var byteByBase = map[Base]byte{
	BaseA: 'A', BaseC: 'C', BaseG: 'G', BaseT: 'T', BaseN: 'N',
}

// BaseFromByte parses one FASTA/VCF nucleotide character.
func BaseFromByte(c byte) (Base, error) {
	b, ok := unambiguousByByte[c]
	if !ok {
		return 0, newErr(ErrInputFormat, "invalid base character '"+string(c)+"'")
	}
	return b, nil
}

// IsAmbiguous reports whether more than one bit is set.
func (b Base) IsAmbiguous() bool { return bits.OnesCount8(uint8(b)) > 1 }

// CompatibleWith reports whether the two bases share a bit.
func (b Base) CompatibleWith(other Base) bool { return b&other != 0 }

// ResolveFirst picks the lowest set bit, used by ancestral
// reconstruction when several bases are equally optimal (spec.md
// §4.1 Numerics: "picks the first bit set in a chosen one-hot set").
func (b Base) ResolveFirst() Base {
	if b == 0 {
		return 0
	}
	return Base(1 << bits.TrailingZeros8(uint8(b)))
}

// Byte renders a Base as its IUPAC character. The lookup table covers
// A/C/G/T/N only; any other combination of bits renders as 'N'.
func (b Base) Byte() byte {
	if c, ok := byteByBase[b]; ok {
		return c
	}
	// A genuine ambiguity combination other than N can still arise
	// from edge-mutation resolution against an ambiguous reference;
	// render it as N, the only IUPAC code this system round-trips.
	return 'N'
}

func (b Base) String() string { return string(b.Byte()) }
