package main

import "strings"

// LoadFASTA reads a single-record FASTA reference (§6). Only the
// first record is used; the spec requires "single record, unwrapped."
func LoadFASTA(filename string) (*Reference, error) {
	r := NewCompressedReader(filename)
	if err := r.Open(); err != nil {
		return nil, err
	}
	defer r.Close()

	scanner := r.Scanner()
	var name string
	var seq strings.Builder
	seenHeader := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ">") {
			if seenHeader {
				break // single record only
			}
			seenHeader = true
			name = strings.TrimSpace(strings.TrimPrefix(line, ">"))
			continue
		}
		seq.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, wrapErr(ErrInputFormat, "reading FASTA "+filename, err)
	}
	if !seenHeader {
		return nil, newErr(ErrInputFormat, "FASTA file has no header record: "+filename)
	}
	return NewReference(name, seq.String())
}
