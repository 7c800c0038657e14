package registry

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
)

// Picker prompts for a check selection when none was given on the
// command line.
type Picker struct {
	in  io.Reader
	out io.Writer
}

// NewPicker builds a picker reading selections from in and writing the
// menu to out.
func NewPicker(in io.Reader, out io.Writer) *Picker {
	return &Picker{in: in, out: out}
}

// Pick prints a numbered menu of the selectable checks for the enabled
// providers and reads one selection: indices or identifiers separated
// by commas or spaces. ALL, an empty line, or end of input selects
// everything.
func (p *Picker) Pick(available map[string][]domain.CheckDescriptor, providers []string) ([]string, error) {
	var menu []domain.CheckDescriptor
	for _, tag := range providers {
		for _, desc := range available[tag] {
			if desc.Flags.Disabled || !desc.Flags.DisplayInMenu {
				continue
			}
			menu = append(menu, desc)
		}
	}
	if len(menu) == 0 {
		return []string{AllToken}, nil
	}

	fmt.Fprintln(p.out, "Select checks to run (numbers or identifiers; ALL or empty for everything):")
	for i, desc := range menu {
		fmt.Fprintf(p.out, "  %2d) %-40s %s\n", i+1, desc.Identifier, desc.CommonName)
	}
	fmt.Fprint(p.out, "checks> ")

	scanner := bufio.NewScanner(p.in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read check selection: %w", err)
		}
		// Non-interactive input ends immediately; run everything.
		return []string{AllToken}, nil
	}

	line := strings.TrimSpace(scanner.Text())
	if line == "" {
		return []string{AllToken}, nil
	}

	var picked []string
	tokens := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	for _, token := range tokens {
		if strings.EqualFold(token, AllToken) {
			return []string{AllToken}, nil
		}
		if n, err := strconv.Atoi(token); err == nil {
			if n < 1 || n > len(menu) {
				return nil, fmt.Errorf("check selection %d out of range", n)
			}
			picked = append(picked, menu[n-1].Identifier)
			continue
		}
		picked = append(picked, token)
	}
	return picked, nil
}
