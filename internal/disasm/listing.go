package disasm

import (
	"bufio"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ListingFormat identifies the disassembly layout ParseListing understands.
// Bump it whenever the rules below change.
const ListingFormat = "disfile-l-r/1"

const (
	blockStart = "00000:"
	blockEnd   = "Source"
)

var (
	opcodeLine = regexp.MustCompile(`^0*([0-9]+): *([0-9]+)`)
	funcDecl   = regexp.MustCompile(`function ([a-zA-Z_$0-9]+)\(`)
)

// Listing is the line table recovered from a disassembly.
type Listing struct {
	// Lines holds every source line that carries an instruction, ascending.
	Lines []int
	// Functions maps each named function to its first declaration line.
	Functions map[string]int
	// Blocks counts the instruction blocks that were read.
	Blocks int
}

// ParseListing reads a recursive line-numbered disassembly.
//
// Lines before an instruction-0 line ("00000:") are ignored. A line starting
// with "Source" closes the block and skipping resumes until the next
// instruction 0. Inside a block, each instruction line contributes its source
// line (second column), and a "function NAME(" mention on that line declares
// NAME there.
func ParseListing(r io.Reader) (Listing, error) {
	l := Listing{Functions: make(map[string]int)}
	seen := make(map[int]struct{})

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	inBlock := false
	for sc.Scan() {
		line := sc.Text()
		if !inBlock {
			if !strings.HasPrefix(line, blockStart) {
				continue
			}
			inBlock = true
			l.Blocks++
		}
		if strings.HasPrefix(line, blockEnd) {
			inBlock = false
			continue
		}
		m := opcodeLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		lno, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		if _, ok := seen[lno]; !ok {
			seen[lno] = struct{}{}
			l.Lines = append(l.Lines, lno)
		}
		if fm := funcDecl.FindStringSubmatch(line); fm != nil {
			if _, ok := l.Functions[fm[1]]; !ok {
				l.Functions[fm[1]] = lno
			}
		}
	}
	if err := sc.Err(); err != nil {
		return l, err
	}
	sort.Ints(l.Lines)
	return l, nil
}
