package pacer

import (
	"regexp"
	"strings"
)

// GoDLSArgs holds the parsed argument list of the legacy goDLS() script call
// PACER attaches to document links. The call embeds the case id that the
// link's href omits.
type GoDLSArgs struct {
	Hyperlink         string
	DeCaseID          string
	DeSeqNum          string
	GotReceipt        string
	PDFHeader         string
	PDFToggle         string
	MagicNum          string
	ClaimsRegister    string
	NeedsAppendixPage string
}

// goDLS calls take seven to nine single-quoted arguments. The grammar is
// fixed; anything else is not a goDLS call.
var goDLSRe = regexp.MustCompile(`^goDLS\(\s*((?:'[^']*'\s*,\s*)*'[^']*')\s*\)\s*;?\s*(?:return\s+false\s*;?\s*)?$`)

// ParseGoDLS parses a goDLS('...','...') call string without evaluating it.
// The second return is false when the text is not a well-formed call of the
// expected arity.
func ParseGoDLS(call string) (GoDLSArgs, bool) {
	m := goDLSRe.FindStringSubmatch(strings.TrimSpace(call))
	if m == nil {
		return GoDLSArgs{}, false
	}
	parts := splitQuotedArgs(m[1])
	if len(parts) < 7 || len(parts) > 9 {
		return GoDLSArgs{}, false
	}
	args := GoDLSArgs{
		Hyperlink:  parts[0],
		DeCaseID:   parts[1],
		DeSeqNum:   parts[2],
		GotReceipt: parts[3],
		PDFHeader:  parts[4],
		PDFToggle:  parts[5],
		MagicNum:   parts[6],
	}
	if len(parts) > 7 {
		args.ClaimsRegister = parts[7]
	}
	if len(parts) > 8 {
		args.NeedsAppendixPage = parts[8]
	}
	return args, true
}

func splitQuotedArgs(list string) []string {
	var out []string
	for {
		start := strings.IndexByte(list, '\'')
		if start < 0 {
			return out
		}
		rest := list[start+1:]
		end := strings.IndexByte(rest, '\'')
		if end < 0 {
			return out
		}
		out = append(out, rest[:end])
		list = rest[end+1:]
	}
}
