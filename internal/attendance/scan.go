package attendance

import (
	"regexp"
	"strings"

	"upasthiti/internal/qr"
)

// ScanResult is a roll number recovered from scanned text.
type ScanResult struct {
	RollNo      string
	StudentName string
	Parser      string
}

// ScanParser tries one interpretation of scanned text.
type ScanParser interface {
	Name() string
	Parse(raw string) (ScanResult, bool)
}

// ScanChain tries parsers left to right; the first success wins.
type ScanChain []ScanParser

// Resolve returns the first successful interpretation of raw. With IdentityParser
// last in the chain, every non-empty input resolves.
func (c ScanChain) Resolve(raw string) (ScanResult, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ScanResult{}, false
	}
	for _, p := range c {
		if res, ok := p.Parse(raw); ok && res.RollNo != "" {
			res.Parser = p.Name()
			return res, true
		}
	}
	return ScanResult{}, false
}

// DefaultScanChain: student QR payload, STUDENT_<roll>_<digits>, LETTERS-YYYY-NNN, raw text.
var DefaultScanChain = ScanChain{
	StudentPayloadParser{},
	&RegexpParser{Label: "prefixed", Pattern: regexp.MustCompile(`STUDENT_(.+?)_\d+`)},
	&RegexpParser{Label: "roll-number", Pattern: regexp.MustCompile(`^([A-Z]+-\d{4}-\d{3})`)},
	IdentityParser{},
}

// StudentPayloadParser reads a student QR payload.
type StudentPayloadParser struct{}

func (StudentPayloadParser) Name() string { return "student-payload" }

func (StudentPayloadParser) Parse(raw string) (ScanResult, bool) {
	p, err := qr.DecodeStudent(raw)
	if err != nil {
		return ScanResult{}, false
	}
	return ScanResult{RollNo: p.Identifier(), StudentName: strings.TrimSpace(p.Name)}, true
}

// RegexpParser takes the roll number from the first capture group of Pattern.
type RegexpParser struct {
	Label   string
	Pattern *regexp.Regexp
}

func (p *RegexpParser) Name() string { return p.Label }

func (p *RegexpParser) Parse(raw string) (ScanResult, bool) {
	m := p.Pattern.FindStringSubmatch(raw)
	if len(m) < 2 {
		return ScanResult{}, false
	}
	return ScanResult{RollNo: m[1]}, true
}

// IdentityParser treats the whole trimmed text as the roll number.
type IdentityParser struct{}

func (IdentityParser) Name() string { return "raw" }

func (IdentityParser) Parse(raw string) (ScanResult, bool) {
	return ScanResult{RollNo: strings.TrimSpace(raw)}, true
}
