// Package threat screens request payloads for SQL injection signatures.
//
// Only string values are inspected. Maps and slices are walked and their
// string leaves scanned; numbers, booleans and nil are never flagged.
package threat

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Category names the family of signature that matched.
type Category string

const (
	CategoryKeyword    Category = "keyword"
	CategoryTautology  Category = "tautology"
	CategoryStructural Category = "structural"
	CategoryTiming     Category = "timing"
	CategoryStacked    Category = "stacked"
	CategoryUnion      Category = "union"
)

type rule struct {
	category Category
	re       *regexp.Regexp
}

var rules = []rule{
	// keywords as whole words; a dot joins words so permission names such
	// as "tasks.update" stay clean
	{CategoryKeyword, regexp.MustCompile(`(?i)(^|[^\w.])(select|insert|update|delete|drop|union|exec|alter|create|truncate)([^\w.]|$)`)},
	{CategoryKeyword, regexp.MustCompile(`(?i)\b(xp_cmdshell|information_schema|pg_catalog)\b`)},

	// structural tokens
	{CategoryStructural, regexp.MustCompile(`(?i)['"]\s*(;|--|/\*|#|\)|\b(or|and|union)\b)`)},
	{CategoryStructural, regexp.MustCompile(`--(\s|$)`)},
	{CategoryStructural, regexp.MustCompile(`/\*|\*/`)},
	{CategoryStructural, regexp.MustCompile(`(?i)::\s*(text|int[248]?|integer|bigint|smallint|varchar|char|numeric|real|float[48]?|bool|boolean|date|timestamptz|timestamp|jsonb?|bytea|regclass|oid|uuid)\b`)},
	{CategoryStructural, regexp.MustCompile(`(?i)\b(cast|convert|n?char)\s*\(`)},
	{CategoryStructural, regexp.MustCompile(`@@\w+`)},

	// timing
	{CategoryTiming, regexp.MustCompile(`(?i)\bwaitfor\s+delay\s+'`)},
	{CategoryTiming, regexp.MustCompile(`(?i)\b(pg_)?sleep\s*\(\s*\d+`)},
	{CategoryTiming, regexp.MustCompile(`(?i)\bbenchmark\s*\(\s*\d+\s*,`)},

	// stacked queries
	{CategoryStacked, regexp.MustCompile(`(?i);\s*(drop|delete|insert|update|alter|create|truncate|exec|execute|grant|revoke|shutdown)\b`)},

	{CategoryUnion, regexp.MustCompile(`(?i)\bunion\b(\s+all)?[\s\S]*?\bselect\b`)},
}

// tautology matches "OR n=n" and "AND n=n" for any numbers, plus quoted or
// bare words compared to themselves ("OR 'a'='a'"). The words are compared
// after the match since the regexp package has no backreferences.
var (
	numericTautology = regexp.MustCompile(`(?i)\b(or|and)\s+['"]?\d+['"]?\s*=\s*['"]?\d+`)
	tautology        = regexp.MustCompile(`(?i)\b(or|and)\s+['"]?(\w+)['"]?\s*=\s*['"]?(\w+)`)
)

// Match is a detected signature.
type Match struct {
	Field    string
	Category Category
}

// Scanner is stateless and safe for concurrent use.
type Scanner struct{}

func NewScanner() *Scanner {
	return &Scanner{}
}

// Detect reports the first signature found in s.
func (s *Scanner) Detect(text string) (Category, bool) {
	if numericTautology.MatchString(text) {
		return CategoryTautology, true
	}
	for _, m := range tautology.FindAllStringSubmatch(text, -1) {
		if strings.EqualFold(m[2], m[3]) {
			return CategoryTautology, true
		}
	}
	for _, r := range rules {
		if r.re.MatchString(text) {
			return r.category, true
		}
	}
	return "", false
}

// Scan reports whether value, or any string nested in it, carries a
// signature.
func (s *Scanner) Scan(value any) bool {
	_, found := s.walk("", value)
	return found
}

// ScanFields scans every field of a decoded payload and returns the dotted
// path of the first flagged field. Keys are visited in sorted order.
func (s *Scanner) ScanFields(fields map[string]any) (Match, bool) {
	return s.walk("", fields)
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func (s *Scanner) walk(path string, value any) (Match, bool) {
	switch v := value.(type) {
	case string:
		if c, ok := s.Detect(v); ok {
			return Match{Field: path, Category: c}, true
		}
	case []string:
		for i, item := range v {
			if m, ok := s.walk(join(path, strconv.Itoa(i)), item); ok {
				return m, true
			}
		}
	case []any:
		for i, item := range v {
			if m, ok := s.walk(join(path, strconv.Itoa(i)), item); ok {
				return m, true
			}
		}
	case map[string]string:
		for _, k := range sortedKeys(v) {
			if m, ok := s.walk(join(path, k), v[k]); ok {
				return m, true
			}
		}
	case map[string]any:
		for _, k := range sortedKeys(v) {
			if m, ok := s.walk(join(path, k), v[k]); ok {
				return m, true
			}
		}
	}
	return Match{}, false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
