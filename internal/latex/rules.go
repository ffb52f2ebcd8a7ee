package latex

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"
)

// Rule is one user-configured replacement. When NumArgs is positive the
// Pattern names a command (with or without its leading backslash) whose
// NumArgs brace arguments are substituted into Replacement as #1..#9.
// Otherwise Pattern is a regular expression and Replacement may refer to
// groups as $1 or $& in addition to Go's ${name} form.
type Rule struct {
	Pattern     string `yaml:"pattern" json:"pattern"`
	Replacement string `yaml:"replacement" json:"replacement"`
	Flags       string `yaml:"flags,omitempty" json:"flags,omitempty"`
	NumArgs     int    `yaml:"numArgs,omitempty" json:"numArgs,omitempty"`
}

// RuleError reports a rule that could not be compiled.
type RuleError struct {
	Index   int
	Pattern string
	Err     error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %d (%q): %v", e.Index, e.Pattern, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }

type compiledRule struct {
	re          *regexp.Regexp
	command     string
	numArgs     int
	replacement string
}

// RuleSet is an immutable, compiled rule list. The zero value and nil both
// apply no rules, and a RuleSet is safe to share between goroutines.
type RuleSet struct {
	rules       []compiledRule
	fingerprint string
}

// Fingerprint identifies the accepted rules. Two sets built from the same
// rules share it; the empty set has "".
func (rs *RuleSet) Fingerprint() string {
	if rs == nil {
		return ""
	}
	return rs.fingerprint
}

// Len returns the number of usable rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// CompileRules compiles rules in order. A rule that fails to compile is
// skipped and reported; the returned set still holds every other rule.
func CompileRules(rules []Rule) (*RuleSet, []error) {
	rs := &RuleSet{}
	var errs []error
	h := xxhash.New()
	accept := func(r Rule, c compiledRule) {
		rs.rules = append(rs.rules, c)
		h.WriteString(r.Pattern + "\x00" + r.Replacement + "\x00" + r.Flags + "\x00" + strconv.Itoa(r.NumArgs) + "\x01")
	}
	for i, r := range rules {
		if r.Pattern == "" {
			errs = append(errs, &RuleError{Index: i, Pattern: r.Pattern, Err: fmt.Errorf("empty pattern")})
			continue
		}
		if r.NumArgs > 0 {
			if r.NumArgs > 9 {
				errs = append(errs, &RuleError{Index: i, Pattern: r.Pattern, Err: fmt.Errorf("numArgs %d exceeds 9", r.NumArgs)})
				continue
			}
			name := strings.TrimPrefix(r.Pattern, `\`)
			if name == "" {
				errs = append(errs, &RuleError{Index: i, Pattern: r.Pattern, Err: fmt.Errorf("empty command name")})
				continue
			}
			accept(r, compiledRule{command: name, numArgs: r.NumArgs, replacement: r.Replacement})
			continue
		}
		prefix, err := flagPrefix(r.Flags)
		if err != nil {
			errs = append(errs, &RuleError{Index: i, Pattern: r.Pattern, Err: err})
			continue
		}
		re, err := regexp.Compile(prefix + r.Pattern)
		if err != nil {
			errs = append(errs, &RuleError{Index: i, Pattern: r.Pattern, Err: err})
			continue
		}
		accept(r, compiledRule{re: re, replacement: convertReplacement(r.Replacement)})
	}
	if len(rs.rules) > 0 {
		rs.fingerprint = strconv.FormatUint(h.Sum64(), 16)
	}
	return rs, errs
}

// flagPrefix maps i, m and s to inline regexp flags. g and u are accepted
// and have no effect: every rule replaces all matches on UTF-8 text.
func flagPrefix(flags string) (string, error) {
	var inline strings.Builder
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's':
			if !strings.ContainsRune(inline.String(), f) {
				inline.WriteRune(f)
			}
		case 'g', 'u':
		default:
			return "", fmt.Errorf("unsupported flag %q", f)
		}
	}
	if inline.Len() == 0 {
		return "", nil
	}
	return "(?" + inline.String() + ")", nil
}

// convertReplacement rewrites $& and $n references into ${0} and ${n}.
func convertReplacement(repl string) string {
	if !strings.Contains(repl, "$") {
		return repl
	}
	var b strings.Builder
	for i := 0; i < len(repl); i++ {
		c := repl[i]
		if c != '$' || i+1 >= len(repl) {
			b.WriteByte(c)
			continue
		}
		next := repl[i+1]
		switch {
		case next == '$':
			b.WriteString("$$")
			i++
		case next == '&':
			b.WriteString("${0}")
			i++
		case next >= '0' && next <= '9':
			j := i + 1
			for j < len(repl) && j < i+3 && repl[j] >= '0' && repl[j] <= '9' {
				j++
			}
			b.WriteString("${" + repl[i+1:j] + "}")
			i = j - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Apply runs every rule over s in order.
func (rs *RuleSet) Apply(s string) string {
	if rs == nil {
		return s
	}
	for _, r := range rs.rules {
		if r.re != nil {
			s = r.re.ReplaceAllString(s, r.replacement)
			continue
		}
		s = ReplaceCommand(s, r.command, r.numArgs, false, func(a CommandArgs) string {
			return ExpandMacro(r.replacement, a.Args)
		})
	}
	return s
}

// RuleFile is the on-disk layout of a replacement-rule file.
type RuleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads a yaml rule file and compiles it. A missing file yields an
// empty rule set. Rule-level compile errors are returned alongside the set.
func LoadRules(path string) (*RuleSet, []error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &RuleSet{}, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to read rule file %s: %w", path, err)
	}
	var file RuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("failed to parse rule file %s: %w", path, err)
	}
	rs, errs := CompileRules(file.Rules)
	return rs, errs, nil
}
