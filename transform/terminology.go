package transform

import (
	"regexp"
	"strings"

	"github.com/care-sm/care2omop/tabular"
)

// uriScheme matches the generic scheme://... shape of a URI reference.
var uriScheme = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

// MapValues resolves the source column through the lookup and writes hits to
// the target column. A miss leaves the target untouched, so one unmapped row
// never nulls out a value mapped for another.
func MapValues(t *tabular.Table, source, target string, lookup map[string]string) {
	if !t.HasColumn(source) {
		return
	}
	for i := 0; i < t.Len(); i++ {
		code, ok := t.Value(i, source).(string)
		if !ok {
			continue
		}
		if concept, ok := lookup[code]; ok {
			t.SetValue(i, target, concept)
		}
	}
}

// MapWithPrefixStrip resolves source codes carried inside a known ontology
// namespace. Values beginning with the prefix are stripped to the bare code
// before lookup, values in any other URI scheme are skipped entirely, and
// plain codes are looked up verbatim.
func MapWithPrefixStrip(t *tabular.Table, source, target, prefix string, lookup map[string]string) {
	if !t.HasColumn(source) {
		return
	}
	for i := 0; i < t.Len(); i++ {
		value, ok := t.Value(i, source).(string)
		if !ok {
			continue
		}
		code := value
		if strings.HasPrefix(value, prefix) {
			code = strings.TrimPrefix(value, prefix)
		} else if uriScheme.MatchString(value) {
			continue
		}
		if concept, ok := lookup[code]; ok {
			t.SetValue(i, target, concept)
		}
	}
}
