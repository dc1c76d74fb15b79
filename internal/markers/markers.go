// Package markers defines the event-marker vocabulary shared with the
// presentation and recording side, and plans the marker script of a session.
//
// A marker is a name optionally followed by ordered key=value fields:
//
//	S1_onset_probe|trial=12,stim_id=pendrive
//
// The S1 and S2 categories of a trial are always recoverable from the names
// alone, so epochs can be labeled without the behavioral log.
package markers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/p300-cit/internal/model"
)

// Marker names.
const (
	TrialStart    = "trial_start"
	FixationOnset = "fixation_onset"
	S1Response    = "S1_response"
	S2Response    = "S2_response"
	ITIStart      = "ITI_start"
	BlockStart    = "block_start"
	BlockEnd      = "block_end"

	s1OnsetPrefix = "S1_onset_"
	s2OnsetPrefix = "S2_onset_"
)

// S1Onset names the S1 onset marker for a probe or irrelevant image.
func S1Onset(c model.Category) string {
	return s1OnsetPrefix + string(c)
}

// S2Onset names the S2 onset marker for a target or nontarget string.
func S2Onset(c model.Category) string {
	return s2OnsetPrefix + string(c)
}

// Field is one key=value pair attached to a marker.
type Field struct {
	Key   string
	Value string
}

// F builds a field, formatting the value with %v.
func F(key string, value any) Field {
	return Field{Key: key, Value: fmt.Sprint(value)}
}

// Marker is a named event with ordered metadata.
type Marker struct {
	Name   string
	Fields []Field
}

// String formats the marker as it is sent on the wire.
func (m Marker) String() string {
	return Format(m.Name, m.Fields...)
}

// Get returns the value of the first field named key.
func (m Marker) Get(key string) (string, bool) {
	for _, f := range m.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Int returns the integer value of field key.
func (m Marker) Int(key string) (int, error) {
	v, ok := m.Get(key)
	if !ok {
		return 0, fmt.Errorf("marker %s has no %s field", m.Name, key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("marker %s field %s: %w", m.Name, key, err)
	}
	return n, nil
}

// Category resolves the stimulus category carried by an onset marker.
func (m Marker) Category() (model.Category, bool) {
	return CategoryFromTag(m.Name)
}

// Format renders name and fields as name|k=v,k=v.
func Format(name string, fields ...Field) string {
	if len(fields) == 0 {
		return name
	}

	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('|')
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.Key)
		b.WriteByte('=')
		b.WriteString(f.Value)
	}
	return b.String()
}

// Parse reads a formatted marker. Field order is preserved.
func Parse(s string) (Marker, error) {
	name, rest, hasFields := strings.Cut(strings.TrimSpace(s), "|")
	if name == "" {
		return Marker{}, fmt.Errorf("empty marker name in %q", s)
	}

	m := Marker{Name: name}
	if !hasFields || rest == "" {
		return m, nil
	}

	for _, part := range strings.Split(rest, ",") {
		key, value, ok := strings.Cut(part, "=")
		if !ok || key == "" {
			return Marker{}, fmt.Errorf("malformed field %q in marker %q", part, s)
		}
		m.Fields = append(m.Fields, Field{Key: key, Value: value})
	}
	return m, nil
}

// CategoryFromTag resolves the category of an S1 or S2 onset marker name, or
// of a bare category tag. Names that carry no category report false.
func CategoryFromTag(tag string) (model.Category, bool) {
	switch {
	case strings.HasPrefix(tag, s1OnsetPrefix):
		c, err := model.ParseCategory(strings.TrimPrefix(tag, s1OnsetPrefix))
		return c, err == nil && c.IsS1()
	case strings.HasPrefix(tag, s2OnsetPrefix):
		c, err := model.ParseCategory(strings.TrimPrefix(tag, s2OnsetPrefix))
		return c, err == nil && c.IsS2()
	}

	c, err := model.ParseCategory(tag)
	if err != nil {
		return "", false
	}
	return c, true
}
