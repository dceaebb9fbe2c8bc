package form

import (
	"net/url"
	"strings"
)

// Value is the submitted value of a form field. A field is either a single
// string or, when several elements share its name, an ordered list.
type Value struct {
	multi  bool
	values []string
}

// Single returns a value for a field that appears once in the form.
func Single(v string) Value {
	return Value{values: []string{v}}
}

// Multi returns a value for a field whose name is shared by several elements.
func Multi(vs ...string) Value {
	return Value{multi: true, values: append([]string(nil), vs...)}
}

func (v Value) IsMulti() bool {
	return v.multi
}

// String returns the single value, or the first value of a multi field.
func (v Value) String() string {
	if len(v.values) == 0 {
		return ""
	}
	return v.values[0]
}

// Values returns a copy of all values in document order.
func (v Value) Values() []string {
	return append([]string(nil), v.values...)
}

func (v Value) appendValue(s string) Value {
	return Value{multi: true, values: append(v.values, s)}
}

type Field struct {
	Name  string
	Value Value
}

// Snapshot is the state of a form as a browser would submit it.
type Snapshot struct {
	Action string
	Method string
	Fields []Field
	// Options holds every option value of each select element, in document order.
	Options map[string][]string

	index map[string]int
}

func newSnapshot(target Target) *Snapshot {
	return &Snapshot{
		Action:  target.Action,
		Method:  target.Method,
		Options: map[string][]string{},
		index:   map[string]int{},
	}
}

// add records a value extracted from the markup. A repeated name turns the
// field into a multi value.
func (s *Snapshot) add(name, value string) {
	if i, ok := s.index[name]; ok {
		s.Fields[i].Value = s.Fields[i].Value.appendValue(value)
		return
	}
	s.index[name] = len(s.Fields)
	s.Fields = append(s.Fields, Field{Name: name, Value: Single(value)})
}

func (s *Snapshot) Len() int {
	return len(s.Fields)
}

func (s *Snapshot) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

func (s *Snapshot) Get(name string) (Value, bool) {
	i, ok := s.index[name]
	if !ok {
		return Value{}, false
	}
	return s.Fields[i].Value, true
}

// Set overlays a caller supplied value. Existing fields keep their position.
func (s *Snapshot) Set(name, value string) {
	if i, ok := s.index[name]; ok {
		s.Fields[i].Value = Single(value)
		return
	}
	s.index[name] = len(s.Fields)
	s.Fields = append(s.Fields, Field{Name: name, Value: Single(value)})
}

func (s *Snapshot) Del(name string) {
	i, ok := s.index[name]
	if !ok {
		return
	}
	s.Fields = append(s.Fields[:i], s.Fields[i+1:]...)
	delete(s.index, name)
	for j := i; j < len(s.Fields); j++ {
		s.index[s.Fields[j].Name] = j
	}
}

// SelectOptions returns the declared option values of a select field.
func (s *Snapshot) SelectOptions(name string) []string {
	return append([]string(nil), s.Options[name]...)
}

// Encode serializes the fields as application/x-www-form-urlencoded data,
// keeping field order. Multi fields become repeated pairs.
func (s *Snapshot) Encode() string {
	var buf strings.Builder
	for _, f := range s.Fields {
		key := url.QueryEscape(f.Name)
		for _, v := range f.Value.values {
			if buf.Len() > 0 {
				buf.WriteByte('&')
			}
			buf.WriteString(key)
			buf.WriteByte('=')
			buf.WriteString(url.QueryEscape(v))
		}
	}
	return buf.String()
}

func (s *Snapshot) Values() url.Values {
	out := url.Values{}
	for _, f := range s.Fields {
		out[f.Name] = f.Value.Values()
	}
	return out
}
