// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package record

import (
	"bytes"
	"encoding/json"
)

// Attributes is an insertion-ordered map of attribute name to Value.
type Attributes struct {
	names  []string
	values map[string]Value
}

func NewAttributes() *Attributes {
	return &Attributes{values: make(map[string]Value)}
}

// Set stores v under name. A new name is appended; an existing name keeps its
// position.
func (a *Attributes) Set(name string, v Value) *Attributes {
	if _, ok := a.values[name]; !ok {
		a.names = append(a.names, name)
	}
	a.values[name] = v
	return a
}

func (a *Attributes) Get(name string) (Value, bool) {
	v, ok := a.values[name]
	return v, ok
}

func (a *Attributes) Has(name string) bool {
	_, ok := a.values[name]
	return ok
}

func (a *Attributes) Delete(name string) {
	if _, ok := a.values[name]; !ok {
		return
	}
	delete(a.values, name)
	for i, n := range a.names {
		if n == name {
			a.names = append(a.names[:i:i], a.names[i+1:]...)
			break
		}
	}
}

func (a *Attributes) Len() int {
	return len(a.names)
}

// Names returns the attribute names in order.
func (a *Attributes) Names() []string {
	return append([]string(nil), a.names...)
}

// Range calls fn for every attribute in order until fn returns false.
func (a *Attributes) Range(fn func(name string, v Value) bool) {
	for _, n := range a.names {
		if !fn(n, a.values[n]) {
			return
		}
	}
}

func (a *Attributes) Clone() *Attributes {
	out := &Attributes{
		names:  append([]string(nil), a.names...),
		values: make(map[string]Value, len(a.values)),
	}
	for k, v := range a.values {
		out.values[k] = v
	}
	return out
}

// Merge returns a new Attributes holding a overlaid with o. Names already in
// a keep their position; names only in o follow in o's order.
func (a *Attributes) Merge(o *Attributes) *Attributes {
	out := a.Clone()
	o.Range(func(name string, v Value) bool {
		out.Set(name, v)
		return true
	})
	return out
}

// MarshalJSON renders the attributes as a JSON object in insertion order.
func (a *Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range a.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := a.values[n].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
