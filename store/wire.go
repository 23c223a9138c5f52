/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package store

import "encoding/json"

// wireValue is the serializable projection of Value used both by DUMP/RESTORE
// (§4.3) and by the persistent backend's write-ahead log, so the two share
// one encoding instead of inventing a second one.
type wireValue struct {
	Type ValueType         `json:"t"`
	Str  []byte            `json:"s,omitempty"`
	List [][]byte          `json:"l,omitempty"`
	Hash map[string][]byte `json:"h,omitempty"`
	Set  []string          `json:"e,omitempty"`
	ZSet []wireZMember     `json:"z,omitempty"`
	JSON json.RawMessage   `json:"j,omitempty"`
}

type wireZMember struct {
	Member string  `json:"m"`
	Score  float64 `json:"c"`
}

// toWire projects v into its serializable form.
func (v Value) toWire() (wireValue, error) {
	w := wireValue{Type: v.Type}
	switch v.Type {
	case TypeString:
		w.Str = v.Str
	case TypeList:
		w.List = v.List.ToSlice()
	case TypeHash:
		w.Hash = v.Hash
	case TypeSet:
		w.Set = make([]string, 0, len(v.Set))
		for m := range v.Set {
			w.Set = append(w.Set, m)
		}
	case TypeZSet:
		v.ZSet.ForEach(func(member string, score float64) bool {
			w.ZSet = append(w.ZSet, wireZMember{Member: member, Score: score})
			return true
		})
	case TypeJSON:
		raw, err := json.Marshal(v.JSON)
		if err != nil {
			return wireValue{}, err
		}
		w.JSON = raw
	}
	return w, nil
}

// toValue reconstructs a Value from its serializable form.
func (w wireValue) toValue() (Value, error) {
	switch w.Type {
	case TypeString:
		return NewStringValue(w.Str), nil
	case TypeList:
		d := NewDeque()
		for _, item := range w.List {
			d.PushBack(item)
		}
		return NewListValue(d), nil
	case TypeHash:
		h := w.Hash
		if h == nil {
			h = make(map[string][]byte)
		}
		return NewHashValue(h), nil
	case TypeSet:
		s := make(map[string]struct{}, len(w.Set))
		for _, m := range w.Set {
			s[m] = struct{}{}
		}
		return NewSetValue(s), nil
	case TypeZSet:
		z := NewZSet()
		for _, m := range w.ZSet {
			z.Set(m.Member, m.Score)
		}
		return NewZSetValue(z), nil
	case TypeJSON:
		var v interface{}
		if len(w.JSON) > 0 {
			if err := json.Unmarshal(w.JSON, &v); err != nil {
				return Value{}, err
			}
		}
		return NewJSONValue(v), nil
	default:
		return Value{}, nil
	}
}

// MarshalValue serializes v into the compact JSON wire form shared by DUMP
// and the persistent backend's log.
func MarshalValue(v Value) ([]byte, error) {
	w, err := v.toWire()
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// UnmarshalValue is the inverse of MarshalValue.
func UnmarshalValue(data []byte) (Value, error) {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return Value{}, err
	}
	return w.toValue()
}
