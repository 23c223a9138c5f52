/*
Copyright (C) 2023-2026  Carl-Philip Hänsch

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

// Package store implements the typed value store (multi-database key/value
// mapping with TTL bookkeeping) and the storage facade over swappable
// backends, adapted from the teacher's per-shard lock discipline
// (storage/table.go, storage/shard.go) and persistence interface
// (storage/persistence.go) onto a single-key-per-value domain instead of a
// columnar table.
package store

import (
	"github.com/launix-de/aikv/errs"
)

// ValueType tags the variant held by a Value.
type ValueType byte

const (
	TypeString ValueType = iota
	TypeList
	TypeHash
	TypeSet
	TypeZSet
	TypeJSON
)

func (t ValueType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeList:
		return "list"
	case TypeHash:
		return "hash"
	case TypeSet:
		return "set"
	case TypeZSet:
		return "zset"
	case TypeJSON:
		return "ReJSON-RL"
	default:
		return "none"
	}
}

// Value is the tagged variant stored per key, per §3 of the data model.
// Exactly one payload field is meaningful, selected by Type.
type Value struct {
	Type ValueType
	Str  []byte
	List *Deque
	Hash map[string][]byte
	Set  map[string]struct{}
	ZSet *ZSet
	JSON interface{}
}

func NewStringValue(b []byte) Value { return Value{Type: TypeString, Str: b} }
func NewListValue(d *Deque) Value   { return Value{Type: TypeList, List: d} }
func NewHashValue(h map[string][]byte) Value {
	return Value{Type: TypeHash, Hash: h}
}
func NewSetValue(s map[string]struct{}) Value { return Value{Type: TypeSet, Set: s} }
func NewZSetValue(z *ZSet) Value               { return Value{Type: TypeZSet, ZSet: z} }
func NewJSONValue(v interface{}) Value         { return Value{Type: TypeJSON, JSON: v} }

// IsEmptyCollection reports whether a collection-typed value has become
// empty and must therefore be deleted per the collection-emptiness rule.
func (v Value) IsEmptyCollection() bool {
	switch v.Type {
	case TypeList:
		return v.List == nil || v.List.Len() == 0
	case TypeHash:
		return len(v.Hash) == 0
	case TypeSet:
		return len(v.Set) == 0
	case TypeZSet:
		return v.ZSet == nil || v.ZSet.Len() == 0
	default:
		return false
	}
}

// Clone performs a deep-enough copy for COPY and MIGRATE COPY: the container
// is independent of the original so the copy never aliases live state.
func (v Value) Clone() Value {
	switch v.Type {
	case TypeString:
		out := make([]byte, len(v.Str))
		copy(out, v.Str)
		return NewStringValue(out)
	case TypeList:
		return NewListValue(v.List.Clone())
	case TypeHash:
		h := make(map[string][]byte, len(v.Hash))
		for k, val := range v.Hash {
			cp := make([]byte, len(val))
			copy(cp, val)
			h[k] = cp
		}
		return NewHashValue(h)
	case TypeSet:
		s := make(map[string]struct{}, len(v.Set))
		for k := range v.Set {
			s[k] = struct{}{}
		}
		return NewSetValue(s)
	case TypeZSet:
		return NewZSetValue(v.ZSet.Clone())
	case TypeJSON:
		return NewJSONValue(cloneJSON(v.JSON))
	}
	return v
}

func cloneJSON(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = cloneJSON(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = cloneJSON(val)
		}
		return out
	default:
		return t
	}
}

// AsString returns the string payload or a WrongType error.
func (v Value) AsString() ([]byte, *errs.Error) {
	if v.Type != TypeString {
		return nil, errs.WrongType()
	}
	return v.Str, nil
}

// AsList returns the list payload or a WrongType error.
func (v Value) AsList() (*Deque, *errs.Error) {
	if v.Type != TypeList {
		return nil, errs.WrongType()
	}
	return v.List, nil
}

// AsHash returns the hash payload or a WrongType error.
func (v Value) AsHash() (map[string][]byte, *errs.Error) {
	if v.Type != TypeHash {
		return nil, errs.WrongType()
	}
	return v.Hash, nil
}

// AsSet returns the set payload or a WrongType error.
func (v Value) AsSet() (map[string]struct{}, *errs.Error) {
	if v.Type != TypeSet {
		return nil, errs.WrongType()
	}
	return v.Set, nil
}

// AsZSet returns the sorted-set payload or a WrongType error.
func (v Value) AsZSet() (*ZSet, *errs.Error) {
	if v.Type != TypeZSet {
		return nil, errs.WrongType()
	}
	return v.ZSet, nil
}

// AsJSON returns the JSON payload or a WrongType error.
func (v Value) AsJSON() (interface{}, *errs.Error) {
	if v.Type != TypeJSON {
		return nil, errs.WrongType()
	}
	return v.JSON, nil
}
