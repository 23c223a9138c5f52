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

package command

import (
	"encoding/json"
	"strings"

	"github.com/launix-de/aikv/errs"
	"github.com/launix-de/aikv/protocol"
	"github.com/launix-de/aikv/store"
)

func init() {
	register(Spec{Name: "JSON.SET", MinArgs: 3, MaxArgs: 3, Write: true, Keys: firstKey, Handler: cmdJSONSet})
	register(Spec{Name: "JSON.GET", MinArgs: 1, MaxArgs: 2, Keys: firstKey, Handler: cmdJSONGet})
	register(Spec{Name: "JSON.DEL", MinArgs: 1, MaxArgs: 2, Write: true, Keys: firstKey, Handler: cmdJSONDel})
	register(Spec{Name: "JSON.TYPE", MinArgs: 1, MaxArgs: 2, Keys: firstKey, Handler: cmdJSONType})
	register(Spec{Name: "JSON.STRLEN", MinArgs: 1, MaxArgs: 2, Keys: firstKey, Handler: cmdJSONStrlen})
	register(Spec{Name: "JSON.ARRLEN", MinArgs: 1, MaxArgs: 2, Keys: firstKey, Handler: cmdJSONArrlen})
	register(Spec{Name: "JSON.OBJLEN", MinArgs: 1, MaxArgs: 2, Keys: firstKey, Handler: cmdJSONObjlen})
}

// jsonPath splits a simplified dotted path into member names. "$" and "."
// (and the empty path) both mean the document root.
func jsonPath(raw string) []string {
	if raw == "" || raw == "$" || raw == "." {
		return nil
	}
	raw = strings.TrimPrefix(raw, "$.")
	raw = strings.TrimPrefix(raw, ".")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ".")
}

// jsonResolve walks path through doc, returning (value, found). A path that
// crosses a non-object member fails with found=false (read semantics: null).
func jsonResolve(doc interface{}, path []string) (interface{}, bool) {
	cur := doc
	for _, seg := range path {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = obj[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// jsonSet walks path, creating intermediate objects as needed, and sets the
// final member to value. Traversing through a non-object, non-missing
// member is a write error.
func jsonSet(doc interface{}, path []string, value interface{}) (interface{}, *errs.Error) {
	if len(path) == 0 {
		return value, nil
	}
	obj, ok := doc.(map[string]interface{})
	if !ok {
		if doc == nil {
			obj = make(map[string]interface{})
		} else {
			return nil, errs.InvalidArgument("path traverses a non-object value")
		}
	}
	child, ok := obj[path[0]]
	if !ok {
		child = nil
	}
	newChild, err := jsonSet(child, path[1:], value)
	if err != nil {
		return nil, err
	}
	obj[path[0]] = newChild
	return obj, nil
}

// jsonDelete removes the member named by the path's last segment. Returns
// the (possibly unchanged) document and whether a member was removed.
func jsonDelete(doc interface{}, path []string) (interface{}, bool) {
	if len(path) == 0 {
		return nil, true
	}
	obj, ok := doc.(map[string]interface{})
	if !ok {
		return doc, false
	}
	if len(path) == 1 {
		if _, exists := obj[path[0]]; !exists {
			return doc, false
		}
		delete(obj, path[0])
		return obj, true
	}
	child, ok := obj[path[0]]
	if !ok {
		return doc, false
	}
	newChild, removed := jsonDelete(child, path[1:])
	obj[path[0]] = newChild
	return obj, removed
}

func cmdJSONSet(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	key := string(args[0])
	path := jsonPath(string(args[1]))
	var incoming interface{}
	if jerr := json.Unmarshal(args[2], &incoming); jerr != nil {
		return protocol.Frame{}, errs.InvalidArgument("invalid JSON value")
	}
	_, err := ctx.Store.Update(ctx.State.DB, key, true, func(cur store.Value, ok bool) (store.Value, *errs.Error) {
		var doc interface{}
		if ok {
			var werr *errs.Error
			doc, werr = cur.AsJSON()
			if werr != nil {
				return store.Value{}, werr
			}
		}
		newDoc, serr := jsonSet(doc, path, incoming)
		if serr != nil {
			return store.Value{}, serr
		}
		return store.NewJSONValue(newDoc), nil
	})
	if err != nil {
		return protocol.Frame{}, err
	}
	return okFrame(), nil
}

func cmdJSONGet(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	v, ok := ctx.Store.Get(ctx.State.DB, string(args[0]))
	if !ok {
		return protocol.NullBulk(), nil
	}
	doc, err := v.AsJSON()
	if err != nil {
		return protocol.Frame{}, err
	}
	path := jsonPath(pathArg(args))
	val, found := jsonResolve(doc, path)
	if !found {
		return protocol.NullBulk(), nil
	}
	out, jerr := json.Marshal(val)
	if jerr != nil {
		return protocol.Frame{}, errs.New(errs.KindIO, "%v", jerr)
	}
	return protocol.Bulk(out), nil
}

func pathArg(args [][]byte) string {
	if len(args) < 2 {
		return ""
	}
	return string(args[1])
}

func cmdJSONDel(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	key := string(args[0])
	path := jsonPath(pathArg(args))
	var removed int64
	_, err := ctx.Store.Update(ctx.State.DB, key, false, func(cur store.Value, ok bool) (store.Value, *errs.Error) {
		if !ok {
			return store.Value{}, nil
		}
		doc, werr := cur.AsJSON()
		if werr != nil {
			return store.Value{}, werr
		}
		newDoc, ok2 := jsonDelete(doc, path)
		if ok2 {
			removed = 1
		}
		return store.NewJSONValue(newDoc), nil
	})
	if err != nil {
		return protocol.Frame{}, err
	}
	return protocol.Int(removed), nil
}

func cmdJSONType(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	v, ok := ctx.Store.Get(ctx.State.DB, string(args[0]))
	if !ok {
		return protocol.NullBulk(), nil
	}
	doc, err := v.AsJSON()
	if err != nil {
		return protocol.Frame{}, err
	}
	val, found := jsonResolve(doc, jsonPath(pathArg(args)))
	if !found {
		return protocol.NullBulk(), nil
	}
	return protocol.BulkString(jsonTypeName(val)), nil
}

func jsonTypeName(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return "null"
	}
}

func cmdJSONStrlen(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	v, ok := ctx.Store.Get(ctx.State.DB, string(args[0]))
	if !ok {
		return protocol.NullBulk(), nil
	}
	doc, err := v.AsJSON()
	if err != nil {
		return protocol.Frame{}, err
	}
	val, found := jsonResolve(doc, jsonPath(pathArg(args)))
	if !found {
		return protocol.NullBulk(), nil
	}
	s, ok := val.(string)
	if !ok {
		return protocol.NullBulk(), nil
	}
	return protocol.Int(int64(len(s))), nil
}

func cmdJSONArrlen(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	v, ok := ctx.Store.Get(ctx.State.DB, string(args[0]))
	if !ok {
		return protocol.NullBulk(), nil
	}
	doc, err := v.AsJSON()
	if err != nil {
		return protocol.Frame{}, err
	}
	val, found := jsonResolve(doc, jsonPath(pathArg(args)))
	if !found {
		return protocol.NullBulk(), nil
	}
	arr, ok := val.([]interface{})
	if !ok {
		return protocol.NullBulk(), nil
	}
	return protocol.Int(int64(len(arr))), nil
}

func cmdJSONObjlen(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	v, ok := ctx.Store.Get(ctx.State.DB, string(args[0]))
	if !ok {
		return protocol.NullBulk(), nil
	}
	doc, err := v.AsJSON()
	if err != nil {
		return protocol.Frame{}, err
	}
	val, found := jsonResolve(doc, jsonPath(pathArg(args)))
	if !found {
		return protocol.NullBulk(), nil
	}
	obj, ok := val.(map[string]interface{})
	if !ok {
		return protocol.NullBulk(), nil
	}
	return protocol.Int(int64(len(obj))), nil
}
