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
	"strconv"
	"strings"

	"github.com/launix-de/aikv/errs"
	"github.com/launix-de/aikv/protocol"
	"github.com/launix-de/aikv/store"
)

func init() {
	register(Spec{Name: "ZADD", MinArgs: 3, MaxArgs: -1, Write: true, Keys: firstKey, Handler: cmdZAdd})
	register(Spec{Name: "ZREM", MinArgs: 2, MaxArgs: -1, Write: true, Keys: firstKey, Handler: cmdZRem})
	register(Spec{Name: "ZSCORE", MinArgs: 2, MaxArgs: 2, Keys: firstKey, Handler: cmdZScore})
	register(Spec{Name: "ZRANK", MinArgs: 2, MaxArgs: 2, Keys: firstKey, Handler: cmdZRank(false)})
	register(Spec{Name: "ZREVRANK", MinArgs: 2, MaxArgs: 2, Keys: firstKey, Handler: cmdZRank(true)})
	register(Spec{Name: "ZRANGE", MinArgs: 3, MaxArgs: 4, Keys: firstKey, Handler: cmdZRange(false)})
	register(Spec{Name: "ZREVRANGE", MinArgs: 3, MaxArgs: 4, Keys: firstKey, Handler: cmdZRange(true)})
	register(Spec{Name: "ZRANGEBYSCORE", MinArgs: 3, MaxArgs: -1, Keys: firstKey, Handler: cmdZRangeByScore})
	register(Spec{Name: "ZCARD", MinArgs: 1, MaxArgs: 1, Keys: firstKey, Handler: cmdZCard})
	register(Spec{Name: "ZCOUNT", MinArgs: 3, MaxArgs: 3, Keys: firstKey, Handler: cmdZCount})
	register(Spec{Name: "ZINCRBY", MinArgs: 3, MaxArgs: 3, Write: true, Keys: firstKey, Handler: cmdZIncrBy})
}

func getZSet(ctx *Context, key string) (*store.ZSet, *errs.Error) {
	v, ok := ctx.Store.Get(ctx.State.DB, key)
	if !ok {
		return nil, nil
	}
	return v.AsZSet()
}

func parseScore(b []byte) (float64, *errs.Error) {
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return 0, errs.InvalidArgument("value is not a valid float")
	}
	return f, nil
}

type zaddPair struct {
	score  float64
	member string
}

func cmdZAdd(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	i := 1
	var nx, xx, ch bool
loop:
	for i < len(args) {
		switch strings.ToUpper(string(args[i])) {
		case "NX":
			nx = true
			i++
		case "XX":
			xx = true
			i++
		case "CH":
			ch = true
			i++
		case "GT", "LT":
			i++
		default:
			break loop
		}
	}
	rest := args[i:]
	if len(rest) == 0 || len(rest)%2 != 0 {
		return protocol.Frame{}, errs.WrongArgCount("zadd")
	}
	pairs := make([]zaddPair, 0, len(rest)/2)
	for j := 0; j+1 < len(rest); j += 2 {
		score, perr := parseScore(rest[j])
		if perr != nil {
			return protocol.Frame{}, perr
		}
		pairs = append(pairs, zaddPair{score, string(rest[j+1])})
	}

	var added, changed int64
	_, err := ctx.Store.Update(ctx.State.DB, string(args[0]), true, func(cur store.Value, ok bool) (store.Value, *errs.Error) {
		var z *store.ZSet
		if ok {
			var werr *errs.Error
			z, werr = cur.AsZSet()
			if werr != nil {
				return store.Value{}, werr
			}
		} else {
			z = store.NewZSet()
		}
		for _, p := range pairs {
			_, existed := z.Score(p.member)
			if nx && existed {
				continue
			}
			if xx && !existed {
				continue
			}
			isNew := z.Set(p.member, p.score)
			if isNew {
				added++
			} else {
				changed++
			}
		}
		return store.NewZSetValue(z), nil
	})
	if err != nil {
		return protocol.Frame{}, err
	}
	if ch {
		return protocol.Int(added + changed), nil
	}
	return protocol.Int(added), nil
}

func cmdZRem(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	var removed int64
	_, err := ctx.Store.Update(ctx.State.DB, string(args[0]), false, func(cur store.Value, ok bool) (store.Value, *errs.Error) {
		if !ok {
			return store.Value{}, nil
		}
		z, werr := cur.AsZSet()
		if werr != nil {
			return store.Value{}, werr
		}
		for _, m := range args[1:] {
			if z.Remove(string(m)) {
				removed++
			}
		}
		return store.NewZSetValue(z), nil
	})
	if err != nil {
		return protocol.Frame{}, err
	}
	return protocol.Int(removed), nil
}

func cmdZScore(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	z, err := getZSet(ctx, string(args[0]))
	if err != nil {
		return protocol.Frame{}, err
	}
	if z == nil {
		return protocol.NullBulk(), nil
	}
	s, ok := z.Score(string(args[1]))
	if !ok {
		return protocol.NullBulk(), nil
	}
	return protocol.BulkString(formatScore(s)), nil
}

func cmdZRank(reverse bool) HandlerFunc {
	return func(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
		z, err := getZSet(ctx, string(args[0]))
		if err != nil {
			return protocol.Frame{}, err
		}
		if z == nil {
			return protocol.NullBulk(), nil
		}
		rank := z.RankAsc(string(args[1]))
		if rank < 0 {
			return protocol.NullBulk(), nil
		}
		if reverse {
			rank = z.Len() - 1 - rank
		}
		return protocol.Int(int64(rank)), nil
	}
}

func cmdZCard(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	z, err := getZSet(ctx, string(args[0]))
	if err != nil {
		return protocol.Frame{}, err
	}
	if z == nil {
		return protocol.Int(0), nil
	}
	return protocol.Int(int64(z.Len())), nil
}

func cmdZCount(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	min, err := parseScore(args[1])
	if err != nil {
		return protocol.Frame{}, err
	}
	max, err := parseScore(args[2])
	if err != nil {
		return protocol.Frame{}, err
	}
	z, zerr := getZSet(ctx, string(args[0]))
	if zerr != nil {
		return protocol.Frame{}, zerr
	}
	if z == nil {
		return protocol.Int(0), nil
	}
	return protocol.Int(int64(z.CountByScore(min, max))), nil
}

func cmdZIncrBy(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	delta, perr := parseScore(args[1])
	if perr != nil {
		return protocol.Frame{}, perr
	}
	member := string(args[2])
	var result float64
	_, err := ctx.Store.Update(ctx.State.DB, string(args[0]), true, func(cur store.Value, ok bool) (store.Value, *errs.Error) {
		var z *store.ZSet
		if ok {
			var werr *errs.Error
			z, werr = cur.AsZSet()
			if werr != nil {
				return store.Value{}, werr
			}
		} else {
			z = store.NewZSet()
		}
		cur2, _ := z.Score(member)
		result = cur2 + delta
		z.Set(member, result)
		return store.NewZSetValue(z), nil
	})
	if err != nil {
		return protocol.Frame{}, err
	}
	return protocol.BulkString(formatScore(result)), nil
}

func cmdZRange(reverse bool) HandlerFunc {
	return func(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
		start, serr := strconv.Atoi(string(args[1]))
		if serr != nil {
			return protocol.Frame{}, errs.InvalidArgument("value is not an integer or out of range")
		}
		stop, eerr := strconv.Atoi(string(args[2]))
		if eerr != nil {
			return protocol.Frame{}, errs.InvalidArgument("value is not an integer or out of range")
		}
		withScores := false
		if len(args) == 4 {
			if strings.ToUpper(string(args[3])) != "WITHSCORES" {
				return protocol.Frame{}, errs.InvalidArgument("syntax error")
			}
			withScores = true
		}

		z, err := getZSet(ctx, string(args[0]))
		if err != nil {
			return protocol.Frame{}, err
		}
		if z == nil {
			return protocol.Array(nil), nil
		}
		n := z.Len()
		from := normIndex(start, n)
		to := normIndex(stop, n) + 1
		items := z.RangeByIndex(from, to, reverse)

		out := make([]protocol.Frame, 0, len(items)*2)
		for _, it := range items {
			out = append(out, protocol.BulkString(it.Member()))
			if withScores {
				out = append(out, protocol.BulkString(formatScore(it.Score())))
			}
		}
		return protocol.Array(out), nil
	}
}

func cmdZRangeByScore(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	min, err := parseScore(args[1])
	if err != nil {
		return protocol.Frame{}, err
	}
	max, err := parseScore(args[2])
	if err != nil {
		return protocol.Frame{}, err
	}
	withScores := false
	var limitOffset, limitCount int
	hasLimit := false
	for i := 3; i < len(args); i++ {
		switch strings.ToUpper(string(args[i])) {
		case "WITHSCORES":
			withScores = true
		case "LIMIT":
			if i+2 >= len(args) {
				return protocol.Frame{}, errs.InvalidArgument("syntax error")
			}
			o, oerr := strconv.Atoi(string(args[i+1]))
			c, cerr := strconv.Atoi(string(args[i+2]))
			if oerr != nil || cerr != nil {
				return protocol.Frame{}, errs.InvalidArgument("value is not an integer or out of range")
			}
			limitOffset, limitCount = o, c
			hasLimit = true
			i += 2
		default:
			return protocol.Frame{}, errs.InvalidArgument("syntax error")
		}
	}

	z, zerr := getZSet(ctx, string(args[0]))
	if zerr != nil {
		return protocol.Frame{}, zerr
	}
	if z == nil {
		return protocol.Array(nil), nil
	}
	items := z.RangeByScore(min, max)
	if hasLimit {
		if limitOffset < 0 {
			limitOffset = 0
		}
		if limitOffset >= len(items) {
			items = nil
		} else {
			items = items[limitOffset:]
			if limitCount >= 0 && limitCount < len(items) {
				items = items[:limitCount]
			}
		}
	}
	out := make([]protocol.Frame, 0, len(items)*2)
	for _, it := range items {
		out = append(out, protocol.BulkString(it.Member()))
		if withScores {
			out = append(out, protocol.BulkString(formatScore(it.Score())))
		}
	}
	return protocol.Array(out), nil
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
