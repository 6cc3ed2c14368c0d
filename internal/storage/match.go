package storage

import (
	"bytes"
	"reflect"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The functions below evaluate the subset of the MongoDB query language the
// service produces: equality, $eq $ne $gt $gte $lt $lte $in $nin $exists,
// $and $or $nor, dotted paths and array element matching.

func toDoc(v any) (bson.M, error) {
	data, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func fromDoc[T any](m bson.M) (*T, error) {
	data, err := bson.Marshal(m)
	if err != nil {
		return nil, err
	}
	var doc T
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	afterLoad(&doc)
	return &doc, nil
}

func matches(doc bson.M, filter bson.M) bool {
	for key, cond := range filter {
		switch key {
		case "$and":
			for _, sub := range toSlice(cond) {
				if !matches(doc, asDoc(sub)) {
					return false
				}
			}
		case "$or":
			ok := false
			for _, sub := range toSlice(cond) {
				if matches(doc, asDoc(sub)) {
					ok = true
					break
				}
			}
			if !ok {
				return false
			}
		case "$nor":
			for _, sub := range toSlice(cond) {
				if matches(doc, asDoc(sub)) {
					return false
				}
			}
		default:
			val, present := lookup(doc, key)
			if !matchField(val, present, cond) {
				return false
			}
		}
	}
	return true
}

func matchField(val any, present bool, cond any) bool {
	if ops, ok := operatorDoc(cond); ok {
		for op, arg := range ops {
			if !matchOp(val, present, op, arg) {
				return false
			}
		}
		return true
	}
	return matchOp(val, present, "$eq", cond)
}

func matchOp(val any, present bool, op string, arg any) bool {
	arg = normalize(arg)
	switch op {
	case "$eq":
		return anyValue(val, func(v any) bool { return equal(v, arg) })
	case "$ne":
		return !matchOp(val, present, "$eq", arg)
	case "$gt", "$gte", "$lt", "$lte":
		if !present {
			return false
		}
		return anyValue(val, func(v any) bool {
			v = normalize(v)
			if typeRank(v) != typeRank(arg) {
				return false
			}
			c := compare(v, arg)
			switch op {
			case "$gt":
				return c > 0
			case "$gte":
				return c >= 0
			case "$lt":
				return c < 0
			default:
				return c <= 0
			}
		})
	case "$in":
		for _, candidate := range toSlice(arg) {
			if matchOp(val, present, "$eq", candidate) {
				return true
			}
		}
		return false
	case "$nin":
		return !matchOp(val, present, "$in", arg)
	case "$exists":
		want, _ := arg.(bool)
		if f, ok := arg.(float64); ok {
			want = f != 0
		}
		return present == want
	default:
		return false
	}
}

// anyValue applies f to val and, for arrays, to each element.
func anyValue(val any, f func(any) bool) bool {
	if f(val) {
		return true
	}
	if arr, ok := val.(primitive.A); ok {
		for _, e := range arr {
			if f(e) {
				return true
			}
		}
	}
	return false
}

func operatorDoc(cond any) (bson.M, bool) {
	m := asDoc(cond)
	if len(m) == 0 {
		return nil, false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return m, true
}

func asDoc(v any) bson.M {
	switch d := v.(type) {
	case bson.M:
		return d
	case map[string]any:
		return bson.M(d)
	case bson.D:
		return d.Map()
	}
	return nil
}

func toSlice(v any) []any {
	switch s := v.(type) {
	case primitive.A:
		return s
	case []any:
		return s
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// lookup resolves a dotted path, fanning out over arrays.
func lookup(doc any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	cur := doc
	for i, part := range parts {
		if arr, ok := cur.(primitive.A); ok {
			rest := strings.Join(parts[i:], ".")
			var out primitive.A
			for _, e := range arr {
				if v, ok := lookup(e, rest); ok {
					out = append(out, v)
				}
			}
			if len(out) == 0 {
				return nil, false
			}
			return out, true
		}
		m := asDoc(cur)
		if m == nil {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case time.Time:
		return primitive.NewDateTimeFromTime(x)
	case *time.Time:
		if x == nil {
			return nil
		}
		return primitive.NewDateTimeFromTime(*x)
	case bson.D:
		return x.Map()
	}
	return v
}

// typeRank follows the MongoDB cross-type sort order.
func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case float64:
		return 1
	case string:
		return 2
	case bson.M, map[string]any:
		return 3
	case primitive.A:
		return 4
	case primitive.ObjectID:
		return 5
	case bool:
		return 6
	case primitive.DateTime:
		return 7
	}
	return 8
}

func compare(a, b any) int {
	a, b = normalize(a), normalize(b)
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return cmpInt(int64(ra), int64(rb))
	}
	switch x := a.(type) {
	case float64:
		y := b.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case string:
		return strings.Compare(x, b.(string))
	case primitive.ObjectID:
		y := b.(primitive.ObjectID)
		return bytes.Compare(x[:], y[:])
	case bool:
		y := b.(bool)
		if x == y {
			return 0
		}
		if !x {
			return -1
		}
		return 1
	case primitive.DateTime:
		return cmpInt(int64(x), int64(b.(primitive.DateTime)))
	}
	return 0
}

func equal(a, b any) bool {
	a, b = normalize(a), normalize(b)
	if typeRank(a) != typeRank(b) {
		return false
	}
	switch a.(type) {
	case bson.M, map[string]any, primitive.A:
		return reflect.DeepEqual(a, b)
	}
	return compare(a, b) == 0
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func sortDocs(docs []bson.M, order bson.D) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, key := range order {
			vi, _ := lookup(docs[i], key.Key)
			vj, _ := lookup(docs[j], key.Key)
			c := compare(vi, vj)
			if c == 0 {
				continue
			}
			if dir, ok := normalize(key.Value).(float64); ok && dir < 0 {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// project applies an inclusion or exclusion projection to top-level fields.
func project(doc bson.M, projection bson.D) bson.M {
	if len(projection) == 0 {
		return doc
	}
	include := false
	for _, p := range projection {
		if p.Key != "_id" && truthy(p.Value) {
			include = true
			break
		}
	}

	if include {
		out := bson.M{}
		if id, ok := doc["_id"]; ok {
			out["_id"] = id
		}
		for _, p := range projection {
			key := strings.SplitN(p.Key, ".", 2)[0]
			if !truthy(p.Value) {
				delete(out, key)
				continue
			}
			if v, ok := doc[key]; ok {
				out[key] = v
			}
		}
		return out
	}

	out := bson.M{}
	for k, v := range doc {
		out[k] = v
	}
	for _, p := range projection {
		if !strings.Contains(p.Key, ".") {
			delete(out, p.Key)
		}
	}
	return out
}

func truthy(v any) bool {
	switch x := normalize(v).(type) {
	case float64:
		return x != 0
	case bool:
		return x
	}
	return false
}
