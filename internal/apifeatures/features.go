// Package apifeatures turns request query parameters into a storage query.
//
// The four steps run in a fixed order and each returns the builder:
//
//	apifeatures.New(base, params).Filter().Sort().LimitFields().Paginate()
//
// Filter: every parameter except page, sort, limit and fields filters on the
// field of the same name. `price[gte]=500` becomes {price: {$gte: 500}}.
// Sort: comma separated fields, `-` for descending, default -createdAt.
// LimitFields: comma separated projection; by default __v and hidden fields are dropped.
// Paginate: page and limit, default 1 and 100.
package apifeatures

import (
	"math"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arzan03/natours/internal/storage"
)

const (
	DefaultPage  = 1
	DefaultLimit = 100
	DefaultSort  = "-createdAt"
)

var reserved = map[string]bool{"page": true, "sort": true, "limit": true, "fields": true}

var operatorKey = regexp.MustCompile(`^([^\[\]]+)\[(gte|gt|lte|lt)\]$`)

var decimal = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?$`)

// Features builds a storage.Query step by step.
type Features struct {
	params    url.Values
	base      bson.M
	whitelist map[string]bool
	text      map[string]bool
	hidden    []string

	query  storage.Query
	fields []string
}

// Option configures a Features builder.
type Option func(*Features)

// WithWhitelist lets the named fields repeat in the query string; repeated
// values are matched with $in. Any other repeated parameter keeps its last value.
func WithWhitelist(fields ...string) Option {
	return func(f *Features) {
		for _, name := range fields {
			f.whitelist[name] = true
		}
	}
}

// WithStringFields names fields that hold strings; their filter values are
// used verbatim instead of being coerced.
func WithStringFields(fields ...string) Option {
	return func(f *Features) {
		for _, name := range fields {
			f.text[name] = true
		}
	}
}

// WithHidden excludes fields from the default projection.
func WithHidden(fields ...string) Option {
	return func(f *Features) {
		f.hidden = append(f.hidden, fields...)
	}
}

// New starts a builder. base is the ambient filter and always wins over
// client parameters with the same key.
func New(base bson.M, params url.Values, opts ...Option) *Features {
	f := &Features{
		params:    params,
		base:      base,
		whitelist: map[string]bool{},
		text:      map[string]bool{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Filter turns the non-reserved parameters into the query filter.
func (f *Features) Filter() *Features {
	keys := make([]string, 0, len(f.params))
	for k := range f.params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	filter := bson.M{}
	for _, key := range keys {
		values := f.params[key]
		if reserved[key] || len(values) == 0 {
			continue
		}

		if m := operatorKey.FindStringSubmatch(key); m != nil {
			field, op := m[1], "$"+m[2]
			cond, ok := filter[field].(bson.M)
			if !ok {
				cond = bson.M{}
				filter[field] = cond
			}
			cond[op] = f.coerce(field, values[len(values)-1])
			continue
		}

		if len(values) > 1 && f.whitelist[key] {
			in := bson.A{}
			for _, v := range values {
				in = append(in, f.coerce(key, v))
			}
			filter[key] = bson.M{"$in": in}
			continue
		}
		filter[key] = f.coerce(key, values[len(values)-1])
	}

	for k, v := range f.base {
		filter[k] = v
	}
	f.query.Filter = filter
	return f
}

// Sort orders by the comma separated sort parameter.
func (f *Features) Sort() *Features {
	spec := f.last("sort")
	if strings.TrimSpace(spec) == "" {
		spec = DefaultSort
	}

	var order bson.D
	seen := map[string]bool{}
	for _, field := range strings.Split(spec, ",") {
		field = strings.TrimSpace(field)
		dir := 1
		if strings.HasPrefix(field, "-") {
			dir = -1
			field = field[1:]
		}
		if field == "" || seen[field] {
			continue
		}
		seen[field] = true
		order = append(order, bson.E{Key: field, Value: dir})
	}
	// _id breaks ties so pages do not overlap.
	if !seen["_id"] {
		order = append(order, bson.E{Key: "_id", Value: 1})
	}
	f.query.Sort = order
	return f
}

// LimitFields sets the projection.
func (f *Features) LimitFields() *Features {
	spec := f.last("fields")
	var projection bson.D
	var fields []string
	for _, field := range strings.Split(spec, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		fields = append(fields, field)
		if strings.HasPrefix(field, "-") {
			projection = append(projection, bson.E{Key: field[1:], Value: 0})
		} else {
			projection = append(projection, bson.E{Key: field, Value: 1})
		}
	}

	if len(projection) == 0 {
		projection = bson.D{{Key: "__v", Value: 0}}
		for _, h := range f.hidden {
			projection = append(projection, bson.E{Key: h, Value: 0})
		}
	} else {
		projection = normalizeProjection(projection)
	}
	f.query.Projection = projection
	f.fields = fields
	return f
}

// Paginate sets skip and limit from page and limit.
func (f *Features) Paginate() *Features {
	page := positiveInt(f.last("page"), DefaultPage)
	limit := positiveInt(f.last("limit"), DefaultLimit)
	f.query.Skip = int64((page - 1) * limit)
	f.query.Limit = int64(limit)
	return f
}

// Query returns the built query.
func (f *Features) Query() storage.Query {
	return f.query
}

// Fields returns the client's projection list, nil when none was given.
func (f *Features) Fields() []string {
	return f.fields
}

func (f *Features) last(key string) string {
	values := f.params[key]
	if len(values) == 0 {
		return ""
	}
	return values[len(values)-1]
}

// normalizeProjection drops exclusions from a projection that includes
// fields, since MongoDB rejects mixing the two (except for _id).
func normalizeProjection(p bson.D) bson.D {
	include := false
	for _, e := range p {
		if e.Value == 1 {
			include = true
			break
		}
	}
	if !include {
		return p
	}
	out := bson.D{}
	for _, e := range p {
		if e.Value == 1 || e.Key == "_id" {
			out = append(out, e)
		}
	}
	return out
}

func (f *Features) coerce(field, v string) any {
	if f.text[field] {
		return v
	}
	return Coerce(v)
}

// Coerce converts a query string value into the BSON value it most likely
// means: finite decimal numbers, booleans, ObjectIDs, and strings otherwise.
func Coerce(v string) any {
	if v == "true" || v == "false" {
		return v == "true"
	}
	if decimal.MatchString(v) {
		if n, err := strconv.ParseFloat(v, 64); err == nil && !math.IsInf(n, 0) {
			return n
		}
	}
	if len(v) == 24 {
		if id, err := primitive.ObjectIDFromHex(v); err == nil {
			return id
		}
	}
	return v
}

func positiveInt(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
