package apifeatures

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// Project renders v, a document or a slice of documents, as JSON objects
// with the response projection applied. With no fields the version marker
// and hidden fields are removed; otherwise only the listed fields (plus id)
// are kept, or the `-` prefixed ones are removed.
func Project(v any, fields []string, hidden []string) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode response")
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}

	switch doc := decoded.(type) {
	case []any:
		for _, item := range doc {
			if m, ok := item.(map[string]any); ok {
				projectDoc(m, fields, hidden)
			}
		}
	case map[string]any:
		projectDoc(doc, fields, hidden)
	}
	return decoded, nil
}

func projectDoc(doc map[string]any, fields []string, hidden []string) {
	var include, exclude []string
	for _, f := range fields {
		if strings.HasPrefix(f, "-") {
			exclude = append(exclude, jsonKey(f[1:]))
		} else {
			include = append(include, jsonKey(f))
		}
	}

	switch {
	case len(include) > 0:
		keep := map[string]bool{"id": true}
		for _, f := range include {
			keep[f] = true
		}
		for _, f := range exclude {
			if f == "id" {
				delete(keep, f)
			}
		}
		for k := range doc {
			if !keep[k] {
				delete(doc, k)
			}
		}
	default:
		delete(doc, "__v")
		for _, f := range hidden {
			delete(doc, f)
		}
		for _, f := range exclude {
			delete(doc, f)
		}
	}
}

// jsonKey maps a stored field path to its top-level response key.
func jsonKey(field string) string {
	field = strings.SplitN(field, ".", 2)[0]
	if field == "_id" {
		return "id"
	}
	return field
}
