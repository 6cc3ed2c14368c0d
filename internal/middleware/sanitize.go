package middleware

import (
	"encoding/json"
	"html"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/microcosm-cc/bluemonday"
)

var htmlPolicy = bluemonday.StrictPolicy()

// rawFields are passed through the HTML cleaner untouched.
var rawFields = map[string]bool{
	"password":        true,
	"passwordConfirm": true,
	"passwordCurrent": true,
}

// Sanitize removes query operators from query keys and JSON bodies, and
// strips HTML from string values in JSON bodies.
func Sanitize() fiber.Handler {
	return func(c *fiber.Ctx) error {
		args := c.Context().QueryArgs()
		var unsafe []string
		args.VisitAll(func(key, _ []byte) {
			if strings.Contains(string(key), "$") {
				unsafe = append(unsafe, string(key))
			}
		})
		for _, k := range unsafe {
			args.Del(k)
		}

		body := c.Body()
		if len(body) > 0 && strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
			var payload any
			if err := json.Unmarshal(body, &payload); err == nil {
				clean, err := json.Marshal(sanitizeValue(payload, ""))
				if err == nil {
					c.Request().SetBody(clean)
				}
			}
		}
		return c.Next()
	}
}

func sanitizeValue(v any, key string) any {
	switch x := v.(type) {
	case map[string]any:
		for k, val := range x {
			if strings.HasPrefix(k, "$") || strings.Contains(k, ".") {
				delete(x, k)
				continue
			}
			x[k] = sanitizeValue(val, k)
		}
		return x
	case []any:
		for i, val := range x {
			x[i] = sanitizeValue(val, key)
		}
		return x
	case string:
		if rawFields[key] || !strings.ContainsAny(x, "<>") {
			return x
		}
		// The policy escapes what it keeps; the API returns plain text.
		return html.UnescapeString(htmlPolicy.Sanitize(x))
	}
	return v
}
