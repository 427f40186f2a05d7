package render

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/pithecene-io/xray/types"
)

// Payload keys read for highlights. They are signal specific and looked up
// as sent by the backend, case included.
const (
	keyArticles    = "articles"
	keyReviews     = "Reviews"
	keyReviewCount = "review count"
	keyURL         = "url"
)

// Highlights summarizes the notable fields of a successful task payload:
// news article count, review count, employer review count and a details
// url. Missing fields are skipped; other tasks get no highlights.
func Highlights(rec types.TaskRecord) []string {
	if rec.Status != types.TaskStatusSuccess || rec.Payload.IsAbsent() {
		return nil
	}
	root := gjson.ParseBytes(rec.Payload)
	if !root.IsObject() {
		return nil
	}

	var out []string
	if v := root.Get(keyArticles); v.IsArray() {
		out = append(out, plural(len(v.Array()), "article"))
	}
	if v := root.Get(keyReviews); v.IsArray() {
		out = append(out, plural(len(v.Array()), "review"))
	}
	if v := root.Get(keyReviewCount); v.Exists() && v.Type != gjson.Null {
		out = append(out, fmt.Sprintf("%s employer reviews", v.String()))
	}
	if v := root.Get(keyURL); v.Type == gjson.String && v.Str != "" {
		out = append(out, v.Str)
	}
	return out
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
