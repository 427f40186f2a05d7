package score

import (
	"math"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pithecene-io/xray/types"
)

// RatingKey is the payload key the lookup matches, compared lower-cased.
const RatingKey = "rating"

// Rating extracts the numeric rating from a signal payload.
//
// The payload's own keys are scanned in document order and the first key
// whose lower-cased form is "rating" is taken. If that exact key repeats,
// its last value counts. A value that is not
// a JSON number yields no rating; other spellings ("Rating" after
// "rating") are not consulted.
// Absent and non-object payloads have no rating.
func Rating(p types.Payload) (float64, bool) {
	if p.IsAbsent() {
		return 0, false
	}
	root := gjson.ParseBytes(p)
	if !root.IsObject() {
		return 0, false
	}

	var (
		value   float64
		found   bool
		matched string
	)
	root.ForEach(func(key, v gjson.Result) bool {
		switch {
		case matched == "" && strings.ToLower(key.Str) == RatingKey:
			matched = key.Str
		case matched == "" || key.Str != matched:
			return true
		}
		value, found = 0, false
		if v.Type == gjson.Number && !math.IsInf(v.Num, 0) && !math.IsNaN(v.Num) {
			value, found = v.Num, true
		}
		return true
	})
	return value, found
}
