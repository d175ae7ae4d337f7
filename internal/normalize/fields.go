package normalize

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/ahrav/go-intake/internal/domain"
)

// productNameKeys are probed in order on object-shaped product entries.
var productNameKeys = []string{"product_name", "name", "productName", "title", "item", "description"}

// Products normalizes a products value into a list of names. It accepts an array
// (strings, objects probed through productNameKeys, or scalars) or a comma-delimited
// string. When nothing usable is found it returns a copy of domain.DefaultProducts
// and false.
func Products(v any) ([]string, bool) {
	var names []string
	switch t := v.(type) {
	case []any:
		names = make([]string, 0, len(t))
		for _, elem := range t {
			if name := productName(elem); name != "" {
				names = append(names, name)
			}
		}
	case string:
		for part := range strings.SplitSeq(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				names = append(names, part)
			}
		}
	}
	if len(names) == 0 {
		return slices.Clone(domain.DefaultProducts), false
	}
	return names, true
}

func productName(elem any) string {
	switch e := elem.(type) {
	case string:
		return strings.TrimSpace(e)
	case map[string]any:
		for _, key := range productNameKeys {
			if s, ok := e[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
		b, err := json.Marshal(e)
		if err != nil {
			return ""
		}
		return string(b)
	case nil:
		return ""
	default:
		return fmt.Sprint(e)
	}
}

// Warranty maps backend status text to a WarrantyStatus, matching lower-cased
// substrings in priority order. The second result reports whether the status was
// explicit enough to require a user decision. Unrecognized or absent text is
// Available without confirmation.
func Warranty(raw string) (domain.WarrantyStatus, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case s == "":
		return domain.WarrantyAvailable, false
	case strings.Contains(s, "invalid"), strings.Contains(s, "not found"):
		return domain.WarrantyInvalid, true
	case strings.Contains(s, "expired"), strings.Contains(s, "unknown"):
		return domain.WarrantyExpired, true
	case strings.Contains(s, "available"):
		return domain.WarrantyAvailable, true
	default:
		return domain.WarrantyAvailable, false
	}
}
