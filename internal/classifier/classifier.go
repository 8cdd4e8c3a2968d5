// Package classifier assigns semantic roles to spreadsheet columns by
// matching keywords against their names.
package classifier

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ginjaninja78/model-merger/internal/types"
	"golang.org/x/text/unicode/norm"
)

// ErrMissingRequiredColumn is returned when no column can serve as the
// identifier.
var ErrMissingRequiredColumn = errors.New("missing required identifier column")

// ErrUnknownColumn is returned when an override names a column the table
// does not have.
var ErrUnknownColumn = errors.New("unknown column")

// DefaultKeywords returns the keyword lists tried for each role, in order.
func DefaultKeywords() map[types.Role][]string {
	return map[types.Role][]string{
		types.RoleIdentifier: {"MODEL", "STYLE", "ITEM", "CODE"},
		types.RoleQuantity:   {"QTY", "QUANTITY", "PCS"},
		types.RolePrice:      {"PRICE", "U.PRICE", "UNIT"},
		types.RoleAmount:     {"AMOUNT", "TOTAL", "VALUE"},
	}
}

// Options configures classification.
type Options struct {
	// Keywords overrides the keyword list of a role. Roles missing from the
	// map use DefaultKeywords.
	Keywords map[types.Role][]string

	// Exclusive stops a column from being assigned to more than one role.
	// Roles are assigned in types.AllRoles order, so the identifier always
	// gets first pick. By default a column may serve several roles.
	Exclusive bool

	// Overrides replaces the detected column of any role it names.
	Overrides types.ColumnRoles
}

// NormalizeName folds a column name for matching: NFKC, trimmed, upper-cased.
// The table's columns are never renamed.
func NormalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(norm.NFKC.String(name)))
}

// Classify detects the role columns among columns.
//
// For each role the keywords are tried in order; the first keyword contained
// in any normalized name wins, and among the columns containing it the
// leftmost one is chosen. Overrides must name existing columns; a role with
// an override is not detected.
func Classify(columns []string, opts Options) (types.ColumnRoles, error) {
	normalized := make([]string, len(columns))
	for i, col := range columns {
		normalized[i] = NormalizeName(col)
	}

	var roles types.ColumnRoles
	taken := make(map[string]bool)

	// Overrides first, so exclusive detection never hands their columns to
	// another role.
	for _, role := range types.AllRoles {
		override := opts.Overrides.Get(role)
		if override == "" {
			continue
		}
		if !contains(columns, override) {
			return types.ColumnRoles{}, fmt.Errorf("%s override %q: %w", role, override, ErrUnknownColumn)
		}
		roles.Set(role, override)
		taken[override] = true
	}

	for _, role := range types.AllRoles {
		if roles.Get(role) != "" {
			continue
		}
		col := detect(columns, normalized, keywordsFor(role, opts.Keywords), func(c string) bool {
			return opts.Exclusive && taken[c]
		})
		if col != "" {
			roles.Set(role, col)
			taken[col] = true
		}
	}

	if roles.Identifier == "" {
		return roles, ErrMissingRequiredColumn
	}
	return roles, nil
}

func detect(columns, normalized, keywords []string, skip func(string) bool) string {
	for _, kw := range keywords {
		kw = NormalizeName(kw)
		if kw == "" {
			continue
		}
		for i, name := range normalized {
			if strings.Contains(name, kw) && !skip(columns[i]) {
				return columns[i]
			}
		}
	}
	return ""
}

func keywordsFor(role types.Role, custom map[types.Role][]string) []string {
	if kws, ok := custom[role]; ok && len(kws) > 0 {
		return kws
	}
	return DefaultKeywords()[role]
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
