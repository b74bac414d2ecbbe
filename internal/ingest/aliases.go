package ingest

import "strings"

// Field names the canonical columns the normalizer understands.
type Field string

const (
	FieldDate        Field = "date"
	FieldDescription Field = "description"
	FieldAmount      Field = "amount"
	FieldType        Field = "type"
	FieldCategory    Field = "category"
	FieldUserID      Field = "user_id"
)

// requiredFields must resolve to some source column or the whole batch is
// rejected.
var requiredFields = []Field{FieldDate, FieldAmount}

// fieldAliases maps one canonical field to the header names it accepts,
// compared case-insensitively after trimming.
type fieldAliases struct {
	Field Field
	Names []string
}

// defaultAliases is the fixed alias table. The slice order is the resolution
// order across fields; within a field, the first header in file order that
// matches any alias wins.
var defaultAliases = []fieldAliases{
	{FieldDate, []string{"date", "transaction date", "transaction_date", "posted date", "posted_date"}},
	{FieldDescription, []string{"description", "merchant", "payee", "name"}},
	{FieldAmount, []string{"amount", "debit", "credit"}},
	{FieldType, []string{"type", "transaction type", "transaction_type"}},
	{FieldCategory, []string{"category"}},
	{FieldUserID, []string{"user_id", "userid", "user"}},
}

// Columns maps each resolved canonical field to its source column index.
type Columns map[Field]int

// resolveColumns scans the header once per batch. Missing optional fields
// simply stay unresolved; missing required fields fail the batch.
func resolveColumns(header []string) (Columns, error) {
	cols := make(Columns, len(defaultAliases))
	for _, fa := range defaultAliases {
		for i, raw := range header {
			if matchesAlias(raw, fa.Names) {
				cols[fa.Field] = i
				break
			}
		}
	}

	var missing []string
	for _, f := range requiredFields {
		if _, ok := cols[f]; !ok {
			missing = append(missing, string(f))
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Missing: missing}
	}
	return cols, nil
}

func matchesAlias(header string, names []string) bool {
	h := strings.ToLower(strings.TrimSpace(header))
	for _, n := range names {
		if h == n {
			return true
		}
	}
	return false
}
