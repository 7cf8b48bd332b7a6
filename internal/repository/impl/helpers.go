package impl

import "database/sql"

// nullString 空字符串写库时转为 NULL
func nullString(val string) interface{} {
	if val == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: val, Valid: true}
}
