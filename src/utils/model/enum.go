package model

// Postgres hands enum values to Scan as strings, sqlite as byte slices.
func scanString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}
