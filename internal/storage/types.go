package storage

// DateLayout is the calendar date format used at the store boundary.
const DateLayout = "2006-01-02"

// UsageLogRecord is one usage log row as the store returns it. Fields are
// pointers because a backend may hand back partial rows; a nil field means
// the value was absent.
type UsageLogRecord struct {
	LogID          *int64  `json:"log_id"`
	WindowName     *string `json:"window_name"`
	ExecutableName *string `json:"executable_name"`
	TimeSpent      *int64  `json:"time_spent"`
	Date           *string `json:"date"`
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 {
	return &v
}

// String returns a pointer to v.
func String(v string) *string {
	return &v
}
