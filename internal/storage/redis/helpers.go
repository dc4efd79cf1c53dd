package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/goodtune/watchdog/internal/storage"
)

// usageLog is a log hash before window metadata is attached
type usageLog struct {
	record   storage.UsageLogRecord
	windowID *int64
}

// parseScriptReply converts the alternating id/fields reply of
// listUsageLogsScript into usage logs.
func parseScriptReply(reply interface{}) ([]usageLog, error) {
	items, ok := reply.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected script reply type %T", reply)
	}
	if len(items)%2 != 0 {
		return nil, fmt.Errorf("unexpected script reply length %d", len(items))
	}

	logs := make([]usageLog, 0, len(items)/2)
	for i := 0; i < len(items); i += 2 {
		member, _ := items[i].(string)
		fields, ok := items[i+1].([]interface{})
		if !ok {
			return nil, fmt.Errorf("unexpected field list type %T for log %s", items[i+1], member)
		}
		logs = append(logs, parseUsageLog(member, pairs(fields)))
	}
	return logs, nil
}

// parseUsageLog converts a log hash into a record. Absent or unparsable
// fields stay nil so the record is rejected downstream instead of failing the
// whole fetch. A missing hash still carries the index member as its log id.
func parseUsageLog(member string, data map[string]string) usageLog {
	var log usageLog

	if v, ok := data["log_id"]; ok {
		log.record.LogID = parseInt(v)
	} else {
		log.record.LogID = parseInt(member)
	}
	if v, ok := data["time_spent"]; ok {
		log.record.TimeSpent = parseInt(v)
	}
	if v, ok := data["date"]; ok {
		log.record.Date = storage.String(v)
	}
	if v, ok := data["window_id"]; ok {
		log.windowID = parseInt(v)
	}

	return log
}

// pairs folds a flat HGETALL field/value list into a map
func pairs(fields []interface{}) map[string]string {
	data := make(map[string]string, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		k, _ := fields[i].(string)
		v, _ := fields[i+1].(string)
		data[k] = v
	}
	return data
}

func parseInt(s string) *int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// ctxErr prefers the context's error so an expired fetch deadline classifies
// as a timeout even when the client reports it as a network error.
func ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ctx.Err(), err)
	}
	return err
}
