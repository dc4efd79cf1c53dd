package redis

import (
	"context"
	"fmt"
	"slices"

	"github.com/goodtune/watchdog/internal/metrics"
	"github.com/goodtune/watchdog/internal/storage"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
)

var listUsageLogs = redis.NewScript(listUsageLogsScript)

// windowInfo is the cached metadata for one window id
type windowInfo struct {
	WindowName     *string
	ExecutableName *string
}

type usageLogStore struct {
	client  *redis.Client
	keys    keyspace
	windows *lru.Cache[int64, windowInfo]
}

// ListUsageLogs returns the logs recorded on date in log id order
func (s *usageLogStore) ListUsageLogs(ctx context.Context, date string) ([]storage.UsageLogRecord, error) {
	reply, err := listUsageLogs.Run(ctx, s.client, []string{s.keys.logIndex(date)}, s.keys.logPrefix()).Result()
	if err != nil && err != redis.Nil {
		return nil, storage.Classify(ctxErr(ctx, err))
	}

	logs, err := parseScriptReply(reply)
	if err != nil {
		return nil, storage.Classify(ctxErr(ctx, err))
	}
	if len(logs) == 0 {
		return []storage.UsageLogRecord{}, nil
	}

	windows, err := s.resolveWindows(ctx, logs)
	if err != nil {
		return nil, storage.Classify(ctxErr(ctx, err))
	}

	records := make([]storage.UsageLogRecord, 0, len(logs))
	for _, log := range logs {
		record := log.record
		if log.windowID != nil {
			info := windows[*log.windowID]
			record.WindowName = info.WindowName
			record.ExecutableName = info.ExecutableName
		}
		records = append(records, record)
	}

	return records, nil
}

// resolveWindows returns window metadata for every window id in logs,
// reading cache misses from Redis with two pipelined round trips.
func (s *usageLogStore) resolveWindows(ctx context.Context, logs []usageLog) (map[int64]windowInfo, error) {
	resolved := make(map[int64]windowInfo)
	var misses []int64

	for _, log := range logs {
		if log.windowID == nil {
			continue
		}
		id := *log.windowID
		if _, done := resolved[id]; done || slices.Contains(misses, id) {
			continue
		}
		if info, ok := s.windows.Get(id); ok {
			metrics.WindowCacheLookups.WithLabelValues("hit").Inc()
			resolved[id] = info
			continue
		}
		metrics.WindowCacheLookups.WithLabelValues("miss").Inc()
		misses = append(misses, id)
	}

	if len(misses) == 0 {
		return resolved, nil
	}

	// Window hashes
	pipe := s.client.Pipeline()
	windowCmds := make([]*redis.MapStringStringCmd, len(misses))
	for i, id := range misses {
		windowCmds[i] = pipe.HGetAll(ctx, s.keys.window(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to read windows: %w", err)
	}

	// Owning applications
	pipe = s.client.Pipeline()
	appCmds := make([]*redis.StringCmd, len(misses))
	for i, cmd := range windowCmds {
		data, _ := cmd.Result()
		if name, ok := data["window_name"]; ok {
			info := resolved[misses[i]]
			info.WindowName = storage.String(name)
			resolved[misses[i]] = info
		}
		if appID, ok := data["application_id"]; ok {
			appCmds[i] = pipe.HGet(ctx, s.keys.application(appID), "executable_name")
		}
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to read applications: %w", err)
	}

	for i, id := range misses {
		info := resolved[id]
		if appCmds[i] != nil {
			if exe, err := appCmds[i].Result(); err == nil {
				info.ExecutableName = storage.String(exe)
			}
		}
		resolved[id] = info

		// Only fully known windows are cached so late writes are picked up.
		if info.WindowName != nil && info.ExecutableName != nil {
			s.windows.Add(id, info)
		}
	}

	return resolved, nil
}
