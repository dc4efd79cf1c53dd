package redis

const (
	// listUsageLogsScript reads a day's log index and every log hash it names
	// in one round trip. The reply alternates member id and HGETALL field list,
	// in index order.
	listUsageLogsScript = `
local index_key = KEYS[1]       -- watchdog:logs:{date}
local log_prefix = ARGV[1]      -- watchdog:log:

local ids = redis.call('ZRANGE', index_key, 0, -1)
local out = {}

for _, id in ipairs(ids) do
  out[#out + 1] = id
  out[#out + 1] = redis.call('HGETALL', log_prefix .. id)
end

return out
`
)
