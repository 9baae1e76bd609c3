package ratelimit

// Each script is a single atomic EVAL against one key family, so a
// check-and-increment never races across concurrent requests hitting the
// same identifier/scope (spec §4.C: "atomicity is mandatory").
//
// All scripts return {allowed(0/1), remaining, reset_at_unix}.

const fixedWindowScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local bucket = math.floor(now / window)
local bucketKey = key .. ":" .. bucket
local count = redis.call("INCR", bucketKey)
if count == 1 then
  redis.call("EXPIRE", bucketKey, window)
end

local resetAt = (bucket + 1) * window
if count > limit then
  return {0, 0, resetAt}
end
return {1, limit - count, resetAt}
`

const slidingWindowScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local member = ARGV[4]

local windowStart = now - window
redis.call("ZREMRANGEBYSCORE", key, 0, windowStart)
local count = redis.call("ZCARD", key)

if count >= limit then
  local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
  local resetAt = now + window
  if oldest[2] ~= nil then
    resetAt = tonumber(oldest[2]) + window
  end
  return {0, 0, resetAt}
end

redis.call("ZADD", key, now, member)
redis.call("EXPIRE", key, window)
return {1, limit - count - 1, now + window}
`

const tokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refillPerSecond = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local state = redis.call("HMGET", key, "tokens", "last_refill")
local tokens = tonumber(state[1])
local lastRefill = tonumber(state[2])
if tokens == nil then
  tokens = capacity
  lastRefill = now
end

local elapsed = math.max(0, now - lastRefill)
tokens = math.min(capacity, tokens + elapsed * refillPerSecond)

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end

redis.call("HMSET", key, "tokens", tokens, "last_refill", now)
redis.call("EXPIRE", key, math.ceil(capacity / refillPerSecond) + 1)

local resetAt = now
if tokens < capacity then
  resetAt = now + ((capacity - tokens) / refillPerSecond)
end
return {allowed, math.floor(tokens), math.floor(resetAt)}
`

// leakyBucketScript models a queue of pending "drops" that drains at a
// constant rate; a check is admitted only if the queue has room. An empty
// queue admits a burst of up to capacity checks; after that, admissions
// follow the drain rate.
const leakyBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local drainPerSecond = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local state = redis.call("HMGET", key, "level", "last_drain")
local level = tonumber(state[1])
local lastDrain = tonumber(state[2])
if level == nil then
  level = 0
  lastDrain = now
end

local elapsed = math.max(0, now - lastDrain)
level = math.max(0, level - elapsed * drainPerSecond)

local allowed = 0
if level < capacity then
  level = level + 1
  allowed = 1
end

redis.call("HMSET", key, "level", level, "last_drain", now)
redis.call("EXPIRE", key, math.ceil(capacity / drainPerSecond) + 1)

local resetAt = now + (level / drainPerSecond)
return {allowed, math.floor(capacity - level), math.floor(resetAt)}
`
