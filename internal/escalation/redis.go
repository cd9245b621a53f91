package escalation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// SubjectPrefix is the Redis key prefix for subject records. Each subject
// uses a hash and a reporter set that share a hash tag, so the Lua scripts
// touch a single cluster slot:
//
//	Key:   mod:{<kind>:<id>}            hash: reports, violations, status
//	Key:   mod:{<kind>:<id>}:reporters  set of reporter ids
const SubjectPrefix = "mod:"

// RedisStore is a Store backed by Redis. Status changes and report counting
// run as Lua scripts so each is atomic per subject.
type RedisStore struct {
	client        *redis.Client
	advanceScript *redis.Script
	reportScript  *redis.Script
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a RedisStore using the provided Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:        client,
		advanceScript: redis.NewScript(advanceStatusLua),
		reportScript:  redis.NewScript(addReportLua),
	}
}

func subjectKey(s Subject) string {
	return SubjectPrefix + "{" + string(s.Kind) + ":" + s.ID + "}"
}

func reportersKey(s Subject) string {
	return subjectKey(s) + ":reporters"
}

func (r *RedisStore) Snapshot(ctx context.Context, s Subject) (Snapshot, error) {
	vals, err := r.client.HMGet(ctx, subjectKey(s), "reports", "violations", "status").Result()
	if err != nil {
		return Snapshot{}, fmt.Errorf("escalation: redis snapshot: %w", err)
	}

	var snap Snapshot
	if snap.Reports, err = hashInt(vals[0]); err != nil {
		return Snapshot{}, err
	}
	if snap.Violations, err = hashInt(vals[1]); err != nil {
		return Snapshot{}, err
	}
	status, err := hashInt(vals[2])
	if err != nil {
		return Snapshot{}, err
	}
	snap.Status = Status(status)
	if !snap.Status.Valid() {
		return Snapshot{}, fmt.Errorf("%w: stored value %d", ErrInvalidStatus, status)
	}
	return snap, nil
}

// hashInt decodes one HMGET field. Missing fields read as zero.
func hashInt(v any) (int64, error) {
	if v == nil {
		return 0, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("escalation: unexpected redis value %T", v)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("escalation: parse redis value %q: %w", s, err)
	}
	return n, nil
}

// advanceStatusLua sets the status only if the target is stricter.
// Returns {previous, changed}.
const advanceStatusLua = `
local cur = tonumber(redis.call('HGET', KEYS[1], 'status') or '0')
local target = tonumber(ARGV[1])
if target <= cur then
    return {cur, 0}
end
redis.call('HSET', KEYS[1], 'status', target)
return {cur, 1}
`

func (r *RedisStore) AdvanceStatus(ctx context.Context, s Subject, target Status) (Status, bool, error) {
	if !target.Valid() {
		return StatusActive, false, ErrInvalidStatus
	}
	res, err := r.advanceScript.Run(ctx, r.client, []string{subjectKey(s)}, int(target)).Int64Slice()
	if err != nil {
		return StatusActive, false, fmt.Errorf("escalation: redis advance: %w", err)
	}
	if len(res) != 2 {
		return StatusActive, false, errors.New("escalation: redis advance: malformed reply")
	}
	return Status(res[0]), res[1] == 1, nil
}

func (r *RedisStore) Reinstate(ctx context.Context, s Subject, status Status) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	if err := r.client.HSet(ctx, subjectKey(s), "status", int(status)).Err(); err != nil {
		return fmt.Errorf("escalation: redis reinstate: %w", err)
	}
	return nil
}

// addReportLua counts a reporter once per subject. Returns 1 when counted.
const addReportLua = `
if redis.call('SADD', KEYS[2], ARGV[1]) == 0 then
    return 0
end
redis.call('HINCRBY', KEYS[1], 'reports', 1)
return 1
`

func (r *RedisStore) AddReport(ctx context.Context, s Subject, reporterID string) (bool, error) {
	if strings.TrimSpace(reporterID) == "" {
		return false, ErrEmptyReporter
	}
	n, err := r.reportScript.Run(ctx, r.client, []string{subjectKey(s), reportersKey(s)}, reporterID).Int64()
	if err != nil {
		return false, fmt.Errorf("escalation: redis add report: %w", err)
	}
	return n == 1, nil
}

func (r *RedisStore) AddViolation(ctx context.Context, s Subject) error {
	if err := r.client.HIncrBy(ctx, subjectKey(s), "violations", 1).Err(); err != nil {
		return fmt.Errorf("escalation: redis add violation: %w", err)
	}
	return nil
}
