package taskresult

import (
	"encoding/json"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/spiffworkflow/backend/pkg/logger"
)

const (
	statusFailure    = "FAILURE"
	maxExactFloatInt = 1 << 53
)

// Filter keeps the values whose result belongs to processInstanceID, plus
// every failed task when includeAllFailures is set. Order is preserved.
func Filter(
	log logger.Logger,
	values [][]byte,
	processInstanceID int64,
	includeAllFailures bool,
) []json.RawMessage {
	out := make([]json.RawMessage, 0)
	for i, value := range values {
		if value == nil {
			continue
		}
		if !gjson.ValidBytes(value) {
			log.Warn("Skipping Celery result that is not valid JSON", "index", i)
			continue
		}
		doc := gjson.ParseBytes(value)
		if !doc.IsObject() {
			log.Warn("Skipping Celery result that is not a JSON object", "index", i)
			continue
		}
		if matchesProcessInstance(doc.Get("result"), processInstanceID) ||
			(includeAllFailures && isFailure(doc)) {
			out = append(out, json.RawMessage(value))
		}
	}
	return out
}

func matchesProcessInstance(result gjson.Result, processInstanceID int64) bool {
	if !truthy(result) || !result.IsObject() {
		return false
	}
	pid := result.Get("process_instance_id")
	if pid.Type != gjson.Number {
		return false
	}
	if n, err := strconv.ParseInt(pid.Raw, 10, 64); err == nil {
		return n == processInstanceID
	}
	// Literals such as 42.0 or 4.2e1 are only exact below 2^53.
	if processInstanceID >= maxExactFloatInt || processInstanceID <= -maxExactFloatInt {
		return false
	}
	return pid.Num == float64(processInstanceID)
}

func isFailure(doc gjson.Result) bool {
	status := doc.Get("status")
	return status.Type == gjson.String && status.Str == statusFailure
}

func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != ""
	case gjson.True:
		return true
	case gjson.JSON:
		empty := true
		r.ForEach(func(_, _ gjson.Result) bool {
			empty = false
			return false
		})
		return !empty
	default:
		return false
	}
}
