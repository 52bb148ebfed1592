package redis

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/queue-vision/queue-vision/pkg/broker"
)

// decodeJob translates a raw hash read off a job key into a broker.Job.
// Structural fields (timestamps, attemptsMade, opts) must parse or the
// whole record is rejected with ErrDecode; payload fields (data,
// returnvalue, stacktrace) are best-effort — a malformed payload
// surfaces as its raw string rather than failing the read, since a
// dashboard should still be able to show a job it can't fully parse.
func decodeJob(queue, id string, fields map[string]string, status broker.JobStatus) (broker.Job, error) {
	job := broker.Job{
		Queue:  queue,
		ID:     id,
		Status: status,
	}

	if raw, ok := fields["data"]; ok {
		job.Data = rawOrQuoted(raw)
	}

	if attemptsMade, ok := fields["attemptsMade"]; ok && attemptsMade != "" {
		n, err := strconv.Atoi(attemptsMade)
		if err != nil {
			return broker.Job{}, broker.ErrDecode("invalid attemptsMade for "+queue+"/"+id, err)
		}
		job.Attempts = n
	}

	if optsRaw, ok := fields["opts"]; ok && optsRaw != "" {
		var opts struct {
			Attempts *int `json:"attempts"`
		}
		if err := json.Unmarshal([]byte(optsRaw), &opts); err != nil {
			return broker.Job{}, broker.ErrDecode("invalid opts for "+queue+"/"+id, err)
		}
		job.MaxAttempts = opts.Attempts
	}

	if ts, ok := fields["timestamp"]; ok && ts != "" {
		t, err := parseEpochMillis(ts)
		if err != nil {
			return broker.Job{}, broker.ErrDecode("invalid timestamp for "+queue+"/"+id, err)
		}
		job.CreatedAt = t
	}

	if v, ok := fields["processedOn"]; ok && v != "" {
		t, err := parseEpochMillis(v)
		if err != nil {
			return broker.Job{}, broker.ErrDecode("invalid processedOn for "+queue+"/"+id, err)
		}
		job.ProcessedAt = &t
	}

	if v, ok := fields["finishedOn"]; ok && v != "" {
		t, err := parseEpochMillis(v)
		if err != nil {
			return broker.Job{}, broker.ErrDecode("invalid finishedOn for "+queue+"/"+id, err)
		}
		job.FinishedAt = &t
	}

	if v, ok := fields["delay"]; ok && v != "" {
		t, err := parseEpochMillis(v)
		if err != nil {
			return broker.Job{}, broker.ErrDecode("invalid delay for "+queue+"/"+id, err)
		}
		job.ScheduledAt = &t
	}

	if reason, ok := fields["failedReason"]; ok && reason != "" {
		jobErr := &broker.JobError{Message: reason}
		if stack, ok := fields["stacktrace"]; ok && stack != "" {
			jobErr.Stack = decodeStack(stack)
		}
		job.Err = jobErr
	}

	if rv, ok := fields["returnvalue"]; ok && rv != "" {
		job.ReturnValue = rawOrQuoted(rv)
	}

	return job, nil
}

// rawOrQuoted returns raw as-is if it is valid JSON, or a JSON string
// literal wrapping it otherwise — the caller always gets parseable
// json.RawMessage back.
func rawOrQuoted(raw string) json.RawMessage {
	if json.Valid([]byte(raw)) {
		return json.RawMessage(raw)
	}
	quoted, err := json.Marshal(raw)
	if err != nil {
		return json.RawMessage(`""`)
	}
	return json.RawMessage(quoted)
}

// decodeStack best-effort parses a JSON array of frames; a plain
// string is returned as a single-element slice.
func decodeStack(raw string) []string {
	var frames []string
	if err := json.Unmarshal([]byte(raw), &frames); err == nil {
		return frames
	}
	return []string{raw}
}

func parseEpochMillis(raw string) (time.Time, error) {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
