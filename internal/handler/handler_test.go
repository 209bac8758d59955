package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	awsprovider "github.com/yairfalse/warden/internal/provider/aws"
	"github.com/yairfalse/warden/internal/scheduler"
	"github.com/yairfalse/warden/internal/versioning"
	"github.com/yairfalse/warden/pkg/resource"
)

// fakePass returns a fixed result or panics.
type fakePass struct {
	name   string
	result resource.PassResult
	err    error
	panic  any
	calls  int
}

func (p *fakePass) Name() string { return p.name }

func (p *fakePass) Run(context.Context) (resource.PassResult, error) {
	p.calls++
	if p.panic != nil {
		panic(p.panic)
	}
	return p.result, p.err
}

// recordingEmitter keeps every emitted result.
type recordingEmitter struct {
	results []resource.PassResult
	err     error
}

func (e *recordingEmitter) Emit(_ context.Context, result resource.PassResult) error {
	e.results = append(e.results, result)
	return e.err
}

func (e *recordingEmitter) Close() error { return nil }

func decodeBody(t *testing.T, body string) string {
	t.Helper()
	var s string
	require.NoError(t, json.Unmarshal([]byte(body), &s))
	return s
}

func finalLines(out string) []string {
	var lines []string
	for _, l := range strings.Split(strings.TrimSpace(out), "\n") {
		if strings.Contains(l, `"message":"invocation `) {
			lines = append(lines, l)
		}
	}
	return lines
}

func TestHandle_Success(t *testing.T) {
	instances := &fakePass{name: "instances", result: resource.PassResult{Status: "Finished processing all instances."}}
	buckets := &fakePass{name: "buckets", result: resource.PassResult{Status: "No buckets found."}}

	resp := New([]Pass{instances, buckets}, WithLogger(zerolog.Nop())).Handle(context.Background())

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, `"Finished processing all instances. No buckets found."`, resp.Body)
	assert.Equal(t, 1, instances.calls)
	assert.Equal(t, 1, buckets.calls)
}

func TestHandle_PassErrorStopsInvocation(t *testing.T) {
	failing := &fakePass{name: "instances", err: errors.New("stop instance i-1: boom")}
	buckets := &fakePass{name: "buckets"}

	resp := New([]Pass{failing, buckets}, WithLogger(zerolog.Nop())).Handle(context.Background())

	assert.Equal(t, 500, resp.StatusCode)
	assert.Equal(t, "Unexpected error has occurred. stop instance i-1: boom", decodeBody(t, resp.Body))
	assert.Equal(t, 0, buckets.calls)
}

func TestHandle_RecoversPanic(t *testing.T) {
	var buf bytes.Buffer
	panicking := &fakePass{name: "buckets", panic: "nil map"}

	resp := New([]Pass{panicking}, WithLogger(zerolog.New(&buf))).Handle(context.Background())

	assert.Equal(t, 500, resp.StatusCode)
	assert.Equal(t, "Unexpected error has occurred. panic: nil map", decodeBody(t, resp.Body))
	lines := finalLines(buf.String())
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"error.kind":"panic"`)
}

func TestHandle_LogsExactlyOneFinalLine(t *testing.T) {
	tests := []struct {
		name string
		pass *fakePass
		want string
	}{
		{"success", &fakePass{name: "p", result: resource.PassResult{Status: "ok"}}, "invocation finished"},
		{"error", &fakePass{name: "p", err: errors.New("boom")}, "invocation failed"},
		{"panic", &fakePass{name: "p", panic: errors.New("boom")}, "invocation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			New([]Pass{tt.pass}, WithLogger(zerolog.New(&buf))).Handle(context.Background())

			lines := finalLines(buf.String())
			require.Len(t, lines, 1)
			assert.Contains(t, lines[0], tt.want)
		})
	}
}

func TestHandle_LogsFaultKind(t *testing.T) {
	var buf bytes.Buffer
	c := &fakeCompute{findErr: &awsprovider.APIError{
		Service: "ec2",
		Op:      "DescribeInstances",
		Code:    "UnauthorizedOperation",
		Kind:    awsprovider.ErrAccessDenied,
		Err:     &smithy.GenericAPIError{Code: "UnauthorizedOperation", Message: "not allowed"},
	}}
	sched := scheduler.New(c, scheduler.WithLogger(zerolog.Nop()))

	resp := New([]Pass{sched}, WithLogger(zerolog.New(&buf))).Handle(context.Background())

	assert.Equal(t, 500, resp.StatusCode)
	assert.Contains(t, decodeBody(t, resp.Body), "not allowed")
	assert.Contains(t, buf.String(), `"error.kind":"access_denied"`)
}

func TestHandle_EmitsEveryPassResult(t *testing.T) {
	em := &recordingEmitter{err: errors.New("sink down")}
	passErr := errors.New("boom")
	ok := &fakePass{name: "instances", result: resource.PassResult{Status: "done"}}
	failing := &fakePass{name: "buckets", err: passErr}

	New([]Pass{ok, failing}, WithEmitter(em), WithLogger(zerolog.Nop())).Handle(context.Background())

	require.Len(t, em.results, 2)
	assert.Equal(t, "instances", em.results[0].Pass)
	assert.NoError(t, em.results[0].Error)
	assert.Equal(t, "buckets", em.results[1].Pass)
	assert.ErrorIs(t, em.results[1].Error, passErr)
}

func TestHandleLambda(t *testing.T) {
	h := New([]Pass{&fakePass{name: "p", err: errors.New("boom")}}, WithLogger(zerolog.Nop()))

	resp, err := h.HandleLambda(context.Background(), json.RawMessage(`{"source":"aws.events"}`))

	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
	assert.Equal(t, `"Unexpected error has occurred. boom"`, resp.Body)
}

func TestResponseJSON(t *testing.T) {
	data, err := json.Marshal(Response{StatusCode: 200, Body: `"ok"`})

	require.NoError(t, err)
	assert.JSONEq(t, `{"statusCode":200,"body":"\"ok\""}`, string(data))
}

func TestDisabled(t *testing.T) {
	p := Disabled("buckets", "Bucket versioning disabled.")

	result, err := p.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "buckets", p.Name())
	assert.Equal(t, "Bucket versioning disabled.", result.Status)
	assert.Empty(t, result.Outcomes)
}

// fakeCompute and fakeBuckets stand in for the AWS adapters in end-to-end runs.
type fakeCompute struct {
	instances []resource.Instance
	found     bool
	findErr   error
	started   []string
	stopped   []string
}

func (f *fakeCompute) FindTagged(context.Context, []string) ([]resource.Instance, bool, error) {
	return f.instances, f.found, f.findErr
}

func (f *fakeCompute) StartInstance(_ context.Context, id string) error {
	f.started = append(f.started, id)
	return nil
}

func (f *fakeCompute) StopInstance(_ context.Context, id string) error {
	f.stopped = append(f.stopped, id)
	return nil
}

type fakeBuckets struct {
	buckets []resource.Bucket
	status  map[string]resource.VersioningStatus
	reads   []string
	writes  []string
}

func (f *fakeBuckets) ListBuckets(context.Context) ([]resource.Bucket, error) {
	return f.buckets, nil
}

func (f *fakeBuckets) Versioning(_ context.Context, name string) (resource.VersioningStatus, error) {
	f.reads = append(f.reads, name)
	return f.status[name], nil
}

func (f *fakeBuckets) EnableVersioning(_ context.Context, name string) error {
	f.writes = append(f.writes, name)
	f.status[name] = resource.VersioningEnabled
	return nil
}

func TestHandle_EndToEnd(t *testing.T) {
	compute := &fakeCompute{found: false}
	buckets := &fakeBuckets{
		buckets: []resource.Bucket{{Name: "yasinh-logs"}, {Name: "other-bucket"}},
		status:  map[string]resource.VersioningStatus{},
	}
	clock := func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }

	h := New([]Pass{
		scheduler.New(compute, scheduler.WithClock(clock), scheduler.WithLogger(zerolog.Nop())),
		versioning.New(buckets, versioning.DefaultPrefix, versioning.WithLogger(zerolog.Nop())),
	}, WithLogger(zerolog.Nop()))

	resp := h.Handle(context.Background())

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "No instances found. Finished processing all buckets.", decodeBody(t, resp.Body))
	assert.Empty(t, compute.started)
	assert.Empty(t, compute.stopped)
	assert.Equal(t, []string{"yasinh-logs"}, buckets.reads)
	assert.Equal(t, []string{"yasinh-logs"}, buckets.writes)
}
