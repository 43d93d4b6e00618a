package nit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dkoosis/nitcheck/pkg/backend"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// TestHelperProcess stands in for the nit binary. It only runs when re-executed
// by fakeRunner.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}

	switch os.Getenv("FAKE_NIT_MODE") {
	case "echo":
		cwd, _ := os.Getwd()
		fmt.Println("nit 0.9.0 {ci mode}")
		out, _ := json.Marshal(map[string]any{"args": args, "cwd": cwd})
		fmt.Println(string(out))
		os.Exit(0)
	case "exit":
		code, _ := strconv.Atoi(os.Getenv("FAKE_NIT_EXIT"))
		fmt.Fprintln(os.Stderr, "boom")
		os.Exit(code)
	case "hang":
		// A grandchild holding stdout open must not outlive the deadline.
		child := exec.Command("sleep", "60")
		child.Stdout = os.Stdout
		_ = child.Start()
		time.Sleep(60 * time.Second)
		os.Exit(0)
	case "record":
		f, err := os.OpenFile(os.Getenv("FAKE_NIT_LOG"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintln(f, strings.Join(args, " "))
			f.Close()
		}
		if crash := os.Getenv("FAKE_NIT_CRASH_ON"); crash != "" && strings.Contains(strings.Join(args, " "), crash) {
			os.Exit(2)
		}
		os.Exit(0)
	}
	os.Exit(3)
}

func fakeRunner(t *testing.T, mode string, env ...string) *Runner {
	t.Helper()
	cmd := Command{Argv: []string{os.Args[0], "-test.run=TestHelperProcess", "--"}, Source: SourceOverride}
	env = append(env, "GO_WANT_HELPER_PROCESS=1", "FAKE_NIT_MODE="+mode)
	return New(cmd, t.TempDir(), WithEnv(env...))
}

func argsOf(t *testing.T, res *Result) []string {
	t.Helper()
	doc, err := res.JSON()
	require.NoError(t, err, "stdout: %s", res.Stdout)
	raw, ok := doc["args"].([]any)
	require.True(t, ok)
	out := make([]string, len(raw))
	for i, a := range raw {
		out[i] = a.(string)
	}
	return out
}

func TestRun_PrependsCIFlagAndUsesWorkingDir(t *testing.T) {
	r := fakeRunner(t, "echo")
	res, err := r.Run(context.Background(), 0, "scan", "--path", r.Dir())
	require.NoError(t, err)

	assert.True(t, res.Success())
	assert.Equal(t, OutcomeOK, res.Outcome())
	assert.Equal(t, []string{"--ci", "scan", "--path", r.Dir()}, argsOf(t, res))
	assert.Equal(t, []string{"--ci", "scan", "--path", r.Dir()}, res.Args)

	doc, _ := res.JSON()
	wantDir, _ := filepath.EvalSymlinks(r.Dir())
	gotDir, _ := filepath.EvalSymlinks(doc["cwd"].(string))
	assert.Equal(t, wantDir, gotDir)
}

func TestRun_NonZeroExitIsNotAnError(t *testing.T) {
	tests := []struct {
		code    int
		outcome Outcome
	}{
		{1, OutcomeHandled},
		{2, OutcomeCrashed},
		{70, OutcomeCrashed},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.code), func(t *testing.T) {
			r := fakeRunner(t, "exit", "FAKE_NIT_EXIT="+strconv.Itoa(tt.code))
			res, err := r.Run(context.Background(), 0, "run")
			require.NoError(t, err)
			assert.Equal(t, tt.code, res.ExitCode)
			assert.Equal(t, tt.outcome, res.Outcome())
			assert.False(t, res.Success())
			assert.Equal(t, "boom\n", res.Stderr)
		})
	}
}

func TestRun_TimeoutKillsProcessGroup(t *testing.T) {
	r := fakeRunner(t, "hang")

	start := time.Now()
	res, err := r.Run(context.Background(), 300*time.Millisecond, "watch")
	elapsed := time.Since(start)

	assert.Nil(t, res)
	require.ErrorIs(t, err, ErrTimeout)
	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 300*time.Millisecond, te.Timeout)
	assert.Equal(t, []string{"--ci", "watch"}, te.Args)
	assert.Less(t, elapsed, 10*time.Second, "grandchild must not hold the invocation open")
}

func TestRun_ParentCancelIsNotATimeout(t *testing.T) {
	r := fakeRunner(t, "hang")
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	_, err := r.Run(ctx, time.Minute, "pick")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestRun_MissingBinary(t *testing.T) {
	r := New(Command{Argv: []string{filepath.Join(t.TempDir(), "no-such-nit")}}, t.TempDir())
	_, err := r.Run(context.Background(), time.Second, "scan")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTimeout)
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []Invocation
}

func (o *recordingObserver) ObserveInvocation(inv Invocation) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, inv)
}

func TestRun_NotifiesObserver(t *testing.T) {
	obs := &recordingObserver{}
	r := fakeRunner(t, "exit", "FAKE_NIT_EXIT=1")
	r.observer = obs

	_, err := r.Run(context.Background(), 0, "analyze")
	require.NoError(t, err)
	require.Len(t, obs.seen, 1)
	assert.Equal(t, "analyze", obs.seen[0].Command)
	assert.Equal(t, OutcomeHandled, obs.seen[0].Outcome)
}

func TestResult_JSONIsCached(t *testing.T) {
	res := &Result{Stdout: "log\n{\"total\": 3}\n"}
	first, err := res.JSON()
	require.NoError(t, err)
	res.Stdout = "changed"
	second, err := res.JSON()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestConvenienceCommands(t *testing.T) {
	r := fakeRunner(t, "echo")
	dir := r.Dir()
	ctx := context.Background()

	tests := []struct {
		name string
		call func() (*Result, error)
		want []string
	}{
		{"init auto", func() (*Result, error) { return r.Init(ctx, true) }, []string{"init", "--path", dir, "--auto"}},
		{"init quick", func() (*Result, error) { return r.InitQuick(ctx) }, []string{"init", "--quick", "--path", dir}},
		{"scan", func() (*Result, error) { return r.Scan(ctx, true, true) }, []string{"scan", "--path", dir, "--json-output", "--force"}},
		{"scan cached", func() (*Result, error) { return r.Scan(ctx, false, false) }, []string{"scan", "--path", dir}},
		{"run", func() (*Result, error) { return r.RunTests(ctx) }, []string{"run", "--path", dir}},
		{"generate", func() (*Result, error) { return r.Generate(ctx, "unit") }, []string{"generate", "--type", "unit", "--path", dir}},
		{"analyze", func() (*Result, error) { return r.Analyze(ctx, true) }, []string{"analyze", "--path", dir, "--json-output"}},
		{"pick", func() (*Result, error) { return r.Pick(ctx, "unit") }, []string{"pick", "--type", "unit", "--path", dir}},
		{"config validate", func() (*Result, error) { return r.ConfigValidate(ctx) }, []string{"config", "validate", "--path", dir}},
		{"config show", func() (*Result, error) { return r.ConfigShow(ctx, true) }, []string{"config", "show", "--path", dir, "--json-output"}},
		{"config set", func() (*Result, error) { return r.ConfigSet(ctx, "llm.mode", "ollama") }, []string{"config", "set", "llm.mode", "ollama", "--path", dir}},
		{"memory show", func() (*Result, error) { return r.MemoryShow(ctx, true) }, []string{"memory", "show", "--path", dir, "--json-output"}},
		{"memory reset", func() (*Result, error) { return r.MemoryReset(ctx) }, []string{"memory", "reset", "--confirm", "--path", dir}},
		{"memory export", func() (*Result, error) { return r.MemoryExport(ctx) }, []string{"memory", "export", "--path", dir}},
		{"docs all", func() (*Result, error) { return r.DocsGenerate(ctx, nil, "") }, []string{"docs", "--path", dir, "--all"}},
		{"docs files", func() (*Result, error) { return r.DocsGenerate(ctx, []string{"a.py", "b.py"}, "out") },
			[]string{"docs", "--path", dir, "--file", "a.py", "--file", "b.py", "--output-dir", "out"}},
		{"docs readme", func() (*Result, error) { return r.DocsReadme(ctx) }, []string{"docs", "--readme", "--path", dir}},
		{"docs changelog", func() (*Result, error) { return r.DocsChangelog(ctx, "v0.0.0", true, "") },
			[]string{"docs", "--changelog", "v0.0.0", "--path", dir, "--no-llm"}},
		{"docs check", func() (*Result, error) { return r.DocsCheck(ctx) }, []string{"docs", "--check", "--path", dir}},
		{"drift", func() (*Result, error) { return r.Drift(ctx, "drift.yml") }, []string{"drift", "--path", dir, "--tests-file", "drift.yml"}},
		{"drift baseline", func() (*Result, error) { return r.DriftBaseline(ctx, "") }, []string{"drift", "--baseline", "--path", dir}},
		{"debug", func() (*Result, error) { return r.Debug(ctx, true) }, []string{"debug", "--path", dir, "--dry-run"}},
		{"report", func() (*Result, error) { return r.ReportHTML(ctx) }, []string{"report", "--html", "--path", dir}},
		{"watch", func() (*Result, error) { return r.Watch(ctx, 1, 10) },
			[]string{"watch", "--max-runs", "1", "--interval", "10", "--path", dir}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.call()
			require.NoError(t, err)
			assert.Equal(t, append([]string{"--ci"}, tt.want...), argsOf(t, res))
		})
	}
}

func TestConfigureBackend(t *testing.T) {
	log := filepath.Join(t.TempDir(), "calls.log")
	r := fakeRunner(t, "record", "FAKE_NIT_LOG="+log)
	info := backend.Info{Available: true, Host: "http://gpu:11434", Model: "qwen2.5-coder:7b"}

	require.NoError(t, r.ConfigureBackend(context.Background(), info))

	data, err := os.ReadFile(log)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "--ci config set llm.mode ollama --path "+r.Dir(), lines[0])
	assert.Contains(t, lines[2], "llm.model qwen2.5-coder:7b")
	assert.Contains(t, lines[3], "llm.base_url http://gpu:11434")
	assert.Contains(t, lines[4], "platform.mode disabled")
}

func TestConfigureBackend_StopsOnCrash(t *testing.T) {
	log := filepath.Join(t.TempDir(), "calls.log")
	r := fakeRunner(t, "record", "FAKE_NIT_LOG="+log, "FAKE_NIT_CRASH_ON=llm.provider")

	err := r.ConfigureBackend(context.Background(), backend.Info{Available: true, Host: "h", Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.provider")

	data, _ := os.ReadFile(log)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 2)
}

func TestConfigureBackend_Unavailable(t *testing.T) {
	r := fakeRunner(t, "record")
	err := r.ConfigureBackend(context.Background(), backend.Info{})
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestTimeouts(t *testing.T) {
	d := DefaultTimeouts()
	assert.Equal(t, 300*time.Second, d.For("scan"))
	assert.Equal(t, 600*time.Second, d.For("generate"))
	assert.Equal(t, 900*time.Second, d.For("pick"))
	assert.Equal(t, 300*time.Second, d.For(KeyChangelog))

	m := d.Merge(Timeouts{Default: time.Minute, PerCommand: map[string]time.Duration{"pick": time.Hour}})
	assert.Equal(t, time.Minute, m.For("scan"))
	assert.Equal(t, time.Hour, m.For("pick"))
	assert.Equal(t, 900*time.Second, d.For("pick"), "merge does not mutate the receiver")
}

func TestClassify(t *testing.T) {
	assert.Equal(t, OutcomeOK, Classify(0))
	assert.Equal(t, OutcomeHandled, Classify(1))
	assert.Equal(t, OutcomeCrashed, Classify(137))
	assert.Equal(t, "crashed", OutcomeCrashed.String())
}
