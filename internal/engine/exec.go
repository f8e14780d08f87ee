package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/levimarcus10/BerlinOriginal/internal/matsimcfg"
)

// ConfigPlaceholder in Command is replaced with the effective config path.
const ConfigPlaceholder = "{config}"

const stderrTailLines = 20

// ExecEngine runs the simulation as an external process, e.g.
//
//	java -Xmx10g -cp matsim-berlin.jar org.matsim.run.RunBerlinScenario {config}
//
// The overridden config is written next to the source config so relative
// input paths keep resolving, and removed once the process exits.
type ExecEngine struct {
	Command []string
	WorkDir string
	Env     []string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Run implements Engine.
func (e *ExecEngine) Run(ctx context.Context, cfg *matsimcfg.Config) (*RunResult, error) {
	if len(e.Command) == 0 {
		return nil, newRuntimeError(ErrCodeCommandFailed, "no engine command configured", nil)
	}
	outDir := cfg.OutputDirectory()
	if outDir == "" {
		return nil, newRuntimeError(ErrCodeCommandFailed, "config has no output directory", nil)
	}
	logger := e.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	cfgPath, err := writeEffectiveConfig(cfg)
	if err != nil {
		return nil, newRuntimeError(ErrCodeCommandFailed, "failed to write effective config", err)
	}
	defer os.Remove(cfgPath)

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	argv := expandCommand(e.Command, cfgPath)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = e.WorkDir
	cmd.WaitDelay = time.Second
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}

	stdout := &lineLogger{logger: logger, stream: "stdout"}
	stderr := &lineLogger{logger: logger, stream: "stderr", keep: stderrTailLines}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	logger.Info("starting simulation", "command", strings.Join(argv, " "), "output_dir", outDir)
	start := time.Now()
	runErr := cmd.Run()
	stdout.flush()
	stderr.flush()

	if runErr != nil {
		var rerr *RuntimeError
		switch ctxErr := ctx.Err(); {
		case errors.Is(ctxErr, context.DeadlineExceeded) && e.Timeout > 0:
			rerr = newRuntimeError(ErrCodeTimeout, fmt.Sprintf("simulation exceeded %s", e.Timeout), runErr)
		case errors.Is(ctxErr, context.DeadlineExceeded):
			rerr = newRuntimeError(ErrCodeTimeout, "simulation deadline exceeded", runErr)
		case errors.Is(ctxErr, context.Canceled):
			rerr = newRuntimeError(ErrCodeInterrupted, "simulation interrupted", ctxErr)
		default:
			rerr = newRuntimeError(ErrCodeCommandFailed, "simulation process failed", runErr)
		}
		if tail := stderr.tail(); tail != "" {
			rerr.Details = map[string]string{"stderr": tail}
		}
		return nil, rerr
	}
	logger.Info("simulation finished", "elapsed", time.Since(start).Round(time.Millisecond))

	return ReadOutputs(outDir, cfg.RunID())
}

// writeEffectiveConfig saves cfg beside its source file under a unique name.
func writeEffectiveConfig(cfg *matsimcfg.Config) (string, error) {
	dir := os.TempDir()
	if p := cfg.Path(); p != "" {
		dir = filepath.Dir(p)
	}
	path := filepath.Join(dir, ".berlinreg-"+uuid.Must(uuid.NewV7()).String()+".config.xml")
	if err := cfg.Save(path); err != nil {
		return "", err
	}
	return path, nil
}

// expandCommand substitutes the config placeholder, or appends the config
// path when the command has none.
func expandCommand(command []string, cfgPath string) []string {
	out := make([]string, 0, len(command)+1)
	found := false
	for _, arg := range command {
		if strings.Contains(arg, ConfigPlaceholder) {
			found = true
			arg = strings.ReplaceAll(arg, ConfigPlaceholder, cfgPath)
		}
		out = append(out, arg)
	}
	if !found {
		out = append(out, cfgPath)
	}
	return out
}

// lineLogger forwards process output to the logger one line at a time and
// optionally keeps the last few lines for error reports.
type lineLogger struct {
	logger *slog.Logger
	stream string
	keep   int

	mu    sync.Mutex
	buf   bytes.Buffer
	lines []string
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf.Write(p)
	for {
		line, err := l.buf.ReadString('\n')
		if err != nil {
			// Incomplete line: put it back for the next write.
			l.buf.Reset()
			l.buf.WriteString(line)
			break
		}
		l.emit(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

func (l *lineLogger) flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buf.Len() > 0 {
		l.emit(l.buf.String())
		l.buf.Reset()
	}
}

func (l *lineLogger) emit(line string) {
	if line == "" {
		return
	}
	l.logger.Debug("simulation output", "stream", l.stream, "line", line)
	if l.keep > 0 {
		l.lines = append(l.lines, line)
		if len(l.lines) > l.keep {
			l.lines = l.lines[len(l.lines)-l.keep:]
		}
	}
}

func (l *lineLogger) tail() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n")
}
