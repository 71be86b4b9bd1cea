// Package chartgen implements the Chart Generator (spec.md §4.7): emitting
// chart source from a fixed, parameterized template per chart kind, either
// returning it as reproducible code (the default) or, when an executor is
// configured, running it in a sandboxed subprocess and returning the
// rendered image bytes.
//
// The subprocess sandboxing (process group, SIGTERM-then-SIGKILL on
// timeout, restricted environment) is grounded on
// 2389-research-mammoth/agent/exec_local.go's ExecCommand, generalized from
// an arbitrary shell command to this generator's one fixed Python
// invocation.
package chartgen

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/archviz/diagramsvc/internal/apperr"
	"github.com/archviz/diagramsvc/internal/model"
)

// ExecutorConfig controls the optional sandboxed-execution path.
type ExecutorConfig struct {
	Enabled bool
	Timeout time.Duration
}

// Generator builds chart source and, optionally, executes it.
type Generator struct {
	executor ExecutorConfig
}

func New(executor ExecutorConfig) *Generator {
	return &Generator{executor: executor}
}

// Generate builds source for req.DiagramType via the fixed template for
// that kind, then either executes it (Executed mode) or returns it as
// reproducible source (Code mode, the default and the fallback when
// execution is disabled or fails).
func (g *Generator) Generate(ctx context.Context, req model.DiagramRequest, palette []string) (model.Artifact, error) {
	source, err := buildSource(req, palette)
	if err != nil {
		return model.Artifact{}, err
	}

	if !g.executor.Enabled {
		return model.NewChartArtifact(model.ChartPythonCode, []byte(source), ""), nil
	}

	body, insights, err := g.execute(ctx, source)
	if err != nil {
		// Execution failure is not a generator error: code mode is the
		// documented fallback (spec.md §4.7).
		return model.NewChartArtifact(model.ChartPythonCode, []byte(source), ""), nil
	}
	return model.NewChartArtifact(model.ChartPNG, body, insights), nil
}

// execute runs source as a Python subprocess in its own process group, with
// a restricted environment and a hard wall-clock timeout; on timeout the
// whole group is signaled, matching the teacher's ExecCommand.
func (g *Generator) execute(ctx context.Context, source string) ([]byte, string, error) {
	tmpDir, err := os.MkdirTemp("", "chartgen-*")
	if err != nil {
		return nil, "", apperr.Wrap(apperr.CodeGenerator, "create chart exec tempdir", err)
	}
	defer os.RemoveAll(tmpDir)

	scriptPath := filepath.Join(tmpDir, "chart.py")
	outputPath := filepath.Join(tmpDir, "out.png")
	source = strings.ReplaceAll(source, "{{OUTPUT_PATH}}", outputPath)
	if err := os.WriteFile(scriptPath, []byte(source), 0o600); err != nil {
		return nil, "", apperr.Wrap(apperr.CodeGenerator, "write chart script", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, g.executor.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "python3", scriptPath)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Dir = tmpDir
	cmd.Env = []string{"PATH=/usr/bin:/bin", "PYTHONDONTWRITEBYTECODE=1"}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, "", apperr.Wrap(apperr.CodeGenerator, "start chart executor", err)
	}
	waitErr := cmd.Wait()

	if runCtx.Err() == context.DeadlineExceeded && cmd.Process != nil {
		if pgid, pgErr := syscall.Getpgid(cmd.Process.Pid); pgErr == nil {
			_ = syscall.Kill(-pgid, syscall.SIGTERM)
			time.Sleep(200 * time.Millisecond)
			_ = syscall.Kill(-pgid, syscall.SIGKILL)
		}
		return nil, "", apperr.New(apperr.CodeTimeout, "chart executor exceeded wall-clock timeout")
	}
	if waitErr != nil {
		return nil, "", apperr.Wrap(apperr.CodeGenerator, fmt.Sprintf("chart executor failed: %s", stderr.String()), waitErr)
	}

	body, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.CodeGenerator, "read chart executor output", err)
	}
	return body, strings.TrimSpace(stdout.String()), nil
}
