// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/NVIDIA/addon-container/pkg/addon"
	"github.com/NVIDIA/addon-container/pkg/defaults"
)

// Command describes how to launch an addon as a subprocess.
type Command struct {
	Path string            `json:"command" yaml:"command"`
	Args []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env  map[string]string `json:"env,omitempty" yaml:"env,omitempty"`

	// Dir is the working directory and the base for a relative Path.
	Dir string `json:"-" yaml:"-"`
}

// CommandSource looks up the launch command of an addon. The directory
// repository implements it from addon descriptors.
type CommandSource interface {
	Command(id addon.ID) (*Command, error)
}

// ExecLoader runs each addon as its own process. Shutdown sends SIGTERM and
// escalates to SIGKILL after WaitDelay.
type ExecLoader struct {
	Source    CommandSource
	WaitDelay time.Duration
}

// NewExecLoader creates an ExecLoader with the default wait delay.
func NewExecLoader(source CommandSource) *ExecLoader {
	return &ExecLoader{
		Source:    source,
		WaitDelay: defaults.ExecWaitDelay,
	}
}

// Load implements Loader. Addons without a command are unknown to this loader.
func (l *ExecLoader) Load(_ context.Context, id addon.ID) (Module, error) {
	cmd, err := l.Source.Command(id)
	if err != nil {
		return nil, err
	}
	if cmd == nil || cmd.Path == "" {
		return nil, fmt.Errorf("%w: %s declares no command", ErrUnknownAddon, id.Coordinates())
	}

	path := cmd.Path
	if !filepath.IsAbs(path) && cmd.Dir != "" && filepath.Base(path) != path {
		path = filepath.Join(cmd.Dir, path)
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("command for %s not runnable: %w", id.Coordinates(), err)
	}

	c := *cmd
	c.Path = resolved
	return &execModule{id: id, cmd: c, waitDelay: l.WaitDelay}, nil
}

type execModule struct {
	id        addon.ID
	cmd       Command
	waitDelay time.Duration
}

// Run starts the process and waits for it. A process that exits because
// shutdown was requested is not an error.
func (m *execModule) Run(ctx context.Context) error {
	c := exec.CommandContext(ctx, m.cmd.Path, m.cmd.Args...) //nolint:gosec // G204 command comes from the addon descriptor
	c.Dir = m.cmd.Dir
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	c.Env = os.Environ()
	for k, v := range m.cmd.Env {
		c.Env = append(c.Env, k+"="+v)
	}
	c.Env = append(c.Env,
		"ADDON_NAME="+m.id.Name,
		"ADDON_VERSION="+m.id.Version,
	)
	c.Cancel = func() error {
		return c.Process.Signal(syscall.SIGTERM)
	}
	c.WaitDelay = m.waitDelay

	if err := c.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", m.cmd.Path, err)
	}
	slog.Debug("addon process started", "addon", m.id.Coordinates(), "pid", c.Process.Pid)

	err := c.Wait()
	if ctx.Err() != nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("addon process exited with code %d", exitErr.ExitCode())
	}
	return err
}

// Close implements Module. The process is reaped by Run.
func (m *execModule) Close() error {
	return nil
}
