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

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/NVIDIA/addon-container/pkg/addon"
	"github.com/NVIDIA/addon-container/pkg/container"
	"github.com/NVIDIA/addon-container/pkg/repository"
	"github.com/NVIDIA/addon-container/pkg/serializer"
)

var titleCaser = cases.Title(language.English)

func dotEnvPath() string {
	if p := os.Getenv(envDotEnvFile); p != "" {
		return p
	}
	return ".env"
}

// loadDotEnv loads environment variables from path. Missing files are
// ignored and variables already set are kept.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func parseOutputFormat(s string) (serializer.Format, error) {
	f := serializer.Format(strings.ToLower(strings.TrimSpace(s)))
	if f.IsUnknown() {
		return "", fmt.Errorf("unknown output format %q, supported: %s",
			s, strings.Join(serializer.SupportedFormats(), ", "))
	}
	return f, nil
}

func openDirectory(cmd *cli.Command) (*repository.Directory, error) {
	root := strings.TrimSpace(cmd.String("repository"))
	if root == "" {
		return nil, fmt.Errorf("repository directory is required (--repository or %s)", container.EnvRepositoryDir)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("repository %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repository %s is not a directory", root)
	}
	return repository.NewDirectory(root), nil
}

// parseIDs parses each argument as name:version.
func parseIDs(args []string) ([]addon.ID, error) {
	if len(args) == 0 {
		return nil, errors.New("at least one addon (name:version) is required")
	}
	ids := make([]addon.ID, 0, len(args))
	for _, a := range args {
		id, err := addon.ParseCoordinates(a)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func titleStatus(s addon.Status) string {
	return titleCaser.String(strings.ToLower(string(s)))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
