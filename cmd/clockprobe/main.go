/*
Copyright (c) The clockprobe authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/clocktools/clockprobe/cmd/clockprobe/cmd"
	"github.com/clocktools/clockprobe/config"
)

// applyPreset splices a saved preset's arguments in front of the command
// line, so explicit flags still win. Runs before cobra sees the arguments.
func applyPreset(args []string) ([]string, error) {
	name := ""
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--preset" && i+1 < len(args) {
			name = args[i+1]
			break
		}
		if len(a) > len("--preset=") && a[:len("--preset=")] == "--preset=" {
			name = a[len("--preset="):]
			break
		}
	}
	if name == "" {
		return args, nil
	}
	path, err := config.DefaultPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	p, err := cfg.Preset(name)
	if err != nil {
		return nil, err
	}
	return append(append([]string{}, p.Args...), args...), nil
}

func main() {
	args, err := applyPreset(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cmd.RootCmd.SetArgs(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd.RootCmd.SetContext(ctx)

	cmd.Execute()
}
