package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

const modulePath = "age-of-war/server"

type packageInfo struct {
	ImportPath string
	Imports    []string
}

// The simulation core must stay runnable without a transport, a database
// or a terminal.
var corePackages = []string{
	"./internal/geom/...",
	"./internal/catalog/...",
	"./internal/world/...",
	"./internal/sim/...",
	"./internal/ai/...",
	"./internal/replication/...",
}

var forbiddenPrefixes = []string{
	modulePath + "/internal/app",
	modulePath + "/internal/audio",
	modulePath + "/internal/lobby",
	modulePath + "/internal/match",
	modulePath + "/internal/net",
	modulePath + "/internal/store",
	modulePath + "/internal/tui",
	modulePath + "/internal/telemetry/influx",
	"github.com/gorilla/websocket",
	"github.com/gdamore/tcell",
	"github.com/gopxl/beep",
	"gorm.io/",
}

func main() {
	args := append([]string{"list", "-json"}, corePackages...)
	cmd := exec.Command("go", args...)
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Stderr.Write(exitErr.Stderr)
		}
		fmt.Fprintf(os.Stderr, "depscheck: failed to list packages: %v\n", err)
		os.Exit(1)
	}

	violations, err := check(bytes.NewReader(output))
	if err != nil {
		fmt.Fprintf(os.Stderr, "depscheck: failed to decode package info: %v\n", err)
		os.Exit(1)
	}

	if len(violations) > 0 {
		fmt.Fprintln(os.Stderr, "depscheck: found forbidden imports:")
		for _, violation := range violations {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}

func check(r io.Reader) ([]string, error) {
	decoder := json.NewDecoder(r)

	var violations []string
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}

		for _, imp := range pkg.Imports {
			if forbidden(imp) {
				violations = append(violations, fmt.Sprintf("%s -> %s", pkg.ImportPath, imp))
			}
		}
	}
	sort.Strings(violations)
	return violations, nil
}

func forbidden(imp string) bool {
	for _, prefix := range forbiddenPrefixes {
		if strings.HasPrefix(imp, prefix) {
			return true
		}
	}
	return false
}
