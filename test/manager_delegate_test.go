package test

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

// TestManager_DelegateMethodComplexity keeps Manager methods in ../manager*.go
// short. Decisions belong in internal/flows/*; Manager methods lock, delegate and
// publish.
//
// Every exception names a reason, the flow file the logic should move to and a
// milestone for removing the exception.
func TestManager_DelegateMethodComplexity(t *testing.T) {
	const maxLines = 50

	type delegateException struct {
		limit    int
		reason   string
		target   string
		removeBy string
	}

	exceptions := map[string]delegateException{
		"Initialize":    {90, "state commit and event fan-out per outcome", "internal/flows/initialize.go", "v1.0.0"},
		"flowDeps":      {80, "wiring function", "internal/flows/deps.go", "v1.0.0"},
		"GetProperties": {70, "generation guard and metrics", "internal/flows/properties.go", "v1.0.0"},
		"RefreshToken":  {70, "epoch guard and audit dispatch", "internal/flows/refresh.go", "v1.0.0"},
	}

	for name, exc := range exceptions {
		if exc.reason == "" {
			t.Errorf("exception %q missing reason", name)
		}
		if exc.target == "" {
			t.Errorf("exception %q missing target flow file", name)
		}
		if exc.removeBy == "" {
			t.Errorf("exception %q missing removeBy version/milestone", name)
		}
	}

	files, err := filepath.Glob("../manager*.go")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no manager sources found")
	}

	funcSig := regexp.MustCompile(`^func \(m \*Manager\) ([A-Za-z]\w*)\(`)

	type methodInfo struct {
		name  string
		start int
		depth int
	}

	for _, filename := range files {
		if strings.HasSuffix(filename, "_test.go") {
			continue
		}

		f, err := os.Open(filename)
		if err != nil {
			t.Fatalf("open %s: %v", filename, err)
		}

		scanner := bufio.NewScanner(f)
		lineNum := 0
		var current *methodInfo

		for scanner.Scan() {
			lineNum++
			line := scanner.Text()

			if current == nil {
				if m := funcSig.FindStringSubmatch(line); m != nil {
					current = &methodInfo{
						name:  m[1],
						start: lineNum,
						depth: strings.Count(line, "{") - strings.Count(line, "}"),
					}
					if current.depth <= 0 {
						current = nil
					}
					continue
				}
			}

			if current != nil {
				current.depth += strings.Count(line, "{") - strings.Count(line, "}")
				if current.depth <= 0 {
					length := lineNum - current.start + 1
					limit := maxLines
					if exc, ok := exceptions[current.name]; ok {
						limit = exc.limit
					}
					if length > limit {
						t.Errorf("%s:%d: method %s is %d lines (limit %d); move decisions to internal/flows/",
							filename, current.start, current.name, length, limit)
					}
					current = nil
				}
			}
		}

		if err := scanner.Err(); err != nil {
			t.Fatalf("scan %s: %v", filename, err)
		}
		_ = f.Close()
	}
}
