package api

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/originals/task-api/docs"
)

var (
	annotationRe = regexp.MustCompile(`^\s*// @(\w+)\s+(.*)$`)
	routerRe     = regexp.MustCompile(`^(\S+)\s+\[(\w+)\]$`)
	paramRe      = regexp.MustCompile(`^(\S+)\s+\S+\s+\S+\s+\S+\s+"(.*)"$`)
)

type swaggerOperation struct {
	Summary    string `json:"summary"`
	Parameters []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"parameters"`
	Responses map[string]json.RawMessage `json:"responses"`
}

type annotatedOperation struct {
	summary   string
	params    map[string]string
	responses []string
}

// handlerAnnotations collects the swag comments of every handler, keyed by
// "METHOD path".
func handlerAnnotations(t *testing.T) map[string]annotatedOperation {
	t.Helper()
	files, err := filepath.Glob(filepath.Join("handler", "*.go"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}

	ops := make(map[string]annotatedOperation)
	for _, name := range files {
		if strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := os.Open(name)
		if err != nil {
			t.Fatalf("open %s: %v", name, err)
		}
		op := annotatedOperation{params: map[string]string{}}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			m := annotationRe.FindStringSubmatch(scanner.Text())
			if m == nil {
				continue
			}
			value := strings.TrimSpace(m[2])
			switch m[1] {
			case "Summary":
				op.summary = value
			case "Param":
				if p := paramRe.FindStringSubmatch(value); p != nil {
					op.params[p[1]] = p[2]
				}
			case "Success", "Failure":
				op.responses = append(op.responses, strings.Fields(value)[0])
			case "Router":
				r := routerRe.FindStringSubmatch(value)
				if r == nil {
					t.Fatalf("%s: malformed @Router %q", name, value)
				}
				ops[strings.ToUpper(r[2])+" "+r[1]] = op
				op = annotatedOperation{params: map[string]string{}}
			}
		}
		_ = f.Close()
	}
	return ops
}

func TestSwaggerDoc_MatchesHandlerAnnotations(t *testing.T) {
	var doc struct {
		Paths map[string]map[string]swaggerOperation `json:"paths"`
	}
	if err := json.Unmarshal([]byte(docs.SwaggerInfo.ReadDoc()), &doc); err != nil {
		t.Fatalf("swagger doc is not valid json: %v", err)
	}

	annotated := handlerAnnotations(t)
	if len(annotated) == 0 {
		t.Fatal("no annotated handlers found")
	}

	documented := 0
	for path, methods := range doc.Paths {
		documented += len(methods)
		for method, op := range methods {
			key := strings.ToUpper(method) + " " + path
			want, ok := annotated[key]
			if !ok {
				t.Errorf("%s is documented but has no handler annotation", key)
				continue
			}
			if op.Summary != want.summary {
				t.Errorf("%s: summary %q, annotation says %q", key, op.Summary, want.summary)
			}
			if len(op.Parameters) != len(want.params) {
				t.Errorf("%s: %d parameters, annotation has %d", key, len(op.Parameters), len(want.params))
			}
			for _, p := range op.Parameters {
				if want.params[p.Name] != p.Description {
					t.Errorf("%s: param %s described as %q, annotation says %q", key, p.Name, p.Description, want.params[p.Name])
				}
			}
			for _, code := range want.responses {
				if _, ok := op.Responses[code]; !ok {
					t.Errorf("%s: response %s missing from doc", key, code)
				}
			}
		}
	}
	if documented != len(annotated) {
		t.Errorf("doc has %d operations, handlers annotate %d", documented, len(annotated))
	}
}
