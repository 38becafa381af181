package project

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oceanbright/trawl/internal/logger"
	"github.com/oceanbright/trawl/internal/pipeline"
)

// MergeKeywordArgs merges ad hoc key=value arguments with structured keyword
// arguments. An entry without exactly one "=" is logged and dropped, never
// fatal. Extra arguments win over kwargs on key collision.
func MergeKeywordArgs(kwargs map[string]any, extraArgs []string, log *logger.Logger) pipeline.Options {
	merged := make(pipeline.Options, len(kwargs)+len(extraArgs))
	for key, value := range kwargs {
		merged[key] = value
	}

	for _, arg := range extraArgs {
		if strings.Count(arg, "=") != 1 {
			log.Warn(fmt.Sprintf("invalid extra argument provided: %q", arg))
			continue
		}
		key, value, _ := strings.Cut(arg, "=")
		if key == "" {
			log.Warn(fmt.Sprintf("invalid extra argument provided: %q", arg))
			continue
		}
		merged[key] = inferScalar(value)
	}

	return merged
}

// inferScalar converts a string value to its most specific scalar type, so
// that "depth=40" arrives at the pipeline as an int and "wet=true" as a bool.
func inferScalar(s string) any {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
