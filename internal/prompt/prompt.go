// Package prompt collects configuration values on the terminal, driven by
// the flat schemas pipeline implementations declare.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"golang.org/x/term"

	"github.com/oceanbright/trawl/internal/config"
)

// Interactive reports whether stdin is attached to a terminal. Prompting is
// skipped entirely in non-interactive contexts so scripted invocations fall
// through to schema defaults.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// ForSchema prompts for every key of the schema in sorted order, using the
// schema value both as the offered default and to infer the parse type of
// the answer. Keys already present in existing are not prompted for. Empty
// input accepts the default.
func ForSchema(schema map[string]any, existing config.Map, in io.Reader, out io.Writer) (config.Map, error) {
	result := config.Map{}
	for key, value := range existing {
		result[key] = value
	}

	keys := make([]string, 0, len(schema))
	for key := range schema {
		if _, ok := result[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	reader := bufio.NewReader(in)
	for _, key := range keys {
		fallback := schema[key]
		fmt.Fprintf(out, "%s [%v]: ", key, fallback)

		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		answer := trimNewline(line)

		if answer == "" {
			result[key] = fallback
		} else {
			parsed, parseErr := parseAs(answer, fallback)
			if parseErr != nil {
				return nil, fmt.Errorf("invalid value for %q: %w", key, parseErr)
			}
			result[key] = parsed
		}

		if err == io.EOF {
			// Remaining keys fall through to their defaults.
			for _, rest := range keys {
				if _, ok := result[rest]; !ok {
					result[rest] = schema[rest]
				}
			}
			break
		}
	}

	return result, nil
}

// parseAs converts the answer to the type of the schema default.
func parseAs(answer string, fallback any) (any, error) {
	switch fallback.(type) {
	case int:
		return strconv.Atoi(answer)
	case int64:
		return strconv.ParseInt(answer, 10, 64)
	case float64:
		return strconv.ParseFloat(answer, 64)
	case bool:
		return strconv.ParseBool(answer)
	default:
		return answer, nil
	}
}

func trimNewline(line string) string {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}
