// Package flagx contains helpers for parsing a subset of command-line flags
// without clashing with flags owned by other packages.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs keeps only the arguments that belong to allowedFlags, so a
// private FlagSet can parse them without failing on everything else. A flag
// is kept either as "-f=value" or as "-f" plus the following argument when
// that argument does not start with a dash. The result is never nil.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if _, keep := allowed[name]; keep {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, keep := allowed[arg]; !keep {
			continue
		}
		filtered = append(filtered, arg)
		if next := i + 1; next < len(args) && !strings.HasPrefix(args[next], "-") {
			filtered = append(filtered, args[next])
			i = next
		}
	}

	return filtered
}

// ConfigFileFlags returns the configuration file path given with -c or
// -config, or an empty string when neither flag is present. The file may be
// JSON or YAML; the caller picks the decoder from the extension.
//
// Only these two flags are parsed, so the rest of os.Args stays available to
// the caller's own flag set.
func ConfigFileFlags() string {
	var path string

	args := FilterArgs(os.Args[1:], []string{"-c", "--c", "-config", "--config"})

	fs := flag.NewFlagSet("config-file", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "Path to config file (JSON or YAML)")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	_ = fs.Parse(args)

	return path
}
