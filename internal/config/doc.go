// Package config resolves nitcheck settings from every source with an
// explicit priority order.
//
// # Configuration Precedence
//
// Values are resolved in the following order (highest to lowest priority):
//
//  1. CLI flags (--examples, --nit-bin, --parallel, --keep, --format, ...)
//  2. Environment variables (EXAMPLES_DIR, NIT_BIN, OLLAMA_HOST, NITCHECK_*)
//  3. YAML config file (.nitcheck.yaml in the working directory, or
//     $XDG_CONFIG_HOME/nitcheck/.nitcheck.yaml)
//  4. Hardcoded defaults
//
// Every resolved setting records the source it came from in Config.Sources,
// which `nitcheck run --debug` logs.
//
// # Environment Variables
//
//   - EXAMPLES_DIR: root holding the sample projects
//   - NIT_BIN: path to the nit executable
//   - OLLAMA_HOST: Ollama host, with or without scheme
//   - NITCHECK_PARALLEL: number of projects exercised at once
//   - NITCHECK_KEEP: "true" or "1" keeps every workspace
//   - NITCHECK_DEBUG: "true" or "1" enables development logging
//   - NITCHECK_FORMAT: terminal, llm, json or auto
//   - NO_COLOR: any non-empty value selects the mono theme
package config
