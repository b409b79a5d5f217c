package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"mcguard/hasher"
	"mcguard/signatures"
	"mcguard/utils"
	"mcguard/version"
)

const DefaultOutputFileName = "minecraft_scan_results.json"

type Config struct {
	TargetProcesses         []string                    `json:"target_processes"`
	ModuleExtension         string                      `json:"module_extension"`
	OutputFileName          string                      `json:"output_file_name"`
	IgnorePatterns          []string                    `json:"ignore_patterns"`
	CollectEvidence         bool                        `json:"collect_evidence"`
	HashAlgorithms          []string                    `json:"hash_algorithms"`
	FuzzyHash               bool                        `json:"fuzzy_hash"`
	MaxInspectionsPerSecond int                         `json:"max_inspections_per_second"`
	Progress                bool                        `json:"progress"`
	LogLevel                string                      `json:"log_level"`
	ConfigFile              string                      `json:"config_file"`
	CustomSignatures        map[string]signatures.Entry `json:"custom_signatures"`
	CustomPatterns          []string                    `json:"custom_patterns"`
	OtelEndpoint            string                      `json:"otel_endpoint"`
	OtelFromEnv             bool                        `json:"otel_from_env"`
	OtelHeaders             map[string]string           `json:"otel_headers"`
	OtelServiceName         string                      `json:"otel_service_name"`
	OtelTimeout             time.Duration               `json:"otel_timeout"`
	OtelExportPaths         bool                        `json:"otel_export_paths"`
	StallDumpAfter          time.Duration               `json:"stall_dump_after"`
	DiagDir                 string                      `json:"diag_dir"`
}

// Default returns the configuration used when no flags or file are given.
func Default() *Config {
	return &Config{
		TargetProcesses:         signatures.DefaultTargets(),
		ModuleExtension:         ".dll",
		OutputFileName:          DefaultOutputFileName,
		IgnorePatterns:          []string{},
		CollectEvidence:         false,
		HashAlgorithms:          []string{"sha256"},
		FuzzyHash:               false,
		MaxInspectionsPerSecond: 0,
		Progress:                false,
		LogLevel:                "info",
		CustomSignatures:        map[string]signatures.Entry{},
		CustomPatterns:          []string{},
		OtelHeaders:             map[string]string{},
		OtelServiceName:         "mcguard",
		OtelTimeout:             5 * time.Second,
		StallDumpAfter:          0,
		DiagDir:                 ".",
	}
}

func LoadConfig() (*Config, error) {
	cfg := Default()

	targets := flag.String("targets", strings.Join(cfg.TargetProcesses, ","), "Comma-separated list of process names to inspect (exact, case-sensitive).")
	moduleExt := flag.String("module-ext", cfg.ModuleExtension, fmt.Sprintf("Extension of dynamic modules to inspect (default: %s).", cfg.ModuleExtension))
	output := flag.String("output", cfg.OutputFileName, fmt.Sprintf("Output file name, overwritten on every run (default: %s).", cfg.OutputFileName))
	ignore := flag.String("ignore", "", "Comma-separated basename globs of modules to skip; prefix re: for a regex over the full path (default: none).")
	collectEvidence := flag.Bool("collect-evidence", cfg.CollectEvidence, fmt.Sprintf("Attach size, type, hashes and file times to flagged modules (default: %t).", cfg.CollectEvidence))
	hashes := flag.String("hashes", strings.Join(cfg.HashAlgorithms, ","), "Comma-separated hash algorithms for evidence: md5, sha1, sha256, blake3 (default: sha256).")
	fuzzyHash := flag.Bool("fuzzy-hash", cfg.FuzzyHash, fmt.Sprintf("Add a TLSH fuzzy hash to evidence (default: %t).", cfg.FuzzyHash))
	maxInspections := flag.Int("max-inspections-per-second", cfg.MaxInspectionsPerSecond, "Maximum processes inspected per second, 0 for unlimited (default: 0).")
	progress := flag.Bool("progress", cfg.Progress, fmt.Sprintf("Show a progress bar on stderr (default: %t).", cfg.Progress))
	logLevel := flag.String("log-level", cfg.LogLevel, fmt.Sprintf("Log level: debug, info, warn, error, fatal, or panic (default: %s).", cfg.LogLevel))
	configFile := flag.String("config", "", "Path to JSON configuration file (default: none).")
	otelEndpoint := flag.String("otel-endpoint", cfg.OtelEndpoint, "OTLP/HTTP logs endpoint (default: none).")
	otelFromEnv := flag.Bool("otel-from-env", cfg.OtelFromEnv, "Allow OTEL endpoint fallback from OTEL environment variables (default: false).")
	otelHeaders := flag.String("otel-headers", "", "Comma-separated OTEL headers (key=value) for export (default: none).")
	otelServiceName := flag.String("otel-service-name", cfg.OtelServiceName, "OTEL service name for export (default: mcguard).")
	otelTimeout := flag.Duration("otel-timeout", cfg.OtelTimeout, "OTEL export timeout (default: 5s).")
	otelExportPaths := flag.Bool("otel-export-paths", cfg.OtelExportPaths, "Include module and executable paths in OTEL payloads (default: false).")
	stallDumpAfter := flag.Duration("stall-dump-after", cfg.StallDumpAfter, "Write goroutine diagnostics when the scan makes no progress for this long, 0 to disable (default: 0).")
	diagDir := flag.String("diag-dir", cfg.DiagDir, "Directory for stall diagnostics (default: .).")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Usage = displayHelp
	flag.Parse()

	if *showVersion {
		fmt.Printf("mcguard version %s\n", version.Version)
		os.Exit(0)
	}

	if *configFile != "" {
		cfg.ConfigFile = *configFile
		if err := cfg.loadFromFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "targets":
			cfg.TargetProcesses = parseCommaSeparated(*targets)
		case "module-ext":
			cfg.ModuleExtension = strings.TrimSpace(*moduleExt)
		case "output":
			cfg.OutputFileName = *output
		case "ignore":
			cfg.IgnorePatterns = parseCommaSeparated(*ignore)
		case "collect-evidence":
			cfg.CollectEvidence = *collectEvidence
		case "hashes":
			cfg.HashAlgorithms = normalizeAlgorithms(parseCommaSeparated(*hashes))
		case "fuzzy-hash":
			cfg.FuzzyHash = *fuzzyHash
		case "max-inspections-per-second":
			cfg.MaxInspectionsPerSecond = *maxInspections
		case "progress":
			cfg.Progress = *progress
		case "log-level":
			cfg.LogLevel = strings.ToLower(*logLevel)
		case "otel-endpoint":
			cfg.OtelEndpoint = strings.TrimSpace(*otelEndpoint)
		case "otel-from-env":
			cfg.OtelFromEnv = *otelFromEnv
		case "otel-headers":
			cfg.OtelHeaders = parseHeaders(*otelHeaders)
		case "otel-service-name":
			cfg.OtelServiceName = strings.TrimSpace(*otelServiceName)
		case "otel-timeout":
			cfg.OtelTimeout = *otelTimeout
		case "otel-export-paths":
			cfg.OtelExportPaths = *otelExportPaths
		case "stall-dump-after":
			cfg.StallDumpAfter = *stallDumpAfter
		case "diag-dir":
			cfg.DiagDir = strings.TrimSpace(*diagDir)
		}
	})

	if cfg.FuzzyHash && !cfg.CollectEvidence {
		cfg.CollectEvidence = true
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func displayHelp() {
	fmt.Println("mcguard - Minecraft hack client module scanner")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  mcguard [options]")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  mcguard")
	fmt.Println("  mcguard --collect-evidence --hashes sha256,blake3")
	fmt.Println("  mcguard --targets java --module-ext .so --output scan.json")
}

func (cfg *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("invalid config file format: %w", err)
	}
	cfg.HashAlgorithms = normalizeAlgorithms(cfg.HashAlgorithms)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	return nil
}

func (cfg *Config) validate() error {
	if len(cfg.TargetProcesses) == 0 {
		return fmt.Errorf("at least one target process name is required")
	}
	if strings.TrimSpace(cfg.OutputFileName) == "" {
		return fmt.Errorf("output file name must not be empty")
	}
	if !strings.HasPrefix(cfg.ModuleExtension, ".") || len(cfg.ModuleExtension) < 2 {
		return fmt.Errorf("invalid module extension %q: must start with a dot", cfg.ModuleExtension)
	}
	if _, err := utils.NewIgnoreMatcher(cfg.IgnorePatterns); err != nil {
		return err
	}
	if cfg.MaxInspectionsPerSecond < 0 {
		return fmt.Errorf("max inspections per second must not be negative")
	}
	for _, algo := range cfg.HashAlgorithms {
		if !hasher.Supported(algo) {
			return fmt.Errorf("unsupported hash algorithm: %s", algo)
		}
	}
	validLogLevels := []string{"debug", "info", "warn", "error", "fatal", "panic"}
	if !containsString(validLogLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	for name, entry := range cfg.CustomSignatures {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("custom signature with empty filename")
		}
		if _, err := signatures.ParseRiskLevel(string(entry.Risk)); err != nil {
			return fmt.Errorf("custom signature %s: %w", name, err)
		}
	}
	if endpoint := strings.TrimSpace(cfg.OtelEndpoint); endpoint != "" {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			return fmt.Errorf("otel endpoint must include scheme (http or https)")
		}
	}
	if cfg.OtelTimeout < 0 {
		return fmt.Errorf("otel timeout must not be negative")
	}
	if cfg.StallDumpAfter < 0 {
		return fmt.Errorf("stall dump threshold must not be negative")
	}
	return nil
}

func parseCommaSeparated(input string) []string {
	if input == "" {
		return []string{}
	}
	items := make([]string, 0, strings.Count(input, ",")+1)
	for _, item := range strings.Split(input, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func parseHeaders(input string) map[string]string {
	headers := make(map[string]string)
	if input == "" {
		return headers
	}
	for _, item := range strings.Split(input, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.SplitN(item, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		headers[key] = strings.TrimSpace(parts[1])
	}
	return headers
}

func normalizeAlgorithms(items []string) []string {
	normalized := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "" || containsString(normalized, item) {
			continue
		}
		normalized = append(normalized, item)
	}
	return normalized
}

func containsString(items []string, value string) bool {
	for _, item := range items {
		if item == value {
			return true
		}
	}
	return false
}
