package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const configHeader = `# DittoHTTP Configuration File
#
# Every key can be overridden from the environment with the DITTOHTTP_ prefix,
# dots replaced by underscores (e.g. DITTOHTTP_ADAPTERS_HTTP_WORKERS=16).
# Changes to logging.level and adapters.http.rate_limit are applied without
# a restart.

`

// InitConfig writes a sample configuration file to the default location.
//
// Returns the path written. Fails if the file exists and force is false.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration file to path, creating
// parent directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(out), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// generateYAMLWithComments renders cfg as commented YAML.
func generateYAMLWithComments(cfg *Config) (string, error) {
	httpCfg := cfg.Adapters.HTTP

	root := mapping(
		field("logging", "Log output", mapping(
			field("level", "DEBUG, INFO, WARN or ERROR", scalar(cfg.Logging.Level)),
			field("format", "text or json", scalar(cfg.Logging.Format)),
			field("output", "stdout, stderr or a file path", scalar(cfg.Logging.Output)),
		)),
		field("server", "Server-wide settings", mapping(
			field("shutdown_timeout", "Time allowed for all adapters to stop", scalar(cfg.Server.ShutdownTimeout)),
		)),
		field("store", "File store backing /files/<name>", mapping(
			field("type", "filesystem, memory, badger or s3", scalar(cfg.Store.Type)),
			field("filesystem", "", optionsMapping(cfg.Store.Filesystem)),
			field("memory", "", optionsMapping(cfg.Store.Memory)),
			field("badger", "", optionsMapping(cfg.Store.Badger)),
			field("s3", "Set bucket (and endpoint for MinIO/Localstack) to use S3", optionsMapping(cfg.Store.S3)),
		)),
		field("adapters", "Protocol adapters", mapping(
			field("http", "HTTP/1.1 server", mapping(
				field("enabled", "", scalar(httpCfg.Enabled)),
				field("address", "host:port to bind", scalar(httpCfg.Address)),
				field("workers", "Connections served concurrently", scalar(httpCfg.Workers)),
				field("queue_size", "Accepted connections waiting for a worker", scalar(httpCfg.QueueSize)),
				field("max_body_bytes", "Largest accepted request body", scalar(httpCfg.MaxBodyBytes)),
				field("timeouts", "", mapping(
					field("read", "", scalar(httpCfg.Timeouts.Read)),
					field("write", "", scalar(httpCfg.Timeouts.Write)),
				)),
				field("shutdown_timeout", "Force-close connections still open after this", scalar(httpCfg.ShutdownTimeout)),
				field("metrics_log_interval", "Negative disables the periodic metrics log line", scalar(httpCfg.MetricsLogInterval)),
				field("rate_limit", "Accept throttling, 0 requests_per_second disables it", mapping(
					field("requests_per_second", "", scalar(httpCfg.RateLimit.RequestsPerSecond)),
					field("burst", "", scalar(httpCfg.RateLimit.Burst)),
				)),
			)),
		)),
		field("metrics", "Prometheus endpoint at :<port>/metrics", mapping(
			field("enabled", "", scalar(cfg.Metrics.Enabled)),
			field("port", "", scalar(cfg.Metrics.Port)),
		)),
	)

	var buf bytes.Buffer
	buf.WriteString(configHeader)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	return buf.String(), nil
}

type yamlField struct {
	key     string
	comment string
	value   *yaml.Node
}

func field(key, comment string, value *yaml.Node) yamlField {
	return yamlField{key: key, comment: comment, value: value}
}

func mapping(fields ...yamlField) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range fields {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.key}
		if f.comment != "" {
			key.HeadComment = f.comment
		}
		node.Content = append(node.Content, key, f.value)
	}
	return node
}

// optionsMapping renders a store options map with sorted keys.
func optionsMapping(options map[string]any) *yaml.Node {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]yamlField, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, field(k, "", scalar(options[k])))
	}
	node := mapping(fields...)
	if len(fields) == 0 {
		node.Style = yaml.FlowStyle
	}
	return node
}

func scalar(v any) *yaml.Node {
	node := &yaml.Node{Kind: yaml.ScalarNode}
	switch val := v.(type) {
	case string:
		node.Tag, node.Value = "!!str", val
	case bool:
		node.Tag, node.Value = "!!bool", strconv.FormatBool(val)
	case int:
		node.Tag, node.Value = "!!int", strconv.Itoa(val)
	case int64:
		node.Tag, node.Value = "!!int", strconv.FormatInt(val, 10)
	case uint64:
		node.Tag, node.Value = "!!int", strconv.FormatUint(val, 10)
	case float64:
		node.Tag, node.Value = "!!float", strconv.FormatFloat(val, 'f', -1, 64)
		if !strings.ContainsAny(node.Value, ".eE") {
			node.Value += ".0"
		}
	case time.Duration:
		node.Tag, node.Value = "!!str", val.String()
	default:
		node.Tag, node.Value = "!!str", fmt.Sprint(val)
	}
	return node
}
