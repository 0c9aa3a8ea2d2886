package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "hyperguess"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage hyperguess configuration.

Running bare 'hyperguess config' is the same as 'hyperguess config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# hyperguess configuration
# See: hyperguess config show (for effective values and sources)

# State directory for the server PID file (default: ~/.config/hyperguess)
# state_dir: {{ .StateDir }}

# Game settings
game:
  # Difficulty for the first game: EASY (1-50), MEDIUM (1-100) or HARD (1-500)
  difficulty: "{{ .Difficulty }}"

# Anthropic settings for the AI host
anthropic:
  # API key (falls back to $ANTHROPIC_API_KEY; without one the host gives plain hints)
  api_key: ""

  # Model used for commentary
  model: "{{ .Model }}"

  # How long to wait for the host before falling back to a plain hint
  timeout: "{{ .Timeout }}"

  # Token limit for a single reply
  max_tokens: {{ .MaxTokens }}

# HTTP API server
serve:
  port: {{ .Port }}
`

type configTemplateData struct {
	StateDir   string
	Difficulty string
	Model      string
	Timeout    string
	MaxTokens  int
	Port       int
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		StateDir:   viper.GetString("state_dir"),
		Difficulty: viper.GetString("game.difficulty"),
		Model:      viper.GetString("anthropic.model"),
		Timeout:    viper.GetDuration("anthropic.timeout").String(),
		MaxTokens:  viper.GetInt("anthropic.max_tokens"),
		Port:       viper.GetInt("serve.port"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKey is one setting shown by 'config show'.
type configKey struct {
	Key    string
	Secret bool
	// Fallback is an env var read when the key itself is empty.
	Fallback string
}

var configKeys = []configKey{
	{Key: "state_dir"},
	{Key: "game.difficulty"},
	{Key: "anthropic.api_key", Secret: true, Fallback: "ANTHROPIC_API_KEY"},
	{Key: "anthropic.model"},
	{Key: "anthropic.timeout"},
	{Key: "anthropic.max_tokens"},
	{Key: "serve.port"},
}

// envVar maps a dotted key to the variable viper binds it to.
func envVar(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	doc, err := readConfigDoc(cfgPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		ui.Info("Config file: (none)")
	case err != nil:
		ui.Warning("Config file %s is unreadable: %v", cfgPath, err)
	default:
		ui.Info("Config file: %s", cfgPath)
	}
	fmt.Fprintln(ui.Out)

	table := ui.Table([]string{"Key", "Value", "Source"})
	for _, k := range configKeys {
		val, source := k.resolve(doc)
		if err := table.Append([]string{k.Key, val, source}); err != nil {
			return err
		}
	}
	return table.Render()
}

// resolve returns the display value of k and where it came from.
func (k configKey) resolve(doc map[string]any) (string, string) {
	val := viper.GetString(k.Key)
	source := "default"
	if _, ok := os.LookupEnv(envVar(k.Key)); ok {
		source = "env: " + envVar(k.Key)
	} else if inConfigDoc(doc, k.Key) {
		source = "file"
	}
	if val == "" && k.Fallback != "" {
		if fb := os.Getenv(k.Fallback); fb != "" {
			val, source = fb, "env: "+k.Fallback
		}
	}

	if k.Secret && val != "" {
		val = "********"
	}
	return val, source
}

// readConfigDoc decodes the raw config file so sources can be told apart
// from viper's merged view.
func readConfigDoc(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// inConfigDoc reports whether a dotted key is set in the decoded file.
func inConfigDoc(doc map[string]any, key string) bool {
	section, name, nested := strings.Cut(key, ".")
	if !nested {
		_, ok := doc[key]
		return ok
	}
	m, ok := doc[section].(map[string]any)
	if !ok {
		return false
	}
	_, ok = m[name]
	return ok
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set; set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfgPath); err != nil {
		return fmt.Errorf("config file not found: %s (run 'hyperguess config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	edit := exec.Command(editor, cfgPath)
	edit.Stdin, edit.Stdout, edit.Stderr = os.Stdin, os.Stdout, os.Stderr
	return edit.Run()
}
