package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
	sigyaml "sigs.k8s.io/yaml"

	"github.com/yrain/smart-cache/internal/logging"
	"github.com/yrain/smart-cache/pkg/admin"
	"github.com/yrain/smart-cache/pkg/config"
	"github.com/yrain/smart-cache/pkg/console"
	"github.com/yrain/smart-cache/pkg/ipc"
	"github.com/yrain/smart-cache/pkg/log"
)

// errRequestFailed is returned once the failure has already been reported.
var errRequestFailed = errors.New("request failed")

// resolveConfigPath returns the config path based on flags and project discovery.
// Priority:
//  1. explicit --config
//  2. if global flag set -> ~/.cachectl/config.yml
//  3. project-local configs (in order):
//     ./.cachectl.yml, ./.cachectl.yaml,
//     ./.cachectl/config.yml, ./cachectl.yml, ./cachectl/config.yml
//  4. fallback to ~/.cachectl/config.yml
func resolveConfigPath(cfg string, global bool) (string, error) {
	if cfg != "" {
		return cfg, nil
	}
	if global {
		return globalConfigPath()
	}
	if wd, err := os.Getwd(); err == nil {
		candidates := []string{
			".cachectl.yml",
			".cachectl.yaml",
			filepath.Join(".cachectl", "config.yml"),
			"cachectl.yml",
			filepath.Join("cachectl", "config.yml"),
		}
		for _, rel := range candidates {
			p := filepath.Join(wd, rel)
			if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
				return p, nil
			}
		}
	}
	return globalConfigPath()
}

func globalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cachectl", "config.yml"), nil
}

// loadOrDefault loads path, falling back to the default config when the
// file does not exist yet.
func loadOrDefault(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return config.Config{}, err
	}
	home, herr := os.UserHomeDir()
	if herr != nil {
		return config.Config{}, herr
	}
	return config.DefaultConfig(home), nil
}

// addConfigFlags registers the --config and --global flags.
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "Path to config file")
	cmd.Flags().BoolP("global", "g", false, "Use global config (~/.cachectl/config.yml)")
}

// addRuntimeFlags registers the flags of every command that talks to a cache.
func addRuntimeFlags(cmd *cobra.Command) {
	addConfigFlags(cmd)
	fl := cmd.Flags()
	fl.StringP("target", "t", "", "Target name (default: current target)")
	fl.String("server", "", "Admin API base URL, overrides the target's server")
	fl.Bool("daemon", false, "Send requests through the running daemon")
	fl.String("log-file", "", "Log file (default from config)")
	fl.String("log-level", "", "Log level: debug|info|warn|error")
}

// settings layers CACHECTL_* environment variables under the flags.
func settings(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("CACHECTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, name := range []string{"target", "server", "daemon", "log-file", "log-level"} {
		if f := cmd.Flags().Lookup(name); f != nil {
			_ = v.BindPFlag(name, f)
		}
	}
	return v
}

func configPathFromFlags(cmd *cobra.Command) (string, error) {
	cfgPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return "", err
	}
	useGlobal, err := cmd.Flags().GetBool("global")
	if err != nil {
		return "", err
	}
	return resolveConfigPath(cfgPath, useGlobal)
}

// runtime is everything a cache command needs: resolved config and target,
// a logger and a gateway.
type runtime struct {
	cfg       config.Config
	cfgPath   string
	target    config.Target
	viaDaemon bool
	gateway   console.Gateway
	logger    log.Logger
	closeLog  func() error
}

func (r *runtime) Close() {
	if r.closeLog != nil {
		_ = r.closeLog()
	}
}

// lifecycle returns a Lifecycle reporting to w. CLI calls skip the
// latency floor.
func (r *runtime) lifecycle(w io.Writer) *console.Lifecycle {
	return console.NewLifecycle(-1, cliNotifier{w: w}, r.logger)
}

func openRuntime(cmd *cobra.Command) (*runtime, error) {
	v := settings(cmd)
	path, err := configPathFromFlags(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := loadOrDefault(path)
	if err != nil {
		return nil, err
	}
	if lf := v.GetString("log-file"); lf != "" {
		cfg.Options.LogFile = lf
	}
	if ll := v.GetString("log-level"); ll != "" {
		cfg.Options.LogLevel = ll
	}
	logger, closeLog, err := logging.New(cfg.Options)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, cfgPath: path, logger: logger, closeLog: closeLog}

	target, err := pickTarget(cfg, v)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.target = target

	if v.GetBool("daemon") {
		rt.viaDaemon = true
		rt.gateway = ipc.NewClient(cfg.Options.SocketPath, cfg.Options.EffectiveTimeout(), logger)
		return rt, nil
	}
	client, err := dialTarget(cmd.Context(), target, cfg.Options, logger)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.gateway = client
	return rt, nil
}

// pickTarget resolves the target from --target/--server and the
// CACHECTL_* variables, falling back to the current target.
func pickTarget(cfg config.Config, v *viper.Viper) (config.Target, error) {
	name := v.GetString("target")
	if name == "" {
		name = cfg.CurrentTarget
	}
	server := v.GetString("server")

	var target config.Target
	if name != "" {
		t, err := cfg.GetTarget(name)
		switch {
		case err == nil:
			target = t
		case server == "":
			return config.Target{}, err
		}
	}
	if server != "" {
		target.Server = server
		if target.Name == "" {
			target.Name = "adhoc"
		}
	}
	if u := v.GetString("username"); u != "" {
		target.Username = u
	}
	if p := v.GetString("password"); p != "" {
		target.Password = p
	}
	if target.Server == "" && !v.GetBool("daemon") {
		return config.Target{}, fmt.Errorf("no target selected: run `cachectl target use <name>` or pass --server")
	}
	return target, nil
}

// dialTarget builds an HTTP gateway for t and logs in when t has
// credentials.
func dialTarget(ctx context.Context, t config.Target, opts config.Options, logger log.Logger) (*admin.Client, error) {
	client, err := admin.New(admin.Options{
		Server:     t.Server,
		PathSuffix: t.PathSuffix,
		Cookie:     t.Cookie,
		Timeout:    opts.EffectiveTimeout(),
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	if t.Username != "" {
		if err := client.Login(ctx, t.Username, t.Password); err != nil {
			return nil, err
		}
	}
	return client, nil
}

var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func noticeStyle(l console.Level) lipgloss.Style {
	switch l {
	case console.LevelSuccess:
		return successStyle
	case console.LevelWarning:
		return warnStyle
	case console.LevelError:
		return errorStyle
	default:
		return infoStyle
	}
}

// cliNotifier prints notices as "level: text" lines.
type cliNotifier struct{ w io.Writer }

func (n cliNotifier) Notify(x console.Notice) {
	fmt.Fprintln(n.w, noticeStyle(x.Level).Render(x.Level.String()+": "+x.Text))
}

// promptConfirmer asks on the terminal. yes accepts without asking.
type promptConfirmer struct {
	in  io.Reader
	out io.Writer
	yes bool
}

func (p promptConfirmer) Confirm(ctx context.Context, pr console.Prompt) bool {
	if p.yes {
		return true
	}
	if ctx.Err() != nil {
		return false
	}
	fmt.Fprintf(p.out, "%s [y/N]: ", pr.Text)
	line, _ := bufio.NewReader(p.in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// writeStructured encodes v as json or yaml.
func writeStructured(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// renderValue pretty prints a cached JSON value, as YAML when asYAML is set.
func renderValue(v admin.Value, asYAML bool) (string, error) {
	if len(v) == 0 {
		return "(absent)", nil
	}
	if asYAML {
		out, err := sigyaml.JSONToYAML(v)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(out), "\n"), nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, v, "", "  "); err != nil {
		return "", err
	}
	return buf.String(), nil
}
