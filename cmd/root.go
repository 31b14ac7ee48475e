package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/adrg/xdg"
	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nerved-io/lsp-ws-proxy/internal/httpserver"
	"github.com/nerved-io/lsp-ws-proxy/internal/proxylog"
	"github.com/nerved-io/lsp-ws-proxy/internal/remap"
	"github.com/nerved-io/lsp-ws-proxy/internal/version"
)

// defaultListen mirrors the original lsp-ws-proxy's default bind address.
const defaultListen = "127.0.0.1:9999"

// noTimeout stands in for "disabled" the way the original's NO_TIMEOUT
// sentinel (30 days) did, since a Go time.Timer needs a concrete duration
// rather than an optional one.
const noTimeout = 365 * 24 * time.Hour

// rootCmd is the base command. Unlike cmd/lsp.go in the teacher repo, this
// proxy has no subcommands of its own beyond `version`; the wrapped
// language server's argv lives after `--` on the same invocation.
var rootCmd = &cobra.Command{
	Use:   "lsp-ws-proxy [flags] -- <command> [args...] [-- [name=]<command> [args...]]...",
	Short: "WebSocket proxy for stdio-based LSP servers",
	Long: `lsp-ws-proxy launches one or more LSP servers as child processes and
bridges them to WebSocket clients, with optional source:// <-> file://
URI remapping and optional mirroring of saved documents to disk.

Examples:
  lsp-ws-proxy -- gopls
  lsp-ws-proxy --listen :8080 --remap -- gopls
  lsp-ws-proxy -l :8080 -- go=gopls -- eslint=vscode-eslint-language-server --stdio`,
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE:          runProxy,
}

// Execute runs the root command. Called once from main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.Flags().StringP("listen", "l", defaultListen, "address or port to listen on (a bare port binds all interfaces)")
	rootCmd.Flags().DurationP("timeout", "t", 0, "inactivity timeout before closing the connection (0 disables)")
	rootCmd.Flags().BoolP("sync", "s", false, "mirror textDocument/didSave contents to disk")
	rootCmd.Flags().BoolP("remap", "r", false, "rewrite source:// URIs to file:// inbound and back outbound")
	rootCmd.Flags().BoolP("version", "v", false, "show version and exit")
	rootCmd.Flags().String("project-dir", "", "project root directory (default: current working directory)")
	rootCmd.Flags().Bool("debug", false, "enable debug logging")

	_ = viper.BindPFlag("version", rootCmd.Flags().Lookup("version"))
	_ = viper.BindPFlag("listen", rootCmd.Flags().Lookup("listen"))
	_ = viper.BindPFlag("timeout", rootCmd.Flags().Lookup("timeout"))
	_ = viper.BindPFlag("sync", rootCmd.Flags().Lookup("sync"))
	_ = viper.BindPFlag("remap", rootCmd.Flags().Lookup("remap"))
	_ = viper.BindPFlag("projectDir", rootCmd.Flags().Lookup("project-dir"))
	_ = viper.BindPFlag("debug", rootCmd.Flags().Lookup("debug"))
}

// initConfig wires up the optional config file and environment variable
// layering, mirroring bennypowers-cem/cmd/root.go's initConfig/AutomaticEnv
// pattern. CLI flags always win: viper's precedence order already puts
// explicitly-set pflags above config file and env values.
func initConfig() {
	viper.SetEnvPrefix("LSPWSPROXY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetConfigType("yaml")
	viper.SetConfigName(".lspwsproxy")
	viper.AddConfigPath(".")
	viper.AddConfigPath(filepath.Join(xdg.ConfigHome, "lspwsproxy"))

	if err := viper.ReadInConfig(); err == nil {
		pterm.Debug.Println("using config file: ", viper.ConfigFileUsed())
	}
}

func runProxy(cmd *cobra.Command, args []string) error {
	if viper.GetBool("version") {
		fmt.Printf("lsp-ws-proxy %s\n", version.GetVersion())
		return nil
	}

	idx := cmd.Flags().ArgsLenAtDash()
	if idx < 0 {
		return errors.New("a language server command is required after `--`; see --help for examples")
	}

	commands, defaultName, err := buildCommands(splitCommandVectors(args[idx:]))
	if err != nil {
		return err
	}

	projectDir, err := resolveProjectDir(viper.GetString("projectDir"))
	if err != nil {
		return errors.Wrap(err, "resolving project directory")
	}

	listen, err := normalizeListen(viper.GetString("listen"))
	if err != nil {
		return errors.Wrap(err, "invalid --listen value")
	}

	timeout := viper.GetDuration("timeout")
	if timeout <= 0 {
		timeout = noTimeout
	}

	log := proxylog.New(viper.GetBool("debug"))

	cfg := httpserver.Config{
		Addr:        listen,
		Commands:    commands,
		DefaultName: defaultName,
		Sync:        viper.GetBool("sync"),
		Remap:       viper.GetBool("remap"),
		ProjectRoot: projectDir,
		Cwd:         remap.ProjectRootToCwd(projectDir),
		Timeout:     timeout,
		Logger:      log,
	}

	return serve(httpserver.New(cfg), log)
}

// serve runs the server until either it fails or an interrupt/term signal
// arrives, at which point it shuts down gracefully. Grounded on
// bennypowers-cem/cmd/serve.go's signal-driven shutdown, trimmed of the
// interactive-keyboard handling that doesn't apply to a headless proxy.
func serve(s *httpserver.Server, log *proxylog.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := s.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(ctx)
	}
}

// splitCommandVectors splits the unparsed tail of argv (everything from
// the first `--` onward) into one or more server-command vectors on
// further literal `--` tokens. pflag only ever recognizes the first `--`;
// this generalizes the original's single splitn(2, "--") to multi-command
// mode (SPEC_FULL §3.1, §4.E).
func splitCommandVectors(rest []string) [][]string {
	var vectors [][]string
	current := []string{}
	for _, tok := range rest {
		if tok == "--" {
			vectors = append(vectors, current)
			current = []string{}
			continue
		}
		current = append(current, tok)
	}
	vectors = append(vectors, current)
	return vectors
}

// buildCommands resolves each command vector's selectable name and
// returns the Commands map plus the name of the first vector, which
// becomes the default used when a WebSocket connection's ?name= is
// absent. A vector's first token may be of the form name=value (stripped
// before exec); otherwise the name defaults to the basename of argv[0].
func buildCommands(vectors [][]string) (map[string][]string, string, error) {
	commands := make(map[string][]string, len(vectors))
	defaultName := ""

	for i, vector := range vectors {
		if len(vector) == 0 {
			return nil, "", errors.New("empty command after `--`")
		}

		name := filepath.Base(vector[0])
		if n, v, ok := strings.Cut(vector[0], "="); ok && n != "" {
			name = n
			vector = append([]string{v}, vector[1:]...)
		}

		if _, exists := commands[name]; exists {
			return nil, "", errors.Errorf("duplicate command name %q", name)
		}
		commands[name] = vector

		if i == 0 {
			defaultName = name
		}
	}

	return commands, defaultName, nil
}

// resolveProjectDir expands ~ and makes the project directory absolute,
// falling back to the process's current working directory, mirroring
// bennypowers-cem/cmd/root.go's expandPath helper.
func resolveProjectDir(flagValue string) (string, error) {
	if flagValue == "" {
		return os.Getwd()
	}
	if strings.HasPrefix(flagValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if flagValue == "~" {
			flagValue = home
		} else if strings.HasPrefix(flagValue, "~/") {
			flagValue = filepath.Join(home, flagValue[2:])
		}
	}
	return filepath.Abs(flagValue)
}

// normalizeListen expands a bare port number to all interfaces: spec §6 is
// explicit that "a bare integer means 0.0.0.0:<port>", binding every
// interface rather than the original's localhost-only parse_listen
// (main.rs:311-320). Anything else is used as-is.
func normalizeListen(value string) (string, error) {
	if value == "" {
		return defaultListen, nil
	}
	if _, err := strconv.Atoi(value); err == nil {
		return "0.0.0.0:" + value, nil
	}
	return value, nil
}
