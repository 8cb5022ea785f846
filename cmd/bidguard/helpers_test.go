package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// execute runs the root command with args and returns what it wrote to
// stdout. Flag values from earlier runs are reset first.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile, verbose = "", false
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

type workspace struct {
	dir    string
	config string
}

type workspaceOptions struct {
	strict bool
	deny   []string
}

// newWorkspace writes a configuration whose state files all live in a
// temporary directory.
func newWorkspace(t *testing.T, opts workspaceOptions) *workspace {
	t.Helper()
	dir := t.TempDir()
	path := func(name string) string { return filepath.Join(dir, name) }

	var deny bytes.Buffer
	for _, n := range opts.deny {
		fmt.Fprintf(&deny, "- %q\n", n)
	}
	writeFile(t, path("denylist.yaml"), deny.String())

	cfg := fmt.Sprintf(`ethics:
  mode: denylist
  strict_mode: %t
  denylist_file: %s
  bypass:
    enabled: true
    categories:
      subcontractor: true
ledger:
  path: %s
  key_file: %s
  auto_generate_key: true
audit:
  path: %s
overrides:
  backend: sqlite
  sqlite_path: %s
telemetry:
  logging:
    level: error
`, opts.strict, path("denylist.yaml"), path("ledger.bgl"), path("ledger.key"), path("audit.log"), path("overrides.db"))
	writeFile(t, path("bidguard.yaml"), cfg)

	return &workspace{dir: dir, config: path("bidguard.yaml")}
}

func (w *workspace) path(name string) string {
	return filepath.Join(w.dir, name)
}

// run executes a command against the workspace configuration.
func (w *workspace) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return execute(t, append([]string{"--config", w.config}, args...)...)
}

// writeBid writes the sample bid and returns its path.
func (w *workspace) writeBid(t *testing.T, name, acmeExtra string) string {
	t.Helper()
	body := fmt.Sprintf(`id: %s
participants:
  - name: Acme
    category: manufacturer
    quoted_price: 95
    baseline_price: 100
    reply_latency: 20h
%s  - name: Slow Supply
    category: Supplier
    quoted_price: 115
    baseline_price: 100
    reply_latency: 80h
  - name: Shady Co
    category: Subcontractor
    quoted_price: 90
    baseline_price: 100
    reply_latency: 1h
totals:
  material_labor: 70000
  final_bid: 100000
scope: Replace roof membrane per spec section 07 54 00.
`, name, acmeExtra)
	p := w.path(name + ".yaml")
	writeFile(t, p, body)
	return p
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}
