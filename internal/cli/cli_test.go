package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/storybook-schematic/internal/generator"
	"github.com/shinji-kodama/storybook-schematic/internal/launcher"
	"github.com/shinji-kodama/storybook-schematic/internal/model"
	"github.com/shinji-kodama/storybook-schematic/internal/schematic"
	"github.com/shinji-kodama/storybook-schematic/internal/tree"
	"github.com/shinji-kodama/storybook-schematic/internal/workspace"
)

// writeWorkspace creates an Nx workspace with a library "ui" and an
// application "shell" in a temporary directory.
func writeWorkspace(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	files := map[string]string{
		"workspace.json": `{
  "version": 1,
  "projects": {
    "ui": {"root": "libs/ui", "projectType": "library"},
    "shell": {"root": "apps/shell", "projectType": "application"}
  }
}`,
		"nx.json":                      `{}`,
		"package.json":                 `{"name": "ws"}`,
		"tsconfig.base.json":           `{}`,
		"libs/ui/tsconfig.lib.json":    `{"exclude": []}`,
		"apps/shell/tsconfig.app.json": `{}`,
	}
	for p, content := range files {
		full := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

// newRegistry serves a fixed latest version for every package.
func newRegistry(t *testing.T, version string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, `{"dist-tags": {"latest": %q}}`, version)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("NPM_CONFIG_REGISTRY", "")

	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), err
}

// TestExitCodeFor verifies sentinel errors map to their exit codes through
// any amount of wrapping.
func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want model.ExitCode
	}{
		{"nil", nil, model.ExitSuccess},
		{"plain", errors.New("boom"), model.ExitGeneralError},
		{"workspace", fmt.Errorf("x: %w", workspace.ErrWorkspaceNotFound), model.ExitWorkspaceNotFound},
		{"project", fmt.Errorf("x: %w", workspace.ErrProjectNotFound), model.ExitProjectNotFound},
		{"file", fmt.Errorf("x: %w", schematic.ErrFileNotFound), model.ExitFileNotFound},
		{"json", fmt.Errorf("x: %w", schematic.ErrInvalidJSON), model.ExitInvalidFile},
		{"not object", schematic.ErrNotObject, model.ExitInvalidFile},
		{"workspace file", workspace.ErrInvalidWorkspace, model.ExitInvalidFile},
		{"framework", generator.ErrUnsupportedFramework, model.ExitUnsupportedFramework},
		{"conflict", fmt.Errorf("x: %w", schematic.ErrMergeConflict), model.ExitMergeConflict},
		{"launch", launcher.ErrLaunchFailed, model.ExitLaunchFailed},
		{"cli error", model.NewCLIError(model.ExitInvalidFile, "bad"), model.ExitInvalidFile},
		{"wrapped", wrapError("msg", workspace.ErrProjectNotFound), model.ExitProjectNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeFor(tt.err))
		})
	}
}

// TestConfigure_WritesFiles runs configure end to end on disk.
func TestConfigure_WritesFiles(t *testing.T) {
	root := writeWorkspace(t)
	srv := newRegistry(t, "5.3.19")

	out, err := execute(t, "configure", "ui", "--workspace", root, "--registry", srv.URL, "--addons", "knobs")
	require.NoError(t, err)

	assert.Contains(t, out, "CREATE libs/ui/.storybook/config.js")
	assert.Contains(t, out, "UPDATE package.json")
	assert.NotContains(t, out, "dryRun")

	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"@storybook/addon-knobs": "^5.3.19"`)

	addons, err := os.ReadFile(filepath.Join(root, ".storybook", "addons.js"))
	require.NoError(t, err)
	assert.Contains(t, string(addons), "import '@storybook/addon-knobs/register';")
}

// TestConfigure_DryRunJSON verifies nothing is written and the JSON report
// lists the staged actions.
func TestConfigure_DryRunJSON(t *testing.T) {
	root := writeWorkspace(t)
	srv := newRegistry(t, "6.0.0")

	out, err := execute(t, "configure", "shell", "--workspace", root, "--registry", srv.URL, "--dry-run", "--json")
	require.NoError(t, err)

	var result struct {
		Project      string                 `json:"project"`
		Framework    string                 `json:"framework"`
		Dependencies []generator.Dependency `json:"dependencies"`
		Actions      []tree.Action          `json:"actions"`
		DryRun       bool                   `json:"dryRun"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))

	assert.Equal(t, "shell", result.Project)
	assert.Equal(t, "angular", result.Framework)
	assert.True(t, result.DryRun)
	assert.Contains(t, result.Actions, tree.Action{Kind: tree.ActionCreate, Path: "apps/shell/.storybook/config.js"})
	require.NotEmpty(t, result.Dependencies)
	assert.Equal(t, "^6.0.0", result.Dependencies[0].Version)

	_, err = os.Stat(filepath.Join(root, "apps", "shell", ".storybook"))
	assert.True(t, os.IsNotExist(err), "dry run must not write files")
}

// TestConfigure_ConfigFile verifies the config file supplies defaults that
// flags override.
func TestConfigure_ConfigFile(t *testing.T) {
	root := writeWorkspace(t)
	srv := newRegistry(t, "6.0.0")
	cfg := fmt.Sprintf("registry: %s\nuiFramework: \"@storybook/react\"\naddons: [actions]\n", srv.URL)
	require.NoError(t, os.WriteFile(filepath.Join(root, ".storybook-schematic.yaml"), []byte(cfg), 0o644))

	_, err := execute(t, "configure", "ui", "--workspace", root, "--addons", "notes")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"@storybook/react": "^6.0.0"`)
	assert.Contains(t, string(data), `"@storybook/addon-notes"`)
	assert.NotContains(t, string(data), `"@storybook/addon-actions"`)
}

// TestConfigure_FrameworkTag verifies a short framework tag selects its
// package.
func TestConfigure_FrameworkTag(t *testing.T) {
	root := writeWorkspace(t)
	srv := newRegistry(t, "6.0.0")

	out, err := execute(t, "configure", "shell", "--workspace", root, "--registry", srv.URL,
		"--ui-framework", "react", "--dry-run", "--json")
	require.NoError(t, err)

	var result struct {
		Framework    string                 `json:"framework"`
		Dependencies []generator.Dependency `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "react", result.Framework)
	require.NotEmpty(t, result.Dependencies)
	assert.Equal(t, "@storybook/react", result.Dependencies[0].Name)
}

// TestConfigure_Errors verifies failures carry the right exit code.
func TestConfigure_Errors(t *testing.T) {
	root := writeWorkspace(t)
	srv := newRegistry(t, "6.0.0")

	_, err := execute(t, "configure", "ghost", "--workspace", root, "--registry", srv.URL)
	assert.Equal(t, model.ExitProjectNotFound, ExitCodeFor(err))

	_, err = execute(t, "configure", "ui", "--workspace", root, "--registry", srv.URL, "--ui-framework", "@storybook/vue")
	assert.Equal(t, model.ExitUnsupportedFramework, ExitCodeFor(err))

	_, err = execute(t, "configure", "ui", "--workspace", t.TempDir())
	assert.Equal(t, model.ExitWorkspaceNotFound, ExitCodeFor(err))
}

// TestClean removes what configure generated.
func TestClean(t *testing.T) {
	root := writeWorkspace(t)
	srv := newRegistry(t, "6.0.0")

	_, err := execute(t, "configure", "ui", "--workspace", root, "--registry", srv.URL)
	require.NoError(t, err)

	out, err := execute(t, "clean", "ui", "--workspace", root, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "DELETE libs/ui/.storybook/config.js")
	assert.FileExists(t, filepath.Join(root, "libs", "ui", ".storybook", "config.js"))

	_, err = execute(t, "clean", "ui", "--workspace", root)
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(root, "libs", "ui", ".storybook", "config.js"))
	assert.FileExists(t, filepath.Join(root, ".storybook", "main.js"))

	out, err = execute(t, "clean", "ui", "--workspace", root)
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to do.")
}

// TestRun_DryRun verifies the printed command and the project selection.
func TestRun_DryRun(t *testing.T) {
	root := writeWorkspace(t)
	srv := newRegistry(t, "6.0.0")

	_, err := execute(t, "configure", "ui", "--workspace", root, "--registry", srv.URL)
	require.NoError(t, err)

	out, err := execute(t, "run", "ui", "--workspace", root, "--lead-project", "shell", "--dry-run")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "STORYBOOK_ANGULAR_PROJECT=shell npx start-storybook -p "), out)
	assert.Contains(t, out, "-c libs/ui/.storybook")

	out, err = execute(t, "run", "ui", "--workspace", root, "--dry-run", "--json", "-c", "ci")
	require.NoError(t, err)

	var result runResultJSON
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "ui", result.Project)
	assert.Equal(t, "ui:storybook:ci", result.Target)
	assert.Equal(t, "ci", result.Configuration)
	assert.Empty(t, result.StorybookProject, "a library without a lead project selects nothing")
	assert.Equal(t, "libs/ui/.storybook", result.ConfigDir)
	assert.GreaterOrEqual(t, result.Port, model.DefaultStorybookPort)
}

// TestRun_NotConfigured verifies a project without generated Storybook files
// is reported before anything is started.
func TestRun_NotConfigured(t *testing.T) {
	root := writeWorkspace(t)

	_, err := execute(t, "run", "shell", "--workspace", root, "--dry-run")
	require.Error(t, err)
	assert.Equal(t, model.ExitFileNotFound, ExitCodeFor(err))
	assert.Contains(t, err.Error(), "storybook-schematic configure shell")
}

// TestLatest verifies both output formats.
func TestLatest(t *testing.T) {
	srv := newRegistry(t, "6.1.0")

	out, err := execute(t, "latest", "@storybook/angular", "--registry", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "@storybook/angular@6.1.0\n", out)

	out, err = execute(t, "latest", "@storybook/angular", "@storybook/addons", "--registry", srv.URL, "--json")
	require.NoError(t, err)

	var result struct {
		Packages []latestPackageJSON `json:"packages"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, []latestPackageJSON{
		{Name: "@storybook/angular", Version: "6.1.0"},
		{Name: "@storybook/addons", Version: "6.1.0"},
	}, result.Packages)
}

// TestLatest_ConfigDefaults verifies latest reads the registry from the
// workspace config file like configure does.
func TestLatest_ConfigDefaults(t *testing.T) {
	root := writeWorkspace(t)
	srv := newRegistry(t, "7.0.0")
	cfg := fmt.Sprintf("registry: %s\ntimeout: 5s\n", srv.URL)
	require.NoError(t, os.WriteFile(filepath.Join(root, ".storybook-schematic.yaml"), []byte(cfg), 0o644))

	out, err := execute(t, "latest", "@storybook/html", "--workspace", root)
	require.NoError(t, err)
	assert.Equal(t, "@storybook/html@7.0.0\n", out)
}

// TestPrintError verifies the text and JSON error formats.
func TestPrintError(t *testing.T) {
	defer func() { jsonOutput = false }()

	cliErr := model.WrapCLIError(model.ExitProjectNotFound, "could not find project", errors.New("no such project"))

	var buf bytes.Buffer
	jsonOutput = false
	printError(&buf, cliErr)
	assert.Equal(t, "Error: could not find project: no such project\n", buf.String())

	buf.Reset()
	jsonOutput = true
	printError(&buf, cliErr)

	var obj map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &obj))
	assert.Equal(t, float64(model.ExitProjectNotFound), obj["error"]["code"])
	assert.Equal(t, "no such project", obj["error"]["detail"])
}
