package generator

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/shinji-kodama/storybook-schematic/internal/model"
	"github.com/shinji-kodama/storybook-schematic/internal/registry"
	"github.com/shinji-kodama/storybook-schematic/internal/schematic"
	"github.com/shinji-kodama/storybook-schematic/internal/tree"
)

// excludeStories appends model.TsConfigExclusions to the "exclude" list of
// the tsconfig at tsConfigPath. Patterns already present are not repeated,
// existing entries are kept as they are (non-string ones included), and the
// file is left untouched when nothing is missing.
func excludeStories(t tree.Tree, tsConfigPath string) error {
	cfg, err := schematic.ParseJSONAtPath(t, tsConfigPath)
	if err != nil {
		return err
	}

	existing, _ := cfg["exclude"].([]interface{})
	exclude := make([]interface{}, 0, len(existing)+len(model.TsConfigExclusions()))
	exclude = append(exclude, existing...)
	present := make(map[string]bool, len(existing))
	for _, e := range existing {
		if s, ok := e.(string); ok {
			present[s] = true
		}
	}

	changed := false
	for _, pattern := range model.TsConfigExclusions() {
		if !present[pattern] {
			present[pattern] = true
			exclude = append(exclude, pattern)
			changed = true
		}
	}
	if !changed {
		return nil
	}

	cfg["exclude"] = exclude
	return schematic.WriteJSONFile(t, tsConfigPath, cfg)
}

// registerAddons appends an "import '<addon>/register';" line to the
// workspace addons.js for every addon it does not import yet.
func registerAddons(t tree.Tree, addons []string) error {
	if len(addons) == 0 {
		return nil
	}

	src, err := schematic.ReadSourceFile(t, rootAddonsFile)
	if err != nil {
		return err
	}
	defer src.Close()

	var buf bytes.Buffer
	buf.Write(src.Content)
	if len(src.Content) > 0 && !bytes.HasSuffix(src.Content, []byte("\n")) {
		buf.WriteByte('\n')
	}

	changed := false
	for _, addon := range addons {
		specifier := addon + "/register"
		if src.HasImport(specifier) {
			continue
		}
		fmt.Fprintf(&buf, "import '%s';\n", specifier)
		changed = true
	}
	if !changed {
		return nil
	}
	return t.Overwrite(rootAddonsFile, buf.Bytes())
}

// addDependencies resolves every package in names, one registry request at a
// time, and records it in package.json.
//
// An entry already present in "dependencies" or "devDependencies" is kept
// when its range admits the latest version, or when the lookup fell back to
// the default tag; otherwise it is updated where it lives. New entries go to
// "devDependencies". Missing model.PkgJSONScripts entries are added to
// "scripts" without touching existing ones.
func addDependencies(ctx context.Context, t tree.Tree, fetcher VersionFetcher, names []string, logger *zap.Logger) ([]Dependency, error) {
	pkg, err := schematic.ParseJSONAtPath(t, packageJSONFile)
	if err != nil {
		return nil, err
	}

	devDeps := objectAt(pkg, "devDependencies")
	deps := objectAt(pkg, "dependencies")
	changed := false

	results := make([]Dependency, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("dependency resolution interrupted: %w", err)
		}

		res := fetcher.LatestVersion(ctx, name)
		if res.Defaulted {
			logger.Debug("using default version",
				zap.String("package", name), zap.Error(res.Cause))
		}

		dep := Dependency{
			Name:      name,
			Version:   registry.VersionRange(res.Package),
			Defaulted: res.Defaulted,
		}

		section := devDeps
		if _, ok := deps[name]; ok {
			section = deps
		}
		if existing, ok := section[name].(string); ok {
			if res.Defaulted || registry.Satisfies(existing, res.Package.Version) {
				dep.Version = existing
				dep.Kept = true
				results = append(results, dep)
				continue
			}
		}

		section[name] = dep.Version
		changed = true
		results = append(results, dep)
	}

	if len(devDeps) > 0 {
		pkg["devDependencies"] = devDeps
	}

	scripts := objectAt(pkg, "scripts")
	scriptNames := make([]string, 0, len(model.PkgJSONScripts()))
	for name := range model.PkgJSONScripts() {
		scriptNames = append(scriptNames, name)
	}
	sort.Strings(scriptNames)
	for _, name := range scriptNames {
		if _, ok := scripts[name]; !ok {
			scripts[name] = model.PkgJSONScripts()[name]
			changed = true
		}
	}
	pkg["scripts"] = scripts

	if !changed {
		return results, nil
	}
	if err := schematic.WriteJSONFile(t, packageJSONFile, pkg); err != nil {
		return nil, err
	}
	return results, nil
}

// objectAt returns obj[key] as a map, or an empty map when the key is
// missing or holds something else.
func objectAt(obj schematic.JSONObject, key string) map[string]interface{} {
	if m, ok := obj[key].(map[string]interface{}); ok {
		return m
	}
	return make(map[string]interface{})
}
