// Package registry looks up package versions in the npm registry.
//
// The lookup degrades instead of failing: whatever goes wrong, the caller
// gets a usable NodePackage whose version is the "latest" dist-tag, plus an
// explicit marker and the cause. Version ranges are rendered and checked
// with github.com/Masterminds/semver/v3.
package registry
