package schematic

import "github.com/shinji-kodama/storybook-schematic/internal/model"

// IsFramework reports whether schema declares the Storybook package that
// belongs to the framework tag. Unknown tags never match.
func IsFramework(tag model.FrameworkType, schema model.FrameworkSchema) bool {
	pkg, ok := model.UIFrameworkPackage(tag)
	return ok && schema.UIFramework == pkg
}
