package schematic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestReadSourceFile_Imports verifies import specifiers are collected from
// JavaScript and TypeScript files.
func TestReadSourceFile_Imports(t *testing.T) {
	tr := newTestTree(t, map[string]string{
		".storybook/addons.js": "import '@storybook/addon-knobs/register';\n" +
			"import \"@storybook/addon-actions/register\";\n" +
			"console.log('not an import');\n",
		"libs/ui/src/index.ts": "import { Component } from '@angular/core';\n" +
			"export const x: number = 1;\n",
	})

	js, err := ReadSourceFile(tr, ".storybook/addons.js")
	require.NoError(t, err)
	defer js.Close()

	assert.False(t, js.HasSyntaxErrors())
	assert.Equal(t, []string{"@storybook/addon-knobs/register", "@storybook/addon-actions/register"}, js.Imports())
	assert.True(t, js.HasImport("@storybook/addon-actions/register"))
	assert.False(t, js.HasImport("@storybook/addon-links/register"))

	ts, err := ReadSourceFile(tr, "libs/ui/src/index.ts")
	require.NoError(t, err)
	defer ts.Close()

	assert.False(t, ts.HasSyntaxErrors())
	assert.Equal(t, []string{"@angular/core"}, ts.Imports())
}

// TestReadSourceFile_Missing verifies the fail-fast message.
func TestReadSourceFile_Missing(t *testing.T) {
	tr := newTestTree(t, nil)

	_, err := ReadSourceFile(tr, "libs/ui/.storybook/config.js")
	require.ErrorIs(t, err, ErrFileNotFound)
	assert.Contains(t, err.Error(), "could not read TS file (libs/ui/.storybook/config.js)")
}

// TestReadSourceFile_SyntaxErrors verifies broken files still parse.
func TestReadSourceFile_SyntaxErrors(t *testing.T) {
	tr := newTestTree(t, map[string]string{"broken.ts": "import { from ;;; class {"})

	src, err := ReadSourceFile(tr, "broken.ts")
	require.NoError(t, err)
	defer src.Close()

	assert.True(t, src.HasSyntaxErrors())
}
