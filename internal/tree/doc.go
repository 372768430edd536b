// Package tree provides the virtual file tree the generation helpers read
// from and write to.
//
// A HostTree layers an in-memory staging area over an afero filesystem
// (github.com/spf13/afero). Reads see staged content first; writes and
// deletions only touch the disk when Commit is called. The ordered action
// log (create / update / delete) is what the CLI prints, both for real runs
// and for --dry-run.
package tree
