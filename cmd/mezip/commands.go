package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arloliu/mezip/archive"
	"github.com/arloliu/mezip/errs"
	"github.com/arloliu/mezip/source"
)

func newAddCmd(a *app) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "add ARCHIVE PATH...",
		Short: "Add files and directories to an archive",
		Long: `Add files and directories to ARCHIVE, creating it if needed. Existing
entries with the same name are replaced; all other entries are kept
without recompression.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runUpdate(cmd, args[0], false, func(prior *archive.Prior, src *source.FS) error {
				added := source.New(a.logger)
				for _, p := range args[1:] {
					if err := added.AddPath(p, prefix); err != nil {
						return err
					}
				}

				replaced := make(map[string]bool, added.Len())
				for _, it := range added.Items() {
					replaced[entryKey(it.Name)] = true
				}
				if prior != nil {
					for i := range prior.Entries {
						e := &prior.Entries[i]
						if !replaced[entryKey(e.Name)] {
							src.AddReused(i, e)
						}
					}
				}
				src.Append(added)

				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&prefix, "prefix", "p", "", "Directory inside the archive to add the paths under")
	bindUpdateFlags(cmd)

	return cmd
}

func newRenameCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename ARCHIVE OLD NEW",
		Short: "Rename an entry or a directory tree without recompression",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to := entryKey(args[1]), entryKey(args[2])
			if to == "" {
				return fmt.Errorf("%w: empty target name", errs.ErrInvalidName)
			}

			return a.runUpdate(cmd, args[0], true, func(prior *archive.Prior, src *source.FS) error {
				matched := 0
				for i := range prior.Entries {
					e := &prior.Entries[i]
					name, ok := renamed(entryKey(e.Name), from, to)
					if !ok {
						src.AddReused(i, e)
						continue
					}
					matched++
					src.AddRenamed(i, e, name)
				}
				if matched == 0 {
					return fmt.Errorf("%w: %q not found in %s", errs.ErrInvalidName, args[1], args[0])
				}

				return nil
			})
		},
	}
	bindUpdateFlags(cmd)

	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete ARCHIVE NAME...",
		Aliases: []string{"rm"},
		Short:   "Delete entries or directory trees from an archive",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runUpdate(cmd, args[0], true, func(prior *archive.Prior, src *source.FS) error {
				hits := make(map[string]int, len(args)-1)
				for _, n := range args[1:] {
					hits[entryKey(n)] = 0
				}

				for i := range prior.Entries {
					e := &prior.Entries[i]
					if target, ok := coveredBy(entryKey(e.Name), hits); ok {
						hits[target]++
						continue
					}
					src.AddReused(i, e)
				}

				for _, n := range args[1:] {
					if hits[entryKey(n)] == 0 {
						return fmt.Errorf("%w: %q not found in %s", errs.ErrInvalidName, n, args[0])
					}
				}

				return nil
			})
		},
	}
	bindUpdateFlags(cmd)

	return cmd
}

// entryKey normalizes an entry name for comparisons.
func entryKey(name string) string {
	return strings.Trim(strings.ReplaceAll(name, "\\", "/"), "/")
}

// renamed maps name to its new name when it is from or lies below from.
func renamed(name, from, to string) (string, bool) {
	if name == from {
		return to, true
	}
	if rest, ok := strings.CutPrefix(name, from+"/"); ok {
		return to + "/" + rest, true
	}

	return "", false
}

// coveredBy returns the target that equals name or is a directory above it.
func coveredBy(name string, targets map[string]int) (string, bool) {
	for n := name; n != ""; {
		if _, ok := targets[n]; ok {
			return n, true
		}
		i := strings.LastIndexByte(n, '/')
		if i < 0 {
			break
		}
		n = n[:i]
	}

	return "", false
}
