package main

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/pbaille/kbtags/internal/api"
	"github.com/pbaille/kbtags/internal/domain"
	"github.com/pbaille/kbtags/internal/tagedit"
	"github.com/pbaille/kbtags/internal/tui"
	"github.com/spf13/cobra"
)

// consoleNotifier prints coordinator feedback and remembers failures so the
// command can exit non-zero.
type consoleNotifier struct {
	out io.Writer

	mu     sync.Mutex
	failed int
}

func (n *consoleNotifier) Notify(kind tagedit.Kind, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch kind {
	case tagedit.KindSuccess:
		color.New(color.FgGreen).Fprintf(n.out, "✓ %s\n", message)
	default:
		n.failed++
		color.New(color.FgRed, color.Bold).Fprintf(n.out, "✗ %s\n", message)
	}
}

func (n *consoleNotifier) Failed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.failed > 0
}

// resolveTag finds a tag by exact name, full id, or unique id prefix.
func resolveTag(tags []domain.Tag, ref string) (domain.Tag, error) {
	for _, t := range tags {
		if t.Name == ref || t.ID == ref {
			return t, nil
		}
	}

	var matches []domain.Tag
	for _, t := range tags {
		if strings.HasPrefix(t.ID, ref) {
			matches = append(matches, t)
		}
	}

	switch len(matches) {
	case 0:
		return domain.Tag{}, fmt.Errorf("tag not found: %s", ref)
	case 1:
		return matches[0], nil
	default:
		return domain.Tag{}, fmt.Errorf("ambiguous tag reference %q matches %d tags", ref, len(matches))
	}
}

func (c *cli) tagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List all tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := c.tagBackend()
			if err != nil {
				return err
			}
			defer backend.Close()

			tags, err := backend.ListTags(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(tags) == 0 {
				fmt.Fprintln(out, "No tags yet. Link tags with 'kb add --tag'.")
				return nil
			}

			var printTree func(node api.TagNode, indent int)
			printTree = func(node api.TagNode, indent int) {
				prefix := strings.Repeat("  ", indent)
				fmt.Fprintf(out, "%s%s (%d)  %s\n", prefix, node.Name, node.BindingCount, node.ID[:8])
				for _, child := range node.Children {
					printTree(child, indent+1)
				}
			}

			for _, root := range api.BuildTree(tags) {
				printTree(root, 0)
			}

			return nil
		},
	}

	cmd.AddCommand(c.tagsRenameCmd())
	cmd.AddCommand(c.tagsRemoveCmd())
	cmd.AddCommand(c.tagsEditCmd())
	return cmd
}

// newEditor loads the tag list and binds an editor to ref.
func (c *cli) newEditor(cmd *cobra.Command, backend tagBackend, ref string, notifier tagedit.Notifier) (*tagedit.Editor, domain.Tag, error) {
	tags, err := backend.ListTags(cmd.Context())
	if err != nil {
		return nil, domain.Tag{}, err
	}

	tag, err := resolveTag(tags, ref)
	if err != nil {
		return nil, domain.Tag{}, err
	}

	ed := tagedit.NewEditor(tag, tagedit.Deps{
		Tags:     tagedit.NewCollection(tags),
		Remote:   backend,
		Notifier: notifier,
		Logger:   c.logs.Component("tagedit"),
	}, tagedit.WithContext(cmd.Context()), tagedit.WithDebounce(c.cfg.DeleteDebounce))

	return ed, tag, nil
}

func (c *cli) tagsRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename [tag] [new-name]",
		Short: "Rename a tag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := c.tagBackend()
			if err != nil {
				return err
			}
			defer backend.Close()

			notifier := &consoleNotifier{out: cmd.OutOrStdout()}
			ed, tag, err := c.newEditor(cmd, backend, args[0], notifier)
			if err != nil {
				return err
			}
			defer ed.Close()

			ed.BeginEdit()
			if err := ed.SubmitRename(args[1]).Wait(); err != nil {
				return fmt.Errorf("rename %s: %w", tag.Name, err)
			}

			if args[1] == tag.Name {
				fmt.Fprintln(cmd.OutOrStdout(), "Name unchanged.")
			}
			return nil
		},
	}
}

func (c *cli) tagsRemoveCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rm [tag]",
		Aliases: []string{"delete"},
		Short:   "Delete a tag",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := c.tagBackend()
			if err != nil {
				return err
			}
			defer backend.Close()

			out := cmd.OutOrStdout()
			notifier := &consoleNotifier{out: out}
			ed, tag, err := c.newEditor(cmd, backend, args[0], notifier)
			if err != nil {
				return err
			}
			defer ed.Close()

			ed.RequestDelete(tag)
			if ed.ConfirmOpen() {
				if !yes && !confirm(cmd.InOrStdin(), out, tag) {
					ed.CancelDelete()
					fmt.Fprintln(out, "Cancelled.")
					return nil
				}
				ed.ConfirmDelete()
			}

			ed.Settle()
			if notifier.Failed() {
				return fmt.Errorf("delete %s failed", tag.Name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without asking even if entries use the tag")
	return cmd
}

func confirm(in io.Reader, out io.Writer, tag domain.Tag) bool {
	fmt.Fprintf(out, "Tag %q is used by %d entries. Delete it? [y/N] ", tag.Name, tag.BindingCount)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(out)
		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func (c *cli) tagsEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Rename and delete tags interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := c.tagBackend()
			if err != nil {
				return err
			}
			defer backend.Close()

			tags, err := backend.ListTags(cmd.Context())
			if err != nil {
				return err
			}
			sort.SliceStable(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })

			// The terminal belongs to the UI, so coordinator logs are dropped.
			deps := tagedit.Deps{Remote: backend}
			return tui.Run(tagedit.NewCollection(tags), deps,
				tagedit.WithContext(cmd.Context()),
				tagedit.WithDebounce(c.cfg.DeleteDebounce),
			)
		},
	}
}
