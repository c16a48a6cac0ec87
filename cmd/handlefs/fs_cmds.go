package main

import (
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/marmos91/handlefs/pkg/handle"
	"github.com/marmos91/handlefs/pkg/vfs"
	"github.com/spf13/cobra"
)

func printStat(w io.Writer, name string, st *vfs.Stat) {
	fmt.Fprintf(w, "  File: %s\n", name)
	fmt.Fprintf(w, "  Type: %s\n", st.FileType())
	fmt.Fprintf(w, "  Size: %d\tBlocks: %d\tIO Block: %d\n", st.Size, st.Blocks, st.Blksize)
	fmt.Fprintf(w, " Inode: %d\tLinks: %d\n", st.Ino, st.Nlink)
	fmt.Fprintf(w, "Access: %04o\tUid: %d\tGid: %d\n", st.Mode&0o7777, st.UID, st.GID)
	fmt.Fprintf(w, "Modify: %s\n", st.Mtime.Format("2006-01-02 15:04:05.000000000 -0700"))
	fmt.Fprintf(w, "Change: %s\n", st.Ctime.Format("2006-01-02 15:04:05.000000000 -0700"))
}

type statCmd struct {
	noFollow bool
}

func (c *statCmd) registerFlags() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stat <path>",
		Short: "Show the attributes of a path",
	}
	cmd.Flags().BoolVar(&c.noFollow, "no-follow", false, "do not follow a final symlink")
	return cmd
}

func (c *statCmd) run(cl *cli, cmd *cobra.Command, args []string) error {
	if err := requireArgs(args, 1, "stat <path>"); err != nil {
		return err
	}
	h, err := cl.resolve(args[0], !c.noFollow)
	if err != nil {
		return err
	}
	defer h.Close()

	st, err := h.Stat(cl.ctx)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	printStat(w, absolute(args[0]), st)
	fmt.Fprintf(w, "  UUID: %s\n", h.UUID())
	return nil
}

type uuidCmd struct{}

func (c *uuidCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "uuid <id>",
		Short: "Show the attributes of an object by identifier",
	}
}

func (c *uuidCmd) run(cl *cli, cmd *cobra.Command, args []string) error {
	if err := requireArgs(args, 1, "uuid <id>"); err != nil {
		return err
	}
	vol, err := cl.volume()
	if err != nil {
		return err
	}
	h, err := vol.OpenByUUID(cl.ctx, args[0])
	if err != nil {
		return err
	}
	defer h.Close()

	st, err := h.Stat(cl.ctx)
	if err != nil {
		return err
	}
	printStat(cmd.OutOrStdout(), h.UUID(), st)
	return nil
}

type lsCmd struct{}

func (c *lsCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [path]",
		Short: "List a directory",
		Args:  cobra.MaximumNArgs(1),
	}
}

func (c *lsCmd) run(cl *cli, cmd *cobra.Command, args []string) error {
	p := "/"
	if len(args) == 1 {
		p = args[0]
	}
	h, err := cl.resolve(p, true)
	if err != nil {
		return err
	}
	defer h.Close()

	fd, err := h.OpenDir(cl.ctx)
	if err != nil {
		return err
	}
	defer fd.Close()

	w := cmd.OutOrStdout()
	for {
		de, err := fd.ReadDirPlus(cl.ctx, vfs.ReaddirStat)
		if err != nil {
			return err
		}
		if de == nil {
			return nil
		}
		if de.Name == "." || de.Name == ".." {
			continue
		}
		fmt.Fprintf(w, "%-9s %04o %10d  %s\n", vfs.FileTypeFromDT(de.Type), de.Stat.Mode&0o7777, de.Stat.Size, de.Name)
	}
}

type catCmd struct{}

func (c *catCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <path>",
		Short: "Print a file, a directory listing or a symlink target",
	}
}

func (c *catCmd) run(cl *cli, cmd *cobra.Command, args []string) error {
	if err := requireArgs(args, 1, "cat <path>"); err != nil {
		return err
	}
	h, err := cl.resolve(args[0], false)
	if err != nil {
		return err
	}
	defer h.Close()

	contents, err := h.Contents(cl.ctx)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	switch contents.Type {
	case vfs.FileTypeRegular:
		_, err = w.Write(contents.Data)
	case vfs.FileTypeDirectory:
		for _, name := range contents.Names {
			if _, err = fmt.Fprintln(w, name); err != nil {
				break
			}
		}
	case vfs.FileTypeSymlink:
		_, err = fmt.Fprintln(w, contents.Target)
	}
	return err
}

type putCmd struct {
	exclusive bool
}

func (c *putCmd) registerFlags() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <local> <path>",
		Short: "Copy a local file into the volume",
	}
	cmd.Flags().BoolVar(&c.exclusive, "exclusive", false, "fail if the destination exists")
	return cmd
}

func (c *putCmd) run(cl *cli, cmd *cobra.Command, args []string) error {
	if err := requireArgs(args, 2, "put <local> <path>"); err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	dir, name := splitParent(args[1])
	parent, err := cl.resolve(dir, true)
	if err != nil {
		return err
	}
	defer parent.Close()

	flags := os.O_WRONLY
	if c.exclusive {
		flags |= os.O_EXCL
	}
	h, err := parent.Create(cl.ctx, name, flags, &handle.CreateOptions{})
	if err != nil {
		return err
	}
	defer h.Close()

	fd, err := h.Open(cl.ctx, os.O_WRONLY|os.O_TRUNC)
	if err != nil {
		return err
	}
	defer fd.Close()

	n, err := fd.Pwrite(cl.ctx, data, 0)
	if err != nil {
		return err
	}
	if err := fd.Fsync(cl.ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d bytes (%s)\n", absolute(args[1]), n, h.UUID())
	return nil
}

type mkdirCmd struct {
	parents bool
}

func (c *mkdirCmd) registerFlags() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a directory",
	}
	cmd.Flags().BoolVarP(&c.parents, "parents", "p", false, "create missing parents, no error if existing")
	return cmd
}

func (c *mkdirCmd) run(cl *cli, cmd *cobra.Command, args []string) error {
	if err := requireArgs(args, 1, "mkdir <path>"); err != nil {
		return err
	}
	if !c.parents {
		return mkdir(cl, args[0])
	}

	target := absolute(args[0])
	if target == "/" {
		return nil
	}
	for i := 1; i <= len(target); i++ {
		if i < len(target) && target[i] != '/' {
			continue
		}
		err := mkdir(cl, target[:i])
		if err != nil && vfs.Errno(err) != syscall.EEXIST {
			return err
		}
	}
	return nil
}

func mkdir(cl *cli, p string) error {
	dir, name := splitParent(p)
	parent, err := cl.resolve(dir, true)
	if err != nil {
		return err
	}
	defer parent.Close()

	h, err := parent.Mkdir(cl.ctx, name, &handle.MkdirOptions{})
	if err != nil {
		return err
	}
	return h.Close()
}

type rmCmd struct{}

func (c *rmCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>",
		Short: "Remove a file, a symlink or an empty directory",
	}
}

func (c *rmCmd) run(cl *cli, cmd *cobra.Command, args []string) error {
	if err := requireArgs(args, 1, "rm <path>"); err != nil {
		return err
	}
	dir, name := splitParent(args[0])
	if name == "/" {
		return &vfs.Error{Op: "h_unlink", Errno: syscall.EBUSY}
	}
	parent, err := cl.resolve(dir, true)
	if err != nil {
		return err
	}
	defer parent.Close()
	return parent.Unlink(cl.ctx, name)
}
