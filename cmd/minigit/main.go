package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"minigit/internal/export"
	"minigit/internal/repo"
	"minigit/internal/watch"
)

var rootCmd = &cobra.Command{
	Use:   "minigit",
	Short: "Minigit is a minimal content-addressed staging store",
	Long: `Minigit hashes file contents, stores each unique blob exactly once
under its digest, and keeps a durable index mapping repository paths to
the digest of their currently staged content.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	var initCmd = &cobra.Command{
		Use:   "init",
		Short: "Initialize a new minigit repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}

			created, err := repo.Init(dir)
			if err != nil {
				return fmt.Errorf("initializing repository: %w", err)
			}

			if created {
				fmt.Println("Initialized empty minigit repository in", repo.ControlDir(dir))
			} else {
				fmt.Println(repo.ControlDirName, "already exists")
			}
			return nil
		},
	}

	var addCmd = &cobra.Command{
		Use:   "add [paths...]",
		Short: "Stage files or directories",
		Long: `Stages the given paths. Directories are expanded recursively;
arguments that name neither a file nor a directory are skipped with a
warning. The index is rewritten once after all arguments are processed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			result, err := r.Add(args)
			if err != nil {
				return err
			}

			yellow := color.New(color.FgYellow).SprintFunc()
			for _, p := range result.Skipped {
				fmt.Fprintf(os.Stderr, "%s %s\n", yellow("Skipping (not found):"), p)
			}

			fmt.Printf("Staged %d path(s).\n", result.Staged)
			return nil
		},
	}

	var statusCmd = &cobra.Command{
		Use:   "status",
		Short: "List staged paths and their digests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			idx, err := r.LoadIndex()
			if err != nil {
				return err
			}

			if idx.Len() == 0 {
				fmt.Println("Nothing staged")
				return nil
			}

			green := color.New(color.FgGreen).SprintFunc()
			for _, p := range idx.Paths() {
				d, _ := idx.Get(p)
				fmt.Printf("%s  %s\n", green(d[:8]), p)
			}
			fmt.Printf("\n%d path(s) staged.\n", idx.Len())
			return nil
		},
	}

	var showCmd = &cobra.Command{
		Use:   "show <digest>",
		Short: "Write a stored blob's bytes to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			content, err := r.Objects.Get(args[0])
			if err != nil {
				return err
			}

			_, err = os.Stdout.Write(content)
			return err
		},
	}

	var exportOut string
	var exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Write the staged tree as a zstd-compressed tar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			idx, err := r.LoadIndex()
			if err != nil {
				return err
			}

			f, err := os.Create(exportOut)
			if err != nil {
				return fmt.Errorf("creating %s: %w", exportOut, err)
			}
			defer f.Close()

			if err := export.Write(f, idx, r.Objects); err != nil {
				return err
			}

			fmt.Printf("Exported %d path(s) to %s\n", idx.Len(), exportOut)
			return nil
		},
	}
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "staged.tar.zst", "Output file")

	var watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Stage files automatically as they change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			w, err := watch.New(r, r.Logger, r.Config.WatchDebounce())
			if err != nil {
				return fmt.Errorf("starting watcher: %w", err)
			}
			defer w.Close()

			go w.Run()
			fmt.Println("Watching for changes (Ctrl-C to stop)")

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig

			return nil
		},
	}

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(watchCmd)
}

func openRepo() (*repo.Repository, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting current directory: %w", err)
	}

	return repo.Open(cwd, repo.Options{})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
