// Command ignitedb is a thin CLI wrapper around pkg/ignite, useful for
// manual inspection and scripting against a data directory without
// writing Go.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ignitedb/ignite/pkg/ignite"
	"github.com/ignitedb/ignite/pkg/options"
	"github.com/spf13/cobra"
)

var dataDir string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ignitedb",
		Short: "Inspect and drive an ignitedb data directory",
	}
	root.PersistentFlags().StringVar(&dataDir, "data-dir", options.DefaultDataDir, "path to the database's data directory")

	root.AddCommand(newPutCmd())
	root.AddCommand(newGetCmd())
	root.AddCommand(newDeleteCmd())
	root.AddCommand(newScanCmd())
	root.AddCommand(newFlushCmd())
	root.AddCommand(newStatsCmd())

	return root
}

func open(ctx context.Context) (*ignite.Instance, error) {
	return ignite.NewInstance(ctx, "ignitedb-cli", options.WithDefaultOptions(), options.WithDataDir(dataDir))
}

func newPutCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "put <key> <value>",
		Short: "Store a key/value pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := open(ctx)
			if err != nil {
				return err
			}
			defer db.Close(ctx)

			if ttl > 0 {
				return db.SetX(ctx, args[0], []byte(args[1]), ttl)
			}
			return db.Set(ctx, args[0], []byte(args[1]))
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "expire the key after this duration (the deadline is held in memory and is not kept after this command exits)")
	return cmd
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Fetch the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := open(ctx)
			if err != nil {
				return err
			}
			defer db.Close(ctx)

			value, err := db.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if value == nil {
				return fmt.Errorf("key not found: %s", args[0])
			}
			fmt.Println(string(value))
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Remove a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := open(ctx)
			if err != nil {
				return err
			}
			defer db.Close(ctx)
			return db.Delete(ctx, args[0])
		},
	}
}

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "List every live key and value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := open(ctx)
			if err != nil {
				return err
			}
			defer db.Close(ctx)

			next, err := db.Scan(ctx)
			if err != nil {
				return err
			}
			for {
				key, value, ok, err := next()
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
				fmt.Printf("%s\t%s\n", key, value)
			}
		},
	}
}

func newFlushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Force an immediate memtable flush",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := open(ctx)
			if err != nil {
				return err
			}
			defer db.Close(ctx)
			return db.Flush(ctx)
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the number of live keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := open(ctx)
			if err != nil {
				return err
			}
			defer db.Close(ctx)

			next, err := db.Scan(ctx)
			if err != nil {
				return err
			}
			count := 0
			for {
				_, _, ok, err := next()
				if err != nil {
					return err
				}
				if !ok {
					break
				}
				count++
			}
			fmt.Printf("live keys: %d\n", count)
			return nil
		},
	}
}
