package cmd

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/pinpt/gitpack/gitpack"
	"github.com/pinpt/gitpack/gitpack/object"
	"github.com/pinpt/gitpack/gitpack/pkg/logger"
	"github.com/pinpt/gitpack/gitpack/store"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:  "gitpack <packfile...>",
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		// potentially enable profiling
		p, _ := cmd.Flags().GetString("profile")
		if p != "" {
			dir, _ := ioutil.TempDir("", "profile")
			defer func() {
				fn := filepath.Join(dir, p+".pprof")
				abs, _ := filepath.Abs(os.Args[0])
				fmt.Printf("to view profile, run `go tool pprof --pdf %s %s`\n", abs, fn)
			}()
			switch p {
			case "cpu":
				{
					defer profile.Start(profile.CPUProfile, profile.ProfilePath(dir), profile.Quiet).Stop()
				}
			case "mem":
				{
					defer profile.Start(profile.MemProfile, profile.ProfilePath(dir), profile.Quiet).Stop()
				}
			case "trace":
				{
					defer profile.Start(profile.TraceProfile, profile.ProfilePath(dir), profile.Quiet).Stop()
				}
			case "block":
				{
					defer profile.Start(profile.BlockProfile, profile.ProfilePath(dir), profile.Quiet).Stop()
				}
			case "mutex":
				{
					defer profile.Start(profile.MutexProfile, profile.ProfilePath(dir), profile.Quiet).Stop()
				}
			default:
				{
					panic("unexpected profile: " + p)
				}
			}
		}
		eng, st, err := newEngine(cmd)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		verbose, _ := cmd.Flags().GetBool("verbose")
		started := time.Now()
		var entries int
		for _, fn := range args {
			data, err := ioutil.ReadFile(fn)
			if err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
			pk, err := eng.ParsePack(data)
			if err != nil {
				fmt.Printf("%s %s: %v\n", color.RedString("FAIL"), fn, err)
				os.Exit(1)
			}
			for _, e := range pk.Entries {
				entries++
				if verbose {
					fmt.Printf("[%s] %s size=%v offset=%v crc=%08x\n", color.CyanString(e.SHA1.String()[0:8]), color.MagentaString(e.Kind.String()), e.Size, e.Offset, e.CRC32)
				}
			}
			counts := pk.KindCounts()
			fmt.Printf("%s %s entries=%v,commits=%v,trees=%v,blobs=%v,tags=%v,checksum=%s\n", color.GreenString("OK"), fn, len(pk.Entries), counts[object.KindCommit], counts[object.KindTree], counts[object.KindBlob], counts[object.KindTag], color.YellowString(pk.Checksum.String()))
		}
		if ds, ok := st.(*store.DiskStore); ok {
			if err := ds.Save(); err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
		}
		fmt.Printf("finished processing %d entries from %d packs in %v\n", entries, len(args), time.Since(started))
	},
}

// newEngine wires an engine against the --store directory, or a throwaway
// in-memory store when the flag is unset.
func newEngine(cmd *cobra.Command) (*gitpack.Engine, store.Store, error) {
	var st store.Store
	dir, _ := cmd.Flags().GetString("store")
	if dir != "" {
		ds, err := store.OpenDiskStore(dir)
		if err != nil {
			return nil, nil, err
		}
		st = ds
	} else {
		st = store.NewMemStore()
	}
	var log logger.Logger = logger.Discard{}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		log = logger.NewDefaultLogger(os.Stderr)
	}
	return gitpack.New(gitpack.Opts{Store: st, Logger: log}), st, nil
}

// Execute sets the root command's flags and runs it. This is called by
// main.main() after RegisterRepack has added the subcommand. It only needs
// to happen once to the rootCmd.
func Execute() {
	rootCmd.PersistentFlags().String("store", "", "object store directory, empty for in-memory")
	rootCmd.PersistentFlags().Bool("debug", false, "log engine internals to stderr")
	rootCmd.Flags().Bool("verbose", false, "print one line per pack entry")
	rootCmd.Flags().String("profile", "", "one of mem, mutex, cpu, block, trace or empty to disable")
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
