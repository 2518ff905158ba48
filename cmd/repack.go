package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/pinpt/gitpack/gitpack/object"
	"github.com/pinpt/gitpack/gitpack/store"
	"github.com/spf13/cobra"
)

var repackCmd = &cobra.Command{
	Use:  "repack <commit-sha...>",
	Args: cobra.RangeArgs(1, 999),
	Run: func(cmd *cobra.Command, args []string) {
		roots := make([]object.ID, 0, len(args))
		for _, arg := range args {
			id, err := object.IDFromHex(arg)
			if err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
			roots = append(roots, id)
		}
		eng, st, err := newEngine(cmd)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		data, err := eng.BuildPack(roots)
		if err != nil {
			fmt.Printf("%s %v\n", color.RedString("FAIL"), err)
			os.Exit(1)
		}
		// Round trip the fresh pack before persisting it: every entry
		// must parse back and hash to an object the store holds.
		pk, err := eng.ParsePack(data)
		if err != nil {
			fmt.Printf("%s pack does not parse back: %v\n", color.RedString("FAIL"), err)
			os.Exit(1)
		}
		for _, e := range pk.Entries {
			kind, obj, err := st.Retrieve(e.SHA1, e.Kind)
			if err != nil {
				fmt.Printf("%s entry %s not in store: %v\n", color.RedString("FAIL"), e.SHA1, err)
				os.Exit(1)
			}
			if kind != e.Kind || len(obj) != len(e.Payload) {
				fmt.Printf("%s entry %s differs from stored object\n", color.RedString("FAIL"), e.SHA1)
				os.Exit(1)
			}
		}
		for _, id := range roots {
			if packed, _ := st.FindPacked(id); !packed && pk.ByID(id) == nil {
				fmt.Printf("%s root %s missing from pack\n", color.RedString("FAIL"), id)
				os.Exit(1)
			}
		}
		if err := st.PersistPack(data); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		if ds, ok := st.(*store.DiskStore); ok {
			if err := ds.Save(); err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
		}
		fmt.Printf("%s wrote pack %s (%d entries, %d bytes) from %d roots\n", color.GreenString("OK"), color.YellowString(pk.Checksum.String()), len(pk.Entries), len(data), len(roots))
	},
}

func RegisterRepack() {
	cmd := repackCmd
	rootCmd.AddCommand(cmd)
}
