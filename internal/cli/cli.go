// Package cli implements the minimark command line.
package cli

import (
	"errors"
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Ls          *LsCommand
	Add         *AddCommand
	Open        *OpenCommand
	Copy        *CopyCommand
	Rename      *RenameCommand
	Replace     *ReplaceCommand
	Mkgroup     *MkgroupCommand
	GroupFrom   *GroupFromCommand
	Mv          *MvCommand
	Rm          *RmCommand
	Pin         *PinCommand
	Archive     *ArchiveCommand
	Param       *ParamCommand
	Check       *CheckCommand
	Dead        *DeadCommand
	Autoarchive *AutoarchiveCommand
	Words       *WordsCommand
	Import      *ImportCommand
	Export      *ExportCommand
	Pick        *PickCommand
	Serve       *ServeCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(rt *runtime) (*goflags.Parser, *commands) {
	parser := goflags.NewParser(rt.globals, goflags.Default)
	parser.Name = "minimark"
	parser.LongDescription = "Minimal bookmark organizer: paste links, group them by domain and keep them alive."

	cmds := &commands{
		Ls:          &LsCommand{rt: rt},
		Add:         &AddCommand{rt: rt},
		Open:        &OpenCommand{rt: rt},
		Copy:        &CopyCommand{rt: rt},
		Rename:      &RenameCommand{rt: rt},
		Replace:     &ReplaceCommand{rt: rt},
		Mkgroup:     &MkgroupCommand{rt: rt},
		GroupFrom:   &GroupFromCommand{rt: rt},
		Mv:          &MvCommand{rt: rt},
		Rm:          &RmCommand{rt: rt},
		Pin:         &PinCommand{rt: rt},
		Archive:     &ArchiveCommand{rt: rt},
		Param:       &ParamCommand{rt: rt},
		Check:       &CheckCommand{rt: rt},
		Dead:        &DeadCommand{rt: rt},
		Autoarchive: &AutoarchiveCommand{rt: rt},
		Words:       &WordsCommand{rt: rt},
		Import:      &ImportCommand{rt: rt},
		Export:      &ExportCommand{rt: rt},
		Pick:        &PickCommand{rt: rt},
		Serve:       &ServeCommand{rt: rt},
	}

	parser.AddCommand("ls", "List items", "List the items of the top level, a group or the archive.", cmds.Ls)
	parser.AddCommand("add", "Add a link", "Add a link from an argument or the clipboard. Its title is fetched and it is grouped with links of the same domain.", cmds.Add)
	parser.AddCommand("open", "Open a link", "Open a link in the browser and record the click. Archived links are restored.", cmds.Open)
	parser.AddCommand("copy", "Copy a link's URL", "Copy a link's URL to the clipboard.", cmds.Copy)
	parser.AddCommand("rename", "Rename an item", "Set the title of a link or group.", cmds.Rename)
	parser.AddCommand("replace", "Replace text in titles", "Replace text in the titles of the listed items.", cmds.Replace)
	parser.AddCommand("mkgroup", "Create a group", "Create an empty group.", cmds.Mkgroup)
	parser.AddCommand("group-from", "Wrap a link in a new group", "Create a group next to a link and move the link into it.", cmds.GroupFrom)
	parser.AddCommand("mv", "Move items", "Move items into a group, a new group or the top level.", cmds.Mv)
	parser.AddCommand("rm", "Delete items", "Delete items. Groups are ungrouped unless --cascade is given.", cmds.Rm)
	parser.AddCommand("pin", "Toggle pin", "Pin or unpin an item.", cmds.Pin)
	parser.AddCommand("archive", "Archive a link", "Move a link into the archive, or out of it with --undo.", cmds.Archive)
	parser.AddCommand("param", "Toggle a dynamic parameter", "Mark or unmark a query parameter of a link as filled in on open.", cmds.Param)
	parser.AddCommand("check", "Check links", "Check whether links are still reachable.", cmds.Check)
	parser.AddCommand("dead", "List dead links", "List links that have been offline for a week, or remove them.", cmds.Dead)
	parser.AddCommand("autoarchive", "Archive unused links", "Archive links that have not been opened within the threshold.", cmds.Autoarchive)
	parser.AddCommand("words", "Title word frequencies", "Show the most frequent title words and act on the links containing them.", cmds.Words)
	parser.AddCommand("import", "Import bookmarks", "Import a JSON export or a browser HTML bookmark file.", cmds.Import)
	parser.AddCommand("export", "Export bookmarks", "Export all bookmarks as JSON or browser HTML.", cmds.Export)
	parser.AddCommand("pick", "Search and open", "Search bookmarks, pick one and open it.", cmds.Pick)
	parser.AddCommand("serve", "Run the local API", "Run the local HTTP API and the background link checker.", cmds.Serve)

	return parser, cmds
}

// Run is the main entry point for the minimark CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	return newRuntime(version).run(args)
}

func (rt *runtime) run(args []string) error {
	// go-flags requires a subcommand, but --version is valid without one.
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Fprintf(rt.out, "minimark %s\n", rt.version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	rt.globals = &GlobalFlags{}
	parser, _ := buildParser(rt)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	var flagsErr *goflags.Error
	if errors.As(err, &flagsErr) && flagsErr.Type == goflags.ErrHelp {
		return nil
	}
	return err
}
