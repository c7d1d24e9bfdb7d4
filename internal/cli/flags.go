package cli

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" short:"v" description:"Enable debug logging"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// ScopeFlags select the list a command works on.
type ScopeFlags struct {
	Group   string `long:"group" short:"g" description:"Group id to list (default: top level)"`
	Archive bool   `long:"archive" short:"a" description:"List the archive"`
	Search  string `long:"search" short:"s" description:"Only items matching this term"`
	Fuzzy   bool   `long:"fuzzy" description:"Match the search term fuzzily"`
}

// LsCommand lists the items of a scope.
type LsCommand struct {
	ScopeFlags
	Sort  string `long:"sort" description:"Sort key (default, addDateAsc, clicksDesc, titleAsc, ...)"`
	Order string `long:"order" description:"Group/link order: mixed | groupsFirst | linksFirst"`

	rt *runtime
}

// AddCommand pastes a URL.
type AddCommand struct {
	Group     string `long:"group" short:"g" description:"Add into this group"`
	Clipboard bool   `long:"clipboard" short:"c" description:"Read the URL from the clipboard"`
	NoWait    bool   `long:"no-wait" description:"Return before the title has been fetched"`
	Args      struct {
		URL string `positional-arg-name:"url"`
	} `positional-args:"yes"`

	rt *runtime
}

// OpenCommand opens a link in the browser.
type OpenCommand struct {
	Params []string `long:"param" short:"p" description:"Dynamic parameter value as key=value (repeatable)"`
	Print  bool     `long:"print" description:"Print the URL instead of opening it"`
	Args   struct {
		ID string `positional-arg-name:"id" required:"yes"`
	} `positional-args:"yes"`

	rt *runtime
}

// CopyCommand copies a link's URL to the clipboard.
type CopyCommand struct {
	Args struct {
		ID string `positional-arg-name:"id" required:"yes"`
	} `positional-args:"yes"`

	rt *runtime
}

// RenameCommand sets an item's title.
type RenameCommand struct {
	Args struct {
		ID    string `positional-arg-name:"id" required:"yes"`
		Title string `positional-arg-name:"title" required:"yes"`
	} `positional-args:"yes"`

	rt *runtime
}

// ReplaceCommand replaces text in the titles of a scope.
type ReplaceCommand struct {
	ScopeFlags
	Find    string `long:"find" short:"f" description:"Text to find (case-insensitive)" required:"yes"`
	Replace string `long:"replace" short:"r" description:"Replacement text"`

	rt *runtime
}

// MkgroupCommand creates an empty group.
type MkgroupCommand struct {
	Parent string `long:"parent" description:"Parent group id (default: top level)"`
	Args   struct {
		Title string `positional-arg-name:"title"`
	} `positional-args:"yes"`

	rt *runtime
}

// GroupFromCommand wraps a link in a new group.
type GroupFromCommand struct {
	Args struct {
		LinkID string `positional-arg-name:"link-id" required:"yes"`
		Title  string `positional-arg-name:"title"`
	} `positional-args:"yes"`

	rt *runtime
}

// MvCommand moves items.
type MvCommand struct {
	To       string `long:"to" description:"Target group id"`
	Top      bool   `long:"top" description:"Move to the top level"`
	NewGroup string `long:"new-group" description:"Create a group with this title and move into it"`
	Parent   string `long:"parent" description:"Parent of the new group"`
	Args     struct {
		IDs []string `positional-arg-name:"id" required:"1"`
	} `positional-args:"yes"`

	rt *runtime
}

// RmCommand deletes items.
type RmCommand struct {
	Cascade bool `long:"cascade" short:"r" description:"Delete groups with everything inside them"`
	Args    struct {
		IDs []string `positional-arg-name:"id" required:"1"`
	} `positional-args:"yes"`

	rt *runtime
}

// PinCommand toggles the pin of an item.
type PinCommand struct {
	Args struct {
		ID string `positional-arg-name:"id" required:"yes"`
	} `positional-args:"yes"`

	rt *runtime
}

// ArchiveCommand archives or restores a link.
type ArchiveCommand struct {
	Undo bool `long:"undo" short:"u" description:"Restore from the archive"`
	Args struct {
		ID string `positional-arg-name:"id" required:"yes"`
	} `positional-args:"yes"`

	rt *runtime
}

// ParamCommand toggles a dynamic URL parameter.
type ParamCommand struct {
	Args struct {
		ID  string `positional-arg-name:"id" required:"yes"`
		Key string `positional-arg-name:"key" required:"yes"`
	} `positional-args:"yes"`

	rt *runtime
}

// CheckCommand runs liveness checks.
type CheckCommand struct {
	Force bool `long:"force" description:"Also refresh the title"`
	All   bool `long:"all" description:"Check every link that is due"`
	Args  struct {
		ID string `positional-arg-name:"id"`
	} `positional-args:"yes"`

	rt *runtime
}

// DeadCommand lists or removes dead links.
type DeadCommand struct {
	Remove bool `long:"remove" description:"Delete the dead links"`

	rt *runtime
}

// AutoarchiveCommand archives links not opened for a while.
type AutoarchiveCommand struct {
	Threshold string `long:"threshold" short:"t" description:"1m | 6m | 1y | 5y | 10y (default: from config)"`

	rt *runtime
}

// WordsCommand shows title word frequencies and acts on links matching
// chosen words.
type WordsCommand struct {
	Top      int    `long:"top" short:"n" description:"Show at most this many words" default:"20"`
	Delete   bool   `long:"delete" description:"Delete the links matching the given words"`
	MoveTo   string `long:"move-to" description:"Move the links matching the given words into this group"`
	NewGroup string `long:"new-group" description:"Move the links matching the given words into a new group"`
	Args     struct {
		Words []string `positional-arg-name:"word"`
	} `positional-args:"yes"`

	rt *runtime
}

// ImportCommand imports a bookmark file.
type ImportCommand struct {
	Format string `long:"format" description:"json | html (default: from the file extension)"`
	Args   struct {
		File string `positional-arg-name:"file" required:"yes"`
	} `positional-args:"yes"`

	rt *runtime
}

// ExportCommand writes all bookmarks to a file.
type ExportCommand struct {
	Format string `long:"format" description:"json | html" default:"json"`
	Args   struct {
		Path string `positional-arg-name:"path" description:"Output file, - for stdout"`
	} `positional-args:"yes"`

	rt *runtime
}

// PickCommand searches interactively and opens the chosen link.
type PickCommand struct {
	Args struct {
		Query []string `positional-arg-name:"query" required:"1"`
	} `positional-args:"yes"`

	rt *runtime
}

// ServeCommand runs the local API and the background checker.
type ServeCommand struct {
	Addr string `long:"addr" description:"Listen address (default: from config)"`

	rt *runtime
}
