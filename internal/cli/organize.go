package cli

import (
	"context"
	"errors"

	"github.com/nikbrunner/minimark/internal/model"
	"github.com/nikbrunner/minimark/internal/selection"
)

// Execute implements the go-flags Commander interface for MkgroupCommand.
func (c *MkgroupCommand) Execute(_ []string) error {
	return c.rt.withApp(func(ctx context.Context, a *App) error {
		g, err := a.Service.CreateGroup(ctx, c.Args.Title, model.StringPtr(c.Parent))
		if err != nil {
			return err
		}
		return c.rt.printGroup("Created group", g)
	})
}

// Execute implements the go-flags Commander interface for GroupFromCommand.
func (c *GroupFromCommand) Execute(_ []string) error {
	return c.rt.withApp(func(ctx context.Context, a *App) error {
		g, err := a.Service.CreateGroupFromLink(ctx, c.Args.LinkID, c.Args.Title)
		if err != nil {
			return err
		}
		return c.rt.printGroup("Created group", g)
	})
}

func (rt *runtime) printGroup(verb string, g model.Bookmark) error {
	if rt.globals.JSON {
		return rt.printJSON(g.Record())
	}
	rt.printf("%s %q (%s)\n", verb, g.Title, g.ID)
	return nil
}

// Execute implements the go-flags Commander interface for MvCommand.
func (c *MvCommand) Execute(_ []string) error {
	targets := 0
	for _, set := range []bool{c.To != "", c.Top, c.NewGroup != ""} {
		if set {
			targets++
		}
	}
	if targets != 1 {
		return errors.New("exactly one of --to, --top or --new-group is required")
	}

	return c.rt.withApp(func(ctx context.Context, a *App) error {
		if c.Top {
			var res model.BulkResult
			for _, id := range c.Args.IDs {
				res.Record(a.Service.Move(ctx, id, nil))
			}
			return c.rt.printBulk("Moved", res)
		}

		m := selection.NewManager(a.Service)
		m.Set.AddBatch(c.Args.IDs)

		if c.NewGroup != "" {
			groupID, res, err := m.MoveSelectedToNewGroup(ctx, c.NewGroup, model.StringPtr(c.Parent))
			if err != nil {
				return err
			}
			if !c.rt.globals.JSON {
				c.rt.printf("Created group %s\n", groupID)
			}
			return c.rt.printBulk("Moved", res)
		}
		return c.rt.printBulk("Moved", m.MoveSelectedToGroup(ctx, c.To))
	})
}

// Execute implements the go-flags Commander interface for RmCommand.
func (c *RmCommand) Execute(_ []string) error {
	return c.rt.withApp(func(ctx context.Context, a *App) error {
		if c.Cascade {
			var res model.BulkResult
			for _, id := range c.Args.IDs {
				res.Record(a.Service.DeleteItem(ctx, id, true))
			}
			return c.rt.printBulk("Deleted", res)
		}

		m := selection.NewManager(a.Service)
		m.Set.AddBatch(c.Args.IDs)
		return c.rt.printBulk("Deleted", m.DeleteSelected(ctx))
	})
}

// Execute implements the go-flags Commander interface for PinCommand.
func (c *PinCommand) Execute(_ []string) error {
	return c.rt.withApp(func(ctx context.Context, a *App) error {
		pinned, err := a.Service.TogglePin(ctx, c.Args.ID)
		if err != nil {
			return err
		}
		if c.rt.globals.JSON {
			return c.rt.printJSON(map[string]bool{"pinned": pinned})
		}
		if pinned {
			c.rt.printf("Pinned %s\n", c.Args.ID)
		} else {
			c.rt.printf("Unpinned %s\n", c.Args.ID)
		}
		return nil
	})
}

// Execute implements the go-flags Commander interface for ArchiveCommand.
func (c *ArchiveCommand) Execute(_ []string) error {
	return c.rt.withApp(func(ctx context.Context, a *App) error {
		if err := a.Service.Archive(ctx, c.Args.ID, !c.Undo); err != nil {
			return err
		}
		if c.Undo {
			c.rt.printf("Restored %s\n", c.Args.ID)
		} else {
			c.rt.printf("Archived %s\n", c.Args.ID)
		}
		return nil
	})
}

// Execute implements the go-flags Commander interface for ParamCommand.
func (c *ParamCommand) Execute(_ []string) error {
	return c.rt.withApp(func(ctx context.Context, a *App) error {
		on, err := a.Service.ToggleDynamicParam(ctx, c.Args.ID, c.Args.Key)
		if err != nil {
			return err
		}
		if c.rt.globals.JSON {
			return c.rt.printJSON(map[string]any{"key": c.Args.Key, "dynamic": on})
		}
		if on {
			c.rt.printf("%s is now dynamic\n", c.Args.Key)
		} else {
			c.rt.printf("%s is no longer dynamic\n", c.Args.Key)
		}
		return nil
	})
}
