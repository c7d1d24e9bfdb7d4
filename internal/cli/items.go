package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nikbrunner/minimark/internal/model"
	"github.com/nikbrunner/minimark/internal/picker"
	"github.com/nikbrunner/minimark/internal/search"
	"github.com/nikbrunner/minimark/internal/service"
	"github.com/nikbrunner/minimark/internal/view"
)

// Execute implements the go-flags Commander interface for LsCommand.
func (c *LsCommand) Execute(_ []string) error {
	return c.rt.withApp(func(_ context.Context, a *App) error {
		opts, err := c.options(a)
		if err != nil {
			return err
		}
		return c.rt.printItems(a.Service.View(opts))
	})
}

func (c *LsCommand) options(a *App) (view.Options, error) {
	sortName := c.Sort
	if sortName == "" {
		sortName = a.Config.View.Sort
	}
	sortKey, err := view.ParseSortKey(sortName)
	if err != nil {
		return view.Options{}, err
	}

	orderName := c.Order
	if orderName == "" {
		orderName = a.Config.View.GroupLinkOrder
	}
	order, err := view.ParseGroupLinkOrder(orderName)
	if err != nil {
		return view.Options{}, err
	}

	return view.Options{
		Scope:  c.scope(),
		Search: c.Search,
		Fuzzy:  c.Fuzzy || a.Config.View.FuzzySearch,
		Sort:   sortKey,
		Order:  order,
	}, nil
}

// Execute implements the go-flags Commander interface for AddCommand.
func (c *AddCommand) Execute(_ []string) error {
	rawURL := c.Args.URL
	if c.Clipboard {
		text, err := c.rt.readClipboard()
		if err != nil {
			return fmt.Errorf("reading clipboard: %w", err)
		}
		rawURL = text
	}
	if strings.TrimSpace(rawURL) == "" {
		return errors.New("a URL argument or --clipboard is required")
	}

	return c.rt.withApp(func(ctx context.Context, a *App) error {
		p, err := a.Service.Paste(ctx, rawURL, model.StringPtr(c.Group))
		if err != nil {
			return err
		}
		if c.NoWait {
			return c.printProvisional(p.Link)
		}

		res, err := p.Wait(ctx)
		if err != nil {
			return err
		}
		return c.printResult(res)
	})
}

func (c *AddCommand) printProvisional(b model.Bookmark) error {
	if c.rt.globals.JSON {
		return c.rt.printJSON(listed([]model.Bookmark{b})[0])
	}
	c.rt.printf("Adding %s (%s)\n", b.URL, b.ID)
	return nil
}

func (c *AddCommand) printResult(res service.IngestResult) error {
	if c.rt.globals.JSON {
		return c.rt.printJSON(map[string]any{
			"link":         res.Link.Record(),
			"groupId":      res.Grouping.GroupID,
			"createdGroup": res.Grouping.Created,
			"moved":        res.Grouping.Moved,
			"navigateTo":   res.NavigateTo,
		})
	}

	c.rt.printf("Added %q (%s)\n", res.Link.Title, res.Link.ID)
	switch {
	case res.Grouping.Created:
		c.rt.printf("Created group %s with %d link(s)\n", res.Grouping.GroupID, res.Grouping.Moved)
	case res.Grouping.Moved > 0:
		c.rt.printf("Moved into group %s\n", res.Grouping.GroupID)
	}
	return nil
}

// Execute implements the go-flags Commander interface for OpenCommand.
func (c *OpenCommand) Execute(_ []string) error {
	values := make(map[string]string, len(c.Params))
	for _, p := range c.Params {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return fmt.Errorf("invalid --param %q, want key=value", p)
		}
		values[k] = v
	}

	return c.rt.withApp(func(ctx context.Context, a *App) error {
		b, err := a.Service.Get(c.Args.ID)
		if err != nil {
			return err
		}
		if !b.IsLink() {
			return fmt.Errorf("%s is a group", b.Title)
		}
		return c.rt.openLink(ctx, a, b, values, c.Print)
	})
}

// openLink records the click and opens the link, or prints its URL.
func (rt *runtime) openLink(ctx context.Context, a *App, b model.Bookmark, values map[string]string, printOnly bool) error {
	clicked, err := a.Service.Click(ctx, b.ID)
	if err != nil {
		return err
	}
	target := service.OpenURL(clicked, values)

	if printOnly || rt.globals.JSON {
		if rt.globals.JSON {
			return rt.printJSON(map[string]any{"id": clicked.ID, "url": target, "clicks": clicked.Clicks})
		}
		rt.printf("%s\n", target)
		return nil
	}

	rt.printf("Opening: %s\n", clicked.Title)
	if err := rt.browse(target); err != nil {
		return fmt.Errorf("opening browser: %w", err)
	}
	return nil
}

// Execute implements the go-flags Commander interface for CopyCommand.
func (c *CopyCommand) Execute(_ []string) error {
	return c.rt.withApp(func(_ context.Context, a *App) error {
		b, err := a.Service.Get(c.Args.ID)
		if err != nil {
			return err
		}
		if !b.IsLink() {
			return fmt.Errorf("%s is a group", b.Title)
		}
		if err := c.rt.copyClipboard(b.URL); err != nil {
			return fmt.Errorf("writing clipboard: %w", err)
		}
		c.rt.printf("Copied %s\n", b.URL)
		return nil
	})
}

// Execute implements the go-flags Commander interface for RenameCommand.
func (c *RenameCommand) Execute(_ []string) error {
	return c.rt.withApp(func(ctx context.Context, a *App) error {
		b, err := a.Service.SetTitle(ctx, c.Args.ID, c.Args.Title)
		if err != nil {
			return err
		}
		if c.rt.globals.JSON {
			return c.rt.printJSON(b.Record())
		}
		c.rt.printf("Renamed %s to %q\n", b.ID, b.Title)
		return nil
	})
}

// Execute implements the go-flags Commander interface for ReplaceCommand.
func (c *ReplaceCommand) Execute(_ []string) error {
	return c.rt.withApp(func(ctx context.Context, a *App) error {
		items := a.Service.View(view.Options{
			Scope:  c.scope(),
			Search: c.Search,
			Fuzzy:  c.Fuzzy,
		})
		n, err := a.Service.ReplaceInTitles(ctx, items, c.Find, c.Replace)
		if c.rt.globals.JSON {
			if jerr := c.rt.printJSON(map[string]int{"replaced": n}); jerr != nil {
				return jerr
			}
		} else {
			c.rt.printf("Replaced in %d title(s)\n", n)
		}
		return err
	})
}

// Execute implements the go-flags Commander interface for PickCommand.
func (c *PickCommand) Execute(_ []string) error {
	query := strings.Join(c.Args.Query, " ")

	return c.rt.withApp(func(ctx context.Context, a *App) error {
		var links []model.Bookmark
		for _, b := range a.Service.Items() {
			if b.IsLink() && !b.Pending {
				links = append(links, b)
			}
		}

		results := search.Rank(links, query)
		if len(results) == 0 {
			c.rt.printf("No bookmarks found for '%s'\n", query)
			return nil
		}

		var selected *model.Bookmark
		if len(results) == 1 {
			selected = &results[0].Bookmark
		} else {
			var err error
			selected, err = picker.Run(results, query)
			if err != nil {
				return err
			}
		}
		if selected == nil {
			return nil
		}
		return c.rt.openLink(ctx, a, *selected, nil, false)
	})
}
