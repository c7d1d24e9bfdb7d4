package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nikbrunner/minimark/internal/checker"
	"github.com/nikbrunner/minimark/internal/model"
	"github.com/nikbrunner/minimark/internal/selection"
	"github.com/nikbrunner/minimark/internal/service"
	"github.com/nikbrunner/minimark/internal/view"
)

type checkOutput struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Title        string `json:"title"`
	TitleChanged bool   `json:"titleChanged"`
	Skipped      bool   `json:"skipped"`
}

// Execute implements the go-flags Commander interface for CheckCommand.
func (c *CheckCommand) Execute(_ []string) error {
	if c.All == (c.Args.ID != "") {
		return errors.New("give either a link id or --all")
	}

	return c.rt.withApp(func(ctx context.Context, a *App) error {
		ids := []string{c.Args.ID}
		if c.All {
			ids = ids[:0]
			for _, b := range checker.Candidates(a.Service.Items(), time.Now(), a.Config.Checker.RecheckAfter) {
				ids = append(ids, b.ID)
			}
		}

		var (
			out  []checkOutput
			errs []error
		)
		for _, id := range ids {
			res, err := a.Service.Check(ctx, id, c.Force)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", id, err))
				if errors.Is(err, checker.ErrClientOffline) {
					break
				}
				continue
			}
			out = append(out, checkOutput{
				ID:           res.ID,
				Status:       string(res.Status),
				Title:        res.Title,
				TitleChanged: res.TitleChanged(),
				Skipped:      res.Skipped,
			})
		}

		if c.rt.globals.JSON {
			if err := c.rt.printJSON(out); err != nil {
				return err
			}
		} else {
			for _, o := range out {
				switch {
				case o.Skipped:
					c.rt.printf("%s\tskipped\n", o.ID)
				case o.TitleChanged:
					c.rt.printf("%s\t%s\t%q (title updated)\n", o.ID, o.Status, o.Title)
				default:
					c.rt.printf("%s\t%s\n", o.ID, o.Status)
				}
			}
			if c.All && len(ids) == 0 {
				c.rt.printf("No links due for a check\n")
			}
		}
		return errors.Join(errs...)
	})
}

// Execute implements the go-flags Commander interface for DeadCommand.
func (c *DeadCommand) Execute(_ []string) error {
	return c.rt.withApp(func(ctx context.Context, a *App) error {
		if c.Remove {
			return c.rt.printBulk("Removed", a.Service.RemoveDeadLinks(ctx))
		}
		return c.rt.printItems(a.Service.DeadLinks())
	})
}

// Execute implements the go-flags Commander interface for AutoarchiveCommand.
func (c *AutoarchiveCommand) Execute(_ []string) error {
	return c.rt.withApp(func(ctx context.Context, a *App) error {
		name := c.Threshold
		if name == "" {
			name = a.Config.Archive.Threshold
		}
		t, err := service.ParseArchiveThreshold(name)
		if err != nil {
			return err
		}
		return c.rt.printBulk("Archived", a.Service.AutoArchive(ctx, t))
	})
}

// Execute implements the go-flags Commander interface for WordsCommand.
func (c *WordsCommand) Execute(_ []string) error {
	acting := 0
	for _, set := range []bool{c.Delete, c.MoveTo != "", c.NewGroup != ""} {
		if set {
			acting++
		}
	}
	if acting > 1 {
		return errors.New("--delete, --move-to and --new-group are mutually exclusive")
	}
	if acting == 1 && len(c.Args.Words) == 0 {
		return errors.New("name the words whose links to act on")
	}

	return c.rt.withApp(func(ctx context.Context, a *App) error {
		var links []model.Bookmark
		for _, b := range a.Service.Items() {
			if b.IsLink() && b.Active() && !b.Pending {
				links = append(links, b)
			}
		}

		if len(c.Args.Words) == 0 {
			return c.printWords(view.WordFrequency(links))
		}

		m := selection.NewManager(a.Service)
		m.Set.AddBatch(view.LinksMatchingWords(links, c.Args.Words))

		switch {
		case c.Delete:
			return c.rt.printBulk("Deleted", m.DeleteSelected(ctx))
		case c.MoveTo != "":
			return c.rt.printBulk("Moved", m.MoveSelectedToGroup(ctx, c.MoveTo))
		case c.NewGroup != "":
			groupID, res, err := m.MoveSelectedToNewGroup(ctx, c.NewGroup, nil)
			if err != nil {
				return err
			}
			if groupID != "" && !c.rt.globals.JSON {
				c.rt.printf("Created group %s\n", groupID)
			}
			return c.rt.printBulk("Moved", res)
		}

		var matched []model.Bookmark
		for _, id := range m.Set.IDs() {
			if b, err := a.Service.Get(id); err == nil {
				matched = append(matched, b)
			}
		}
		return c.rt.printItems(matched)
	})
}

func (c *WordsCommand) printWords(words []view.WordCount) error {
	if c.Top > 0 && len(words) > c.Top {
		words = words[:c.Top]
	}
	if c.rt.globals.JSON {
		return c.rt.printJSON(words)
	}
	for _, w := range words {
		c.rt.printf("%4d  %s\n", w.Count, w.Word)
	}
	return nil
}
