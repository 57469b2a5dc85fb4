package main

import (
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/eringen/magzfeed/archive"
	"github.com/eringen/magzfeed/feed"
	"github.com/eringen/magzfeed/fetch"
	"github.com/eringen/magzfeed/manifest"
	"github.com/eringen/magzfeed/partition"
	"github.com/eringen/magzfeed/post"
	"github.com/eringen/magzfeed/taxonomy"
)

var dataFlags = []cli.Flag{
	&cli.StringFlag{Name: "origin", Usage: "origin serving /data", Value: "http://localhost:3000", EnvVars: []string{"MAGZ_DATA_ORIGIN"}},
	&cli.StringFlag{Name: "base-path", Usage: "deployment sub-path", EnvVars: []string{"MAGZ_BASE_PATH"}},
	&cli.DurationFlag{Name: "timeout", Usage: "per-request timeout", Value: 15 * time.Second},
	&cli.BoolFlag{Name: "debug", Usage: "debug logging"},
}

func dataClient(c *cli.Context) (*fetch.Client, fetch.BasePath, error) {
	base := fetch.NewBasePath(c.String("base-path"))
	client, err := fetch.New(c.String("origin"), base,
		fetch.WithTimeout(c.Duration("timeout")),
		fetch.WithLogger(newLogger(c.Bool("debug"))),
	)
	return client, base, err
}

func feedCommand() *cli.Command {
	return &cli.Command{
		Name:  "feed",
		Usage: "print a category feed batch by batch",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "cat", Usage: "category", Required: true},
			&cli.StringFlag{Name: "sub", Usage: "subcategory"},
			&cli.IntFlag{Name: "batches", Usage: "stop after this many batches (0 for all)"},
		}, dataFlags...),
		Action: feedAction,
	}
}

func feedAction(c *cli.Context) error {
	client, base, err := dataClient(c)
	if err != nil {
		return err
	}
	ctx := c.Context
	logger := newLogger(c.Bool("debug"))

	tax, err := taxonomy.Load(ctx, client, base)
	if err != nil {
		logger.Info("taxonomy unavailable", "error", err)
	}
	m, err := manifest.Load(ctx, client, base)
	if err != nil {
		logger.Info("manifest unavailable, using legacy posts", "error", err)
	}

	builder := partition.NewBuilder(client, base, nil, partition.WithBuilderLogger(logger))
	page, err := builder.InitializePageData(ctx, m, partition.PageOptions{
		Category: c.String("cat"),
		Sub:      c.String("sub"),
		Taxonomy: tax,
	})
	if err != nil {
		return err
	}

	out := &textRenderer{w: c.App.Writer, base: base}
	ctrl := feed.New(feed.Config{
		Loader:       page.Loader,
		Renderer:     out,
		CategorySlug: page.RequestedSlug,
		FilterSlug:   page.FilterSlug,
		Label:        page.Label,
		Titles:       tax,
		Logger:       logger,
	})
	ctrl.Start()

	limit := c.Int("batches")
	for n := 0; !ctrl.Finished() && (limit <= 0 || n < limit); n++ {
		fmt.Fprintf(out.w, "-- batch %d\n", n+1)
		res, err := ctrl.RequestMore(ctx, feed.TriggerManual)
		if err != nil {
			return err
		}
		if res.Appended == 0 && !res.Done {
			fmt.Fprintln(out.w, "(empty)")
		}
	}
	return nil
}

// textRenderer prints feed output as plain text.
type textRenderer struct {
	w    io.Writer
	base fetch.BasePath
}

func (r *textRenderer) Reset() {}

func (r *textRenderer) AppendPosts(posts []post.Post) {
	for _, p := range posts {
		fmt.Fprintf(r.w, "%-10s  %s  %s\n", p.DateOnly(), post.PlainText(p.Title), r.base.ArticleURL(p.Slug))
	}
}

func (r *textRenderer) SetProgress(label string) { fmt.Fprintln(r.w, label) }

func (r *textRenderer) SetLoading(bool) {}

func (r *textRenderer) SetTitle(title string) { fmt.Fprintf(r.w, "# %s\n", title) }

func (r *textRenderer) Finish(_ bool, message string) { fmt.Fprintln(r.w, message) }

func archiveCommand() *cli.Command {
	return &cli.Command{
		Name:  "archive",
		Usage: "list archive months, or the posts of one month",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "month", Aliases: []string{"m"}, Usage: "month key (YYYY-MM)"},
		}, dataFlags...),
		Action: archiveAction,
	}
}

func archiveAction(c *cli.Context) error {
	client, base, err := dataClient(c)
	if err != nil {
		return err
	}
	ctx := c.Context
	w := c.App.Writer

	idx, err := archive.LoadIndex(ctx, client, base)
	if err != nil {
		return fmt.Errorf("archive index: %w", err)
	}
	month := c.String("month")
	if month == "" {
		fmt.Fprintln(w, archive.Summary(idx))
		for _, m := range idx.Months {
			fmt.Fprintf(w, "%s  %-16s %d\n", m.Key, m.Label(), m.Count)
		}
		return nil
	}

	key := archive.InitialMonth(idx, month)
	if key != month {
		return fmt.Errorf("month %q is not in the archive", month)
	}
	posts, err := archive.NewCache(client, base, newLogger(c.Bool("debug"))).Month(ctx, key)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, archive.Heading(key))
	if len(posts) == 0 {
		fmt.Fprintln(w, archive.EmptyText(key))
	}
	for _, p := range posts {
		fmt.Fprintf(w, "%-10s  %s\n", p.DateOnly(), post.PlainText(p.Title))
	}
	return nil
}
